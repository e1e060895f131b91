package engine

import "github.com/nathoo/osricore/types"

// ResultOption decorates a result built by Success or Failure.
type ResultOption func(*types.Result)

// WithData attaches a payload.
func WithData(data map[string]any) ResultOption {
	return func(r *types.Result) { r.Data = data }
}

// WithEffects appends effect tags.
func WithEffects(effects ...string) ResultOption {
	return func(r *types.Result) { r.Effects = append(r.Effects, effects...) }
}

// WithDamage appends damage amounts.
func WithDamage(amounts ...int) ResultOption {
	return func(r *types.Result) { r.Damage = append(r.Damage, amounts...) }
}

// StopChain ends the current chain after this result.
func StopChain() ResultOption {
	return func(r *types.Result) { r.StopChain = true }
}

// Critical marks a failure as critical. Ignored on successes.
func Critical() ResultOption {
	return func(r *types.Result) { r.Critical = true }
}

// Success builds a success result.
func Success(message string, opts ...ResultOption) types.Result {
	r := types.Result{Kind: types.KindSuccess, Message: message}
	for _, opt := range opts {
		opt(&r)
	}
	r.Critical = false
	return r
}

// Failure builds an in-model failure result. A critical failure always
// stops the chain.
func Failure(message string, opts ...ResultOption) types.Result {
	r := types.Result{Kind: types.KindFailure, Message: message}
	for _, opt := range opts {
		opt(&r)
	}
	if r.Critical {
		r.StopChain = true
	}
	return r
}

// Failed reports whether r is a failure.
func Failed(r types.Result) bool {
	return r.Kind == types.KindFailure
}
