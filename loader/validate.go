package loader

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/nathoo/osricore/engine/dice"
	"github.com/nathoo/osricore/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

// Known effect types.
var validEffectTypes = map[string]bool{
	"say":      true,
	"tag":      true,
	"damage":   true,
	"set_temp": true,
	"set_prop": true,
	"add_prop": true,
	"fail":     true,
	"stop":     true,
}

// Known condition types.
var validConditionTypes = map[string]bool{
	"actor_prop":  true,
	"target_prop": true,
	"temp_set":    true,
	"temp_not":    true,
	"has_entity":  true,
	"not":         true,
}

// Entity references resolved against the command at run time.
var roleRefs = map[string]bool{"": true, "actor": true, "target": true, "targets": true}

var validOps = map[string]bool{"": true, "==": true, "~=": true, ">": true, ">=": true, "<": true, "<=": true}

// validate checks the compiled scenario for referential integrity.
func validate(sc *types.Scenario, opts Options, logger *slog.Logger) error {
	ve := &ValidationError{}

	entities := map[string]bool{}
	for _, ent := range sc.Entities {
		if entities[ent.ID] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("duplicate entity ID %q", ent.ID))
		}
		entities[ent.ID] = true
		if ent.Kind != "item" {
			if _, ok := ent.Props["hp"]; !ok {
				ve.Warnings = append(ve.Warnings, fmt.Sprintf("%s %q has no hp", ent.Kind, ent.ID))
			}
		}
	}

	rules := map[string]bool{}
	for _, name := range opts.KnownRules {
		rules[name] = true
	}
	commands := map[string]bool{}
	for _, c := range opts.KnownCommands {
		commands[c] = true
	}
	for _, rule := range sc.Rules {
		if rules[rule.ID] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("duplicate rule ID %q", rule.ID))
		}
		rules[rule.ID] = true
		commands[rule.Command] = true
	}

	for _, rule := range sc.Rules {
		for _, req := range rule.Requires {
			if !rules[req] {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"rule %q requires undefined rule %q", rule.ID, req))
			}
		}
		validateConditions(rule.ID, rule.Conditions, entities, ve)
		validateEffects(rule.ID, rule.Effects, entities, ve)
	}

	for command := range sc.Chains {
		if !commands[command] {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf(
				"chain config for %q has no rules", command))
		}
	}

	for _, w := range ve.Warnings {
		logger.Warn("scenario validation", slog.String("warning", w))
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateConditions(ruleID string, conditions []types.Condition, entities map[string]bool, ve *ValidationError) {
	for _, cond := range conditions {
		if !validConditionTypes[cond.Type] {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"rule %q: unknown condition type %q", ruleID, cond.Type))
			continue
		}

		switch cond.Type {
		case "actor_prop", "target_prop":
			if op, _ := cond.Params["op"].(string); !validOps[op] {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"rule %q: condition %s has unknown operator %q", ruleID, cond.Type, op))
			}
		case "has_entity":
			ref, _ := cond.Params["entity"].(string)
			checkRef(ruleID, "condition has_entity", ref, entities, ve)
		case "not":
			if cond.Inner != nil {
				validateConditions(ruleID, []types.Condition{*cond.Inner}, entities, ve)
			}
		}
	}
}

func validateEffects(ruleID string, effects []types.Effect, entities map[string]bool, ve *ValidationError) {
	for _, eff := range effects {
		if !validEffectTypes[eff.Type] {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"rule %q: unknown effect type %q", ruleID, eff.Type))
			continue
		}

		switch eff.Type {
		case "damage":
			ref, _ := eff.Params["target"].(string)
			checkRef(ruleID, "effect damage", ref, entities, ve)
			checkAmount(ruleID, "effect damage", eff.Params["amount"], ve)
		case "set_prop", "add_prop":
			ref, _ := eff.Params["entity"].(string)
			checkRef(ruleID, "effect "+eff.Type, ref, entities, ve)
			if eff.Type == "add_prop" {
				checkAmount(ruleID, "effect add_prop", eff.Params["amount"], ve)
			}
		}
	}
}

func checkRef(ruleID, what, ref string, entities map[string]bool, ve *ValidationError) {
	if roleRefs[strings.Trim(ref, "{}")] || entities[ref] {
		return
	}
	ve.Errors = append(ve.Errors, fmt.Sprintf(
		"rule %q: %s references undefined entity %q", ruleID, what, ref))
}

// checkAmount accepts a number or valid dice notation.
func checkAmount(ruleID, what string, v any, ve *ValidationError) {
	switch a := v.(type) {
	case int, float64:
	case string:
		if _, err := dice.Parse(a); err != nil {
			ve.Errors = append(ve.Errors, fmt.Sprintf("rule %q: %s: %v", ruleID, what, err))
		}
	default:
		ve.Errors = append(ve.Errors, fmt.Sprintf("rule %q: %s has no amount", ruleID, what))
	}
}
