// Package parser converts input lines into Requests.
// Intentionally dumb: no NLP, just pattern matching.
//
// The accepted shape is
//
//	<verb> <actor> [targets...] [with <item>] [key=value...]
//
// Bare integers become the "amount" parameter, so "move fighter 30" asks the
// fighter to move thirty feet.
package parser

import (
	"strconv"
	"strings"

	"github.com/nathoo/osricore/types"
)

var verbAliases = map[string]string{
	// Attack
	"hit":    "attack",
	"fight":  "attack",
	"strike": "attack",
	"kill":   "attack",
	"swing":  "attack",
	"stab":   "attack",
	"shoot":  "attack",

	// Movement
	"walk":   "move",
	"go":     "move",
	"run":    "move",
	"step":   "move",
	"dash":   "move",
	"charge": "move",

	// Survival checks
	"shock":     "system-shock",
	"survive":   "system-shock",
	"save":      "death-save",
	"deathsave": "death-save",
}

// Words that separate the actor from its targets and carry no meaning.
var fillers = map[string]bool{
	"at": true, "on": true, "to": true, "toward": true, "towards": true,
	"the": true, "a": true, "an": true, "against": true,
}

// AmountParam is the parameter bare integers are stored under.
const AmountParam = "amount"

// WithParam is the parameter the word after "with" is stored under.
const WithParam = "with"

// Parse converts a raw line into a Request. Verbs are lower-cased and
// aliased; names keep their case so they can be resolved later.
func Parse(input string) types.Request {
	input = strings.TrimSpace(input)
	if input == "" {
		return types.Request{}
	}

	words := strings.Fields(input)
	words = expandMultiWordVerbs(words)

	verb := strings.ToLower(words[0])
	if alias, ok := verbAliases[verb]; ok {
		verb = alias
	}
	req := types.Request{Verb: verb}

	for i := 1; i < len(words); i++ {
		w := words[i]
		lw := strings.ToLower(w)

		switch {
		case fillers[lw]:
			continue
		case lw == "with" && i+1 < len(words):
			i++
			setParam(&req, WithParam, words[i])
		case strings.Contains(w, "=") && !strings.HasPrefix(w, "="):
			k, v, _ := strings.Cut(w, "=")
			setParam(&req, strings.ToLower(k), v)
		case isInt(w):
			setParam(&req, AmountParam, w)
		case req.Actor == "":
			req.Actor = w
		default:
			req.Targets = append(req.Targets, w)
		}
	}
	return req
}

// expandMultiWordVerbs joins "system shock" and "death save" into a single
// verb.
func expandMultiWordVerbs(words []string) []string {
	if len(words) < 2 {
		return words
	}
	first, second := strings.ToLower(words[0]), strings.ToLower(words[1])
	switch {
	case first == "system" && second == "shock":
		return append([]string{"system-shock"}, words[2:]...)
	case first == "death" && second == "save":
		return append([]string{"death-save"}, words[2:]...)
	}
	return words
}

func setParam(req *types.Request, key, value string) {
	if req.Params == nil {
		req.Params = map[string]string{}
	}
	req.Params[key] = value
}

func isInt(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}
