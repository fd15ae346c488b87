// Package policy evaluates the optional Rego rule that drops ghosts an
// operator has decided to accept.
package policy

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/rego"
)

// Query is the rule evaluated for every candidate ghost.
const Query = "data.casper.ignore"

// Input is the document a policy sees as `input`.
type Input struct {
	Service  string `json:"service"`
	Group    string `json:"group"`
	ID       string `json:"id"`
	Resource any    `json:"resource"`
}

// Engine holds a prepared ignore query.
type Engine struct {
	query rego.PreparedEvalQuery
}

// Load compiles the Rego module at path.
func Load(ctx context.Context, path string) (*Engine, error) {
	code, err := os.ReadFile(path) // #nosec G304 -- policy path is user input
	if err != nil {
		return nil, fmt.Errorf("read policy %s: %w", path, err)
	}
	return New(ctx, path, string(code))
}

// New compiles a Rego module. The module must declare `package casper`.
func New(ctx context.Context, name, module string) (*Engine, error) {
	prepared, err := rego.New(
		rego.Query(Query),
		rego.Module(name, module),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile policy %s: %w", name, err)
	}
	return &Engine{query: prepared}, nil
}

// Ignore reports whether the policy drops the candidate. An undefined or
// non-boolean result keeps it. A nil Engine keeps everything.
func (e *Engine) Ignore(ctx context.Context, in Input) (bool, error) {
	if e == nil {
		return false, nil
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(in))
	if err != nil {
		return false, fmt.Errorf("evaluate policy for %s %s: %w", in.Group, in.ID, err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, nil
	}

	ignore, ok := results[0].Expressions[0].Value.(bool)
	return ok && ignore, nil
}
