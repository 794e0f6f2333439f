// Package formula evaluates stored component rules such as seniority rates.
package formula

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Knetic/govaluate"
	"github.com/shopspring/decimal"
)

var ErrNotNumeric = errors.New("formula did not evaluate to a number")

var functions = map[string]govaluate.ExpressionFunction{
	"min": func(args ...interface{}) (interface{}, error) {
		return fold(args, func(a, b float64) bool { return b < a })
	},
	"max": func(args ...interface{}) (interface{}, error) {
		return fold(args, func(a, b float64) bool { return b > a })
	},
}

func fold(args []interface{}, better func(a, b float64) bool) (interface{}, error) {
	if len(args) == 0 {
		return nil, errors.New("at least one argument required")
	}
	best, ok := args[0].(float64)
	if !ok {
		return nil, ErrNotNumeric
	}
	for _, arg := range args[1:] {
		v, ok := arg.(float64)
		if !ok {
			return nil, ErrNotNumeric
		}
		if better(best, v) {
			best = v
		}
	}
	return best, nil
}

// Evaluator compiles expressions once and reuses them across goroutines.
type Evaluator struct {
	compiled sync.Map // expression -> *govaluate.EvaluableExpression
}

func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Compile parses an expression without evaluating it.
func (e *Evaluator) Compile(expression string) (*govaluate.EvaluableExpression, error) {
	if cached, ok := e.compiled.Load(expression); ok {
		return cached.(*govaluate.EvaluableExpression), nil
	}
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(expression, functions)
	if err != nil {
		return nil, fmt.Errorf("failed to parse formula %q: %w", expression, err)
	}
	e.compiled.Store(expression, expr)
	return expr, nil
}

// Decimal evaluates expression with params and returns the result rounded
// to 6 decimal places.
func (e *Evaluator) Decimal(expression string, params map[string]interface{}) (decimal.Decimal, error) {
	expr, err := e.Compile(expression)
	if err != nil {
		return decimal.Zero, err
	}
	result, err := expr.Evaluate(params)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to evaluate formula %q: %w", expression, err)
	}
	v, ok := result.(float64)
	if !ok {
		return decimal.Zero, ErrNotNumeric
	}
	return decimal.NewFromFloat(v).Round(6), nil
}
