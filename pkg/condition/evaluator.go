// Package condition evaluates permission condition expressions against
// request attributes. Evaluation is fail-closed: anything that is not a
// clean boolean true — parse error, unknown variable, non-boolean result,
// timeout, panic — denies.
package condition

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

const DefaultTimeout = 100 * time.Millisecond

type Evaluator struct {
	timeout time.Duration

	mu       sync.RWMutex
	programs map[string]*vm.Program
}

func NewEvaluator(timeout time.Duration) *Evaluator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Evaluator{
		timeout:  timeout,
		programs: make(map[string]*vm.Program),
	}
}

// Check compiles an expression without running it. Used to reject broken
// conditions at permission-creation time.
func (e *Evaluator) Check(expression string) error {
	if strings.TrimSpace(expression) == "" {
		return nil
	}
	_, err := e.compile(expression)
	return err
}

// Evaluate runs the expression against the attribute map. A blank
// expression is an unconditional grant and returns true. Any failure
// returns false and is logged; this method never propagates an error.
func (e *Evaluator) Evaluate(ctx context.Context, expression string, attrs map[string]any) bool {
	if strings.TrimSpace(expression) == "" {
		return true
	}

	program, err := e.compile(expression)
	if err != nil {
		log.Printf("[CONDITION] compile failed for %q: %v", expression, err)
		return false
	}

	if attrs == nil {
		attrs = map[string]any{}
	}

	type result struct {
		value any
		err   error
	}

	resultCh := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[CONDITION] panic evaluating %q: %v", expression, r)
				resultCh <- result{err: context.Canceled}
			}
		}()
		value, err := expr.Run(program, attrs)
		resultCh <- result{value: value, err: err}
	}()

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case res := <-resultCh:
		if res.err != nil {
			log.Printf("[CONDITION] evaluation failed for %q: %v", expression, res.err)
			return false
		}
		granted, ok := res.value.(bool)
		if !ok {
			log.Printf("[CONDITION] non-boolean result for %q: %T", expression, res.value)
			return false
		}
		return granted
	case <-timer.C:
		log.Printf("[CONDITION] evaluation timed out for %q after %v", expression, e.timeout)
		return false
	case <-ctx.Done():
		return false
	}
}

// compile returns a cached program. Expressions come from the permissions
// table, so the cache stays small and needs no eviction.
func (e *Evaluator) compile(expression string) (*vm.Program, error) {
	e.mu.RLock()
	program, ok := e.programs[expression]
	e.mu.RUnlock()
	if ok {
		return program, nil
	}

	program, err := expr.Compile(expression)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.programs[expression] = program
	e.mu.Unlock()
	return program, nil
}
