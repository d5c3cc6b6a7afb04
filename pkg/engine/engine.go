// Package engine evaluates geometry scripts. It wraps zygomys in a
// sandboxed environment and produces a volume tree from the script, either
// by assembling a built-in detector descriptor or from volumes the script
// declares one by one.
package engine

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/JeffersonLab/svtgeom/pkg/alignment"
	"github.com/JeffersonLab/svtgeom/pkg/graph"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in the script.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// DefaultTimeout bounds a single evaluation when Engine.Timeout is unset.
const DefaultTimeout = 5 * time.Second

// ErrTimeout is returned when a script runs past the engine's timeout.
var ErrTimeout = errors.New("script evaluation timed out")

// ScriptPanicError reports a panic raised while a script was running.
type ScriptPanicError struct {
	Value any
}

func (e *ScriptPanicError) Error() string {
	return fmt.Sprintf("panic during evaluation: %v", e.Value)
}

// Engine wraps the zygomys interpreter.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	// Alignment is attached to trees assembled by the descriptor builtin.
	Alignment *alignment.Set

	// Timeout bounds each evaluation. Zero means DefaultTimeout.
	Timeout time.Duration
}

// NewEngine creates a new Engine instance.
func NewEngine() *Engine {
	return &Engine{Timeout: DefaultTimeout}
}

type evalResult struct {
	tree   *graph.Tree
	errors []EvalError
	err    error
}

// Evaluate runs a geometry script and returns the tree it built.
//
// Return semantics:
//   - On success: returns tree + nil errors + nil error
//   - On parse/eval failure: returns nil tree + eval errors + nil error
//   - On fatal failure: returns nil + nil + an error wrapping ErrTimeout
//     or a *ScriptPanicError
//
// zygomys cannot be interrupted, so a script that times out keeps its
// goroutine until it returns; its result is dropped.
func (e *Engine) Evaluate(source string) (*graph.Tree, []EvalError, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	set := e.Alignment

	ch := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: &ScriptPanicError{Value: r}}
			}
		}()
		t, evalErrs, err := evaluate(source, set)
		ch <- evalResult{tree: t, errors: evalErrs, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-ch:
		return res.tree, res.errors, res.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func evaluate(source string, set *alignment.Set) (*graph.Tree, []EvalError, error) {
	s := newSession(set)

	// Empty source is a valid script that leaves only the tracking volume.
	if strings.TrimSpace(source) == "" {
		return s.tree, nil, nil
	}

	// Sandbox mode prevents scripts from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, s)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	if errs := graph.Errors(graph.Validate(s.tree)); len(errs) > 0 {
		out := make([]EvalError, 0, len(errs))
		for _, ve := range errs {
			out = append(out, EvalError{Message: ve.Error()})
		}
		return nil, out, nil
	}
	return s.tree, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
