package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func evaluate(t *testing.T, source string) *EvalResult {
	t.Helper()
	res, err := NewEngine().Evaluate(context.Background(), source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	return res
}

func TestEvaluateEmptyString(t *testing.T) {
	for _, src := range []string{"", "   \n\t  \n  "} {
		res := evaluate(t, src)
		if len(res.Errors) > 0 {
			t.Fatalf("unexpected eval errors: %v", res.Errors)
		}
		if res.Graph == nil {
			t.Fatal("expected non-nil graph")
		}
		if res.Graph.NodeCount() != 0 {
			t.Errorf("expected empty graph, got %d nodes", res.Graph.NodeCount())
		}
	}
}

func TestEvaluateValidExpression(t *testing.T) {
	// Plain arithmetic is a valid script that defines no part.
	res := evaluate(t, "(+ 1 2)")
	if !res.OK() {
		t.Fatalf("unexpected eval errors: %v", res.Errors)
	}
	if res.Graph.NodeCount() != 0 {
		t.Errorf("expected empty graph, got %d nodes", res.Graph.NodeCount())
	}
}

func TestEvaluateMultipleExpressions(t *testing.T) {
	source := `
(def x 10)
(def y 20)
(+ x y)
`
	if res := evaluate(t, source); !res.OK() {
		t.Fatalf("unexpected eval errors: %v", res.Errors)
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	// Unmatched paren is a parse error.
	res := evaluate(t, "(+ 1 2")
	if res.Graph != nil {
		t.Fatal("expected nil graph on syntax error")
	}
	if len(res.Errors) == 0 {
		t.Fatal("expected at least one eval error for syntax error")
	}
	if res.Errors[0].Message == "" {
		t.Error("eval error message should not be empty")
	}
	if res.OK() || res.Err() == nil {
		t.Error("result with errors should not be OK")
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	res := evaluate(t, "(+ 1 undefined-symbol)")
	if res.Graph != nil {
		t.Fatal("expected nil graph on eval error")
	}
	if len(res.Errors) == 0 {
		t.Fatal("expected at least one eval error for undefined symbol")
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Message: "something went wrong"}
	s := e.Error()
	if !strings.Contains(s, "line 5") {
		t.Errorf("Error() should contain line info, got: %s", s)
	}
	if !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() should contain message, got: %s", s)
	}

	e2 := EvalError{Message: "no location"}
	if s2 := e2.Error(); strings.Contains(s2, "line") {
		t.Errorf("Error() with no line should not contain 'line', got: %s", s2)
	}
}

func TestEvalResultErr(t *testing.T) {
	var nilRes *EvalResult
	if nilRes.Err() != nil || nilRes.OK() {
		t.Error("nil result should have no error and not be OK")
	}
	res := &EvalResult{Errors: []EvalError{{Line: 2, Message: "a"}, {Message: "b"}}}
	if got := res.Err().Error(); got != "script: line 2: a; b" {
		t.Errorf("Err() = %q", got)
	}
}

func TestEngineTimeoutOption(t *testing.T) {
	if got := NewEngine().Timeout(); got != DefaultEvalTimeout {
		t.Errorf("default timeout = %s, want %s", got, DefaultEvalTimeout)
	}
	if got := NewEngine(WithTimeout(0)).Timeout(); got != DefaultEvalTimeout {
		t.Errorf("zero override timeout = %s, want default", got)
	}
	if got := NewEngine(WithTimeout(time.Second)).Timeout(); got != time.Second {
		t.Errorf("timeout = %s, want 1s", got)
	}
}

func TestWaitWithTimeout(t *testing.T) {
	ch := make(chan evalResult) // never sends

	start := time.Now()
	_, err := waitWithTimeout(context.Background(), ch, 20*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("timeout took far longer than requested")
	}
}

func TestWaitWithTimeoutCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := waitWithTimeout(ctx, make(chan evalResult), time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWaitWithTimeoutDelivers(t *testing.T) {
	ch := make(chan evalResult, 1)
	want := &EvalResult{}
	ch <- evalResult{result: want}

	got, err := waitWithTimeout(context.Background(), ch, time.Second)
	if err != nil || got != want {
		t.Fatalf("waitWithTimeout = %v, %v", got, err)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{
			name:     "error on line format",
			msg:      "Error on line 5: unexpected token\n",
			wantLine: 5,
			wantMsg:  "unexpected token",
		},
		{
			name:     "no line info",
			msg:      "some generic error",
			wantLine: 0,
			wantMsg:  "some generic error",
		},
		{
			name:     "line format lowercase",
			msg:      "error on line 12: missing paren",
			wantLine: 12,
			wantMsg:  "missing paren",
		},
		{
			name:     "short line format",
			msg:      "line 3: drill: missing :face",
			wantLine: 3,
			wantMsg:  "missing :face",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errString(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			e := errs[0]
			if e.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Line, tt.wantLine)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.wantMsg)
			}
		})
	}
}

// errString is a simple error type for testing.
type errString string

func (e errString) Error() string { return string(e) }
