package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/dfm/pkg/graph"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	fn         string
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(fn string, args []zygo.Sexp) kwArgs {
	result := kwArgs{fn: fn, kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Trailing keyword with no value is a flag.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// number returns a required numeric keyword.
func (a kwArgs) number(key string) (float64, error) {
	v, ok := a.kw[key]
	if !ok {
		return 0, fmt.Errorf("%s: missing :%s", a.fn, key)
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %s: %w", a.fn, key, err)
	}
	return f, nil
}

// optNumber returns a numeric keyword or def when absent.
func (a kwArgs) optNumber(key string, def float64) (float64, error) {
	if _, ok := a.kw[key]; !ok {
		return def, nil
	}
	return a.number(key)
}

// optString returns a string keyword or "" when absent.
func (a kwArgs) optString(key string) (string, error) {
	v, ok := a.kw[key]
	if !ok {
		return "", nil
	}
	s, err := toString(v)
	if err != nil {
		return "", fmt.Errorf("%s: %s: %w", a.fn, key, err)
	}
	return s, nil
}

// face returns the required :face keyword.
func (a kwArgs) face() (graph.Face, error) {
	v, ok := a.kw["face"]
	if !ok {
		return "", fmt.Errorf("%s: missing :face", a.fn)
	}
	f, err := toFace(v)
	if err != nil {
		return "", fmt.Errorf("%s: face: %w", a.fn, err)
	}
	return f, nil
}

// uv returns a required (uv u v) keyword.
func (a kwArgs) uv(key string) (graph.UV, error) {
	v, ok := a.kw[key]
	if !ok {
		return graph.UV{}, fmt.Errorf("%s: missing :%s", a.fn, key)
	}
	p, err := toUV(v)
	if err != nil {
		return graph.UV{}, fmt.Errorf("%s: %s: %w", a.fn, key, err)
	}
	return p, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a finite float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		if math.IsNaN(v.Val) || math.IsInf(v.Val, 0) {
			return 0, fmt.Errorf("expected finite number, got %v", v.Val)
		}
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_top) and plain strings ("top").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toFace converts a keyword or string to a graph.Face.
func toFace(s zygo.Sexp) (graph.Face, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return "", fmt.Errorf("expected face keyword: %w", err)
	}
	f := graph.Face(name)
	if !graph.ValidFaces[f] {
		return "", fmt.Errorf("invalid face %q, expected top/bottom/front/back/left/right", name)
	}
	return f, nil
}

// toUV extracts a graph.UV from a sexpUV.
func toUV(s zygo.Sexp) (graph.UV, error) {
	if v, ok := s.(*sexpUV); ok {
		return v.uv, nil
	}
	return graph.UV{}, fmt.Errorf("expected (uv u v), got %T (%s)", s, s.SexpString(nil))
}
