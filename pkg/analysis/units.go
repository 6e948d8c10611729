package analysis

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownUnits is returned for a units hint that is not recognised.
var ErrUnknownUnits = errors.New("analysis: unknown units")

var unitScales = map[string]float64{
	"":            1,
	"mm":          1,
	"millimeter":  1,
	"millimeters": 1,
	"cm":          10,
	"m":           1000,
	"meter":       1000,
	"meters":      1000,
	"in":          25.4,
	"inch":        25.4,
	"inches":      25.4,
	"ft":          304.8,
	"foot":        304.8,
	"feet":        304.8,
}

// ScaleToMM returns millimetres per unit named by hint. An empty hint means
// millimetres.
func ScaleToMM(hint string) (float64, error) {
	s, ok := unitScales[strings.ToLower(strings.TrimSpace(hint))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnits, hint)
	}
	return s, nil
}
