package engine

import (
	"math"
	"strings"
	"testing"

	"github.com/chazu/dfm/pkg/graph"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(stock :material "6061")`,
			expect: `(stock "__kw_material" "6061")`,
		},
		{
			name:   "multiple keywords",
			input:  `(stock :length 100 :width 60)`,
			expect: `(stock "__kw_length" 100 "__kw_width" 60)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(bolt-circle :start-angle 30)`,
			expect: `(bolt_circle "__kw_start-angle" 30)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative literal preserved",
			input:  `(uv -5 3)`,
			expect: `(uv -5 3)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
		{
			name:   "face keyword",
			input:  `:face :top`,
			expect: `"__kw_face" "__kw_top"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Part scripts
// ---------------------------------------------------------------------------

const plateScript = `
;; 100 x 60 x 20 aluminium plate
(stock :length 100 :width 60 :thickness 20 :material "6061-T6" :name "plate")
(drill :face :top :at (uv 20 15) :diameter 6 :name "bolt")        ; through
(drill :face :top :at (uv 50 30) :diameter 8 :depth 10)           ; blind
(pocket :face :top :at (uv 78 30) :length 20 :width 15 :depth 8)
`

func TestPlateScript(t *testing.T) {
	res := evaluate(t, plateScript)
	if !res.OK() {
		t.Fatalf("eval errors: %v", res.Errors)
	}
	g := res.Graph

	stock, sd, ok := g.Stock()
	if !ok {
		t.Fatal("expected a stock")
	}
	if stock.Name != "plate" {
		t.Errorf("stock name = %q, want plate", stock.Name)
	}
	if sd.Dimensions != (graph.Vec3{X: 100, Y: 60, Z: 20}) {
		t.Errorf("stock dimensions = %+v", sd.Dimensions)
	}
	if sd.Material != "6061-T6" {
		t.Errorf("material = %q", sd.Material)
	}

	features := g.Features()
	if len(features) != 3 {
		t.Fatalf("expected 3 features, got %d", len(features))
	}

	bolt := g.Lookup("bolt")
	if bolt == nil || bolt.ID != features[0].ID {
		t.Fatal("expected first feature named bolt")
	}
	through := bolt.Data.(graph.DrillData)
	if through.Face != graph.FaceTop || through.At != (graph.UV{U: 20, V: 15}) || through.Diameter != 6 || through.Depth != 0 {
		t.Errorf("through drill = %+v", through)
	}
	if through.Stock != stock.ID {
		t.Error("drill should reference the stock")
	}

	blind := features[1].Data.(graph.DrillData)
	if blind.Depth != 10 {
		t.Errorf("blind depth = %f, want 10", blind.Depth)
	}

	pocket, ok := features[2].Data.(graph.PocketData)
	if !ok {
		t.Fatalf("third feature is %T, want PocketData", features[2].Data)
	}
	if pocket.Length != 20 || pocket.Width != 15 || pocket.Depth != 8 {
		t.Errorf("pocket = %+v", pocket)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}
}

func TestVariableReference(t *testing.T) {
	source := `
(def thick 25)
(stock :length 80 :width 40 :thickness thick)
`
	res := evaluate(t, source)
	if !res.OK() {
		t.Fatalf("eval errors: %v", res.Errors)
	}
	_, sd, _ := res.Graph.Stock()
	if sd.Dimensions.Z != 25 {
		t.Errorf("expected thickness=25 (from variable), got %f", sd.Dimensions.Z)
	}
}

func TestDeterministicIDs(t *testing.T) {
	a := evaluate(t, plateScript).Graph.Features()
	b := evaluate(t, plateScript).Graph.Features()
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Errorf("feature %d id differs between runs", i)
		}
	}
}

func TestBoltCircle(t *testing.T) {
	source := `
(stock :length 100 :width 100 :thickness 10)
(bolt-circle :face :top :center (uv 50 50) :radius 30 :count 4 :diameter 5)
`
	res := evaluate(t, source)
	if !res.OK() {
		t.Fatalf("eval errors: %v", res.Errors)
	}
	features := res.Graph.Features()
	if len(features) != 4 {
		t.Fatalf("expected 4 holes, got %d", len(features))
	}
	want := []graph.UV{{U: 80, V: 50}, {U: 50, V: 80}, {U: 20, V: 50}, {U: 50, V: 20}}
	for i, n := range features {
		d := n.Data.(graph.DrillData)
		if math.Abs(d.At.U-want[i].U) > 1e-9 || math.Abs(d.At.V-want[i].V) > 1e-9 {
			t.Errorf("hole %d at %+v, want %+v", i, d.At, want[i])
		}
	}
}

func TestScriptErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "feature before stock",
			source: `(drill :face :top :at (uv 1 1) :diameter 1)`,
			want:   "no stock defined",
		},
		{
			name:   "two stocks",
			source: "(stock :length 1 :width 1 :thickness 1)\n(stock :length 1 :width 1 :thickness 1)",
			want:   "already defined",
		},
		{
			name:   "missing dimension",
			source: `(stock :length 10 :width 10)`,
			want:   "missing :thickness",
		},
		{
			name:   "bad face",
			source: "(stock :length 10 :width 10 :thickness 5)\n(drill :face :diagonal :at (uv 5 5) :diameter 1)",
			want:   "invalid face",
		},
		{
			name:   "at is not uv",
			source: "(stock :length 10 :width 10 :thickness 5)\n(drill :face :top :at 5 :diameter 1)",
			want:   "expected (uv u v)",
		},
		{
			name:   "string where number expected",
			source: `(stock :length "long" :width 10 :thickness 5)`,
			want:   "expected number",
		},
		{
			name:   "uv arity",
			source: `(uv 1)`,
			want:   "exactly 2 arguments",
		},
		{
			name:   "fractional bolt count",
			source: "(stock :length 100 :width 100 :thickness 10)\n(bolt-circle :face :top :center (uv 50 50) :radius 10 :count 2.5 :diameter 2)",
			want:   "positive integer",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := evaluate(t, tt.source)
			if res.Graph != nil {
				t.Fatal("expected nil graph")
			}
			if err := res.Err(); err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestValidationFindingsBecomeErrors(t *testing.T) {
	source := `
(stock :length 100 :width 60 :thickness 20)
(pocket :face :top :at (uv 50 30) :length 20 :width 20 :depth 25)
`
	res := evaluate(t, source)
	if res.Graph != nil {
		t.Fatal("expected nil graph for invalid design")
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected 1 error, got %v", res.Errors)
	}
	if msg := res.Errors[0].Message; !strings.HasPrefix(msg, "pocket #1: ") || !strings.Contains(msg, "breaks through") {
		t.Errorf("error message = %q", msg)
	}
}

func TestValidationWarningsKeepGraph(t *testing.T) {
	source := `
(stock :length 100 :width 60 :thickness 20)
(drill :face :top :at (uv 3.5 30) :diameter 6 :name "edge")
`
	res := evaluate(t, source)
	if !res.OK() {
		t.Fatalf("eval errors: %v", res.Errors)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", res.Warnings)
	}
	w := res.Warnings[0]
	if !strings.HasPrefix(w.Message, `drill "edge": `) {
		t.Errorf("warning message = %q", w.Message)
	}
	if w.NodeID != res.Graph.Lookup("edge").ID {
		t.Error("warning should carry the drill node id")
	}
}
