package engine

import (
	"fmt"
	"math"

	"github.com/chazu/dfm/pkg/graph"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpUV wraps a graph.UV returned by (uv u v).
type sexpUV struct {
	uv graph.UV
}

func (v *sexpUV) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(uv %g %g)", v.uv.U, v.uv.V)
}
func (v *sexpUV) Type() *zygo.RegisteredType { return nil }

// sexpNodeRef wraps a graph.NodeID so scripts can hold on to nodes.
type sexpNodeRef struct {
	id    graph.NodeID
	label string // human-readable label for messages
}

func (n *sexpNodeRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(noderef %q)", n.label)
}
func (n *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Graph builder
// ---------------------------------------------------------------------------

// builder accumulates nodes while a script runs. One builder serves one
// evaluation.
type builder struct {
	g      *graph.DesignGraph
	stock  *graph.Node
	seq    int
	labels map[graph.NodeID]string
}

func newBuilder() *builder {
	return &builder{g: graph.New(), labels: make(map[graph.NodeID]string)}
}

// addFeature appends a drill or pocket under the stock in script order.
func (b *builder) addFeature(kind graph.NodeKind, name string, data graph.NodeData) *sexpNodeRef {
	id := graph.NewNodeID(fmt.Sprintf("stock/%s/%d", kind, b.seq))
	b.seq++
	label := fmt.Sprintf("%s #%d", kind, b.seq)
	if name != "" {
		label = fmt.Sprintf("%s %q", kind, name)
	}
	b.g.AddNode(&graph.Node{ID: id, Kind: kind, Name: name, Data: data})
	b.stock.Children = append(b.stock.Children, id)
	b.labels[id] = label
	return &sexpNodeRef{id: id, label: label}
}

// validate runs graph validation and converts findings into the result.
func (b *builder) validate() *EvalResult {
	vr := graph.ValidateAll(b.g)
	res := &EvalResult{}
	for _, w := range vr.Warnings {
		res.Warnings = append(res.Warnings, EvalWarning{
			Message: b.describe(w.NodeID, w.Message),
			NodeID:  w.NodeID,
		})
	}
	for _, e := range vr.Errors {
		res.Errors = append(res.Errors, EvalError{Message: b.describe(e.NodeID, e.Message)})
	}
	if len(res.Errors) == 0 {
		res.Graph = b.g
	}
	return res
}

func (b *builder) describe(id graph.NodeID, msg string) string {
	if label, ok := b.labels[id]; ok {
		return label + ": " + msg
	}
	return msg
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// register installs the part-script builtins into a zygomys environment.
// Source must be preprocessed with preprocessSource() so that :keyword
// tokens arrive as recognizable string literals.
func (b *builder) register(env *zygo.Zlisp) {

	// -----------------------------------------------------------------------
	// (stock :length 100 :width 60 :thickness 20 :material "6061-T6")
	// -----------------------------------------------------------------------
	env.AddFunction("stock", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if b.stock != nil {
			return zygo.SexpNull, fmt.Errorf("stock: already defined; a part has exactly one stock")
		}
		pa := parseArgs("stock", args)

		var sd graph.StockData
		var err error
		if sd.Dimensions.X, err = pa.number("length"); err != nil {
			return zygo.SexpNull, err
		}
		if sd.Dimensions.Y, err = pa.number("width"); err != nil {
			return zygo.SexpNull, err
		}
		if sd.Dimensions.Z, err = pa.number("thickness"); err != nil {
			return zygo.SexpNull, err
		}
		if sd.Material, err = pa.optString("material"); err != nil {
			return zygo.SexpNull, err
		}
		partName, err := pa.optString("name")
		if err != nil {
			return zygo.SexpNull, err
		}

		id := graph.NewNodeID("stock")
		b.stock = &graph.Node{ID: id, Kind: graph.NodeStock, Name: partName, Data: sd}
		b.g.AddNode(b.stock)
		b.g.AddRoot(id)
		b.labels[id] = "stock"

		return &sexpNodeRef{id: id, label: "stock"}, nil
	})

	// -----------------------------------------------------------------------
	// (uv 20 15)
	// -----------------------------------------------------------------------
	env.AddFunction("uv", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("uv requires exactly 2 arguments, got %d", len(args))
		}
		u, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("uv: u: %w", err)
		}
		v, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("uv: v: %w", err)
		}
		return &sexpUV{uv: graph.UV{U: u, V: v}}, nil
	})

	// -----------------------------------------------------------------------
	// (drill :face :top :at (uv 20 15) :diameter 6 :depth 10)
	// -----------------------------------------------------------------------
	env.AddFunction("drill", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if b.stock == nil {
			return zygo.SexpNull, fmt.Errorf("drill: no stock defined yet")
		}
		pa := parseArgs("drill", args)

		d := graph.DrillData{Stock: b.stock.ID}
		var err error
		if d.Face, err = pa.face(); err != nil {
			return zygo.SexpNull, err
		}
		if d.At, err = pa.uv("at"); err != nil {
			return zygo.SexpNull, err
		}
		if d.Diameter, err = pa.number("diameter"); err != nil {
			return zygo.SexpNull, err
		}
		if d.Depth, err = pa.optNumber("depth", 0); err != nil {
			return zygo.SexpNull, err
		}
		featureName, err := pa.optString("name")
		if err != nil {
			return zygo.SexpNull, err
		}

		return b.addFeature(graph.NodeDrill, featureName, d), nil
	})

	// -----------------------------------------------------------------------
	// (pocket :face :top :at (uv 75 30) :length 20 :width 15 :depth 8)
	// -----------------------------------------------------------------------
	env.AddFunction("pocket", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if b.stock == nil {
			return zygo.SexpNull, fmt.Errorf("pocket: no stock defined yet")
		}
		pa := parseArgs("pocket", args)

		p := graph.PocketData{Stock: b.stock.ID}
		var err error
		if p.Face, err = pa.face(); err != nil {
			return zygo.SexpNull, err
		}
		if p.At, err = pa.uv("at"); err != nil {
			return zygo.SexpNull, err
		}
		if p.Length, err = pa.number("length"); err != nil {
			return zygo.SexpNull, err
		}
		if p.Width, err = pa.number("width"); err != nil {
			return zygo.SexpNull, err
		}
		if p.Depth, err = pa.number("depth"); err != nil {
			return zygo.SexpNull, err
		}
		featureName, err := pa.optString("name")
		if err != nil {
			return zygo.SexpNull, err
		}

		return b.addFeature(graph.NodePocket, featureName, p), nil
	})

	// -----------------------------------------------------------------------
	// (bolt-circle :face :top :center (uv 50 30) :radius 20 :count 6
	//              :diameter 5 :depth 8 :start-angle 0)
	//
	// Registered as "bolt_circle"; the preprocessor rewrites the hyphen.
	// -----------------------------------------------------------------------
	env.AddFunction("bolt_circle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if b.stock == nil {
			return zygo.SexpNull, fmt.Errorf("bolt-circle: no stock defined yet")
		}
		pa := parseArgs("bolt-circle", args)

		face, err := pa.face()
		if err != nil {
			return zygo.SexpNull, err
		}
		center, err := pa.uv("center")
		if err != nil {
			return zygo.SexpNull, err
		}
		radius, err := pa.number("radius")
		if err != nil {
			return zygo.SexpNull, err
		}
		count, err := pa.number("count")
		if err != nil {
			return zygo.SexpNull, err
		}
		if count < 1 || count != math.Trunc(count) {
			return zygo.SexpNull, fmt.Errorf("bolt-circle: count must be a positive integer, got %g", count)
		}
		diameter, err := pa.number("diameter")
		if err != nil {
			return zygo.SexpNull, err
		}
		depth, err := pa.optNumber("depth", 0)
		if err != nil {
			return zygo.SexpNull, err
		}
		start, err := pa.optNumber("start-angle", 0)
		if err != nil {
			return zygo.SexpNull, err
		}

		refs := make([]zygo.Sexp, 0, int(count))
		for i := 0; i < int(count); i++ {
			a := (start + 360*float64(i)/count) * math.Pi / 180
			d := graph.DrillData{
				Stock:    b.stock.ID,
				Face:     face,
				At:       graph.UV{U: center.U + radius*math.Cos(a), V: center.V + radius*math.Sin(a)},
				Diameter: diameter,
				Depth:    depth,
			}
			refs = append(refs, b.addFeature(graph.NodeDrill, "", d))
		}
		return &zygo.SexpArray{Val: refs}, nil
	})
}
