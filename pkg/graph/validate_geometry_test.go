package graph

import (
	"strings"
	"testing"
)

// withFeature returns the plate graph with its first feature replaced.
func withFeature(data NodeData) *DesignGraph {
	g := buildPlate()
	n := g.Lookup("bolt")
	n.Data = data
	if _, ok := data.(PocketData); ok {
		n.Kind = NodePocket
	}
	return g
}

func geometryErrors(g *DesignGraph) []ValidationError {
	errs, _ := validateGeometry(g)
	return errs
}

func geometryWarnings(g *DesignGraph) []string {
	_, warnings := validateGeometry(g)
	msgs := make([]string, len(warnings))
	for i, w := range warnings {
		msgs[i] = w.Message
	}
	return msgs
}

func containsMsg(msgs []string, substr string) bool {
	for _, m := range msgs {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func TestValidateGeometryPlate(t *testing.T) {
	errs, warnings := validateGeometry(buildPlate())
	if len(errs) != 0 {
		t.Errorf("plate produced errors: %v", errs)
	}
	if len(warnings) != 0 {
		t.Errorf("plate produced warnings: %v", warnings)
	}
}

func TestValidateStockDimensions(t *testing.T) {
	g := buildPlate()
	stock, _, _ := g.Stock()
	stock.Data = StockData{Dimensions: Vec3{100, 0, -1}}

	errs := geometryErrors(g)
	if !hasError(errs, "width is 0.0000") {
		t.Errorf("expected width error, got %v", errs)
	}
	if !hasError(errs, "thickness is -1.0000") {
		t.Errorf("expected thickness error, got %v", errs)
	}
}

func TestValidateFeatureErrors(t *testing.T) {
	stock := NewNodeID("stock")
	tests := []struct {
		name string
		data NodeData
		want string
	}{
		{
			name: "zero diameter",
			data: DrillData{Stock: stock, Face: FaceTop, At: UV{20, 15}},
			want: "diameter",
		},
		{
			name: "negative depth",
			data: DrillData{Stock: stock, Face: FaceTop, At: UV{20, 15}, Diameter: 6, Depth: -1},
			want: "must not be negative",
		},
		{
			name: "hole off the face",
			data: DrillData{Stock: stock, Face: FaceTop, At: UV{2, 15}, Diameter: 6},
			want: "outside",
		},
		{
			name: "hole off a side face",
			data: DrillData{Stock: stock, Face: FaceFront, At: UV{20, 18}, Diameter: 6},
			want: "outside",
		},
		{
			name: "drill point breaks through",
			data: DrillData{Stock: stock, Face: FaceTop, At: UV{20, 15}, Diameter: 6, Depth: 19},
			want: "breaks through",
		},
		{
			name: "pocket without width",
			data: PocketData{Stock: stock, Face: FaceTop, At: UV{20, 15}, Length: 10, Depth: 2},
			want: "both sides",
		},
		{
			name: "pocket without depth",
			data: PocketData{Stock: stock, Face: FaceTop, At: UV{20, 15}, Length: 10, Width: 10},
			want: "pocket depth",
		},
		{
			name: "pocket through",
			data: PocketData{Stock: stock, Face: FaceTop, At: UV{20, 15}, Length: 10, Width: 10, Depth: 20},
			want: "breaks through",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := geometryErrors(withFeature(tt.data))
			if !hasError(errs, tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, errs)
			}
		})
	}
}

func TestValidateFeatureWarnings(t *testing.T) {
	stock := NewNodeID("stock")
	tests := []struct {
		name string
		data NodeData
		want string
	}{
		{
			name: "depth past material",
			data: DrillData{Stock: stock, Face: FaceTop, At: UV{20, 15}, Diameter: 6, Depth: 30},
			want: "treated as through",
		},
		{
			name: "deep through hole",
			data: DrillData{Stock: stock, Face: FaceLeft, At: UV{15, 10}, Diameter: 4},
			want: "through hole is 25.0x",
		},
		{
			name: "thin edge wall",
			data: DrillData{Stock: stock, Face: FaceTop, At: UV{3.5, 15}, Diameter: 6},
			want: "0.50 mm wall",
		},
		{
			name: "thin pocket floor",
			data: PocketData{Stock: stock, Face: FaceTop, At: UV{20, 15}, Length: 10, Width: 10, Depth: 19.5},
			want: "0.50 mm floor",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := withFeature(tt.data)
			if errs := geometryErrors(g); len(errs) != 0 {
				t.Fatalf("unexpected errors: %v", errs)
			}
			if w := geometryWarnings(g); !containsMsg(w, tt.want) {
				t.Errorf("expected warning containing %q, got %v", tt.want, w)
			}
		})
	}
}

func TestValidateOverlap(t *testing.T) {
	stock := NewNodeID("stock")
	tests := []struct {
		name    string
		data    NodeData
		overlap bool
	}{
		{
			name:    "hole inside pocket footprint",
			data:    DrillData{Stock: stock, Face: FaceTop, At: UV{78, 30}, Diameter: 4},
			overlap: true,
		},
		{
			name:    "hole from bottom reaching blind hole",
			data:    DrillData{Stock: stock, Face: FaceBottom, At: UV{50, 30}, Diameter: 4, Depth: 8},
			overlap: true,
		},
		{
			name:    "hole from bottom stopping short of blind hole",
			data:    DrillData{Stock: stock, Face: FaceBottom, At: UV{50, 30}, Diameter: 4, Depth: 3},
			overlap: false,
		},
		{
			name:    "touching pockets",
			data:    PocketData{Stock: stock, Face: FaceTop, At: UV{78, 45}, Length: 20, Width: 15, Depth: 8},
			overlap: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := geometryErrors(withFeature(tt.data))
			if got := hasError(errs, "overlaps"); got != tt.overlap {
				t.Errorf("overlap = %v, want %v (errors %v)", got, tt.overlap, errs)
			}
		})
	}
}

func TestFeatureBounds(t *testing.T) {
	g := buildPlate()
	_, sd, _ := g.Stock()
	pocket := g.Features()[2]

	min, max, ok := FeatureBounds(pocket, sd.Dimensions)
	if !ok {
		t.Fatal("FeatureBounds returned !ok")
	}
	if min.X != 68 || max.X != 88 || min.Y != 22.5 || max.Y != 37.5 || min.Z != 12 || max.Z != 20 {
		t.Errorf("pocket bounds = %v..%v", min, max)
	}

	stock, _, _ := g.Stock()
	if _, _, ok := FeatureBounds(stock, sd.Dimensions); ok {
		t.Error("stock node should have no feature bounds")
	}
}
