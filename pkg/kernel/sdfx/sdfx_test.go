package sdfx

import (
	"math"
	"testing"
)

// coarse keeps marching cubes fast in tests.
func coarse() *Kernel {
	return New(WithMeshCells(40))
}

func TestNewDefaults(t *testing.T) {
	if got := New().MeshCells(); got != DefaultMeshCells {
		t.Errorf("MeshCells() = %d, want %d", got, DefaultMeshCells)
	}
	if got := New(WithMeshCells(0)).MeshCells(); got != DefaultMeshCells {
		t.Errorf("MeshCells() with zero override = %d, want %d", got, DefaultMeshCells)
	}
	if got := New(WithMeshCells(64)).MeshCells(); got != 64 {
		t.Errorf("MeshCells() = %d, want 64", got)
	}
}

func TestBoxMinCornerAtOrigin(t *testing.T) {
	k := coarse()
	min, max := k.Box(100, 50, 25).BoundingBox()

	const tol = 0.01
	expectMax := [3]float64{100, 50, 25}
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]) > tol {
			t.Errorf("min[%d] = %f, expected 0", i, min[i])
		}
		if math.Abs(max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected %f", i, max[i], expectMax[i])
		}
	}
}

func TestBoxMesh(t *testing.T) {
	k := coarse()
	mesh, err := k.ToMesh(k.Box(100, 50, 25))
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != mesh.TriangleCount()*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(mesh.Indices), mesh.TriangleCount()*3)
	}

	// Marching cubes approximates the box; volume should be close.
	if got, want := mesh.Volume(), 100.0*50*25; math.Abs(got-want)/want > 0.1 {
		t.Errorf("Volume() = %f, want within 10%% of %f", got, want)
	}
}

func TestDifferenceAddsTriangles(t *testing.T) {
	k := coarse()

	box := k.Box(100, 100, 100)
	boxMesh, err := k.ToMesh(box)
	if err != nil {
		t.Fatalf("ToMesh(box) failed: %v", err)
	}

	hole := k.Translate(k.Cylinder(120, 20, 32), 50, 50, 50)
	diffMesh, err := k.ToMesh(k.Difference(box, hole))
	if err != nil {
		t.Fatalf("ToMesh(diff) failed: %v", err)
	}
	if diffMesh.TriangleCount() <= boxMesh.TriangleCount() {
		t.Fatalf("difference (%d triangles) should have more triangles than box (%d triangles)",
			diffMesh.TriangleCount(), boxMesh.TriangleCount())
	}
	if diffMesh.Volume() >= boxMesh.Volume() {
		t.Errorf("difference volume %f should be below box volume %f", diffMesh.Volume(), boxMesh.Volume())
	}
}

func TestTranslate(t *testing.T) {
	k := coarse()
	min, max := k.Translate(k.Box(10, 10, 10), 100, 200, 300).BoundingBox()

	const tol = 0.5
	expectMin := [3]float64{100, 200, 300}
	expectMax := [3]float64{110, 210, 310}
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected ~%f", i, min[i], expectMin[i])
		}
		if math.Abs(max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected ~%f", i, max[i], expectMax[i])
		}
	}
}

func TestRotateCylinderOntoX(t *testing.T) {
	k := coarse()

	// A Z-aligned cylinder rotated 90 degrees around Y lies along X.
	min, max := k.Rotate(k.Cylinder(100, 5, 0), 0, 90, 0).BoundingBox()

	const tol = 1.0
	if x := max[0] - min[0]; math.Abs(x-100) > tol {
		t.Errorf("rotated X extent = %f, expected ~100", x)
	}
	if z := max[2] - min[2]; math.Abs(z-10) > tol {
		t.Errorf("rotated Z extent = %f, expected ~10", z)
	}
}

func TestUnionAndIntersection(t *testing.T) {
	k := coarse()
	a := k.Box(50, 50, 50)
	b := k.Translate(k.Box(50, 50, 50), 30, 0, 0)

	u, err := k.ToMesh(k.Union(a, b))
	if err != nil {
		t.Fatalf("ToMesh(union) failed: %v", err)
	}
	i, err := k.ToMesh(k.Intersection(a, b))
	if err != nil {
		t.Fatalf("ToMesh(intersection) failed: %v", err)
	}
	if u.Volume() <= i.Volume() {
		t.Errorf("union volume %f should exceed intersection volume %f", u.Volume(), i.Volume())
	}
}
