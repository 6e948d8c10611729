package stl

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/chazu/dfm/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const asciiTriangle = `solid tri
  facet normal 0 0 1
    outer loop
      vertex 0 0 0
      vertex 1 0 0
      vertex 0 1 0
    endloop
  endfacet
endsolid tri
`

// encodeBinary writes m as binary STL with a header starting with
// "solid" to exercise content-based detection.
func encodeBinary(t *testing.T, m *kernel.Mesh) []byte {
	t.Helper()
	var buf bytes.Buffer
	header := make([]byte, headerSize)
	copy(header, "solid exported-by-a-binary-writer")
	buf.Write(header)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(m.TriangleCount())))
	for i := 0; i < m.TriangleCount(); i++ {
		n, _ := m.FaceNormal(i)
		tri := m.Triangle(i)
		for _, v := range []v3.Vec{n, tri[0], tri[1], tri[2]} {
			for _, f := range []float64{v.X, v.Y, v.Z} {
				require.NoError(t, binary.Write(&buf, binary.LittleEndian, float32(f)))
			}
		}
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(0)))
	}
	return buf.Bytes()
}

func TestParseASCII(t *testing.T) {
	m, err := Read(strings.NewReader(asciiTriangle), "tri")
	require.NoError(t, err)

	assert.Equal(t, 1, m.TriangleCount())
	assert.Equal(t, "tri", m.Name)
	assert.InDelta(t, 0.5, m.SurfaceArea(), 1e-9)
}

func TestParseBinaryWithSolidHeader(t *testing.T) {
	box := kernel.BoxMesh("box", v3.Vec{}, v3.Vec{X: 10, Y: 20, Z: 5})
	m, err := Parse(encodeBinary(t, box), "box.stl")
	require.NoError(t, err)

	assert.Equal(t, 12, m.TriangleCount())
	assert.InDelta(t, 1000, m.Volume(), 1e-6)
	min, max := m.Bounds()
	assert.Equal(t, v3.Vec{}, min)
	assert.Equal(t, v3.Vec{X: 10, Y: 20, Z: 5}, max)
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"garbage", "not a mesh at all"},
		{"empty solid", "solid x\nendsolid x\n"},
		{"short facet", "solid x\nouter loop\nvertex 0 0 0\nvertex 1 0 0\nendloop\nendsolid\n"},
		{"bad number", "solid x\nouter loop\nvertex 0 0 zero\n"},
		{"unterminated", "solid x\nouter loop\nvertex 0 0 0\n"},
		{"nan vertex", "solid x\nouter loop\nvertex 0 0 0\nvertex 1 0 0\nvertex nan 1 0\nendloop\nendsolid\n"},
		{"vertex outside loop", "solid x\nvertex 0 0 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), "bad")
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestParseBinaryRejectsNonFinite(t *testing.T) {
	tri := kernel.NewMesh("t", [][3]v3.Vec{{{}, {X: 1}, {Y: 1}}})
	data := encodeBinary(t, tri)
	// First vertex X sits after the header, count and stored normal.
	binary.LittleEndian.PutUint32(data[headerSize+4+12:], math.Float32bits(float32(math.Inf(1))))

	_, err := Parse(data, "inf")
	assert.ErrorIs(t, err, ErrMalformed)
}
