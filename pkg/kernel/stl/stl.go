// Package stl reads binary and ASCII STL files into kernel meshes.
package stl

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/chazu/dfm/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrMalformed is returned for input that is neither valid binary nor
// valid ASCII STL.
var ErrMalformed = errors.New("stl: malformed input")

const (
	headerSize   = 80
	triangleSize = 50 // normal, 3 vertices, attribute count
)

// Read parses an STL document. The format is detected from content rather
// than the "solid" prefix, since many binary exporters write it too.
func Read(r io.Reader, name string) (*kernel.Mesh, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read stl: %w", err)
	}
	return Parse(data, name)
}

// Parse parses an in-memory STL document.
func Parse(data []byte, name string) (*kernel.Mesh, error) {
	if isBinary(data) {
		return parseBinary(data, name)
	}
	if bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("solid")) {
		return parseASCII(data, name)
	}
	return nil, fmt.Errorf("%w: neither binary nor ascii", ErrMalformed)
}

// isBinary reports whether the triangle count in the header matches the
// payload length exactly.
func isBinary(data []byte) bool {
	if len(data) < headerSize+4 {
		return false
	}
	n := binary.LittleEndian.Uint32(data[headerSize:])
	return uint64(len(data)) == uint64(headerSize+4)+uint64(n)*triangleSize
}

func parseBinary(data []byte, name string) (*kernel.Mesh, error) {
	n := int(binary.LittleEndian.Uint32(data[headerSize:]))
	if n == 0 {
		return nil, fmt.Errorf("%w: no triangles", ErrMalformed)
	}
	tris := make([][3]v3.Vec, 0, n)
	off := headerSize + 4
	for i := 0; i < n; i++ {
		rec := data[off : off+triangleSize]
		var tri [3]v3.Vec
		for j := 0; j < 3; j++ {
			base := 12 + j*12 // skip stored normal
			tri[j] = v3.Vec{
				X: float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[base:]))),
				Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[base+4:]))),
				Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[base+8:]))),
			}
		}
		if err := checkFinite(tri, i); err != nil {
			return nil, err
		}
		tris = append(tris, tri)
		off += triangleSize
	}
	return kernel.NewMesh(name, tris), nil
}

func parseASCII(data []byte, name string) (*kernel.Mesh, error) {
	var (
		tris    [][3]v3.Vec
		current []v3.Vec
		inLoop  bool
		line    int
	)
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "outer":
			inLoop = true
			current = current[:0]
		case "vertex":
			if !inLoop || len(fields) != 4 {
				return nil, fmt.Errorf("%w: line %d: unexpected vertex", ErrMalformed, line)
			}
			var p [3]float64
			for k := 0; k < 3; k++ {
				f, err := strconv.ParseFloat(fields[k+1], 64)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
				}
				p[k] = f
			}
			current = append(current, v3.Vec{X: p[0], Y: p[1], Z: p[2]})
		case "endloop":
			if len(current) != 3 {
				return nil, fmt.Errorf("%w: line %d: facet has %d vertices", ErrMalformed, line, len(current))
			}
			tri := [3]v3.Vec{current[0], current[1], current[2]}
			if err := checkFinite(tri, len(tris)); err != nil {
				return nil, err
			}
			tris = append(tris, tri)
			inLoop = false
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if inLoop {
		return nil, fmt.Errorf("%w: unterminated facet", ErrMalformed)
	}
	if len(tris) == 0 {
		return nil, fmt.Errorf("%w: no triangles", ErrMalformed)
	}
	return kernel.NewMesh(name, tris), nil
}

func checkFinite(tri [3]v3.Vec, i int) error {
	for _, p := range tri {
		for _, f := range []float64{p.X, p.Y, p.Z} {
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return fmt.Errorf("%w: triangle %d has non-finite coordinate", ErrMalformed, i)
			}
		}
	}
	return nil
}
