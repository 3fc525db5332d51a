package gskelaux

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/soypat/geometry/ms3"
)

const stlHeaderSize = 80

// WriteBinarySTL writes triangles in binary STL format to w.
// Facet normals are computed from the vertex winding, a degenerate triangle gets a zero normal.
func WriteBinarySTL(w io.Writer, triangles []ms3.Triangle) (int, error) {
	if uint64(len(triangles)) > math.MaxUint32 {
		return 0, errors.New("too many triangles for binary STL")
	}
	var header [stlHeaderSize + 4]byte
	copy(header[:], "gskel binary STL")
	binary.LittleEndian.PutUint32(header[stlHeaderSize:], uint32(len(triangles)))
	n, err := w.Write(header[:])
	if err != nil {
		return n, err
	}
	var buf [50]byte
	for _, tri := range triangles {
		nrm := facetNormal(tri)
		putVec(buf[0:], nrm)
		putVec(buf[12:], tri[0])
		putVec(buf[24:], tri[1])
		putVec(buf[36:], tri[2])
		// Attribute byte count.
		buf[48], buf[49] = 0, 0
		ngot, err := w.Write(buf[:])
		n += ngot
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// WriteASCIISTL writes triangles as an ASCII STL solid with the given name.
func WriteASCIISTL(w io.Writer, name string, triangles []ms3.Triangle) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "solid %s\n", name)
	for _, tri := range triangles {
		nrm := facetNormal(tri)
		fmt.Fprintf(bw, "facet normal %g %g %g\n outer loop\n", nrm.X, nrm.Y, nrm.Z)
		for _, v := range tri {
			fmt.Fprintf(bw, "  vertex %g %g %g\n", v.X, v.Y, v.Z)
		}
		bw.WriteString(" endloop\nendfacet\n")
	}
	fmt.Fprintf(bw, "endsolid %s\n", name)
	return bw.Flush()
}

func putVec(b []byte, v ms3.Vec) {
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(v.X))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(v.Y))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(v.Z))
}

func facetNormal(tri ms3.Triangle) ms3.Vec {
	n := ms3.Cross(ms3.Sub(tri[1], tri[0]), ms3.Sub(tri[2], tri[0]))
	norm := ms3.Norm(n)
	if !(norm > 0) {
		return ms3.Vec{}
	}
	return ms3.Scale(1/norm, n)
}
