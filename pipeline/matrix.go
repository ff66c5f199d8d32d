package pipeline

import (
	"encoding/binary"
	"math"
)

func appendF32(b []byte, v float32) []byte {
	return binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
}

// Matrix is a 4x4 row-major matrix in the row-vector convention: a
// position transforms as v' = v * M, so translation lives in row 3.
type Matrix [4][4]float32

// Identity returns the identity matrix.
func Identity() Matrix {
	return Matrix{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// Mul returns m * n.
func (m Matrix) Mul(n Matrix) Matrix {
	var out Matrix
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var s float32
			for k := 0; k < 4; k++ {
				s += m[i][k] * n[k][j]
			}
			out[i][j] = s
		}
	}
	return out
}

// TransformPoint applies the row-vector transform to (x, y, z, w).
func (m Matrix) TransformPoint(x, y, z, w float32) (ox, oy, oz, ow float32) {
	ox = x*m[0][0] + y*m[1][0] + z*m[2][0] + w*m[3][0]
	oy = x*m[0][1] + y*m[1][1] + z*m[2][1] + w*m[3][1]
	oz = x*m[0][2] + y*m[1][2] + z*m[2][2] + w*m[3][2]
	ow = x*m[0][3] + y*m[1][3] + z*m[2][3] + w*m[3][3]
	return
}

// columnsBytes serializes the matrix column by column as 16 little-endian
// floats. A dp4 of a row vector against uploaded constant c<i> then
// computes component i of v * M, so this is the layout the synthesized
// vertex programs expect.
func (m Matrix) columnsBytes() []byte {
	out := make([]byte, 0, 64)
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			out = appendF32(out, m[i][j])
		}
	}
	return out
}

// Transform state selectors. Values are fixed by the legacy API.
const (
	TransformView       uint32 = 2
	TransformProjection uint32 = 3
	TransformWorld      uint32 = 256
)

// Viewport is the screen-space mapping applied after projection.
type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinZ, MaxZ    float32
}

// DefaultViewport covers a unit render target.
func DefaultViewport() Viewport {
	return Viewport{Width: 1, Height: 1, MaxZ: 1}
}
