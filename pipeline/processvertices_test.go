package pipeline

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/gogpu/aerod3d9/cmdstream"
	"github.com/gogpu/aerod3d9/fvf"
	"github.com/gogpu/aerod3d9/shader"
)

func declBytes(elems ...fvf.Element) []byte {
	all := append(append([]fvf.Element{}, elems...), fvf.End())
	return fvf.MarshalDecl(all)
}

func rhwColorDecl() []byte {
	return declBytes(fvf.DeclFor(fvf.VariantRHWColor)...)
}

// newTransformDevice binds a 4-vertex XYZ|DIFFUSE source on stream 0 and
// a 256-byte destination buffer, with a 2x2 viewport so NDC (0,0) lands
// at pixel center (0.5, 0.5).
func newTransformDevice(t *testing.T, verts []byte) (d *Device, dst cmdstream.Handle) {
	t.Helper()
	d = NewDevice()
	src, err := d.CreateVertexBuffer(256)
	if err != nil {
		t.Fatal(err)
	}
	dst, err = d.CreateVertexBuffer(256)
	if err != nil {
		t.Fatal(err)
	}
	mustCall(t, d.UploadBuffer(src, 0, verts))
	mustCall(t, d.SetFVF(fvf.FVFXYZ|fvf.FVFDiffuse))
	mustCall(t, d.SetStreamSource(0, src, 0, 16))
	mustCall(t, d.SetViewport(Viewport{Width: 2, Height: 2, MaxZ: 1}))
	return d, dst
}

func xyzDiffuseVertex(x, y, z float32, color uint32) []byte {
	v := appendF32(nil, x)
	v = appendF32(v, y)
	v = appendF32(v, z)
	return binary.LittleEndian.AppendUint32(v, color)
}

func TestProcessVerticesTransform(t *testing.T) {
	d, dst := newTransformDevice(t, xyzDiffuseVertex(0, 0, 0, 0x11223344))
	mustCall(t, d.ProcessVertices(0, 0, 1, dst, rhwColorDecl(), 0))

	sh := d.resources[dst].shadow
	if x := f32At(sh, 0); x != 0.5 {
		t.Errorf("x = %g, want 0.5", x)
	}
	if y := f32At(sh, 4); y != 0.5 {
		t.Errorf("y = %g, want 0.5", y)
	}
	if z := f32At(sh, 8); z != 0 {
		t.Errorf("z = %g, want 0", z)
	}
	if rhw := f32At(sh, 12); rhw != 1 {
		t.Errorf("rhw = %g, want 1", rhw)
	}
	if c := binary.LittleEndian.Uint32(sh[16:]); c != 0x11223344 {
		t.Errorf("color = %#x, want 0x11223344", c)
	}

	// The transform also lands on the wire as an upload to dst.
	s := scanStream(t, d)
	if got := len(s.uploads[dst]); got != 20 {
		t.Fatalf("uploaded %d bytes to destination, want 20", got)
	}
}

func TestProcessVerticesWorldTranslation(t *testing.T) {
	d, dst := newTransformDevice(t, xyzDiffuseVertex(0, 0, 0, 0xFF000000))
	world := Identity()
	world[3][0], world[3][1] = 1, 2
	mustCall(t, d.SetTransform(TransformWorld, world))
	mustCall(t, d.ProcessVertices(0, 0, 1, dst, rhwColorDecl(), 0))

	sh := d.resources[dst].shadow
	if x := f32At(sh, 0); x != 1.5 {
		t.Errorf("x = %g, want 1.5", x)
	}
	if y := f32At(sh, 4); y != -1.5 {
		t.Errorf("y = %g, want -1.5", y)
	}
}

func TestProcessVerticesDefaultWhiteDiffuse(t *testing.T) {
	d := NewDevice()
	src, err := d.CreateVertexBuffer(256)
	if err != nil {
		t.Fatal(err)
	}
	dst, err := d.CreateVertexBuffer(256)
	if err != nil {
		t.Fatal(err)
	}
	// Source has position and texcoord but no diffuse element.
	v := appendF32(nil, 0)
	v = appendF32(v, 0)
	v = appendF32(v, 0)
	v = appendF32(v, 0.25)
	v = appendF32(v, 0.75)
	mustCall(t, d.UploadBuffer(src, 0, v))
	mustCall(t, d.SetFVF(fvf.FVFXYZ|fvf.FVFTex1))
	mustCall(t, d.SetStreamSource(0, src, 0, 20))
	mustCall(t, d.ProcessVertices(0, 0, 1, dst, rhwColorDecl(), 0))

	sh := d.resources[dst].shadow
	if c := binary.LittleEndian.Uint32(sh[16:]); c != 0xFFFFFFFF {
		t.Fatalf("color = %#x, want default white", c)
	}
}

func TestProcessVerticesDoNotCopyData(t *testing.T) {
	d, dst := newTransformDevice(t, xyzDiffuseVertex(0, 0, 0, 0x11223344))
	mustCall(t, d.ProcessVertices(0, 0, 1, dst, rhwColorDecl(), ProcessVerticesDoNotCopyData))

	sh := d.resources[dst].shadow
	if rhw := f32At(sh, 12); rhw != 1 {
		t.Errorf("rhw = %g, want 1", rhw)
	}
	if c := binary.LittleEndian.Uint32(sh[16:]); c != 0 {
		t.Fatalf("color = %#x, want untouched zero", c)
	}
}

func TestProcessVerticesPassthrough(t *testing.T) {
	d := NewDevice()
	src, err := d.CreateVertexBuffer(256)
	if err != nil {
		t.Fatal(err)
	}
	dst, err := d.CreateVertexBuffer(256)
	if err != nil {
		t.Fatal(err)
	}
	v := appendF32(nil, 17)
	v = appendF32(v, 23)
	v = appendF32(v, 0.5)
	v = appendF32(v, 0.25)
	v = binary.LittleEndian.AppendUint32(v, 0xDEADBEEF)
	mustCall(t, d.UploadBuffer(src, 0, v))
	mustCall(t, d.SetFVF(fvf.FVFXYZRHW|fvf.FVFDiffuse))
	mustCall(t, d.SetStreamSource(0, src, 0, 20))

	// Pre-transformed sources copy through; the viewport does not apply.
	mustCall(t, d.SetViewport(Viewport{Width: 100, Height: 100, MaxZ: 1}))
	mustCall(t, d.ProcessVertices(0, 0, 1, dst, rhwColorDecl(), 0))

	sh := d.resources[dst].shadow
	for i, want := range []float32{17, 23, 0.5, 0.25} {
		if got := f32At(sh, uint64(i)*4); got != want {
			t.Errorf("component %d = %g, want %g", i, got, want)
		}
	}
	if c := binary.LittleEndian.Uint32(sh[16:]); c != 0xDEADBEEF {
		t.Errorf("color = %#x, want 0xDEADBEEF", c)
	}
}

func TestProcessVerticesIgnoresForeignStreams(t *testing.T) {
	d, dst := newTransformDevice(t, xyzDiffuseVertex(0, 0, 0, 0x01020304))

	// A stray stream-1 element in the destination declaration carries no
	// data for this service and is dropped before matching.
	decl := declBytes(append([]fvf.Element{
		{Stream: 1, Offset: 0, Type: fvf.TypeFloat3, Usage: fvf.UsageNormal},
	}, fvf.DeclFor(fvf.VariantRHWColor)...)...)
	mustCall(t, d.ProcessVertices(0, 0, 1, dst, decl, 0))

	sh := d.resources[dst].shadow
	if c := binary.LittleEndian.Uint32(sh[16:]); c != 0x01020304 {
		t.Fatalf("color = %#x, want 0x01020304", c)
	}
}

func TestProcessVerticesErrors(t *testing.T) {
	t.Run("user vertex shader bound", func(t *testing.T) {
		d, dst := newTransformDevice(t, xyzDiffuseVertex(0, 0, 0, 0))
		vs, err := d.CreateVertexShader(shader.SynthesizeVS(shader.VSRecipe{Pretransformed: true}))
		if err != nil {
			t.Fatal(err)
		}
		mustCall(t, d.SetVertexShader(vs))
		err = d.ProcessVertices(0, 0, 1, dst, rhwColorDecl(), 0)
		if !errors.Is(err, ErrUserShaderBound) {
			t.Fatalf("err = %v, want ErrUserShaderBound", err)
		}
	})

	t.Run("device lost", func(t *testing.T) {
		d, dst := newTransformDevice(t, xyzDiffuseVertex(0, 0, 0, 0))
		d.MarkLost()
		err := d.ProcessVertices(0, 0, 1, dst, rhwColorDecl(), 0)
		if !errors.Is(err, ErrDeviceLost) {
			t.Fatalf("err = %v, want ErrDeviceLost", err)
		}
	})

	t.Run("unknown destination", func(t *testing.T) {
		d, _ := newTransformDevice(t, xyzDiffuseVertex(0, 0, 0, 0))
		err := d.ProcessVertices(0, 0, 1, 0xBEEF, rhwColorDecl(), 0)
		if !errors.Is(err, ErrBadParameter) {
			t.Fatalf("err = %v, want ErrBadParameter", err)
		}
	})

	t.Run("truncated declaration", func(t *testing.T) {
		d, dst := newTransformDevice(t, xyzDiffuseVertex(0, 0, 0, 0))
		decl := rhwColorDecl()
		err := d.ProcessVertices(0, 0, 1, dst, decl[:len(decl)-8], 0)
		if !errors.Is(err, fvf.ErrUnsupportedLayout) {
			t.Fatalf("err = %v, want ErrUnsupportedLayout", err)
		}
	})
}
