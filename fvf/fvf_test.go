package fvf

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestVariantFromFVF(t *testing.T) {
	tests := []struct {
		name string
		fvf  uint32
		want Variant
	}{
		{"rhw color", FVFXYZRHW | FVFDiffuse, VariantRHWColor},
		{"rhw color tex1", FVFXYZRHW | FVFDiffuse | FVFTex1, VariantRHWColorTex1},
		{"rhw tex1", FVFXYZRHW | FVFTex1, VariantRHWTex1},
		{"xyz color", FVFXYZ | FVFDiffuse, VariantXYZColor},
		{"xyz color tex1", FVFXYZ | FVFDiffuse | FVFTex1, VariantXYZColorTex1},
		{"xyz tex1", FVFXYZ | FVFTex1, VariantXYZTex1},
		{"xyz normal", FVFXYZ | FVFNormal, VariantXYZNormal},
		{"xyz normal tex1", FVFXYZ | FVFNormal | FVFTex1, VariantXYZNormalTex1},
		{"xyz normal color", FVFXYZ | FVFNormal | FVFDiffuse, VariantXYZNormalColor},
		{"xyz normal color tex1", FVFXYZ | FVFNormal | FVFDiffuse | FVFTex1, VariantXYZNormalColorTex1},

		{"bare xyz", FVFXYZ, VariantNone},
		{"specular unsupported", FVFXYZ | FVFDiffuse | FVFSpec, VariantNone},
		{"psize unsupported", FVFXYZ | FVFDiffuse | FVFPSize, VariantNone},
		{"two texcoord sets unsupported", FVFXYZ | FVFDiffuse | 0x200, VariantNone},
		{"blend weights unsupported", 0x6 | FVFDiffuse, VariantNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VariantFromFVF(tt.fvf); got != tt.want {
				t.Errorf("VariantFromFVF(%#x) = %v, want %v", tt.fvf, got, tt.want)
			}
		})
	}
}

func TestVariantFromFVFIgnoresTexCoordSizeBits(t *testing.T) {
	// Garbage size codes on unused texcoord sets must not defeat
	// classification.
	fvf := FVFXYZ | FVFDiffuse | FVFTex1 | 0xAAAA0000
	if got := VariantFromFVF(fvf); got != VariantXYZColorTex1 {
		t.Fatalf("VariantFromFVF = %v, want XYZ_COLOR_TEX1", got)
	}
}

func TestCanonicalFVFDropsUnusedSizeBits(t *testing.T) {
	// TEXCOORD1's size code (bits 18..19) is noise when TEXCOUNT is 1.
	a := CanonicalFVF(FVFXYZ | FVFTex1 | 1<<18)
	b := CanonicalFVF(FVFXYZ | FVFTex1)
	if a != b {
		t.Fatalf("canonical keys differ: %#x vs %#x", a, b)
	}
	// TEXCOORD0's size code is load-bearing.
	c := CanonicalFVF(FVFXYZ | FVFTex1 | 1<<16) // float3
	if c == b {
		t.Fatal("texcoord0 size code should change the canonical key")
	}
}

func TestStride(t *testing.T) {
	tests := []struct {
		fvf  uint32
		want uint32
	}{
		{FVFXYZRHW | FVFDiffuse, 20},
		{FVFXYZRHW | FVFDiffuse | FVFTex1, 28},
		{FVFXYZRHW | FVFTex1, 24},
		{FVFXYZ | FVFDiffuse, 16},
		{FVFXYZ | FVFDiffuse | FVFTex1, 24},
		{FVFXYZ | FVFTex1, 20},
		{FVFXYZ | FVFNormal, 24},
		{FVFXYZ | FVFNormal | FVFTex1, 32},
		{FVFXYZ | FVFNormal | FVFDiffuse, 28},
		{FVFXYZ | FVFNormal | FVFDiffuse | FVFTex1, 36},
		// Size codes change the trailing texcoord width.
		{FVFXYZ | FVFTex1 | 1<<16, 24},      // float3
		{FVFXYZ | FVFTex1 | 2<<16, 28},      // float4
		{FVFXYZ | FVFTex1 | 3<<16, 16},      // float1
		{FVFXYZ | FVFSpec | FVFDiffuse, 0},  // unsupported
	}
	for _, tt := range tests {
		if got := Stride(tt.fvf); got != tt.want {
			t.Errorf("Stride(%#x) = %d, want %d", tt.fvf, got, tt.want)
		}
	}
}

func declBlob(elems ...Element) []byte {
	return MarshalDecl(append(elems, End()))
}

func TestImpliedFVFCanonicalDecls(t *testing.T) {
	for v := VariantNone + 1; v < VariantCount; v++ {
		t.Run(v.String(), func(t *testing.T) {
			blob := declBlob(DeclFor(v)...)
			got := ImpliedFVF(blob)
			if VariantFromFVF(got) != v {
				t.Fatalf("ImpliedFVF = %#x, classifies as %v", got, VariantFromFVF(got))
			}
		})
	}
}

func TestImpliedFVFOrderIndependent(t *testing.T) {
	// Color before position, same offsets.
	blob := declBlob(
		Element{0, 12, TypeD3DColor, MethodDefault, UsageColor, 0},
		Element{0, 0, TypeFloat3, MethodDefault, UsagePosition, 0},
	)
	if got := VariantFromDecl(blob); got != VariantXYZColor {
		t.Fatalf("reordered decl = %v, want XYZ_COLOR", got)
	}
}

func TestImpliedFVFSkipsUnusedPlaceholders(t *testing.T) {
	blob := declBlob(
		Element{0, 0, TypeFloat3, MethodDefault, UsagePosition, 0},
		Element{0, 0, TypeUnused, 0, 0, 0},
		Element{0, 12, TypeD3DColor, MethodDefault, UsageColor, 0},
	)
	if got := VariantFromDecl(blob); got != VariantXYZColor {
		t.Fatalf("decl with UNUSED placeholder = %v, want XYZ_COLOR", got)
	}
}

func TestImpliedFVFPositionUsageVariance(t *testing.T) {
	// POSITIONT where the pattern says POSITION, and vice versa.
	blob := declBlob(
		Element{0, 0, TypeFloat3, MethodDefault, UsagePositionT, 0},
		Element{0, 12, TypeD3DColor, MethodDefault, UsageColor, 0},
	)
	if got := VariantFromDecl(blob); got != VariantXYZColor {
		t.Fatalf("POSITIONT float3 decl = %v, want XYZ_COLOR", got)
	}
	blob = declBlob(
		Element{0, 0, TypeFloat4, MethodDefault, UsagePosition, 0},
		Element{0, 16, TypeD3DColor, MethodDefault, UsageColor, 0},
	)
	if got := VariantFromDecl(blob); got != VariantRHWColor {
		t.Fatalf("POSITION float4 decl = %v, want RHW_COLOR", got)
	}
}

func TestImpliedFVFTexCoordUsageZero(t *testing.T) {
	// Some runtimes synthesize texcoord elements with usage left at 0.
	blob := declBlob(
		Element{0, 0, TypeFloat3, MethodDefault, UsagePosition, 0},
		Element{0, 12, TypeFloat2, MethodDefault, UsagePosition, 0},
	)
	if got := VariantFromDecl(blob); got != VariantXYZTex1 {
		t.Fatalf("usage-0 texcoord decl = %v, want XYZ_TEX1", got)
	}
}

func TestImpliedFVFTexCoordDims(t *testing.T) {
	for _, tt := range []struct {
		typ     uint8
		wantDim uint32
	}{
		{TypeFloat1, 1},
		{TypeFloat2, 2},
		{TypeFloat3, 3},
		{TypeFloat4, 4},
	} {
		blob := declBlob(
			Element{0, 0, TypeFloat3, MethodDefault, UsagePosition, 0},
			Element{0, 12, tt.typ, MethodDefault, UsageTexCoord, 0},
		)
		fvf := ImpliedFVF(blob)
		if fvf == 0 {
			t.Fatalf("type %d: no match", tt.typ)
		}
		if got := TexCoordDim(fvf, 0); got != tt.wantDim {
			t.Errorf("type %d: dim = %d, want %d", tt.typ, got, tt.wantDim)
		}
	}
}

func TestImpliedFVFRejects(t *testing.T) {
	pos := Element{0, 0, TypeFloat3, MethodDefault, UsagePosition, 0}
	col := Element{0, 12, TypeD3DColor, MethodDefault, UsageColor, 0}

	t.Run("no terminator", func(t *testing.T) {
		blob := MarshalDecl([]Element{pos, col})
		if got := ImpliedFVF(blob); got != 0 {
			t.Fatalf("ImpliedFVF = %#x, want 0", got)
		}
	})

	t.Run("empty blob", func(t *testing.T) {
		if got := ImpliedFVF(nil); got != 0 {
			t.Fatalf("ImpliedFVF(nil) = %#x", got)
		}
	})

	t.Run("wrong offset", func(t *testing.T) {
		blob := declBlob(pos, Element{0, 16, TypeD3DColor, MethodDefault, UsageColor, 0})
		if got := ImpliedFVF(blob); got != 0 {
			t.Fatalf("ImpliedFVF = %#x, want 0", got)
		}
	})

	t.Run("duplicate elements ambiguous", func(t *testing.T) {
		blob := declBlob(pos, pos)
		if got := ImpliedFVF(blob); got != 0 {
			t.Fatalf("ImpliedFVF = %#x, want 0", got)
		}
	})

	t.Run("second stream", func(t *testing.T) {
		blob := declBlob(pos, Element{1, 12, TypeD3DColor, MethodDefault, UsageColor, 0})
		if got := ImpliedFVF(blob); got != 0 {
			t.Fatalf("ImpliedFVF = %#x, want 0", got)
		}
	})

	t.Run("too many elements", func(t *testing.T) {
		elems := make([]Element, 17)
		for i := range elems {
			elems[i] = Element{0, uint16(i * 4), TypeFloat1, MethodDefault, UsageTexCoord, uint8(i)}
		}
		if got := ImpliedFVF(declBlob(elems...)); got != 0 {
			t.Fatalf("ImpliedFVF = %#x, want 0", got)
		}
	})
}

func TestImpliedFVFPositionOnly(t *testing.T) {
	blob := declBlob(Element{0, 0, TypeFloat3, MethodDefault, UsagePosition, 0})
	if got := ImpliedFVF(blob); got != FVFXYZ {
		t.Fatalf("float3 position-only = %#x, want FVFXYZ", got)
	}
	blob = declBlob(Element{0, 0, TypeFloat4, MethodDefault, UsagePositionT, 0})
	if got := ImpliedFVF(blob); got != FVFXYZRHW {
		t.Fatalf("float4 position-only = %#x, want FVFXYZRHW", got)
	}
}

func TestNewLayoutOffsets(t *testing.T) {
	l := NewLayout(FVFXYZ | FVFNormal | FVFDiffuse | FVFTex1)
	if l == nil {
		t.Fatal("NewLayout returned nil")
	}
	if l.Variant != VariantXYZNormalColorTex1 {
		t.Fatalf("variant = %v", l.Variant)
	}
	if l.Stride() != 36 {
		t.Fatalf("stride = %d, want 36", l.Stride())
	}
	want := []struct {
		semantic string
		format   gputypes.VertexFormat
		offset   uint64
	}{
		{"POSITION", gputypes.VertexFormatFloat32x3, 0},
		{"NORMAL", gputypes.VertexFormatFloat32x3, 12},
		{"COLOR", gputypes.VertexFormatUnorm8x4, 24},
		{"TEXCOORD", gputypes.VertexFormatFloat32x2, 28},
	}
	if len(l.Attributes) != len(want) {
		t.Fatalf("attribute count = %d, want %d", len(l.Attributes), len(want))
	}
	for i, w := range want {
		a := l.Attributes[i]
		if a.Semantic != w.semantic || a.Format != w.format || a.Offset != w.offset {
			t.Errorf("attr %d = {%s %v %d}, want {%s %v %d}",
				i, a.Semantic, a.Format, a.Offset, w.semantic, w.format, w.offset)
		}
		if a.ShaderLocation != uint32(i) {
			t.Errorf("attr %d shader location = %d", i, a.ShaderLocation)
		}
	}
	if l.Buffer.StepMode != gputypes.VertexStepModeVertex {
		t.Errorf("step mode = %v", l.Buffer.StepMode)
	}
}

func TestNewLayoutRHW(t *testing.T) {
	l := NewLayout(FVFXYZRHW | FVFDiffuse)
	if l == nil {
		t.Fatal("NewLayout returned nil")
	}
	if l.Attributes[0].Format != gputypes.VertexFormatFloat32x4 {
		t.Errorf("rhw position format = %v", l.Attributes[0].Format)
	}
	if l.Attributes[1].Offset != 16 {
		t.Errorf("color offset = %d, want 16", l.Attributes[1].Offset)
	}
	if l.Stride() != 20 {
		t.Errorf("stride = %d, want 20", l.Stride())
	}
}

func TestNewLayoutUnsupported(t *testing.T) {
	if l := NewLayout(FVFXYZ); l != nil {
		t.Fatal("bare position FVF should not resolve")
	}
}

func TestSemanticHash(t *testing.T) {
	// FNV-1a offset basis: hash of the empty string.
	if got := SemanticHash(""); got != 2166136261 {
		t.Errorf("SemanticHash(\"\") = %d", got)
	}
	if SemanticHash("POSITION") == SemanticHash("TEXCOORD") {
		t.Error("distinct semantics hashed equal")
	}
}

func TestLayoutBlob(t *testing.T) {
	l := NewLayout(FVFXYZ | FVFDiffuse | FVFTex1)
	blob := l.Blob()

	wantLen := layoutBlobHeaderSize + 3*layoutBlobElementSize
	if len(blob) != wantLen {
		t.Fatalf("blob length = %d, want %d", len(blob), wantLen)
	}
	if got := binary.LittleEndian.Uint32(blob[0:4]); got != LayoutBlobMagic {
		t.Errorf("magic = %#x", got)
	}
	if got := binary.LittleEndian.Uint32(blob[4:8]); got != LayoutBlobVersion {
		t.Errorf("version = %d", got)
	}
	if got := binary.LittleEndian.Uint32(blob[8:12]); got != 3 {
		t.Errorf("element count = %d", got)
	}

	// Second element: COLOR at offset 12 as BGRA8.
	e := blob[layoutBlobHeaderSize+layoutBlobElementSize:]
	if got := binary.LittleEndian.Uint32(e[0:4]); got != SemanticHash("COLOR") {
		t.Errorf("semantic hash = %#x", got)
	}
	if got := binary.LittleEndian.Uint32(e[8:12]); got != dxgiFormatB8G8R8A8Unorm {
		t.Errorf("dxgi format = %d, want %d", got, dxgiFormatB8G8R8A8Unorm)
	}
	if got := binary.LittleEndian.Uint32(e[16:20]); got != 12 {
		t.Errorf("aligned byte offset = %d, want 12", got)
	}
	if got := binary.LittleEndian.Uint32(e[20:24]); got != 0 {
		t.Errorf("input slot class = %d, want per-vertex", got)
	}
}

func TestResolverCachesByCanonicalFVF(t *testing.T) {
	var next uint32
	r := NewResolver(func() uint32 { next++; return next })

	a, created, err := r.Resolve(FVFXYZ | FVFDiffuse)
	if err != nil || !created {
		t.Fatalf("first Resolve: created=%v err=%v", created, err)
	}
	if a.Handle == 0 {
		t.Fatal("zero handle")
	}

	b, created, err := r.Resolve(FVFXYZ | FVFDiffuse | 0xAAAA0000)
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Fatal("equivalent FVF re-created the layout")
	}
	if b.Handle != a.Handle {
		t.Fatalf("handles differ: %d vs %d", a.Handle, b.Handle)
	}

	hits, misses := r.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("stats = %d hits, %d misses", hits, misses)
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d", r.Len())
	}
}

func TestResolverDeclSharesLayoutWithFVF(t *testing.T) {
	var next uint32
	r := NewResolver(func() uint32 { next++; return next })

	byFVF, _, err := r.Resolve(FVFXYZ | FVFDiffuse)
	if err != nil {
		t.Fatal(err)
	}

	blob := declBlob(DeclFor(VariantXYZColor)...)
	byDecl, created, err := r.ResolveDecl(blob)
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Fatal("decl for an already-resolved FVF re-created the layout")
	}
	if byDecl.Handle != byFVF.Handle {
		t.Fatalf("handles differ: %d vs %d", byDecl.Handle, byFVF.Handle)
	}

	// Second ResolveDecl with identical bytes takes the blob-hash fast path.
	again, _, err := r.ResolveDecl(blob)
	if err != nil {
		t.Fatal(err)
	}
	if again != byDecl {
		t.Fatal("repeated decl resolution returned a different object")
	}
}

func TestResolverUnsupported(t *testing.T) {
	r := NewResolver(func() uint32 { return 1 })
	if _, _, err := r.Resolve(FVFXYZ | FVFSpec); !errors.Is(err, ErrUnsupportedLayout) {
		t.Fatalf("err = %v, want ErrUnsupportedLayout", err)
	}
	if _, _, err := r.ResolveDecl([]byte{1, 2, 3}); !errors.Is(err, ErrUnsupportedLayout) {
		t.Fatalf("decl err = %v, want ErrUnsupportedLayout", err)
	}
}
