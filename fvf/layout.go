package fvf

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/gogpu/gputypes"
)

// Input layout blob format constants. The blob carried by
// CREATE_INPUT_LAYOUT is self-describing: a 16-byte header followed by
// element_count 28-byte element records.
const (
	// LayoutBlobMagic identifies a layout blob ("ILAY" little-endian).
	LayoutBlobMagic uint32 = 0x59414C49

	// LayoutBlobVersion is the blob format revision this package emits.
	LayoutBlobVersion uint32 = 1

	layoutBlobHeaderSize  = 16
	layoutBlobElementSize = 28
)

// SemanticHash returns the 32-bit FNV-1a hash of an uppercase ASCII
// semantic name, the form carried in layout blob elements.
func SemanticHash(name string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(name))
	return h.Sum32()
}

// DXGI format numbers used by layout blob elements. The blob carries
// numeric DXGI_FORMAT values so the protocol does not duplicate the enum.
const (
	dxgiFormatR32G32B32A32Float uint32 = 2
	dxgiFormatR32G32B32Float    uint32 = 6
	dxgiFormatR32G32Float       uint32 = 16
	dxgiFormatR8G8B8A8UInt      uint32 = 30
	dxgiFormatR32Float          uint32 = 41
	dxgiFormatB8G8R8A8Unorm     uint32 = 87
)

// dxgiFormatFor maps a vertex format to its DXGI_FORMAT number.
func dxgiFormatFor(f gputypes.VertexFormat) uint32 {
	switch f {
	case gputypes.VertexFormatFloat32:
		return dxgiFormatR32Float
	case gputypes.VertexFormatFloat32x2:
		return dxgiFormatR32G32Float
	case gputypes.VertexFormatFloat32x3:
		return dxgiFormatR32G32B32Float
	case gputypes.VertexFormatFloat32x4:
		return dxgiFormatR32G32B32A32Float
	case gputypes.VertexFormatUnorm8x4:
		// Packed legacy colors are BGRA in memory.
		return dxgiFormatB8G8R8A8Unorm
	case gputypes.VertexFormatUint8x4:
		return dxgiFormatR8G8B8A8UInt
	default:
		return 0
	}
}

// floatFormat returns the vertex format for an n-component float attribute.
func floatFormat(dim uint32) gputypes.VertexFormat {
	switch dim {
	case 1:
		return gputypes.VertexFormatFloat32
	case 2:
		return gputypes.VertexFormatFloat32x2
	case 3:
		return gputypes.VertexFormatFloat32x3
	default:
		return gputypes.VertexFormatFloat32x4
	}
}

// Attribute is one vertex attribute of a resolved layout, pairing the
// GPU-facing description with the semantic identity the blob format needs.
type Attribute struct {
	Semantic      string
	SemanticIndex uint32
	gputypes.VertexAttribute
}

// InputLayout is a fully resolved fixed-function vertex layout: the
// classified variant, the canonical FVF it serves, and the interleaved
// single-buffer layout in GPU terms.
type InputLayout struct {
	Variant Variant

	// FVF is the canonical FVF key (base bits plus texcoord0 size code).
	FVF uint32

	Attributes []Attribute

	// Buffer describes the single interleaved vertex buffer the variant
	// reads from slot 0.
	Buffer gputypes.VertexBufferLayout
}

// Stride returns the layout's vertex stride in bytes.
func (l *InputLayout) Stride() uint32 {
	return uint32(l.Buffer.ArrayStride)
}

// NewLayout builds the resolved layout for a supported FVF. Returns nil
// when the FVF falls outside the supported subset.
func NewLayout(fvfBits uint32) *InputLayout {
	v := VariantFromFVF(fvfBits)
	if v == VariantNone {
		return nil
	}

	l := &InputLayout{
		Variant: v,
		FVF:     CanonicalFVF(fvfBits),
	}

	var offset uint64
	var location uint32
	add := func(semantic string, format gputypes.VertexFormat, size uint64) {
		l.Attributes = append(l.Attributes, Attribute{
			Semantic: semantic,
			VertexAttribute: gputypes.VertexAttribute{
				Format:         format,
				Offset:         offset,
				ShaderLocation: location,
			},
		})
		offset += size
		location++
	}

	if UsesRHW(v) {
		add("POSITION", gputypes.VertexFormatFloat32x4, 16)
	} else {
		add("POSITION", gputypes.VertexFormatFloat32x3, 12)
	}
	if HasNormal(v) {
		add("NORMAL", gputypes.VertexFormatFloat32x3, 12)
	}
	if HasDiffuse(v) {
		add("COLOR", gputypes.VertexFormatUnorm8x4, 4)
	}
	if HasTex(v) {
		dim := TexCoordDim(fvfBits, 0)
		add("TEXCOORD", floatFormat(dim), uint64(dim)*4)
	}

	attrs := make([]gputypes.VertexAttribute, len(l.Attributes))
	for i, a := range l.Attributes {
		attrs[i] = a.VertexAttribute
	}
	l.Buffer = gputypes.VertexBufferLayout{
		ArrayStride: offset,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  attrs,
	}
	return l
}

// NewLayoutFromDecl builds the resolved layout for a raw declaration blob.
// Returns nil when the declaration matches no supported pattern.
func NewLayoutFromDecl(blob []byte) *InputLayout {
	implied := ImpliedFVF(blob)
	if implied == 0 {
		return nil
	}
	return NewLayout(implied)
}

// Blob serializes the layout into the wire format carried by
// CREATE_INPUT_LAYOUT: header plus one element record per attribute.
func (l *InputLayout) Blob() []byte {
	out := make([]byte, layoutBlobHeaderSize+len(l.Attributes)*layoutBlobElementSize)
	binary.LittleEndian.PutUint32(out[0:4], LayoutBlobMagic)
	binary.LittleEndian.PutUint32(out[4:8], LayoutBlobVersion)
	binary.LittleEndian.PutUint32(out[8:12], uint32(len(l.Attributes)))

	p := layoutBlobHeaderSize
	for _, a := range l.Attributes {
		var slotClass uint32
		if l.Buffer.StepMode == gputypes.VertexStepModeInstance {
			slotClass = 1
		}
		binary.LittleEndian.PutUint32(out[p:], SemanticHash(a.Semantic))
		binary.LittleEndian.PutUint32(out[p+4:], a.SemanticIndex)
		binary.LittleEndian.PutUint32(out[p+8:], dxgiFormatFor(a.Format))
		binary.LittleEndian.PutUint32(out[p+12:], 0) // input_slot
		binary.LittleEndian.PutUint32(out[p+16:], uint32(a.Offset))
		binary.LittleEndian.PutUint32(out[p+20:], slotClass)
		binary.LittleEndian.PutUint32(out[p+24:], 0) // instance_data_step_rate
		p += layoutBlobElementSize
	}
	return out
}
