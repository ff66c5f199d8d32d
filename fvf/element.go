package fvf

import "encoding/binary"

// Element is one entry of a legacy vertex declaration, 8 bytes on the wire.
type Element struct {
	Stream     uint16
	Offset     uint16
	Type       uint8
	Method     uint8
	Usage      uint8
	UsageIndex uint8
}

// elementSize is the wire size of one declaration element.
const elementSize = 8

// Declaration element types.
const (
	TypeFloat1   uint8 = 0
	TypeFloat2   uint8 = 1
	TypeFloat3   uint8 = 2
	TypeFloat4   uint8 = 3
	TypeD3DColor uint8 = 4
	TypeUByte4   uint8 = 5
	TypeUnused   uint8 = 17
)

// Declaration element usages.
const (
	UsagePosition     uint8 = 0
	UsageBlendWeight  uint8 = 1
	UsageBlendIndices uint8 = 2
	UsageNormal       uint8 = 3
	UsagePSize        uint8 = 4
	UsageTexCoord     uint8 = 5
	UsagePositionT    uint8 = 9
	UsageColor        uint8 = 10
)

// MethodDefault is the only declaration method this subset accepts.
const MethodDefault uint8 = 0

// maxDeclElements bounds the non-placeholder elements considered when
// matching a declaration. The supported patterns use at most four.
const maxDeclElements = 16

// End returns the declaration terminator element.
func End() Element {
	return Element{Stream: 0xFF, Type: TypeUnused}
}

// IsEnd reports whether e is the declaration terminator.
func (e Element) IsEnd() bool {
	return e.Stream == 0xFF && e.Type == TypeUnused
}

// AppendWire appends the 8-byte little-endian wire form of e to dst.
func (e Element) AppendWire(dst []byte) []byte {
	var b [elementSize]byte
	binary.LittleEndian.PutUint16(b[0:2], e.Stream)
	binary.LittleEndian.PutUint16(b[2:4], e.Offset)
	b[4] = e.Type
	b[5] = e.Method
	b[6] = e.Usage
	b[7] = e.UsageIndex
	return append(dst, b[:]...)
}

// MarshalDecl serializes a declaration, terminator included, to wire form.
func MarshalDecl(elems []Element) []byte {
	out := make([]byte, 0, len(elems)*elementSize)
	for _, e := range elems {
		out = e.AppendWire(out)
	}
	return out
}

// parseElement decodes one element at offset i of blob.
func parseElement(blob []byte, i int) Element {
	return Element{
		Stream:     binary.LittleEndian.Uint16(blob[i : i+2]),
		Offset:     binary.LittleEndian.Uint16(blob[i+2 : i+4]),
		Type:       blob[i+4],
		Method:     blob[i+5],
		Usage:      blob[i+6],
		UsageIndex: blob[i+7],
	}
}

// declTable maps each variant to its canonical declaration, terminator
// excluded. Offsets assume the default float2 texcoord; DeclFor adjusts
// nothing because the texcoord is always the trailing element.
var declTable = [VariantCount][]Element{
	VariantRHWColor: {
		{0, 0, TypeFloat4, MethodDefault, UsagePositionT, 0},
		{0, 16, TypeD3DColor, MethodDefault, UsageColor, 0},
	},
	VariantRHWColorTex1: {
		{0, 0, TypeFloat4, MethodDefault, UsagePositionT, 0},
		{0, 16, TypeD3DColor, MethodDefault, UsageColor, 0},
		{0, 20, TypeFloat2, MethodDefault, UsageTexCoord, 0},
	},
	VariantRHWTex1: {
		{0, 0, TypeFloat4, MethodDefault, UsagePositionT, 0},
		{0, 16, TypeFloat2, MethodDefault, UsageTexCoord, 0},
	},
	VariantXYZColor: {
		{0, 0, TypeFloat3, MethodDefault, UsagePosition, 0},
		{0, 12, TypeD3DColor, MethodDefault, UsageColor, 0},
	},
	VariantXYZColorTex1: {
		{0, 0, TypeFloat3, MethodDefault, UsagePosition, 0},
		{0, 12, TypeD3DColor, MethodDefault, UsageColor, 0},
		{0, 16, TypeFloat2, MethodDefault, UsageTexCoord, 0},
	},
	VariantXYZTex1: {
		{0, 0, TypeFloat3, MethodDefault, UsagePosition, 0},
		{0, 12, TypeFloat2, MethodDefault, UsageTexCoord, 0},
	},
	VariantXYZNormal: {
		{0, 0, TypeFloat3, MethodDefault, UsagePosition, 0},
		{0, 12, TypeFloat3, MethodDefault, UsageNormal, 0},
	},
	VariantXYZNormalTex1: {
		{0, 0, TypeFloat3, MethodDefault, UsagePosition, 0},
		{0, 12, TypeFloat3, MethodDefault, UsageNormal, 0},
		{0, 24, TypeFloat2, MethodDefault, UsageTexCoord, 0},
	},
	VariantXYZNormalColor: {
		{0, 0, TypeFloat3, MethodDefault, UsagePosition, 0},
		{0, 12, TypeFloat3, MethodDefault, UsageNormal, 0},
		{0, 24, TypeD3DColor, MethodDefault, UsageColor, 0},
	},
	VariantXYZNormalColorTex1: {
		{0, 0, TypeFloat3, MethodDefault, UsagePosition, 0},
		{0, 12, TypeFloat3, MethodDefault, UsageNormal, 0},
		{0, 24, TypeD3DColor, MethodDefault, UsageColor, 0},
		{0, 28, TypeFloat2, MethodDefault, UsageTexCoord, 0},
	},
}

// DeclFor returns the canonical declaration elements of a variant,
// terminator excluded. The returned slice is shared; do not mutate.
func DeclFor(v Variant) []Element {
	if v < VariantCount {
		return declTable[v]
	}
	return nil
}

// texCoordDimFromType returns the float dimension of a texcoord element
// type, or 0 for non-float types.
func texCoordDimFromType(t uint8) uint32 {
	switch t {
	case TypeFloat1:
		return 1
	case TypeFloat2:
		return 2
	case TypeFloat3:
		return 3
	case TypeFloat4:
		return 4
	default:
		return 0
	}
}

// ImpliedFVF matches a raw declaration blob against the canonical
// fixed-function patterns and returns the equivalent FVF, with texcoord
// size bits reflecting the declared texcoord dimension. Returns 0 when the
// declaration has no terminator, exceeds 16 live elements, or matches no
// supported pattern.
//
// Matching is deliberately tolerant of runtime quirks:
//   - element order carries no meaning and UNUSED placeholders are skipped
//   - the position element may be spelled POSITION or POSITIONT
//   - the texcoord usage may be spelled POSITION (0), as some runtimes
//     leave it zeroed when synthesizing declarations
//   - the texcoord element may be FLOAT1 through FLOAT4
func ImpliedFVF(blob []byte) uint32 {
	if len(blob) < elementSize*2 {
		return 0
	}

	var elems [maxDeclElements]Element
	n := 0
	sawEnd := false
	for i := 0; i+elementSize <= len(blob); i += elementSize {
		e := parseElement(blob, i)
		if e.IsEnd() {
			sawEnd = true
			break
		}
		if e.Type == TypeUnused {
			continue
		}
		if n >= maxDeclElements {
			return 0
		}
		elems[n] = e
		n++
	}
	if !sawEnd {
		return 0
	}

	for v := VariantNone + 1; v < VariantCount; v++ {
		if fvf, ok := matchDecl(elems[:n], v); ok {
			return fvf
		}
	}

	// Position-only declarations, used by the vertex processing path.
	if n == 1 {
		e := elems[0]
		if e.Stream == 0 && e.Offset == 0 && e.Method == MethodDefault &&
			e.UsageIndex == 0 && usageOKForPosition(e.Usage) {
			switch e.Type {
			case TypeFloat4:
				return FVFXYZRHW
			case TypeFloat3:
				return FVFXYZ
			}
		}
	}
	return 0
}

// Stream0Decl returns a copy of blob keeping only stream-0 elements plus
// the terminator. The vertex processing service resolves destination
// declarations this way: elements on other streams carry no data for it.
// Returns nil when blob has no terminator.
func Stream0Decl(blob []byte) []byte {
	out := make([]byte, 0, len(blob))
	for i := 0; i+elementSize <= len(blob); i += elementSize {
		e := parseElement(blob, i)
		if e.IsEnd() {
			return End().AppendWire(out)
		}
		if e.Stream == 0 {
			out = e.AppendWire(out)
		}
	}
	return nil
}

// VariantFromDecl classifies a raw declaration blob.
func VariantFromDecl(blob []byte) Variant {
	return VariantFromFVF(ImpliedFVF(blob))
}

func usageOKForPosition(usage uint8) bool {
	return usage == UsagePosition || usage == UsagePositionT
}

func usageOKForTexCoord(usage uint8) bool {
	return usage == UsageTexCoord || usage == UsagePosition
}

// elemMatches reports whether got satisfies the expected pattern element,
// returning the texcoord dimension when exp is a texcoord.
func elemMatches(got, exp Element) (texDim uint32, ok bool) {
	if got.Stream != exp.Stream || got.Offset != exp.Offset ||
		got.Method != exp.Method || got.UsageIndex != exp.UsageIndex {
		return 0, false
	}
	switch exp.Usage {
	case UsageTexCoord:
		if !usageOKForTexCoord(got.Usage) {
			return 0, false
		}
		dim := texCoordDimFromType(got.Type)
		return dim, dim != 0
	case UsagePosition, UsagePositionT:
		return 0, usageOKForPosition(got.Usage) && got.Type == exp.Type
	default:
		return 0, got.Usage == exp.Usage && got.Type == exp.Type
	}
}

// matchDecl tries to match the live declaration elements against one
// variant's canonical pattern. Every pattern element must match exactly
// one declaration element; ambiguous matches fail.
func matchDecl(elems []Element, v Variant) (uint32, bool) {
	pattern := declTable[v]
	if len(elems) != len(pattern) {
		return 0, false
	}

	var used [maxDeclElements]bool
	var texDim uint32
	for _, exp := range pattern {
		matchIdx := -1
		var matchDim uint32
		for k, got := range elems {
			if used[k] {
				continue
			}
			dim, ok := elemMatches(got, exp)
			if !ok {
				continue
			}
			if matchIdx >= 0 {
				return 0, false
			}
			matchIdx = k
			matchDim = dim
		}
		if matchIdx < 0 {
			return 0, false
		}
		used[matchIdx] = true
		if exp.Usage == UsageTexCoord {
			texDim = matchDim
		}
	}

	fvf := variantFVF[v]
	if fvf&FVFTex1 != 0 {
		if texDim == 0 {
			return 0, false
		}
		fvf |= texCoordSizeBits(texDim)
	}
	return fvf, true
}
