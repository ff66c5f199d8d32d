// Package fvf resolves legacy packed vertex-format codes (FVF) and vertex
// declarations to the small set of fixed-function vertex layouts the
// translation core supports.
//
// An FVF is a 32-bit bitfield describing the components of an interleaved
// vertex: position (transformed or not), normal, packed diffuse color, and
// up to one texture coordinate set in this subset. The package classifies an
// FVF into a closed Variant enum, computes the implied stride and element
// offsets, and serializes the layout into the opaque blob format carried by
// CREATE_INPUT_LAYOUT packets.
package fvf

// Packed FVF component bits. Values are fixed by the legacy API.
const (
	FVFXYZ     uint32 = 0x00000002
	FVFXYZRHW  uint32 = 0x00000004
	FVFNormal  uint32 = 0x00000010
	FVFPSize   uint32 = 0x00000020
	FVFDiffuse uint32 = 0x00000040
	FVFSpec    uint32 = 0x00000080

	FVFTex1          uint32 = 0x00000100
	FVFTexCountMask  uint32 = 0x00000F00
	FVFTexCountShift        = 8

	// FVFPositionMask covers all position encodings, including the XYZW
	// high bit and the blend-weight forms this subset rejects.
	FVFPositionMask uint32 = 0x0000400E

	// FVFTexCoordSizeMask covers the per-set texcoord dimension codes,
	// two bits per set starting at bit 16.
	FVFTexCoordSizeMask uint32 = 0xFFFF0000
)

// TexCount returns the number of texture coordinate sets declared by fvf.
func TexCount(fvf uint32) uint32 {
	return (fvf & FVFTexCountMask) >> FVFTexCountShift
}

// TexCoordDim returns the float dimension (1 to 4) of the given texcoord
// set. The two-bit size code defaults to float2.
func TexCoordDim(fvf uint32, set int) uint32 {
	code := (fvf >> (16 + uint(set)*2)) & 3
	switch code {
	case 0:
		return 2
	case 1:
		return 3
	case 2:
		return 4
	default:
		return 1
	}
}

// texCoordSizeBits returns the TEXCOORDSIZE bits for set 0 encoding the
// given dimension, or 0 if the dimension is out of range.
func texCoordSizeBits(dim uint32) uint32 {
	var code uint32
	switch dim {
	case 1:
		code = 3
	case 2:
		code = 0
	case 3:
		code = 1
	case 4:
		code = 2
	default:
		return 0
	}
	return code << 16
}

// Variant identifies one of the closed set of fixed-function vertex layouts
// the core can draw with. The zero value means "unsupported".
//
// Variants are classified from the non-size FVF bits only: texcoord
// dimension codes change the stride and offsets but never the variant.
type Variant uint8

const (
	VariantNone Variant = iota
	VariantRHWColor
	VariantRHWColorTex1
	VariantXYZColor
	VariantXYZColorTex1
	VariantRHWTex1
	VariantXYZTex1
	VariantXYZNormal
	VariantXYZNormalTex1
	VariantXYZNormalColor
	VariantXYZNormalColorTex1

	// VariantCount is one past the last valid variant, for sizing
	// per-variant tables.
	VariantCount
)

// String returns a stable diagnostic name for the variant.
func (v Variant) String() string {
	switch v {
	case VariantNone:
		return "NONE"
	case VariantRHWColor:
		return "RHW_COLOR"
	case VariantRHWColorTex1:
		return "RHW_COLOR_TEX1"
	case VariantXYZColor:
		return "XYZ_COLOR"
	case VariantXYZColorTex1:
		return "XYZ_COLOR_TEX1"
	case VariantRHWTex1:
		return "RHW_TEX1"
	case VariantXYZTex1:
		return "XYZ_TEX1"
	case VariantXYZNormal:
		return "XYZ_NORMAL"
	case VariantXYZNormalTex1:
		return "XYZ_NORMAL_TEX1"
	case VariantXYZNormalColor:
		return "XYZ_NORMAL_COLOR"
	case VariantXYZNormalColorTex1:
		return "XYZ_NORMAL_COLOR_TEX1"
	default:
		return "INVALID"
	}
}

// variantFVF maps each variant to the base FVF bits (no texcoord size
// codes) that classify to it. Kept table-driven so adding a variant does
// not scatter bit checks through draw paths.
var variantFVF = [VariantCount]uint32{
	VariantRHWColor:           FVFXYZRHW | FVFDiffuse,
	VariantRHWColorTex1:       FVFXYZRHW | FVFDiffuse | FVFTex1,
	VariantRHWTex1:            FVFXYZRHW | FVFTex1,
	VariantXYZColor:           FVFXYZ | FVFDiffuse,
	VariantXYZColorTex1:       FVFXYZ | FVFDiffuse | FVFTex1,
	VariantXYZTex1:            FVFXYZ | FVFTex1,
	VariantXYZNormal:          FVFXYZ | FVFNormal,
	VariantXYZNormalTex1:      FVFXYZ | FVFNormal | FVFTex1,
	VariantXYZNormalColor:     FVFXYZ | FVFNormal | FVFDiffuse,
	VariantXYZNormalColorTex1: FVFXYZ | FVFNormal | FVFDiffuse | FVFTex1,
}

// VariantFromFVF classifies a packed FVF code. Texcoord size codes are
// masked off first; some runtimes leave garbage size bits on unused sets
// and those must not defeat classification. Returns VariantNone when the
// FVF falls outside the supported subset (blend weights, specular, point
// size, more than one texcoord set).
func VariantFromFVF(fvf uint32) Variant {
	base := fvf &^ FVFTexCoordSizeMask
	for v := VariantNone + 1; v < VariantCount; v++ {
		if variantFVF[v] == base {
			return v
		}
	}
	return VariantNone
}

// FVFOf returns the base FVF bits of a variant, without texcoord size
// codes. Returns 0 for VariantNone.
func FVFOf(v Variant) uint32 {
	if v < VariantCount {
		return variantFVF[v]
	}
	return 0
}

// UsesRHW reports whether the variant carries a pre-transformed position
// (screen space x, y, z plus reciprocal homogeneous w). Pre-transformed
// variants bypass the world-view-projection transform.
func UsesRHW(v Variant) bool {
	return FVFOf(v)&FVFXYZRHW != 0
}

// HasNormal reports whether the variant carries a vertex normal.
func HasNormal(v Variant) bool {
	return FVFOf(v)&FVFNormal != 0
}

// HasDiffuse reports whether the variant carries a packed diffuse color.
func HasDiffuse(v Variant) bool {
	return FVFOf(v)&FVFDiffuse != 0
}

// HasTex reports whether the variant carries texcoord set 0.
func HasTex(v Variant) bool {
	return FVFOf(v)&FVFTex1 != 0
}

// Stride returns the byte stride implied by an FVF, honoring the texcoord
// size codes. Returns 0 for FVFs outside the supported subset.
func Stride(fvf uint32) uint32 {
	v := VariantFromFVF(fvf)
	if v == VariantNone {
		return 0
	}
	var stride uint32
	if UsesRHW(v) {
		stride = 16
	} else {
		stride = 12
	}
	if HasNormal(v) {
		stride += 12
	}
	if HasDiffuse(v) {
		stride += 4
	}
	if HasTex(v) {
		stride += TexCoordDim(fvf, 0) * 4
	}
	return stride
}

// CanonicalFVF reduces an FVF to the cache key form: base bits plus the
// size code of texcoord set 0 when present. Size codes of unused sets are
// dropped so equivalent FVFs share one layout.
func CanonicalFVF(fvf uint32) uint32 {
	v := VariantFromFVF(fvf)
	if v == VariantNone {
		return 0
	}
	out := variantFVF[v]
	if HasTex(v) {
		out |= texCoordSizeBits(TexCoordDim(fvf, 0))
	}
	return out
}
