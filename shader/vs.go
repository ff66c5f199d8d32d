package shader

import "math"

// Vertex program constant register map. The device uploads these through
// SET_SHADER_CONSTANTS_F on the vertex stage.
const (
	// VSConstWVP0 is the first of four rows of the combined
	// world-view-projection matrix (c0..c3).
	VSConstWVP0 uint32 = 0

	// VSConstLightDir is the object-space directional light vector,
	// negated so a dp3 against the normal yields N dot L.
	VSConstLightDir uint32 = 8

	// VSConstLightColor is the directional light color.
	VSConstLightColor uint32 = 9

	// VSConstAmbient is the ambient light color.
	VSConstAmbient uint32 = 10

	// VSConstFog packs the linear fog coefficients: x holds the negated
	// reciprocal range, y holds end divided by range.
	VSConstFog uint32 = 12
)

// Locally defined constants.
const (
	vsConstZero  uint32 = 14 // (0, 0, 0, 0)
	vsConstWhite uint32 = 15 // (1, 1, 1, 1)
)

const (
	rastOutPosition uint32 = 0
	rastOutFog      uint32 = 1
)

const swizzleY uint32 = 0x55

func f32(v float32) uint32 { return math.Float32bits(v) }

// SynthesizeVS emits the vertex program for a recipe. Synthesis is pure:
// equal recipes produce identical bytes.
//
// Input registers are assigned in layout order: position, then normal,
// color and texcoord as the recipe carries them. Outputs are the position,
// one color and one texcoord.
func SynthesizeVS(r VSRecipe) []byte {
	p := newProgram(VersionVS)

	in := uint32(0)
	vPos := in
	p.dcl(declUsagePosition, 0, DstReg(regInput, vPos))
	in++

	var vNrm, vCol, vTex uint32
	if r.HasNormal {
		vNrm = in
		p.dcl(declUsageNormal, 0, DstReg(regInput, vNrm))
		in++
	}
	if r.HasDiffuse {
		vCol = in
		p.dcl(declUsageColor, 0, DstReg(regInput, vCol))
		in++
	}
	if r.HasTex {
		vTex = in
		p.dcl(declUsageTexCoord, 0, DstReg(regInput, vTex))
		in++
	}

	if !r.HasDiffuse || r.Lit {
		p.def(vsConstWhite, f32(1), f32(1), f32(1), f32(1))
	}
	if r.Lit {
		p.def(vsConstZero, 0, 0, 0, 0)
	}

	// Position.
	if r.Pretransformed {
		p.emit(opMov, DstReg(regRastOut, rastOutPosition), SrcReg(regInput, vPos))
	} else {
		for row := uint32(0); row < 4; row++ {
			p.emit(opDp4,
				DstRegMask(regRastOut, rastOutPosition, 1<<row),
				SrcReg(regInput, vPos),
				SrcReg(regConst, VSConstWVP0+row))
		}
	}

	// Color.
	switch {
	case r.Lit:
		// N dot L, clamped at zero, scaled by the light color plus
		// ambient, then modulated by the vertex color when present.
		p.emit(opDp3, DstRegMask(regTemp, 0, 1), SrcReg(regInput, vNrm), SrcReg(regConst, VSConstLightDir))
		p.emit(opMax, DstRegMask(regTemp, 0, 1),
			SrcRegSwizzle(regTemp, 0, swizzleX),
			SrcRegSwizzle(regConst, vsConstZero, swizzleX))
		p.emit(opMad, DstReg(regTemp, 1),
			SrcReg(regConst, VSConstLightColor),
			SrcRegSwizzle(regTemp, 0, swizzleX),
			SrcReg(regConst, VSConstAmbient))
		if r.HasDiffuse {
			p.emit(opMul, DstReg(regAttrOut, 0), SrcReg(regTemp, 1), SrcReg(regInput, vCol))
		} else {
			p.emit(opMov, DstReg(regAttrOut, 0), SrcReg(regTemp, 1))
		}
	case r.HasDiffuse:
		p.emit(opMov, DstReg(regAttrOut, 0), SrcReg(regInput, vCol))
	default:
		p.emit(opMov, DstReg(regAttrOut, 0), SrcReg(regConst, vsConstWhite))
	}

	// Texcoord passthrough.
	if r.HasTex {
		p.emit(opMov, DstReg(regTexOut, 0), SrcReg(regInput, vTex))
	}

	// Linear fog factor from the clip-space depth.
	if r.Fog {
		p.emit(opDp4, DstRegMask(regTemp, 2, 1), SrcReg(regInput, vPos), SrcReg(regConst, VSConstWVP0+2))
		p.emit(opMad, DstRegMask(regRastOut, rastOutFog, 1),
			SrcRegSwizzle(regTemp, 2, swizzleX),
			SrcRegSwizzle(regConst, VSConstFog, swizzleX),
			SrcRegSwizzle(regConst, VSConstFog, swizzleY))
	}

	return p.bytes()
}
