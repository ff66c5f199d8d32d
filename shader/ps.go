package shader

// Pixel program constant register map.
const (
	// PSConstTFactor receives the texture factor render state as four
	// unorm channels. The device re-uploads it on render-state changes
	// only when the bound program reads it.
	PSConstTFactor uint32 = 0
)

// Temp register assignments. r0 holds the running "current" value, r1
// stages each combiner result, r2..r5 hold the sampled stage colors.
const (
	psTempCurrent uint32 = 0
	psTempStage   uint32 = 1
	psTempTexBase uint32 = 2
)

const (
	maskRGB uint32 = 0x7
	maskA   uint32 = 0x8
)

// argSrc returns the source token for a combiner argument at the given
// stage. swizzle selects the component view (identity for color,
// .wwww for alpha).
func argSrc(a StageArg, stage int, swizzle uint32) uint32 {
	switch a {
	case ArgCurrent:
		return SrcRegSwizzle(regTemp, psTempCurrent, swizzle)
	case ArgTexture:
		return SrcRegSwizzle(regTemp, psTempTexBase+uint32(stage), swizzle)
	case ArgTFactor:
		return SrcRegSwizzle(regConst, PSConstTFactor, swizzle)
	default:
		return SrcRegSwizzle(regInput, 0, swizzle)
	}
}

// emitCombine writes one combiner half (color or alpha) of a stage into
// the staging register under the given write mask.
func emitCombine(p *program, op StageOp, arg1, arg2 StageArg, stage int, mask, swizzle uint32) {
	dst := DstRegMask(regTemp, psTempStage, mask)
	switch op {
	case OpSelectArg1:
		p.emit(opMov, dst, argSrc(arg1, stage, swizzle))
	case OpSelectArg2:
		p.emit(opMov, dst, argSrc(arg2, stage, swizzle))
	case OpModulate:
		p.emit(opMul, dst, argSrc(arg1, stage, swizzle), argSrc(arg2, stage, swizzle))
	case OpAdd:
		p.emit(opAdd, dst, argSrc(arg1, stage, swizzle), argSrc(arg2, stage, swizzle))
	case OpBlendTextureAlpha:
		// arg1 * texAlpha + arg2 * (1 - texAlpha)
		p.emit(opLrp, dst,
			SrcRegSwizzle(regTemp, psTempTexBase+uint32(stage), swizzleW),
			argSrc(arg1, stage, swizzle),
			argSrc(arg2, stage, swizzle))
	}
}

// SynthesizePS emits the pixel program for a recipe. Synthesis is pure:
// equal recipes produce identical bytes.
//
// The program threads a "current" value through the stage chain, seeded
// with the interpolated vertex color, and writes the final value to the
// color output. An empty chain therefore passes the vertex color through.
func SynthesizePS(r PSRecipe) []byte {
	p := newProgram(VersionPS)

	p.dcl(declUsageColor, 0, DstReg(regInput, 0))
	if r.HasTexCoord {
		p.dcl(declUsageTexCoord, 0, DstReg(regTexCoord, 0))
	}

	mask := r.SamplerMask()
	for i := 0; i < int(r.StageCount); i++ {
		if mask&(1<<uint(i)) != 0 {
			p.dclSampler2D(uint32(i))
		}
	}

	// All stages address the single texcoord set of the supported vertex
	// layouts.
	for i := 0; i < int(r.StageCount); i++ {
		if mask&(1<<uint(i)) != 0 {
			p.emit(OpTexld,
				DstReg(regTemp, psTempTexBase+uint32(i)),
				SrcReg(regTexCoord, 0),
				SamplerToken(uint32(i)))
		}
	}

	p.emit(opMov, DstReg(regTemp, psTempCurrent), SrcReg(regInput, 0))

	for i := 0; i < int(r.StageCount); i++ {
		s := r.Stages[i]
		emitCombine(p, s.ColorOp, s.ColorArg1, s.ColorArg2, i, maskRGB, 0xE4)
		emitCombine(p, s.AlphaOp, s.AlphaArg1, s.AlphaArg2, i, maskA, swizzleW)
		p.emit(opMov, DstReg(regTemp, psTempCurrent), SrcReg(regTemp, psTempStage))
	}

	p.emit(opMov, DstReg(regColorOut, 0), SrcReg(regTemp, psTempCurrent))
	return p.bytes()
}
