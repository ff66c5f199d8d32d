package shader

import "github.com/gogpu/aerod3d9/fvf"

// StageRecipe is the canonical combiner state of one surviving stage.
// Arguments an operation does not read are zeroed by BuildStageRecipes so
// equivalent states compare equal.
type StageRecipe struct {
	ColorOp   StageOp
	ColorArg1 StageArg
	ColorArg2 StageArg
	AlphaOp   StageOp
	AlphaArg1 StageArg
	AlphaArg2 StageArg
}

// usesArg reports whether any live argument of the stage equals a.
func (r StageRecipe) usesArg(a StageArg) bool {
	c1, c2 := opArgLiveness(r.ColorOp)
	if c1 && r.ColorArg1 == a || c2 && r.ColorArg2 == a {
		return true
	}
	a1, a2 := opArgLiveness(r.AlphaOp)
	return a1 && r.AlphaArg1 == a || a2 && r.AlphaArg2 == a
}

// samples reports whether the stage reads its texture slot.
func (r StageRecipe) samples() bool {
	return r.ColorOp == OpBlendTextureAlpha || r.AlphaOp == OpBlendTextureAlpha || r.usesArg(ArgTexture)
}

// PSRecipe is the complete synthesis key for a pixel program: the
// canonical recipes of the surviving stages plus whether the vertex layout
// feeds the program a texcoord and a vertex color. Stages past StageCount
// are zero so the struct is directly comparable.
type PSRecipe struct {
	Stages     [MaxTextureStages]StageRecipe
	StageCount uint8

	// HasTexCoord and HasDiffuse mirror the vertex layout; they change
	// the input declarations of the program.
	HasTexCoord bool
	HasDiffuse  bool
}

// SamplerMask returns a bitmask of the texture slots the program samples.
func (p PSRecipe) SamplerMask() uint32 {
	var mask uint32
	for i := 0; i < int(p.StageCount); i++ {
		if p.Stages[i].samples() {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

// TFactorUsed reports whether any surviving stage reads the texture
// factor render state. The factor's value is never part of the recipe;
// it flows through a pixel constant instead, so factor changes do not
// force a new program.
func (p PSRecipe) TFactorUsed() bool {
	for i := 0; i < int(p.StageCount); i++ {
		if p.Stages[i].usesArg(ArgTFactor) {
			return true
		}
	}
	return false
}

// VSRecipe is the synthesis key for a vertex program.
type VSRecipe struct {
	// Pretransformed skips the world-view-projection transform; the
	// position arrives in screen space with a reciprocal w.
	Pretransformed bool

	HasNormal  bool
	HasDiffuse bool
	HasTex     bool

	// Lit enables the directional lighting path. It requires HasNormal;
	// without a normal the vertex color passes through unchanged.
	Lit bool

	// Fog appends linear fog factor computation to the output color.
	Fog bool
}

// VSRecipeFor derives the vertex recipe for a resolved layout variant and
// the lighting and fog render states.
func VSRecipeFor(v fvf.Variant, lit, fog bool) VSRecipe {
	r := VSRecipe{
		Pretransformed: fvf.UsesRHW(v),
		HasNormal:      fvf.HasNormal(v),
		HasDiffuse:     fvf.HasDiffuse(v),
		HasTex:         fvf.HasTex(v),
	}
	// Pre-transformed vertices bypass lighting and fog entirely.
	if !r.Pretransformed {
		r.Lit = lit && r.HasNormal
		r.Fog = fog
	}
	return r
}
