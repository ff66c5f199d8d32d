package shader

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/aerod3d9/fvf"
)

func TestTokenEncoding(t *testing.T) {
	if got := Instr(OpTexld, 4); got != 0x04000042 {
		t.Errorf("texld token = %#x, want 0x04000042", got)
	}
	if got := SamplerToken(0); got != 0x20E40800 {
		t.Errorf("s0 token = %#x, want 0x20E40800", got)
	}
	if got := SamplerToken(2); got != 0x20E40802 {
		t.Errorf("s2 token = %#x, want 0x20E40802", got)
	}
	if got := InstrLength(0x04000042); got != 4 {
		t.Errorf("InstrLength = %d", got)
	}
}

// selectTexture returns a stage that routes the sampled texture to both
// color and alpha.
func selectTexture() StageState {
	return StageState{
		ColorOp: OpSelectArg1, ColorArg1: ArgTexture, ColorArg2: ArgCurrent,
		AlphaOp: OpSelectArg1, AlphaArg1: ArgTexture, AlphaArg2: ArgCurrent,
	}
}

func disabled() StageState {
	s := selectTexture()
	s.ColorOp = OpDisable
	s.AlphaOp = OpDisable
	return s
}

func chain(stages ...StageState) [MaxTextureStages]StageState {
	out := DefaultStageStates()
	for i := 0; i < MaxTextureStages; i++ {
		if i < len(stages) {
			out[i] = stages[i]
		} else {
			out[i] = disabled()
		}
	}
	return out
}

func TestBuildStageRecipesTwoStageModulate(t *testing.T) {
	stage1 := StageState{
		ColorOp: OpModulate, ColorArg1: ArgTexture, ColorArg2: ArgCurrent,
		AlphaOp: OpSelectArg1, AlphaArg1: ArgCurrent, AlphaArg2: ArgCurrent,
	}
	recipe, err := BuildStageRecipes(chain(selectTexture(), stage1), 0b11)
	if err != nil {
		t.Fatal(err)
	}
	if recipe.StageCount != 2 {
		t.Fatalf("stage count = %d, want 2", recipe.StageCount)
	}
	if got := recipe.SamplerMask(); got != 0b11 {
		t.Fatalf("sampler mask = %#b, want 0b11", got)
	}
}

func TestBuildStageRecipesDisableTruncates(t *testing.T) {
	// Stage 1 disabled: stage 2 never runs even though it is configured.
	recipe, err := BuildStageRecipes(chain(selectTexture(), disabled(), selectTexture()), 0b111)
	if err != nil {
		t.Fatal(err)
	}
	if recipe.StageCount != 1 {
		t.Fatalf("stage count = %d, want 1", recipe.StageCount)
	}
}

func TestBuildStageRecipesDisabledAlphaOpIgnored(t *testing.T) {
	// A disabling stage's alpha half carries garbage; it must not matter.
	s := disabled()
	s.AlphaOp = OpAddSmooth
	s.AlphaArg1 = StageArg(99)
	recipe, err := BuildStageRecipes(chain(selectTexture(), s), 0b1)
	if err != nil {
		t.Fatal(err)
	}
	if recipe.StageCount != 1 {
		t.Fatalf("stage count = %d", recipe.StageCount)
	}
}

func TestBuildStageRecipesUnboundTextureTruncates(t *testing.T) {
	// Stage 1 samples but slot 1 has no texture: chain ends after stage 0.
	recipe, err := BuildStageRecipes(chain(selectTexture(), selectTexture()), 0b01)
	if err != nil {
		t.Fatal(err)
	}
	if recipe.StageCount != 1 {
		t.Fatalf("stage count = %d, want 1", recipe.StageCount)
	}
	if got := recipe.SamplerMask(); got != 0b01 {
		t.Fatalf("sampler mask = %#b", got)
	}
}

func TestBuildStageRecipesUnboundStage0TruncatesToZero(t *testing.T) {
	recipe, err := BuildStageRecipes(chain(selectTexture()), 0)
	if err != nil {
		t.Fatal(err)
	}
	if recipe.StageCount != 0 {
		t.Fatalf("stage count = %d, want 0", recipe.StageCount)
	}
}

func TestBuildStageRecipesNonSamplingStageIgnoresBindState(t *testing.T) {
	// Stage 1 only combines diffuse and current; no texture bound at
	// slot 1 must not truncate.
	stage1 := StageState{
		ColorOp: OpModulate, ColorArg1: ArgDiffuse, ColorArg2: ArgCurrent,
		AlphaOp: OpSelectArg1, AlphaArg1: ArgCurrent, AlphaArg2: ArgCurrent,
	}
	recipe, err := BuildStageRecipes(chain(selectTexture(), stage1), 0b01)
	if err != nil {
		t.Fatal(err)
	}
	if recipe.StageCount != 2 {
		t.Fatalf("stage count = %d, want 2", recipe.StageCount)
	}
	if got := recipe.SamplerMask(); got != 0b01 {
		t.Fatalf("sampler mask = %#b, want 0b01", got)
	}
}

func TestBuildStageRecipesAlphaOnlyTextureUseTruncates(t *testing.T) {
	// Stage 1 samples only in its alpha half.
	stage1 := StageState{
		ColorOp: OpSelectArg1, ColorArg1: ArgCurrent, ColorArg2: ArgCurrent,
		AlphaOp: OpSelectArg1, AlphaArg1: ArgTexture, AlphaArg2: ArgCurrent,
	}
	recipe, err := BuildStageRecipes(chain(selectTexture(), stage1), 0b01)
	if err != nil {
		t.Fatal(err)
	}
	if recipe.StageCount != 1 {
		t.Fatalf("stage count = %d, want 1", recipe.StageCount)
	}
}

func TestBuildStageRecipesBlendTextureAlphaSamplesImplicitly(t *testing.T) {
	// BlendTextureAlpha reads texture alpha even when no argument names
	// TEXTURE.
	stage1 := StageState{
		ColorOp: OpBlendTextureAlpha, ColorArg1: ArgCurrent, ColorArg2: ArgDiffuse,
		AlphaOp: OpSelectArg1, AlphaArg1: ArgCurrent, AlphaArg2: ArgCurrent,
	}

	recipe, err := BuildStageRecipes(chain(selectTexture(), stage1), 0b11)
	if err != nil {
		t.Fatal(err)
	}
	if recipe.StageCount != 2 {
		t.Fatalf("bound: stage count = %d, want 2", recipe.StageCount)
	}
	if got := recipe.SamplerMask(); got != 0b11 {
		t.Fatalf("bound: sampler mask = %#b, want 0b11", got)
	}

	recipe, err = BuildStageRecipes(chain(selectTexture(), stage1), 0b01)
	if err != nil {
		t.Fatal(err)
	}
	if recipe.StageCount != 1 {
		t.Fatalf("unbound: stage count = %d, want 1", recipe.StageCount)
	}
}

func TestBuildStageRecipesDontCareArgsExcluded(t *testing.T) {
	a := selectTexture()
	a.ColorArg2 = ArgCurrent
	b := selectTexture()
	b.ColorArg2 = ArgTFactor

	ra, err := BuildStageRecipes(chain(a), 0b1)
	if err != nil {
		t.Fatal(err)
	}
	rb, err := BuildStageRecipes(chain(b), 0b1)
	if err != nil {
		t.Fatal(err)
	}
	if ra != rb {
		t.Fatal("SELECTARG1 recipes differ on the unread ARG2")
	}
	if ra.TFactorUsed() {
		t.Fatal("unread TFACTOR reference counted as used")
	}
}

func TestBuildStageRecipesStage0CurrentCanonicalizedToDiffuse(t *testing.T) {
	a := StageState{
		ColorOp: OpModulate, ColorArg1: ArgTexture, ColorArg2: ArgCurrent,
		AlphaOp: OpSelectArg1, AlphaArg1: ArgCurrent, AlphaArg2: ArgCurrent,
	}
	b := a
	b.ColorArg2 = ArgDiffuse
	b.AlphaArg1 = ArgDiffuse

	ra, err := BuildStageRecipes(chain(a), 0b1)
	if err != nil {
		t.Fatal(err)
	}
	rb, err := BuildStageRecipes(chain(b), 0b1)
	if err != nil {
		t.Fatal(err)
	}
	if ra != rb {
		t.Fatal("stage 0 CURRENT and DIFFUSE produced different recipes")
	}
}

func TestBuildStageRecipesErrors(t *testing.T) {
	t.Run("unsupported color op", func(t *testing.T) {
		s := selectTexture()
		s.ColorOp = OpAddSmooth
		if _, err := BuildStageRecipes(chain(s), 0b1); !errors.Is(err, ErrInvalidCombination) {
			t.Fatalf("err = %v, want ErrInvalidCombination", err)
		}
	})

	t.Run("unsupported alpha op", func(t *testing.T) {
		s := selectTexture()
		s.AlphaOp = OpAddSmooth
		if _, err := BuildStageRecipes(chain(s), 0b1); !errors.Is(err, ErrInvalidCombination) {
			t.Fatalf("err = %v, want ErrInvalidCombination", err)
		}
	})

	t.Run("invalid arg", func(t *testing.T) {
		s := selectTexture()
		s.ColorArg1 = StageArg(7)
		if _, err := BuildStageRecipes(chain(s), 0b1); !errors.Is(err, ErrInvalidCombination) {
			t.Fatalf("err = %v, want ErrInvalidCombination", err)
		}
	})

	t.Run("unsupported op on truncated stage passes", func(t *testing.T) {
		bad := selectTexture()
		bad.ColorOp = OpAddSmooth
		// Stage 1 is truncated away by the unbound slot before
		// validation sees it.
		recipe, err := BuildStageRecipes(chain(selectTexture(), bad), 0b01)
		if err != nil {
			t.Fatalf("truncated bad stage failed the chain: %v", err)
		}
		if recipe.StageCount != 1 {
			t.Fatalf("stage count = %d", recipe.StageCount)
		}
	})
}

func TestTFactorUsed(t *testing.T) {
	s := StageState{
		ColorOp: OpModulate, ColorArg1: ArgTexture, ColorArg2: ArgTFactor,
		AlphaOp: OpSelectArg1, AlphaArg1: ArgCurrent, AlphaArg2: ArgCurrent,
	}
	recipe, err := BuildStageRecipes(chain(s), 0b1)
	if err != nil {
		t.Fatal(err)
	}
	if !recipe.TFactorUsed() {
		t.Fatal("live TFACTOR reference not detected")
	}
}

func TestSynthesizePSPure(t *testing.T) {
	recipe, err := BuildStageRecipes(chain(selectTexture()), 0b1)
	if err != nil {
		t.Fatal(err)
	}
	recipe.HasTexCoord = true
	recipe.HasDiffuse = true
	a := SynthesizePS(recipe)
	b := SynthesizePS(recipe)
	if !bytes.Equal(a, b) {
		t.Fatal("equal recipes produced different programs")
	}
}

func TestSynthesizePSTwoStage(t *testing.T) {
	stage1 := StageState{
		ColorOp: OpModulate, ColorArg1: ArgTexture, ColorArg2: ArgCurrent,
		AlphaOp: OpSelectArg1, AlphaArg1: ArgCurrent, AlphaArg2: ArgCurrent,
	}
	recipe, err := BuildStageRecipes(chain(selectTexture(), stage1), 0b11)
	if err != nil {
		t.Fatal(err)
	}
	recipe.HasTexCoord = true
	recipe.HasDiffuse = true

	prog := SynthesizePS(recipe)
	if got := Words(prog)[0]; got != VersionPS {
		t.Fatalf("version token = %#x", got)
	}
	if got := CountOp(prog, OpTexld); got != 2 {
		t.Fatalf("texld count = %d, want 2", got)
	}
	if got := SamplerMaskOf(prog); got != 0b11 {
		t.Fatalf("sampler mask = %#b, want 0b11", got)
	}
	words := Words(prog)
	if words[len(words)-1] != TokenEnd {
		t.Fatal("program does not end with the end token")
	}
}

func TestSynthesizePSEmptyChainPassesDiffuse(t *testing.T) {
	recipe := PSRecipe{HasDiffuse: true}
	prog := SynthesizePS(recipe)
	if got := CountOp(prog, OpTexld); got != 0 {
		t.Fatalf("texld count = %d, want 0", got)
	}
	if got := SamplerMaskOf(prog); got != 0 {
		t.Fatalf("sampler mask = %#b, want 0", got)
	}
}

func TestSynthesizePSDistinctRecipesDistinctPrograms(t *testing.T) {
	a, err := BuildStageRecipes(chain(selectTexture()), 0b1)
	if err != nil {
		t.Fatal(err)
	}
	mod := selectTexture()
	mod.ColorOp = OpModulate
	mod.ColorArg2 = ArgCurrent
	b, err := BuildStageRecipes(chain(mod), 0b1)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(SynthesizePS(a), SynthesizePS(b)) {
		t.Fatal("different recipes produced identical programs")
	}
}

func TestSynthesizeVS(t *testing.T) {
	t.Run("pretransformed skips transform", func(t *testing.T) {
		prog := SynthesizeVS(VSRecipe{Pretransformed: true, HasDiffuse: true, HasTex: true})
		if got := Words(prog)[0]; got != VersionVS {
			t.Fatalf("version token = %#x", got)
		}
		if got := CountOp(prog, opDp4); got != 0 {
			t.Fatalf("dp4 count = %d, want 0", got)
		}
	})

	t.Run("transformed emits four dp4", func(t *testing.T) {
		prog := SynthesizeVS(VSRecipe{HasDiffuse: true})
		if got := CountOp(prog, opDp4); got != 4 {
			t.Fatalf("dp4 count = %d, want 4", got)
		}
	})

	t.Run("lit emits lighting math", func(t *testing.T) {
		prog := SynthesizeVS(VSRecipe{HasNormal: true, HasDiffuse: true, Lit: true})
		if got := CountOp(prog, opDp3); got != 1 {
			t.Fatalf("dp3 count = %d, want 1", got)
		}
	})

	t.Run("fog adds depth dp4", func(t *testing.T) {
		with := SynthesizeVS(VSRecipe{HasDiffuse: true, Fog: true})
		without := SynthesizeVS(VSRecipe{HasDiffuse: true})
		if CountOp(with, opDp4) != CountOp(without, opDp4)+1 {
			t.Fatal("fog did not add the depth computation")
		}
	})

	t.Run("pure", func(t *testing.T) {
		r := VSRecipe{HasNormal: true, HasDiffuse: true, HasTex: true, Lit: true}
		if !bytes.Equal(SynthesizeVS(r), SynthesizeVS(r)) {
			t.Fatal("equal recipes produced different programs")
		}
	})
}

func TestVSRecipeFor(t *testing.T) {
	// Pre-transformed variants bypass lighting and fog.
	got := VSRecipeFor(fvf.VariantRHWColorTex1, true, true)
	want := VSRecipe{Pretransformed: true, HasDiffuse: true, HasTex: true}
	if got != want {
		t.Fatalf("recipe = %+v, want %+v", got, want)
	}

	// Lighting requires a normal.
	got = VSRecipeFor(fvf.VariantXYZColor, true, false)
	if got.Lit {
		t.Fatal("lighting enabled without a normal")
	}
	got = VSRecipeFor(fvf.VariantXYZNormalColor, true, false)
	if !got.Lit {
		t.Fatal("lighting not enabled for a lit variant with normals")
	}
}
