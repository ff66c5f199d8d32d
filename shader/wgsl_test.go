package shader

import (
	"strings"
	"testing"

	"github.com/gogpu/naga"
)

func mirrorRecipes(t *testing.T) (VSRecipe, PSRecipe) {
	t.Helper()
	stage1 := StageState{
		ColorOp: OpModulate, ColorArg1: ArgTexture, ColorArg2: ArgCurrent,
		AlphaOp: OpSelectArg1, AlphaArg1: ArgCurrent, AlphaArg2: ArgCurrent,
	}
	ps, err := BuildStageRecipes(chain(selectTexture(), stage1), 0b11)
	if err != nil {
		t.Fatal(err)
	}
	ps.HasTexCoord = true
	ps.HasDiffuse = true
	vs := VSRecipe{HasDiffuse: true, HasTex: true}
	return vs, ps
}

func TestMirrorWGSLParses(t *testing.T) {
	vs, ps := mirrorRecipes(t)
	src := MirrorWGSL(vs, ps)
	if _, err := naga.Parse(src); err != nil {
		t.Fatalf("mirror does not parse: %v\n%s", err, src)
	}
	if !strings.Contains(src, "textureSample(tex0, samp0, in.uv)") {
		t.Errorf("stage 0 sample missing:\n%s", src)
	}
	if !strings.Contains(src, "textureSample(tex1, samp1, in.uv)") {
		t.Errorf("stage 1 sample missing:\n%s", src)
	}
}

func TestMirrorWGSLEmptyChain(t *testing.T) {
	src := MirrorWGSL(VSRecipe{HasDiffuse: true}, PSRecipe{HasDiffuse: true})
	if strings.Contains(src, "textureSample") {
		t.Errorf("empty chain samples a texture:\n%s", src)
	}
	if _, err := naga.Parse(src); err != nil {
		t.Fatalf("mirror does not parse: %v\n%s", err, src)
	}
}

func TestCompileMirror(t *testing.T) {
	vs, ps := mirrorRecipes(t)
	spv, err := CompileMirror(vs, ps)
	if err != nil {
		t.Fatalf("CompileMirror: %v", err)
	}
	if len(spv) == 0 {
		t.Fatal("empty SPIR-V module")
	}
}

func TestMirrorWGSLLit(t *testing.T) {
	vs := VSRecipe{HasNormal: true, HasDiffuse: true, Lit: true}
	src := MirrorWGSL(vs, PSRecipe{HasDiffuse: true})
	if !strings.Contains(src, "ndotl") {
		t.Errorf("lit mirror has no lighting term:\n%s", src)
	}
	if _, err := naga.Parse(src); err != nil {
		t.Fatalf("mirror does not parse: %v\n%s", err, src)
	}
}
