package shader

import (
	"fmt"
	"strings"

	"github.com/gogpu/naga"
)

// WGSL mirrors.
//
// The token streams bound through CREATE_SHADER are what the backend
// executes, but a textual mirror of the same program is invaluable for
// debugging and for backends that consume SPIR-V directly. MirrorWGSL
// renders a recipe pair as WGSL; CompileMirror pushes the mirror through
// the naga compiler, which doubles as a structural validation of the
// synthesized program.

// MirrorWGSL renders the vertex and fragment programs of a recipe pair as
// one WGSL module with vs_main and fs_main entry points.
func MirrorWGSL(vs VSRecipe, ps PSRecipe) string {
	var b strings.Builder

	mask := ps.SamplerMask()
	binding := 0
	for i := 0; i < int(ps.StageCount); i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		fmt.Fprintf(&b, "@group(0) @binding(%d) var samp%d: sampler;\n", binding, i)
		fmt.Fprintf(&b, "@group(0) @binding(%d) var tex%d: texture_2d<f32>;\n", binding+1, i)
		binding += 2
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}

	b.WriteString("struct VsOut {\n")
	b.WriteString("    @builtin(position) position: vec4<f32>,\n")
	b.WriteString("    @location(0) color: vec4<f32>,\n")
	if vs.HasTex {
		b.WriteString("    @location(1) uv: vec2<f32>,\n")
	}
	b.WriteString("}\n\n")

	b.WriteString("@vertex\nfn vs_main(\n")
	loc := 0
	posType := "vec3<f32>"
	if vs.Pretransformed {
		posType = "vec4<f32>"
	}
	fmt.Fprintf(&b, "    @location(%d) position: %s,\n", loc, posType)
	loc++
	if vs.HasNormal {
		fmt.Fprintf(&b, "    @location(%d) normal: vec3<f32>,\n", loc)
		loc++
	}
	if vs.HasDiffuse {
		fmt.Fprintf(&b, "    @location(%d) color: vec4<f32>,\n", loc)
		loc++
	}
	if vs.HasTex {
		fmt.Fprintf(&b, "    @location(%d) uv: vec2<f32>,\n", loc)
		loc++
	}
	b.WriteString(") -> VsOut {\n")
	b.WriteString("    var out: VsOut;\n")
	if vs.Pretransformed {
		b.WriteString("    out.position = position;\n")
	} else {
		b.WriteString("    out.position = vec4<f32>(position, 1.0);\n")
	}
	switch {
	case vs.Lit:
		b.WriteString("    let ndotl = max(dot(normal, vec3<f32>(0.0, 0.0, 1.0)), 0.0);\n")
		if vs.HasDiffuse {
			b.WriteString("    out.color = color * vec4<f32>(ndotl, ndotl, ndotl, 1.0);\n")
		} else {
			b.WriteString("    out.color = vec4<f32>(ndotl, ndotl, ndotl, 1.0);\n")
		}
	case vs.HasDiffuse:
		b.WriteString("    out.color = color;\n")
	default:
		b.WriteString("    out.color = vec4<f32>(1.0, 1.0, 1.0, 1.0);\n")
	}
	if vs.HasTex {
		b.WriteString("    out.uv = uv;\n")
	}
	b.WriteString("    return out;\n}\n\n")

	b.WriteString("@fragment\nfn fs_main(in: VsOut) -> @location(0) vec4<f32> {\n")
	b.WriteString("    var current = in.color;\n")
	for i := 0; i < int(ps.StageCount); i++ {
		s := ps.Stages[i]
		if mask&(1<<uint(i)) != 0 {
			uv := "vec2<f32>(0.0, 0.0)"
			if vs.HasTex {
				uv = "in.uv"
			}
			fmt.Fprintf(&b, "    let t%d = textureSample(tex%d, samp%d, %s);\n", i, i, i, uv)
		}
		fmt.Fprintf(&b, "    current = vec4<f32>(%s, %s);\n",
			wgslCombine(s.ColorOp, s.ColorArg1, s.ColorArg2, i, ".rgb"),
			wgslCombine(s.AlphaOp, s.AlphaArg1, s.AlphaArg2, i, ".a"))
	}
	b.WriteString("    return current;\n}\n")
	return b.String()
}

func wgslArg(a StageArg, stage int, comp string) string {
	switch a {
	case ArgCurrent:
		return "current" + comp
	case ArgTexture:
		return fmt.Sprintf("t%d%s", stage, comp)
	case ArgTFactor:
		// The mirror freezes the factor at opaque white; the token
		// program reads it from a constant register instead.
		return "vec4<f32>(1.0)" + comp
	default:
		return "in.color" + comp
	}
}

func wgslCombine(op StageOp, arg1, arg2 StageArg, stage int, comp string) string {
	a1 := wgslArg(arg1, stage, comp)
	a2 := wgslArg(arg2, stage, comp)
	switch op {
	case OpSelectArg1:
		return a1
	case OpSelectArg2:
		return a2
	case OpModulate:
		return fmt.Sprintf("%s * %s", a1, a2)
	case OpAdd:
		return fmt.Sprintf("%s + %s", a1, a2)
	case OpBlendTextureAlpha:
		return fmt.Sprintf("mix(%s, %s, t%d.a)", a2, a1, stage)
	default:
		return a1
	}
}

// CompileMirror renders the recipe pair as WGSL and compiles it to
// SPIR-V. The returned module carries both entry points.
func CompileMirror(vs VSRecipe, ps PSRecipe) ([]byte, error) {
	src := MirrorWGSL(vs, ps)
	spv, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("shader: mirror compile: %w", err)
	}
	return spv, nil
}
