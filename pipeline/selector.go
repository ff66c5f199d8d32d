package pipeline

import (
	"github.com/gogpu/aerod3d9/cmdstream"
	"github.com/gogpu/aerod3d9/fvf"
	"github.com/gogpu/aerod3d9/shader"
)

// resolveCurrentLayout resolves the current FVF or declaration through the
// layout cache without emitting packets. Returns nil with a nil error when
// no layout has been set. Caller holds d.mu.
func (d *Device) resolveCurrentLayout() (*fvf.Resolved, error) {
	if d.resolved != nil {
		return d.resolved, nil
	}
	var (
		res *fvf.Resolved
		err error
	)
	switch {
	case d.declBlob != nil:
		res, _, err = d.resolver.ResolveDecl(d.declBlob)
	case d.fvfBits != 0:
		res, _, err = d.resolver.Resolve(d.fvfBits)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.resolved = res
	return res, nil
}

// boundStageMask returns a bitmask of combiner slots with a texture bound.
// Caller holds d.mu.
func (d *Device) boundStageMask() uint32 {
	var mask uint32
	for i := 0; i < shader.MaxTextureStages; i++ {
		if d.textures[i] != 0 {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

// ensureDrawState validates the current fixed-function state and brings
// the wire-side {layout, vs, ps} triple plus the derived constants up to
// date, emitting creation and bind packets only on change. Any error is
// returned before the first packet of the draw is appended. Caller holds
// d.mu.
func (d *Device) ensureDrawState() error {
	res, err := d.resolveCurrentLayout()
	if err != nil && d.userVS == 0 {
		// Fixed-function vertex processing cannot run without a
		// supported layout.
		return err
	}
	if res == nil && d.userVS == 0 {
		return ErrNoVertexLayout
	}

	vs := d.userVS
	ps := d.userPS

	var vsRecipe shader.VSRecipe
	needVS := vs == 0
	if needVS {
		vsRecipe = shader.VSRecipeFor(res.Variant, d.lighting, d.fogEnable)
	}

	var psRecipe shader.PSRecipe
	needPS := ps == 0
	if needPS {
		psRecipe, err = shader.BuildStageRecipes(d.stages, d.boundStageMask())
		if err != nil {
			return err
		}
		if res != nil {
			psRecipe.HasTexCoord = fvf.HasTex(res.Variant)
			psRecipe.HasDiffuse = fvf.HasDiffuse(res.Variant)
		} else {
			// A user vertex program decides its own outputs; declare
			// both interpolants so every combiner source is readable.
			psRecipe.HasTexCoord = true
			psRecipe.HasDiffuse = true
		}
	}

	// Synthesize missing programs through the variant cache.
	if needVS {
		entry, created := d.variants.VertexProgram(vsRecipe)
		if created || !d.createdShaders[entry.handle] {
			d.enc.CreateShader(entry.handle, cmdstream.StageVertex, entry.tokens)
			d.createdShaders[entry.handle] = true
			d.log().Debug("vertex variant synthesized", "handle", entry.handle, "bytes", len(entry.tokens))
		}
		vs = entry.handle
	}
	if needPS {
		entry, created := d.variants.PixelProgram(psRecipe)
		if created || !d.createdShaders[entry.handle] {
			d.enc.CreateShader(entry.handle, cmdstream.StagePixel, entry.tokens)
			d.createdShaders[entry.handle] = true
			d.log().Debug("pixel variant synthesized", "handle", entry.handle,
				"stages", psRecipe.StageCount, "samplers", psRecipe.SamplerMask())
		}
		ps = entry.handle
	}

	// Input layout: create once, bind on change.
	if res != nil {
		if !d.createdLayouts[res.Handle] {
			d.enc.CreateInputLayout(res.Handle, res.Blob)
			d.createdLayouts[res.Handle] = true
		}
		if d.boundLayout != res.Handle {
			d.enc.SetInputLayout(res.Handle)
			d.boundLayout = res.Handle
		}
	}

	if d.boundVS != vs || d.boundPS != ps {
		d.enc.BindShaders(vs, ps)
		d.boundVS, d.boundPS = vs, ps
	}

	// Constants for the synthesized stages.
	if needVS {
		if !vsRecipe.Pretransformed && d.wvpDirty {
			wvp := d.world.Mul(d.view).Mul(d.proj)
			d.enc.SetShaderConstantsF(cmdstream.StageVertex, shader.VSConstWVP0, 4, wvp.columnsBytes())
			d.wvpDirty = false
		}
		if vsRecipe.Lit && d.lightDirty {
			data := make([]byte, 0, 48)
			// Negated so the program's dp3 yields N dot L directly.
			data = appendF32(data, -d.lightDir[0])
			data = appendF32(data, -d.lightDir[1])
			data = appendF32(data, -d.lightDir[2])
			data = appendF32(data, 0)
			for _, v := range d.lightColor {
				data = appendF32(data, v)
			}
			for _, v := range d.ambient {
				data = appendF32(data, v)
			}
			d.enc.SetShaderConstantsF(cmdstream.StageVertex, shader.VSConstLightDir, 3, data)
			d.lightDirty = false
		}
		if vsRecipe.Fog && d.fogDirty {
			fogRange := d.fogEnd - d.fogStart
			if fogRange == 0 {
				fogRange = 1
			}
			data := make([]byte, 0, 16)
			data = appendF32(data, -1/fogRange)
			data = appendF32(data, d.fogEnd/fogRange)
			data = appendF32(data, 0)
			data = appendF32(data, 0)
			d.enc.SetShaderConstantsF(cmdstream.StageVertex, shader.VSConstFog, 1, data)
			d.fogDirty = false
		}
	}
	if needPS && psRecipe.TFactorUsed() && d.tfactorDirty {
		c := d.tfactor
		data := make([]byte, 0, 16)
		data = appendF32(data, float32((c>>16)&0xFF)/255)
		data = appendF32(data, float32((c>>8)&0xFF)/255)
		data = appendF32(data, float32(c&0xFF)/255)
		data = appendF32(data, float32(c>>24)/255)
		d.enc.SetShaderConstantsF(cmdstream.StagePixel, shader.PSConstTFactor, 1, data)
		d.tfactorDirty = false
	}

	return nil
}

// setTopology emits the topology on change. Caller holds d.mu.
func (d *Device) setTopology(t cmdstream.Topology) {
	if d.topology != t {
		d.enc.SetPrimitiveTopology(t)
		d.topology = t
	}
}
