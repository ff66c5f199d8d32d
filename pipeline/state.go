package pipeline

import (
	"math"

	"github.com/gogpu/aerod3d9/cmdstream"
	"github.com/gogpu/aerod3d9/shader"
)

// Render-state ids intercepted by the device. Values are fixed by the
// legacy API. States not listed here pass through to the backend
// unmodified.
const (
	RenderStateFogEnable     uint32 = 28
	RenderStateFogStart      uint32 = 36
	RenderStateFogEnd        uint32 = 37
	RenderStateTextureFactor uint32 = 60
	RenderStateLighting      uint32 = 137
)

// Stream frequency encoding, as packed by the legacy API. The count in
// the low bits is an instance count on stream 0 (INDEXEDDATA) or a
// divisor on per-instance streams (INSTANCEDATA).
const (
	StreamFreqIndexedData  uint32 = 1 << 30
	StreamFreqInstanceData uint32 = 1 << 31

	streamFreqCountMask uint32 = (1 << 30) - 1
)

// SetFVF selects the packed vertex format for subsequent draws, clearing
// any declaration set earlier. Resolution is deferred to draw time.
func (d *Device) SetFVF(fvfBits uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLost(); err != nil {
		return err
	}
	d.fvfBits = fvfBits
	d.declBlob = nil
	d.resolved = nil
	return nil
}

// SetVertexDeclaration selects an explicit declaration blob for
// subsequent draws, clearing any packed format set earlier. The blob is
// copied; resolution is deferred to draw time.
func (d *Device) SetVertexDeclaration(blob []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLost(); err != nil {
		return err
	}
	d.declBlob = append([]byte(nil), blob...)
	d.fvfBits = 0
	d.resolved = nil
	return nil
}

// SetStreamSource binds a vertex buffer to a stream slot and emits the
// binding. A zero buffer unbinds the slot.
func (d *Device) SetStreamSource(stream uint32, buffer cmdstream.Handle, offset, stride uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLost(); err != nil {
		return err
	}
	if stream >= MaxStreams {
		return ErrBadParameter
	}
	src := streamSource{buffer: buffer, offset: offset, stride: stride}
	if d.streams[stream] == src {
		return nil
	}
	d.streams[stream] = src
	d.enc.SetVertexBuffers(stream, []cmdstream.VertexBufferBinding{
		{Buffer: buffer, Stride: stride, Offset: offset},
	})
	return nil
}

// SetStreamSourceFreq sets the frequency annotation of a stream slot.
// The value is host-side only; the instancing expander consumes it.
func (d *Device) SetStreamSourceFreq(stream, value uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLost(); err != nil {
		return err
	}
	if stream >= MaxStreams {
		return ErrBadParameter
	}
	if value == 0 {
		value = 1
	}
	d.streamFreq[stream] = value
	return nil
}

// SetIndices binds the index buffer and emits the binding. A zero buffer
// unbinds.
func (d *Device) SetIndices(buffer cmdstream.Handle, format cmdstream.IndexFormat, offsetBytes uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLost(); err != nil {
		return err
	}
	d.indexBuf, d.indexFmt, d.indexOff = buffer, format, offsetBytes
	d.enc.SetIndexBuffer(buffer, format, offsetBytes)
	return nil
}

// SetTexture binds a texture to a pixel slot and emits the binding. A
// zero handle unbinds; bind state on the first four slots feeds chain
// truncation at the next draw.
func (d *Device) SetTexture(slot uint32, texture cmdstream.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLost(); err != nil {
		return err
	}
	if slot >= MaxTextureSlots {
		return ErrBadParameter
	}
	if d.textures[slot] == texture {
		return nil
	}
	d.textures[slot] = texture
	d.enc.SetTexture(cmdstream.StagePixel, slot, texture)
	return nil
}

// SetTextureStageState applies one combiner state id/value pair. State on
// stages past the modeled chain is accepted and ignored, as are unknown
// state ids.
func (d *Device) SetTextureStageState(stage, state, value uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLost(); err != nil {
		return err
	}
	if stage >= shader.MaxTextureStages {
		return nil
	}
	d.stages[stage].Set(state, value)
	return nil
}

// SetSamplerState emits one sampler state id/value pair for a pixel slot.
func (d *Device) SetSamplerState(slot, state, value uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLost(); err != nil {
		return err
	}
	if slot >= MaxTextureSlots {
		return ErrBadParameter
	}
	d.enc.SetSamplerState(cmdstream.StagePixel, slot, state, value)
	return nil
}

// SetRenderState applies one render state id/value pair. Fixed-function
// states (lighting, fog, texture factor) are consumed host-side and feed
// variant selection or constant uploads; everything else passes through
// to the backend.
func (d *Device) SetRenderState(state, value uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLost(); err != nil {
		return err
	}
	switch state {
	case RenderStateLighting:
		d.lighting = value != 0
	case RenderStateFogEnable:
		d.fogEnable = value != 0
	case RenderStateFogStart:
		d.fogStart = math.Float32frombits(value)
		d.fogDirty = true
	case RenderStateFogEnd:
		d.fogEnd = math.Float32frombits(value)
		d.fogDirty = true
	case RenderStateTextureFactor:
		if d.tfactor != value {
			d.tfactor = value
			d.tfactorDirty = true
		}
	default:
		d.enc.SetRenderState(state, value)
	}
	return nil
}

// SetTransform replaces one of the world, view or projection matrices.
func (d *Device) SetTransform(which uint32, m Matrix) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLost(); err != nil {
		return err
	}
	switch which {
	case TransformWorld:
		d.world = m
	case TransformView:
		d.view = m
	case TransformProjection:
		d.proj = m
	default:
		return ErrBadParameter
	}
	d.wvpDirty = true
	d.fogDirty = true
	return nil
}

// SetViewport sets the screen-space mapping and emits it.
func (d *Device) SetViewport(vp Viewport) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLost(); err != nil {
		return err
	}
	if vp.Width <= 0 || vp.Height <= 0 {
		return ErrBadParameter
	}
	d.viewport = vp
	d.enc.SetViewport(vp.X, vp.Y, vp.Width, vp.Height, vp.MinZ, vp.MaxZ)
	return nil
}

// SetDirectionalLight configures the single directional light feeding the
// lit vertex path. dir points from the surface toward the light source in
// object space.
func (d *Device) SetDirectionalLight(dir [3]float32, color, ambient [4]float32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLost(); err != nil {
		return err
	}
	d.lightDir = dir
	d.lightColor = color
	d.ambient = ambient
	d.lightDirty = true
	return nil
}

// SetRenderTarget binds the color and depth targets. Zero unbinds either.
func (d *Device) SetRenderTarget(color, depth cmdstream.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLost(); err != nil {
		return err
	}
	d.enc.SetRenderTargets(color, depth)
	return nil
}

// Clear emits a CLEAR packet for the bound targets.
func (d *Device) Clear(flags uint32, r, g, b, a, depth float32, stencil uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLost(); err != nil {
		return err
	}
	d.enc.Clear(flags, r, g, b, a, depth, stencil)
	return nil
}

// CreateVertexShader registers an application vertex program and emits
// its creation packet.
func (d *Device) CreateVertexShader(tokens []byte) (cmdstream.Handle, error) {
	return d.createUserShader(cmdstream.StageVertex, tokens)
}

// CreatePixelShader registers an application pixel program and emits its
// creation packet.
func (d *Device) CreatePixelShader(tokens []byte) (cmdstream.Handle, error) {
	return d.createUserShader(cmdstream.StagePixel, tokens)
}

func (d *Device) createUserShader(stage cmdstream.ShaderStage, tokens []byte) (cmdstream.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLost(); err != nil {
		return 0, err
	}
	if len(tokens) == 0 {
		return 0, ErrBadParameter
	}
	h := d.handles.Next()
	d.shaders[h] = &userShader{stage: stage, tokens: append([]byte(nil), tokens...)}
	d.enc.CreateShader(h, stage, tokens)
	return h, nil
}

// SetVertexShader binds an application vertex program; zero restores
// fixed-function vertex processing at the next draw.
func (d *Device) SetVertexShader(h cmdstream.Handle) error {
	return d.setUserShader(h, cmdstream.StageVertex)
}

// SetPixelShader binds an application pixel program; zero restores the
// fixed-function combiner chain at the next draw.
func (d *Device) SetPixelShader(h cmdstream.Handle) error {
	return d.setUserShader(h, cmdstream.StagePixel)
}

func (d *Device) setUserShader(h cmdstream.Handle, stage cmdstream.ShaderStage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLost(); err != nil {
		return err
	}
	if h != 0 {
		sh, ok := d.shaders[h]
		if !ok || sh.stage != stage {
			return ErrBadParameter
		}
	}
	if stage == cmdstream.StageVertex {
		d.userVS = h
	} else {
		d.userPS = h
	}
	return nil
}

// DestroyShader releases an application program. A bound program is
// unbound first so no later draw can reference the dead handle.
func (d *Device) DestroyShader(h cmdstream.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLost(); err != nil {
		return err
	}
	if _, ok := d.shaders[h]; !ok {
		return ErrBadParameter
	}
	if d.userVS == h {
		d.userVS = 0
	}
	if d.userPS == h {
		d.userPS = 0
	}
	if d.boundVS == h || d.boundPS == h {
		// Force a rebind before the destroy reaches the backend.
		if d.boundVS == h {
			d.boundVS = 0
		}
		if d.boundPS == h {
			d.boundPS = 0
		}
		d.enc.BindShaders(d.boundVS, d.boundPS)
	}
	delete(d.shaders, h)
	d.enc.DestroyShader(h)
	return nil
}
