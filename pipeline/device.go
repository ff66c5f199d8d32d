// Package pipeline implements the per-device translation context: it owns
// the resource and shader handle tables, canonicalizes fixed-function state
// into cached program variants, and drives the command-stream encoder so
// that every draw leaves the backend with a valid {layout, vs, ps} triple.
//
// A Device serializes all public operations under one mutex and never
// blocks inside it; the only blocking point in the package is
// FenceTracker.Wait. Once a device is marked lost every entry point returns
// ErrDeviceLost without touching shared state.
package pipeline

import (
	"log/slog"
	"sync"

	"github.com/gogpu/aerod3d9"
	"github.com/gogpu/aerod3d9/cmdstream"
	"github.com/gogpu/aerod3d9/fvf"
	"github.com/gogpu/aerod3d9/shader"
)

// Binding table dimensions.
const (
	// MaxStreams is the number of vertex stream slots.
	MaxStreams = 16

	// MaxTextureSlots is the number of pixel texture slots. Only the
	// first shader.MaxTextureStages slots feed the combiner chain.
	MaxTextureSlots = 16
)

// streamSource is one vertex stream binding as set by the application.
type streamSource struct {
	buffer cmdstream.Handle
	offset uint32
	stride uint32
}

// userShader records an application-supplied program.
type userShader struct {
	stage  cmdstream.ShaderStage
	tokens []byte
}

// Device is the translation context for one logical device. It owns the
// command encoder, the handle tables and the layout and variant caches,
// and tracks enough binding state to skip redundant wire packets.
type Device struct {
	mu   sync.Mutex
	lost bool

	enc     *cmdstream.Encoder
	handles handleAllocator
	fences  *FenceTracker

	resources map[cmdstream.Handle]*resource
	shaders   map[cmdstream.Handle]*userShader

	resolver *fvf.Resolver
	variants *VariantCache

	// Layout selection. resolved is nil until a draw resolves the
	// current FVF or declaration; createdLayouts and createdShaders
	// remember which handles already have creation packets on the wire.
	fvfBits        uint32
	declBlob       []byte
	resolved       *fvf.Resolved
	createdLayouts map[cmdstream.Handle]bool
	createdShaders map[cmdstream.Handle]bool

	// Application bindings.
	streams    [MaxStreams]streamSource
	streamFreq [MaxStreams]uint32
	indexBuf   cmdstream.Handle
	indexFmt   cmdstream.IndexFormat
	indexOff   uint32
	textures   [MaxTextureSlots]cmdstream.Handle
	stages     [shader.MaxTextureStages]shader.StageState
	userVS     cmdstream.Handle
	userPS     cmdstream.Handle

	// Intercepted render state.
	lighting  bool
	fogEnable bool
	fogStart  float32
	fogEnd    float32
	tfactor   uint32

	// Directional light feeding the lit vertex path.
	lightDir   [3]float32
	lightColor [4]float32
	ambient    [4]float32

	world, view, proj Matrix
	viewport          Viewport

	// Dirty flags consumed by the draw-time pipeline check.
	wvpDirty     bool
	fogDirty     bool
	tfactorDirty bool
	lightDirty   bool

	// Wire-side bound state for dirty checks.
	boundVS     cmdstream.Handle
	boundPS     cmdstream.Handle
	boundLayout cmdstream.Handle
	topology    cmdstream.Topology

	// Instancing scratch buffers, grown on demand.
	scratchVB [MaxStreams]scratchBuffer
	scratchIB scratchBuffer
}

// NewDevice creates a device with legacy default state: lighting on, fog
// off, identity transforms, default texture stage chain.
func NewDevice() *Device {
	d := &Device{
		enc:            cmdstream.NewEncoder(),
		fences:         NewFenceTracker(),
		resources:      make(map[cmdstream.Handle]*resource),
		shaders:        make(map[cmdstream.Handle]*userShader),
		createdLayouts: make(map[cmdstream.Handle]bool),
		createdShaders: make(map[cmdstream.Handle]bool),
		stages:         shader.DefaultStageStates(),
		lighting:       true,
		fogEnd:         1,
		tfactor:        0xFFFFFFFF,
		lightDir:       [3]float32{0, 0, 1},
		lightColor:     [4]float32{1, 1, 1, 1},
		ambient:        [4]float32{0, 0, 0, 1},
		world:          Identity(),
		view:           Identity(),
		proj:           Identity(),
		viewport:       DefaultViewport(),
		wvpDirty:       true,
		fogDirty:       true,
		tfactorDirty:   true,
		lightDirty:     true,
	}
	for i := range d.streamFreq {
		d.streamFreq[i] = 1
	}
	d.resolver = fvf.NewResolver(d.handles.Next)
	d.variants = NewVariantCache(d.handles.Next)
	return d
}

// checkLost returns ErrDeviceLost when the device has been marked lost.
// Caller holds d.mu.
func (d *Device) checkLost() error {
	if d.lost {
		return ErrDeviceLost
	}
	return nil
}

// MarkLost transitions the device into the sticky lost state. Every later
// entry point fails with ErrDeviceLost.
func (d *Device) MarkLost() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.lost {
		d.lost = true
		d.log().Warn("device marked lost")
	}
}

// Lost reports whether the device is in the lost state.
func (d *Device) Lost() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lost
}

func (d *Device) log() *slog.Logger { return aerod3d9.Logger() }

// Fences returns the device's fence tracker. Wait is safe to call without
// holding any device operation open.
func (d *Device) Fences() *FenceTracker { return d.fences }

// Submit finalizes the current command stream, stamps it with a fresh
// fence value and resets the encoder for the next frame. The returned
// bytes are a copy owned by the caller.
func (d *Device) Submit() (stream []byte, fence uint64, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLost(); err != nil {
		return nil, 0, err
	}
	d.enc.Flush()
	buf, err := d.enc.Finalize()
	if err != nil {
		return nil, 0, err
	}
	stream = append([]byte(nil), buf...)
	fence = d.fences.NextFence()

	// Device state persists on the backend across submissions, so bound
	// handles and creation bookkeeping survive the encoder reset.
	d.enc.Reset()

	d.log().Debug("stream submitted", "bytes", len(stream), "fence", fence)
	return stream, fence, nil
}

// StreamLen returns the current encoded stream length in bytes.
func (d *Device) StreamLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enc.Len()
}

// StreamBytes finalizes and returns a copy of the stream built so far
// without resetting the encoder. Intended for tests and debugging tools.
func (d *Device) StreamBytes() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLost(); err != nil {
		return nil, err
	}
	buf, err := d.enc.Finalize()
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), buf...), nil
}
