package pipeline

import "github.com/gogpu/aerod3d9/cmdstream"

// PrimitiveType is a legacy draw primitive type. Values are fixed by the
// legacy API and match the wire topology encoding.
type PrimitiveType uint32

const (
	PrimPointList     PrimitiveType = 1
	PrimLineList      PrimitiveType = 2
	PrimLineStrip     PrimitiveType = 3
	PrimTriangleList  PrimitiveType = 4
	PrimTriangleStrip PrimitiveType = 5
	PrimTriangleFan   PrimitiveType = 6
)

func (t PrimitiveType) valid() bool {
	return t >= PrimPointList && t <= PrimTriangleFan
}

// isList reports whether primitives are independent, so vertex ranges can
// be concatenated across instances.
func (t PrimitiveType) isList() bool {
	switch t {
	case PrimPointList, PrimLineList, PrimTriangleList:
		return true
	default:
		return false
	}
}

func (t PrimitiveType) topology() cmdstream.Topology {
	return cmdstream.Topology(t)
}

// vertexCount returns the number of vertices consumed by primCount
// primitives of this type.
func (t PrimitiveType) vertexCount(primCount uint32) uint32 {
	switch t {
	case PrimPointList:
		return primCount
	case PrimLineList:
		return primCount * 2
	case PrimLineStrip:
		return primCount + 1
	case PrimTriangleList:
		return primCount * 3
	case PrimTriangleStrip, PrimTriangleFan:
		return primCount + 2
	default:
		return 0
	}
}

// instanceCount returns the instance count requested through stream
// frequency state, or 1 when instancing is off. Caller holds d.mu.
func (d *Device) instanceCount() uint32 {
	freq := d.streamFreq[0]
	if freq&StreamFreqIndexedData == 0 {
		return 1
	}
	n := freq & streamFreqCountMask
	if n == 0 {
		return 1
	}
	return n
}

// DrawPrimitive draws primCount non-indexed primitives starting at
// startVertex.
func (d *Device) DrawPrimitive(t PrimitiveType, startVertex, primCount uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLost(); err != nil {
		return err
	}
	if !t.valid() || primCount == 0 {
		return ErrBadParameter
	}
	instances := d.instanceCount()
	if instances > 1 {
		return d.drawInstanced(t, drawRequest{
			vertexCount: t.vertexCount(primCount),
			startVertex: startVertex,
			instances:   instances,
		})
	}
	if err := d.ensureDrawState(); err != nil {
		return err
	}
	d.setTopology(t.topology())
	d.enc.Draw(t.vertexCount(primCount), startVertex)
	return nil
}

// DrawIndexedPrimitive draws primCount indexed primitives. baseVertex is
// added to every fetched index and may be negative when stream offsets
// compensate.
func (d *Device) DrawIndexedPrimitive(t PrimitiveType, baseVertex int32, firstIndex, primCount uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLost(); err != nil {
		return err
	}
	if !t.valid() || primCount == 0 {
		return ErrBadParameter
	}
	if d.indexBuf == 0 {
		return ErrBadParameter
	}
	instances := d.instanceCount()
	if instances > 1 {
		return d.drawInstanced(t, drawRequest{
			indexed:    true,
			indexCount: t.vertexCount(primCount),
			firstIndex: firstIndex,
			baseVertex: baseVertex,
			instances:  instances,
		})
	}
	if err := d.ensureDrawState(); err != nil {
		return err
	}
	d.setTopology(t.topology())
	d.enc.DrawIndexed(t.vertexCount(primCount), firstIndex, baseVertex)
	return nil
}

// DrawPrimitiveUP draws primCount primitives from application memory. The
// vertex data is uploaded to scratch storage, stream 0 is temporarily
// rebound, and the application's stream 0 binding is restored afterward.
func (d *Device) DrawPrimitiveUP(t PrimitiveType, primCount uint32, data []byte, stride uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLost(); err != nil {
		return err
	}
	if !t.valid() || primCount == 0 || stride == 0 {
		return ErrBadParameter
	}
	vcount := t.vertexCount(primCount)
	need := uint64(vcount) * uint64(stride)
	if uint64(len(data)) < need {
		return ErrBadParameter
	}
	if err := d.ensureDrawState(); err != nil {
		return err
	}

	scratch := d.ensureScratch(&d.scratchVB[0], need, cmdstream.UsageVertexBuffer)
	copy(d.resources[scratch].shadow, data[:need])
	d.enc.UploadResource(scratch, 0, data[:need])
	d.enc.SetVertexBuffers(0, []cmdstream.VertexBufferBinding{
		{Buffer: scratch, Stride: stride},
	})

	d.setTopology(t.topology())
	d.enc.Draw(vcount, 0)

	d.restoreStream(0)
	return nil
}

// restoreStream re-emits the application's binding for a stream slot
// after a temporary rebind. Caller holds d.mu.
func (d *Device) restoreStream(slot uint32) {
	s := d.streams[slot]
	d.enc.SetVertexBuffers(slot, []cmdstream.VertexBufferBinding{
		{Buffer: s.buffer, Stride: s.stride, Offset: s.offset},
	})
}
