package pipeline

import (
	"encoding/binary"

	"github.com/gogpu/aerod3d9/cmdstream"
	"github.com/gogpu/aerod3d9/shader"
)

// scratchBuffer is a reusable backend buffer for expanded vertex or index
// data. Capacity only grows; a draw in progress never sees a reallocation.
type scratchBuffer struct {
	handle   cmdstream.Handle
	capacity uint64
}

// drawRequest carries one draw call through the instancing expander.
type drawRequest struct {
	indexed     bool
	vertexCount uint32
	startVertex uint32
	indexCount  uint32
	firstIndex  uint32
	baseVertex  int32
	instances   uint32
}

// ensureScratch returns a scratch buffer handle with at least size bytes
// of capacity, growing (and re-creating) the buffer when needed. Caller
// holds d.mu.
func (d *Device) ensureScratch(sb *scratchBuffer, size uint64, usage uint32) cmdstream.Handle {
	if sb.handle != 0 && sb.capacity >= size {
		return sb.handle
	}
	capacity := sb.capacity * 2
	if capacity < size {
		capacity = size
	}
	if capacity < 256 {
		capacity = 256
	}
	if sb.handle != 0 {
		delete(d.resources, sb.handle)
		d.enc.DestroyResource(sb.handle)
	}
	h := d.handles.Next()
	d.resources[h] = &resource{
		kind:   kindBuffer,
		size:   capacity,
		usage:  usage,
		shadow: make([]byte, capacity),
	}
	d.enc.CreateBuffer(h, usage, capacity)
	sb.handle, sb.capacity = h, capacity
	return h
}

// uploadScratch copies data into a scratch buffer's shadow and emits the
// upload. Caller holds d.mu.
func (d *Device) uploadScratch(h cmdstream.Handle, data []byte) {
	copy(d.resources[h].shadow, data)
	d.enc.UploadResource(h, 0, data)
}

// readIndices decodes count indices starting at first from the bound
// index buffer's host shadow.
func (d *Device) readIndices(first, count uint32) ([]uint32, error) {
	shadow := d.bufferShadow(d.indexBuf)
	if shadow == nil {
		return nil, ErrBadParameter
	}
	width := uint32(2)
	if d.indexFmt == cmdstream.IndexUint32 {
		width = 4
	}
	start := uint64(d.indexOff) + uint64(first)*uint64(width)
	end := start + uint64(count)*uint64(width)
	if end > uint64(len(shadow)) {
		return nil, ErrBadParameter
	}
	out := make([]uint32, count)
	for i := range out {
		off := start + uint64(i)*uint64(width)
		if width == 2 {
			out[i] = uint32(binary.LittleEndian.Uint16(shadow[off:]))
		} else {
			out[i] = binary.LittleEndian.Uint32(shadow[off:])
		}
	}
	return out, nil
}

// streamDivisor returns the per-instance divisor of a stream slot, or 0
// when the slot advances per vertex. Caller holds d.mu.
func (d *Device) streamDivisor(slot uint32) uint32 {
	freq := d.streamFreq[slot]
	if freq&StreamFreqInstanceData == 0 {
		return 0
	}
	div := freq & streamFreqCountMask
	if div == 0 {
		div = 1
	}
	return div
}

// drawInstanced rewrites an instanced draw the backend cannot execute
// natively. List topologies expand into scratch buffers and one indexed
// draw; strip and fan topologies loop one draw per instance with
// temporarily rebound streams. Caller holds d.mu.
func (d *Device) drawInstanced(t PrimitiveType, req drawRequest) error {
	// This emulation only works for application vertex programs; the
	// fixed-function variants have no per-instance inputs.
	if d.userVS == 0 {
		return shader.ErrInvalidCombination
	}
	if err := d.ensureDrawState(); err != nil {
		return err
	}
	if t.isList() {
		return d.expandListDraw(t, req)
	}
	return d.loopStripDraw(t, req)
}

// expandListDraw concatenates per-vertex ranges across instances, repeats
// per-instance elements, rebases indices to [0, N) and emits one indexed
// draw against the expanded data.
func (d *Device) expandListDraw(t PrimitiveType, req drawRequest) error {
	// Phase 1: compute every expanded byte range. Nothing is emitted
	// until all inputs validate.
	var (
		rangeStart int64
		rangeLen   uint32
		indices    []uint32
	)
	if req.indexed {
		idx, err := d.readIndices(req.firstIndex, req.indexCount)
		if err != nil {
			return err
		}
		minIdx, maxIdx := idx[0], idx[0]
		for _, v := range idx[1:] {
			if v < minIdx {
				minIdx = v
			}
			if v > maxIdx {
				maxIdx = v
			}
		}
		rangeStart = int64(req.baseVertex) + int64(minIdx)
		rangeLen = maxIdx - minIdx + 1
		indices = make([]uint32, 0, uint64(len(idx))*uint64(req.instances))
		for k := uint32(0); k < req.instances; k++ {
			rebase := k * rangeLen
			for _, v := range idx {
				indices = append(indices, rebase+(v-minIdx))
			}
		}
	} else {
		rangeStart = int64(req.startVertex)
		rangeLen = req.vertexCount
		total := rangeLen * req.instances
		indices = make([]uint32, total)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	type expansion struct {
		slot   uint32
		stride uint32
		data   []byte
	}
	var expansions []expansion
	for slot := uint32(0); slot < MaxStreams; slot++ {
		src := d.streams[slot]
		if src.buffer == 0 {
			continue
		}
		shadow := d.bufferShadow(src.buffer)
		if shadow == nil {
			return ErrBadParameter
		}
		stride := uint64(src.stride)
		out := make([]byte, 0, stride*uint64(rangeLen)*uint64(req.instances))
		if div := d.streamDivisor(slot); div != 0 {
			for k := uint32(0); k < req.instances; k++ {
				elem := k / div
				off := uint64(src.offset) + uint64(elem)*stride
				if off+stride > uint64(len(shadow)) {
					return ErrBadParameter
				}
				for v := uint32(0); v < rangeLen; v++ {
					out = append(out, shadow[off:off+stride]...)
				}
			}
		} else {
			// Fold the base vertex into the byte offset once; the
			// combined offset must land inside the buffer.
			base := int64(src.offset) + rangeStart*int64(stride)
			span := stride * uint64(rangeLen)
			if base < 0 || uint64(base)+span > uint64(len(shadow)) {
				return ErrBadParameter
			}
			for k := uint32(0); k < req.instances; k++ {
				out = append(out, shadow[base:uint64(base)+span]...)
			}
		}
		expansions = append(expansions, expansion{slot: slot, stride: src.stride, data: out})
	}

	indexBytes := make([]byte, 0, len(indices)*4)
	for _, v := range indices {
		indexBytes = binary.LittleEndian.AppendUint32(indexBytes, v)
	}

	// Phase 2: emit. Scratch uploads, temporary binds, one draw, then
	// restore every binding touched.
	for _, ex := range expansions {
		h := d.ensureScratch(&d.scratchVB[ex.slot], uint64(len(ex.data)), cmdstream.UsageVertexBuffer)
		d.uploadScratch(h, ex.data)
		d.enc.SetVertexBuffers(ex.slot, []cmdstream.VertexBufferBinding{
			{Buffer: h, Stride: ex.stride},
		})
	}
	ib := d.ensureScratch(&d.scratchIB, uint64(len(indexBytes)), cmdstream.UsageIndexBuffer)
	d.uploadScratch(ib, indexBytes)
	d.enc.SetIndexBuffer(ib, cmdstream.IndexUint32, 0)

	d.setTopology(t.topology())
	d.enc.DrawIndexed(uint32(len(indices)), 0, 0)

	for _, ex := range expansions {
		d.restoreStream(ex.slot)
	}
	d.enc.SetIndexBuffer(d.indexBuf, d.indexFmt, d.indexOff)

	d.log().Debug("instanced list draw expanded",
		"instances", req.instances, "rangeLen", rangeLen, "indices", len(indices))
	return nil
}

// loopStripDraw emits one draw per instance for strip and fan topologies.
// Per-vertex streams are rebound with the start vertex folded into their
// byte offset; per-instance streams point at single-element scratch
// buffers re-uploaded only when the selected element changes.
func (d *Device) loopStripDraw(t PrimitiveType, req drawRequest) error {
	start := int64(req.startVertex)
	if req.indexed {
		start = int64(req.baseVertex)
	}

	// Phase 1: validate all touched streams.
	type perVertex struct {
		slot   uint32
		stride uint32
		offset uint32
	}
	type perInstance struct {
		slot    uint32
		stride  uint32
		divisor uint32
		shadow  []byte
		srcOff  uint64
	}
	var (
		vertexStreams   []perVertex
		instanceStreams []perInstance
	)
	for slot := uint32(0); slot < MaxStreams; slot++ {
		src := d.streams[slot]
		if src.buffer == 0 {
			continue
		}
		shadow := d.bufferShadow(src.buffer)
		if shadow == nil {
			return ErrBadParameter
		}
		if div := d.streamDivisor(slot); div != 0 {
			lastElem := (req.instances - 1) / div
			end := uint64(src.offset) + uint64(lastElem+1)*uint64(src.stride)
			if end > uint64(len(shadow)) {
				return ErrBadParameter
			}
			instanceStreams = append(instanceStreams, perInstance{
				slot:    slot,
				stride:  src.stride,
				divisor: div,
				shadow:  shadow,
				srcOff:  uint64(src.offset),
			})
		} else {
			eff := int64(src.offset) + start*int64(src.stride)
			if eff < 0 {
				return ErrBadParameter
			}
			vertexStreams = append(vertexStreams, perVertex{
				slot:   slot,
				stride: src.stride,
				offset: uint32(eff),
			})
		}
	}

	// Phase 2: rebind, loop, restore.
	for _, s := range vertexStreams {
		d.enc.SetVertexBuffers(s.slot, []cmdstream.VertexBufferBinding{
			{Buffer: d.streams[s.slot].buffer, Stride: s.stride, Offset: s.offset},
		})
	}
	lastElem := make([]int64, len(instanceStreams))
	for i, s := range instanceStreams {
		lastElem[i] = -1
		h := d.ensureScratch(&d.scratchVB[s.slot], uint64(s.stride), cmdstream.UsageVertexBuffer)
		// Stride zero: every vertex of the instance reads element 0.
		d.enc.SetVertexBuffers(s.slot, []cmdstream.VertexBufferBinding{
			{Buffer: h, Stride: 0},
		})
	}

	d.setTopology(t.topology())
	for k := uint32(0); k < req.instances; k++ {
		for i, s := range instanceStreams {
			elem := int64(k / s.divisor)
			if elem == lastElem[i] {
				continue
			}
			lastElem[i] = elem
			off := s.srcOff + uint64(elem)*uint64(s.stride)
			d.uploadScratch(d.scratchVB[s.slot].handle, s.shadow[off:off+uint64(s.stride)])
		}
		if req.indexed {
			d.enc.DrawIndexed(req.indexCount, req.firstIndex, 0)
		} else {
			d.enc.Draw(req.vertexCount, 0)
		}
	}

	for _, s := range vertexStreams {
		d.restoreStream(s.slot)
	}
	for _, s := range instanceStreams {
		d.restoreStream(s.slot)
	}

	d.log().Debug("instanced strip draw looped", "instances", req.instances)
	return nil
}
