package cmdstream

import (
	"encoding/binary"
	"math"
)

// Encoder builds a command stream by appending self-describing packets to a
// growable byte buffer. The zero value is not ready for use; call NewEncoder
// or Reset before appending.
//
// Every append writes the packet header (opcode + 4-byte aligned size) and
// zero-pads any alignment gap, so the buffer is a valid stream prefix at all
// times. Finalize patches the stream header's size_bytes and returns the
// wire bytes.
//
// Encoder is NOT safe for concurrent use. The owning device serializes
// access under its own lock.
type Encoder struct {
	buf []byte
}

// NewEncoder creates an encoder holding an empty stream (header only).
func NewEncoder() *Encoder {
	e := &Encoder{}
	e.Reset()
	return e
}

// Reset truncates the stream to the header and rewrites magic, ABI version,
// flags and a provisional size_bytes. Buffer capacity is retained across
// resets so per-frame encoding does not reallocate.
func (e *Encoder) Reset() {
	if cap(e.buf) < StreamHeaderSize {
		e.buf = make([]byte, StreamHeaderSize, 4096)
	} else {
		e.buf = e.buf[:StreamHeaderSize]
		clear(e.buf)
	}
	e.putU32(0, StreamMagic)
	e.putU32(4, ABIVersion)
	e.putU32(8, StreamHeaderSize)
	e.putU32(12, 0) // flags
}

// Len returns the current stream length in bytes, header included.
func (e *Encoder) Len() int { return len(e.buf) }

// IsEmpty reports whether no packets have been appended since Reset.
func (e *Encoder) IsEmpty() bool { return len(e.buf) <= StreamHeaderSize }

// Bytes returns the stream built so far without patching the header.
// The slice aliases the encoder's buffer and is invalidated by any append.
func (e *Encoder) Bytes() []byte { return e.buf }

// Finalize patches the stream header's size_bytes to the buffer length and
// returns the wire bytes. The encoder remains usable; a subsequent Reset
// starts a fresh stream.
func (e *Encoder) Finalize() ([]byte, error) {
	if len(e.buf) > math.MaxUint32 {
		return nil, ErrStreamTooLarge
	}
	e.putU32(8, uint32(len(e.buf)))
	return e.buf, nil
}

func (e *Encoder) putU32(off int, v uint32) {
	binary.LittleEndian.PutUint32(e.buf[off:off+4], v)
}

func (e *Encoder) putU64(off int, v uint64) {
	binary.LittleEndian.PutUint64(e.buf[off:off+8], v)
}

func (e *Encoder) putF32(off int, v float32) {
	binary.LittleEndian.PutUint32(e.buf[off:off+4], math.Float32bits(v))
}

// appendRaw appends a packet of the given unpadded size, rounding up to
// 4 bytes, zero-filling the body, and writing the packet header. It returns
// the byte offset of the packet within the stream.
func (e *Encoder) appendRaw(op Opcode, size int) int {
	aligned := (size + 3) &^ 3
	off := len(e.buf)
	e.buf = append(e.buf, make([]byte, aligned)...)
	e.putU32(off, uint32(op))
	e.putU32(off+4, uint32(aligned))
	return off
}

// Nop appends an empty NOP packet. Useful as an explicit stream spacer.
func (e *Encoder) Nop() {
	e.appendRaw(OpNop, PacketHeaderSize)
}

// DebugMarker appends a UTF-8 marker string, padded to 4 bytes.
func (e *Encoder) DebugMarker(msg string) {
	off := e.appendRaw(OpDebugMarker, PacketHeaderSize+len(msg))
	copy(e.buf[off+PacketHeaderSize:], msg)
}

// CreateBuffer appends a CREATE_BUFFER packet.
func (e *Encoder) CreateBuffer(buffer Handle, usageFlags uint32, sizeBytes uint64) {
	off := e.appendRaw(OpCreateBuffer, sizeCreateBuffer)
	e.putU32(off+8, buffer)
	e.putU32(off+12, usageFlags)
	e.putU64(off+16, sizeBytes)
	// backing_alloc_id/backing_offset stay zero: scratch resources are
	// host-allocated.
}

// CreateTexture2D appends a CREATE_TEXTURE2D packet for a single-mip,
// single-layer host-allocated texture.
func (e *Encoder) CreateTexture2D(texture Handle, usageFlags, format, width, height, rowPitchBytes uint32) {
	off := e.appendRaw(OpCreateTexture2D, sizeCreateTexture2D)
	e.putU32(off+8, texture)
	e.putU32(off+12, usageFlags)
	e.putU32(off+16, format)
	e.putU32(off+20, width)
	e.putU32(off+24, height)
	e.putU32(off+28, 1) // mip_levels
	e.putU32(off+32, 1) // array_layers
	e.putU32(off+36, rowPitchBytes)
}

// DestroyResource appends a DESTROY_RESOURCE packet.
func (e *Encoder) DestroyResource(resource Handle) {
	off := e.appendRaw(OpDestroyResource, sizeDestroyResource)
	e.putU32(off+8, resource)
}

// UploadResource appends an UPLOAD_RESOURCE packet with a verbatim byte
// payload following the fixed fields.
func (e *Encoder) UploadResource(resource Handle, offsetBytes uint64, data []byte) {
	off := e.appendRaw(OpUploadResource, sizeUploadResource+len(data))
	e.putU32(off+8, resource)
	e.putU64(off+16, offsetBytes)
	e.putU64(off+24, uint64(len(data)))
	copy(e.buf[off+sizeUploadResource:], data)
}

// CreateShader appends a CREATE_SHADER packet carrying a token-stream
// program as its payload.
func (e *Encoder) CreateShader(shader Handle, stage ShaderStage, tokens []byte) {
	off := e.appendRaw(OpCreateShader, sizeCreateShader+len(tokens))
	e.putU32(off+8, shader)
	e.putU32(off+12, uint32(stage))
	e.putU32(off+16, uint32(len(tokens)))
	copy(e.buf[off+sizeCreateShader:], tokens)
}

// DestroyShader appends a DESTROY_SHADER packet.
func (e *Encoder) DestroyShader(shader Handle) {
	off := e.appendRaw(OpDestroyShader, sizeDestroyShader)
	e.putU32(off+8, shader)
}

// BindShaders appends a BIND_SHADERS packet. Zero means "unbound" for
// either stage.
func (e *Encoder) BindShaders(vs, ps Handle) {
	off := e.appendRaw(OpBindShaders, sizeBindShaders)
	e.putU32(off+8, vs)
	e.putU32(off+12, ps)
	// cs and reserved0 stay zero: this core never binds compute.
}

// SetShaderConstantsF appends a SET_SHADER_CONSTANTS_F packet. data holds
// vec4Count*4 float32 values in register order.
func (e *Encoder) SetShaderConstantsF(stage ShaderStage, startRegister, vec4Count uint32, data []byte) {
	off := e.appendRaw(OpSetShaderConstantsF, sizeSetShaderConstantsF+len(data))
	e.putU32(off+8, uint32(stage))
	e.putU32(off+12, startRegister)
	e.putU32(off+16, vec4Count)
	copy(e.buf[off+sizeSetShaderConstantsF:], data)
}

// CreateInputLayout appends a CREATE_INPUT_LAYOUT packet carrying an opaque
// layout blob.
func (e *Encoder) CreateInputLayout(layout Handle, blob []byte) {
	off := e.appendRaw(OpCreateInputLayout, sizeCreateInputLayout+len(blob))
	e.putU32(off+8, layout)
	e.putU32(off+12, uint32(len(blob)))
	copy(e.buf[off+sizeCreateInputLayout:], blob)
}

// DestroyInputLayout appends a DESTROY_INPUT_LAYOUT packet.
func (e *Encoder) DestroyInputLayout(layout Handle) {
	off := e.appendRaw(OpDestroyInputLayout, sizeDestroyInputLayout)
	e.putU32(off+8, layout)
}

// SetInputLayout appends a SET_INPUT_LAYOUT packet. Zero unbinds.
func (e *Encoder) SetInputLayout(layout Handle) {
	off := e.appendRaw(OpSetInputLayout, sizeSetInputLayout)
	e.putU32(off+8, layout)
}

// SetVertexBuffers appends a SET_VERTEX_BUFFERS packet binding consecutive
// stream slots starting at startSlot.
func (e *Encoder) SetVertexBuffers(startSlot uint32, bindings []VertexBufferBinding) {
	off := e.appendRaw(OpSetVertexBuffers, sizeSetVertexBuffers+len(bindings)*vertexBufferBindingSize)
	e.putU32(off+8, startSlot)
	e.putU32(off+12, uint32(len(bindings)))
	p := off + sizeSetVertexBuffers
	for _, b := range bindings {
		e.putU32(p, b.Buffer)
		e.putU32(p+4, b.Stride)
		e.putU32(p+8, b.Offset)
		p += vertexBufferBindingSize
	}
}

// SetIndexBuffer appends a SET_INDEX_BUFFER packet. Zero unbinds.
func (e *Encoder) SetIndexBuffer(buffer Handle, format IndexFormat, offsetBytes uint32) {
	off := e.appendRaw(OpSetIndexBuffer, sizeSetIndexBuffer)
	e.putU32(off+8, buffer)
	e.putU32(off+12, uint32(format))
	e.putU32(off+16, offsetBytes)
}

// SetPrimitiveTopology appends a SET_PRIMITIVE_TOPOLOGY packet.
func (e *Encoder) SetPrimitiveTopology(t Topology) {
	off := e.appendRaw(OpSetPrimitiveTopology, sizeSetTopology)
	e.putU32(off+8, uint32(t))
}

// SetRenderTargets appends a SET_RENDER_TARGETS packet binding one color
// target and an optional depth target. Zero unbinds.
func (e *Encoder) SetRenderTargets(color, depth Handle) {
	off := e.appendRaw(OpSetRenderTargets, sizeSetRenderTargets)
	e.putU32(off+8, color)
	e.putU32(off+12, depth)
}

// SetViewport appends a SET_VIEWPORT packet in screen coordinates.
func (e *Encoder) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	off := e.appendRaw(OpSetViewport, sizeSetViewport)
	e.putF32(off+8, x)
	e.putF32(off+12, y)
	e.putF32(off+16, width)
	e.putF32(off+20, height)
	e.putF32(off+24, minDepth)
	e.putF32(off+28, maxDepth)
}

// SetScissor appends a SET_SCISSOR packet.
func (e *Encoder) SetScissor(x, y, width, height uint32) {
	off := e.appendRaw(OpSetScissor, sizeSetScissor)
	e.putU32(off+8, x)
	e.putU32(off+12, y)
	e.putU32(off+16, width)
	e.putU32(off+20, height)
}

// Clear appends a CLEAR packet. flags is a combination of the Clear* bits.
func (e *Encoder) Clear(flags uint32, r, g, b, a, depth float32, stencil uint32) {
	off := e.appendRaw(OpClear, sizeClear)
	e.putU32(off+8, flags)
	e.putF32(off+12, r)
	e.putF32(off+16, g)
	e.putF32(off+20, b)
	e.putF32(off+24, a)
	e.putF32(off+28, depth)
	e.putU32(off+32, stencil)
}

// SetTexture appends a SET_TEXTURE packet. Zero unbinds the slot.
func (e *Encoder) SetTexture(stage ShaderStage, slot uint32, texture Handle) {
	off := e.appendRaw(OpSetTexture, sizeSetTexture)
	e.putU32(off+8, uint32(stage))
	e.putU32(off+12, slot)
	e.putU32(off+16, texture)
}

// SetSamplerState appends a SET_SAMPLER_STATE packet.
func (e *Encoder) SetSamplerState(stage ShaderStage, slot, state, value uint32) {
	off := e.appendRaw(OpSetSamplerState, sizeSetSamplerState)
	e.putU32(off+8, uint32(stage))
	e.putU32(off+12, slot)
	e.putU32(off+16, state)
	e.putU32(off+20, value)
}

// SetRenderState appends a SET_RENDER_STATE packet carrying a legacy
// render-state id/value pair.
func (e *Encoder) SetRenderState(state, value uint32) {
	off := e.appendRaw(OpSetRenderState, sizeSetRenderState)
	e.putU32(off+8, state)
	e.putU32(off+12, value)
}

// Draw appends a DRAW packet.
func (e *Encoder) Draw(vertexCount, firstVertex uint32) {
	off := e.appendRaw(OpDraw, sizeDraw)
	e.putU32(off+8, vertexCount)
	e.putU32(off+12, 1) // instance_count
	e.putU32(off+16, firstVertex)
}

// DrawIndexed appends a DRAW_INDEXED packet.
func (e *Encoder) DrawIndexed(indexCount, firstIndex uint32, baseVertex int32) {
	off := e.appendRaw(OpDrawIndexed, sizeDrawIndexed)
	e.putU32(off+8, indexCount)
	e.putU32(off+12, 1) // instance_count
	e.putU32(off+16, firstIndex)
	e.putU32(off+20, uint32(baseVertex))
}

// Flush appends a FLUSH packet marking a submission boundary.
func (e *Encoder) Flush() {
	e.appendRaw(OpFlush, sizeFlush)
}
