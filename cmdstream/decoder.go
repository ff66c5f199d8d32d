package cmdstream

import (
	"encoding/binary"
	"fmt"
)

// Decoder walks the packets of an encoded command stream.
//
// The decoder validates the stream header once, then advances packet by
// packet using each packet's declared size. Unknown opcodes are surfaced
// like any other packet so callers can skip them; this is the wire format's
// forward-compatibility contract.
//
// Example usage:
//
//	dec, err := NewDecoder(bytes)
//	if err != nil { ... }
//	for dec.Next() {
//	    switch dec.Opcode() {
//	    case OpDraw:
//	        vertexCount, firstVertex, _ := dec.Draw()
//	        // handle draw
//	    }
//	}
//	if err := dec.Err(); err != nil { ... }
type Decoder struct {
	buf []byte
	// size is the header-declared stream length.
	size int
	// off is the offset of the current packet; next is the offset of the
	// packet after it.
	off, next int
	err       error
}

// NewDecoder validates the stream header of buf and returns a decoder
// positioned before the first packet.
//
// The buffer may be longer than the header-declared size; trailing bytes
// are ignored, matching the submission path which hands the backend a
// fixed-capacity ring slot.
func NewDecoder(buf []byte) (*Decoder, error) {
	if len(buf) < StreamHeaderSize {
		return nil, ErrTruncatedStream
	}
	if binary.LittleEndian.Uint32(buf[0:4]) != StreamMagic {
		return nil, ErrBadMagic
	}
	abi := binary.LittleEndian.Uint32(buf[4:8])
	if ABIVersionMajor(abi) != ABIMajor {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedABI, ABIVersionMajor(abi))
	}
	size := int(binary.LittleEndian.Uint32(buf[8:12]))
	if size < StreamHeaderSize || size > len(buf) || size%4 != 0 {
		return nil, ErrTruncatedStream
	}
	return &Decoder{buf: buf, size: size, off: StreamHeaderSize, next: StreamHeaderSize}, nil
}

// ABIVersion returns the stream header's abi_version field.
func (d *Decoder) ABIVersion() uint32 {
	return binary.LittleEndian.Uint32(d.buf[4:8])
}

// Size returns the header-declared stream size in bytes.
func (d *Decoder) Size() int { return d.size }

// Next advances to the next packet. It returns false at the end of the
// stream or on a malformed packet; check Err to distinguish.
func (d *Decoder) Next() bool {
	if d.err != nil {
		return false
	}
	d.off = d.next
	if d.off == d.size {
		return false
	}
	if d.off+PacketHeaderSize > d.size {
		d.err = ErrTruncatedStream
		return false
	}
	size := int(binary.LittleEndian.Uint32(d.buf[d.off+4 : d.off+8]))
	if size < PacketHeaderSize || size%4 != 0 || size > d.size-d.off {
		d.err = ErrMisalignedPacket
		return false
	}
	d.next = d.off + size
	return true
}

// Err returns the first malformed-packet error encountered, if any.
func (d *Decoder) Err() error { return d.err }

// Opcode returns the current packet's opcode.
func (d *Decoder) Opcode() Opcode {
	return Opcode(binary.LittleEndian.Uint32(d.buf[d.off : d.off+4]))
}

// PacketSize returns the current packet's declared size in bytes.
func (d *Decoder) PacketSize() int {
	return d.next - d.off
}

// Payload returns the current packet's bytes after the packet header,
// alignment padding included.
func (d *Decoder) Payload() []byte {
	return d.buf[d.off+PacketHeaderSize : d.next]
}

// u32 reads a little-endian u32 at the given offset within the current
// packet (offset 0 is the opcode).
func (d *Decoder) u32(off int) (uint32, error) {
	if d.off+off+4 > d.next {
		return 0, ErrPacketTooShort
	}
	return binary.LittleEndian.Uint32(d.buf[d.off+off : d.off+off+4]), nil
}

func (d *Decoder) u64(off int) (uint64, error) {
	if d.off+off+8 > d.next {
		return 0, ErrPacketTooShort
	}
	return binary.LittleEndian.Uint64(d.buf[d.off+off : d.off+off+8]), nil
}

// BindShaders decodes the current packet as BIND_SHADERS.
func (d *Decoder) BindShaders() (vs, ps Handle, err error) {
	if vs, err = d.u32(8); err != nil {
		return 0, 0, err
	}
	if ps, err = d.u32(12); err != nil {
		return 0, 0, err
	}
	return vs, ps, nil
}

// CreateShader decodes the current packet as CREATE_SHADER, returning the
// handle, stage and token-stream payload.
func (d *Decoder) CreateShader() (shader Handle, stage ShaderStage, tokens []byte, err error) {
	shader, err = d.u32(8)
	if err != nil {
		return 0, 0, nil, err
	}
	st, err := d.u32(12)
	if err != nil {
		return 0, 0, nil, err
	}
	n, err := d.u32(16)
	if err != nil {
		return 0, 0, nil, err
	}
	if d.PacketSize() < sizeCreateShader {
		return 0, 0, nil, ErrPacketTooShort
	}
	body := d.Payload()[sizeCreateShader-PacketHeaderSize:]
	if int(n) > len(body) {
		return 0, 0, nil, ErrPacketTooShort
	}
	return shader, ShaderStage(st), body[:n], nil
}

// DestroyShader decodes the current packet as DESTROY_SHADER.
func (d *Decoder) DestroyShader() (Handle, error) {
	return d.u32(8)
}

// DestroyResource decodes the current packet as DESTROY_RESOURCE.
func (d *Decoder) DestroyResource() (Handle, error) {
	return d.u32(8)
}

// CreateInputLayout decodes the current packet as CREATE_INPUT_LAYOUT,
// returning the handle and opaque blob.
func (d *Decoder) CreateInputLayout() (layout Handle, blob []byte, err error) {
	layout, err = d.u32(8)
	if err != nil {
		return 0, nil, err
	}
	n, err := d.u32(12)
	if err != nil {
		return 0, nil, err
	}
	if d.PacketSize() < sizeCreateInputLayout {
		return 0, nil, ErrPacketTooShort
	}
	body := d.Payload()[sizeCreateInputLayout-PacketHeaderSize:]
	if int(n) > len(body) {
		return 0, nil, ErrPacketTooShort
	}
	return layout, body[:n], nil
}

// SetInputLayout decodes the current packet as SET_INPUT_LAYOUT.
func (d *Decoder) SetInputLayout() (Handle, error) {
	return d.u32(8)
}

// SetTexture decodes the current packet as SET_TEXTURE.
func (d *Decoder) SetTexture() (stage ShaderStage, slot uint32, texture Handle, err error) {
	st, err := d.u32(8)
	if err != nil {
		return 0, 0, 0, err
	}
	slot, err = d.u32(12)
	if err != nil {
		return 0, 0, 0, err
	}
	texture, err = d.u32(16)
	if err != nil {
		return 0, 0, 0, err
	}
	return ShaderStage(st), slot, texture, nil
}

// SetShaderConstantsF decodes the current packet as SET_SHADER_CONSTANTS_F.
// data holds vec4Count*4 little-endian float32 values.
func (d *Decoder) SetShaderConstantsF() (stage ShaderStage, startRegister, vec4Count uint32, data []byte, err error) {
	st, err := d.u32(8)
	if err != nil {
		return 0, 0, 0, nil, err
	}
	startRegister, err = d.u32(12)
	if err != nil {
		return 0, 0, 0, nil, err
	}
	vec4Count, err = d.u32(16)
	if err != nil {
		return 0, 0, 0, nil, err
	}
	if d.PacketSize() < sizeSetShaderConstantsF {
		return 0, 0, 0, nil, ErrPacketTooShort
	}
	body := d.Payload()[sizeSetShaderConstantsF-PacketHeaderSize:]
	want := int(vec4Count) * 16
	if want > len(body) {
		return 0, 0, 0, nil, ErrPacketTooShort
	}
	return ShaderStage(st), startRegister, vec4Count, body[:want], nil
}

// SetVertexBuffers decodes the current packet as SET_VERTEX_BUFFERS.
func (d *Decoder) SetVertexBuffers() (startSlot uint32, bindings []VertexBufferBinding, err error) {
	startSlot, err = d.u32(8)
	if err != nil {
		return 0, nil, err
	}
	count, err := d.u32(12)
	if err != nil {
		return 0, nil, err
	}
	if d.PacketSize() < sizeSetVertexBuffers {
		return 0, nil, ErrPacketTooShort
	}
	body := d.Payload()[sizeSetVertexBuffers-PacketHeaderSize:]
	if int(count)*vertexBufferBindingSize > len(body) {
		return 0, nil, ErrPacketTooShort
	}
	bindings = make([]VertexBufferBinding, count)
	for i := range bindings {
		p := i * vertexBufferBindingSize
		bindings[i] = VertexBufferBinding{
			Buffer: binary.LittleEndian.Uint32(body[p : p+4]),
			Stride: binary.LittleEndian.Uint32(body[p+4 : p+8]),
			Offset: binary.LittleEndian.Uint32(body[p+8 : p+12]),
		}
	}
	return startSlot, bindings, nil
}

// SetIndexBuffer decodes the current packet as SET_INDEX_BUFFER.
func (d *Decoder) SetIndexBuffer() (buffer Handle, format IndexFormat, offsetBytes uint32, err error) {
	buffer, err = d.u32(8)
	if err != nil {
		return 0, 0, 0, err
	}
	f, err := d.u32(12)
	if err != nil {
		return 0, 0, 0, err
	}
	offsetBytes, err = d.u32(16)
	if err != nil {
		return 0, 0, 0, err
	}
	return buffer, IndexFormat(f), offsetBytes, nil
}

// UploadResource decodes the current packet as UPLOAD_RESOURCE.
func (d *Decoder) UploadResource() (resource Handle, offsetBytes uint64, data []byte, err error) {
	resource, err = d.u32(8)
	if err != nil {
		return 0, 0, nil, err
	}
	offsetBytes, err = d.u64(16)
	if err != nil {
		return 0, 0, nil, err
	}
	n, err := d.u64(24)
	if err != nil {
		return 0, 0, nil, err
	}
	if d.PacketSize() < sizeUploadResource {
		return 0, 0, nil, ErrPacketTooShort
	}
	body := d.Payload()[sizeUploadResource-PacketHeaderSize:]
	if n > uint64(len(body)) {
		return 0, 0, nil, ErrPacketTooShort
	}
	return resource, offsetBytes, body[:n], nil
}

// Draw decodes the current packet as DRAW.
func (d *Decoder) Draw() (vertexCount, firstVertex uint32, err error) {
	vertexCount, err = d.u32(8)
	if err != nil {
		return 0, 0, err
	}
	firstVertex, err = d.u32(16)
	if err != nil {
		return 0, 0, err
	}
	return vertexCount, firstVertex, nil
}

// DrawIndexed decodes the current packet as DRAW_INDEXED.
func (d *Decoder) DrawIndexed() (indexCount, firstIndex uint32, baseVertex int32, err error) {
	indexCount, err = d.u32(8)
	if err != nil {
		return 0, 0, 0, err
	}
	firstIndex, err = d.u32(16)
	if err != nil {
		return 0, 0, 0, err
	}
	bv, err := d.u32(20)
	if err != nil {
		return 0, 0, 0, err
	}
	return indexCount, firstIndex, int32(bv), nil
}

// SetRenderState decodes the current packet as SET_RENDER_STATE.
func (d *Decoder) SetRenderState() (state, value uint32, err error) {
	state, err = d.u32(8)
	if err != nil {
		return 0, 0, err
	}
	value, err = d.u32(12)
	if err != nil {
		return 0, 0, err
	}
	return state, value, nil
}

// SetPrimitiveTopology decodes the current packet as SET_PRIMITIVE_TOPOLOGY.
func (d *Decoder) SetPrimitiveTopology() (Topology, error) {
	v, err := d.u32(8)
	return Topology(v), err
}
