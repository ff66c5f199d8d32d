// Package cmdstream implements the binary command-stream protocol spoken
// between the translation core and the GPU execution backend.
//
// A command stream is a little-endian byte buffer that begins with a
// 24-byte stream header followed by a sequence of packets. Every packet
// starts with an 8-byte header carrying its opcode and its total size in
// bytes (4-byte aligned, header included), so a consumer can always skip
// packets it does not understand by trusting the declared size.
//
// The wire layout is a versioned ABI: breaking changes bump the major
// version, append-only changes bump the minor version. Decoders reject
// unknown majors and accept newer minors.
package cmdstream

// StreamMagic identifies a command stream ("ACMD" little-endian).
const StreamMagic uint32 = 0x444D4341

// ABI version carried in every stream header, encoded as major<<16 | minor.
const (
	ABIMajor = 1
	ABIMinor = 3

	// ABIVersion is the version this encoder stamps into stream headers.
	ABIVersion uint32 = ABIMajor<<16 | ABIMinor
)

// ABIVersionMajor extracts the major component of a header abi_version.
func ABIVersionMajor(v uint32) uint32 { return v >> 16 }

// ABIVersionMinor extracts the minor component of a header abi_version.
func ABIVersionMinor(v uint32) uint32 { return v & 0xFFFF }

// Stream and packet header sizes in bytes.
const (
	// StreamHeaderSize is the size of the stream header:
	// magic, abi_version, size_bytes, flags, reserved0, reserved1.
	StreamHeaderSize = 24

	// PacketHeaderSize is the size of the per-packet header:
	// opcode, size_bytes.
	PacketHeaderSize = 8
)

// Opcode identifies a command packet type.
type Opcode uint32

// Opcode catalogue. Values are part of the wire ABI and never reused.
const (
	OpNop         Opcode = 0
	OpDebugMarker Opcode = 1 // UTF-8 payload

	// Resource management.
	OpCreateBuffer    Opcode = 0x100
	OpCreateTexture2D Opcode = 0x101
	OpDestroyResource Opcode = 0x102
	OpUploadResource  Opcode = 0x104

	// Shaders and input layouts.
	OpCreateShader        Opcode = 0x200
	OpDestroyShader       Opcode = 0x201
	OpBindShaders         Opcode = 0x202
	OpSetShaderConstantsF Opcode = 0x203
	OpCreateInputLayout   Opcode = 0x204
	OpDestroyInputLayout  Opcode = 0x205
	OpSetInputLayout      Opcode = 0x206

	// Output merger / fixed state.
	OpSetRenderTargets Opcode = 0x400
	OpSetViewport      Opcode = 0x401
	OpSetScissor       Opcode = 0x402

	// Input assembler.
	OpSetVertexBuffers     Opcode = 0x500
	OpSetIndexBuffer       Opcode = 0x501
	OpSetPrimitiveTopology Opcode = 0x502

	// Legacy sampling state.
	OpSetTexture      Opcode = 0x510
	OpSetSamplerState Opcode = 0x511
	OpSetRenderState  Opcode = 0x512

	// Drawing.
	OpClear       Opcode = 0x600
	OpDraw        Opcode = 0x601
	OpDrawIndexed Opcode = 0x602

	// Submission boundary.
	OpFlush Opcode = 0x720
)

// String returns the wire name of the opcode for diagnostics.
func (op Opcode) String() string {
	switch op {
	case OpNop:
		return "NOP"
	case OpDebugMarker:
		return "DEBUG_MARKER"
	case OpCreateBuffer:
		return "CREATE_BUFFER"
	case OpCreateTexture2D:
		return "CREATE_TEXTURE2D"
	case OpDestroyResource:
		return "DESTROY_RESOURCE"
	case OpUploadResource:
		return "UPLOAD_RESOURCE"
	case OpCreateShader:
		return "CREATE_SHADER"
	case OpDestroyShader:
		return "DESTROY_SHADER"
	case OpBindShaders:
		return "BIND_SHADERS"
	case OpSetShaderConstantsF:
		return "SET_SHADER_CONSTANTS_F"
	case OpCreateInputLayout:
		return "CREATE_INPUT_LAYOUT"
	case OpDestroyInputLayout:
		return "DESTROY_INPUT_LAYOUT"
	case OpSetInputLayout:
		return "SET_INPUT_LAYOUT"
	case OpSetRenderTargets:
		return "SET_RENDER_TARGETS"
	case OpSetViewport:
		return "SET_VIEWPORT"
	case OpSetScissor:
		return "SET_SCISSOR"
	case OpSetVertexBuffers:
		return "SET_VERTEX_BUFFERS"
	case OpSetIndexBuffer:
		return "SET_INDEX_BUFFER"
	case OpSetPrimitiveTopology:
		return "SET_PRIMITIVE_TOPOLOGY"
	case OpSetTexture:
		return "SET_TEXTURE"
	case OpSetSamplerState:
		return "SET_SAMPLER_STATE"
	case OpSetRenderState:
		return "SET_RENDER_STATE"
	case OpClear:
		return "CLEAR"
	case OpDraw:
		return "DRAW"
	case OpDrawIndexed:
		return "DRAW_INDEXED"
	case OpFlush:
		return "FLUSH"
	default:
		return "UNKNOWN"
	}
}

// Handle is a driver-allocated resource identifier. Handles live in a single
// namespace across resources, shaders and input layouts; zero means "none".
type Handle = uint32

// ShaderStage selects the pipeline stage a shader or binding targets.
type ShaderStage uint32

// Shader stages understood by the backend.
const (
	StageVertex ShaderStage = 0
	StagePixel  ShaderStage = 1
)

// IndexFormat selects the element width of a bound index buffer.
type IndexFormat uint32

// Index formats.
const (
	IndexUint16 IndexFormat = 0
	IndexUint32 IndexFormat = 1
)

// Topology is the wire encoding of a primitive topology.
type Topology uint32

// The five legacy topologies this core emits.
const (
	TopologyPointList     Topology = 1
	TopologyLineList      Topology = 2
	TopologyLineStrip     Topology = 3
	TopologyTriangleList  Topology = 4
	TopologyTriangleStrip Topology = 5
	TopologyTriangleFan   Topology = 6
)

// Resource usage flags carried by CREATE_BUFFER and CREATE_TEXTURE2D.
const (
	UsageVertexBuffer uint32 = 1 << 0
	UsageIndexBuffer  uint32 = 1 << 1
	UsageTexture      uint32 = 1 << 3
)

// Texture formats carried by CREATE_TEXTURE2D.
const (
	FormatB8G8R8A8Unorm uint32 = 1
)

// Clear flag bits carried by CLEAR.
const (
	ClearColor   uint32 = 1 << 0
	ClearDepth   uint32 = 1 << 1
	ClearStencil uint32 = 1 << 2
)

// VertexBufferBinding is one entry of a SET_VERTEX_BUFFERS packet.
type VertexBufferBinding struct {
	Buffer Handle
	Stride uint32
	Offset uint32
}

// vertexBufferBindingSize is the wire size of one binding entry
// (buffer, stride_bytes, offset_bytes, reserved0).
const vertexBufferBindingSize = 16

// Fixed packet body sizes in bytes (packet header included).
const (
	sizeCreateBuffer        = 40
	sizeCreateTexture2D     = 56
	sizeDestroyResource     = 16
	sizeUploadResource      = 32
	sizeCreateShader        = 24
	sizeDestroyShader       = 16
	sizeBindShaders         = 24
	sizeSetShaderConstantsF = 24
	sizeCreateInputLayout   = 20
	sizeDestroyInputLayout  = 16
	sizeSetInputLayout      = 16
	sizeSetRenderTargets    = 16
	sizeSetViewport         = 32
	sizeSetScissor          = 24
	sizeClear               = 36
	sizeSetVertexBuffers    = 16
	sizeSetIndexBuffer      = 24
	sizeSetTopology         = 16
	sizeSetTexture          = 24
	sizeSetSamplerState     = 24
	sizeSetRenderState      = 16
	sizeDraw                = 24
	sizeDrawIndexed         = 28
	sizeFlush               = PacketHeaderSize
)
