// Package shader synthesizes the token-stream programs the translation
// core binds when the application draws without its own shaders.
//
// Programs use a compact SM2-style encoding: one version token, a run of
// instruction groups, and an end token. Each instruction token carries its
// opcode in the low bits and the group length in words (instruction token
// included) in bits 24..31, so consumers can walk a program without
// understanding every opcode.
//
// Synthesis is pure: the same recipe always yields the same bytes, which
// makes program identity a safe cache key.
package shader

import "encoding/binary"

// Version and end tokens.
const (
	// VersionVS is the first token of every synthesized vertex program.
	VersionVS uint32 = 0xFFFE0200

	// VersionPS is the first token of every synthesized pixel program.
	VersionPS uint32 = 0xFFFF0200

	// TokenEnd terminates a program.
	TokenEnd uint32 = 0x0000FFFF
)

// Instruction opcodes (low 16 bits of an instruction token).
const (
	opMov   uint32 = 0x01
	opAdd   uint32 = 0x02
	opMad   uint32 = 0x04
	opMul   uint32 = 0x05
	opMax   uint32 = 0x0B
	opDp3   uint32 = 0x08
	opDp4   uint32 = 0x09
	opLrp   uint32 = 0x12
	opDcl   uint32 = 0x1F
	opDef   uint32 = 0x51

	// OpTexld samples a texture: texld dst, coord, sampler.
	OpTexld uint32 = 0x42
)

// Register types.
const (
	regTemp     uint32 = 0  // r#
	regInput    uint32 = 1  // v#
	regConst    uint32 = 2  // c#
	regTexCoord uint32 = 3  // t# (pixel stage texcoord input)
	regRastOut  uint32 = 4  // oPos
	regAttrOut  uint32 = 5  // oD#
	regTexOut   uint32 = 6  // oT#
	regColorOut uint32 = 8  // oC#
	regSampler  uint32 = 10 // s#
)

// Declaration usage codes carried by dcl usage tokens.
const (
	declUsagePosition uint32 = 0
	declUsageNormal   uint32 = 3
	declUsageTexCoord uint32 = 5
	declUsageColor    uint32 = 10

	// declSampler2D marks a dcl of a 2D sampler register.
	declSampler2D uint32 = 2 << 27
)

// Instr builds an instruction token: opcode plus the group length in words,
// instruction token included.
func Instr(op uint32, length int) uint32 {
	return op | uint32(length)<<24
}

// InstrLength extracts the group length of an instruction token.
func InstrLength(token uint32) int {
	return int(token >> 24)
}

// regToken assembles the shared register-reference bits: type split across
// bits 28..30 and 11..12, register number in the low bits.
func regToken(regType, regNum uint32) uint32 {
	return (regType&7)<<28 | (regType>>3&3)<<11 | regNum
}

// SrcReg builds a source register token with the identity swizzle.
func SrcReg(regType, regNum uint32) uint32 {
	return regToken(regType, regNum) | 0xE4<<16
}

// SrcRegSwizzle builds a source register token with an explicit swizzle
// byte (two bits per component, x=0 y=1 z=2 w=3).
func SrcRegSwizzle(regType, regNum, swizzle uint32) uint32 {
	return regToken(regType, regNum) | (swizzle&0xFF)<<16
}

// DstReg builds a destination register token with the full write mask.
func DstReg(regType, regNum uint32) uint32 {
	return regToken(regType, regNum) | 0xF<<16
}

// DstRegMask builds a destination register token with an explicit
// component write mask (bit 0 = x .. bit 3 = w).
func DstRegMask(regType, regNum, mask uint32) uint32 {
	return regToken(regType, regNum) | (mask&0xF)<<16
}

// SamplerToken returns the source token for sampler register s<n>.
// s0 encodes as 0x20E40800.
func SamplerToken(n uint32) uint32 {
	return SrcReg(regSampler, n)
}

// swizzle replication codes for single-component broadcasts.
const (
	swizzleW uint32 = 0xFF // .wwww
	swizzleX uint32 = 0x00 // .xxxx
)

// program accumulates tokens for one shader.
type program struct {
	tokens []uint32
}

func newProgram(version uint32) *program {
	p := &program{tokens: make([]uint32, 0, 64)}
	p.tokens = append(p.tokens, version)
	return p
}

func (p *program) emit(op uint32, operands ...uint32) {
	p.tokens = append(p.tokens, Instr(op, 1+len(operands)))
	p.tokens = append(p.tokens, operands...)
}

// dcl emits a declaration group: dcl token, usage token, register token.
func (p *program) dcl(usage, usageIndex, dst uint32) {
	p.emit(opDcl, usage|usageIndex<<16, dst)
}

// dclSampler2D declares sampler register s<n> as a 2D sampler.
func (p *program) dclSampler2D(n uint32) {
	p.emit(opDcl, declSampler2D, DstReg(regSampler, n))
}

// def emits a constant definition: c<n> = (x, y, z, w) as raw float bits.
func (p *program) def(n uint32, x, y, z, w uint32) {
	p.emit(opDef, DstReg(regConst, n), x, y, z, w)
}

// bytes finishes the program and returns its little-endian encoding.
func (p *program) bytes() []byte {
	p.tokens = append(p.tokens, TokenEnd)
	out := make([]byte, len(p.tokens)*4)
	for i, tok := range p.tokens {
		binary.LittleEndian.PutUint32(out[i*4:], tok)
	}
	return out
}

// Words reinterprets a program's bytes as tokens. Returns nil when the
// byte length is not a multiple of four.
func Words(b []byte) []uint32 {
	if len(b)%4 != 0 {
		return nil
	}
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out
}

// SamplerMaskOf walks a program and returns a bitmask of the sampler
// registers referenced by texld instructions. Unknown instructions are
// skipped by their declared length.
func SamplerMaskOf(b []byte) uint32 {
	words := Words(b)
	if len(words) < 2 {
		return 0
	}
	var mask uint32
	for i := 1; i < len(words); {
		inst := words[i]
		if inst == TokenEnd {
			break
		}
		length := InstrLength(inst)
		if length == 0 || i+length > len(words) {
			break
		}
		if inst&0xFFFF == OpTexld && length >= 4 {
			s := words[i+3]
			if s >= SamplerToken(0) {
				if reg := s - SamplerToken(0); reg < 16 {
					mask |= 1 << reg
				}
			}
		}
		i += length
	}
	return mask
}

// CountOp walks a program and counts instruction tokens with the given
// opcode.
func CountOp(b []byte, op uint32) int {
	words := Words(b)
	if len(words) < 2 {
		return 0
	}
	n := 0
	for i := 1; i < len(words); {
		inst := words[i]
		if inst == TokenEnd {
			break
		}
		length := InstrLength(inst)
		if length == 0 || i+length > len(words) {
			break
		}
		if inst&0xFFFF == op {
			n++
		}
		i += length
	}
	return n
}
