package shader

import "errors"

// Synthesis errors.
var (
	// ErrInvalidCombination is returned when a texture stage surviving
	// chain truncation carries an operation or argument the synthesizer
	// cannot express. Callers must report the failure before emitting any
	// packet for the draw.
	ErrInvalidCombination = errors.New("shader: unsupported texture stage combination")
)

// MaxTextureStages is the length of the combiner chain the synthesizer
// models. State set on later stages is accepted and ignored.
const MaxTextureStages = 4

// StageOp is a texture stage combiner operation. Values are fixed by the
// legacy API.
type StageOp uint32

const (
	OpDisable           StageOp = 1
	OpSelectArg1        StageOp = 2
	OpSelectArg2        StageOp = 3
	OpModulate          StageOp = 4
	OpAdd               StageOp = 7
	OpAddSmooth         StageOp = 11
	OpBlendTextureAlpha StageOp = 13
)

// supported reports whether the synthesizer can express the operation.
// OpAddSmooth is recognized but deliberately unsupported.
func (op StageOp) supported() bool {
	switch op {
	case OpDisable, OpSelectArg1, OpSelectArg2, OpModulate, OpAdd, OpBlendTextureAlpha:
		return true
	default:
		return false
	}
}

// StageArg selects a combiner input source.
type StageArg uint32

const (
	ArgDiffuse StageArg = 0
	ArgCurrent StageArg = 1
	ArgTexture StageArg = 2
	ArgTFactor StageArg = 3
)

func (a StageArg) valid() bool { return a <= ArgTFactor }

// Texture stage state ids. Values are fixed by the legacy API; state ids
// outside this set are accepted and ignored.
const (
	StateColorOp   uint32 = 1
	StateColorArg1 uint32 = 2
	StateColorArg2 uint32 = 3
	StateAlphaOp   uint32 = 4
	StateAlphaArg1 uint32 = 5
	StateAlphaArg2 uint32 = 6
)

// StageState is the raw combiner state of one texture stage, as set by the
// application. Zero values are invalid; use DefaultStageStates for the
// documented defaults.
type StageState struct {
	ColorOp   StageOp
	ColorArg1 StageArg
	ColorArg2 StageArg
	AlphaOp   StageOp
	AlphaArg1 StageArg
	AlphaArg2 StageArg
}

// Set applies one state id/value pair. Unknown ids are ignored.
func (s *StageState) Set(state, value uint32) {
	switch state {
	case StateColorOp:
		s.ColorOp = StageOp(value)
	case StateColorArg1:
		s.ColorArg1 = StageArg(value)
	case StateColorArg2:
		s.ColorArg2 = StageArg(value)
	case StateAlphaOp:
		s.AlphaOp = StageOp(value)
	case StateAlphaArg1:
		s.AlphaArg1 = StageArg(value)
	case StateAlphaArg2:
		s.AlphaArg2 = StageArg(value)
	}
}

// DefaultStageStates returns the legacy default combiner chain: stage 0
// modulates texture with diffuse, later stages are disabled.
func DefaultStageStates() [MaxTextureStages]StageState {
	var out [MaxTextureStages]StageState
	out[0] = StageState{
		ColorOp:   OpModulate,
		ColorArg1: ArgTexture,
		ColorArg2: ArgCurrent,
		AlphaOp:   OpSelectArg1,
		AlphaArg1: ArgTexture,
		AlphaArg2: ArgCurrent,
	}
	for i := 1; i < MaxTextureStages; i++ {
		out[i] = StageState{
			ColorOp:   OpDisable,
			ColorArg1: ArgTexture,
			ColorArg2: ArgCurrent,
			AlphaOp:   OpDisable,
			AlphaArg1: ArgTexture,
			AlphaArg2: ArgCurrent,
		}
	}
	return out
}

// opArgLiveness reports which of the two arguments an operation reads.
func opArgLiveness(op StageOp) (arg1, arg2 bool) {
	switch op {
	case OpSelectArg1:
		return true, false
	case OpSelectArg2:
		return false, true
	case OpModulate, OpAdd, OpAddSmooth, OpBlendTextureAlpha:
		return true, true
	default:
		// Unknown operations conservatively read both arguments so
		// bind-state truncation still sees their texture references.
		return true, true
	}
}

// referencesTexture reports whether the stage reads its bound texture,
// either through a live TEXTURE argument or implicitly through
// BlendTextureAlpha's texture alpha factor.
func referencesTexture(s StageState) bool {
	if s.ColorOp == OpBlendTextureAlpha || s.AlphaOp == OpBlendTextureAlpha {
		return true
	}
	c1, c2 := opArgLiveness(s.ColorOp)
	if c1 && s.ColorArg1 == ArgTexture || c2 && s.ColorArg2 == ArgTexture {
		return true
	}
	a1, a2 := opArgLiveness(s.AlphaOp)
	return a1 && s.AlphaArg1 == ArgTexture || a2 && s.AlphaArg2 == ArgTexture
}

// BuildStageRecipes reduces raw combiner state to the canonical stage
// recipes that key pixel program synthesis. boundMask has bit i set when a
// texture is bound to pixel slot i.
//
// The chain is truncated at the first stage whose color operation is
// Disable, then truncated again before the first surviving stage that
// references a texture with no bound slot. Only the surviving stages are
// validated: a disabled or truncated stage never fails the draw.
//
// Canonicalization keeps equivalent states on one cache key:
//   - arguments an operation does not read are zeroed
//   - stage 0 reads of CURRENT become DIFFUSE, the value CURRENT holds
//     when no prior stage exists
func BuildStageRecipes(states [MaxTextureStages]StageState, boundMask uint32) (PSRecipe, error) {
	var recipe PSRecipe

	count := MaxTextureStages
	for i := 0; i < MaxTextureStages; i++ {
		if states[i].ColorOp == OpDisable {
			count = i
			break
		}
	}
	for i := 0; i < count; i++ {
		if referencesTexture(states[i]) && boundMask&(1<<uint(i)) == 0 {
			count = i
			break
		}
	}

	for i := 0; i < count; i++ {
		s := states[i]
		if !s.ColorOp.supported() || !s.AlphaOp.supported() ||
			!s.ColorArg1.valid() || !s.ColorArg2.valid() ||
			!s.AlphaArg1.valid() || !s.AlphaArg2.valid() {
			return PSRecipe{}, ErrInvalidCombination
		}

		r := StageRecipe{
			ColorOp:   s.ColorOp,
			ColorArg1: s.ColorArg1,
			ColorArg2: s.ColorArg2,
			AlphaOp:   s.AlphaOp,
			AlphaArg1: s.AlphaArg1,
			AlphaArg2: s.AlphaArg2,
		}

		c1, c2 := opArgLiveness(r.ColorOp)
		if !c1 {
			r.ColorArg1 = 0
		}
		if !c2 {
			r.ColorArg2 = 0
		}
		a1, a2 := opArgLiveness(r.AlphaOp)
		if !a1 {
			r.AlphaArg1 = 0
		}
		if !a2 {
			r.AlphaArg2 = 0
		}

		if i == 0 {
			if c1 && r.ColorArg1 == ArgCurrent {
				r.ColorArg1 = ArgDiffuse
			}
			if c2 && r.ColorArg2 == ArgCurrent {
				r.ColorArg2 = ArgDiffuse
			}
			if a1 && r.AlphaArg1 == ArgCurrent {
				r.AlphaArg1 = ArgDiffuse
			}
			if a2 && r.AlphaArg2 == ArgCurrent {
				r.AlphaArg2 = ArgDiffuse
			}
		}

		recipe.Stages[i] = r
	}
	recipe.StageCount = uint8(count)
	return recipe, nil
}
