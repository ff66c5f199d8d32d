package pipeline

import (
	"sync/atomic"

	"github.com/gogpu/aerod3d9/cmdstream"
)

// handleAllocator issues backend handles from a single namespace shared by
// resources, shaders and input layouts. Handles are monotonic and never
// zero; zero always means "none" on the wire.
type handleAllocator struct {
	next atomic.Uint32
}

func (a *handleAllocator) Next() cmdstream.Handle {
	return a.next.Add(1)
}
