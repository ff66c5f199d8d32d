package pipeline

import "errors"

// Device errors.
var (
	// ErrDeviceLost is returned by every entry point after the device has
	// been marked lost. The condition is sticky; the owner must create a
	// new device.
	ErrDeviceLost = errors.New("pipeline: device lost")

	// ErrBadParameter is returned when an argument is out of range or
	// references an unknown handle.
	ErrBadParameter = errors.New("pipeline: bad parameter")

	// ErrNoVertexLayout is returned by draw entry points when neither a
	// packed vertex format nor a declaration has been set.
	ErrNoVertexLayout = errors.New("pipeline: no vertex layout set")

	// ErrUserShaderBound is returned when an operation that requires the
	// fixed-function path runs with an application vertex shader bound.
	ErrUserShaderBound = errors.New("pipeline: operation requires fixed-function vertex processing")
)
