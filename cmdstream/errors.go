package cmdstream

import "errors"

// Encoder and decoder errors.
var (
	// ErrStreamTooLarge is returned when a stream or packet would exceed
	// the u32 size field of the wire format.
	ErrStreamTooLarge = errors.New("cmdstream: stream too large for u32 size_bytes")

	// ErrTruncatedStream is returned when a buffer is shorter than its
	// header-declared size, or too short to contain a stream header.
	ErrTruncatedStream = errors.New("cmdstream: truncated stream")

	// ErrBadMagic is returned when a buffer does not start with StreamMagic.
	ErrBadMagic = errors.New("cmdstream: bad stream magic")

	// ErrUnsupportedABI is returned when a stream reports an ABI major
	// version this decoder does not understand.
	ErrUnsupportedABI = errors.New("cmdstream: unsupported ABI major version")

	// ErrMisalignedPacket is returned when a packet declares a size that is
	// zero, not 4-byte aligned, or extends past the end of the stream.
	ErrMisalignedPacket = errors.New("cmdstream: misaligned or oversized packet")

	// ErrPacketTooShort is returned by typed packet accessors when the
	// current packet is smaller than the requested fixed layout.
	ErrPacketTooShort = errors.New("cmdstream: packet too short for requested decode")
)
