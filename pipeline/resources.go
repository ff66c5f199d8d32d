package pipeline

import "github.com/gogpu/aerod3d9/cmdstream"

// resourceKind discriminates entries in the device's resource table.
type resourceKind uint8

const (
	kindBuffer resourceKind = iota
	kindTexture
)

// resource is the device-side record of a created backend resource.
// Buffers keep a host shadow of their contents so CPU paths (vertex
// processing, instancing expansion) can read vertex data without a
// round trip to the backend.
type resource struct {
	kind  resourceKind
	size  uint64
	usage uint32

	// shadow mirrors buffer contents. nil for textures.
	shadow []byte
}

// CreateVertexBuffer creates a backend buffer usable as a vertex source
// and returns its handle.
func (d *Device) CreateVertexBuffer(size uint64) (cmdstream.Handle, error) {
	return d.createBuffer(size, cmdstream.UsageVertexBuffer)
}

// CreateIndexBuffer creates a backend buffer usable as an index source
// and returns its handle.
func (d *Device) CreateIndexBuffer(size uint64) (cmdstream.Handle, error) {
	return d.createBuffer(size, cmdstream.UsageIndexBuffer)
}

func (d *Device) createBuffer(size uint64, usage uint32) (cmdstream.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLost(); err != nil {
		return 0, err
	}
	if size == 0 {
		return 0, ErrBadParameter
	}
	h := d.handles.Next()
	d.resources[h] = &resource{
		kind:   kindBuffer,
		size:   size,
		usage:  usage,
		shadow: make([]byte, size),
	}
	d.enc.CreateBuffer(h, usage, size)
	d.log().Debug("buffer created", "handle", h, "size", size, "usage", usage)
	return h, nil
}

// CreateTexture creates a single-mip BGRA8 backend texture and returns
// its handle.
func (d *Device) CreateTexture(width, height uint32) (cmdstream.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLost(); err != nil {
		return 0, err
	}
	if width == 0 || height == 0 {
		return 0, ErrBadParameter
	}
	h := d.handles.Next()
	d.resources[h] = &resource{
		kind:  kindTexture,
		size:  uint64(width) * uint64(height) * 4,
		usage: cmdstream.UsageTexture,
	}
	d.enc.CreateTexture2D(h, cmdstream.UsageTexture, cmdstream.FormatB8G8R8A8Unorm, width, height, width*4)
	return h, nil
}

// UploadBuffer copies data into a buffer at the given offset, updating
// both the backend copy and the host shadow.
func (d *Device) UploadBuffer(h cmdstream.Handle, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLost(); err != nil {
		return err
	}
	res, ok := d.resources[h]
	if !ok || res.kind != kindBuffer {
		return ErrBadParameter
	}
	if offset+uint64(len(data)) > res.size {
		return ErrBadParameter
	}
	copy(res.shadow[offset:], data)
	d.enc.UploadResource(h, offset, data)
	return nil
}

// DestroyResource releases a buffer or texture. Bindings that referenced
// the handle keep their stale handle value; binding zero or another
// resource replaces them, matching backend lifetime rules.
func (d *Device) DestroyResource(h cmdstream.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLost(); err != nil {
		return err
	}
	if _, ok := d.resources[h]; !ok {
		return ErrBadParameter
	}
	delete(d.resources, h)
	d.enc.DestroyResource(h)
	return nil
}

// bufferShadow returns the host shadow of a buffer, or nil when the
// handle is unknown or not a buffer. Caller holds d.mu.
func (d *Device) bufferShadow(h cmdstream.Handle) []byte {
	res, ok := d.resources[h]
	if !ok || res.kind != kindBuffer {
		return nil
	}
	return res.shadow
}
