package pipeline

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/aerod3d9/cmdstream"
	"github.com/gogpu/aerod3d9/fvf"
)

// ProcessVerticesDoNotCopyData limits output to the transformed position;
// color and texture coordinate elements of the destination are skipped.
const ProcessVerticesDoNotCopyData uint32 = 0x1

func f32At(b []byte, off uint64) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

// findAttr returns the layout attribute with the given semantic, or nil.
func findAttr(l *fvf.InputLayout, semantic string) *fvf.Attribute {
	for i := range l.Attributes {
		if l.Attributes[i].Semantic == semantic {
			return &l.Attributes[i]
		}
	}
	return nil
}

// ProcessVertices runs the legacy software vertex transform: vertexCount
// vertices are read from stream 0 starting at srcStart, transformed by
// the current world-view-projection and viewport, and written to dest at
// destIndex using the layout implied by destDecl. Declaration elements on
// streams other than 0 are ignored. Sources already carrying transformed
// positions copy through unchanged.
//
// The write lands in both the destination buffer's host shadow and an
// UPLOAD_RESOURCE packet. Source and destination may alias; the source
// window is snapshotted before any write.
func (d *Device) ProcessVertices(srcStart, destIndex, vertexCount uint32, dest cmdstream.Handle, destDecl []byte, flags uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLost(); err != nil {
		return err
	}
	if d.userVS != 0 {
		return ErrUserShaderBound
	}
	if vertexCount == 0 {
		return ErrBadParameter
	}

	src, err := d.resolveCurrentLayout()
	if err != nil {
		return err
	}
	if src == nil {
		return ErrNoVertexLayout
	}

	stream := d.streams[0]
	shadow := d.bufferShadow(stream.buffer)
	if shadow == nil {
		return ErrBadParameter
	}
	srcStride := uint64(stream.stride)
	if srcStride == 0 {
		srcStride = uint64(src.Stride())
	}

	blob0 := fvf.Stream0Decl(destDecl)
	if blob0 == nil {
		return fvf.ErrUnsupportedLayout
	}
	dl := fvf.NewLayoutFromDecl(blob0)
	if dl == nil {
		return fvf.ErrUnsupportedLayout
	}
	destStride := uint64(dl.Stride())

	res, ok := d.resources[dest]
	if !ok || res.kind != kindBuffer {
		return ErrBadParameter
	}
	destOff := uint64(destIndex) * destStride
	if destOff+uint64(vertexCount)*destStride > res.size {
		return ErrBadParameter
	}
	srcOff := uint64(stream.offset) + uint64(srcStart)*srcStride
	if srcOff+uint64(vertexCount)*srcStride > uint64(len(shadow)) {
		return ErrBadParameter
	}

	// Snapshot the source window so in-place transforms are safe.
	window := append([]byte(nil), shadow[srcOff:srcOff+uint64(vertexCount)*srcStride]...)

	srcPos := findAttr(src.InputLayout, "POSITION")
	srcCol := findAttr(src.InputLayout, "COLOR")
	srcTex := findAttr(src.InputLayout, "TEXCOORD")
	dstPos := findAttr(dl, "POSITION")
	dstCol := findAttr(dl, "COLOR")
	dstTex := findAttr(dl, "TEXCOORD")
	if srcPos == nil || dstPos == nil {
		return fvf.ErrUnsupportedLayout
	}

	copyData := flags&ProcessVerticesDoNotCopyData == 0
	passthrough := fvf.UsesRHW(src.Variant)
	wvp := d.world.Mul(d.view).Mul(d.proj)
	vp := d.viewport

	out := make([]byte, uint64(vertexCount)*destStride)
	for i := uint64(0); i < uint64(vertexCount); i++ {
		in := window[i*srcStride:]
		rec := out[i*destStride:]

		var x, y, z, rhw float32
		if passthrough {
			x = f32At(in, srcPos.Offset)
			y = f32At(in, srcPos.Offset+4)
			z = f32At(in, srcPos.Offset+8)
			rhw = f32At(in, srcPos.Offset+12)
		} else {
			ox := f32At(in, srcPos.Offset)
			oy := f32At(in, srcPos.Offset+4)
			oz := f32At(in, srcPos.Offset+8)
			cx, cy, cz, cw := wvp.TransformPoint(ox, oy, oz, 1)
			if cw == 0 {
				cw = 1
			}
			rhw = 1 / cw
			ndcX, ndcY := cx*rhw, cy*rhw
			x = (ndcX+1)/2*vp.Width + vp.X - 0.5
			y = (1-ndcY)/2*vp.Height + vp.Y - 0.5
			z = cz * rhw
		}

		p := dstPos.Offset
		binary.LittleEndian.PutUint32(rec[p:], math.Float32bits(x))
		binary.LittleEndian.PutUint32(rec[p+4:], math.Float32bits(y))
		binary.LittleEndian.PutUint32(rec[p+8:], math.Float32bits(z))
		if fvf.UsesRHW(dl.Variant) {
			binary.LittleEndian.PutUint32(rec[p+12:], math.Float32bits(rhw))
		}

		if !copyData {
			continue
		}
		if dstCol != nil {
			color := uint32(0xFFFFFFFF)
			if srcCol != nil {
				color = binary.LittleEndian.Uint32(in[srcCol.Offset:])
			}
			binary.LittleEndian.PutUint32(rec[dstCol.Offset:], color)
		}
		if dstTex != nil && srcTex != nil {
			dstDim := texDim(dl.FVF)
			srcDim := texDim(src.FVF)
			n := dstDim
			if srcDim < n {
				n = srcDim
			}
			for c := uint64(0); c < uint64(n); c++ {
				v := binary.LittleEndian.Uint32(in[srcTex.Offset+c*4:])
				binary.LittleEndian.PutUint32(rec[dstTex.Offset+c*4:], v)
			}
		}
	}

	copy(res.shadow[destOff:], out)
	d.enc.UploadResource(dest, destOff, out)
	d.log().Debug("vertices processed", "count", vertexCount, "destStride", destStride)
	return nil
}

// texDim returns the texcoord0 dimension encoded in a canonical FVF, or 0
// when the layout carries no texcoord.
func texDim(fvfBits uint32) uint32 {
	if fvf.TexCount(fvfBits) == 0 {
		return 0
	}
	return fvf.TexCoordDim(fvfBits, 0)
}
