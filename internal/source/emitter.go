package source

import (
	"fmt"
	"image"
)

const defaultEmitterSize = 10

// EmitterSource is a directly addressable pixel buffer written by a
// producer (typically a network's pixel-level output), not loaded
// from a file. Writes accumulate in the buffer; nothing is visible to
// listeners until Emit publishes the frame. Producers write many
// pixels between a Clear and an Emit, so notifying per write would
// show partial frames.
type EmitterSource struct {
	notifier
	width      int
	height     int
	usingColor bool
	buffer     []float64 // channels() values per pixel, row-major, [0,1]
	current    *image.RGBA
}

func NewEmitterSource() *EmitterSource {
	e := &EmitterSource{
		notifier: newNotifier(),
		width:    defaultEmitterSize,
		height:   defaultEmitterSize,
	}
	e.buffer = make([]float64, e.width*e.height*e.channels())
	e.current = BlankImage(e.width, e.height)
	return e
}

func (e *EmitterSource) Width() int       { return e.width }
func (e *EmitterSource) Height() int      { return e.height }
func (e *EmitterSource) UsingColor() bool { return e.usingColor }

func (e *EmitterSource) CurrentImage() image.Image {
	return e.current
}

func (e *EmitterSource) channels() int {
	if e.usingColor {
		return 3
	}
	return 1
}

// Resize reallocates the buffer, clears it to black, publishes a
// black frame and notifies listeners.
func (e *EmitterSource) Resize(width, height int) error {
	if width < 1 || height < 1 {
		return fmt.Errorf("emitter dimensions must be positive: %dx%d", width, height)
	}

	e.width = width
	e.height = height
	e.buffer = make([]float64, width*height*e.channels())
	e.current = BlankImage(width, height)

	if err := e.notifyResize(e); err != nil {
		return err
	}
	return e.notify(e)
}

// SetUsingColor switches between greyscale and RGB interpretation of
// subsequent writes. The buffer is reallocated and a black frame is
// published.
func (e *EmitterSource) SetUsingColor(usingColor bool) error {
	if usingColor == e.usingColor {
		return nil
	}
	e.usingColor = usingColor
	e.buffer = make([]float64, e.width*e.height*e.channels())
	e.current = BlankImage(e.width, e.height)
	return e.notify(e)
}

// Clear zero-fills the buffer without notifying. The caller publishes
// the cleared frame with Emit.
func (e *EmitterSource) Clear() {
	for i := range e.buffer {
		e.buffer[i] = 0
	}
}

// SetBrightness writes a greyscale value in [0,1] at (x, y).
// Out-of-bounds writes are ignored. In color mode the value lands on
// all three channels.
func (e *EmitterSource) SetBrightness(x, y int, v float64) {
	if x < 0 || x >= e.width || y < 0 || y >= e.height {
		return
	}
	v = clamp01(v)
	i := (y*e.width + x) * e.channels()
	for c := 0; c < e.channels(); c++ {
		e.buffer[i+c] = v
	}
}

// SetColor writes an RGB triple in [0,1] at (x, y). Out-of-bounds
// writes are ignored. In greyscale mode the triple collapses to its
// mean.
func (e *EmitterSource) SetColor(x, y int, r, g, b float64) {
	if x < 0 || x >= e.width || y < 0 || y >= e.height {
		return
	}
	i := (y*e.width + x) * e.channels()
	if e.usingColor {
		e.buffer[i+0] = clamp01(r)
		e.buffer[i+1] = clamp01(g)
		e.buffer[i+2] = clamp01(b)
		return
	}
	e.buffer[i] = clamp01((r + g + b) / 3)
}

// Emit publishes the buffer contents as the current image and
// notifies listeners. Until Emit is called, listeners keep seeing the
// previously published frame.
func (e *EmitterSource) Emit() error {
	img := image.NewRGBA(image.Rect(0, 0, e.width, e.height))
	for y := 0; y < e.height; y++ {
		for x := 0; x < e.width; x++ {
			i := (y*e.width + x) * e.channels()
			o := img.PixOffset(x, y)
			if e.usingColor {
				img.Pix[o+0] = toByte(e.buffer[i+0])
				img.Pix[o+1] = toByte(e.buffer[i+1])
				img.Pix[o+2] = toByte(e.buffer[i+2])
			} else {
				v := toByte(e.buffer[i])
				img.Pix[o+0] = v
				img.Pix[o+1] = v
				img.Pix[o+2] = v
			}
			img.Pix[o+3] = 0xff
		}
	}
	e.current = img
	return e.notify(e)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func toByte(v float64) uint8 {
	return uint8(v*255 + 0.5)
}
