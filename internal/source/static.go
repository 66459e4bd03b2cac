package source

import (
	"errors"
	"image"

	"neural-image-sensing/internal/imgio"
)

var errNilBitmap = errors.New("source: nil bitmap")

const defaultStaticSize = 10

// StaticSource holds an externally provided bitmap. It starts out
// with a small black image so CurrentImage is defined from
// construction on.
type StaticSource struct {
	notifier
	current image.Image
	loader  *imgio.Loader
}

func NewStaticSource(loader *imgio.Loader) *StaticSource {
	if loader == nil {
		loader = imgio.NewLoader(nil)
	}
	return &StaticSource{
		notifier: newNotifier(),
		current:  BlankImage(defaultStaticSize, defaultStaticSize),
		loader:   loader,
	}
}

func (s *StaticSource) CurrentImage() image.Image {
	return s.current
}

// SetCurrentImage replaces the bitmap and notifies listeners. The
// previous bitmap is never mutated; consumers holding it keep a
// consistent frame.
func (s *StaticSource) SetCurrentImage(img image.Image) error {
	if img == nil {
		return errNilBitmap
	}

	resized := !img.Bounds().Size().Eq(s.current.Bounds().Size())
	s.current = img

	if resized {
		if err := s.notifyResize(s); err != nil {
			return err
		}
	}
	return s.notify(s)
}

// Load reads the image at path into this source. The current bitmap
// is replaced only if the file decodes cleanly; on failure the source
// keeps its previous image.
func (s *StaticSource) Load(path string) error {
	img, err := s.loader.Load(path)
	if err != nil {
		return err
	}
	return s.SetCurrentImage(img)
}
