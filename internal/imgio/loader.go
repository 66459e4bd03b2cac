// Image file loading and saving backed by OpenCV
package imgio

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"
)

var (
	// ErrUnsupportedFormat is returned when a path does not carry a
	// recognized image file extension.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrDecode is returned when a file exists but cannot be decoded
	// into a valid bitmap. A partial or corrupt decode never produces
	// an image.
	ErrDecode = errors.New("invalid or corrupted image file")
)

// Loader handles image file operations. All OpenCV Mats stay inside
// this package; callers only ever see Go images.
type Loader struct {
	logger *slog.Logger
}

func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{
		logger: logger,
	}
}

// Load reads and decodes the image at path.
func (l *Loader) Load(path string) (image.Image, error) {
	l.logger.Debug("Loading image", "path", path)

	if !isSupportedImageFormat(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	mat := gocv.IMRead(path, gocv.IMReadColor)
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrDecode, path)
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("converting %s: %w", path, err)
	}

	l.logger.Info("Image loaded successfully",
		"path", path,
		"width", mat.Cols(),
		"height", mat.Rows(),
		"channels", mat.Channels())

	return img, nil
}

// Save encodes img to path. The format is chosen by file extension.
func (l *Loader) Save(img image.Image, path string) error {
	l.logger.Debug("Saving image", "path", path)

	if img == nil {
		return fmt.Errorf("cannot save nil image")
	}

	if !isSupportedImageFormat(path) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return fmt.Errorf("converting image for %s: %w", path, err)
	}
	defer mat.Close()

	if ok := gocv.IMWrite(path, mat); !ok {
		return fmt.Errorf("failed to save image: %s", path)
	}

	l.logger.Info("Image saved successfully",
		"path", path,
		"width", mat.Cols(),
		"height", mat.Rows())

	return nil
}

// Validate checks that path points to a decodable image without
// handing the decoded bitmap to the caller.
func (l *Loader) Validate(path string) error {
	if !isSupportedImageFormat(path) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	mat := gocv.IMRead(path, gocv.IMReadGrayScale)
	defer mat.Close()

	if mat.Empty() {
		return fmt.Errorf("%w: %s", ErrDecode, path)
	}

	if mat.Cols() <= 0 || mat.Rows() <= 0 {
		return fmt.Errorf("%w: %s: invalid dimensions", ErrDecode, path)
	}

	return nil
}

func (l *Loader) GetSupportedFormats() []string {
	return []string{"JPEG", "PNG", "TIFF", "BMP"}
}

func isSupportedImageFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	supportedFormats := []string{".jpg", ".jpeg", ".png", ".tiff", ".tif", ".bmp"}

	for _, format := range supportedFormats {
		if ext == format {
			return true
		}
	}

	return false
}
