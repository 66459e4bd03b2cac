package filters

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/anthonynsimon/bild/transform"
)

// GridColorFilter partitions the source bitmap into cols x rows cells
// and outputs one pixel per cell holding the cell's mean color.
type GridColorFilter struct {
	cols int
	rows int
}

func NewGridColorFilter(cols, rows int) (*GridColorFilter, error) {
	if cols < 1 || rows < 1 {
		return nil, fmt.Errorf("grid dimensions must be positive: %dx%d", cols, rows)
	}
	return &GridColorFilter{cols: cols, rows: rows}, nil
}

func (f *GridColorFilter) Name() string {
	return fmt.Sprintf("Color %dx%d", f.cols, f.rows)
}

func (f *GridColorFilter) Apply(img image.Image) (*image.RGBA, error) {
	if img == nil {
		return nil, fmt.Errorf("%s: nil input bitmap", f.Name())
	}
	return downsample(img, f.cols, f.rows), nil
}

func (f *GridColorFilter) Spec() Spec {
	return Spec{Kind: KindColor, Cols: f.cols, Rows: f.rows}
}

// GridThresholdFilter collapses each cell's mean intensity to binary
// black or white by comparison against a cutoff in [0,1].
type GridThresholdFilter struct {
	threshold float64
	cols      int
	rows      int
}

func NewGridThresholdFilter(threshold float64, cols, rows int) (*GridThresholdFilter, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold out of range [0,1]: %g", threshold)
	}
	if cols < 1 || rows < 1 {
		return nil, fmt.Errorf("grid dimensions must be positive: %dx%d", cols, rows)
	}
	return &GridThresholdFilter{threshold: threshold, cols: cols, rows: rows}, nil
}

func (f *GridThresholdFilter) Name() string {
	return fmt.Sprintf("Threshold %dx%d", f.cols, f.rows)
}

func (f *GridThresholdFilter) Threshold() float64 {
	return f.threshold
}

func (f *GridThresholdFilter) Apply(img image.Image) (*image.RGBA, error) {
	if img == nil {
		return nil, fmt.Errorf("%s: nil input bitmap", f.Name())
	}

	small := downsample(img, f.cols, f.rows)
	for y := 0; y < f.rows; y++ {
		for x := 0; x < f.cols; x++ {
			v := intensityAt(small, x, y)
			if v >= f.threshold {
				small.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
			} else {
				small.SetRGBA(x, y, color.RGBA{A: 255})
			}
		}
	}
	return small, nil
}

func (f *GridThresholdFilter) Spec() Spec {
	return Spec{Kind: KindThreshold, Threshold: f.threshold, Cols: f.cols, Rows: f.rows}
}

// OffsetGridFilter crops the bitmap to a rectangle before grid
// sampling. The crop is clamped to the bitmap bounds; a crop that
// falls entirely outside yields a single black cell rather than an
// error.
type OffsetGridFilter struct {
	offsetX    int
	offsetY    int
	cropWidth  int
	cropHeight int
	cols       int
	rows       int
}

func NewOffsetGridFilter(offsetX, offsetY, cropWidth, cropHeight, cols, rows int) (*OffsetGridFilter, error) {
	if cropWidth < 0 || cropHeight < 0 {
		return nil, fmt.Errorf("crop extents must be non-negative: %dx%d", cropWidth, cropHeight)
	}
	if cols < 1 || rows < 1 {
		return nil, fmt.Errorf("grid dimensions must be positive: %dx%d", cols, rows)
	}
	return &OffsetGridFilter{
		offsetX:    offsetX,
		offsetY:    offsetY,
		cropWidth:  cropWidth,
		cropHeight: cropHeight,
		cols:       cols,
		rows:       rows,
	}, nil
}

func (f *OffsetGridFilter) Name() string {
	return fmt.Sprintf("Offset %dx%d", f.cropWidth, f.cropHeight)
}

func (f *OffsetGridFilter) Apply(img image.Image) (*image.RGBA, error) {
	if img == nil {
		return nil, fmt.Errorf("%s: nil input bitmap", f.Name())
	}

	b := img.Bounds()
	crop := image.Rect(
		b.Min.X+f.offsetX,
		b.Min.Y+f.offsetY,
		b.Min.X+f.offsetX+f.cropWidth,
		b.Min.Y+f.offsetY+f.cropHeight,
	).Intersect(b)

	if crop.Empty() {
		empty := image.NewRGBA(image.Rect(0, 0, 1, 1))
		empty.SetRGBA(0, 0, color.RGBA{A: 255})
		return empty, nil
	}

	cropped := image.NewRGBA(image.Rect(0, 0, crop.Dx(), crop.Dy()))
	draw.Draw(cropped, cropped.Bounds(), img, crop.Min, draw.Src)

	return downsample(cropped, f.cols, f.rows), nil
}

func (f *OffsetGridFilter) Spec() Spec {
	return Spec{
		Kind:       KindOffset,
		OffsetX:    f.offsetX,
		OffsetY:    f.offsetY,
		CropWidth:  f.cropWidth,
		CropHeight: f.cropHeight,
		Cols:       f.cols,
		Rows:       f.rows,
	}
}

// downsample reduces img to a cols x rows bitmap where each pixel is
// the box-filtered mean of its source cell.
func downsample(img image.Image, cols, rows int) *image.RGBA {
	return transform.Resize(img, cols, rows, transform.Box)
}

func newColorFromSpec(spec Spec) (Filter, error) {
	return NewGridColorFilter(spec.Cols, spec.Rows)
}

func newThresholdFromSpec(spec Spec) (Filter, error) {
	return NewGridThresholdFilter(spec.Threshold, spec.Cols, spec.Rows)
}

func newOffsetFromSpec(spec Spec) (Filter, error) {
	return NewOffsetGridFilter(spec.OffsetX, spec.OffsetY, spec.CropWidth, spec.CropHeight, spec.Cols, spec.Rows)
}
