package filters

import (
	"fmt"
	"image"
)

// ScalarFilter reduces a bitmap view to a single number. Used by
// sensors, which hand in a view already cropped to their receptive
// field.
type ScalarFilter interface {
	Name() string
	Reduce(img image.Image) (float64, error)
}

// MeanIntensityFilter reduces a bitmap to its mean pixel intensity
// in [0,1]. An empty view reduces to zero.
type MeanIntensityFilter struct{}

func NewMeanIntensityFilter() *MeanIntensityFilter {
	return &MeanIntensityFilter{}
}

func (f *MeanIntensityFilter) Name() string {
	return "Mean intensity"
}

func (f *MeanIntensityFilter) Reduce(img image.Image) (float64, error) {
	if img == nil {
		return 0, fmt.Errorf("%s: nil input bitmap", f.Name())
	}

	b := img.Bounds()
	if b.Empty() {
		return 0, nil
	}

	var sum float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sum += intensity(img.At(x, y).RGBA())
		}
	}
	return sum / float64(b.Dx()*b.Dy()), nil
}
