package filters

import (
	"fmt"
	"image"

	"gonum.org/v1/gonum/mat"
)

// Matrix converts a bitmap into a rows x cols intensity matrix with
// values in [0,1].
func Matrix(img image.Image) *mat.Dense {
	b := img.Bounds()
	if b.Empty() {
		return mat.NewDense(1, 1, nil)
	}

	m := mat.NewDense(b.Dy(), b.Dx(), nil)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			m.Set(y, x, intensity(img.At(b.Min.X+x, b.Min.Y+y).RGBA()))
		}
	}
	return m
}

// ChannelMatrix converts one color channel (0=red, 1=green, 2=blue)
// of a bitmap into a rows x cols matrix with values in [0,1].
func ChannelMatrix(img image.Image, channel int) (*mat.Dense, error) {
	if channel < 0 || channel > 2 {
		return nil, fmt.Errorf("channel out of range: %d", channel)
	}

	b := img.Bounds()
	if b.Empty() {
		return mat.NewDense(1, 1, nil), nil
	}

	m := mat.NewDense(b.Dy(), b.Dx(), nil)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			var v uint32
			switch channel {
			case 0:
				v = r
			case 1:
				v = g
			case 2:
				v = bl
			}
			m.Set(y, x, float64(v)/0xffff)
		}
	}
	return m, nil
}

// intensity reduces premultiplied 16-bit RGBA to a luma value in [0,1]
// using the Rec. 601 weights.
func intensity(r, g, b, _ uint32) float64 {
	return (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 0xffff
}

func intensityAt(img image.Image, x, y int) float64 {
	b := img.Bounds()
	return intensity(img.At(b.Min.X+x, b.Min.Y+y).RGBA())
}
