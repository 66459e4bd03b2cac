// Positioned scalar sensors over a bitmap.
package sensor

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"fyne.io/fyne/v2/data/binding"

	"neural-image-sensing/internal/filters"
)

// ErrNilBitmap is returned when a nil bitmap is passed to Sample.
var ErrNilBitmap = errors.New("sensor: nil bitmap")

// ReceptiveField is an axis-aligned sampling window in bitmap
// coordinate space. It may exceed the bitmap bounds; sampling clamps
// it to the actual extent.
type ReceptiveField struct {
	X      int
	Y      int
	Width  int
	Height int
}

func (rf ReceptiveField) Rect() image.Rectangle {
	return image.Rect(rf.X, rf.Y, rf.X+rf.Width, rf.Y+rf.Height)
}

// Clamp intersects the field with the given bitmap bounds. The result
// may be smaller than requested, or empty.
func (rf ReceptiveField) Clamp(bounds image.Rectangle) image.Rectangle {
	return rf.Rect().Intersect(bounds)
}

// Sensor reduces the receptive-field window of a bitmap to one scalar
// through its filter and exposes that scalar as a named output. The
// filter is a bound property: replacing it notifies property
// observers. Sampling does not.
type Sensor struct {
	filter     filters.ScalarFilter
	field      ReceptiveField
	sample     float64
	filterProp binding.Untyped
}

func New(f filters.ScalarFilter, field ReceptiveField) (*Sensor, error) {
	if f == nil {
		return nil, errors.New("sensor: filter must not be nil")
	}
	if field.Width < 0 || field.Height < 0 {
		return nil, fmt.Errorf("sensor: negative receptive field extents: %dx%d", field.Width, field.Height)
	}

	s := &Sensor{
		filter:     f,
		field:      field,
		filterProp: binding.NewUntyped(),
	}
	if err := s.filterProp.Set(f); err != nil {
		return nil, err
	}
	return s, nil
}

// Sample extracts the receptive-field view of img and reduces it to a
// scalar. Out-of-bounds field coordinates are clamped, producing a
// smaller view rather than an error. The result is cached and
// available through LastSample.
func (s *Sensor) Sample(img image.Image) (float64, error) {
	if img == nil {
		return 0, ErrNilBitmap
	}

	view := s.field.Clamp(img.Bounds())
	crop := image.NewRGBA(image.Rect(0, 0, view.Dx(), view.Dy()))
	if !view.Empty() {
		draw.Draw(crop, crop.Bounds(), img, view.Min, draw.Src)
	}

	v, err := s.filter.Reduce(crop)
	if err != nil {
		return 0, err
	}
	s.sample = v
	return v, nil
}

// LastSample returns the most recent sample, zero before the first
// Sample call.
func (s *Sensor) LastSample() float64 {
	return s.sample
}

func (s *Sensor) Filter() filters.ScalarFilter {
	return s.filter
}

// SetFilter replaces the filter and notifies property observers.
func (s *Sensor) SetFilter(f filters.ScalarFilter) error {
	if f == nil {
		return errors.New("sensor: filter must not be nil")
	}
	s.filter = f
	return s.filterProp.Set(f)
}

// OnFilterChanged registers fn to run whenever the filter property
// changes. Following binding semantics, fn also runs once on
// registration with the current value.
func (s *Sensor) OnFilterChanged(fn func()) {
	s.filterProp.AddListener(binding.NewDataListener(fn))
}

func (s *Sensor) ReceptiveField() ReceptiveField {
	return s.field
}

func (s *Sensor) SetReceptiveField(field ReceptiveField) error {
	if field.Width < 0 || field.Height < 0 {
		return fmt.Errorf("sensor: negative receptive field extents: %dx%d", field.Width, field.Height)
	}
	s.field = field
	return nil
}

// Description names the sensor output by its window geometry.
func (s *Sensor) Description() string {
	return fmt.Sprintf("Sensor %dx%d @ (%d, %d)", s.field.Width, s.field.Height, s.field.X, s.field.Y)
}
