package pipeline

import (
	"strings"

	"gonum.org/v1/gonum/mat"

	"neural-image-sensing/internal/filters"
	"neural-image-sensing/internal/source"
)

// SensorMatrix is a named, user-facing binding of a label to an image
// source. It listens to its source and lazily rebuilds its numeric
// view after each notification.
type SensorMatrix struct {
	name   string
	src    source.ImageSource
	values *mat.Dense // nil means stale, rebuilt on next read
}

// NewSensorMatrix binds name to src and registers the matrix as a
// listener of src. Names are compared case-insensitively within a
// pipeline.
func NewSensorMatrix(name string, src source.ImageSource) *SensorMatrix {
	m := &SensorMatrix{
		name: name,
		src:  src,
	}
	src.AddListener(m)
	return m
}

func (m *SensorMatrix) Name() string {
	return m.name
}

func (m *SensorMatrix) Source() source.ImageSource {
	return m.src
}

// NameEquals reports whether name names this matrix, ignoring case.
func (m *SensorMatrix) NameEquals(name string) bool {
	return strings.EqualFold(m.name, name)
}

// Values returns the matrix's numeric view: the intensity matrix of
// its source's current bitmap. For a filtered source this is the
// filter's cached output. The matrix is owned by the receiver;
// callers must not mutate it.
func (m *SensorMatrix) Values() *mat.Dense {
	if m.values == nil {
		if fs, ok := m.src.(*source.FilteredSource); ok {
			m.values = fs.Values()
		} else {
			m.values = filters.Matrix(m.src.CurrentImage())
		}
	}
	return m.values
}

// Channel returns one color channel (0=red, 1=green, 2=blue) of the
// source's current bitmap.
func (m *SensorMatrix) Channel(channel int) (*mat.Dense, error) {
	return filters.ChannelMatrix(m.src.CurrentImage(), channel)
}

func (m *SensorMatrix) ImageUpdated(source.ImageSource) error {
	m.values = nil
	return nil
}

func (m *SensorMatrix) ImageResized(source.ImageSource) error {
	m.values = nil
	return nil
}
