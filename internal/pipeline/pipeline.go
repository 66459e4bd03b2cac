// Pipeline controller: owns the image sources, the sensor matrices
// and the fan-out of pipeline-level events.
package pipeline

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"neural-image-sensing/internal/filters"
	"neural-image-sensing/internal/imgio"
	"neural-image-sensing/internal/source"
)

var (
	// ErrProtectedMatrix is returned on attempts to remove the default
	// "Unfiltered" sensor matrix. Expected and recoverable, not a
	// program error.
	ErrProtectedMatrix = errors.New("pipeline: cannot remove the Unfiltered sensor matrix")

	// ErrMatrixNotFound is returned when an operation names a sensor
	// matrix the pipeline does not hold.
	ErrMatrixNotFound = errors.New("pipeline: sensor matrix not found")

	// ErrDuplicateMatrix is returned when adding a sensor matrix whose
	// name, compared case-insensitively, is already taken.
	ErrDuplicateMatrix = errors.New("pipeline: sensor matrix name already in use")
)

// protectedMatrixName is matched case-insensitively.
const protectedMatrixName = "Unfiltered"

// Listener receives pipeline-level events, synchronously and in
// registration order.
type Listener interface {
	SourceChanged(s source.ImageSource)
	SensorMatrixAdded(m *SensorMatrix)
	SensorMatrixRemoved(m *SensorMatrix)
}

// Pipeline owns the static source, the emitter, the composite source
// that selects between them, and the ordered collection of sensor
// matrices built on top. Exactly one sensor matrix is current at any
// time after construction.
//
// Sensor matrices keep insertion order; that order is canonical and
// also defines the fallback ("previous entry") when the current
// matrix is removed.
type Pipeline struct {
	static    *source.StaticSource
	emitter   *source.EmitterSource
	composite *source.CompositeSource

	matrices []*SensorMatrix
	current  *SensorMatrix

	listeners []Listener
	display   source.Listener

	loader *imgio.Loader
	logger *slog.Logger
}

// New constructs a pipeline with the default sensor matrices:
// "Unfiltered" bound directly to the composite source, plus the
// starter set of filtered views. The static source starts selected.
func New(logger *slog.Logger) (*Pipeline, error) {
	p, err := newBare(logger)
	if err != nil {
		return nil, err
	}

	starters := []filters.Spec{
		{Kind: filters.KindColor, Cols: 25, Rows: 25},
		{Kind: filters.KindThreshold, Threshold: 0.5, Cols: 10, Rows: 10},
		{Kind: filters.KindOffset, OffsetX: 25, OffsetY: 25, CropWidth: 100, CropHeight: 100, Cols: 100, Rows: 100},
	}
	names := []string{"Color 25x25", "Threshold 10x10", "Offset 100x100"}

	for i, spec := range starters {
		m, err := p.NewFilteredMatrix(names[i], spec)
		if err != nil {
			return nil, err
		}
		p.matrices = append(p.matrices, m)
	}

	p.logger.Info("Pipeline constructed",
		"sensor_matrices", len(p.matrices),
		"current", p.current.Name())
	return p, nil
}

// newBare builds the sources and the protected "Unfiltered" matrix
// only. Restore adds persisted matrices on top of this.
func newBare(logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	loader := imgio.NewLoader(logger)
	static := source.NewStaticSource(loader)
	emitter := source.NewEmitterSource()
	composite := source.NewCompositeSource(static)

	p := &Pipeline{
		static:    static,
		emitter:   emitter,
		composite: composite,
		loader:    loader,
		logger:    logger,
	}

	unfiltered := NewSensorMatrix(protectedMatrixName, composite)
	p.matrices = append(p.matrices, unfiltered)
	p.current = unfiltered
	return p, nil
}

// NewFilteredMatrix builds a sensor matrix whose source chains a
// filter off the composite source. The matrix is not added to the
// pipeline; pass it to AddSensorMatrix.
func (p *Pipeline) NewFilteredMatrix(name string, spec filters.Spec) (*SensorMatrix, error) {
	f, err := filters.New(spec)
	if err != nil {
		return nil, fmt.Errorf("sensor matrix %q: %w", name, err)
	}
	fs, err := source.NewFilteredSource(p.composite, f)
	if err != nil {
		return nil, fmt.Errorf("sensor matrix %q: %w", name, err)
	}
	return NewSensorMatrix(name, fs), nil
}

// LoadImage loads the file at path into the static source. On failure
// the static source keeps its previous bitmap.
func (p *Pipeline) LoadImage(path string) error {
	if err := p.static.Load(path); err != nil {
		return err
	}
	p.logger.Info("Image loaded into static source", "path", path)
	p.fireSourceChanged(p.static)
	return nil
}

// SaveImage writes the current sensor matrix's bitmap to path.
func (p *Pipeline) SaveImage(path string) error {
	return p.loader.Save(p.current.Source().CurrentImage(), path)
}

// SetImage replaces the static source's bitmap directly.
func (p *Pipeline) SetImage(img image.Image) error {
	return p.static.SetCurrentImage(img)
}

// ClearImage resets whichever source is selected: the emitter is
// cleared and re-emitted, the static source drops back to a small
// black bitmap.
func (p *Pipeline) ClearImage() error {
	if p.EmitterSelected() {
		p.emitter.Clear()
		return p.emitter.Emit()
	}
	return p.static.SetCurrentImage(source.BlankImage(10, 10))
}

// SelectStaticSource switches the composite source to the static
// image.
func (p *Pipeline) SelectStaticSource() error {
	return p.composite.SetSource(p.static)
}

// SelectEmitterSource switches the composite source to the emitter.
func (p *Pipeline) SelectEmitterSource() error {
	return p.composite.SetSource(p.emitter)
}

// EmitterSelected reports whether the emitter is the composite's
// active source.
func (p *Pipeline) EmitterSelected() bool {
	return p.composite.Source() == source.ImageSource(p.emitter)
}

func (p *Pipeline) ResizeEmitter(width, height int) error {
	if err := p.emitter.Resize(width, height); err != nil {
		return err
	}
	p.fireSourceChanged(p.emitter)
	return nil
}

func (p *Pipeline) SetUseColorEmitter(useColor bool) error {
	if err := p.emitter.SetUsingColor(useColor); err != nil {
		return err
	}
	p.fireSourceChanged(p.emitter)
	return nil
}

func (p *Pipeline) UseColorEmitter() bool { return p.emitter.UsingColor() }
func (p *Pipeline) EmitterWidth() int     { return p.emitter.Width() }
func (p *Pipeline) EmitterHeight() int    { return p.emitter.Height() }

// Emitter exposes the writable emitter buffer to producers.
func (p *Pipeline) Emitter() *source.EmitterSource {
	return p.emitter
}

// Emit publishes the emitter's buffer contents.
func (p *Pipeline) Emit() error {
	return p.emitter.Emit()
}

// AddSensorMatrix appends the matrix, makes it current and fires a
// matrix-added event. Names are unique case-insensitively; a rejected
// matrix has its listener wiring torn down, since the caller built it
// for this pipeline and cannot use it elsewhere.
func (p *Pipeline) AddSensorMatrix(m *SensorMatrix) error {
	if held, ok := p.FindSensorMatrix(m.Name()); ok {
		if held != m {
			if fs, okFS := m.Source().(*source.FilteredSource); okFS {
				fs.Detach()
			}
			m.Source().RemoveListener(m)
		}
		return fmt.Errorf("%w: %s", ErrDuplicateMatrix, m.Name())
	}
	p.matrices = append(p.matrices, m)
	if err := p.SetCurrentSensorMatrix(m); err != nil {
		return err
	}
	p.logger.Info("Sensor matrix added", "name", m.Name())
	p.fireSensorMatrixAdded(m)
	return nil
}

// RemoveSensorMatrix removes the matrix and tears down its listener
// wiring. The "Unfiltered" matrix is protected (ErrProtectedMatrix).
// Removing the current matrix first reassigns current to the
// preceding entry in insertion order, so there is never a window
// without a current view.
func (p *Pipeline) RemoveSensorMatrix(m *SensorMatrix) error {
	if m.NameEquals(protectedMatrixName) {
		return ErrProtectedMatrix
	}

	index := -1
	for i, held := range p.matrices {
		if held == m {
			index = i
			break
		}
	}
	if index < 0 {
		return ErrMatrixNotFound
	}

	if m == p.current {
		fallback := index - 1
		if fallback < 0 {
			fallback = index + 1
		}
		if err := p.SetCurrentSensorMatrix(p.matrices[fallback]); err != nil {
			return err
		}
	}

	p.matrices = append(p.matrices[:index], p.matrices[index+1:]...)

	if fs, ok := m.Source().(*source.FilteredSource); ok {
		fs.Detach()
	}
	m.Source().RemoveListener(m)

	p.logger.Info("Sensor matrix removed", "name", m.Name())
	p.fireSensorMatrixRemoved(m)
	return nil
}

// SetCurrentSensorMatrix makes m the current view. The display
// listener, if any, is moved from the old current source to the new
// one. A no-op when m is already current.
func (p *Pipeline) SetCurrentSensorMatrix(m *SensorMatrix) error {
	if m == p.current {
		return nil
	}

	found := false
	for _, held := range p.matrices {
		if held == m {
			found = true
			break
		}
	}
	if !found {
		return ErrMatrixNotFound
	}

	if p.display != nil {
		p.current.Source().RemoveListener(p.display)
		m.Source().AddListener(p.display)
	}
	p.current = m
	p.logger.Debug("Current sensor matrix changed", "name", m.Name())
	return nil
}

// SetDisplay registers the display surface as a listener of the
// current matrix's source. A previously registered display is
// replaced. Pass nil to detach.
func (p *Pipeline) SetDisplay(display source.Listener) {
	if p.display != nil {
		p.current.Source().RemoveListener(p.display)
	}
	p.display = display
	if display != nil {
		p.current.Source().AddListener(display)
	}
}

func (p *Pipeline) CurrentSensorMatrix() *SensorMatrix {
	return p.current
}

// SensorMatrices returns the matrices in insertion order. The slice
// is a copy; the matrices are shared.
func (p *Pipeline) SensorMatrices() []*SensorMatrix {
	out := make([]*SensorMatrix, len(p.matrices))
	copy(out, p.matrices)
	return out
}

// FindSensorMatrix looks a matrix up by name, ignoring case.
func (p *Pipeline) FindSensorMatrix(name string) (*SensorMatrix, bool) {
	for _, m := range p.matrices {
		if m.NameEquals(name) {
			return m, true
		}
	}
	return nil, false
}

// ImageSources enumerates every source the pipeline knows: the two
// concrete origins plus each matrix's source.
func (p *Pipeline) ImageSources() []source.ImageSource {
	sources := []source.ImageSource{p.static, p.emitter}
	for _, m := range p.matrices {
		sources = append(sources, m.Source())
	}
	return sources
}

// CurrentImageSource returns the composite's active concrete source.
func (p *Pipeline) CurrentImageSource() source.ImageSource {
	return p.composite.Source()
}

// CompositeSource returns the stable source that filtered views chain
// off.
func (p *Pipeline) CompositeSource() *source.CompositeSource {
	return p.composite
}

func (p *Pipeline) AddPipelineListener(l Listener) {
	p.listeners = append(p.listeners, l)
}

func (p *Pipeline) fireSourceChanged(s source.ImageSource) {
	for _, l := range p.listeners {
		l.SourceChanged(s)
	}
}

func (p *Pipeline) fireSensorMatrixAdded(m *SensorMatrix) {
	for _, l := range p.listeners {
		l.SensorMatrixAdded(m)
	}
}

func (p *Pipeline) fireSensorMatrixRemoved(m *SensorMatrix) {
	for _, l := range p.listeners {
		l.SensorMatrixRemoved(m)
	}
}
