package pipeline

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"neural-image-sensing/internal/filters"
	"neural-image-sensing/internal/source"
)

// State is the serialization boundary of a pipeline: the sensor
// matrix name/filter pairs, the emitter configuration and the current
// selections. Listener graphs are not persisted; Restore rebuilds
// them fresh and fires a refresh notification.
type State struct {
	Matrices       []MatrixState `json:"sensor_matrices"`
	Emitter        EmitterState  `json:"emitter"`
	SelectedSource string        `json:"selected_source"` // "static" or "emitter"
	CurrentMatrix  string        `json:"current_matrix"`
}

// MatrixState pairs a sensor matrix name with its filter spec. A nil
// filter marks a matrix bound directly to the composite source.
type MatrixState struct {
	Name   string        `json:"name"`
	Filter *filters.Spec `json:"filter,omitempty"`
}

type EmitterState struct {
	Width      int  `json:"width"`
	Height     int  `json:"height"`
	UsingColor bool `json:"using_color"`
}

const (
	sourceKindStatic  = "static"
	sourceKindEmitter = "emitter"
)

// Snapshot captures the pipeline's persistable state.
func (p *Pipeline) Snapshot() State {
	st := State{
		Emitter: EmitterState{
			Width:      p.emitter.Width(),
			Height:     p.emitter.Height(),
			UsingColor: p.emitter.UsingColor(),
		},
		SelectedSource: sourceKindStatic,
		CurrentMatrix:  p.current.Name(),
	}
	if p.EmitterSelected() {
		st.SelectedSource = sourceKindEmitter
	}

	for _, m := range p.matrices {
		ms := MatrixState{Name: m.Name()}
		if fs, ok := m.Source().(*source.FilteredSource); ok {
			spec := fs.Filter().Spec()
			ms.Filter = &spec
		}
		st.Matrices = append(st.Matrices, ms)
	}
	return st
}

// Restore builds a pipeline from persisted state. Sources, matrices
// and the whole listener graph are constructed fresh; the final
// attach step re-broadcasts the current image so every consumer and
// display starts from a consistent view.
func Restore(st State, logger *slog.Logger) (*Pipeline, error) {
	p, err := newBare(logger)
	if err != nil {
		return nil, err
	}

	for _, ms := range st.Matrices {
		var m *SensorMatrix
		switch {
		case ms.Filter == nil && strings.EqualFold(ms.Name, protectedMatrixName):
			// The bare pipeline already carries the unfiltered view.
			continue
		case ms.Filter == nil:
			// A user-added matrix bound directly to the composite.
			m = NewSensorMatrix(ms.Name, p.composite)
		default:
			var err error
			m, err = p.NewFilteredMatrix(ms.Name, *ms.Filter)
			if err != nil {
				return nil, fmt.Errorf("restoring state: %w", err)
			}
		}
		p.matrices = append(p.matrices, m)
	}

	if st.Emitter.Width > 0 && st.Emitter.Height > 0 {
		if err := p.emitter.Resize(st.Emitter.Width, st.Emitter.Height); err != nil {
			return nil, fmt.Errorf("restoring state: %w", err)
		}
	}
	if err := p.emitter.SetUsingColor(st.Emitter.UsingColor); err != nil {
		return nil, fmt.Errorf("restoring state: %w", err)
	}

	if st.SelectedSource == sourceKindEmitter {
		if err := p.SelectEmitterSource(); err != nil {
			return nil, fmt.Errorf("restoring state: %w", err)
		}
	}

	if st.CurrentMatrix != "" {
		m, ok := p.FindSensorMatrix(st.CurrentMatrix)
		if !ok {
			return nil, fmt.Errorf("restoring state: %w: %s", ErrMatrixNotFound, st.CurrentMatrix)
		}
		if err := p.SetCurrentSensorMatrix(m); err != nil {
			return nil, fmt.Errorf("restoring state: %w", err)
		}
	}

	if err := p.attach(); err != nil {
		return nil, fmt.Errorf("restoring state: %w", err)
	}

	p.logger.Info("Pipeline restored",
		"sensor_matrices", len(p.matrices),
		"current", p.current.Name(),
		"selected_source", st.SelectedSource)
	return p, nil
}

// attach finishes restoration after all persisted fields are rebuilt:
// it pushes the restored image through the fresh listener graph once,
// so displays refresh without waiting for the next mutation.
func (p *Pipeline) attach() error {
	return p.composite.Refresh()
}

// WriteFile serializes the state as indented JSON.
func (s State) WriteFile(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding pipeline state: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing pipeline state: %w", err)
	}
	return nil
}

// ReadStateFile loads a state snapshot written by WriteFile.
func ReadStateFile(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, fmt.Errorf("reading pipeline state: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("decoding pipeline state: %w", err)
	}
	return st, nil
}
