// Filter kinds that reduce a bitmap to a smaller bitmap whose pixels
// carry the numeric output of the filter.
package filters

import (
	"fmt"
	"image"
)

// Filter transforms a bitmap into a filtered bitmap. Filters are pure:
// applying the same filter to the same bitmap always reproduces the
// same output, so simulation runs stay reproducible.
type Filter interface {
	Name() string
	Apply(img image.Image) (*image.RGBA, error)
	Spec() Spec
}

// Spec is the serializable description of a filter: its kind plus the
// parameters that kind understands.
type Spec struct {
	Kind       string  `json:"kind"`
	Cols       int     `json:"cols,omitempty"`
	Rows       int     `json:"rows,omitempty"`
	Threshold  float64 `json:"threshold,omitempty"`
	OffsetX    int     `json:"offset_x,omitempty"`
	OffsetY    int     `json:"offset_y,omitempty"`
	CropWidth  int     `json:"crop_width,omitempty"`
	CropHeight int     `json:"crop_height,omitempty"`
}

// ParameterInfo describes a filter parameter for UI or config
// discovery.
type ParameterInfo struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"` // "int", "float"
	Min         interface{} `json:"min,omitempty"`
	Max         interface{} `json:"max,omitempty"`
	Default     interface{} `json:"default"`
	Description string      `json:"description"`
}

type kind struct {
	construct func(Spec) (Filter, error)
	params    []ParameterInfo
}

var kinds = make(map[string]kind)

// Register adds a filter kind under the given name. Registering a new
// kind does not touch existing ones.
func Register(name string, construct func(Spec) (Filter, error), params []ParameterInfo) {
	kinds[name] = kind{construct: construct, params: params}
}

// New builds a filter from its spec.
func New(spec Spec) (Filter, error) {
	k, exists := kinds[spec.Kind]
	if !exists {
		return nil, fmt.Errorf("filter kind not found: %s", spec.Kind)
	}

	return k.construct(spec)
}

func IsValidKind(name string) bool {
	_, exists := kinds[name]
	return exists
}

func Kinds() []string {
	result := make([]string, 0, len(kinds))
	for name := range kinds {
		result = append(result, name)
	}
	return result
}

// Parameters returns the parameter descriptors for a kind, or nil if
// the kind is unknown.
func Parameters(name string) []ParameterInfo {
	k, exists := kinds[name]
	if !exists {
		return nil
	}
	return k.params
}

const (
	KindColor     = "color"
	KindThreshold = "threshold"
	KindOffset    = "offset"
)

func init() {
	Register(KindColor, newColorFromSpec, []ParameterInfo{
		{Name: "cols", Type: "int", Min: 1, Default: 25, Description: "Grid columns"},
		{Name: "rows", Type: "int", Min: 1, Default: 25, Description: "Grid rows"},
	})
	Register(KindThreshold, newThresholdFromSpec, []ParameterInfo{
		{Name: "threshold", Type: "float", Min: 0.0, Max: 1.0, Default: 0.5, Description: "Intensity cutoff"},
		{Name: "cols", Type: "int", Min: 1, Default: 10, Description: "Grid columns"},
		{Name: "rows", Type: "int", Min: 1, Default: 10, Description: "Grid rows"},
	})
	Register(KindOffset, newOffsetFromSpec, []ParameterInfo{
		{Name: "offset_x", Type: "int", Min: 0, Default: 0, Description: "Crop origin X"},
		{Name: "offset_y", Type: "int", Min: 0, Default: 0, Description: "Crop origin Y"},
		{Name: "crop_width", Type: "int", Min: 0, Default: 100, Description: "Crop width"},
		{Name: "crop_height", Type: "int", Min: 0, Default: 100, Description: "Crop height"},
		{Name: "cols", Type: "int", Min: 1, Default: 100, Description: "Grid columns"},
		{Name: "rows", Type: "int", Min: 1, Default: 100, Description: "Grid rows"},
	})
}
