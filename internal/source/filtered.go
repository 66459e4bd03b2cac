package source

import (
	"fmt"
	"image"

	"gonum.org/v1/gonum/mat"

	"neural-image-sensing/internal/filters"
)

// FilteredSource derives its bitmap from an upstream source through a
// filter. Recomputation is eager: it happens inside the upstream
// notification, so a read after any mutating call always reflects the
// latest upstream bitmap. A failing recompute aborts the owning
// notification rather than leaving a stale value behind.
type FilteredSource struct {
	notifier
	upstream ImageSource
	filter   filters.Filter
	current  *image.RGBA
	values   *mat.Dense
}

// NewFilteredSource builds the source, computes its initial output
// and registers it as a listener of upstream. The upstream reference
// is non-owning; tear the link down with Detach.
func NewFilteredSource(upstream ImageSource, f filters.Filter) (*FilteredSource, error) {
	if upstream == nil {
		return nil, fmt.Errorf("filtered source: nil upstream")
	}
	if f == nil {
		return nil, fmt.Errorf("filtered source: nil filter")
	}

	fs := &FilteredSource{
		notifier: newNotifier(),
		upstream: upstream,
		filter:   f,
	}
	if err := fs.recompute(); err != nil {
		return nil, err
	}
	upstream.AddListener(fs)
	return fs, nil
}

func (fs *FilteredSource) CurrentImage() image.Image {
	return fs.current
}

func (fs *FilteredSource) Filter() filters.Filter {
	return fs.filter
}

func (fs *FilteredSource) Upstream() ImageSource {
	return fs.upstream
}

// Values returns the cached intensity matrix of the filtered bitmap.
// The matrix is owned by the source; callers must not mutate it.
func (fs *FilteredSource) Values() *mat.Dense {
	return fs.values
}

// Channel returns one color channel (0=red, 1=green, 2=blue) of the
// filtered bitmap as a matrix.
func (fs *FilteredSource) Channel(channel int) (*mat.Dense, error) {
	return filters.ChannelMatrix(fs.current, channel)
}

// Detach deregisters this source from its upstream. After Detach the
// source no longer recomputes; it keeps serving its last output.
func (fs *FilteredSource) Detach() {
	fs.upstream.RemoveListener(fs)
}

func (fs *FilteredSource) recompute() error {
	img, err := fs.filter.Apply(fs.upstream.CurrentImage())
	if err != nil {
		return fmt.Errorf("filter %q: %w", fs.filter.Name(), err)
	}
	fs.current = img
	fs.values = filters.Matrix(img)
	return nil
}

func (fs *FilteredSource) ImageUpdated(ImageSource) error {
	if err := fs.recompute(); err != nil {
		return err
	}
	return fs.notify(fs)
}

func (fs *FilteredSource) ImageResized(ImageSource) error {
	before := fs.current.Bounds().Size()
	if err := fs.recompute(); err != nil {
		return err
	}
	if !fs.current.Bounds().Size().Eq(before) {
		return fs.notifyResize(fs)
	}
	return nil
}
