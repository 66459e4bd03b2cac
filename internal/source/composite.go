package source

import (
	"errors"
	"image"
)

// CompositeSource forwards to whichever concrete source is currently
// selected, so consumers can chain off one stable source while the
// origin is swapped underneath them. The active source reference is
// non-owning.
type CompositeSource struct {
	notifier
	active ImageSource
}

func NewCompositeSource(active ImageSource) *CompositeSource {
	c := &CompositeSource{
		notifier: newNotifier(),
		active:   active,
	}
	active.AddListener(c)
	return c
}

// Source returns the currently selected concrete source.
func (c *CompositeSource) Source() ImageSource {
	return c.active
}

// SetSource switches the active source. The composite deregisters
// from the old source, registers on the new one and immediately
// re-fires, so downstream filtered sources recompute against the new
// origin without waiting for its next mutation.
func (c *CompositeSource) SetSource(s ImageSource) error {
	if s == nil {
		return errors.New("source: nil composite target")
	}
	if s == c.active {
		return nil
	}

	c.active.RemoveListener(c)
	s.AddListener(c)
	c.active = s

	if err := c.notifyResize(c); err != nil {
		return err
	}
	return c.notify(c)
}

func (c *CompositeSource) CurrentImage() image.Image {
	return c.active.CurrentImage()
}

// Refresh re-broadcasts the current image without any mutation. Used
// after deserialization to push the restored state through a freshly
// rebuilt listener graph.
func (c *CompositeSource) Refresh() error {
	return c.notify(c)
}

func (c *CompositeSource) ImageUpdated(ImageSource) error {
	return c.notify(c)
}

func (c *CompositeSource) ImageResized(ImageSource) error {
	return c.notifyResize(c)
}
