// Observable image sources and their notification protocol.
//
// Every source variant embeds a notifier: an ordered listener registry
// keyed by a stable source ID. Delivery is synchronous, in
// registration order, and happens on the caller's goroutine. By the
// time a mutating call returns, every downstream consumer has already
// observed the new state.
package source

import (
	"fmt"
	"image"

	"github.com/google/uuid"
)

// Listener receives notifications from an ImageSource. Callbacks may
// themselves be sources that recompute and cascade their own
// notifications. A returned error aborts delivery and surfaces from
// the mutating call that triggered it.
type Listener interface {
	// ImageUpdated is called after the source's current image content
	// changed.
	ImageUpdated(s ImageSource) error

	// ImageResized is called after the source's dimensions changed,
	// before the matching ImageUpdated.
	ImageResized(s ImageSource) error
}

// ImageSource produces a current bitmap and notifies registered
// listeners when it changes. CurrentImage is total: it never returns
// nil once the source is constructed. The concrete variants are
// StaticSource, EmitterSource, FilteredSource and CompositeSource.
type ImageSource interface {
	ID() string
	CurrentImage() image.Image
	AddListener(l Listener)
	RemoveListener(l Listener)
}

// notifier is the listener registry embedded in every source variant.
// Mutating the registry or re-firing the same source from inside a
// callback is a precondition violation and panics: a producer must
// finish mutating before it notifies.
type notifier struct {
	id        string
	listeners []Listener
	notifying bool
}

func newNotifier() notifier {
	return notifier{id: uuid.NewString()}
}

// ID returns the stable identity of this source.
func (n *notifier) ID() string {
	return n.id
}

func (n *notifier) AddListener(l Listener) {
	if n.notifying {
		panic("source: AddListener called during notification")
	}
	n.listeners = append(n.listeners, l)
}

// RemoveListener removes l if registered. Removing a listener that is
// not present is a no-op.
func (n *notifier) RemoveListener(l Listener) {
	if n.notifying {
		panic("source: RemoveListener called during notification")
	}
	for i, registered := range n.listeners {
		if registered == l {
			n.listeners = append(n.listeners[:i], n.listeners[i+1:]...)
			return
		}
	}
}

func (n *notifier) notify(s ImageSource) error {
	if n.notifying {
		panic("source: re-entrant notification")
	}
	n.notifying = true
	defer func() { n.notifying = false }()

	for _, l := range n.listeners {
		if err := l.ImageUpdated(s); err != nil {
			return fmt.Errorf("image update listener: %w", err)
		}
	}
	return nil
}

func (n *notifier) notifyResize(s ImageSource) error {
	if n.notifying {
		panic("source: re-entrant notification")
	}
	n.notifying = true
	defer func() { n.notifying = false }()

	for _, l := range n.listeners {
		if err := l.ImageResized(s); err != nil {
			return fmt.Errorf("image resize listener: %w", err)
		}
	}
	return nil
}

// BlankImage returns an opaque black bitmap of the given size. It is
// the reset state shared by every source that starts or clears empty.
func BlankImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return img
}
