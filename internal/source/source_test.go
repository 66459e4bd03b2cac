package source

import (
	"errors"
	"image"
	"testing"

	"neural-image-sensing/internal/filters"
)

// recorder counts notifications and tags them with an order index
// shared across recorders, so delivery order is checkable.
type recorder struct {
	updates int
	resizes int
	order   *[]*recorder
	fail    error
}

func (r *recorder) ImageUpdated(ImageSource) error {
	r.updates++
	if r.order != nil {
		*r.order = append(*r.order, r)
	}
	return r.fail
}

func (r *recorder) ImageResized(ImageSource) error {
	r.resizes++
	return nil
}

func whiteImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img
}

func TestStaticSourceHasImageFromConstruction(t *testing.T) {
	s := NewStaticSource(nil)
	if s.CurrentImage() == nil {
		t.Fatal("CurrentImage() = nil, want a defined bitmap after construction")
	}
	if s.ID() == "" {
		t.Error("ID() is empty")
	}
}

func TestNotifyDeliversInRegistrationOrder(t *testing.T) {
	s := NewStaticSource(nil)
	var order []*recorder
	first := &recorder{order: &order}
	second := &recorder{order: &order}
	s.AddListener(first)
	s.AddListener(second)

	if err := s.SetCurrentImage(whiteImage(10, 10)); err != nil {
		t.Fatalf("SetCurrentImage: %v", err)
	}

	if len(order) != 2 || order[0] != first || order[1] != second {
		t.Errorf("delivery order wrong: got %d notifications", len(order))
	}
	if first.updates != 1 || second.updates != 1 {
		t.Errorf("updates = (%d, %d), want (1, 1)", first.updates, second.updates)
	}
}

func TestRemoveListenerIsIdempotent(t *testing.T) {
	s := NewStaticSource(nil)
	r := &recorder{}
	s.RemoveListener(r) // not registered: must be a no-op

	s.AddListener(r)
	s.RemoveListener(r)
	s.RemoveListener(r)

	if err := s.SetCurrentImage(whiteImage(10, 10)); err != nil {
		t.Fatalf("SetCurrentImage: %v", err)
	}
	if r.updates != 0 {
		t.Errorf("removed listener got %d updates, want 0", r.updates)
	}
}

func TestListenerErrorFailsTheMutatingCall(t *testing.T) {
	s := NewStaticSource(nil)
	boom := errors.New("recompute failed")
	s.AddListener(&recorder{fail: boom})

	err := s.SetCurrentImage(whiteImage(10, 10))
	if !errors.Is(err, boom) {
		t.Fatalf("SetCurrentImage error = %v, want wrapped %v", err, boom)
	}
}

// mutator tampers with the listener registry from inside a callback,
// which is a precondition violation.
type mutator struct {
	src ImageSource
}

func (m *mutator) ImageUpdated(ImageSource) error {
	m.src.RemoveListener(m)
	return nil
}

func (m *mutator) ImageResized(ImageSource) error { return nil }

func TestRemoveDuringNotificationPanics(t *testing.T) {
	s := NewStaticSource(nil)
	s.AddListener(&mutator{src: s})

	defer func() {
		if recover() == nil {
			t.Error("expected panic when removing a listener during notification")
		}
	}()
	_ = s.SetCurrentImage(whiteImage(10, 10))
}

func TestStaticSourceResizeNotification(t *testing.T) {
	s := NewStaticSource(nil)
	r := &recorder{}
	s.AddListener(r)

	// Same size as the default: content change only.
	if err := s.SetCurrentImage(whiteImage(10, 10)); err != nil {
		t.Fatalf("SetCurrentImage: %v", err)
	}
	if r.resizes != 0 {
		t.Errorf("resizes = %d after same-size update, want 0", r.resizes)
	}

	if err := s.SetCurrentImage(whiteImage(20, 20)); err != nil {
		t.Fatalf("SetCurrentImage: %v", err)
	}
	if r.resizes != 1 {
		t.Errorf("resizes = %d after size change, want 1", r.resizes)
	}
	if r.updates != 2 {
		t.Errorf("updates = %d, want 2", r.updates)
	}
}

func TestCompositeSwitchRefiresEvenWithoutUpstreamMutation(t *testing.T) {
	static := NewStaticSource(nil)
	emitter := NewEmitterSource()
	composite := NewCompositeSource(static)

	r := &recorder{}
	composite.AddListener(r)

	if err := composite.SetSource(emitter); err != nil {
		t.Fatalf("SetSource: %v", err)
	}
	if r.updates != 1 || r.resizes != 1 {
		t.Errorf("after switch: updates = %d, resizes = %d, want 1, 1", r.updates, r.resizes)
	}
	if composite.Source() != ImageSource(emitter) {
		t.Error("Source() does not report the new active source")
	}

	// Switching to the already-active source is a no-op.
	if err := composite.SetSource(emitter); err != nil {
		t.Fatalf("SetSource: %v", err)
	}
	if r.updates != 1 {
		t.Errorf("no-op switch fired %d extra updates", r.updates-1)
	}
}

func TestCompositeDeregistersFromOldSource(t *testing.T) {
	static := NewStaticSource(nil)
	emitter := NewEmitterSource()
	composite := NewCompositeSource(static)
	r := &recorder{}
	composite.AddListener(r)

	if err := composite.SetSource(emitter); err != nil {
		t.Fatalf("SetSource: %v", err)
	}
	r.updates = 0

	// Mutating the deselected source must not reach composite listeners.
	if err := static.SetCurrentImage(whiteImage(10, 10)); err != nil {
		t.Fatalf("SetCurrentImage: %v", err)
	}
	if r.updates != 0 {
		t.Errorf("stale wiring: deselected source delivered %d updates", r.updates)
	}
}

func TestFilteredSourceIsNeverStale(t *testing.T) {
	static := NewStaticSource(nil)
	composite := NewCompositeSource(static)

	f, err := filters.NewGridThresholdFilter(0.5, 10, 10)
	if err != nil {
		t.Fatalf("NewGridThresholdFilter: %v", err)
	}
	fs, err := NewFilteredSource(composite, f)
	if err != nil {
		t.Fatalf("NewFilteredSource: %v", err)
	}

	if v := fs.Values().At(0, 0); v > 0.01 {
		t.Errorf("initial black frame: value = %g, want 0", v)
	}

	if err := static.SetCurrentImage(whiteImage(100, 100)); err != nil {
		t.Fatalf("SetCurrentImage: %v", err)
	}

	rows, cols := fs.Values().Dims()
	if rows != 10 || cols != 10 {
		t.Fatalf("Values dims = %dx%d, want 10x10", rows, cols)
	}
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if v := fs.Values().At(y, x); v < 0.99 {
				t.Fatalf("Values[%d,%d] = %g immediately after update, want 1", y, x, v)
			}
		}
	}
}

func TestFilteredSourceDetachStopsRecompute(t *testing.T) {
	static := NewStaticSource(nil)
	f, err := filters.NewGridColorFilter(5, 5)
	if err != nil {
		t.Fatalf("NewGridColorFilter: %v", err)
	}
	fs, err := NewFilteredSource(static, f)
	if err != nil {
		t.Fatalf("NewFilteredSource: %v", err)
	}

	fs.Detach()
	if err := static.SetCurrentImage(whiteImage(10, 10)); err != nil {
		t.Fatalf("SetCurrentImage: %v", err)
	}
	if v := fs.Values().At(0, 0); v > 0.01 {
		t.Errorf("detached source recomputed: value = %g", v)
	}
}

func TestEmitterClearThenEmit(t *testing.T) {
	emitter := NewEmitterSource()
	composite := NewCompositeSource(emitter)

	if err := emitter.Resize(4, 4); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	f, err := filters.NewGridThresholdFilter(0.5, 4, 4)
	if err != nil {
		t.Fatalf("NewGridThresholdFilter: %v", err)
	}
	fs, err := NewFilteredSource(composite, f)
	if err != nil {
		t.Fatalf("NewFilteredSource: %v", err)
	}

	emitter.Clear()
	emitter.SetBrightness(0, 0, 1.0)

	// The write is buffered: downstream still sees the previous frame.
	if v := fs.Values().At(0, 0); v > 0.01 {
		t.Errorf("partial frame visible before Emit: value = %g", v)
	}

	if err := emitter.Emit(); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if v := fs.Values().At(0, 0); v < 0.99 {
		t.Errorf("Values[0,0] = %g after Emit, want 1", v)
	}
	if v := fs.Values().At(1, 1); v > 0.01 {
		t.Errorf("Values[1,1] = %g after Emit, want 0", v)
	}
}

func TestEmitterIgnoresOutOfBoundsWrites(t *testing.T) {
	emitter := NewEmitterSource()
	if err := emitter.Resize(4, 4); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	emitter.SetBrightness(-1, 0, 1.0)
	emitter.SetBrightness(0, 4, 1.0)
	emitter.SetColor(99, 99, 1, 1, 1)
	if err := emitter.Emit(); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	img := emitter.CurrentImage()
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if r, _, _, _ := img.At(x, y).RGBA(); r != 0 {
				t.Fatalf("pixel (%d,%d) written by out-of-bounds access", x, y)
			}
		}
	}
}

func TestEmitterResizePublishesBlackFrame(t *testing.T) {
	emitter := NewEmitterSource()
	r := &recorder{}
	emitter.AddListener(r)

	emitter.SetBrightness(0, 0, 1.0)
	if err := emitter.Emit(); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	if err := emitter.Resize(8, 6); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if r.resizes != 1 {
		t.Errorf("resizes = %d, want 1", r.resizes)
	}
	if emitter.Width() != 8 || emitter.Height() != 6 {
		t.Errorf("dims = %dx%d, want 8x6", emitter.Width(), emitter.Height())
	}

	img := emitter.CurrentImage()
	if got, _, _, _ := img.At(0, 0).RGBA(); got != 0 {
		t.Errorf("pixel (0,0) = %d after resize, want cleared to 0", got)
	}
}

func TestEmitterColorMode(t *testing.T) {
	emitter := NewEmitterSource()
	if err := emitter.Resize(2, 2); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if err := emitter.SetUsingColor(true); err != nil {
		t.Fatalf("SetUsingColor: %v", err)
	}

	emitter.SetColor(0, 0, 1, 0, 0)
	if err := emitter.Emit(); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	r, g, b, _ := emitter.CurrentImage().At(0, 0).RGBA()
	if r != 0xffff || g != 0 || b != 0 {
		t.Errorf("pixel (0,0) = (%d,%d,%d), want pure red", r, g, b)
	}
}
