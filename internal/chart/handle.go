package chart

import (
	"errors"
	"fmt"
	"sync"
)

// Handle is an acquired chart surface plus the overlay drawn on it.
type Handle struct {
	Surface Surface
	Overlay *Overlay

	once     sync.Once
	closeErr error
}

// Open acquires a surface from factory. The caller must Close the handle.
func Open(factory func() (Surface, error)) (*Handle, error) {
	s, err := factory()
	if err != nil {
		return nil, fmt.Errorf("open chart: %w", err)
	}
	if s == nil {
		return nil, errors.New("open chart: factory returned no surface")
	}
	return &Handle{Surface: s, Overlay: NewOverlay(s)}, nil
}

// Close removes the overlay lines and releases the surface. It is safe to
// call more than once.
func (h *Handle) Close() error {
	h.once.Do(func() {
		h.Overlay.Clear()
		h.closeErr = h.Surface.Close()
	})
	return h.closeErr
}

// With opens a chart, runs fn and closes the chart on every exit path,
// including a panic in fn.
func With(factory func() (Surface, error), fn func(*Handle) error) (err error) {
	h, err := Open(factory)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := h.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close chart: %w", cerr))
		}
	}()
	return fn(h)
}
