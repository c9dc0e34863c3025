package spi

// Hooks holds functions called as frames open and close.
type Hooks struct {
	// OnFrameOpen is run after a frame is pushed, with the frame's depth.
	OnFrameOpen func(depth int)

	// OnFrameClose is run after a frame is popped, with the frame's depth and the failure
	// it is closing with, if any.
	OnFrameClose func(depth int, err error)
}

func (h *Hooks) frameOpened(depth int) {
	if h == nil || h.OnFrameOpen == nil {
		return
	}

	h.OnFrameOpen(depth)
}

func (h *Hooks) frameClosed(depth int, err error) {
	if h == nil || h.OnFrameClose == nil {
		return
	}

	h.OnFrameClose(depth, err)
}
