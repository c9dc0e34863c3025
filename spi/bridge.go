package spi

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/canonical/lxd/shared/logger"
)

// enter runs body inside a new frame and closes the frame on every exit path.
//
// A panic in body closes the frame and is re-raised as a *HostAbort so that each enclosing frame
// closes in turn; the outermost frame recovers it and returns it as the error.
func enter[T any](ctx context.Context, s *SPI, body func(c *Client) (T, error)) (result T, err error) {
	frame, err := s.openFrame(ctx)
	if err != nil {
		return result, err
	}

	completed := false
	defer func() {
		if completed {
			return
		}

		r := recover()
		if r == nil {
			// runtime.Goexit, there is nothing to return to.
			closeErr := s.closeFrame(frame, errGoexit)
			if closeErr != nil {
				logger.Warn("Failed to close SPI frame", logger.Ctx{"depth": frame.depth, "error": closeErr})
			}

			return
		}

		abort := newHostAbort(r)
		closeErr := s.closeFrame(frame, abort)
		if closeErr != nil {
			logger.Warn("Failed to close SPI frame", logger.Ctx{"depth": frame.depth, "error": closeErr})
		}

		if frame.depth > 0 {
			panic(abort)
		}

		logger.Error("Host abort inside SPI frame", logger.Ctx{"error": abort.Message})

		var zero T
		result = zero
		err = abort
	}()

	result, err = body(&Client{frame: frame})
	completed = true

	// A statement error swallowed by body still fails the frame.
	if err == nil && s.failure != nil {
		err = s.failure
	}

	closeErr := s.closeFrame(frame, err)
	if err == nil {
		err = closeErr
	}

	if err != nil {
		var zero T
		return zero, err
	}

	return result, nil
}

func newHostAbort(r any) *HostAbort {
	abort, ok := r.(*HostAbort)
	if ok {
		return abort
	}

	var message string
	switch v := r.(type) {
	case error:
		message = v.Error()
	case string:
		message = v
	default:
		message = fmt.Sprint(v)
	}

	return &HostAbort{Message: message, Value: r, Stack: debug.Stack()}
}
