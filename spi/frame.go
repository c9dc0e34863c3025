package spi

import (
	"context"
	"errors"
	"fmt"

	"github.com/canonical/lxd/shared/logger"
)

// Frame is one nested execution scope.
type Frame struct {
	spi    *SPI
	ctx    context.Context
	depth  int
	parent *Frame
	closed bool
}

// Depth returns the frame's nesting depth, starting at 0 for the outermost frame.
func (f *Frame) Depth() int {
	return f.depth
}

// Parent returns the enclosing frame, or nil for the outermost frame.
func (f *Frame) Parent() *Frame {
	return f.parent
}

// Closed returns whether the frame has been closed.
func (f *Frame) Closed() bool {
	return f.closed
}

// openFrame pushes a new frame, acquiring the engine connection if it is the outermost one.
func (s *SPI) openFrame(ctx context.Context) (*Frame, error) {
	frame := &Frame{spi: s, ctx: ctx, depth: len(s.frames)}
	if frame.depth == 0 {
		conn, err := s.engine.Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("Failed to connect to engine %q: %w", s.engine.Name(), err)
		}

		s.conn = conn
		s.failure = nil
		s.aborted.Store(nil)
	} else {
		frame.parent = s.frames[frame.depth-1]
	}

	s.frames = append(s.frames, frame)
	s.hooks.frameOpened(frame.depth)
	logger.Debug("Opened SPI frame", logger.Ctx{"depth": frame.depth})

	return frame, nil
}

// closeFrame pops the frame. Closing the outermost frame commits, or rolls back if the frame or
// any frame it enclosed failed, and releases the engine connection.
func (s *SPI) closeFrame(frame *Frame, failure error) error {
	if frame.closed {
		return ErrFrameClosed
	}

	top := len(s.frames) - 1
	if top < 0 || s.frames[top] != frame {
		return ErrFrameOrder
	}

	s.frames[top] = nil
	s.frames = s.frames[:top]
	frame.closed = true

	s.hooks.frameClosed(frame.depth, failure)
	logger.Debug("Closed SPI frame", logger.Ctx{"depth": frame.depth, "failed": failure != nil})

	if frame.depth > 0 {
		return nil
	}

	conn := s.conn
	s.conn = nil
	failed := failure != nil || s.failure != nil
	s.failure = nil

	if failed {
		err := conn.Rollback()
		if err != nil {
			return fmt.Errorf("Failed to release engine connection: %w", err)
		}

		return nil
	}

	err := conn.Commit()
	if err != nil {
		return fmt.Errorf("Failed to release engine connection: %w", err)
	}

	return nil
}

// fail records a statement failure. Every frame that is still open fails with it.
func (s *SPI) fail(query string, err error) error {
	var stmtErr *StatementError
	if !errors.As(err, &stmtErr) {
		stmtErr = newStatementError(query, err)
	}

	if s.failure == nil {
		s.failure = stmtErr
	}

	logger.Debug("SPI statement failed", logger.Ctx{"query": query, "error": stmtErr.Message, "depth": len(s.frames) - 1})

	return stmtErr
}
