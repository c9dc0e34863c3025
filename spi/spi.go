// Package spi lets code running inside the engine's process execute statements against that
// same engine through nested execution frames.
package spi

import (
	"context"
	"sync/atomic"

	"github.com/canonical/microspi/internal/db"
	"github.com/canonical/microspi/spi/types"
)

// SPI executes statements against a single engine. All frames opened through one SPI share
// the engine connection acquired by the outermost frame.
//
// An SPI is bound to one thread of control: nested calls are made from within frame bodies
// and it must not be used from several goroutines at once.
type SPI struct {
	engine db.Engine
	hooks  *Hooks

	frames []*Frame
	conn   db.Conn

	// failure is the first statement error of the current outermost frame.
	failure error

	// aborted is the first panic of a host function. Engines may call host functions from
	// their own threads.
	aborted atomic.Pointer[HostAbort]
}

// New returns an SPI for the given engine. Hooks may be nil.
func New(engine db.Engine, hooks *Hooks) *SPI {
	return &SPI{engine: engine, hooks: hooks}
}

// Depth returns the number of open frames.
func (s *SPI) Depth() int {
	return len(s.frames)
}

// Execute runs body inside a new frame. Any panic inside body is returned as a *HostAbort
// once it reaches the outermost frame.
func (s *SPI) Execute(ctx context.Context, body func(c *Client) error) error {
	_, err := enter(ctx, s, func(c *Client) (struct{}, error) {
		return struct{}{}, body(c)
	})

	return err
}

// Connect runs body inside a new frame and returns its result. The result must not alias a
// ResultSet of the frame, which is invalidated when the frame closes.
func Connect[T any](ctx context.Context, s *SPI, body func(c *Client) (T, error)) (T, error) {
	return enter(ctx, s, body)
}

// Run executes a statement in its own frame, discarding its result.
func (s *SPI) Run(ctx context.Context, query string) error {
	return s.RunWithArgs(ctx, query, nil)
}

// RunWithArgs executes a statement with arguments in its own frame, discarding its result.
func (s *SPI) RunWithArgs(ctx context.Context, query string, args []types.Argument) error {
	return s.Execute(ctx, func(c *Client) error {
		return c.Run(query, args...)
	})
}

// Explain plans a statement in its own frame without executing it.
func (s *SPI) Explain(ctx context.Context, query string) (types.PlanResult, error) {
	return s.ExplainWithArgs(ctx, query, nil)
}

// ExplainWithArgs plans a statement with arguments in its own frame without executing it.
func (s *SPI) ExplainWithArgs(ctx context.Context, query string, args []types.Argument) (types.PlanResult, error) {
	return Connect(ctx, s, func(c *Client) (types.PlanResult, error) {
		return c.Explain(query, args...)
	})
}
