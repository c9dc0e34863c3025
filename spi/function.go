package spi

import (
	"github.com/canonical/lxd/shared/logger"

	"github.com/canonical/microspi/spi/types"
)

// RegisterFunction makes host code callable by name from statements. Functions registered while a
// frame is open become callable from the next outermost frame.
//
// A panic inside fn.Call fails the statement that called it and then unwinds every open frame as
// if body had panicked, so the outermost frame returns it as a *HostAbort.
func (s *SPI) RegisterFunction(fn types.Function) error {
	err := fn.Validate()
	if err != nil {
		return err
	}

	call := fn.Call
	fn.Call = func(args []any) (result any, err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			abort := newHostAbort(r)
			s.aborted.CompareAndSwap(nil, abort)
			logger.Debug("Host function panicked", logger.Ctx{"function": fn.Name, "error": abort.Message})

			result = nil
			err = abort
		}()

		return call(args)
	}

	return s.engine.RegisterFunction(fn)
}

// raiseHostAbort re-raises the panic of a host function called by the last statement.
func (s *SPI) raiseHostAbort() {
	abort := s.aborted.Swap(nil)
	if abort != nil {
		panic(abort)
	}
}
