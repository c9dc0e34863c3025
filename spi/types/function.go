package types

import (
	"fmt"
)

// Function is host code that statements can call by name.
type Function struct {
	Name   string
	Args   []Oid
	Result Oid

	// Call receives one driver value per argument. Its result is bound as Result.
	Call func(args []any) (any, error)
}

// Validate checks that the function can be registered with an engine.
func (f Function) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("Host function name cannot be empty")
	}

	if f.Call == nil {
		return fmt.Errorf("Host function %q has no implementation", f.Name)
	}

	for i, oid := range f.Args {
		if !oid.Known() {
			return fmt.Errorf("Host function %q has unsupported type %s for argument %d", f.Name, oid, i+1)
		}
	}

	if !f.Result.Known() {
		return fmt.Errorf("Host function %q has unsupported result type %s", f.Name, f.Result)
	}

	return nil
}

// Invoke calls the function and binds its result as the declared result type.
func (f Function) Invoke(args []any) (any, error) {
	if len(args) != len(f.Args) {
		return nil, fmt.Errorf("Host function %q expects %d arguments, got %d", f.Name, len(f.Args), len(args))
	}

	result, err := f.Call(args)
	if err != nil {
		return nil, err
	}

	return Arg(f.Result, result).Bind()
}
