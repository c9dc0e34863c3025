package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/canonical/microspi/spi/types"
)

// parseArguments parses --arg values of the form <type>:<value>. A bare <type> binds NULL.
func parseArguments(flags []string) ([]types.Argument, error) {
	args := make([]types.Argument, 0, len(flags))
	for _, flag := range flags {
		typeName, value, hasValue := strings.Cut(flag, ":")
		oid, ok := types.OidFromTypeName(typeName)
		if !ok {
			return nil, fmt.Errorf("Unknown argument type %q", typeName)
		}

		if !hasValue {
			args = append(args, types.NullArg(oid))
			continue
		}

		var v any = value
		switch {
		case oid == types.BoolOID:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("Invalid boolean argument %q: %w", value, err)
			}

			v = b
		case oid.IsFloat():
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("Invalid float argument %q: %w", value, err)
			}

			v = f
		}

		args = append(args, types.Arg(oid, v))
	}

	return args, nil
}
