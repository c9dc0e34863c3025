package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Argument is a statement parameter with an explicitly declared type.
// A nil Value binds as SQL NULL regardless of the declared type.
type Argument struct {
	Oid   Oid
	Value any
}

// Arg returns an argument of the given type.
func Arg(oid Oid, value any) Argument {
	return Argument{Oid: oid, Value: value}
}

// NullArg returns a NULL argument of the given type.
func NullArg(oid Oid) Argument {
	return Argument{Oid: oid}
}

// IsNull returns whether the argument binds as SQL NULL.
func (a Argument) IsNull() bool {
	if a.Value == nil {
		return true
	}

	rv := reflect.ValueOf(a.Value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}

	valuer, ok := a.Value.(driver.Valuer)
	if ok {
		v, err := valuer.Value()
		return err == nil && v == nil
	}

	return false
}

// Bind converts the argument into the driver value of its declared type.
func (a Argument) Bind() (any, error) {
	if !a.Oid.Known() || a.Oid == InvalidOID {
		return nil, fmt.Errorf("Unsupported argument type %s", a.Oid)
	}

	if a.IsNull() {
		return nil, nil
	}

	v := a.Value
	valuer, ok := v.(driver.Valuer)
	if ok {
		_, isUUID := v.(uuid.UUID)
		if !isUUID {
			dv, err := valuer.Value()
			if err != nil {
				return nil, err
			}

			v = dv
		}
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		v = rv.Elem().Interface()
	}

	switch {
	case a.Oid == BoolOID:
		b, ok := v.(bool)
		if !ok {
			return nil, bindMismatch(a.Oid, v)
		}

		return b, nil
	case a.Oid.IsInteger():
		n, err := bindInteger(a.Oid, v)
		if err != nil {
			return nil, err
		}

		switch a.Oid {
		case Int2OID:
			return int16(n), nil
		case Int4OID:
			return int32(n), nil
		}

		return n, nil
	case a.Oid.IsFloat():
		f, err := bindFloat(v)
		if err != nil {
			return nil, bindMismatch(a.Oid, v)
		}

		if a.Oid == Float4OID {
			return float32(f), nil
		}

		return f, nil
	case a.Oid == UUIDOID:
		return bindUUID(v)
	case a.Oid == JSONOID:
		switch val := v.(type) {
		case json.RawMessage:
			return string(val), nil
		case []byte:
			return string(val), nil
		case string:
			return val, nil
		}

		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("Failed to encode json argument: %w", err)
		}

		return string(data), nil
	case a.Oid == ByteaOID:
		switch val := v.(type) {
		case []byte:
			return val, nil
		case string:
			return []byte(val), nil
		}

		return nil, bindMismatch(a.Oid, v)
	case a.Oid.IsTime():
		t, ok := v.(time.Time)
		if !ok {
			return nil, bindMismatch(a.Oid, v)
		}

		return t, nil
	case a.Oid == NumericOID:
		switch val := v.(type) {
		case string:
			return val, nil
		case fmt.Stringer:
			return val.String(), nil
		}

		f, err := bindFloat(v)
		if err == nil {
			return f, nil
		}

		n, err := bindInteger(Int8OID, v)
		if err == nil {
			return n, nil
		}

		return nil, bindMismatch(a.Oid, v)
	case a.Oid.IsText():
		switch val := v.(type) {
		case string:
			return val, nil
		case []byte:
			return string(val), nil
		case fmt.Stringer:
			return val.String(), nil
		}

		return nil, bindMismatch(a.Oid, v)
	}

	return nil, bindMismatch(a.Oid, v)
}

func bindMismatch(oid Oid, v any) error {
	return fmt.Errorf("Cannot bind value of type %T as %s", v, oid)
}

func bindInteger(oid Oid, v any) (int64, error) {
	var n int64
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n = rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("Value %d out of range for %s", u, oid)
		}

		n = int64(u)
	case reflect.String:
		parsed, err := strconv.ParseInt(rv.String(), 10, 64)
		if err != nil {
			return 0, bindMismatch(oid, v)
		}

		n = parsed
	default:
		return 0, bindMismatch(oid, v)
	}

	var low, high int64
	switch oid {
	case Int2OID:
		low, high = math.MinInt16, math.MaxInt16
	case Int4OID:
		low, high = math.MinInt32, math.MaxInt32
	default:
		low, high = math.MinInt64, math.MaxInt64
	}

	if n < low || n > high {
		return 0, fmt.Errorf("Value %d out of range for %s", n, oid)
	}

	return n, nil
}

func bindFloat(v any) (float64, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	}

	return 0, fmt.Errorf("Not a number: %T", v)
}

func bindUUID(v any) (any, error) {
	switch val := v.(type) {
	case uuid.UUID:
		return val.String(), nil
	case [16]byte:
		return uuid.UUID(val).String(), nil
	case string:
		u, err := uuid.Parse(val)
		if err != nil {
			return nil, fmt.Errorf("Invalid uuid argument %q: %w", val, err)
		}

		return u.String(), nil
	case []byte:
		var u uuid.UUID
		var err error
		if len(val) == 16 {
			u, err = uuid.FromBytes(val)
		} else {
			u, err = uuid.ParseBytes(val)
		}

		if err != nil {
			return nil, fmt.Errorf("Invalid uuid argument: %w", err)
		}

		return u.String(), nil
	}

	return nil, bindMismatch(UUIDOID, v)
}
