package spi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/canonical/microspi/spi/types"
)

// GetDatum decodes the 1-indexed column of row into T. SQL NULL decodes as an invalid
// sql.Null without error. A type mismatch returns a *DecodeError for this access only.
func GetDatum[T any](row Row, index int) (sql.Null[T], error) {
	d, err := row.Datum(index)
	if err != nil {
		return sql.Null[T]{}, err
	}

	return decode[T](d, index)
}

// GetOne decodes the first column of row.
func GetOne[T any](row Row) (sql.Null[T], error) {
	d, err := row.slot(1)
	if err != nil {
		return sql.Null[T]{}, err
	}

	return decode[T](d, 1)
}

// GetTwo decodes the first two columns of row. Each column is decoded independently: a NULL,
// missing or undecodable column does not prevent decoding the other.
func GetTwo[T, U any](row Row) (sql.Null[T], sql.Null[U], error) {
	first, err1 := GetOne[T](row)
	second, err2 := decodeSlot[U](row, 2)

	return first, second, errors.Join(err1, err2)
}

// GetThree decodes the first three columns of row, each independently.
func GetThree[T, U, V any](row Row) (sql.Null[T], sql.Null[U], sql.Null[V], error) {
	first, err1 := GetOne[T](row)
	second, err2 := decodeSlot[U](row, 2)
	third, err3 := decodeSlot[V](row, 3)

	return first, second, third, errors.Join(err1, err2, err3)
}

func decodeSlot[T any](row Row, index int) (sql.Null[T], error) {
	d, err := row.slot(index)
	if err != nil {
		return sql.Null[T]{}, err
	}

	return decode[T](d, index)
}

func decode[T any](d types.Datum, column int) (sql.Null[T], error) {
	var out sql.Null[T]
	if d.IsNull() {
		return out, nil
	}

	err := assign(&out.V, d)
	if err != nil {
		return sql.Null[T]{}, newDecodeError[T](column, d.Oid, err.Error())
	}

	out.Valid = true

	return out, nil
}

var errMismatch = errors.New("incompatible type")

// assign stores the datum into dst, a pointer to the requested host type.
func assign(dst any, d types.Datum) error {
	switch p := dst.(type) {
	case *types.Datum:
		*p = d
		return nil
	case *any:
		*p = d.Value
		return nil
	}

	if !d.Oid.Known() {
		return fmt.Errorf("unrecognized type %s", d.Oid)
	}

	switch p := dst.(type) {
	case *bool:
		b, ok := d.Value.(bool)
		if d.Oid != types.BoolOID || !ok {
			return errMismatch
		}

		*p = b
	case *string:
		if !d.Oid.IsText() && d.Oid != types.NumericOID {
			return errMismatch
		}

		s, err := textValue(d.Value)
		if err != nil {
			return err
		}

		*p = s
	case *json.RawMessage:
		if !d.Oid.IsText() {
			return errMismatch
		}

		s, err := textValue(d.Value)
		if err != nil {
			return err
		}

		*p = json.RawMessage(s)
	case *[]byte:
		switch v := d.Value.(type) {
		case []byte:
			if d.Oid != types.ByteaOID && !d.Oid.IsText() {
				return errMismatch
			}

			*p = append([]byte(nil), v...)
		case string:
			if !d.Oid.IsText() {
				return errMismatch
			}

			*p = []byte(v)
		default:
			return errMismatch
		}

	case *uuid.UUID:
		if d.Oid != types.UUIDOID {
			return errMismatch
		}

		u, err := uuidValue(d.Value)
		if err != nil {
			return err
		}

		*p = u
	case *time.Time:
		if !d.Oid.IsTime() {
			return errMismatch
		}

		t, err := timeValue(d.Value)
		if err != nil {
			return err
		}

		*p = t
	case *float32, *float64:
		if !d.Oid.IsFloat() && d.Oid != types.NumericOID {
			return errMismatch
		}

		f, err := floatValue(d.Value)
		if err != nil {
			return err
		}

		target := reflect.ValueOf(p).Elem()
		if target.OverflowFloat(f) {
			return fmt.Errorf("value %g out of range", f)
		}

		target.SetFloat(f)
	case *int, *int8, *int16, *int32, *int64, *uint, *uint8, *uint16, *uint32, *uint64:
		if !d.Oid.IsInteger() && d.Oid != types.NumericOID {
			return errMismatch
		}

		n, err := integerValue(d.Value)
		if err != nil {
			return err
		}

		return setInteger(reflect.ValueOf(p).Elem(), n)
	case sql.Scanner:
		return p.Scan(d.Value)
	default:
		return errMismatch
	}

	return nil
}

func textValue(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case []byte:
		return string(val), nil
	case fmt.Stringer:
		return val.String(), nil
	}

	return "", fmt.Errorf("unexpected engine value %T", v)
}

func integerValue(v any) (*big.Int, error) {
	switch val := v.(type) {
	case *big.Int:
		return val, nil
	case big.Int:
		return &val, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return new(big.Int).SetUint64(rv.Uint()), nil
	}

	s, err := textValue(v)
	if err != nil {
		return nil, err
	}

	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%q is not an integer", s)
	}

	return n, nil
}

func setInteger(target reflect.Value, n *big.Int) error {
	switch target.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if !n.IsInt64() || target.OverflowInt(n.Int64()) {
			return fmt.Errorf("value %s out of range", n)
		}

		target.SetInt(n.Int64())
	default:
		if !n.IsUint64() || target.OverflowUint(n.Uint64()) {
			return fmt.Errorf("value %s out of range", n)
		}

		target.SetUint(n.Uint64())
	}

	return nil
}

func floatValue(v any) (float64, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	}

	s, err := textValue(v)
	if err != nil {
		return 0, err
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}

	return f, nil
}

func uuidValue(v any) (uuid.UUID, error) {
	switch val := v.(type) {
	case uuid.UUID:
		return val, nil
	case []byte:
		if len(val) == 16 {
			return uuid.FromBytes(val)
		}

		return uuid.ParseBytes(val)
	case string:
		return uuid.Parse(val)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}

	if rv.Kind() == reflect.Array && rv.Len() == 16 && rv.Type().Elem().Kind() == reflect.Uint8 {
		var u uuid.UUID
		reflect.Copy(reflect.ValueOf(u[:]), rv)
		return u, nil
	}

	s, err := textValue(v)
	if err != nil {
		return uuid.UUID{}, err
	}

	return uuid.Parse(s)
}

func timeValue(v any) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val, nil
	case string:
		return time.Parse(time.RFC3339Nano, val)
	}

	return time.Time{}, fmt.Errorf("unexpected engine value %T", v)
}
