package db

import (
	"time"

	"github.com/canonical/microspi/spi/types"
)

// tagDatum wraps a scanned driver value with its type identifier. The declared column type wins
// over the Go type of the value; expression columns without one fall back to runtimeOid.
func tagDatum(declared types.Oid, value any) types.Datum {
	if value == nil {
		if declared == types.InvalidOID {
			declared = types.UnknownOID
		}

		return types.NullDatum(declared)
	}

	oid := declared
	if oid == types.InvalidOID {
		oid = runtimeOid(value)
	}

	// Drivers hand character data back as bytes in places.
	b, ok := value.([]byte)
	if ok && oid.IsText() {
		value = string(b)
	}

	return types.Datum{Oid: oid, Value: value}
}

// runtimeOid maps the Go type of a driver value to a type identifier.
// Values of any other type are tagged InvalidOID and fail to decode into anything but a raw datum.
func runtimeOid(value any) types.Oid {
	switch value.(type) {
	case bool:
		return types.BoolOID
	case int8, int16, uint8:
		return types.Int2OID
	case int32, uint16:
		return types.Int4OID
	case int, int64, uint32:
		return types.Int8OID
	case float32:
		return types.Float4OID
	case float64:
		return types.Float8OID
	case string:
		return types.TextOID
	case []byte:
		return types.ByteaOID
	case time.Time:
		return types.TimestampTzOID
	}

	return types.InvalidOID
}
