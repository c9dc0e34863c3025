package types

import (
	"fmt"
)

// Datum is the engine's tagged representation of a single SQL value.
// A nil Value is SQL NULL.
type Datum struct {
	Oid   Oid
	Value any
}

// NullDatum returns a NULL datum of the given type.
func NullDatum(oid Oid) Datum {
	return Datum{Oid: oid}
}

// IsNull returns whether the datum holds SQL NULL.
func (d Datum) IsNull() bool {
	return d.Value == nil
}

// String implements fmt.Stringer.
func (d Datum) String() string {
	if d.IsNull() {
		return "NULL"
	}

	switch v := d.Value.(type) {
	case []byte:
		if d.Oid == ByteaOID {
			return fmt.Sprintf("\\x%x", v)
		}

		return string(v)
	case string:
		return v
	}

	return fmt.Sprint(d.Value)
}
