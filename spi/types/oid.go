package types

import (
	"fmt"
	"strings"
)

// Oid is the engine's identifier for the runtime type of a datum.
type Oid uint32

// Built-in type identifiers understood by the decoder and the argument binder.
const (
	InvalidOID     Oid = 0
	BoolOID        Oid = 16
	ByteaOID       Oid = 17
	Int8OID        Oid = 20
	Int2OID        Oid = 21
	Int4OID        Oid = 23
	TextOID        Oid = 25
	JSONOID        Oid = 114
	Float4OID      Oid = 700
	Float8OID      Oid = 701
	UnknownOID     Oid = 705
	VarcharOID     Oid = 1043
	DateOID        Oid = 1082
	TimestampOID   Oid = 1114
	TimestampTzOID Oid = 1184
	NumericOID     Oid = 1700
	UUIDOID        Oid = 2950
)

type oidInfo struct {
	name  string
	width int64
}

// Widths follow the engine's average-width estimates. Variable length types use 32.
var builtins = map[Oid]oidInfo{
	BoolOID:        {"bool", 1},
	ByteaOID:       {"bytea", 32},
	Int8OID:        {"int8", 8},
	Int2OID:        {"int2", 2},
	Int4OID:        {"int4", 4},
	TextOID:        {"text", 32},
	JSONOID:        {"json", 32},
	Float4OID:      {"float4", 4},
	Float8OID:      {"float8", 8},
	UnknownOID:     {"unknown", 32},
	VarcharOID:     {"varchar", 32},
	DateOID:        {"date", 4},
	TimestampOID:   {"timestamp", 8},
	TimestampTzOID: {"timestamptz", 8},
	NumericOID:     {"numeric", 32},
	UUIDOID:        {"uuid", 16},
}

// Known returns whether the Oid is one of the built-in types.
func (o Oid) Known() bool {
	_, ok := builtins[o]
	return ok
}

// Width returns the estimated on-disk width in bytes of a value of this type.
func (o Oid) Width() int64 {
	info, ok := builtins[o]
	if !ok {
		return 0
	}

	return info.width
}

// String implements fmt.Stringer.
func (o Oid) String() string {
	info, ok := builtins[o]
	if !ok {
		return fmt.Sprintf("oid(%d)", uint32(o))
	}

	return info.name
}

// IsInteger returns whether the Oid belongs to the integer family.
func (o Oid) IsInteger() bool {
	return o == Int2OID || o == Int4OID || o == Int8OID
}

// IsFloat returns whether the Oid belongs to the floating point family.
func (o Oid) IsFloat() bool {
	return o == Float4OID || o == Float8OID
}

// IsText returns whether values of the Oid are represented as character data.
func (o Oid) IsText() bool {
	return o == TextOID || o == VarcharOID || o == UnknownOID || o == JSONOID
}

// IsTime returns whether the Oid is a date or timestamp type.
func (o Oid) IsTime() bool {
	return o == DateOID || o == TimestampOID || o == TimestampTzOID
}

// typeNames maps engine type names (as reported for result columns) to built-in Oids.
var typeNames = map[string]Oid{
	"BOOL":                     BoolOID,
	"BOOLEAN":                  BoolOID,
	"BLOB":                     ByteaOID,
	"BYTEA":                    ByteaOID,
	"BINARY":                   ByteaOID,
	"VARBINARY":                ByteaOID,
	"TINYINT":                  Int2OID,
	"UTINYINT":                 Int2OID,
	"SMALLINT":                 Int2OID,
	"INT2":                     Int2OID,
	"USMALLINT":                Int4OID,
	"INT":                      Int4OID,
	"INT4":                     Int4OID,
	"INTEGER":                  Int4OID,
	"MEDIUMINT":                Int4OID,
	"UINTEGER":                 Int8OID,
	"BIGINT":                   Int8OID,
	"INT8":                     Int8OID,
	"UBIGINT":                  NumericOID,
	"HUGEINT":                  NumericOID,
	"UHUGEINT":                 NumericOID,
	"DECIMAL":                  NumericOID,
	"NUMERIC":                  NumericOID,
	"REAL":                     Float4OID,
	"FLOAT":                    Float4OID,
	"FLOAT4":                   Float4OID,
	"DOUBLE":                   Float8OID,
	"DOUBLE PRECISION":         Float8OID,
	"FLOAT8":                   Float8OID,
	"TEXT":                     TextOID,
	"STRING":                   TextOID,
	"CLOB":                     TextOID,
	"VARCHAR":                  VarcharOID,
	"CHARACTER VARYING":        VarcharOID,
	"CHAR":                     VarcharOID,
	"CHARACTER":                VarcharOID,
	"BPCHAR":                   VarcharOID,
	"NVARCHAR":                 VarcharOID,
	"JSON":                     JSONOID,
	"UUID":                     UUIDOID,
	"DATE":                     DateOID,
	"DATETIME":                 TimestampOID,
	"TIMESTAMP":                TimestampOID,
	"TIMESTAMP_S":              TimestampOID,
	"TIMESTAMP_MS":             TimestampOID,
	"TIMESTAMP_NS":             TimestampOID,
	"TIMESTAMPTZ":              TimestampTzOID,
	"TIMESTAMP WITH TIME ZONE": TimestampTzOID,
}

// OidFromTypeName returns the built-in Oid for an engine type name such as "INTEGER" or "VARCHAR(255)".
func OidFromTypeName(name string) (Oid, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	base, _, _ := strings.Cut(name, "(")
	base = strings.TrimSpace(base)
	if base == "" {
		return InvalidOID, false
	}

	oid, ok := typeNames[base]
	return oid, ok
}
