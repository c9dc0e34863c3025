package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOidFromTypeName(t *testing.T) {
	cases := []struct {
		name   string
		want   Oid
		wantOK bool
	}{
		{"INTEGER", Int4OID, true},
		{"integer", Int4OID, true},
		{"VARCHAR(255)", VarcharOID, true},
		{" BIGINT ", Int8OID, true},
		{"DECIMAL(18,3)", NumericOID, true},
		{"TIMESTAMP WITH TIME ZONE", TimestampTzOID, true},
		{"UUID", UUIDOID, true},
		{"", InvalidOID, false},
		{"GEOMETRY", InvalidOID, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			oid, ok := OidFromTypeName(c.name)
			assert.Equal(t, c.wantOK, ok)
			assert.Equal(t, c.want, oid)
		})
	}
}

func TestOidProperties(t *testing.T) {
	assert.True(t, Int2OID.IsInteger())
	assert.False(t, NumericOID.IsInteger())
	assert.True(t, Float4OID.IsFloat())
	assert.True(t, UnknownOID.IsText())
	assert.True(t, TimestampTzOID.IsTime())

	assert.Equal(t, int64(4), Int4OID.Width())
	assert.Equal(t, int64(16), UUIDOID.Width())

	assert.False(t, Oid(424242).Known())
	assert.Equal(t, "int4", Int4OID.String())
}

func TestDatumString(t *testing.T) {
	assert.Equal(t, "NULL", NullDatum(TextOID).String())
	assert.Equal(t, "42", Datum{Oid: Int4OID, Value: int32(42)}.String())
	assert.Equal(t, `\x0102`, Datum{Oid: ByteaOID, Value: []byte{1, 2}}.String())
	assert.Equal(t, "text", Datum{Oid: TextOID, Value: []byte("text")}.String())
}
