package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/canonical/microspi/spi/types"
)

func TestTagDatum(t *testing.T) {
	cases := []struct {
		name     string
		declared types.Oid
		value    any
		want     types.Datum
	}{
		{"Declared wins", types.Int4OID, int64(4), types.Datum{Oid: types.Int4OID, Value: int64(4)}},
		{"Text bytes", types.TextOID, []byte("abc"), types.Datum{Oid: types.TextOID, Value: "abc"}},
		{"Bytea bytes", types.ByteaOID, []byte("abc"), types.Datum{Oid: types.ByteaOID, Value: []byte("abc")}},
		{"Runtime int64", types.InvalidOID, int64(1), types.Datum{Oid: types.Int8OID, Value: int64(1)}},
		{"Runtime string", types.InvalidOID, "x", types.Datum{Oid: types.TextOID, Value: "x"}},
		{"Untyped NULL", types.InvalidOID, nil, types.NullDatum(types.UnknownOID)},
		{"Typed NULL", types.UUIDOID, nil, types.NullDatum(types.UUIDOID)},
		{"Unrecognised value", types.InvalidOID, struct{}{}, types.Datum{Oid: types.InvalidOID, Value: struct{}{}}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, tagDatum(c.declared, c.value))
		})
	}
}

func TestRuntimeOid(t *testing.T) {
	assert.Equal(t, types.BoolOID, runtimeOid(true))
	assert.Equal(t, types.Int2OID, runtimeOid(int16(1)))
	assert.Equal(t, types.Int4OID, runtimeOid(int32(1)))
	assert.Equal(t, types.Float8OID, runtimeOid(1.5))
	assert.Equal(t, types.TimestampTzOID, runtimeOid(time.Now()))
	assert.Equal(t, types.InvalidOID, runtimeOid([]int{1}))
}
