package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReturnsRows(t *testing.T) {
	cases := []struct {
		name  string
		query string
		want  bool
	}{
		{"Select", "SELECT 1", true},
		{"Lowercase select", "select 1", true},
		{"Parenthesised select", "(SELECT 1) UNION (SELECT 2)", true},
		{"Select over newline", "SELECT\n1", true},
		{"Leading comment", "-- count\nSELECT count(*) FROM t", true},
		{"Values", "VALUES (1), (2)", true},
		{"With", "WITH x AS (SELECT 1) SELECT * FROM x", true},
		{"Insert", "INSERT INTO t VALUES (1)", false},
		{"Insert returning", "INSERT INTO t VALUES ($1) RETURNING 1", true},
		{"Delete returning lowercase", "delete from t returning id", true},
		{"Update", "UPDATE t SET a = 1", false},
		{"Create", "CREATE TABLE t (id uuid)", false},
		{"Drop", "DROP TABLE t;", false},
		{"Unknown", "THIS IS NOT SQL", true},
		{"Only comment", "-- nothing", false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, returnsRows(c.query))
		})
	}
}

func TestIsQuery(t *testing.T) {
	assert.True(t, isQuery("SELECT 1"))
	assert.True(t, isQuery("  with x as (select 1) select * from x"))
	assert.False(t, isQuery("SHOW TABLES"))
	assert.False(t, isQuery("INSERT INTO t VALUES (1) RETURNING 1"))
}
