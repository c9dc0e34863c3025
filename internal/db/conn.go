package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/canonical/microspi/spi/types"
)

// sqlConn is a connection pinned from the database/sql pool with an open transaction.
type sqlConn struct {
	conn    *sql.Conn
	tx      *sql.Tx
	dialect dialect
}

var returningExp = regexp.MustCompile(`(?i)\bRETURNING\b`)

var rowKeywords = map[string]bool{
	"SELECT":    true,
	"WITH":      true,
	"VALUES":    true,
	"TABLE":     true,
	"FROM":      true,
	"SHOW":      true,
	"DESCRIBE":  true,
	"SUMMARIZE": true,
	"EXPLAIN":   true,
	"PRAGMA":    true,
	"CALL":      true,
}

// returnsRows reports whether a statement produces tuples rather than only a row count.
func returnsRows(query string) bool {
	q := strings.TrimLeft(query, " \t\r\n(")
	for strings.HasPrefix(q, "--") {
		_, rest, ok := strings.Cut(q, "\n")
		if !ok {
			return false
		}

		q = strings.TrimLeft(rest, " \t\r\n(")
	}

	keyword := firstKeyword(q)
	if rowKeywords[keyword] {
		return true
	}

	// Anything the engine does not recognise is sent down the query path so that it reports the error.
	switch keyword {
	case "INSERT", "UPDATE", "DELETE", "MERGE", "REPLACE", "UPSERT":
		return returningExp.MatchString(q)
	case "CREATE", "DROP", "ALTER", "BEGIN", "COMMIT", "ROLLBACK", "SET", "RESET", "ANALYZE", "VACUUM", "TRUNCATE", "COPY", "ATTACH", "DETACH", "USE", "INSTALL", "LOAD", "CHECKPOINT", "COMMENT", "GRANT", "REVOKE", "SAVEPOINT", "RELEASE", "REINDEX":
		return false
	}

	return true
}

func firstKeyword(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}

	keyword, _, _ := strings.Cut(fields[0], "(")
	return strings.ToUpper(strings.TrimRight(keyword, ";"))
}

// isQuery reports whether a statement is a plain query whose output can be described.
func isQuery(query string) bool {
	q := strings.TrimLeft(query, " \t\r\n(")
	switch firstKeyword(q) {
	case "SELECT", "WITH", "VALUES", "FROM", "TABLE":
		return true
	}

	return false
}

// Exec executes a statement and returns its tuple table.
func (c *sqlConn) Exec(ctx context.Context, stmt Statement) (*TupleTable, error) {
	if stmt.ReadOnly || returnsRows(stmt.Query) {
		return c.query(ctx, stmt)
	}

	result, err := c.tx.ExecContext(ctx, stmt.Query, stmt.Args...)
	if err != nil {
		return nil, err
	}

	processed, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("Failed to fetch affected rows: %w", err)
	}

	return &TupleTable{Processed: processed}, nil
}

func (c *sqlConn) query(ctx context.Context, stmt Statement) (*TupleTable, error) {
	rows, err := c.tx.QueryContext(ctx, stmt.Query, stmt.Args...)
	if err != nil {
		return nil, err
	}

	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("Failed to fetch column names: %w", err)
	}

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("Failed to fetch column types: %w", err)
	}

	table := &TupleTable{
		Columns: columns,
		Types:   make([]types.Oid, len(columns)),
	}

	for i, columnType := range columnTypes {
		table.Types[i], _ = types.OidFromTypeName(columnType.DatabaseTypeName())
	}

	for rows.Next() {
		if stmt.Limit > 0 && int64(len(table.Rows)) >= stmt.Limit {
			break
		}

		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}

		err := rows.Scan(pointers...)
		if err != nil {
			return nil, fmt.Errorf("Failed to scan row: %w", err)
		}

		row := make([]types.Datum, len(columns))
		for i, value := range values {
			row[i] = tagDatum(table.Types[i], value)
		}

		table.Rows = append(table.Rows, row)
	}

	err = rows.Err()
	if err != nil {
		return nil, err
	}

	// Columns without a declared type take the type of their first non-NULL value.
	for i, oid := range table.Types {
		if oid != types.InvalidOID {
			continue
		}

		table.Types[i] = types.UnknownOID
		for _, row := range table.Rows {
			if !row[i].IsNull() {
				table.Types[i] = row[i].Oid
				break
			}
		}
	}

	table.Processed = int64(len(table.Rows))

	return table, nil
}

// Explain plans a statement and returns the plan output.
func (c *sqlConn) Explain(ctx context.Context, stmt Statement) ([]byte, error) {
	plans, err := c.dialect.explain(ctx, c.tx, stmt)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(types.PlanResult{Plans: plans})
	if err != nil {
		return nil, fmt.Errorf("Failed to encode plan: %w", err)
	}

	return data, nil
}

// Commit commits the transaction and releases the connection.
func (c *sqlConn) Commit() error {
	err := c.tx.Commit()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		_ = c.conn.Close()
		return fmt.Errorf("Failed to commit transaction: %w", err)
	}

	return c.release()
}

// Rollback aborts the transaction and releases the connection.
func (c *sqlConn) Rollback() error {
	err := c.tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		_ = c.conn.Close()
		return fmt.Errorf("Failed to rollback transaction: %w", err)
	}

	return c.release()
}

func (c *sqlConn) release() error {
	err := c.conn.Close()
	if err != nil {
		return fmt.Errorf("Failed to release engine connection: %w", err)
	}

	return nil
}
