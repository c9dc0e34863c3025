package spi

import (
	"context"
	"database/sql"

	"github.com/canonical/microspi/spi/types"
)

// selectFirst runs a statement in its own frame and hands its first row to decode while the frame
// is still open. Decode failures are returned without failing the frame.
func selectFirst[T any](ctx context.Context, s *SPI, query string, args []types.Argument, decode func(row Row) (T, error)) (T, error) {
	var decodeErr error
	result, err := Connect(ctx, s, func(c *Client) (T, error) {
		var value T
		rs, err := c.Update(query, 1, args...)
		if err != nil {
			return value, err
		}

		value, decodeErr = decode(rs.First())

		return value, nil
	})
	if err != nil {
		return result, err
	}

	return result, decodeErr
}

// SelectOne runs a statement in its own frame and decodes the first column of its first row.
// A statement returning no rows yields an invalid sql.Null and no error.
func SelectOne[T any](ctx context.Context, s *SPI, query string, args ...types.Argument) (sql.Null[T], error) {
	return selectFirst(ctx, s, query, args, GetOne[T])
}

// SelectTwo runs a statement in its own frame and decodes the first two columns of its first row.
func SelectTwo[T, U any](ctx context.Context, s *SPI, query string, args ...types.Argument) (sql.Null[T], sql.Null[U], error) {
	type pair struct {
		a sql.Null[T]
		b sql.Null[U]
	}

	p, err := selectFirst(ctx, s, query, args, func(row Row) (pair, error) {
		a, b, err := GetTwo[T, U](row)
		return pair{a, b}, err
	})

	return p.a, p.b, err
}

// SelectThree runs a statement in its own frame and decodes the first three columns of its first row.
func SelectThree[T, U, V any](ctx context.Context, s *SPI, query string, args ...types.Argument) (sql.Null[T], sql.Null[U], sql.Null[V], error) {
	type triple struct {
		a sql.Null[T]
		b sql.Null[U]
		c sql.Null[V]
	}

	t, err := selectFirst(ctx, s, query, args, func(row Row) (triple, error) {
		a, b, c, err := GetThree[T, U, V](row)
		return triple{a, b, c}, err
	})

	return t.a, t.b, t.c, err
}
