package spi

import (
	"fmt"

	"github.com/canonical/microspi/internal/db"
	"github.com/canonical/microspi/spi/types"
)

// Client issues statements inside a frame.
type Client struct {
	frame *Frame
}

// QueryOptions controls how a statement is executed.
type QueryOptions struct {
	// ReadOnly hints that the statement does not modify the database. Read-only statements
	// always return their tuples.
	ReadOnly bool

	// Limit caps the number of returned rows. Zero returns all rows.
	Limit int64
}

// Frame returns the frame the client belongs to.
func (c *Client) Frame() *Frame {
	return c.frame
}

// Select executes a read-only statement.
func (c *Client) Select(query string, limit int64, args ...types.Argument) (*ResultSet, error) {
	return c.Query(query, QueryOptions{ReadOnly: true, Limit: limit}, args...)
}

// Update executes a statement that may modify the database. The result set's Processed count
// holds the number of rows affected, or returned for statements producing tuples.
func (c *Client) Update(query string, limit int64, args ...types.Argument) (*ResultSet, error) {
	return c.Query(query, QueryOptions{Limit: limit}, args...)
}

// Run executes a statement and discards its result.
func (c *Client) Run(query string, args ...types.Argument) error {
	_, err := c.Update(query, 0, args...)
	return err
}

// Query executes a statement with explicitly typed arguments.
func (c *Client) Query(query string, opts QueryOptions, args ...types.Argument) (*ResultSet, error) {
	s, err := c.spi()
	if err != nil {
		return nil, err
	}

	values, err := bindArguments(args)
	if err != nil {
		return nil, s.fail(query, err)
	}

	table, err := s.conn.Exec(c.frame.ctx, db.Statement{
		Query:    query,
		Args:     values,
		ReadOnly: opts.ReadOnly,
		Limit:    opts.Limit,
	})
	s.raiseHostAbort()
	if err != nil {
		return nil, s.fail(query, err)
	}

	return newResultSet(c.frame, table), nil
}

// Explain plans a statement without executing it.
func (c *Client) Explain(query string, args ...types.Argument) (types.PlanResult, error) {
	s, err := c.spi()
	if err != nil {
		return types.PlanResult{}, err
	}

	values, err := bindArguments(args)
	if err != nil {
		return types.PlanResult{}, s.fail(query, err)
	}

	output, err := s.conn.Explain(c.frame.ctx, db.Statement{Query: query, Args: values, ReadOnly: true})
	s.raiseHostAbort()
	if err != nil {
		return types.PlanResult{}, s.fail(query, err)
	}

	plan, err := types.ParsePlan(output)
	if err != nil {
		return types.PlanResult{}, fmt.Errorf("Failed to decode plan of %q: %w", query, err)
	}

	return plan, nil
}

// spi returns the SPI if the client's frame may still issue statements.
func (c *Client) spi() (*SPI, error) {
	if c.frame.closed {
		return nil, ErrFrameClosed
	}

	s := c.frame.spi
	if s.failure != nil {
		return nil, s.failure
	}

	return s, nil
}

func bindArguments(args []types.Argument) ([]any, error) {
	if len(args) == 0 {
		return nil, nil
	}

	values := make([]any, 0, len(args))
	for i, arg := range args {
		v, err := arg.Bind()
		if err != nil {
			return nil, fmt.Errorf("Failed to bind argument $%d: %w", i+1, err)
		}

		values = append(values, v)
	}

	return values, nil
}
