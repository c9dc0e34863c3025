package db

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/canonical/microspi/internal/sys"
	"github.com/canonical/microspi/spi/types"
)

type dbSuite struct {
	suite.Suite
}

func TestDBSuite(t *testing.T) {
	suite.Run(t, new(dbSuite))
}

func (s *dbSuite) newDB(driver string, engine types.EngineType) *DB {
	sqlDB, err := sql.Open(driver, map[string]string{"duckdb": "", "sqlite3": ":memory:"}[driver])
	s.Require().NoError(err)

	db, err := NewDB(sqlDB, engine)
	s.Require().NoError(err)

	s.T().Cleanup(func() { s.NoError(db.Close()) })

	return db
}

// Ensures typed columns come back tagged with the declared type.
func (s *dbSuite) Test_duckdbTypedColumns() {
	ctx := context.Background()
	db := s.newDB("duckdb", types.EngineDuckDB)

	conn, err := db.Begin(ctx)
	s.Require().NoError(err)

	table, err := conn.Exec(ctx, Statement{Query: "SELECT 42 AS answer, 'test' AS word, true AS flag, NULL::UUID AS id"})
	s.Require().NoError(err)

	s.Equal([]string{"answer", "word", "flag", "id"}, table.Columns)
	s.Equal([]types.Oid{types.Int4OID, types.VarcharOID, types.BoolOID, types.UUIDOID}, table.Types)
	s.Require().Len(table.Rows, 1)
	s.Equal(types.Datum{Oid: types.Int4OID, Value: int32(42)}, table.Rows[0][0])
	s.Equal(types.Datum{Oid: types.VarcharOID, Value: "test"}, table.Rows[0][1])
	s.True(table.Rows[0][3].IsNull())
	s.Equal(int64(1), table.Processed)

	s.NoError(conn.Commit())
}

// Ensures the row limit and the affected row count.
func (s *dbSuite) Test_duckdbLimitAndProcessed() {
	ctx := context.Background()
	db := s.newDB("duckdb", types.EngineDuckDB)

	conn, err := db.Begin(ctx)
	s.Require().NoError(err)

	_, err = conn.Exec(ctx, Statement{Query: "CREATE TABLE items (id INTEGER)"})
	s.Require().NoError(err)

	table, err := conn.Exec(ctx, Statement{Query: "INSERT INTO items SELECT * FROM range(5)"})
	s.Require().NoError(err)
	s.Equal(int64(5), table.Processed)
	s.Empty(table.Rows)

	table, err = conn.Exec(ctx, Statement{Query: "SELECT id FROM items ORDER BY id", Limit: 2})
	s.Require().NoError(err)
	s.Len(table.Rows, 2)

	s.NoError(conn.Rollback())

	// The rolled back table is gone.
	conn, err = db.Begin(ctx)
	s.Require().NoError(err)

	_, err = conn.Exec(ctx, Statement{Query: "SELECT * FROM items"})
	s.Error(err)
	s.NoError(conn.Rollback())
}

// Ensures the plan of a trivial statement is a single Result node.
func (s *dbSuite) Test_duckdbExplain() {
	ctx := context.Background()
	db := s.newDB("duckdb", types.EngineDuckDB)

	conn, err := db.Begin(ctx)
	s.Require().NoError(err)

	defer func() { s.NoError(conn.Rollback()) }()

	output, err := conn.Explain(ctx, Statement{Query: "SELECT 1"})
	s.Require().NoError(err)

	plan, err := types.ParsePlan(output)
	s.Require().NoError(err)

	expected := types.PlanResult{Plans: []types.PlanNode{{NodeType: "Result", PlanRows: 1, PlanWidth: 4, TotalCost: 0.01}}}
	root := plan.Root()
	s.Equal(expected.Root().NodeType, root.NodeType)
	s.Equal(expected.Root().PlanRows, root.PlanRows)
	s.Equal(expected.Root().PlanWidth, root.PlanWidth)
	s.Equal(expected.Root().TotalCost, root.TotalCost)
	s.Empty(root.Plans)
}

// Ensures the sqlite dialect plans a table scan.
func (s *dbSuite) Test_sqliteExplain() {
	ctx := context.Background()
	db := s.newDB("sqlite3", types.EngineSQLite)

	conn, err := db.Begin(ctx)
	s.Require().NoError(err)

	defer func() { s.NoError(conn.Rollback()) }()

	_, err = conn.Exec(ctx, Statement{Query: "CREATE TABLE users (id INTEGER, name TEXT)"})
	s.Require().NoError(err)

	output, err := conn.Explain(ctx, Statement{Query: "SELECT id, name FROM users"})
	s.Require().NoError(err)

	plan, err := types.ParsePlan(output)
	s.Require().NoError(err)

	root := plan.Root()
	s.Equal("Seq Scan", root.NodeType)
	s.Equal("users", root.Extra["Relation Name"])
	s.Equal(int64(defaultScanRows), root.PlanRows)
	s.Equal(10.0, root.TotalCost)
	s.NotZero(root.PlanWidth)

	output, err = conn.Explain(ctx, Statement{Query: "SELECT ?", Args: []any{int64(1)}})
	s.Require().NoError(err)

	plan, err = types.ParsePlan(output)
	s.Require().NoError(err)
	s.Equal("Result", plan.Root().NodeType)
	s.Equal(int64(1), plan.Root().PlanRows)
}

// Ensures sqlite rows are tagged with declared types and expression values with their runtime type.
func (s *dbSuite) Test_sqliteExec() {
	ctx := context.Background()
	db := s.newDB("sqlite3", types.EngineSQLite)

	conn, err := db.Begin(ctx)
	s.Require().NoError(err)

	_, err = conn.Exec(ctx, Statement{Query: "CREATE TABLE users (id INTEGER, name TEXT)"})
	s.Require().NoError(err)

	table, err := conn.Exec(ctx, Statement{Query: "INSERT INTO users VALUES (?, ?), (?, ?)", Args: []any{int32(1), "a", int32(2), "b"}})
	s.Require().NoError(err)
	s.Equal(int64(2), table.Processed)

	table, err = conn.Exec(ctx, Statement{Query: "SELECT id, name, id * 2 FROM users ORDER BY id"})
	s.Require().NoError(err)
	s.Equal([]types.Oid{types.Int4OID, types.TextOID, types.Int8OID}, table.Types)
	s.Equal("a", table.Rows[0][1].Value)

	s.NoError(conn.Commit())
}

// Ensures init statements run when the engine is opened.
func (s *dbSuite) Test_openInit() {
	ctx := context.Background()
	cfg := types.EngineConfig{
		Engine: types.EngineSQLite,
		DSN:    ":memory:",
		Init:   []string{"CREATE TABLE seeded (id INTEGER)", "INSERT INTO seeded VALUES (1)"},
	}

	db, err := Open(ctx, cfg, nil)
	s.Require().NoError(err)

	defer func() { s.NoError(db.Close()) }()

	conn, err := db.Begin(ctx)
	s.Require().NoError(err)

	table, err := conn.Exec(ctx, Statement{Query: "SELECT count(*) FROM seeded"})
	s.Require().NoError(err)
	s.Equal(int64(1), table.Rows[0][0].Value)
	s.NoError(conn.Commit())
}

// Ensures a failing init statement is reported.
func (s *dbSuite) Test_openInitFailure() {
	cfg := types.EngineConfig{Engine: types.EngineDuckDB, Init: []string{"THIS IS NOT SQL"}}

	_, err := Open(context.Background(), cfg, nil)
	s.Error(err)
}

// Ensures the sqlite database lands in the state directory.
func (s *dbSuite) Test_openSQLiteStateDir() {
	fs, err := sys.DefaultOS(s.T().TempDir(), true)
	s.Require().NoError(err)

	db, err := Open(context.Background(), types.EngineConfig{Engine: types.EngineSQLite}, fs)
	s.Require().NoError(err)
	s.Equal(types.EngineSQLite, db.Name())

	conn, err := db.Begin(context.Background())
	s.Require().NoError(err)
	s.NoError(conn.Commit())
	s.NoError(db.Close())

	s.FileExists(fs.DatabasePath(string(types.EngineSQLite)))
}

// Ensures host functions are callable from sqlite statements in every transaction.
func (s *dbSuite) Test_sqliteHostFunction() {
	ctx := context.Background()
	db := s.newDB("sqlite3", types.EngineSQLite)

	err := db.RegisterFunction(types.Function{
		Name:   "double_it",
		Args:   []types.Oid{types.Int8OID},
		Result: types.Int8OID,
		Call: func(args []any) (any, error) {
			return args[0].(int64) * 2, nil
		},
	})
	s.Require().NoError(err)

	for i := 0; i < 2; i++ {
		conn, err := db.Begin(ctx)
		s.Require().NoError(err)

		table, err := conn.Exec(ctx, Statement{Query: "SELECT double_it(21)"})
		s.Require().NoError(err)
		s.Equal(int64(42), table.Rows[0][0].Value)

		_, err = conn.Exec(ctx, Statement{Query: "SELECT double_it(1, 2)"})
		s.Error(err)

		s.NoError(conn.Rollback())
	}
}

// Ensures host functions are checked against what the engine can host.
func (s *dbSuite) Test_registerFunctionInvalid() {
	call := func([]any) (any, error) { return nil, nil }

	duck := s.newDB("duckdb", types.EngineDuckDB)
	s.Error(duck.RegisterFunction(types.Function{Name: "", Result: types.BoolOID, Call: call}))
	s.Error(duck.RegisterFunction(types.Function{Name: "no_call", Result: types.BoolOID}))
	s.Error(duck.RegisterFunction(types.Function{Name: "as_uuid", Result: types.UUIDOID, Call: call}))
	s.NoError(duck.RegisterFunction(types.Function{Name: "twice", Result: types.BoolOID, Call: call}))
	s.Error(duck.RegisterFunction(types.Function{Name: "twice", Result: types.BoolOID, Call: call}))

	sqlDB, err := sql.Open("sqlite3", ":memory:")
	s.Require().NoError(err)

	dq, err := NewDB(sqlDB, types.EngineDqlite)
	s.Require().NoError(err)

	defer func() { s.NoError(sqlDB.Close()) }()

	err = dq.RegisterFunction(types.Function{Name: "remote", Result: types.BoolOID, Call: call})
	s.ErrorContains(err, "not supported")
}

// Ensures the output width of a statement with arguments is planned from its column types.
func (s *dbSuite) Test_duckdbExplainWidthWithArgs() {
	ctx := context.Background()
	db := s.newDB("duckdb", types.EngineDuckDB)

	conn, err := db.Begin(ctx)
	s.Require().NoError(err)

	output, err := conn.Explain(ctx, Statement{Query: "SELECT $1 + $2 = 3", Args: []any{int32(1), int64(2)}, ReadOnly: true})
	s.Require().NoError(err)

	plan, err := types.ParsePlan(output)
	s.Require().NoError(err)
	s.Equal(int64(1), plan.Root().PlanWidth)

	s.NoError(conn.Rollback())
}

func (s *dbSuite) Test_unknownEngine() {
	_, err := Open(context.Background(), types.EngineConfig{Engine: "postgres"}, nil)
	s.Error(err)
}
