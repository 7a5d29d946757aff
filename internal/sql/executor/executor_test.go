package executor

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/tinydb/internal/engine"
	"github.com/tuannm99/tinydb/internal/record"
)

func newTestSession(t *testing.T) (*Session, *engine.Database) {
	t.Helper()

	db, err := engine.Open(filepath.Join(t.TempDir(), "tinydb.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewSession(db), db
}

func mustExec(t *testing.T, s *Session, sql string) *Result {
	t.Helper()
	res, err := s.ExecSQL(sql)
	require.NoError(t, err, "statement %q", sql)
	return res
}

func TestSession_InsertSelectCommit(t *testing.T) {
	s, _ := newTestSession(t)

	mustExec(t, s, "CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(50), age INT);")
	mustExec(t, s, "BEGIN;")
	mustExec(t, s, "INSERT INTO users VALUES (1, 'Alice', 25);")
	mustExec(t, s, "INSERT INTO users VALUES (2, 'Bob', 30);")

	res := mustExec(t, s, "SELECT * FROM users WHERE id = 1;")
	require.Len(t, res.Rows, 1)
	assert.Equal(t, []record.Value{
		record.NewInt(1), record.NewVarchar("Alice"), record.NewInt(25),
	}, res.Rows[0])
	assert.Equal(t, []string{"id", "name", "age"}, res.Columns)

	mustExec(t, s, "COMMIT;")
	assert.Zero(t, s.CurrentTxn())
}

func TestSession_DMLRequiresTransaction(t *testing.T) {
	s, _ := newTestSession(t)

	mustExec(t, s, "CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(50), age INT);")

	_, err := s.ExecSQL("INSERT INTO users VALUES (1, 'Alice', 25);")
	require.ErrorIs(t, err, ErrNoActiveTxn)

	_, err = s.ExecSQL("SELECT * FROM users WHERE id = 1;")
	require.ErrorIs(t, err, ErrNoActiveTxn)

	_, err = s.ExecSQL("COMMIT;")
	require.ErrorIs(t, err, ErrNoActiveTxn)

	_, err = s.ExecSQL("ROLLBACK;")
	require.ErrorIs(t, err, ErrNoActiveTxn)
}

func TestSession_RollbackHidesInsert(t *testing.T) {
	s, _ := newTestSession(t)

	mustExec(t, s, "CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(50), age INT);")
	mustExec(t, s, "BEGIN;")
	mustExec(t, s, "INSERT INTO users VALUES (1, 'Alice', 25);")
	mustExec(t, s, "ROLLBACK;")

	mustExec(t, s, "BEGIN;")
	res := mustExec(t, s, "SELECT * FROM users WHERE id = 1;")
	assert.Empty(t, res.Rows)
}

func TestSession_DeleteThenSelectEmpty(t *testing.T) {
	s, _ := newTestSession(t)

	mustExec(t, s, "CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(50), age INT);")
	mustExec(t, s, "BEGIN;")
	mustExec(t, s, "INSERT INTO users VALUES (1, 'Alice', 25);")
	mustExec(t, s, "COMMIT;")

	mustExec(t, s, "BEGIN;")
	mustExec(t, s, "DELETE FROM users WHERE id = 1;")
	mustExec(t, s, "COMMIT;")

	mustExec(t, s, "BEGIN;")
	res := mustExec(t, s, "SELECT * FROM users WHERE id = 1;")
	assert.Empty(t, res.Rows)
}

func TestSession_DuplicateInsertFails(t *testing.T) {
	s, _ := newTestSession(t)

	mustExec(t, s, "CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(50), age INT);")
	mustExec(t, s, "BEGIN;")
	mustExec(t, s, "INSERT INTO users VALUES (1, 'Alice', 25);")

	_, err := s.ExecSQL("INSERT INTO users VALUES (1, 'Clone', 30);")
	require.Error(t, err)
}

func TestSession_TwoSessionsVisibility(t *testing.T) {
	s1, db := newTestSession(t)
	s2 := NewSession(db)

	mustExec(t, s1, "CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(50), age INT);")

	// T1 inserts but does not commit yet.
	mustExec(t, s1, "BEGIN;")
	mustExec(t, s1, "INSERT INTO users VALUES (1, 'Alice', 25);")

	// T2 (begun after T1) cannot see the uncommitted row.
	mustExec(t, s2, "BEGIN;")
	res := mustExec(t, s2, "SELECT * FROM users WHERE id = 1;")
	assert.Empty(t, res.Rows)

	// Once T1 commits, T2's next read admits the row (the viewer's own id
	// is the snapshot horizon, so visibility shifts on commit).
	mustExec(t, s1, "COMMIT;")
	res = mustExec(t, s2, "SELECT * FROM users WHERE id = 1;")
	require.Len(t, res.Rows, 1)
}

func TestSession_DeleteRequiresWhere(t *testing.T) {
	s, _ := newTestSession(t)

	mustExec(t, s, "CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(50), age INT);")
	mustExec(t, s, "BEGIN;")

	_, err := s.ExecSQL("DELETE FROM users;")
	require.ErrorIs(t, err, ErrDeleteNeedsWhere)
}

func TestSession_SelectWithoutWhereRejected(t *testing.T) {
	s, _ := newTestSession(t)

	mustExec(t, s, "CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(50), age INT);")
	mustExec(t, s, "BEGIN;")

	_, err := s.ExecSQL("SELECT * FROM users;")
	require.ErrorIs(t, err, engine.ErrNoWhereKey)
}

func TestSession_IntLiteralWidensIntoFloatColumn(t *testing.T) {
	s, _ := newTestSession(t)

	mustExec(t, s, "CREATE TABLE m (id INT PRIMARY KEY, score FLOAT);")
	mustExec(t, s, "BEGIN;")
	mustExec(t, s, "INSERT INTO m VALUES (1, 4);")

	res := mustExec(t, s, "SELECT * FROM m WHERE id = 1;")
	require.Len(t, res.Rows, 1)
	assert.Equal(t, record.NewFloat(4), res.Rows[0][1])
}

func TestSession_ValueCountMismatch(t *testing.T) {
	s, _ := newTestSession(t)

	mustExec(t, s, "CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(50), age INT);")
	mustExec(t, s, "BEGIN;")

	_, err := s.ExecSQL("INSERT INTO users VALUES (1, 'Alice');")
	require.Error(t, err)
}

func TestSession_DropTable(t *testing.T) {
	s, _ := newTestSession(t)

	mustExec(t, s, "CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(50), age INT);")
	mustExec(t, s, "DROP TABLE users;")

	mustExec(t, s, "BEGIN;")
	_, err := s.ExecSQL("SELECT * FROM users WHERE id = 1;")
	require.Error(t, err)
}
