package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/tinydb/internal/record"
)

func TestParse_RequireSemicolon(t *testing.T) {
	_, err := Parse("SELECT * FROM users")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing ';'")
}

func TestParse_CreateTable(t *testing.T) {
	stmt, err := Parse("CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(50), age INT);")
	require.NoError(t, err)

	s, ok := stmt.(*CreateTableStmt)
	require.True(t, ok, "want *CreateTableStmt, got %T", stmt)

	require.Equal(t, "users", s.TableName)
	require.Len(t, s.Columns, 3)

	assert.Equal(t, ColumnDef{Name: "id", Type: record.TypeInt, Size: 4, PrimaryKey: true}, s.Columns[0])
	assert.Equal(t, ColumnDef{Name: "name", Type: record.TypeVarchar, Size: 50}, s.Columns[1])
	assert.Equal(t, ColumnDef{Name: "age", Type: record.TypeInt, Size: 4}, s.Columns[2])
}

func TestParse_CreateTable_FloatAndDefaultVarchar(t *testing.T) {
	stmt, err := Parse("CREATE TABLE m (score FLOAT, note VARCHAR);")
	require.NoError(t, err)

	s := stmt.(*CreateTableStmt)
	assert.Equal(t, record.TypeFloat, s.Columns[0].Type)
	assert.Equal(t, record.TypeVarchar, s.Columns[1].Type)
	assert.EqualValues(t, record.MaxValueSize, s.Columns[1].Size)
}

func TestParse_CreateTable_Invalid(t *testing.T) {
	_, err := Parse("CREATE TABLE users id INT, name VARCHAR(10);")
	require.Error(t, err)

	_, err = Parse("CREATE TABLE users ();")
	require.Error(t, err)

	_, err = Parse("CREATE TABLE users (id BLOB);")
	require.Error(t, err)

	_, err = Parse("CREATE TABLE users (1id INT);")
	require.Error(t, err)
}

func TestParse_DropTable(t *testing.T) {
	stmt, err := Parse("DROP TABLE users;")
	require.NoError(t, err)

	s, ok := stmt.(*DropTableStmt)
	require.True(t, ok, "want *DropTableStmt, got %T", stmt)
	assert.Equal(t, "users", s.TableName)
}

func TestParse_TransactionControl(t *testing.T) {
	stmt, err := Parse("BEGIN;")
	require.NoError(t, err)
	_, ok := stmt.(*BeginStmt)
	require.True(t, ok)

	stmt, err = Parse("commit;")
	require.NoError(t, err)
	_, ok = stmt.(*CommitStmt)
	require.True(t, ok)

	stmt, err = Parse("ROLLBACK;")
	require.NoError(t, err)
	_, ok = stmt.(*RollbackStmt)
	require.True(t, ok)
}

func TestParse_Insert(t *testing.T) {
	stmt, err := Parse("INSERT INTO users VALUES (1, 'Alice', 25);")
	require.NoError(t, err)

	s, ok := stmt.(*InsertStmt)
	require.True(t, ok, "want *InsertStmt, got %T", stmt)
	require.Equal(t, "users", s.TableName)
	require.Len(t, s.Values, 3)

	assert.Equal(t, record.NewInt(1), s.Values[0].(*LiteralExpr).Value)
	assert.Equal(t, record.NewVarchar("Alice"), s.Values[1].(*LiteralExpr).Value)
	assert.Equal(t, record.NewInt(25), s.Values[2].(*LiteralExpr).Value)
}

func TestParse_Insert_FloatAndNullAndQuotedComma(t *testing.T) {
	stmt, err := Parse("INSERT INTO m VALUES (-1.5, NULL, 'a,b');")
	require.NoError(t, err)

	s := stmt.(*InsertStmt)
	require.Len(t, s.Values, 3)
	assert.Equal(t, record.NewFloat(-1.5), s.Values[0].(*LiteralExpr).Value)
	assert.True(t, s.Values[1].(*LiteralExpr).Value.IsNull)
	assert.Equal(t, "a,b", s.Values[2].(*LiteralExpr).Value.Str)
}

func TestParse_Select(t *testing.T) {
	stmt, err := Parse("SELECT * FROM users WHERE id = 1;")
	require.NoError(t, err)

	s, ok := stmt.(*SelectStmt)
	require.True(t, ok, "want *SelectStmt, got %T", stmt)
	assert.Equal(t, "users", s.TableName)
	require.NotNil(t, s.Where)
	assert.Equal(t, "id", s.Where.Column)
	assert.Equal(t, record.NewInt(1), s.Where.Value.(*LiteralExpr).Value)
}

func TestParse_Select_NoWhere(t *testing.T) {
	stmt, err := Parse("SELECT * FROM users;")
	require.NoError(t, err)

	s := stmt.(*SelectStmt)
	assert.Nil(t, s.Where)
}

func TestParse_Select_OnlyStar(t *testing.T) {
	_, err := Parse("SELECT id FROM users;")
	require.Error(t, err)
}

func TestParse_Delete(t *testing.T) {
	stmt, err := Parse("DELETE FROM users WHERE name = 'Bob';")
	require.NoError(t, err)

	s, ok := stmt.(*DeleteStmt)
	require.True(t, ok, "want *DeleteStmt, got %T", stmt)
	assert.Equal(t, "users", s.TableName)
	require.NotNil(t, s.Where)
	assert.Equal(t, record.NewVarchar("Bob"), s.Where.Value.(*LiteralExpr).Value)
}

func TestParse_UnsupportedStatement(t *testing.T) {
	_, err := Parse("UPDATE users SET name = 'x';")
	require.Error(t, err)
}
