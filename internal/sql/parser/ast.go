package parser

import "github.com/tuannm99/tinydb/internal/record"

// Statement is the root interface for all SQL statements.
type Statement interface {
	stmtNode()
}

// ----- CREATE TABLE / DROP TABLE -----

type ColumnDef struct {
	Name       string
	Type       record.DataType
	Size       int32
	PrimaryKey bool
}

type CreateTableStmt struct {
	TableName string
	Columns   []ColumnDef
}

func (*CreateTableStmt) stmtNode() {}

type DropTableStmt struct {
	TableName string
}

func (*DropTableStmt) stmtNode() {}

// ----- Transaction control -----

type BeginStmt struct{}

func (*BeginStmt) stmtNode() {}

type CommitStmt struct{}

func (*CommitStmt) stmtNode() {}

type RollbackStmt struct{}

func (*RollbackStmt) stmtNode() {}

// ----- INSERT -----

type InsertStmt struct {
	TableName string
	Values    []Expr // literal values only
}

func (*InsertStmt) stmtNode() {}

// ----- SELECT -----

type SelectStmt struct {
	TableName string
	Where     *WhereEq // optional
}

func (*SelectStmt) stmtNode() {}

// ----- DELETE -----

type DeleteStmt struct {
	TableName string
	Where     *WhereEq // required by the executor
}

func (*DeleteStmt) stmtNode() {}

// ----- WHERE (only col = literal) -----

type WhereEq struct {
	Column string
	Value  Expr
}

// ----- Expressions -----

type Expr interface {
	exprNode()
}

type LiteralExpr struct {
	Value record.Value
}

func (*LiteralExpr) exprNode() {}
