package executor

import (
	"errors"
	"fmt"

	"github.com/tuannm99/tinydb/internal/engine"
	"github.com/tuannm99/tinydb/internal/record"
	"github.com/tuannm99/tinydb/internal/sql/parser"
)

var (
	// ErrNoActiveTxn is returned when a DML statement runs outside BEGIN.
	ErrNoActiveTxn = errors.New("executor: no active transaction")

	// ErrDeleteNeedsWhere rejects a DELETE without a key predicate.
	ErrDeleteNeedsWhere = errors.New("executor: DELETE requires a WHERE clause")
)

// Result is the generic statement result returned to the shell.
type Result struct {
	Columns []string
	Rows    [][]record.Value

	AffectedRows int64
}

// Session executes statements against one Database, carrying the current
// transaction between statements the way an interactive connection does.
type Session struct {
	db      *engine.Database
	current uint64 // 0 = no transaction
}

func NewSession(db *engine.Database) *Session {
	return &Session{db: db}
}

// CurrentTxn reports the active transaction id (0 when none).
func (s *Session) CurrentTxn() uint64 { return s.current }

// ExecSQL is the top-level entry: SQL string -> Result.
func (s *Session) ExecSQL(sql string) (*Result, error) {
	stmt, err := parser.Parse(sql)
	if err != nil {
		return nil, err
	}
	return s.exec(stmt)
}

func (s *Session) exec(stmt parser.Statement) (*Result, error) {
	switch st := stmt.(type) {
	case *parser.CreateTableStmt:
		return s.execCreateTable(st)
	case *parser.DropTableStmt:
		return s.execDropTable(st)
	case *parser.BeginStmt:
		return s.execBegin()
	case *parser.CommitStmt:
		return s.execCommit()
	case *parser.RollbackStmt:
		return s.execRollback()
	case *parser.InsertStmt:
		return s.execInsert(st)
	case *parser.SelectStmt:
		return s.execSelect(st)
	case *parser.DeleteStmt:
		return s.execDelete(st)
	default:
		return nil, fmt.Errorf("executor: unsupported statement type %T", stmt)
	}
}

func (s *Session) execCreateTable(st *parser.CreateTableStmt) (*Result, error) {
	cols := make([]record.Column, 0, len(st.Columns))
	for _, c := range st.Columns {
		cols = append(cols, record.Column{
			Name:       c.Name,
			Type:       c.Type,
			Size:       c.Size,
			PrimaryKey: c.PrimaryKey,
		})
	}
	if err := s.db.CreateTable(st.TableName, cols); err != nil {
		return nil, err
	}
	return &Result{}, nil
}

func (s *Session) execDropTable(st *parser.DropTableStmt) (*Result, error) {
	if err := s.db.DropTable(st.TableName); err != nil {
		return nil, err
	}
	return &Result{}, nil
}

func (s *Session) execBegin() (*Result, error) {
	id, err := s.db.Txns().Begin()
	if err != nil {
		return nil, err
	}
	s.current = id
	return &Result{}, nil
}

func (s *Session) execCommit() (*Result, error) {
	if s.current == 0 {
		return nil, ErrNoActiveTxn
	}
	err := s.db.Txns().Commit(s.current)
	s.current = 0
	if err != nil {
		return nil, err
	}
	return &Result{}, nil
}

func (s *Session) execRollback() (*Result, error) {
	if s.current == 0 {
		return nil, ErrNoActiveTxn
	}
	err := s.db.Txns().Abort(s.current)
	s.current = 0
	if err != nil {
		return nil, err
	}
	return &Result{}, nil
}

func (s *Session) execInsert(st *parser.InsertStmt) (*Result, error) {
	if s.current == 0 {
		return nil, ErrNoActiveTxn
	}

	schema, err := s.findSchema(st.TableName)
	if err != nil {
		return nil, err
	}

	raw := make([]record.Value, 0, len(st.Values))
	for _, expr := range st.Values {
		lit, ok := expr.(*parser.LiteralExpr)
		if !ok {
			return nil, fmt.Errorf("executor: only literal values supported in INSERT")
		}
		raw = append(raw, lit.Value)
	}

	values, err := coerceValues(schema, raw)
	if err != nil {
		return nil, err
	}

	if err := s.db.Insert(st.TableName, values, s.current); err != nil {
		return nil, err
	}
	return &Result{AffectedRows: 1}, nil
}

func (s *Session) execSelect(st *parser.SelectStmt) (*Result, error) {
	if s.current == 0 {
		return nil, ErrNoActiveTxn
	}

	schema, err := s.findSchema(st.TableName)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, col := range schema.Columns {
		res.Columns = append(res.Columns, col.Name)
	}

	var key *record.Value
	if st.Where != nil {
		lit := st.Where.Value.(*parser.LiteralExpr)
		v := lit.Value
		key = &v
	}

	tup, err := s.db.Select(st.TableName, key, s.current)
	if err != nil {
		return nil, err
	}
	if tup != nil {
		res.Rows = append(res.Rows, tup.Values)
	}
	res.AffectedRows = int64(len(res.Rows))
	return res, nil
}

func (s *Session) execDelete(st *parser.DeleteStmt) (*Result, error) {
	if s.current == 0 {
		return nil, ErrNoActiveTxn
	}
	if st.Where == nil {
		return nil, ErrDeleteNeedsWhere
	}

	lit := st.Where.Value.(*parser.LiteralExpr)
	if err := s.db.Delete(st.TableName, lit.Value, s.current); err != nil {
		return nil, err
	}
	return &Result{AffectedRows: 1}, nil
}

func (s *Session) findSchema(table string) (record.TableSchema, error) {
	for _, sc := range s.db.Tables() {
		if sc.Name == table {
			return sc, nil
		}
	}
	return record.TableSchema{}, fmt.Errorf("executor: table not found: %s", table)
}

// coerceValues aligns parsed literals with the schema's column types.
// Integer literals widen into FLOAT columns; everything else must match.
func coerceValues(schema record.TableSchema, raw []record.Value) ([]record.Value, error) {
	if len(raw) != len(schema.Columns) {
		return nil, fmt.Errorf("executor: insert values count %d != schema %d",
			len(raw), len(schema.Columns))
	}

	out := make([]record.Value, len(raw))
	for i, v := range raw {
		col := schema.Columns[i]
		if v.IsNull {
			out[i] = record.NewNull(col.Type)
			continue
		}
		switch {
		case v.Type == col.Type:
			out[i] = v
		case col.Type == record.TypeFloat && v.Type == record.TypeInt:
			out[i] = record.NewFloat(float32(v.Int))
		default:
			return nil, fmt.Errorf("executor: column %s expects %s, got %s",
				col.Name, col.Type, v.Type)
		}
	}
	return out, nil
}
