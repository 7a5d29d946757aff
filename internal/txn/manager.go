package txn

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tuannm99/tinydb/internal/record"
)

// MaxTransactions bounds the slot table. Slots whose transaction is no
// longer Active are reused; assigned ids never are.
const MaxTransactions = 1024

var (
	// ErrTxnLimit is returned by Begin when every slot holds an Active
	// transaction.
	ErrTxnLimit = errors.New("txn: transaction slots exhausted")

	// ErrTxnNotFound is returned when no slot carries the given id.
	ErrTxnNotFound = errors.New("txn: transaction not found")

	// ErrBadTxnState is returned by Commit/Abort on a non-Active
	// transaction.
	ErrBadTxnState = errors.New("txn: transaction is not active")
)

type State uint8

const (
	StateActive State = iota
	StateCommitted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateCommitted:
		return "committed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Transaction is one slot in the manager's table.
type Transaction struct {
	ID        uint64
	State     State
	StartTime time.Time

	mu sync.Mutex
}

// Manager assigns monotonically increasing transaction ids and answers
// MVCC visibility questions against the slot table. Id 0 means "no
// transaction".
type Manager struct {
	mu     sync.Mutex
	slots  [MaxTransactions]Transaction
	nextID uint64
}

func NewManager() *Manager {
	m := &Manager{nextID: 1}
	// Initial state is Aborted so every slot is immediately reusable.
	for i := range m.slots {
		m.slots[i].State = StateAborted
	}
	return m
}

// Begin claims a free slot and returns a fresh transaction id. Among the
// non-Active slots it takes the one holding the oldest id (never-used
// slots first), so a finished transaction's state stays known for as
// long as the table allows.
func (m *Manager) Begin() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i := range m.slots {
		if m.slots[i].State == StateActive {
			continue
		}
		if idx < 0 || m.slots[i].ID < m.slots[idx].ID {
			idx = i
		}
	}
	if idx < 0 {
		return 0, ErrTxnLimit
	}
	t := &m.slots[idx]

	id := m.nextID
	m.nextID++

	t.mu.Lock()
	t.ID = id
	t.State = StateActive
	t.StartTime = time.Now()
	t.mu.Unlock()

	slog.Debug("txn.Begin", "txnID", id, "slot", idx)
	return id, nil
}

// Commit transitions an Active transaction to Committed.
func (m *Manager) Commit(id uint64) error {
	return m.finish(id, StateCommitted)
}

// Abort transitions an Active transaction to Aborted.
func (m *Manager) Abort(id uint64) error {
	return m.finish(id, StateAborted)
}

func (m *Manager) finish(id uint64, to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.findLocked(id)
	if t == nil {
		return ErrTxnNotFound
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.State != StateActive {
		return ErrBadTxnState
	}
	t.State = to

	slog.Debug("txn.finish", "txnID", id, "state", to.String())
	return nil
}

// findLocked scans the slot table for id. Caller holds m.mu.
func (m *Manager) findLocked(id uint64) *Transaction {
	for i := range m.slots {
		if m.slots[i].ID == id {
			return &m.slots[i]
		}
	}
	return nil
}

// IsVisible decides whether the tuple version described by h is
// observable by viewer. The viewer's own id acts as the snapshot
// horizon: a version is visible iff it was created by a committed
// earlier transaction (or the viewer itself) and not deleted by one.
func (m *Manager) IsVisible(h record.TupleHeader, viewer uint64) bool {
	if h.IsDeleted {
		return false
	}
	if h.Xmin > viewer {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// A missing creator means its slot has been reused; the version is
	// treated as established, whether that creator committed or aborted.
	if creator := m.findLocked(h.Xmin); creator != nil {
		creator.mu.Lock()
		state := creator.State
		creator.mu.Unlock()
		if state != StateCommitted && h.Xmin != viewer {
			return false
		}
	}

	if h.Xmax != 0 && h.Xmax <= viewer {
		deleter := m.findLocked(h.Xmax)
		if deleter == nil {
			// Deleter slot reused: the delete is treated as committed.
			return false
		}
		deleter.mu.Lock()
		state := deleter.State
		deleter.mu.Unlock()
		if h.Xmax == viewer || state == StateCommitted {
			return false
		}
	}

	return true
}

// State reports the current state of a transaction id.
func (m *Manager) State(id uint64) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.findLocked(id)
	if t == nil {
		return 0, ErrTxnNotFound
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.State, nil
}
