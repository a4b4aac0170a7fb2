// Package memory is a process-local storage backend. It honours the same
// contracts as the PostgreSQL adapter: row locks held until the outer
// transaction ends, savepoints, and the unique constraints the services rely on.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DefaultLockTimeout bounds how long a transaction waits for a row lock.
const DefaultLockTimeout = 5 * time.Second

var (
	errNoSQL     = errors.New("memory: SQL is not supported")
	errForeignTx = errors.New("memory: transaction does not belong to this store")
)

type limitKey struct {
	userID uuid.UUID
	day    time.Time
}

type entryKey struct {
	reference string
	walletID  uuid.UUID
	entryType domain.EntryType
}

type rowLock struct {
	owner *Tx
	done  chan struct{}
}

// Store holds every table in memory. All reads and writes go through mu.
type Store struct {
	mu sync.Mutex

	wallets      map[uuid.UUID]domain.Wallet
	transactions map[uuid.UUID]domain.Transaction
	byReference  map[string]uuid.UUID
	byIdemKey    map[string]uuid.UUID
	entries      []domain.LedgerEntry
	entryKeys    map[entryKey]struct{}
	limits       map[limitKey]domain.TransactionLimit
	risks        []domain.SuspiciousActivity
	audits       []domain.AuditLog

	locks       map[string]*rowLock
	lockTimeout time.Duration
}

// NewStore creates an empty store. A non-positive lockTimeout selects DefaultLockTimeout.
func NewStore(lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &Store{
		wallets:      make(map[uuid.UUID]domain.Wallet),
		transactions: make(map[uuid.UUID]domain.Transaction),
		byReference:  make(map[string]uuid.UUID),
		byIdemKey:    make(map[string]uuid.UUID),
		entryKeys:    make(map[entryKey]struct{}),
		limits:       make(map[limitKey]domain.TransactionLimit),
		locks:        make(map[string]*rowLock),
		lockTimeout:  lockTimeout,
	}
}

// Begin implements ports.DBTransactor.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t := &Tx{store: s}
	t.root = t
	return t, nil
}

// Ping implements ports.HealthChecker.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Name returns the dependency name.
func (s *Store) Name() string {
	return "memory"
}

// lock takes the exclusive row lock for key on behalf of tx's outer
// transaction. It is reentrant and gives up with domain.ErrLockTimeout.
func (s *Store) lock(ctx context.Context, tx *Tx, key string) error {
	owner := tx.root
	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()

	for {
		s.mu.Lock()
		l, held := s.locks[key]
		if !held {
			s.locks[key] = &rowLock{owner: owner, done: make(chan struct{})}
			owner.held = append(owner.held, key)
			s.mu.Unlock()
			return nil
		}
		if l.owner == owner {
			s.mu.Unlock()
			return nil
		}
		done := l.done
		s.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return fmt.Errorf("lock %s: %w: %w", key, domain.ErrLockTimeout, ctx.Err())
		case <-timer.C:
			return fmt.Errorf("lock %s: %w", key, domain.ErrLockTimeout)
		}
	}
}

// release frees every lock held by an outer transaction. Caller holds s.mu.
func (s *Store) release(owner *Tx) {
	for _, key := range owner.held {
		if l, ok := s.locks[key]; ok && l.owner == owner {
			delete(s.locks, key)
			close(l.done)
		}
	}
	owner.held = nil
}

// tx unwraps a pgx.Tx produced by this store.
func (s *Store) tx(tx pgx.Tx) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok || t.store != s {
		return nil, errForeignTx
	}
	if t.closed {
		return nil, pgx.ErrTxClosed
	}
	return t, nil
}

// Tx is an in-memory transaction. Writes apply immediately and record an
// undo step. A nested Tx is a savepoint over its outer transaction's undo log.
type Tx struct {
	store  *Store
	root   *Tx
	mark   int
	closed bool

	// set on the outer transaction only
	undo []func()
	held []string
}

// record adds an undo step. Caller holds store.mu.
func (t *Tx) record(fn func()) {
	t.root.undo = append(t.root.undo, fn)
}

// Begin opens a savepoint.
func (t *Tx) Begin(ctx context.Context) (pgx.Tx, error) {
	if t.closed {
		return nil, pgx.ErrTxClosed
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return &Tx{store: t.store, root: t.root, mark: len(t.root.undo)}, nil
}

// Commit releases a savepoint, or ends the outer transaction and its locks.
func (t *Tx) Commit(ctx context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	t.closed = true
	if t.root == t {
		t.undo = nil
		t.store.release(t)
	}
	return nil
}

// Rollback undoes everything written since the savepoint or transaction began.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	t.closed = true
	root := t.root
	if t != root && root.closed {
		return pgx.ErrTxClosed
	}
	for i := len(root.undo) - 1; i >= t.mark; i-- {
		root.undo[i]()
	}
	root.undo = root.undo[:t.mark]
	if root == t {
		t.store.release(t)
	}
	return nil
}

func (t *Tx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, errNoSQL
}

func (t *Tx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }

func (t *Tx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (t *Tx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, errNoSQL
}

func (t *Tx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), errNoSQL
}

func (t *Tx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errNoSQL
}

func (t *Tx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return errRow{}
}

func (t *Tx) Conn() *pgx.Conn { return nil }

type errRow struct{}

func (errRow) Scan(dest ...any) error { return errNoSQL }
