// Package memstore is an in-process implementation of store.Store.
//
// Transactions are serialized and run against a private copy of the data that
// replaces the committed state on success, which is enough for local development
// and tests. Documents are deep-copied on the way in and out so callers never
// share state with the store.
package memstore

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/campus-pay-go/models"
	"github.com/phillip/campus-pay-go/store"
)

var _ store.Store = (*Store)(nil)

type txKey struct{}

type state struct {
	users         map[primitive.ObjectID]models.User
	groups        map[primitive.ObjectID]models.Group
	messages      []models.GroupMessage
	clubs         map[primitive.ObjectID]models.Club
	events        map[primitive.ObjectID]models.Event
	notifications []models.Notification
	transactions  []models.Transaction
	ledger        []models.LedgerEntry
	seqs          map[primitive.ObjectID]int64
}

func newState() *state {
	return &state{
		users:  make(map[primitive.ObjectID]models.User),
		groups: make(map[primitive.ObjectID]models.Group),
		clubs:  make(map[primitive.ObjectID]models.Club),
		events: make(map[primitive.ObjectID]models.Event),
		seqs:   make(map[primitive.ObjectID]int64),
	}
}

func (s *state) clone() *state {
	cp := newState()
	for k, v := range s.users {
		cp.users[k] = v
	}
	for k, v := range s.groups {
		cp.groups[k] = cloneGroup(v)
	}
	for k, v := range s.clubs {
		cp.clubs[k] = cloneClub(v)
	}
	for k, v := range s.events {
		cp.events[k] = cloneEvent(v)
	}
	for k, v := range s.seqs {
		cp.seqs[k] = v
	}
	cp.messages = slices.Clone(s.messages)
	cp.notifications = slices.Clone(s.notifications)
	cp.transactions = slices.Clone(s.transactions)
	cp.ledger = slices.Clone(s.ledger)
	return cp
}

// Store keeps every collection in memory.
//
// A transaction works on its own copy of the data and swaps it in on commit.
// Writes outside a transaction wait for the running one to finish, so a commit
// never overwrites them. Reads outside a transaction only see committed data.
type Store struct {
	txMu sync.Mutex // held by a transaction or a non-transactional write
	mu   sync.RWMutex
	data *state
}

type txState struct {
	owner *Store
	data  *state
}

func New() *Store {
	return &Store{data: newState()}
}

func (s *Store) txFrom(ctx context.Context) *state {
	if tx, ok := ctx.Value(txKey{}).(*txState); ok && tx.owner == s {
		return tx.data
	}
	return nil
}

// WithTx runs fn atomically. Nested calls join the outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txFrom(ctx) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	work := s.data.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, &txState{owner: s, data: work})); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = work
	s.mu.Unlock()
	return nil
}

// read returns the state visible to ctx.
func (s *Store) read(ctx context.Context) (*state, func()) {
	if d := s.txFrom(ctx); d != nil {
		return d, func() {}
	}
	s.mu.RLock()
	return s.data, s.mu.RUnlock
}

// write returns the state ctx may modify.
func (s *Store) write(ctx context.Context) (*state, func()) {
	if d := s.txFrom(ctx); d != nil {
		return d, func() {}
	}
	s.txMu.Lock()
	s.mu.Lock()
	return s.data, func() {
		s.mu.Unlock()
		s.txMu.Unlock()
	}
}

func (s *Store) Close(context.Context) error { return nil }

func ensureID(id *primitive.ObjectID) {
	if id.IsZero() {
		*id = primitive.NewObjectID()
	}
}

func matches(query string, fields ...string) bool {
	q := strings.ToLower(query)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// newestFirst orders by creation time, then id, descending.
func newestFirst(aAt, bAt time.Time, aID, bID primitive.ObjectID) int {
	if c := bAt.Compare(aAt); c != 0 {
		return c
	}
	return strings.Compare(bID.Hex(), aID.Hex())
}

func cloneGroup(g models.Group) models.Group {
	g.Participants = slices.Clone(g.Participants)
	bills := make([]models.Bill, len(g.Bills))
	for i, b := range g.Bills {
		b.Shares = slices.Clone(b.Shares)
		bills[i] = b
	}
	if g.Bills == nil {
		bills = nil
	}
	g.Bills = bills
	return g
}

func cloneClub(c models.Club) models.Club {
	c.Members = slices.Clone(c.Members)
	c.Organizers = slices.Clone(c.Organizers)
	c.PendingRequests = slices.Clone(c.PendingRequests)
	if c.Subscription != nil {
		sub := *c.Subscription
		c.Subscription = &sub
	}
	return c
}

func cloneEvent(e models.Event) models.Event {
	e.Attendees = slices.Clone(e.Attendees)
	return e
}
