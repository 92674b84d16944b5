// Package inmemory provides map-backed implementations of the store
// interfaces. It is safe for concurrent use and suitable for tests and
// single-instance local runs; data is lost on restart.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/RonStack/leaky-buckets/internal/domain"
	"github.com/RonStack/leaky-buckets/internal/store"
)

// Store implements every store repository interface over in-memory maps.
type Store struct {
	mu        sync.RWMutex
	txs       map[string]*domain.Transaction
	rejected  []domain.RejectedRow
	merchants map[string]*domain.MerchantEntry
	buckets   map[string]*domain.Bucket
	months    map[string]*domain.MonthState
	paystubs  map[string]*domain.Paystub
	bills     map[string]*domain.RecurringBill
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		txs:       make(map[string]*domain.Transaction),
		merchants: make(map[string]*domain.MerchantEntry),
		buckets:   make(map[string]*domain.Bucket),
		months:    make(map[string]*domain.MonthState),
		paystubs:  make(map[string]*domain.Paystub),
		bills:     make(map[string]*domain.RecurringBill),
	}
}

// ---- TransactionRepository ----

func (s *Store) InsertTransactions(ctx context.Context, txs []*domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range txs {
		if t.ID == "" {
			return fmt.Errorf("inmemory: transaction without id")
		}
		cp := *t
		s.txs[t.ID] = &cp
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.txs[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (s *Store) ListTransactionsByMonth(ctx context.Context, monthKey string) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Transaction
	for _, t := range s.txs {
		if t.MonthKey == monthKey {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateResolution(ctx context.Context, id string, res store.Resolution) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.txs[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
	}
	t.Bucket = res.Bucket
	t.Confidence = res.Confidence
	t.CategorizationSource = res.Source
	t.CategorizationReasoning = res.Reasoning

	cp := *t
	return &cp, nil
}

func (s *Store) SetMonthLocked(ctx context.Context, monthKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.txs {
		if t.MonthKey == monthKey {
			t.Locked = true
		}
	}
	return nil
}

func (s *Store) InsertRejectedRows(ctx context.Context, rows []domain.RejectedRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rejected = append(s.rejected, rows...)
	return nil
}

func (s *Store) ListRejectedRows(ctx context.Context, uploadID string) ([]domain.RejectedRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.RejectedRow
	for _, r := range s.rejected {
		if r.UploadID == uploadID {
			out = append(out, r)
		}
	}
	return out, nil
}

// ---- MerchantRepository ----

func (s *Store) Lookup(ctx context.Context, key string) (*domain.MerchantEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.merchants[key]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (s *Store) ListAll(ctx context.Context) ([]*domain.MerchantEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.MerchantEntry, 0, len(s.merchants))
	for _, e := range s.merchants {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) Upsert(ctx context.Context, entry *domain.MerchantEntry) error {
	if entry.Key == "" {
		return fmt.Errorf("inmemory: merchant entry without key")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *entry
	s.merchants[entry.Key] = &cp
	return nil
}

// ---- BucketRepository ----

func (s *Store) ListBuckets(ctx context.Context) ([]*domain.Bucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Bucket, 0, len(s.buckets))
	for _, b := range s.buckets {
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (s *Store) GetBucket(ctx context.Context, id string) (*domain.Bucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.buckets[id]
	if !ok {
		return nil, fmt.Errorf("bucket %s: %w", id, domain.ErrNotFound)
	}
	cp := *b
	return &cp, nil
}

func (s *Store) UpdateBucket(ctx context.Context, id string, upd domain.BucketUpdate) (*domain.Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[id]
	if !ok {
		return nil, fmt.Errorf("bucket %s: %w", id, domain.ErrNotFound)
	}
	if upd.Name != nil {
		b.Name = *upd.Name
	}
	if upd.Emoji != nil {
		b.Emoji = *upd.Emoji
	}
	if upd.MonthlyTarget != nil {
		b.MonthlyTarget = *upd.MonthlyTarget
	}
	cp := *b
	return &cp, nil
}

func (s *Store) CreateBucketIfMissing(ctx context.Context, b *domain.Bucket) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.buckets {
		if existing.Name == b.Name {
			return false, nil
		}
	}
	cp := *b
	s.buckets[b.ID] = &cp
	return true, nil
}

// ---- MonthRepository ----

func (s *Store) GetMonthState(ctx context.Context, monthKey string) (*domain.MonthState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if st, ok := s.months[monthKey]; ok {
		cp := *st
		return &cp, nil
	}
	return &domain.MonthState{MonthKey: monthKey}, nil
}

func (s *Store) LockMonth(ctx context.Context, monthKey string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.months[monthKey]; ok && st.Locked {
		return true, nil
	}
	s.months[monthKey] = &domain.MonthState{MonthKey: monthKey, Locked: true, LockedAt: &at}
	return false, nil
}

// ---- PaystubRepository ----

func (s *Store) InsertPaystub(ctx context.Context, p *domain.Paystub) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	s.paystubs[p.ID] = &cp
	return nil
}

func (s *Store) ListPaystubsByMonth(ctx context.Context, monthKey string) ([]*domain.Paystub, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Paystub
	for _, p := range s.paystubs {
		if p.MonthKey == monthKey {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PayDate.Before(out[j].PayDate) })
	return out, nil
}

func (s *Store) DeletePaystub(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.paystubs[id]; !ok {
		return fmt.Errorf("paystub %s: %w", id, domain.ErrNotFound)
	}
	delete(s.paystubs, id)
	return nil
}

// ---- BillRepository ----

func (s *Store) InsertBill(ctx context.Context, b *domain.RecurringBill) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *b
	s.bills[b.ID] = &cp
	return nil
}

func (s *Store) ListBills(ctx context.Context) ([]*domain.RecurringBill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.RecurringBill, 0, len(s.bills))
	for _, b := range s.bills {
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) DeleteBill(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bills[id]; !ok {
		return fmt.Errorf("bill %s: %w", id, domain.ErrNotFound)
	}
	delete(s.bills, id)
	return nil
}

// Interface conformance checks.
var (
	_ store.TransactionRepository = (*Store)(nil)
	_ store.MerchantRepository    = (*Store)(nil)
	_ store.BucketRepository      = (*Store)(nil)
	_ store.MonthRepository       = (*Store)(nil)
	_ store.PaystubRepository     = (*Store)(nil)
	_ store.BillRepository        = (*Store)(nil)
)
