package origination

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	ledgeradapter "p2p-credit-origination/internal/adapter/ledger"
	mkt "p2p-credit-origination/internal/adapter/marketplace"
	"p2p-credit-origination/internal/adapter/repository/memory"
	"p2p-credit-origination/internal/domain/credit"
	"p2p-credit-origination/internal/domain/funding"
	"p2p-credit-origination/internal/domain/ledger"
	"p2p-credit-origination/internal/domain/loan"
	"p2p-credit-origination/internal/domain/marketplace"
	domain "p2p-credit-origination/internal/domain/origination"
	"p2p-credit-origination/internal/domain/pool"
	"p2p-credit-origination/internal/domain/pricing"
	"p2p-credit-origination/internal/domain/uow"
	"p2p-credit-origination/internal/testutil/fundingmock"
	"p2p-credit-origination/internal/testutil/loanmock"
	"p2p-credit-origination/internal/testutil/poolmock"
	"p2p-credit-origination/internal/testutil/uowmock"
)

var t0 = time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

type harness struct {
	engine  *Engine
	pools   *memory.PoolRegistry
	mock    *poolmock.Registry
	board   *mkt.Board
	store   *memory.AttemptStore
	ledger  *ledgeradapter.LogLedger
	metrics *countingMetrics
	loans   *loanmock.Repo

	mu       sync.Mutex
	created  map[string]*loan.Loan // by attempt id
	fundings []*funding.Funding
}

type option func(*Config, *Deps)

func withLedger(l ledger.Ledger) option { return func(_ *Config, d *Deps) { d.Ledger = l } }
func withLogger(l *zap.Logger) option   { return func(_ *Config, d *Deps) { d.Logger = l } }

// withRefusedUpdates makes the attempt store reject updates that refuse matches.
func withRefusedUpdates(refuse func(*domain.Attempt) bool) option {
	return func(_ *Config, d *Deps) { d.Store = &refusingStore{Store: d.Store, refuse: refuse} }
}

type refusingStore struct {
	domain.Store
	refuse func(*domain.Attempt) bool
}

var errStoreDown = errors.New("attempt store unavailable")

func (s *refusingStore) Update(ctx context.Context, a *domain.Attempt) error {
	if s.refuse(a) {
		return errStoreDown
	}
	return s.Store.Update(ctx, a)
}

func withTable(t *testing.T, tbl pricing.Table) option {
	calc, err := pricing.NewCalculator(tbl)
	require.NoError(t, err)
	return func(_ *Config, d *Deps) { d.Pricer = calc }
}

func newHarness(t *testing.T, cfg Config, seed []pool.Pool, opts ...option) *harness {
	t.Helper()
	calc, err := pricing.NewCalculator(pricing.DefaultTable())
	require.NoError(t, err)

	h := &harness{
		pools:   memory.NewPoolRegistry(seed...),
		board:   mkt.NewBoard(mkt.NewMemoryClaimer(), time.Hour, nil),
		store:   memory.NewAttemptStore(),
		ledger:  ledgeradapter.NewLogLedger(nil),
		metrics: newCountingMetrics(),
		created: map[string]*loan.Loan{},
	}
	h.mock = &poolmock.Registry{Inner: h.pools}
	h.loans = &loanmock.Repo{
		CreateFn: func(_ context.Context, l *loan.Loan) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, dup := h.created[l.AttemptID]; dup {
				return errors.New("duplicate attempt_id")
			}
			h.created[l.AttemptID] = l
			return nil
		},
		GetByAttemptIDFn: func(_ context.Context, attemptID string) (*loan.Loan, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			if l, ok := h.created[attemptID]; ok {
				return l, nil
			}
			return nil, loan.ErrNotFound
		},
	}
	funds := &fundingmock.Repo{
		CreateFn: func(_ context.Context, f *funding.Funding) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.fundings = append(h.fundings, f)
			return nil
		},
	}

	d := Deps{
		Pricer:  calc,
		Pools:   h.mock,
		Market:  h.board,
		Store:   h.store,
		UoW:     uowmock.Passthrough(uow.Repos{Loans: h.loans, Fundings: funds}),
		Ledger:  h.ledger,
		Logger:  zap.NewNop(),
		Metrics: h.metrics,
	}
	for _, o := range opts {
		o(&cfg, &d)
	}
	h.engine = NewEngine(cfg, d)
	t.Cleanup(h.engine.Close)
	return h
}

func (h *harness) loanFor(attemptID string) *loan.Loan {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.created[attemptID]
}

func (h *harness) fundingCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.fundings)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MarketplaceTimeout = 5 * time.Second
	return cfg
}

func request(mode credit.ApprovalMode, amount int64, n int) credit.Request {
	return credit.Request{
		BorrowerID:       "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		Amount:           decimal.NewFromInt(amount),
		InstallmentCount: n,
		ApprovalMode:     mode,
		BorrowerScore:    750,
		SubmittedAt:      t0,
	}
}

func openPool(id string, capital int64, created time.Time) pool.Pool {
	return pool.Pool{
		PoolID:           id,
		InvestorID:       "inv-" + id,
		CapitalAvailable: decimal.NewFromInt(capital),
		Status:           pool.StatusActive,
		CreatedAt:        created,
	}
}

// waitListed blocks until the attempt sits in the marketplace with a visible listing.
func waitListed(t *testing.T, h *harness, attemptID string) *domain.Attempt {
	t.Helper()
	var a *domain.Attempt
	require.Eventually(t, func() bool {
		cur, err := h.engine.GetStatus(context.Background(), attemptID)
		if err != nil || cur.Stage != domain.StageMarketplaceSearch {
			return false
		}
		open, _ := h.board.Open(context.Background(), marketplace.Lender{ID: "watcher"})
		for _, l := range open {
			if l.ListingID == cur.ListingID {
				a = cur
				return true
			}
		}
		return false
	}, 2*time.Second, 2*time.Millisecond)
	return a
}

type countingMetrics struct {
	mu          sync.Mutex
	transitions int
	decisions   map[domain.Reason]int
	conflicts   int
	relists     int
	ledgerFails int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{decisions: map[domain.Reason]int{}}
}

func (m *countingMetrics) Transition(domain.Stage, domain.Stage) {
	m.mu.Lock()
	m.transitions++
	m.mu.Unlock()
}

func (m *countingMetrics) Decision(_ domain.Stage, r domain.Reason) {
	m.mu.Lock()
	m.decisions[r]++
	m.mu.Unlock()
}

func (m *countingMetrics) AllocationConflict() {
	m.mu.Lock()
	m.conflicts++
	m.mu.Unlock()
}

func (m *countingMetrics) Relisted() {
	m.mu.Lock()
	m.relists++
	m.mu.Unlock()
}

func (m *countingMetrics) LedgerFailure() {
	m.mu.Lock()
	m.ledgerFails++
	m.mu.Unlock()
}

func (m *countingMetrics) snapshot() countingMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return countingMetrics{transitions: m.transitions, conflicts: m.conflicts, relists: m.relists, ledgerFails: m.ledgerFails}
}

type ledgerFunc func(ctx context.Context, loanID, borrowerID string, amount decimal.Decimal) error

func (f ledgerFunc) CreditBorrowerAccount(ctx context.Context, loanID, borrowerID string, amount decimal.Decimal) error {
	return f(ctx, loanID, borrowerID, amount)
}
