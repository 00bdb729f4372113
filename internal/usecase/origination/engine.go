package origination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"p2p-credit-origination/internal/domain/credit"
	"p2p-credit-origination/internal/domain/ledger"
	"p2p-credit-origination/internal/domain/loan"
	"p2p-credit-origination/internal/domain/marketplace"
	domain "p2p-credit-origination/internal/domain/origination"
	"p2p-credit-origination/internal/domain/pool"
	"p2p-credit-origination/internal/domain/pricing"
	"p2p-credit-origination/internal/domain/uow"
	"p2p-credit-origination/pkg/id"
)

var ErrEngineClosed = errors.New("origination engine closed")

type Config struct {
	// Rules left empty are taken from the pricer's rate card.
	Rules              credit.Rules
	MarketplaceTimeout time.Duration
	// Relist publishes a fresh listing when one expires. MaxRelists 0 means
	// keep relisting until withdrawn or the engine closes.
	Relist     bool
	MaxRelists int
	// MaxMatchRounds bounds how many registry snapshots one pool search takes.
	MaxMatchRounds int
}

func DefaultConfig() Config {
	return Config{
		MarketplaceTimeout: 72 * time.Hour,
		MaxMatchRounds:     3,
	}
}

type Deps struct {
	Pricer  *pricing.Calculator
	Pools   pool.Registry
	Market  marketplace.Marketplace
	Store   domain.Store
	UoW     uow.UnitOfWork
	Ledger  ledger.Ledger
	Logger  *zap.Logger
	Metrics Metrics
	Now     func() time.Time
	NewID   func() string
}

// Engine drives each attempt through the origination stages in its own goroutine.
type Engine struct {
	cfg     Config
	pricer  *pricing.Calculator
	pools   pool.Registry
	market  marketplace.Marketplace
	store   domain.Store
	uow     uow.UnitOfWork
	ledger  ledger.Ledger
	log     *zap.Logger
	metrics Metrics
	now     func() time.Time
	newID   func() string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	running map[string]chan struct{}
}

func NewEngine(cfg Config, d Deps) *Engine {
	if cfg.MaxMatchRounds <= 0 {
		cfg.MaxMatchRounds = 1
	}
	if len(cfg.Rules.AllowedInstallments) == 0 && d.Pricer != nil {
		cfg.Rules = d.Pricer.Rules()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = NopMetrics{}
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.NewID == nil {
		d.NewID = id.NewID32
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		cfg:     cfg,
		pricer:  d.Pricer,
		pools:   d.Pools,
		market:  d.Market,
		store:   d.Store,
		uow:     d.UoW,
		ledger:  d.Ledger,
		log:     d.Logger,
		metrics: d.Metrics,
		now:     d.Now,
		newID:   d.NewID,
		ctx:     ctx,
		cancel:  cancel,
		running: map[string]chan struct{}{},
	}
}

// Submit validates and prices req, stores a new attempt and starts it. Only
// invalid requests are reported as errors; everything after enqueueing shows
// up as stage changes.
func (e *Engine) Submit(ctx context.Context, req credit.Request) (string, error) {
	a, err := e.admit(ctx, req)
	if err != nil {
		return "", err
	}
	if _, ok := e.start(a.ID); !ok {
		e.abandon(ctx, a)
		return "", ErrEngineClosed
	}
	return a.ID, nil
}

// Originate is Submit followed by waiting for the terminal decision.
func (e *Engine) Originate(ctx context.Context, req credit.Request) (*domain.Attempt, error) {
	a, err := e.admit(ctx, req)
	if err != nil {
		return nil, err
	}
	done, err := e.drive(ctx, a.ID)
	if errors.Is(err, ErrEngineClosed) {
		e.abandon(ctx, a)
	}
	return done, err
}

// Resume re-drives an attempt from its stored stage and waits for it to finish.
func (e *Engine) Resume(ctx context.Context, attemptID string) (*domain.Attempt, error) {
	a, err := e.store.Get(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if a.Stage.Terminal() {
		return a, nil
	}
	return e.drive(ctx, attemptID)
}

// ResumeActive restarts every stored attempt that has not finished.
func (e *Engine) ResumeActive(ctx context.Context) (int, error) {
	active, err := e.store.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, a := range active {
		if _, ok := e.start(a.ID); ok {
			n++
		}
	}
	return n, nil
}

func (e *Engine) GetStatus(ctx context.Context, attemptID string) (*domain.Attempt, error) {
	return e.store.Get(ctx, attemptID)
}

// Withdraw cancels an attempt that is waiting in the marketplace. A lender
// acceptance that got there first wins and Withdraw returns ErrAlreadyClaimed.
func (e *Engine) Withdraw(ctx context.Context, attemptID string) (*domain.Attempt, error) {
	a, err := e.store.Get(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if a.Stage != domain.StageMarketplaceSearch || a.ListingID == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidStage, a.Stage)
	}
	if err := e.market.Withdraw(ctx, a.ListingID); err != nil {
		if errors.Is(err, marketplace.ErrListingNotFound) {
			return nil, fmt.Errorf("%w: listing not published yet", domain.ErrInvalidStage)
		}
		return nil, err
	}
	return e.drive(ctx, attemptID)
}

// Close stops accepting work, cancels running attempts and waits for them to
// record their terminal stage.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.cancel()
	e.wg.Wait()
}

func (e *Engine) admit(ctx context.Context, req credit.Request) (*domain.Attempt, error) {
	if e.isClosed() {
		return nil, ErrEngineClosed
	}
	if err := req.Validate(e.cfg.Rules); err != nil {
		return nil, err
	}
	priced, err := e.pricer.Price(req.Amount, req.InstallmentCount, pricing.RiskAdjustments{Collateral: req.CollateralType()})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", credit.ErrInvalidRequest, err)
	}

	now := e.now()
	if req.ID == "" {
		req.ID = e.newID()
	}
	if req.SubmittedAt.IsZero() {
		req.SubmittedAt = now
	}
	a := domain.NewAttempt(e.newID(), req, priced, now)
	if err := e.store.Create(ctx, a); err != nil {
		return nil, err
	}
	e.log.Info("credit request admitted",
		zap.String("attempt_id", a.ID),
		zap.String("borrower_id", req.BorrowerID),
		zap.String("amount", req.Amount.StringFixed(2)),
		zap.Int("installments", req.InstallmentCount),
		zap.String("mode", string(req.ApprovalMode)),
		zap.String("annual_rate", priced.AnnualRate.String()),
	)
	return a, nil
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// abandon rejects an attempt that was stored while the engine was closing.
func (e *Engine) abandon(ctx context.Context, a *domain.Attempt) {
	if err := e.advance(context.WithoutCancel(ctx), a, domain.StageRejected, domain.ReasonCancelled, ErrEngineClosed); err != nil {
		e.log.Error("reject abandoned attempt", zap.String("attempt_id", a.ID), zap.Error(err))
	}
}

// drive makes sure attemptID is running and waits for it to stop.
func (e *Engine) drive(ctx context.Context, attemptID string) (*domain.Attempt, error) {
	done, ok := e.start(attemptID)
	if !ok {
		return nil, ErrEngineClosed
	}
	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return e.store.Get(ctx, attemptID)
}

func (e *Engine) start(attemptID string) (<-chan struct{}, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, false
	}
	if done, ok := e.running[attemptID]; ok {
		return done, true
	}
	done := make(chan struct{})
	e.running[attemptID] = done
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			e.mu.Lock()
			delete(e.running, attemptID)
			e.mu.Unlock()
			close(done)
		}()
		e.run(e.ctx, attemptID)
	}()
	return done, true
}

func (e *Engine) run(ctx context.Context, attemptID string) {
	a, err := e.store.Get(ctx, attemptID)
	if err != nil {
		e.log.Error("load attempt", zap.String("attempt_id", attemptID), zap.Error(err))
		return
	}
	for !a.Stage.Terminal() {
		// the marketplace stage settles cancellation against acceptance itself
		if err := ctx.Err(); err != nil && a.Stage != domain.StageMarketplaceSearch {
			e.fail(ctx, a, err)
			return
		}
		if err := e.step(ctx, a); err != nil {
			e.fail(ctx, a, err)
			return
		}
	}
}

// step runs the action of the current stage. Panics become faults.
func (e *Engine) step(ctx context.Context, a *domain.Attempt) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic in %s: %v", domain.ErrEngineFault, a.Stage, r)
		}
	}()

	switch a.Stage {
	case domain.StageAnalyzing:
		if a.Request.ApprovalMode.UsesPools() {
			return e.advance(ctx, a, domain.StagePoolSearch, "", nil)
		}
		return e.enterMarketplace(ctx, a)
	case domain.StagePoolSearch:
		return e.searchPools(ctx, a)
	case domain.StagePoolMatched:
		return e.approve(ctx, a, Winner{Source: loan.SourcePool, FunderID: a.MatchedPoolID, AllocationID: a.AllocationID})
	case domain.StagePoolNoMatch:
		if a.Request.ApprovalMode == credit.ApprovalBoth {
			return e.enterMarketplace(ctx, a)
		}
		return e.advance(ctx, a, domain.StageRejected, domain.ReasonNoPoolMatch, nil)
	case domain.StageMarketplaceSearch:
		return e.searchMarketplace(ctx, a)
	}
	return fmt.Errorf("%w: unknown stage %q", domain.ErrEngineFault, a.Stage)
}

// advance records the transition in the store first; a stays untouched when
// the store refuses it.
func (e *Engine) advance(ctx context.Context, a *domain.Attempt, to domain.Stage, reason domain.Reason, cause error) error {
	from := a.Stage
	next := a.Snapshot()
	if err := next.Transition(to, e.now(), reason, cause); err != nil {
		return err
	}
	if err := e.store.Update(ctx, next); err != nil {
		return err
	}
	*a = *next
	e.metrics.Transition(from, to)
	e.log.Debug("stage transition",
		zap.String("attempt_id", a.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	if to.Terminal() {
		e.metrics.Decision(to, reason)
		e.log.Info("origination decided",
			zap.String("attempt_id", a.ID),
			zap.String("stage", string(to)),
			zap.String("reason", string(reason)),
			zap.String("loan_id", a.LoanID),
		)
	}
	return nil
}

// fail forces a non-terminal attempt to REJECTED and undoes an unconsumed
// pool allocation.
func (e *Engine) fail(ctx context.Context, a *domain.Attempt, cause error) {
	ctx = context.WithoutCancel(ctx)
	reason := domain.ReasonInternalError
	if errors.Is(cause, context.Canceled) {
		reason = domain.ReasonCancelled
	}
	if a.Stage.Terminal() {
		e.log.Error("fault after terminal decision",
			zap.String("attempt_id", a.ID),
			zap.Error(cause),
			zap.Any("history", a.History),
		)
		return
	}

	if a.LoanID != "" {
		// the loan is committed, only the APPROVED record is missing
		if err := e.advance(ctx, a, domain.StageApproved, "", nil); err != nil {
			e.log.Error("record approval",
				zap.String("attempt_id", a.ID),
				zap.String("loan_id", a.LoanID),
				zap.NamedError("cause", cause),
				zap.Error(err),
			)
			return
		}
		e.creditBorrower(ctx, a)
		return
	}

	if a.AllocationID != "" {
		if err := e.pools.ReleaseAllocation(ctx, a.ID); err != nil && !errors.Is(err, pool.ErrAllocationNotFound) {
			e.log.Error("release allocation", zap.String("attempt_id", a.ID), zap.Error(err))
		}
	}
	if a.Stage == domain.StageMarketplaceSearch && a.ListingID != "" {
		_ = e.market.Withdraw(ctx, a.ListingID)
	}

	if err := e.advance(ctx, a, domain.StageRejected, reason, cause); err != nil {
		e.log.Error("record rejection", zap.String("attempt_id", a.ID), zap.Error(err))
	}
	if reason == domain.ReasonInternalError {
		e.log.Error("origination fault",
			zap.String("attempt_id", a.ID),
			zap.Error(cause),
			zap.Any("history", a.History),
		)
	}
}
