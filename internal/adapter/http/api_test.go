package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	mkt "p2p-credit-origination/internal/adapter/marketplace"
	"p2p-credit-origination/internal/adapter/repository/memory"
	"p2p-credit-origination/internal/domain/loan"
	"p2p-credit-origination/internal/domain/origination"
	"p2p-credit-origination/internal/domain/pool"
	"p2p-credit-origination/internal/domain/pricing"
	"p2p-credit-origination/internal/domain/uow"
	"p2p-credit-origination/internal/testutil/fundingmock"
	"p2p-credit-origination/internal/testutil/loanmock"
	"p2p-credit-origination/internal/testutil/uowmock"
	fundinguc "p2p-credit-origination/internal/usecase/funding"
	loanuc "p2p-credit-origination/internal/usecase/loan"
	pooluc "p2p-credit-origination/internal/usecase/pool"
	engine "p2p-credit-origination/internal/usecase/origination"
)

// testAPI is the full router over in-memory adapters.
type testAPI struct {
	e      *echo.Echo
	engine *engine.Engine
	board  *mkt.Board
}

func newTestAPI(t *testing.T, seed ...pool.Pool) *testAPI {
	t.Helper()
	calc, err := pricing.NewCalculator(pricing.DefaultTable())
	if err != nil {
		t.Fatalf("calculator: %v", err)
	}

	var mu sync.Mutex
	loans := map[string]*loan.Loan{}
	loanRepo := &loanmock.Repo{
		CreateFn: func(ctx context.Context, l *loan.Loan) error {
			mu.Lock()
			defer mu.Unlock()
			loans[l.AttemptID] = l
			return nil
		},
		GetByAttemptIDFn: func(ctx context.Context, id string) (*loan.Loan, error) {
			mu.Lock()
			defer mu.Unlock()
			if l, ok := loans[id]; ok {
				return l, nil
			}
			return nil, loan.ErrNotFound
		},
	}
	fundRepo := &fundingmock.Repo{}

	pools := memory.NewPoolRegistry(seed...)
	board := mkt.NewBoard(mkt.NewMemoryClaimer(), time.Hour, nil)
	cfg := engine.DefaultConfig()
	cfg.MarketplaceTimeout = 5 * time.Second
	eng := engine.NewEngine(cfg, engine.Deps{
		Pricer: calc,
		Pools:  pools,
		Market: board,
		Store:  memory.NewAttemptStore(),
		UoW:    uowmock.Passthrough(uow.Repos{Loans: loanRepo, Fundings: fundRepo}),
	})
	t.Cleanup(eng.Close)

	e := newEchoWithValidator()
	Register(e, Handlers{
		Credit:   NewCreditHandler(eng),
		Market:   NewMarketplaceHandler(board),
		Pools:    NewPoolHandler(pooluc.NewUsecase(pools)),
		Loans:    NewLoanHandler(loanuc.NewUsecase(loanRepo, fundRepo)),
		Fundings: NewFundingHandler(fundinguc.NewUsecase(fundRepo)),
	}, nil)
	return &testAPI{e: e, engine: eng, board: board}
}

func (a *testAPI) do(method, path string, body any) *httptest.ResponseRecorder {
	var req *stdhttp.Request
	if body != nil {
		req = httptest.NewRequest(method, path, mustJSON(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) status(t *testing.T, attemptID string) origination.Attempt {
	t.Helper()
	rec := a.do(stdhttp.MethodGet, "/credit-requests/"+attemptID, nil)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status code = %d body=%s", rec.Code, rec.Body.String())
	}
	var got origination.Attempt
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	return got
}

func (a *testAPI) waitStage(t *testing.T, attemptID string, want origination.Stage) origination.Attempt {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		got := a.status(t, attemptID)
		if got.Stage == want {
			return got
		}
		if time.Now().After(deadline) {
			t.Fatalf("stage = %s, want %s", got.Stage, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// waitListed waits until the attempt's listing is visible to lenders.
func (a *testAPI) waitListed(t *testing.T, attemptID string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got := a.status(t, attemptID)
		if got.Stage == origination.StageMarketplaceSearch {
			rec := a.do(stdhttp.MethodGet, "/marketplace/listings", nil)
			var body listingsResp
			_ = json.Unmarshal(rec.Body.Bytes(), &body)
			for _, l := range body.Listings {
				if l.ListingID == got.ListingID {
					return l.ListingID
				}
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("attempt %s never listed", attemptID)
	return ""
}

func submitBody(mode string, amount float64, n int) map[string]any {
	return map[string]any{
		"borrower_id":       strings.Repeat("b", 32),
		"amount":            amount,
		"installment_count": n,
		"approval_mode":     mode,
		"borrower_score":    750,
	}
}

func submit(t *testing.T, a *testAPI, body map[string]any) string {
	t.Helper()
	rec := a.do(stdhttp.MethodPost, "/credit-requests", body)
	if rec.Code != stdhttp.StatusAccepted {
		t.Fatalf("submit status = %d body=%s", rec.Code, rec.Body.String())
	}
	var resp submitCreditResp
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.AttemptID == "" {
		t.Fatalf("bad submit response: %s", rec.Body.String())
	}
	return resp.AttemptID
}

func openPool(id string, capital int64) pool.Pool {
	return pool.Pool{PoolID: id, InvestorID: "inv-" + id, CapitalAvailable: decimal.NewFromInt(capital)}
}
