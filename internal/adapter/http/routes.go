package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Credit   *CreditHandler
	Market   *MarketplaceHandler
	Pools    *PoolHandler
	Loans    *LoanHandler
	Fundings *FundingHandler
}

type route struct {
	method  string
	path    string
	handler echo.HandlerFunc
	// mutating routes get the middleware passed to Register
	mutating bool
}

func health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (h Handlers) routes() []route {
	return []route{
		{method: http.MethodGet, path: "/health", handler: health},

		{method: http.MethodPost, path: "/credit-requests", handler: h.Credit.Submit, mutating: true},
		{method: http.MethodGet, path: "/credit-requests/:attempt_id", handler: h.Credit.GetStatus},
		{method: http.MethodPost, path: "/credit-requests/:attempt_id/withdraw", handler: h.Credit.Withdraw, mutating: true},
		{method: http.MethodPost, path: "/quotes", handler: h.Credit.Quote},

		{method: http.MethodGet, path: "/marketplace/listings", handler: h.Market.ListOpen},
		{method: http.MethodPost, path: "/marketplace/listings/:listing_id/accept", handler: h.Market.Accept, mutating: true},

		// static segments win over :pool_id in echo's router
		{method: http.MethodGet, path: "/pools/compatible", handler: h.Credit.CompatiblePools},
		{method: http.MethodGet, path: "/pools/investor/:investor_id", handler: h.Pools.ListByInvestor},
		{method: http.MethodPost, path: "/pools", handler: h.Pools.Create, mutating: true},
		{method: http.MethodGet, path: "/pools", handler: h.Pools.List},
		{method: http.MethodGet, path: "/pools/:pool_id", handler: h.Pools.Get},
		{method: http.MethodPut, path: "/pools/:pool_id", handler: h.Pools.UpdateCriteria, mutating: true},
		{method: http.MethodPut, path: "/pools/:pool_id/status", handler: h.Pools.SetStatus, mutating: true},
		{method: http.MethodPost, path: "/pools/:pool_id/increase-capital", handler: h.Pools.IncreaseCapital, mutating: true},

		{method: http.MethodGet, path: "/loans/:loan_id", handler: h.Loans.GetLoan},
		{method: http.MethodGet, path: "/borrowers/:borrower_id/loans", handler: h.Loans.ListBorrowerLoans},

		{method: http.MethodGet, path: "/fundings/:funding_id", handler: h.Fundings.GetFunding},
		{method: http.MethodGet, path: "/funders/:funder_id/fundings", handler: h.Fundings.Portfolio},
	}
}

// Register mounts the API. mutating wraps the routes that change state;
// cmd/api passes the idempotency middleware.
func Register(e *echo.Echo, h Handlers, metrics http.Handler, mutating ...echo.MiddlewareFunc) {
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
	for _, r := range h.routes() {
		var mw []echo.MiddlewareFunc
		if r.mutating {
			mw = mutating
		}
		e.Add(r.method, r.path, r.handler, mw...)
	}
}
