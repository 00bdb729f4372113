package http

import (
	"encoding/json"
	stdhttp "net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"p2p-credit-origination/internal/domain/origination"
	"p2p-credit-origination/internal/domain/pool"
	pooluc "p2p-credit-origination/internal/usecase/pool"
)

func decodePool(t *testing.T, body []byte) pool.Pool {
	t.Helper()
	var p pool.Pool
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatalf("bad json: %v; raw=%s", err, body)
	}
	return p
}

func TestPoolHandler_CreateAppliesDefaults(t *testing.T) {
	api := newTestAPI(t)
	investor := strings.Repeat("f", 32)

	rec := api.do(stdhttp.MethodPost, "/pools", map[string]any{
		"investor_id":     investor,
		"name":            "Working capital",
		"initial_capital": 25000,
	})
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body.String())
	}
	created := decodePool(t, rec.Body.Bytes())
	if len(created.PoolID) != 32 || created.Status != pool.StatusActive {
		t.Fatalf("unexpected pool: %+v", created)
	}
	if created.MinScore != 700 || created.MaxAcceptedTermMonths != 24 || !created.CapitalAvailable.Equal(decimal.NewFromInt(25000)) {
		t.Fatalf("defaults not applied: %+v", created)
	}

	rec = api.do(stdhttp.MethodGet, "/pools/"+created.PoolID, nil)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var details pooluc.PoolDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &details); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if details.PoolID != created.PoolID || details.ActiveAllocations != 0 || details.Allocations == nil {
		t.Fatalf("unexpected details: %+v", details)
	}

	rec = api.do(stdhttp.MethodGet, "/pools/investor/"+investor, nil)
	var mine pooluc.InvestorPools
	if err := json.Unmarshal(rec.Body.Bytes(), &mine); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if rec.Code != stdhttp.StatusOK || mine.Count != 1 || !mine.TotalAvailable.Equal(decimal.NewFromInt(25000)) {
		t.Fatalf("investor pools = %+v (status %d)", mine, rec.Code)
	}
}

func TestPoolHandler_CreateInvalid(t *testing.T) {
	api := newTestAPI(t)
	base := func() map[string]any {
		return map[string]any{"investor_id": strings.Repeat("f", 32), "name": "p", "initial_capital": 5000}
	}

	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"capital below minimum", func(b map[string]any) { b["initial_capital"] = 999.99 }},
		{"investor id", func(b map[string]any) { b["investor_id"] = "inv-1" }},
		{"collateral type", func(b map[string]any) { b["accepted_collateral_types"] = []string{"boat"} }},
		{"collateral without types", func(b map[string]any) { b["requires_collateral"] = true }},
		{"score out of range", func(b map[string]any) { b["min_score"] = 1001 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := base()
			tc.mutate(b)
			if rec := api.do(stdhttp.MethodPost, "/pools", b); rec.Code != stdhttp.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422; body=%s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestPoolHandler_ListFiltersByStatus(t *testing.T) {
	api := newTestAPI(t, openPool("pool-a", 10000), openPool("pool-b", 20000))

	if rec := api.do(stdhttp.MethodPut, "/pools/pool-b/status", map[string]any{"status": "paused"}); rec.Code != stdhttp.StatusOK {
		t.Fatalf("pause status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec := api.do(stdhttp.MethodGet, "/pools?status=active", nil)
	var body poolsResp
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if rec.Code != stdhttp.StatusOK || len(body.Pools) != 1 || body.Pools[0].PoolID != "pool-a" {
		t.Fatalf("active pools = %+v (status %d)", body.Pools, rec.Code)
	}

	rec = api.do(stdhttp.MethodGet, "/pools", nil)
	body = poolsResp{}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if len(body.Pools) != 2 {
		t.Fatalf("all pools = %+v", body.Pools)
	}

	if rec := api.do(stdhttp.MethodGet, "/pools?status=funding", nil); rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("unknown status filter = %d, want 422", rec.Code)
	}
}

func TestPoolHandler_UpdateCriteria(t *testing.T) {
	api := newTestAPI(t, openPool("pool-a", 10000))

	rec := api.do(stdhttp.MethodPut, "/pools/pool-a", map[string]any{"min_score": 720, "min_accepted_rate": 14.5})
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("update status = %d body=%s", rec.Code, rec.Body.String())
	}
	got := decodePool(t, rec.Body.Bytes())
	if got.MinScore != 720 || !got.MinAcceptedRate.Equal(decimal.RequireFromString("14.5")) || !got.CapitalAvailable.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("unexpected pool: %+v", got)
	}

	if rec := api.do(stdhttp.MethodPut, "/pools/pool-a", map[string]any{}); rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("empty update = %d, want 422", rec.Code)
	}
	if rec := api.do(stdhttp.MethodPut, "/pools/pool-a", map[string]any{"accepted_collateral_types": []string{"boat"}}); rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("bad collateral = %d, want 422", rec.Code)
	}
	if rec := api.do(stdhttp.MethodPut, "/pools/missing", map[string]any{"min_score": 600}); rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("missing pool = %d, want 404", rec.Code)
	}
}

func TestPoolHandler_IncreaseCapitalAndClose(t *testing.T) {
	api := newTestAPI(t, openPool("pool-a", 10000))

	rec := api.do(stdhttp.MethodPost, "/pools/pool-a/increase-capital", map[string]any{"amount": 2500.50})
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("increase status = %d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodePool(t, rec.Body.Bytes()); !got.CapitalAvailable.Equal(decimal.RequireFromString("12500.50")) {
		t.Fatalf("capital = %s", got.CapitalAvailable)
	}
	if rec := api.do(stdhttp.MethodPost, "/pools/pool-a/increase-capital", map[string]any{"amount": 0}); rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("zero increase = %d, want 422", rec.Code)
	}

	if rec := api.do(stdhttp.MethodPut, "/pools/pool-a/status", map[string]any{"status": "funding"}); rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("unknown status = %d, want 422", rec.Code)
	}
	if rec := api.do(stdhttp.MethodPut, "/pools/pool-a/status", map[string]any{"status": "closed"}); rec.Code != stdhttp.StatusOK {
		t.Fatalf("close = %d", rec.Code)
	}
	if rec := api.do(stdhttp.MethodPost, "/pools/pool-a/increase-capital", map[string]any{"amount": 100}); rec.Code != stdhttp.StatusConflict {
		t.Fatalf("increase closed pool = %d, want 409", rec.Code)
	}
	if rec := api.do(stdhttp.MethodPut, "/pools/pool-a/status", map[string]any{"status": "active"}); rec.Code != stdhttp.StatusConflict {
		t.Fatalf("reopen closed pool = %d, want 409", rec.Code)
	}
}

func TestPoolHandler_PausedPoolTakesNoLoans(t *testing.T) {
	api := newTestAPI(t, openPool("pool-a", 10000))
	if rec := api.do(stdhttp.MethodPut, "/pools/pool-a/status", map[string]any{"status": "paused"}); rec.Code != stdhttp.StatusOK {
		t.Fatalf("pause = %d", rec.Code)
	}

	id := submit(t, api, submitBody("automatic", 5000, 12))
	got := api.waitStage(t, id, origination.StageRejected)
	if got.Reason != origination.ReasonNoPoolMatch {
		t.Fatalf("reason = %s", got.Reason)
	}
}
