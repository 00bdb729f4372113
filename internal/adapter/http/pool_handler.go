package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"p2p-credit-origination/internal/domain/credit"
	domain "p2p-credit-origination/internal/domain/pool"
	"p2p-credit-origination/internal/usecase/pool"
)

// Criteria an investor leaves out of POST /pools.
const (
	defaultPoolMinScore     = 700
	defaultPoolMaxTermMonths = 24
)

type PoolHandler struct{ uc *pool.Usecase }

func NewPoolHandler(uc *pool.Usecase) *PoolHandler { return &PoolHandler{uc: uc} }

type createPoolReq struct {
	InvestorID            string   `json:"investor_id"               validate:"required,hex32"`
	Name                  string   `json:"name"                      validate:"required,max=120"`
	InitialCapital        float64  `json:"initial_capital"           validate:"required,gte=1000,dec2"`
	MinScore              *int     `json:"min_score"                 validate:"omitempty,gte=0,lte=1000"`
	RequiresCollateral    bool     `json:"requires_collateral"`
	AcceptedCollateral    []string `json:"accepted_collateral_types" validate:"dive,collateral"`
	MinAcceptedRate       float64  `json:"min_accepted_rate"         validate:"gte=0,dec2"`
	MaxAcceptedTermMonths *int     `json:"max_accepted_term_months"  validate:"omitempty,gt=0"`
}

func (r createPoolReq) toInput() pool.CreateInput {
	in := pool.CreateInput{
		InvestorID:            r.InvestorID,
		Name:                  r.Name,
		Capital:               decimal.NewFromFloat(r.InitialCapital).Round(2),
		MinScore:              defaultPoolMinScore,
		RequiresCollateral:    r.RequiresCollateral,
		AcceptedCollateral:    toCollateralList(r.AcceptedCollateral),
		MinAcceptedRate:       decimal.NewFromFloat(r.MinAcceptedRate).Round(2),
		MaxAcceptedTermMonths: defaultPoolMaxTermMonths,
	}
	if r.MinScore != nil {
		in.MinScore = *r.MinScore
	}
	if r.MaxAcceptedTermMonths != nil {
		in.MaxAcceptedTermMonths = *r.MaxAcceptedTermMonths
	}
	return in
}

// updatePoolReq is a partial edit; absent fields keep their value.
type updatePoolReq struct {
	Name                  *string   `json:"name"                      validate:"omitempty,min=1,max=120"`
	MinScore              *int      `json:"min_score"                 validate:"omitempty,gte=0,lte=1000"`
	RequiresCollateral    *bool     `json:"requires_collateral"`
	AcceptedCollateral    *[]string `json:"accepted_collateral_types" validate:"omitempty,dive,collateral"`
	MinAcceptedRate       *float64  `json:"min_accepted_rate"         validate:"omitempty,gte=0,dec2"`
	MaxAcceptedTermMonths *int      `json:"max_accepted_term_months"  validate:"omitempty,gt=0"`
}

func (r updatePoolReq) toUpdate() domain.CriteriaUpdate {
	u := domain.CriteriaUpdate{
		Name:                  r.Name,
		MinScore:              r.MinScore,
		RequiresCollateral:    r.RequiresCollateral,
		MaxAcceptedTermMonths: r.MaxAcceptedTermMonths,
	}
	if r.AcceptedCollateral != nil {
		l := toCollateralList(*r.AcceptedCollateral)
		u.AcceptedCollateral = &l
	}
	if r.MinAcceptedRate != nil {
		rate := decimal.NewFromFloat(*r.MinAcceptedRate).Round(2)
		u.MinAcceptedRate = &rate
	}
	return u
}

type poolStatusReq struct {
	Status string `json:"status" validate:"required,oneof=active paused closed"`
}

type increaseCapitalReq struct {
	Amount float64 `json:"amount" validate:"required,gt=0,dec2"`
}

type poolsResp struct {
	Pools []domain.Pool `json:"pools"`
}

func toCollateralList(in []string) domain.CollateralList {
	out := make(domain.CollateralList, 0, len(in))
	for _, t := range in {
		out = append(out, credit.CollateralType(t))
	}
	return out
}

func (h *PoolHandler) Create(c echo.Context) error {
	var req createPoolReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	if ok, err := checkActor(c, "investor_id", req.InvestorID); !ok {
		return err
	}
	p, err := h.uc.Create(c.Request().Context(), req.toInput())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// List takes an optional ?status= filter.
func (h *PoolHandler) List(c echo.Context) error {
	ps, err := h.uc.List(c.Request().Context(), domain.Status(c.QueryParam("status")))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, poolsResp{Pools: ps})
}

func (h *PoolHandler) ListByInvestor(c echo.Context) error {
	out, err := h.uc.ListByInvestor(c.Request().Context(), c.Param("investor_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PoolHandler) Get(c echo.Context) error {
	d, err := h.uc.Get(c.Request().Context(), c.Param("pool_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *PoolHandler) UpdateCriteria(c echo.Context) error {
	var req updatePoolReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	p, err := h.uc.UpdateCriteria(c.Request().Context(), c.Param("pool_id"), req.toUpdate())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PoolHandler) SetStatus(c echo.Context) error {
	var req poolStatusReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	p, err := h.uc.SetStatus(c.Request().Context(), c.Param("pool_id"), domain.Status(req.Status))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PoolHandler) IncreaseCapital(c echo.Context) error {
	var req increaseCapitalReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	p, err := h.uc.IncreaseCapital(c.Request().Context(), c.Param("pool_id"), decimal.NewFromFloat(req.Amount).Round(2))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
