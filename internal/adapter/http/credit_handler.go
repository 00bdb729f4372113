package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"p2p-credit-origination/internal/domain/credit"
	"p2p-credit-origination/internal/domain/pool"
	"p2p-credit-origination/internal/domain/pricing"
	"p2p-credit-origination/internal/usecase/origination"
)

type CreditHandler struct{ engine *origination.Engine }

func NewCreditHandler(e *origination.Engine) *CreditHandler { return &CreditHandler{engine: e} }

type collateralReq struct {
	Type           string  `json:"type"            validate:"required,collateral"`
	EstimatedValue float64 `json:"estimated_value" validate:"gt=0,dec2"`
	Description    string  `json:"description"     validate:"max=255"`
}

type submitCreditReq struct {
	BorrowerID       string         `json:"borrower_id"       validate:"required,hex32"`
	Amount           float64        `json:"amount"            validate:"required,gt=0,dec2"`
	InstallmentCount int            `json:"installment_count" validate:"required,gt=0"`
	ApprovalMode     string         `json:"approval_mode"     validate:"required,oneof=automatic manual both"`
	BorrowerScore    int            `json:"borrower_score"    validate:"gte=0"`
	Collateral       *collateralReq `json:"collateral"`
}

func (r submitCreditReq) toRequest() credit.Request {
	out := credit.Request{
		BorrowerID:       r.BorrowerID,
		Amount:           decimal.NewFromFloat(r.Amount).Round(2),
		InstallmentCount: r.InstallmentCount,
		ApprovalMode:     credit.ApprovalMode(r.ApprovalMode),
		BorrowerScore:    r.BorrowerScore,
	}
	if r.Collateral != nil {
		out.Collateral = &credit.Collateral{
			Type:           credit.CollateralType(r.Collateral.Type),
			EstimatedValue: decimal.NewFromFloat(r.Collateral.EstimatedValue).Round(2),
			Description:    r.Collateral.Description,
		}
	}
	return out
}

type submitCreditResp struct {
	AttemptID string `json:"attempt_id"`
}

// Submit enqueues the request; the decision is polled via GetStatus.
func (h *CreditHandler) Submit(c echo.Context) error {
	var req submitCreditReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	if ok, err := checkActor(c, "borrower_id", req.BorrowerID); !ok {
		return err
	}
	attemptID, err := h.engine.Submit(c.Request().Context(), req.toRequest())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusAccepted, submitCreditResp{AttemptID: attemptID})
}

func (h *CreditHandler) GetStatus(c echo.Context) error {
	a, err := h.engine.GetStatus(c.Request().Context(), c.Param("attempt_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *CreditHandler) Withdraw(c echo.Context) error {
	a, err := h.engine.Withdraw(c.Request().Context(), c.Param("attempt_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

type quoteReq struct {
	Amount           float64 `json:"amount"            validate:"required,gt=0,dec2"`
	InstallmentCount int     `json:"installment_count" validate:"required,gt=0"`
	CollateralType   string  `json:"collateral_type"   validate:"omitempty,collateral"`
}

func (r quoteReq) toInput() origination.QuoteInput {
	in := origination.QuoteInput{
		Amount:           decimal.NewFromFloat(r.Amount).Round(2),
		InstallmentCount: r.InstallmentCount,
	}
	if r.CollateralType != "" {
		t := credit.CollateralType(r.CollateralType)
		in.Collateral = &t
	}
	return in
}

func (h *CreditHandler) Quote(c echo.Context) error {
	var req quoteReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	res, err := h.engine.Quote(req.toInput())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type compatiblePoolsResp struct {
	Pricing pricing.Result `json:"pricing"`
	Pools   []pool.Pool    `json:"pools"`
}

// CompatiblePools reads amount, installment_count, borrower_score and an
// optional collateral_type from the query string.
func (h *CreditHandler) CompatiblePools(c echo.Context) error {
	var req quoteReq
	var score int
	if err := echo.QueryParamsBinder(c).
		MustFloat64("amount", &req.Amount).
		MustInt("installment_count", &req.InstallmentCount).
		Int("borrower_score", &score).
		String("collateral_type", &req.CollateralType).
		BindError(); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}

	pools, priced, err := h.engine.CompatiblePools(c.Request().Context(), origination.CompatibleInput{
		QuoteInput:    req.toInput(),
		BorrowerScore: score,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, compatiblePoolsResp{Pricing: priced, Pools: pools})
}
