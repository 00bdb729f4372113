package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"p2p-credit-origination/internal/domain/credit"
	"p2p-credit-origination/internal/domain/eligibility"
	"p2p-credit-origination/internal/domain/marketplace"
)

type MarketplaceHandler struct{ market marketplace.Marketplace }

func NewMarketplaceHandler(m marketplace.Marketplace) *MarketplaceHandler {
	return &MarketplaceHandler{market: m}
}

type lenderCriteriaReq struct {
	MinScore              int      `json:"min_score"                 validate:"gte=0"`
	RequiresCollateral    bool     `json:"requires_collateral"`
	AcceptedCollateral    []string `json:"accepted_collateral_types" validate:"dive,collateral"`
	MinAcceptedRate       float64  `json:"min_accepted_rate"         validate:"gte=0,dec2"`
	MaxAcceptedTermMonths int      `json:"max_accepted_term_months"  validate:"gte=0"`
}

func (r lenderCriteriaReq) toCriteria() eligibility.Criteria {
	c := eligibility.Criteria{
		MinScore:              r.MinScore,
		RequiresCollateral:    r.RequiresCollateral,
		MinAcceptedRate:       decimal.NewFromFloat(r.MinAcceptedRate).Round(2),
		MaxAcceptedTermMonths: r.MaxAcceptedTermMonths,
	}
	for _, t := range r.AcceptedCollateral {
		c.AcceptedCollateralTypes = append(c.AcceptedCollateralTypes, credit.CollateralType(t))
	}
	return c
}

type acceptListingReq struct {
	LenderID string            `json:"lender_id" validate:"required,hex32"`
	Criteria lenderCriteriaReq `json:"criteria"`
}

type listingsResp struct {
	Listings []marketplace.Listing `json:"listings"`
}

// ListOpen shows the open listings a lender's criteria accept. Criteria come
// from the query string; accepted_collateral_types is comma separated.
func (h *MarketplaceHandler) ListOpen(c echo.Context) error {
	var req acceptListingReq
	var accepted string
	if err := echo.QueryParamsBinder(c).
		String("lender_id", &req.LenderID).
		Int("min_score", &req.Criteria.MinScore).
		Bool("requires_collateral", &req.Criteria.RequiresCollateral).
		String("accepted_collateral_types", &accepted).
		Float64("min_accepted_rate", &req.Criteria.MinAcceptedRate).
		Int("max_accepted_term_months", &req.Criteria.MaxAcceptedTermMonths).
		BindError(); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	for _, t := range strings.Split(accepted, ",") {
		if t = strings.TrimSpace(t); t != "" {
			req.Criteria.AcceptedCollateral = append(req.Criteria.AcceptedCollateral, t)
		}
	}
	if err := c.Validate(&req.Criteria); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}

	open, err := h.market.Open(c.Request().Context(), marketplace.Lender{ID: req.LenderID, Criteria: req.Criteria.toCriteria()})
	if err != nil {
		return writeError(c, err)
	}
	if open == nil {
		open = []marketplace.Listing{}
	}
	return c.JSON(http.StatusOK, listingsResp{Listings: open})
}

func (h *MarketplaceHandler) Accept(c echo.Context) error {
	var req acceptListingReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	if ok, err := checkActor(c, "lender_id", req.LenderID); !ok {
		return err
	}
	listingID := c.Param("listing_id")
	lender := marketplace.Lender{ID: req.LenderID, Criteria: req.Criteria.toCriteria()}
	if err := h.market.Accept(c.Request().Context(), listingID, lender); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"listing_id": listingID, "lender_id": req.LenderID, "status": "accepted"})
}
