package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"p2p-credit-origination/internal/usecase/funding"
)

type FundingHandler struct{ uc *funding.Usecase }

func NewFundingHandler(uc *funding.Usecase) *FundingHandler { return &FundingHandler{uc: uc} }

func (h *FundingHandler) GetFunding(c echo.Context) error {
	dto, err := h.uc.Get(c.Request().Context(), c.Param("funding_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// Portfolio lists what a pool or lender has funded so far.
func (h *FundingHandler) Portfolio(c echo.Context) error {
	dto, err := h.uc.Portfolio(c.Request().Context(), c.Param("funder_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
