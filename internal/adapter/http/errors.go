package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	appmw "p2p-credit-origination/internal/adapter/middleware"
	"p2p-credit-origination/internal/domain/credit"
	"p2p-credit-origination/internal/domain/funding"
	"p2p-credit-origination/internal/domain/loan"
	"p2p-credit-origination/internal/domain/marketplace"
	"p2p-credit-origination/internal/domain/origination"
	"p2p-credit-origination/internal/domain/pool"
	"p2p-credit-origination/internal/domain/pricing"
	engine "p2p-credit-origination/internal/usecase/origination"
)

// writeError maps domain errors → HTTP codes.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, credit.ErrInvalidRequest):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	case errors.Is(err, pricing.ErrInvalidAmount), errors.Is(err, pricing.ErrInvalidInstallments),
		errors.Is(err, pricing.ErrBelowMinAmount), errors.Is(err, pool.ErrInvalidPool):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	case errors.Is(err, origination.ErrNotFound),
		errors.Is(err, loan.ErrNotFound),
		errors.Is(err, funding.ErrNotFound),
		errors.Is(err, pool.ErrNotFound),
		errors.Is(err, marketplace.ErrListingNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
	case errors.Is(err, marketplace.ErrAlreadyClaimed):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "listing already claimed"})
	case errors.Is(err, pool.ErrPoolClosed):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "pool is closed"})
	case errors.Is(err, origination.ErrInvalidStage):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, marketplace.ErrNotEligible):
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: "lender criteria do not accept this listing"})
	case errors.Is(err, engine.ErrEngineClosed):
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "shutting down"})
	}
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// bindAndValidate writes the 400/422 itself and returns ok=false when it did.
func bindAndValidate(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	return true, nil
}

// checkActor refuses a body that names someone other than the Ax-Actor-Id
// the idempotency middleware accepted. It writes the 403 itself.
func checkActor(c echo.Context, field, bodyID string) (bool, error) {
	actor := appmw.ActorID(c)
	if actor == "" || actor == bodyID {
		return true, nil
	}
	return false, c.JSON(http.StatusForbidden, ErrorResponse{Error: "Ax-Actor-Id does not match " + field})
}
