package http

import (
	"errors"
	"net/http"
	"strings"

	"frendlend-backend/internal/domain/fee"
	"frendlend-backend/internal/domain/ledger"
	"frendlend-backend/internal/domain/loan"
	"frendlend-backend/internal/domain/offer"
	"frendlend-backend/internal/interest"
	"frendlend-backend/internal/notify"
	"frendlend-backend/pkg/money"

	"github.com/labstack/echo/v4"
)

// actorID reads the caller identity forwarded by the gateway.
func actorID(c echo.Context) string {
	return strings.TrimSpace(c.Request().Header.Get("X-Actor-Id"))
}

// httpStatus maps domain errors onto HTTP codes. Unknown errors become 500.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, loan.ErrNotFound),
		errors.Is(err, offer.ErrNotFound),
		errors.Is(err, ledger.ErrClaimNotFound):
		return http.StatusNotFound
	case errors.Is(err, loan.ErrNotCreditor),
		errors.Is(err, offer.ErrNotParty),
		errors.Is(err, offer.ErrWrongSide),
		errors.Is(err, ledger.ErrPermitRequired),
		errors.Is(err, fee.ErrNotAdmin):
		return http.StatusForbidden
	case errors.Is(err, offer.ErrNotOffered),
		errors.Is(err, loan.ErrClaimNotPending),
		errors.Is(err, loan.ErrNothingDue),
		errors.Is(err, loan.ErrGraceNotElapsed):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrInsufficientAllowance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, notify.ErrCallbackFailed):
		return http.StatusBadGateway
	case errors.Is(err, loan.ErrZeroPayment),
		errors.Is(err, loan.ErrIncorrectFee),
		errors.Is(err, offer.ErrInvalidTerm),
		errors.Is(err, offer.ErrInvalidToken),
		errors.Is(err, offer.ErrInvalidPrincipal),
		errors.Is(err, offer.ErrMalformedCallback),
		errors.Is(err, notify.ErrMalformedCallback),
		errors.Is(err, interest.ErrInvalidPeriodsPerYear),
		errors.Is(err, fee.ErrInvalidFeeBps),
		errors.Is(err, money.ErrInvalidAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(c echo.Context, err error) error {
	code := httpStatus(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "internal error"
	}
	return c.JSON(code, ErrorResponse{Error: msg})
}
