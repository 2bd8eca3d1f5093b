package http

import (
	"net/http"

	"frendlend-backend/internal/adapter/middleware"
	"frendlend-backend/internal/usecase/admin"

	"github.com/labstack/echo/v4"
)

type AdminHandler struct{ uc *admin.Usecase }

func NewAdminHandler(uc *admin.Usecase) *AdminHandler { return &AdminHandler{uc: uc} }

type setFeeReq struct {
	FeeBps uint64 `json:"fee_bps" validate:"bps"`
}

// SetProtocolFee updates the fee taken from future loan acceptances.
// Loans already accepted keep their snapshotted rate.
func (h *AdminHandler) SetProtocolFee(c echo.Context) error {
	var req setFeeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	setting, err := h.uc.SetProtocolFee(c.Request().Context(), middleware.AdminSubject(c), req.FeeBps)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"fee_bps":    setting.FeeBps,
		"updated_by": setting.UpdatedBy,
	})
}

func (h *AdminHandler) WithdrawFees(c echo.Context) error {
	withdrawals, err := h.uc.WithdrawAllFees(c.Request().Context(), middleware.AdminSubject(c))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"withdrawals": withdrawals})
}
