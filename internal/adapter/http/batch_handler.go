package http

import (
	"net/http"

	"frendlend-backend/internal/usecase/batch"
	"frendlend-backend/pkg/money"

	"github.com/labstack/echo/v4"
)

type BatchHandler struct{ uc *batch.Usecase }

func NewBatchHandler(uc *batch.Usecase) *BatchHandler { return &BatchHandler{uc: uc} }

type batchReq struct {
	Atomic bool `json:"atomic"`
	Items  []struct {
		Op      string `json:"op"       validate:"required,oneof=pay impair mark_paid accept reject"`
		LoanID  string `json:"loan_id"  validate:"omitempty,hex32"`
		OfferID string `json:"offer_id" validate:"omitempty,hex32"`
		Amount  string `json:"amount"   validate:"omitempty,amount"`
	} `json:"items" validate:"required,min=1,dive"`
}

// Run executes a mixed batch of lifecycle operations. Atomic batches
// roll back entirely on the first failure; best-effort batches record
// per-item errors and keep going.
func (h *BatchHandler) Run(c echo.Context) error {
	var req batchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	items := make([]batch.Item, 0, len(req.Items))
	for _, it := range req.Items {
		item := batch.Item{Op: batch.Op(it.Op), LoanID: it.LoanID, OfferID: it.OfferID}
		if it.Amount != "" {
			a, err := money.Parse(it.Amount)
			if err != nil {
				return writeErr(c, err)
			}
			item.Amount = a
		}
		items = append(items, item)
	}
	results, err := h.uc.Run(c.Request().Context(), actorID(c), items, req.Atomic)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"results": results})
}
