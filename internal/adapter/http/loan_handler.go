package http

import (
	"net/http"

	"frendlend-backend/internal/usecase/loan"
	"frendlend-backend/pkg/money"

	"github.com/labstack/echo/v4"
)

type LoanHandler struct{ uc *loan.Usecase }

func NewLoanHandler(uc *loan.Usecase) *LoanHandler { return &LoanHandler{uc: uc} }

type acceptReq struct {
	Receiver string `json:"receiver"`
	Fee      string `json:"fee"      validate:"omitempty,amount"`
}

// AcceptOffer funds an offer: principal moves from creditor to the
// receiver (the debtor unless redirected) and the loan starts pending.
func (h *LoanHandler) AcceptOffer(c echo.Context) error {
	offerID := c.Param("offer_id")
	if !reHex32.MatchString(offerID) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid offer_id"})
	}
	var req acceptReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	in := loan.AcceptInput{OfferID: offerID, Receiver: req.Receiver}
	if req.Fee != "" {
		f, err := money.Parse(req.Fee)
		if err != nil {
			return writeErr(c, err)
		}
		in.Fee = f
	}
	dto, err := h.uc.Accept(c.Request().Context(), actorID(c), in)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

type batchAcceptReq struct {
	Atomic bool `json:"atomic"`
	Offers []struct {
		OfferID  string `json:"offer_id" validate:"required,hex32"`
		Receiver string `json:"receiver"`
		Fee      string `json:"fee"      validate:"omitempty,amount"`
	} `json:"offers" validate:"required,min=1,dive"`
}

func (h *LoanHandler) BatchAccept(c echo.Context) error {
	var req batchAcceptReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	items := make([]loan.AcceptInput, 0, len(req.Offers))
	for _, o := range req.Offers {
		in := loan.AcceptInput{OfferID: o.OfferID, Receiver: o.Receiver}
		if o.Fee != "" {
			f, err := money.Parse(o.Fee)
			if err != nil {
				return writeErr(c, err)
			}
			in.Fee = f
		}
		items = append(items, in)
	}
	results, err := h.uc.BatchAccept(c.Request().Context(), actorID(c), items, req.Atomic)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"results": results})
}

type payReq struct {
	Amount string `json:"amount" validate:"required,amount"`
}

// Pay settles interest first, then principal; overpayment is never
// debited from the payer.
func (h *LoanHandler) Pay(c echo.Context) error {
	loanID := c.Param("loan_id")
	if !reHex32.MatchString(loanID) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid loan_id"})
	}
	var req payReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		return writeErr(c, err)
	}
	dto, err := h.uc.Pay(c.Request().Context(), actorID(c), loanID, amount)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) Impair(c echo.Context) error {
	loanID := c.Param("loan_id")
	if !reHex32.MatchString(loanID) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid loan_id"})
	}
	dto, err := h.uc.Impair(c.Request().Context(), actorID(c), loanID)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) MarkPaid(c echo.Context) error {
	loanID := c.Param("loan_id")
	if !reHex32.MatchString(loanID) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid loan_id"})
	}
	dto, err := h.uc.MarkPaid(c.Request().Context(), actorID(c), loanID)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	loanID := c.Param("loan_id")
	if !reHex32.MatchString(loanID) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid loan_id"})
	}
	dto, err := h.uc.Get(c.Request().Context(), loanID)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) TotalDue(c echo.Context) error {
	loanID := c.Param("loan_id")
	if !reHex32.MatchString(loanID) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid loan_id"})
	}
	dto, err := h.uc.TotalDue(c.Request().Context(), loanID)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
