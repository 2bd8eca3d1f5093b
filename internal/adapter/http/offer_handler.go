package http

import (
	"net/http"

	"frendlend-backend/internal/usecase/offer"
	"frendlend-backend/pkg/money"

	"github.com/labstack/echo/v4"
)

type OfferHandler struct{ uc *offer.Usecase }

func NewOfferHandler(uc *offer.Usecase) *OfferHandler { return &OfferHandler{uc: uc} }

type createOfferReq struct {
	Creditor        string `json:"creditor"          validate:"required"`
	Debtor          string `json:"debtor"            validate:"required"`
	Token           string `json:"token"             validate:"required"`
	Principal       string `json:"principal"         validate:"required,amount"`
	TermSeconds     int64  `json:"term_seconds"      validate:"required,gt=0"`
	InterestRateBps uint64 `json:"interest_rate_bps" validate:"bps"`
	PeriodsPerYear  uint64 `json:"periods_per_year"  validate:"lte=365"`
	Description     string `json:"description"`
	MetadataURI     string `json:"metadata_uri"`
	CallbackURL     string `json:"callback_url"      validate:"omitempty,url"`
	CallbackSecret  string `json:"callback_secret"`
}

// CreateOffer registers a loan offer from the calling actor. The offerer
// must be one of the two parties; the caller identity is the offerer.
func (h *OfferHandler) CreateOffer(c echo.Context) error {
	var req createOfferReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	principal, err := money.Parse(req.Principal)
	if err != nil {
		return writeErr(c, err)
	}
	dto, err := h.uc.Offer(c.Request().Context(), offer.CreateOfferInput{
		Offerer:         actorID(c),
		Creditor:        req.Creditor,
		Debtor:          req.Debtor,
		Token:           req.Token,
		Principal:       principal,
		TermSeconds:     req.TermSeconds,
		InterestRateBps: req.InterestRateBps,
		PeriodsPerYear:  req.PeriodsPerYear,
		Description:     req.Description,
		MetadataURI:     req.MetadataURI,
		CallbackURL:     req.CallbackURL,
		CallbackSecret:  req.CallbackSecret,
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *OfferHandler) RejectOffer(c echo.Context) error {
	offerID := c.Param("offer_id")
	if !reHex32.MatchString(offerID) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid offer_id"})
	}
	dto, err := h.uc.Reject(c.Request().Context(), actorID(c), offerID)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *OfferHandler) GetOffer(c echo.Context) error {
	offerID := c.Param("offer_id")
	if !reHex32.MatchString(offerID) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid offer_id"})
	}
	dto, err := h.uc.Get(c.Request().Context(), offerID)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
