package offer

import (
	"crypto/sha256"
	"errors"
	"time"

	"gorm.io/gorm"

	"frendlend-backend/pkg/money"
)

var (
	ErrNotFound          = errors.New("offer not found")
	ErrNotOffered        = errors.New("offer already resolved")
	ErrNotParty          = errors.New("caller is not a party to the offer")
	ErrWrongSide         = errors.New("offer must be accepted by the counterparty")
	ErrInvalidTerm       = errors.New("term length must be positive")
	ErrInvalidToken      = errors.New("token must be set")
	ErrInvalidPrincipal  = errors.New("principal must be positive")
	ErrMalformedCallback = errors.New("callback url and secret must be set together")
)

type Status string

const (
	StatusOffered  Status = "offered"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Offer holds the negotiated loan parameters between creditor and debtor
// before acceptance mints the debt claim. Either side may be the offerer;
// only the opposite side may accept.
type Offer struct {
	ID      uint64 `gorm:"primaryKey;column:id" json:"-"`
	OfferID string `gorm:"size:32;uniqueIndex:ux_offers_offer_id_active" json:"offer_id"`

	Offerer  string `gorm:"size:32;index:idx_offers_offerer_active" json:"offerer"`
	Nonce    uint64 `gorm:"column:nonce" json:"nonce"`
	Creditor string `gorm:"size:32" json:"creditor"`
	Debtor   string `gorm:"size:32" json:"debtor"`
	Token    string `gorm:"size:64" json:"token"`

	Principal   money.Amount `gorm:"type:decimal(65,0)" json:"principal"`
	TermSeconds int64        `gorm:"column:term_seconds" json:"term_seconds"`

	InterestRateBps uint64 `gorm:"column:interest_rate_bps" json:"interest_rate_bps"`
	PeriodsPerYear  uint64 `gorm:"column:periods_per_year" json:"periods_per_year"`

	Description string `gorm:"type:text" json:"description"`
	MetadataURI string `gorm:"type:text" json:"metadata_uri,omitempty"`

	// Optional post-acceptance webhook, both fields set or neither.
	CallbackURL    string `gorm:"type:text" json:"callback_url,omitempty"`
	CallbackSecret string `gorm:"type:text" json:"-"`

	Status         Status         `gorm:"type:enum('offered','accepted','rejected');default:'offered'" json:"status"`
	StateUpdatedAt time.Time      `gorm:"autoCreateTime" json:"state_updated_at"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Offer) TableName() string { return "loan_offers" }

// TermLength returns the negotiated term as a duration.
func (o *Offer) TermLength() time.Duration { return time.Duration(o.TermSeconds) * time.Second }

// Counterparty is the side that did not make the offer, i.e. the only party
// allowed to accept it.
func (o *Offer) Counterparty() string {
	if o.Offerer == o.Creditor {
		return o.Debtor
	}
	return o.Creditor
}

// IsParty reports whether the actor is the creditor or debtor of the offer.
func (o *Offer) IsParty(actor string) bool {
	return actor == o.Creditor || actor == o.Debtor
}

// ParamsDigest hashes the negotiated terms for deterministic offer-id
// derivation.
func (o *Offer) ParamsDigest() []byte {
	h := sha256.New()
	h.Write([]byte(o.Creditor))
	h.Write([]byte(o.Debtor))
	h.Write([]byte(o.Token))
	h.Write([]byte(o.Principal.String()))
	h.Write([]byte(time.Duration(o.TermSeconds).String()))
	return h.Sum(nil)
}
