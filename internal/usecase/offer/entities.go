package offer

import (
	"time"

	"frendlend-backend/pkg/money"
)

type CreateOfferInput struct {
	Offerer         string       `json:"offerer"`
	Creditor        string       `json:"creditor"`
	Debtor          string       `json:"debtor"`
	Token           string       `json:"token"`
	Principal       money.Amount `json:"principal"`
	TermSeconds     int64        `json:"term_seconds"`
	InterestRateBps uint64       `json:"interest_rate_bps"`
	PeriodsPerYear  uint64       `json:"periods_per_year"`
	Description     string       `json:"description"`
	MetadataURI     string       `json:"metadata_uri"`
	CallbackURL     string       `json:"callback_url"`
	CallbackSecret  string       `json:"callback_secret"`
}

type OfferDTO struct {
	OfferID         string       `json:"offer_id"`
	Offerer         string       `json:"offerer"`
	Nonce           uint64       `json:"nonce"`
	Creditor        string       `json:"creditor"`
	Debtor          string       `json:"debtor"`
	Token           string       `json:"token"`
	Principal       money.Amount `json:"principal"`
	TermSeconds     int64        `json:"term_seconds"`
	InterestRateBps uint64       `json:"interest_rate_bps"`
	PeriodsPerYear  uint64       `json:"periods_per_year"`
	Description     string       `json:"description,omitempty"`
	MetadataURI     string       `json:"metadata_uri,omitempty"`
	Status          string       `json:"status"`
	CreatedAt       time.Time    `json:"created_at"`
}
