package offer

import "context"

type Repository interface {
	Create(ctx context.Context, o *Offer) error
	GetByOfferID(ctx context.Context, offerID string) (*Offer, error)
	GetByOfferIDForUpdate(ctx context.Context, offerID string) (*Offer, error)
	Save(ctx context.Context, o *Offer) error
	// NextNonce returns the next per-offerer nonce. Nonces start at zero and
	// advance by one per offer made, regardless of the offer's outcome.
	NextNonce(ctx context.Context, offerer string) (uint64, error)
}
