package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	offerDomain "frendlend-backend/internal/domain/offer"
)

type OfferRepository struct{ db *gorm.DB }

func NewOfferRepository(db *gorm.DB) *OfferRepository { return &OfferRepository{db: db} }

func (r *OfferRepository) Create(ctx context.Context, o *offerDomain.Offer) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *OfferRepository) Save(ctx context.Context, o *offerDomain.Offer) error {
	return r.db.WithContext(ctx).Save(o).Error
}

func (r *OfferRepository) GetByOfferID(ctx context.Context, offerID string) (*offerDomain.Offer, error) {
	var out offerDomain.Offer
	res := r.db.WithContext(ctx).Where("offer_id = ?", offerID).First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, offerDomain.ErrNotFound
	}
	return &out, res.Error
}

func (r *OfferRepository) GetByOfferIDForUpdate(ctx context.Context, offerID string) (*offerDomain.Offer, error) {
	var out offerDomain.Offer
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("offer_id = ?", offerID).
		First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, offerDomain.ErrNotFound
	}
	return &out, res.Error
}

// NextNonce counts prior offers by this offerer, soft-deleted rows included,
// so the sequence never reuses a value. The count locks the offerer's rows so
// two offers created concurrently cannot read the same value.
func (r *OfferRepository) NextNonce(ctx context.Context, offerer string) (uint64, error) {
	var n int64
	res := r.db.WithContext(ctx).
		Model(&offerDomain.Offer{}).
		Unscoped().
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("offerer = ?", offerer).
		Count(&n)
	if res.Error != nil {
		return 0, res.Error
	}
	return uint64(n), nil
}
