package offer

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	domainOffer "frendlend-backend/internal/domain/offer"
	"frendlend-backend/internal/domain/uow"
	"frendlend-backend/internal/interest"
	"frendlend-backend/internal/notify"
	"frendlend-backend/pkg/id"
)

type Usecase struct {
	uow uow.UnitOfWork
	log *logrus.Logger
	now func() time.Time
}

func NewUsecase(tx uow.UnitOfWork, log *logrus.Logger) *Usecase {
	return &Usecase{uow: tx, log: log, now: time.Now}
}

// WithClock overrides the time source. Test hook.
func (u *Usecase) WithClock(now func() time.Time) *Usecase {
	u.now = now
	return u
}

// Offer stores a negotiated loan proposal. The offer id is derived from the
// offerer, their next nonce, and a digest of the terms, so the identifier is
// stable under resubmission.
func (u *Usecase) Offer(ctx context.Context, in CreateOfferInput) (*OfferDTO, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	o := &domainOffer.Offer{
		Offerer:         in.Offerer,
		Creditor:        in.Creditor,
		Debtor:          in.Debtor,
		Token:           in.Token,
		Principal:       in.Principal,
		TermSeconds:     in.TermSeconds,
		InterestRateBps: in.InterestRateBps,
		PeriodsPerYear:  in.PeriodsPerYear,
		Description:     in.Description,
		MetadataURI:     in.MetadataURI,
		CallbackURL:     in.CallbackURL,
		CallbackSecret:  in.CallbackSecret,
		Status:          domainOffer.StatusOffered,
		StateUpdatedAt:  u.now().UTC(),
	}

	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		nonce, err := r.Offers.NextNonce(ctx, in.Offerer)
		if err != nil {
			return err
		}
		o.Nonce = nonce
		o.OfferID = id.DeriveOfferID(in.Offerer, nonce, o.ParamsDigest())
		return r.Offers.Create(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	u.log.WithFields(logrus.Fields{
		"offer_id": o.OfferID,
		"offerer":  o.Offerer,
		"nonce":    o.Nonce,
	}).Info("loan offer created")
	return toDTO(o), nil
}

// Reject resolves an open offer. Either party may reject; a resolved offer
// stays resolved.
func (u *Usecase) Reject(ctx context.Context, actor, offerID string) (*OfferDTO, error) {
	var dto *OfferDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		o, err := u.RejectInTx(ctx, r, actor, offerID)
		if err != nil {
			return err
		}
		dto = toDTO(o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.WithFields(logrus.Fields{"offer_id": offerID, "actor": actor}).Info("loan offer rejected")
	return dto, nil
}

// RejectInTx is the transactional core of Reject; batch execution reuses it
// under a caller-owned transaction.
func (u *Usecase) RejectInTx(ctx context.Context, r uow.Repos, actor, offerID string) (*domainOffer.Offer, error) {
	o, err := r.Offers.GetByOfferIDForUpdate(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if !o.IsParty(actor) {
		return nil, domainOffer.ErrNotParty
	}
	if o.Status != domainOffer.StatusOffered {
		return nil, domainOffer.ErrNotOffered
	}
	o.Status = domainOffer.StatusRejected
	o.StateUpdatedAt = u.now().UTC()
	if err := r.Offers.Save(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (u *Usecase) Get(ctx context.Context, offerID string) (*OfferDTO, error) {
	var dto *OfferDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		o, err := r.Offers.GetByOfferID(ctx, offerID)
		if err != nil {
			return err
		}
		dto = toDTO(o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func validateInput(in CreateOfferInput) error {
	if err := interest.ValidateConfig(interest.Config{RateBps: in.InterestRateBps, PeriodsPerYear: in.PeriodsPerYear}); err != nil {
		return err
	}
	if in.TermSeconds <= 0 {
		return domainOffer.ErrInvalidTerm
	}
	if in.Token == "" {
		return domainOffer.ErrInvalidToken
	}
	if in.Principal.Sign() <= 0 {
		return domainOffer.ErrInvalidPrincipal
	}
	if in.Offerer != in.Creditor && in.Offerer != in.Debtor {
		return domainOffer.ErrNotParty
	}
	if in.Creditor == in.Debtor || in.Creditor == "" || in.Debtor == "" {
		return domainOffer.ErrNotParty
	}
	// callback config is all-or-nothing
	if (in.CallbackURL == "") != (in.CallbackSecret == "") {
		return domainOffer.ErrMalformedCallback
	}
	if in.CallbackURL != "" {
		if err := notify.ValidateURL(in.CallbackURL); err != nil {
			return domainOffer.ErrMalformedCallback
		}
	}
	return nil
}

func toDTO(o *domainOffer.Offer) *OfferDTO {
	return &OfferDTO{
		OfferID:         o.OfferID,
		Offerer:         o.Offerer,
		Nonce:           o.Nonce,
		Creditor:        o.Creditor,
		Debtor:          o.Debtor,
		Token:           o.Token,
		Principal:       o.Principal,
		TermSeconds:     o.TermSeconds,
		InterestRateBps: o.InterestRateBps,
		PeriodsPerYear:  o.PeriodsPerYear,
		Description:     o.Description,
		MetadataURI:     o.MetadataURI,
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt,
	}
}
