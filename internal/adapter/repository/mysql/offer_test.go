package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	domain "frendlend-backend/internal/domain/offer"
	"frendlend-backend/pkg/id"
	"frendlend-backend/pkg/money"
)

type offerSQLite struct {
	ID      uint64 `gorm:"primaryKey;column:id"`
	OfferID string `gorm:"size:32;column:offer_id"`

	Offerer  string `gorm:"size:32;column:offerer"`
	Nonce    uint64 `gorm:"column:nonce"`
	Creditor string `gorm:"size:32;column:creditor"`
	Debtor   string `gorm:"size:32;column:debtor"`
	Token    string `gorm:"size:64;column:token"`

	Principal   string `gorm:"type:text;column:principal"`
	TermSeconds int64  `gorm:"column:term_seconds"`

	InterestRateBps uint64 `gorm:"column:interest_rate_bps"`
	PeriodsPerYear  uint64 `gorm:"column:periods_per_year"`

	Description    string `gorm:"type:text;column:description"`
	MetadataURI    string `gorm:"type:text;column:metadata_uri"`
	CallbackURL    string `gorm:"type:text;column:callback_url"`
	CallbackSecret string `gorm:"type:text;column:callback_secret"`

	Status         string         `gorm:"type:text;column:status"`
	StateUpdatedAt time.Time      `gorm:"column:state_updated_at"`
	CreatedAt      time.Time      `gorm:"column:created_at"`
	UpdatedAt      time.Time      `gorm:"column:updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"column:deleted_at"`
}

func (offerSQLite) TableName() string { return "loan_offers" }

func openOfferTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&offerSQLite{}); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

func makeOffer(offerer string, nonce uint64) *domain.Offer {
	return &domain.Offer{
		OfferID:         id.NewID32(),
		Offerer:         offerer,
		Nonce:           nonce,
		Creditor:        offerer,
		Debtor:          "debtor-1",
		Token:           "WETH",
		Principal:       money.FromInt64(1_000_000),
		TermSeconds:     30 * 24 * 3600,
		InterestRateBps: 1000,
		PeriodsPerYear:  12,
		Status:          domain.StatusOffered,
		StateUpdatedAt:  time.Now().UTC(),
	}
}

func TestOfferCreateAndGet(t *testing.T) {
	repo := NewOfferRepository(openOfferTestDB(t))
	ctx := context.Background()

	o := makeOffer("creditor-1", 0)
	if err := repo.Create(ctx, o); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByOfferID(ctx, o.OfferID)
	if err != nil {
		t.Fatalf("GetByOfferID: %v", err)
	}
	if got.Offerer != "creditor-1" || got.Status != domain.StatusOffered {
		t.Errorf("unexpected offer: %+v", got)
	}
	if got.Principal.String() != "1000000" {
		t.Errorf("principal round trip: %s", got.Principal.String())
	}

	if _, err := repo.GetByOfferID(ctx, "eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOfferSaveResolves(t *testing.T) {
	repo := NewOfferRepository(openOfferTestDB(t))
	ctx := context.Background()

	o := makeOffer("creditor-1", 0)
	if err := repo.Create(ctx, o); err != nil {
		t.Fatalf("Create: %v", err)
	}

	o.Status = domain.StatusRejected
	if err := repo.Save(ctx, o); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.GetByOfferID(ctx, o.OfferID)
	if err != nil {
		t.Fatalf("GetByOfferID: %v", err)
	}
	if got.Status != domain.StatusRejected {
		t.Errorf("status not updated: %s", got.Status)
	}
}

func TestOfferNextNonce(t *testing.T) {
	db := openOfferTestDB(t)
	repo := NewOfferRepository(db)
	ctx := context.Background()

	n, err := repo.NextNonce(ctx, "creditor-1")
	if err != nil {
		t.Fatalf("NextNonce: %v", err)
	}
	if n != 0 {
		t.Fatalf("fresh offerer nonce = %d, want 0", n)
	}

	for i := uint64(0); i < 3; i++ {
		if err := repo.Create(ctx, makeOffer("creditor-1", i)); err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
	}
	if err := repo.Create(ctx, makeOffer("creditor-2", 0)); err != nil {
		t.Fatalf("Create other offerer: %v", err)
	}

	n, err = repo.NextNonce(ctx, "creditor-1")
	if err != nil {
		t.Fatalf("NextNonce: %v", err)
	}
	if n != 3 {
		t.Fatalf("nonce = %d, want 3", n)
	}

	// a soft-deleted offer still consumes its nonce
	victim := makeOffer("creditor-1", 3)
	if err := repo.Create(ctx, victim); err != nil {
		t.Fatalf("Create victim: %v", err)
	}
	if err := db.Delete(&offerSQLite{}, victim.ID).Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	n, err = repo.NextNonce(ctx, "creditor-1")
	if err != nil {
		t.Fatalf("NextNonce: %v", err)
	}
	if n != 4 {
		t.Fatalf("nonce after soft delete = %d, want 4", n)
	}
}

// The count must lock the offerer's rows so two concurrent creates cannot
// read the same nonce. SQLite ignores locking clauses, so assert the emitted
// MySQL statement instead.
func TestOfferNextNonceLocksOffererRows(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer sqlDB.Close()

	dial := mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	})
	db, err := gorm.Open(dial, &gorm.Config{})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `loan_offers` WHERE offerer = \\? FOR UPDATE").
		WithArgs("creditor-1").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(3))

	n, err := NewOfferRepository(db).NextNonce(context.Background(), "creditor-1")
	if err != nil {
		t.Fatalf("NextNonce: %v", err)
	}
	if n != 3 {
		t.Fatalf("nonce = %d, want 3", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
