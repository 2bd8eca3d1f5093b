package loanmock

import (
	"context"
	"errors"
	"testing"

	domain "frendlend-backend/internal/domain/loan"
)

func TestRepo_UsesProvidedFns(t *testing.T) {
	ctx := context.Background()
	want := &domain.Loan{LoanID: "a1"}
	wantErr := errors.New("boom")

	m := &Repo{
		GetByLoanIDFn: func(_ context.Context, loanID string) (*domain.Loan, error) {
			if loanID != "a1" {
				t.Fatalf("loanID mismatch: %s", loanID)
			}
			return want, nil
		},
		SaveFn: func(context.Context, *domain.Loan) error { return wantErr },
	}

	got, err := m.GetByLoanID(ctx, "a1")
	if err != nil || got != want {
		t.Fatalf("GetByLoanID: got %v, %v", got, err)
	}
	if err := m.Save(ctx, want); !errors.Is(err, wantErr) {
		t.Fatalf("Save: want %v, got %v", wantErr, err)
	}
}

func TestRepo_Defaults(t *testing.T) {
	ctx := context.Background()
	m := &Repo{}

	if err := m.Create(ctx, &domain.Loan{}); err != nil {
		t.Fatalf("Create default: %v", err)
	}
	if err := m.Save(ctx, &domain.Loan{}); err != nil {
		t.Fatalf("Save default: %v", err)
	}
	if _, err := m.GetByLoanID(ctx, "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByLoanID default: want ErrNotFound, got %v", err)
	}
	if _, err := m.GetByLoanIDForUpdate(ctx, "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByLoanIDForUpdate default: want ErrNotFound, got %v", err)
	}
	if _, err := m.GetByClaimRef(ctx, "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByClaimRef default: want ErrNotFound, got %v", err)
	}
}
