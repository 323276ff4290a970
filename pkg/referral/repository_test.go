package referral

import (
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"
)

func TestTranslateCreateErrorMapsDuplicateKey(t *testing.T) {
	if err := translateCreateError(gorm.ErrDuplicatedKey); !errors.Is(err, ErrActiveReferralExists) {
		t.Fatalf("expected active-referral conflict for duplicate key, got %v", err)
	}

	wrapped := fmt.Errorf("insert failed: %w", gorm.ErrDuplicatedKey)
	if err := translateCreateError(wrapped); !errors.Is(err, ErrActiveReferralExists) {
		t.Fatalf("expected wrapped duplicate key to map, got %v", err)
	}
}

func TestTranslateCreateErrorPassesThroughOtherErrors(t *testing.T) {
	underlying := errors.New("connection reset")
	if err := translateCreateError(underlying); err != underlying {
		t.Fatalf("expected error passed through unchanged, got %v", err)
	}
	if err := translateCreateError(nil); err != nil {
		t.Fatalf("expected nil passed through, got %v", err)
	}
}
