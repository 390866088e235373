package security

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheckToken(t *testing.T) {
	hash, err := HashToken("  s3cret ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cost, err := bcrypt.Cost([]byte(hash)); err != nil || cost != bcrypt.DefaultCost {
		t.Fatalf("expected default bcrypt cost, got %d (%v)", cost, err)
	}
	if !CheckToken(hash, "s3cret") {
		t.Fatalf("expected trimmed token to match")
	}
	if CheckToken(hash, "wrong") {
		t.Fatalf("expected wrong token to be rejected")
	}
	if CheckToken("", "s3cret") || CheckToken(hash, "") {
		t.Fatalf("empty hash or token never matches")
	}
}

func TestHashTokenRejectsBlank(t *testing.T) {
	if _, err := HashToken("   "); err != ErrEmptyToken {
		t.Fatalf("expected ErrEmptyToken, got %v", err)
	}
}
