package config

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestLoadBcryptCost(t *testing.T) {
	t.Setenv("BCRYPT_COST", "")
	if got := Load().BcryptCost; got != bcrypt.DefaultCost {
		t.Fatalf("expected default cost %d, got %d", bcrypt.DefaultCost, got)
	}

	t.Setenv("BCRYPT_COST", "12")
	if got := Load().BcryptCost; got != 12 {
		t.Fatalf("expected cost 12, got %d", got)
	}
}
