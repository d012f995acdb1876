package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestEscapeLike(t *testing.T) {
	tests := map[string]string{
		"plain":      "plain",
		"100%":       `100\%`,
		"snake_case": `snake\_case`,
		`back\slash`: `back\\slash`,
	}
	for in, want := range tests {
		if got := escapeLike(in); got != want {
			t.Errorf("escapeLike(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPgCode(t *testing.T) {
	wrapped := fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgUniqueViolation})
	if got := pgCode(wrapped); got != pgUniqueViolation {
		t.Fatalf("expected %s, got %q", pgUniqueViolation, got)
	}
	if got := pgCode(errors.New("boom")); got != "" {
		t.Fatalf("expected empty code, got %q", got)
	}
}

func TestIsNoRows(t *testing.T) {
	if !isNoRows(fmt.Errorf("get: %w", pgx.ErrNoRows)) {
		t.Fatal("expected wrapped ErrNoRows to be detected")
	}
}
