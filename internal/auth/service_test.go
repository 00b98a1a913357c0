package auth

import (
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestService(expiry time.Duration) *Service {
	return NewService(&Config{
		Secret:      []byte("test-secret-key-that-is-long-enough"),
		TokenExpiry: expiry,
	}, testLogger())
}

func TestGenerateValidateRoundTrip(t *testing.T) {
	svc := newTestService(time.Hour)

	token, err := svc.GenerateToken("admin")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Subject != "admin" {
		t.Errorf("Subject = %q, want admin", claims.Subject)
	}
	if !claims.Exp.After(time.Now()) {
		t.Errorf("Exp = %v, want in the future", claims.Exp)
	}
}

func TestGenerateTokenRequiresSubject(t *testing.T) {
	svc := newTestService(time.Hour)
	if _, err := svc.GenerateToken(""); !errors.Is(err, ErrMissingClaims) {
		t.Errorf("GenerateToken(\"\") error = %v, want ErrMissingClaims", err)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	svc := newTestService(-time.Minute)

	token, err := svc.GenerateToken("admin")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := svc.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("ValidateToken error = %v, want ErrExpiredToken", err)
	}
}

func TestValidateWrongSecret(t *testing.T) {
	issuer := newTestService(time.Hour)
	verifier := NewService(&Config{
		Secret:      []byte("a-different-secret-that-is-long-too"),
		TokenExpiry: time.Hour,
	}, testLogger())

	token, err := issuer.GenerateToken("admin")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := verifier.ValidateToken(token); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("ValidateToken error = %v, want ErrInvalidSignature", err)
	}
}

func TestValidateGarbageToken(t *testing.T) {
	svc := newTestService(time.Hour)

	for _, token := range []string{"", "not.a.jwt", "garbage"} {
		if _, err := svc.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("ValidateToken(%q) error = %v, want ErrInvalidToken", token, err)
		}
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"standard", "Bearer abc123", "abc123"},
		{"lowercase scheme", "bearer abc123", "abc123"},
		{"empty header", "", ""},
		{"no scheme", "abc123", ""},
		{"wrong scheme", "Basic abc123", ""},
		{"scheme only", "Bearer", ""},
		{"extra whitespace", "Bearer   abc123", "abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractBearerToken(tt.header); got != tt.want {
				t.Errorf("ExtractBearerToken(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}
