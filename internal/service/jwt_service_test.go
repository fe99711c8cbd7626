package service

import (
	"errors"
	"testing"
	"time"

	"group-chat/internal/domain"
)

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)

	token, err := svc.Generate(domain.User{ID: 42, DisplayName: "ann"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := svc.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 42 {
		t.Fatalf("expected uid 42, got %d", claims.UserID)
	}
	if claims.DisplayName != "ann" {
		t.Fatalf("expected display name ann, got %q", claims.DisplayName)
	}
}

func TestJWTRejectsGarbage(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)

	for i, token := range []string{"", "   ", "not.a.jwt", "aaa.bbb.ccc"} {
		if _, err := svc.Parse(token); !errors.Is(err, ErrJWTInvalid) {
			t.Fatalf("case %d: expected ErrJWTInvalid, got %v", i, err)
		}
	}
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	issuer := NewJWTService("secret-a", time.Hour)
	verifier := NewJWTService("secret-b", time.Hour)

	token, err := issuer.Generate(domain.User{ID: 1, DisplayName: "ann"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := verifier.Parse(token); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid, got %v", err)
	}
}

func TestJWTExpired(t *testing.T) {
	svc := &JWTService{secret: []byte("test-secret"), ttl: -time.Minute, issuer: "group-chat"}

	token, err := svc.Generate(domain.User{ID: 1, DisplayName: "ann"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := svc.Parse(token); !errors.Is(err, ErrJWTExpired) {
		t.Fatalf("expected ErrJWTExpired, got %v", err)
	}
}

func TestJWTEmptySecret(t *testing.T) {
	svc := NewJWTService("", time.Hour)
	if _, err := svc.Generate(domain.User{ID: 1}); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid, got %v", err)
	}
}
