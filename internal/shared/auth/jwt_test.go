package auth

import (
	"testing"

	"github.com/markblanca/quicklink-delivery/internal/shared/config"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	svc := NewJWTService(config.JWTConfig{Secret: "test-secret", ExpiryMinutes: 60})

	token, err := svc.GenerateToken("r1", "carlos", "DELIVERY", "Carlos")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != "r1" || claims.Username != "carlos" ||
		claims.Role != "DELIVERY" || claims.Name != "Carlos" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	issuer := NewJWTService(config.JWTConfig{Secret: "secret-a", ExpiryMinutes: 60})
	verifier := NewJWTService(config.JWTConfig{Secret: "secret-b", ExpiryMinutes: 60})

	token, err := issuer.GenerateToken("r1", "carlos", "DELIVERY", "Carlos")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if _, err := verifier.ValidateToken(token); err == nil {
		t.Error("ValidateToken() accepted token signed with another secret")
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	t.Parallel()

	svc := NewJWTService(config.JWTConfig{Secret: "test-secret", ExpiryMinutes: 60})
	if _, err := svc.ValidateToken("not.a.token"); err == nil {
		t.Error("ValidateToken() accepted garbage")
	}
}

func TestExtractUser(t *testing.T) {
	t.Parallel()

	svc := NewJWTService(config.JWTConfig{Secret: "test-secret", ExpiryMinutes: 60})
	token, _ := svc.GenerateToken("r1", "carlos", "DELIVERY", "Carlos")

	userID, role, err := svc.ExtractUser(token)
	if err != nil {
		t.Fatalf("ExtractUser() error = %v", err)
	}
	if userID != "r1" || role != "DELIVERY" {
		t.Errorf("ExtractUser() = (%q, %q), want (r1, DELIVERY)", userID, role)
	}
}
