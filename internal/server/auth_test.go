package server

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rezilient/restore-request-service/internal/common"
	"github.com/rezilient/restore-request-service/internal/models"
)

const testSecret = "test-secret"

func testAuthConfig() common.AuthConfig {
	return common.AuthConfig{
		JWTSecret:    testSecret,
		Audience:     "rezilient:rrs",
		ServiceScope: "rrs",
		ClockSkew:    "30s",
	}
}

type tokenOverride func(*TokenClaims)

func mintToken(t *testing.T, secret string, overrides ...tokenOverride) string {
	t.Helper()
	now := time.Now()
	claims := &TokenClaims{
		TenantID:     "acme",
		InstanceID:   "dev",
		Source:       "sn://acme-dev",
		ServiceScope: "rrs",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "rezilient-idp",
			Subject:   "ops@acme",
			Audience:  jwt.ClaimStrings{"rezilient:rrs"},
			ID:        "jti-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	for _, o := range overrides {
		o(claims)
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func TestVerifyValidToken(t *testing.T) {
	auth := NewAuthenticator(testAuthConfig())

	scope, authErr := auth.Verify(mintToken(t, testSecret))
	if authErr != nil {
		t.Fatalf("expected valid token, got %v", authErr)
	}
	want := models.SourceScope{TenantID: "acme", InstanceID: "dev", Source: "sn://acme-dev"}
	if scope != want {
		t.Fatalf("expected %+v, got %+v", want, scope)
	}
}

func TestVerifyMalformedToken(t *testing.T) {
	auth := NewAuthenticator(testAuthConfig())

	for _, token := range []string{"", "not-a-jws", "a.b", "a.b.c.d"} {
		_, authErr := auth.Verify(token)
		if authErr == nil || authErr.ReasonCode != models.ReasonDeniedTokenMalformed {
			t.Fatalf("token %q: expected denied_token_malformed, got %v", token, authErr)
		}
	}
}

func TestVerifyWrongSignature(t *testing.T) {
	auth := NewAuthenticator(testAuthConfig())

	_, authErr := auth.Verify(mintToken(t, "some-other-secret"))
	if authErr == nil || authErr.ReasonCode != models.ReasonDeniedTokenInvalidSignature {
		t.Fatalf("expected denied_token_invalid_signature, got %v", authErr)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	auth := NewAuthenticator(testAuthConfig())

	token := mintToken(t, testSecret, func(c *TokenClaims) {
		c.IssuedAt = jwt.NewNumericDate(time.Now().Add(-2 * time.Hour))
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	})
	_, authErr := auth.Verify(token)
	if authErr == nil || authErr.ReasonCode != models.ReasonDeniedTokenExpired {
		t.Fatalf("expected denied_token_expired, got %v", authErr)
	}
}

func TestVerifyExpiryWithinSkewIsAccepted(t *testing.T) {
	auth := NewAuthenticator(testAuthConfig())

	token := mintToken(t, testSecret, func(c *TokenClaims) {
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-10 * time.Second))
	})
	if _, authErr := auth.Verify(token); authErr != nil {
		t.Fatalf("expiry within the skew tolerance must pass, got %v", authErr)
	}
}

func TestVerifyWrongServiceScope(t *testing.T) {
	auth := NewAuthenticator(testAuthConfig())

	token := mintToken(t, testSecret, func(c *TokenClaims) { c.ServiceScope = "billing" })
	_, authErr := auth.Verify(token)
	if authErr == nil || authErr.ReasonCode != models.ReasonDeniedTokenWrongServiceScope {
		t.Fatalf("expected denied_token_wrong_service_scope, got %v", authErr)
	}
}

func TestVerifyWrongAudience(t *testing.T) {
	auth := NewAuthenticator(testAuthConfig())

	token := mintToken(t, testSecret, func(c *TokenClaims) {
		c.Audience = jwt.ClaimStrings{"rezilient:other"}
	})
	_, authErr := auth.Verify(token)
	if authErr == nil || authErr.ReasonCode != models.ReasonDeniedTokenWrongServiceScope {
		t.Fatalf("expected denied_token_wrong_service_scope, got %v", authErr)
	}
}

func TestVerifyMissingScopeClaims(t *testing.T) {
	auth := NewAuthenticator(testAuthConfig())

	token := mintToken(t, testSecret, func(c *TokenClaims) { c.TenantID = "" })
	_, authErr := auth.Verify(token)
	if authErr == nil || authErr.ReasonCode != models.ReasonDeniedTokenMalformed {
		t.Fatalf("expected denied_token_malformed, got %v", authErr)
	}
}

func TestVerifyRejectsUnsignedAlgorithm(t *testing.T) {
	auth := NewAuthenticator(testAuthConfig())

	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, &TokenClaims{
		TenantID: "acme", InstanceID: "dev", Source: "sn://acme-dev", ServiceScope: "rrs",
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{"rezilient:rrs"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	if _, authErr := auth.Verify(token); authErr == nil {
		t.Fatal("alg=none tokens must be rejected")
	}
}
