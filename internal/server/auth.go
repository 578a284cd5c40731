package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rezilient/restore-request-service/internal/common"
	"github.com/rezilient/restore-request-service/internal/models"
)

// TokenClaims is the claim set RRS bearer tokens carry. The scope triple is
// compared against every request body; service_scope gates which service the
// token was minted for.
type TokenClaims struct {
	TenantID     string `json:"tenant_id"`
	InstanceID   string `json:"instance_id"`
	Source       string `json:"source"`
	ServiceScope string `json:"service_scope"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 compact JWS bearer tokens. Signature
// comparison is constant-time inside the HMAC verify; expiry honors the
// configured clock-skew leeway.
type Authenticator struct {
	secret       []byte
	audience     string
	serviceScope string
	leeway       time.Duration
}

// NewAuthenticator builds the authenticator from config.
func NewAuthenticator(cfg common.AuthConfig) *Authenticator {
	return &Authenticator{
		secret:       []byte(cfg.JWTSecret),
		audience:     cfg.Audience,
		serviceScope: cfg.ServiceScope,
		leeway:       cfg.GetClockSkew(),
	}
}

// Verify parses and validates the token, returning the authenticated scope
// triple. Failures carry the denied_token_* reason codes.
func (a *Authenticator) Verify(tokenString string) (models.SourceScope, *models.RequestError) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" || strings.Count(tokenString, ".") != 2 {
		return models.SourceScope{}, unauthorized(models.ReasonDeniedTokenMalformed, "bearer token is not a compact JWS")
	}

	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(a.audience),
		jwt.WithLeeway(a.leeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return models.SourceScope{}, unauthorized(models.ReasonDeniedTokenExpired, "token is expired")
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return models.SourceScope{}, unauthorized(models.ReasonDeniedTokenInvalidSignature, "token signature is invalid")
		case errors.Is(err, jwt.ErrTokenInvalidAudience):
			return models.SourceScope{}, unauthorized(models.ReasonDeniedTokenWrongServiceScope, "token audience is not this service")
		case errors.Is(err, jwt.ErrTokenMalformed):
			return models.SourceScope{}, unauthorized(models.ReasonDeniedTokenMalformed, "token is malformed")
		default:
			return models.SourceScope{}, unauthorized(models.ReasonDeniedTokenInvalidSignature, "token validation failed")
		}
	}

	if claims.ServiceScope != a.serviceScope {
		return models.SourceScope{}, unauthorized(models.ReasonDeniedTokenWrongServiceScope, "token was not minted for this service scope")
	}
	if claims.TenantID == "" || claims.InstanceID == "" || claims.Source == "" {
		return models.SourceScope{}, unauthorized(models.ReasonDeniedTokenMalformed, "token is missing scope claims")
	}

	return models.SourceScope{
		TenantID:   claims.TenantID,
		InstanceID: claims.InstanceID,
		Source:     claims.Source,
	}, nil
}

func unauthorized(reason models.ReasonCode, message string) *models.RequestError {
	return models.NewRequestError(http.StatusUnauthorized, models.ErrCodeUnauthorized, reason, message)
}
