package auth

import (
	"testing"
	"time"

	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret: "test-secret-key-at-least-32-chars",
		Issuer: "test-issuer",
	})
}

func TestIssueAndVerify(t *testing.T) {
	svc := newTestJWTService()
	tenantID, userID := uuid.New(), uuid.New()

	token, err := svc.Issue(tenantID, userID, "clerk", time.Hour)
	require.NoError(t, err)

	id, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, tenantID, id.TenantID)
	assert.Equal(t, userID, id.UserID)
	assert.Equal(t, "clerk", id.Username)
	assert.NotEmpty(t, id.TokenID)
}

func TestVerify_ExpiredToken(t *testing.T) {
	svc := newTestJWTService()
	token, err := svc.Issue(uuid.New(), uuid.New(), "", -time.Hour)
	require.NoError(t, err)

	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerify_InvalidToken(t *testing.T) {
	_, err := newTestJWTService().Verify("invalid-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_DifferentSecret(t *testing.T) {
	other := NewJWTService(config.JWTConfig{Secret: "another-secret-key-at-least-32-ch", Issuer: "test-issuer"})
	token, err := other.Issue(uuid.New(), uuid.New(), "", time.Hour)
	require.NoError(t, err)

	_, err = newTestJWTService().Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_WrongIssuer(t *testing.T) {
	other := NewJWTService(config.JWTConfig{Secret: "test-secret-key-at-least-32-chars", Issuer: "someone-else"})
	token, err := other.Issue(uuid.New(), uuid.New(), "", time.Hour)
	require.NoError(t, err)

	_, err = newTestJWTService().Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "test-issuer", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		TenantID:         uuid.NewString(),
		UserID:           uuid.NewString(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTestJWTService().Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestClaims_Identity(t *testing.T) {
	tests := []struct {
		name    string
		claims  Claims
		wantErr error
	}{
		{"missing tenant", Claims{UserID: uuid.NewString()}, ErrMissingTenantID},
		{"missing user", Claims{TenantID: uuid.NewString()}, ErrMissingUserID},
		{"malformed tenant", Claims{TenantID: "acme", UserID: uuid.NewString()}, ErrInvalidClaims},
		{"nil user", Claims{TenantID: uuid.NewString(), UserID: uuid.Nil.String()}, ErrInvalidClaims},
		{"valid", Claims{TenantID: uuid.NewString(), UserID: uuid.NewString()}, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.claims.Identity()
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}
