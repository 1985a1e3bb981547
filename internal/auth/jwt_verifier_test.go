package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"io"
	"log/slog"
	"testing"
	"time"

	"notevault/internal/domain"
	"notevault/internal/domain/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVerifier(t *testing.T) (*JWKSVerifier, *ecdsa.PrivateKey) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	kf := func(token *jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	}
	return newVerifier(kf, slog.New(slog.NewTextHandler(io.Discard, nil))), key
}

func signClaims(t *testing.T, key *ecdsa.PrivateKey, claims *models.Claims) string {
	t.Helper()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestVerifyToken(t *testing.T) {
	verifier, key := testVerifier(t)
	otherKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	valid := func() *models.Claims {
		return &models.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-1",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			Role: "authenticated",
		}
	}

	tests := []struct {
		name    string
		token   func() string
		wantErr bool
	}{
		{
			name:  "valid token",
			token: func() string { return signClaims(t, key, valid()) },
		},
		{
			name: "expired",
			token: func() string {
				c := valid()
				c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
				return signClaims(t, key, c)
			},
			wantErr: true,
		},
		{
			name: "missing subject",
			token: func() string {
				c := valid()
				c.Subject = ""
				return signClaims(t, key, c)
			},
			wantErr: true,
		},
		{
			name: "anonymous role",
			token: func() string {
				c := valid()
				c.Role = "anon"
				return signClaims(t, key, c)
			},
			wantErr: true,
		},
		{
			name:    "signed by another key",
			token:   func() string { return signClaims(t, otherKey, valid()) },
			wantErr: true,
		},
		{
			name:    "garbage",
			token:   func() string { return "not-a-jwt" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := verifier.VerifyToken(tt.token())
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrUnauthorized)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "user-1", claims.GetUserID())
		})
	}
}

func TestVerifyTokenRejectsHMAC(t *testing.T) {
	secret := []byte("shared-secret")
	verifier := newVerifier(func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	claims := &models.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
		Role:             "authenticated",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	_, err = verifier.VerifyToken(signed)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestNewJWTVerifierRequiresURL(t *testing.T) {
	_, err := NewJWTVerifier("", slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}
