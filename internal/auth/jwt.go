// Package auth issues and checks the credentials of VidTube users.
//
// TWO TOKENS:
//   - Access token: short-lived (15m by default), carries sub, username and
//     email. Sent on every request, in the accessToken cookie or as a Bearer
//     header. Never stored server-side.
//   - Refresh token: long-lived (10 days by default), carries sub and a
//     random jti. The user row stores the jti of the newest refresh token, so
//     rotating or logging out revokes every older one.
//
// The tokens are signed with different secrets. A leaked access secret
// cannot mint refresh tokens and the other way around.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims (data) → {"sub":"userID","exp":1234567890}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sakif/vidtube/internal/model"
)

const issuer = "vidtube"

// Cookie names shared by the handlers and the guard.
const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

var (
	ErrTokenExpired = errors.New("auth: token expired")
	ErrInvalidToken = errors.New("auth: invalid token")
)

// AccessClaims is the access token payload.
type AccessClaims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies both token kinds.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenService checks the secrets and TTLs. Secrets should be at least
// 32 bytes of random data in production, e.g. $(openssl rand -hex 32).
func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if len(accessSecret) < 16 || len(refreshSecret) < 16 {
		return nil, errors.New("auth: token secrets must be at least 16 characters")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("auth: token lifetimes must be positive")
	}
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

func (s *TokenService) AccessTTL() time.Duration  { return s.accessTTL }
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// GenerateAccess signs an access token for user.
func (s *TokenService) GenerateAccess(user *model.User) (string, error) {
	return s.generateAccessWithDuration(user, s.accessTTL)
}

func (s *TokenService) generateAccessWithDuration(user *model.User, d time.Duration) (string, error) {
	now := time.Now()
	c := AccessClaims{
		Username: user.Username,
		Email:    user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}
	return sign(c, s.accessSecret)
}

// GenerateRefresh signs a refresh token and returns it with its jti. The
// caller stores the jti on the user.
func (s *TokenService) GenerateRefresh(userID string) (token, jti string, err error) {
	return s.generateRefreshWithDuration(userID, s.refreshTTL)
}

func (s *TokenService) generateRefreshWithDuration(userID string, d time.Duration) (string, string, error) {
	now := time.Now()
	jti := uuid.NewString()
	c := jwt.RegisteredClaims{
		ID:        jti,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		Issuer:    issuer,
	}
	token, err := sign(c, s.refreshSecret)
	if err != nil {
		return "", "", err
	}
	return token, jti, nil
}

func sign(c jwt.Claims, secret []byte) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// ValidateAccess verifies an access token and returns its claims.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired (ExpiresAt is in the future)
//   - Issuer matches "vidtube"
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
func (s *TokenService) ValidateAccess(tokenStr string) (*AccessClaims, error) {
	c := &AccessClaims{}
	if err := parse(tokenStr, c, s.accessSecret); err != nil {
		return nil, err
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return c, nil
}

// ValidateRefresh verifies a refresh token and returns its subject and jti.
func (s *TokenService) ValidateRefresh(tokenStr string) (userID, jti string, err error) {
	c := &jwt.RegisteredClaims{}
	if err := parse(tokenStr, c, s.refreshSecret); err != nil {
		return "", "", err
	}
	if c.Subject == "" || c.ID == "" {
		return "", "", fmt.Errorf("%w: missing sub or jti", ErrInvalidToken)
	}
	return c.Subject, c.ID, nil
}

func parse(tokenStr string, c jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		c,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
