package auth

import (
	"encoding/json"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	domainerrors "github.com/bookcaseapp/bookcase-server/internal/errors"
	"github.com/bookcaseapp/bookcase-server/internal/id"
)

const (
	// DefaultIssuer is used when no issuer is configured.
	DefaultIssuer = "bookcase-identity"
	tokenAudience = "bookcase-client"
)

// TokenService verifies access tokens and mints development tokens.
type TokenService struct {
	symmetricKey        paseto.V4SymmetricKey
	issuer              string
	accessTokenDuration time.Duration
	now                 func() time.Time
}

// NewTokenService creates a token service for the 32-byte key.
func NewTokenService(key []byte, issuer string, accessDuration time.Duration) (*TokenService, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("PASETO v4 key must be exactly %d bytes, got %d", keyLength, len(key))
	}

	symmetricKey, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}
	if issuer == "" {
		issuer = DefaultIssuer
	}

	return &TokenService{
		symmetricKey:        symmetricKey,
		issuer:              issuer,
		accessTokenDuration: accessDuration,
		now:                 time.Now,
	}, nil
}

// IssueAccessToken creates a PASETO v4.local access token for userID.
// The identity provider issues production tokens; this is for operators and tests.
func (s *TokenService) IssueAccessToken(userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", domainerrors.Validation("user id is required")
	}
	if ttl <= 0 {
		ttl = s.accessTokenDuration
	}
	now := s.now()

	token := paseto.NewToken()
	token.SetIssuer(s.issuer)
	token.SetSubject(userID)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(ttl))

	tokenID, err := id.Generate("token")
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}
	token.SetJti(tokenID)

	//nolint:errcheck // Token.Set only errors on invalid types, which we control
	_ = token.Set("user_id", userID)

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// VerifyAccessToken decrypts a token and checks its issuer, audience and
// validity window. Expired tokens fail with TokenExpired, anything else
// with Unauthorized.
func (s *TokenService) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(s.issuer))

	token, err := parser.ParseV4Local(s.symmetricKey, tokenString, nil)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid access token").WithCause(err)
	}

	var claims AccessClaims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, domainerrors.Unauthorized("invalid access token").WithCause(fmt.Errorf("parse claims: %w", err))
	}

	now := s.now()
	if !claims.Expiration.IsZero() && !now.Before(claims.Expiration) {
		return nil, domainerrors.TokenExpired("access token expired")
	}
	if !claims.NotBefore.IsZero() && now.Before(claims.NotBefore) {
		return nil, domainerrors.Unauthorized("access token not yet valid")
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, domainerrors.Unauthorized("access token has no subject")
	}

	return &claims, nil
}

// AccessTokenDuration returns the configured access token lifetime.
func (s *TokenService) AccessTokenDuration() time.Duration {
	return s.accessTokenDuration
}
