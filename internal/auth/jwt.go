package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the "type" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

// Claims holds JWT claims for a speaker token.
type Claims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// JWTService issues and validates speaker tokens.
type JWTService struct {
	secret        []byte
	accessExpire  time.Duration
	refreshExpire time.Duration
}

// NewJWTService creates a JWT service.
func NewJWTService(secret string, accessExpireMins, refreshExpireHours int) *JWTService {
	return &JWTService{
		secret:        []byte(secret),
		accessExpire:  time.Duration(accessExpireMins) * time.Minute,
		refreshExpire: time.Duration(refreshExpireHours) * time.Hour,
	}
}

// GenerateAccess creates a short-lived access token for the speaker.
func (s *JWTService) GenerateAccess(speakerID uuid.UUID) (string, error) {
	return s.generate(speakerID, TokenTypeAccess, s.accessExpire)
}

// GenerateRefresh creates a long-lived refresh token for the speaker.
func (s *JWTService) GenerateRefresh(speakerID uuid.UUID) (string, error) {
	return s.generate(speakerID, TokenTypeRefresh, s.refreshExpire)
}

func (s *JWTService) generate(speakerID uuid.UUID, tokenType string, expire time.Duration) (string, error) {
	claims := Claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   speakerID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expire)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and validates a token, returning claims or error.
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Decode validates a token and returns the speaker subject and token type.
// This is the verifier contract the realtime gateway consumes.
func (s *JWTService) Decode(tokenString string) (uuid.UUID, string, error) {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return uuid.Nil, "", err
	}
	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", ErrInvalidToken
	}
	return subject, claims.TokenType, nil
}
