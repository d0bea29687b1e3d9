package service

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/aznacademy/aznexam-backend/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AuthService mints and validates the session tokens handed out at student
// entry, and verifies the static admin shared secret.
type AuthService struct {
	cfg *config.Config
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{cfg: cfg}
}

// SessionClaims binds a JWT to one test session.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// MintSessionToken signs a token for the given session, valid for ttl.
func (a *AuthService) MintSessionToken(sessionID uuid.UUID, ttl time.Duration) (string, error) {
	claims := SessionClaims{
		SessionID: sessionID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.cfg.JWTSecret))
}

// ValidateSessionToken parses a token and returns the bound session ID.
func (a *AuthService) ValidateSessionToken(tokenStr string) (uuid.UUID, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(a.cfg.JWTSecret), nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return uuid.Nil, errors.New("invalid token")
	}

	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse session id: %w", err)
	}
	return sessionID, nil
}

// VerifyAdminKey checks the static admin shared secret. When ADMIN_KEY_HASH
// is configured the presented key is verified against the bcrypt hash;
// otherwise a constant-time comparison against ADMIN_KEY is used.
func (a *AuthService) VerifyAdminKey(presented string) bool {
	if a.cfg.AdminKeyHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(a.cfg.AdminKeyHash), []byte(presented)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(a.cfg.AdminKey)) == 1
}
