package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"fleet-wars-backend/internal/config"
	"fleet-wars-backend/internal/models"
)

type Claims struct {
	Identity  models.Identity `json:"idn"`
	SessionID string          `json:"sid"`
	jwt.RegisteredClaims
}

type JWTService struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTService(cfg *config.Config) *JWTService {
	return &JWTService{secret: []byte(cfg.JWTSecret), ttl: cfg.JWTTTL}
}

func (s *JWTService) GenerateToken(id models.Identity) (string, error) {
	if id.IsZero() {
		return "", errors.New("cannot issue token for empty identity")
	}

	now := time.Now()
	sessionID := uuid.New().String()
	claims := &Claims{
		Identity:  id,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   id.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid || claims.Identity.IsZero() || claims.Subject != claims.Identity.String() {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
