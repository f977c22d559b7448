package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// JWTService issues and verifies HS256 access tokens carrying a user_id claim
type JWTService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTService creates a new JWT service. An empty issuer skips the iss check.
func NewJWTService(secret, issuer string) (*JWTService, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &JWTService{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}, nil
}

// GenerateAccessToken signs a token for userID valid for ttl
func (s *JWTService) GenerateAccessToken(userID int64, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
		"type":    "access",
	}
	if s.issuer != "" {
		claims["iss"] = s.issuer
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return token, nil
}

// VerifyAccessToken returns the user the token was issued to
func (s *JWTService) VerifyAccessToken(tokenString string) (int64, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, ErrInvalidToken
	}

	if tokenType, ok := claims["type"].(string); ok && tokenType != "access" {
		return 0, ErrInvalidToken
	}

	return userIDFromClaim(claims["user_id"])
}

func userIDFromClaim(v interface{}) (int64, error) {
	var id int64
	switch raw := v.(type) {
	case float64:
		if raw != float64(int64(raw)) {
			return 0, ErrInvalidToken
		}
		id = int64(raw)
	case string:
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, ErrInvalidToken
		}
		id = parsed
	default:
		return 0, ErrInvalidToken
	}
	if id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}
