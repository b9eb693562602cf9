package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a credential cannot be resolved to a user.
var ErrInvalidToken = errors.New("invalid user token")

// Claims represents JWT claims for CourseConnect authentication. UserID is
// the primary custom claim; older tokens carry the user id only in the
// standard subject claim, so both shapes must resolve.
type Claims struct {
	UserID   int64  `json:"userId,omitempty"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
}

// GenerateToken creates a new JWT token for the given user. The user id is
// written both as the custom claim and as the subject for fallback parsing.
func GenerateToken(cfg *JWTConfig, userID int64, username string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.Secret)
}

// ValidateToken parses and validates a JWT token.
func ValidateToken(cfg *JWTConfig, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return cfg.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
		return nil, fmt.Errorf("invalid issuer")
	}

	if cfg.Audience != "" {
		validAudience := false
		for _, aud := range claims.Audience {
			if aud == cfg.Audience {
				validAudience = true
				break
			}
		}
		if !validAudience {
			return nil, fmt.Errorf("invalid audience")
		}
	}

	return claims, nil
}

// ResolveUserID extracts a numeric user id from an inbound credential.
// The custom userId claim wins; the subject claim is the fallback for tokens
// issued before the custom claim existed. Neither parsing yields an id means
// ErrInvalidToken. Pure lookup, no side effects.
func ResolveUserID(cfg *JWTConfig, tokenString string) (int64, error) {
	claims, err := ValidateToken(cfg, tokenString)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidToken, err)
	}

	if claims.UserID > 0 {
		return claims.UserID, nil
	}

	if claims.Subject != "" {
		if id, err := strconv.ParseInt(claims.Subject, 10, 64); err == nil && id > 0 {
			return id, nil
		}
	}

	return 0, ErrInvalidToken
}
