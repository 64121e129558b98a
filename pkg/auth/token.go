package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pcmindustrial/pcm/pkg/model"
)

var ErrInvalidToken = errors.New("invalid token")

// AccessClaims carry the actor's identity and affiliation so handlers can
// resolve scope without a user lookup on every request.
type AccessClaims struct {
	jwt.RegisteredClaims
	UserID    string     `json:"user_id"`
	Login     string     `json:"login"`
	Role      model.Role `json:"role"`
	CompanyID string     `json:"company_id,omitempty"`
	PlantID   string     `json:"plant_id,omitempty"`
}

type TokenManager struct {
	signingKey []byte
	ttl        time.Duration
}

func NewTokenManager(signingKey []byte, ttl time.Duration) *TokenManager {
	return &TokenManager{signingKey: signingKey, ttl: ttl}
}

func (m *TokenManager) Generate(user *model.User) (string, error) {
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   user.ID.String(),
			Issuer:    "pcm-industrial",
		},
		UserID: user.ID.String(),
		Login:  user.Login,
		Role:   user.Role,
	}
	if user.CompanyID != nil {
		claims.CompanyID = user.CompanyID.String()
	}
	if user.PlantID != nil {
		claims.PlantID = user.PlantID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.signingKey)
}

func (m *TokenManager) Validate(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		return m.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
