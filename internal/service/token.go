package service

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ignatzorin/market-backoffice/internal/models"
)

var ErrInvalidToken = errors.New("invalid access token")

// TokenVerifier проверяет access токены, выпущенные провайдером авторизации.
// Сервис токены не выпускает.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify проверяет подпись HS256 и срок действия и возвращает личность из claims sub/email.
func (v *TokenVerifier) Verify(token string) (models.CurrentUser, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return models.CurrentUser{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return models.CurrentUser{}, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return models.CurrentUser{}, ErrInvalidToken
	}

	email, _ := claims["email"].(string)
	email = strings.TrimSpace(email)
	if email == "" {
		return models.CurrentUser{}, ErrInvalidToken
	}

	return models.CurrentUser{ID: userID, Email: email}, nil
}
