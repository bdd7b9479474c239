// Пакет auth отвечает за выпуск и проверку JWT-токенов, отзыв по jti и хэширование паролей.
// Package auth issues and validates JWT tokens, revokes them by jti and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Сроки жизни токенов.
// Token lifetimes.
const (
	// AccessTokenTTL - срок access-токена.
	AccessTokenTTL = 60 * time.Minute
	// RefreshTokenTTL - срок refresh-токена.
	RefreshTokenTTL = 7 * 24 * time.Hour
	// ResetTokenTTL - срок токена сброса пароля.
	ResetTokenTTL = 15 * time.Minute
)

var (
	// ErrTokenExpired - срок действия токена истек.
	ErrTokenExpired = errors.New("срок действия токена истек")
	// ErrTokenInvalid - токен не прошел проверку подписи или формата.
	ErrTokenInvalid = errors.New("недействительный токен")
	// ErrTokenRevoked - токен был отозван при выходе из системы.
	ErrTokenRevoked = errors.New("токен отозван")
)

// Claims - полезная нагрузка токена: имя пользователя в Subject, роль отдельным полем.
// Claims is the token payload: username in Subject, role as a custom field.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenService выпускает и проверяет токены доступа и обновления.
// Access- и refresh-токены подписываются разными секретами, поэтому токен одного
// вида не проходит проверку другого.
// TokenService issues and validates access and refresh tokens. The two kinds are
// signed with different secrets, so one kind never validates as the other.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	revoked       RevocationStore
}

// NewTokenService создает сервис токенов с внедренным хранилищем отозванных jti.
func NewTokenService(accessSecret, refreshSecret string, revoked RevocationStore) *TokenService {
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		revoked:       revoked,
	}
}

// GenerateAccessToken выпускает access-токен с ролью пользователя и заданным сроком.
func (s *TokenService) GenerateAccessToken(username, role string, ttl time.Duration) (string, error) {
	return s.sign(username, role, ttl, s.accessSecret)
}

// GenerateRefreshToken выпускает refresh-токен без роли.
func (s *TokenService) GenerateRefreshToken(username string) (string, error) {
	return s.sign(username, "", RefreshTokenTTL, s.refreshSecret)
}

// GenerateResetToken выпускает короткоживущий токен сброса пароля.
func (s *TokenService) GenerateResetToken(username string) (string, error) {
	return s.sign(username, "", ResetTokenTTL, s.accessSecret)
}

func (s *TokenService) sign(username, role string, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("не удалось подписать токен: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken проверяет подпись, срок и отзыв access-токена.
func (s *TokenService) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, s.accessSecret)
}

// ValidateRefreshToken проверяет подпись, срок и отзыв refresh-токена.
func (s *TokenService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, s.refreshSecret)
}

func (s *TokenService) validate(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: пустой subject", ErrTokenInvalid)
	}
	if s.revoked != nil && s.revoked.IsRevoked(claims.ID) {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Revoke отзывает токен до конца его срока действия.
func (s *TokenService) Revoke(claims *Claims) {
	if s.revoked == nil || claims == nil {
		return
	}
	expiresAt := time.Now().Add(AccessTokenTTL)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	s.revoked.Revoke(claims.ID, expiresAt)
}
