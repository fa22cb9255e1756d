// Package auth выдаёт и проверяет JWT токены для приёма событий и
// административных запросов.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Роли токенов
const (
	// RoleIngest разрешает публиковать события игрового сервера
	RoleIngest = "ingest"
	// RoleAdmin разрешает управлять вкладками
	RoleAdmin = "admin"
)

// DefaultTTL: срок жизни токена по умолчанию
const DefaultTTL = 24 * time.Hour

var (
	// ErrInvalidToken возвращается для битого, чужого или просроченного токена
	ErrInvalidToken = errors.New("invalid token")
	// ErrWeakSecret возвращается для секрета короче 32 байт
	ErrWeakSecret = errors.New("secret key must be at least 32 bytes")
)

var (
	secretMu  sync.RWMutex
	jwtSecret []byte
)

func init() {
	// Случайный секрет до вызова SetJWTSecret: токены живут до перезапуска
	jwtSecret = make([]byte, 32)
	if _, err := rand.Read(jwtSecret); err != nil {
		jwtSecret = []byte("development-secret-key-change-in-production")
	}
}

func secret() []byte {
	secretMu.RLock()
	defer secretMu.RUnlock()
	return jwtSecret
}

// Claims: содержимое токена: кто (Subject) и что ему можно (Roles)
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// HasRole проверяет наличие роли; admin может всё
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role || r == RoleAdmin {
			return true
		}
	}
	return false
}

// GenerateJWT выпускает токен для subject (имя бота или оператора)
func GenerateJWT(subject string, ttl time.Duration, roles ...string) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()
	claims := &Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "al-spectator",
			Subject:   subject,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret())
}

// ValidateJWT проверяет подпись и сроки токена
func ValidateJWT(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secret(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateSecureSecret генерирует секрет для конфигурации (base64)
func GenerateSecureSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(b)
}

// SetJWTSecret устанавливает секрет из конфигурации (base64, минимум 32 байта)
func SetJWTSecret(encoded string) error {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("decode secret: %w", err)
	}
	if len(decoded) < 32 {
		return ErrWeakSecret
	}
	secretMu.Lock()
	jwtSecret = decoded
	secretMu.Unlock()
	return nil
}
