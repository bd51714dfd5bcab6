package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/exp/slog"
)

const (
	DefaultTTL = 30 * 24 * time.Hour
	issuer     = "replikeep"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrMissingOwner  = errors.New("token has no owner")
	ErrEmptySecret   = errors.New("token secret is empty")
	ErrOwnerRequired = errors.New("owner is required")
)

type Servicer interface {
	// Create выпускает токен владельца для устройства.
	Create(ctx context.Context, owner, deviceID string) (string, error)
	// Validate проверяет подпись и срок токена и возвращает владельца.
	Validate(ctx context.Context, token string) (string, error)
}

// Claims - содержимое токена. Владелец хранится в стандартном поле sub.
type Claims struct {
	DeviceID string `json:"did,omitempty"`
	jwt.RegisteredClaims
}

type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	log    *slog.Logger
}

func NewService(secret string, ttl time.Duration, log *slog.Logger) (*Service, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		log:    log.With("component", "session_service"),
	}, nil
}

func (s *Service) Create(_ context.Context, owner, deviceID string) (string, error) {
	if owner == "" {
		return "", ErrOwnerRequired
	}

	now := s.now()
	claims := &Claims{
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   owner,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	s.log.Info("token issued", "owner", owner, "device_id", deviceID, "expires_at", claims.ExpiresAt.Time)
	return token, nil
}

func (s *Service) Validate(_ context.Context, token string) (string, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", ErrMissingOwner
	}

	return claims.Subject, nil
}

// OwnerFromToken читает владельца из токена без проверки подписи.
// Клиент использует его только чтобы знать, чьи данные синхронизировать.
func OwnerFromToken(token string) (string, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", ErrMissingOwner
	}
	return claims.Subject, nil
}
