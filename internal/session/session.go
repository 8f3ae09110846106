package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/resale_shop/internal/models"
)

const CookieName = "sid"

var ErrInvalidSession = errors.New("invalid session")

type Claims struct {
	Kind models.PrincipalKind `json:"kind"`
	jwt.RegisteredClaims
}

type Principal struct {
	Kind models.PrincipalKind
	ID   uint
}

// Manager issues signed session cookies whose jti points at a server-side
// sessions row; the row is what makes a session valid.
type Manager struct {
	DB     *gorm.DB
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

func NewManager(db *gorm.DB, secret []byte, ttl time.Duration) *Manager {
	return &Manager{DB: db, Secret: secret, TTL: ttl, Now: time.Now}
}

func (m *Manager) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

func (m *Manager) Create(ctx context.Context, kind models.PrincipalKind, principalID uint) (string, time.Time, error) {
	now := m.now().UTC()
	exp := now.Add(m.TTL)
	jti := uuid.NewString()

	row := models.Session{
		Token:         jti,
		PrincipalKind: kind,
		PrincipalID:   principalID,
		ExpiresAt:     exp,
	}
	if err := m.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return "", time.Time{}, fmt.Errorf("store session: %w", err)
	}

	claims := Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(principalID), 10),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, exp, nil
}

func (m *Manager) parse(raw string) (*Claims, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return m.Secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !tkn.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	return &claims, nil
}

func (m *Manager) Resolve(ctx context.Context, raw string) (*Principal, error) {
	if raw == "" {
		return nil, ErrInvalidSession
	}
	claims, err := m.parse(raw)
	if err != nil {
		return nil, err
	}

	var row models.Session
	if err := m.DB.WithContext(ctx).Where("token = ?", claims.ID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: unknown session", ErrInvalidSession)
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if row.Revoked || m.now().After(row.ExpiresAt) {
		return nil, fmt.Errorf("%w: expired or revoked", ErrInvalidSession)
	}
	if row.PrincipalKind != claims.Kind {
		return nil, fmt.Errorf("%w: kind mismatch", ErrInvalidSession)
	}
	return &Principal{Kind: row.PrincipalKind, ID: row.PrincipalID}, nil
}

// Revoke is a no-op for tokens that do not parse or are unknown.
func (m *Manager) Revoke(ctx context.Context, raw string) error {
	claims, err := m.parse(raw)
	if err != nil {
		return nil
	}
	return m.DB.WithContext(ctx).Model(&models.Session{}).
		Where("token = ?", claims.ID).
		Update("revoked", true).Error
}
