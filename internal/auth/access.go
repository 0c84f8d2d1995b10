package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/youthcamp/registration-api/internal/config"
	"github.com/youthcamp/registration-api/internal/models"
)

var (
	ErrAccessMissing = errors.New("security code or access token is required")
	ErrAccessInvalid = errors.New("invalid security code or access token")
)

// InviteClaims is the payload of a leader or guest invitation token. The
// token is signed with the security code of its type.
type InviteClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// AccessGuard protects the leader and guest registration types with a
// shared security code per type.
type AccessGuard struct {
	secrets map[models.RegistrationType]string
	now     func() time.Time
}

func NewAccessGuard(cfg *config.Config) *AccessGuard {
	return &AccessGuard{
		secrets: map[models.RegistrationType]string{
			models.TypeLeader: cfg.LeaderCode,
			models.TypeGuest:  cfg.GuestCode,
		},
		now: time.Now,
	}
}

// Check accepts either the plain security code or an invitation token for
// typ. Participants need neither.
func (g *AccessGuard) Check(typ models.RegistrationType, code, token string) error {
	secret, restricted := g.secrets[typ]
	if !restricted {
		return nil
	}

	code = strings.TrimSpace(code)
	token = strings.TrimSpace(token)
	if code == "" && token == "" {
		return ErrAccessMissing
	}
	if code != "" && secret != "" && equal(code, secret) {
		return nil
	}
	if token != "" && g.validToken(typ, secret, token) {
		return nil
	}
	return ErrAccessInvalid
}

// VerifyCode reports whether code is the security code of the named type.
// Only "leader" and "guest" have codes.
func (g *AccessGuard) VerifyCode(typeName, code string) bool {
	typ, ok := restrictedType(typeName)
	if !ok || code == "" {
		return false
	}
	secret := g.secrets[typ]
	return secret != "" && equal(code, secret)
}

// IssueToken signs an invitation for the named type valid for ttl.
func (g *AccessGuard) IssueToken(typeName string, ttl time.Duration) (string, *InviteClaims, error) {
	typ, ok := restrictedType(typeName)
	if !ok {
		return "", nil, fmt.Errorf("invitations exist only for leader and guest, not %q", typeName)
	}
	secret := g.secrets[typ]
	if secret == "" {
		return "", nil, fmt.Errorf("no security code configured for %s", typ)
	}

	now := g.now()
	claims := &InviteClaims{
		Type: typ.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

func (g *AccessGuard) validToken(typ models.RegistrationType, secret, tokenString string) bool {
	if secret == "" {
		return false
	}
	var claims InviteClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil || !token.Valid {
		return false
	}
	if _, err := uuid.Parse(claims.ID); err != nil {
		return false
	}
	return claims.Type == typ.String()
}

func restrictedType(name string) (models.RegistrationType, bool) {
	switch name {
	case "leader":
		return models.TypeLeader, true
	case "guest":
		return models.TypeGuest, true
	default:
		return 0, false
	}
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
