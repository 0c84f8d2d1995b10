package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youthcamp/registration-api/internal/config"
	"github.com/youthcamp/registration-api/internal/models"
)

func newTestGuard() *AccessGuard {
	return NewAccessGuard(&config.Config{LeaderCode: "lead-123", GuestCode: "guest-456"})
}

func TestAccessGuard_Codes(t *testing.T) {
	g := newTestGuard()

	assert.NoError(t, g.Check(models.TypeParticipant, "", ""))
	assert.NoError(t, g.Check(models.TypeLeader, "lead-123", ""))
	assert.NoError(t, g.Check(models.TypeGuest, " guest-456 ", ""))

	assert.ErrorIs(t, g.Check(models.TypeLeader, "", ""), ErrAccessMissing)
	assert.ErrorIs(t, g.Check(models.TypeLeader, "guest-456", ""), ErrAccessInvalid)
	assert.ErrorIs(t, g.Check(models.TypeGuest, "lead-123", ""), ErrAccessInvalid)
}

func TestAccessGuard_VerifyCode(t *testing.T) {
	g := newTestGuard()

	assert.True(t, g.VerifyCode("leader", "lead-123"))
	assert.True(t, g.VerifyCode("guest", "guest-456"))
	assert.False(t, g.VerifyCode("leader", "guest-456"))
	assert.False(t, g.VerifyCode("leader", ""))
	assert.False(t, g.VerifyCode("participant", "lead-123"))
	assert.False(t, g.VerifyCode("admin", "lead-123"))
}

func TestAccessGuard_EmptySecretNeverMatches(t *testing.T) {
	g := NewAccessGuard(&config.Config{})

	assert.False(t, g.VerifyCode("leader", ""))
	assert.ErrorIs(t, g.Check(models.TypeLeader, "anything", ""), ErrAccessInvalid)
	_, _, err := g.IssueToken("leader", time.Hour)
	assert.Error(t, err)
}

func TestAccessGuard_InvitationTokens(t *testing.T) {
	g := newTestGuard()

	token, claims, err := g.IssueToken("leader", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "leader", claims.Type)
	_, err = uuid.Parse(claims.ID)
	require.NoError(t, err)

	assert.NoError(t, g.Check(models.TypeLeader, "", token))
	assert.ErrorIs(t, g.Check(models.TypeGuest, "", token), ErrAccessInvalid)
	assert.ErrorIs(t, g.Check(models.TypeLeader, "", token+"x"), ErrAccessInvalid)

	// A wrong code does not spoil a good token.
	assert.NoError(t, g.Check(models.TypeLeader, "nope", token))

	_, _, err = g.IssueToken("participant", time.Hour)
	assert.Error(t, err)
}

func TestAccessGuard_ExpiredToken(t *testing.T) {
	g := newTestGuard()
	token, _, err := g.IssueToken("guest", time.Minute)
	require.NoError(t, err)

	g.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.ErrorIs(t, g.Check(models.TypeGuest, "", token), ErrAccessInvalid)
}

func TestAccessGuard_RejectsForeignTokens(t *testing.T) {
	g := newTestGuard()

	sign := func(claims jwt.Claims, key string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
		require.NoError(t, err)
		return s
	}
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	noID := sign(&InviteClaims{Type: "leader", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp}}, "lead-123")
	assert.ErrorIs(t, g.Check(models.TypeLeader, "", noID), ErrAccessInvalid)

	noExpiry := sign(&InviteClaims{Type: "leader", RegisteredClaims: jwt.RegisteredClaims{ID: uuid.NewString()}}, "lead-123")
	assert.ErrorIs(t, g.Check(models.TypeLeader, "", noExpiry), ErrAccessInvalid)

	otherKey := sign(&InviteClaims{Type: "leader", RegisteredClaims: jwt.RegisteredClaims{ID: uuid.NewString(), ExpiresAt: exp}}, "jwt-secret")
	assert.ErrorIs(t, g.Check(models.TypeLeader, "", otherKey), ErrAccessInvalid)
}
