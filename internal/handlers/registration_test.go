package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youthcamp/registration-api/internal/models"
)

func remainingOf(t *testing.T, body map[string]any, id float64) float64 {
	t.Helper()
	for _, item := range body["data"].([]any) {
		room := item.(map[string]any)
		if room["id"] == id {
			return room["remaining"].(float64)
		}
	}
	t.Fatalf("room %v not listed", id)
	return 0
}

func TestHandleRegister(t *testing.T) {
	s := newTestServer(t)

	before := decode(t, s.do("GET", "/api/accommodations?gender=male&type=participant", nil, nil))

	rr := s.do("POST", "/api/register", janForm(), nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decode(t, rr)
	assert.Equal(t, true, body["success"])
	assert.NotZero(t, body["id"])

	after := decode(t, s.do("GET", "/api/accommodations?gender=male&type=participant", nil, nil))
	assert.Equal(t, remainingOf(t, before, 7)-1, remainingOf(t, after, 7))

	require.Len(t, s.dispatched, 1)
	assert.Equal(t, "Košice", s.dispatched[0].YouthGroup)
}

func TestHandleRegister_ExtraFieldsAllowed(t *testing.T) {
	s := newTestServer(t)
	form := janForm()
	form["honeypot"] = ""
	form["alergie"] = []string{"1"}

	rr := s.do("POST", "/api/register", form, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestHandleRegister_LeaderWithoutCode(t *testing.T) {
	s := newTestServer(t)
	form := janForm()
	form["typ"] = "leader"

	rr := s.do("POST", "/api/register", form, nil)
	require.Equal(t, http.StatusForbidden, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["errors"], "security code or access token is required")

	var n int64
	s.db.Model(&models.Registrant{}).Count(&n)
	assert.Zero(t, n)
}

func TestHandleRegister_LeaderWrongCode(t *testing.T) {
	s := newTestServer(t)
	form := janForm()
	form["typ"] = "leader"
	form["code"] = "guest-456"

	rr := s.do("POST", "/api/register", form, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decode(t, rr)["errors"], "invalid security code or access token")
}

func TestHandleRegister_LeaderWithToken(t *testing.T) {
	s := newTestServer(t)
	issue := s.do("POST", "/admin/access-tokens", map[string]any{"type": "leader"}, s.adminCookie(true))
	require.Equal(t, http.StatusOK, issue.Code, issue.Body.String())
	token := decode(t, issue)["token"].(string)

	form := janForm()
	form["typ"] = "leader"
	form["ubytovanie_id"] = "5"
	form["token"] = token

	rr := s.do("POST", "/api/register", form, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestHandleRegister_Guest(t *testing.T) {
	s := newTestServer(t)
	form := janForm()
	form["typ"] = "guest"
	form["code"] = "guest-456"
	form["poznamka"] = "Friday only"

	rr := s.do("POST", "/api/register", form, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var links int64
	s.db.Model(&models.RegistrantActivity{}).Count(&links)
	assert.Zero(t, links)
}

func TestHandleRegister_Duplicate(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.do("POST", "/api/register", janForm(), nil).Code)

	rr := s.do("POST", "/api/register", janForm(), nil)
	require.Equal(t, http.StatusConflict, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "email already in use", body["error"])

	var n int64
	s.db.Model(&models.Registrant{}).Count(&n)
	assert.Equal(t, int64(1), n)
}

func TestHandleRegister_ValidationErrors(t *testing.T) {
	s := newTestServer(t)
	form := janForm()
	form["email"] = "nope"
	form["gdpr"] = false
	form["aktivity"] = []string{}

	rr := s.do("POST", "/api/register", form, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	errs := decode(t, rr)["errors"]
	assert.Contains(t, errs, "Email address is not valid")
	assert.Contains(t, errs, "Consent to personal data processing is required")
	assert.Contains(t, errs, "At least one activity is required")
}

func TestHandleRegister_MalformedBody(t *testing.T) {
	s := newTestServer(t)
	form := janForm()
	form["gdpr"] = "yes please"

	rr := s.do("POST", "/api/register", form, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, false, decode(t, rr)["success"])
}

func TestHandleRegister_InvalidSelection(t *testing.T) {
	s := newTestServer(t)
	form := janForm()
	form["ubytovanie_id"] = "2"

	rr := s.do("POST", "/api/register", form, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleVerifyCode(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		query   string
		success bool
		valid   bool
	}{
		{"code=lead-123&type=leader", true, true},
		{"code=guest-456&type=guest", true, true},
		{"code=guest-456&type=leader", true, false},
		{"code=&type=leader", false, false},
		{"code=lead-123&type=participant", false, false},
		{"code=lead-123", false, false},
	}
	for _, tt := range tests {
		rr := s.do("GET", "/api/verify-code?"+tt.query, nil, nil)
		require.Equal(t, http.StatusOK, rr.Code, tt.query)
		body := decode(t, rr)
		assert.Equal(t, tt.success, body["success"], tt.query)
		assert.Equal(t, tt.valid, body["valid"], tt.query)
	}
}
