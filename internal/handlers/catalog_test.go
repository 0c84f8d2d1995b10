package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youthcamp/registration-api/internal/models"
)

func ids(t *testing.T, body map[string]any) []float64 {
	t.Helper()
	var out []float64
	for _, item := range body["data"].([]any) {
		out = append(out, item.(map[string]any)["id"].(float64))
	}
	return out
}

func TestHandleAccommodations(t *testing.T) {
	s := newTestServer(t)

	rr := s.do("GET", "/api/accommodations?gender=female&type=leader", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []float64{2, 5, 7}, ids(t, decode(t, rr)))

	rr = s.do("GET", "/api/accommodations?gender=female&type=guest", nil, nil)
	assert.Equal(t, []float64{6}, ids(t, decode(t, rr)))

	rr = s.do("GET", "/api/accommodations?gender=male&type=whatever", nil, nil)
	assert.Equal(t, []float64{1, 7}, ids(t, decode(t, rr)))
}

func TestHandleAccommodations_BadGender(t *testing.T) {
	s := newTestServer(t)
	for _, q := range []string{"", "?gender=x", "?gender=MALE"} {
		rr := s.do("GET", "/api/accommodations"+q, nil, nil)
		require.Equal(t, http.StatusBadRequest, rr.Code, q)
		assert.Equal(t, false, decode(t, rr)["success"])
	}
}

func TestHandleActivities(t *testing.T) {
	s := newTestServer(t)
	rr := s.do("GET", "/api/activities", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	body := decode(t, rr)
	assert.Equal(t, true, body["success"])
	first := body["data"].([]any)[0].(map[string]any)
	assert.Equal(t, "Football", first["name"])
	assert.Equal(t, "wednesday", first["day"])
	assert.Equal(t, float64(20), first["remaining"])
}

func TestHandleYouthGroupsAndAllergies(t *testing.T) {
	s := newTestServer(t)
	s.db.Create(&models.Allergy{Name: models.OtherAllergyName, Description: "bees"})

	rr := s.do("GET", "/api/youth-groups", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []float64{1, 3}, ids(t, decode(t, rr)))

	rr = s.do("GET", "/api/allergies", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []float64{1}, ids(t, decode(t, rr)))
}
