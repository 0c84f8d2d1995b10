package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/youthcamp/registration-api/internal/config"
	"github.com/youthcamp/registration-api/internal/database"
	"github.com/youthcamp/registration-api/internal/models"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenInMemory()
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	return db
}

func createAdmin(t *testing.T, db *gorm.DB, admin bool) models.User {
	t.Helper()
	user := models.User{
		DiscordID: "123456",
		Username:  "testuser",
		Email:     "test@example.com",
		Avatar:    "avatar_url",
		Admin:     admin,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func statusOf(err error) int {
	var se huma.StatusError
	if errors.As(err, &se) {
		return se.GetStatus()
	}
	return 0
}

func TestHandleMe(t *testing.T) {
	db := newTestDB(t)
	user := createAdmin(t, db, true)

	cfg := &config.Config{JWTSecret: "test-secret"}
	handler := NewAuthHandler(cfg, db)

	t.Run("Authenticated", func(t *testing.T) {
		token, _ := handler.GenerateToken(user.ID)
		input := &AuthInput{
			Cookie: "theme=dark; auth_token=" + token,
		}
		resp, err := handler.HandleMe(context.Background(), input)
		if err != nil {
			t.Fatalf("HandleMe returned error: %v", err)
		}

		if resp.Body.Username != user.Username {
			t.Errorf("expected username %s, got %s", user.Username, resp.Body.Username)
		}
		if resp.Body.Email != user.Email {
			t.Errorf("expected email %s, got %s", user.Email, resp.Body.Email)
		}
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		_, err := handler.HandleMe(context.Background(), &AuthInput{})
		if statusOf(err) != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %v", err)
		}
	})

	t.Run("ForeignSecret", func(t *testing.T) {
		other := NewAuthHandler(&config.Config{JWTSecret: "other-secret"}, db)
		token, _ := other.GenerateToken(user.ID)
		_, err := handler.HandleMe(context.Background(), &AuthInput{Cookie: "auth_token=" + token})
		if statusOf(err) != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %v", err)
		}
	})
}

func TestAuthorize_NonAdmin(t *testing.T) {
	db := newTestDB(t)
	user := createAdmin(t, db, false)
	handler := NewAuthHandler(&config.Config{JWTSecret: "test-secret"}, db)

	token, _ := handler.GenerateToken(user.ID)
	_, err := handler.Authorize(context.Background(), AuthInput{Cookie: "auth_token=" + token})
	if statusOf(err) != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestAuthorize_APIKey(t *testing.T) {
	db := newTestDB(t)
	user := createAdmin(t, db, true)
	handler := NewAuthHandler(&config.Config{JWTSecret: "test-secret"}, db)

	key, hash, err := NewAPIKey()
	if err != nil {
		t.Fatalf("NewAPIKey: %v", err)
	}
	apiKey := models.APIKey{UserID: user.ID, KeyHash: hash, Suffix: key[len(key)-4:], Name: "sheet"}
	if err := db.Create(&apiKey).Error; err != nil {
		t.Fatalf("failed to create key: %v", err)
	}

	userID, err := handler.Authorize(context.Background(), AuthInput{APIKey: key})
	if err != nil {
		t.Fatalf("Authorize returned error: %v", err)
	}
	if userID != user.ID {
		t.Errorf("expected user %d, got %d", user.ID, userID)
	}

	var stored models.APIKey
	db.First(&stored, apiKey.ID)
	if stored.LastUsedAt == nil {
		t.Error("expected last_used_at to be recorded")
	}

	if _, err := handler.Authorize(context.Background(), AuthInput{APIKey: "wrong"}); statusOf(err) != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown key, got %v", err)
	}
}

func TestHandleCallback(t *testing.T) {
	db := newTestDB(t)

	discord := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/token":
			w.Write([]byte(`{"access_token":"abc","token_type":"Bearer","expires_in":3600}`))
		case "/users/@me":
			json.NewEncoder(w).Encode(map[string]string{"id": "42", "username": "camp-admin", "email": "admin@example.com"})
		case "/users/@me/guilds":
			w.Write([]byte(`[{"id":"guild-1"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer discord.Close()

	newHandler := func(adminIDs ...string) *AuthHandler {
		cfg := &config.Config{JWTSecret: "test-secret", DiscordGuildID: "guild-1", AdminDiscordIDs: adminIDs}
		h := NewAuthHandler(cfg, db)
		h.oauthConfig.Endpoint = oauth2.Endpoint{AuthURL: discord.URL + "/authorize", TokenURL: discord.URL + "/token"}
		h.userAPI = discord.URL + "/users/@me"
		h.guildsAPI = discord.URL + "/users/@me/guilds"
		return h
	}
	callback := func(h *AuthHandler, state, cookieState string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/auth/discord/callback?code=xyz&state="+state, nil)
		req.AddCookie(&http.Cookie{Name: stateCookie, Value: cookieState})
		rr := httptest.NewRecorder()
		h.HandleCallback(rr, req)
		return rr
	}

	t.Run("Admin", func(t *testing.T) {
		rr := callback(newHandler("42"), "s1", "s1")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if !strings.Contains(rr.Body.String(), "camp-admin") {
			t.Errorf("unexpected body %q", rr.Body.String())
		}
		found := false
		for _, c := range rr.Result().Cookies() {
			if c.Name == SessionCookie && c.Value != "" {
				found = true
			}
		}
		if !found {
			t.Error("expected session cookie")
		}

		var user models.User
		if err := db.Where("discord_id = ?", "42").First(&user).Error; err != nil {
			t.Fatalf("user not stored: %v", err)
		}
		if !user.Admin || user.Email != "admin@example.com" {
			t.Errorf("unexpected user %+v", user)
		}
	})

	t.Run("NotAdmin", func(t *testing.T) {
		rr := callback(newHandler("7"), "s1", "s1")
		if rr.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rr.Code)
		}
	})

	t.Run("StateMismatch", func(t *testing.T) {
		rr := callback(newHandler("42"), "s1", "s2")
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
	})
}

func TestHandleLogin_SetsState(t *testing.T) {
	h := NewAuthHandler(&config.Config{DiscordClientID: "client"}, nil)
	rr := httptest.NewRecorder()
	h.HandleLogin(rr, httptest.NewRequest("GET", "/auth/discord/login", nil))

	if rr.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected redirect, got %d", rr.Code)
	}
	var state string
	for _, c := range rr.Result().Cookies() {
		if c.Name == stateCookie {
			state = c.Value
		}
	}
	if state == "" || !strings.Contains(rr.Header().Get("Location"), "state="+state) {
		t.Errorf("state cookie %q not in redirect %q", state, rr.Header().Get("Location"))
	}
}
