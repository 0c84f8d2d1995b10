package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/youthcamp/registration-api/internal/config"
	"github.com/youthcamp/registration-api/internal/models"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

const (
	DiscordAuthorizeEndpoint = "https://discord.com/api/oauth2/authorize"
	DiscordTokenEndpoint     = "https://discord.com/api/oauth2/token"
	DiscordUserAPI           = "https://discord.com/api/users/@me"
	DiscordUserGuildsAPI     = "https://discord.com/api/users/@me/guilds"
)

const (
	SessionCookie = "auth_token"
	stateCookie   = "oauth_state"
)

// TokenDuration is the lifetime of an admin session.
const TokenDuration = 24 * time.Hour

type AuthHandler struct {
	oauthConfig *oauth2.Config
	db          *gorm.DB
	cfg         *config.Config

	// discord endpoints, replaced in tests
	userAPI   string
	guildsAPI string
}

func NewAuthHandler(cfg *config.Config, db *gorm.DB) *AuthHandler {
	return &AuthHandler{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURL,
			Scopes:       []string{"identify", "email", "guilds"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  DiscordAuthorizeEndpoint,
				TokenURL: DiscordTokenEndpoint,
			},
		},
		db:        db,
		cfg:       cfg,
		userAPI:   DiscordUserAPI,
		guildsAPI: DiscordUserGuildsAPI,
	}
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		Path:     "/auth",
		SameSite: http.SameSiteLaxMode,
	})
	url := h.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

type discordUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
}

func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Code not found", http.StatusBadRequest)
		return
	}
	state, err := r.Cookie(stateCookie)
	if err != nil || state.Value == "" || state.Value != r.URL.Query().Get("state") {
		http.Error(w, "Invalid OAuth state", http.StatusBadRequest)
		return
	}

	token, err := h.oauthConfig.Exchange(r.Context(), code)
	if err != nil {
		log.Warn().Err(err).Msg("discord token exchange failed")
		http.Error(w, "Failed to exchange token", http.StatusInternalServerError)
		return
	}

	client := h.oauthConfig.Client(r.Context(), token)

	// Check Guild Membership
	if h.cfg.DiscordGuildID != "" {
		member, err := h.isGuildMember(client)
		if err != nil {
			log.Error().Err(err).Msg("failed to get user guilds")
			http.Error(w, "Failed to get user guilds", http.StatusInternalServerError)
			return
		}
		if !member {
			http.Error(w, "Access denied: You are not a member of the required guild.", http.StatusForbidden)
			return
		}
	}

	// Get User Info
	du, err := h.fetchUser(client)
	if err != nil {
		log.Error().Err(err).Msg("failed to get discord user")
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}

	user, err := h.upsertUser(r.Context(), du)
	if err != nil {
		log.Error().Err(err).Msg("failed to save user")
		http.Error(w, "Failed to save user", http.StatusInternalServerError)
		return
	}
	if !user.Admin {
		log.Warn().Str("discord_id", user.DiscordID).Msg("non-admin login refused")
		http.Error(w, "Access denied: You are not a camp administrator.", http.StatusForbidden)
		return
	}

	// Generate JWT
	jwtToken, err := h.GenerateToken(user.ID)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, h.sessionCookie(jwtToken))
	log.Info().Str("username", user.Username).Msg("admin logged in")
	fmt.Fprintf(w, "Welcome %s! You are logged in.", user.Username)
}

func (h *AuthHandler) isGuildMember(client *http.Client) (bool, error) {
	resp, err := client.Get(h.guildsAPI)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("discord guilds: status %d", resp.StatusCode)
	}

	var guilds []struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&guilds); err != nil {
		return false, err
	}
	for _, g := range guilds {
		if g.ID == h.cfg.DiscordGuildID {
			return true, nil
		}
	}
	return false, nil
}

func (h *AuthHandler) fetchUser(client *http.Client) (*discordUser, error) {
	resp, err := client.Get(h.userAPI)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discord user: status %d", resp.StatusCode)
	}

	var du discordUser
	if err := json.NewDecoder(resp.Body).Decode(&du); err != nil {
		return nil, err
	}
	return &du, nil
}

// upsertUser stores the Discord profile. Admin rights follow
// ADMIN_DISCORD_IDS on every login.
func (h *AuthHandler) upsertUser(ctx context.Context, du *discordUser) (*models.User, error) {
	var user models.User
	db := h.db.WithContext(ctx)
	if err := db.FirstOrInit(&user, models.User{DiscordID: du.ID}).Error; err != nil {
		return nil, err
	}
	user.Username = du.Username
	user.Email = du.Email
	user.Avatar = du.Avatar
	user.Admin = slices.Contains(h.cfg.AdminDiscordIDs, du.ID)

	if err := db.Save(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (h *AuthHandler) GenerateToken(userID uint) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(TokenDuration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.cfg.JWTSecret))
}

func (h *AuthHandler) sessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Expires:  time.Now().Add(TokenDuration),
		HttpOnly: true,
		Path:     "/",
		Secure:   strings.HasPrefix(h.cfg.AppURL, "https://"),
		SameSite: http.SameSiteLaxMode,
	}
}

// parseSession returns the user id of a valid session token and its expiry.
func (h *AuthHandler) parseSession(tokenString string) (uint, time.Time, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(h.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, time.Time{}, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, time.Time{}, errors.New("invalid token claims")
	}
	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		return 0, time.Time{}, errors.New("invalid token claims")
	}
	var exp time.Time
	if e, err := claims.GetExpirationTime(); err == nil && e != nil {
		exp = e.Time
	}
	return uint(userIDFloat), exp, nil
}

// AuthInput carries the credentials of an admin request. Embed it in huma
// inputs.
type AuthInput struct {
	Cookie string `header:"Cookie" doc:"Session cookie"`
	APIKey string `header:"X-API-KEY" doc:"Admin API key"`
}

// Authorize resolves the admin behind an API key or session cookie.
func (h *AuthHandler) Authorize(ctx context.Context, in AuthInput) (uint, error) {
	if in.APIKey != "" {
		userID, err := h.authorizeKey(ctx, in.APIKey)
		if err != nil {
			return 0, huma.Error401Unauthorized("Unauthorized: " + err.Error())
		}
		return userID, nil
	}

	cookies, err := http.ParseCookie(in.Cookie)
	if err != nil {
		return 0, huma.Error401Unauthorized("Unauthorized: No token found")
	}
	for _, c := range cookies {
		if c.Name != SessionCookie {
			continue
		}
		userID, _, err := h.parseSession(c.Value)
		if err != nil {
			return 0, huma.Error401Unauthorized("Unauthorized: Invalid token")
		}
		if !h.isAdmin(ctx, userID) {
			return 0, huma.Error403Forbidden("Forbidden: not an administrator")
		}
		return userID, nil
	}
	return 0, huma.Error401Unauthorized("Unauthorized: No token found")
}

func (h *AuthHandler) isAdmin(ctx context.Context, userID uint) bool {
	var user models.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return false
	}
	return user.Admin
}

// CurrentUser loads the admin for a request.
func (h *AuthHandler) CurrentUser(ctx context.Context, in AuthInput) (*models.User, error) {
	userID, err := h.Authorize(ctx, in)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, huma.Error404NotFound("User not found")
	}
	return &user, nil
}

type MeOutput struct {
	Body struct {
		ID        uint   `json:"id"`
		DiscordID string `json:"discord_id"`
		Username  string `json:"username"`
		Email     string `json:"email"`
		Avatar    string `json:"avatar"`
	}
}

func (h *AuthHandler) HandleMe(ctx context.Context, input *AuthInput) (*MeOutput, error) {
	user, err := h.CurrentUser(ctx, *input)
	if err != nil {
		return nil, err
	}
	out := &MeOutput{}
	out.Body.ID = user.ID
	out.Body.DiscordID = user.DiscordID
	out.Body.Username = user.Username
	out.Body.Email = user.Email
	out.Body.Avatar = user.Avatar
	return out, nil
}
