package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/youthcamp/registration-api/internal/models"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// NewAPIKey returns a random key and the hash to store for it.
func NewAPIKey() (key, hash string, err error) {
	keyBytes := make([]byte, 32)
	if _, err := rand.Read(keyBytes); err != nil {
		return "", "", err
	}
	key = hex.EncodeToString(keyBytes)
	return key, HashKey(key), nil
}

func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func (h *AuthHandler) authorizeKey(ctx context.Context, key string) (uint, error) {
	var keyModel models.APIKey
	db := h.db.WithContext(ctx)
	if err := db.Preload("User").Where("key_hash = ?", HashKey(key)).First(&keyModel).Error; err != nil {
		return 0, errors.New("invalid API key")
	}
	if keyModel.ExpiresAt != nil && time.Now().After(*keyModel.ExpiresAt) {
		return 0, errors.New("API key expired")
	}
	if !keyModel.User.Admin {
		return 0, errors.New("API key owner is not an administrator")
	}

	if err := db.Model(&keyModel).Update("last_used_at", time.Now()).Error; err != nil {
		log.Warn().Err(err).Uint("key_id", keyModel.ID).Msg("failed to record API key use")
	}
	return keyModel.UserID, nil
}

// AuthMiddleware guards plain chi routes with the same credentials as
// Authorize and slides the session cookie forward once it is past half its
// lifetime.
func (h *AuthHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 1. Check for API Key Header
		if apiKey := r.Header.Get("X-API-KEY"); apiKey != "" {
			userID, err := h.authorizeKey(r.Context(), apiKey)
			if err != nil {
				http.Error(w, "Unauthorized: "+err.Error(), http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		// 2. Fallback to JWT Cookie
		cookie, err := r.Cookie(SessionCookie)
		if err != nil {
			if errors.Is(err, http.ErrNoCookie) {
				http.Error(w, "Unauthorized: No token found", http.StatusUnauthorized)
				return
			}
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		userID, exp, err := h.parseSession(cookie.Value)
		if err != nil {
			http.Error(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
			return
		}
		if !h.isAdmin(r.Context(), userID) {
			http.Error(w, "Forbidden: not an administrator", http.StatusForbidden)
			return
		}

		// Sliding session: refresh token if it's more than halfway through its duration
		if !exp.IsZero() && time.Until(exp) < TokenDuration/2 {
			if newToken, err := h.GenerateToken(userID); err == nil {
				http.SetCookie(w, h.sessionCookie(newToken))
			}
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
