package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/youthcamp/registration-api/internal/auth"
	"github.com/youthcamp/registration-api/internal/models"
	"gorm.io/gorm"
)

// Export keys let a spreadsheet sync or a cron job pull the registration
// export without a browser session. Every key expires.
const (
	defaultKeyValidity = 180
	maxKeyValidity     = 365
)

type APIKeyHandler struct {
	db          *gorm.DB
	authHandler *auth.AuthHandler
	now         func() time.Time
}

func NewAPIKeyHandler(db *gorm.DB, authHandler *auth.AuthHandler) *APIKeyHandler {
	return &APIKeyHandler{db: db, authHandler: authHandler, now: time.Now}
}

// ExportKey describes a stored key. Only its last characters are shown.
type ExportKey struct {
	ID         uint       `json:"id"`
	Name       string     `json:"name"`
	Hint       string     `json:"hint" doc:"Last characters of the key"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
	Expired    bool       `json:"expired"`
}

func (h *APIKeyHandler) exportKey(k models.APIKey) ExportKey {
	return ExportKey{
		ID:         k.ID,
		Name:       k.Name,
		Hint:       "..." + k.Suffix,
		CreatedAt:  k.CreatedAt,
		ExpiresAt:  k.ExpiresAt,
		LastUsedAt: k.LastUsedAt,
		Expired:    k.ExpiresAt != nil && h.now().After(*k.ExpiresAt),
	}
}

type CreateAPIKeyInput struct {
	auth.AuthInput
	Body struct {
		Name      string `json:"name" minLength:"1" maxLength:"100" doc:"What the key is for, e.g. the sheet it feeds"`
		ValidDays int    `json:"valid_days,omitempty" minimum:"1" doc:"Validity in days, default 180"`
	}
}

type CreateAPIKeyOutput struct {
	Body struct {
		ExportKey
		Key string `json:"key" doc:"The key itself, shown only once"`
	}
}

// HandleCreate issues an export key for the signed-in admin and returns it
// once. Only its hash is stored.
func (h *APIKeyHandler) HandleCreate(ctx context.Context, input *CreateAPIKeyInput) (*CreateAPIKeyOutput, error) {
	userID, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}

	days := input.Body.ValidDays
	if days == 0 {
		days = defaultKeyValidity
	}
	if days > maxKeyValidity {
		return nil, newAPIError(http.StatusBadRequest, "valid_days is too long")
	}
	expires := h.now().AddDate(0, 0, days)

	key, hash, err := auth.NewAPIKey()
	if err != nil {
		return nil, serverError(err, "Failed to generate key")
	}
	stored := models.APIKey{
		UserID:    userID,
		KeyHash:   hash,
		Suffix:    key[len(key)-4:],
		Name:      input.Body.Name,
		ExpiresAt: &expires,
	}
	if err := h.db.WithContext(ctx).Create(&stored).Error; err != nil {
		return nil, serverError(err, "Failed to create API key")
	}
	log.Info().Uint("user_id", userID).Uint("key_id", stored.ID).Str("name", stored.Name).Msg("export key issued")

	out := &CreateAPIKeyOutput{}
	out.Body.ExportKey = h.exportKey(stored)
	out.Body.Key = key
	return out, nil
}

type ListAPIKeysInput struct {
	auth.AuthInput
}

type ListAPIKeysOutput struct {
	Body struct {
		Success bool        `json:"success"`
		Data    []ExportKey `json:"data"`
	}
}

// HandleList shows the admin's own keys, newest first, expired ones included.
func (h *APIKeyHandler) HandleList(ctx context.Context, input *ListAPIKeysInput) (*ListAPIKeysOutput, error) {
	userID, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}

	var keys []models.APIKey
	if err := h.db.WithContext(ctx).Where("user_id = ?", userID).Order("id DESC").Find(&keys).Error; err != nil {
		return nil, serverError(err, "Failed to list API keys")
	}

	out := &ListAPIKeysOutput{}
	out.Body.Success = true
	out.Body.Data = make([]ExportKey, 0, len(keys))
	for _, k := range keys {
		out.Body.Data = append(out.Body.Data, h.exportKey(k))
	}
	return out, nil
}

type DeleteAPIKeyInput struct {
	auth.AuthInput
	ID uint `path:"id"`
}

// HandleDelete revokes one of the admin's keys.
func (h *APIKeyHandler) HandleDelete(ctx context.Context, input *DeleteAPIKeyInput) (*struct{}, error) {
	userID, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}

	res := h.db.WithContext(ctx).Where("id = ? AND user_id = ?", input.ID, userID).Delete(&models.APIKey{})
	if res.Error != nil {
		return nil, serverError(res.Error, "Failed to revoke API key")
	}
	if res.RowsAffected == 0 {
		return nil, newAPIError(http.StatusNotFound, "API key not found")
	}
	log.Info().Uint("user_id", userID).Uint("key_id", input.ID).Msg("export key revoked")
	return nil, nil
}
