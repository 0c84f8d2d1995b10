package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/youthcamp/registration-api/internal/auth"
	"github.com/youthcamp/registration-api/internal/export"
	"github.com/youthcamp/registration-api/internal/registration"
)

const maxInviteTTL = 90 * 24 * time.Hour

type AdminHandler struct {
	service     *registration.Service
	guard       *auth.AccessGuard
	authHandler *auth.AuthHandler
}

func NewAdminHandler(service *registration.Service, guard *auth.AccessGuard, authHandler *auth.AuthHandler) *AdminHandler {
	return &AdminHandler{service: service, guard: guard, authHandler: authHandler}
}

type ExportInput struct {
	auth.AuthInput
}

type ExportOutput struct {
	Body struct {
		Success bool                     `json:"success"`
		Data    []registration.ExportRow `json:"data"`
	}
}

func (h *AdminHandler) HandleExport(ctx context.Context, input *ExportInput) (*ExportOutput, error) {
	if _, err := h.authHandler.Authorize(ctx, input.AuthInput); err != nil {
		return nil, err
	}

	rows, err := h.service.Export(ctx)
	if err != nil {
		return nil, serverError(err, "Failed to export registrations")
	}
	out := &ExportOutput{}
	out.Body.Success = true
	out.Body.Data = rows
	return out, nil
}

// HandleExportCSV serves the export as a spreadsheet download. It sits
// behind AuthMiddleware.
func (h *AdminHandler) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.Export(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to export registrations")
		http.Error(w, "Failed to export registrations", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="registrations-%s.csv"`, time.Now().Format("2006-01-02")))
	if err := export.WriteCSV(w, rows); err != nil {
		log.Error().Err(err).Msg("failed to write CSV export")
	}
}

type CreateAccessTokenInput struct {
	auth.AuthInput
	Body struct {
		Type       string `json:"type" enum:"leader,guest" doc:"Registration type the token unlocks"`
		ValidHours int    `json:"valid_hours,omitempty" minimum:"1" doc:"Validity in hours, default 14 days"`
	}
}

type CreateAccessTokenOutput struct {
	Body struct {
		Success   bool      `json:"success"`
		Token     string    `json:"token"`
		ID        string    `json:"id"`
		Type      string    `json:"type"`
		ExpiresAt time.Time `json:"expires_at"`
	}
}

// HandleCreateAccessToken issues an invitation token that can be sent to a
// leader or guest instead of the shared code.
func (h *AdminHandler) HandleCreateAccessToken(ctx context.Context, input *CreateAccessTokenInput) (*CreateAccessTokenOutput, error) {
	userID, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}

	ttl := 14 * 24 * time.Hour
	if input.Body.ValidHours > 0 {
		ttl = time.Duration(input.Body.ValidHours) * time.Hour
	}
	if ttl > maxInviteTTL {
		return nil, newAPIError(http.StatusBadRequest, "valid_hours is too long")
	}

	token, claims, err := h.guard.IssueToken(input.Body.Type, ttl)
	if err != nil {
		return nil, newAPIError(http.StatusBadRequest, err.Error())
	}
	log.Info().Uint("user_id", userID).Str("type", claims.Type).Str("jti", claims.ID).Msg("invitation token issued")

	out := &CreateAccessTokenOutput{}
	out.Body.Success = true
	out.Body.Token = token
	out.Body.ID = claims.ID
	out.Body.Type = claims.Type
	out.Body.ExpiresAt = claims.ExpiresAt.Time
	return out, nil
}
