package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/youthcamp/registration-api/internal/auth"
	"github.com/youthcamp/registration-api/internal/registration"
)

type RegistrationHandler struct {
	service *registration.Service
	guard   *auth.AccessGuard
}

func NewRegistrationHandler(service *registration.Service, guard *auth.AccessGuard) *RegistrationHandler {
	return &RegistrationHandler{service: service, guard: guard}
}

type RegistrationRequest struct {
	Body struct {
		_ struct{} `json:"-" additionalProperties:"true"`

		FirstName       string   `json:"meno,omitempty" doc:"First name"`
		LastName        string   `json:"priezvisko,omitempty" doc:"Last name"`
		Email           string   `json:"email,omitempty" doc:"Email address"`
		BirthDate       string   `json:"datum_narodenia,omitempty" doc:"Birth date, YYYY-MM-DD"`
		Gender          string   `json:"pohlavie,omitempty" doc:"male or female"`
		Type            string   `json:"typ,omitempty" doc:"participant, leader or guest"`
		YouthGroupID    string   `json:"mladez_id,omitempty" doc:"Youth group id or \"other\""`
		YouthGroupOther string   `json:"vlastny_mladez,omitempty" doc:"Youth group name when mladez_id is other"`
		AccommodationID string   `json:"ubytovanie_id,omitempty" doc:"Accommodation id"`
		ActivityIDs     []string `json:"aktivity,omitempty" doc:"Activity ids, at most one per day"`
		AllergyIDs      []string `json:"alergie,omitempty" doc:"Allergy ids"`
		OtherAllergy    string   `json:"vlastne_alergie,omitempty" doc:"Allergies not in the list"`
		FirstTime       bool     `json:"prvy_krat,omitempty" doc:"First time at the camp"`
		Note            string   `json:"poznamka,omitempty" doc:"Note, required for guests"`
		Consent         bool     `json:"gdpr,omitempty" doc:"Consent to personal data processing"`
		Code            string   `json:"code,omitempty" doc:"Security code for leaders and guests"`
		Token           string   `json:"token,omitempty" doc:"Invitation token for leaders and guests"`
	}
}

type RegistrationResponse struct {
	Body struct {
		Success bool `json:"success"`
		ID      uint `json:"id"`
	}
}

func (h *RegistrationHandler) HandleRegister(ctx context.Context, input *RegistrationRequest) (*RegistrationResponse, error) {
	b := input.Body
	receipt, err := h.service.Register(ctx, registration.Submission{
		FirstName:       b.FirstName,
		LastName:        b.LastName,
		Email:           b.Email,
		BirthDate:       b.BirthDate,
		Gender:          b.Gender,
		Type:            b.Type,
		YouthGroupID:    b.YouthGroupID,
		YouthGroupOther: b.YouthGroupOther,
		AccommodationID: b.AccommodationID,
		ActivityIDs:     b.ActivityIDs,
		AllergyIDs:      b.AllergyIDs,
		OtherAllergy:    b.OtherAllergy,
		FirstTime:       b.FirstTime,
		Note:            b.Note,
		Consent:         b.Consent,
		Code:            b.Code,
		Token:           b.Token,
	})
	if err != nil {
		return nil, registrationError(err)
	}

	res := &RegistrationResponse{}
	res.Body.Success = true
	res.Body.ID = receipt.ID
	return res, nil
}

func registrationError(err error) error {
	var verr *registration.ValidationError
	switch {
	case errors.As(err, &verr):
		return newAPIError(http.StatusBadRequest, "Validation failed", verr.Messages...)
	case errors.Is(err, auth.ErrAccessMissing):
		return newAPIError(http.StatusForbidden, err.Error(), err.Error())
	case errors.Is(err, auth.ErrAccessInvalid):
		return newAPIError(http.StatusBadRequest, err.Error(), err.Error())
	case errors.Is(err, registration.ErrDuplicateEmail):
		return newAPIError(http.StatusConflict, registration.ErrDuplicateEmail.Error(), registration.ErrDuplicateEmail.Error())
	case errors.Is(err, registration.ErrCapacityExceeded):
		return newAPIError(http.StatusConflict, err.Error(), err.Error())
	case errors.Is(err, registration.ErrInvalidSelection):
		return newAPIError(http.StatusBadRequest, err.Error(), err.Error())
	default:
		// Logged by the service.
		return newAPIError(http.StatusInternalServerError, "Server error. Please try again later.")
	}
}

type VerifyCodeInput struct {
	Code string `query:"code"`
	Type string `query:"type" doc:"leader or guest"`
}

type VerifyCodeOutput struct {
	Body struct {
		Success bool `json:"success"`
		Valid   bool `json:"valid"`
	}
}

// HandleVerifyCode lets the form check a security code before submitting.
// A missing code or an unknown type reports success false.
func (h *RegistrationHandler) HandleVerifyCode(ctx context.Context, input *VerifyCodeInput) (*VerifyCodeOutput, error) {
	out := &VerifyCodeOutput{}
	if input.Code == "" || (input.Type != "leader" && input.Type != "guest") {
		return out, nil
	}
	out.Body.Success = true
	out.Body.Valid = h.guard.VerifyCode(input.Type, input.Code)
	return out, nil
}
