package registration

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/youthcamp/registration-api/internal/metrics"
	"github.com/youthcamp/registration-api/internal/models"
)

// AccessChecker verifies the security code or invitation token that leader
// and guest registrations must present.
type AccessChecker interface {
	Check(typ models.RegistrationType, code, token string) error
}

// Dispatcher receives committed registrations for notification. It must not
// block.
type Dispatcher interface {
	Dispatch(receipt Receipt)
}

type Service struct {
	access     AccessChecker
	validator  *Validator
	repo       *Repository
	dispatcher Dispatcher
	metrics    *metrics.Metrics
}

func NewService(access AccessChecker, validator *Validator, repo *Repository, dispatcher Dispatcher, m *metrics.Metrics) *Service {
	return &Service{
		access:     access,
		validator:  validator,
		repo:       repo,
		dispatcher: dispatcher,
		metrics:    m,
	}
}

// Register runs a submission through access check, validation and the
// repository, then hands the receipt to the dispatcher. Access errors are
// returned as the checker produced them.
func (s *Service) Register(ctx context.Context, sub Submission) (*Receipt, error) {
	typ := ParseType(sub.Type)

	// 1. Access code first, nothing else is reported when it fails
	if typ != models.TypeParticipant {
		if err := s.access.Check(typ, sub.Code, sub.Token); err != nil {
			s.metrics.IncRegistrationFailure("access")
			log.Info().Str("type", typ.String()).Err(err).Msg("registration access denied")
			return nil, err
		}
	}

	// 2. Validate
	reg, err := s.validator.Validate(sub)
	if err != nil {
		s.metrics.IncRegistrationFailure(Reason(err))
		return nil, err
	}

	// 3. Persist
	receipt, err := s.repo.Register(ctx, reg)
	if err != nil {
		reason := Reason(err)
		s.metrics.IncRegistrationFailure(reason)
		if reason == "persistence" {
			log.Error().Err(err).Str("email", reg.EmailKey).Msg("failed to store registration")
		} else {
			log.Info().Err(err).Str("email", reg.EmailKey).Msg("registration rejected")
		}
		return nil, err
	}

	s.metrics.IncRegistration(receipt.Type.String())
	log.Info().Uint("id", receipt.ID).Str("type", receipt.Type.String()).Msg("registration stored")

	// 4. Notify
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(*receipt)
	}
	return receipt, nil
}

// Export returns the admin export rows.
func (s *Service) Export(ctx context.Context) ([]ExportRow, error) {
	return s.repo.Export(ctx)
}
