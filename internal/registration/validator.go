package registration

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/youthcamp/registration-api/internal/config"
	"github.com/youthcamp/registration-api/internal/models"
)

// GuestGroupName is the youth group recorded for every guest.
const GuestGroupName = "Guest"

// OtherYouthGroup is the youth group selection that asks for a free-text name.
const OtherYouthGroup = "other"

const dateLayout = "2006-01-02"

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?)*\.[A-Za-z]{2,}$`)

// Submission is the form as the client sent it. Ids stay strings until
// validated.
type Submission struct {
	FirstName       string
	LastName        string
	Email           string
	BirthDate       string
	Gender          string
	Type            string
	YouthGroupID    string
	YouthGroupOther string
	AccommodationID string
	ActivityIDs     []string
	AllergyIDs      []string
	OtherAllergy    string
	FirstTime       bool
	Note            string
	Consent         bool
	Code            string
	Token           string
}

// Registration is a validated submission ready to be persisted.
type Registration struct {
	FirstName       string
	LastName        string
	Email           string
	EmailKey        string
	BirthDate       time.Time
	Gender          string
	Type            models.RegistrationType
	YouthGroupID    *uint
	YouthGroupName  string
	AccommodationID uint
	ActivityIDs     []uint
	AllergyIDs      []uint
	OtherAllergy    string
	FirstTime       bool
	Note            string
}

// ParseType maps the wire name of a registration type to its discriminator.
// Anything unrecognised is a participant.
func ParseType(s string) models.RegistrationType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "leader":
		return models.TypeLeader
	case "guest":
		return models.TypeGuest
	default:
		return models.TypeParticipant
	}
}

// ParseGender maps male/female to the persisted gender code.
func ParseGender(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male":
		return models.GenderMale, true
	case "female":
		return models.GenderFemale, true
	default:
		return "", false
	}
}

// EmailKey is the form of an address used for duplicate detection.
func EmailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// typeRules validates and fills the fields that depend on the registration
// type.
type typeRules interface {
	apply(s *Submission, r *Registration) []string
}

type Validator struct {
	minAge int
	rules  map[models.RegistrationType]typeRules
	now    func() time.Time
}

func NewValidator(cfg *config.Config) *Validator {
	return &Validator{
		minAge: cfg.MinAge,
		rules: map[models.RegistrationType]typeRules{
			models.TypeParticipant: selectionRules{},
			models.TypeLeader:      selectionRules{},
			models.TypeGuest:       guestRules{accommodationID: cfg.GuestAccommodationID},
		},
		now: time.Now,
	}
}

// WithClock replaces the clock used for the age rule.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

// Validate returns the normalized registration or a *ValidationError listing
// every problem, never both.
func (v *Validator) Validate(s Submission) (*Registration, error) {
	var errs []string
	r := &Registration{
		FirstName: strings.TrimSpace(s.FirstName),
		LastName:  strings.TrimSpace(s.LastName),
		Email:     strings.TrimSpace(s.Email),
		Type:      ParseType(s.Type),
		FirstTime: s.FirstTime,
		Note:      strings.TrimSpace(s.Note),
	}
	r.EmailKey = EmailKey(r.Email)

	// 1. Always required
	if r.FirstName == "" {
		errs = append(errs, "First name is required")
	}
	if r.LastName == "" {
		errs = append(errs, "Last name is required")
	}
	if !s.Consent {
		errs = append(errs, "Consent to personal data processing is required")
	}

	// 2. Email
	switch {
	case r.Email == "":
		errs = append(errs, "Email is required")
	case !emailPattern.MatchString(r.Email):
		errs = append(errs, "Email address is not valid")
	}

	// 3. Birth date and age by calendar year
	birth := strings.TrimSpace(s.BirthDate)
	if birth == "" {
		errs = append(errs, "Birth date is required")
	} else if t, err := time.Parse(dateLayout, birth); err != nil {
		errs = append(errs, "Birth date must be in YYYY-MM-DD format")
	} else {
		r.BirthDate = t
		if v.now().Year()-t.Year() < v.minAge {
			errs = append(errs, fmt.Sprintf("Participants must be at least %d years old", v.minAge))
		}
	}

	// 4. Gender
	if strings.TrimSpace(s.Gender) == "" {
		errs = append(errs, "Gender is required")
	} else if g, ok := ParseGender(s.Gender); ok {
		r.Gender = g
	} else {
		errs = append(errs, "Gender must be male or female")
	}

	// 5. Type-dependent selections
	errs = append(errs, v.rules[r.Type].apply(&s, r)...)

	// Allergies apply to every type
	ids, bad := parseIDs(s.AllergyIDs)
	for _, b := range bad {
		errs = append(errs, fmt.Sprintf("Invalid allergy selection %q", b))
	}
	r.AllergyIDs = ids
	r.OtherAllergy = strings.TrimSpace(s.OtherAllergy)

	if len(errs) > 0 {
		return nil, &ValidationError{Messages: errs}
	}
	return r, nil
}

// selectionRules serves participants and leaders: group, room and at least
// one activity are chosen by the registrant.
type selectionRules struct{}

func (selectionRules) apply(s *Submission, r *Registration) []string {
	var errs []string

	group := strings.TrimSpace(s.YouthGroupID)
	switch {
	case group == "":
		errs = append(errs, "Youth group is required")
	case strings.EqualFold(group, OtherYouthGroup):
		name := strings.TrimSpace(s.YouthGroupOther)
		if name == "" {
			errs = append(errs, "Youth group name is required when other is selected")
		}
		r.YouthGroupName = name
	default:
		id, err := parseID(group)
		if err != nil {
			errs = append(errs, "Invalid youth group selection")
			break
		}
		r.YouthGroupID = &id
	}

	room := strings.TrimSpace(s.AccommodationID)
	if room == "" {
		errs = append(errs, "Accommodation is required")
	} else if id, err := parseID(room); err != nil {
		errs = append(errs, "Invalid accommodation selection")
	} else {
		r.AccommodationID = id
	}

	ids, bad := parseIDs(s.ActivityIDs)
	for _, b := range bad {
		errs = append(errs, fmt.Sprintf("Invalid activity selection %q", b))
	}
	if len(ids) == 0 && len(bad) == 0 {
		errs = append(errs, "At least one activity is required")
	}
	r.ActivityIDs = ids

	return errs
}

// guestRules ignores whatever selections were sent and substitutes the guest
// defaults. The note carries the stay details instead.
type guestRules struct {
	accommodationID uint
}

func (g guestRules) apply(_ *Submission, r *Registration) []string {
	r.YouthGroupID = nil
	r.YouthGroupName = GuestGroupName
	r.AccommodationID = g.accommodationID
	r.ActivityIDs = nil

	if r.Note == "" {
		return []string{"Note is required for guests"}
	}
	return nil
}

func parseID(s string) (uint, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(n), nil
}

// parseIDs returns the distinct numeric ids in order and the entries that
// were not ids. Blank entries are skipped.
func parseIDs(raw []string) (ids []uint, bad []string) {
	seen := make(map[uint]bool, len(raw))
	for _, s := range raw {
		if strings.TrimSpace(s) == "" {
			continue
		}
		id, err := parseID(s)
		if err != nil {
			bad = append(bad, s)
			continue
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, bad
}
