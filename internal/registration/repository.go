package registration

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/youthcamp/registration-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Receipt describes a committed registration with its selections resolved to
// names, as needed by confirmations.
type Receipt struct {
	ID            uint
	FirstName     string
	LastName      string
	Email         string
	BirthDate     time.Time
	Gender        string
	Type          models.RegistrationType
	YouthGroup    string
	Accommodation string
	Activities    []ReceiptActivity
	Allergies     []string
	FirstTime     bool
	Note          string
	CreatedAt     time.Time
}

type ReceiptActivity struct {
	Day  string
	Name string
}

func (r Receipt) FullName() string {
	return r.FirstName + " " + r.LastName
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Register stores a validated registration and all of its links in one
// transaction. It returns ErrDuplicateEmail, ErrCapacityExceeded or
// ErrInvalidSelection (possibly wrapped) for rejected registrations; any
// other error is a persistence failure and nothing was written.
func (r *Repository) Register(ctx context.Context, reg *Registration) (*Receipt, error) {
	var receipt *Receipt
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		receipt, err = register(tx, reg)
		return err
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func register(tx *gorm.DB, reg *Registration) (*Receipt, error) {
	// 1. Fast duplicate check, the unique index below is authoritative
	var existing int64
	if err := tx.Model(&models.Registrant{}).Where("email_key = ?", reg.EmailKey).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if existing > 0 {
		return nil, ErrDuplicateEmail
	}

	// 2. Youth group name
	groupName := reg.YouthGroupName
	if reg.YouthGroupID != nil {
		var group models.YouthGroup
		if err := tx.First(&group, *reg.YouthGroupID).Error; err != nil {
			return nil, notFound(err, "youth group %d does not exist", *reg.YouthGroupID)
		}
		groupName = group.Name
	}

	// 3. Accommodation
	room, err := lockAccommodation(tx, reg)
	if err != nil {
		return nil, err
	}

	// 4. Activities
	activities, err := lockActivities(tx, reg)
	if err != nil {
		return nil, err
	}

	// 5. Allergies
	allergies, err := loadAllergies(tx, reg.AllergyIDs)
	if err != nil {
		return nil, err
	}

	// 6. Registrant
	registrant := models.Registrant{
		FirstName:      reg.FirstName,
		LastName:       reg.LastName,
		Email:          reg.Email,
		EmailKey:       reg.EmailKey,
		BirthDate:      reg.BirthDate,
		Gender:         reg.Gender,
		Type:           reg.Type,
		YouthGroupID:   reg.YouthGroupID,
		YouthGroupName: groupName,
		FirstTime:      reg.FirstTime,
		Note:           reg.Note,
		Consent:        true,
	}
	if err := tx.Omit(clause.Associations).Create(&registrant).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert registrant: %w", err)
	}

	// 7. Links
	if len(activities) > 0 {
		links := make([]models.RegistrantActivity, 0, len(activities))
		for _, a := range activities {
			links = append(links, models.RegistrantActivity{RegistrantID: registrant.ID, ActivityID: a.ID})
		}
		if err := tx.Omit(clause.Associations).Create(&links).Error; err != nil {
			return nil, fmt.Errorf("insert activity links: %w", err)
		}
	}

	allergyNames := make([]string, 0, len(allergies)+1)
	allergyIDs := make([]uint, 0, len(allergies)+1)
	for _, a := range allergies {
		allergyIDs = append(allergyIDs, a.ID)
		allergyNames = append(allergyNames, a.Name)
	}
	if reg.OtherAllergy != "" {
		custom := models.Allergy{Name: models.OtherAllergyName, Description: reg.OtherAllergy}
		if err := tx.Create(&custom).Error; err != nil {
			return nil, fmt.Errorf("insert custom allergy: %w", err)
		}
		allergyIDs = append(allergyIDs, custom.ID)
		allergyNames = append(allergyNames, custom.Description)
	}
	if len(allergyIDs) > 0 {
		links := make([]models.RegistrantAllergy, 0, len(allergyIDs))
		for _, id := range allergyIDs {
			links = append(links, models.RegistrantAllergy{RegistrantID: registrant.ID, AllergyID: id})
		}
		if err := tx.Omit(clause.Associations).Create(&links).Error; err != nil {
			return nil, fmt.Errorf("insert allergy links: %w", err)
		}
	}

	roomLink := models.RegistrantAccommodation{RegistrantID: registrant.ID, AccommodationID: room.ID}
	if err := tx.Omit(clause.Associations).Create(&roomLink).Error; err != nil {
		return nil, fmt.Errorf("insert accommodation link: %w", err)
	}

	receipt := &Receipt{
		ID:            registrant.ID,
		FirstName:     registrant.FirstName,
		LastName:      registrant.LastName,
		Email:         registrant.Email,
		BirthDate:     registrant.BirthDate,
		Gender:        registrant.Gender,
		Type:          registrant.Type,
		YouthGroup:    groupName,
		Accommodation: room.Name,
		Allergies:     allergyNames,
		FirstTime:     registrant.FirstTime,
		Note:          registrant.Note,
		CreatedAt:     registrant.CreatedAt,
	}
	for _, a := range activities {
		receipt.Activities = append(receipt.Activities, ReceiptActivity{Day: a.Day, Name: a.Name})
	}
	return receipt, nil
}

// lockAccommodation loads the room under a row lock and checks that the
// registrant may use it and that a bed is free.
func lockAccommodation(tx *gorm.DB, reg *Registration) (*models.Accommodation, error) {
	var room models.Accommodation
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&room, reg.AccommodationID).Error; err != nil {
		return nil, notFound(err, "accommodation %d does not exist", reg.AccommodationID)
	}

	// Guests are always placed in the configured guest room.
	if reg.Type != models.TypeGuest {
		allowed := VisibleCategories(genderCategory(reg.Gender), reg.Type)
		if !slices.Contains(allowed, room.Category) {
			return nil, fmt.Errorf("%w: accommodation %q is not available for this registration", ErrInvalidSelection, room.Name)
		}
	}

	var taken int64
	if err := tx.Model(&models.RegistrantAccommodation{}).Where("accommodation_id = ?", room.ID).Count(&taken).Error; err != nil {
		return nil, fmt.Errorf("count accommodation: %w", err)
	}
	if taken >= int64(room.Capacity) {
		return nil, fmt.Errorf("%w: accommodation %q is full", ErrCapacityExceeded, room.Name)
	}
	return &room, nil
}

// lockActivities loads the chosen activities under a row lock, ordered by
// day, and checks one activity per day and free slots.
func lockActivities(tx *gorm.DB, reg *Registration) ([]models.Activity, error) {
	if reg.Type == models.TypeGuest || len(reg.ActivityIDs) == 0 {
		return nil, nil
	}

	var activities []models.Activity
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id IN ?", reg.ActivityIDs).Order("id").Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("load activities: %w", err)
	}
	if len(activities) != len(reg.ActivityIDs) {
		return nil, fmt.Errorf("%w: unknown activity", ErrInvalidSelection)
	}

	days := make(map[string]bool, len(activities))
	for _, a := range activities {
		if days[a.Day] {
			return nil, fmt.Errorf("%w: more than one activity on %s", ErrInvalidSelection, a.Day)
		}
		days[a.Day] = true
	}

	for _, a := range activities {
		var taken int64
		if err := tx.Model(&models.RegistrantActivity{}).Where("activity_id = ?", a.ID).Count(&taken).Error; err != nil {
			return nil, fmt.Errorf("count activity: %w", err)
		}
		if taken >= int64(a.Capacity) {
			return nil, fmt.Errorf("%w: activity %q is full", ErrCapacityExceeded, a.Name)
		}
	}

	slices.SortStableFunc(activities, func(a, b models.Activity) int {
		return dayIndex(a.Day) - dayIndex(b.Day)
	})
	return activities, nil
}

func loadAllergies(tx *gorm.DB, ids []uint) ([]models.Allergy, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var allergies []models.Allergy
	if err := tx.Where("id IN ? AND name <> ?", ids, models.OtherAllergyName).Order("id").Find(&allergies).Error; err != nil {
		return nil, fmt.Errorf("load allergies: %w", err)
	}
	if len(allergies) != len(ids) {
		return nil, fmt.Errorf("%w: unknown allergy", ErrInvalidSelection)
	}
	return allergies, nil
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: "+format, append([]any{ErrInvalidSelection}, args...)...)
	}
	return fmt.Errorf("lookup: %w", err)
}

func dayIndex(day string) int {
	return slices.Index(models.Days, day)
}

// ExportRow is one registrant flattened for spreadsheets.
type ExportRow struct {
	ID            uint      `json:"id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Email         string    `json:"email"`
	BirthDate     string    `json:"birth_date"`
	Gender        string    `json:"gender"`
	Type          string    `json:"type"`
	YouthGroup    string    `json:"youth_group"`
	Accommodation string    `json:"accommodation"`
	Wednesday     string    `json:"wednesday"`
	Thursday      string    `json:"thursday"`
	Friday        string    `json:"friday"`
	Allergies     string    `json:"allergies"`
	FirstTime     bool      `json:"first_time"`
	Note          string    `json:"note"`
	CreatedAt     time.Time `json:"created_at"`
}

// Export returns every registrant ordered by id.
func (r *Repository) Export(ctx context.Context) ([]ExportRow, error) {
	var registrants []models.Registrant
	err := r.db.WithContext(ctx).
		Preload("Activities.Activity").
		Preload("Allergies.Allergy").
		Preload("Accommodation.Accommodation").
		Order("id").
		Find(&registrants).Error
	if err != nil {
		return nil, fmt.Errorf("export registrations: %w", err)
	}

	rows := make([]ExportRow, 0, len(registrants))
	for _, reg := range registrants {
		row := ExportRow{
			ID:         reg.ID,
			FirstName:  reg.FirstName,
			LastName:   reg.LastName,
			Email:      reg.Email,
			BirthDate:  reg.BirthDate.Format(dateLayout),
			Gender:     reg.Gender,
			Type:       reg.Type.String(),
			YouthGroup: reg.YouthGroupName,
			FirstTime:  reg.FirstTime,
			Note:       reg.Note,
			CreatedAt:  reg.CreatedAt,
		}
		if reg.Accommodation != nil {
			row.Accommodation = reg.Accommodation.Accommodation.Name
		}
		for _, link := range reg.Activities {
			switch link.Activity.Day {
			case models.DayWednesday:
				row.Wednesday = link.Activity.Name
			case models.DayThursday:
				row.Thursday = link.Activity.Name
			case models.DayFriday:
				row.Friday = link.Activity.Name
			}
		}
		names := make([]string, 0, len(reg.Allergies))
		for _, link := range reg.Allergies {
			if link.Allergy.Name == models.OtherAllergyName && link.Allergy.Description != "" {
				names = append(names, link.Allergy.Description)
				continue
			}
			names = append(names, link.Allergy.Name)
		}
		row.Allergies = strings.Join(names, ", ")
		rows = append(rows, row)
	}
	return rows, nil
}
