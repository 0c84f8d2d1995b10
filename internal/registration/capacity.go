package registration

import (
	"context"
	"fmt"

	"github.com/youthcamp/registration-api/internal/models"
	"gorm.io/gorm"
)

type AccommodationAvailability struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Capacity  int    `json:"capacity"`
	Category  string `json:"category"`
	Remaining int    `json:"remaining"`
}

type ActivityAvailability struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Day       string `json:"day"`
	Capacity  int    `json:"capacity"`
	Remaining int    `json:"remaining"`
}

// CapacityChecker reports remaining places. The lists are advisory: full
// entries are still returned and the repository makes the binding check.
type CapacityChecker struct {
	db *gorm.DB
}

func NewCapacityChecker(db *gorm.DB) *CapacityChecker {
	return &CapacityChecker{db: db}
}

// ListAvailableAccommodations lists the rooms a registrant of the given
// gender ("male" or "female") and type may choose, ordered by id.
func (c *CapacityChecker) ListAvailableAccommodations(ctx context.Context, gender string, typ models.RegistrationType) ([]AccommodationAvailability, error) {
	out := []AccommodationAvailability{}
	err := c.db.WithContext(ctx).
		Model(&models.Accommodation{}).
		Select("accommodations.id, accommodations.name, accommodations.capacity, accommodations.category, " +
			"accommodations.capacity - COUNT(registrant_accommodations.registrant_id) AS remaining").
		Joins("LEFT JOIN registrant_accommodations ON registrant_accommodations.accommodation_id = accommodations.id").
		Where("accommodations.category IN ?", VisibleCategories(gender, typ)).
		Group("accommodations.id, accommodations.name, accommodations.capacity, accommodations.category").
		Order("accommodations.id").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list accommodations: %w", err)
	}
	return out, nil
}

// ListAvailableActivities lists every activity ordered by id.
func (c *CapacityChecker) ListAvailableActivities(ctx context.Context) ([]ActivityAvailability, error) {
	out := []ActivityAvailability{}
	err := c.db.WithContext(ctx).
		Model(&models.Activity{}).
		Select("activities.id, activities.name, activities.day, activities.capacity, " +
			"activities.capacity - COUNT(registrant_activities.registrant_id) AS remaining").
		Joins("LEFT JOIN registrant_activities ON registrant_activities.activity_id = activities.id").
		Group("activities.id, activities.name, activities.day, activities.capacity").
		Order("activities.id").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return out, nil
}

// VisibleCategories returns the room categories open to a registrant.
// Participants get their gender's rooms and shared rooms, leaders also get
// leader rooms, guests only guest rooms.
func VisibleCategories(gender string, typ models.RegistrationType) []string {
	switch typ {
	case models.TypeGuest:
		return []string{models.CategoryGuest}
	case models.TypeLeader:
		return []string{gender, models.CategoryShared, models.CategoryLeader}
	default:
		return []string{gender, models.CategoryShared}
	}
}

// genderCategory maps a persisted gender code to its room category.
func genderCategory(code string) string {
	if code == models.GenderFemale {
		return models.CategoryFemale
	}
	return models.CategoryMale
}
