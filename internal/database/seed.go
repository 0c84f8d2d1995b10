package database

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/youthcamp/registration-api/internal/models"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedData is the reference data the registration form offers.
type SeedData struct {
	YouthGroups    []models.YouthGroup    `yaml:"youth_groups"`
	Accommodations []models.Accommodation `yaml:"accommodations"`
	Activities     []models.Activity      `yaml:"activities"`
	Allergies      []models.Allergy       `yaml:"allergies"`
}

// SeedFile loads a YAML seed file and applies it.
func SeedFile(ctx context.Context, db *gorm.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	data, err := ParseSeed(f)
	if err != nil {
		return err
	}
	return Seed(ctx, db, data)
}

// ParseSeed decodes and checks a seed document.
func ParseSeed(r io.Reader) (*SeedData, error) {
	var data SeedData
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	for _, a := range data.Accommodations {
		switch a.Category {
		case models.CategoryMale, models.CategoryFemale, models.CategoryShared, models.CategoryLeader, models.CategoryGuest:
		default:
			return nil, fmt.Errorf("accommodation %d: unknown category %q", a.ID, a.Category)
		}
		if a.Capacity < 0 {
			return nil, fmt.Errorf("accommodation %d: negative capacity", a.ID)
		}
	}
	for _, a := range data.Activities {
		if !validDay(a.Day) {
			return nil, fmt.Errorf("activity %d: unknown day %q", a.ID, a.Day)
		}
		if a.Capacity < 0 {
			return nil, fmt.Errorf("activity %d: negative capacity", a.ID)
		}
	}
	return &data, nil
}

// Seed upserts reference rows by id. Existing registrations are untouched.
func Seed(ctx context.Context, db *gorm.DB, data *SeedData) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsert(tx, &data.YouthGroups, len(data.YouthGroups)); err != nil {
			return fmt.Errorf("seed youth groups: %w", err)
		}
		if err := upsert(tx, &data.Accommodations, len(data.Accommodations)); err != nil {
			return fmt.Errorf("seed accommodations: %w", err)
		}
		if err := upsert(tx, &data.Activities, len(data.Activities)); err != nil {
			return fmt.Errorf("seed activities: %w", err)
		}
		if err := checkAllergyIDs(tx, data.Allergies); err != nil {
			return err
		}
		if err := upsert(tx, &data.Allergies, len(data.Allergies)); err != nil {
			return fmt.Errorf("seed allergies: %w", err)
		}
		if tx.Dialector.Name() == "postgres" {
			if err := resetSequences(tx); err != nil {
				return err
			}
		}

		log.Info().
			Int("youth_groups", len(data.YouthGroups)).
			Int("accommodations", len(data.Accommodations)).
			Int("activities", len(data.Activities)).
			Int("allergies", len(data.Allergies)).
			Msg("reference data seeded")
		return nil
	})
}

func upsert(tx *gorm.DB, rows any, n int) error {
	if n == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(rows).Error
}

// checkAllergyIDs rejects seeded allergies whose id belongs to a free-text
// allergy a registrant entered. Upserting them would rewrite that registrant's
// answer.
func checkAllergyIDs(tx *gorm.DB, allergies []models.Allergy) error {
	if len(allergies) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(allergies))
	for _, a := range allergies {
		ids = append(ids, a.ID)
	}

	var taken []uint
	err := tx.Model(&models.Allergy{}).
		Where("id IN ? AND name = ?", ids, models.OtherAllergyName).
		Order("id").
		Pluck("id", &taken).Error
	if err != nil {
		return fmt.Errorf("check allergy ids: %w", err)
	}
	if len(taken) > 0 {
		return fmt.Errorf("seed allergies: ids %v are used by free-text allergies, pick ids above them", taken)
	}
	return nil
}

// resetSequences moves the id sequences past the explicit ids just inserted.
func resetSequences(tx *gorm.DB) error {
	for _, table := range []string{"youth_groups", "accommodations", "activities", "allergies"} {
		q := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE(MAX(id), 1)) FROM %[1]s", table)
		if err := tx.Exec(q).Error; err != nil {
			return fmt.Errorf("reset %s sequence: %w", table, err)
		}
	}
	return nil
}

func validDay(day string) bool {
	for _, d := range models.Days {
		if d == day {
			return true
		}
	}
	return false
}
