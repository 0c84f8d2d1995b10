package catalog

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"github.com/youthcamp/registration-api/internal/models"
	"gorm.io/gorm"
)

const (
	DefaultExpiration      = 5 * time.Minute
	DefaultCleanupInterval = 10 * time.Minute
)

const (
	keyYouthGroups = "youth_groups"
	keyAllergies   = "allergies"
)

// Option is a selectable entry of a reference list.
type Option struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// Catalog serves the reference lists of the form. They change only when the
// seed is reapplied, so results are cached and a reseed shows up once they
// expire.
type Catalog struct {
	db    *gorm.DB
	cache *gocache.Cache
}

func New(db *gorm.DB, expiration time.Duration) *Catalog {
	return &Catalog{
		db:    db,
		cache: gocache.New(expiration, DefaultCleanupInterval),
	}
}

func (c *Catalog) YouthGroups(ctx context.Context) ([]Option, error) {
	return c.cached(keyYouthGroups, func() ([]Option, error) {
		out := []Option{}
		err := c.db.WithContext(ctx).Model(&models.YouthGroup{}).
			Select("id, name").Order("name, id").Scan(&out).Error
		return out, err
	})
}

// Allergies lists the selectable allergies. Rows created from free-text input
// are left out.
func (c *Catalog) Allergies(ctx context.Context) ([]Option, error) {
	return c.cached(keyAllergies, func() ([]Option, error) {
		out := []Option{}
		err := c.db.WithContext(ctx).Model(&models.Allergy{}).
			Select("id, name").Where("name <> ?", models.OtherAllergyName).Order("id").Scan(&out).Error
		return out, err
	})
}

func (c *Catalog) cached(key string, load func() ([]Option, error)) ([]Option, error) {
	if v, found := c.cache.Get(key); found {
		if opts, ok := v.([]Option); ok {
			return opts, nil
		}
		log.Error().Str("key", key).Msg("wrong type in catalog cache")
	}

	opts, err := load()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	c.cache.SetDefault(key, opts)
	return opts, nil
}
