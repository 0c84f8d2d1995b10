package registration

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/youthcamp/registration-api/internal/config"
	"github.com/youthcamp/registration-api/internal/database"
	"github.com/youthcamp/registration-api/internal/models"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{MinAge: 14, GuestAccommodationID: 6}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	seedTestDB(t, db)
	return db
}

// newFileTestDB opens a SQLite file with a real connection pool, so
// transactions from different goroutines overlap.
func newFileTestDB(t *testing.T, conns int) *gorm.DB {
	t.Helper()
	db, err := database.Connect(&config.Config{
		DatabaseDriver: "sqlite",
		DatabasePath:   filepath.Join(t.TempDir(), "camp.db"),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(conns)
	t.Cleanup(func() { sqlDB.Close() })

	seedTestDB(t, db)
	return db
}

func seedTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, database.Seed(context.Background(), db, &database.SeedData{
		YouthGroups: []models.YouthGroup{
			{ID: 1, Name: "Bratislava"},
			{ID: 2, Name: "Nitra"},
			{ID: 3, Name: "Košice"},
		},
		Accommodations: []models.Accommodation{
			{ID: 1, Name: "Boys A", Capacity: 1, Category: models.CategoryMale},
			{ID: 2, Name: "Girls A", Capacity: 4, Category: models.CategoryFemale},
			{ID: 5, Name: "Leaders", Capacity: 3, Category: models.CategoryLeader},
			{ID: 6, Name: "Guests", Capacity: 30, Category: models.CategoryGuest},
			{ID: 7, Name: "Tent", Capacity: 10, Category: models.CategoryShared},
		},
		Activities: []models.Activity{
			{ID: 1, Name: "Football", Day: models.DayWednesday, Capacity: 20},
			{ID: 2, Name: "Pottery", Day: models.DayWednesday, Capacity: 1},
			{ID: 3, Name: "Hiking", Day: models.DayThursday, Capacity: 20},
			{ID: 4, Name: "Volleyball", Day: models.DayThursday, Capacity: 20},
			{ID: 5, Name: "Cooking", Day: models.DayFriday, Capacity: 20},
		},
		Allergies: []models.Allergy{
			{ID: 1, Name: "Gluten"},
			{ID: 2, Name: "Lactose"},
		},
	}))
}

// janSubmission is a valid participant form.
func janSubmission() Submission {
	return Submission{
		FirstName:       "Ján",
		LastName:        "Novák",
		Email:           "jan@example.com",
		BirthDate:       "2005-03-01",
		Gender:          "male",
		Type:            "participant",
		YouthGroupID:    "3",
		AccommodationID: "7",
		ActivityIDs:     []string{"1", "4"},
		Consent:         true,
	}
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

type recordingDispatcher struct {
	receipts []Receipt
}

func (d *recordingDispatcher) Dispatch(r Receipt) {
	d.receipts = append(d.receipts, r)
}

type staticAccess struct {
	err error
}

func (a staticAccess) Check(models.RegistrationType, string, string) error {
	return a.err
}
