package models

// Accommodation categories.
const (
	CategoryMale   = "male"
	CategoryFemale = "female"
	CategoryShared = "shared"
	CategoryLeader = "leader"
	CategoryGuest  = "guest"
)

// Activity days. The camp runs activities on three fixed days.
const (
	DayWednesday = "wednesday"
	DayThursday  = "thursday"
	DayFriday    = "friday"
)

var Days = []string{DayWednesday, DayThursday, DayFriday}

// OtherAllergyName names allergy rows created from free-text input. They are
// hidden from the selectable allergy list.
const OtherAllergyName = "Other"

type YouthGroup struct {
	ID   uint   `gorm:"primaryKey" json:"id" yaml:"id"`
	Name string `gorm:"not null" json:"name" yaml:"name"`
}

type Accommodation struct {
	ID       uint   `gorm:"primaryKey" json:"id" yaml:"id"`
	Name     string `gorm:"not null" json:"name" yaml:"name"`
	Capacity int    `gorm:"not null" json:"capacity" yaml:"capacity"`
	Category string `gorm:"size:16;not null;index" json:"category" yaml:"category"`
}

type Activity struct {
	ID       uint   `gorm:"primaryKey" json:"id" yaml:"id"`
	Name     string `gorm:"not null" json:"name" yaml:"name"`
	Day      string `gorm:"size:16;not null;index" json:"day" yaml:"day"`
	Capacity int    `gorm:"not null" json:"capacity" yaml:"capacity"`
}

type Allergy struct {
	ID          uint   `gorm:"primaryKey" json:"id" yaml:"id"`
	Name        string `gorm:"not null" json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description"`
}

// All lists every model in migration order.
func All() []any {
	return []any{
		&User{},
		&APIKey{},
		&YouthGroup{},
		&Accommodation{},
		&Activity{},
		&Allergy{},
		&Registrant{},
		&RegistrantActivity{},
		&RegistrantAllergy{},
		&RegistrantAccommodation{},
	}
}
