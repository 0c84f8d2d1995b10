package models

import (
	"time"
)

// RegistrationType is the persisted discriminator of a registrant.
type RegistrationType int

const (
	TypeParticipant RegistrationType = 1
	TypeLeader      RegistrationType = 2
	TypeGuest       RegistrationType = 3
)

func (t RegistrationType) String() string {
	switch t {
	case TypeLeader:
		return "leader"
	case TypeGuest:
		return "guest"
	default:
		return "participant"
	}
}

const (
	GenderMale   = "M"
	GenderFemale = "F"
)

type Registrant struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	FirstName      string           `gorm:"not null" json:"first_name"`
	LastName       string           `gorm:"not null" json:"last_name"`
	Email          string           `gorm:"not null" json:"email"`
	EmailKey       string           `gorm:"not null;uniqueIndex" json:"-"`
	BirthDate      time.Time        `gorm:"type:date;not null" json:"birth_date"`
	Gender         string           `gorm:"size:1;not null" json:"gender"`
	Type           RegistrationType `gorm:"not null;index" json:"type"`
	YouthGroupID   *uint            `json:"youth_group_id"`
	YouthGroupName string           `json:"youth_group_name"`
	FirstTime      bool             `json:"first_time"`
	Note           string           `gorm:"type:text" json:"note"`
	Consent        bool             `gorm:"not null" json:"consent"`
	CreatedAt      time.Time        `json:"created_at"`

	Activities    []RegistrantActivity     `gorm:"foreignKey:RegistrantID;constraint:OnDelete:CASCADE" json:"-"`
	Allergies     []RegistrantAllergy      `gorm:"foreignKey:RegistrantID;constraint:OnDelete:CASCADE" json:"-"`
	Accommodation *RegistrantAccommodation `gorm:"foreignKey:RegistrantID;constraint:OnDelete:CASCADE" json:"-"`
}

type RegistrantActivity struct {
	RegistrantID uint     `gorm:"primaryKey"`
	ActivityID   uint     `gorm:"primaryKey;index"`
	Activity     Activity `gorm:"foreignKey:ActivityID"`
}

type RegistrantAllergy struct {
	RegistrantID uint    `gorm:"primaryKey"`
	AllergyID    uint    `gorm:"primaryKey;index"`
	Allergy      Allergy `gorm:"foreignKey:AllergyID"`
}

// RegistrantAccommodation is keyed by registrant, one room per person.
type RegistrantAccommodation struct {
	RegistrantID    uint          `gorm:"primaryKey"`
	AccommodationID uint          `gorm:"not null;index"`
	Accommodation   Accommodation `gorm:"foreignKey:AccommodationID"`
}
