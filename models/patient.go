package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	SexMale   = "Male"
	SexFemale = "Female"
	SexOther  = "Other"
)

func ValidSex(sex string) bool {
	switch sex {
	case SexMale, SexFemale, SexOther:
		return true
	}
	return false
}

type ContactInfo struct {
	Phone string `json:"phone,omitempty" bson:"phone,omitempty"`
	Email string `json:"email,omitempty" bson:"email,omitempty" binding:"omitempty,email"`
}

type Patient struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	FirstName   string             `json:"firstName" bson:"firstName"`
	LastName    string             `json:"lastName" bson:"lastName"`
	DateOfBirth time.Time          `json:"dateOfBirth" bson:"dateOfBirth"`
	Sex         string             `json:"sex" bson:"sex"`
	Weight      *float64           `json:"weight,omitempty" bson:"weight,omitempty"`
	Height      *float64           `json:"height,omitempty" bson:"height,omitempty"`
	ContactInfo *ContactInfo       `json:"contactInfo,omitempty" bson:"contactInfo,omitempty"`
	CreatedBy   primitive.ObjectID `json:"createdBy" bson:"createdBy"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

func (p *Patient) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

/*
* Whole years between date of birth and now
* Birthday not reached yet this year takes one year off
 */
func (p *Patient) AgeAt(now time.Time) int {
	if p.DateOfBirth.IsZero() {
		return 0
	}
	dob := p.DateOfBirth.UTC()
	now = now.UTC()
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

type PatientInput struct {
	FirstName   string       `json:"firstName"`
	LastName    string       `json:"lastName"`
	DateOfBirth string       `json:"dateOfBirth"`
	Sex         string       `json:"sex"`
	Weight      *float64     `json:"weight"`
	Height      *float64     `json:"height"`
	ContactInfo *ContactInfo `json:"contactInfo"`
}

// PatientUpdate holds only the fields present in the request body.
type PatientUpdate struct {
	FirstName   *string      `json:"firstName"`
	LastName    *string      `json:"lastName"`
	DateOfBirth *string      `json:"dateOfBirth"`
	Sex         *string      `json:"sex"`
	Weight      *float64     `json:"weight"`
	Height      *float64     `json:"height"`
	ContactInfo *ContactInfo `json:"contactInfo"`
}
