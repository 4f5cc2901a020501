package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Doctor struct {
	ID              primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	FirstName       string             `json:"firstName" bson:"firstName"`
	LastName        string             `json:"lastName" bson:"lastName"`
	Email           string             `json:"email" bson:"email"`
	Password        string             `json:"-" bson:"password,omitempty"`
	Profession      string             `json:"profession" bson:"profession"`
	Template        string             `json:"template" bson:"template"`
	VoiceProfileURL string             `json:"voiceProfileUrl,omitempty" bson:"voiceProfileUrl,omitempty"`
	SignatureURL    string             `json:"signatureUrl,omitempty" bson:"signatureUrl,omitempty"`
	DeviceTokens    []string           `json:"-" bson:"deviceTokens,omitempty"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
}

func (d *Doctor) DisplayName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

func (d *Doctor) Summary() DoctorSummary {
	return DoctorSummary{
		ID:         d.ID,
		FirstName:  d.FirstName,
		LastName:   d.LastName,
		Email:      d.Email,
		Profession: d.Profession,
	}
}

// DoctorSummary is the public projection embedded in chat responses.
type DoctorSummary struct {
	ID         primitive.ObjectID `json:"_id" bson:"_id"`
	FirstName  string             `json:"firstName" bson:"firstName"`
	LastName   string             `json:"lastName" bson:"lastName"`
	Email      string             `json:"email" bson:"email"`
	Profession string             `json:"profession" bson:"profession"`
}

// SplitName turns a legacy single name field into first and last name.
func SplitName(name string) (string, string) {
	name = strings.TrimSpace(name)
	first, last, _ := strings.Cut(name, " ")
	return first, strings.TrimSpace(last)
}

// DoctorUpdate carries the editable profile fields. Email is not one of them.
type DoctorUpdate struct {
	FirstName    *string `json:"firstName"`
	LastName     *string `json:"lastName"`
	Profession   *string `json:"profession"`
	Template     *string `json:"template"`
	SignatureURL *string `json:"signatureUrl"`
}

type DeviceToken struct {
	Token string `json:"token" binding:"required"`
}
