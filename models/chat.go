package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Message struct {
	Sender        primitive.ObjectID  `json:"sender" bson:"sender"`
	Content       string              `json:"content" bson:"content"`
	Timestamp     time.Time           `json:"timestamp" bson:"timestamp"`
	Patient       *primitive.ObjectID `json:"patient,omitempty" bson:"patient,omitempty"`
	Appointment   *primitive.ObjectID `json:"appointment,omitempty" bson:"appointment,omitempty"`
	ConsultNoteID *primitive.ObjectID `json:"consultNoteId,omitempty" bson:"consultNoteId,omitempty"`
}

type Chat struct {
	ID           primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	Participants []primitive.ObjectID `json:"participants" bson:"participants"`
	PairKey      string               `json:"-" bson:"pairKey"`
	Messages     []Message            `json:"messages" bson:"messages"`
	CreatedAt    time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt" bson:"updatedAt"`

	ParticipantDetails []DoctorSummary `json:"participantDetails,omitempty" bson:"-"`
}

// CanonicalPair orders two doctor ids so (a,b) and (b,a) produce the same chat.
func CanonicalPair(a, b primitive.ObjectID) [2]primitive.ObjectID {
	if a.Hex() > b.Hex() {
		a, b = b, a
	}
	return [2]primitive.ObjectID{a, b}
}

func PairKey(a, b primitive.ObjectID) string {
	pair := CanonicalPair(a, b)
	return pair[0].Hex() + ":" + pair[1].Hex()
}

func (c *Chat) HasParticipant(id primitive.ObjectID) bool {
	for _, p := range c.Participants {
		if p == id {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant that is not id.
func (c *Chat) OtherParticipant(id primitive.ObjectID) (primitive.ObjectID, bool) {
	for _, p := range c.Participants {
		if p != id {
			return p, true
		}
	}
	return primitive.NilObjectID, false
}

type ChatInput struct {
	DoctorID string `json:"doctorId" binding:"required"`
}

type MessageInput struct {
	Content       string `json:"content"`
	PatientID     string `json:"patientId"`
	AppointmentID string `json:"appointmentId"`
	ConsultNoteID string `json:"consultNoteId"`
}
