package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AppointmentStatus string

const (
	StatusPending     AppointmentStatus = "Pending"
	StatusTranscribed AppointmentStatus = "Transcribed"
	StatusCompleted   AppointmentStatus = "Completed"
)

var statusRank = map[AppointmentStatus]int{
	StatusPending:     0,
	StatusTranscribed: 1,
	StatusCompleted:   2,
}

func (s AppointmentStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransition reports whether status may move from s to next. Status never moves backwards;
// staying in the same status is allowed so a completed visit can be re-recorded.
func (s AppointmentStatus) CanTransition(next AppointmentStatus) bool {
	from, ok := statusRank[s]
	if !ok {
		// documents written before status existed behave as pending
		from = 0
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to >= from
}

type Appointment struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Doctor       primitive.ObjectID `json:"doctor" bson:"doctor"`
	Patient      primitive.ObjectID `json:"patient" bson:"patient"`
	Title        string             `json:"title" bson:"title"`
	Date         time.Time          `json:"date" bson:"date"`
	Weight       *float64           `json:"weight,omitempty" bson:"weight,omitempty"`
	Height       *float64           `json:"height,omitempty" bson:"height,omitempty"`
	RecordingURL string             `json:"recordingUrl,omitempty" bson:"recordingUrl,omitempty"`
	Transcript   string             `json:"transcript,omitempty" bson:"transcript,omitempty"`
	ConsultNote  string             `json:"consultNote,omitempty" bson:"consultNote,omitempty"`
	Status       AppointmentStatus  `json:"status" bson:"status"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`

	PatientDetails *Patient `json:"patientDetails,omitempty" bson:"-"`
}

type AppointmentInput struct {
	PatientID string `json:"patientId" binding:"required"`
	Title     string `json:"title"`
	Date      string `json:"date" binding:"required"`
}

type AppointmentUpdate struct {
	ConsultNote *string     `json:"consultNote"`
	Title       *string     `json:"title"`
	Date        *string     `json:"date"`
	Weight      Measurement `json:"weight"`
	Height      Measurement `json:"height"`
}

// Measurement accepts a number or a numeric string. null or an empty string clears the stored
// value; anything else leaves it alone. Present is false when the key was absent.
// Kept as a value field so that null still reaches UnmarshalJSON.
type Measurement struct {
	Value   float64
	Set     bool
	Clear   bool
	Present bool
}

func (m *Measurement) UnmarshalJSON(data []byte) error {
	m.Present = true
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		m.Clear = true
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			m.Clear = true
			return nil
		}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	m.Value = v
	m.Set = true
	return nil
}
