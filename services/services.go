package services

import (
	"context"
	"io"
	"time"

	"Attentus/clients/notegen"
	"Attentus/clients/push"
	"Attentus/clients/storage"
	"Attentus/config/redis"
	"Attentus/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DoctorRepository interface {
	FindDoctorByID(ctx context.Context, id string) (*models.Doctor, error)
	FindDoctorByEmail(ctx context.Context, email string) (*models.Doctor, error)
	CreateDoctor(ctx context.Context, doctor *models.Doctor) error
	UpdateDoctor(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Doctor, error)
	AddDeviceToken(ctx context.Context, id primitive.ObjectID, token string) error
	RemoveDeviceTokens(ctx context.Context, id primitive.ObjectID, tokens []string) error
	ListDoctors(ctx context.Context) ([]models.Doctor, error)
	FindDoctorsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Doctor, error)
}

type PatientRepository interface {
	CreatePatient(ctx context.Context, patient *models.Patient) error
	FindPatientByID(ctx context.Context, id primitive.ObjectID) (*models.Patient, error)
	FindPatientsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Patient, error)
	ListPatientsForDoctor(ctx context.Context, doctorID primitive.ObjectID, linked []primitive.ObjectID) ([]models.Patient, error)
	UpdatePatient(ctx context.Context, id primitive.ObjectID, set, unset bson.M) (*models.Patient, error)
	DeletePatient(ctx context.Context, id primitive.ObjectID) error
}

type AppointmentRepository interface {
	CreateAppointment(ctx context.Context, appointment *models.Appointment) error
	FindAppointmentByID(ctx context.Context, id primitive.ObjectID) (*models.Appointment, error)
	ListAppointments(ctx context.Context, doctorID primitive.ObjectID, from, to *time.Time) ([]models.Appointment, error)
	ListAppointmentsForPatient(ctx context.Context, doctorID, patientID primitive.ObjectID) ([]models.Appointment, error)
	LinkedPatientIDs(ctx context.Context, doctorID primitive.ObjectID) ([]primitive.ObjectID, error)
	HasAppointmentWithPatient(ctx context.Context, doctorID, patientID primitive.ObjectID) (bool, error)
	UpdateAppointment(ctx context.Context, id primitive.ObjectID, set, unset bson.M) (*models.Appointment, error)
	DeleteAppointment(ctx context.Context, id primitive.ObjectID) error
}

type ChatRepository interface {
	FindOrCreateChat(ctx context.Context, a, b primitive.ObjectID, now time.Time) (*models.Chat, error)
	FindChatByID(ctx context.Context, id primitive.ObjectID) (*models.Chat, error)
	ListChatsForDoctor(ctx context.Context, doctorID primitive.ObjectID) ([]models.Chat, error)
	AppendMessage(ctx context.Context, id primitive.ObjectID, msg models.Message) (*models.Chat, error)
}

type BlobStore interface {
	Upload(ctx context.Context, path, contentType string, r io.Reader) (*storage.Object, error)
	Delete(ctx context.Context, path string) error
}

type Transcriber interface {
	Transcribe(ctx context.Context, gcsURI string) (string, error)
}

type NoteGenerator interface {
	Generate(ctx context.Context, req notegen.Request) (string, error)
}

// Notifier returns the tokens that should be forgotten.
type Notifier interface {
	Send(ctx context.Context, n push.Notification) ([]string, error)
}

// Upload is a file received from a multipart form.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type Services struct {
	Doctors      DoctorRepository
	Patients     PatientRepository
	Appointments AppointmentRepository
	Chats        ChatRepository
	Blobs        BlobStore
	Transcriber  Transcriber
	Notes        NoteGenerator
	Notifier     Notifier
	Cache        redis.Cache

	MaxAudioBytes   int64
	PipelineTimeout time.Duration
	Now             func() time.Time
}

func (s *Services) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Services) cache() redis.Cache {
	if s.Cache == nil {
		return redis.Nop{}
	}
	return s.Cache
}
