package controllers

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"Attentus/clients/notegen"
	"Attentus/clients/storage"
	"Attentus/models"
	"Attentus/util"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore backs every repository interface with maps.
type memStore struct {
	mu           sync.Mutex
	doctors      map[primitive.ObjectID]models.Doctor
	patients     map[primitive.ObjectID]models.Patient
	appointments map[primitive.ObjectID]models.Appointment
	chats        map[primitive.ObjectID]models.Chat
}

func newMemStore() *memStore {
	return &memStore{
		doctors:      map[primitive.ObjectID]models.Doctor{},
		patients:     map[primitive.ObjectID]models.Patient{},
		appointments: map[primitive.ObjectID]models.Appointment{},
		chats:        map[primitive.ObjectID]models.Chat{},
	}
}

func (m *memStore) FindDoctorByID(_ context.Context, id string) (*models.Doctor, error) {
	oid, err := util.ParseObjectID(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[oid]
	if !ok {
		return nil, util.NotFound(util.DOCTOR_NOT_FOUND)
	}
	return &d, nil
}

func (m *memStore) FindDoctorByEmail(_ context.Context, email string) (*models.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.doctors {
		if d.Email == email {
			return &d, nil
		}
	}
	return nil, util.NotFound(util.DOCTOR_NOT_FOUND)
}

func (m *memStore) CreateDoctor(_ context.Context, doctor *models.Doctor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doctor.ID = primitive.NewObjectID()
	m.doctors[doctor.ID] = *doctor
	return nil
}

func (m *memStore) UpdateDoctor(_ context.Context, id primitive.ObjectID, set bson.M) (*models.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.doctors[id]
	if v, ok := set["firstName"].(string); ok {
		d.FirstName = v
	}
	if v, ok := set["signatureUrl"].(string); ok {
		d.SignatureURL = v
	}
	if v, ok := set["password"].(string); ok {
		d.Password = v
	}
	m.doctors[id] = d
	return &d, nil
}

func (m *memStore) AddDeviceToken(_ context.Context, id primitive.ObjectID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.doctors[id]
	d.DeviceTokens = append(d.DeviceTokens, token)
	m.doctors[id] = d
	return nil
}

func (m *memStore) RemoveDeviceTokens(_ context.Context, id primitive.ObjectID, tokens []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.doctors[id]
	kept := d.DeviceTokens[:0]
	for _, t := range d.DeviceTokens {
		drop := false
		for _, s := range tokens {
			drop = drop || s == t
		}
		if !drop {
			kept = append(kept, t)
		}
	}
	d.DeviceTokens = kept
	m.doctors[id] = d
	return nil
}

func (m *memStore) ListDoctors(context.Context) ([]models.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Doctor{}
	for _, d := range m.doctors {
		out = append(out, d)
	}
	return out, nil
}

func (m *memStore) FindDoctorsByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Doctor{}
	for _, id := range ids {
		if d, ok := m.doctors[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memStore) CreatePatient(_ context.Context, patient *models.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	patient.ID = primitive.NewObjectID()
	m.patients[patient.ID] = *patient
	return nil
}

func (m *memStore) FindPatientByID(_ context.Context, id primitive.ObjectID) (*models.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, util.NotFound(util.PATIENT_NOT_FOUND)
	}
	return &p, nil
}

func (m *memStore) FindPatientsByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Patient{}
	for _, id := range ids {
		if p, ok := m.patients[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) ListPatientsForDoctor(_ context.Context, doctorID primitive.ObjectID, _ []primitive.ObjectID) ([]models.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Patient{}
	for _, p := range m.patients {
		if p.CreatedBy == doctorID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) UpdatePatient(_ context.Context, id primitive.ObjectID, set, _ bson.M) (*models.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.patients[id]
	if v, ok := set["firstName"].(string); ok {
		p.FirstName = v
	}
	m.patients[id] = p
	return &p, nil
}

func (m *memStore) DeletePatient(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.patients, id)
	return nil
}

func (m *memStore) CreateAppointment(_ context.Context, a *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = primitive.NewObjectID()
	m.appointments[a.ID] = *a
	return nil
}

func (m *memStore) FindAppointmentByID(_ context.Context, id primitive.ObjectID) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, util.NotFound(util.APPOINTMENT_NOT_FOUND)
	}
	return &a, nil
}

func (m *memStore) ListAppointments(_ context.Context, doctorID primitive.ObjectID, _, _ *time.Time) ([]models.Appointment, error) {
	return m.ListAppointmentsForPatient(context.Background(), doctorID, primitive.NilObjectID)
}

func (m *memStore) ListAppointmentsForPatient(_ context.Context, doctorID, patientID primitive.ObjectID) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Appointment{}
	for _, a := range m.appointments {
		if a.Doctor == doctorID && (patientID.IsZero() || a.Patient == patientID) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) LinkedPatientIDs(_ context.Context, doctorID primitive.ObjectID) ([]primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []primitive.ObjectID
	for _, a := range m.appointments {
		if a.Doctor == doctorID {
			out = append(out, a.Patient)
		}
	}
	return out, nil
}

func (m *memStore) HasAppointmentWithPatient(ctx context.Context, doctorID, patientID primitive.ObjectID) (bool, error) {
	list, err := m.ListAppointmentsForPatient(ctx, doctorID, patientID)
	return len(list) > 0, err
}

func (m *memStore) UpdateAppointment(_ context.Context, id primitive.ObjectID, set, _ bson.M) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, util.NotFound(util.APPOINTMENT_NOT_FOUND)
	}
	if v, ok := set["recordingUrl"].(string); ok {
		a.RecordingURL = v
	}
	if v, ok := set["transcript"].(string); ok {
		a.Transcript = v
	}
	if v, ok := set["consultNote"].(string); ok {
		a.ConsultNote = v
	}
	if v, ok := set["title"].(string); ok {
		a.Title = v
	}
	if v, ok := set["status"].(models.AppointmentStatus); ok {
		a.Status = v
	}
	if v, ok := set["weight"].(float64); ok {
		a.Weight = &v
	}
	m.appointments[id] = a
	return &a, nil
}

func (m *memStore) DeleteAppointment(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.appointments, id)
	return nil
}

func (m *memStore) FindOrCreateChat(_ context.Context, a, b primitive.ObjectID, now time.Time) (*models.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := models.PairKey(a, b)
	for _, c := range m.chats {
		if c.PairKey == key {
			return &c, nil
		}
	}
	pair := models.CanonicalPair(a, b)
	c := models.Chat{
		ID:           primitive.NewObjectID(),
		Participants: []primitive.ObjectID{pair[0], pair[1]},
		PairKey:      key,
		Messages:     []models.Message{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.chats[c.ID] = c
	return &c, nil
}

func (m *memStore) FindChatByID(_ context.Context, id primitive.ObjectID) (*models.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[id]
	if !ok {
		return nil, util.NotFound(util.CHAT_NOT_FOUND)
	}
	return &c, nil
}

func (m *memStore) ListChatsForDoctor(_ context.Context, doctorID primitive.ObjectID) ([]models.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Chat{}
	for _, c := range m.chats {
		if c.HasParticipant(doctorID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) AppendMessage(_ context.Context, id primitive.ObjectID, msg models.Message) (*models.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.chats[id]
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = msg.Timestamp
	m.chats[id] = c
	return &c, nil
}

type memBlobs struct {
	mu      sync.Mutex
	objects map[string]int
}

func (b *memBlobs) Upload(_ context.Context, path, _ string, r io.Reader) (*storage.Object, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[path] = buf.Len()
	return &storage.Object{
		Path:      path,
		PublicURL: storage.PublicURL("test-bucket", path),
		GCSURI:    storage.GCSURI("test-bucket", path),
	}, nil
}

func (b *memBlobs) Delete(_ context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, path)
	return nil
}

type transcribeFunc func(ctx context.Context, gcsURI string) (string, error)

func (f transcribeFunc) Transcribe(ctx context.Context, gcsURI string) (string, error) {
	return f(ctx, gcsURI)
}

type generateFunc func(ctx context.Context, req notegen.Request) (string, error)

func (f generateFunc) Generate(ctx context.Context, req notegen.Request) (string, error) {
	return f(ctx, req)
}
