package services

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"Attentus/clients/notegen"
	"Attentus/clients/push"
	"Attentus/clients/storage"
	"Attentus/models"
	"Attentus/util"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	_ DoctorRepository      = (*mockDoctors)(nil)
	_ PatientRepository     = (*mockPatients)(nil)
	_ AppointmentRepository = (*mockAppointments)(nil)
	_ ChatRepository        = (*mockChats)(nil)
	_ BlobStore             = (*mockBlobs)(nil)
	_ Transcriber           = (*mockTranscriber)(nil)
	_ NoteGenerator         = (*mockNotes)(nil)
	_ Notifier              = (*mockNotifier)(nil)
)

type mockDoctors struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]models.Doctor
}

func newMockDoctors() *mockDoctors {
	return &mockDoctors{byID: map[primitive.ObjectID]models.Doctor{}}
}

func (m *mockDoctors) put(d models.Doctor) *models.Doctor {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID.IsZero() {
		d.ID = primitive.NewObjectID()
	}
	m.byID[d.ID] = d
	return &d
}

func (m *mockDoctors) FindDoctorByID(_ context.Context, id string) (*models.Doctor, error) {
	oid, err := util.ParseObjectID(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.byID[oid]
	if !ok {
		return nil, util.NotFound(util.DOCTOR_NOT_FOUND)
	}
	d.Password = ""
	return &d, nil
}

func (m *mockDoctors) FindDoctorByEmail(_ context.Context, email string) (*models.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.byID {
		if d.Email == email {
			return &d, nil
		}
	}
	return nil, util.NotFound(util.DOCTOR_NOT_FOUND)
}

func (m *mockDoctors) CreateDoctor(_ context.Context, doctor *models.Doctor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.byID {
		if d.Email == doctor.Email {
			return util.Validation(util.EMAIL_ALREADY_REGISTERED)
		}
	}
	if doctor.ID.IsZero() {
		doctor.ID = primitive.NewObjectID()
	}
	m.byID[doctor.ID] = *doctor
	return nil
}

func (m *mockDoctors) UpdateDoctor(_ context.Context, id primitive.ObjectID, set bson.M) (*models.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.byID[id]
	if !ok {
		return nil, util.NotFound(util.DOCTOR_NOT_FOUND)
	}
	for k, v := range set {
		switch k {
		case "firstName":
			d.FirstName = v.(string)
		case "lastName":
			d.LastName = v.(string)
		case "profession":
			d.Profession = v.(string)
		case "template":
			d.Template = v.(string)
		case "signatureUrl":
			d.SignatureURL = v.(string)
		case "password":
			d.Password = v.(string)
		}
	}
	m.byID[id] = d
	d.Password = ""
	return &d, nil
}

func (m *mockDoctors) AddDeviceToken(_ context.Context, id primitive.ObjectID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.byID[id]
	if !ok {
		return util.NotFound(util.DOCTOR_NOT_FOUND)
	}
	for _, t := range d.DeviceTokens {
		if t == token {
			return nil
		}
	}
	d.DeviceTokens = append(d.DeviceTokens, token)
	m.byID[id] = d
	return nil
}

func (m *mockDoctors) RemoveDeviceTokens(_ context.Context, id primitive.ObjectID, tokens []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.byID[id]
	if !ok {
		return util.NotFound(util.DOCTOR_NOT_FOUND)
	}
	drop := map[string]bool{}
	for _, t := range tokens {
		drop[t] = true
	}
	kept := []string{}
	for _, t := range d.DeviceTokens {
		if !drop[t] {
			kept = append(kept, t)
		}
	}
	d.DeviceTokens = kept
	m.byID[id] = d
	return nil
}

func (m *mockDoctors) ListDoctors(context.Context) ([]models.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Doctor{}
	for _, d := range m.byID {
		d.Password = ""
		out = append(out, d)
	}
	return out, nil
}

func (m *mockDoctors) FindDoctorsByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Doctor{}
	for _, id := range ids {
		if d, ok := m.byID[id]; ok {
			d.Password = ""
			out = append(out, d)
		}
	}
	return out, nil
}

type mockPatients struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]models.Patient
}

func newMockPatients() *mockPatients {
	return &mockPatients{byID: map[primitive.ObjectID]models.Patient{}}
}

func (m *mockPatients) put(p models.Patient) *models.Patient {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	m.byID[p.ID] = p
	return &p
}

func (m *mockPatients) CreatePatient(_ context.Context, patient *models.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if patient.ID.IsZero() {
		patient.ID = primitive.NewObjectID()
	}
	m.byID[patient.ID] = *patient
	return nil
}

func (m *mockPatients) FindPatientByID(_ context.Context, id primitive.ObjectID) (*models.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, util.NotFound(util.PATIENT_NOT_FOUND)
	}
	return &p, nil
}

func (m *mockPatients) FindPatientsByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Patient{}
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPatients) ListPatientsForDoctor(_ context.Context, doctorID primitive.ObjectID, linked []primitive.ObjectID) ([]models.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	isLinked := map[primitive.ObjectID]bool{}
	for _, id := range linked {
		isLinked[id] = true
	}
	out := []models.Patient{}
	for _, p := range m.byID {
		if p.CreatedBy == doctorID || isLinked[p.ID] {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastName < out[j].LastName })
	return out, nil
}

func (m *mockPatients) UpdatePatient(_ context.Context, id primitive.ObjectID, set, _ bson.M) (*models.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, util.NotFound(util.PATIENT_NOT_FOUND)
	}
	for k, v := range set {
		switch k {
		case "firstName":
			p.FirstName = v.(string)
		case "lastName":
			p.LastName = v.(string)
		case "sex":
			p.Sex = v.(string)
		case "dateOfBirth":
			p.DateOfBirth = v.(time.Time)
		case "weight":
			w := v.(float64)
			p.Weight = &w
		case "height":
			h := v.(float64)
			p.Height = &h
		case "contactInfo":
			p.ContactInfo = v.(*models.ContactInfo)
		}
	}
	m.byID[id] = p
	return &p, nil
}

func (m *mockPatients) DeletePatient(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return util.NotFound(util.PATIENT_NOT_FOUND)
	}
	delete(m.byID, id)
	return nil
}

type mockAppointments struct {
	mu          sync.Mutex
	byID        map[primitive.ObjectID]models.Appointment
	updateCalls int
	UpdateFunc  func(id primitive.ObjectID, set, unset bson.M) error
}

func newMockAppointments() *mockAppointments {
	return &mockAppointments{byID: map[primitive.ObjectID]models.Appointment{}}
}

func (m *mockAppointments) put(a models.Appointment) *models.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	m.byID[a.ID] = a
	return &a
}

func (m *mockAppointments) get(id primitive.ObjectID) models.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id]
}

func (m *mockAppointments) CreateAppointment(_ context.Context, a *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	m.byID[a.ID] = *a
	return nil
}

func (m *mockAppointments) FindAppointmentByID(_ context.Context, id primitive.ObjectID) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, util.NotFound(util.APPOINTMENT_NOT_FOUND)
	}
	return &a, nil
}

func (m *mockAppointments) ListAppointments(_ context.Context, doctorID primitive.ObjectID, from, to *time.Time) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Appointment{}
	for _, a := range m.byID {
		if a.Doctor != doctorID {
			continue
		}
		if from != nil && to != nil && (a.Date.Before(*from) || a.Date.After(*to)) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *mockAppointments) ListAppointmentsForPatient(_ context.Context, doctorID, patientID primitive.ObjectID) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Appointment{}
	for _, a := range m.byID {
		if a.Doctor == doctorID && a.Patient == patientID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *mockAppointments) LinkedPatientIDs(_ context.Context, doctorID primitive.ObjectID) ([]primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[primitive.ObjectID]bool{}
	var out []primitive.ObjectID
	for _, a := range m.byID {
		if a.Doctor == doctorID && !seen[a.Patient] {
			seen[a.Patient] = true
			out = append(out, a.Patient)
		}
	}
	return out, nil
}

func (m *mockAppointments) HasAppointmentWithPatient(_ context.Context, doctorID, patientID primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Doctor == doctorID && a.Patient == patientID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAppointments) UpdateAppointment(_ context.Context, id primitive.ObjectID, set, unset bson.M) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.UpdateFunc != nil {
		if err := m.UpdateFunc(id, set, unset); err != nil {
			return nil, err
		}
	}
	a, ok := m.byID[id]
	if !ok {
		return nil, util.NotFound(util.APPOINTMENT_NOT_FOUND)
	}
	for k, v := range set {
		switch k {
		case "title":
			a.Title = v.(string)
		case "date":
			a.Date = v.(time.Time)
		case "consultNote":
			a.ConsultNote = v.(string)
		case "transcript":
			a.Transcript = v.(string)
		case "recordingUrl":
			a.RecordingURL = v.(string)
		case "status":
			a.Status = v.(models.AppointmentStatus)
		case "weight":
			w := v.(float64)
			a.Weight = &w
		case "height":
			h := v.(float64)
			a.Height = &h
		}
	}
	for k := range unset {
		switch k {
		case "weight":
			a.Weight = nil
		case "height":
			a.Height = nil
		}
	}
	m.byID[id] = a
	return &a, nil
}

func (m *mockAppointments) DeleteAppointment(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return util.NotFound(util.APPOINTMENT_NOT_FOUND)
	}
	delete(m.byID, id)
	return nil
}

type mockChats struct {
	mu     sync.Mutex
	byID   map[primitive.ObjectID]models.Chat
	byPair map[string]primitive.ObjectID
}

func newMockChats() *mockChats {
	return &mockChats{byID: map[primitive.ObjectID]models.Chat{}, byPair: map[string]primitive.ObjectID{}}
}

func (m *mockChats) FindOrCreateChat(_ context.Context, a, b primitive.ObjectID, now time.Time) (*models.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := models.PairKey(a, b)
	if id, ok := m.byPair[key]; ok {
		c := m.byID[id]
		return &c, nil
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
	m.byID[c.ID] = c
	m.byPair[key] = c.ID
	return &c, nil
}

func (m *mockChats) FindChatByID(_ context.Context, id primitive.ObjectID) (*models.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, util.NotFound(util.CHAT_NOT_FOUND)
	}
	return &c, nil
}

func (m *mockChats) ListChatsForDoctor(_ context.Context, doctorID primitive.ObjectID) ([]models.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Chat{}
	for _, c := range m.byID {
		if c.HasParticipant(doctorID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *mockChats) AppendMessage(_ context.Context, id primitive.ObjectID, msg models.Message) (*models.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, util.NotFound(util.CHAT_NOT_FOUND)
	}
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = msg.Timestamp
	m.byID[id] = c
	return &c, nil
}

type mockBlobs struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleted   []string
	UploadErr error
}

func newMockBlobs() *mockBlobs {
	return &mockBlobs{objects: map[string][]byte{}}
}

func (m *mockBlobs) Upload(_ context.Context, path, _ string, r io.Reader) (*storage.Object, error) {
	if m.UploadErr != nil {
		return nil, m.UploadErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = buf.Bytes()
	return &storage.Object{
		Path:      path,
		PublicURL: storage.PublicURL("test-bucket", path),
		GCSURI:    storage.GCSURI("test-bucket", path),
	}, nil
}

func (m *mockBlobs) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, path)
	m.deleted = append(m.deleted, path)
	return nil
}

func (m *mockBlobs) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type mockTranscriber struct {
	TranscribeFunc func(ctx context.Context, gcsURI string) (string, error)
	calls          int
}

func (m *mockTranscriber) Transcribe(ctx context.Context, gcsURI string) (string, error) {
	m.calls++
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, gcsURI)
	}
	return "DOCTOR: What brings you in?\nPATIENT: A cough.", nil
}

type mockNotes struct {
	GenerateFunc func(ctx context.Context, req notegen.Request) (string, error)
	last         notegen.Request
	calls        int
}

func (m *mockNotes) Generate(ctx context.Context, req notegen.Request) (string, error) {
	m.calls++
	m.last = req
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return "S: cough\nP: rest", nil
}

type mockNotifier struct {
	mu    sync.Mutex
	sent  []push.Notification
	stale []string
	err   error
}

func (m *mockNotifier) Send(_ context.Context, n push.Notification) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	return m.stale, m.err
}

type fixture struct {
	svc          *Services
	doctors      *mockDoctors
	patients     *mockPatients
	appointments *mockAppointments
	chats        *mockChats
	blobs        *mockBlobs
	transcriber  *mockTranscriber
	notes        *mockNotes
	notifier     *mockNotifier
	now          time.Time
}

func newFixture() *fixture {
	f := &fixture{
		doctors:      newMockDoctors(),
		patients:     newMockPatients(),
		appointments: newMockAppointments(),
		chats:        newMockChats(),
		blobs:        newMockBlobs(),
		transcriber:  &mockTranscriber{},
		notes:        &mockNotes{},
		notifier:     &mockNotifier{},
		now:          time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	f.svc = &Services{
		Doctors:         f.doctors,
		Patients:        f.patients,
		Appointments:    f.appointments,
		Chats:           f.chats,
		Blobs:           f.blobs,
		Transcriber:     f.transcriber,
		Notes:           f.notes,
		Notifier:        f.notifier,
		MaxAudioBytes:   1 << 20,
		PipelineTimeout: time.Minute,
		Now:             func() time.Time { return f.now },
	}
	return f
}

func (f *fixture) doctor(first, last string) *models.Doctor {
	return f.doctors.put(models.Doctor{
		FirstName:  first,
		LastName:   last,
		Email:      first + "@clinic.test",
		Profession: "GP",
		Template:   "S:\nO:\nA:\nP:",
	})
}

func (f *fixture) patient(creator *models.Doctor) *models.Patient {
	w := 70.0
	return f.patients.put(models.Patient{
		FirstName:   "Alan",
		LastName:    "Turing",
		DateOfBirth: time.Date(1980, 6, 23, 0, 0, 0, 0, time.UTC),
		Sex:         models.SexMale,
		Weight:      &w,
		CreatedBy:   creator.ID,
	})
}

func (f *fixture) appointment(doctor *models.Doctor, patient *models.Patient) *models.Appointment {
	return f.appointments.put(models.Appointment{
		Doctor:  doctor.ID,
		Patient: patient.ID,
		Title:   "Annual Checkup",
		Date:    time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		Status:  models.StatusPending,
	})
}

func audio(name string, body string) *Upload {
	return &Upload{
		Filename:    name,
		ContentType: "audio/wav",
		Size:        int64(len(body)),
		Body:        bytes.NewBufferString(body),
	}
}
