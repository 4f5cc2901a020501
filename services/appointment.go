package services

import (
	"context"
	"strings"
	"time"

	"Attentus/models"
	"Attentus/util"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	WindowUpcoming = "upcoming"
	windowBehind   = 24 * time.Hour
	windowAhead    = 3 * 24 * time.Hour
)

/*
* The patient must exist and be visible to the doctor
* Title and date are required
* New appointments start Pending with no recording fields
 */
func (s *Services) CreateAppointment(ctx context.Context, doctor *models.Doctor, in models.AppointmentInput) (*models.Appointment, error) {
	patientID, err := util.ParseObjectID(in.PatientID)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, util.Validation(util.TITLE_NOT_PROVIDED)
	}
	date, err := util.ParseDate(in.Date)
	if err != nil {
		return nil, err
	}
	patient, err := s.visiblePatient(ctx, doctor, patientID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	appointment := &models.Appointment{
		Doctor:    doctor.ID,
		Patient:   patient.ID,
		Title:     title,
		Date:      date,
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Appointments.CreateAppointment(ctx, appointment); err != nil {
		log.Error().Err(err).Msg("Error from CreateAppointment")
		return nil, err
	}
	appointment.PatientDetails = patient
	return appointment, nil
}

// ListAppointments returns every appointment of the doctor, or only the [-1d, +3d] window for "upcoming".
func (s *Services) ListAppointments(ctx context.Context, doctor *models.Doctor, window string) ([]models.Appointment, error) {
	var from, to *time.Time
	switch window {
	case "":
	case WindowUpcoming:
		now := s.now()
		f, t := now.Add(-windowBehind), now.Add(windowAhead)
		from, to = &f, &t
	default:
		return nil, util.Validation("window must be empty or upcoming")
	}

	appointments, err := s.Appointments.ListAppointments(ctx, doctor.ID, from, to)
	if err != nil {
		log.Error().Err(err).Msg("Error from ListAppointments")
		return nil, err
	}
	if err := s.populatePatients(ctx, appointments); err != nil {
		return nil, err
	}
	return appointments, nil
}

func (s *Services) populatePatients(ctx context.Context, appointments []models.Appointment) error {
	if len(appointments) == 0 {
		return nil
	}
	seen := map[primitive.ObjectID]bool{}
	var ids []primitive.ObjectID
	for _, a := range appointments {
		if !seen[a.Patient] {
			seen[a.Patient] = true
			ids = append(ids, a.Patient)
		}
	}
	patients, err := s.Patients.FindPatientsByIDs(ctx, ids)
	if err != nil {
		log.Error().Err(err).Msg("Error from FindPatientsByIDs")
		return err
	}
	byID := make(map[primitive.ObjectID]*models.Patient, len(patients))
	for i := range patients {
		byID[patients[i].ID] = &patients[i]
	}
	for i := range appointments {
		appointments[i].PatientDetails = byID[appointments[i].Patient]
	}
	return nil
}

// ownedAppointment loads the appointment and fails with Forbidden unless the doctor owns it.
func (s *Services) ownedAppointment(ctx context.Context, doctor *models.Doctor, id, forbidden string) (*models.Appointment, error) {
	oid, err := util.ParseObjectID(id)
	if err != nil {
		return nil, err
	}
	appointment, err := s.Appointments.FindAppointmentByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if appointment.Doctor != doctor.ID {
		return nil, util.Forbidden(forbidden)
	}
	return appointment, nil
}

func (s *Services) GetAppointment(ctx context.Context, doctor *models.Doctor, id string) (*models.Appointment, error) {
	appointment, err := s.ownedAppointment(ctx, doctor, id, util.APPOINTMENT_NOT_OWNED)
	if err != nil {
		return nil, err
	}
	patient, err := s.Patients.FindPatientByID(ctx, appointment.Patient)
	if err != nil && !util.IsKind(err, util.KindNotFound) {
		log.Error().Err(err).Msg("Error from FindPatientByID")
		return nil, err
	}
	appointment.PatientDetails = patient
	return appointment, nil
}

/*
* Owner only
* Weight and height: a number sets, an empty string clears, anything else is ignored
 */
func (s *Services) UpdateAppointment(ctx context.Context, doctor *models.Doctor, id string, in models.AppointmentUpdate) (*models.Appointment, error) {
	appointment, err := s.ownedAppointment(ctx, doctor, id, util.APPOINTMENT_NOT_OWNED)
	if err != nil {
		return nil, err
	}

	set, unset := bson.M{}, bson.M{}
	if in.ConsultNote != nil {
		set["consultNote"] = *in.ConsultNote
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, util.Validation(util.TITLE_NOT_PROVIDED)
		}
		set["title"] = title
	}
	if in.Date != nil {
		date, err := util.ParseDate(*in.Date)
		if err != nil {
			return nil, err
		}
		set["date"] = date
	}
	applyMeasurement(set, unset, "weight", in.Weight)
	applyMeasurement(set, unset, "height", in.Height)

	if len(set) == 0 && len(unset) == 0 {
		return s.GetAppointment(ctx, doctor, id)
	}

	updated, err := s.Appointments.UpdateAppointment(ctx, appointment.ID, set, unset)
	if err != nil {
		log.Error().Err(err).Msg("Error from UpdateAppointment")
		return nil, err
	}
	patient, err := s.Patients.FindPatientByID(ctx, updated.Patient)
	if err == nil {
		updated.PatientDetails = patient
	}
	return updated, nil
}

func applyMeasurement(set, unset bson.M, field string, m models.Measurement) {
	switch {
	case !m.Present:
	case m.Set:
		set[field] = m.Value
	case m.Clear:
		unset[field] = ""
	}
}

func (s *Services) DeleteAppointment(ctx context.Context, doctor *models.Doctor, id string) error {
	appointment, err := s.ownedAppointment(ctx, doctor, id, util.APPOINTMENT_CANCEL_FORBIDDEN)
	if err != nil {
		return err
	}
	if err := s.Appointments.DeleteAppointment(ctx, appointment.ID); err != nil {
		log.Error().Err(err).Msg("Error from DeleteAppointment")
		return err
	}
	log.Info().Str("appointmentId", appointment.ID.Hex()).Msg("Appointment deleted")
	return nil
}
