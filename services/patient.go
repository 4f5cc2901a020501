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

func parseDateOfBirth(raw string, now time.Time) (time.Time, error) {
	dob, err := util.ParseDate(raw)
	if err != nil {
		return time.Time{}, err
	}
	if dob.After(now) {
		return time.Time{}, util.Validation(util.DATE_OF_BIRTH_IN_FUTURE)
	}
	return dob, nil
}

func validMeasurement(v *float64) bool {
	return v == nil || *v > 0
}

/*
* Names, date of birth and sex are required
* Weight and height must be positive when given
* The requesting doctor becomes the creator
 */
func (s *Services) CreatePatient(ctx context.Context, doctor *models.Doctor, in models.PatientInput) (*models.Patient, error) {
	first, last := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if first == "" || last == "" {
		return nil, util.Validation(util.NAME_NOT_PROVIDED)
	}
	now := s.now()
	dob, err := parseDateOfBirth(in.DateOfBirth, now)
	if err != nil {
		return nil, err
	}
	if !models.ValidSex(in.Sex) {
		return nil, util.Validation(util.INVALID_SEX)
	}
	if !validMeasurement(in.Weight) || !validMeasurement(in.Height) {
		return nil, util.Validation(util.INVALID_MEASUREMENT)
	}

	patient := &models.Patient{
		FirstName:   first,
		LastName:    last,
		DateOfBirth: dob,
		Sex:         in.Sex,
		Weight:      in.Weight,
		Height:      in.Height,
		ContactInfo: in.ContactInfo,
		CreatedBy:   doctor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Patients.CreatePatient(ctx, patient); err != nil {
		log.Error().Err(err).Msg("Error from CreatePatient")
		return nil, err
	}
	return patient, nil
}

// canView applies the visibility rule: the creator, or a doctor with an appointment for the patient.
func (s *Services) canView(ctx context.Context, doctor *models.Doctor, patient *models.Patient) (bool, error) {
	if patient.CreatedBy == doctor.ID {
		return true, nil
	}
	linked, err := s.Appointments.HasAppointmentWithPatient(ctx, doctor.ID, patient.ID)
	if err != nil {
		log.Error().Err(err).Msg("Error from HasAppointmentWithPatient")
		return false, err
	}
	return linked, nil
}

func (s *Services) visiblePatient(ctx context.Context, doctor *models.Doctor, patientID primitive.ObjectID) (*models.Patient, error) {
	patient, err := s.Patients.FindPatientByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	ok, err := s.canView(ctx, doctor, patient)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.Forbidden(util.PATIENT_NOT_VISIBLE)
	}
	return patient, nil
}

func (s *Services) ownedPatient(ctx context.Context, doctor *models.Doctor, id string) (*models.Patient, error) {
	oid, err := util.ParseObjectID(id)
	if err != nil {
		return nil, err
	}
	patient, err := s.Patients.FindPatientByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if patient.CreatedBy != doctor.ID {
		return nil, util.Forbidden(util.PATIENT_NOT_OWNED)
	}
	return patient, nil
}

func (s *Services) GetPatient(ctx context.Context, doctor *models.Doctor, id string) (*models.Patient, error) {
	oid, err := util.ParseObjectID(id)
	if err != nil {
		return nil, err
	}
	return s.visiblePatient(ctx, doctor, oid)
}

// ListPatients returns the patients the doctor created together with those reached through appointments.
func (s *Services) ListPatients(ctx context.Context, doctor *models.Doctor) ([]models.Patient, error) {
	linked, err := s.Appointments.LinkedPatientIDs(ctx, doctor.ID)
	if err != nil {
		log.Error().Err(err).Msg("Error from LinkedPatientIDs")
		return nil, err
	}
	patients, err := s.Patients.ListPatientsForDoctor(ctx, doctor.ID, linked)
	if err != nil {
		log.Error().Err(err).Msg("Error from ListPatientsForDoctor")
		return nil, err
	}
	return patients, nil
}

/*
* Only the creator may update
* Each provided field is validated the same way as on create
 */
func (s *Services) UpdatePatient(ctx context.Context, doctor *models.Doctor, id string, in models.PatientUpdate) (*models.Patient, error) {
	patient, err := s.ownedPatient(ctx, doctor, id)
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	for field, value := range map[string]*string{"firstName": in.FirstName, "lastName": in.LastName} {
		if value == nil {
			continue
		}
		v := strings.TrimSpace(*value)
		if v == "" {
			return nil, util.Validation(util.NAME_NOT_PROVIDED)
		}
		set[field] = v
	}
	if in.DateOfBirth != nil {
		dob, err := parseDateOfBirth(*in.DateOfBirth, s.now())
		if err != nil {
			return nil, err
		}
		set["dateOfBirth"] = dob
	}
	if in.Sex != nil {
		if !models.ValidSex(*in.Sex) {
			return nil, util.Validation(util.INVALID_SEX)
		}
		set["sex"] = *in.Sex
	}
	if !validMeasurement(in.Weight) || !validMeasurement(in.Height) {
		return nil, util.Validation(util.INVALID_MEASUREMENT)
	}
	if in.Weight != nil {
		set["weight"] = *in.Weight
	}
	if in.Height != nil {
		set["height"] = *in.Height
	}
	if in.ContactInfo != nil {
		set["contactInfo"] = in.ContactInfo
	}
	if len(set) == 0 {
		return patient, nil
	}

	updated, err := s.Patients.UpdatePatient(ctx, patient.ID, set, nil)
	if err != nil {
		log.Error().Err(err).Msg("Error from UpdatePatient")
		return nil, err
	}
	return updated, nil
}

// DeletePatient leaves appointments that reference the patient in place.
func (s *Services) DeletePatient(ctx context.Context, doctor *models.Doctor, id string) error {
	patient, err := s.ownedPatient(ctx, doctor, id)
	if err != nil {
		return err
	}
	if err := s.Patients.DeletePatient(ctx, patient.ID); err != nil {
		log.Error().Err(err).Msg("Error from DeletePatient")
		return err
	}
	return nil
}

func (s *Services) PatientAppointments(ctx context.Context, doctor *models.Doctor, id string) ([]models.Appointment, error) {
	oid, err := util.ParseObjectID(id)
	if err != nil {
		return nil, err
	}
	patient, err := s.visiblePatient(ctx, doctor, oid)
	if err != nil {
		return nil, err
	}
	appointments, err := s.Appointments.ListAppointmentsForPatient(ctx, doctor.ID, patient.ID)
	if err != nil {
		log.Error().Err(err).Msg("Error from ListAppointmentsForPatient")
		return nil, err
	}
	for i := range appointments {
		appointments[i].PatientDetails = patient
	}
	return appointments, nil
}
