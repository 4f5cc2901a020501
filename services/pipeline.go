package services

import (
	"context"
	"time"

	"Attentus/clients/notegen"
	"Attentus/models"
	"Attentus/util"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	ModeFull       = ""
	ModeTranscribe = "transcribe"

	defaultPipelineTimeout = 15 * time.Minute
	cleanupTimeout         = 30 * time.Second
)

type RecordInput struct {
	Audio  *Upload
	Weight string
	Height string
	Mode   string
}

func (s *Services) pipelineTimeout() time.Duration {
	if s.PipelineTimeout > 0 {
		return s.PipelineTimeout
	}
	return defaultPipelineTimeout
}

// discardBlob removes an uploaded object that nothing will reference. Failures are only logged.
func (s *Services) discardBlob(ctx context.Context, path string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := s.Blobs.Delete(ctx, path); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Error while discarding uploaded object")
		return
	}
	log.Info().Str("path", path).Msg("Discarded uploaded object")
}

func firstMeasurement(override string, values ...*float64) *float64 {
	if v, ok := util.ParseMeasurement(override); ok {
		return &v
	}
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// NoteContext assembles what the note model is told about the visit. Overrides win over the
// appointment snapshot, which wins over the patient's stored vitals.
func NoteContext(doctor *models.Doctor, patient *models.Patient, appointment *models.Appointment, weight, height string, now time.Time) notegen.Context {
	return notegen.Context{
		DoctorName:  doctor.DisplayName(),
		PatientName: patient.DisplayName(),
		Sex:         patient.Sex,
		Age:         patient.AgeAt(now),
		Weight:      firstMeasurement(weight, appointment.Weight, patient.Weight),
		Height:      firstMeasurement(height, appointment.Height, patient.Height),
		Date:        appointment.Date.Format("2006-01-02"),
		Time:        appointment.Date.Format("15:04"),
		Title:       appointment.Title,
	}
}

/*
* Resolve the owned appointment and its patient, check the status may advance
* Upload the audio, transcribe it, generate the note unless only transcription was asked for
* Write every field in one update at the end
* Any failure after the upload removes the uploaded object and leaves the appointment untouched
 */
func (s *Services) RecordAppointment(ctx context.Context, doctor *models.Doctor, id string, in RecordInput) (*models.Appointment, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.pipelineTimeout())
	defer cancel()

	target := models.StatusCompleted
	switch in.Mode {
	case ModeFull:
	case ModeTranscribe:
		target = models.StatusTranscribed
	default:
		return nil, util.Validation("mode must be empty or transcribe")
	}
	if in.Audio == nil || in.Audio.Body == nil || in.Audio.Size == 0 {
		return nil, util.Validation(util.AUDIO_NOT_PROVIDED)
	}
	if s.MaxAudioBytes > 0 && in.Audio.Size > s.MaxAudioBytes {
		return nil, util.Validation(util.FILE_TOO_LARGE)
	}

	appointment, err := s.ownedAppointment(ctx, doctor, id, util.APPOINTMENT_NOT_OWNED)
	if err != nil {
		return nil, err
	}
	patient, err := s.Patients.FindPatientByID(ctx, appointment.Patient)
	if err != nil {
		log.Error().Err(err).Str("appointmentId", id).Msg("Error while resolving appointment patient")
		return nil, err
	}
	if !appointment.Status.CanTransition(target) {
		return nil, util.Validation(util.ILLEGAL_STATUS_TRANSITION)
	}

	now := s.now()
	obj, err := s.Blobs.Upload(ctx, util.ObjectPath(util.RecordingPrefix, in.Audio.Filename, now), in.Audio.ContentType, in.Audio.Body)
	if err != nil {
		log.Error().Err(err).Str("appointmentId", id).Msg("Error while uploading recording")
		return nil, util.NewError(util.KindUploadFailed, "recording upload failed", err)
	}
	committed := false
	defer func() {
		if !committed {
			s.discardBlob(ctx, obj.Path)
		}
	}()

	transcript, err := s.Transcriber.Transcribe(ctx, obj.GCSURI)
	if err != nil {
		log.Error().Err(err).Str("appointmentId", id).Msg("Error from Transcribe")
		if util.KindOf(err) == util.KindInternal {
			err = util.NewError(util.KindTranscriptionFailed, "transcription failed", err)
		}
		return nil, err
	}

	set := bson.M{
		"recordingUrl": obj.PublicURL,
		"transcript":   transcript,
		"status":       target,
	}
	if v, ok := util.ParseMeasurement(in.Weight); ok {
		set["weight"] = v
	}
	if v, ok := util.ParseMeasurement(in.Height); ok {
		set["height"] = v
	}

	if target == models.StatusCompleted {
		note, err := s.Notes.Generate(ctx, notegen.Request{
			Transcript: transcript,
			Template:   doctor.Template,
			Context:    NoteContext(doctor, patient, appointment, in.Weight, in.Height, now),
		})
		if err != nil {
			log.Error().Err(err).Str("appointmentId", id).Msg("Error from Generate")
			if util.KindOf(err) == util.KindInternal {
				err = util.NewError(util.KindNoteGenerationFailed, "consult note generation failed", err)
			}
			return nil, err
		}
		set["consultNote"] = note
	}

	updated, err := s.Appointments.UpdateAppointment(ctx, appointment.ID, set, nil)
	if err != nil {
		log.Error().Err(err).Str("appointmentId", id).Msg("Error while saving recording results")
		return nil, err
	}
	committed = true

	updated.PatientDetails = patient
	log.Info().Str("appointmentId", id).Str("status", string(target)).Msg("Recording processed")
	return updated, nil
}

/*
* Needs a stored transcript
* Generate the note from it and complete the appointment
 */
func (s *Services) RegenerateNote(ctx context.Context, doctor *models.Doctor, id string) (*models.Appointment, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.pipelineTimeout())
	defer cancel()

	appointment, err := s.ownedAppointment(ctx, doctor, id, util.APPOINTMENT_NOT_OWNED)
	if err != nil {
		return nil, err
	}
	if appointment.Transcript == "" || appointment.Status == models.StatusPending {
		return nil, util.Validation(util.TRANSCRIPT_NOT_AVAILABLE)
	}
	patient, err := s.Patients.FindPatientByID(ctx, appointment.Patient)
	if err != nil {
		log.Error().Err(err).Str("appointmentId", id).Msg("Error while resolving appointment patient")
		return nil, err
	}

	note, err := s.Notes.Generate(ctx, notegen.Request{
		Transcript: appointment.Transcript,
		Template:   doctor.Template,
		Context:    NoteContext(doctor, patient, appointment, "", "", s.now()),
	})
	if err != nil {
		log.Error().Err(err).Str("appointmentId", id).Msg("Error from Generate")
		if util.KindOf(err) == util.KindInternal {
			err = util.NewError(util.KindNoteGenerationFailed, "consult note generation failed", err)
		}
		return nil, err
	}

	updated, err := s.Appointments.UpdateAppointment(ctx, appointment.ID, bson.M{
		"consultNote": note,
		"status":      models.StatusCompleted,
	}, nil)
	if err != nil {
		log.Error().Err(err).Str("appointmentId", id).Msg("Error while saving regenerated note")
		return nil, err
	}
	updated.PatientDetails = patient
	return updated, nil
}
