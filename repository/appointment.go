package repository

import (
	"context"
	"time"

	"Attentus/config/db"
	"Attentus/models"
	"Attentus/util"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Appointments are not cached: the recording pipeline rewrites them while clients poll.
type Appointments struct {
	coll *mongo.Collection
}

func (r *Appointments) CreateAppointment(ctx context.Context, appointment *models.Appointment) error {
	if appointment.ID.IsZero() {
		appointment.ID = primitive.NewObjectID()
	}
	_, err := db.CreateOne(ctx, r.coll, appointment)
	return err
}

func (r *Appointments) FindAppointmentByID(ctx context.Context, id primitive.ObjectID) (*models.Appointment, error) {
	appointment := &models.Appointment{}
	if err := db.FindOne(ctx, r.coll, bson.M{"_id": id}, appointment); err != nil {
		return nil, notFound(err, util.APPOINTMENT_NOT_FOUND)
	}
	return appointment, nil
}

// ListFilter scopes to doctorID and, when both bounds are set, to dates within [from, to].
func ListFilter(doctorID primitive.ObjectID, from, to *time.Time) bson.M {
	filter := bson.M{"doctor": doctorID}
	if from != nil && to != nil {
		filter["date"] = bson.M{"$gte": *from, "$lte": *to}
	}
	return filter
}

func (r *Appointments) ListAppointments(ctx context.Context, doctorID primitive.ObjectID, from, to *time.Time) ([]models.Appointment, error) {
	appointments := []models.Appointment{}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	if err := db.FindAll(ctx, r.coll, ListFilter(doctorID, from, to), &appointments, opts); err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *Appointments) ListAppointmentsForPatient(ctx context.Context, doctorID, patientID primitive.ObjectID) ([]models.Appointment, error) {
	appointments := []models.Appointment{}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	if err := db.FindAll(ctx, r.coll, bson.M{"doctor": doctorID, "patient": patientID}, &appointments, opts); err != nil {
		return nil, err
	}
	return appointments, nil
}

// LinkedPatientIDs returns the distinct patients referenced by the doctor's appointments.
func (r *Appointments) LinkedPatientIDs(ctx context.Context, doctorID primitive.ObjectID) ([]primitive.ObjectID, error) {
	values, err := r.coll.Distinct(ctx, "patient", bson.M{"doctor": doctorID})
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(values))
	for _, v := range values {
		if oid, ok := v.(primitive.ObjectID); ok {
			ids = append(ids, oid)
		}
	}
	return ids, nil
}

func (r *Appointments) HasAppointmentWithPatient(ctx context.Context, doctorID, patientID primitive.ObjectID) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"doctor": doctorID, "patient": patientID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RecordingReferenced reports whether any appointment points at the recording URL.
func (r *Appointments) RecordingReferenced(ctx context.Context, recordingURL string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"recordingUrl": recordingURL}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateAppointment applies set and unset in one update and returns the document after it.
func (r *Appointments) UpdateAppointment(ctx context.Context, id primitive.ObjectID, set, unset bson.M) (*models.Appointment, error) {
	if set == nil {
		set = bson.M{}
	}
	set["updatedAt"] = time.Now().UTC()
	appointment := &models.Appointment{}
	err := db.FindOneAndUpdate(ctx, r.coll, bson.M{"_id": id}, setUpdate(set, unset), appointment, false)
	if err != nil {
		return nil, notFound(err, util.APPOINTMENT_NOT_FOUND)
	}
	return appointment, nil
}

func (r *Appointments) DeleteAppointment(ctx context.Context, id primitive.ObjectID) error {
	res, err := db.DeleteOne(ctx, r.coll, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return util.NotFound(util.APPOINTMENT_NOT_FOUND)
	}
	return nil
}
