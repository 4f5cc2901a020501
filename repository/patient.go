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

type Patients struct {
	coll *mongo.Collection
}

func (r *Patients) CreatePatient(ctx context.Context, patient *models.Patient) error {
	if patient.ID.IsZero() {
		patient.ID = primitive.NewObjectID()
	}
	_, err := db.CreateOne(ctx, r.coll, patient)
	return err
}

func (r *Patients) FindPatientByID(ctx context.Context, id primitive.ObjectID) (*models.Patient, error) {
	patient := &models.Patient{}
	if err := db.FindOne(ctx, r.coll, bson.M{"_id": id}, patient); err != nil {
		return nil, notFound(err, util.PATIENT_NOT_FOUND)
	}
	return patient, nil
}

func (r *Patients) FindPatientsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Patient, error) {
	patients := []models.Patient{}
	if len(ids) == 0 {
		return patients, nil
	}
	if err := db.FindAll(ctx, r.coll, bson.M{"_id": bson.M{"$in": ids}}, &patients); err != nil {
		return nil, err
	}
	return patients, nil
}

// VisibleFilter matches patients created by doctorID or listed in linked.
func VisibleFilter(doctorID primitive.ObjectID, linked []primitive.ObjectID) bson.M {
	if len(linked) == 0 {
		return bson.M{"createdBy": doctorID}
	}
	return bson.M{"$or": bson.A{
		bson.M{"createdBy": doctorID},
		bson.M{"_id": bson.M{"$in": linked}},
	}}
}

func (r *Patients) ListPatientsForDoctor(ctx context.Context, doctorID primitive.ObjectID, linked []primitive.ObjectID) ([]models.Patient, error) {
	patients := []models.Patient{}
	opts := options.Find().SetSort(bson.D{{Key: "lastName", Value: 1}, {Key: "firstName", Value: 1}})
	if err := db.FindAll(ctx, r.coll, VisibleFilter(doctorID, linked), &patients, opts); err != nil {
		return nil, err
	}
	return patients, nil
}

func (r *Patients) UpdatePatient(ctx context.Context, id primitive.ObjectID, set, unset bson.M) (*models.Patient, error) {
	if set == nil {
		set = bson.M{}
	}
	set["updatedAt"] = time.Now().UTC()
	patient := &models.Patient{}
	if err := db.FindOneAndUpdate(ctx, r.coll, bson.M{"_id": id}, setUpdate(set, unset), patient, false); err != nil {
		return nil, notFound(err, util.PATIENT_NOT_FOUND)
	}
	return patient, nil
}

func (r *Patients) DeletePatient(ctx context.Context, id primitive.ObjectID) error {
	res, err := db.DeleteOne(ctx, r.coll, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return util.NotFound(util.PATIENT_NOT_FOUND)
	}
	return nil
}
