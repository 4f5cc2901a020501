// Package repository persists doctors, patients, appointments and chats in MongoDB.
package repository

import (
	"context"
	"fmt"

	"Attentus/config/db"
	"Attentus/config/redis"
	"Attentus/util"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repositories struct {
	Doctors      *Doctors
	Patients     *Patients
	Appointments *Appointments
	Chats        *Chats
}

func New(database *mongo.Database, cache redis.Cache) *Repositories {
	if cache == nil {
		cache = redis.Nop{}
	}
	return &Repositories{
		Doctors:      &Doctors{coll: database.Collection(util.DoctorCollection), cache: cache},
		Patients:     &Patients{coll: database.Collection(util.PatientCollection)},
		Appointments: &Appointments{coll: database.Collection(util.AppointmentCollection)},
		Chats:        &Chats{coll: database.Collection(util.ChatCollection)},
	}
}

// Indexes lists every index the collections rely on, keyed by collection.
func Indexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		util.DoctorCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique")},
		},
		util.PatientCollection: {
			{Keys: bson.D{{Key: "createdBy", Value: 1}}, Options: options.Index().SetName("createdBy")},
		},
		util.AppointmentCollection: {
			{Keys: bson.D{{Key: "doctor", Value: 1}, {Key: "date", Value: 1}}, Options: options.Index().SetName("doctor_date")},
			{Keys: bson.D{{Key: "patient", Value: 1}}, Options: options.Index().SetName("patient")},
		},
		util.ChatCollection: {
			{Keys: bson.D{{Key: "pairKey", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true).SetName("pairKey_unique")},
			{Keys: bson.D{{Key: "participants", Value: 1}, {Key: "updatedAt", Value: -1}}, Options: options.Index().SetName("participants_updatedAt")},
		},
	}
}

/*
* Create the indexes of every collection
* Creating an existing index with the same keys and options is a no-op
 */
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	for name, models := range Indexes() {
		created, err := database.Collection(name).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("while creating indexes on %s: %w", name, err)
		}
		log.Debug().Str("collection", name).Strs("indexes", created).Msg("Indexes ensured")
	}
	return nil
}

// notFound turns a missing document into a NotFound AppError and wraps anything else.
func notFound(err error, message string) error {
	if db.IsNotFound(err) {
		return util.NotFound(message)
	}
	return fmt.Errorf("%s: %w", message, err)
}

func setUpdate(set, unset bson.M) bson.M {
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}
