package migrations

import (
	"context"
	"fmt"
	"time"

	"Attentus/config/db"
	"Attentus/models"
	"Attentus/util"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type legacyDoctor struct {
	ID   primitive.ObjectID `bson:"_id"`
	Name string             `bson:"name"`
}

func splitNameUpdate(name string, now time.Time) bson.M {
	first, last := models.SplitName(name)
	return bson.M{
		"$set":   bson.M{"firstName": first, "lastName": last, "updatedAt": now},
		"$unset": bson.M{"name": ""},
	}
}

// SplitDoctorName moves the legacy single name field into firstName and lastName.
func SplitDoctorName(ctx context.Context, database *mongo.Database) (int64, error) {
	coll := database.Collection(util.DoctorCollection)
	filter := bson.M{
		"name":      bson.M{"$exists": true},
		"firstName": bson.M{"$exists": false},
	}
	cursor, err := coll.Find(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("while finding legacy doctors: %w", err)
	}
	defer cursor.Close(ctx)

	var updated int64
	for cursor.Next(ctx) {
		var doctor legacyDoctor
		if err := cursor.Decode(&doctor); err != nil {
			log.Error().Err(err).Msg("Error while decoding legacy doctor")
			continue
		}
		res, err := db.UpdateOne(ctx, coll, bson.M{"_id": doctor.ID}, splitNameUpdate(doctor.Name, time.Now().UTC()))
		if err != nil {
			return updated, fmt.Errorf("while splitting name of %s: %w", doctor.ID.Hex(), err)
		}
		updated += res.ModifiedCount
	}
	return updated, cursor.Err()
}
