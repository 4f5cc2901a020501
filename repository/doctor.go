package repository

import (
	"context"
	"strings"
	"time"

	"Attentus/config/db"
	"Attentus/config/redis"
	"Attentus/models"
	"Attentus/util"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Doctors struct {
	coll  *mongo.Collection
	cache redis.Cache
}

var withoutPassword = bson.M{"password": 0}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

/*
* Read through the cache first
* Fall back to the collection and cache the result without the password
 */
func (r *Doctors) FindDoctorByID(ctx context.Context, id string) (*models.Doctor, error) {
	oid, err := util.ParseObjectID(id)
	if err != nil {
		return nil, err
	}

	key := util.DoctorKey + oid.Hex()
	var cached models.Doctor
	if found, err := r.cache.GetCache(ctx, key, &cached); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Error from GetCache")
	} else if found {
		return &cached, nil
	}

	doctor := &models.Doctor{}
	opts := options.FindOne().SetProjection(withoutPassword)
	if err := db.FindOne(ctx, r.coll, bson.M{"_id": oid}, doctor, opts); err != nil {
		return nil, notFound(err, util.DOCTOR_NOT_FOUND)
	}

	if err := r.cache.SetCache(ctx, key, doctor, util.DoctorCacheTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Error from SetCache")
	}
	return doctor, nil
}

// FindDoctorByEmail includes the password hash; it is used by login only.
func (r *Doctors) FindDoctorByEmail(ctx context.Context, email string) (*models.Doctor, error) {
	doctor := &models.Doctor{}
	if err := db.FindOne(ctx, r.coll, bson.M{"email": normalizeEmail(email)}, doctor); err != nil {
		return nil, notFound(err, util.DOCTOR_NOT_FOUND)
	}
	return doctor, nil
}

func (r *Doctors) CreateDoctor(ctx context.Context, doctor *models.Doctor) error {
	doctor.Email = normalizeEmail(doctor.Email)
	if doctor.ID.IsZero() {
		doctor.ID = primitive.NewObjectID()
	}
	if _, err := db.CreateOne(ctx, r.coll, doctor); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return util.Validation(util.EMAIL_ALREADY_REGISTERED)
		}
		return err
	}
	return nil
}

// UpdateDoctor drops the cached doctor both before and after the write.
func (r *Doctors) UpdateDoctor(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Doctor, error) {
	set["updatedAt"] = time.Now().UTC()
	doctor := &models.Doctor{}
	r.invalidate(ctx, id)
	err := db.FindOneAndUpdate(ctx, r.coll, bson.M{"_id": id}, bson.M{"$set": set}, doctor, false)
	r.invalidate(ctx, id)
	if err != nil {
		return nil, notFound(err, util.DOCTOR_NOT_FOUND)
	}
	doctor.Password = ""
	return doctor, nil
}

func (r *Doctors) AddDeviceToken(ctx context.Context, id primitive.ObjectID, token string) error {
	r.invalidate(ctx, id)
	res, err := db.UpdateOne(ctx, r.coll, bson.M{"_id": id}, bson.M{
		"$addToSet": bson.M{"deviceTokens": token},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	})
	r.invalidate(ctx, id)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return util.NotFound(util.DOCTOR_NOT_FOUND)
	}
	return nil
}

// RemoveDeviceTokens pulls tokens that push delivery reported as no longer registered.
func (r *Doctors) RemoveDeviceTokens(ctx context.Context, id primitive.ObjectID, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	r.invalidate(ctx, id)
	_, err := db.UpdateOne(ctx, r.coll, bson.M{"_id": id}, bson.M{
		"$pull": bson.M{"deviceTokens": bson.M{"$in": tokens}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
	r.invalidate(ctx, id)
	return err
}

func (r *Doctors) ListDoctors(ctx context.Context) ([]models.Doctor, error) {
	doctors := []models.Doctor{}
	opts := options.Find().SetProjection(withoutPassword).SetSort(bson.D{{Key: "firstName", Value: 1}, {Key: "lastName", Value: 1}})
	if err := db.FindAll(ctx, r.coll, bson.M{}, &doctors, opts); err != nil {
		return nil, err
	}
	return doctors, nil
}

// FindDoctorsByIDs bypasses the cache so device tokens are current.
func (r *Doctors) FindDoctorsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Doctor, error) {
	doctors := []models.Doctor{}
	if len(ids) == 0 {
		return doctors, nil
	}
	opts := options.Find().SetProjection(withoutPassword)
	if err := db.FindAll(ctx, r.coll, bson.M{"_id": bson.M{"$in": ids}}, &doctors, opts); err != nil {
		return nil, err
	}
	return doctors, nil
}

func (r *Doctors) invalidate(ctx context.Context, id primitive.ObjectID) {
	if err := r.cache.DeleteCache(ctx, util.DoctorKey+id.Hex()); err != nil {
		log.Warn().Err(err).Str("doctorId", id.Hex()).Msg("Error from DeleteCache")
	}
}
