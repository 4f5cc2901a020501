package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	coredb "github.com/KanapuramVaishnavi/Core/config/db"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	Client *mongo.Client
	DB     *mongo.Database
)

/*
* Connect once at startup and ping the primary
* The database handle is shared by every repository
 */
func Connect(ctx context.Context, uri, database string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("while connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("while pinging mongo: %w", err)
	}
	Client = client
	Use(client.Database(database))
	log.Info().Str("database", database).Msg("MongoDB connected")
	return DB, nil
}

// Use makes database the shared handle, including for the Core collection helpers.
func Use(database *mongo.Database) {
	DB = database
	coredb.DB = database
}

func Disconnect(ctx context.Context) {
	if Client == nil {
		return
	}
	if err := Client.Disconnect(ctx); err != nil {
		log.Error().Err(err).Msg("Error while disconnecting from MongoDB")
	}
}

func OpenCollections(name string) *mongo.Collection {
	return coredb.OpenCollections(name)
}

/*
* Plain lookups go through Core, which bounds them to 5s
* Lookups with options (projections) are issued directly
* A missing document returns mongo.ErrNoDocuments either way
 */
func FindOne(ctx context.Context, coll *mongo.Collection, filter interface{}, result interface{}, opts ...*options.FindOneOptions) error {
	if len(opts) == 0 {
		return coredb.FindOne(ctx, coll, filter, result)
	}
	return coll.FindOne(ctx, filter, opts...).Decode(result)
}

// FindAll decodes every match into results, which must be a pointer to a slice.
func FindAll(ctx context.Context, coll *mongo.Collection, filter interface{}, results interface{}, opts ...*options.FindOptions) error {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return err
	}
	return cursor.All(ctx, results)
}

// CreateOne keeps the driver error so callers can detect duplicate keys; Core's CreateOne replaces it.
func CreateOne(ctx context.Context, coll *mongo.Collection, doc interface{}) (*mongo.InsertOneResult, error) {
	return coll.InsertOne(ctx, doc)
}

func UpdateOne(ctx context.Context, coll *mongo.Collection, filter, update interface{}) (*mongo.UpdateResult, error) {
	return coredb.UpdateOne(ctx, coll, filter, update)
}

// FindOneAndUpdate applies update and decodes the document as it is after the update.
func FindOneAndUpdate(ctx context.Context, coll *mongo.Collection, filter, update, result interface{}, upsert bool) error {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After).SetUpsert(upsert)
	return coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(result)
}

func DeleteOne(ctx context.Context, coll *mongo.Collection, filter interface{}) (*mongo.DeleteResult, error) {
	return coredb.DeleteOne(ctx, coll, filter)
}

func IsNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
