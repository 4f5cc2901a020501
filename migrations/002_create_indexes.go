package migrations

import (
	"context"

	"Attentus/repository"

	"go.mongodb.org/mongo-driver/mongo"
)

func CreateIndexes(ctx context.Context, database *mongo.Database) (int64, error) {
	if err := repository.EnsureIndexes(ctx, database); err != nil {
		return 0, err
	}
	return 0, nil
}
