package migrations

import (
	"context"
	"fmt"

	"Attentus/models"
	"Attentus/util"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type legacyChat struct {
	ID           primitive.ObjectID   `bson:"_id"`
	Participants []primitive.ObjectID `bson:"participants"`
}

// pairKeyUpdate is nil for chats that do not have exactly two participants.
func pairKeyUpdate(participants []primitive.ObjectID) bson.M {
	if len(participants) != 2 {
		return nil
	}
	pair := models.CanonicalPair(participants[0], participants[1])
	return bson.M{"$set": bson.M{
		"participants": []primitive.ObjectID{pair[0], pair[1]},
		"pairKey":      models.PairKey(pair[0], pair[1]),
	}}
}

func BackfillChatPairKey(ctx context.Context, database *mongo.Database) (int64, error) {
	coll := database.Collection(util.ChatCollection)
	cursor, err := coll.Find(ctx, bson.M{"pairKey": bson.M{"$exists": false}})
	if err != nil {
		return 0, fmt.Errorf("while finding chats without pairKey: %w", err)
	}
	defer cursor.Close(ctx)

	var updated int64
	for cursor.Next(ctx) {
		var chat legacyChat
		if err := cursor.Decode(&chat); err != nil {
			log.Error().Err(err).Msg("Error while decoding legacy chat")
			continue
		}
		update := pairKeyUpdate(chat.Participants)
		if update == nil {
			log.Warn().Str("chatId", chat.ID.Hex()).Int("participants", len(chat.Participants)).Msg("Skipping chat without a participant pair")
			continue
		}
		res, err := coll.UpdateOne(ctx, bson.M{"_id": chat.ID}, update)
		if err != nil {
			// a second chat for the same pair already holds the key
			if mongo.IsDuplicateKeyError(err) {
				log.Warn().Str("chatId", chat.ID.Hex()).Msg("Duplicate chat for pair left without pairKey")
				continue
			}
			return updated, fmt.Errorf("while backfilling chat %s: %w", chat.ID.Hex(), err)
		}
		updated += res.ModifiedCount
	}
	return updated, cursor.Err()
}
