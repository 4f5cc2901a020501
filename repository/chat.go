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

type Chats struct {
	coll *mongo.Collection
}

// PairUpsert is the update that creates the chat for a pair only if it does not exist yet.
func PairUpsert(a, b primitive.ObjectID, now time.Time) (bson.M, bson.M) {
	pair := models.CanonicalPair(a, b)
	filter := bson.M{"pairKey": models.PairKey(a, b)}
	update := bson.M{"$setOnInsert": bson.M{
		"participants": bson.A{pair[0], pair[1]},
		"messages":     bson.A{},
		"createdAt":    now,
		"updatedAt":    now,
	}}
	return filter, update
}

/*
* Upsert on the unique pair key so concurrent requests converge on one chat
* A duplicate key from a lost race means the other request created it, so read it back
 */
func (r *Chats) FindOrCreateChat(ctx context.Context, a, b primitive.ObjectID, now time.Time) (*models.Chat, error) {
	filter, update := PairUpsert(a, b, now)
	chat := &models.Chat{}
	err := db.FindOneAndUpdate(ctx, r.coll, filter, update, chat, true)
	if err == nil {
		return chat, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return nil, err
	}
	if err := db.FindOne(ctx, r.coll, filter, chat); err != nil {
		return nil, notFound(err, util.CHAT_NOT_FOUND)
	}
	return chat, nil
}

func (r *Chats) FindChatByID(ctx context.Context, id primitive.ObjectID) (*models.Chat, error) {
	chat := &models.Chat{}
	if err := db.FindOne(ctx, r.coll, bson.M{"_id": id}, chat); err != nil {
		return nil, notFound(err, util.CHAT_NOT_FOUND)
	}
	return chat, nil
}

func (r *Chats) ListChatsForDoctor(ctx context.Context, doctorID primitive.ObjectID) ([]models.Chat, error) {
	chats := []models.Chat{}
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	if err := db.FindAll(ctx, r.coll, bson.M{"participants": doctorID}, &chats, opts); err != nil {
		return nil, err
	}
	return chats, nil
}

// AppendMessage pushes atomically and bumps updatedAt to the message time.
func (r *Chats) AppendMessage(ctx context.Context, id primitive.ObjectID, msg models.Message) (*models.Chat, error) {
	chat := &models.Chat{}
	update := bson.M{
		"$push": bson.M{"messages": msg},
		"$set":  bson.M{"updatedAt": msg.Timestamp},
	}
	if err := db.FindOneAndUpdate(ctx, r.coll, bson.M{"_id": id}, update, chat, false); err != nil {
		return nil, notFound(err, util.CHAT_NOT_FOUND)
	}
	return chat, nil
}
