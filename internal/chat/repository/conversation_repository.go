package repository

import (
	"context"
	"errors"
	"time"

	"realtime_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicateKey surfaces a unique-index violation so the caller can fall
// back to refetching instead of erroring.
var ErrDuplicateKey = errors.New("duplicate key")

// ConversationRepository persistence for conversation records; no business logic.
type ConversationRepository interface {
	Insert(ctx context.Context, conversation *domain.Conversation) error
	FindByID(ctx context.Context, id string) (*domain.Conversation, error)
	FindByKey(ctx context.Context, conversationKey string) (*domain.Conversation, error)
	// SetLastMessage atomically updates the last-message pointer, bumps
	// last_activity_at and increments message_count.
	SetLastMessage(ctx context.Context, id, messageID string, at time.Time) error
	SetLastReadAt(ctx context.Context, id, userID string, at time.Time) error
	AddBlockedBy(ctx context.Context, id, userID string) error
	RemoveBlockedBy(ctx context.Context, id, userID string) error
	SetArchived(ctx context.Context, id string, archived bool) error
	SetActive(ctx context.Context, id string, active bool) error
	FindUserConversations(ctx context.Context, userID string, skip, limit int64, includeArchived bool) ([]domain.ConversationSummary, int64, error)
	EnsureIndexes(ctx context.Context) error
}

type conversationRepository struct {
	coll *mongo.Collection
}

// NewMongoConversationRepository create a ConversationRepository
func NewMongoConversationRepository(db *mongo.Database) ConversationRepository {
	return &conversationRepository{
		coll: db.Collection("conversations"),
	}
}

// EnsureIndexes creates the unique dedup-key index and the listing index.
func (r *conversationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "conversation_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "last_activity_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "is_active", Value: 1}},
		},
	})
	return err
}

func (r *conversationRepository) Insert(ctx context.Context, conversation *domain.Conversation) error {
	_, err := r.coll.InsertOne(ctx, conversation)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	return err
}

func (r *conversationRepository) FindByID(ctx context.Context, id string) (*domain.Conversation, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *conversationRepository) FindByKey(ctx context.Context, conversationKey string) (*domain.Conversation, error) {
	return r.findOne(ctx, bson.M{"conversation_key": conversationKey})
}

func (r *conversationRepository) findOne(ctx context.Context, filter bson.M) (*domain.Conversation, error) {
	var conversation domain.Conversation
	err := r.coll.FindOne(ctx, filter).Decode(&conversation)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *conversationRepository) SetLastMessage(ctx context.Context, id, messageID string, at time.Time) error {
	update := bson.M{
		"$set": bson.M{
			"last_message_id":  messageID,
			"last_activity_at": at,
		},
		"$inc": bson.M{"message_count": 1},
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

func (r *conversationRepository) SetLastReadAt(ctx context.Context, id, userID string, at time.Time) error {
	update := bson.M{"$set": bson.M{"last_read_at." + userID: at}}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

func (r *conversationRepository) AddBlockedBy(ctx context.Context, id, userID string) error {
	update := bson.M{
		"$addToSet": bson.M{"blocked_by": userID},
		"$set":      bson.M{"last_activity_at": time.Now()},
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

func (r *conversationRepository) RemoveBlockedBy(ctx context.Context, id, userID string) error {
	update := bson.M{
		"$pull": bson.M{"blocked_by": userID},
		"$set":  bson.M{"last_activity_at": time.Now()},
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

func (r *conversationRepository) SetArchived(ctx context.Context, id string, archived bool) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"is_archived": archived}})
	return err
}

func (r *conversationRepository) SetActive(ctx context.Context, id string, active bool) error {
	update := bson.M{"$set": bson.M{"is_active": active, "last_activity_at": time.Now()}}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

// FindUserConversations pages the caller's active conversations newest first,
// joining the other participant's public profile, the last message, and the
// caller's unread count (messages after last_read_at not authored by the
// caller and not yet read).
func (r *conversationRepository) FindUserConversations(ctx context.Context, userID string, skip, limit int64, includeArchived bool) ([]domain.ConversationSummary, int64, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"participant1": userID},
			bson.M{"participant2": userID},
		},
		"is_active": true,
	}
	if !includeArchived {
		filter["is_archived"] = false
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: filter}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "last_activity_at", Value: -1}}}},
		bson.D{{Key: "$skip", Value: skip}},
		bson.D{{Key: "$limit", Value: limit}},

		// Join the other participant's public profile.
		bson.D{{Key: "$addFields", Value: bson.M{
			"other_participant_id": bson.M{
				"$cond": bson.M{
					"if":   bson.M{"$eq": bson.A{"$participant1", userID}},
					"then": "$participant2",
					"else": "$participant1",
				},
			},
		}}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "other_participant_id",
			"foreignField": "_id",
			"as":           "other_participant",
		}}},
		bson.D{{Key: "$unwind", Value: bson.M{
			"path":                       "$other_participant",
			"preserveNullAndEmptyArrays": true,
		}}},

		// Join the last message.
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "messages",
			"localField":   "last_message_id",
			"foreignField": "_id",
			"as":           "last_message",
		}}},
		bson.D{{Key: "$unwind", Value: bson.M{
			"path":                       "$last_message",
			"preserveNullAndEmptyArrays": true,
		}}},

		// Count unread messages addressed to the caller.
		bson.D{{Key: "$lookup", Value: bson.M{
			"from": "messages",
			"let":  bson.M{"convo_id": "$_id"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{
					"$expr": bson.M{
						"$and": bson.A{
							bson.M{"$eq": bson.A{"$conversation_id", "$$convo_id"}},
							bson.M{"$ne": bson.A{"$sender_id", userID}},
							bson.M{"$ne": bson.A{"$status", string(domain.MessageStatusRead)}},
							bson.M{"$eq": bson.A{"$is_deleted", false}},
						},
					},
				}},
				bson.M{"$count": "count"},
			},
			"as": "unread",
		}}},
		bson.D{{Key: "$addFields", Value: bson.M{
			"unread_count": bson.M{
				"$ifNull": bson.A{
					bson.M{"$arrayElemAt": bson.A{"$unread.count", 0}},
					0,
				},
			},
		}}},

		bson.D{{Key: "$project", Value: bson.M{
			"unread":               0,
			"other_participant_id": 0,
		}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, err
	}

	var summaries []domain.ConversationSummary
	if err := cur.All(ctx, &summaries); err != nil {
		return nil, 0, err
	}
	return summaries, total, nil
}
