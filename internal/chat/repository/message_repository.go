package repository

import (
	"context"
	"time"

	"realtime_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository persistence for message records; no business logic.
// Soft-deleted messages are excluded from every read path.
type MessageRepository interface {
	Insert(ctx context.Context, message *domain.Message) error
	FindByID(ctx context.Context, id string) (*domain.Message, error)
	UpdateStatus(ctx context.Context, id string, status domain.MessageStatus) error
	// MarkManyRead bulk-transitions the given ids to read, returning the
	// number of messages modified.
	MarkManyRead(ctx context.Context, ids []string) (int64, error)
	// FindByConversation returns a chronological ascending page.
	FindByConversation(ctx context.Context, conversationID string, skip, limit int64) ([]domain.Message, error)
	// FindUnread returns the conversation's messages not authored by
	// excludeSender and not yet read, oldest first.
	FindUnread(ctx context.Context, conversationID, excludeSender string) ([]domain.Message, error)
	AddReaction(ctx context.Context, id string, reaction domain.Reaction) error
	EditContent(ctx context.Context, id string, content domain.MessageContent, editedAt time.Time) error
	SoftDelete(ctx context.Context, id string) error
	CountByConversation(ctx context.Context, conversationID string) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

type messageRepository struct {
	coll *mongo.Collection
}

// NewMongoMessageRepository create a MessageRepository
func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &messageRepository{
		coll: db.Collection("messages"),
	}
}

func (r *messageRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "timestamp", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "sender_id", Value: 1}},
		},
	})
	return err
}

func (r *messageRepository) Insert(ctx context.Context, message *domain.Message) error {
	_, err := r.coll.InsertOne(ctx, message)
	return err
}

func (r *messageRepository) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	var message domain.Message
	err := r.coll.FindOne(ctx, bson.M{"_id": id, "is_deleted": false}).Decode(&message)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *messageRepository) UpdateStatus(ctx context.Context, id string, status domain.MessageStatus) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	return err
}

func (r *messageRepository) MarkManyRead(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"status": domain.MessageStatusRead}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *messageRepository) FindByConversation(ctx context.Context, conversationID string, skip, limit int64) ([]domain.Message, error) {
	filter := bson.M{"conversation_id": conversationID, "is_deleted": false}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit)

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var messages []domain.Message
	if err := cur.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) FindUnread(ctx context.Context, conversationID, excludeSender string) ([]domain.Message, error) {
	filter := bson.M{
		"conversation_id": conversationID,
		"sender_id":       bson.M{"$ne": excludeSender},
		"status":          bson.M{"$ne": domain.MessageStatusRead},
		"is_deleted":      false,
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var messages []domain.Message
	if err := cur.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) AddReaction(ctx context.Context, id string, reaction domain.Reaction) error {
	update := bson.M{"$addToSet": bson.M{"reactions": reaction}}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

func (r *messageRepository) EditContent(ctx context.Context, id string, content domain.MessageContent, editedAt time.Time) error {
	update := bson.M{"$set": bson.M{"content": content, "edited_at": editedAt}}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

func (r *messageRepository) SoftDelete(ctx context.Context, id string) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"is_deleted": true}})
	return err
}

func (r *messageRepository) CountByConversation(ctx context.Context, conversationID string) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"conversation_id": conversationID, "is_deleted": false})
}
