package repository

import (
	"context"

	"realtime_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserRepository is the directory view of the users collection: contact and
// room/channel memberships for broadcast-group joins plus the reciprocal
// contact write invoked by conversation creation. Profile CRUD lives with an
// external collaborator.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// AddReciprocalContact adds each user to the other's contact list.
	// Idempotent via $addToSet-style guards.
	AddReciprocalContact(ctx context.Context, userA, userB string) error
}

type userRepository struct {
	coll *mongo.Collection
}

// NewMongoUserRepository create a UserRepository
func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &userRepository{
		coll: db.Collection("users"),
	}
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) AddReciprocalContact(ctx context.Context, userA, userB string) error {
	if err := r.addContact(ctx, userA, userB); err != nil {
		return err
	}
	return r.addContact(ctx, userB, userA)
}

func (r *userRepository) addContact(ctx context.Context, ownerID, contactID string) error {
	// The guard on contacts.user_id keeps the push idempotent.
	filter := bson.M{
		"_id":              ownerID,
		"contacts.user_id": bson.M{"$ne": contactID},
	}
	update := bson.M{
		"$push": bson.M{"contacts": domain.ContactRef{UserID: contactID}},
	}
	_, err := r.coll.UpdateOne(ctx, filter, update)
	return err
}
