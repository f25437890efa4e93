package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"go.pilab.hu/idlink/domain"
)

// UserRepositoryMongo implements domain.UserRepository on the users
// collection.
type UserRepositoryMongo struct {
	collection *mongo.Collection
}

func NewUserRepositoryMongo(ctx context.Context, db *mongo.Database) (*UserRepositoryMongo, error) {
	repo := &UserRepositoryMongo{
		collection: db.Collection(UsersCollection),
	}
	if err := repo.createIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create %s indexes: %w", UsersCollection, err)
	}
	return repo, nil
}

func (r *UserRepositoryMongo) createIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{
			// Accounts without an email (email matching disabled) are
			// exempt from the uniqueness constraint.
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"email": bson.M{"$gt": ""}}),
		},
		{
			Keys: bson.D{{Key: "custom_attributes.$**", Value: 1}},
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return err
	}
	log.Info().Msgf("Indexes for %s collection ensured.", UsersCollection)
	return nil
}

func (r *UserRepositoryMongo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		log.Error().Err(err).Str("user_id", id).Msg("Error getting user by ID")
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryMongo) FindActiveOrStagedByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	filter := bson.M{
		"email":  domain.NormalizeEmail(email),
		"status": bson.M{"$in": []domain.UserStatus{domain.UserStatusActive, domain.UserStatusStaged}},
	}
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		log.Error().Err(err).Str("email", email).Msg("Error getting user by email")
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryMongo) FindByCustomAttribute(ctx context.Context, name, value string) (*domain.User, error) {
	var user domain.User
	err := r.collection.FindOne(ctx, bson.M{"custom_attributes." + name: value}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		log.Error().Err(err).Str("attribute", name).Msg("Error getting user by custom attribute")
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryMongo) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = NewObjectID()
	}
	user.Email = domain.NormalizeEmail(user.Email)
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateEmail
		}
		log.Error().Err(err).Str("email", user.Email).Msg("Error creating user")
		return err
	}
	return nil
}

func (r *UserRepositoryMongo) Update(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Error updating user")
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

var _ domain.UserRepository = (*UserRepositoryMongo)(nil)
