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

// AssociationRepositoryMongo implements domain.AssociationRepository.
type AssociationRepositoryMongo struct {
	collection *mongo.Collection
}

// NewAssociationRepositoryMongo creates the repository and ensures the
// uniqueness indexes the reconciliation engine relies on.
func NewAssociationRepositoryMongo(ctx context.Context, db *mongo.Database) (*AssociationRepositoryMongo, error) {
	repo := &AssociationRepositoryMongo{
		collection: db.Collection(AssociationsCollection),
	}
	if err := repo.createIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create %s indexes: %w", AssociationsCollection, err)
	}
	return repo, nil
}

func (r *AssociationRepositoryMongo) createIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{
			// One external identity links to at most one local user.
			Keys:    bson.D{{Key: "provider", Value: 1}, {Key: "subject", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// A local user holds at most one association per provider.
			Keys:    bson.D{{Key: "provider", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return err
	}
	log.Info().Msgf("Indexes for %s collection ensured.", AssociationsCollection)
	return nil
}

func (r *AssociationRepositoryMongo) FindByProviderSubject(ctx context.Context, provider, subject string) (*domain.Association, error) {
	var assoc domain.Association
	filter := bson.M{"provider": provider, "subject": subject}
	err := r.collection.FindOne(ctx, filter).Decode(&assoc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAssociationNotFound
		}
		log.Error().Err(err).Str("provider", provider).Str("subject", subject).
			Msg("Error getting association by provider and subject")
		return nil, err
	}
	return &assoc, nil
}

func (r *AssociationRepositoryMongo) FindByUserAndProvider(ctx context.Context, userID, provider string) (*domain.Association, error) {
	var assoc domain.Association
	filter := bson.M{"user_id": userID, "provider": provider}
	err := r.collection.FindOne(ctx, filter).Decode(&assoc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAssociationNotFound
		}
		log.Error().Err(err).Str("user_id", userID).Str("provider", provider).
			Msg("Error getting association by user and provider")
		return nil, err
	}
	return &assoc, nil
}

func (r *AssociationRepositoryMongo) DeleteAllByUserAndProvider(ctx context.Context, userID, provider string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID, "provider": provider})
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("provider", provider).
			Msg("Error deleting associations by user and provider")
		return err
	}
	return nil
}

func (r *AssociationRepositoryMongo) Upsert(ctx context.Context, assoc *domain.Association) error {
	now := time.Now().UTC()
	filter := bson.M{"provider": assoc.Provider, "subject": assoc.Subject}
	update := bson.M{
		"$set": bson.M{
			"user_id":      assoc.UserID,
			"info":         assoc.Info,
			"credentials":  assoc.Credentials,
			"extra":        assoc.Extra,
			"last_used_at": assoc.LastUsedAt,
			"updated_at":   now,
		},
		"$setOnInsert": bson.M{
			"_id":        NewObjectID(),
			"created_at": now,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// The insert collided with the (provider, user_id) index: the
			// caller skipped the delete-before-insert step, or lost a race.
			return domain.ErrDuplicateAssociation
		}
		log.Error().Err(err).Str("provider", assoc.Provider).Str("subject", assoc.Subject).
			Msg("Error upserting association")
		return err
	}
	return nil
}

var _ domain.AssociationRepository = (*AssociationRepositoryMongo)(nil)
