package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecomai-shopify-bridge/internal/domain"
	"ecomai-shopify-bridge/internal/infrastructure/repository/entity"
	"ecomai-shopify-bridge/internal/ports"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// shopCollection is the part of *mongo.Collection the store needs
type shopCollection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// MongoCredentialStore implements CredentialStore using MongoDB
type MongoCredentialStore struct {
	shopsCollection shopCollection
	encryption      ports.EncryptionService
	now             func() time.Time
	logger          zerolog.Logger
}

// NewMongoCredentialStore creates a new MongoDB credential store
func NewMongoCredentialStore(db *mongo.Database, encryption ports.EncryptionService, logger zerolog.Logger) *MongoCredentialStore {
	return newMongoCredentialStore(db.Collection("shops"), encryption, logger)
}

func newMongoCredentialStore(coll shopCollection, encryption ports.EncryptionService, logger zerolog.Logger) *MongoCredentialStore {
	return &MongoCredentialStore{
		shopsCollection: coll,
		encryption:      encryption,
		now:             time.Now,
		logger:          logger,
	}
}

// EnsureIndexes creates the unique shopDomain index
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("shops").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "shopDomain", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create shops index: %w", err)
	}
	return nil
}

// FetchCredential retrieves a shop credential by domain
func (r *MongoCredentialStore) FetchCredential(ctx context.Context, shop string) (*domain.ShopCredential, error) {
	var doc entity.MongoShopDoc
	filter := bson.M{"shopDomain": shop}

	err := r.shopsCollection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get shop: %w", domain.ErrPersistence, err)
	}

	return doc.ToDomain(), nil
}

// UpsertCredential saves or refreshes a shop credential
func (r *MongoCredentialStore) UpsertCredential(ctx context.Context, shop string, accessToken string, scopes []string) error {
	encrypted, err := r.encryption.EncryptToken(accessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	existing, err := r.FetchCredential(ctx, shop)
	if err != nil {
		return err
	}
	doc := entity.MongoShopDocFromDomain(domain.Install(existing, shop, encrypted, scopes, r.now()))

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"shopDomain": shop}
	update := bson.M{"$set": doc}

	_, err = r.shopsCollection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("%w: failed to save shop: %w", domain.ErrPersistence, err)
	}

	r.logger.Info().Str("shop", shop).Bool("reinstall", existing != nil).Msg("Shop installation saved")
	return nil
}

// MarkUninstalled soft-deletes a shop credential
func (r *MongoCredentialStore) MarkUninstalled(ctx context.Context, shop string) error {
	now := r.now().UTC()

	filter := bson.M{"shopDomain": shop}
	update := bson.M{"$set": bson.M{
		"accessToken":    nil,
		"accessScopes":   []string{},
		"isActive":       false,
		"tokenUpdatedAt": now,
		"deletedAt":      now,
	}}

	result, err := r.shopsCollection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("%w: failed to mark shop uninstalled: %w", domain.ErrPersistence, err)
	}
	if result != nil && result.MatchedCount == 0 {
		r.logger.Warn().Str("shop", shop).Msg("Uninstall for unknown shop")
		return nil
	}

	r.logger.Info().Str("shop", shop).Msg("Shop marked as uninstalled")
	return nil
}
