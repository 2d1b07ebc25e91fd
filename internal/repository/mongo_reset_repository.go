package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/spec-kit/job-tracker/internal/domain"
)

type mongoResetRepository struct {
	col *mongo.Collection
}

// NewMongoResetRepository keys reset tokens by email; a TTL index purges expired documents.
func NewMongoResetRepository(db *mongo.Database) ResetTokenRepository {
	return &mongoResetRepository{col: db.Collection(ColResetTokens)}
}

func (r *mongoResetRepository) Save(ctx context.Context, token *domain.ResetToken) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}
	_, err := r.col.ReplaceOne(ctx, bson.D{{Key: "_id", Value: token.Email}}, token, options.Replace().SetUpsert(true))
	return mapMongoError(err)
}

func (r *mongoResetRepository) Get(ctx context.Context, email string) (*domain.ResetToken, error) {
	// The TTL monitor runs periodically, so expired documents may still be present.
	return findOne[domain.ResetToken](ctx, r.col, bson.D{
		{Key: "_id", Value: email},
		{Key: "expires_at", Value: bson.D{{Key: "$gt", Value: time.Now().UTC()}}},
	})
}

func (r *mongoResetRepository) Delete(ctx context.Context, email string) error {
	_, err := r.col.DeleteOne(ctx, bson.D{{Key: "_id", Value: email}})
	return mapMongoError(err)
}

func (r *mongoResetRepository) Ping(ctx context.Context) error {
	return r.col.Database().Client().Ping(ctx, nil)
}
