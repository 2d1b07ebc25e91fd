package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/spec-kit/job-tracker/internal/domain"
)

type mongoUserRepository struct {
	col *mongo.Collection
}

// NewMongoUserRepository returns a document-store implementation.
func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{col: db.Collection(ColUsers)}
}

func (r *mongoUserRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := *user
	doc.ID = uuid.NewString()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return mapMongoError(err)
	}
	*user = doc
	return nil
}

func (r *mongoUserRepository) Update(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	res, err := r.col.UpdateOne(ctx, bson.D{{Key: "_id", Value: user.ID}}, bson.D{{Key: "$set", Value: bson.D{
		{Key: "name", Value: user.Name},
		{Key: "email", Value: user.Email},
		{Key: "password_hash", Value: user.PasswordHash},
		{Key: "role", Value: user.Role},
		{Key: "updated_at", Value: now},
	}}})
	if err != nil {
		return mapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	user.UpdatedAt = now
	return nil
}

func (r *mongoUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return findOne[domain.User](ctx, r.col, bson.D{{Key: "_id", Value: id}})
}

func (r *mongoUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return findOne[domain.User](ctx, r.col, bson.D{{Key: "email", Value: email}})
}

func (r *mongoUserRepository) List(ctx context.Context) ([]domain.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findMany[domain.User](ctx, r.col, bson.D{}, opts)
}

func (r *mongoUserRepository) Delete(ctx context.Context, id string) error {
	return deleteOne(ctx, r.col, bson.D{{Key: "_id", Value: id}})
}
