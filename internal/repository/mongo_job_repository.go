package repository

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/spec-kit/job-tracker/internal/domain"
)

type mongoJobRepository struct {
	col *mongo.Collection
}

// NewMongoJobRepository returns a document-store implementation.
func NewMongoJobRepository(db *mongo.Database) JobRepository {
	return &mongoJobRepository{col: db.Collection(ColJobs)}
}

func (r *mongoJobRepository) Create(ctx context.Context, job *domain.Job) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := *job
	doc.ID = uuid.NewString()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return mapMongoError(err)
	}
	*job = doc
	return nil
}

func (r *mongoJobRepository) GetForUser(ctx context.Context, userID, id string) (*domain.Job, error) {
	job, err := findOne[domain.Job](ctx, r.col, ownedBy(userID, id))
	if err != nil {
		return nil, err
	}
	normalizeJob(job)
	return job, nil
}

func (r *mongoJobRepository) ListForUser(ctx context.Context, filter JobFilter) ([]domain.Job, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "created_at", Value: -1}})
	jobs, err := findMany[domain.Job](ctx, r.col, jobListFilter(filter), opts)
	if err != nil {
		return nil, err
	}
	for i := range jobs {
		normalizeJob(&jobs[i])
	}
	return jobs, nil
}

func (r *mongoJobRepository) UpdateFields(ctx context.Context, userID, id string, patch domain.JobPatch) (*domain.Job, error) {
	update := bson.D{{Key: "$set", Value: jobSetFields(patch, time.Now().UTC().Truncate(time.Millisecond))}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var job domain.Job
	err := r.col.FindOneAndUpdate(ctx, ownedBy(userID, id), update, opts).Decode(&job)
	if err != nil {
		return nil, mapMongoError(err)
	}
	normalizeJob(&job)
	return &job, nil
}

func (r *mongoJobRepository) Delete(ctx context.Context, userID, id string) error {
	return deleteOne(ctx, r.col, ownedBy(userID, id))
}

func (r *mongoJobRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.D{{Key: "user", Value: userID}})
	if err != nil {
		return 0, mapMongoError(err)
	}
	return res.DeletedCount, nil
}

func (r *mongoJobRepository) CountByStatus(ctx context.Context, userID *string) (map[domain.JobStatus]int64, error) {
	pipeline := mongo.Pipeline{}
	if userID != nil {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.D{{Key: "user", Value: *userID}}}})
	}
	pipeline = append(pipeline, bson.D{{Key: "$group", Value: bson.D{
		{Key: "_id", Value: "$status"},
		{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
	}}})

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, mapMongoError(err)
	}
	defer cursor.Close(ctx)

	var groups []struct {
		Status domain.JobStatus `bson:"_id"`
		Count  int64            `bson:"count"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, err
	}

	counts := make(map[domain.JobStatus]int64, len(groups))
	for _, g := range groups {
		counts[g.Status] = g.Count
	}
	return counts, nil
}

// jobListFilter builds the listing filter; the owner is always the first element.
func jobListFilter(filter JobFilter) bson.D {
	query := bson.D{{Key: "user", Value: filter.UserID}}
	if filter.Status != nil {
		query = append(query, bson.E{Key: "status", Value: *filter.Status})
	}
	if filter.Favorite != nil {
		query = append(query, bson.E{Key: "favorite", Value: *filter.Favorite})
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		pattern := bson.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
		query = append(query, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "company", Value: pattern}},
			bson.D{{Key: "position", Value: pattern}},
		}})
	}
	return query
}

func jobSetFields(patch domain.JobPatch, now time.Time) bson.D {
	set := bson.D{{Key: "updated_at", Value: now}}
	if patch.Company != nil {
		set = append(set, bson.E{Key: "company", Value: *patch.Company})
	}
	if patch.Position != nil {
		set = append(set, bson.E{Key: "position", Value: *patch.Position})
	}
	if patch.Status != nil {
		set = append(set, bson.E{Key: "status", Value: *patch.Status})
	}
	if patch.Date != nil {
		set = append(set, bson.E{Key: "date", Value: *patch.Date})
	}
	if patch.Tags != nil {
		set = append(set, bson.E{Key: "tags", Value: *patch.Tags})
	}
	if patch.Favorite != nil {
		set = append(set, bson.E{Key: "favorite", Value: *patch.Favorite})
	}
	if patch.Notes != nil {
		set = append(set, bson.E{Key: "notes", Value: *patch.Notes})
	}
	if patch.CustomFields != nil {
		set = append(set, bson.E{Key: "custom_fields", Value: *patch.CustomFields})
	}
	return set
}

func ownedBy(userID, id string) bson.D {
	return bson.D{{Key: "_id", Value: id}, {Key: "user", Value: userID}}
}

func normalizeJob(job *domain.Job) {
	if job.Tags == nil {
		job.Tags = []string{}
	}
	if job.CustomFields == nil {
		job.CustomFields = map[string]string{}
	}
}
