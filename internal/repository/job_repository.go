package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/job-tracker/internal/domain"
)

// JobFilter scopes a listing to one owner with optional narrowing.
type JobFilter struct {
	UserID   string
	Status   *domain.JobStatus
	Search   string
	Favorite *bool
}

// JobRepository encapsulates job persistence. Every lookup is scoped by owner.
type JobRepository interface {
	Create(ctx context.Context, job *domain.Job) error
	GetForUser(ctx context.Context, userID, id string) (*domain.Job, error)
	ListForUser(ctx context.Context, filter JobFilter) ([]domain.Job, error)
	UpdateFields(ctx context.Context, userID, id string, patch domain.JobPatch) (*domain.Job, error)
	Delete(ctx context.Context, userID, id string) error
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	// CountByStatus groups jobs by status; a nil userID counts every job.
	CountByStatus(ctx context.Context, userID *string) (map[domain.JobStatus]int64, error)
}

type jobRepository struct {
	pool *pgxpool.Pool
}

// NewJobRepository instantiates the Postgres repository.
func NewJobRepository(pool *pgxpool.Pool) JobRepository {
	return &jobRepository{pool: pool}
}

const jobColumns = `id, user_id, company, position, status, date, tags, favorite, notes, custom_fields, created_at, updated_at`

func (r *jobRepository) Create(ctx context.Context, job *domain.Job) error {
	const query = `
        INSERT INTO jobs (user_id, company, position, status, date, tags, favorite, notes, custom_fields)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		job.UserID,
		job.Company,
		job.Position,
		job.Status,
		job.Date,
		job.Tags,
		job.Favorite,
		job.Notes,
		job.CustomFields,
	).Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)
	return mapPgError(err)
}

func (r *jobRepository) GetForUser(ctx context.Context, userID, id string) (*domain.Job, error) {
	if !validID(id) || !validID(userID) {
		return nil, ErrNotFound
	}
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id=$1 AND user_id=$2`
	job, err := scanJob(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		return nil, mapPgError(err)
	}
	return job, nil
}

func (r *jobRepository) ListForUser(ctx context.Context, filter JobFilter) ([]domain.Job, error) {
	if !validID(filter.UserID) {
		return []domain.Job{}, nil
	}
	query, args := buildJobListQuery(filter)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []domain.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func (r *jobRepository) UpdateFields(ctx context.Context, userID, id string, patch domain.JobPatch) (*domain.Job, error) {
	if !validID(id) || !validID(userID) {
		return nil, ErrNotFound
	}
	query, args := buildJobUpdateQuery(userID, id, patch)

	job, err := scanJob(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapPgError(err)
	}
	return job, nil
}

// buildJobListQuery renders the listing query; the owner is always $1.
func buildJobListQuery(filter JobFilter) (string, []any) {
	clauses := []string{"user_id=$1"}
	args := []any{filter.UserID}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Favorite != nil {
		args = append(args, *filter.Favorite)
		clauses = append(clauses, fmt.Sprintf("favorite=$%d", len(args)))
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		args = append(args, "%"+escapeLike(term)+"%")
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(company ILIKE %s OR position ILIKE %s)", placeholder, placeholder))
	}

	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE %s ORDER BY date DESC, created_at DESC`,
		jobColumns, strings.Join(clauses, " AND "))
	return query, args
}

// buildJobUpdateQuery renders an UPDATE for the non-nil patch fields. The job
// id and owner are always the last two arguments.
func buildJobUpdateQuery(userID, id string, patch domain.JobPatch) (string, []any) {
	sets := []string{"updated_at=NOW()"}
	args := []any{}
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}

	if patch.Company != nil {
		set("company", *patch.Company)
	}
	if patch.Position != nil {
		set("position", *patch.Position)
	}
	if patch.Status != nil {
		set("status", *patch.Status)
	}
	if patch.Date != nil {
		set("date", *patch.Date)
	}
	if patch.Tags != nil {
		set("tags", *patch.Tags)
	}
	if patch.Favorite != nil {
		set("favorite", *patch.Favorite)
	}
	if patch.Notes != nil {
		set("notes", *patch.Notes)
	}
	if patch.CustomFields != nil {
		set("custom_fields", *patch.CustomFields)
	}

	args = append(args, id, userID)
	query := fmt.Sprintf(`UPDATE jobs SET %s WHERE id=$%d AND user_id=$%d RETURNING %s`,
		strings.Join(sets, ", "), len(args)-1, len(args), jobColumns)
	return query, args
}

func (r *jobRepository) Delete(ctx context.Context, userID, id string) error {
	if !validID(id) || !validID(userID) {
		return ErrNotFound
	}
	cmd, err := r.pool.Exec(ctx, `DELETE FROM jobs WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *jobRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	if !validID(userID) {
		return 0, nil
	}
	cmd, err := r.pool.Exec(ctx, `DELETE FROM jobs WHERE user_id=$1`, userID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *jobRepository) CountByStatus(ctx context.Context, userID *string) (map[domain.JobStatus]int64, error) {
	query := `SELECT status, COUNT(*) FROM jobs GROUP BY status`
	args := []any{}
	if userID != nil {
		if !validID(*userID) {
			return map[domain.JobStatus]int64{}, nil
		}
		query = `SELECT status, COUNT(*) FROM jobs WHERE user_id=$1 GROUP BY status`
		args = append(args, *userID)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.JobStatus]int64)
	for rows.Next() {
		var (
			status domain.JobStatus
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.Company,
		&job.Position,
		&job.Status,
		&job.Date,
		&job.Tags,
		&job.Favorite,
		&job.Notes,
		&job.CustomFields,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if job.Tags == nil {
		job.Tags = []string{}
	}
	if job.CustomFields == nil {
		job.CustomFields = map[string]string{}
	}
	return &job, nil
}

func escapeLike(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(term)
}
