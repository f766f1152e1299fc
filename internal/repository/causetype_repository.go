package repository

import (
	"context"

	"github.com/spec-kit/deskflow/internal/domain"
)

// CauseTypeRepository manages cause-type reference data.
type CauseTypeRepository interface {
	Create(ctx context.Context, ct *domain.CauseType) error
	GetByID(ctx context.Context, id string) (*domain.CauseType, error)
	List(ctx context.Context) ([]domain.CauseType, error)
}

type causeTypeRepository struct {
	db DB
}

// NewCauseTypeRepository builds the repository.
func NewCauseTypeRepository(db DB) CauseTypeRepository {
	return &causeTypeRepository{db: db}
}

func (r *causeTypeRepository) Create(ctx context.Context, ct *domain.CauseType) error {
	const query = `
        INSERT INTO cause_types (name)
        VALUES ($1)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query, ct.Name).Scan(&ct.ID, &ct.CreatedAt)
}

func (r *causeTypeRepository) GetByID(ctx context.Context, id string) (*domain.CauseType, error) {
	const query = `SELECT id, name, created_at FROM cause_types WHERE id=$1`
	var ct domain.CauseType
	if err := r.db.QueryRow(ctx, query, id).Scan(&ct.ID, &ct.Name, &ct.CreatedAt); err != nil {
		return nil, err
	}
	return &ct, nil
}

func (r *causeTypeRepository) List(ctx context.Context) ([]domain.CauseType, error) {
	const query = `SELECT id, name, created_at FROM cause_types ORDER BY name`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CauseType
	for rows.Next() {
		var ct domain.CauseType
		if err := rows.Scan(&ct.ID, &ct.Name, &ct.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, ct)
	}
	return result, rows.Err()
}
