package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/deskflow/internal/domain"
	"github.com/spec-kit/deskflow/internal/repository"
	apperrors "github.com/spec-kit/deskflow/pkg/util"
)

// LookupService serves the reference data tickets are filed against:
// departments, their categories and the cause-type catalogue.
type LookupService struct {
	departments repository.DepartmentRepository
	categories  repository.CategoryRepository
	causeTypes  repository.CauseTypeRepository
}

// NewLookupService constructs the service.
func NewLookupService(departments repository.DepartmentRepository, categories repository.CategoryRepository, causeTypes repository.CauseTypeRepository) *LookupService {
	return &LookupService{departments: departments, categories: categories, causeTypes: causeTypes}
}

// ListDepartments returns active departments.
func (s *LookupService) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	depts, err := s.departments.ListActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return depts, nil
}

// ListCategories returns all categories.
func (s *LookupService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return categories, nil
}

// ListCauseTypes returns the cause-type catalogue.
func (s *LookupService) ListCauseTypes(ctx context.Context) ([]domain.CauseType, error) {
	causeTypes, err := s.causeTypes.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return causeTypes, nil
}

// CreateDepartment registers a new department.
func (s *LookupService) CreateDepartment(ctx context.Context, name string) (*domain.Department, error) {
	dept := &domain.Department{Name: name, IsActive: true}
	if err := s.departments.Create(ctx, dept); err != nil {
		return nil, apperrors.MapError(err)
	}
	return dept, nil
}

// CreateCategory registers a category under a department.
func (s *LookupService) CreateCategory(ctx context.Context, departmentID, name string) (*domain.Category, error) {
	if _, err := s.departments.GetByID(ctx, departmentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("department", map[string]any{"department_id": departmentID})
		}
		return nil, apperrors.MapError(err)
	}
	category := &domain.Category{DepartmentID: departmentID, Name: name}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, apperrors.MapError(err)
	}
	return category, nil
}

// CreateCauseType registers a cause type.
func (s *LookupService) CreateCauseType(ctx context.Context, name string) (*domain.CauseType, error) {
	ct := &domain.CauseType{Name: name}
	if err := s.causeTypes.Create(ctx, ct); err != nil {
		return nil, apperrors.MapError(err)
	}
	return ct, nil
}
