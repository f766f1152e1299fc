package dto

import "time"

// CreateDepartmentRequest payload.
type CreateDepartmentRequest struct {
	Name string `json:"name"`
}

// CreateCategoryRequest payload.
type CreateCategoryRequest struct {
	DepartmentID string `json:"department_id"`
	Name         string `json:"name"`
}

// CreateCauseTypeRequest payload.
type CreateCauseTypeRequest struct {
	Name string `json:"name"`
}

// DepartmentResponse shape.
type DepartmentResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// CategoryResponse shape.
type CategoryResponse struct {
	ID           string    `json:"id"`
	DepartmentID string    `json:"department_id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
}

// CauseTypeResponse shape.
type CauseTypeResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
