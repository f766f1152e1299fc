package domain

import "time"

// Department represents a high-level organizational unit.
type Department struct {
	ID        string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Category classifies tickets and routes them to its owning department.
type Category struct {
	ID           string
	DepartmentID string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CauseType classifies the root cause recorded during triage.
type CauseType struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
