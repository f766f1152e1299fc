package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of pgx satisfied by both *pgxpool.Pool and pgx.Tx, so the
// same repository code serves plain reads and transactional mutations.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repos bundles every repository over one DB handle.
type Repos struct {
	Tickets     TicketRepository
	Progress    ProgressRepository
	Users       UserRepository
	Categories  CategoryRepository
	Departments DepartmentRepository
	CauseTypes  CauseTypeRepository
	Attachments AttachmentRepository
	Comments    CommentRepository
}

// NewRepos builds the bundle over a pool or transaction.
func NewRepos(db DB) *Repos {
	return &Repos{
		Tickets:     NewTicketRepository(db),
		Progress:    NewProgressRepository(db),
		Users:       NewUserRepository(db),
		Categories:  NewCategoryRepository(db),
		Departments: NewDepartmentRepository(db),
		CauseTypes:  NewCauseTypeRepository(db),
		Attachments: NewAttachmentRepository(db),
		Comments:    NewCommentRepository(db),
	}
}

// TxRunner executes a function against a transactional repository bundle.
// Workflow mutations run through it so ticket, links and progress entry
// commit together or not at all.
type TxRunner interface {
	Do(ctx context.Context, fn func(r *Repos) error) error
}

// UnitOfWork is the pgx-backed TxRunner.
type UnitOfWork struct {
	pool *pgxpool.Pool
}

// NewUnitOfWork wraps a pool.
func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{pool: pool}
}

// Do runs fn inside a single transaction, committing on success.
func (u *UnitOfWork) Do(ctx context.Context, fn func(r *Repos) error) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(NewRepos(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
