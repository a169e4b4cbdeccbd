package repository

import (
	"context"

	"siakad/records/internal/model"
)

// StudentFilter clauses are AND-combined; zero values mean "no clause".
type StudentFilter struct {
	Search       string
	ProgramStudi string
	Angkatan     int
}

type AccountRepository interface {
	Create(ctx context.Context, account model.Account) error
	GetByEmail(ctx context.Context, email string) (model.Account, error)
	GetByID(ctx context.Context, id string) (model.Account, error)
}

type StudentRepository interface {
	Create(ctx context.Context, student model.Student) error
	GetByID(ctx context.Context, id string) (model.Student, error)
	List(ctx context.Context, filter StudentFilter) ([]model.Student, error)
	Update(ctx context.Context, student model.Student) error
	Delete(ctx context.Context, id string) error
}

type Store interface {
	Accounts() AccountRepository
	Students() StudentRepository
}
