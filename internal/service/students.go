package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"siakad/records/internal/model"
	"siakad/records/internal/repository"
	"siakad/records/internal/shared"
)

type StudentService struct {
	store repository.Store
}

func NewStudentService(store repository.Store) *StudentService {
	return &StudentService{store: store}
}

type StudentInput struct {
	NIM          string
	Nama         string
	Email        string
	ProgramStudi string
	Angkatan     int
}

// StudentPatch carries partial-update fields; nil means "leave unchanged".
type StudentPatch struct {
	NIM          *string
	Nama         *string
	Email        *string
	ProgramStudi *string
	Angkatan     *int
}

func (s *StudentService) List(ctx context.Context, filter repository.StudentFilter) ([]model.Student, error) {
	return s.store.Students().List(ctx, filter)
}

func (s *StudentService) Get(ctx context.Context, id string) (model.Student, error) {
	return s.store.Students().GetByID(ctx, id)
}

func (s *StudentService) Create(ctx context.Context, input StudentInput, acting model.Account) (model.Student, error) {
	if err := requireAdmin(acting); err != nil {
		return model.Student{}, err
	}

	input.NIM = strings.TrimSpace(input.NIM)
	input.Nama = strings.TrimSpace(input.Nama)
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	input.ProgramStudi = strings.TrimSpace(input.ProgramStudi)
	if input.NIM == "" || input.Nama == "" || input.Email == "" || input.ProgramStudi == "" {
		return model.Student{}, fmt.Errorf("%w: nim, nama, email and program_studi are required", shared.ErrInvalidInput)
	}
	if input.Angkatan <= 0 {
		return model.Student{}, fmt.Errorf("%w: angkatan must be a positive year", shared.ErrInvalidInput)
	}

	now := time.Now().UTC()
	student := model.Student{
		ID:           uuid.NewString(),
		NIM:          input.NIM,
		Nama:         input.Nama,
		Email:        input.Email,
		ProgramStudi: input.ProgramStudi,
		Angkatan:     input.Angkatan,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Students().Create(ctx, student); err != nil {
		return model.Student{}, err
	}
	return student, nil
}

func (s *StudentService) Update(ctx context.Context, id string, patch StudentPatch, acting model.Account) (model.Student, error) {
	if err := requireAdmin(acting); err != nil {
		return model.Student{}, err
	}

	student, err := s.store.Students().GetByID(ctx, id)
	if err != nil {
		return model.Student{}, err
	}

	// NIM is immutable after creation; a patch repeating the stored value is
	// accepted, anything else is rejected.
	if patch.NIM != nil && strings.TrimSpace(*patch.NIM) != student.NIM {
		return model.Student{}, fmt.Errorf("%w: nim cannot be changed", shared.ErrInvalidInput)
	}
	if patch.Nama != nil {
		nama := strings.TrimSpace(*patch.Nama)
		if nama != "" {
			student.Nama = nama
		}
	}
	if patch.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*patch.Email))
		if email != "" {
			student.Email = email
		}
	}
	if patch.ProgramStudi != nil {
		program := strings.TrimSpace(*patch.ProgramStudi)
		if program != "" {
			student.ProgramStudi = program
		}
	}
	if patch.Angkatan != nil {
		if *patch.Angkatan <= 0 {
			return model.Student{}, fmt.Errorf("%w: angkatan must be a positive year", shared.ErrInvalidInput)
		}
		student.Angkatan = *patch.Angkatan
	}
	student.UpdatedAt = time.Now().UTC()

	if err := s.store.Students().Update(ctx, student); err != nil {
		return model.Student{}, err
	}
	return student, nil
}

func (s *StudentService) Delete(ctx context.Context, id string, acting model.Account) error {
	if err := requireAdmin(acting); err != nil {
		return err
	}
	return s.store.Students().Delete(ctx, id)
}

func requireAdmin(acting model.Account) error {
	if acting.Role != model.RoleAdmin {
		return shared.ErrForbidden
	}
	return nil
}
