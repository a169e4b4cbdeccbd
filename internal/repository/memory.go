package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"siakad/records/internal/model"
	"siakad/records/internal/shared"
)

// MemoryStore mirrors the postgres semantics (uniqueness, not-found, stable
// insertion order) without a database. Used by tests and local tooling.
type MemoryStore struct {
	accounts *memoryAccountRepository
	students *memoryStudentRepository
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: &memoryAccountRepository{
			byID:    make(map[string]model.Account),
			byEmail: make(map[string]string),
		},
		students: &memoryStudentRepository{
			byID:  make(map[string]model.Student),
			byNIM: make(map[string]string),
		},
	}
}

func (s *MemoryStore) Accounts() AccountRepository { return s.accounts }
func (s *MemoryStore) Students() StudentRepository { return s.students }

type memoryAccountRepository struct {
	mu      sync.RWMutex
	byID    map[string]model.Account
	byEmail map[string]string
}

func (r *memoryAccountRepository) Create(_ context.Context, account model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[account.Email]; ok {
		return fmt.Errorf("%w: email %s", shared.ErrConflict, account.Email)
	}
	r.byID[account.ID] = account
	r.byEmail[account.Email] = account.ID
	return nil
}

func (r *memoryAccountRepository) GetByEmail(_ context.Context, email string) (model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return model.Account{}, shared.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *memoryAccountRepository) GetByID(_ context.Context, id string) (model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.byID[id]
	if !ok {
		return model.Account{}, shared.ErrNotFound
	}
	return account, nil
}

type memoryStudentRepository struct {
	mu    sync.RWMutex
	byID  map[string]model.Student
	byNIM map[string]string
	order []string
}

func (r *memoryStudentRepository) Create(_ context.Context, student model.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byNIM[student.NIM]; ok {
		return fmt.Errorf("%w: nim %s", shared.ErrConflict, student.NIM)
	}
	r.byID[student.ID] = student
	r.byNIM[student.NIM] = student.ID
	r.order = append(r.order, student.ID)
	return nil
}

func (r *memoryStudentRepository) GetByID(_ context.Context, id string) (model.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	student, ok := r.byID[id]
	if !ok {
		return model.Student{}, shared.ErrNotFound
	}
	return student, nil
}

func (r *memoryStudentRepository) List(_ context.Context, filter StudentFilter) ([]model.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	students := make([]model.Student, 0, len(r.order))
	for _, id := range r.order {
		student := r.byID[id]
		if matches(student, filter) {
			students = append(students, student)
		}
	}
	return students, nil
}

func (r *memoryStudentRepository) Update(_ context.Context, student model.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.byID[student.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if student.NIM != current.NIM {
		if owner, ok := r.byNIM[student.NIM]; ok && owner != student.ID {
			return fmt.Errorf("%w: nim %s", shared.ErrConflict, student.NIM)
		}
		delete(r.byNIM, current.NIM)
		r.byNIM[student.NIM] = student.ID
	}
	r.byID[student.ID] = student
	return nil
}

func (r *memoryStudentRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	student, ok := r.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.byNIM, student.NIM)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func matches(student model.Student, filter StudentFilter) bool {
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(student.Nama), needle) &&
			!strings.Contains(strings.ToLower(student.NIM), needle) &&
			!strings.Contains(strings.ToLower(student.Email), needle) {
			return false
		}
	}
	if filter.ProgramStudi != "" && student.ProgramStudi != filter.ProgramStudi {
		return false
	}
	if filter.Angkatan != 0 && student.Angkatan != filter.Angkatan {
		return false
	}
	return true
}
