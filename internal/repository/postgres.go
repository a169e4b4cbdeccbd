package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"siakad/records/internal/model"
	"siakad/records/internal/shared"
)

const uniqueViolation = "23505"

type PostgresStore struct {
	accounts *postgresAccountRepository
	students *postgresStudentRepository
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		accounts: &postgresAccountRepository{pool: pool},
		students: &postgresStudentRepository{pool: pool},
	}
}

func (s *PostgresStore) Accounts() AccountRepository { return s.accounts }
func (s *PostgresStore) Students() StudentRepository { return s.students }

type postgresAccountRepository struct {
	pool *pgxpool.Pool
}

func (r *postgresAccountRepository) Create(ctx context.Context, account model.Account) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO accounts (id, email, password_hash, name, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, account.ID, account.Email, account.PasswordHash, account.Name, account.Role, account.CreatedAt)
	return mapPgError(err)
}

func (r *postgresAccountRepository) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, name, role, created_at
		FROM accounts
		WHERE email = $1
	`, email)
	return scanAccount(row)
}

func (r *postgresAccountRepository) GetByID(ctx context.Context, id string) (model.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, name, role, created_at
		FROM accounts
		WHERE id = $1
	`, id)
	return scanAccount(row)
}

func scanAccount(row pgx.Row) (model.Account, error) {
	var account model.Account
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.Name,
		&account.Role,
		&account.CreatedAt,
	)
	return account, mapPgError(err)
}

type postgresStudentRepository struct {
	pool *pgxpool.Pool
}

func (r *postgresStudentRepository) Create(ctx context.Context, student model.Student) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO students (id, nim, nama, email, program_studi, angkatan, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, student.ID, student.NIM, student.Nama, student.Email, student.ProgramStudi, student.Angkatan, student.CreatedAt, student.UpdatedAt)
	return mapPgError(err)
}

func (r *postgresStudentRepository) GetByID(ctx context.Context, id string) (model.Student, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, nim, nama, email, program_studi, angkatan, created_at, updated_at
		FROM students
		WHERE id = $1
	`, id)
	return scanStudent(row)
}

func (r *postgresStudentRepository) List(ctx context.Context, filter StudentFilter) ([]model.Student, error) {
	query := `
		SELECT id, nim, nama, email, program_studi, angkatan, created_at, updated_at
		FROM students
	`
	var clauses []string
	var args []interface{}

	if filter.Search != "" {
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		n := strconv.Itoa(len(args))
		clauses = append(clauses, "(nama ILIKE $"+n+" OR nim ILIKE $"+n+" OR email ILIKE $"+n+")")
	}
	if filter.ProgramStudi != "" {
		args = append(args, filter.ProgramStudi)
		clauses = append(clauses, "program_studi = $"+strconv.Itoa(len(args)))
	}
	if filter.Angkatan != 0 {
		args = append(args, filter.Angkatan)
		clauses = append(clauses, "angkatan = $"+strconv.Itoa(len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	students := make([]model.Student, 0)
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, student)
	}
	return students, rows.Err()
}

func (r *postgresStudentRepository) Update(ctx context.Context, student model.Student) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE students
		SET nim = $2, nama = $3, email = $4, program_studi = $5, angkatan = $6, updated_at = $7
		WHERE id = $1
	`, student.ID, student.NIM, student.Nama, student.Email, student.ProgramStudi, student.Angkatan, student.UpdatedAt)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *postgresStudentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanStudent(row pgx.Row) (model.Student, error) {
	var student model.Student
	err := row.Scan(
		&student.ID,
		&student.NIM,
		&student.Nama,
		&student.Email,
		&student.ProgramStudi,
		&student.Angkatan,
		&student.CreatedAt,
		&student.UpdatedAt,
	)
	return student, mapPgError(err)
}

// escapeLike neutralizes LIKE metacharacters so search terms match as plain
// substrings, same as the in-memory store's Contains matching.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", shared.ErrConflict, pgErr.ConstraintName)
	}
	return err
}
