package model

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         string
	CreatedAt    time.Time
}

type Student struct {
	ID           string
	NIM          string
	Nama         string
	Email        string
	ProgramStudi string
	Angkatan     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
