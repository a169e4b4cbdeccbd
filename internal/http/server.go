package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"siakad/records/internal/config"
	"siakad/records/internal/model"
	"siakad/records/internal/repository"
	"siakad/records/internal/service"
	"siakad/records/internal/shared"
)

type Server struct {
	cfg      config.Config
	auth     *service.AuthService
	students *service.StudentService
	logger   zerolog.Logger
}

func NewServer(cfg config.Config, auth *service.AuthService, students *service.StudentService, logger zerolog.Logger) *Server {
	return &Server{cfg: cfg, auth: auth, students: students, logger: logger}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)
	r.With(s.authMiddleware).Get("/auth/me", s.handleGetMe)

	r.Route("/students", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/", s.handleListStudents)
		r.Get("/{studentId}", s.handleGetStudent)
		r.With(s.requireAdmin).Post("/", s.handleCreateStudent)
		r.With(s.requireAdmin).Put("/{studentId}", s.handleUpdateStudent)
		r.With(s.requireAdmin).Delete("/{studentId}", s.handleDeleteStudent)
	})

	return r
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type accountResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type loginResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	User        accountResponse `json:"user"`
}

type studentRequest struct {
	NIM          string `json:"nim"`
	Nama         string `json:"nama"`
	Email        string `json:"email"`
	ProgramStudi string `json:"program_studi"`
	Angkatan     int    `json:"angkatan"`
}

type studentPatchRequest struct {
	NIM          *string `json:"nim,omitempty"`
	Nama         *string `json:"nama,omitempty"`
	Email        *string `json:"email,omitempty"`
	ProgramStudi *string `json:"program_studi,omitempty"`
	Angkatan     *int    `json:"angkatan,omitempty"`
}

type studentResponse struct {
	ID           string    `json:"id"`
	NIM          string    `json:"nim"`
	Nama         string    `json:"nama"`
	Email        string    `json:"email"`
	ProgramStudi string    `json:"program_studi"`
	Angkatan     int       `json:"angkatan"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	account, err := s.auth.Register(r.Context(), req.Email, req.Password, req.Name, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "missing_or_invalid_fields")
		case errors.Is(err, shared.ErrConflict):
			writeError(w, http.StatusConflict, "email_already_registered")
		default:
			s.logger.Error().Err(err).Msg("register failed")
			writeError(w, http.StatusInternalServerError, "server_error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, mapAccount(account))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	account, token, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "missing_credentials")
		case errors.Is(err, shared.ErrUnauthorized):
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
		case errors.Is(err, shared.ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, "too_many_attempts")
		default:
			s.logger.Error().Err(err).Msg("login failed")
			writeError(w, http.StatusInternalServerError, "server_error")
		}
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        mapAccount(account),
	})
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	writeJSON(w, http.StatusOK, mapAccount(account))
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	filter := repository.StudentFilter{
		Search:       strings.TrimSpace(r.URL.Query().Get("search")),
		ProgramStudi: strings.TrimSpace(r.URL.Query().Get("program_studi")),
	}
	if raw := r.URL.Query().Get("angkatan"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_angkatan")
			return
		}
		filter.Angkatan = parsed
	}

	students, err := s.students.List(r.Context(), filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("list students failed")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := make([]studentResponse, 0, len(students))
	for _, student := range students {
		resp = append(resp, mapStudent(student))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentId")
	if studentID == "" {
		writeError(w, http.StatusBadRequest, "missing_student_id")
		return
	}

	student, err := s.students.Get(r.Context(), studentID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			writeError(w, http.StatusNotFound, "student_not_found")
			return
		}
		s.logger.Error().Err(err).Msg("get student failed")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, mapStudent(student))
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	var req studentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	student, err := s.students.Create(r.Context(), service.StudentInput{
		NIM:          req.NIM,
		Nama:         req.Nama,
		Email:        req.Email,
		ProgramStudi: req.ProgramStudi,
		Angkatan:     req.Angkatan,
	}, account)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrForbidden):
			writeError(w, http.StatusForbidden, "admin_only")
		case errors.Is(err, shared.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "missing_or_invalid_fields")
		case errors.Is(err, shared.ErrConflict):
			writeError(w, http.StatusConflict, "nim_already_exists")
		default:
			s.logger.Error().Err(err).Msg("create student failed")
			writeError(w, http.StatusInternalServerError, "server_error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, mapStudent(student))
}

func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	studentID := chi.URLParam(r, "studentId")
	if studentID == "" {
		writeError(w, http.StatusBadRequest, "missing_student_id")
		return
	}

	var req studentPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	student, err := s.students.Update(r.Context(), studentID, service.StudentPatch{
		NIM:          req.NIM,
		Nama:         req.Nama,
		Email:        req.Email,
		ProgramStudi: req.ProgramStudi,
		Angkatan:     req.Angkatan,
	}, account)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrForbidden):
			writeError(w, http.StatusForbidden, "admin_only")
		case errors.Is(err, shared.ErrNotFound):
			writeError(w, http.StatusNotFound, "student_not_found")
		case errors.Is(err, shared.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "invalid_fields")
		case errors.Is(err, shared.ErrConflict):
			writeError(w, http.StatusConflict, "nim_already_exists")
		default:
			s.logger.Error().Err(err).Msg("update student failed")
			writeError(w, http.StatusInternalServerError, "server_error")
		}
		return
	}

	writeJSON(w, http.StatusOK, mapStudent(student))
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	studentID := chi.URLParam(r, "studentId")
	if studentID == "" {
		writeError(w, http.StatusBadRequest, "missing_student_id")
		return
	}

	if err := s.students.Delete(r.Context(), studentID, account); err != nil {
		switch {
		case errors.Is(err, shared.ErrForbidden):
			writeError(w, http.StatusForbidden, "admin_only")
		case errors.Is(err, shared.ErrNotFound):
			writeError(w, http.StatusNotFound, "student_not_found")
		default:
			s.logger.Error().Err(err).Msg("delete student failed")
			writeError(w, http.StatusInternalServerError, "server_error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}

		account, err := s.auth.Verify(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}

		ctx := context.WithValue(r.Context(), accountKey{}, account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin is a routing convenience; the student service re-checks the
// role itself, so the gate holds even for callers that bypass the router.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, ok := accountFromContext(r.Context())
		if !ok || account.Role != model.RoleAdmin {
			writeError(w, http.StatusForbidden, "admin_only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

type accountKey struct{}

func accountFromContext(ctx context.Context) (model.Account, bool) {
	account, ok := ctx.Value(accountKey{}).(model.Account)
	return account, ok
}

func mapAccount(account model.Account) accountResponse {
	return accountResponse{
		ID:        account.ID,
		Email:     account.Email,
		Name:      account.Name,
		Role:      account.Role,
		CreatedAt: account.CreatedAt,
	}
}

func mapStudent(student model.Student) studentResponse {
	return studentResponse{
		ID:           student.ID,
		NIM:          student.NIM,
		Nama:         student.Nama,
		Email:        student.Email,
		ProgramStudi: student.ProgramStudi,
		Angkatan:     student.Angkatan,
		CreatedAt:    student.CreatedAt,
		UpdatedAt:    student.UpdatedAt,
	}
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
