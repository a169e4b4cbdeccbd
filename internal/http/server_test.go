package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"siakad/records/internal/config"
	"siakad/records/internal/repository"
	"siakad/records/internal/service"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := config.Config{
		JWTSecret:      "test-secret",
		JWTIssuer:      "records-test",
		AccessTokenTTL: time.Hour,
	}
	store := repository.NewMemoryStore()
	auth := service.NewAuthService(cfg, store, nil)
	students := service.NewStudentService(store)
	srv := NewServer(cfg, auth, students, zerolog.Nop())

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, token string, payload interface{}) *http.Response {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func registerAndLogin(t *testing.T, ts *httptest.Server, email, role string) string {
	t.Helper()

	resp := doJSON(t, http.MethodPost, ts.URL+"/auth/register", "", map[string]string{
		"email":    email,
		"password": "secret123",
		"name":     "Test User",
		"role":     role,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status = %d, want 201", email, resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, ts.URL+"/auth/login", "", map[string]string{
		"email":    email,
		"password": "secret123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: status = %d, want 200", email, resp.StatusCode)
	}
	var login loginResponse
	decodeBody(t, resp, &login)
	if login.AccessToken == "" {
		t.Fatal("login returned empty access token")
	}
	if login.TokenType != "bearer" {
		t.Fatalf("token_type = %q, want bearer", login.TokenType)
	}
	return login.AccessToken
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["status"] != "ok" {
		t.Fatalf("status field = %q, want ok", body["status"])
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ts := newTestServer(t)

	payload := map[string]string{
		"email":    "dupe@example.com",
		"password": "secret123",
		"name":     "First",
	}
	resp := doJSON(t, http.MethodPost, ts.URL+"/auth/register", "", payload)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first register: status = %d, want 201", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, ts.URL+"/auth/register", "", payload)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second register: status = %d, want 409", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["error"] != "email_already_registered" {
		t.Fatalf("error = %q, want email_already_registered", body["error"])
	}
}

func TestRegisterMissingFields(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/auth/register", "", map[string]string{
		"email": "no-password@example.com",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	ts := newTestServer(t)
	registerAndLogin(t, ts, "victim@example.com", "user")

	resp := doJSON(t, http.MethodPost, ts.URL+"/auth/login", "", map[string]string{
		"email":    "victim@example.com",
		"password": "wrong-password",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["error"] != "invalid_credentials" {
		t.Fatalf("error = %q, want invalid_credentials", body["error"])
	}
}

func TestGetMe(t *testing.T) {
	ts := newTestServer(t)
	token := registerAndLogin(t, ts, "me@example.com", "user")

	resp := doJSON(t, http.MethodGet, ts.URL+"/auth/me", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var account accountResponse
	decodeBody(t, resp, &account)
	if account.Email != "me@example.com" {
		t.Fatalf("email = %q, want me@example.com", account.Email)
	}
	if account.Role != "user" {
		t.Fatalf("role = %q, want user", account.Role)
	}
}

func TestMissingToken(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/auth/me", "/students/"} {
		resp := doJSON(t, http.MethodGet, ts.URL+path, "", nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("GET %s without token: status = %d, want 401", path, resp.StatusCode)
		}
	}
}

func TestInvalidToken(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, http.MethodGet, ts.URL+"/auth/me", "not-a-real-token", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestStudentCRUDAsAdmin(t *testing.T) {
	ts := newTestServer(t)
	token := registerAndLogin(t, ts, "admin@example.com", "admin")

	resp := doJSON(t, http.MethodPost, ts.URL+"/students/", token, map[string]interface{}{
		"nim":           "1101210001",
		"nama":          "Budi Santoso",
		"email":         "budi@student.example.com",
		"program_studi": "Informatika",
		"angkatan":      2021,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status = %d, want 201", resp.StatusCode)
	}
	var created studentResponse
	decodeBody(t, resp, &created)
	if created.ID == "" {
		t.Fatal("created student has empty id")
	}
	if created.NIM != "1101210001" {
		t.Fatalf("nim = %q, want 1101210001", created.NIM)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/students/"+created.ID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: status = %d, want 200", resp.StatusCode)
	}
	var fetched studentResponse
	decodeBody(t, resp, &fetched)
	if fetched.Nama != "Budi Santoso" {
		t.Fatalf("nama = %q, want Budi Santoso", fetched.Nama)
	}

	newName := "Budi S. Santoso"
	resp = doJSON(t, http.MethodPut, ts.URL+"/students/"+created.ID, token, map[string]interface{}{
		"nama": newName,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: status = %d, want 200", resp.StatusCode)
	}
	var updated studentResponse
	decodeBody(t, resp, &updated)
	if updated.Nama != newName {
		t.Fatalf("nama after update = %q, want %q", updated.Nama, newName)
	}
	if updated.ProgramStudi != "Informatika" {
		t.Fatalf("program_studi changed on partial update: %q", updated.ProgramStudi)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Fatal("updated_at not advanced past created_at")
	}

	resp = doJSON(t, http.MethodDelete, ts.URL+"/students/"+created.ID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: status = %d, want 200", resp.StatusCode)
	}
	var deleted map[string]string
	decodeBody(t, resp, &deleted)
	if deleted["status"] != "deleted" {
		t.Fatalf("delete body = %v, want status=deleted", deleted)
	}

	resp = doJSON(t, http.MethodDelete, ts.URL+"/students/"+created.ID, token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete: status = %d, want 404", resp.StatusCode)
	}
}

func TestStudentWritesForbiddenForUser(t *testing.T) {
	ts := newTestServer(t)
	adminToken := registerAndLogin(t, ts, "admin@example.com", "admin")
	userToken := registerAndLogin(t, ts, "reader@example.com", "user")

	resp := doJSON(t, http.MethodPost, ts.URL+"/students/", adminToken, map[string]interface{}{
		"nim":           "1101210002",
		"nama":          "Siti Aminah",
		"email":         "siti@student.example.com",
		"program_studi": "Sistem Informasi",
		"angkatan":      2022,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("admin create: status = %d, want 201", resp.StatusCode)
	}
	var created studentResponse
	decodeBody(t, resp, &created)

	resp = doJSON(t, http.MethodPost, ts.URL+"/students/", userToken, map[string]interface{}{
		"nim":           "1101210003",
		"nama":          "Andi",
		"email":         "andi@student.example.com",
		"program_studi": "Informatika",
		"angkatan":      2022,
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("user create: status = %d, want 403", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["error"] != "admin_only" {
		t.Fatalf("error = %q, want admin_only", body["error"])
	}

	resp = doJSON(t, http.MethodPut, ts.URL+"/students/"+created.ID, userToken, map[string]interface{}{"nama": "X"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("user update: status = %d, want 403", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodDelete, ts.URL+"/students/"+created.ID, userToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("user delete: status = %d, want 403", resp.StatusCode)
	}

	// reads stay open to every authenticated account
	resp = doJSON(t, http.MethodGet, ts.URL+"/students/"+created.ID, userToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("user read: status = %d, want 200", resp.StatusCode)
	}
}

func TestStudentDuplicateNIM(t *testing.T) {
	ts := newTestServer(t)
	token := registerAndLogin(t, ts, "admin@example.com", "admin")

	payload := map[string]interface{}{
		"nim":           "1101210010",
		"nama":          "Dewi",
		"email":         "dewi@student.example.com",
		"program_studi": "Informatika",
		"angkatan":      2021,
	}
	resp := doJSON(t, http.MethodPost, ts.URL+"/students/", token, payload)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first create: status = %d, want 201", resp.StatusCode)
	}
	resp.Body.Close()

	payload["email"] = "dewi2@student.example.com"
	resp = doJSON(t, http.MethodPost, ts.URL+"/students/", token, payload)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate nim: status = %d, want 409", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["error"] != "nim_already_exists" {
		t.Fatalf("error = %q, want nim_already_exists", body["error"])
	}
}

func TestStudentNIMImmutable(t *testing.T) {
	ts := newTestServer(t)
	token := registerAndLogin(t, ts, "admin@example.com", "admin")

	resp := doJSON(t, http.MethodPost, ts.URL+"/students/", token, map[string]interface{}{
		"nim":           "1101210020",
		"nama":          "Rina",
		"email":         "rina@student.example.com",
		"program_studi": "Informatika",
		"angkatan":      2020,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status = %d, want 201", resp.StatusCode)
	}
	var created studentResponse
	decodeBody(t, resp, &created)

	resp = doJSON(t, http.MethodPut, ts.URL+"/students/"+created.ID, token, map[string]interface{}{
		"nim": "9999999999",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("nim change: status = %d, want 400", resp.StatusCode)
	}
}

func TestStudentListFilters(t *testing.T) {
	ts := newTestServer(t)
	token := registerAndLogin(t, ts, "admin@example.com", "admin")

	seed := []map[string]interface{}{
		{"nim": "1101210030", "nama": "Budi Santoso", "email": "b1@student.example.com", "program_studi": "Informatika", "angkatan": 2021},
		{"nim": "1101220031", "nama": "Citra Lestari", "email": "c1@student.example.com", "program_studi": "Informatika", "angkatan": 2022},
		{"nim": "1101220032", "nama": "Dian Budiman", "email": "d1@student.example.com", "program_studi": "Sistem Informasi", "angkatan": 2022},
	}
	for _, s := range seed {
		resp := doJSON(t, http.MethodPost, ts.URL+"/students/", token, s)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("seed %v: status = %d, want 201", s["nim"], resp.StatusCode)
		}
		resp.Body.Close()
	}

	cases := []struct {
		name  string
		query string
		want  int
	}{
		{"all", "", 3},
		{"by program", "?program_studi=Informatika", 2},
		{"by angkatan", "?angkatan=2022", 2},
		{"by search nama", "?search=budi", 2},
		{"by search nim", "?search=1101220032", 1},
		{"combined", "?program_studi=Informatika&angkatan=2022", 1},
		{"no match", "?search=nonexistent", 0},
	}
	for _, tc := range cases {
		resp := doJSON(t, http.MethodGet, ts.URL+"/students/"+tc.query, token, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status = %d, want 200", tc.name, resp.StatusCode)
		}
		var list []studentResponse
		decodeBody(t, resp, &list)
		if len(list) != tc.want {
			t.Fatalf("%s: got %d students, want %d", tc.name, len(list), tc.want)
		}
	}

	resp := doJSON(t, http.MethodGet, ts.URL+"/students/?angkatan=abc", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid angkatan: status = %d, want 400", resp.StatusCode)
	}
}

func TestStudentInvalidAngkatan(t *testing.T) {
	ts := newTestServer(t)
	token := registerAndLogin(t, ts, "admin@example.com", "admin")

	resp := doJSON(t, http.MethodPost, ts.URL+"/students/", token, map[string]interface{}{
		"nim":           "1101210040",
		"nama":          "Eka",
		"email":         "eka@student.example.com",
		"program_studi": "Informatika",
		"angkatan":      0,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
