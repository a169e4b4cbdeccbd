// Package client is a typed HTTP client for the records API, used by the
// command line tool and usable as a library by other services.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken attaches a bearer token to every subsequent request.
func (c *Client) SetToken(token string) {
	c.token = token
}

// APIError carries the server's status code and machine-readable error code.
type APIError struct {
	StatusCode int
	Code       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d, code %q", e.StatusCode, e.Code)
}

type Account struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type LoginResult struct {
	AccessToken string  `json:"access_token"`
	TokenType   string  `json:"token_type"`
	User        Account `json:"user"`
}

type Student struct {
	ID           string    `json:"id"`
	NIM          string    `json:"nim"`
	Nama         string    `json:"nama"`
	Email        string    `json:"email"`
	ProgramStudi string    `json:"program_studi"`
	Angkatan     int       `json:"angkatan"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type StudentInput struct {
	NIM          string `json:"nim"`
	Nama         string `json:"nama"`
	Email        string `json:"email"`
	ProgramStudi string `json:"program_studi"`
	Angkatan     int    `json:"angkatan"`
}

// StudentPatch holds partial-update fields; nil fields are omitted from the
// request body and left unchanged by the server.
type StudentPatch struct {
	NIM          *string `json:"nim,omitempty"`
	Nama         *string `json:"nama,omitempty"`
	Email        *string `json:"email,omitempty"`
	ProgramStudi *string `json:"program_studi,omitempty"`
	Angkatan     *int    `json:"angkatan,omitempty"`
}

// ListFilter narrows ListStudents; zero values mean "no constraint".
type ListFilter struct {
	Search       string
	ProgramStudi string
	Angkatan     int
}

func (c *Client) Register(ctx context.Context, email, password, name, role string) (Account, error) {
	var account Account
	err := c.do(ctx, http.MethodPost, "/auth/register", map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
		"role":     role,
	}, &account)
	return account, err
}

func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var result LoginResult
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &result)
	if err != nil {
		return LoginResult{}, err
	}
	c.token = result.AccessToken
	return result, nil
}

func (c *Client) Me(ctx context.Context) (Account, error) {
	var account Account
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, &account)
	return account, err
}

func (c *Client) ListStudents(ctx context.Context, filter ListFilter) ([]Student, error) {
	values := url.Values{}
	if filter.Search != "" {
		values.Set("search", filter.Search)
	}
	if filter.ProgramStudi != "" {
		values.Set("program_studi", filter.ProgramStudi)
	}
	if filter.Angkatan > 0 {
		values.Set("angkatan", strconv.Itoa(filter.Angkatan))
	}

	path := "/students/"
	if len(values) > 0 {
		path += "?" + values.Encode()
	}

	var students []Student
	err := c.do(ctx, http.MethodGet, path, nil, &students)
	return students, err
}

func (c *Client) GetStudent(ctx context.Context, id string) (Student, error) {
	var student Student
	err := c.do(ctx, http.MethodGet, "/students/"+id, nil, &student)
	return student, err
}

func (c *Client) CreateStudent(ctx context.Context, input StudentInput) (Student, error) {
	var student Student
	err := c.do(ctx, http.MethodPost, "/students/", input, &student)
	return student, err
}

func (c *Client) UpdateStudent(ctx context.Context, id string, patch StudentPatch) (Student, error) {
	var student Student
	err := c.do(ctx, http.MethodPut, "/students/"+id, patch, &student)
	return student, err
}

func (c *Client) DeleteStudent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/students/"+id, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &APIError{StatusCode: resp.StatusCode, Code: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
