package service

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/SpherCodes/LaserStrike/game/player"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrNotConfigured = errors.New("backend API URL is not configured")
)

// APIError is a non-2xx response from the backend
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error: %d", e.StatusCode)
}

// Is lets errors.Is match ErrNotFound for 404 responses
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// HealthStatus is the backend's root response
type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// createPlayerResponse is the body returned by POST /users
type createPlayerResponse struct {
	Message string         `json:"message"`
	User    *player.Player `json:"user"`
}

// errorResponse covers both detail (FastAPI) and error style bodies
type errorResponse struct {
	Detail string `json:"detail"`
	Error  string `json:"error"`
}
