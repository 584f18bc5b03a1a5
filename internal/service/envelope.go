package service

import (
	"net/http"

	"github.com/hession/pokemate/internal/pokemon"
)

// Envelope is the uniform response body of every dispatch surface
type Envelope struct {
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
	Success bool   `json:"success"`
}

// Wrap builds the envelope for a result or an error. Only the error message is exposed.
func Wrap(result any, err error) Envelope {
	if err != nil {
		return Envelope{Error: err.Error()}
	}
	return Envelope{Result: result, Success: true}
}

// StatusCode maps an error to an HTTP status
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case pokemon.IsInvalidInput(err):
		return http.StatusBadRequest
	case pokemon.IsNotFound(err):
		return http.StatusNotFound
	case pokemon.IsUpstream(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
