// Package server provides the HTTP REST API for the communication pipeline.
package server

import (
	"errors"
	"net/http"

	"github.com/candorhq/candor/internal/db"
	"github.com/candorhq/candor/internal/drafting"
	"github.com/candorhq/candor/internal/gate"
	"github.com/candorhq/candor/internal/voice"
)

// HTTPStatus returns the appropriate HTTP status code for an error.
func HTTPStatus(err error) int {
	var conflict *db.TransitionConflictError
	var notFound *db.NotFoundError
	var insufficient *drafting.InsufficientContextError
	var transport *gate.TransportError
	var extraction *voice.ExtractionError

	switch {
	case errors.As(err, &conflict), errors.Is(err, drafting.ErrActiveCommunication):
		return http.StatusConflict
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &insufficient):
		return http.StatusUnprocessableEntity
	case errors.As(err, &extraction):
		return http.StatusUnprocessableEntity
	case errors.As(err, &transport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
