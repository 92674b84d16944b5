// Package handlers implements the HTTP API over the categorization
// pipeline. Handlers are thin: decode, delegate, encode; every business
// rule lives in the packages they call.
package handlers

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/RonStack/leaky-buckets/internal/api/middleware"
	"github.com/RonStack/leaky-buckets/internal/domain"
)

var monthKeyRe = regexp.MustCompile(`^\d{4}-\d{2}$`)

// validMonthKey reports whether s looks like "2026-01".
func validMonthKey(s string) bool {
	return monthKeyRe.MatchString(s)
}

// writeDomainError maps pipeline sentinels onto status codes; anything
// unrecognized is logged and reported as a 500 with the fallback message.
func writeDomainError(w http.ResponseWriter, log zerolog.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrMonthLocked):
		middleware.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrMalformedRecord):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrAlreadyExists):
		middleware.WriteError(w, http.StatusConflict, err.Error())
	default:
		log.Error().Err(err).Msg(fallback)
		middleware.WriteError(w, http.StatusInternalServerError, fallback)
	}
}
