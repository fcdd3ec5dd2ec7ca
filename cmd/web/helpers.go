package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/myrjola/casefile/internal/ai"
	"github.com/myrjola/casefile/internal/contexthelpers"
	"github.com/myrjola/casefile/internal/errors"
	"github.com/myrjola/casefile/internal/generator"
	"github.com/myrjola/casefile/internal/interrogation"
	"github.com/myrjola/casefile/internal/models"
	"github.com/myrjola/casefile/internal/repositories"
)

// maxBodyBytes limits request bodies. Cases are the largest documents accepted.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error     string         `json:"error"`
	Issues    []models.Issue `json:"issues,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

func (app *application) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "marshal response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(append(body, '\n')); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelDebug, "write response", errors.SlogError(err))
	}
}

func (app *application) writeError(w http.ResponseWriter, r *http.Request, status int, msg string, issues []models.Issue) {
	body, _ := json.Marshal(errorResponse{
		Error:     msg,
		Issues:    issues,
		RequestID: contexthelpers.RequestID(r.Context()),
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error",
		slog.String("method", method), slog.String("uri", uri), errors.SlogError(err))
	app.writeError(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), nil)
}

func (app *application) clientError(w http.ResponseWriter, r *http.Request, status int, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.logger.LogAttrs(r.Context(), slog.LevelDebug, http.StatusText(status),
		slog.String("method", method), slog.String("uri", uri), errors.SlogError(err))
	var issues []models.Issue
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		issues = validationErr.Issues
	}
	msg := http.StatusText(status)
	if err != nil {
		msg = rootMessage(err)
	}
	app.writeError(w, r, status, msg, issues)
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.clientError(w, r, http.StatusNotFound, nil)
}

// handleError responds with the status matching the error kind.
func (app *application) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, generator.ErrEmptyTheme),
		errors.Is(err, interrogation.ErrUnknownIntent),
		errors.Is(err, interrogation.ErrUnknownTone),
		errors.Is(err, interrogation.ErrClueRequired),
		errors.Is(err, interrogation.ErrUnknownClue):
		app.clientError(w, r, http.StatusBadRequest, err)
	case errors.Is(err, repositories.ErrNotFound),
		errors.Is(err, interrogation.ErrUnknownCase),
		errors.Is(err, interrogation.ErrUnknownNPC):
		app.clientError(w, r, http.StatusNotFound, err)
	case errors.Is(err, repositories.ErrDuplicateCase):
		app.clientError(w, r, http.StatusConflict, err)
	case errors.Is(err, ai.ErrModelFailed):
		app.logger.LogAttrs(r.Context(), slog.LevelError, "model failed", errors.SlogError(err))
		app.writeError(w, r, http.StatusBadGateway, "language model request failed", nil)
	default:
		app.serverError(w, r, err)
	}
}

// decodeJSON decodes a size limited JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errBadRequest, "decode request body: "+err.Error())
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.Wrap(errBadRequest, "decode request body: trailing data")
	}
	return nil
}

var errBadRequest = errors.NewSentinel("bad request")

// rootMessage returns the message of the innermost error so that responses don't leak wrapping context.
func rootMessage(err error) string {
	var validationErr *models.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return models.ErrValidation.Error()
	case errors.Is(err, errBadRequest):
		// Decoding errors describe the client's mistake.
		return err.Error()
	}
	for {
		var next error
		switch u := err.(type) { //nolint:errorlint // walking the chain by hand
		case interface{ Unwrap() []error }:
			wrapped := u.Unwrap()
			if len(wrapped) == 0 {
				return err.Error()
			}
			next = wrapped[len(wrapped)-1]
		case interface{ Unwrap() error }:
			next = u.Unwrap()
		default:
			return err.Error()
		}
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
