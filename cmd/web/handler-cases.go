package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/myrjola/casefile/internal/errors"
	"github.com/myrjola/casefile/internal/models"
)

type generateRequest struct {
	Theme string `json:"theme"`
}

type validateResponse struct {
	Valid           bool                    `json:"valid"`
	Case            *models.Case            `json:"case"`
	ReferenceIssues []models.ReferenceIssue `json:"reference_issues"`
}

type listCasesResponse struct {
	Cases []models.CaseSummary `json:"cases"`
}

func (app *application) listCases(w http.ResponseWriter, r *http.Request) {
	cases, err := app.cases.List(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, listCasesResponse{Cases: cases})
}

func (app *application) getCase(w http.ResponseWriter, r *http.Request) {
	generated, err := app.cases.Get(r.Context(), r.PathValue("caseID"))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, generated)
}

// validateCase checks a posted case against the schema and reports dangling references.
func (app *application) validateCase(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		app.clientError(w, r, http.StatusBadRequest, errors.Wrap(errBadRequest, "read request body: "+err.Error()))
		return
	}
	c, err := models.DecodeCase(body)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, validateResponse{
		Valid:           true,
		Case:            c,
		ReferenceIssues: models.CheckReferences(c),
	})
}

// generateCase runs the generation pipeline for a theme and stores the result.
//
// The pipeline makes several model calls so the handler lifts the server's deadlines and bounds itself with
// generateTimeout instead.
func (app *application) generateCase(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		app.clientError(w, r, http.StatusBadRequest, err)
		return
	}
	app.extendDeadlines(w, r, app.generateTimeout)

	ctx, cancel := context.WithTimeout(r.Context(), app.generateTimeout)
	defer cancel()
	generated, err := app.generator.Generate(ctx, req.Theme)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	if err = app.cases.Save(ctx, generated); err != nil {
		app.handleError(w, r, err)
		return
	}
	app.logger.LogAttrs(ctx, slog.LevelDebug, "stored case",
		slog.String("case_id", generated.Case.CaseID))

	w.Header().Set("Location", "/api/cases/"+generated.Case.CaseID)
	app.writeJSON(w, r, http.StatusCreated, generated)
}

// extendDeadlines lifts the server's read and write deadlines for handlers that outlive defaultTimeout.
// A zero d removes the deadlines.
func (app *application) extendDeadlines(w http.ResponseWriter, r *http.Request, d time.Duration) {
	var deadline time.Time
	if d > 0 {
		deadline = time.Now().Add(d)
	}
	rc := http.NewResponseController(w)
	if err := errors.Join(rc.SetReadDeadline(deadline), rc.SetWriteDeadline(deadline)); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelWarn, "extend deadlines", errors.SlogError(err))
	}
}
