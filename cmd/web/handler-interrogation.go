package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/myrjola/casefile/internal/ai"
	"github.com/myrjola/casefile/internal/errors"
	"github.com/myrjola/casefile/internal/interrogation"
	"github.com/myrjola/casefile/internal/models"
)

var errAnswerInProgress = errors.NewSentinel("answer already in progress")

// answerResult is the outcome of the latest question put to an NPC.
type answerResult struct {
	// done is closed once completion or err is set.
	done       chan struct{}
	completion models.Completion
	err        error
}

func (a *answerResult) finish(completion models.Completion, err error) {
	a.completion, a.err = completion, err
	close(a.done)
}

// wait returns the outcome once the answer is finished or ctx is done.
func (a *answerResult) wait(ctx context.Context) (models.Completion, error) {
	select {
	case <-a.done:
		return a.completion, a.err
	case <-ctx.Done():
		return models.Completion{}, errors.Wrap(ctx.Err(), "wait for answer")
	}
}

type askResponse struct {
	Stream string `json:"stream"`
}

func streamURL(key streamKey) string {
	return fmt.Sprintf("/api/cases/%s/npcs/%s/stream", key.caseID, key.npcID)
}

func (app *application) listCompletions(w http.ResponseWriter, r *http.Request) {
	investigation, err := app.investigations.Get(r.Context(), r.PathValue("caseID"), r.PathValue("npcID"))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, investigation)
}

// askQuestion starts answering the interaction in the background and points the client to the answer stream.
func (app *application) askQuestion(w http.ResponseWriter, r *http.Request) {
	var (
		err         error
		interaction interrogation.Interaction
		generated   *models.GeneratedCase
	)
	key := streamKey{caseID: r.PathValue("caseID"), npcID: r.PathValue("npcID")}

	if err = decodeJSON(w, r, &interaction); err != nil {
		app.clientError(w, r, http.StatusBadRequest, err)
		return
	}
	if generated, err = app.cases.Get(r.Context(), key.caseID); err != nil {
		app.handleError(w, r, err)
		return
	}
	if _, ok := generated.Case.NPC(key.npcID); !ok {
		app.clientError(w, r, http.StatusNotFound, interrogation.ErrUnknownNPC)
		return
	}
	if err = interaction.Validate(&generated.Case); err != nil {
		app.handleError(w, r, err)
		return
	}

	if _, loaded := app.asking.LoadOrStore(key, struct{}{}); loaded {
		app.clientError(w, r, http.StatusConflict, errAnswerInProgress)
		return
	}

	// Room for a whole answer so that the producer never waits for a slow or absent consumer.
	chunks := make(chan string, ai.MaxTokens)
	result := &answerResult{done: make(chan struct{})}
	app.answers.Store(key, result)
	app.streams.Publish(key, chunks)

	// The answer outlives the request but keeps its log attributes.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), app.answerTimeout)
	go func() {
		defer cancel()
		defer app.asking.Delete(key)
		defer app.streams.Unpublish(key)

		completion, askErr := app.interrogator.Ask(ctx, key.caseID, key.npcID, interaction, chunks)
		if askErr != nil {
			app.logger.LogAttrs(ctx, slog.LevelError, "answer failed", errors.SlogError(askErr))
		}
		result.finish(completion, askErr)
	}()

	w.Header().Set("Location", streamURL(key))
	app.writeJSON(w, r, http.StatusAccepted, askResponse{Stream: streamURL(key)})
}

// streamAnswer sends the answer to the latest question as server-sent events.
//
// Only the first client gets the live chunks. Later clients, and clients arriving after the answer is finished,
// get the whole answer as a single event. A failed answer ends with an "error" event and every stream ends with
// a "done" event.
func (app *application) streamAnswer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := streamKey{caseID: r.PathValue("caseID"), npcID: r.PathValue("npcID")}
	app.extendDeadlines(w, r, 0)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	app.flush(w, r)

	var chunks chan string
	select {
	case chunks = <-app.streams.Subscribe(key):
	case <-ctx.Done():
		return
	}

	if chunks != nil {
	loop:
		for {
			select {
			case chunk, ok := <-chunks:
				if !ok {
					break loop
				}
				app.writeEvent(w, r, "chunk", chunk)
			case <-ctx.Done():
				return
			}
		}
	}

	stored, ok := app.answers.Load(key)
	switch {
	case ok:
		completion, err := stored.(*answerResult).wait(ctx)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			app.writeEvent(w, r, "error", answerFailure(err))
		case chunks == nil:
			app.writeEvent(w, r, "answer", completion.Answer)
		}
	case chunks == nil:
		// Nothing was asked since the server started, replay the last stored answer.
		app.replayLastAnswer(w, r, key)
	}
	app.writeEvent(w, r, "done", "")
}

func (app *application) replayLastAnswer(w http.ResponseWriter, r *http.Request, key streamKey) {
	investigation, err := app.investigations.Get(r.Context(), key.caseID, key.npcID)
	switch {
	case err != nil:
		app.logger.LogAttrs(r.Context(), slog.LevelDebug, "no stored answer", errors.SlogError(err))
		app.writeEvent(w, r, "error", rootMessage(err))
	case len(investigation.Completions) > 0:
		last := investigation.Completions[len(investigation.Completions)-1]
		app.writeEvent(w, r, "answer", last.Answer)
	}
}

// answerFailure describes a failed answer to the client without internal details.
func answerFailure(err error) string {
	if errors.Is(err, ai.ErrModelFailed) {
		return "language model request failed"
	}
	return "answer failed"
}

func (app *application) writeEvent(w http.ResponseWriter, r *http.Request, event string, data string) {
	var b strings.Builder
	b.WriteString("event: " + event + "\n")
	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data: " + line + "\n")
	}
	b.WriteString("\n")
	if _, err := w.Write([]byte(b.String())); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelDebug, "write event", errors.SlogError(err))
		return
	}
	app.flush(w, r)
}

func (app *application) flush(w http.ResponseWriter, r *http.Request) {
	if err := http.NewResponseController(w).Flush(); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelDebug, "flush", errors.SlogError(err))
	}
}
