package main

import (
	"net/http"

	"github.com/justinas/alice"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	quick := alice.New(app.timeout)
	// Long-running handlers extend their own write deadlines.
	long := alice.New()

	mux.Handle("GET /api/healthy", quick.ThenFunc(app.healthy))

	mux.Handle("GET /api/cases", quick.ThenFunc(app.listCases))
	mux.Handle("POST /api/cases", long.ThenFunc(app.generateCase))
	mux.Handle("POST /api/cases/validate", quick.ThenFunc(app.validateCase))
	mux.Handle("GET /api/cases/{caseID}", quick.ThenFunc(app.getCase))

	mux.Handle("GET /api/cases/{caseID}/npcs/{npcID}/completions", quick.ThenFunc(app.listCompletions))
	mux.Handle("POST /api/cases/{caseID}/npcs/{npcID}/questions", quick.ThenFunc(app.askQuestion))
	mux.Handle("GET /api/cases/{caseID}/npcs/{npcID}/stream", long.ThenFunc(app.streamAnswer))

	mux.Handle("/", quick.ThenFunc(app.notFound))

	common := alice.New(app.recoverPanic, app.requestID, app.logRequest, secureHeaders)
	return common.Then(mux)
}
