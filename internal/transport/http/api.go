package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"quiz-assessment-service/internal/app"
)

// API serves the assignment lifecycle over JSON.
type API struct {
	service *app.AssignmentService
}

func NewAPI(service *app.AssignmentService) *API {
	return &API{service: service}
}

// NewRouter mounts the JSON API, the websocket endpoint and the health check.
func NewRouter(api *API, ws *WSHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Logger, middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	if ws != nil {
		r.Get("/ws", ws.ServeWS)
	}

	r.Route("/api/assignments", func(ar chi.Router) {
		ar.Use(middleware.Timeout(30 * time.Second))
		ar.Post("/", api.start)
		ar.Route("/{assignmentID}", func(ar chi.Router) {
			ar.Get("/", api.get)
			ar.Put("/answers/{questionID}", api.saveAnswer)
			ar.Post("/submit", api.submit)
			ar.Get("/result", api.result)
		})
	})
	return r
}

// answerValue accepts either a single string or a list of strings.
type answerValue []string

func (a *answerValue) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*a = answerValue{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*a = many
	return nil
}

type saveAnswerRequest struct {
	Answer answerValue `json:"answer"`
}

type submitRequest struct {
	Answers     map[string]answerValue `json:"answers"`
	TextAnswers map[string]string      `json:"textAnswers"`
}

func (s submitRequest) choiceAnswers() map[string][]string {
	out := make(map[string][]string, len(s.Answers))
	for qid, v := range s.Answers {
		out[qid] = v
	}
	return out
}

func (a *API) start(w http.ResponseWriter, r *http.Request) {
	started, err := a.service.Start(r.Context(), identityFromRequest(r), requestMeta(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, started)
}

func (a *API) get(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.Get(r.Context(), chi.URLParam(r, "assignmentID"), identityFromRequest(r).UserID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) saveAnswer(w http.ResponseWriter, r *http.Request) {
	var req saveAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "bad json", Code: "bad_request"})
		return
	}
	outcome, err := a.service.SaveAnswer(r.Context(),
		chi.URLParam(r, "assignmentID"), identityFromRequest(r).UserID,
		chi.URLParam(r, "questionID"), req.Answer)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (a *API) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	// the body is optional; answers may all have been saved already
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "bad json", Code: "bad_request"})
		return
	}
	view, err := a.service.Submit(r.Context(),
		chi.URLParam(r, "assignmentID"), identityFromRequest(r).UserID,
		req.choiceAnswers(), req.TextAnswers)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) result(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.Result(r.Context(), chi.URLParam(r, "assignmentID"), identityFromRequest(r).UserID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
