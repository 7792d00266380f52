package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"quiz-assessment-service/internal/domain"
)

type errorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// classify maps a service error to an HTTP status and the payload shown to the client.
// Storage details stay in the log.
func classify(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, domain.ErrLoginRequired):
		return http.StatusUnauthorized, rulePayload(err, "login_required")
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, rulePayload(err, "not_found")
	case errors.Is(err, domain.ErrQuestionNotInAssignment):
		return http.StatusNotFound, rulePayload(err, "question_not_in_assignment")
	case errors.Is(err, domain.ErrResultNotFound):
		return http.StatusNotFound, rulePayload(err, "result_not_found")
	case errors.Is(err, domain.ErrAlreadyActive):
		return http.StatusConflict, rulePayload(err, "already_active")
	case errors.Is(err, domain.ErrAlreadyCompleted):
		return http.StatusConflict, rulePayload(err, "already_completed")
	case errors.Is(err, domain.ErrRetakeNotAllowed):
		return http.StatusConflict, rulePayload(err, "retake_not_allowed")
	case errors.Is(err, domain.ErrNoQuestionsAvailable):
		return http.StatusUnprocessableEntity, rulePayload(err, "no_questions_available")
	case errors.Is(err, domain.ErrResultNotRecorded):
		log.Printf("result not recorded: %v", err)
		return http.StatusInternalServerError, errorPayload{
			Message: "the quiz was completed but its result could not be recorded; contact support",
			Code:    "result_not_recorded",
		}
	}

	log.Printf("request failed: %v", err)
	var storageErr *domain.StorageError
	if errors.As(err, &storageErr) {
		return http.StatusInternalServerError, errorPayload{Message: "storage unavailable, please try again", Code: "storage"}
	}
	return http.StatusInternalServerError, errorPayload{Message: "internal error", Code: "internal"}
}

func rulePayload(err error, code string) errorPayload {
	return errorPayload{Message: err.Error(), Code: code}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	status, payload := classify(err)
	writeJSON(w, status, payload)
}
