package web

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Envelope is the body of every JSON API response.
type Envelope struct {
	Success          bool              `json:"success"`
	Data             any               `json:"data,omitempty"`
	Message          string            `json:"message,omitempty"`
	Error            string            `json:"error,omitempty"`
	ValidationErrors map[string]string `json:"validation_errors,omitempty"`
}

func RespondJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	// Handle nil payload
	if payload == nil {
		w.WriteHeader(status)
		return
	}

	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Error encoding response to JSON", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

// RespondData writes a successful envelope carrying data and an optional message.
func RespondData(w http.ResponseWriter, logger *slog.Logger, status int, data any, message string) {
	RespondJSON(w, logger, status, Envelope{Success: true, Data: data, Message: message})
}

// RespondMessage writes a successful envelope with a message only.
func RespondMessage(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	RespondJSON(w, logger, status, Envelope{Success: true, Message: message})
}

func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	RespondJSON(w, logger, status, Envelope{Success: false, Error: message})
}

// RespondValidationErrors writes a 400 envelope listing the failed field rules.
func RespondValidationErrors(w http.ResponseWriter, logger *slog.Logger, fields map[string]string) {
	RespondJSON(w, logger, http.StatusBadRequest, Envelope{
		Success:          false,
		Error:            "Validation failed",
		ValidationErrors: fields,
	})
}

// ParseID extracts and validates the ID from the request path. Returns the ID and a boolean indicating success.
func ParseID(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (string, bool) {
	id := r.PathValue("id")
	if !primitive.IsValidObjectID(id) {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid ID: %s", id))
		return "", false
	}
	return id, true
}
