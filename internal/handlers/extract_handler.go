package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/expirycare/expirycare/internal/services"
	"github.com/expirycare/expirycare/pkg/middleware"
	"github.com/sirupsen/logrus"
)

// ExtractHandler handles AI-assisted field extraction from OCR text.
type ExtractHandler struct {
	Service *services.ExtractService
}

// NewExtractHandler creates a new instance of ExtractHandler.
func NewExtractHandler(service *services.ExtractService) *ExtractHandler {
	return &ExtractHandler{
		Service: service,
	}
}

// ExtractFieldsHandler handles POST /extract: raw OCR text in, suggested
// item fields out.
func (h *ExtractHandler) ExtractFieldsHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		logrus.WithError(err).Warn("Invalid extraction payload")
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	fields, err := h.Service.Extract(r.Context(), payload.Text)
	if err != nil {
		logrus.WithError(err).Warn("Extraction failed")
		http.Error(w, "Extraction failed", http.StatusBadGateway)
		return
	}

	logrus.WithField("userID", claims.UserID).Info("Document fields extracted")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(fields)
}
