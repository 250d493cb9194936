package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/expirycare/expirycare/internal/expiry"
	"github.com/expirycare/expirycare/internal/models"
	"github.com/go-deepseek/deepseek"
	"github.com/go-deepseek/deepseek/request"
	"github.com/sirupsen/logrus"
)

const extractSystemPrompt = `You extract fields from OCR text of warranty cards, insurance policies, medicine labels and subscription receipts. Reply with a single JSON object, no prose, with keys: "title" (short product or policy name), "category" (one of warranty, insurance, amc, medicine, subscription, other), "expiry_date" (YYYY-MM-DD, or "" if none found), "person_name" ("" if none found).`

// ExtractedFields is the AI's suggestion for a new item. Everything is a
// suggestion: the client shows it in a pre-filled form, the user confirms.
type ExtractedFields struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	ExpiryDate  string `json:"expiry_date"`
	PersonName  string `json:"person_name"`
	DateIsValid bool   `json:"date_is_valid"`
}

// ExtractService turns raw OCR text into suggested item fields via an
// LLM. OCR itself happens client-side; only its text output comes here.
type ExtractService struct {
	client deepseek.Client
	model  string
}

// NewExtractService creates the service. It returns an error when no API
// key is configured, so the route can be left unregistered.
func NewExtractService(apiKey, model string) (*ExtractService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("extraction API key is not configured")
	}

	client, err := deepseek.NewClient(apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction client: %v", err)
	}

	return &ExtractService{client: client, model: model}, nil
}

// Extract asks the model for item fields from OCR text.
func (s *ExtractService) Extract(ctx context.Context, ocrText string) (*ExtractedFields, error) {
	ocrText = strings.TrimSpace(ocrText)
	if ocrText == "" {
		return nil, fmt.Errorf("no text to extract from")
	}

	req := &request.ChatCompletionsRequest{
		Model: s.model,
		Messages: []*request.Message{
			{Role: "system", Content: extractSystemPrompt},
			{Role: "user", Content: ocrText},
		},
		Stream: false,
	}

	resp, err := s.client.CallChatCompletionsChat(ctx, req)
	if err != nil {
		logrus.WithError(err).Error("Extraction API request failed")
		return nil, fmt.Errorf("extraction request failed: %v", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("extraction returned no choices")
	}

	fields, err := parseExtractedFields(resp.Choices[0].Message.Content)
	if err != nil {
		logrus.WithError(err).Warn("Extraction reply was not parseable")
		return nil, err
	}

	return fields, nil
}

// parseExtractedFields decodes the model reply, tolerating code fences,
// and normalizes the category and date.
func parseExtractedFields(reply string) (*ExtractedFields, error) {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")
	reply = strings.TrimSpace(reply)

	var fields ExtractedFields
	if err := json.Unmarshal([]byte(reply), &fields); err != nil {
		return nil, fmt.Errorf("failed to parse extraction reply: %v", err)
	}

	fields.Category = strings.ToLower(strings.TrimSpace(fields.Category))
	if _, ok := models.AllowedCategories[fields.Category]; !ok {
		fields.Category = "other"
	}

	if fields.ExpiryDate != "" {
		if parsed, ok := expiry.ParseDate(fields.ExpiryDate); ok {
			fields.ExpiryDate = parsed.Format("2006-01-02")
			fields.DateIsValid = true
		} else {
			fields.DateIsValid = false
		}
	}

	return &fields, nil
}
