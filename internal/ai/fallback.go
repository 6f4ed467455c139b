package ai

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/finqa/invoice-qc/internal/models"
)

// FallbackExtractor asks a chat model for a structured invoice record
// when pattern extraction finds nothing usable in a document. It is an
// optional collaborator: the pipeline works without it, and its failures
// never fail a document.
type FallbackExtractor struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewFallbackExtractor creates a new AI-assisted fallback extractor.
func NewFallbackExtractor(apiKey, model string, logger *zap.Logger) *FallbackExtractor {
	return &FallbackExtractor{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

// Extract sends the document text to the model and parses the JSON
// response into an invoice record.
func (f *FallbackExtractor) Extract(ctx context.Context, text string) (*models.Invoice, error) {
	resp, err := f.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       f.model,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an expert at reading invoices. Extract structured data from invoice text accurately. Do not guess values that are not present.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(text),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("fallback extraction failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from model")
	}

	content := resp.Choices[0].Message.Content
	var inv models.Invoice
	if err := json.Unmarshal([]byte(content), &inv); err != nil {
		f.logger.Warn("failed to parse fallback response",
			zap.Error(err),
			zap.String("content", content))
		return nil, fmt.Errorf("failed to parse fallback response: %w", err)
	}

	f.logger.Info("fallback extraction completed",
		zap.Bool("found_invoice_number", inv.InvoiceNumber != nil))

	return &inv, nil
}

func buildPrompt(text string) string {
	return fmt.Sprintf(`Extract invoice information from this invoice text:

%s

Return a JSON object with this structure, omitting any field you cannot find:
{
  "invoice_number": "string",
  "external_reference": "string",
  "invoice_date": "YYYY-MM-DD",
  "due_date": "YYYY-MM-DD",
  "seller_name": "string",
  "seller_address": "string",
  "seller_tax_id": "string",
  "buyer_name": "string",
  "buyer_address": "string",
  "buyer_tax_id": "string",
  "currency": "3-letter ISO code",
  "net_total": number,
  "tax_amount": number,
  "gross_total": number,
  "payment_terms": "string",
  "line_items": [{"description": "string", "quantity": number, "unit_price": number, "line_total": number}]
}`, text)
}
