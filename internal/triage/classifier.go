// Package triage turns free-text symptom descriptions into a structured
// routing decision. The language model behind it makes no schema promises, so
// this package is the normalization and repair boundary: malformed output, a
// missing field, or a transport failure all degrade to a safe
// general-practitioner default instead of surfacing an error.
package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/careflow/appointment-agent/internal/directory"
	"github.com/careflow/appointment-agent/internal/observability/metrics"
	"github.com/careflow/appointment-agent/pkg/logging"
	"go.opentelemetry.io/otel"
)

var triageTracer = otel.Tracer("careflow.internal.triage")

const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// Result is the structured triage decision for one symptom-intake turn.
// Specialization is always a member of the closed directory enum.
type Result struct {
	IsEmergency    bool                     `json:"isEmergency"`
	Specialization directory.Specialization `json:"specialization"`
	Urgency        string                   `json:"urgency"`
	Advice         string                   `json:"advice"`
	Explanation    string                   `json:"explanation"`
}

// FallbackResult is the safe default returned whenever the classification
// capability fails or violates the requested schema.
func FallbackResult() Result {
	return Result{
		IsEmergency:    false,
		Specialization: directory.GeneralPractitioner,
		Urgency:        UrgencyMedium,
		Advice:         "Please consult with a doctor for proper evaluation.",
		Explanation:    "Unable to analyze symptoms properly. Recommending general consultation.",
	}
}

const promptTemplate = `You are a medical scheduling assistant. Analyze these symptoms and provide a response in valid JSON format with no additional text.

Use ONLY these specialization options:
- Orthopedist (for bone, joint, muscle issues)
- Cardiologist (for heart issues)
- General Practitioner (for general health issues)

Symptoms: %s

Respond with ONLY this exact JSON structure:
{
    "isEmergency": false,
    "specialization": "appropriate medical specialist",
    "urgency": "low/medium/high",
    "advice": "immediate advice for the patient",
    "explanation": "explanation of why this specialist is recommended"
}`

var requiredFields = []string{"isEmergency", "specialization", "urgency", "advice", "explanation"}

// Classifier wraps an LLM with the triage prompt and repairs its output into
// a well-formed Result.
type Classifier struct {
	llm     LLMClient
	logger  *logging.Logger
	metrics *metrics.SchedulerMetrics
}

// NewClassifier builds a classifier. llm may be nil, in which case every
// classification degrades to the fallback result; the conversation can still
// proceed on the general-practitioner path.
func NewClassifier(llm LLMClient, logger *logging.Logger, m *metrics.SchedulerMetrics) *Classifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &Classifier{llm: llm, logger: logger, metrics: m}
}

// Classify analyzes symptom text. It never returns an error: any failure of
// the underlying capability resolves to FallbackResult.
func (c *Classifier) Classify(ctx context.Context, symptoms string) Result {
	ctx, span := triageTracer.Start(ctx, "triage.classify")
	defer span.End()

	if c.llm == nil {
		c.logger.Warn("triage classifier has no LLM configured, using fallback")
		c.metrics.ObserveTriage("fallback", string(directory.GeneralPractitioner))
		return FallbackResult()
	}

	resp, err := c.llm.Complete(ctx, LLMRequest{
		Messages: []ChatMessage{
			{Role: ChatRoleUser, Content: fmt.Sprintf(promptTemplate, symptoms)},
		},
		Temperature: 0.2,
		MaxTokens:   512,
	})
	if err != nil {
		span.RecordError(err)
		c.logger.Warn("symptom classification failed, using fallback", "error", err)
		c.metrics.ObserveTriage("fallback", string(directory.GeneralPractitioner))
		return FallbackResult()
	}

	result, err := parseResult(resp.Text)
	if err != nil {
		span.RecordError(err)
		c.logger.Warn("symptom classification returned malformed response, using fallback",
			"error", err,
			"response_len", len(resp.Text),
		)
		c.metrics.ObserveTriage("fallback", string(directory.GeneralPractitioner))
		return FallbackResult()
	}

	outcome := "classified"
	if result.IsEmergency {
		outcome = "emergency"
	}
	c.metrics.ObserveTriage(outcome, string(result.Specialization))
	c.logger.Info("symptoms classified",
		"specialization", result.Specialization,
		"urgency", result.Urgency,
		"emergency", result.IsEmergency,
	)
	return result
}

// parseResult validates the raw model output against the five-field schema and
// normalizes the specialization onto the closed enum.
func parseResult(raw string) (Result, error) {
	cleaned := stripCodeFence(raw)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return Result{}, fmt.Errorf("triage: response is not valid JSON: %w", err)
	}
	for _, name := range requiredFields {
		if _, ok := fields[name]; !ok {
			return Result{}, fmt.Errorf("triage: response missing required field %q", name)
		}
	}

	var result Result
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return Result{}, fmt.Errorf("triage: response does not match schema: %w", err)
	}

	result.Specialization = directory.Normalize(string(result.Specialization))
	switch strings.ToLower(strings.TrimSpace(result.Urgency)) {
	case UrgencyLow:
		result.Urgency = UrgencyLow
	case UrgencyHigh:
		result.Urgency = UrgencyHigh
	default:
		result.Urgency = UrgencyMedium
	}
	return result, nil
}

// stripCodeFence removes surrounding markdown code-fence markup, which models
// add despite being told not to.
func stripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
