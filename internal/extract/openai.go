// File path: internal/extract/openai.go

package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/recollect-dev/recollect/internal/adapters"
)

const (
	defaultModel      = "gpt-4o-mini"
	maxTranscriptLen  = 24000
	maxMessageExcerpt = 800
)

const extractInstructions = `You are summarizing a coding-agent session transcript.
Produce a one-paragraph summary of what the session accomplished, a short list
of topic tags, and a one-word outcome (success, partial, or failed). Base the
answer only on the transcript.`

// OpenAIExtractor summarizes sessions through the OpenAI Responses API with
// a strict JSON schema output.
type OpenAIExtractor struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAIExtractor(apiKey, model string, timeout time.Duration) (*OpenAIExtractor, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai extractor: missing api key")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIExtractor{client: &client, model: model, timeout: timeout}, nil
}

var summarySchema = generateSchema[Summary]()

func (e *OpenAIExtractor) Extract(ctx context.Context, candidate Candidate) (Summary, error) {
	if candidate.Session == nil || len(candidate.Session.Messages) == 0 {
		return Summary{}, fmt.Errorf("extract %s: empty transcript", candidate.RunID)
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:        "SessionSummary",
			Schema:      summarySchema,
			Strict:      openai.Bool(true),
			Description: openai.String("Session summary JSON"),
			Type:        "json_schema",
		},
	}
	params := responses.ResponseNewParams{
		Model:           e.model,
		MaxOutputTokens: openai.Int(900),
		Instructions:    openai.String(extractInstructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(
					renderTranscript(candidate), responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: format,
		},
	}

	resp, err := callWithRetry(ctx, e.client, params)
	if err != nil {
		return Summary{}, fmt.Errorf("extract %s: %w", candidate.RunID, err)
	}
	var summary Summary
	if err := decodeModelJSON(resp.OutputText(), &summary); err != nil {
		return Summary{}, fmt.Errorf("extract %s: decode model output: %w", candidate.RunID, err)
	}
	if strings.TrimSpace(summary.SummaryText) == "" {
		return Summary{}, fmt.Errorf("extract %s: model returned empty summary", candidate.RunID)
	}
	return summary, nil
}

// renderTranscript flattens a viewer session into a bounded plain-text
// prompt. Long messages are excerpted; the whole prompt is capped.
func renderTranscript(candidate Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "platform: %s\n", candidate.AgentType)
	if candidate.RepoName != "" {
		fmt.Fprintf(&b, "repository: %s\n", candidate.RepoName)
	}
	b.WriteString("\n")
	for _, msg := range candidate.Session.Messages {
		line := renderMessage(msg)
		if line == "" {
			continue
		}
		if b.Len()+len(line) > maxTranscriptLen {
			b.WriteString("[transcript truncated]\n")
			break
		}
		b.WriteString(line)
	}
	return b.String()
}

func renderMessage(msg adapters.ViewerMessage) string {
	switch msg.Role {
	case "tool":
		name := msg.ToolName
		if name == "" {
			name = "tool"
		}
		return fmt.Sprintf("[%s] %s\n", name, excerpt(msg.ToolOut, maxMessageExcerpt))
	default:
		if msg.Text == "" {
			return ""
		}
		return fmt.Sprintf("%s: %s\n", msg.Role, excerpt(msg.Text, maxMessageExcerpt))
	}
}

func excerpt(text string, limit int) string {
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

func callWithRetry(ctx context.Context, client *openai.Client, params responses.ResponseNewParams) (*responses.Response, error) {
	const maxRetries = 3
	rateLimitWaits := []time.Duration{65 * time.Second, 100 * time.Second, 135 * time.Second}
	serverErrorWaits := []time.Duration{5 * time.Second, 30 * time.Second, 60 * time.Second}

	for attempt := 0; attempt < maxRetries; attempt++ {
		resp, err := client.Responses.New(ctx, params)
		if err != nil {
			if isRateLimitError(err) && attempt < maxRetries-1 {
				time.Sleep(rateLimitWaits[attempt])
				continue
			}
			if isServerError(err) && attempt < maxRetries-1 {
				time.Sleep(serverErrorWaits[attempt])
				continue
			}
			return nil, err
		}
		return resp, nil
	}
	return nil, fmt.Errorf("failed after %d attempts due to OpenAI API issues", maxRetries)
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests")
}

func isServerError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "500") ||
		strings.Contains(msg, "internal server error") ||
		strings.Contains(msg, "server_error")
}

// decodeModelJSON unmarshals model output, tolerating wrapper text around
// the JSON object.
func decodeModelJSON(outputText string, v any) error {
	s := strings.TrimSpace(outputText)
	if s == "" {
		return io.ErrUnexpectedEOF
	}
	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start != -1 && end == -1 {
		return io.ErrUnexpectedEOF
	}
	if start == -1 || end == -1 || end <= start {
		return fmt.Errorf("no JSON object in model output")
	}
	return json.Unmarshal([]byte(s[start:end+1]), v)
}

func generateSchema[T any]() map[string]interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	raw, err := schema.MarshalJSON()
	if err != nil {
		panic(err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		panic(err)
	}
	ensureStrictSchema(m)
	return m
}

// ensureStrictSchema forces the shape strict structured outputs require:
// every object closes additionalProperties and requires all fields.
func ensureStrictSchema(schema map[string]interface{}) {
	if t, ok := schema["type"].(string); ok && t == "object" {
		schema["additionalProperties"] = false
		if properties, ok := schema["properties"].(map[string]interface{}); ok {
			var required []string
			for name := range properties {
				required = append(required, name)
			}
			if len(required) > 0 {
				schema["required"] = required
			}
		}
	}
	if properties, ok := schema["properties"].(map[string]interface{}); ok {
		for _, prop := range properties {
			if propMap, ok := prop.(map[string]interface{}); ok {
				ensureStrictSchema(propMap)
			}
		}
	}
	if items, ok := schema["items"].(map[string]interface{}); ok {
		ensureStrictSchema(items)
	}
}
