package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/trever9122/Inspection-app/condition"
	"github.com/trever9122/Inspection-app/config"
)

const maxOpenAITags = 32

// OpenAI labels photos through a chat-completions vision model. The model
// is instructed to return strict JSON; anything outside the contract is
// rejected rather than guessed at.
type OpenAI struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

func NewOpenAI(cfg config.VisionConfig, client *http.Client) *OpenAI {
	return &OpenAI{
		baseURL: strings.TrimRight(cfg.OpenAIBaseURL, "/"),
		model:   cfg.OpenAIModel,
		apiKey:  cfg.OpenAIAPIKey,
		client:  client,
	}
}

func (o *OpenAI) Name() string { return "openai" }

func visionSystemPrompt() string {
	return strings.TrimSpace(`You label photos taken during rental property inspections.
Return STRICT JSON ONLY with keys: caption, tags.
Rules:
- caption: one factual sentence describing the photo, max 200 chars
- tags: array of 0-20 objects {"name": string, "confidence": number 0-1}
- tag names are single lowercase words or short phrases describing visible objects and surface conditions (e.g. "wall", "crack", "scuffed")
- report only what is visible; never invent damage`)
}

func (o *OpenAI) Analyze(ctx context.Context, image []byte, mime string) (Analysis, error) {
	if o.apiKey == "" {
		return Analysis{}, errors.New("OPENAI_API_KEY not set")
	}
	if len(image) == 0 {
		return Analysis{}, errors.New("empty image")
	}
	if mime == "" {
		mime = "image/jpeg"
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(image))
	payload := map[string]interface{}{
		"model":       o.model,
		"temperature": 0.2,
		"response_format": map[string]string{
			"type": "json_object",
		},
		"messages": []map[string]interface{}{
			{"role": "system", "content": visionSystemPrompt()},
			{"role": "user", "content": []map[string]interface{}{
				{"type": "image_url", "image_url": map[string]string{"url": dataURL}},
			}},
		},
	}
	buf, _ := json.Marshal(payload)

	endpoint := o.baseURL + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return Analysis{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return Analysis{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return Analysis{}, fmt.Errorf("openai status %d: %s", resp.StatusCode, string(b))
	}

	var wrapper struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return Analysis{}, err
	}
	if len(wrapper.Choices) == 0 {
		return Analysis{}, errors.New("empty openai response")
	}
	return parseVisionOutput(wrapper.Choices[0].Message.Content)
}

func parseVisionOutput(content string) (Analysis, error) {
	obj := extractJSONObject(content)
	if obj == "" {
		return Analysis{}, errors.New("no json object found")
	}
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return Analysis{}, err
	}
	allowed := map[string]struct{}{"caption": {}, "tags": {}}
	for key := range raw {
		if _, ok := allowed[key]; !ok {
			return Analysis{}, fmt.Errorf("unexpected key %q", key)
		}
	}
	for key := range allowed {
		if _, ok := raw[key]; !ok {
			return Analysis{}, fmt.Errorf("missing key %q", key)
		}
	}

	var out struct {
		Caption string `json:"caption"`
		Tags    []struct {
			Name       string  `json:"name"`
			Confidence float64 `json:"confidence"`
		} `json:"tags"`
	}
	if err := json.Unmarshal([]byte(obj), &out); err != nil {
		return Analysis{}, err
	}
	if len(out.Tags) > maxOpenAITags {
		return Analysis{}, fmt.Errorf("too many tags (%d)", len(out.Tags))
	}

	analysis := Analysis{Caption: strings.TrimSpace(out.Caption)}
	for _, tag := range out.Tags {
		name := strings.ToLower(strings.TrimSpace(tag.Name))
		if name == "" {
			return Analysis{}, errors.New("tags contains empty name")
		}
		analysis.Tags = append(analysis.Tags, condition.Tag{Name: name, Confidence: clampConfidence(tag.Confidence)})
	}
	return analysis, nil
}

// extractJSONObject returns the first balanced JSON object in input,
// tolerating fences or prose around it.
func extractJSONObject(input string) string {
	start := strings.Index(input, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(input); i++ {
		ch := input[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			if ch == '\\' {
				escaped = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}
	return ""
}
