package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/trever9122/Inspection-app/condition"
	"github.com/trever9122/Inspection-app/config"
)

// Azure calls the Computer Vision analyze endpoint for tags + description.
type Azure struct {
	endpoint string
	key      string
	client   *http.Client
}

func NewAzure(cfg config.VisionConfig, client *http.Client) *Azure {
	return &Azure{
		endpoint: strings.TrimRight(cfg.AzureEndpoint, "/"),
		key:      cfg.AzureKey,
		client:   client,
	}
}

func (a *Azure) Name() string { return "azure" }

func (a *Azure) Analyze(ctx context.Context, image []byte, mime string) (Analysis, error) {
	if a.endpoint == "" {
		return Analysis{}, errors.New("AZURE_VISION_ENDPOINT not set")
	}
	if a.key == "" {
		return Analysis{}, errors.New("AZURE_VISION_KEY not set")
	}
	if len(image) == 0 {
		return Analysis{}, errors.New("empty image")
	}

	endpoint := a.endpoint + "/vision/v3.2/analyze?visualFeatures=Tags,Description&language=en"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(image))
	if err != nil {
		return Analysis{}, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", a.key)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := a.client.Do(req)
	if err != nil {
		return Analysis{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return Analysis{}, fmt.Errorf("azure status %d: %s", resp.StatusCode, string(b))
	}

	var parsed struct {
		Tags []struct {
			Name       string  `json:"name"`
			Confidence float64 `json:"confidence"`
		} `json:"tags"`
		Description struct {
			Captions []struct {
				Text       string  `json:"text"`
				Confidence float64 `json:"confidence"`
			} `json:"captions"`
		} `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Analysis{}, err
	}

	analysis := Analysis{}
	for _, tag := range parsed.Tags {
		name := strings.ToLower(strings.TrimSpace(tag.Name))
		if name == "" {
			continue
		}
		analysis.Tags = append(analysis.Tags, condition.Tag{Name: name, Confidence: clampConfidence(tag.Confidence)})
	}
	if len(parsed.Description.Captions) > 0 {
		analysis.Caption = strings.TrimSpace(parsed.Description.Captions[0].Text)
	}
	return analysis, nil
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
