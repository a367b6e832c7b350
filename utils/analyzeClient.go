package utils

import (
	"academy/config"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// Analyze sends a chart-analysis request to the external model backend
// and returns the generated text. The backend is opaque to the engine;
// entitlement and quota are decided before this is called.
func Analyze(symbol, timeframe, prompt string) (string, error) {
	client := resty.New()
	resp, err := client.R().
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+config.AppConfig.AnalyzeApiKey).
		SetBody(map[string]string{
			"symbol":    symbol,
			"timeframe": timeframe,
			"prompt":    prompt,
		}).
		Post(config.AppConfig.AnalyzeApiUrl)
	if err != nil {
		return "", fmt.Errorf("analysis request failed: %v", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("analysis backend error: %s", resp.String())
	}

	var analyzeResp struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(resp.Body(), &analyzeResp); err != nil {
		return "", fmt.Errorf("failed to parse analysis response: %v", err)
	}
	if analyzeResp.Text == "" {
		return "", fmt.Errorf("analysis backend returned no text")
	}

	return analyzeResp.Text, nil
}
