package completion

import (
	"errors"
	"fmt"
	"strings"
)

// SystemPrompt is sent ahead of every user request.
const SystemPrompt = `You are an expert in Excel and Google Sheets formulas.
Your task is to take a user's natural language request and return ONLY a JSON object with two keys: "formula" and "explanation".
- The "formula" should be the most appropriate and robust formula for the user's request.
- The "explanation" should be a clear, concise, and easy-to-understand description of how the formula works, written for a non-technical user.
- Do not include any other text, greetings, or introductory phrases in your response. Just the JSON object.`

const (
	PlatformExcel        = "excel"
	PlatformGoogleSheets = "google-sheets"
)

var (
	ErrEmptyPrompt     = errors.New("prompt is required")
	ErrUnknownPlatform = errors.New("unknown platform")
)

// BuildPrompt validates the user's request and prefixes the target platform
// when one was chosen.
func BuildPrompt(platform, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	switch platform = strings.ToLower(strings.TrimSpace(platform)); platform {
	case "":
		return prompt, nil
	case PlatformExcel, PlatformGoogleSheets:
		return fmt.Sprintf("For %s: %s", platform, prompt), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, platform)
	}
}
