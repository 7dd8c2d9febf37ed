package completion

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"example/formula-api/app/models"
)

var (
	ErrEmptyResponse   = errors.New("completion returned no content")
	ErrMalformedOutput = errors.New("completion output is not a formula result")
)

// ParseResult decodes the model's JSON object. Both fields must be present
// and non-empty.
func ParseResult(raw string) (models.FormulaResult, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.FormulaResult{}, ErrEmptyResponse
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return models.FormulaResult{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	var result models.FormulaResult
	for key, dst := range map[string]*string{"formula": &result.Formula, "explanation": &result.Explanation} {
		val, ok := fields[key]
		if !ok {
			return models.FormulaResult{}, fmt.Errorf("%w: missing %q", ErrMalformedOutput, key)
		}
		if err := json.Unmarshal(val, dst); err != nil {
			return models.FormulaResult{}, fmt.Errorf("%w: %q is not a string", ErrMalformedOutput, key)
		}
		if strings.TrimSpace(*dst) == "" {
			return models.FormulaResult{}, fmt.Errorf("%w: empty %q", ErrMalformedOutput, key)
		}
	}
	return result, nil
}
