package parsers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/model"
	errx "github.com/trendmicro/cloud-risk-assessment-agent/internal/core/error"
	logx "github.com/trendmicro/cloud-risk-assessment-agent/pkg/logger"
)

const (
	maxContentLen = 64 * 1024 // 64KB
	maxErrSnippet = 200       // limit error snippet size
)

// ErrMalformedIntention is wrapped by every ParseIntention failure.
var ErrMalformedIntention = errors.New("malformed classifier output")

// ParseIntention decodes the classifier reply: a JSON object with a numeric
// Score. Markdown fences are tolerated and a missing Score counts as 0.
func ParseIntention(content string) (in *model.Intention, err error) {
	// panic safety
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "intent_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("%w: parser panic", ErrMalformedIntention), http.StatusInternalServerError, errx.SystemErrorMessage)
			in = nil
		}
	}()

	if len(content) > maxContentLen {
		return nil, fmt.Errorf("%w: content too large (%d bytes)", ErrMalformedIntention, len(content))
	}

	body := StripFences(content)
	if body == "" {
		return nil, fmt.Errorf("%w: empty content", ErrMalformedIntention)
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v: %q", ErrMalformedIntention, err, snippet(body))
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformedIntention)
	}

	out := &model.Intention{Fields: raw}
	if v, ok := raw["Score"]; ok {
		score, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("%w: Score is %T, want number", ErrMalformedIntention, v)
		}
		out.Score = score
	}
	return out, nil
}

// StripFences removes a surrounding ```lang ... ``` block, if any.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// drop the language tag on the opening line
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func snippet(s string) string {
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet] + "..."
}
