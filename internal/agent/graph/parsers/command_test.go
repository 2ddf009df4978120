package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/model"
)

func TestParseReportCommand_NotACommand(t *testing.T) {
	inputs := []string{
		"",
		"what happened to my AWS account",
		"/report",
		"/reportaws",
		"/Report aws",
		" /report aws",
		"report aws",
		"/reports aws",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			got := ParseReportCommand(in)
			assert.Equal(t, KindNotACommand, got.Kind)
			assert.Empty(t, got.Category)
			assert.Empty(t, got.Reason)
		})
	}
}

func TestParseReportCommand_Valid(t *testing.T) {
	for _, c := range model.Categories {
		t.Run(string(c), func(t *testing.T) {
			got := ParseReportCommand("/report " + string(c))
			assert.Equal(t, KindCommand, got.Kind)
			assert.Equal(t, c, got.Category)
		})
	}

	// the remainder is trimmed
	got := ParseReportCommand("/report  kubernetes \n")
	assert.Equal(t, KindCommand, got.Kind)
	assert.Equal(t, model.CategoryKubernetes, got.Category)
}

func TestParseReportCommand_Invalid(t *testing.T) {
	for _, arg := range []string{"", "   ", "AWS", "gcp", "aws kubernetes"} {
		t.Run(arg, func(t *testing.T) {
			got := ParseReportCommand("/report " + arg)
			assert.Equal(t, KindInvalidCommand, got.Kind)
			assert.Empty(t, got.Category)
			assert.Contains(t, got.Reason, "{code, container, aws, kubernetes, all}")
		})
	}
}
