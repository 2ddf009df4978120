package parsers

import (
	"fmt"
	"strings"

	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/model"
)

// ReportPrefix starts a report command. Matching is case-sensitive and the
// single trailing space is part of the prefix.
const ReportPrefix = "/report "

type CommandKind int

const (
	KindNotACommand CommandKind = iota
	KindCommand
	KindInvalidCommand
)

func (k CommandKind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindInvalidCommand:
		return "invalid_command"
	default:
		return "not_a_command"
	}
}

// CommandResult is the outcome of ParseReportCommand. Category is set only for
// KindCommand and Reason only for KindInvalidCommand.
type CommandResult struct {
	Kind     CommandKind
	Category model.Category
	Reason   string
}

// ParseReportCommand recognizes "/report <category>".
func ParseReportCommand(text string) CommandResult {
	rest, ok := strings.CutPrefix(text, ReportPrefix)
	if !ok {
		return CommandResult{Kind: KindNotACommand}
	}

	arg := strings.TrimSpace(rest)
	if c, ok := model.ParseCategory(arg); ok {
		return CommandResult{Kind: KindCommand, Category: c}
	}
	return CommandResult{
		Kind:   KindInvalidCommand,
		Reason: fmt.Sprintf("invalid report category %q, expected one of %s", arg, model.AllowedCategories()),
	}
}
