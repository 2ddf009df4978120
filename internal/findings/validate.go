package findings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/trendmicro/cloud-risk-assessment-agent/pkg/sqldb"
)

// ErrRejected marks a generated statement that must not be executed.
var ErrRejected = errors.New("query rejected")

// forbidden keywords may not appear anywhere outside literals and comments.
var forbidden = map[string]struct{}{
	"INSERT": {}, "UPDATE": {}, "DELETE": {}, "UPSERT": {}, "MERGE": {},
	"CREATE": {}, "DROP": {}, "ALTER": {}, "TRUNCATE": {}, "RENAME": {},
	"ATTACH": {}, "DETACH": {}, "PRAGMA": {}, "VACUUM": {}, "REINDEX": {}, "ANALYZE": {},
	"GRANT": {}, "REVOKE": {}, "COPY": {}, "CALL": {}, "EXEC": {}, "EXECUTE": {},
	"INTO": {}, "LOCK": {}, "SET": {}, "BEGIN": {}, "COMMIT": {}, "ROLLBACK": {}, "SAVEPOINT": {},
}

// Validator gates model-generated SQL: a single read-only statement that the
// live engine can prepare.
type Validator struct {
	db *sqldb.DB
}

func NewValidator(db *sqldb.DB) *Validator {
	return &Validator{db: db}
}

// Validate returns nil when query is safe to run. Every refusal wraps
// ErrRejected.
func (v *Validator) Validate(ctx context.Context, query string) error {
	words, err := statementWords(query)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return fmt.Errorf("%w: empty statement", ErrRejected)
	}
	if lead := words[0]; lead != "SELECT" && lead != "WITH" {
		return fmt.Errorf("%w: %s statements are not allowed", ErrRejected, lead)
	}
	for _, w := range words {
		if _, bad := forbidden[w]; bad {
			return fmt.Errorf("%w: keyword %s is not allowed", ErrRejected, w)
		}
	}

	// Preparing compiles the statement against the live schema without
	// running it, which catches unknown tables and columns.
	stmt, err := v.db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}
	stmt.Close()
	return nil
}

// statementWords returns the upper-cased bare words of a single statement,
// skipping string literals, quoted identifiers and comments. A second
// statement after ';' is an error.
func statementWords(query string) ([]string, error) {
	var (
		words []string
		word  strings.Builder
		ended bool
	)
	flush := func() {
		if word.Len() > 0 {
			words = append(words, strings.ToUpper(word.String()))
			word.Reset()
		}
	}

	rs := []rune(query)
	for i := 0; i < len(rs); i++ {
		r := rs[i]

		if ended && !unicode.IsSpace(r) && r != ';' && !startsComment(rs, i) {
			return nil, fmt.Errorf("%w: multiple statements", ErrRejected)
		}

		switch {
		case r == '\'' || r == '"' || r == '`':
			flush()
			j, ok := skipQuoted(rs, i, r)
			if !ok {
				return nil, fmt.Errorf("%w: unterminated quote", ErrRejected)
			}
			i = j
		case r == '-' && i+1 < len(rs) && rs[i+1] == '-':
			flush()
			for i < len(rs) && rs[i] != '\n' {
				i++
			}
		case r == '/' && i+1 < len(rs) && rs[i+1] == '*':
			flush()
			j := i + 2
			for j+1 < len(rs) && !(rs[j] == '*' && rs[j+1] == '/') {
				j++
			}
			if j+1 >= len(rs) {
				return nil, fmt.Errorf("%w: unterminated comment", ErrRejected)
			}
			i = j + 1
		case r == ';':
			flush()
			ended = true
		case r == '_' || unicode.IsLetter(r) || (word.Len() > 0 && unicode.IsDigit(r)):
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return words, nil
}

func startsComment(rs []rune, i int) bool {
	if i+1 >= len(rs) {
		return false
	}
	return (rs[i] == '-' && rs[i+1] == '-') || (rs[i] == '/' && rs[i+1] == '*')
}

// skipQuoted returns the index of the closing quote. A doubled quote is an
// escaped quote character.
func skipQuoted(rs []rune, start int, q rune) (int, bool) {
	for i := start + 1; i < len(rs); i++ {
		if rs[i] != q {
			continue
		}
		if i+1 < len(rs) && rs[i+1] == q {
			i++
			continue
		}
		return i, true
	}
	return 0, false
}
