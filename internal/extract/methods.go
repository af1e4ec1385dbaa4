// Package extract isolates Ruby method bodies from source files and indexes
// RSpec describe blocks from spec files.
//
// Both scans are textual. Method boundaries use a flat next-def rule, so a
// method containing a nested def is over-captured up to the nested def. This
// is a known limitation and is kept so that results match the existing
// dataset tooling.
package extract

import (
	"regexp"
	"strings"

	"github.com/A-iswarya/RspecGeneratorPublic/internal/errors"
)

// Boundary selects how a method body ends during batch extraction.
type Boundary string

const (
	// BoundaryNextDef ends a body at the next def token or end of text.
	BoundaryNextDef Boundary = "next_def"
	// BoundaryTerminator ends a body at the next line that is exactly "end".
	BoundaryTerminator Boundary = "terminator"
)

// MethodRecord is a single method extracted from a source file.
type MethodRecord struct {
	Name      string // without a self. prefix
	Singleton bool   // declared as def self.name
	Body      string // def line through the boundary, trimmed
	Source    string // path of the enclosing file, may be empty
}

const identPattern = `[A-Za-z_][A-Za-z0-9_]*[?!=]?`

var (
	defPattern        = regexp.MustCompile(`\bdef\s+(self\.)?(` + identPattern + `)`)
	defToken          = regexp.MustCompile(`\bdef\b`)
	terminatorPattern = regexp.MustCompile(`(?ms)\bdef\s+(self\.)?(` + identPattern + `).*?^end$`)
	selectionDef      = regexp.MustCompile(`^def\s+(self\.)?(` + identPattern + `)`)
	identOnly         = regexp.MustCompile(`^(self\.)?(` + identPattern + `)$`)
	containerDef      = regexp.MustCompile(`^(?:class|module)\s+[A-Z]`)
)

// Extract returns the body of the first method named name in text. The body
// starts at the def token and runs up to, not including, the next def token
// or the end of text.
func Extract(name, text string) (string, error) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "self.")
	if name == "" {
		return "", errors.ExtractionError(name)
	}

	re, err := regexp.Compile(`\bdef\s+(?:self\.)?` + regexp.QuoteMeta(name))
	if err != nil {
		return "", errors.ExtractionError(name)
	}

	for _, loc := range re.FindAllStringIndex(text, -1) {
		if loc[1] < len(text) && isIdentByte(text[loc[1]]) {
			continue // charge matched inside charge_all
		}
		return strings.TrimSpace(text[loc[0]:nextDef(text, loc[1])]), nil
	}
	return "", errors.ExtractionError(name)
}

// ExtractAll scans text once and returns every method in declaration order.
// A repeated name keeps its first occurrence.
func ExtractAll(text string) []MethodRecord {
	var records []MethodRecord
	seen := make(map[string]bool)

	for _, m := range defPattern.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[4]:m[5]]
		if seen[name] {
			continue
		}
		seen[name] = true
		records = append(records, MethodRecord{
			Name:      name,
			Singleton: m[2] >= 0,
			Body:      strings.TrimSpace(text[m[0]:nextDef(text, m[1])]),
		})
	}
	return records
}

// ExtractAllBlocks captures from each def to the next line that is exactly
// "end". Inside a class this is the class terminator, so matches do not
// overlap and usually only the first method of each class is returned.
func ExtractAllBlocks(text string) []MethodRecord {
	var records []MethodRecord
	seen := make(map[string]bool)

	for _, m := range terminatorPattern.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[4]:m[5]]
		if seen[name] {
			continue
		}
		seen[name] = true
		records = append(records, MethodRecord{
			Name:      name,
			Singleton: m[2] >= 0,
			Body:      strings.TrimSpace(text[m[0]:m[1]]),
		})
	}
	return records
}

// ExtractWith runs the batch scan selected by boundary.
func ExtractWith(boundary Boundary, text string) []MethodRecord {
	if boundary == BoundaryTerminator {
		return ExtractAllBlocks(text)
	}
	return ExtractAll(text)
}

// IsClassSelection reports whether the selection names a class rather than a
// method: once trimmed it starts with an uppercase letter, or with a class or
// module definition.
func IsClassSelection(selected string) bool {
	s := strings.TrimSpace(selected)
	if s == "" {
		return false
	}
	return (s[0] >= 'A' && s[0] <= 'Z') || containerDef.MatchString(s)
}

// MethodName returns the method named by a selection. A selection starting
// with def yields the name after it; otherwise the trimmed selection must
// itself be a method name.
func MethodName(selected string) (string, bool) {
	s := strings.TrimSpace(selected)
	if m := selectionDef.FindStringSubmatch(s); m != nil {
		return m[2], true
	}
	if m := identOnly.FindStringSubmatch(s); m != nil {
		return m[2], true
	}
	return "", false
}

// nextDef returns the offset of the next def token at or after from.
func nextDef(text string, from int) int {
	if loc := defToken.FindStringIndex(text[from:]); loc != nil {
		return from + loc[0]
	}
	return len(text)
}

func isIdentByte(b byte) bool {
	return b == '_' || b == '?' || b == '!' || b == '=' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
