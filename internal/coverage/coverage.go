// Package coverage decides whether a method already has a spec block.
//
// The generate pipeline uses it to skip covered methods and the dataset
// builder uses it to pick (method, block) pairs. Both go through Matcher so
// that what is skipped and what is harvested never diverge.
package coverage

import (
	"fmt"
	"os"
	"strings"

	"github.com/A-iswarya/RspecGeneratorPublic/internal/errors"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/extract"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/identity"
)

// Matcher indexes spec text and answers coverage queries.
type Matcher struct {
	Policy extract.Policy
}

// NewMatcher returns a matcher using the given duplicate policy. An empty
// policy means last-wins.
func NewMatcher(policy extract.Policy) *Matcher {
	if policy == "" {
		policy = extract.LastWins
	}
	return &Matcher{Policy: policy}
}

// Index builds the block index for spec text.
func (m *Matcher) Index(text string) *extract.BlockIndex {
	return extract.Index(text, m.Policy)
}

// IsCovered reports whether idx holds a block for name.
func (m *Matcher) IsCovered(idx *extract.BlockIndex, name string) bool {
	return IsCovered(idx, name)
}

// Lookup returns the block covering name.
func (m *Matcher) Lookup(idx *extract.BlockIndex, name string) (extract.TestBlockRecord, bool) {
	return Lookup(idx, name)
}

// IsCovered reports whether any key of idx claims name. Keys match
// case-insensitively, with or without one selector prefix (#, ., or an HTTP
// verb followed by a space).
func IsCovered(idx *extract.BlockIndex, name string) bool {
	_, ok := Lookup(idx, name)
	return ok
}

// Lookup returns the first block in key order that claims name.
func Lookup(idx *extract.BlockIndex, name string) (extract.TestBlockRecord, bool) {
	if idx.Len() == 0 {
		return extract.TestBlockRecord{}, false
	}
	want := identity.Identity(name)
	for _, key := range idx.Keys() {
		if strings.EqualFold(key, name) || identity.Claimed(key) == want {
			return idx.Get(key)
		}
	}
	return extract.TestBlockRecord{}, false
}

// IsCoveredText indexes raw spec text with last-wins and applies IsCovered.
func IsCoveredText(text, name string) bool {
	return IsCovered(extract.Index(text, extract.LastWins), name)
}

// Report lists covered and uncovered methods of one source file.
type Report struct {
	SourcePath string   `json:"source_path"`
	TestPath   string   `json:"test_path"`
	SpecExists bool     `json:"spec_exists"`
	Covered    []string `json:"covered"`
	Uncovered  []string `json:"uncovered"`
}

// Check classifies each method against the spec text. Empty specText means
// no spec file exists and every method is uncovered.
func (m *Matcher) Check(methods []extract.MethodRecord, specText string) (covered, uncovered []string) {
	idx := m.Index(specText)
	covered = []string{}
	uncovered = []string{}
	for _, rec := range methods {
		if m.IsCovered(idx, rec.Name) {
			covered = append(covered, rec.Name)
		} else {
			uncovered = append(uncovered, rec.Name)
		}
	}
	return covered, uncovered
}

// Inspect reads a source file and its mirrored spec and reports coverage
// for every method in the source.
func (m *Matcher) Inspect(resolver *identity.Resolver, sourcePath string) (*Report, error) {
	unit, err := identity.ReadSource(sourcePath)
	if err != nil {
		return nil, err
	}
	testPath, err := resolver.ResolveTestPath(sourcePath)
	if err != nil {
		return nil, err
	}

	report := &Report{SourcePath: sourcePath, TestPath: testPath}
	specText := ""
	data, err := os.ReadFile(testPath)
	switch {
	case err == nil:
		report.SpecExists = true
		specText = string(data)
	case !os.IsNotExist(err):
		return nil, errors.IOError(errors.ErrCodeReadFailed,
			fmt.Sprintf("failed to read %s", testPath), err).WithDetail("path", testPath)
	}

	report.Covered, report.Uncovered = m.Check(extract.ExtractAll(unit.Text), specText)
	return report, nil
}
