package dataset

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/A-iswarya/RspecGeneratorPublic/internal/errors"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/extract"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/ui"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// rubyClass builds a class with one trivial method per name.
func rubyClass(name string, methods ...string) string {
	var b strings.Builder
	b.WriteString("class " + name + "\n")
	for _, m := range methods {
		b.WriteString("  def " + m + "\n    :" + m + "\n  end\n\n")
	}
	b.WriteString("end\n")
	return b.String()
}

// rspecFile builds a spec with one describe per name.
func rspecFile(name string, methods ...string) string {
	var b strings.Builder
	b.WriteString("RSpec.describe " + name + " do\n")
	for _, m := range methods {
		b.WriteString("  describe '#" + m + "' do\n    it { }\n  end\n")
	}
	b.WriteString("end\n")
	return b.String()
}

// fivePairsProject has 5 matching pairs across 3 files plus one file with no spec.
func fivePairsProject(t *testing.T) string {
	root := t.TempDir()
	writeFile(t, root, "app/models/account.rb", rubyClass("Account", "open", "close"))
	writeFile(t, root, "spec/models/account_spec.rb", rspecFile("Account", "open", "close"))
	writeFile(t, root, "app/models/invoice.rb", rubyClass("Invoice", "total", "paid?"))
	writeFile(t, root, "spec/models/invoice_spec.rb", rspecFile("Invoice", "total", "paid?"))
	writeFile(t, root, "app/services/billing.rb", rubyClass("Billing", "charge", "refund"))
	writeFile(t, root, "spec/services/billing_spec.rb", rspecFile("Billing", "charge"))
	writeFile(t, root, "app/services/orphan.rb", rubyClass("Orphan", "lonely"))
	return root
}

func TestBuild_AllPairs(t *testing.T) {
	root := fivePairsProject(t)

	res, err := NewBuilder(Options{}).Build(context.Background(), root, 0)

	require.NoError(t, err)
	assert.Len(t, res.Entries, 5)
	assert.Equal(t, 4, res.FilesScanned)
	assert.Equal(t, 3, res.FilesWithSpec)
	assert.False(t, res.LimitReached)
	assert.Empty(t, res.Errors)

	// Lexical order: models/account, models/invoice, services/billing
	assert.Equal(t, "def open\n    :open\n  end", res.Entries[0].Input)
	assert.Equal(t, "describe '#open' do\n    it { }\n  end", res.Entries[0].Output)
	assert.Equal(t, "def charge\n    :charge\n  end", res.Entries[4].Input)
}

func TestBuild_LimitStopsEarly(t *testing.T) {
	// Given: 5 available pairs across 3 files
	root := fivePairsProject(t)

	// When: building with limit 2
	res, err := NewBuilder(Options{}).Build(context.Background(), root, 2)

	// Then: exactly 2 entries and the remaining files are not visited
	require.NoError(t, err)
	assert.Len(t, res.Entries, 2)
	assert.True(t, res.LimitReached)
	assert.Equal(t, 1, res.FilesScanned)
}

func TestBuild_LimitCheckedAfterEachFile(t *testing.T) {
	root := fivePairsProject(t)

	res, err := NewBuilder(Options{}).Build(context.Background(), root, 4)

	require.NoError(t, err)
	assert.Len(t, res.Entries, 4)
	assert.Equal(t, 2, res.FilesScanned)
}

func TestBuild_EntryText(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app/models/a.rb", rubyClass("A", "x"))
	writeFile(t, root, "spec/models/a_spec.rb", rspecFile("A", "x"))

	res, err := NewBuilder(Options{}).Build(context.Background(), root, 0)

	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	e := res.Entries[0]
	assert.Equal(t, DefaultInstruction, e.Instruction)
	want := "Below is an instruction that describes a task, paired with an input that provides further context. Write a response that appropriately completes the request.\n\n" +
		"### Instruction:\n" + DefaultInstruction + "\n\n" +
		"### Input:\ndef x\n    :x\n  end\n\nend\n\n" +
		"### Response:\ndescribe '#x' do\n    it { }\n  end\n"
	assert.Equal(t, want, e.Text)
}

func TestBuild_CustomInstructionAndTerminatorBoundary(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app/models/a.rb", rubyClass("A", "x", "y"))
	writeFile(t, root, "spec/models/a_spec.rb", rspecFile("A", "x", "y"))

	res, err := NewBuilder(Options{
		Instruction: "Test this.",
		Boundary:    extract.BoundaryTerminator,
	}).Build(context.Background(), root, 0)

	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "Test this.", res.Entries[0].Instruction)
	assert.True(t, strings.HasSuffix(res.Entries[0].Input, "\nend"))
}

func TestBuild_UnreadableSpecRecordedAndWalkContinues(t *testing.T) {
	root := fivePairsProject(t)
	// A directory where the spec file should be makes the read fail.
	writeFile(t, root, "app/models/broken.rb", rubyClass("Broken", "x"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "spec", "models", "broken_spec.rb"), 0o755))

	res, err := NewBuilder(Options{}).Build(context.Background(), root, 0)

	require.NoError(t, err)
	assert.Len(t, res.Entries, 5)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "app/models/broken.rb", res.Errors[0].Path)
	assert.Equal(t, errors.CategoryIO, errors.GetCategory(res.Errors[0].Err))
}

func TestBuild_MissingAppDir(t *testing.T) {
	_, err := NewBuilder(Options{}).Build(context.Background(), t.TempDir(), 0)

	require.Error(t, err)
	assert.Equal(t, errors.CategoryIO, errors.GetCategory(err))
}

// recordingRenderer captures progress events.
type recordingRenderer struct {
	events []ui.ProgressEvent
	errs   []ui.ErrorEvent
}

func (r *recordingRenderer) Start(context.Context) error        { return nil }
func (r *recordingRenderer) UpdateProgress(ev ui.ProgressEvent) { r.events = append(r.events, ev) }
func (r *recordingRenderer) AddError(ev ui.ErrorEvent)          { r.errs = append(r.errs, ev) }
func (r *recordingRenderer) Complete(ui.CompletionStats)        {}
func (r *recordingRenderer) Stop() error                        { return nil }

func TestBuild_ReportsProgress(t *testing.T) {
	root := fivePairsProject(t)
	r := &recordingRenderer{}

	_, err := NewBuilder(Options{Renderer: r}).Build(context.Background(), root, 0)

	require.NoError(t, err)
	require.NotEmpty(t, r.events)
	assert.Equal(t, ui.StageScanning, r.events[0].Stage)
	assert.Equal(t, "app/models/account.rb", r.events[0].CurrentFile)
}

func TestWrite_PrettyJSON(t *testing.T) {
	// Given: an output directory that does not exist yet
	path := filepath.Join(t.TempDir(), "out", "datasets", "dataset.json")
	entries := []Entry{NewEntry(DefaultInstruction, "def a\n  x < 1 && y\nend", "describe '#a' do\nend")}

	// When: writing
	require.NoError(t, Write(path, entries))

	// Then: a 2-space indented array with unescaped Ruby operators
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "[\n  {\n    \"instruction\": "))
	assert.Contains(t, string(data), "x < 1 && y")

	var decoded []Entry
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, entries, decoded)

	back, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, entries, back)
}

func TestWrite_EmptyIsArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.json")

	require.NoError(t, Write(path, nil))

	data, _ := os.ReadFile(path)
	assert.Equal(t, "[]\n", string(data))
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"100", 100, false},
		{" 2 ", 2, false},
		{"0", 0, false},
		{"-5", 0, false},
		{"", 0, false},
		{"ten", 0, true},
		{"3.5", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLimit(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeInvalidLimit, errors.GetCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
