package mcp

import (
	"github.com/A-iswarya/RspecGeneratorPublic/internal/telemetry"
)

// Tool names.
const (
	ToolGenerateSpec  = "generate_spec"
	ToolBuildDataset  = "build_dataset"
	ToolCheckCoverage = "check_coverage"
	ToolStatus        = "status"
)

const (
	generateSpecDescription = "Generate RSpec describe blocks for a selection in a Rails controller, model, or service. " +
		"Pass the file path and the selected text: a method name, a method body, or a class. " +
		"Methods that already have a describe block are skipped."
	buildDatasetDescription = "Build an instruction-tuning dataset from methods that already have a matching describe block. " +
		"Writes datasets/dataset.json under the project and returns counts."
	checkCoverageDescription = "List which methods of a Ruby source file have a describe block in the mirrored spec file."
	statusDescription        = "Report the detected Rails project, the inference endpoint state, and generation history."
)

// GenerateSpecInput defines the input schema for the generate_spec tool.
type GenerateSpecInput struct {
	Path      string `json:"path" jsonschema:"source file path, absolute or relative to the project root"`
	Selection string `json:"selection" jsonschema:"selected text: a method name, method body, or class"`
}

// MethodOutcome is the result for one method.
type MethodOutcome struct {
	Method  string `json:"method" jsonschema:"method name"`
	Outcome string `json:"outcome" jsonschema:"inserted, skipped, no_synthesis, or failed"`
	Error   string `json:"error,omitempty" jsonschema:"failure message"`
	Code    string `json:"code,omitempty" jsonschema:"error code"`
}

// GenerateSpecOutput defines the output schema for the generate_spec tool.
type GenerateSpecOutput struct {
	RunID      string          `json:"run_id"`
	SourcePath string          `json:"source_path"`
	TestPath   string          `json:"test_path" jsonschema:"spec file that was written"`
	Title      string          `json:"title"`
	Scaffolded bool            `json:"scaffolded" jsonschema:"true if the spec file was created"`
	Methods    []MethodOutcome `json:"methods"`
	Warnings   []string        `json:"warnings,omitempty"`
}

// BuildDatasetInput defines the input schema for the build_dataset tool.
type BuildDatasetInput struct {
	Root  string `json:"root,omitempty" jsonschema:"project root, default is the server root"`
	Limit string `json:"limit,omitempty" jsonschema:"maximum number of entries as a decimal string, empty for no limit"`
}

// SkippedFile names a file the dataset walk could not process.
type SkippedFile struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// BuildDatasetOutput defines the output schema for the build_dataset tool.
type BuildDatasetOutput struct {
	Path          string        `json:"path" jsonschema:"dataset file written"`
	Entries       int           `json:"entries"`
	FilesScanned  int           `json:"files_scanned"`
	FilesWithSpec int           `json:"files_with_spec"`
	LimitReached  bool          `json:"limit_reached"`
	Skipped       []SkippedFile `json:"skipped,omitempty"`
}

// CheckCoverageInput defines the input schema for the check_coverage tool.
type CheckCoverageInput struct {
	Path string `json:"path" jsonschema:"source file path, absolute or relative to the project root"`
}

// CheckCoverageOutput defines the output schema for the check_coverage tool.
type CheckCoverageOutput struct {
	SourcePath string   `json:"source_path"`
	TestPath   string   `json:"test_path"`
	SpecExists bool     `json:"spec_exists"`
	Covered    []string `json:"covered"`
	Uncovered  []string `json:"uncovered"`
}

// StatusInput defines the input schema for the status tool (no parameters).
type StatusInput struct{}

// StatusOutput defines the output schema for the status tool.
type StatusOutput struct {
	Project  ProjectInfo        `json:"project"`
	Endpoint EndpointInfo       `json:"endpoint"`
	History  *telemetry.Summary `json:"history,omitempty"`
}

// EndpointInfo describes the inference endpoint.
type EndpointInfo struct {
	URL    string `json:"url"`
	Status string `json:"status" jsonschema:"ready or unavailable"`
}

// ProjectInfo contains information about the served project.
type ProjectInfo struct {
	Name         string `json:"name"`
	RootPath     string `json:"root_path"`
	Type         string `json:"type" jsonschema:"rails, ruby, or unknown"`
	RailsVersion string `json:"rails_version,omitempty"`
}
