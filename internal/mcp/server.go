package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/A-iswarya/RspecGeneratorPublic/internal/config"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/coverage"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/dataset"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/extract"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/identity"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/pipeline"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/synth"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/telemetry"
	"github.com/A-iswarya/RspecGeneratorPublic/pkg/version"
)

// Generator runs the generate pipeline. *pipeline.Pipeline satisfies it.
type Generator interface {
	Run(ctx context.Context, sel pipeline.Selection) (*pipeline.Report, error)
}

// DatasetBuilder walks a project for training entries. *dataset.Builder
// satisfies it.
type DatasetBuilder interface {
	Build(ctx context.Context, root string, limit int) (*dataset.Result, error)
}

// History reads past generate outcomes. *telemetry.Store satisfies it.
type History interface {
	Recent(ctx context.Context, limit int) ([]telemetry.Run, error)
	Summary(ctx context.Context) (telemetry.Summary, error)
}

// Options wires a Server.
type Options struct {
	Generator Generator
	Builder   DatasetBuilder
	Resolver  *identity.Resolver
	Matcher   *coverage.Matcher

	// Synthesizer is only probed by the status tool. Nil reports unavailable.
	Synthesizer synth.Synthesizer

	// History backs the history resource. Nil disables it.
	History History

	Config   *config.Config
	RootPath string
}

// Server exposes the generate and dataset actions as MCP tools.
type Server struct {
	mcp       *mcp.Server
	generator Generator
	builder   DatasetBuilder
	resolver  *identity.Resolver
	matcher   *coverage.Matcher
	synth     synth.Synthesizer
	history   History
	config    *config.Config
	logger    *slog.Logger
	rootPath  string

	mu sync.RWMutex
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// NewServer creates a new MCP server. Generator and Builder are required.
func NewServer(opts Options) (*Server, error) {
	if opts.Generator == nil {
		return nil, errors.New("generator is required")
	}
	if opts.Builder == nil {
		return nil, errors.New("dataset builder is required")
	}
	if opts.Config == nil {
		opts.Config = config.NewConfig()
	}
	if opts.Resolver == nil {
		opts.Resolver = identity.New(opts.Config.Paths.SourceDir, opts.Config.Paths.SpecDir)
	}
	if opts.Matcher == nil {
		opts.Matcher = coverage.NewMatcher(extract.Policy(opts.Config.Extract.DuplicatePolicy))
	}
	root := opts.RootPath
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	s := &Server{
		generator: opts.Generator,
		builder:   opts.Builder,
		resolver:  opts.Resolver,
		matcher:   opts.Matcher,
		synth:     opts.Synthesizer,
		history:   opts.History,
		config:    opts.Config,
		rootPath:  absRoot,
		logger:    slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "rspecgen",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	if s.history != nil {
		s.registerHistoryResource()
	}

	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "rspecgen", version.Version
}

// RootPath returns the absolute project root.
func (s *Server) RootPath() string {
	return s.rootPath
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{Name: ToolGenerateSpec, Description: generateSpecDescription},
		{Name: ToolBuildDataset, Description: buildDatasetDescription},
		{Name: ToolCheckCoverage, Description: checkCoverageDescription},
		{Name: ToolStatus, Description: statusDescription},
	}
}

// CallTool invokes a tool by name with JSON-style arguments and returns its
// structured output.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case ToolGenerateSpec:
		var in GenerateSpecInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.generateSpec(ctx, in)
	case ToolBuildDataset:
		var in BuildDatasetInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.buildDataset(ctx, in)
	case ToolCheckCoverage:
		var in CheckCoverageInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.checkCoverage(ctx, in)
	case ToolStatus:
		return s.status(ctx)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func decodeArgs(args map[string]any, v any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return NewInvalidParamsError(err.Error())
	}
	if err := json.Unmarshal(data, v); err != nil {
		return NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

// resolvePath accepts absolute paths and paths relative to the root.
func (s *Server) resolvePath(p string) (string, error) {
	if p == "" {
		return "", NewInvalidParamsError("path parameter is required")
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	if !s.isValidPath(p) {
		return "", NewInvalidParamsError(fmt.Sprintf("invalid path: %s", p))
	}
	return filepath.Join(s.rootPath, p), nil
}

// generateSpec runs the pipeline for one selection. Per-method failures are
// part of the output, not errors.
func (s *Server) generateSpec(ctx context.Context, in GenerateSpecInput) (*GenerateSpecOutput, error) {
	start := time.Now()
	requestID := generateRequestID()

	path, err := s.resolvePath(in.Path)
	if err != nil {
		return nil, err
	}

	s.logger.Info("generate_spec_started",
		slog.String("request_id", requestID),
		slog.String("path", path))

	report, err := s.generator.Run(ctx, pipeline.Selection{Path: path, Selected: in.Selection})
	if err != nil {
		s.logger.Warn("generate_spec_failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	out := toGenerateOutput(report)
	s.logger.Info("generate_spec_completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)),
		slog.Int("methods", len(out.Methods)))
	return out, nil
}

func toGenerateOutput(r *pipeline.Report) *GenerateSpecOutput {
	out := &GenerateSpecOutput{
		RunID:      r.RunID,
		SourcePath: r.SourcePath,
		TestPath:   r.TestPath,
		Title:      r.Title,
		Scaffolded: r.Scaffolded,
		Methods:    make([]MethodOutcome, 0, len(r.Methods)),
		Warnings:   r.Warnings,
	}
	for _, m := range r.Methods {
		out.Methods = append(out.Methods, MethodOutcome{
			Method:  m.Method,
			Outcome: string(m.Outcome),
			Error:   m.Error,
			Code:    m.Code,
		})
	}
	return out
}

// buildDataset walks root and writes the dataset file.
func (s *Server) buildDataset(ctx context.Context, in BuildDatasetInput) (*BuildDatasetOutput, error) {
	limit, err := dataset.ParseLimit(in.Limit)
	if err != nil {
		return nil, MapError(err)
	}

	root := s.rootPath
	if in.Root != "" {
		if root, err = s.resolvePath(in.Root); err != nil {
			return nil, err
		}
	}

	requestID := generateRequestID()
	s.logger.Info("build_dataset_started",
		slog.String("request_id", requestID),
		slog.String("root", root),
		slog.Int("limit", limit))

	res, err := s.builder.Build(ctx, root, limit)
	if err != nil {
		return nil, MapError(err)
	}

	out := filepath.Join(root, s.config.DatasetPath())
	if filepath.IsAbs(s.config.DatasetPath()) {
		out = s.config.DatasetPath()
	}
	if err := dataset.Write(out, res.Entries); err != nil {
		return nil, MapError(err)
	}

	output := &BuildDatasetOutput{
		Path:          out,
		Entries:       len(res.Entries),
		FilesScanned:  res.FilesScanned,
		FilesWithSpec: res.FilesWithSpec,
		LimitReached:  res.LimitReached,
	}
	for _, fe := range res.Errors {
		output.Skipped = append(output.Skipped, SkippedFile{Path: fe.Path, Error: fe.Err.Error()})
	}

	s.logger.Info("build_dataset_completed",
		slog.String("request_id", requestID),
		slog.Int("entries", output.Entries),
		slog.String("path", out))
	return output, nil
}

// checkCoverage reports covered and uncovered methods of one file.
func (s *Server) checkCoverage(_ context.Context, in CheckCoverageInput) (*CheckCoverageOutput, error) {
	path, err := s.resolvePath(in.Path)
	if err != nil {
		return nil, err
	}

	report, err := s.matcher.Inspect(s.resolver, path)
	if err != nil {
		return nil, MapError(err)
	}
	return &CheckCoverageOutput{
		SourcePath: report.SourcePath,
		TestPath:   report.TestPath,
		SpecExists: report.SpecExists,
		Covered:    report.Covered,
		Uncovered:  report.Uncovered,
	}, nil
}

// status probes the endpoint and summarizes history.
func (s *Server) status(ctx context.Context) (*StatusOutput, error) {
	out := &StatusOutput{
		Project:  *NewProjectDetector(s.rootPath, s.logger).Detect(),
		Endpoint: EndpointInfo{URL: s.config.Synth.Endpoint, Status: "unavailable"},
	}
	if s.synth != nil {
		out.Endpoint.URL = s.synth.Endpoint()
		if s.synth.Available(ctx) {
			out.Endpoint.Status = "ready"
		}
	}
	if s.history != nil {
		sum, err := s.history.Summary(ctx)
		if err != nil {
			s.logger.Warn("history_summary_failed", slog.String("error", err.Error()))
		} else {
			out.History = &sum
		}
	}
	return out, nil
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolGenerateSpec,
		Description: generateSpecDescription,
	}, s.mcpGenerateSpecHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolBuildDataset,
		Description: buildDatasetDescription,
	}, s.mcpBuildDatasetHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolCheckCoverage,
		Description: checkCoverageDescription,
	}, s.mcpCheckCoverageHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolStatus,
		Description: statusDescription,
	}, s.mcpStatusHandler)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", 4))
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func (s *Server) mcpGenerateSpecHandler(ctx context.Context, _ *mcp.CallToolRequest, input GenerateSpecInput) (
	*mcp.CallToolResult,
	*GenerateSpecOutput,
	error,
) {
	out, err := s.generateSpec(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	return textResult(FormatGenerateReport(out)), out, nil
}

func (s *Server) mcpBuildDatasetHandler(ctx context.Context, _ *mcp.CallToolRequest, input BuildDatasetInput) (
	*mcp.CallToolResult,
	*BuildDatasetOutput,
	error,
) {
	out, err := s.buildDataset(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	return textResult(FormatDatasetResult(out)), out, nil
}

func (s *Server) mcpCheckCoverageHandler(ctx context.Context, _ *mcp.CallToolRequest, input CheckCoverageInput) (
	*mcp.CallToolResult,
	*CheckCoverageOutput,
	error,
) {
	out, err := s.checkCoverage(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	return textResult(FormatCoverage(out)), out, nil
}

func (s *Server) mcpStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ StatusInput) (
	*mcp.CallToolResult,
	*StatusOutput,
	error,
) {
	out, err := s.status(ctx)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, out, nil
}

// Serve runs the server on the given transport until ctx is done.
// Only stdio is supported; stdout carries JSON-RPC and nothing else.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", transport))

	switch transport {
	case "stdio", "":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("mcp_server_stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
