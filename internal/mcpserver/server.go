// Package mcpserver exposes diagnosis and healing as MCP tools over stdio so
// AI agents can inspect and repair tabular files.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/KaramelBytes/sheetdoctor-cli/internal/config"
	"github.com/KaramelBytes/sheetdoctor-cli/internal/diagnose"
	"github.com/KaramelBytes/sheetdoctor-cli/internal/heal"
	"github.com/KaramelBytes/sheetdoctor-cli/internal/loader"
	"github.com/KaramelBytes/sheetdoctor-cli/internal/report"
	"github.com/KaramelBytes/sheetdoctor-cli/internal/table"
)

// Server wraps the MCP server with the tool handlers.
type Server struct {
	mcp *server.MCPServer
	cfg *config.Global
}

// New creates and configures the MCP server with all tools registered.
func New(cfg *config.Global) *Server {
	s := &Server{cfg: cfg}
	s.mcp = server.NewMCPServer(
		"sheetdoctor-mcp",
		report.ToolVersion,
		server.WithToolCapabilities(true),
	)
	s.registerTools()
	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("diagnose_file",
		mcp.WithDescription("Diagnose a tabular file (CSV/TSV/XLSX/JSON) without modifying it: encoding, structural problems, mixed date formats, column semantics, and an overall verdict."),
		mcp.WithString("path", mcp.Description("Path to the input file"), mcp.Required()),
		mcp.WithString("sheet", mcp.Description("Worksheet name for workbook formats (optional, defaults to the first sheet)")),
	), s.handleDiagnoseFile)

	s.mcp.AddTool(mcp.NewTool("inspect_healing_plan",
		mcp.WithDescription("Dry-run healing on a file: detected header position, effective headers, candidate healing mode, and the semantic role each column would get. Nothing is written."),
		mcp.WithString("path", mcp.Description("Path to the input file"), mcp.Required()),
		mcp.WithString("sheet", mcp.Description("Worksheet name for workbook formats (optional)")),
		mcp.WithString("headerRow", mcp.Description("1-based header row override (optional)")),
		mcp.WithString("roleOverrides", mcp.Description(`JSON object mapping 1-based column numbers to roles, e.g. {"3":"date","5":"ignore"} (optional)`)),
	), s.handleInspectPlan)

	s.mcp.AddTool(mcp.NewTool("heal_file",
		mcp.WithDescription("Heal a tabular file: repairs what it safely can, quarantines what it cannot, and writes cleaned/quarantine/changelog CSVs plus a JSON summary next to the input (or into outDir)."),
		mcp.WithString("path", mcp.Description("Path to the input file"), mcp.Required()),
		mcp.WithString("outDir", mcp.Description("Directory for output files (optional, defaults to the input's directory)")),
		mcp.WithString("sheet", mcp.Description("Worksheet name for workbook formats (optional)")),
		mcp.WithString("headerRow", mcp.Description("1-based header row override (optional)")),
		mcp.WithString("roleOverrides", mcp.Description(`JSON object mapping 1-based column numbers to roles (optional)`)),
	), s.handleHealFile)

	s.mcp.AddTool(mcp.NewTool("report_file",
		mcp.WithDescription("Produce a full health report for a tabular file: raw health score, recoverability, post-heal projection, per-column breakdown, and recommended actions. Nothing is written."),
		mcp.WithString("path", mcp.Description("Path to the input file"), mcp.Required()),
		mcp.WithString("sheet", mcp.Description("Worksheet name for workbook formats (optional)")),
	), s.handleReportFile)
}

func (s *Server) loadTable(args map[string]any) (path string, tbl *loadResult, err error) {
	p, _ := args["path"].(string)
	if p == "" {
		return "", nil, fmt.Errorf("path is required")
	}
	sheet, _ := args["sheet"].(string)
	loadOpts := loader.Options{Sheet: sheet}
	if s.cfg != nil {
		loadOpts.MaxRows = s.cfg.MaxRows
		loadOpts.MaxCols = s.cfg.MaxCols
	}
	t, err := loader.LoadWithOptions(p, loadOpts)
	if err != nil {
		return "", nil, fmt.Errorf("load %s: %w", p, err)
	}
	return p, &loadResult{table: t, sheet: sheet}, nil
}

type loadResult struct {
	table *table.Table
	sheet string
}

func (s *Server) healOptions(args map[string]any) (heal.Options, error) {
	opts := heal.Options{Rules: s.rules()}
	if raw, ok := args["headerRow"].(string); ok && raw != "" {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n < 1 {
			return opts, fmt.Errorf("headerRow must be a positive integer, got %q", raw)
		}
		opts.HeaderRow = n
	}
	if raw, ok := args["roleOverrides"].(string); ok && raw != "" {
		parsed, err := ParseRoleOverrides(raw)
		if err != nil {
			return opts, err
		}
		opts.RoleOverrides = parsed
	}
	return opts, nil
}

// rules maps config overrides onto the built-in rule tables.
func (s *Server) rules() *heal.Rules {
	rules := heal.DefaultRules()
	if s.cfg == nil {
		return rules
	}
	if s.cfg.NearDuplicateDays > 0 {
		rules.NearDuplicateDayWindow = s.cfg.NearDuplicateDays
	}
	if s.cfg.FillDownMaxGap > 0 {
		rules.FillDownMaxGap = s.cfg.FillDownMaxGap
	}
	if s.cfg.LargeFileSkipExtras > 0 {
		rules.LargeFileSkipExtras = s.cfg.LargeFileSkipExtras
	}
	if s.cfg.SparseThresholdSchema > 0 {
		rules.SparseThresholdSchema = float64(s.cfg.SparseThresholdSchema) / 100
	}
	if s.cfg.SparseThresholdGeneric > 0 {
		rules.SparseThresholdGeneric = float64(s.cfg.SparseThresholdGeneric) / 100
	}
	return rules
}

func (s *Server) sampleCap() int {
	if s.cfg != nil {
		return s.cfg.SampleCap
	}
	return 0
}

// ParseRoleOverrides decodes a JSON object of 1-based column numbers to role
// names into the 0-based map the heal engine wants.
func ParseRoleOverrides(raw string) (map[int]string, error) {
	var byColumn map[string]string
	if err := json.Unmarshal([]byte(raw), &byColumn); err != nil {
		return nil, fmt.Errorf("roleOverrides must be a JSON object of column numbers to roles: %w", err)
	}
	out := make(map[int]string, len(byColumn))
	for key, role := range byColumn {
		n, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("roleOverrides keys must be 1-based column numbers, got %q", key)
		}
		out[n-1] = strings.ToLower(strings.TrimSpace(role))
	}
	return out, nil
}

func (s *Server) handleDiagnoseFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, loaded, err := s.loadTable(req.GetArguments())
	if err != nil {
		return nil, err
	}
	rep := diagnose.AnalyzeWithCap(loaded.table, s.sampleCap())
	return jsonResult(map[string]any{
		"contract": report.BuildContract("sheetdoctor.diagnose"),
		"report":   rep,
	})
}

func (s *Server) handleInspectPlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	_, loaded, err := s.loadTable(args)
	if err != nil {
		return nil, err
	}
	opts, err := s.healOptions(args)
	if err != nil {
		return nil, err
	}
	insp, err := heal.InspectPlan(loaded.table, opts)
	if err != nil {
		return nil, fmt.Errorf("inspect plan: %w", err)
	}
	return jsonResult(insp)
}

func (s *Server) handleHealFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, loaded, err := s.loadTable(args)
	if err != nil {
		return nil, err
	}
	opts, err := s.healOptions(args)
	if err != nil {
		return nil, err
	}
	result, err := heal.Heal(loaded.table, opts)
	if err != nil {
		return nil, fmt.Errorf("heal: %w", err)
	}
	outDir, _ := args["outDir"].(string)
	if outDir == "" && s.cfg != nil {
		outDir = s.cfg.OutDir
	}
	summary, err := report.WriteHealOutputs(path, outDir, result, opts, loaded.sheet)
	if err != nil {
		return nil, fmt.Errorf("write outputs: %w", err)
	}
	return jsonResult(summary)
}

func (s *Server) handleReportFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	_, loaded, err := s.loadTable(args)
	if err != nil {
		return nil, err
	}
	rep, _, err := report.BuildWithCap(loaded.table, heal.Options{Rules: s.rules()}, s.sampleCap())
	if err != nil {
		return nil, fmt.Errorf("build report: %w", err)
	}
	return jsonResult(rep)
}

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}
