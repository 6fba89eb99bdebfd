package mcp

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dangehub/obsidian-lunar-solar-sync/internal/convert"
	"github.com/dangehub/obsidian-lunar-solar-sync/internal/datefmt"
	"github.com/dangehub/obsidian-lunar-solar-sync/internal/engine"
	"github.com/dangehub/obsidian-lunar-solar-sync/internal/lunar"
	"github.com/dangehub/obsidian-lunar-solar-sync/internal/store"
)

// Server wraps the MCP server with lunarsync's store.
type Server struct {
	store    *store.Store
	server   *mcp.Server
	resolver *lunar.Resolver
	logger   *log.Logger
}

// NewServer creates a new lunarsync MCP server.
func NewServer(st *store.Store, version string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{store: st, resolver: lunar.NewResolver(), logger: logger}

	impl := &mcp.Implementation{
		Name:    "lunarsync",
		Version: version,
	}

	s.server = mcp.NewServer(impl, nil)
	s.registerTools()

	return s
}

// Run starts the MCP server on stdio.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// registerTools adds all lunarsync tools to the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "lunar_convert",
		Description: "Convert a lunar calendar date such as 2023-02-10, 2023-闰02-10 or 农历2023-02-10 to Gregorian dates. " +
			"mode 'next' (default) returns the first occurrence on or after today; mode 'range' returns one date per year " +
			"around the current year, keyed with the configured output key pattern. " +
			"strategy decides how a leap month maps onto years without it: strict, forward or backward.",
	}, s.handleConvert)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "note_sync",
		Description: "Write the solar date(s) for one note in the configured vault. The path may be absolute or relative to the vault. " +
			"Returns the outcome (updated, unchanged, skipped or failed) and the fields that changed. " +
			"Use dry_run=true to preview without writing.",
	}, s.handleNoteSync)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "vault_sync",
		Description: "Write solar dates for every note within the configured target paths of the vault. " +
			"Returns counts plus the outcome of each note. Use dry_run=true to preview without writing.",
	}, s.handleVaultSync)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "lunar_settings",
		Description: "Show the conversion settings in effect: source key, output mode, key pattern, date format, range and leap strategy.",
	}, s.handleSettings)
}

// ConvertArgs are the inputs of lunar_convert.
type ConvertArgs struct {
	Date     string `json:"date" jsonschema:"Lunar date, e.g. 2023-02-10 or 2023-闰02-10 (闰 marks a leap month)"`
	Strategy string `json:"strategy,omitempty" jsonschema:"Leap strategy: strict, forward or backward (default: configured strategy)"`
	Mode     string `json:"mode,omitempty" jsonschema:"'next' (default) or 'range'"`
	Past     *int   `json:"past,omitempty" jsonschema:"Years before the current year in range mode (default: configured range_past)"`
	Future   *int   `json:"future,omitempty" jsonschema:"Years after the current year in range mode (default: configured range_future)"`
}

// RangeEntry is one output field of a range conversion.
type RangeEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ConvertResult is the output of lunar_convert.
type ConvertResult struct {
	Lunar    string       `json:"lunar"`
	Strategy string       `json:"strategy"`
	Next     string       `json:"next,omitempty"`
	Range    []RangeEntry `json:"range,omitempty"`
	Message  string       `json:"message,omitempty"`
}

func strategyNames() string {
	var names []string
	for _, st := range lunar.Strategies() {
		names = append(names, string(st))
	}
	return strings.Join(names, ", ")
}

func (s *Server) handleConvert(ctx context.Context, req *mcp.CallToolRequest, args ConvertArgs) (*mcp.CallToolResult, any, error) {
	d, ok := lunar.Parse(args.Date)
	if !ok {
		return nil, nil, fmt.Errorf("not a lunar date: %q (expected YYYY-MM-DD, optionally 农历 prefix and 闰 before the month)", args.Date)
	}
	settings := s.store.Config.Conversion
	strategy := settings.DefaultLeapStrategy
	if args.Strategy != "" {
		strategy = lunar.ParseStrategy(args.Strategy, "")
		if strategy == "" {
			return nil, nil, fmt.Errorf("unknown strategy %q (expected one of %s)", args.Strategy, strategyNames())
		}
	}
	out := ConvertResult{Lunar: d.String(), Strategy: string(strategy)}

	switch args.Mode {
	case "", "next":
		next, ok := s.resolver.FindNext(d, strategy)
		if !ok {
			out.Message = fmt.Sprintf("No occurrence within the next %d years.", lunar.SearchYears)
			return nil, out, nil
		}
		v, err := datefmt.Render(s.resolver.Formatter, settings.OutputDateFormat, next)
		if err != nil {
			return nil, nil, fmt.Errorf("date format: %w", err)
		}
		out.Next = v
	case "range":
		past, future := settings.RangePast, settings.RangeFuture
		if args.Past != nil {
			past = *args.Past
		}
		if args.Future != nil {
			future = *args.Future
		}
		past = max(0, min(past, convert.MaxRange))
		future = max(0, min(future, convert.MaxRange))
		fields, err := s.resolver.BuildRange(d, strategy, s.resolver.Today().Year(), past, future, settings.OutputKeyPattern, settings.OutputDateFormat)
		if err != nil {
			return nil, nil, err
		}
		for _, k := range fields.Keys() {
			v, _ := fields.Get(k)
			out.Range = append(out.Range, RangeEntry{Key: k, Value: v})
		}
		if len(out.Range) == 0 {
			out.Message = "No year in the window has this date."
		}
	default:
		return nil, nil, fmt.Errorf("unknown mode %q (expected next or range)", args.Mode)
	}
	return nil, out, nil
}

// OutcomeResult describes what happened to one note.
type OutcomeResult struct {
	Path     string            `json:"path"`
	Status   string            `json:"status"`
	Reason   string            `json:"reason,omitempty"`
	Strategy string            `json:"strategy,omitempty"`
	Changes  map[string]string `json:"changes,omitempty"`
	Error    string            `json:"error,omitempty"`
}

func outcomeResult(o convert.Outcome) OutcomeResult {
	r := OutcomeResult{
		Path:     o.Path,
		Status:   string(o.Status),
		Reason:   o.Reason,
		Strategy: string(o.Strategy),
	}
	if o.Changes.Len() > 0 {
		r.Changes = o.Changes.Map()
	}
	if o.Err != nil {
		r.Error = o.Err.Error()
	}
	return r
}

func (s *Server) engine() (*engine.Engine, error) {
	e, err := engine.New(s.store, s.logger)
	if err != nil {
		return nil, err
	}
	e.Processor.Planner.Resolver = s.resolver
	return e, nil
}

// NoteSyncArgs are the inputs of note_sync.
type NoteSyncArgs struct {
	Path   string `json:"path" jsonschema:"Note path, absolute or relative to the vault root"`
	DryRun bool   `json:"dry_run,omitempty" jsonschema:"If true, report what would change without writing"`
}

func (s *Server) handleNoteSync(ctx context.Context, req *mcp.CallToolRequest, args NoteSyncArgs) (*mcp.CallToolResult, any, error) {
	if args.Path == "" {
		return nil, nil, fmt.Errorf("path is required")
	}
	e, err := s.engine()
	if err != nil {
		return nil, nil, err
	}
	summary, err := e.SyncNote(args.Path, args.DryRun)
	if err != nil {
		return nil, nil, err
	}
	return nil, outcomeResult(summary.Outcomes[0]), nil
}

// VaultSyncArgs are the inputs of vault_sync.
type VaultSyncArgs struct {
	DryRun bool `json:"dry_run,omitempty" jsonschema:"If true, report what would change without writing"`
}

// VaultSyncResult is the output of vault_sync.
type VaultSyncResult struct {
	Updated   int             `json:"updated"`
	Unchanged int             `json:"unchanged"`
	Skipped   int             `json:"skipped"`
	Failed    int             `json:"failed"`
	DryRun    bool            `json:"dry_run,omitempty"`
	Outcomes  []OutcomeResult `json:"outcomes"`
}

func (s *Server) handleVaultSync(ctx context.Context, req *mcp.CallToolRequest, args VaultSyncArgs) (*mcp.CallToolResult, any, error) {
	e, err := s.engine()
	if err != nil {
		return nil, nil, err
	}
	summary, err := e.SyncAll(args.DryRun)
	if err != nil {
		return nil, nil, err
	}
	out := VaultSyncResult{
		Updated:   summary.Updated,
		Unchanged: summary.Unchanged,
		Skipped:   summary.Skipped,
		Failed:    summary.Failed,
		DryRun:    args.DryRun,
		Outcomes:  []OutcomeResult{},
	}
	for _, o := range summary.Outcomes {
		out.Outcomes = append(out.Outcomes, outcomeResult(o))
	}
	return nil, out, nil
}

// SettingsArgs takes no input.
type SettingsArgs struct{}

// SettingsResult is the output of lunar_settings.
type SettingsResult struct {
	Vault      string           `json:"vault"`
	Conversion convert.Settings `json:"conversion"`
}

func (s *Server) handleSettings(ctx context.Context, req *mcp.CallToolRequest, args SettingsArgs) (*mcp.CallToolResult, any, error) {
	return nil, SettingsResult{Vault: s.store.Config.Vault.Path, Conversion: s.store.Config.Conversion}, nil
}
