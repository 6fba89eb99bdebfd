package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dangehub/obsidian-lunar-solar-sync/internal/convert"
	"github.com/dangehub/obsidian-lunar-solar-sync/internal/engine"
	lsmcp "github.com/dangehub/obsidian-lunar-solar-sync/internal/mcp"
	"github.com/dangehub/obsidian-lunar-solar-sync/internal/store"
	"github.com/dangehub/obsidian-lunar-solar-sync/internal/ui"
)

// Set via ldflags at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func buildVersion() string {
	if commit == "none" {
		return version
	}
	return fmt.Sprintf("%s (%s, %s)", version, commit, date)
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var noColor bool

	root := &cobra.Command{
		Use:   "lunarsync",
		Short: "lunarsync: lunar dates to solar dates for your notes",
		Long:  "Reads lunar-calendar dates from note frontmatter and writes the matching solar dates back into each note.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ui.Init(noColor)
		},
		SilenceUsage: true,
	}

	root.Version = buildVersion()
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	root.AddGroup(
		&cobra.Group{ID: "core", Title: "Core Commands:"},
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "config", Title: "Configuration:"},
	)

	for _, c := range []*cobra.Command{initCmd(), previewCmd(), doctorCmd()} {
		c.GroupID = "core"
		root.AddCommand(c)
	}
	for _, c := range []*cobra.Command{syncCmd(), syncAllCmd(), watchCmd()} {
		c.GroupID = "sync"
		root.AddCommand(c)
	}
	configC := configCmd()
	configC.GroupID = "config"
	root.AddCommand(configC)

	root.AddCommand(completionCmd())
	root.AddCommand(mcpServeCmd())
	return root
}

func initCmd() *cobra.Command {
	var force bool
	var vaultPath string
	cmd := &cobra.Command{
		Use:     "init",
		Short:   "Initialize LUNARSYNC_HOME",
		Long:    "Create the LUNARSYNC_HOME directory (~/.lunarsync by default) with logs/ and config.yaml. Run this once before using any other lunarsync commands.",
		Example: "  lunarsync init --vault ~/Notes\n  lunarsync init --force",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := store.Home()
			if err := store.Init(home, force); err != nil {
				return err
			}
			ui.LogoWithTagline("lunar dates to solar dates")
			ui.Success("lunarsync initialized")
			ui.Detail("Home:", home)
			if vaultPath == "" {
				ui.Info("Set your vault with 'lunarsync config set vault.path <dir>'.")
				return nil
			}
			s, err := store.Load(home)
			if err != nil {
				return err
			}
			if err := s.SetConfigValue("vault.path", vaultPath); err != nil {
				return err
			}
			ui.Detail("Vault:", s.Config.Vault.Path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Reinitialize even if LUNARSYNC_HOME already exists")
	cmd.Flags().StringVar(&vaultPath, "vault", "", "Vault root directory")
	return cmd
}

func loadStore() (*store.Store, error) {
	s, err := store.Load(store.Home())
	if err != nil {
		return nil, fmt.Errorf("lunarsync not initialized, run 'lunarsync init' first: %w", err)
	}
	return s, nil
}

// openEngine loads the store and opens the vault, logging to the diagnostics
// file under LUNARSYNC_HOME, or to the console when that file cannot be
// opened. The returned closer flushes the file.
func openEngine() (*engine.Engine, io.Closer, error) {
	s, err := loadStore()
	if err != nil {
		return nil, nil, err
	}
	logger, closer, err := ui.FileLogger(s.LogPath(), log.DebugLevel)
	if err != nil {
		ui.Warning(fmt.Sprintf("Diagnostics log unavailable: %v", err))
		logger, closer = ui.Logger, io.NopCloser(nil)
	}
	e, err := engine.New(s, logger)
	if err != nil {
		closer.Close()
		return nil, nil, fmt.Errorf("%w (set one with 'lunarsync config set vault.path <dir>')", err)
	}
	return e, closer, nil
}

func outcomeRows(outcomes []convert.Outcome) [][]string {
	var rows [][]string
	for _, o := range outcomes {
		detail := ui.Dim(o.Reason)
		switch {
		case o.Err != nil:
			detail = ui.Red(o.Err.Error())
		case o.Status == convert.StatusSkipped:
			detail = ui.Yellow(o.Reason)
		case o.Changes != nil && o.Changes.Len() > 0:
			detail = ui.Green(strings.Join(o.Changes.Keys(), ", "))
		}
		rows = append(rows, []string{o.Path, ui.StatusText(string(o.Status)), detail})
	}
	return rows
}

func reportOutcome(o convert.Outcome, dryRun bool) {
	switch o.Status {
	case convert.StatusUpdated:
		verb := "Updated"
		if dryRun {
			verb = "Would update"
		}
		ui.Success(fmt.Sprintf("%s %s", verb, ui.Bold(o.Path)))
		for _, k := range o.Changes.Keys() {
			v, _ := o.Changes.Get(k)
			ui.KeyValue(k+":", v)
		}
	case convert.StatusUnchanged:
		ui.Info(fmt.Sprintf("%s is already up to date", o.Path))
	case convert.StatusSkipped:
		ui.Warning(fmt.Sprintf("Skipped %s (%s)", o.Path, o.Reason))
	case convert.StatusFailed:
		ui.Error(fmt.Sprintf("Failed %s: %v", o.Path, o.Err))
	}
}

// reportSummary prints the tally of a run and sends the desktop notification
// when enabled. Dry runs never notify.
func reportSummary(e *engine.Engine, summary convert.Summary, dryRun bool) {
	msg := summary.String()
	if dryRun {
		msg = "Dry run: " + msg
	}
	if summary.Failed > 0 {
		ui.Warning(msg)
		ui.Detail("Log:", e.Store.LogPath())
	} else {
		ui.Success(msg)
	}
	if e.Store.Config.Notify.Enabled && !dryRun {
		ui.Notify("lunarsync", msg)
	}
}

func syncCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:     "sync <note>",
		Short:   "Convert the lunar date of one note",
		Long:    "Reads the source key of one note and writes the solar date fields. The path may be absolute, relative to the working directory, or relative to the vault.",
		Example: "  lunarsync sync People/Grandma.md\n  lunarsync sync ./Grandma.md --dry-run",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, closer, err := openEngine()
			if err != nil {
				return err
			}
			defer closer.Close()

			summary, err := e.SyncNote(args[0], dryRun)
			if err != nil {
				return err
			}
			for _, o := range summary.Outcomes {
				reportOutcome(o, dryRun)
			}
			reportSummary(e, summary, dryRun)
			return summary.Err()
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the changes without writing")
	return cmd
}

func syncAllCmd() *cobra.Command {
	var dryRun, yes bool
	cmd := &cobra.Command{
		Use:     "sync-all",
		Short:   "Convert every note within the target paths",
		Long:    "Processes every markdown note under the configured target paths (the whole vault when none are set). One failing note does not stop the others.",
		Example: "  lunarsync sync-all --dry-run\n  lunarsync sync-all --yes",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, closer, err := openEngine()
			if err != nil {
				return err
			}
			defer closer.Close()

			ui.CommandBanner("SYNC-ALL", e.Vault.Root)
			docs, err := e.Documents()
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				ui.EmptyState("No notes within the target paths.")
				return nil
			}
			if !dryRun && !yes {
				proceed, err := ui.Confirm(fmt.Sprintf("Convert %d note(s) in %s?", len(docs), e.Vault.Root))
				if err != nil {
					return err
				}
				if !proceed {
					ui.Info("Cancelled.")
					return nil
				}
			}

			sp := ui.NewSpinner(fmt.Sprintf("Converting %d note(s)...", len(docs)))
			summary, err := e.SyncAll(dryRun)
			sp.Stop()
			if err != nil {
				return err
			}

			ui.Table([]string{"NOTE", "STATUS", "DETAIL"}, outcomeRows(summary.Outcomes))
			fmt.Fprintln(os.Stderr)
			reportSummary(e, summary, dryRun)
			return summary.Err()
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the changes without writing")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-convert notes as they change",
		Long:  "Watches the vault and converts notes within the target paths whenever they are created or saved. Runs until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, closer, err := openEngine()
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ui.CommandBanner("WATCH", e.Vault.Root)
			ui.Info("Watching for changes. Press Ctrl+C to stop.")
			err = e.Watch(ctx, func(o convert.Outcome) {
				if o.Status == convert.StatusUnchanged {
					return
				}
				reportOutcome(o, false)
			})
			if err != nil && ctx.Err() == nil {
				return err
			}
			ui.Info("Stopped.")
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and edit lunarsync configuration",
	}
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configSetCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(s.Config)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func configSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long:  "Set a lunarsync configuration value. Valid keys: " + strings.Join(store.ConfigKeys(), ", ") + ".",
		Example: `  lunarsync config set vault.path ~/Notes
  lunarsync config set conversion.output_mode range
  lunarsync config set conversion.default_leap_strategy strict
  lunarsync config set conversion.target_paths People,Family`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			if err := s.SetConfigValue(args[0], args[1]); err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Set %s = %s", args[0], args[1]))
			return nil
		},
	}
}

func doctorCmd() *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check health of LUNARSYNC_HOME and the configured vault",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := store.Home()

			if fix {
				ui.CommandBanner("DOCTOR", "repair mode")
				ui.SectionHeader("Repairs")
				fixed := store.FixIssues(home)
				for _, f := range fixed {
					ui.Success(fmt.Sprintf("[FIXED] %s", f))
				}
				if len(fixed) == 0 {
					ui.EmptyState("Nothing to fix.")
				}
			} else {
				ui.CommandBanner("DOCTOR", "health check")
			}

			ui.SectionHeader("Health")
			issues := store.CheckHealth(home)
			if len(issues) == 0 {
				ui.Success("Everything looks good")
				return nil
			}

			hasError := false
			for _, issue := range issues {
				if issue.Severity == "error" {
					ui.Error(fmt.Sprintf("[ERR]  %s", issue.Message))
					hasError = true
				} else {
					ui.Warning(fmt.Sprintf("[WARN] %s", issue.Message))
				}
			}

			if hasError {
				os.Exit(2)
			}
			os.Exit(1)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "Recreate missing files and rewrite config.yaml with normalized values")
	return cmd
}

func completionCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "completion [bash|zsh|fish]",
		Short:     "Generate shell completion scripts",
		Long:      "Generate shell completion scripts for bash, zsh, or fish. Output the script to stdout for sourcing in your shell profile.",
		Example:   "  lunarsync completion bash > ~/.bashrc.d/lunarsync\n  lunarsync completion zsh > ~/.zfunc/_lunarsync\n  lunarsync completion fish > ~/.config/fish/completions/lunarsync.fish",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish"},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			default:
				return fmt.Errorf("unsupported shell: %s (use bash, zsh, or fish)", args[0])
			}
		},
	}
}

func mcpServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "mcp-serve",
		Short:  "Run lunarsync as an MCP server",
		Long:   "Start lunarsync as a Model Context Protocol (MCP) server over stdio, exposing lunar date conversion and note syncing as tools.",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			logger, closer, err := ui.FileLogger(s.LogPath(), log.InfoLevel)
			if err != nil {
				return err
			}
			defer closer.Close()

			server := lsmcp.NewServer(s, buildVersion(), logger)
			return server.Run(context.Background())
		},
	}
}
