package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dangehub/obsidian-lunar-solar-sync/internal/convert"
	"github.com/dangehub/obsidian-lunar-solar-sync/internal/datefmt"
	"github.com/dangehub/obsidian-lunar-solar-sync/internal/lunar"
	"github.com/dangehub/obsidian-lunar-solar-sync/internal/store"
	"github.com/dangehub/obsidian-lunar-solar-sync/internal/ui"
)

func previewCmd() *cobra.Command {
	var strategyFlag, modeFlag string
	cmd := &cobra.Command{
		Use:   "preview <lunar-date>",
		Short: "Show what a lunar date converts to",
		Long:  "Resolves a lunar date with the current settings without touching any note. Shows the next occurrence, the range of yearly keys, and how the key pattern renders.",
		Example: `  lunarsync preview 农历2023-闰02-15
  lunarsync preview 1990-08-15 --mode range
  lunarsync preview 2023-闰02-30 --strategy 向后`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := convert.DefaultSettings()
			if s, err := store.Load(store.Home()); err == nil {
				settings = s.Config.Conversion
			}
			if strategyFlag != "" {
				st := lunar.ParseStrategy(strategyFlag, "")
				if st == "" {
					return fmt.Errorf("unknown strategy %q (use %s)", strategyFlag, strategyChoices())
				}
				settings.DefaultLeapStrategy = st
			}
			if modeFlag != "" {
				settings.OutputMode = convert.OutputMode(modeFlag)
				if settings.OutputMode != convert.Single && settings.OutputMode != convert.Range {
					return fmt.Errorf("unknown mode %q (use single or range)", modeFlag)
				}
			}
			md, err := previewMarkdown(lunar.NewResolver(), settings, args[0])
			if err != nil {
				return err
			}
			ui.RenderMarkdown(md)
			return nil
		},
	}
	cmd.Flags().StringVar(&strategyFlag, "strategy", "", "Leap strategy: "+strategyChoices())
	cmd.Flags().StringVar(&modeFlag, "mode", "", "Output mode: single or range")
	return cmd
}

// strategyChoices lists each strategy as "strict (严格)".
func strategyChoices() string {
	var parts []string
	for _, st := range lunar.Strategies() {
		parts = append(parts, fmt.Sprintf("%s (%s)", st, st.Label()))
	}
	return strings.Join(parts, ", ")
}

// previewMarkdown describes how raw converts under settings.
func previewMarkdown(r *lunar.Resolver, settings convert.Settings, raw string) (string, error) {
	d, ok := lunar.Parse(raw)
	if !ok {
		return "", fmt.Errorf("not a lunar date: %q (expected YYYY-MM-DD, optionally prefixed with %s and with %s before a leap month)", raw, lunar.Tag, lunar.LeapMarker)
	}
	strategy := settings.DefaultLeapStrategy

	var b strings.Builder
	fmt.Fprintf(&b, "# %s%s\n\n", lunar.Tag, d)
	fmt.Fprintf(&b, "- **Strategy:** %s (%s)\n", strategy, strategy.Label())
	fmt.Fprintf(&b, "- **Mode:** %s\n\n", settings.OutputMode)

	b.WriteString("## Next occurrence\n\n")
	next, found := r.FindNext(d, strategy)
	if found {
		v, err := datefmt.Render(r.Formatter, settings.OutputDateFormat, next)
		if err != nil {
			return "", fmt.Errorf("date format %q: %w", settings.OutputDateFormat, err)
		}
		fmt.Fprintf(&b, "`%s: %s`\n\n", settings.OutputKeySingle, v)
	} else {
		fmt.Fprintf(&b, "No occurrence within the next %d years.\n\n", lunar.SearchYears)
	}

	if settings.OutputMode == convert.Range {
		today := r.Today()
		fields, err := r.BuildRange(d, strategy, today.Year(), settings.RangePast, settings.RangeFuture, settings.OutputKeyPattern, settings.OutputDateFormat)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "## Range %d to %d\n\n", today.Year()-settings.RangePast, today.Year()+settings.RangeFuture)
		if fields.Len() == 0 {
			b.WriteString("No year in the window has this date.\n\n")
		} else {
			b.WriteString("| Key | Solar date |\n|---|---|\n")
			for _, k := range fields.Keys() {
				v, _ := fields.Get(k)
				fmt.Fprintf(&b, "| `%s` | %s |\n", k, v)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("## Key pattern\n\n")
	fmt.Fprintf(&b, "- Pattern: `%s`\n", settings.OutputKeyPattern)
	fmt.Fprintf(&b, "- As literal text: `%s`\n", datefmt.EscapeLiteral(settings.OutputKeyPattern))
	if found {
		key, err := datefmt.Render(r.Formatter, settings.OutputKeyPattern, next)
		if err != nil {
			return "", fmt.Errorf("key pattern %q: %w", settings.OutputKeyPattern, err)
		}
		fmt.Fprintf(&b, "- Example key: `%s`\n", key)
	}
	return b.String(), nil
}
