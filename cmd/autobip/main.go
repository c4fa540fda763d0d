// Command autobip is the CLI for autobip: it serves the API and runs the
// generation flows from a terminal.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/autobip/internal/bootstrap"
	"github.com/ibeckermayer/autobip/internal/config"
	"github.com/ibeckermayer/autobip/internal/preview"
	"github.com/ibeckermayer/autobip/internal/store"
	"github.com/ibeckermayer/autobip/internal/types"
	"github.com/ibeckermayer/autobip/internal/writer"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd creates the root command
func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "autobip",
		Short:        "Turn developer activity into build-in-public posts",
		Long:         "autobip drafts social posts from commits and tickets, spots trending topics, and researches them with Gemini.",
		Version:      version,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: user config dir)")

	open := func(cmd *cobra.Command) (*bootstrap.Env, error) {
		return bootstrap.Open(cmd.Context(), configPath)
	}

	rootCmd.AddCommand(newServeCmd(open))
	rootCmd.AddCommand(newDraftCmd(open))
	rootCmd.AddCommand(newTrendsCmd(open))
	rootCmd.AddCommand(newResearchCmd(open))
	rootCmd.AddCommand(newPromptCmd())
	rootCmd.AddCommand(newJournalCmd(open))
	rootCmd.AddCommand(newOpenCmd(&configPath))

	return rootCmd
}

type opener func(cmd *cobra.Command) (*bootstrap.Env, error)

// newServeCmd creates the serve subcommand
func newServeCmd(open opener) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the trend scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := open(cmd)
			if err != nil {
				return err
			}
			defer env.Close()
			if addr != "" {
				env.Config.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return env.Serve(ctx)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (overrides server.addr)")

	return cmd
}

func parseStrategy(s string) (types.ContentStrategy, error) {
	switch strings.ToLower(s) {
	case "", "standard", strings.ToLower(string(types.StrategyStandardUpdate)):
		return types.StrategyStandardUpdate, nil
	case "bip", "journey", strings.ToLower(string(types.StrategyBuildInPublic)):
		return types.StrategyBuildInPublic, nil
	}
	return "", fmt.Errorf("unknown strategy %q: use 'standard' or 'bip'", s)
}

func parseTone(s string) (types.Tone, error) {
	for _, t := range []types.Tone{types.ToneProfessional, types.ToneHumbleBuilder, types.ToneContrarian, types.ToneDataFocused} {
		if strings.EqualFold(s, string(t)) || strings.EqualFold(s, strings.ReplaceAll(string(t), " ", "-")) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tone %q", s)
}

func printDraft(w io.Writer, d types.Draft) {
	fmt.Fprintf(w, "%s  [%s · %s]\n\n", d.Title, d.Source, d.Status)
	for i, item := range d.Content {
		if i > 0 {
			fmt.Fprintf(w, "\n--- %d/%d ---\n", i+1, len(d.Content))
		}
		fmt.Fprintln(w, item.Content)
	}
}

// openPreview renders d to an HTML file in the cache dir and opens it
func openPreview(d types.Draft) (string, error) {
	b, err := preview.New()
	if err != nil {
		return "", err
	}
	p, err := b.Build(d)
	if err != nil {
		return "", err
	}
	cacheDir, err := config.CacheDir()
	if err != nil {
		return "", err
	}
	path, err := p.Save(filepath.Join(cacheDir, "previews"))
	if err != nil {
		return "", err
	}
	return path, browser.OpenFile(path)
}

// newDraftCmd creates the draft subcommand
func newDraftCmd(open opener) *cobra.Command {
	var strategy, tone, imageSize, enhance string
	var showPreview bool

	cmd := &cobra.Command{
		Use:   "draft <activity>...",
		Short: "Write a post from one or more activity descriptions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			strat, err := parseStrategy(strategy)
			if err != nil {
				return err
			}

			env, err := open(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			if tone != "" {
				t, err := parseTone(tone)
				if err != nil {
					return err
				}
				env.Config.Analysis.DefaultTone = t
			}

			acts := make([]types.Activity, len(args))
			for i, line := range args {
				acts[i] = types.Activity{Description: line, Source: types.SourceGitHub, Type: types.ActivityFeature}
			}
			imported := env.App.ImportActivities(acts)
			ids := make([]string, len(imported))
			for i, a := range imported {
				ids[i] = a.ID
			}

			ctx := cmd.Context()
			d, err := env.App.GenerateDraftFromSelection(ctx, ids, strat)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("enhance") {
				if d, err = env.App.EnhanceDraft(ctx, d.ID, enhance); err != nil {
					return err
				}
			}
			if imageSize != "" {
				if d, err = env.App.GenerateDraftImage(ctx, d.ID, types.ImageSize(strings.ToUpper(imageSize))); err != nil {
					return err
				}
			}

			printDraft(cmd.OutOrStdout(), d)
			if d.ImageURL != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "\n(image attached, %d bytes as data URI)\n", len(d.ImageURL))
			}

			if showPreview {
				path, err := openPreview(d)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Could not open preview: %v\n", err)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "\nPreview saved to: %s\n", path)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&strategy, "strategy", "s", "standard", "Content strategy (standard, bip)")
	cmd.Flags().StringVarP(&tone, "tone", "t", "", "Tone (professional, humble-builder, contrarian, data-focused)")
	cmd.Flags().StringVar(&enhance, "enhance", "", "Rewrite the result with this instruction (empty uses the default)")
	cmd.Flags().StringVar(&imageSize, "image", "", "Generate a thumbnail (1K, 2K, 4K)")
	cmd.Flags().BoolVarP(&showPreview, "preview", "p", false, "Open an HTML preview in the browser")

	return cmd
}

// newTrendsCmd creates the trends subcommand
func newTrendsCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "trends [industry]",
		Short: "Find trending topics and content gaps",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := open(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			industry := ""
			if len(args) == 1 {
				industry = args[0]
			}
			env.App.DetectTrends(cmd.Context(), industry)

			ns := env.App.Notifications()
			if len(ns) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No trends found.")
				return nil
			}
			for _, n := range ns {
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n    %s\n    query: %s\n", n.Type, n.Title, n.Message, n.ActionQuery)
			}
			return nil
		},
	}
}

// newResearchCmd creates the research subcommand
func newResearchCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "research [topic]",
		Short: "Write a search-grounded post about a topic",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := open(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			topic := ""
			if len(args) == 1 {
				topic = args[0]
			}
			printDraft(cmd.OutOrStdout(), env.App.ResearchTrend(cmd.Context(), topic))
			return nil
		},
	}
}

// newPromptCmd creates the prompt subcommand. It needs no config or key.
func newPromptCmd() *cobra.Command {
	var strategy, tone string

	cmd := &cobra.Command{
		Use:   "prompt <activity>...",
		Short: "Print the draft prompt without calling the model",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			strat, err := parseStrategy(strategy)
			if err != nil {
				return err
			}
			t, err := parseTone(tone)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), writer.BuildDraftPrompt(args, t, strat))
			return nil
		},
	}

	cmd.Flags().StringVarP(&strategy, "strategy", "s", "standard", "Content strategy (standard, bip)")
	cmd.Flags().StringVarP(&tone, "tone", "t", string(types.ToneHumbleBuilder), "Tone")

	return cmd
}

// newJournalCmd creates the journal subcommand
func newJournalCmd(open opener) *cobra.Command {
	var mode, exportDir string
	var limit int

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List recent model exchanges",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := open(cmd)
			if err != nil {
				return err
			}
			defer env.Close()
			if env.Journal == nil {
				return fmt.Errorf("journal is disabled: set journal.enabled = true in the config")
			}

			exchanges, err := env.Journal.RecentExchanges(cmd.Context(), mode, limit)
			if err != nil {
				return err
			}
			failures, err := env.Journal.CountFailures(cmd.Context(), time.Now().Add(-24*time.Hour))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d exchanges shown, %d failed in the last 24h\n", len(exchanges), failures)
			for _, e := range exchanges {
				status := "ok"
				if e.Failed() {
					status = "error: " + e.Error
				}
				fmt.Fprintf(out, "#%d %s %-10s %-28s %6s  %s\n",
					e.ID, e.Timestamp.Format("2006-01-02 15:04:05"), e.Mode, e.Model, e.Duration.Round(time.Millisecond), status)

				if exportDir != "" {
					path, err := store.ExportExchange(exportDir, e)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "    saved to %s\n", path)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Only show one mode (structured, tools, rewrite, image)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of exchanges")
	cmd.Flags().StringVar(&exportDir, "export", "", "Also write each exchange as JSON into this directory")

	return cmd
}

// newOpenCmd creates the open subcommand. configPath points at the global
// --config flag value.
func newOpenCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:       "open <config|cache>",
		Short:     "Open the config file or cache directory",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"config", "cache"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := openTarget(args[0], *configPath)
			if err != nil {
				return err
			}
			if err := browser.OpenFile(path); err != nil {
				return fmt.Errorf("failed to open %s: %w", path, err)
			}
			return nil
		},
	}
}

// openTarget resolves the path behind an open target
func openTarget(target, configPath string) (string, error) {
	var path string
	var err error

	switch target {
	case "config":
		if configPath != "" {
			return configPath, nil
		}
		path, err = config.ConfigPath()
	case "cache":
		path, err = config.CacheDir()
	default:
		return "", fmt.Errorf("unknown target: %s", target)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get path: %w", err)
	}
	return path, nil
}
