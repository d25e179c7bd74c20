// Command mindoutline turns heading/bullet outlines into trees: it prints
// them, lays them out as mind maps, follows live vault documents and serves
// them over MCP.
package main

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/dgallion1/mindoutline/internal/cache"
	"github.com/dgallion1/mindoutline/internal/config"
	"github.com/dgallion1/mindoutline/internal/outline"
	"github.com/dgallion1/mindoutline/internal/parser"
	"github.com/dgallion1/mindoutline/internal/pipeline"
	"github.com/dgallion1/mindoutline/internal/stats"
	"github.com/spf13/cobra"
)

func main() {
	cmd := newRootCmd()
	if err := fang.Execute(
		context.Background(),
		cmd,
		fang.WithVersion(version),
		fang.WithoutCompletions(),
		fang.WithoutManpage(),
	); err != nil {
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	cfg       config.Config
	indent    int
	indentSet bool
	ids       string
	verbose   bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{cfg: config.Load()}
	cmd := &cobra.Command{
		Use:   "mindoutline",
		Short: "Outline to mind map tree tools",
		Long: `mindoutline reads markdown headings and bullet lists (and HTML, DOCX,
PDF or plain text documents) and builds the tree a mind map draws.
Headings nest by depth, bullets nest by indentation, and every other
line is ignored.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			g.indentSet = cmd.Flags().Changed("indent")
		},
	}
	cmd.PersistentFlags().IntVar(&g.indent, "indent", g.cfg.SpacesPerIndent, "spaces per bullet indentation level (0 or less: any indentation is one level)")
	cmd.PersistentFlags().StringVar(&g.ids, "ids", g.cfg.NodeIDs, "node id scheme: path or uuid")
	cmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(
		newParseCmd(g),
		newLayoutCmd(g),
		newLinksCmd(g),
		newWatchCmd(g),
		newMCPCmd(g),
	)
	return cmd
}

// newLogger logs to stderr so stdout stays machine-readable.
func (g *globalFlags) newLogger() *log.Logger {
	level := log.InfoLevel
	if g.verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           level,
	})
}

// documentParser builds the cached parser every subcommand shares. Flags
// override the environment configuration.
func (g *globalFlags) documentParser() (*pipeline.DocumentParser, error) {
	trees, err := cache.New(g.cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	opts := g.cfg.ParserOptions()
	opts.SpacesPerIndent = g.indent
	if g.indentSet {
		opts.SpacesPerIndent = parser.ExplicitIndent(g.indent)
	}
	opts.IDs = outline.ParseIDStrategy(g.ids)
	return pipeline.NewDocumentParser(opts, trees, stats.New(g.cfg.StatsWindow)), nil
}
