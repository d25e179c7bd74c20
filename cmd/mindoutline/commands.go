package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dgallion1/mindoutline/internal/doctree"
	"github.com/dgallion1/mindoutline/internal/flatten"
	"github.com/dgallion1/mindoutline/internal/layout"
	"github.com/dgallion1/mindoutline/internal/links"
	"github.com/dgallion1/mindoutline/internal/pipeline"
	"github.com/dgallion1/mindoutline/internal/render"
	"github.com/dgallion1/mindoutline/internal/vault"
	"github.com/dgallion1/mindoutline/internal/watch"
	"github.com/spf13/cobra"
)

// stdinName is the filename stdin is parsed as unless --name says otherwise.
const stdinName = "stdin.md"

func newParseCmd(g *globalFlags) *cobra.Command {
	var format, name string
	var maxLevel int
	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse an outline and print its tree",
		Example: `mindoutline parse notes/plan.md
cat plan.md | mindoutline parse --format json
mindoutline parse plan.md --format markdown --indent 4`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := g.load(cmd, args, name)
			if err != nil {
				return err
			}
			return writeTree(cmd.OutOrStdout(), tree, format, maxLevel, g.indent)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "tree", "output format: tree, json, flat or markdown")
	cmd.Flags().StringVar(&name, "name", stdinName, "filename used for stdin input")
	cmd.Flags().IntVar(&maxLevel, "max-level", 0, "deepest level to print with --format flat (0: all)")
	return cmd
}

func newLayoutCmd(g *globalFlags) *cobra.Command {
	var name, root string
	var collapsed []string
	var gapX, gapY float64
	var html bool
	cmd := &cobra.Command{
		Use:   "layout [file]",
		Short: "Lay an outline out as a mind map and print the graph as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := g.load(cmd, args, name)
			if err != nil {
				return err
			}
			opts := layout.Options{
				GapX:      gapX,
				GapY:      gapY,
				Collapsed: collapsedSet(collapsed),
				RootLabel: root,
			}
			var graph layout.Graph
			if html {
				graph, err = pipeline.LayoutWithLabels(render.New(), tree.Nodes, opts)
				if err != nil {
					return err
				}
			} else {
				graph = layout.Layout(tree.Nodes, opts)
			}
			return writeJSON(cmd.OutOrStdout(), graph)
		},
	}
	cmd.Flags().StringVar(&name, "name", stdinName, "filename used for stdin input")
	cmd.Flags().StringVar(&root, "root", "", "draw a visible root node with this label")
	cmd.Flags().StringSliceVar(&collapsed, "collapse", nil, "node ids whose descendants are hidden")
	cmd.Flags().Float64Var(&gapX, "gap-x", g.cfg.LayoutGapX, "horizontal distance between depth columns")
	cmd.Flags().Float64Var(&gapY, "gap-y", g.cfg.LayoutGapY, "vertical distance between leaf rows")
	cmd.Flags().BoolVar(&html, "html", false, "render node labels as inline HTML")
	return cmd
}

func newLinksCmd(g *globalFlags) *cobra.Command {
	var name, only string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "links [file]",
		Short: "List the links found in outline nodes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := g.load(cmd, args, name)
			if err != nil {
				return err
			}
			found, err := filterLinks(links.Collect(tree.Nodes), only)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), found)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), renderLinks(found))
			return err
		},
	}
	cmd.Flags().StringVar(&name, "name", stdinName, "filename used for stdin input")
	cmd.Flags().StringVar(&only, "only", "", "restrict to external or internal links")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newWatchCmd(g *globalFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Print an outline again every time its file changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			abs, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			v, err := vault.New(filepath.Dir(abs))
			if err != nil {
				return err
			}
			docs, err := g.documentParser()
			if err != nil {
				return err
			}
			logger := g.newLogger()
			watches := watch.NewManager(v, g.cfg.WatchInterval, docs.Parse, slog.New(logger))
			defer watches.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			_, updates, err := watches.Subscribe(ctx, filepath.Base(abs))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for u := range updates {
				if u.Err != "" {
					logger.Error("parse failed", "path", u.Path, "version", u.Version, "err", u.Err)
					continue
				}
				logger.Info("outline updated", "path", u.Path, "version", u.Version)
				if err := writeTree(out, u.Tree, format, 0, g.indent); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "tree", "output format: tree, json, flat or markdown")
	return cmd
}

// load reads the named file, or stdin when no file (or "-") is given.
func (g *globalFlags) load(cmd *cobra.Command, args []string, stdinAs string) (*doctree.Tree, error) {
	name, data, err := readInput(cmd.InOrStdin(), args, stdinAs)
	if err != nil {
		return nil, err
	}
	docs, err := g.documentParser()
	if err != nil {
		return nil, err
	}
	return docs.Parse(name, data)
}

func readInput(stdin io.Reader, args []string, stdinAs string) (string, []byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", nil, fmt.Errorf("read stdin: %w", err)
		}
		if stdinAs == "" {
			stdinAs = stdinName
		}
		return stdinAs, data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", nil, err
	}
	return args[0], data, nil
}

func writeTree(w io.Writer, tree *doctree.Tree, format string, maxLevel, spacesPerIndent int) error {
	switch strings.ToLower(format) {
	case "", "tree":
		_, err := fmt.Fprintln(w, renderTree(tree))
		return err
	case "json":
		return writeJSON(w, tree)
	case "flat":
		return writeJSON(w, flatten.Flatten(tree.Nodes, flatten.Config{MaxLevel: maxLevel}))
	case "markdown", "md":
		_, err := io.WriteString(w, flatten.Markdown(tree.Nodes, spacesPerIndent))
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func collapsedSet(ids []string) map[string]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = true
		}
	}
	return set
}

func filterLinks(all []links.NodeLink, only string) ([]links.NodeLink, error) {
	var external bool
	switch strings.ToLower(only) {
	case "":
		return all, nil
	case "external":
		external = true
	case "internal":
	default:
		return nil, fmt.Errorf("--only must be external or internal, got %q", only)
	}
	var out []links.NodeLink
	for _, l := range all {
		if l.External == external {
			out = append(out, l)
		}
	}
	return out, nil
}
