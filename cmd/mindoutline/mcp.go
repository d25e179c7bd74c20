package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dgallion1/mindoutline/internal/doctree"
	"github.com/dgallion1/mindoutline/internal/flatten"
	"github.com/dgallion1/mindoutline/internal/layout"
	"github.com/dgallion1/mindoutline/internal/links"
	"github.com/dgallion1/mindoutline/internal/parser"
	"github.com/dgallion1/mindoutline/internal/pipeline"
	"github.com/dgallion1/mindoutline/internal/render"
	"github.com/dgallion1/mindoutline/internal/vault"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

const defaultOutlineName = "outline.md"

var errNoSource = errors.New("either path or text is required")

type (
	// ParseInput contains parameters for parsing an outline.
	ParseInput struct {
		Path     string `json:"path,omitempty" jsonschema:"Document path relative to the vault root"`
		Text     string `json:"text,omitempty" jsonschema:"Outline text to parse instead of a vault document"`
		Name     string `json:"name,omitempty" jsonschema:"Filename used to pick the format of text (default: outline.md)"`
		Indent   *int   `json:"indent,omitempty" jsonschema:"Spaces per bullet indentation level (default: server setting, 0 or less: any indentation is one level)"`
		MaxLevel int    `json:"maxLevel,omitempty" jsonschema:"Deepest tree level to return (default: all)"`
	}

	// ParseOutput is the outline in document order. Entries carry their
	// parent id and breadcrumb instead of nesting.
	ParseOutput struct {
		Title   string          `json:"title"`
		Source  string          `json:"source"`
		Counts  doctree.Counts  `json:"counts"`
		Entries []flatten.Entry `json:"entries"`
	}

	// LayoutInput contains parameters for laying out an outline.
	LayoutInput struct {
		Path      string   `json:"path,omitempty" jsonschema:"Document path relative to the vault root"`
		Text      string   `json:"text,omitempty" jsonschema:"Outline text to parse instead of a vault document"`
		Name      string   `json:"name,omitempty" jsonschema:"Filename used to pick the format of text (default: outline.md)"`
		Indent    *int     `json:"indent,omitempty" jsonschema:"Spaces per bullet indentation level (default: server setting, 0 or less: any indentation is one level)"`
		Collapsed []string `json:"collapsed,omitempty" jsonschema:"Node ids whose descendants are hidden"`
		Root      string   `json:"root,omitempty" jsonschema:"Label of a visible root node (default: no root node)"`
	}

	// LayoutOutput is the positioned mind map.
	LayoutOutput struct {
		Nodes  []layout.Node `json:"nodes"`
		Edges  []layout.Edge `json:"edges"`
		Width  float64       `json:"width"`
		Height float64       `json:"height"`
	}

	// LinksInput contains parameters for listing outline links.
	LinksInput struct {
		Path   string `json:"path,omitempty" jsonschema:"Document path relative to the vault root"`
		Text   string `json:"text,omitempty" jsonschema:"Outline text to parse instead of a vault document"`
		Name   string `json:"name,omitempty" jsonschema:"Filename used to pick the format of text (default: outline.md)"`
		Indent *int   `json:"indent,omitempty" jsonschema:"Spaces per bullet indentation level (default: server setting, 0 or less: any indentation is one level)"`
		Only   string `json:"only,omitempty" jsonschema:"Restrict to external or internal links"`
	}

	// LinkEntry is one link with the node it was found in.
	LinkEntry struct {
		NodeID     string   `json:"nodeId"`
		Breadcrumb []string `json:"breadcrumb"`
		Kind       string   `json:"kind"`
		Target     string   `json:"target"`
		Section    string   `json:"section,omitempty"`
		Label      string   `json:"label"`
		External   bool     `json:"external"`
	}

	// LinksOutput lists links in document order.
	LinksOutput struct {
		Links []LinkEntry `json:"links"`
	}

	// ListInput contains parameters for listing vault documents.
	ListInput struct {
		Folder string `json:"folder,omitempty" jsonschema:"Only list documents under this folder"`
	}

	// FileEntry is a parseable vault document.
	FileEntry struct {
		Path    string `json:"path"`
		Folder  string `json:"folder,omitempty"`
		Size    int64  `json:"size"`
		ModTime string `json:"modTime"`
	}

	// ListOutput lists the parseable documents of the vault.
	ListOutput struct {
		Files []FileEntry `json:"files"`
	}
)

// source names the outline a tool works on: a vault path or inline text.
type source struct {
	path, text, name string
	indent           *int
}

// outlineTools holds what the MCP handlers share.
type outlineTools struct {
	vault    *vault.Vault
	docs     *pipeline.DocumentParser
	renderer *render.Renderer
	gapX     float64
	gapY     float64
}

func newMCPCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp [vault-path]",
		Short: "Serve outline tools over MCP on stdio",
		Long: `mcp runs a Model Context Protocol server on stdin/stdout. Its tools
parse, lay out and list the links of outlines stored in the vault or
passed inline. Logs go to stderr.`,
		Example: "mindoutline mcp ~/notes",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := g.cfg.VaultRoot
			if len(args) > 0 {
				root = args[0]
			}
			if root == "" || root == "." {
				wd, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("failed to get current directory: %w", err)
				}
				root = wd
			}
			v, err := vault.New(root)
			if err != nil {
				return err
			}
			docs, err := g.documentParser()
			if err != nil {
				return err
			}
			tools := &outlineTools{
				vault:    v,
				docs:     docs,
				renderer: render.New(),
				gapX:     g.cfg.LayoutGapX,
				gapY:     g.cfg.LayoutGapY,
			}

			server := mcp.NewServer(&mcp.Implementation{
				Name:    "mindoutline",
				Version: version,
			}, nil)
			tools.register(server)

			g.newLogger().Info("serving mcp", "vault", v.Root())
			if err := server.Run(cmd.Context(), &mcp.StdioTransport{}); err != nil {
				return fmt.Errorf("error running server: %w", err)
			}
			return nil
		},
	}
}

func (t *outlineTools) register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "outline_parse",
		Description: "Parse a markdown outline (headings and bullets) into a tree. Returns nodes in document order with parent ids and breadcrumbs. Paragraphs and other lines are ignored.",
	}, t.handleParse)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "outline_layout",
		Description: "Lay an outline out as a left-to-right mind map. Returns node positions, parent-child edges and the canvas size.",
	}, t.handleLayout)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "outline_links",
		Description: "List wiki links, markdown links and autolinks found in outline nodes, with the breadcrumb of each node.",
	}, t.handleLinks)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "outline_list",
		Description: "List the documents in the vault that can be parsed as outlines.",
	}, t.handleList)
}

func (t *outlineTools) handleParse(ctx context.Context, req *mcp.CallToolRequest, input ParseInput) (*mcp.CallToolResult, ParseOutput, error) {
	tree, err := t.load(source{input.Path, input.Text, input.Name, input.Indent})
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, ParseOutput{}, err
	}
	return nil, ParseOutput{
		Title:   tree.Title,
		Source:  tree.Source,
		Counts:  doctree.Count(tree.Nodes),
		Entries: flatten.Flatten(tree.Nodes, flatten.Config{MaxLevel: input.MaxLevel}),
	}, nil
}

func (t *outlineTools) handleLayout(ctx context.Context, req *mcp.CallToolRequest, input LayoutInput) (*mcp.CallToolResult, LayoutOutput, error) {
	tree, err := t.load(source{input.Path, input.Text, input.Name, input.Indent})
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, LayoutOutput{}, err
	}
	g, err := pipeline.LayoutWithLabels(t.renderer, tree.Nodes, layout.Options{
		GapX:      t.gapX,
		GapY:      t.gapY,
		Collapsed: collapsedSet(input.Collapsed),
		RootLabel: strings.TrimSpace(input.Root),
	})
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, LayoutOutput{}, err
	}
	return nil, LayoutOutput{Nodes: g.Nodes, Edges: g.Edges, Width: g.Width, Height: g.Height}, nil
}

func (t *outlineTools) handleLinks(ctx context.Context, req *mcp.CallToolRequest, input LinksInput) (*mcp.CallToolResult, LinksOutput, error) {
	tree, err := t.load(source{input.Path, input.Text, input.Name, input.Indent})
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, LinksOutput{}, err
	}
	found, err := filterLinks(links.Collect(tree.Nodes), input.Only)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, LinksOutput{}, err
	}
	out := LinksOutput{Links: make([]LinkEntry, 0, len(found))}
	for _, l := range found {
		out.Links = append(out.Links, LinkEntry{
			NodeID:     l.NodeID,
			Breadcrumb: l.Breadcrumb,
			Kind:       string(l.Kind),
			Target:     l.Target,
			Section:    l.Section,
			Label:      l.Label,
			External:   l.External,
		})
	}
	return nil, out, nil
}

func (t *outlineTools) handleList(ctx context.Context, req *mcp.CallToolRequest, input ListInput) (*mcp.CallToolResult, ListOutput, error) {
	files, err := t.vault.List(ctx)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, ListOutput{}, err
	}
	folder := strings.Trim(strings.TrimSpace(input.Folder), "/")
	out := ListOutput{Files: make([]FileEntry, 0, len(files))}
	for _, f := range files {
		if folder != "" && f.Folder != folder && !strings.HasPrefix(f.Folder, folder+"/") {
			continue
		}
		out.Files = append(out.Files, FileEntry{
			Path:    f.Path,
			Folder:  f.Folder,
			Size:    f.Size,
			ModTime: f.ModTime.UTC().Format(time.RFC3339),
		})
	}
	return nil, out, nil
}

// load parses inline text when given, otherwise the vault document at Path.
func (t *outlineTools) load(in source) (*doctree.Tree, error) {
	spaces := t.docs.Options().SpacesPerIndent
	if in.indent != nil {
		spaces = parser.ExplicitIndent(*in.indent)
	}
	if in.text != "" {
		name := strings.TrimSpace(in.name)
		if name == "" {
			name = defaultOutlineName
		}
		return t.docs.ParseWith(name, []byte(in.text), spaces)
	}
	path := strings.TrimSpace(in.path)
	if path == "" {
		return nil, errNoSource
	}
	doc, err := t.vault.Read(path)
	if err != nil {
		return nil, err
	}
	return t.docs.ParseWith(doc.Path, doc.Content, spaces)
}
