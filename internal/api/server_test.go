package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/mindoutline/internal/cache"
	"github.com/dgallion1/mindoutline/internal/config"
	"github.com/dgallion1/mindoutline/internal/doctree"
	"github.com/dgallion1/mindoutline/internal/flatten"
	"github.com/dgallion1/mindoutline/internal/layout"
	"github.com/dgallion1/mindoutline/internal/links"
	"github.com/dgallion1/mindoutline/internal/pipeline"
	"github.com/dgallion1/mindoutline/internal/stats"
	"github.com/dgallion1/mindoutline/internal/vault"
	"github.com/dgallion1/mindoutline/internal/watch"
)

type testEnv struct {
	srv  *Server
	root string
}

func newTestEnv(t *testing.T, apiKey string) *testEnv {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"home.md":          "---\ntitle: Home Page\n---\n# Home\n- see [[Inbox]]\n  - and [site](https://s.io)\n- **bold**\n",
		"projects/plan.md": "# Plan\n- a\n",
		"image.png":        "png",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	cfg := config.Config{
		APIKey:          apiKey,
		VaultRoot:       root,
		SpacesPerIndent: 2,
		NodeIDs:         "path",
		WorkerCount:     1,
		MaxQueueSize:    4,
		MaxUploadBytes:  1024,
		JobTTL:          time.Hour,
		CacheSize:       16,
		WatchInterval:   10 * time.Millisecond,
		LayoutGapX:      100,
		LayoutGapY:      10,
		StatsWindow:     time.Hour,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	trees, err := cache.New(cfg.CacheSize)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	st := stats.New(cfg.StatsWindow)
	dp := pipeline.NewDocumentParser(cfg.ParserOptions(), trees, st)
	v, err := vault.New(root)
	if err != nil {
		t.Fatalf("vault: %v", err)
	}

	orch := pipeline.NewOrchestrator(cfg, trees, st, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	watches := watch.NewManager(v, cfg.WatchInterval, dp.Parse, log)
	t.Cleanup(watches.Close)

	srv := NewServer(Deps{
		Orchestrator: orch,
		Parser:       dp,
		Trees:        trees,
		Stats:        st,
		Vault:        v,
		Watches:      watches,
	}, log, cfg)
	return &testEnv{srv: srv, root: root}
}

func (e *testEnv) do(t *testing.T, method, target string, body io.Reader, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t, "secret")
	rec := e.do(t, "GET", "/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestAuth(t *testing.T) {
	e := newTestEnv(t, "secret")

	if rec := e.do(t, "GET", "/api/documents", nil, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
	if rec := e.do(t, "GET", "/api/documents", nil, map[string]string{"Authorization": "Bearer wrong"}); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong token, got %d", rec.Code)
	}
	if rec := e.do(t, "GET", "/api/documents", nil, map[string]string{"Authorization": "Bearer secret"}); rec.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", rec.Code)
	}
	// Query tokens are only honoured for websocket paths.
	if rec := e.do(t, "GET", "/api/documents?token=secret", nil, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for query token on api path, got %d", rec.Code)
	}
}

func TestAuthDisabledWithoutKey(t *testing.T) {
	e := newTestEnv(t, "")
	if rec := e.do(t, "GET", "/api/documents", nil, nil); rec.Code != http.StatusOK {
		t.Errorf("expected 200 with auth disabled, got %d", rec.Code)
	}
}

func TestOutline(t *testing.T) {
	e := newTestEnv(t, "")
	rec := e.do(t, "POST", "/api/outline", strings.NewReader("# A\n- b\n  - c\n"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[struct {
		Tree   doctree.Tree   `json:"tree"`
		Counts doctree.Counts `json:"counts"`
	}](t, rec)

	if len(resp.Tree.Nodes) != 1 || resp.Tree.Nodes[0].Text != "A" {
		t.Fatalf("unexpected tree %+v", resp.Tree)
	}
	if resp.Counts.Nodes != 3 || resp.Counts.MaxLevel != 3 {
		t.Errorf("unexpected counts %+v", resp.Counts)
	}
	if resp.Tree.Source != defaultOutlineName {
		t.Errorf("expected source %q, got %q", defaultOutlineName, resp.Tree.Source)
	}
}

func TestOutline_QueryOptions(t *testing.T) {
	e := newTestEnv(t, "")

	rec := e.do(t, "POST", "/api/outline?indent=4", strings.NewReader("- a\n  - b\n"), nil)
	resp := decode[struct {
		Tree doctree.Tree `json:"tree"`
	}](t, rec)
	if len(resp.Tree.Nodes) != 2 {
		t.Errorf("expected 2 siblings with indent=4, got %d", len(resp.Tree.Nodes))
	}

	// indent=0 makes any indentation one level.
	rec = e.do(t, "POST", "/api/outline?indent=0", strings.NewReader("- a\n - b\n"), nil)
	resp = decode[struct {
		Tree doctree.Tree `json:"tree"`
	}](t, rec)
	if len(resp.Tree.Nodes) != 1 || len(resp.Tree.Nodes[0].Children) != 1 {
		t.Errorf("expected b nested under a with indent=0, got %+v", resp.Tree.Nodes)
	}

	rec = e.do(t, "POST", "/api/outline?ids=uuid", strings.NewReader("- a\n"), nil)
	resp = decode[struct {
		Tree doctree.Tree `json:"tree"`
	}](t, rec)
	if len(resp.Tree.Nodes) != 1 || len(resp.Tree.Nodes[0].ID) != 36 {
		t.Errorf("expected uuid node id, got %+v", resp.Tree.Nodes)
	}

	rec = e.do(t, "POST", "/api/outline?filename=page.html", strings.NewReader("<h1>T</h1><ul><li>x</li></ul>"), nil)
	resp = decode[struct {
		Tree doctree.Tree `json:"tree"`
	}](t, rec)
	if len(resp.Tree.Nodes) != 1 || len(resp.Tree.Nodes[0].Children) != 1 {
		t.Errorf("expected html outline, got %+v", resp.Tree.Nodes)
	}
}

func TestOutline_BadRequests(t *testing.T) {
	e := newTestEnv(t, "")
	tests := []struct {
		target string
		body   string
		want   int
	}{
		{"/api/outline?indent=two", "- a", http.StatusBadRequest},
		{"/api/outline?ids=serial", "- a", http.StatusBadRequest},
		{"/api/outline?filename=data.xlsx", "a,b", http.StatusUnsupportedMediaType},
		{"/api/outline", strings.Repeat("- a\n", 300), http.StatusRequestEntityTooLarge},
		{"/api/outline/layout?gap_x=-1", "- a", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := e.do(t, "POST", tt.target, strings.NewReader(tt.body), nil)
		if rec.Code != tt.want {
			t.Errorf("%s: expected %d, got %d: %s", tt.target, tt.want, rec.Code, rec.Body.String())
		}
	}
}

func TestOutlineLayout(t *testing.T) {
	e := newTestEnv(t, "")
	rec := e.do(t, "POST", "/api/outline/layout?root=Map&collapsed=0-0", strings.NewReader("# A\n- **b**\n  - c\n- d\n"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[struct {
		Graph layout.Graph `json:"graph"`
	}](t, rec)

	idx := resp.Graph.Index()
	if _, ok := idx["0-0-0"]; ok {
		t.Error("expected collapsed child to be hidden")
	}
	if resp.Graph.Nodes[0].ID != layout.RootID || resp.Graph.Nodes[0].Text != "Map" {
		t.Errorf("expected root node labelled Map, got %+v", resp.Graph.Nodes[0])
	}
	b := resp.Graph.Nodes[idx["0-0"]]
	if !b.Collapsed || b.HTML != "<strong>b</strong>" {
		t.Errorf("unexpected collapsed node %+v", b)
	}
	if resp.Graph.Nodes[idx["0"]].X != 100 {
		t.Errorf("expected configured gap, got x=%v", resp.Graph.Nodes[idx["0"]].X)
	}
}

func TestOutlineLinks(t *testing.T) {
	e := newTestEnv(t, "")
	body := "- [[Note]] and [x](https://x.io)\n"

	rec := e.do(t, "POST", "/api/outline/links", strings.NewReader(body), nil)
	all := decode[struct {
		Links []links.NodeLink `json:"links"`
	}](t, rec)
	if len(all.Links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(all.Links))
	}

	rec = e.do(t, "POST", "/api/outline/links?external=true", strings.NewReader(body), nil)
	ext := decode[struct {
		Links []links.NodeLink `json:"links"`
	}](t, rec)
	if len(ext.Links) != 1 || ext.Links[0].Target != "https://x.io" {
		t.Errorf("expected only the external link, got %+v", ext.Links)
	}
}

func TestDocuments(t *testing.T) {
	e := newTestEnv(t, "")

	rec := e.do(t, "GET", "/api/documents", nil, nil)
	list := decode[struct {
		Documents []vault.File `json:"documents"`
	}](t, rec)
	if len(list.Documents) != 2 || list.Documents[0].Path != "home.md" || list.Documents[1].Path != "projects/plan.md" {
		t.Fatalf("unexpected documents %+v", list.Documents)
	}

	rec = e.do(t, "GET", "/api/documents/home.md", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	doc := decode[struct {
		Document vault.File   `json:"document"`
		Tree     doctree.Tree `json:"tree"`
	}](t, rec)
	if doc.Tree.Title != "Home Page" || doc.Document.Path != "home.md" {
		t.Errorf("unexpected document %+v / %q", doc.Document, doc.Tree.Title)
	}

	rec = e.do(t, "GET", "/api/documents/projects/plan.md?view=flat", nil, nil)
	flat := decode[struct {
		Entries []flatten.Entry `json:"entries"`
	}](t, rec)
	if len(flat.Entries) != 2 || flat.Entries[1].ParentID != "0" {
		t.Errorf("unexpected flat entries %+v", flat.Entries)
	}

	rec = e.do(t, "GET", "/api/documents/home.md?view=layout&root=true", nil, nil)
	lay := decode[struct {
		Graph layout.Graph `json:"graph"`
	}](t, rec)
	if len(lay.Graph.Nodes) != 5 || lay.Graph.Nodes[0].Text != "Home Page" {
		t.Errorf("unexpected layout %+v", lay.Graph.Nodes)
	}
}

func TestDocuments_Errors(t *testing.T) {
	e := newTestEnv(t, "")
	tests := []struct {
		target string
		want   int
	}{
		{"/api/documents/missing.md", http.StatusNotFound},
		{"/api/documents/image.png", http.StatusUnsupportedMediaType},
		{"/api/documents/../secret.md", http.StatusForbidden},
		{"/api/documents/home.md?view=graph", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := e.do(t, "GET", tt.target, nil, nil)
		if rec.Code != tt.want {
			t.Errorf("%s: expected %d, got %d: %s", tt.target, tt.want, rec.Code, rec.Body.String())
		}
	}
}

func TestDocumentLinks(t *testing.T) {
	e := newTestEnv(t, "")
	rec := e.do(t, "GET", "/api/links/home.md?external=false", nil, nil)
	resp := decode[struct {
		Links []links.NodeLink `json:"links"`
	}](t, rec)
	if len(resp.Links) != 1 || resp.Links[0].Target != "Inbox" {
		t.Fatalf("expected the wiki link only, got %+v", resp.Links)
	}
	if got := resp.Links[0].Breadcrumb; len(got) != 2 || got[0] != "Home" {
		t.Errorf("unexpected breadcrumb %v", got)
	}
}

func multipartUpload(t *testing.T, filename, content, title string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fw.Write([]byte(content))
	if title != "" {
		mw.WriteField("title", title)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestJobs(t *testing.T) {
	e := newTestEnv(t, "")

	body, ctype := multipartUpload(t, "../notes.md", "# N\n- a\n  - b\n", "Notes")
	rec := e.do(t, "POST", "/api/jobs?root=true", body, map[string]string{"Content-Type": ctype})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	accepted := decode[struct {
		JobID   string `json:"job_id"`
		PollURL string `json:"poll_url"`
	}](t, rec)
	if accepted.PollURL != "/api/jobs/"+accepted.JobID {
		t.Errorf("unexpected poll url %q", accepted.PollURL)
	}

	type statusResp struct {
		Status   pipeline.JobStatus `json:"status"`
		Filename string             `json:"filename"`
		Progress pipeline.Progress  `json:"progress"`
		Result   *pipeline.Result   `json:"result"`
	}
	var got statusResp
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		got = decode[statusResp](t, e.do(t, "GET", accepted.PollURL, nil, nil))
		if got.Status == pipeline.StatusCompleted || got.Status == pipeline.StatusFailed {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got.Status != pipeline.StatusCompleted {
		t.Fatalf("expected completed job, got %q %v", got.Status, got.Progress.Errors)
	}
	if got.Filename != "notes.md" {
		t.Errorf("expected sanitized filename, got %q", got.Filename)
	}
	if got.Progress.Nodes != 3 || got.Result == nil {
		t.Fatalf("unexpected progress %+v", got.Progress)
	}
	if got.Result.Tree.Title != "Notes" || got.Result.Graph.Nodes[0].Text != "Notes" {
		t.Errorf("expected title override on tree and root, got %q / %q", got.Result.Tree.Title, got.Result.Graph.Nodes[0].Text)
	}
}

func TestJobs_Errors(t *testing.T) {
	e := newTestEnv(t, "")

	if rec := e.do(t, "GET", "/api/jobs/nope", nil, nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown job, got %d", rec.Code)
	}

	body, ctype := multipartUpload(t, "sheet.xlsx", "x", "")
	if rec := e.do(t, "POST", "/api/jobs", body, map[string]string{"Content-Type": ctype}); rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415, got %d", rec.Code)
	}

	body, ctype = multipartUpload(t, "big.md", strings.Repeat("x", 2048), "")
	if rec := e.do(t, "POST", "/api/jobs", body, map[string]string{"Content-Type": ctype}); rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}

	if rec := e.do(t, "POST", "/api/jobs", strings.NewReader("plain"), nil); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-multipart body, got %d", rec.Code)
	}
}

func TestParseStats(t *testing.T) {
	e := newTestEnv(t, "")
	e.do(t, "POST", "/api/outline", strings.NewReader("- a\n"), nil)
	e.do(t, "POST", "/api/outline", strings.NewReader("- a\n"), nil)

	resp := decode[struct {
		Parse stats.Snapshot `json:"parse"`
		Cache cache.Stats    `json:"cache"`
	}](t, e.do(t, "GET", "/api/stats/parse", nil, nil))
	if resp.Parse.Count != 1 {
		t.Errorf("expected 1 recorded parse, got %d", resp.Parse.Count)
	}
	if resp.Cache.Hits != 1 || resp.Cache.Misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got %+v", resp.Cache)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"notes.md":        "notes.md",
		"../../etc/x.md":  "x.md",
		"a..b.md":         "a_b.md",
		"":                "unnamed",
		"dir/sub/file.md": "file.md",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q): expected %q, got %q", in, want, got)
		}
	}
}
