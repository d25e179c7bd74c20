// Package vault gives read access to a directory of notes, confined to its
// root.
package vault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dgallion1/mindoutline/internal/parser"
)

var (
	ErrOutsideRoot = errors.New("path outside vault root")
	ErrUnsupported = errors.New("unsupported file type")
	ErrNotFound    = errors.New("file not found")
)

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	".obsidian":    true,
	".git":         true,
	".trash":       true,
	"node_modules": true,
}

// File is a vault entry returned by List.
type File struct {
	Path    string    `json:"path"` // Slash-separated, relative to the root.
	Folder  string    `json:"folder"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Document is the raw content of a vault file.
type Document struct {
	File
	Content []byte `json:"-"`
}

type Vault struct {
	root string
}

func New(root string) (*Vault, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve vault root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat vault root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault root %s is not a directory", abs)
	}
	return &Vault{root: abs}, nil
}

func (v *Vault) Root() string { return v.root }

// Resolve maps a vault-relative path to an absolute one. Leading slashes are
// ignored; paths that climb out of the root fail with ErrOutsideRoot.
func (v *Vault) Resolve(rel string) (string, error) {
	rel = strings.TrimPrefix(strings.TrimSpace(rel), "/")
	abs := filepath.Join(v.root, filepath.FromSlash(rel))

	r, err := filepath.Rel(v.root, abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}
	if r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}
	return abs, nil
}

// Stat returns metadata for a supported file without reading it.
func (v *Vault) Stat(rel string) (File, error) {
	abs, err := v.Resolve(rel)
	if err != nil {
		return File{}, err
	}
	if !parser.IsSupportedExtension(abs) {
		return File{}, fmt.Errorf("%w: %s", ErrUnsupported, rel)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return File{}, fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return File{}, fmt.Errorf("stat %s: %w", rel, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%w: %s is a directory", ErrUnsupported, rel)
	}
	return v.file(abs, info), nil
}

// Read returns the content of a supported file.
func (v *Vault) Read(rel string) (Document, error) {
	f, err := v.Stat(rel)
	if err != nil {
		return Document{}, err
	}
	abs, _ := v.Resolve(rel)
	content, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Document{}, fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return Document{}, fmt.Errorf("read %s: %w", rel, err)
	}
	return Document{File: f, Content: content}, nil
}

// List walks the vault and returns every supported file, sorted by path.
func (v *Vault) List(ctx context.Context) ([]File, error) {
	var files []File
	err := filepath.WalkDir(v.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("access %s: %w", path, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != v.root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !parser.IsSupportedExtension(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		files = append(files, v.file(path, info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan vault: %w", err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func (v *Vault) file(abs string, info fs.FileInfo) File {
	rel, _ := filepath.Rel(v.root, abs)
	rel = filepath.ToSlash(rel)
	folder := filepath.ToSlash(filepath.Dir(rel))
	if folder == "." {
		folder = ""
	}
	return File{
		Path:    rel,
		Folder:  folder,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}
