package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"challan-backend/internal/apperr"
)

// LocalTree is a Tree rooted at a directory on disk. URIs are file:// URLs.
type LocalTree struct {
	root string
}

func NewLocalTree(root string) (*LocalTree, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage root %q: %w", root, err)
	}
	return &LocalTree{root: filepath.Clean(abs)}, nil
}

// RootPath returns the directory the tree is rooted at
func (t *LocalTree) RootPath() string {
	return t.root
}

func (t *LocalTree) Root(ctx context.Context) (string, error) {
	fi, err := os.Stat(t.root)
	if err != nil || !fi.IsDir() {
		if err == nil {
			err = errors.New("not a directory")
		}
		return "", apperr.Wrap(apperr.PermissionDenied, "storage.root", fmt.Errorf("storage root %s unavailable: %w", t.root, err))
	}
	return FileURI(t.root), nil
}

func (t *LocalTree) Exists(ctx context.Context, uri string) (bool, error) {
	p, err := t.path(uri)
	if err != nil {
		return false, nil
	}
	_, err = os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, classifyFS("storage.exists", err)
	}
	return true, nil
}

func (t *LocalTree) List(ctx context.Context, dirURI string) ([]Entry, error) {
	dir, err := t.path(dirURI)
	if err != nil {
		return nil, err
	}
	items, err := os.ReadDir(dir)
	if err != nil {
		return nil, classifyFS("storage.list", err)
	}

	entries := make([]Entry, 0, len(items))
	for _, it := range items {
		entries = append(entries, Entry{
			Name:  it.Name(),
			URI:   FileURI(filepath.Join(dir, it.Name())),
			IsDir: it.IsDir(),
		})
	}
	return entries, nil
}

func (t *LocalTree) MakeDir(ctx context.Context, parentURI, name string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	parent, err := t.path(parentURI)
	if err != nil {
		return "", err
	}
	p := filepath.Join(parent, name)
	if err := os.Mkdir(p, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
		return "", classifyFS("storage.mkdir", err)
	}
	return FileURI(p), nil
}

func (t *LocalTree) CreateFile(ctx context.Context, parentURI, name, mimeType string) (Entry, error) {
	if err := validName(name); err != nil {
		return Entry{}, err
	}
	parent, err := t.path(parentURI)
	if err != nil {
		return Entry{}, err
	}

	for n := 0; n < maxDuplicates; n++ {
		candidate := dedupName(name, n)
		p := filepath.Join(parent, candidate)
		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return Entry{}, classifyFS("storage.create", err)
		}
		if err := f.Close(); err != nil {
			return Entry{}, classifyFS("storage.create", err)
		}
		return Entry{Name: candidate, URI: FileURI(p)}, nil
	}
	return Entry{}, errNoFreeName
}

func (t *LocalTree) Write(ctx context.Context, fileURI string, data []byte) error {
	p, err := t.path(fileURI)
	if err != nil {
		return err
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return classifyFS("storage.write", err)
	}
	return nil
}

func (t *LocalTree) Remove(ctx context.Context, uri string) error {
	p, err := t.path(uri)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return classifyFS("storage.remove", err)
	}
	return nil
}

// path maps a file:// URI back to a path, refusing anything outside the root
func (t *LocalTree) path(uri string) (string, error) {
	p, err := FilePath(uri)
	if err != nil {
		return "", err
	}
	if p != t.root && !strings.HasPrefix(p, t.root+string(filepath.Separator)) {
		return "", apperr.New(apperr.PermissionDenied, "storage.path", uri+" is outside the storage root")
	}
	return p, nil
}

// FileURI returns the file:// URI of an absolute path
func FileURI(p string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(p)}).String()
}

// FilePath decodes a file:// URI
func FilePath(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("storage: bad uri %q: %w", uri, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("storage: not a file uri: %q", uri)
	}
	return filepath.Clean(filepath.FromSlash(u.Path)), nil
}

func classifyFS(op string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return apperr.Wrap(apperr.PermissionDenied, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
