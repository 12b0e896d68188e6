// Package storage saves generated challans where the user can reach them.
//
// Two strategies exist. The folder strategy writes into a fixed folder
// below a granted storage root (a local directory or a bucket prefix),
// remembering the resolved folder between requests. The share strategy
// writes to a cache directory and hands the file to a share surface.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"challan-backend/internal/cache"
	"challan-backend/internal/config"
	"challan-backend/internal/models"
)

// Persister stores a rendered document and reports where it ended up
type Persister interface {
	Save(ctx context.Context, doc *models.ChallanDocument, suggestedName string) (*models.SaveResult, error)
	Strategy() string
}

// Entry is a child of a directory in a Tree
type Entry struct {
	Name  string
	URI   string
	IsDir bool
}

// Tree is hierarchical storage below a root the user has granted access to.
// All locations are URIs produced by the tree itself.
type Tree interface {
	Root(ctx context.Context) (string, error)
	Exists(ctx context.Context, uri string) (bool, error)
	List(ctx context.Context, dirURI string) ([]Entry, error)
	MakeDir(ctx context.Context, parentURI, name string) (string, error)
	// CreateFile creates an empty file, picking "name (n).ext" when name is taken
	CreateFile(ctx context.Context, parentURI, name, mimeType string) (Entry, error)
	Write(ctx context.Context, fileURI string, data []byte) error
	Remove(ctx context.Context, uri string) error
}

const maxDuplicates = 1000

var errNoFreeName = errors.New("storage: no free file name")

// dedupName returns name for n == 0 and "base (n).ext" otherwise
func dedupName(name string, n int) string {
	if n == 0 {
		return name
	}
	ext := path.Ext(name)
	return fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), n, ext)
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("storage: invalid name %q", name)
	}
	return nil
}

// Deps are the collaborators a persister may need
type Deps struct {
	Tree  Tree
	Store cache.Store
	Share ShareSurface
}

// New picks the persistence strategy from configuration
func New(cfg *config.Config, d Deps) (Persister, error) {
	strategy := cfg.Storage.Strategy
	if strategy == config.StrategyAuto {
		strategy = config.StrategyShare
		if d.Tree != nil {
			strategy = config.StrategyFolder
		}
	}

	switch strategy {
	case config.StrategyFolder:
		if d.Tree == nil {
			return nil, errors.New("storage: folder strategy needs a storage tree")
		}
		store := d.Store
		if store == nil {
			store = cache.NewMemoryStore()
		}
		return NewFolderPersister(d.Tree, NewFolderResolver(d.Tree, store), cfg.FolderSegments()), nil
	case config.StrategyShare:
		return NewSharePersister(cfg.Storage.CacheDir, d.Share), nil
	}
	return nil, fmt.Errorf("storage: unknown strategy %q", strategy)
}
