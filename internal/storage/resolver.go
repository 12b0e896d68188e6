package storage

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"

	"challan-backend/internal/cache"
)

type folderHandle struct {
	Path string `json:"path"`
	URI  string `json:"uri"`
}

// FolderResolver finds or creates a folder path below a tree's root and
// remembers the result in a cache.Store. A remembered folder is checked for
// existence on every use; a stale one is dropped and resolved again.
type FolderResolver struct {
	tree  Tree
	store cache.Store

	// one resolution at a time, so two requests never both create the folder
	mu sync.Mutex
}

func NewFolderResolver(tree Tree, store cache.Store) *FolderResolver {
	return &FolderResolver{tree: tree, store: store}
}

// Resolve returns the URI of root/segments[0]/segments[1]/...
func (r *FolderResolver) Resolve(ctx context.Context, segments []string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := strings.Join(segments, "/")
	if uri, ok := r.cached(ctx, want); ok {
		return uri, nil
	}

	cur, err := r.tree.Root(ctx)
	if err != nil {
		return "", err
	}
	for _, seg := range segments {
		if cur, err = r.child(ctx, cur, seg); err != nil {
			return "", err
		}
	}

	data, _ := json.Marshal(folderHandle{Path: want, URI: cur})
	if err := r.store.Set(ctx, cache.FolderHandleKey, string(data)); err != nil {
		log.Printf("[Storage] Failed to remember folder %s: %v", want, err)
	}
	log.Printf("[Storage] Resolved folder %q -> %s", want, cur)
	return cur, nil
}

// Invalidate forgets the remembered folder
func (r *FolderResolver) Invalidate(ctx context.Context) {
	if err := r.store.Delete(ctx, cache.FolderHandleKey); err != nil {
		log.Printf("[Storage] Failed to drop cached folder: %v", err)
	}
}

func (r *FolderResolver) cached(ctx context.Context, want string) (string, bool) {
	raw, ok, err := r.store.Get(ctx, cache.FolderHandleKey)
	if err != nil {
		log.Printf("[Storage] Folder cache unavailable: %v", err)
		return "", false
	}
	if !ok {
		return "", false
	}

	var h folderHandle
	if err := json.Unmarshal([]byte(raw), &h); err != nil || h.URI == "" || h.Path != want {
		r.Invalidate(ctx)
		return "", false
	}

	exists, err := r.tree.Exists(ctx, h.URI)
	if err != nil || !exists {
		log.Printf("[Storage] Cached folder %s no longer accessible, resolving again", h.URI)
		r.Invalidate(ctx)
		return "", false
	}
	return h.URI, true
}

func (r *FolderResolver) child(ctx context.Context, parent, name string) (string, error) {
	entries, err := r.tree.List(ctx, parent)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.IsDir && e.Name == name {
			return e.URI, nil
		}
	}
	return r.tree.MakeDir(ctx, parent, name)
}
