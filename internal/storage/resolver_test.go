package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"challan-backend/internal/apperr"
	"challan-backend/internal/cache"
)

// countingTree records how often the resolver walks the tree
type countingTree struct {
	Tree
	mu     sync.Mutex
	roots  int
	mkdirs int
}

func (c *countingTree) Root(ctx context.Context) (string, error) {
	c.mu.Lock()
	c.roots++
	c.mu.Unlock()
	return c.Tree.Root(ctx)
}

func (c *countingTree) MakeDir(ctx context.Context, parent, name string) (string, error) {
	c.mu.Lock()
	c.mkdirs++
	c.mu.Unlock()
	return c.Tree.MakeDir(ctx, parent, name)
}

func localTree(t *testing.T) (*LocalTree, string) {
	t.Helper()
	root := t.TempDir()
	tree, err := NewLocalTree(root)
	if err != nil {
		t.Fatal(err)
	}
	return tree, tree.RootPath()
}

func TestResolveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	local, root := localTree(t)
	tree := &countingTree{Tree: local}
	r := NewFolderResolver(tree, cache.NewMemoryStore())

	first, err := r.Resolve(ctx, []string{"Challans"})
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	second, err := r.Resolve(ctx, []string{"Challans"})
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}

	if first != second {
		t.Errorf("resolves differ: %s vs %s", first, second)
	}
	if tree.mkdirs != 1 || tree.roots != 1 {
		t.Errorf("second resolve should come from the cache: mkdirs=%d roots=%d", tree.mkdirs, tree.roots)
	}

	items, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Name() != "Challans" || !items[0].IsDir() {
		t.Errorf("root should hold exactly one Challans folder, got %v", items)
	}
}

func TestResolveWithColdCacheReusesExistingFolder(t *testing.T) {
	ctx := context.Background()
	local, root := localTree(t)

	if err := os.Mkdir(filepath.Join(root, "Challans"), 0o755); err != nil {
		t.Fatal(err)
	}
	tree := &countingTree{Tree: local}

	// two resolvers sharing nothing, like two process lifetimes
	for i := 0; i < 2; i++ {
		r := NewFolderResolver(tree, cache.NewMemoryStore())
		if _, err := r.Resolve(ctx, []string{"Challans"}); err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
	}
	if tree.mkdirs != 0 {
		t.Errorf("existing folder must be reused, mkdirs=%d", tree.mkdirs)
	}
}

func TestResolveNestedSegments(t *testing.T) {
	local, root := localTree(t)
	r := NewFolderResolver(local, cache.NewMemoryStore())

	uri, err := r.Resolve(context.Background(), []string{"Green Valley", "Challans"})
	if err != nil {
		t.Fatal(err)
	}
	p, err := FilePath(uri)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(root, "Green Valley", "Challans"); p != want {
		t.Errorf("got %s, want %s", p, want)
	}
}

func TestResolveRevalidatesCachedFolder(t *testing.T) {
	ctx := context.Background()
	local, root := localTree(t)
	tree := &countingTree{Tree: local}
	store := cache.NewMemoryStore()
	r := NewFolderResolver(tree, store)

	if _, err := r.Resolve(ctx, []string{"Challans"}); err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(filepath.Join(root, "Challans")); err != nil {
		t.Fatal(err)
	}

	uri, err := r.Resolve(ctx, []string{"Challans"})
	if err != nil {
		t.Fatalf("re-resolve: %v", err)
	}
	if tree.mkdirs != 2 {
		t.Errorf("deleted folder should be recreated, mkdirs=%d", tree.mkdirs)
	}
	if ok, _ := local.Exists(ctx, uri); !ok {
		t.Error("resolved folder does not exist")
	}

	raw, ok, _ := store.Get(ctx, cache.FolderHandleKey)
	if !ok {
		t.Fatal("handle should be cached again")
	}
	var h folderHandle
	if err := json.Unmarshal([]byte(raw), &h); err != nil || h.URI != uri || h.Path != "Challans" {
		t.Errorf("cached handle: %s", raw)
	}
}

func TestResolveDropsUnreadableHandle(t *testing.T) {
	ctx := context.Background()
	local, _ := localTree(t)
	store := cache.NewMemoryStore()
	store.Set(ctx, cache.FolderHandleKey, "{not json")
	r := NewFolderResolver(local, store)

	if _, err := r.Resolve(ctx, []string{"Challans"}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	raw, _, _ := store.Get(ctx, cache.FolderHandleKey)
	if raw == "{not json" {
		t.Error("corrupt handle should be replaced")
	}
}

func TestResolveMissingRootIsPermissionDenied(t *testing.T) {
	tree, err := NewLocalTree(filepath.Join(t.TempDir(), "never-granted"))
	if err != nil {
		t.Fatal(err)
	}
	r := NewFolderResolver(tree, cache.NewMemoryStore())

	_, err = r.Resolve(context.Background(), []string{"Challans"})
	if !apperr.Is(err, apperr.PermissionDenied) {
		t.Errorf("expected PermissionDenied, got %v", err)
	}
}

func TestResolveConcurrentCreatesOnce(t *testing.T) {
	local, root := localTree(t)
	tree := &countingTree{Tree: local}
	r := NewFolderResolver(tree, cache.NewMemoryStore())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Resolve(context.Background(), []string{"Challans"}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if tree.mkdirs != 1 {
		t.Errorf("mkdirs: got %d, want 1", tree.mkdirs)
	}
	items, _ := os.ReadDir(root)
	if len(items) != 1 {
		t.Errorf("expected one folder, got %d", len(items))
	}
}
