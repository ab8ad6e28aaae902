package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/dshills/scriptspace/internal/vfs"
	wserr "github.com/dshills/scriptspace/internal/workspace/errors"
)

// lineExtractor treats every non-empty line of content as a reference.
type lineExtractor struct{}

func (lineExtractor) References(_, content string) []string {
	var refs []string
	start := 0
	for i := 0; i <= len(content); i++ {
		if i == len(content) || content[i] == '\n' {
			if line := content[start:i]; line != "" {
				refs = append(refs, line)
			}
			start = i + 1
		}
	}
	return refs
}

func setupRegistry(t *testing.T) (*Registry, *vfs.MemFS) {
	t.Helper()
	memfs := vfs.NewMemFS()
	reg := New(memfs, WithExtractor(lineExtractor{}))
	return reg, memfs
}

func TestGet_OpensFromDisk(t *testing.T) {
	reg, memfs := setupRegistry(t)
	memfs.AddFile("/ws/deploy.ps1", "Write-Host 'hi'\n")

	doc, err := reg.Get("/ws/deploy.ps1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if doc.Path() != "/ws/deploy.ps1" {
		t.Errorf("Path = %q", doc.Path())
	}
	if doc.Content() != "Write-Host 'hi'\n" {
		t.Errorf("Content = %q", doc.Content())
	}
	if doc.Origin() != OriginDisk {
		t.Errorf("Origin = %v, want OriginDisk", doc.Origin())
	}
	if doc.IsVirtual() {
		t.Error("on-disk document reported virtual")
	}
	if doc.ID() == "" {
		t.Error("document has no id")
	}
}

func TestGet_CachedIdentity(t *testing.T) {
	reg, memfs := setupRegistry(t)
	memfs.AddFile("/ws/deploy.ps1", "content")

	doc1, err := reg.Get("/ws/deploy.ps1")
	if err != nil {
		t.Fatalf("first Get failed: %v", err)
	}

	// A different spelling of the same document hits the cache.
	doc2, err := reg.Get("file:///ws/deploy.ps1")
	if err != nil {
		t.Fatalf("second Get failed: %v", err)
	}

	if doc1 != doc2 {
		t.Error("same document fetched twice should be the same instance")
	}
	if reg.Count() != 1 {
		t.Errorf("Count = %d, want 1", reg.Count())
	}
}

func TestGet_NotFound(t *testing.T) {
	reg, _ := setupRegistry(t)

	_, err := reg.Get("/ws/missing.ps1")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, wserr.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}

	var pathErr *wserr.PathError
	if !errors.As(err, &pathErr) {
		t.Fatalf("expected *PathError, got %T", err)
	}
	if pathErr.Path != "/ws/missing.ps1" {
		t.Errorf("PathError.Path = %q", pathErr.Path)
	}
}

func TestGet_Directory(t *testing.T) {
	reg, memfs := setupRegistry(t)
	memfs.Mkdir("/ws/scripts")

	_, err := reg.Get("/ws/scripts")
	if !errors.Is(err, wserr.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound for directory", err)
	}
}

func TestGet_UnsupportedScheme(t *testing.T) {
	reg, _ := setupRegistry(t)

	_, err := reg.Get("https://example.com/deploy.ps1")
	if !errors.Is(err, wserr.ErrUnsupportedScheme) {
		t.Errorf("error = %v, want ErrUnsupportedScheme", err)
	}
}

func TestGet_VirtualWithoutBuffer(t *testing.T) {
	reg, _ := setupRegistry(t)

	_, err := reg.Get("untitled:Untitled-1")
	if !errors.Is(err, wserr.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound for unregistered virtual locator", err)
	}
}

func TestTryGet(t *testing.T) {
	reg, memfs := setupRegistry(t)
	memfs.AddFile("/ws/deploy.ps1", "content")

	doc, ok, err := reg.TryGet("/ws/deploy.ps1")
	if err != nil || !ok || doc == nil {
		t.Fatalf("TryGet = (%v, %v, %v), want found", doc, ok, err)
	}

	// Expected absences fold into ok=false with no error.
	for _, loc := range []string{
		"/ws/missing.ps1",
		"untitled:nothing",
		"https://example.com/a.ps1",
	} {
		doc, ok, err := reg.TryGet(loc)
		if err != nil {
			t.Errorf("TryGet(%q) error = %v, want nil", loc, err)
		}
		if ok || doc != nil {
			t.Errorf("TryGet(%q) = (%v, %v), want absent", loc, doc, ok)
		}
	}
}

func TestGetOrCreateBuffer(t *testing.T) {
	reg, _ := setupRegistry(t)

	doc, ok := reg.GetOrCreateBuffer("untitled:Untitled-1", []byte("Write-Host 1\n"))
	if !ok || doc == nil {
		t.Fatal("expected buffer document to be created")
	}
	if doc.Origin() != OriginBuffer {
		t.Errorf("Origin = %v, want OriginBuffer", doc.Origin())
	}
	if !doc.IsVirtual() {
		t.Error("untitled document should be virtual")
	}
	if doc.Content() != "Write-Host 1\n" {
		t.Errorf("Content = %q", doc.Content())
	}
}

func TestGetOrCreateBuffer_LiveBufferWins(t *testing.T) {
	reg, _ := setupRegistry(t)

	doc1, _ := reg.GetOrCreateBuffer("untitled:Untitled-1", []byte("first"))
	doc2, ok := reg.GetOrCreateBuffer("untitled:Untitled-1", []byte("second"))

	if !ok || doc2 != doc1 {
		t.Error("second create should return the live buffer")
	}
	if doc2.Content() != "first" {
		t.Errorf("live buffer content replaced: %q", doc2.Content())
	}
}

func TestGetOrCreateBuffer_NilInitialMeansAbsent(t *testing.T) {
	reg, memfs := setupRegistry(t)
	memfs.AddFile("/ws/on-disk.ps1", "content")

	// nil initial never creates and never reads disk, even when the file
	// exists.
	doc, ok := reg.GetOrCreateBuffer("/ws/on-disk.ps1", nil)
	if ok || doc != nil {
		t.Errorf("GetOrCreateBuffer with nil initial = (%v, %v), want absent", doc, ok)
	}
	if reg.Count() != 0 {
		t.Errorf("Count = %d, want 0", reg.Count())
	}

	// A non-nil empty slice does create.
	doc, ok = reg.GetOrCreateBuffer("/ws/on-disk.ps1", []byte{})
	if !ok || doc == nil {
		t.Fatal("expected empty buffer to be created")
	}
	if doc.Content() != "" {
		t.Errorf("Content = %q, want empty", doc.Content())
	}
}

func TestClose(t *testing.T) {
	reg, memfs := setupRegistry(t)
	memfs.AddFile("/ws/deploy.ps1", "content")

	doc, err := reg.Get("/ws/deploy.ps1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	reg.Close(doc)
	if reg.Count() != 0 {
		t.Errorf("Count = %d after close, want 0", reg.Count())
	}

	// Closing again is a no-op.
	reg.Close(doc)
	reg.Close(nil)

	// Reopening produces a fresh instance.
	doc2, err := reg.Get("/ws/deploy.ps1")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if doc2 == doc {
		t.Error("reopened document should be a new instance")
	}
}

func TestClose_StaleInstanceDoesNotEvict(t *testing.T) {
	reg, memfs := setupRegistry(t)
	memfs.AddFile("/ws/deploy.ps1", "content")

	doc1, _ := reg.Get("/ws/deploy.ps1")
	reg.Close(doc1)
	doc2, _ := reg.Get("/ws/deploy.ps1")

	// Closing the stale instance must not remove the newer one.
	reg.Close(doc1)
	if reg.Count() != 1 {
		t.Errorf("Count = %d, want 1", reg.Count())
	}

	doc3, _ := reg.Get("/ws/deploy.ps1")
	if doc3 != doc2 {
		t.Error("stale close evicted the live document")
	}
}

func TestCloseLocator(t *testing.T) {
	reg, memfs := setupRegistry(t)
	memfs.AddFile("/ws/deploy.ps1", "content")

	if _, err := reg.Get("/ws/deploy.ps1"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	reg.CloseLocator("file:///ws/deploy.ps1")
	if reg.Count() != 0 {
		t.Errorf("Count = %d, want 0", reg.Count())
	}

	reg.CloseLocator("/ws/never-opened.ps1")
}

func TestList(t *testing.T) {
	reg, memfs := setupRegistry(t)
	memfs.AddFile("/ws/a.ps1", "a")
	memfs.AddFile("/ws/b.ps1", "b")

	if _, err := reg.Get("/ws/a.ps1"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, err := reg.Get("/ws/b.ps1"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	docs := reg.List()
	if len(docs) != 2 {
		t.Fatalf("List returned %d documents, want 2", len(docs))
	}
}

func TestOnOpen(t *testing.T) {
	reg, memfs := setupRegistry(t)
	memfs.AddFile("/ws/deploy.ps1", "content")

	var mu sync.Mutex
	var opened []string
	reg.OnOpen(func(doc *Document) {
		mu.Lock()
		opened = append(opened, doc.Path())
		mu.Unlock()
	})

	if _, err := reg.Get("/ws/deploy.ps1"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	// Cache hit must not fire again.
	if _, err := reg.Get("/ws/deploy.ps1"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	reg.GetOrCreateBuffer("untitled:Untitled-1", []byte("x"))

	mu.Lock()
	defer mu.Unlock()
	if len(opened) != 2 {
		t.Fatalf("open handler fired %d times, want 2: %v", len(opened), opened)
	}
	if opened[0] != "/ws/deploy.ps1" {
		t.Errorf("first open = %q", opened[0])
	}
}

func TestConcurrentOpens(t *testing.T) {
	reg, memfs := setupRegistry(t)
	memfs.AddFile("/ws/deploy.ps1", "content")

	const n = 16
	docs := make([]*Document, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc, err := reg.Get("/ws/deploy.ps1")
			if err != nil {
				t.Errorf("Get failed: %v", err)
				return
			}
			docs[i] = doc
		}()
	}
	wg.Wait()

	if reg.Count() != 1 {
		t.Fatalf("Count = %d, want 1", reg.Count())
	}
	for i := 1; i < n; i++ {
		if docs[i] != docs[0] {
			t.Fatal("racing opens produced different instances")
		}
	}
}

func TestDocument_References(t *testing.T) {
	reg, memfs := setupRegistry(t)
	memfs.AddFile("/ws/main.ps1", "lib/a.ps1\nlib/b.ps1\n")

	doc, err := reg.Get("/ws/main.ps1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	refs := doc.References()
	if len(refs) != 2 || refs[0] != "lib/a.ps1" || refs[1] != "lib/b.ps1" {
		t.Errorf("References = %v", refs)
	}

	// Mutating the returned slice must not affect the document.
	refs[0] = "tweaked"
	if doc.References()[0] != "lib/a.ps1" {
		t.Error("References returned the internal slice")
	}

	// SetContent re-extracts.
	doc.SetContent("lib/c.ps1\n")
	refs = doc.References()
	if len(refs) != 1 || refs[0] != "lib/c.ps1" {
		t.Errorf("References after SetContent = %v", refs)
	}
}

func TestDocument_DecodesBOM(t *testing.T) {
	reg, memfs := setupRegistry(t)

	memfs.AddFileBytes("/ws/bom.ps1", append([]byte{0xEF, 0xBB, 0xBF}, []byte("Write-Host 'hi'")...))
	utf16le := []byte{0xFF, 0xFE, 'h', 0, 'i', 0}
	memfs.AddFileBytes("/ws/utf16.ps1", utf16le)

	doc, err := reg.Get("/ws/bom.ps1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc.Content() != "Write-Host 'hi'" {
		t.Errorf("BOM content = %q", doc.Content())
	}
	if doc.Encoding() != vfs.EncodingUTF8BOM {
		t.Errorf("Encoding = %q, want utf-8-bom", doc.Encoding())
	}

	doc, err = reg.Get("/ws/utf16.ps1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc.Content() != "hi" {
		t.Errorf("UTF-16 content = %q", doc.Content())
	}
	if doc.Encoding() != vfs.EncodingUTF16LE {
		t.Errorf("Encoding = %q, want utf-16le", doc.Encoding())
	}
}
