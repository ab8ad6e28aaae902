package scan

import (
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"

	"github.com/dshills/scriptspace/internal/vfs"
)

func setupWorkspace(t *testing.T) *vfs.MemFS {
	t.Helper()
	memfs := vfs.NewMemFS()
	memfs.AddFile("/ws/rootfile.ps1", "")
	memfs.AddFile("/ws/other.txt", "")
	memfs.AddFile("/ws/nested/nestedmodule.psm1", "")
	memfs.AddFile("/ws/nested/nestedmodule.psd1", "")
	memfs.AddFile("/ws/nested/donotfindmodule.psd1", "")
	memfs.AddFile("/ws/donotfind.ps1", "")
	return memfs
}

func collect(t *testing.T, fsys vfs.VFS, root string, rules RuleSet, opts Options) []string {
	t.Helper()
	var got []string
	for p := range Files(fsys, root, rules, opts) {
		got = append(got, p)
	}
	slices.Sort(got)
	return got
}

func TestFiles_IncludeExclude(t *testing.T) {
	memfs := setupWorkspace(t)
	rules := RuleSet{
		Includes: []string{"**/*.ps1", "**/*.psd1"},
		Excludes: []string{"**/donotfind*"},
	}

	got := collect(t, memfs, "/ws", rules, Options{})
	want := []string{"/ws/nested/nestedmodule.psd1", "/ws/rootfile.ps1"}
	if !slices.Equal(got, want) {
		t.Errorf("Files = %v, want %v", got, want)
	}
}

func TestFiles_SourcePatterns(t *testing.T) {
	memfs := setupWorkspace(t)
	memfs.AddFile("/ws/types.ps1xml", "")

	got := collect(t, memfs, "/ws", RuleSet{Includes: SourcePatterns}, Options{})
	if !slices.Contains(got, "/ws/types.ps1xml") {
		t.Errorf("full pattern set missed .ps1xml: %v", got)
	}

	got = collect(t, memfs, "/ws", RuleSet{Includes: SourcePatternsLegacy}, Options{})
	if slices.Contains(got, "/ws/types.ps1xml") {
		t.Errorf("legacy pattern set should not match .ps1xml: %v", got)
	}
}

func TestFiles_MaxDepthOne(t *testing.T) {
	memfs := setupWorkspace(t)
	rules := RuleSet{Includes: []string{"**/*.ps1", "**/*.psm1", "**/*.psd1"}}

	got := collect(t, memfs, "/ws", rules, Options{MaxDepth: 1})
	want := []string{"/ws/donotfind.ps1", "/ws/rootfile.ps1"}
	if !slices.Equal(got, want) {
		t.Errorf("Files with MaxDepth 1 = %v, want %v", got, want)
	}
}

func TestFiles_MaxDepthTwo(t *testing.T) {
	memfs := setupWorkspace(t)
	memfs.AddFile("/ws/nested/deeper/too-deep.ps1", "")
	rules := RuleSet{Includes: []string{"**/*.psm1", "**/too-deep.ps1"}}

	got := collect(t, memfs, "/ws", rules, Options{MaxDepth: 2})
	want := []string{"/ws/nested/nestedmodule.psm1"}
	if !slices.Equal(got, want) {
		t.Errorf("Files with MaxDepth 2 = %v, want %v", got, want)
	}
}

func TestFiles_NonexistentRoot(t *testing.T) {
	memfs := vfs.NewMemFS()

	got := collect(t, memfs, "/nope", RuleSet{}, Options{})
	if len(got) != 0 {
		t.Errorf("nonexistent root yielded %v", got)
	}
}

func TestFiles_AbandonEarly(t *testing.T) {
	memfs := setupWorkspace(t)

	var got []string
	for p := range Files(memfs, "/ws", RuleSet{}, Options{}) {
		got = append(got, p)
		break
	}
	if len(got) != 1 {
		t.Errorf("abandoned sequence yielded %d items", len(got))
	}
}

func TestFiles_IgnoreSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires privileges on windows")
	}

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "real"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "real", "inside.ps1"), []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "top.ps1"), []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(dir, "real"), filepath.Join(dir, "linked")); err != nil {
		t.Fatal(err)
	}

	rules := RuleSet{Includes: []string{"**/*.ps1"}}
	osfs := vfs.NewOSFS()

	got := collect(t, osfs, dir, rules, Options{IgnoreSymlinks: true})
	for _, p := range got {
		if filepath.Base(filepath.Dir(p)) == "linked" {
			t.Errorf("descended into symlinked directory: %v", got)
		}
	}
	if !slices.Contains(got, filepath.Join(dir, "top.ps1")) {
		t.Errorf("missing plain file: %v", got)
	}

	got = collect(t, osfs, dir, rules, Options{IgnoreSymlinks: false})
	if !slices.Contains(got, filepath.Join(dir, "linked", "inside.ps1")) {
		t.Errorf("symlink following missed linked file: %v", got)
	}
}
