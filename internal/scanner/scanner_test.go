package scanner

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/JSingmin/CSharpAnalyser/pkg/config"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to create file %s: %v", name, err)
		}
	}
}

func relSet(t *testing.T, root string, files []string) map[string]bool {
	t.Helper()
	found := make(map[string]bool)
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		if err != nil {
			t.Fatalf("Rel(%s): %v", f, err)
		}
		found[filepath.ToSlash(rel)] = true
	}
	return found
}

func TestNewScanner(t *testing.T) {
	// With nil config
	s := NewScanner(nil)
	if s == nil {
		t.Fatal("NewScanner(nil) returned nil")
	}
	if s.config == nil {
		t.Error("scanner.config should not be nil when passing nil")
	}

	// With explicit config
	cfg := config.DefaultConfig()
	s = NewScanner(cfg)
	if s.config != cfg {
		t.Error("scanner.config should be the provided config")
	}
}

func TestScanDir(t *testing.T) {
	tmpDir := t.TempDir()

	writeFiles(t, tmpDir, map[string]string{
		"Program.cs":              "class Program {}\n",
		"Services/Orders.cs":      "class Orders {}\n",
		"Scripts/build.csx":       "// script\n",
		"Services/Orders.cs.bak":  "class Orders {}\n",
		"README.md":               "# readme\n",
		"Web/wwwroot/site.js":     "// js\n",
		"Data/Upper/Legacy.CS":    "class Legacy {}\n",
		"Data/Upper/notes.txt":    "notes\n",
		"Services/Orders.test.go": "package x\n",
	})

	s := NewScanner(nil)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	found := relSet(t, tmpDir, result)
	want := []string{"Program.cs", "Services/Orders.cs", "Scripts/build.csx", "Data/Upper/Legacy.CS"}
	if len(result) != len(want) {
		t.Errorf("ScanDir() found %d files, want %d: %v", len(result), len(want), result)
	}
	for _, name := range want {
		if !found[name] {
			t.Errorf("File %s was not found", name)
		}
	}
}

func TestScanDirExcludesDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	writeFiles(t, tmpDir, map[string]string{
		"bin/Debug/App.cs":           "class A {}\n",
		"src/App/obj/Gen.cs":         "class G {}\n",
		".git/hooks/Hook.cs":         "class H {}\n",
		".csanalyser/cache/Stale.cs": "class S {}\n",
		"src/App/Main.cs":            "class M {}\n",
	})

	s := NewScanner(nil)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	if len(result) != 1 {
		t.Errorf("ScanDir() found %d files, want 1 (excluded dirs should be skipped)", len(result))
		for _, f := range result {
			t.Logf("  Found: %s", f)
		}
	}
}

func TestScanDirExcludesPatterns(t *testing.T) {
	tmpDir := t.TempDir()

	writeFiles(t, tmpDir, map[string]string{
		"Main.cs":                "class M {}\n",
		"Forms/Main.Designer.cs": "partial class M {}\n",
		"Api.g.cs":               "class Api {}\n",
	})

	s := NewScanner(nil)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	if len(result) != 1 || filepath.Base(result[0]) != "Main.cs" {
		t.Errorf("ScanDir() = %v, want only Main.cs", result)
	}
}

func TestScanFile(t *testing.T) {
	tmpDir := t.TempDir()

	writeFiles(t, tmpDir, map[string]string{
		"Program.cs":          "class P {}\n",
		"Program.Designer.cs": "class P {}\n",
		"notes.txt":           "notes\n",
	})

	s := NewScanner(nil)
	tests := []struct {
		name string
		want bool
	}{
		{"Program.cs", true},
		{"Program.Designer.cs", false},
		{"notes.txt", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ScanFile(filepath.Join(tmpDir, tt.name))
			if err != nil {
				t.Fatalf("ScanFile() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ScanFile(%s) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}

	// Directories are never analyzed directly.
	if got, err := s.ScanFile(tmpDir); err != nil || got {
		t.Errorf("ScanFile(dir) = %v, %v; want false, nil", got, err)
	}
}

func TestScanFileNonExistent(t *testing.T) {
	s := NewScanner(nil)
	if _, err := s.ScanFile("/nonexistent/Program.cs"); err == nil {
		t.Error("ScanFile() should return error for non-existent file")
	}
}

func TestScanPaths(t *testing.T) {
	tmpDir := t.TempDir()

	writeFiles(t, tmpDir, map[string]string{
		"a/One.cs":   "class One {}\n",
		"a/Two.cs":   "class Two {}\n",
		"b/Three.cs": "class Three {}\n",
		"b/four.txt": "four\n",
	})

	s := NewScanner(nil)
	result, err := s.ScanPaths([]string{
		filepath.Join(tmpDir, "b", "Three.cs"),
		filepath.Join(tmpDir, "b", "four.txt"),
		filepath.Join(tmpDir, "a"),
		filepath.Join(tmpDir, "b"),
	})
	if err != nil {
		t.Fatalf("ScanPaths() error: %v", err)
	}

	want := []string{
		filepath.Join(tmpDir, "b", "Three.cs"),
		filepath.Join(tmpDir, "a", "One.cs"),
		filepath.Join(tmpDir, "a", "Two.cs"),
	}
	if len(result) != len(want) {
		t.Fatalf("ScanPaths() = %v, want %v", result, want)
	}
	for i := range want {
		if result[i] != want[i] {
			t.Errorf("ScanPaths()[%d] = %s, want %s", i, result[i], want[i])
		}
	}

	if _, err := s.ScanPaths([]string{filepath.Join(tmpDir, "missing")}); err == nil {
		t.Error("ScanPaths() should fail for a missing path")
	}
}

func TestScanPathsDefaultsToWorkingDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{"Program.cs": "class P {}\n"})
	t.Chdir(tmpDir)

	result, err := NewScanner(nil).ScanPaths(nil)
	if err != nil {
		t.Fatalf("ScanPaths() error: %v", err)
	}
	if len(result) != 1 || filepath.Base(result[0]) != "Program.cs" {
		t.Errorf("ScanPaths(nil) = %v", result)
	}
}

func TestScanDirWithGitignore(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.Mkdir(filepath.Join(tmpDir, ".git"), 0755); err != nil {
		t.Fatalf("Failed to create .git dir: %v", err)
	}
	writeFiles(t, tmpDir, map[string]string{
		".gitignore":           "skipme\n*.Generated.cs\n",
		"Main.cs":              "class M {}\n",
		"skipme/Skip.cs":       "class S {}\n",
		"src/App.cs":           "class A {}\n",
		"src/Api.Generated.cs": "class G {}\n",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Gitignore = true

	s := NewScanner(cfg)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	found := relSet(t, tmpDir, result)
	if !found["Main.cs"] || !found["src/App.cs"] {
		t.Errorf("ScanDir() = %v, want Main.cs and src/App.cs", result)
	}
	if found["skipme/Skip.cs"] || found["src/Api.Generated.cs"] {
		t.Errorf("ScanDir() = %v, gitignored files should be skipped", result)
	}
}

func TestScanDirGitignoreFromSubdirectory(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.Mkdir(filepath.Join(tmpDir, ".git"), 0755); err != nil {
		t.Fatalf("Failed to create .git dir: %v", err)
	}
	writeFiles(t, tmpDir, map[string]string{
		".gitignore":         "/src/Legacy/\n",
		"src/Legacy/Old.cs":  "class O {}\n",
		"src/Current/New.cs": "class N {}\n",
		"Legacy/TopLevel.cs": "class T {}\n",
	})

	// Scanning below the repository root still anchors patterns at the root.
	s := NewScanner(nil)
	result, err := s.ScanDir(filepath.Join(tmpDir, "src"))
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	if len(result) != 1 || filepath.Base(result[0]) != "New.cs" {
		t.Errorf("ScanDir() = %v, want only New.cs", result)
	}
}

func TestScanDirDisabledGitignore(t *testing.T) {
	tmpDir := t.TempDir()

	writeFiles(t, tmpDir, map[string]string{
		".gitignore":      "ignored/\n",
		"ignored/File.cs": "class F {}\n",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Gitignore = false

	s := NewScanner(cfg)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	// With gitignore disabled, should find the ignored file
	if len(result) != 1 || filepath.Base(result[0]) != "File.cs" {
		t.Error("With gitignore disabled, should find files in 'ignored' directory")
	}
}

func TestScanDirEmptyDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	s := NewScanner(nil)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	if len(result) != 0 {
		t.Errorf("ScanDir() on empty dir returned %d files, want 0", len(result))
	}
}

func TestIsWithinRoot(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		path string
		root string
		want bool
	}{
		{"same path", tmpDir, tmpDir, true},
		{"child path", filepath.Join(tmpDir, "subdir", "File.cs"), tmpDir, true},
		{"path outside root", "/some/other/path", tmpDir, false},
		{"parent path", filepath.Dir(tmpDir), tmpDir, false},
		{"similar prefix but different dir", tmpDir + "2/File.cs", tmpDir, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isWithinRoot(tt.path, tt.root)
			if got != tt.want {
				t.Errorf("isWithinRoot(%q, %q) = %v, want %v", tt.path, tt.root, got, tt.want)
			}
		})
	}
}

func TestFindGitRoot(t *testing.T) {
	tmpDir := t.TempDir()
	if result := findGitRoot(tmpDir); result != "" {
		t.Errorf("findGitRoot() on non-git dir should return empty string, got %q", result)
	}

	if err := os.Mkdir(filepath.Join(tmpDir, ".git"), 0755); err != nil {
		t.Fatalf("Failed to create .git dir: %v", err)
	}
	if result := findGitRoot(tmpDir); result != tmpDir {
		t.Errorf("findGitRoot() should return %q, got %q", tmpDir, result)
	}

	subDir := filepath.Join(tmpDir, "src", "App")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatalf("Failed to create subdir: %v", err)
	}
	if result := findGitRoot(subDir); result != tmpDir {
		t.Errorf("findGitRoot() from subdir should return %q, got %q", tmpDir, result)
	}
}

func TestScanDirWithUnresolvableSymlink(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.Symlink("/nonexistent/path/File.cs", filepath.Join(tmpDir, "Dangling.cs")); err != nil {
		t.Skip("Symlinks not supported on this system")
	}
	writeFiles(t, tmpDir, map[string]string{"Real.cs": "class R {}\n"})

	s := NewScanner(nil)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	if len(result) != 1 {
		t.Errorf("ScanDir() should find 1 file (skipping dangling symlink), got %d", len(result))
	}
}

func TestScanDirWithSymlinkOutsideRoot(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{"real/File.cs": "class F {}\n"})

	outsideDir := t.TempDir()
	writeFiles(t, outsideDir, map[string]string{"Outside.cs": "class O {}\n"})

	outsideFile := filepath.Join(outsideDir, "Outside.cs")
	if err := os.Symlink(outsideFile, filepath.Join(tmpDir, "Linked.cs")); err != nil {
		t.Skip("Symlinks not supported on this system")
	}

	s := NewScanner(nil)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	for _, f := range result {
		if filepath.Base(f) == "Linked.cs" {
			t.Error("ScanDir() should not follow symlinks outside the root directory")
		}
	}
}

func TestScanPathsGlob(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{
		"src/App/Program.cs":         "class Program {}\n",
		"src/App/Models/User.cs":     "class User {}\n",
		"src/App/Form.Designer.cs":   "partial class Form {}\n",
		"test/App.Tests/UserTest.cs": "class UserTest {}\n",
	})

	s := NewScanner(nil)
	result, err := s.ScanPaths([]string{filepath.Join(tmpDir, "src", "**", "*.cs")})
	if err != nil {
		t.Fatalf("ScanPaths() error: %v", err)
	}

	found := relSet(t, tmpDir, result)
	for _, want := range []string{"src/App/Program.cs", "src/App/Models/User.cs"} {
		if !found[want] {
			t.Errorf("ScanPaths() missing %s, got %v", want, found)
		}
	}
	if found["src/App/Form.Designer.cs"] {
		t.Error("glob matches should still honor exclusions")
	}
	if found["test/App.Tests/UserTest.cs"] {
		t.Error("files outside the glob should not be returned")
	}

	if _, err := s.ScanPaths([]string{filepath.Join(tmpDir, "**", "*.vb")}); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ScanPaths() with no glob matches error = %v, want fs.ErrNotExist", err)
	}
}

func TestScanPathsGlobDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{
		"svc-a/A.cs": "class A {}\n",
		"svc-b/B.cs": "class B {}\n",
		"lib/C.cs":   "class C {}\n",
	})

	result, err := NewScanner(nil).ScanPaths([]string{filepath.Join(tmpDir, "svc-*")})
	if err != nil {
		t.Fatalf("ScanPaths() error: %v", err)
	}
	found := relSet(t, tmpDir, result)
	if len(found) != 2 || !found["svc-a/A.cs"] || !found["svc-b/B.cs"] {
		t.Errorf("ScanPaths() = %v, want svc-a/A.cs and svc-b/B.cs", found)
	}
}
