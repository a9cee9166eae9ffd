package watch

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/JSingmin/CSharpAnalyser/pkg/config"
)

func TestNewWatcher(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := config.DefaultConfig()

	tests := []struct {
		name     string
		debounce time.Duration
		want     time.Duration
	}{
		{name: "default debounce", debounce: 0, want: DefaultDebounce},
		{name: "custom debounce", debounce: time.Second, want: time.Second},
		{name: "negative debounce defaults", debounce: -time.Second, want: DefaultDebounce},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWatcher([]string{tmpDir}, cfg, WithDebounce(tt.debounce), WithLogger(zap.NewNop()))
			if err != nil {
				t.Fatalf("NewWatcher() error = %v", err)
			}
			defer w.Stop()

			if w.fsWatcher == nil {
				t.Error("fsWatcher should not be nil")
			}
			if w.config != cfg {
				t.Error("config should match")
			}
			if !slices.Equal(w.roots, []string{tmpDir}) {
				t.Errorf("roots = %v, want [%v]", w.roots, tmpDir)
			}
			if w.pending == nil {
				t.Error("pending map should be initialized")
			}
			if w.debounce != tt.want {
				t.Errorf("debounce = %v, want %v", w.debounce, tt.want)
			}
		})
	}
}

func TestNewWatcher_NilConfig(t *testing.T) {
	w, err := NewWatcher([]string{t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	if w.config == nil {
		t.Error("nil config should fall back to defaults")
	}
}

func TestWatcher_handleEvent(t *testing.T) {
	tmpDir := t.TempDir()
	w, err := NewWatcher([]string{tmpDir}, config.DefaultConfig())
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	tests := []struct {
		name    string
		path    string
		op      fsnotify.Op
		pending bool
	}{
		{name: "write csharp", path: "Service.cs", op: fsnotify.Write, pending: true},
		{name: "create csharp", path: "New.cs", op: fsnotify.Create, pending: true},
		{name: "remove csharp", path: "Old.cs", op: fsnotify.Remove, pending: true},
		{name: "rename csharp", path: "Moved.cs", op: fsnotify.Rename, pending: true},
		{name: "chmod ignored", path: "Mode.cs", op: fsnotify.Chmod, pending: false},
		{name: "not csharp", path: "README.md", op: fsnotify.Write, pending: false},
		{name: "generated file excluded", path: "Form.Designer.cs", op: fsnotify.Write, pending: false},
		{name: "obj directory excluded", path: filepath.Join("obj", "Debug.cs"), op: fsnotify.Write, pending: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, tt.path)
			w.handleEvent(fsnotify.Event{Name: path, Op: tt.op})

			w.mu.Lock()
			_, ok := w.pending[path]
			w.mu.Unlock()
			if ok != tt.pending {
				t.Errorf("pending[%s] = %v, want %v", tt.path, ok, tt.pending)
			}
		})
	}
}

func TestWatcher_handleEvent_NewDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	w, err := NewWatcher([]string{tmpDir}, config.DefaultConfig())
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	src := filepath.Join(tmpDir, "src")
	bin := filepath.Join(tmpDir, "bin")
	for _, dir := range []string{src, bin} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		w.handleEvent(fsnotify.Event{Name: dir, Op: fsnotify.Create})
	}

	watched := w.WatchedDirs()
	if !slices.Contains(watched, src) {
		t.Errorf("new directory %s should be watched, got %v", src, watched)
	}
	if slices.Contains(watched, bin) {
		t.Errorf("excluded directory %s should not be watched", bin)
	}
	if len(w.pending) != 0 {
		t.Errorf("directory events should not be pending, got %v", w.pending)
	}
}

func TestWatcher_takeReady(t *testing.T) {
	w, err := NewWatcher([]string{t.TempDir()}, config.DefaultConfig(), WithDebounce(100*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	now := time.Now()
	w.pending["/b.cs"] = now.Add(-time.Second)
	w.pending["/a.cs"] = now.Add(-time.Second)
	w.pending["/fresh.cs"] = now

	ready := w.takeReady(now)
	if want := []string{"/a.cs", "/b.cs"}; !slices.Equal(ready, want) {
		t.Errorf("takeReady() = %v, want %v", ready, want)
	}
	if _, ok := w.pending["/fresh.cs"]; !ok {
		t.Error("file inside the debounce window should stay pending")
	}
	if len(w.pending) != 1 {
		t.Errorf("pending = %v, want only the fresh file", w.pending)
	}
}

func TestWatcher_Start_Context(t *testing.T) {
	tmpDir := t.TempDir()
	w, err := NewWatcher([]string{tmpDir}, config.DefaultConfig(), WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Start() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after cancel")
	}
}

func TestWatcher_Start_FileChange(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(tmpDir, "obj"), 0o755); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher([]string{tmpDir}, config.DefaultConfig(), WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	var mu sync.Mutex
	var batches [][]string
	w.SetCallback(func(changed []string) {
		mu.Lock()
		batches = append(batches, changed)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	time.Sleep(100 * time.Millisecond)

	target := filepath.Join(tmpDir, "Program.cs")
	ignored := filepath.Join(tmpDir, "obj", "Generated.cs")
	for _, path := range []string{target, ignored} {
		if err := os.WriteFile(path, []byte("class Program {}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(batches)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(batches) == 0 {
		t.Fatal("callback was not invoked")
	}
	for _, batch := range batches {
		if slices.Contains(batch, ignored) {
			t.Errorf("excluded file reported: %v", batch)
		}
	}
	if !slices.Contains(batches[0], target) {
		t.Errorf("first batch = %v, want it to contain %s", batches[0], target)
	}
}

func TestWatcher_SkipsExcludedDirectoriesOnStart(t *testing.T) {
	tmpDir := t.TempDir()
	for _, dir := range []string{".git", "bin", "src"} {
		if err := os.Mkdir(filepath.Join(tmpDir, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	w, err := NewWatcher([]string{tmpDir}, config.DefaultConfig())
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	if err := w.Add(); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	watched := w.WatchedDirs()
	if !slices.Contains(watched, filepath.Join(tmpDir, "src")) {
		t.Errorf("src should be watched, got %v", watched)
	}
	for _, dir := range []string{".git", "bin"} {
		if slices.Contains(watched, filepath.Join(tmpDir, dir)) {
			t.Errorf("%s should not be watched", dir)
		}
	}
}

func TestWatcher_ConcurrentHandleEvent(t *testing.T) {
	tmpDir := t.TempDir()
	w, err := NewWatcher([]string{tmpDir}, config.DefaultConfig())
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Go(func() {
			name := filepath.Join(tmpDir, "File"+string(rune('A'+i%26))+".cs")
			w.handleEvent(fsnotify.Event{Name: name, Op: fsnotify.Write})
		})
	}
	wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) != 26 {
		t.Errorf("pending = %d files, want 26", len(w.pending))
	}
}

func TestRoots(t *testing.T) {
	tmpDir := t.TempDir()
	for _, dir := range []string{"src/App", "src/Lib", "tests"} {
		if err := os.MkdirAll(filepath.Join(tmpDir, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	file := filepath.Join(tmpDir, "tests", "UserTest.cs")
	if err := os.WriteFile(file, []byte("class UserTest {}"), 0o644); err != nil {
		t.Fatal(err)
	}
	abs := func(rel string) string { return filepath.Join(tmpDir, rel) }

	tests := []struct {
		name  string
		paths []string
		want  []string
	}{
		{
			name:  "directory is its own root",
			paths: []string{abs("src/App")},
			want:  []string{abs("src/App")},
		},
		{
			name:  "file watches its directory",
			paths: []string{file},
			want:  []string{abs("tests")},
		},
		{
			name:  "glob watches its static prefix",
			paths: []string{filepath.Join(tmpDir, "src", "**", "*.cs")},
			want:  []string{abs("src")},
		},
		{
			name:  "nested roots collapse",
			paths: []string{abs("src/Lib"), abs("src"), abs("src/App")},
			want:  []string{abs("src")},
		},
		{
			name:  "sibling roots are kept",
			paths: []string{file, abs("src/App"), abs("src/Lib")},
			want:  []string{abs("src/App"), abs("src/Lib"), abs("tests")},
		},
		{
			name:  "missing file watches its directory",
			paths: []string{abs("src/App/New.cs")},
			want:  []string{abs("src/App")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Roots(tt.paths); !slices.Equal(got, tt.want) {
				t.Errorf("Roots(%v) = %v, want %v", tt.paths, got, tt.want)
			}
		})
	}
}

func TestRootsDefaultsToWorkingDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if got := Roots(nil); !slices.Equal(got, []string{wd}) {
		t.Errorf("Roots(nil) = %v, want [%s]", got, wd)
	}
}

func TestWatcher_Start_MultipleRoots(t *testing.T) {
	tmpDir := t.TempDir()
	app := filepath.Join(tmpDir, "app")
	lib := filepath.Join(tmpDir, "lib")
	other := filepath.Join(tmpDir, "other")
	for _, dir := range []string{app, lib, other} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	w, err := NewWatcher([]string{app, lib}, config.DefaultConfig(), WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	var mu sync.Mutex
	var changed []string
	w.SetCallback(func(batch []string) {
		mu.Lock()
		changed = append(changed, batch...)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	time.Sleep(100 * time.Millisecond)

	inLib := filepath.Join(lib, "Helper.cs")
	outside := filepath.Join(other, "Ignored.cs")
	for _, path := range []string{inLib, outside} {
		if err := os.WriteFile(path, []byte("class Helper {}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		seen := slices.Contains(changed, inLib)
		mu.Unlock()
		if seen {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if !slices.Contains(changed, inLib) {
		t.Errorf("change in second root not reported, got %v", changed)
	}
	if slices.Contains(changed, outside) {
		t.Errorf("change outside every root reported: %v", changed)
	}
}
