package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewGuard(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		root    string
		extra   []string
		wantErr bool
	}{
		{name: "existing directory", root: tmpDir},
		{name: "current directory", root: "."},
		{name: "extra roots", root: tmpDir, extra: []string{t.TempDir()}},
		{name: "empty directory", root: "", wantErr: true},
		{name: "missing directory", root: filepath.Join(tmpDir, "missing"), wantErr: true},
		{name: "missing extra root", root: tmpDir, extra: []string{filepath.Join(tmpDir, "nope")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard, err := NewGuard(tt.root, tt.extra...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewGuard() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && len(guard.Roots()) != 1+len(tt.extra) {
				t.Errorf("Roots() = %v", guard.Roots())
			}
		})
	}
}

func TestGuardResolve(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "app"), 0755); err != nil {
		t.Fatal(err)
	}

	guard, err := NewGuard(root)
	if err != nil {
		t.Fatal(err)
	}
	evalRoot := guard.Roots()[0]

	tests := []struct {
		name    string
		path    string
		want    string
		outside bool
	}{
		{name: "root itself", path: root, want: evalRoot},
		{name: "relative child", path: "app", want: filepath.Join(evalRoot, "app")},
		{name: "not yet created", path: "app/new", want: filepath.Join(evalRoot, "app", "new")},
		{name: "dot dot escape", path: "../", outside: true},
		{name: "absolute elsewhere", path: other, outside: true},
		{name: "prefix sibling", path: root + "-sibling", outside: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := guard.Resolve(tt.path)
			if tt.outside {
				if !errors.Is(err, ErrOutsideWorkspace) {
					t.Fatalf("Resolve(%q) error = %v, want ErrOutsideWorkspace", tt.path, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) unexpected error: %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}

	if _, err := guard.Resolve(""); err == nil {
		t.Error("Resolve(\"\") should fail")
	}
}

func TestGuardSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	link := filepath.Join(root, "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	guard, err := NewGuard(root)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := guard.Resolve(link); !errors.Is(err, ErrOutsideWorkspace) {
		t.Errorf("symlink out of the project should be rejected, got %v", err)
	}
}

func TestGuardExtraRoots(t *testing.T) {
	root := t.TempDir()
	extra := t.TempDir()

	guard, err := NewGuard(root, extra)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := guard.Resolve(extra); err != nil {
		t.Errorf("extra root should be accepted: %v", err)
	}
	if !guard.Contains(filepath.Join(guard.Roots()[1], "sub")) {
		t.Error("Contains() should accept children of extra roots")
	}
}
