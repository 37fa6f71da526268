package git

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"
)

// initRepo creates a local repo with the given origin URL.
func initRepo(t *testing.T, dir, origin string) {
	t.Helper()
	cmds := [][]string{
		{"git", "init", "-b", "main", dir},
		{"git", "-C", dir, "remote", "add", "origin", origin},
	}
	for _, args := range cmds {
		if out, err := exec.Command(args[0], args[1:]...).CombinedOutput(); err != nil {
			t.Fatalf("%v: %s", err, out)
		}
	}
}

func TestRemoteURL(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	initRepo(t, dir, "git@github.com:schaermu/repohealth.git")

	client := NewShellClient()
	url, err := client.RemoteURL(ctx, dir, "origin")
	if err != nil {
		t.Fatalf("RemoteURL: %v", err)
	}
	if url != "git@github.com:schaermu/repohealth.git" {
		t.Errorf("unexpected remote URL %q", url)
	}

	if _, err := client.RemoteURL(ctx, dir, "upstream"); err == nil {
		t.Error("expected error for unknown remote")
	}
}

func TestTopLevel(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	initRepo(t, dir, "https://github.com/schaermu/repohealth")

	sub := filepath.Join(dir, "docs")
	if out, err := exec.Command("mkdir", "-p", sub).CombinedOutput(); err != nil {
		t.Fatalf("%v: %s", err, out)
	}

	got, err := NewShellClient().TopLevel(ctx, sub)
	if err != nil {
		t.Fatalf("TopLevel: %v", err)
	}

	// t.TempDir may sit behind a symlink (macOS /var -> /private/var)
	want, _ := filepath.EvalSymlinks(dir)
	gotResolved, _ := filepath.EvalSymlinks(got)
	if gotResolved != want {
		t.Errorf("TopLevel = %q, want %q", gotResolved, want)
	}
}

func TestTopLevel_NotARepository(t *testing.T) {
	if _, err := NewShellClient().TopLevel(context.Background(), t.TempDir()); err == nil {
		t.Error("expected error outside a git repository")
	}
}

func TestParseRepository(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{name: "ssh scp form", url: "git@github.com:schaermu/repohealth.git", wantOwner: "schaermu", wantRepo: "repohealth"},
		{name: "https with .git", url: "https://github.com/olivetin/OliveTin.git", wantOwner: "olivetin", wantRepo: "OliveTin"},
		{name: "https trailing newline", url: "https://github.com/a-b/c_d\n", wantOwner: "a-b", wantRepo: "c_d"},
		{name: "ssh url form", url: "ssh://git@github.com/owner/repo.name.git", wantOwner: "owner", wantRepo: "repo.name"},
		{name: "no path", url: "git@github.com:", wantErr: true},
		{name: "empty", url: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, err := ParseRepository(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRepository(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if owner != tt.wantOwner || repo != tt.wantRepo {
				t.Errorf("ParseRepository(%q) = %q/%q, want %q/%q", tt.url, owner, repo, tt.wantOwner, tt.wantRepo)
			}
		})
	}
}
