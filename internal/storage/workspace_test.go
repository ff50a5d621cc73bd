package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWorkspaceUniqueRoots(t *testing.T) {
	workDir := t.TempDir()

	a, err := NewWorkspace(workDir, "book")
	if err != nil {
		t.Fatalf("failed to create workspace: %v", err)
	}
	defer a.Close()

	b, err := NewWorkspace(workDir, "book")
	if err != nil {
		t.Fatalf("failed to create workspace: %v", err)
	}
	defer b.Close()

	if a.Root() == b.Root() {
		t.Errorf("two workspaces with the same label share a root: %s", a.Root())
	}
}

func TestWorkspacePaths(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir(), "doc")
	if err != nil {
		t.Fatalf("failed to create workspace: %v", err)
	}
	defer ws.Close()

	p := ws.ChunkPath(7, "mp3")
	if filepath.Base(p) != "chunk_0007.mp3" {
		t.Errorf("unexpected chunk file name: %s", filepath.Base(p))
	}
	if !strings.HasPrefix(p, ws.Root()) {
		t.Errorf("chunk path %s escapes workspace %s", p, ws.Root())
	}

	if filepath.Dir(ws.Path("concat_list.txt")) != ws.Root() {
		t.Errorf("named path not inside workspace")
	}
}

func TestWorkspaceCloseRemovesEverything(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir(), "doc")
	if err != nil {
		t.Fatalf("failed to create workspace: %v", err)
	}

	if err := os.WriteFile(ws.ChunkPath(0, "mp3"), []byte("audio"), 0644); err != nil {
		t.Fatalf("failed to write chunk file: %v", err)
	}

	if err := ws.Close(); err != nil {
		t.Fatalf("failed to close workspace: %v", err)
	}

	if _, err := os.Stat(ws.Root()); !os.IsNotExist(err) {
		t.Errorf("workspace root still exists after Close")
	}
}
