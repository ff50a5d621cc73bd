package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Workspace is a uniquely named scratch directory for one pipeline
// invocation. Chunk audio, the concat manifest, and any other intermediate
// file live under it, so concurrently processed documents can never
// collide and a single Close removes everything the invocation created.
type Workspace struct {
	root string
}

// NewWorkspace creates a fresh workspace under workDir. label is a short
// human hint for debugging; uniqueness comes from the UUID suffix.
func NewWorkspace(workDir, label string) (*Workspace, error) {
	if label == "" {
		label = "doc"
	}
	root := filepath.Join(workDir, fmt.Sprintf("%s-%s", label, uuid.New().String()))

	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	return &Workspace{root: root}, nil
}

// Root returns the workspace directory.
func (w *Workspace) Root() string {
	return w.root
}

// Path returns the location for a named file inside the workspace.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.root, name)
}

// ChunkPath returns the audio file location for one chunk index.
func (w *Workspace) ChunkPath(index int, ext string) string {
	return filepath.Join(w.root, fmt.Sprintf("chunk_%04d.%s", index, ext))
}

// Close removes the workspace and everything in it.
func (w *Workspace) Close() error {
	return os.RemoveAll(w.root)
}
