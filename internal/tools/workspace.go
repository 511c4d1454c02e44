package tools

import (
	"path/filepath"
)

// Workspace is the mutable state shared by the file tools: the working
// root all paths resolve against, and the set of paths the session has
// read. The read set backs the read-before-write policy: a file may only
// be overwritten or patched after its current content has been observed.
//
// A Workspace is owned by the single loop goroutine; no locking.
type Workspace struct {
	root    string
	readSet map[string]struct{}
}

// NewWorkspace creates a workspace rooted at dir. The root is resolved to
// an absolute, symlink-free path once so Resolve is a fixed point for
// paths under it.
func NewWorkspace(dir string) (*Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return &Workspace{
		root:    abs,
		readSet: make(map[string]struct{}),
	}, nil
}

// Root returns the absolute working root.
func (w *Workspace) Root() string {
	return w.root
}

// Resolve maps a path to an absolute path under the root. Relative paths
// join the root; absolute paths pass through cleaned. Resolution never
// fails and is idempotent: Resolve(Resolve(p)) == Resolve(p).
//
// Confinement is not enforced here; a ".." path can escape the root. The
// agent runs with the operator's own privileges on the operator's own
// machine, so the resolver favors predictability over jailing.
func (w *Workspace) Resolve(path string) string {
	p := path
	if !filepath.IsAbs(p) {
		p = filepath.Join(w.root, p)
	}
	p = filepath.Clean(p)
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		p = resolved
	}
	return p
}

// MarkRead records that the session has observed the current content of
// an absolute path. Writing a file also marks it: content the session
// just produced counts as known.
func (w *Workspace) MarkRead(absPath string) {
	w.readSet[absPath] = struct{}{}
}

// IsRead reports whether an absolute path's content has been observed.
func (w *Workspace) IsRead(absPath string) bool {
	_, ok := w.readSet[absPath]
	return ok
}

// ReadCount returns the number of observed paths, for logging.
func (w *Workspace) ReadCount() int {
	return len(w.readSet)
}
