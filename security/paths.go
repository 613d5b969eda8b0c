package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Path policy errors.
var (
	// ErrPathOutsideRoot is returned for paths that escape the policy root.
	ErrPathOutsideRoot = errors.New("path escapes sandbox root")

	// ErrPathBlocked is returned for paths under an explicitly blocked prefix.
	ErrPathBlocked = errors.New("path is blocked")
)

// PathPolicy confines file access to a single root directory. Scripts only
// ever supply paths relative to the root; Resolve rejects anything that
// would land outside it after normalization.
type PathPolicy struct {
	mu      sync.RWMutex
	root    string
	blocked []string
}

// NewPathPolicy creates a policy rooted at dir. The root is normalized to an
// absolute path.
func NewPathPolicy(dir string) (*PathPolicy, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving sandbox root %q: %w", dir, err)
	}
	return &PathPolicy{root: filepath.Clean(abs)}, nil
}

// Root returns the policy root.
func (p *PathPolicy) Root() string {
	return p.root
}

// Block adds a path prefix (relative to the root) that Resolve will refuse
// even though it is inside the root.
func (p *PathPolicy) Block(rel string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blocked = append(p.blocked, filepath.Join(p.root, filepath.Clean(rel)))
}

// Resolve maps a script-supplied relative path to an absolute path inside
// the root. Absolute inputs and ".." escapes are rejected.
func (p *PathPolicy) Resolve(rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %q", ErrPathOutsideRoot, rel)
	}

	abs := filepath.Clean(filepath.Join(p.root, rel))
	if abs != p.root && !strings.HasPrefix(abs, p.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrPathOutsideRoot, rel)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, b := range p.blocked {
		if abs == b || strings.HasPrefix(abs, b+string(filepath.Separator)) {
			return "", fmt.Errorf("%w: %q", ErrPathBlocked, rel)
		}
	}

	return abs, nil
}
