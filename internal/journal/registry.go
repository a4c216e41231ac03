package journal

import (
	"path/filepath"
	"sync"

	"go.uber.org/multierr"
)

// Registry hands out one open journal per git directory. A badger
// directory can only be opened once per process, so long-lived servers share
// journals through a Registry instead of opening them per request.
type Registry struct {
	mu       sync.Mutex
	opts     Options
	journals map[string]*Journal
}

func NewRegistry(opts Options) *Registry {
	return &Registry{
		opts:     opts,
		journals: make(map[string]*Journal),
	}
}

// For returns the journal kept in gitDir, opening it on first use.
func (r *Registry) For(gitDir string) (*Journal, error) {
	key := filepath.Clean(gitDir)

	r.mu.Lock()
	defer r.mu.Unlock()

	if j, ok := r.journals[key]; ok {
		return j, nil
	}
	j, err := Open(Dir(key), r.opts)
	if err != nil {
		return nil, err
	}
	r.journals[key] = j
	return j, nil
}

// Close closes every journal handed out so far.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	for key, j := range r.journals {
		err = multierr.Append(err, j.Close())
		delete(r.journals, key)
	}
	return err
}
