package engine

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/nushape/nushape/internal/position"
	"github.com/nushape/nushape/internal/shape"
)

// CallArgs holds the evaluated arguments of a command call
type CallArgs struct {
	Name       string
	Span       position.Span
	Positional []Value
	Named      map[string]Value
	Switches   map[string]bool
}

// Nth returns the positional argument at i, or nil when absent
func (a *CallArgs) Nth(i int) Value {
	if i < len(a.Positional) {
		return a.Positional[i]
	}
	return nil
}

// Has reports whether a switch was given or a flag carries a value
func (a *CallArgs) Has(flag string) bool {
	if a.Switches[flag] {
		return true
	}
	_, ok := a.Named[flag]
	return ok
}

// Command is implemented by every builtin and by aliases
type Command interface {
	Name() string
	Signature() *shape.Signature
	Usage() string
	Run(ctx *Context, args *CallArgs, input []Value) ([]Value, error)
}

var scopeSeq atomic.Uint64

// ScopedCommand is the handle a command name resolves to at a point in time.
// Handles compare by identity: re-registering a name creates a new handle
// while existing holders keep the old one.
type ScopedCommand struct {
	id  uint64
	cmd Command
}

// NewScopedCommand wraps cmd in a fresh handle
func NewScopedCommand(cmd Command) *ScopedCommand {
	return &ScopedCommand{id: scopeSeq.Add(1), cmd: cmd}
}

// ID returns the handle's unique identifier
func (s *ScopedCommand) ID() uint64 { return s.id }

// Command returns the wrapped command
func (s *ScopedCommand) Command() Command { return s.cmd }

// Registry maps command names to their current scope handles
type Registry struct {
	mu       sync.RWMutex
	commands map[string]*ScopedCommand
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]*ScopedCommand)}
}

// Register binds cmd under its name, replacing any previous binding
func (r *Registry) Register(cmd Command) *ScopedCommand {
	sc := NewScopedCommand(cmd)
	r.SetScope(cmd.Name(), sc)
	return sc
}

// SetScope binds name to an existing handle
func (r *Registry) SetScope(name string, sc *ScopedCommand) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[name] = sc
}

// Has reports whether name is bound
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.commands[name]
	return ok
}

// Get returns the signature of the command bound to name
func (r *Registry) Get(name string) (*shape.Signature, bool) {
	sc, ok := r.GetScope(name)
	if !ok {
		return nil, false
	}
	return sc.cmd.Signature(), true
}

// GetScope returns the handle name currently resolves to
func (r *Registry) GetScope(name string) (*ScopedCommand, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sc, ok := r.commands[name]
	return sc, ok
}

// Lookup returns the command bound to name
func (r *Registry) Lookup(name string) (Command, bool) {
	sc, ok := r.GetScope(name)
	if !ok {
		return nil, false
	}
	return sc.cmd, true
}

// Clone returns an independent registry sharing the same handles
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := &Registry{commands: make(map[string]*ScopedCommand, len(r.commands))}
	for name, sc := range r.commands {
		out.commands[name] = sc
	}
	return out
}

// Names returns every bound name, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
