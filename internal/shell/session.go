// Package shell ties the parser, evaluator, builtins, aliases and config
// together into an interactive session.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/nushape/nushape/internal/alias"
	"github.com/nushape/nushape/internal/cli"
	"github.com/nushape/nushape/internal/commands"
	"github.com/nushape/nushape/internal/config"
	"github.com/nushape/nushape/internal/engine"
	"github.com/nushape/nushape/internal/parser"
)

// Options configures a new session. Zero values select defaults.
type Options struct {
	Store  *config.Store
	Env    *engine.Env
	Out    io.Writer
	Logger *cli.Logger
}

// Session is one shell: a registry of commands, a variable scope and the
// environment they run in. Evaluation is serialized.
type Session struct {
	mu     sync.Mutex
	reg    *engine.Registry
	ctx    *engine.Context
	store  *config.Store
	logger *cli.Logger
	cfg    *config.Config
}

// DefaultEnv returns an environment rooted at the process working directory
func DefaultEnv() *engine.Env {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "/"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = cwd
	}
	return &engine.Env{Cwd: cwd, Home: home}
}

// NewSession creates a session with every builtin and the alias command
// registered
func NewSession(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = cli.NewLogger(false, false)
	}
	env := opts.Env
	if env == nil {
		env = DefaultEnv()
	}

	reg := engine.NewRegistry()
	commands.Register(reg)
	declare := &alias.DeclareCommand{}
	if opts.Store != nil {
		declare.Saver = opts.Store
		if env.HistoryPath == "" {
			env.HistoryPath = opts.Store.HistoryPath(nil)
		}
	}
	reg.Register(declare)

	return &Session{
		reg:    reg,
		ctx:    engine.NewContext(reg, env, opts.Out, logger),
		store:  opts.Store,
		logger: logger,
		cfg:    config.Default(),
	}
}

// Registry returns the session's command registry
func (s *Session) Registry() *engine.Registry { return s.reg }

// Env returns the session environment
func (s *Session) Env() *engine.Env { return s.ctx.Env }

// Config returns the last loaded configuration
func (s *Session) Config() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Eval runs src statement by statement and returns the output of the last
// one. Each statement is parsed only after the previous one ran, so aliases
// defined earlier in src are callable later in it.
func (s *Session) Eval(src, filename string) ([]engine.Value, error) {
	var last []engine.Value
	err := s.exec(src, filename, func(out []engine.Value) {
		last = out
	})
	return last, err
}

// Run is like Eval but prints the output of every statement
func (s *Session) Run(src, filename string) error {
	return s.exec(src, filename, s.print)
}

func (s *Session) exec(src, filename string, emit func([]engine.Value)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := parser.New(src, filename, s.reg)
	s.ctx.Source = src
	for {
		block, ok, err := p.ParseNext()
		if !ok {
			return nil
		}
		if err != nil {
			return err
		}

		out, err := engine.RunBlock(s.ctx, block, nil)
		if err != nil {
			return err
		}
		emit(out)
	}
}

func (s *Session) print(values []engine.Value) {
	for _, v := range values {
		if v == nil {
			continue
		}
		fmt.Fprintln(s.ctx.Out, engine.Format(v))
	}
}

// RunStartup loads the config and evaluates its startup lines. A failing
// line is reported and skipped; the joined line errors are returned.
func (s *Session) RunStartup(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	cfg, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	s.applyConfig(cfg)
	return s.replay(cfg, func(string) bool { return true })
}

func (s *Session) applyConfig(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.ctx.Env.HistoryPath = s.store.HistoryPath(cfg)
}

func (s *Session) replay(cfg *config.Config, keep func(line string) bool) error {
	var errs []error
	for i, line := range cfg.Startup {
		if !keep(line) {
			continue
		}
		if _, err := s.Eval(line, s.store.Path()); err != nil {
			s.logger.Warn("startup line %d: %v", i+1, err)
			errs = append(errs, fmt.Errorf("startup line %d: %w", i+1, err))
		}
	}
	return errors.Join(errs...)
}

// WatchConfig re-applies the config whenever the file changes. Only alias
// declarations are replayed; other startup lines ran once already.
func (s *Session) WatchConfig(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.Watch(ctx, func(cfg *config.Config, err error) {
		if err != nil {
			s.logger.Warn("config reload failed: %v", err)
			return
		}
		s.applyConfig(cfg)
		s.replay(cfg, func(line string) bool {
			_, ok := config.AliasName(line)
			return ok
		})
		s.logger.Info("config reloaded from %s", s.store.Path())
	})
}

// Aliases returns the aliases currently bound in the session, sorted by name
func (s *Session) Aliases() []*alias.Definition {
	var defs []*alias.Definition
	for _, name := range s.reg.Names() {
		cmd, ok := s.reg.Lookup(name)
		if !ok {
			continue
		}
		if a, ok := cmd.(*alias.Command); ok {
			defs = append(defs, a.Definition())
		}
	}
	return defs
}
