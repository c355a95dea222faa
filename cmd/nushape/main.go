// Package main provides the nushape command line: an interactive shell plus
// script runner and alias checker.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/nushape/nushape/internal/cli"
	"github.com/nushape/nushape/internal/config"
	"github.com/nushape/nushape/internal/diagnostic"
	"github.com/nushape/nushape/internal/position"
	"github.com/nushape/nushape/internal/shape"
	"github.com/nushape/nushape/internal/shell"
)

const tool = "nushape"

var commands = []cli.CommandInfo{
	{
		Name:        "repl",
		Usage:       "nushape repl [--config FILE] [--verbose] [--debug]",
		Description: "Start the interactive shell (default)",
	},
	{
		Name:        "run",
		Usage:       "nushape run [-c SOURCE] [FILE]",
		Description: "Run a script file or a source string",
		Flags: []cli.FlagInfo{
			{Name: "command", Short: "c", Usage: "source to run instead of a file"},
		},
		Examples: []string{"nushape run build.nu", "nushape run -c 'echo 1 2 | to json'"},
	},
	{
		Name:        "check",
		Usage:       "nushape check [-j N] FILE...",
		Description: "Parse scripts and infer their aliases without running them",
		Flags: []cli.FlagInfo{
			{Name: "jobs", Short: "j", Usage: "files checked in parallel", Default: "GOMAXPROCS"},
		},
	},
	{
		Name:        "aliases",
		Usage:       "nushape aliases [--json]",
		Description: "List aliases defined by the config startup lines",
		Flags: []cli.FlagInfo{
			{Name: "json", Usage: "include inferred shapes and captured commands as JSON"},
		},
	},
	{
		Name:        "config",
		Usage:       "nushape config path|show",
		Description: "Show the config file location or contents",
	},
	{
		Name:        "version",
		Usage:       "nushape version [--json]",
		Description: "Show version information",
	},
}

func main() {
	sub := "repl"
	var args []string
	if len(os.Args) > 1 {
		sub, args = os.Args[1], os.Args[2:]
	}

	switch sub {
	case "help", "-h", "--help":
		if len(args) > 0 {
			if cmd, ok := cli.FindCommand(commands, args[0]); ok {
				cli.PrintCommandUsage(os.Stdout, tool, cmd)
				return
			}
		}
		cli.PrintUsage(os.Stdout, tool, commands)
	case "version", "-v", "--version":
		fs := flag.NewFlagSet("version", flag.ExitOnError)
		jsonOutput := fs.Bool("json", false, "output version in JSON format")
		_ = fs.Parse(args)
		cli.PrintVersion(os.Stdout, "nushape", *jsonOutput)
	case "repl":
		os.Exit(cmdRepl(args))
	case "run":
		os.Exit(cmdRun(args))
	case "check":
		os.Exit(cmdCheck(args))
	case "aliases":
		os.Exit(cmdAliases(args))
	case "config":
		os.Exit(cmdConfig(args))
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand: %s\n", sub)
		cli.PrintUsage(os.Stderr, tool, commands)
		os.Exit(2)
	}
}

// globalFlags are accepted by every subcommand that opens a session
type globalFlags struct {
	configPath string
	verbose    bool
	debug      bool
}

func (g *globalFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&g.configPath, "config", "", "config file (default $NUSHAPE_CONFIG or the user config dir)")
	fs.BoolVar(&g.verbose, "verbose", false, "enable verbose output")
	fs.BoolVar(&g.debug, "debug", false, "enable debug output")
}

func (g *globalFlags) store() (*config.Store, error) {
	path := g.configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return config.NewStore(path), nil
}

// openSession creates a session bound to the config and replays its startup
// lines. Startup failures are logged by the session and do not abort.
func (g *globalFlags) openSession(ctx context.Context) (*shell.Session, *cli.Logger, error) {
	logger := cli.NewLogger(g.verbose, g.debug)
	store, err := g.store()
	if err != nil {
		return nil, logger, err
	}

	s := shell.NewSession(shell.Options{Store: store, Out: os.Stdout, Logger: logger})
	if err := s.RunStartup(ctx); err != nil {
		logger.Debug("startup finished with errors")
	}
	return s, logger, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func report(err error, filename, src string) {
	d := diagnostic.FromError(err)
	fmt.Fprint(os.Stderr, diagnostic.Render(d, position.NewSourceFile(filename, src)))
}

func cmdRun(args []string) int {
	var g globalFlags
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	g.register(fs)
	source := fs.String("c", "", "source to run instead of a file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	filename, src := "", *source
	if src == "" {
		if fs.NArg() != 1 {
			cmd, _ := cli.FindCommand(commands, "run")
			cli.PrintCommandUsage(os.Stderr, tool, cmd)
			return 2
		}
		filename = fs.Arg(0)
		data, err := os.ReadFile(filename)
		if err != nil {
			cli.ExitWithError("cannot read %s: %v", filename, err)
		}
		src = string(data)
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, logger, err := g.openSession(ctx)
	cli.HandleError(err, logger)
	if err := s.Run(src, filename); err != nil {
		report(err, filename, src)
		return 1
	}
	return 0
}

func cmdCheck(args []string) int {
	var g globalFlags
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	g.register(fs)
	jobs := fs.Int("j", runtime.GOMAXPROCS(0), "files checked in parallel")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		cmd, _ := cli.FindCommand(commands, "check")
		cli.PrintCommandUsage(os.Stderr, tool, cmd)
		return 2
	}

	ctx, cancel := signalContext()
	defer cancel()

	logger := cli.NewLogger(g.verbose, g.debug)
	logger.Info("checking %d file(s) with %d job(s)", fs.NArg(), *jobs)

	c, err := shell.Check(ctx, fs.Args(), *jobs, logger)
	if err != nil {
		logger.Error("%v", err)
		return 1
	}
	fmt.Print(c.Format())
	if c.HasErrors() {
		return 1
	}
	return 0
}

type aliasParam struct {
	Name  string            `json:"name"`
	Shape shape.SyntaxShape `json:"shape"`
}

type aliasInfo struct {
	Name     string       `json:"name"`
	Params   []aliasParam `json:"params"`
	Captures []string     `json:"captures"`
	Body     string       `json:"body"`
}

func cmdAliases(args []string) int {
	var g globalFlags
	fs := flag.NewFlagSet("aliases", flag.ContinueOnError)
	g.register(fs)
	jsonOutput := fs.Bool("json", false, "print inferred shapes and captured commands as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	s, logger, err := g.openSession(context.Background())
	cli.HandleError(err, logger)

	if !*jsonOutput {
		for _, def := range s.Aliases() {
			fmt.Println(def.String())
		}
		return 0
	}

	infos := []aliasInfo{}
	for _, def := range s.Aliases() {
		info := aliasInfo{Name: def.Name, Captures: def.CapturedCommands(), Body: def.Body.String()}
		for _, p := range def.Params {
			info.Params = append(info.Params, aliasParam{Name: p, Shape: def.Shapes[p]})
		}
		infos = append(infos, info)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	cli.HandleError(enc.Encode(infos), logger)
	return 0
}

func cmdConfig(args []string) int {
	var g globalFlags
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	g.register(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	store, err := g.store()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	switch fs.Arg(0) {
	case "path":
		fmt.Println(store.Path())
	case "show", "":
		cfg, err := store.Load(context.Background())
		if err != nil {
			report(err, store.Path(), "")
			return 1
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Print(string(out))
	default:
		cmd, _ := cli.FindCommand(commands, "config")
		cli.PrintCommandUsage(os.Stderr, tool, cmd)
		return 2
	}
	return 0
}
