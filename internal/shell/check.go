package shell

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/nushape/nushape/internal/alias"
	"github.com/nushape/nushape/internal/cli"
	"github.com/nushape/nushape/internal/commands"
	"github.com/nushape/nushape/internal/diagnostic"
	"github.com/nushape/nushape/internal/engine"
	nserrors "github.com/nushape/nushape/internal/errors"
	"github.com/nushape/nushape/internal/hir"
	"github.com/nushape/nushape/internal/parser"
	"github.com/nushape/nushape/internal/position"
)

// FileReport holds the problems found in one script
type FileReport struct {
	File     string
	Source   *position.SourceFile
	Errors   []error
	Warnings []*diagnostic.Diagnostic
}

// Check parses every file and infers every alias it declares without running
// anything else. Files are independent and are checked concurrently, at most
// limit at a time (limit <= 0 means no limit).
func Check(ctx context.Context, files []string, limit int, logger *cli.Logger) (*diagnostic.Collector, error) {
	reports := make([]FileReport, len(files))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reports[i] = checkFile(file, logger)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c := diagnostic.NewCollector()
	for _, r := range reports {
		if r.Source != nil {
			c.AddSource(r.Source)
		}
		for _, err := range r.Errors {
			c.AddError(err)
		}
		for _, d := range r.Warnings {
			c.Add(d)
		}
	}
	return c, nil
}

func checkFile(file string, logger *cli.Logger) FileReport {
	data, err := os.ReadFile(file)
	if err != nil {
		return FileReport{File: file, Errors: []error{nserrors.RuntimeError("cannot read "+file+": "+err.Error(), position.Span{})}}
	}
	return CheckSource(string(data), file, logger)
}

type discardSaver struct{}

func (discardSaver) SaveAlias(string, string) error { return nil }

// CheckSource reports every parse and alias inference error in src, plus a
// warning for each command that is not known where it is used. Alias
// declarations are evaluated so later statements see them; nothing else runs.
func CheckSource(src, filename string, logger *cli.Logger) FileReport {
	reg := engine.NewRegistry()
	commands.Register(reg)
	reg.Register(&alias.DeclareCommand{Saver: discardSaver{}})

	ctx := engine.NewContext(reg, DefaultEnv(), io.Discard, logger)
	ctx.Source = src

	report := FileReport{File: filename, Source: position.NewSourceFile(filename, src)}
	p := parser.New(src, filename, reg)
	for {
		block, ok, err := p.ParseNext()
		if !ok {
			return report
		}
		if err != nil {
			report.Errors = append(report.Errors, err)
			continue
		}
		report.Warnings = append(report.Warnings, unknownCommands(block)...)
		if !isDeclaration(block) {
			continue
		}
		if _, err := engine.RunBlock(ctx, block, nil); err != nil {
			report.Errors = append(report.Errors, err)
		}
	}
}

func unknownCommands(block *hir.Block) []*diagnostic.Diagnostic {
	var out []*diagnostic.Diagnostic
	hir.Walk(block, func(n hir.Node) bool {
		if d, ok := n.(*hir.DynamicCommand); ok {
			out = append(out, diagnostic.New().Warning().
				Code(nserrors.CodeCommandNotFound).
				Title("Unknown command").
				Message(fmt.Sprintf("'%s' is not a known command", d.Name)).
				Span(d.Span).
				Build())
		}
		return true
	})
	return out
}

// isDeclaration reports whether block is a lone alias statement
func isDeclaration(block *hir.Block) bool {
	if len(block.Pipelines) != 1 || len(block.Pipelines[0].Commands) != 1 {
		return false
	}
	cmd, ok := block.Pipelines[0].Commands[0].(*hir.InternalCommand)
	return ok && cmd.Name == "alias"
}
