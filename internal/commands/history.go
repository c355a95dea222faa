package commands

import (
	"bufio"
	"os"
	"strings"

	nserrors "github.com/nushape/nushape/internal/errors"
	"github.com/nushape/nushape/internal/engine"
	"github.com/nushape/nushape/internal/parser"
	"github.com/nushape/nushape/internal/shape"
)

// History outputs the lines of the history file. With --structured each
// line is parsed against the current registry and emitted as a block; lines
// that no longer parse are skipped.
type History struct{}

func (h *History) Name() string  { return "history" }
func (h *History) Usage() string { return "Display command history." }
func (h *History) Signature() *shape.Signature {
	return shape.Build("history").Desc(h.Usage()).
		Switch("structured", "output retrieved history as blocks", 's')
}

func (h *History) Run(ctx *engine.Context, args *engine.CallArgs, input []engine.Value) ([]engine.Value, error) {
	f, err := os.Open(ctx.Env.HistoryPath)
	if err != nil {
		return nil, nserrors.RuntimeError("Could not open history", args.Span)
	}
	defer f.Close()

	structured := args.Switches["structured"]
	var out []engine.Value

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !structured {
			out = append(out, line)
			continue
		}

		block, err := parser.Parse(line, ctx.Env.HistoryPath, ctx.Registry)
		if err != nil {
			ctx.Logger.Debug("history: skipping %q: %v", line, err)
			continue
		}
		out = append(out, &engine.BlockValue{Block: block, Source: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, nserrors.RuntimeError("Could not read history: "+err.Error(), args.Span)
	}
	return out, nil
}
