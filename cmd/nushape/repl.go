package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterh/liner"

	"github.com/nushape/nushape/internal/cli"
	"github.com/nushape/nushape/internal/lexer"
	"github.com/nushape/nushape/internal/shell"
)

const continuationPrompt = "... "

func cmdRepl(args []string) int {
	var g globalFlags
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	g.register(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, logger, err := g.openSession(ctx)
	if err != nil {
		logger.Error("%v", err)
		return 1
	}
	if err := s.WatchConfig(ctx); err != nil {
		logger.Warn("config changes will not be picked up: %v", err)
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(func(line string) []string {
		return complete(s, line)
	})

	cfg := s.Config()
	histPath := s.Env().HistoryPath
	loadHistory(ln, histPath, cfg.HistoryLimit, logger)
	defer saveHistory(ln, histPath, logger)

	info := cli.GetVersionInfo()
	fmt.Printf("nushape %s\n", info.Version)

	for {
		src, ok := readStatement(ln, s.Config().Prompt)
		if !ok {
			fmt.Println()
			return 0
		}
		if strings.TrimSpace(src) == "" {
			continue
		}
		if strings.TrimSpace(src) == "exit" {
			return 0
		}

		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))
		if err := s.Run(src, ""); err != nil {
			report(err, "", src)
		}
	}
}

// readStatement reads lines until every bracket opened so far is closed
func readStatement(ln *liner.State, prompt string) (string, bool) {
	var b strings.Builder

	for {
		p := prompt
		if b.Len() > 0 {
			p = continuationPrompt
		}
		line, err := ln.Prompt(p)
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if !unbalanced(b.String()) {
			return b.String(), true
		}
	}
}

// unbalanced reports whether src ends inside an open bracket
func unbalanced(src string) bool {
	depth := 0
	for _, tok := range lexer.Tokenize(src, "") {
		switch tok.Type {
		case lexer.TokenLBrace, lexer.TokenLBracket, lexer.TokenLParen, lexer.TokenInvocationStart:
			depth++
		case lexer.TokenRBrace, lexer.TokenRBracket, lexer.TokenRParen:
			depth--
		}
	}
	return depth > 0
}

// complete offers registered command names matching the last statement
func complete(s *shell.Session, line string) []string {
	start := strings.LastIndexAny(line, "|;") + 1
	head, word := line[:start], strings.TrimLeft(line[start:], " ")
	pad := line[start : len(line)-len(word)]

	var out []string
	for _, name := range s.Registry().Names() {
		if strings.HasPrefix(name, word) {
			out = append(out, head+pad+name)
		}
	}
	sort.Strings(out)
	return out
}

func loadHistory(ln *liner.State, path string, limit int, logger *cli.Logger) {
	f, err := os.Open(path)
	if err != nil {
		logger.Debug("no history at %s", path)
		return
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	for _, line := range lines {
		ln.AppendHistory(line)
	}
}

func saveHistory(ln *liner.State, path string, logger *cli.Logger) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger.Warn("cannot save history: %v", err)
		return
	}
	f, err := os.Create(path)
	if err != nil {
		logger.Warn("cannot save history: %v", err)
		return
	}
	defer f.Close()

	if _, err := ln.WriteHistory(f); err != nil && !errors.Is(err, io.EOF) {
		logger.Warn("cannot save history: %v", err)
	}
}
