package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/peterh/liner"

	"github.com/CTAG07/ngramtext/pkg/markov"
)

const shellHelp = `Enter a seed phrase to generate text from it. The last tokens of the
phrase are used as the seed (one for order 2, two for order 3); with order 1
any line generates.

  :order N    switch model order (1, 2 or 3)
  :n N        set the number of tokens per line
  :help       show this help
  :quit       leave the shell (^D works too)
`

// shellSession is the mutable state of one interactive session.
type shellSession struct {
	app    *app
	models *markov.Models
	gen    *generationFlags
}

func (a *app) runShell(ctx context.Context, args []string) error {
	fs := a.newFlagSet("shell")
	src := corpusFlags(fs)
	gen := a.generationFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	models, err := a.loadModels(ctx, src)
	if err != nil {
		return err
	}
	if _, err = models.Chain(gen.order); err != nil {
		return err
	}
	session := &shellSession{app: a, models: models, gen: gen}

	input := liner.NewLiner()
	defer input.Close()
	input.SetCtrlCAborts(true)

	historyPath := a.config.ShellHistoryPath
	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			_, _ = input.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			var buf bytes.Buffer
			if _, err := input.WriteHistory(&buf); err == nil {
				if err = atomic.WriteFile(historyPath, &buf); err != nil {
					a.logger.Warn("Failed to save shell history", "path", historyPath, "error", err)
				}
			}
		}()
	}

	stats := models.Unigram.Stats()
	_, _ = fmt.Fprintf(a.stdout, "Trained on %d tokens (%d distinct). Type :help for commands.\n",
		stats.TotalFrequency, stats.Vocabulary)

	for ctx.Err() == nil {
		line, err := input.Prompt(fmt.Sprintf("ngramtext[%d]> ", session.gen.order))
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		} else if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		input.AppendHistory(line)

		if quit := session.handle(ctx, line); quit {
			break
		}
	}
	return nil
}

// handle runs one shell line and reports whether the session should end.
// Errors are printed, never fatal.
func (s *shellSession) handle(ctx context.Context, line string) bool {
	out := s.app.stdout

	if !strings.HasPrefix(line, ":") {
		if err := s.generate(ctx, line); err != nil {
			_, _ = fmt.Fprintf(out, "error: %v\n", err)
		}
		return false
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":q", ":exit":
		return true
	case ":help":
		_, _ = fmt.Fprint(out, shellHelp)
	case ":order", ":n":
		if len(fields) != 2 {
			_, _ = fmt.Fprintf(out, "usage: %s N\n", fields[0])
			return false
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			_, _ = fmt.Fprintf(out, "error: %v\n", err)
			return false
		}
		if fields[0] == ":n" {
			if n < markov.MinLength(s.gen.order) {
				_, _ = fmt.Fprintf(out, "error: order %d needs at least %d tokens\n", s.gen.order, markov.MinLength(s.gen.order))
				return false
			}
			s.gen.length = n
			return false
		}
		if _, err = s.models.Chain(n); err != nil {
			_, _ = fmt.Fprintf(out, "error: %v\n", err)
			return false
		}
		s.gen.order = n
		if minLen := markov.MinLength(n); s.gen.length < minLen {
			s.gen.length = minLen
			_, _ = fmt.Fprintf(out, "length raised to %d for order %d\n", minLen, n)
		}
	default:
		_, _ = fmt.Fprintf(out, "unknown command %s (try :help)\n", fields[0])
	}
	return false
}

// generate runs one walk seeded from phrase and prints it as a single line.
// A walk that fails partway prints nothing but the error.
func (s *shellSession) generate(ctx context.Context, phrase string) error {
	chain, err := s.models.Chain(s.gen.order)
	if err != nil {
		return err
	}
	seed, err := seedTokens(s.app.tokenizer, phrase, s.gen.order)
	if err != nil {
		return err
	}

	stream, err := s.app.generator.GenerateStream(ctx, chain, seed, s.gen.length, s.gen.options()...)
	if err != nil {
		return err
	}

	var line strings.Builder
	prev := ""
	for token := range stream.C {
		if line.Len() > 0 {
			line.WriteString(s.app.tokenizer.Separator(prev, token))
		}
		line.WriteString(token)
		prev = token
	}
	if err = stream.Err(); err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	_, err = fmt.Fprintln(s.app.stdout, strings.TrimSpace(line.String()))
	return err
}
