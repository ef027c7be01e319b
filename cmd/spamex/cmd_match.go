package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/coregx/spamex"
	"github.com/coregx/spamex/prefilter"
)

type matchOptions struct {
	global  bool
	json    bool
	noColor bool
	watch   bool
	wsURL   string
	dbPath  string
	doc     string
}

func newMatchCmd() *cobra.Command {
	var opts matchOptions

	cmd := &cobra.Command{
		Use:   "match PATTERN [FILE...]",
		Short: "Print the matches of a pattern in token documents",
		Long: `Print the matches of a pattern in one or more documents.

Documents are newline-delimited JSON token streams (.json, .ndjson) or
YAML tree documents (.yaml, .yml). Without files, stdin is read.

Exits with status 1 when nothing matched.

Examples:
  spamex match '<Call/>' doc.json
  spamex match -g '(<Bar/> | <Baz/>)+' doc.yaml
  spamex match '<? />' --ws ws://localhost:8080/
  spamex match '<Call/>' --db spamex.db --doc main`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.noColor {
				color.NoColor = true
			}
			config := spamex.DefaultConfig()
			config.Global = opts.global
			p, err := spamex.CompileWithConfig(args[0], config)
			if err != nil {
				return err
			}
			inputs, err := collectInputs(args[1:], cmd.InOrStdin(), opts.wsURL, opts.dbPath, opts.doc)
			if err != nil {
				return err
			}

			out := newPrinter(cmd.OutOrStdout(), opts.json)
			found, err := runMatch(cmd.Context(), out, p, prefilter.NewTracker(p.Prefilter()), inputs)
			if err != nil {
				return err
			}
			if opts.watch {
				return watchInputs(cmd.Context(), args[1:], func(path string) {
					in, err := fileInput(path, nil)
					if err != nil {
						logger.Error("Error reading input", zap.String("file", path), zap.Error(err))
						return
					}
					if _, err := runMatch(cmd.Context(), out, p, prefilter.NewTracker(nil), []input{in}); err != nil {
						logger.Error("Error matching input", zap.String("file", path), zap.Error(err))
					}
				})
			}
			if found == 0 {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&opts.global, "global", "g", false, "report every match instead of the first")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print matches as JSON lines")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "re-run when an input file changes")
	cmd.Flags().StringVar(&opts.wsURL, "ws", "", "read a document from a websocket token server")
	cmd.Flags().StringVar(&opts.dbPath, "db", "spamex.db", "document store path (with --doc)")
	cmd.Flags().StringVar(&opts.doc, "doc", "", "read a stored document")

	return cmd
}

// runMatch matches p against every input and returns the number of matches.
// Inputs the tracker's prefilter rejects are skipped without decoding.
func runMatch(ctx context.Context, out *printer, p *spamex.Pattern, tracker *prefilter.Tracker, inputs []input) (int, error) {
	total := 0
	for _, in := range inputs {
		if in.data != nil && !tracker.MayMatch(in.data) {
			logger.Debug("Input rejected by prefilter", zap.String("file", in.name), zap.Stringer("prefilter", p.Prefilter()))
			out.noMatch(in.name)
			continue
		}
		if in.data != nil {
			if start, end := p.Prefilter().Find(in.data); start >= 0 && end > start {
				logger.Debug("Prefilter hit",
					zap.String("file", in.name),
					zap.ByteString("type", in.data[start:end]),
					zap.Int("offset", start))
			}
		}

		n, err := matchInput(ctx, p, in, func(m spamex.Match) error {
			return out.match(in.name, "", p, m)
		})
		if err != nil {
			return total, fmt.Errorf("%s: %w", in.name, err)
		}
		if n == 0 {
			out.noMatch(in.name)
		} else if in.data != nil {
			tracker.ConfirmMatch()
		}
		total += n
	}
	return total, nil
}

func matchInput(ctx context.Context, p *spamex.Pattern, in input, report func(spamex.Match) error) (int, error) {
	src, err := in.open(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for m, err := range p.Matches(ctx, src, spamex.WithLogger(logger)) {
		if err != nil {
			return n, err
		}
		n++
		if err := report(m); err != nil {
			return n, err
		}
	}
	return n, nil
}

// watchInputs calls run for every write to one of paths until ctx is done.
// Bursts of writes within the debounce window are reported once.
func watchInputs(ctx context.Context, paths []string, run func(path string)) error {
	if len(paths) == 0 {
		return fmt.Errorf("--watch requires file arguments")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	watched := make(map[string]bool, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		watched[abs] = true
		// Editors replace files on save; watch the directory.
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("error adding %s to watcher: %w", p, err)
		}
	}

	const debounce = 100 * time.Millisecond
	pending := make(map[string]bool)
	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			abs, _ := filepath.Abs(event.Name)
			if !watched[abs] {
				continue
			}
			// The timer is armed by the first change only, so a file that
			// keeps changing is still rerun every debounce interval.
			if len(pending) == 0 {
				timer.Reset(debounce)
			}
			pending[event.Name] = true
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("Watch error", zap.Error(err))
		case <-timer.C:
			for path := range pending {
				logger.Info("Input changed", zap.String("file", path))
				run(path)
			}
			clear(pending)
		}
	}
}
