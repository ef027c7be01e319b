package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/coregx/spamex/store"
	"github.com/coregx/spamex/stream"
)

// input is one document to match against.
type input struct {
	name string
	// data is the raw encoding, nil for remote and stored documents.
	data []byte
	open func(ctx context.Context) (stream.Source, error)
}

// fileInput reads path, or stdin for "-". The format follows the file
// extension; stdin is sniffed.
func fileInput(path string, stdin io.Reader) (input, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return input{}, fmt.Errorf("read %s: %w", path, err)
	}

	isJSON := false
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".ndjson", ".jsonl":
		isJSON = true
	case ".yaml", ".yml":
	default:
		isJSON = bytes.HasPrefix(bytes.TrimSpace(data), []byte("{"))
	}

	in := input{name: path, data: data}
	if isJSON {
		in.open = func(context.Context) (stream.Source, error) {
			return stream.NewJSONSource(bytes.NewReader(data)), nil
		}
	} else {
		in.open = func(context.Context) (stream.Source, error) {
			return stream.NewYAMLSource(bytes.NewReader(data))
		}
	}
	return in, nil
}

func websocketInput(url string) input {
	return input{
		name: url,
		open: func(ctx context.Context) (stream.Source, error) {
			return stream.Dial(ctx, url)
		},
	}
}

// storeInput reads a stored document. The store is opened per run and
// closed with the source.
func storeInput(dbPath, doc string) input {
	return input{
		name: dbPath + ":" + doc,
		open: func(context.Context) (stream.Source, error) {
			s, err := store.Open(dbPath, store.WithLogger(logger))
			if err != nil {
				return nil, err
			}
			src, err := s.Source(doc)
			if err != nil {
				s.Close()
				return nil, err
			}
			return &storeSource{Source: src, store: s}, nil
		},
	}
}

type storeSource struct {
	stream.Source
	store *store.Store
}

func (s *storeSource) Close() error {
	err := s.Source.Close()
	if cerr := s.store.Close(); err == nil {
		err = cerr
	}
	return err
}

// collectInputs resolves the command line inputs of match and check.
func collectInputs(paths []string, stdin io.Reader, wsURL, dbPath, doc string) ([]input, error) {
	var inputs []input
	for _, p := range paths {
		in, err := fileInput(p, stdin)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	if wsURL != "" {
		inputs = append(inputs, websocketInput(wsURL))
	}
	if doc != "" {
		inputs = append(inputs, storeInput(dbPath, doc))
	}
	if len(inputs) == 0 {
		in, err := fileInput("-", stdin)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}
