package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/coregx/spamex"
	"github.com/coregx/spamex/tree"
)

var (
	fileStyle = color.New(color.FgCyan, color.Bold)
	spanStyle = color.New(color.FgYellow)
	ruleStyle = color.New(color.FgMagenta, color.Bold)
	tagStyle  = color.New(color.FgGreen, color.Bold)
	noStyle   = color.New(color.FgRed)
)

type matchRecord struct {
	File    string `json:"file"`
	Rule    string `json:"rule,omitempty"`
	Pattern string `json:"pattern"`
	Type    string `json:"type"`
	Tag     string `json:"tag"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

type printer struct {
	w    io.Writer
	json bool
	enc  *json.Encoder
}

func newPrinter(w io.Writer, asJSON bool) *printer {
	return &printer{w: w, json: asJSON, enc: json.NewEncoder(w)}
}

func (p *printer) match(file, rule string, pat *spamex.Pattern, m spamex.Match) error {
	rec := matchRecord{
		File:    file,
		Rule:    rule,
		Pattern: pat.String(),
		Tag:     tree.PrintOpenTag(m.Captures),
		Start:   m.Start,
		End:     m.End,
	}
	if m.Captures != nil {
		rec.Type = m.Captures.Type()
	}
	if p.json {
		return p.enc.Encode(rec)
	}

	fileStyle.Fprint(p.w, rec.File)
	fmt.Fprint(p.w, ":")
	spanStyle.Fprintf(p.w, "%d-%d", rec.Start, rec.End)
	if rule != "" {
		fmt.Fprint(p.w, " ")
		ruleStyle.Fprintf(p.w, "[%s]", rule)
	}
	fmt.Fprint(p.w, " ")
	tagStyle.Fprintln(p.w, rec.Tag)
	return nil
}

func (p *printer) noMatch(file string) {
	if p.json {
		return
	}
	fileStyle.Fprint(p.w, file)
	fmt.Fprint(p.w, ": ")
	noStyle.Fprintln(p.w, "no match")
}
