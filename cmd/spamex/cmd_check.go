package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/coregx/spamex"
	"github.com/coregx/spamex/prefilter"
)

// RuleSet is a YAML rule file:
//
//	name: my-rules
//	rules:
//	  - name: all-calls
//	    pattern: "<Call/>"
//	    global: true
type RuleSet struct {
	Name  string `yaml:"name"`
	Rules []Rule `yaml:"rules"`
}

// Rule is a named pattern.
type Rule struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
	Global  bool   `yaml:"global"`
}

var errNoRules = errors.New("rule file has no rules")

func loadRules(path string) (*RuleSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rs RuleSet
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&rs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(rs.Rules) == 0 {
		return nil, fmt.Errorf("%s: %w", path, errNoRules)
	}
	for i, r := range rs.Rules {
		if r.Name == "" {
			return nil, fmt.Errorf("%s: rule %d has no name", path, i)
		}
	}
	return &rs, nil
}

type compiledRule struct {
	Rule
	pattern *spamex.Pattern
	tracker *prefilter.Tracker
}

func compileRules(rs *RuleSet) ([]compiledRule, error) {
	out := make([]compiledRule, 0, len(rs.Rules))
	for _, r := range rs.Rules {
		config := spamex.DefaultConfig()
		config.Global = r.Global
		p, err := spamex.CompileWithConfig(r.Pattern, config)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.Name, err)
		}
		out = append(out, compiledRule{Rule: r, pattern: p, tracker: prefilter.NewTracker(p.Prefilter())})
	}
	return out, nil
}

func newCheckCmd() *cobra.Command {
	var (
		rulesPath string
		asJSON    bool
		noColor   bool
	)

	cmd := &cobra.Command{
		Use:   "check --config rules.yaml [FILE...]",
		Short: "Run every rule of a rule file against documents",
		Long: `Run every rule of a YAML rule file against documents.

Exits with status 1 when any rule matched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}
			rs, err := loadRules(rulesPath)
			if err != nil {
				return err
			}
			rules, err := compileRules(rs)
			if err != nil {
				return err
			}
			inputs, err := collectInputs(args, cmd.InOrStdin(), "", "", "")
			if err != nil {
				return err
			}
			logger.Debug("Checking rules", zap.String("ruleset", rs.Name), zap.Int("rules", len(rules)), zap.Int("inputs", len(inputs)))

			out := newPrinter(cmd.OutOrStdout(), asJSON)
			found := 0
			for _, in := range inputs {
				for _, r := range rules {
					if !r.tracker.MayMatch(in.data) {
						continue
					}
					n, err := matchInput(cmd.Context(), r.pattern, in, func(m spamex.Match) error {
						return out.match(in.name, r.Name, r.pattern, m)
					})
					if err != nil {
						return fmt.Errorf("%s: rule %s: %w", in.name, r.Name, err)
					}
					if n > 0 {
						r.tracker.ConfirmMatch()
					}
					found += n
				}
			}
			if found > 0 {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&rulesPath, "config", "c", ".spamex.yaml", "rule file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print matches as JSON lines")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")

	return cmd
}
