package rules

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// fileFormat is the on-disk layout of a rules file.
type fileFormat struct {
	Rules []Rule `yaml:"rules"`
}

// Decode reads rules from YAML. Rules without an explicit "active" key are
// active.
func Decode(r io.Reader) ([]Rule, error) {
	var raw struct {
		Rules []yaml.Node `yaml:"rules"`
	}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}

	out := make([]Rule, 0, len(raw.Rules))
	for i := range raw.Rules {
		rule := Rule{Active: true}
		if err := raw.Rules[i].Decode(&rule); err != nil {
			return nil, fmt.Errorf("failed to parse rule %d: %w", i, err)
		}
		out = append(out, rule)
	}
	return out, nil
}

// Encode writes rules as YAML.
func Encode(w io.Writer, rules []Rule) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(fileFormat{Rules: rules}); err != nil {
		return fmt.Errorf("failed to encode rules: %w", err)
	}
	return enc.Close()
}

// LoadFile reads a YAML rules file.
func LoadFile(path string) ([]Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules file: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// WriteFile writes rules to a YAML file.
func WriteFile(path string, rules []Rule) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create rules file: %w", err)
	}
	if err := Encode(f, rules); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
