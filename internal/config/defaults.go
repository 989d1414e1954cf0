package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const fileHeader = "net-watchdog settings.\n" +
	"Invalid or out-of-range values fall back to their defaults.\n" +
	"Every key can be overridden with an environment variable, e.g. " + EnvPrefix + "_NORMAL_PERIOD=60."

// DefaultDocument renders the default settings file with one comment per key.
func DefaultDocument() ([]byte, error) {
	m := &yaml.Node{Kind: yaml.MappingNode}
	for _, s := range schema {
		k := &yaml.Node{Kind: yaml.ScalarNode, Value: s.key, HeadComment: s.desc}
		v := &yaml.Node{}
		if err := v.Encode(s.def); err != nil {
			return nil, fmt.Errorf("encode %s: %w", s.key, err)
		}
		m.Content = append(m.Content, k, v)
	}
	doc := &yaml.Node{
		Kind:        yaml.DocumentNode,
		HeadComment: fileHeader,
		Content:     []*yaml.Node{m},
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}
	return out, nil
}

// WriteDefault creates the settings file at path with default values.
func WriteDefault(path string) error {
	data, err := DefaultDocument()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
