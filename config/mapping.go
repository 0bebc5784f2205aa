package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadMapping reads a source→destination mailbox name mapping. The file
// extension selects the decoder. Mailbox names are case-sensitive, so the
// decoding is done directly rather than through viper (which lowercases keys).
func LoadMapping(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping file: %w", err)
	}

	mapping := make(map[string]string)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &mapping); err != nil {
			return nil, fmt.Errorf("parse mapping file %s: %w", path, err)
		}
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &mapping); err != nil {
			return nil, fmt.Errorf("parse mapping file %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("mapping file must be JSON or YAML: %s", path)
	}
	return mapping, nil
}

// LoadExcludes reads the exclude file, one mailbox name per line. Blank lines
// and surrounding whitespace are ignored.
func LoadExcludes(path string) (map[string]struct{}, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open exclude file: %w", err)
	}
	defer file.Close()

	excludes := make(map[string]struct{})
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		excludes[name] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read exclude file: %w", err)
	}
	return excludes, nil
}
