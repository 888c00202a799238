package runner_pkg

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadTestCase parses a test case from a JSON or YAML file. The format is
// detected by extension. A top-level "testCase" wrapper, as sent to
// /execute-test, is accepted too.
func LoadTestCase(path string) (*TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading test case %s: %w", path, err)
	}

	var wrapped struct {
		TestCase *TestCase `json:"testCase" yaml:"testCase"`
	}
	var tc TestCase

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("parsing test case %s: %w", path, err)
		}
		if wrapped.TestCase == nil {
			if err := json.Unmarshal(data, &tc); err != nil {
				return nil, fmt.Errorf("parsing test case %s: %w", path, err)
			}
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("parsing test case %s: %w", path, err)
		}
		if wrapped.TestCase == nil {
			if err := yaml.Unmarshal(data, &tc); err != nil {
				return nil, fmt.Errorf("parsing test case %s: %w", path, err)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported test case format %q (want .json, .yaml or .yml)", ext)
	}

	if wrapped.TestCase != nil {
		return wrapped.TestCase, nil
	}
	return &tc, nil
}
