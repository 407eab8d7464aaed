package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hardened-user/zabbix-check-status/internal/models"
)

// Write saves a run summary. The format follows the file extension:
// .yaml/.yml, .json or .md.
func Write(s *models.RunSummary, path string) error {
	var (
		data []byte
		err  error
	)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(s)
	case ".json":
		data, err = json.MarshalIndent(s, "", "  ")
	case ".md":
		data = []byte(Markdown(s))
	default:
		return fmt.Errorf("unsupported report format %q (use .yaml, .json or .md)", ext)
	}
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	return writeFile(path, data)
}

// Read loads a summary previously written as YAML or JSON
func Read(path string) (*models.RunSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report %s: %w", path, err)
	}

	var s models.RunSummary
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &s)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &s)
	default:
		return nil, fmt.Errorf("cannot read %s reports", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", path, err)
	}

	return &s, nil
}

func writeFile(outputPath string, content []byte) error {
	if err := os.WriteFile(outputPath, content, 0644); err != nil {
		return fmt.Errorf("writing report to %s: %w", outputPath, err)
	}
	return nil
}
