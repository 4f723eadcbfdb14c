package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

func DefaultTuning() Tuning {
	return Tuning{
		SourceTopK:   3,
		MemoryTopK:   3,
		RerankKeep:   3,
		HistoryLimit: 50,
	}
}

// LoadFile overlays the non-zero values found in a YAML file.
func (t *Tuning) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read tuning file: %w", err)
	}

	var file Tuning
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse tuning file: %w", err)
	}

	if file.SourceTopK > 0 {
		t.SourceTopK = file.SourceTopK
	}
	if file.MemoryTopK > 0 {
		t.MemoryTopK = file.MemoryTopK
	}
	if file.RerankKeep > 0 {
		t.RerankKeep = file.RerankKeep
	}
	if file.HistoryLimit > 0 {
		t.HistoryLimit = file.HistoryLimit
	}

	return nil
}
