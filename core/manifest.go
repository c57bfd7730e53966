package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/huangsam/vitals/core/derive"
	"github.com/huangsam/vitals/core/registry"
	"github.com/huangsam/vitals/schema"
	"gopkg.in/yaml.v3"
)

// Manifest lists the exports processed by one batch.
type Manifest struct {
	Runs []RunRequest `yaml:"runs"`
}

// LoadManifest reads a batch manifest. Relative export paths are resolved
// against the manifest's directory.
func LoadManifest(path string) ([]RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i := range m.Runs {
		r := &m.Runs[i]
		r.ClientID = strings.TrimSpace(r.ClientID)
		if r.ClientID == "" || r.ExportPath == "" {
			return nil, fmt.Errorf("manifest entry %d needs both client and export", i+1)
		}
		r.Format = schema.SourceFormat(strings.ToLower(string(r.Format)))
		if !filepath.IsAbs(r.ExportPath) {
			r.ExportPath = filepath.Join(base, r.ExportPath)
		}
	}
	return m.Runs, nil
}

// TargetsFile maps a client ID to its targets.
type TargetsFile struct {
	Clients map[string]schema.Targets `yaml:"clients"`
}

// LoadTargetsFile reads and validates a targets file.
func LoadTargetsFile(path string) (map[string]schema.Targets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read targets file: %w", err)
	}
	var tf TargetsFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("failed to parse targets file %s: %w", path, err)
	}
	if len(tf.Clients) == 0 {
		return nil, errors.New("targets file has no clients")
	}
	for clientID, targets := range tf.Clients {
		for metric := range targets {
			if err := ValidateTargetMetric(metric); err != nil {
				return nil, fmt.Errorf("client %s: %w", clientID, err)
			}
		}
	}
	return tf.Clients, nil
}

// ValidateTargetMetric accepts a registered metric name or a weekly trend target key.
func ValidateTargetMetric(metric string) error {
	reg := registry.Default()
	if _, ok := reg.Def(metric); ok {
		return nil
	}
	if base, ok := strings.CutSuffix(metric, derive.TrendTargetSuffix); ok {
		if _, ok := reg.Def(base); ok {
			return nil
		}
	}
	return fmt.Errorf("unknown target metric '%s'. must be one of %s or <metric>%s",
		metric, strings.Join(reg.Names(), ", "), derive.TrendTargetSuffix)
}

// MetricInfos describes every registered metric with its active composite weight.
func MetricInfos(weights map[string]float64) []schema.MetricInfo {
	if weights == nil {
		weights = derive.DefaultWeights()
	}
	reg := registry.Default()
	names := reg.Names()
	infos := make([]schema.MetricInfo, 0, len(names))
	for _, name := range names {
		def, _ := reg.Def(name)
		infos = append(infos, schema.MetricInfo{
			Name:        name,
			Aggregation: def.Aggregation,
			Unit:        def.Unit,
			Goal:        def.Goal,
			Weight:      weights[name],
			TypeIDs:     reg.TypeIDs(name),
		})
	}
	return infos
}
