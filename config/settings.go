package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Prefix of the keys in a JSON settings file, matching the editor
// extension's settings.json namespace.
const settingsPrefix = "monitor-ultra."

// settingsFile holds the keys a settings file may set. Pointers tell an
// absent key from a zero value.
type settingsFile struct {
	RefreshInterval *int      `yaml:"refresh-interval"`
	Metrics         *[]string `yaml:"metrics"`
	DiskSpace       *diskList `yaml:"diskSpace"`
	DiskPolicy      *string   `yaml:"diskPolicy"`
	DiskMinSizeGiB  *float64  `yaml:"diskMinSizeGiB"`
	GPUIndex        *int      `yaml:"gpuIndex"`
	GPUAllDevices   *bool     `yaml:"gpuAllDevices"`
	GPUEnabled      *bool     `yaml:"gpuEnabled"`
	GPUAutoDetect   *bool     `yaml:"gpuAutoDetect"`
	GPUTool         *string   `yaml:"gpuTool"`
	PingTarget      *string   `yaml:"pingTarget"`
	Sink            *string   `yaml:"sink"`
	SinkURL         *string   `yaml:"sinkURL"`
	StripIcons      *bool     `yaml:"stripIcons"`
	LogLevel        *string   `yaml:"logLevel"`
	LogFormat       *string   `yaml:"logFormat"`
}

// diskList accepts either a list of mounts or the single string "all".
type diskList []string

func (d *diskList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*d = diskList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("diskSpace: %w", err)
	}
	*d = many
	return nil
}

func (d *diskList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*d = diskList{node.Value}
		return nil
	}
	var many []string
	if err := node.Decode(&many); err != nil {
		return fmt.Errorf("diskSpace: %w", err)
	}
	*d = many
	return nil
}

func applySettingsFile(snap *Snapshot, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	settings, err := parseSettings(path, data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	settings.apply(snap)
	return nil
}

func parseSettings(path string, data []byte) (*settingsFile, error) {
	var settings settingsFile

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return nil, fmt.Errorf("parsing yaml: %w", err)
		}
		return &settings, nil
	}

	// settings.json allows comments and trailing commas
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		return nil, fmt.Errorf("parsing json: %w", err)
	}

	fields := map[string]any{
		"refresh-interval": &settings.RefreshInterval,
		"metrics":          &settings.Metrics,
		"diskSpace":        &settings.DiskSpace,
		"diskPolicy":       &settings.DiskPolicy,
		"diskMinSizeGiB":   &settings.DiskMinSizeGiB,
		"gpuIndex":         &settings.GPUIndex,
		"gpuAllDevices":    &settings.GPUAllDevices,
		"gpuEnabled":       &settings.GPUEnabled,
		"gpuAutoDetect":    &settings.GPUAutoDetect,
		"gpuTool":          &settings.GPUTool,
		"pingTarget":       &settings.PingTarget,
		"sink":             &settings.Sink,
		"sinkURL":          &settings.SinkURL,
		"stripIcons":       &settings.StripIcons,
		"logLevel":         &settings.LogLevel,
		"logFormat":        &settings.LogFormat,
	}
	for key, dst := range fields {
		value, ok := raw[settingsPrefix+key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, dst); err != nil {
			return nil, fmt.Errorf("%s%s: %w", settingsPrefix, key, err)
		}
	}
	return &settings, nil
}

func (f *settingsFile) apply(snap *Snapshot) {
	if f.RefreshInterval != nil {
		snap.RefreshInterval = time.Duration(*f.RefreshInterval) * time.Millisecond
	}
	if f.Metrics != nil {
		snap.Metrics = *f.Metrics
	}
	if f.DiskSpace != nil {
		snap.DiskSpace = *f.DiskSpace
	}
	if f.DiskPolicy != nil {
		snap.DiskPolicy = *f.DiskPolicy
	}
	if f.DiskMinSizeGiB != nil {
		snap.DiskMinSizeGiB = *f.DiskMinSizeGiB
	}
	if f.GPUIndex != nil {
		snap.GPUIndex = *f.GPUIndex
	}
	if f.GPUAllDevices != nil {
		snap.GPUAllDevices = *f.GPUAllDevices
	}
	if f.GPUEnabled != nil {
		snap.GPUEnabled = *f.GPUEnabled
	}
	if f.GPUAutoDetect != nil {
		snap.GPUAutoDetect = *f.GPUAutoDetect
	}
	if f.GPUTool != nil {
		snap.GPUTool = *f.GPUTool
	}
	if f.PingTarget != nil {
		snap.PingTarget = *f.PingTarget
	}
	if f.Sink != nil {
		snap.Sink = *f.Sink
	}
	if f.SinkURL != nil {
		snap.SinkURL = *f.SinkURL
	}
	if f.StripIcons != nil {
		snap.StripIcons = *f.StripIcons
	}
	if f.LogLevel != nil {
		snap.LogLevel = *f.LogLevel
	}
	if f.LogFormat != nil {
		snap.LogFormat = *f.LogFormat
	}
}
