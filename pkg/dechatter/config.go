package dechatter

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

var (
	UnknownConfigFormatErr = errors.New("unknown config file format, use .yaml, .yml or .toml")
	InvalidConfigErr       = errors.New("invalid config")
)

//go:embed config.schema.json
var configSchemaJSON string

const configSchemaURL = "config.schema.json"

var configSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(configSchemaURL, strings.NewReader(configSchemaJSON)); err != nil {
		return nil, err
	}
	return compiler.Compile(configSchemaURL)
})

// FileConfig is the content of a config file, for example:
//
//	timeouts:
//	  - "1:83:30"
//	name:
//	  - c:Keyboard
//	skipFirst: true
type FileConfig struct {
	Timeouts     []string `yaml:"timeouts" toml:"timeouts"`
	Name         []string `yaml:"name" toml:"name"`
	Path         []string `yaml:"path" toml:"path"`
	PhysicalPath []string `yaml:"physicalPath" toml:"physicalPath"`
	Index        *int     `yaml:"index" toml:"index"`
	SkipFirst    *bool    `yaml:"skipFirst" toml:"skipFirst"`
}

type configFormat int

const (
	formatYaml configFormat = iota
	formatToml
)

func formatFromPath(path string) (configFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYaml, nil
	case ".toml":
		return formatToml, nil
	}
	return 0, fmt.Errorf("%q: %w", path, UnknownConfigFormatErr)
}

func LoadConfigFile(path string) (*FileConfig, error) {
	format, err := formatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config from %q: %w", path, err)
	}
	fc, err := loadConfigFromBytes(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", path, err)
	}
	return fc, nil
}

func unmarshal(data []byte, format configFormat, v any) error {
	if format == formatToml {
		return toml.Unmarshal(data, v)
	}
	return yaml.Unmarshal(data, v)
}

func loadConfigFromBytes(data []byte, format configFormat) (*FileConfig, error) {
	var doc any
	if err := unmarshal(data, format, &doc); err != nil {
		return nil, err
	}
	if err := validateConfig(doc); err != nil {
		return nil, err
	}
	fc := FileConfig{}
	if err := unmarshal(data, format, &fc); err != nil {
		return nil, err
	}
	return &fc, nil
}

// validateConfig checks the decoded document against config.schema.json.
func validateConfig(doc any) error {
	if doc == nil {
		doc = map[string]any{}
	}
	// Normalize to what encoding/json produces. The yaml and toml
	// decoders use other number types.
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %w", InvalidConfigErr, err)
	}
	var instance any
	if err := json.Unmarshal(b, &instance); err != nil {
		return fmt.Errorf("%w: %w", InvalidConfigErr, err)
	}
	schema, err := configSchema()
	if err != nil {
		return fmt.Errorf("failed to compile config schema: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("%w: %w", InvalidConfigErr, err)
	}
	return nil
}

// SelectCmdConfig selects one device.
type SelectCmdConfig struct {
	Filters DeviceFilters
	Index   int
}

type DechatterCmdConfig struct {
	SelectCmdConfig
	ConfigFile  string
	Timeouts    KeyRangeTimeouts
	SkipFirst   bool
	NodeTimeout time.Duration

	// IndexSet and SkipFirstSet are true if the values came from the
	// command line. Those win over the config file.
	IndexSet     bool
	SkipFirstSet bool
}

// ApplyFile merges fc into the config. Values of the file come first,
// values from the command line are appended.
func (c *DechatterCmdConfig) ApplyFile(fc *FileConfig) error {
	timeouts := make(KeyRangeTimeouts, 0, len(fc.Timeouts)+len(c.Timeouts))
	for _, raw := range fc.Timeouts {
		if err := timeouts.Set(raw); err != nil {
			return fmt.Errorf("%w: timeouts: %w", InvalidConfigErr, err)
		}
	}
	c.Timeouts = append(timeouts, c.Timeouts...)

	c.Filters.Name = append(parseFilters(fc.Name), c.Filters.Name...)
	c.Filters.Path = append(parseFilters(fc.Path), c.Filters.Path...)
	c.Filters.PhysicalPath = append(parseFilters(fc.PhysicalPath), c.Filters.PhysicalPath...)

	if fc.Index != nil && !c.IndexSet {
		c.Index = *fc.Index
	}
	if fc.SkipFirst != nil && !c.SkipFirstSet {
		c.SkipFirst = *fc.SkipFirst
	}
	return nil
}

func parseFilters(raw []string) Filters {
	filters := make(Filters, 0, len(raw))
	for _, r := range raw {
		filters = append(filters, ParseFilter(r))
	}
	return filters
}
