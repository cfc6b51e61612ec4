package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	dserrors "github.com/alexisbeaulieu97/dirstate/pkg/errors"
)

// Format identifies the encoding of a declaration document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// FormatFor picks the document format from the file extension. Anything
// that is not .toml is read as YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// ParseConfig loads a declaration document from disk, validates it, and
// returns the resulting model.
func ParseConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, dserrors.NewParseError(path, 0, err)
	}
	return Parse(path, FormatFor(path), data)
}

// Parse decodes and validates an in-memory document. name is only used in
// error messages.
func Parse(name string, format Format, data []byte) (*Config, error) {
	var (
		cfg *Config
		err error
	)

	switch format {
	case FormatTOML:
		cfg, err = decodeTOML(name, data)
	case FormatYAML, "":
		cfg, err = decodeYAML(name, data)
	default:
		return nil, dserrors.NewParseError(name, 0, fmt.Errorf("unsupported format %q", format))
	}
	if err != nil {
		return nil, err
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeYAML(name string, data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, dserrors.NewFormatParseError(name, string(FormatYAML), extractLine(err), err)
	}
	return &cfg, nil
}

// tomlDocument mirrors Config for TOML, where steps are [[steps]] tables
// and directory fields sit next to the common step fields.
type tomlDocument struct {
	Version     string     `toml:"version"`
	Name        string     `toml:"name"`
	Description string     `toml:"description"`
	Settings    Settings   `toml:"settings"`
	Steps       []tomlStep `toml:"steps"`
}

type tomlStep struct {
	ID        string   `toml:"id"`
	Name      string   `toml:"name"`
	Type      string   `toml:"type"`
	DependsOn []string `toml:"depends_on"`
	Enabled   *bool    `toml:"enabled"`

	Path      string `toml:"path"`
	Owner     string `toml:"owner"`
	Group     string `toml:"group"`
	Mode      string `toml:"mode"`
	Recursive bool   `toml:"recursive"`
	Action    string `toml:"action"`
}

func decodeTOML(name string, data []byte) (*Config, error) {
	var doc tomlDocument
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, dserrors.NewFormatParseError(name, string(FormatTOML), tomlLine(err), err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		return nil, dserrors.NewFormatParseError(name, string(FormatTOML), 0,
			fmt.Errorf("unknown keys: %s", strings.Join(keys, ", ")))
	}

	cfg := &Config{
		Version:     doc.Version,
		Name:        doc.Name,
		Description: doc.Description,
		Settings:    doc.Settings,
		Steps:       make([]Step, 0, len(doc.Steps)),
	}
	for _, raw := range doc.Steps {
		step := Step{
			ID:        raw.ID,
			Name:      raw.Name,
			Type:      raw.Type,
			DependsOn: append([]string(nil), raw.DependsOn...),
			Enabled:   raw.Enabled == nil || *raw.Enabled,
		}
		if raw.Type == StepTypeDirectory {
			step.Directory = &DirectoryStep{
				Path:      raw.Path,
				Owner:     raw.Owner,
				Group:     raw.Group,
				Mode:      raw.Mode,
				Recursive: raw.Recursive,
				Action:    raw.Action,
			}
		}
		cfg.Steps = append(cfg.Steps, step)
	}

	return cfg, nil
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	if _, scanErr := fmt.Sscanf(matches[1], "%d", &line); scanErr != nil {
		return 0
	}
	return line
}

func tomlLine(err error) int {
	var parseErr toml.ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Position.Line
	}
	return extractLine(err)
}
