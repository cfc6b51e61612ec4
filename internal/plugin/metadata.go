package plugin

import (
	"fmt"
	"regexp"
	"strings"
)

var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// PluginMetadata describes a plugin.
type PluginMetadata struct {
	Name        string
	Version     string
	StepType    string
	Description string
}

// Validate ensures metadata is well-formed.
func (m PluginMetadata) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("plugin metadata requires a non-empty Name")
	}
	if !semverPattern.MatchString(m.Version) {
		return fmt.Errorf("plugin '%s' has invalid Version '%s' (expected format: X.Y.Z)", m.Name, m.Version)
	}
	if strings.TrimSpace(m.StepType) == "" {
		return fmt.Errorf("plugin '%s' metadata requires StepType", m.Name)
	}
	return nil
}
