package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/alexisbeaulieu97/dirstate/internal/directory"
)

// StepTypeDirectory is the only step type dirstate understands.
const StepTypeDirectory = "directory"

// Config represents a full declaration document.
type Config struct {
	Version     string   `yaml:"version" toml:"version" validate:"required,semver"`
	Name        string   `yaml:"name" toml:"name" validate:"required,min=1,max=100"`
	Description string   `yaml:"description,omitempty" toml:"description"`
	Settings    Settings `yaml:"settings,omitempty" toml:"settings"`
	Steps       []Step   `yaml:"steps" toml:"-" validate:"required,min=1,dive"`
}

// Settings holds document-wide execution parameters.
type Settings struct {
	Parallel        int  `yaml:"parallel,omitempty" toml:"parallel" validate:"omitempty,min=1,max=32"`
	Timeout         int  `yaml:"timeout,omitempty" toml:"timeout" validate:"omitempty,min=1,max=360000"`
	ContinueOnError bool `yaml:"continue_on_error,omitempty" toml:"continue_on_error"`
	DryRun          bool `yaml:"dry_run,omitempty" toml:"dry_run"`
	Verbose         bool `yaml:"verbose,omitempty" toml:"verbose"`
}

// Step describes one declared directory and its place in the DAG.
type Step struct {
	ID        string   `yaml:"id" validate:"required,step_id"`
	Name      string   `yaml:"name,omitempty"`
	Type      string   `yaml:"type" validate:"required,oneof=directory"`
	DependsOn []string `yaml:"depends_on,omitempty"`
	Enabled   bool     `yaml:"enabled,omitempty"`

	Directory *DirectoryStep `yaml:",inline,omitempty"`
}

// UnmarshalYAML decodes the common step fields, defaults enabled to true and
// decodes the type-specific fields from the same mapping.
func (s *Step) UnmarshalYAML(value *yaml.Node) error {
	type baseStep struct {
		ID        string   `yaml:"id"`
		Name      string   `yaml:"name"`
		Type      string   `yaml:"type"`
		DependsOn []string `yaml:"depends_on"`
		Enabled   *bool    `yaml:"enabled"`
	}

	var base baseStep
	if err := value.Decode(&base); err != nil {
		return err
	}

	s.ID = base.ID
	s.Name = base.Name
	s.Type = base.Type
	s.DependsOn = append([]string(nil), base.DependsOn...)
	s.Enabled = base.Enabled == nil || *base.Enabled
	s.Directory = nil

	if base.Type == StepTypeDirectory {
		var dir DirectoryStep
		if err := value.Decode(&dir); err != nil {
			return err
		}
		s.Directory = &dir
	}

	return nil
}

// DirectoryStep declares the desired state of one directory.
type DirectoryStep struct {
	Path      string `yaml:"path" toml:"path" validate:"required"`
	Owner     string `yaml:"owner,omitempty" toml:"owner" validate:"omitempty,identity"`
	Group     string `yaml:"group,omitempty" toml:"group" validate:"omitempty,identity"`
	Mode      string `yaml:"mode,omitempty" toml:"mode" validate:"omitempty,filemode"`
	Recursive bool   `yaml:"recursive,omitempty" toml:"recursive"`
	Action    string `yaml:"action,omitempty" toml:"action" validate:"omitempty,oneof=create delete"`
}

// DesiredState converts the declaration into engine input.
func (d *DirectoryStep) DesiredState() (directory.DesiredState, directory.Action, error) {
	if d == nil {
		return directory.DesiredState{}, "", fmt.Errorf("directory configuration missing")
	}

	action, err := directory.ParseAction(d.Action)
	if err != nil {
		return directory.DesiredState{}, "", err
	}

	desired := directory.DesiredState{
		Path:      d.Path,
		Owner:     d.Owner,
		Group:     d.Group,
		Recursive: d.Recursive,
	}
	if d.Mode != "" {
		mode, err := directory.ParseMode(d.Mode)
		if err != nil {
			return directory.DesiredState{}, "", err
		}
		desired = desired.WithMode(mode)
	}

	return desired, action, nil
}
