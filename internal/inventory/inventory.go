// Package inventory loads and validates the declarative inventory of
// targets and tasks consumed by target/task resolution.
package inventory

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/HarrisonTotty/remote-framework/internal/errors"
)

// Target is a named group of host patterns with optional authentication
// overrides. Overrides take precedence over invocation-level defaults.
type Target struct {
	Hosts    []string `yaml:"hosts"`
	User     string   `yaml:"user,omitempty"`
	Password string   `yaml:"password,omitempty"`
	Cert     string   `yaml:"cert,omitempty"`
	Port     int      `yaml:"port,omitempty"`
}

// Task is a named command with an optional description.
type Task struct {
	Cmd  string `yaml:"cmd"`
	Desc string `yaml:"desc,omitempty"`
}

// Inventory maps target and task names to their definitions. Both maps are
// optional; an empty inventory is valid when the invocation supplies a
// literal command and ad hoc hosts.
type Inventory struct {
	Targets map[string]Target `yaml:"targets,omitempty"`
	Tasks   map[string]Task   `yaml:"tasks,omitempty"`
}

// Load reads and validates the inventory file at path. A missing file at
// the default location yields an empty inventory, but when the operator
// named the file explicitly (required) its absence is a configuration
// error. Any other read or parse failure is always a configuration error.
func Load(path string, required bool) (*Inventory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return &Inventory{}, nil
		}
		return nil, errors.Wrap(errors.ConfigLoad, "unable to read configuration file", err)
	}
	return Parse(raw)
}

// Parse decodes and validates raw inventory YAML.
func Parse(raw []byte) (*Inventory, error) {
	var inv Inventory
	if err := yaml.Unmarshal(raw, &inv); err != nil {
		return nil, errors.Wrap(errors.ConfigLoad, "unable to parse configuration file", err)
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Validate checks the structural rules the rest of the run assumes: every
// target lists at least one non-empty host pattern, ports are positive, and
// every task carries a non-empty command. Violations name the offending
// target or task.
func (inv *Inventory) Validate() error {
	for name, t := range inv.Targets {
		if len(t.Hosts) == 0 {
			return &errors.Error{
				Category: errors.ConfigInvalid,
				Target:   name,
				Message:  "target does not specify a list of corresponding hosts",
			}
		}
		for i, h := range t.Hosts {
			if h == "" {
				return &errors.Error{
					Category: errors.ConfigInvalid,
					Target:   name,
					Message:  fmt.Sprintf("host pattern %d is empty", i+1),
				}
			}
		}
		// Port zero means "not specified"; defaults apply downstream.
		if t.Port < 0 {
			return &errors.Error{
				Category: errors.ConfigInvalid,
				Target:   name,
				Message:  "specified port is not a positive integer",
			}
		}
	}
	for name, t := range inv.Tasks {
		if t.Cmd == "" {
			return &errors.Error{
				Category: errors.ConfigInvalid,
				Task:     name,
				Message:  "task does not specify a command to execute",
			}
		}
	}
	return nil
}

// TargetNames returns the target names in sorted order.
func (inv *Inventory) TargetNames() []string {
	names := make([]string, 0, len(inv.Targets))
	for name := range inv.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TaskNames returns the task names in sorted order.
func (inv *Inventory) TaskNames() []string {
	names := make([]string, 0, len(inv.Tasks))
	for name := range inv.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
