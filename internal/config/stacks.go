package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// StackEntry remembers how to reach one deployment stack.
type StackEntry struct {
	ConfigFile string `yaml:"config_file,omitempty"` // nimbus.yaml of the stack
	Profile    string `yaml:"profile,omitempty"`     // AWS profile name
	Region     string `yaml:"region,omitempty"`
}

// State is the operator state file (~/.nimbus.yaml).
type State struct {
	CurrentStack string                 `yaml:"current_stack,omitempty"`
	Stacks       map[string]*StackEntry `yaml:"stacks,omitempty"`
}

// StatePath returns the state file path. NIMBUS_STATE_FILE overrides the
// default ~/.nimbus.yaml.
func StatePath() string {
	if p := os.Getenv("NIMBUS_STATE_FILE"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".nimbus.yaml"
	}
	return filepath.Join(home, ".nimbus.yaml")
}

// LoadState reads the state file at path. A missing file yields an empty state.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{Stacks: make(map[string]*StackEntry)}, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}

	if st.Stacks == nil {
		st.Stacks = make(map[string]*StackEntry)
	}

	return &st, nil
}

// Save writes the state file to path.
func (s *State) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	return nil
}

// Current returns the active stack entry, or nil when none is selected.
func (s *State) Current() (*StackEntry, string, error) {
	if s.CurrentStack == "" {
		return nil, "", nil
	}

	entry, ok := s.Stacks[s.CurrentStack]
	if !ok {
		return nil, "", fmt.Errorf("stack %q not found", s.CurrentStack)
	}

	return entry, s.CurrentStack, nil
}

// Use selects an already registered stack.
func (s *State) Use(name string) error {
	if _, ok := s.Stacks[name]; !ok {
		return fmt.Errorf("stack %q not found", name)
	}
	s.CurrentStack = name
	return nil
}

// Add registers or updates a stack. The first stack added becomes current.
func (s *State) Add(name string, entry *StackEntry) {
	s.Stacks[name] = entry
	if s.CurrentStack == "" {
		s.CurrentStack = name
	}
}

// Remove forgets a stack, clearing the selection if it was current.
func (s *State) Remove(name string) {
	delete(s.Stacks, name)
	if s.CurrentStack == name {
		s.CurrentStack = ""
	}
}

// Names returns the registered stack names sorted.
func (s *State) Names() []string {
	names := make([]string, 0, len(s.Stacks))
	for name := range s.Stacks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
