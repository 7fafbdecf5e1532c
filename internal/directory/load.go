package directory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a Memory directory from a YAML file with top-level contacts,
// projects, addresses and collaborators lists.
func Load(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Memory
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("directory: %s: %w", path, err)
	}
	for _, c := range m.ContactList {
		if c.ID == "" || !c.Type.Valid() {
			return nil, fmt.Errorf("directory: %s: contact %q has no id or an unknown type %q", path, c.Name, c.Type)
		}
	}
	return &m, nil
}
