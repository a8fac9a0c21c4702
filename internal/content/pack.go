package content

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Pack is a yaml content pack: an ordered destination list produced by the
// external content pipeline.
type Pack struct {
	PackID string        `yaml:"pack_id"`
	Items  []Destination `yaml:"destinations"`
}

// Destinations implements Provider.
func (p *Pack) Destinations() []Destination { return p.Items }

// LoadPack reads and validates a yaml content pack.
func LoadPack(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content pack: %w", err)
	}
	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parse content pack: %w", err)
	}
	if len(pack.Items) == 0 {
		return nil, fmt.Errorf("content pack %q has no destinations", path)
	}
	for _, d := range pack.Items {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("content pack %q: %w", path, err)
		}
	}
	return &pack, nil
}
