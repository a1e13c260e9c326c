package generator

import (
	"fmt"
	"slices"
)

// Registry maps generator names to generator factory functions
// We use factory functions to allow parameterization (e.g., noise rate)
var Registry = map[string]func() Generator{
	"stations": func() Generator { return &StationGenerator{} },
	"noisy":    func() Generator { return &NoisyGenerator{Inner: &StationGenerator{}, Rate: 0.01} },
}

// Get returns a generator by name
func Get(name string) (Generator, error) {
	factory, exists := Registry[name]
	if !exists {
		return nil, fmt.Errorf("unknown generator: %s", name)
	}
	return factory(), nil
}

// List returns all available generator names, sorted
func List() []string {
	var names []string
	for name := range Registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// SetNoiseRate updates the junk line rate of the noisy generator
func SetNoiseRate(rate float64) {
	Registry["noisy"] = func() Generator { return &NoisyGenerator{Inner: &StationGenerator{}, Rate: rate} }
}
