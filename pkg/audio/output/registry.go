// ABOUTME: Component registry for output devices
// ABOUTME: Finds components by type/subtype/manufacturer and instantiates them
package output

import (
	"sync"

	"github.com/audiounit-go/caplay/pkg/audio"
)

// ManufacturerMiniaudio identifies the malgo backend
const ManufacturerMiniaudio audio.FourCC = 'm'<<24 | 'n'<<16 | 'a'<<8 | 'u'

// Component is a registered device factory
type Component struct {
	Desc audio.ComponentDescription
	Name string
	New  func() (Device, error)
}

// Registry holds the components that can be found and instantiated
type Registry struct {
	mu         sync.RWMutex
	components []*Component
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// DefaultRegistry holds the built-in backends
var DefaultRegistry = NewRegistry()

// Register adds c after every previously registered component
func (r *Registry) Register(c *Component) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components = append(r.components, c)
}

// FindNext returns the first component after prev matching q, or nil.
// A nil prev starts from the beginning.
func (r *Registry) FindNext(prev *Component, q audio.ComponentDescription) *Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	start := 0
	if prev != nil {
		start = len(r.components)
		for i, c := range r.components {
			if c == prev {
				start = i + 1
				break
			}
		}
	}

	for _, c := range r.components[start:] {
		if c.Desc.Matches(q) {
			return c
		}
	}
	return nil
}

// Components returns a snapshot of all registered components
func (r *Registry) Components() []*Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Component(nil), r.components...)
}

func init() {
	DefaultRegistry.Register(&Component{
		Desc: audio.DefaultOutput,
		Name: "oto default output",
		New:  func() (Device, error) { return NewOto(audio.DefaultOutput), nil },
	})
	DefaultRegistry.Register(&Component{
		Desc: audio.ComponentDescription{
			Type:         audio.TypeOutput,
			SubType:      audio.SubTypeSystemOutput,
			Manufacturer: audio.ManufacturerApple,
		},
		Name: "oto system output",
		New: func() (Device, error) {
			return NewOto(audio.ComponentDescription{
				Type:         audio.TypeOutput,
				SubType:      audio.SubTypeSystemOutput,
				Manufacturer: audio.ManufacturerApple,
			}), nil
		},
	})
	DefaultRegistry.Register(&Component{
		Desc: audio.ComponentDescription{
			Type:         audio.TypeOutput,
			SubType:      audio.SubTypeDefaultOutput,
			Manufacturer: ManufacturerMiniaudio,
		},
		Name: "miniaudio default output",
		New:  func() (Device, error) { return NewMalgo(), nil },
	})
	DefaultRegistry.Register(&Component{
		Desc: audio.GenericOutput,
		Name: "generic output",
		New:  func() (Device, error) { return NewSimulator(SimulatorConfig{}), nil },
	})
}
