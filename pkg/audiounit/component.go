// ABOUTME: Output component lookup and instantiation
// ABOUTME: Finds registered devices by description and opens the default output
package audiounit

import (
	"fmt"
	"log"

	"github.com/audiounit-go/caplay/pkg/audio"
	"github.com/audiounit-go/caplay/pkg/audio/output"
)

// DefaultOutputDescription selects the system default output unit
var DefaultOutputDescription = audio.DefaultOutput

// FindNext returns the first component after prev that matches desc, or nil
func FindNext(reg *output.Registry, prev *output.Component, desc audio.ComponentDescription) *output.Component {
	if reg == nil {
		reg = output.DefaultRegistry
	}
	return reg.FindNext(prev, desc)
}

// NewInstance creates an uninitialized unit from c
func NewInstance(c *output.Component) (*AudioUnit, error) {
	if c == nil {
		return nil, &Error{Op: "NewInstance", Kind: ErrDeviceUnavailable}
	}

	dev, err := c.New()
	if err != nil {
		return nil, opError("NewInstance", ErrInitializationFailed, err)
	}
	if dev == nil {
		return nil, &Error{Op: "NewInstance", Kind: ErrInitializationFailed, Err: fmt.Errorf("component %s returned no device", c.Desc)}
	}

	return newUnit(c, dev), nil
}

// Open finds the first component matching desc, instantiates it and initializes it
func Open(reg *output.Registry, desc audio.ComponentDescription) (*AudioUnit, error) {
	c := FindNext(reg, nil, desc)
	if c == nil {
		return nil, &Error{Op: "FindNext", Kind: ErrDeviceUnavailable, Err: fmt.Errorf("no component matches %s", desc)}
	}

	u, err := NewInstance(c)
	if err != nil {
		return nil, err
	}
	if err := u.Initialize(); err != nil {
		if derr := u.Dispose(); derr != nil {
			log.Printf("Failed to dispose %s after initialize error: %v", c.Desc, derr)
		}
		return nil, err
	}

	log.Printf("Opened output unit: %s (%s)", c.Name, c.Desc)
	return u, nil
}

// OpenDefaultOutput opens the system default output unit
func OpenDefaultOutput(reg *output.Registry) (*AudioUnit, error) {
	return Open(reg, DefaultOutputDescription)
}
