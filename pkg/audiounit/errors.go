// ABOUTME: Error taxonomy for output units
// ABOUTME: Sentinel error kinds plus an operation error carrying the platform status
package audiounit

import (
	"errors"
	"fmt"

	"github.com/audiounit-go/caplay/pkg/audio"
)

// Error kinds. Match with errors.Is.
var (
	ErrDeviceUnavailable    = errors.New("no matching output device")
	ErrInitializationFailed = errors.New("output device initialization failed")
	ErrDeviceError          = errors.New("output device error")
	ErrFormatRejected       = errors.New("stream format rejected")
	ErrCallbackProtocol     = errors.New("render callback protocol violation")
	ErrSourceExhausted      = errors.New("audio source exhausted")
)

// Error describes a failed unit operation
type Error struct {
	Op     string
	Status audio.Status
	Kind   error
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Status != audio.StatusOK:
		return fmt.Sprintf("%s failed: %v", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s failed: %v", e.Op, e.Kind)
	}
}

// Unwrap exposes the kind, the platform status and any underlying error
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 3)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Status != audio.StatusOK {
		errs = append(errs, e.Status)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// opError wraps a device error. The platform status is extracted when present.
func opError(op string, kind error, err error) error {
	if err == nil {
		return nil
	}
	e := &Error{Op: op, Kind: kind}
	var status audio.Status
	if errors.As(err, &status) {
		e.Status = status
		if err != error(status) {
			e.Err = err
		}
	} else {
		e.Err = err
	}
	return e
}

// StatusOf returns the platform status carried by err, or StatusOK
func StatusOf(err error) audio.Status {
	var status audio.Status
	if errors.As(err, &status) {
		return status
	}
	return audio.StatusOK
}
