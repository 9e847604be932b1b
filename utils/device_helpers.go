package utils

import (
	"errors"
	"fmt"

	"github.com/notargets/gocca"
)

// DefaultBackends are tried in order, parallel backends first
var DefaultBackends = []string{
	`{"mode": "OpenMP"}`,
	`{"mode": "CUDA", "device_id": 0}`,
	`{"mode": "Serial"}`,
}

// CreateDevice returns the first device that can be created from the given
// OCCA property strings, or from DefaultBackends when none are given
func CreateDevice(backends ...string) (*gocca.OCCADevice, error) {
	if len(backends) == 0 {
		backends = DefaultBackends
	}
	var errs []error
	for _, props := range backends {
		device, err := gocca.NewDevice(props)
		if err == nil {
			return device, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", props, err))
	}
	return nil, fmt.Errorf("no OCCA device available: %w", errors.Join(errs...))
}
