// Package inventory holds the read-only set of managed OLTs.
package inventory

import (
	"errors"
	"fmt"

	"github.com/benmeehan/olt-gateway/internal/models"
	"github.com/benmeehan/olt-gateway/internal/utils"
)

// ErrDeviceNotFound is returned by Lookup for IDs missing from the registry.
var ErrDeviceNotFound = errors.New("device not found")

// Registry maps device IDs to profiles. It is immutable after construction and safe for concurrent reads.
type Registry struct {
	devices map[string]models.DeviceProfile
	order   []string
}

// NewRegistry builds a registry. Map keys are authoritative device IDs.
func NewRegistry(devices map[string]models.DeviceProfile) (*Registry, error) {
	if len(devices) == 0 {
		return nil, errors.New("registry requires at least one device")
	}

	r := &Registry{
		devices: make(map[string]models.DeviceProfile, len(devices)),
		order:   utils.SortedKeys(devices),
	}
	for id, d := range devices {
		if id == "" {
			return nil, errors.New("device with empty id")
		}
		d.ID = id
		r.devices[id] = d
	}
	return r, nil
}

// Get returns the profile for id.
func (r *Registry) Get(id string) (models.DeviceProfile, bool) {
	d, ok := r.devices[id]
	return d, ok
}

// Lookup is Get with an error for unknown IDs.
func (r *Registry) Lookup(id string) (models.DeviceProfile, error) {
	d, ok := r.Get(id)
	if !ok {
		return models.DeviceProfile{}, fmt.Errorf("%w: %q", ErrDeviceNotFound, id)
	}
	return d, nil
}

// All returns every profile in registry iteration order (ascending ID).
func (r *Registry) All() []models.DeviceProfile {
	out := make([]models.DeviceProfile, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.devices[id])
	}
	return out
}

// IDs returns the device IDs in registry iteration order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of devices.
func (r *Registry) Len() int {
	return len(r.order)
}
