package inventory

import (
	"errors"
	"testing"

	"github.com/benmeehan/olt-gateway/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	r, err := NewRegistry(map[string]models.DeviceProfile{
		"OLT2": {Vendor: "zte", PublicPort: 2202},
		"OLT1": {Vendor: "huawei", PublicPort: 2201},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"OLT1", "OLT2"}, r.IDs())

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "OLT1", all[0].ID)
	assert.Equal(t, "huawei", all[0].Vendor)
	assert.Equal(t, "OLT2", all[1].ID)

	d, ok := r.Get("OLT2")
	assert.True(t, ok)
	assert.Equal(t, 2202, d.PublicPort)

	_, ok = r.Get("OLT9")
	assert.False(t, ok)
}

func TestRegistry_Lookup(t *testing.T) {
	r, err := NewRegistry(map[string]models.DeviceProfile{"OLT1": {Vendor: "huawei"}})
	require.NoError(t, err)

	_, err = r.Lookup("OLT1")
	assert.NoError(t, err)

	_, err = r.Lookup("OLT9")
	assert.True(t, errors.Is(err, ErrDeviceNotFound))
}

func TestNewRegistry_Empty(t *testing.T) {
	_, err := NewRegistry(nil)
	assert.Error(t, err)
}

func TestRegistry_IDsIsACopy(t *testing.T) {
	r, err := NewRegistry(map[string]models.DeviceProfile{"OLT1": {}, "OLT2": {}})
	require.NoError(t, err)

	ids := r.IDs()
	ids[0] = "mutated"

	assert.Equal(t, []string{"OLT1", "OLT2"}, r.IDs())
}
