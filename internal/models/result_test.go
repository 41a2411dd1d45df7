package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandResult_Text(t *testing.T) {
	ok := CommandResult{Output: "GPON 0/1/0 up", Kind: KindNone}
	assert.False(t, ok.Failed())
	assert.Equal(t, "GPON 0/1/0 up", ok.Text())

	failed := CommandResult{Kind: KindConnect, Err: errors.New("connect failed: connection refused")}
	assert.True(t, failed.Failed())
	assert.Equal(t, "Error: connect failed: connection refused", failed.Text())

	bare := CommandResult{Kind: KindTimeout}
	assert.Equal(t, "Error: timeout", bare.Text())

	missing := CommandResult{DeviceID: "OLT9", Kind: KindNotFound}
	assert.True(t, missing.Failed())
	assert.Equal(t, "Error: not_found", missing.Text())
}

func TestDeviceProfile_Target(t *testing.T) {
	router := RouterProfile{Host: "203.0.113.1", Port: 22, User: "admin", Password: "r"}
	dev := DeviceProfile{ID: "OLT1", Vendor: "huawei", LANAddress: "10.0.0.5", PublicPort: 2201, SSHUser: "root", SSHPass: "p"}

	target := dev.Target(router)

	assert.Equal(t, "203.0.113.1", target.Host)
	assert.Equal(t, 2201, target.Port)
	assert.Equal(t, "root", target.User)
	assert.Equal(t, "p", target.Password)
	assert.Equal(t, "huawei", target.Vendor)
	assert.Equal(t, "203.0.113.1:22", router.Target().Address())
}

func TestReconcileReport_Failed(t *testing.T) {
	report := ReconcileReport{Devices: []DeviceReconcile{
		{DeviceID: "OLT1", Added: true},
		{DeviceID: "OLT2", Err: errors.New("add failed")},
	}}

	failed := report.Failed()

	assert.Len(t, failed, 1)
	assert.Equal(t, "OLT2", failed[0].DeviceID)
}
