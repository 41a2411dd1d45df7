package models

import "github.com/benmeehan/olt-gateway/pkg/remote"

// RouterProfile is the NAT router's management endpoint. Loaded once at startup.
type RouterProfile struct {
	Host     string
	Port     int
	User     string
	Password string
}

// DeviceProfile is one managed OLT. Immutable after load.
type DeviceProfile struct {
	ID         string
	Vendor     string
	LANAddress string
	PublicPort int
	SSHUser    string
	SSHPass    string
	Mode       remote.Mode
}

// ManagementPort is the device-side SSH port every NAT rule targets.
const ManagementPort = 22

// Target returns the session target for reaching the device through the router's forwarded port.
func (d DeviceProfile) Target(router RouterProfile) remote.Target {
	return remote.Target{
		Host:     router.Host,
		Port:     d.PublicPort,
		User:     d.SSHUser,
		Password: d.SSHPass,
		Mode:     d.Mode,
		Vendor:   d.Vendor,
	}
}

// Target returns the session target for the router's own management port.
func (r RouterProfile) Target() remote.Target {
	return remote.Target{
		Host:     r.Host,
		Port:     r.Port,
		User:     r.User,
		Password: r.Password,
		Mode:     remote.ModeExec,
	}
}
