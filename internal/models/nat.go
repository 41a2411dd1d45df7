package models

// DeviceReconcile records what NAT reconciliation did for one device.
type DeviceReconcile struct {
	DeviceID   string
	PublicPort int
	Removed    []string
	Added      bool
	Err        error
}

// ReconcileReport summarises a reconciliation run in registry order.
type ReconcileReport struct {
	Devices []DeviceReconcile
}

// Failed returns the devices whose reconciliation did not complete.
func (r ReconcileReport) Failed() []DeviceReconcile {
	var failed []DeviceReconcile
	for _, d := range r.Devices {
		if d.Err != nil {
			failed = append(failed, d)
		}
	}
	return failed
}
