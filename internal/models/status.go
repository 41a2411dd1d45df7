package models

// InterfaceStatus is published once per device per poll tick.
type InterfaceStatus struct {
	OLT    string `json:"olt"`
	Vendor string `json:"vendor"`
	Output string `json:"output"`
}

// SubscriberData carries the ONU summary of one device per poll tick.
type SubscriberData struct {
	OLT     string `json:"olt"`
	Vendor  string `json:"vendor"`
	ONUData string `json:"onu_data"`
}

// SubscriberSnapshot is one device's entry in a FleetSnapshot.
type SubscriberSnapshot struct {
	Vendor  string    `json:"vendor"`
	Command string    `json:"command"`
	Output  string    `json:"output"`
	Kind    ErrorKind `json:"kind"`
}

// FleetSnapshot maps device ID to the subscriber data gathered in one tick.
type FleetSnapshot map[string]SubscriberSnapshot
