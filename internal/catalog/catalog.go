// Package catalog maps OLT vendors to their CLI command strings.
package catalog

import "strings"

// Commands holds the command strings for one vendor.
type Commands struct {
	Interface  string // Interface summary
	Subscriber string // ONU/subscriber summary
}

var vendors = map[string]Commands{
	"huawei":    {Interface: "display interface brief", Subscriber: "display ont info summary"},
	"zte":       {Interface: "show interface gpon-olt brief", Subscriber: "show gpon onu state all"},
	"fiberhome": {Interface: "show interface brief", Subscriber: "show pon onu-information all"},
	"nokia":     {Interface: "show equipment slot", Subscriber: "show equipment ont"},
}

// Fallback is used for any vendor missing from the table.
var Fallback = Commands{Interface: "show interface brief", Subscriber: "show onu all"}

// Lookup returns the commands for vendor, compared case-insensitively.
func Lookup(vendor string) Commands {
	if c, ok := vendors[strings.ToLower(strings.TrimSpace(vendor))]; ok {
		return c
	}
	return Fallback
}

// Known reports whether vendor has its own row in the table.
func Known(vendor string) bool {
	_, ok := vendors[strings.ToLower(strings.TrimSpace(vendor))]
	return ok
}

// InterfaceCommand returns the interface summary command for vendor.
func InterfaceCommand(vendor string) string {
	return Lookup(vendor).Interface
}

// SubscriberCommand returns the subscriber summary command for vendor.
func SubscriberCommand(vendor string) string {
	return Lookup(vendor).Subscriber
}
