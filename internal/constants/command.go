package constants

import "fmt"

// Device log tags.
const (
	// TagInterface prefixes interface-summary records; the vendor follows in parentheses.
	TagInterface = "INTERFACE"
	// TagSubscriber prefixes ONU-summary records.
	TagSubscriber = "ONU_DATA"
	// TagCommand prefixes ad-hoc command records; the command text follows.
	TagCommand = "CMD_EXEC"
	// TagNAT prefixes NAT reconciliation records.
	TagNAT = "NAT"
)

// InterfaceTag returns the log tag for an interface summary of vendor.
func InterfaceTag(vendor string) string {
	return fmt.Sprintf("%s (%s)", TagInterface, vendor)
}

// SubscriberTag returns the log tag for an ONU summary of vendor.
func SubscriberTag(vendor string) string {
	return fmt.Sprintf("%s (%s)", TagSubscriber, vendor)
}

// CommandTag returns the log tag for an ad-hoc command.
func CommandTag(command string) string {
	return TagCommand + " " + command
}
