// Package routeros renders and parses RouterOS firewall NAT console commands.
package routeros

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DstNatRule describes a destination-NAT port forward to install.
type DstNatRule struct {
	DstAddress string
	DstPort    int
	Protocol   string
	ToAddress  string
	ToPort     int
	Comment    string
}

// NatRule is a rule as reported by the router's print command. ID is the
// console line number, which is only meaningful inside the session that printed it.
type NatRule struct {
	ID     string
	Fields map[string]string
}

// NatSyntax renders the router's NAT management commands and parses its print output.
type NatSyntax interface {
	PrintByDstPort(port int) string
	RemoveByDstPort(port int) string
	AddDstNat(rule DstNatRule) string
	ParseRules(output string) []NatRule
}

// Syntax implements NatSyntax for RouterOS v6/v7 consoles.
type Syntax struct{}

// PrintByDstPort lists NAT rules whose dst-port equals port.
func (Syntax) PrintByDstPort(port int) string {
	return fmt.Sprintf("/ip firewall nat print where dst-port=%d", port)
}

// RemoveByDstPort deletes every rule whose dst-port equals port. The rules are
// selected with find inside the same command, so it does not depend on line
// numbers from an earlier print.
func (Syntax) RemoveByDstPort(port int) string {
	return fmt.Sprintf("/ip firewall nat remove [find where dst-port=%d]", port)
}

// AddDstNat installs a dstnat rule forwarding rule.DstPort to rule.ToAddress:rule.ToPort.
func (Syntax) AddDstNat(rule DstNatRule) string {
	protocol := rule.Protocol
	if protocol == "" {
		protocol = "tcp"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "/ip firewall nat add chain=dstnat dst-address=%s protocol=%s dst-port=%d action=dst-nat to-addresses=%s to-ports=%d",
		rule.DstAddress, protocol, rule.DstPort, rule.ToAddress, rule.ToPort)
	if rule.Comment != "" {
		fmt.Fprintf(&b, " comment=%s", strconv.Quote(rule.Comment))
	}
	return b.String()
}

// ParseRules parses print output into rules. A rule starts on a line whose first
// token is numeric; indented lines that follow carry wrapped key=value pairs.
func (Syntax) ParseRules(output string) []NatRule {
	var rules []NatRule
	var current *NatRule

	for _, line := range strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		if isNumber(fields[0]) {
			rules = append(rules, NatRule{ID: fields[0], Fields: make(map[string]string)})
			current = &rules[len(rules)-1]
			fields = fields[1:]
		} else if current == nil || strings.HasPrefix(fields[0], "Flags:") || strings.HasPrefix(fields[0], ";;;") {
			continue
		}

		for _, f := range fields {
			key, value, ok := strings.Cut(f, "=")
			if !ok {
				continue
			}
			current.Fields[key] = strings.Trim(value, `"`)
		}
	}

	return rules
}

// ErrConsole is returned by CheckOutput when the console reported a failure.
var ErrConsole = errors.New("routeros console error")

var consoleFailures = []string{
	"failure:",
	"syntax error",
	"expected end of command",
	"bad command name",
	"no such item",
	"invalid value",
}

// CheckOutput inspects command output for console errors. RouterOS exits 0 on
// most failures, so the text is the only signal.
func CheckOutput(output string) error {
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.ToLower(strings.TrimSpace(line))
		for _, marker := range consoleFailures {
			if strings.HasPrefix(trimmed, marker) {
				return fmt.Errorf("%w: %s", ErrConsole, strings.TrimSpace(line))
			}
		}
	}
	return nil
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
