package remote

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	expect "github.com/google/goexpect"
	"golang.org/x/crypto/ssh"
)

// DefaultPromptPattern matches common CLI prompts like "hostname#" or "hostname>".
var DefaultPromptPattern = regexp.MustCompile(`(?m)[\w\-\[\]():]+[#>]\s*$`)

// VendorPrompts contains vendor-specific prompt patterns.
var VendorPrompts = map[string]*regexp.Regexp{
	"huawei":    regexp.MustCompile(`(?m)(<[\w\-]+>|\[[\w\-~]+\]|[\w\-]+(\([\w\-]+\))?[#>])\s*$`),
	"zte":       regexp.MustCompile(`(?m)[\w\-]+(\([\w\-]+\))?[#>]\s*$`),
	"fiberhome": regexp.MustCompile(`(?m)[\w\-]+(\([\w\-]+\))?[#>]\s*$`),
	"nokia":     regexp.MustCompile(`(?m)[\w\-]+:[\w\-]+>#\s*$`),
}

// PagerDisableCommands contains commands to disable paging per vendor.
var PagerDisableCommands = map[string]string{
	"huawei":    "screen-length 0 temporary",
	"zte":       "terminal length 0",
	"fiberhome": "terminal length 0",
	"nokia":     "environment inhibit-alarms mode batch",
}

// defaultInteractiveTimeout applies when the caller's context has no deadline.
const defaultInteractiveTimeout = 30 * time.Second

// PromptFor returns the prompt pattern for vendor, falling back to DefaultPromptPattern.
func PromptFor(vendor string) *regexp.Regexp {
	if re, ok := VendorPrompts[strings.ToLower(vendor)]; ok {
		return re
	}
	return DefaultPromptPattern
}

// expectSession drives a PTY shell for CLIs that refuse exec channels.
type expectSession struct {
	client *ssh.Client
	vendor string
}

func (s *expectSession) Run(ctx context.Context, command string) (string, error) {
	timeout := defaultInteractiveTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return "", wrapCtx(ctx, ErrSession, context.DeadlineExceeded)
		}
	}

	stop := context.AfterFunc(ctx, func() { _ = s.client.Close() })
	defer stop()

	exp, _, err := expect.SpawnSSH(s.client, timeout,
		expect.Verbose(false),
		expect.CheckDuration(200*time.Millisecond),
	)
	if err != nil {
		return "", wrapCtx(ctx, ErrSession, fmt.Errorf("spawn shell: %w", err))
	}
	defer exp.Close()

	prompt := PromptFor(s.vendor)
	if _, _, err := exp.Expect(prompt, timeout); err != nil {
		return "", wrapCtx(ctx, ErrSession, fmt.Errorf("detect initial prompt: %w", err))
	}

	// Pager disabling is best effort; the command still runs when the CLI rejects it.
	if pager, ok := PagerDisableCommands[strings.ToLower(s.vendor)]; ok {
		if err := exp.Send(pager + "\n"); err == nil {
			_, _, _ = exp.Expect(prompt, timeout)
		}
	}

	if err := exp.Send(command + "\n"); err != nil {
		return "", wrapCtx(ctx, ErrSession, fmt.Errorf("send command: %w", err))
	}

	output, _, err := exp.Expect(prompt, timeout)
	if err != nil {
		return CleanOutput(output, command, prompt), wrapCtx(ctx, ErrSession, fmt.Errorf("waiting for prompt after %q: %w", command, err))
	}

	return CleanOutput(output, command, prompt), nil
}

func (s *expectSession) Close() error {
	return s.client.Close()
}

// CleanOutput removes the command echo and prompt lines from interactive output.
func CleanOutput(output, command string, prompt *regexp.Regexp) string {
	lines := strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n")
	cleaned := make([]string, 0, len(lines))

	for i, line := range lines {
		if i == 0 && strings.Contains(line, command) {
			continue
		}
		if prompt.MatchString(strings.TrimSpace(line)) {
			continue
		}
		cleaned = append(cleaned, line)
	}

	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}
