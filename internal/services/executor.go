package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benmeehan/olt-gateway/internal/models"
	"github.com/benmeehan/olt-gateway/internal/utils"
	"github.com/benmeehan/olt-gateway/pkg/remote"
	"github.com/rs/zerolog"
)

// Executor runs one command on one device.
type Executor interface {
	Run(ctx context.Context, router models.RouterProfile, device models.DeviceProfile, command string) models.CommandResult
}

// DeviceExecutor opens a fresh session per call through the router's forwarded
// port, runs a single command and closes the session. It never returns an
// error: failures are carried in the result's Kind and Err.
type DeviceExecutor struct {
	dialer          remote.Dialer
	timeout         time.Duration
	outputSizeLimit int
	logger          zerolog.Logger
}

// NewDeviceExecutor creates a DeviceExecutor. timeout bounds the whole call, dial included.
func NewDeviceExecutor(dialer remote.Dialer, timeout time.Duration, outputSizeLimit int, logger zerolog.Logger) *DeviceExecutor {
	if timeout == 0 {
		timeout = utils.DefaultCommandTimeout
	}
	return &DeviceExecutor{
		dialer:          dialer,
		timeout:         timeout,
		outputSizeLimit: outputSizeLimit,
		logger:          logger,
	}
}

// Run executes command on device and returns its trimmed combined output.
func (e *DeviceExecutor) Run(ctx context.Context, router models.RouterProfile, device models.DeviceProfile, command string) (result models.CommandResult) {
	start := time.Now()
	result = models.CommandResult{
		DeviceID:  device.ID,
		Vendor:    device.Vendor,
		Command:   command,
		Kind:      models.KindNone,
		Timestamp: start,
	}

	defer func() {
		if r := recover(); r != nil {
			result.Kind = models.KindExec
			result.Err = fmt.Errorf("panic during command execution: %v", r)
		}
		result.Duration = time.Since(start)
		e.logResult(result)
	}()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	target := device.Target(router)
	session, err := e.dialer.Dial(ctx, target)
	if err != nil {
		result.Kind = Classify(err)
		result.Err = err
		return result
	}
	defer func() {
		if err := session.Close(); err != nil {
			e.logger.Debug().Err(err).Str("olt", device.ID).Msg("Session close reported an error")
		}
	}()

	output, err := session.Run(ctx, command)
	if err != nil {
		result.Kind = Classify(err)
		result.Err = err
		result.Output = strings.TrimSpace(output)
		return result
	}

	output, truncated := utils.Truncate(strings.TrimSpace(output), e.outputSizeLimit)
	if truncated {
		e.logger.Warn().Str("olt", device.ID).Int("limit", e.outputSizeLimit).Msg("Command output truncated due to size limit")
	}
	result.Output = output
	return result
}

func (e *DeviceExecutor) logResult(r models.CommandResult) {
	if r.Failed() {
		e.logger.Warn().Err(r.Err).
			Str("olt", r.DeviceID).
			Str("command", r.Command).
			Str("kind", string(r.Kind)).
			Dur("duration", r.Duration).
			Msg("Device command failed")
		return
	}
	e.logger.Debug().
		Str("olt", r.DeviceID).
		Str("command", r.Command).
		Int("bytes", len(r.Output)).
		Dur("duration", r.Duration).
		Msg("Device command completed")
}

// Classify maps a transport error to an ErrorKind.
func Classify(err error) models.ErrorKind {
	switch {
	case err == nil:
		return models.KindNone
	case errors.Is(err, context.DeadlineExceeded):
		return models.KindTimeout
	case errors.Is(err, remote.ErrAuth):
		return models.KindAuth
	case errors.Is(err, remote.ErrConnect):
		return models.KindConnect
	default:
		return models.KindExec
	}
}
