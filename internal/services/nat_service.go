package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/benmeehan/olt-gateway/internal/constants"
	"github.com/benmeehan/olt-gateway/internal/devicelog"
	"github.com/benmeehan/olt-gateway/internal/metrics"
	"github.com/benmeehan/olt-gateway/internal/models"
	"github.com/benmeehan/olt-gateway/pkg/remote"
	"github.com/benmeehan/olt-gateway/pkg/routeros"
	"github.com/rs/zerolog"
)

// RuleCommentPrefix marks rules installed by the gateway.
const RuleCommentPrefix = "olt-gateway:"

// NatReconciler makes the router forward each device's public port to the
// device's management port, replacing any rule already bound to that port.
type NatReconciler struct {
	dialer  remote.Dialer
	syntax  routeros.NatSyntax
	sink    devicelog.Sink
	timeout time.Duration
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewNatReconciler creates a NatReconciler. timeout bounds each router command.
func NewNatReconciler(dialer remote.Dialer, syntax routeros.NatSyntax, sink devicelog.Sink, timeout time.Duration, m *metrics.Metrics, logger zerolog.Logger) *NatReconciler {
	return &NatReconciler{
		dialer:  dialer,
		syntax:  syntax,
		sink:    sink,
		timeout: timeout,
		metrics: m,
		logger:  logger,
	}
}

// Reconcile processes devices in order over a single router session. The
// returned error is set only when the router cannot be reached; per-device
// failures are recorded in the report.
func (n *NatReconciler) Reconcile(ctx context.Context, router models.RouterProfile, devices []models.DeviceProfile) (models.ReconcileReport, error) {
	var report models.ReconcileReport
	target := router.Target()

	dialCtx, cancel := context.WithTimeout(ctx, n.timeout)
	session, err := n.dialer.Dial(dialCtx, target)
	cancel()
	if err != nil {
		n.logger.Error().Err(err).Str("router", target.Address()).Msg("Router unreachable, aborting NAT reconciliation")
		return report, fmt.Errorf("router %s unreachable: %w", target.Address(), err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			n.logger.Debug().Err(err).Msg("Router session close reported an error")
		}
	}()

	n.logger.Info().Str("router", target.Address()).Int("devices", len(devices)).Msg("Reconciling NAT rules")

	for _, device := range devices {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		rec := n.reconcileDevice(ctx, session, router, device)
		report.Devices = append(report.Devices, rec)
		n.record(device, rec)
	}

	n.logger.Info().
		Int("devices", len(report.Devices)).
		Int("failed", len(report.Failed())).
		Msg("NAT reconciliation finished")
	return report, nil
}

func (n *NatReconciler) reconcileDevice(ctx context.Context, session remote.Session, router models.RouterProfile, device models.DeviceProfile) models.DeviceReconcile {
	rec := models.DeviceReconcile{DeviceID: device.ID, PublicPort: device.PublicPort}

	output, err := n.run(ctx, session, n.syntax.PrintByDstPort(device.PublicPort))
	if err != nil {
		rec.Err = fmt.Errorf("list rules on port %d: %w", device.PublicPort, err)
		return rec
	}

	// Stale rules go first so the port never ends up with two forwards.
	// Each command may run on its own channel, so removal selects by port
	// rather than by the line numbers the print returned.
	if stale := n.syntax.ParseRules(output); len(stale) > 0 {
		for _, r := range stale {
			n.logger.Debug().
				Str("olt", device.ID).
				Str("rule", r.ID).
				Str("to", r.Fields["to-addresses"]).
				Str("to_port", r.Fields["to-ports"]).
				Msg("Replacing stale NAT rule")
		}
		if _, err := n.run(ctx, session, n.syntax.RemoveByDstPort(device.PublicPort)); err != nil {
			rec.Err = fmt.Errorf("remove rules on port %d: %w", device.PublicPort, err)
			return rec
		}
		for _, r := range stale {
			rec.Removed = append(rec.Removed, r.ID)
		}
	}

	rule := routeros.DstNatRule{
		DstAddress: router.Host,
		DstPort:    device.PublicPort,
		Protocol:   "tcp",
		ToAddress:  device.LANAddress,
		ToPort:     models.ManagementPort,
		Comment:    RuleCommentPrefix + device.ID,
	}
	if _, err := n.run(ctx, session, n.syntax.AddDstNat(rule)); err != nil {
		rec.Err = fmt.Errorf("add rule for port %d: %w", device.PublicPort, err)
		return rec
	}
	rec.Added = true
	return rec
}

// run executes one router command under the per-command deadline.
func (n *NatReconciler) run(ctx context.Context, session remote.Session, command string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	n.logger.Debug().Str("command", command).Msg("Running router command")
	output, err := session.Run(ctx, command)
	if err != nil {
		return output, err
	}
	if err := routeros.CheckOutput(output); err != nil {
		return output, err
	}
	return output, nil
}

func (n *NatReconciler) record(device models.DeviceProfile, rec models.DeviceReconcile) {
	n.metrics.NATRulesRemoved.Add(float64(len(rec.Removed)))

	var summary string
	if rec.Err != nil {
		n.metrics.NATDeviceFailures.Inc()
		n.logger.Error().Err(rec.Err).
			Str("olt", device.ID).
			Int("port", device.PublicPort).
			Strs("removed", rec.Removed).
			Msg("NAT reconciliation failed for device")
		summary = fmt.Sprintf("port %d: removed [%s]; Error: %v", device.PublicPort, strings.Join(rec.Removed, ","), rec.Err)
	} else {
		n.metrics.NATRulesAdded.Inc()
		n.logger.Info().
			Str("olt", device.ID).
			Int("port", device.PublicPort).
			Str("target", fmt.Sprintf("%s:%d", device.LANAddress, models.ManagementPort)).
			Strs("removed", rec.Removed).
			Msg("NAT rule installed")
		summary = fmt.Sprintf("port %d: removed [%s]; added dstnat tcp %d -> %s:%d",
			device.PublicPort, strings.Join(rec.Removed, ","), device.PublicPort, device.LANAddress, models.ManagementPort)
	}

	if err := n.sink.Write(device.ID, constants.TagNAT, summary); err != nil {
		n.logger.Error().Err(err).Str("olt", device.ID).Msg("Failed to log NAT reconciliation")
	}
}
