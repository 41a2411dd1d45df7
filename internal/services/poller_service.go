package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benmeehan/olt-gateway/internal/catalog"
	"github.com/benmeehan/olt-gateway/internal/constants"
	"github.com/benmeehan/olt-gateway/internal/devicelog"
	"github.com/benmeehan/olt-gateway/internal/inventory"
	"github.com/benmeehan/olt-gateway/internal/metrics"
	"github.com/benmeehan/olt-gateway/internal/models"
	"github.com/benmeehan/olt-gateway/internal/utils"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"
)

// PollerService polls every device on a fixed interval and publishes
// interface status and subscriber data.
type PollerService struct {
	Router     models.RouterProfile
	Registry   *inventory.Registry
	Executor   Executor
	Publisher  Publisher
	Sink       devicelog.Sink
	DataTopic  string
	ONUTopic   string
	Interval   time.Duration
	Workers    int
	Metrics    *metrics.Metrics
	Logger     zerolog.Logger
	workerPool *utils.WorkerPool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPollerService initializes a new PollerService.
func NewPollerService(router models.RouterProfile, registry *inventory.Registry, executor Executor, publisher Publisher,
	sink devicelog.Sink, dataTopic, onuTopic string, interval time.Duration, workers int, m *metrics.Metrics, logger zerolog.Logger) *PollerService {

	return &PollerService{
		Router:     router,
		Registry:   registry,
		Executor:   executor,
		Publisher:  publisher,
		Sink:       sink,
		DataTopic:  dataTopic,
		ONUTopic:   onuTopic,
		Interval:   interval,
		Workers:    workers,
		Metrics:    m,
		Logger:     logger,
		workerPool: utils.NewWorkerPool(workers),
	}
}

// Start launches the poll loop in a separate goroutine.
func (p *PollerService) Start() error {
	if p.ctx != nil {
		p.Logger.Warn().Msg("PollerService is already running")
		return errors.New("poller service is already running")
	}
	if p.workerPool == nil {
		p.workerPool = utils.NewWorkerPool(p.Workers)
	}

	for _, device := range p.Registry.All() {
		if !catalog.Known(device.Vendor) {
			p.Logger.Warn().Str("olt", device.ID).Str("vendor", device.Vendor).Msg("Unknown vendor, polling with fallback commands")
		}
	}

	p.ctx, p.cancel = context.WithCancel(context.Background())

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.RunForever(p.ctx)
	}()

	p.Logger.Info().
		Dur("interval", p.Interval).
		Int("devices", p.Registry.Len()).
		Int("workers", p.workerPool.Size()).
		Msg("PollerService started successfully")
	return nil
}

// Stop cancels the loop and waits for the current tick to finish.
func (p *PollerService) Stop() error {
	if p.ctx == nil {
		p.Logger.Warn().Msg("PollerService is not running")
		return errors.New("poller service is not running")
	}

	p.cancel()
	p.wg.Wait()
	p.workerPool.Shutdown()

	p.ctx = nil
	p.cancel = nil
	p.workerPool = nil

	p.Logger.Info().Msg("PollerService stopped successfully")
	return nil
}

// RunForever ticks immediately and then every Interval until ctx is cancelled.
// Ticks never overlap: the next one is scheduled after the previous pass ends.
func (p *PollerService) RunForever(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			p.Tick(ctx)
			timer.Reset(p.Interval)
		case <-ctx.Done():
			p.Logger.Info().Msg("PollerService stopping gracefully")
			return
		}
	}
}

// Tick runs one interface pass followed by one subscriber pass over the whole
// fleet and returns the subscriber data gathered.
func (p *PollerService) Tick(ctx context.Context) models.FleetSnapshot {
	start := time.Now()
	devices := p.Registry.All()
	degraded := cmap.New[struct{}]()

	tasks := make([]func(), 0, len(devices))
	for _, device := range devices {
		tasks = append(tasks, func() {
			if ctx.Err() != nil {
				return
			}
			if p.pollInterface(ctx, device) {
				degraded.Set(device.ID, struct{}{})
			}
		})
	}
	p.workerPool.RunAll(tasks...)

	snapshot := cmap.New[models.SubscriberSnapshot]()
	tasks = tasks[:0]
	for _, device := range devices {
		tasks = append(tasks, func() {
			if ctx.Err() != nil {
				return
			}
			entry, ok := p.pollSubscribers(ctx, device)
			if !ok {
				return
			}
			snapshot.Set(device.ID, entry)
			if entry.Kind != models.KindNone {
				degraded.Set(device.ID, struct{}{})
			}
		})
	}
	p.workerPool.RunAll(tasks...)

	p.Metrics.PollTicksTotal.Inc()
	p.Metrics.PollDegradedDevices.Set(float64(degraded.Count()))

	p.Logger.Info().
		Int("devices", len(devices)).
		Int("degraded", degraded.Count()).
		Dur("duration", time.Since(start)).
		Msg("Poll tick completed")

	return models.FleetSnapshot(snapshot.Items())
}

// pollInterface reports whether the device failed. Results of a pass
// cancelled mid-command are dropped.
func (p *PollerService) pollInterface(ctx context.Context, device models.DeviceProfile) bool {
	result := p.Executor.Run(ctx, p.Router, device, catalog.InterfaceCommand(device.Vendor))
	if ctx.Err() != nil {
		return false
	}
	p.Metrics.ObserveCommand(metrics.SourcePoller, result)

	text := result.Text()
	status := models.InterfaceStatus{OLT: device.ID, Vendor: device.Vendor, Output: text}
	if err := p.Publisher.PublishJSON(p.DataTopic, status); err != nil {
		p.Logger.Error().Err(err).Str("olt", device.ID).Msg("Failed to publish interface status")
	}
	p.writeLog(device.ID, constants.InterfaceTag(vendorLabel(device.Vendor)), text)

	return result.Failed()
}

func (p *PollerService) pollSubscribers(ctx context.Context, device models.DeviceProfile) (models.SubscriberSnapshot, bool) {
	command := catalog.SubscriberCommand(device.Vendor)
	result := p.Executor.Run(ctx, p.Router, device, command)
	if ctx.Err() != nil {
		return models.SubscriberSnapshot{}, false
	}
	p.Metrics.ObserveCommand(metrics.SourcePoller, result)

	text := result.Text()
	data := models.SubscriberData{OLT: device.ID, Vendor: device.Vendor, ONUData: text}
	if err := p.Publisher.PublishJSON(p.ONUTopic, data); err != nil {
		p.Logger.Error().Err(err).Str("olt", device.ID).Msg("Failed to publish subscriber data")
	}
	p.writeLog(device.ID, constants.SubscriberTag(vendorLabel(device.Vendor)), text)

	return models.SubscriberSnapshot{
		Vendor:  device.Vendor,
		Command: command,
		Output:  text,
		Kind:    result.Kind,
	}, true
}

func (p *PollerService) writeLog(deviceID, tag, content string) {
	if err := p.Sink.Write(deviceID, tag, content); err != nil {
		p.Logger.Error().Err(err).Str("olt", deviceID).Str("tag", tag).Msg("Failed to write device log")
	}
}

func vendorLabel(vendor string) string {
	if vendor == "" {
		return constants.UnknownVendor
	}
	return vendor
}
