package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/etfflow-go/internal/models"
)

// ErrRefreshInProgress is returned when a refresh is requested while one runs.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// Snapshot is everything the dashboard shows, computed in one refresh.
type Snapshot struct {
	Dataset     models.FlowDataset       `json:"dataset"`
	Correlation models.CorrelationResult `json:"correlation"`
	Statistics  *Statistics              `json:"statistics,omitempty"`
	Alerts      []Alert                  `json:"alerts"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

// Refresher recomputes the dashboard snapshot on a timer and on demand.
// Only one refresh runs at a time.
type Refresher struct {
	flows       *FlowService
	correlation *CorrelationService
	analytics   *AnalyticsService
	alerts      *AlertService
	interval    time.Duration
	logger      *logrus.Entry
	now         func() time.Time

	running sync.Mutex

	mu            sync.RWMutex
	latest        *Snapshot
	lastAlertDate time.Time

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewRefresher creates a refresher. alerts may be nil.
func NewRefresher(flows *FlowService, corr *CorrelationService, analytics *AnalyticsService, alerts *AlertService, interval time.Duration, logger logrus.FieldLogger) *Refresher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Refresher{
		flows:       flows,
		correlation: corr,
		analytics:   analytics,
		alerts:      alerts,
		interval:    interval,
		logger:      logger.WithField("service", "refresher"),
		now:         time.Now,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Latest returns the most recent snapshot, or nil before the first refresh.
func (r *Refresher) Latest() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

// Current returns the latest snapshot, computing one first if needed.
func (r *Refresher) Current(ctx context.Context) (*Snapshot, error) {
	if snap := r.Latest(); snap != nil {
		return snap, nil
	}
	snap, err := r.Refresh(ctx, false)
	if errors.Is(err, ErrRefreshInProgress) {
		// Another caller is computing the first snapshot; wait for it.
		r.running.Lock()
		r.running.Unlock()
		if snap := r.Latest(); snap != nil {
			return snap, nil
		}
	}
	return snap, err
}

// Refresh reloads the flow table and recomputes everything. force bypasses
// the flow cache. If a refresh is already running the previous snapshot is
// returned with ErrRefreshInProgress. A refresh whose ctx ends while the
// flow table loads publishes nothing and returns ctx.Err().
func (r *Refresher) Refresh(ctx context.Context, force bool) (*Snapshot, error) {
	if !r.running.TryLock() {
		return r.Latest(), ErrRefreshInProgress
	}
	defer r.running.Unlock()

	started := r.now()
	dataset := r.flows.Load(ctx, force)
	if err := ctx.Err(); err != nil {
		r.logger.WithError(err).Warn("Refresh cancelled, keeping previous snapshot")
		return r.Latest(), err
	}
	snap := &Snapshot{
		Dataset:     dataset,
		Correlation: r.correlation.Compute(ctx, dataset.Records),
		Alerts:      []Alert{},
		UpdatedAt:   r.now(),
	}

	if stats, err := r.analytics.Statistics(dataset.Records); err == nil {
		snap.Statistics = stats
	}

	if r.alerts != nil {
		flowAlerts := r.alerts.Generate(dataset.Records)
		ruleAlerts := r.alerts.Check(dataset.Records)
		snap.Alerts = append(snap.Alerts, flowAlerts...)
		snap.Alerts = append(snap.Alerts, ruleAlerts...)
		r.dispatch(ctx, dataset.Records, flowAlerts, ruleAlerts)
	}

	r.mu.Lock()
	r.latest = snap
	r.mu.Unlock()

	r.logger.WithFields(logrus.Fields{
		"source":      dataset.Source,
		"records":     len(dataset.Records),
		"coefficient": snap.Correlation.Coefficient,
		"alerts":      len(snap.Alerts),
		"duration_ms": r.now().Sub(started).Milliseconds(),
	}).Info("Dashboard refreshed")

	return snap, nil
}

// dispatch notifies flow alerts once per new trading day and rule alerts
// every time they fire.
func (r *Refresher) dispatch(ctx context.Context, records models.FlowRecords, flowAlerts, ruleAlerts []Alert) {
	toSend := make([]Alert, 0, len(flowAlerts)+len(ruleAlerts))
	if r.newTradingDay(records) {
		toSend = append(toSend, flowAlerts...)
	}
	toSend = append(toSend, ruleAlerts...)

	if err := r.alerts.Dispatch(ctx, toSend); err != nil {
		r.logger.WithError(err).Warn("Some alerts could not be delivered")
	}
}

func (r *Refresher) newTradingDay(records models.FlowRecords) bool {
	_, last, ok := records.Span()
	if !ok {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !last.After(r.lastAlertDate) {
		return false
	}
	r.lastAlertDate = last
	return true
}

// Start refreshes once and then on every interval until ctx is done or Stop
// is called.
func (r *Refresher) Start(ctx context.Context) {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(r.done)

		if _, err := r.Refresh(ctx, false); err != nil && !errors.Is(err, ErrRefreshInProgress) {
			r.logger.WithError(err).Warn("Initial refresh failed")
		}

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stop:
				return
			case <-ticker.C:
				if _, err := r.Refresh(ctx, false); err != nil && !errors.Is(err, ErrRefreshInProgress) {
					r.logger.WithError(err).Warn("Scheduled refresh failed")
				}
			}
		}
	}()
}

// Stop ends the refresh loop started by Start and waits for it to exit.
func (r *Refresher) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	if r.started.Load() {
		<-r.done
	}
}
