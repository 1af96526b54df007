package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-job-scheduler/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// SchedulerSnapshotProvider provides current scheduler stats snapshots.
// *core.Scheduler satisfies it for any category type.
type SchedulerSnapshotProvider interface {
	Stats() []core.CategoryStats
	State() core.SchedulerState
}

// SnapshotPoller periodically exports scheduler Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	schedulersMu sync.RWMutex
	schedulers   map[string]SchedulerSnapshotProvider

	categoryQueued    *prom.GaugeVec
	categoryActive    *prom.GaugeVec
	categoryWorkers   *prom.GaugeVec
	categoryCompleted *prom.GaugeVec
	categoryFailed    *prom.GaugeVec
	schedulerState    *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	categoryQueued := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "jobscheduler",
		Name:      "category_queued",
		Help:      "Queued jobs per thread category.",
	}, []string{"scheduler", "category"})
	categoryActive := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "jobscheduler",
		Name:      "category_active",
		Help:      "Executing jobs per thread category.",
	}, []string{"scheduler", "category"})
	categoryWorkers := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "jobscheduler",
		Name:      "category_workers",
		Help:      "Worker count per thread category.",
	}, []string{"scheduler", "category"})
	categoryCompleted := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "jobscheduler",
		Name:      "category_completed_total",
		Help:      "Completed job count snapshot per thread category.",
	}, []string{"scheduler", "category"})
	categoryFailed := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "jobscheduler",
		Name:      "category_failed_total",
		Help:      "Failed job count snapshot per thread category.",
	}, []string{"scheduler", "category"})
	schedulerState := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "jobscheduler",
		Name:      "scheduler_state",
		Help:      "Scheduler lifecycle state (0=running, 1=stop signaled, 2=stopped).",
	}, []string{"scheduler"})

	var err error
	if categoryQueued, err = registerCollector(reg, categoryQueued); err != nil {
		return nil, err
	}
	if categoryActive, err = registerCollector(reg, categoryActive); err != nil {
		return nil, err
	}
	if categoryWorkers, err = registerCollector(reg, categoryWorkers); err != nil {
		return nil, err
	}
	if categoryCompleted, err = registerCollector(reg, categoryCompleted); err != nil {
		return nil, err
	}
	if categoryFailed, err = registerCollector(reg, categoryFailed); err != nil {
		return nil, err
	}
	if schedulerState, err = registerCollector(reg, schedulerState); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:          interval,
		schedulers:        make(map[string]SchedulerSnapshotProvider),
		categoryQueued:    categoryQueued,
		categoryActive:    categoryActive,
		categoryWorkers:   categoryWorkers,
		categoryCompleted: categoryCompleted,
		categoryFailed:    categoryFailed,
		schedulerState:    schedulerState,
	}, nil
}

// AddScheduler adds or replaces a scheduler snapshot provider by name.
func (p *SnapshotPoller) AddScheduler(name string, provider SchedulerSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "scheduler")
	p.schedulersMu.Lock()
	p.schedulers[name] = provider
	p.schedulersMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

// CollectOnce takes one snapshot immediately.
func (p *SnapshotPoller) CollectOnce() {
	if p == nil {
		return
	}
	p.collectOnce()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.schedulersMu.RLock()
	defer p.schedulersMu.RUnlock()

	for name, provider := range p.schedulers {
		for _, stats := range provider.Stats() {
			category := normalizeLabel(stats.Category, "unknown")
			p.categoryQueued.WithLabelValues(name, category).Set(float64(stats.Queued))
			p.categoryActive.WithLabelValues(name, category).Set(float64(stats.Active))
			p.categoryWorkers.WithLabelValues(name, category).Set(float64(stats.Workers))
			p.categoryCompleted.WithLabelValues(name, category).Set(float64(stats.Completed))
			p.categoryFailed.WithLabelValues(name, category).Set(float64(stats.Failed))
		}
		p.schedulerState.WithLabelValues(name).Set(float64(provider.State()))
	}
}
