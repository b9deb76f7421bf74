package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/raysh454/vigil/internal/interfaces"
	"github.com/raysh454/vigil/internal/model"
	"github.com/raysh454/vigil/internal/monitor"
)

// Scheduler runs one ticker goroutine per monitored domain. Each tick
// refetches the page, compares it against the latest stored snapshot and
// hands detected changes to the dumper. Checks across domains run
// concurrently, bounded by MaxConcurrentChecks.
type Scheduler struct {
	cfg    Config
	store  interfaces.Store
	engine interfaces.CaptureEngine
	dumper interfaces.Dumper
	events *monitor.EventHub
	logger interfaces.Logger

	sem chan struct{}

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup

	baseCtx context.Context
	stop    context.CancelFunc
}

var _ interfaces.CheckScheduler = (*Scheduler)(nil)

// New constructs a stopped-idle scheduler. Domains start ticking as they are
// passed to Schedule.
func New(cfg Config, store interfaces.Store, engine interfaces.CaptureEngine, dumper interfaces.Dumper, events *monitor.EventHub, logger interfaces.Logger) (*Scheduler, error) {
	if store == nil || engine == nil || dumper == nil || logger == nil {
		return nil, errors.New("scheduler: store, engine, dumper and logger are all required")
	}
	if cfg.MaxConcurrentChecks < 1 {
		return nil, fmt.Errorf("scheduler: max concurrent checks must be positive, got %d", cfg.MaxConcurrentChecks)
	}
	if events == nil {
		events = monitor.NewEventHub()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cfg:     cfg,
		store:   store,
		engine:  engine,
		dumper:  dumper,
		events:  events,
		logger:  logger.With(interfaces.Field{Key: "component", Value: "scheduler"}),
		sem:     make(chan struct{}, cfg.MaxConcurrentChecks),
		cancels: make(map[string]context.CancelFunc),
		baseCtx: ctx,
		stop:    cancel,
	}, nil
}

// Schedule starts periodic checks for domain at its configured frequency.
// Scheduling a domain that already ticks replaces the old schedule. The
// first check fires one full interval after scheduling; the initial dump
// has just happened by then.
func (s *Scheduler) Schedule(domain *model.Domain) {
	if domain == nil || domain.FrequencySeconds <= 0 {
		s.logger.Warn("refusing to schedule domain without a positive frequency")
		return
	}

	s.mu.Lock()
	if cancel, ok := s.cancels[domain.ID]; ok {
		cancel()
	}
	ctx, cancel := context.WithCancel(s.baseCtx)
	s.cancels[domain.ID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx, domain.ID, time.Duration(domain.FrequencySeconds)*time.Second)

	s.logger.Info("scheduled periodic checks",
		interfaces.Field{Key: "domain_id", Value: domain.ID},
		interfaces.Field{Key: "url", Value: domain.URL},
		interfaces.Field{Key: "frequency_seconds", Value: domain.FrequencySeconds})
}

// Unschedule stops the periodic checks for domainID. Unknown ids are
// ignored.
func (s *Scheduler) Unschedule(domainID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.cancels[domainID]; ok {
		cancel()
		delete(s.cancels, domainID)
	}
}

// UnscheduleAll stops the periodic checks for every domain.
func (s *Scheduler) UnscheduleAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, cancel := range s.cancels {
		cancel()
		delete(s.cancels, id)
	}
}

// ScheduledCount reports how many domains currently have a schedule.
func (s *Scheduler) ScheduledCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cancels)
}

// Stop cancels every schedule and waits for in-flight checks to drain.
func (s *Scheduler) Stop() {
	s.stop()
	s.UnscheduleAll()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context, domainID string, interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case s.sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			// Cancellation only gates starting the next tick. A check
			// that already began runs to completion so Stop drains it
			// instead of aborting its capture mid-flight.
			s.CheckDomain(context.WithoutCancel(ctx), domainID)
			<-s.sem
		}
	}
}

// CheckDomain runs a single periodic check for domainID: refetch the page,
// record the check time, compare against the latest stored snapshot and
// dump automatically when the content changed. Every outcome leaves a ping
// log entry; a panic is folded into an unreachable one.
func (s *Scheduler) CheckDomain(ctx context.Context, domainID string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic during domain check",
				interfaces.Field{Key: "domain_id", Value: domainID},
				interfaces.Field{Key: "panic", Value: fmt.Sprint(r)})
			s.appendPing(domainID, &model.PingLogEntry{
				Timestamp: time.Now().UTC(),
				Reachable: false,
				Message:   fmt.Sprintf("Unexpected error during domain check: %v", r),
			})
		}
	}()

	domain, err := s.store.GetDomain(ctx, domainID)
	if err != nil {
		s.logger.Warn("skipping check for unknown domain",
			interfaces.Field{Key: "domain_id", Value: domainID},
			interfaces.Field{Key: "error", Value: err.Error()})
		return
	}
	if !domain.Active {
		s.logger.Debug("skipping check for inactive domain",
			interfaces.Field{Key: "domain_id", Value: domainID})
		return
	}

	html, ok := s.engine.FetchContent(ctx, domain.URL)

	// The check time is recorded regardless of the fetch outcome.
	checked := time.Now().UTC()
	domain.LastCheckedAt = &checked
	if err := s.store.SaveDomain(ctx, domain); err != nil {
		s.logger.Warn("failed to record check time",
			interfaces.Field{Key: "domain_id", Value: domain.ID},
			interfaces.Field{Key: "error", Value: err.Error()})
	}

	if !ok {
		s.appendPing(domain.ID, &model.PingLogEntry{
			Timestamp: checked,
			Reachable: false,
			Message:   fmt.Sprintf("Failed to fetch HTML for %s after retries", domain.URL),
		})
		return
	}

	status := 200
	ping := &model.PingLogEntry{Timestamp: checked, Reachable: true, StatusCode: &status}

	snaps, err := s.store.SnapshotsForDomain(ctx, domain.ID)
	if err != nil {
		s.logger.Warn("failed to list snapshots for comparison",
			interfaces.Field{Key: "domain_id", Value: domain.ID},
			interfaces.Field{Key: "error", Value: err.Error()})
	}
	if len(snaps) == 0 {
		ping.Message = "No previous snapshot found for comparison"
		s.appendPing(domain.ID, ping)
		return
	}

	latest := snaps[len(snaps)-1]
	previous, err := s.store.LoadHTML(latest)
	if err != nil {
		ping.Message = fmt.Sprintf("Failed to load previous snapshot for comparison: %v", err)
		s.appendPing(domain.ID, ping)
		return
	}

	if !s.engine.ContentChanged(previous, html) {
		ping.Message = fmt.Sprintf("No change detected for %s", domain.URL)
		s.appendPing(domain.ID, ping)
		return
	}

	ping.ChangeDetected = true
	ping.Message = fmt.Sprintf("Change detected for %s", domain.URL)
	s.appendPing(domain.ID, ping)

	s.logger.Info("change detected",
		interfaces.Field{Key: "domain_id", Value: domain.ID},
		interfaces.Field{Key: "url", Value: domain.URL})
	s.events.Publish(monitor.Event{
		Type:     monitor.EventChangeDetected,
		DomainID: domain.ID,
		Message:  fmt.Sprintf("Change detected for %s", domain.URL),
	})

	s.dumper.PerformDump(ctx, domain, model.TriggerAutomatic)
}

func (s *Scheduler) appendPing(domainID string, entry *model.PingLogEntry) {
	if err := s.store.AppendPingLog(domainID, entry); err != nil {
		s.logger.Warn("failed to append ping log",
			interfaces.Field{Key: "domain_id", Value: domainID},
			interfaces.Field{Key: "error", Value: err.Error()})
	}
}
