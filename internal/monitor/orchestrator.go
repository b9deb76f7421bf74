package monitor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/raysh454/vigil/internal/interfaces"
	"github.com/raysh454/vigil/internal/model"
)

// ErrInvalidConfig wraps every validation failure during group creation.
var ErrInvalidConfig = errors.New("invalid group configuration")

// ErrDumpInProgress signals a manual dump request for a domain whose
// previous manual dump has not finished yet.
var ErrDumpInProgress = errors.New("dump already in progress for domain")

const (
	screenshotFilename = "screenshot.png"
	assetsDirname      = "assets"
)

// Orchestrator drives the monitoring workflows: group registration with
// synchronous initial dumps, single-flight manual dumps, snapshot detail
// aggregation and environment resets. It is also the Dumper the periodic
// scheduler calls into.
type Orchestrator struct {
	cfg    Config
	store  interfaces.Store
	engine interfaces.CaptureEngine
	logger interfaces.Logger
	events *EventHub

	scheduler interfaces.CheckScheduler
	locks     *dumpLocks
}

var _ interfaces.Dumper = (*Orchestrator)(nil)

// New ties together the store, the capture engine and the event hub.
func New(cfg Config, store interfaces.Store, engine interfaces.CaptureEngine, events *EventHub, logger interfaces.Logger) (*Orchestrator, error) {
	if store == nil || engine == nil || logger == nil {
		return nil, errors.New("monitor: store, engine and logger are all required")
	}
	if events == nil {
		events = NewEventHub()
	}
	return &Orchestrator{
		cfg:    cfg,
		store:  store,
		engine: engine,
		logger: logger.With(interfaces.Field{Key: "component", Value: "monitor"}),
		events: events,
		locks:  newDumpLocks(),
	}, nil
}

// SetScheduler wires the periodic check scheduler. Domains created afterwards
// are scheduled as part of group creation; without a scheduler they are only
// dumped once.
func (o *Orchestrator) SetScheduler(s interfaces.CheckScheduler) {
	o.scheduler = s
}

// Events returns the hub fed by dump and check activity.
func (o *Orchestrator) Events() *EventHub {
	return o.events
}

// CreateGroup validates the whole request up front, persists the group and
// its domains, runs a synchronous initial dump for each domain and schedules
// the periodic checks. A failed initial dump is recorded but does not abort
// the remaining domains.
func (o *Orchestrator) CreateGroup(ctx context.Context, name string, configs []model.DomainConfig) (*model.Group, error) {
	name = strings.TrimSpace(name)
	if err := o.validateGroupRequest(name, configs); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	group := &model.Group{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: now,
		DomainIDs: []string{},
	}

	domains := make([]*model.Domain, 0, len(configs))
	for _, cfg := range configs {
		domain := &model.Domain{
			ID:               uuid.New().String(),
			GroupID:          group.ID,
			URL:              strings.TrimSpace(cfg.URL),
			DumpMode:         cfg.DumpMode,
			FrequencySeconds: cfg.FrequencySeconds,
			CreatedAt:        now,
			Active:           true,
		}
		group.DomainIDs = append(group.DomainIDs, domain.ID)
		domains = append(domains, domain)
	}

	if err := o.store.SaveGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("save group: %w", err)
	}
	for _, domain := range domains {
		if err := o.store.SaveDomain(ctx, domain); err != nil {
			return nil, fmt.Errorf("save domain %s: %w", domain.URL, err)
		}
	}

	o.logger.Info("group created",
		interfaces.Field{Key: "group_id", Value: group.ID},
		interfaces.Field{Key: "name", Value: group.Name},
		interfaces.Field{Key: "domains", Value: len(domains)})
	o.events.Publish(Event{
		Type:    EventGroupCreated,
		GroupID: group.ID,
		Message: fmt.Sprintf("group %q created with %d domains", group.Name, len(domains)),
	})

	// Initial dumps run synchronously so the caller sees a first snapshot
	// by the time the request returns.
	for _, domain := range domains {
		snap := o.PerformDump(ctx, domain, model.TriggerInitial)
		if !snap.Success {
			o.logger.Warn("initial dump failed",
				interfaces.Field{Key: "domain_id", Value: domain.ID},
				interfaces.Field{Key: "url", Value: domain.URL})
		}

		checked := time.Now().UTC()
		domain.LastCheckedAt = &checked
		if err := o.store.SaveDomain(ctx, domain); err != nil {
			o.logger.Warn("failed to record initial check time",
				interfaces.Field{Key: "domain_id", Value: domain.ID},
				interfaces.Field{Key: "error", Value: err.Error()})
		}

		if o.scheduler != nil {
			o.scheduler.Schedule(domain)
		}
	}

	return group, nil
}

func (o *Orchestrator) validateGroupRequest(name string, configs []model.DomainConfig) error {
	if name == "" {
		return fmt.Errorf("%w: group name must not be empty", ErrInvalidConfig)
	}
	if len(configs) == 0 {
		return fmt.Errorf("%w: at least one domain is required", ErrInvalidConfig)
	}
	if o.cfg.MaxDomainsPerGroup > 0 && len(configs) > o.cfg.MaxDomainsPerGroup {
		return fmt.Errorf("%w: %d domains exceeds the limit of %d", ErrInvalidConfig, len(configs), o.cfg.MaxDomainsPerGroup)
	}

	for _, cfg := range configs {
		domainURL := strings.TrimSpace(cfg.URL)
		if domainURL == "" {
			return fmt.Errorf("%w: domain url must not be empty", ErrInvalidConfig)
		}
		if !strings.HasPrefix(domainURL, "http://") && !strings.HasPrefix(domainURL, "https://") {
			return fmt.Errorf("%w: url %q must start with http:// or https://", ErrInvalidConfig, domainURL)
		}
		if !cfg.DumpMode.Valid() {
			return fmt.Errorf("%w: unknown dump mode %q", ErrInvalidConfig, cfg.DumpMode)
		}
		if cfg.FrequencySeconds <= 0 {
			return fmt.Errorf("%w: check frequency must be positive, got %d", ErrInvalidConfig, cfg.FrequencySeconds)
		}
		if o.cfg.MinCheckFrequencySeconds > 0 && cfg.FrequencySeconds < o.cfg.MinCheckFrequencySeconds {
			return fmt.Errorf("%w: check frequency %ds is below the minimum of %ds",
				ErrInvalidConfig, cfg.FrequencySeconds, o.cfg.MinCheckFrequencySeconds)
		}
	}
	return nil
}

func (o *Orchestrator) GetGroups(ctx context.Context) ([]*model.Group, error) {
	return o.store.LoadGroups(ctx)
}

func (o *Orchestrator) GetGroup(ctx context.Context, groupID string) (*model.Group, error) {
	return o.store.GetGroup(ctx, groupID)
}

func (o *Orchestrator) GetGroupDomains(ctx context.Context, groupID string) ([]*model.Domain, error) {
	if _, err := o.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return o.store.DomainsByGroup(ctx, groupID)
}

func (o *Orchestrator) GetDomain(ctx context.Context, domainID string) (*model.Domain, error) {
	return o.store.GetDomain(ctx, domainID)
}

func (o *Orchestrator) GetDomainSnapshots(ctx context.Context, domainID string) ([]*model.Snapshot, error) {
	if _, err := o.store.GetDomain(ctx, domainID); err != nil {
		return nil, err
	}
	return o.store.SnapshotsForDomain(ctx, domainID)
}

// TriggerForceDump runs a manual dump for domainID. At most one manual dump
// runs per domain at a time; a concurrent request fails with
// ErrDumpInProgress and the lock is always released when the dump finishes.
func (o *Orchestrator) TriggerForceDump(ctx context.Context, domainID string) (*model.Snapshot, error) {
	domain, err := o.store.GetDomain(ctx, domainID)
	if err != nil {
		return nil, err
	}

	if !o.locks.tryAcquire(domainID) {
		return nil, fmt.Errorf("%w %s", ErrDumpInProgress, domainID)
	}
	defer o.locks.release(domainID)

	o.logger.Info("manual dump triggered",
		interfaces.Field{Key: "domain_id", Value: domainID},
		interfaces.Field{Key: "url", Value: domain.URL})
	return o.PerformDump(ctx, domain, model.TriggerManual), nil
}

// PerformDump captures one snapshot of domain and records the outcome in the
// ping and dump logs. It never returns an error: every failure mode produces
// a failed snapshot instead, and a recovered panic is folded into one too.
func (o *Orchestrator) PerformDump(ctx context.Context, domain *model.Domain, trigger model.TriggerKind) (snap *model.Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("panic during dump",
				interfaces.Field{Key: "domain_id", Value: domain.ID},
				interfaces.Field{Key: "panic", Value: fmt.Sprint(r)})
			snap = o.recordFailedDump(domain, trigger, fmt.Sprintf("Unexpected error during dump: %v", r))
		}
	}()

	html, ok := o.engine.FetchContent(ctx, domain.URL)
	now := time.Now().UTC()

	ping := &model.PingLogEntry{Timestamp: now, Reachable: ok}
	if ok {
		status := 200
		ping.StatusCode = &status
		ping.Message = fmt.Sprintf("%s dump for domain %s", capitalizeTrigger(trigger), domain.URL)
	} else {
		ping.Message = fmt.Sprintf("Failed to fetch HTML for domain %s after retries", domain.URL)
	}
	if err := o.store.AppendPingLog(domain.ID, ping); err != nil {
		o.logger.Warn("failed to append ping log",
			interfaces.Field{Key: "domain_id", Value: domain.ID},
			interfaces.Field{Key: "error", Value: err.Error()})
	}

	if !ok {
		return o.recordFailedDump(domain, trigger, "Failed to fetch HTML after retries")
	}

	snapshotDir, err := o.store.CreateSnapshotDir(domain.ID, now)
	if err != nil {
		return o.recordFailedDump(domain, trigger, fmt.Sprintf("Unexpected error during dump: %v", err))
	}
	htmlRel, err := o.store.SaveHTML(snapshotDir, html)
	if err != nil {
		return o.recordFailedDump(domain, trigger, fmt.Sprintf("Unexpected error during dump: %v", err))
	}

	snap = &model.Snapshot{
		ID:        uuid.New().String(),
		DomainID:  domain.ID,
		Timestamp: now,
		Trigger:   trigger,
		HTMLPath:  htmlRel,
		Success:   true,
	}

	screenshotPath := filepath.Join(snapshotDir, screenshotFilename)
	if o.engine.CaptureScreenshot(ctx, domain.URL, screenshotPath) {
		if rel, relErr := o.store.RelPath(screenshotPath); relErr == nil {
			snap.ScreenshotPath = rel
		}
	}

	if domain.DumpMode == model.DumpModeHTMLAndAssets {
		downloaded := o.engine.DownloadAssets(ctx, html, domain.URL, snapshotDir)
		snap.AssetCount = len(downloaded)
		if len(downloaded) > 0 {
			if rel, relErr := o.store.RelPath(filepath.Join(snapshotDir, assetsDirname)); relErr == nil {
				snap.AssetsDir = rel
			}
		}
	}

	if err := o.store.SaveSnapshotMetadata(snap); err != nil {
		return o.recordFailedDump(domain, trigger, fmt.Sprintf("Unexpected error during dump: %v", err))
	}

	o.appendDumpLog(domain, &model.DumpLogEntry{
		Timestamp:  time.Now().UTC(),
		Trigger:    trigger,
		SnapshotID: snap.ID,
		Success:    true,
		Message:    fmt.Sprintf("Successfully created %s dump", trigger),
	})
	o.events.Publish(Event{
		Type:       EventDumpCompleted,
		DomainID:   domain.ID,
		SnapshotID: snap.ID,
		Trigger:    trigger,
	})
	o.logger.Info("dump completed",
		interfaces.Field{Key: "domain_id", Value: domain.ID},
		interfaces.Field{Key: "snapshot_id", Value: snap.ID},
		interfaces.Field{Key: "trigger", Value: string(trigger)},
		interfaces.Field{Key: "assets", Value: snap.AssetCount})
	return snap
}

func (o *Orchestrator) recordFailedDump(domain *model.Domain, trigger model.TriggerKind, reason string) *model.Snapshot {
	snap := &model.Snapshot{
		ID:           uuid.New().String(),
		DomainID:     domain.ID,
		Timestamp:    time.Now().UTC(),
		Trigger:      trigger,
		Success:      false,
		ErrorMessage: reason,
	}
	o.appendDumpLog(domain, &model.DumpLogEntry{
		Timestamp:    snap.Timestamp,
		Trigger:      trigger,
		SnapshotID:   snap.ID,
		Success:      false,
		ErrorMessage: reason,
		Message:      fmt.Sprintf("Failed to create %s dump", trigger),
	})
	o.events.Publish(Event{
		Type:       EventDumpFailed,
		DomainID:   domain.ID,
		SnapshotID: snap.ID,
		Trigger:    trigger,
		Message:    reason,
	})
	return snap
}

func (o *Orchestrator) appendDumpLog(domain *model.Domain, entry *model.DumpLogEntry) {
	if err := o.store.AppendDumpLog(domain.ID, entry); err != nil {
		o.logger.Warn("failed to append dump log",
			interfaces.Field{Key: "domain_id", Value: domain.ID},
			interfaces.Field{Key: "error", Value: err.Error()})
	}
}

// SnapshotDetails aggregates everything known about one snapshot.
type SnapshotDetails struct {
	Snapshot         *model.Snapshot       `json:"snapshot"`
	Domain           *model.Domain         `json:"domain"`
	PingLogs         []*model.PingLogEntry `json:"ping_logs"`
	DumpLogs         []*model.DumpLogEntry `json:"dump_logs"`
	HTMLContent      *string               `json:"html_content"`
	ScreenshotExists bool                  `json:"screenshot_exists"`
	Assets           []string              `json:"assets"`
	IsValid          bool                  `json:"is_valid"`
	ValidationErrors []string              `json:"validation_errors"`
}

// GetSnapshotDetails loads the snapshot, its domain, both audit logs, the
// stored HTML, the asset listing and an integrity verdict. Optional pieces
// degrade to empty values with a warning; an unknown snapshot or a missing
// domain is an error.
func (o *Orchestrator) GetSnapshotDetails(ctx context.Context, snapshotID string) (*SnapshotDetails, error) {
	snap, err := o.store.GetSnapshot(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	domain, err := o.store.GetDomain(ctx, snap.DomainID)
	if err != nil {
		return nil, err
	}

	details := &SnapshotDetails{
		Snapshot: snap,
		Domain:   domain,
		PingLogs: []*model.PingLogEntry{},
		DumpLogs: []*model.DumpLogEntry{},
		Assets:   []string{},
	}

	if pings, err := o.store.ReadPingLog(domain.ID); err != nil {
		o.logger.Warn("failed to read ping log, skipping",
			interfaces.Field{Key: "domain_id", Value: domain.ID},
			interfaces.Field{Key: "error", Value: err.Error()})
	} else {
		details.PingLogs = pings
	}
	if dumps, err := o.store.ReadDumpLog(domain.ID); err != nil {
		o.logger.Warn("failed to read dump log, skipping",
			interfaces.Field{Key: "domain_id", Value: domain.ID},
			interfaces.Field{Key: "error", Value: err.Error()})
	} else {
		details.DumpLogs = dumps
	}

	if snap.HTMLPath != "" {
		if html, err := o.store.LoadHTML(snap); err != nil {
			o.logger.Warn("failed to load snapshot html, skipping",
				interfaces.Field{Key: "snapshot_id", Value: snap.ID},
				interfaces.Field{Key: "error", Value: err.Error()})
		} else {
			details.HTMLContent = &html
		}
	}

	if snap.ScreenshotPath != "" {
		if info, err := os.Stat(o.store.AbsPath(snap.ScreenshotPath)); err == nil && info.Mode().IsRegular() {
			details.ScreenshotExists = true
		}
	}

	if snap.AssetsDir != "" {
		if entries, err := os.ReadDir(o.store.AbsPath(snap.AssetsDir)); err == nil {
			for _, entry := range entries {
				if !entry.IsDir() {
					details.Assets = append(details.Assets, entry.Name())
				}
			}
			sort.Strings(details.Assets)
		}
	}

	valid, violations := o.store.ValidateSnapshot(snap)
	details.IsValid = valid
	details.ValidationErrors = violations
	if details.ValidationErrors == nil {
		details.ValidationErrors = []string{}
	}

	return details, nil
}

// ResetEnvironment stops every scheduled check and wipes all groups, domains
// and snapshots.
func (o *Orchestrator) ResetEnvironment(ctx context.Context) (*model.ResetStats, error) {
	if o.scheduler != nil {
		o.scheduler.UnscheduleAll()
	}

	stats, err := o.store.Reset(ctx)
	if err != nil {
		return nil, err
	}

	o.events.Publish(Event{
		Type: EventEnvironmentReset,
		Message: fmt.Sprintf("removed %d groups, %d domains, %d snapshots",
			stats.GroupsDeleted, stats.DomainsDeleted, stats.SnapshotsDeleted),
	})
	return stats, nil
}

func capitalizeTrigger(trigger model.TriggerKind) string {
	s := string(trigger)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
