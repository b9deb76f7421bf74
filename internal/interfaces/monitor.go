package interfaces

import (
	"context"

	"github.com/raysh454/vigil/internal/model"
)

// Dumper performs one full dump of a domain: fetch, artifact persistence,
// and audit logging. It never returns an error; failures are recorded on the
// returned snapshot and in the domain's dump log.
type Dumper interface {
	PerformDump(ctx context.Context, domain *model.Domain, trigger model.TriggerKind) *model.Snapshot
}

// CheckScheduler manages the recurring change checks for domains.
type CheckScheduler interface {
	// Schedule starts recurring checks for the domain, replacing any
	// existing schedule for the same domain ID.
	Schedule(d *model.Domain)

	// Unschedule stops the recurring check for the domain, if any.
	Unschedule(domainID string)

	// UnscheduleAll stops every recurring check.
	UnscheduleAll()
}
