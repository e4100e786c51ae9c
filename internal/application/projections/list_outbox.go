package projections

import (
	"context"
	"fmt"

	domainOutbox "astres/internal/domain/outbox"
)

// outboxPageSize bounds each list on the admin outbox page.
const outboxPageSize = 50

// ListOutboxResult carries the query result.
type ListOutboxResult struct {
	Pending []domainOutbox.Entry
	Failed  []domainOutbox.Entry
}

// ListOutboxDeps holds dependencies for ListOutbox.
type ListOutboxDeps struct {
	OutboxStore OutboxStore
}

// QueryListOutbox returns queued and failed side effects for the admin page.
func QueryListOutbox(ctx context.Context, deps ListOutboxDeps) (ListOutboxResult, error) {
	pending, err := deps.OutboxStore.ListPending(ctx, outboxPageSize)
	if err != nil {
		return ListOutboxResult{}, fmt.Errorf("list pending outbox: %w", err)
	}
	failed, err := deps.OutboxStore.ListFailed(ctx, outboxPageSize)
	if err != nil {
		return ListOutboxResult{}, fmt.Errorf("list failed outbox: %w", err)
	}
	return ListOutboxResult{Pending: pending, Failed: failed}, nil
}
