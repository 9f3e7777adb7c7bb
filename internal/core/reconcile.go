package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Policy selects how a successful upload updates the stored collections.
type Policy string

const (
	// PolicyReplace overwrites the stored collections with the fresh result.
	PolicyReplace Policy = "replace"
	// PolicyAccumulate merges the fresh result into the stored collections.
	PolicyAccumulate Policy = "accumulate"
)

// ParsePolicy parses a policy name. The empty string is PolicyReplace.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyReplace:
		return PolicyReplace, nil
	case PolicyAccumulate:
		return PolicyAccumulate, nil
	default:
		return "", fmt.Errorf("unknown reconcile policy %q (want replace or accumulate)", s)
	}
}

// Reconciliation is what the presentation layer shows after an upload.
type Reconciliation struct {
	Inserted RecordCollection `json:"inserted"`
	Missing  RecordCollection `json:"missing"`
	Share    ShareMessage     `json:"share"`
}

// Coordinator turns a successful upload result into persisted state.
type Coordinator struct {
	store  *RecordStore
	policy Policy
}

// NewCoordinator creates a coordinator writing to store. An empty policy
// means PolicyReplace.
func NewCoordinator(store *RecordStore, policy Policy) *Coordinator {
	if policy == "" {
		policy = PolicyReplace
	}
	return &Coordinator{store: store, policy: policy}
}

// Policy returns the coordinator's policy.
func (c *Coordinator) Policy() Policy {
	return c.policy
}

// Reconcile builds the inserted and missing collections and the share
// message for result and persists all three in one atomic write. On error
// the store is left as it was.
func (c *Coordinator) Reconcile(ctx context.Context, result UploadResult) (Reconciliation, error) {
	fresh := result.InsertedRecords.Dedup()
	freshMissing := result.MissingRecords.Dedup()

	// The share report always describes this upload only.
	share := NewShareMessage(result, fresh, freshMissing)

	inserted, missing := fresh, freshMissing
	if c.policy == PolicyAccumulate {
		inserted = Merge(c.store.Inserted(ctx), fresh)
		missing = Merge(c.store.Missing(ctx), freshMissing)
	}

	rec := Reconciliation{
		Inserted: inserted,
		Missing:  missing,
		Share:    share,
	}

	if err := c.store.SaveAll(ctx, rec.Inserted, rec.Missing, rec.Share); err != nil {
		return Reconciliation{}, err
	}

	slog.Debug("reconciled upload result",
		"policy", c.policy,
		"inserted", len(inserted),
		"missing", len(missing))

	return rec, nil
}
