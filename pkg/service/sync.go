package service

import (
	"context"
	"strconv"

	"github.com/macchain/backend/pkg/output"
)

type SyncService struct {
	s *Session
}

func NewSyncService(s *Session) *SyncService {
	return &SyncService{s: s}
}

// Sync replays mutations saved while offline
func (sy *SyncService) Sync(ctx context.Context) error {
	if err := sy.s.RequireAuth(); err != nil {
		return err
	}
	st, err := sy.s.Store()
	if err != nil {
		return err
	}
	if st.Offline().Len() == 0 {
		output.PrintInfo("Nothing to sync")
		return nil
	}
	res, err := st.Sync(ctx)
	if err != nil {
		return err
	}
	if res.Succeeded > 0 {
		output.PrintSuccess("✓ Synced %d change%s", res.Succeeded, pluralize(res.Succeeded))
	}
	if res.Failed > 0 {
		output.PrintWarning("%d change%s still pending; run `macchain sync pending` for details", res.Failed, pluralize(res.Failed))
	}
	if res.Expired > 0 {
		output.PrintWarning("%d change%s expired and were dropped", res.Expired, pluralize(res.Expired))
	}
	return nil
}

// Pending lists queued mutations
func (sy *SyncService) Pending() error {
	st, err := sy.s.Store()
	if err != nil {
		return err
	}
	entries := st.Offline().Entries()
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.ID, e.Kind, ago(e.CreatedAt), strconv.Itoa(e.Attempts), truncate(e.LastError, 40)})
	}
	return output.PrintList("Pending changes", entries, []string{"ID", "KIND", "QUEUED", "ATTEMPTS", "LAST ERROR"}, rows)
}

// Clear drops every queued mutation after confirmation
func (sy *SyncService) Clear(force bool) error {
	st, err := sy.s.Store()
	if err != nil {
		return err
	}
	n := st.Offline().Len()
	if n == 0 {
		output.PrintInfo("Nothing to clear")
		return nil
	}
	if !force {
		ok, err := sy.s.Prompt.Confirm("Discard " + strconv.Itoa(n) + " pending change" + pluralize(n) + "?")
		if err != nil || !ok {
			return err
		}
	}
	if err := st.Offline().Clear(); err != nil {
		return err
	}
	output.PrintSuccess("✓ Cleared %d pending change%s", n, pluralize(n))
	return nil
}
