package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/macchain/backend/pkg/api"
	"github.com/macchain/backend/pkg/config"
	"github.com/macchain/backend/pkg/logger"
	"github.com/macchain/backend/pkg/output"
	"github.com/macchain/backend/pkg/realtime"
	"github.com/macchain/backend/pkg/syncer"
)

type notificationPayload struct {
	ID       string `json:"id"`
	Type     string `json:"notification_type"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Priority string `json:"priority"`
}

type WatchService struct {
	s *Session
}

func NewWatchService(s *Session) *WatchService {
	return &WatchService{s: s}
}

// Watch streams realtime events until ctx ends. Row changes are applied to
// the local store and summarized; notifications are printed as they arrive.
// With liveFeed the first feed page is printed and reprinted whenever a
// change lands in it. Parked offline writes are replayed at start and after
// every reconnect, which also drops the cache since changes pushed during
// the outage are lost.
func (w *WatchService) Watch(ctx context.Context, tables []string, liveFeed bool) error {
	if err := w.s.RequireAuth(); err != nil {
		return err
	}
	st, err := w.s.Store()
	if err != nil {
		return err
	}

	sub := realtime.NewSubscriber(realtime.Config{
		URL:      config.GetString("api.base_url"),
		Token:    w.s.Creds.AccessToken,
		ClientID: w.s.ClientID,
		Tables:   tables,
	})
	w.register(sub, st.Reconciler())
	sub.OnReconnect(func(ctx context.Context) {
		w.resync(ctx, st, liveFeed)
	})
	if st.Offline().Len() > 0 {
		w.replay(ctx, st)
	}

	if liveFeed {
		page := api.ListParams{Page: 1}
		list, err := st.Feed(ctx, page)
		if err != nil {
			return err
		}
		if err := printDiscussionPage("Community", list); err != nil {
			return err
		}
		key := syncer.DiscussionListKey(page)
		shown := list
		unsubscribe := st.Cache().Subscribe(key, func(k string, v interface{}) {
			// invalidation re-emits the value already on screen
			if updated, ok := v.(*api.DiscussionList); ok && k == key && updated != shown {
				shown = updated
				_ = printDiscussionPage("Community (updated)", updated)
			}
		})
		defer unsubscribe()
	}

	if err := sub.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer sub.Close()

	output.PrintInfo("Watching for changes. Press Ctrl+C to stop.")
	<-ctx.Done()

	stats := sub.Stats()
	logger.Debug("Watch stopped", "received", stats.MessagesReceived, "reconnects", stats.ReconnectCount)
	return nil
}

// resync catches up after an outage
func (w *WatchService) resync(ctx context.Context, st *syncer.Store, liveFeed bool) {
	w.replay(ctx, st)
	st.Cache().Invalidate()
	if liveFeed {
		if _, err := st.Feed(ctx, api.ListParams{Page: 1}); err != nil {
			logger.Warn("Feed refresh after reconnect failed", "error", err)
		}
	}
}

func (w *WatchService) replay(ctx context.Context, st *syncer.Store) {
	if st.Offline().Len() == 0 {
		return
	}
	res, err := st.Sync(ctx)
	if err != nil {
		logger.Warn("Offline replay failed", "error", err)
	}
	if res.Succeeded > 0 {
		output.PrintSuccess("Synced %d offline change%s", res.Succeeded, pluralize(res.Succeeded))
	}
	if res.Failed > 0 {
		output.PrintWarning("%d offline change%s still pending", res.Failed, pluralize(res.Failed))
	}
}

func (w *WatchService) register(sub *realtime.Subscriber, rec *syncer.Reconciler) {
	out := output.Writer()
	stamp := func(t time.Time) string {
		if t.IsZero() {
			t = time.Now()
		}
		return color.New(color.Faint).Sprint(t.Local().Format("15:04:05"))
	}

	sub.On(realtime.TypeRowChange, func(msg realtime.Message) {
		var ev syncer.ChangeEvent
		if err := msg.Decode(&ev); err != nil {
			logger.Warn("Bad row change", "error", err)
			return
		}
		if !rec.Apply(ev) {
			return
		}
		fmt.Fprintf(out, "%s %s %s\n", stamp(msg.Timestamp), color.YellowString("%-8s", ev.Event), ev.Table)
	})
	sub.On(realtime.TypeNotification, func(msg realtime.Message) {
		var n notificationPayload
		if err := msg.Decode(&n); err != nil {
			logger.Warn("Bad notification", "error", err)
			return
		}
		fmt.Fprintf(out, "%s %s %s\n", stamp(msg.Timestamp), color.GreenString("🔔 "+n.Title), n.Message)
	})
	sub.On(realtime.TypeNotificationCount, func(msg realtime.Message) {
		var c struct {
			UnreadCount int64 `json:"unread_count"`
		}
		if err := msg.Decode(&c); err == nil {
			fmt.Fprintf(out, "%s %d unread\n", stamp(msg.Timestamp), c.UnreadCount)
		}
	})
	sub.On(realtime.TypeError, func(msg realtime.Message) {
		var e struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if err := msg.Decode(&e); err == nil {
			output.PrintWarning("server: %s (%s)", e.Message, e.Code)
		}
	})
}
