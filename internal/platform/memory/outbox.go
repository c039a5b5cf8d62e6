package memory

import (
	"context"
	"errors"
	"maps"
	"slices"
	"time"

	"github.com/dmehra2102/storefront/pkg/outbox"
)

type OutboxStore struct {
	s *Store
}

func (o *OutboxStore) Append(ctx context.Context, ev outbox.Event) error {
	return o.s.do(ctx, func(st *state) error {
		st.nextEventID++
		ev.ID = st.nextEventID
		ev.Status = outbox.StatusPending
		ev.Headers = maps.Clone(ev.Headers)
		if ev.CreatedAt.IsZero() {
			ev.CreatedAt = o.s.now()
		}
		st.events = append(st.events, ev)
		return nil
	})
}

func (o *OutboxStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]outbox.Event, error) {
	var claimed []outbox.Event
	err := o.s.do(ctx, func(st *state) error {
		now := o.s.now()
		for i := range st.events {
			if len(claimed) >= batchSize {
				break
			}
			ev := &st.events[i]
			expired := ev.Status == outbox.StatusInProgress && st.leases[ev.ID].Before(now)
			if ev.Status != outbox.StatusPending && !expired {
				continue
			}
			ev.Status = outbox.StatusInProgress
			ev.RelayID = relayID
			st.leases[ev.ID] = now.Add(lease)
			claimed = append(claimed, *ev)
		}
		return nil
	})
	return claimed, err
}

func (o *OutboxStore) MarkSent(ctx context.Context, ids []int64) error {
	return o.s.do(ctx, func(st *state) error {
		updated := 0
		for i := range st.events {
			if slices.Contains(ids, st.events[i].ID) {
				st.events[i].Status = outbox.StatusSent
				delete(st.leases, st.events[i].ID)
				updated++
			}
		}
		if updated == 0 {
			return errors.New("no rows updated")
		}
		return nil
	})
}

func (o *OutboxStore) MarkFailed(ctx context.Context, id int64, errMsg string, maxRetries int) error {
	return o.s.do(ctx, func(st *state) error {
		for i := range st.events {
			ev := &st.events[i]
			if ev.ID != id {
				continue
			}
			ev.RetryCount++
			ev.LastError = &errMsg
			ev.Status = outbox.StatusPending
			if ev.RetryCount >= maxRetries {
				ev.Status = outbox.StatusFailed
			}
			delete(st.leases, id)
			return nil
		}
		return nil
	})
}

// Events returns a copy of every stored event in append order.
func (o *OutboxStore) Events(ctx context.Context) ([]outbox.Event, error) {
	var out []outbox.Event
	err := o.s.do(ctx, func(st *state) error {
		out = slices.Clone(st.events)
		return nil
	})
	return out, err
}
