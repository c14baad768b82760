// Package reconciler re-runs room assignment for unassigned
// registrations whenever the room set changes. The allocator is
// best-effort at submission time; this worker is the eventual
// reconciliation half of that design.
package reconciler

import (
	"context"
	"encoding/json"

	"github.com/wb-go/wbf/zlog"

	"campreg/internal/dto"
	"campreg/internal/rabbit"
	"campreg/internal/repo"
)

type Worker struct {
	RMQ    *rabbit.Client
	repo   repo.Repository
	done   chan struct{}
	cancel context.CancelFunc
}

func NewWorker(rmq *rabbit.Client, repository repo.Repository) *Worker {
	return &Worker{
		RMQ:  rmq,
		repo: repository,
		done: make(chan struct{}),
	}
}

func (w *Worker) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	zlog.Logger.Info().Msg("room reconciler started")

	go func() {
		defer close(w.done)

		handler := func(body []byte) error {
			var msg dto.RoomEventMessage
			if err := json.Unmarshal(body, &msg); err != nil {
				zlog.Logger.Error().Err(err).Msgf("failed to unmarshal room event: %s", string(body))
				return err
			}

			zlog.Logger.Info().
				Str("room_id", msg.RoomID).
				Str("room_number", msg.RoomNumber).
				Msg("room change received")

			return w.reconcile(cctx)
		}

		if err := w.RMQ.Consume(handler); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to start consuming room events")
			return
		}

		<-cctx.Done()
		zlog.Logger.Info().Msg("room reconciler stopped by context")
	}()
}

// reconcile walks unassigned registrations oldest first and attempts
// the transactional assignment for each. Registrations that still fit
// nowhere stay unassigned; that is normal.
func (w *Worker) reconcile(ctx context.Context) error {
	regs, err := w.repo.GetUnassignedRegistrations(ctx)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to list unassigned registrations")
		return err
	}

	for _, reg := range regs {
		roomID, assigned, err := w.repo.AssignRoomTx(ctx, reg.ID)
		if err != nil {
			zlog.Logger.Error().
				Err(err).
				Str("registration_id", reg.ID).
				Msg("failed to retry assignment")
			return err
		}
		if assigned {
			zlog.Logger.Info().
				Str("registration_id", reg.ID).
				Str("room_id", roomID).
				Msg("registration assigned during reconciliation")
		}
	}

	return nil
}

func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
}
