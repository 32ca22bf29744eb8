package scheduler

import (
	"context"
	"fmt"

	"salesops_backend/internal/events"
	"salesops_backend/internal/leads/repository"
	"salesops_backend/internal/notification/inapp"
	"salesops_backend/platform/config"
	"salesops_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Worker struct {
	server        *asynq.Server
	mux           *asynq.ServeMux
	leads         *repository.Repository
	notifications *inapp.Service
	bus           events.Bus
	log           *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, notifications *inapp.Service, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:        server,
		mux:           mux,
		leads:         repository.New(pool),
		notifications: notifications,
		bus:           bus,
		log:           log,
	}

	mux.HandleFunc(TaskFollowUpReminder, w.handleFollowUpReminder)

	return w, nil
}

// handleFollowUpReminder fires after the configured delay following a
// distribution. If the recipient still holds assigned leads with no call
// attempt, they get an in-app nudge.
func (w *Worker) handleFollowUpReminder(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseFollowUpReminderPayload(task)
	if err != nil {
		return err
	}

	recipientID, err := uuid.Parse(payload.RecipientID)
	if err != nil {
		return err
	}

	untouched, err := w.leads.CountUntouchedAssigned(ctx, recipientID)
	if err != nil {
		return err
	}
	if untouched == 0 {
		return nil
	}

	w.notifications.Send(ctx, recipientID,
		"Leads awaiting first contact",
		fmt.Sprintf("You have %d assigned leads with no call attempt yet.", untouched))

	if w.bus != nil {
		w.bus.Publish(ctx, events.FollowUpDue{
			BaseEvent:   events.NewBaseEvent(),
			RecipientID: recipientID,
			LeadCount:   untouched,
		})
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
