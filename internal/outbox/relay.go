package outbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/toniautla/settlement/internal/config"
	"github.com/toniautla/settlement/internal/domain"
	"github.com/toniautla/settlement/pkg/clients"
)

const (
	maxRetries    = 3
	retryInterval = time.Second * 1
)

var relayingEvents sync.Map

type Repo interface {
	FindUnsent(ctx context.Context, limit uint32) ([]domain.OutboxEvent, error)
	MarkSent(ctx context.Context, id int) error
}

// Service relays committed outbox events to the notification sink so a
// separate notification layer can fan them out. A sink address of "" leaves
// the relay disabled; events then stay queued.
type Service struct {
	url            string
	repo           Repo
	client         clients.HTTPClientI
	limit          uint32
	workerPool     WorkerPoolI
	updateInterval time.Duration
}

func New(cfg *config.Config, repo Repo, client clients.HTTPClientI) *Service {
	return &Service{
		url:            cfg.NotifyAddress,
		repo:           repo,
		client:         client,
		limit:          1000,
		workerPool:     NewWorkerPool(10),
		updateInterval: time.Second * 5,
	}
}

func (s *Service) Start(ctx context.Context) {
	if s.url == "" {
		zap.L().Info("Outbox relay disabled: no notification sink configured")
		return
	}
	zap.L().Info("Outbox relay started")
	go s.run(ctx)
}

func (s *Service) run(ctx context.Context) {
	ticker := time.NewTicker(s.updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("Context canceled, stopping outbox relay")
			return
		case <-ticker.C:
			s.relayEvents(ctx)
		}
	}
}

func (s *Service) relayEvents(ctx context.Context) {
	events, err := s.repo.FindUnsent(ctx, atomic.LoadUint32(&s.limit))
	if err != nil {
		zap.L().Error("Failed to fetch outbox events", zap.Error(err))
		return
	}

	var g errgroup.Group
	for _, event := range events {
		event := event

		if _, loaded := relayingEvents.LoadOrStore(event.ID, struct{}{}); loaded {
			continue
		}

		g.Go(func() error {
			err := s.workerPool.AddTask(ctx, func() error {
				defer relayingEvents.Delete(event.ID)
				return s.handleEvent(ctx, event)
			})
			if err != nil {
				relayingEvents.Delete(event.ID)
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		zap.L().Error("Error relaying outbox events", zap.Error(err))
	}
}

func (s *Service) handleEvent(ctx context.Context, event domain.OutboxEvent) error {
	body, err := json.Marshal(map[string]any{
		"id":         event.ID,
		"type":       event.Type,
		"payload":    json.RawMessage(event.Payload),
		"created_at": event.CreatedAt,
	})
	if err != nil {
		return err
	}

	for attempt := 1; attempt <= maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return s.repo.MarkSent(ctx, event.ID)
			}
			err = fmt.Errorf("sink returned status %d", resp.StatusCode)
		}

		zap.L().Warn("Failed to deliver outbox event",
			zap.Int("event_id", event.ID), zap.Int("attempt", attempt), zap.Error(err))
		if attempt < maxRetries {
			time.Sleep(retryInterval)
		}
	}
	// Left unsent; the next poll retries it.
	return nil
}
