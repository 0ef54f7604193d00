package queue

import (
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/washgeo/internal/config"
)

type Client struct {
	client *asynq.Client
}

func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{client: asynq.NewClient(RedisOpt(cfg))}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueReconcile schedules a reconciliation pass. A pass already queued
// within the last minute absorbs the request.
func (c *Client) EnqueueReconcile(mode string) error {
	task, err := NewReconcileTask(mode)
	if err != nil {
		return err
	}
	_, err = c.client.Enqueue(task, asynq.Unique(reconcileUniqueTTL))
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeAssignmentReconcile, err)
	}
	return nil
}
