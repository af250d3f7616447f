package usecase

import (
	"context"
	"time"

	"github.com/lapublica/leadflow/internal/entity"
	"github.com/lapublica/leadflow/internal/infra/queue"
)

// AudienceResolver resolves the broadcast lists used by escalations.
type AudienceResolver interface {
	CRMUserIDs(ctx context.Context) ([]string, error)
	AdminUserIDs(ctx context.Context) ([]string, error)
}

// NotificationSender is the dispatcher surface the workflow depends on.
type NotificationSender interface {
	CreateNotification(ctx context.Context, userID string, payload NotificationPayload) (*entity.Notification, error)
	CreateBulkNotifications(ctx context.Context, userIDs []string, payload NotificationPayload) ([]*entity.Notification, error)
	HasRecentNotification(ctx context.Context, filter entity.NotificationFilter) (bool, error)
}

type QueueProducerInterface interface {
	PublishNotification(ctx context.Context, payload queue.NotificationPayload) error
}

// RunLock serializes batch runs across processes.
type RunLock interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, acquired bool, err error)
}
