package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/lapublica/leadflow/internal/entity"
)

// NotificationMailer delivers a notification to a mailbox.
type NotificationMailer interface {
	SendNotification(to, name, title, message, link string) error
}

// errSkip marks messages that can never succeed; they are acked and dropped.
var errSkip = errors.New("skip")

type Worker struct {
	Channel *amqp.Channel
	Users   entity.UserRepositoryInterface
	Mailer  NotificationMailer
	Logger  *zap.Logger
}

func NewWorker(ch *amqp.Channel, users entity.UserRepositoryInterface, mailer NotificationMailer, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		Channel: ch,
		Users:   users,
		Mailer:  mailer,
		Logger:  logger,
	}
}

// Start consumes queueName until ctx is cancelled or the channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(
		queueName,
		"",    // consumer
		false, // auto-ack off, acked in handle
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	w.Logger.Info("📥 notification email worker listening", zap.String("queue", queueName))

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	err := w.Process(ctx, d.Body)
	switch {
	case err == nil:
		d.Ack(false)
	case errors.Is(err, errSkip):
		w.Logger.Warn("⚠️ dropping notification message", zap.Error(err))
		d.Ack(false)
	default:
		w.Logger.Error("❌ notification email failed", zap.Error(err))
		// goes to the DLQ
		d.Nack(false, false)
	}
}

// Process decodes one message body and emails the recipient.
func (w *Worker) Process(ctx context.Context, body []byte) error {
	var payload NotificationPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("%w: invalid json: %v", errSkip, err)
	}

	user, err := w.Users.FindByID(ctx, payload.UserID)
	if err != nil {
		if errors.Is(err, entity.ErrUserNotFound) {
			return fmt.Errorf("%w: recipient %s not found", errSkip, payload.UserID)
		}
		return err
	}
	if !user.Active || user.Email == "" {
		return fmt.Errorf("%w: recipient %s has no active mailbox", errSkip, payload.UserID)
	}

	if err := w.Mailer.SendNotification(user.Email, user.Name, payload.Title, payload.Message, payload.Link); err != nil {
		return err
	}

	w.Logger.Info("✅ notification emailed",
		zap.String("notification_id", payload.NotificationID),
		zap.String("user_id", payload.UserID))
	return nil
}
