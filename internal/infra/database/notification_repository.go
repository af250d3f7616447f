package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lapublica/leadflow/internal/entity"
)

const notificationColumns = `id, user_id, type, title, message, link, metadata, is_read, read_at,
	lead_id, company_id, created_at`

const insertNotification = `
	INSERT INTO notifications (id, user_id, type, title, message, link, metadata, is_read,
		read_at, lead_id, company_id, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

type NotificationRepository struct {
	DB *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{DB: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertOne(ctx context.Context, db execer, n *entity.Notification) error {
	metadata, err := marshalMetadata(n.Metadata)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, insertNotification,
		n.ID,
		n.UserID,
		string(n.Type),
		n.Title,
		n.Message,
		nullString(n.Link),
		metadata,
		n.IsRead,
		n.ReadAt,
		n.LeadID,
		n.CompanyID,
		n.CreatedAt,
	)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return fmt.Errorf("insert notification for %s: %w", n.UserID, entity.ErrUserNotFound)
		}
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	return insertOne(ctx, r.DB, n)
}

// CreateMany inserts all rows in one transaction.
func (r *NotificationRepository) CreateMany(ctx context.Context, ns []*entity.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, n := range ns {
		if err := insertOne(ctx, tx, n); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *NotificationRepository) MarkAsRead(ctx context.Context, id string, at time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE, read_at = COALESCE(read_at, $2) WHERE id = $1`,
		id, at)
	if pgCode(err) == pgInvalidTextRepr {
		return entity.ErrNotificationNotFound
	}
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE, read_at = $2 WHERE user_id = $1 AND is_read = FALSE`,
		userID, at)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return res.RowsAffected()
}

func (r *NotificationRepository) Count(ctx context.Context, filter entity.NotificationFilter) (int, error) {
	where, args := notificationWhere(filter)
	var count int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return count, nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*entity.Notification, error) {
	where, args := notificationWhere(entity.NotificationFilter{UserID: userID, UnreadOnly: unreadOnly})
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT %s FROM notifications%s ORDER BY created_at DESC LIMIT $%d`,
		notificationColumns, where, len(args))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := make([]*entity.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *NotificationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time, readOnly bool) (int64, error) {
	query := `DELETE FROM notifications WHERE created_at < $1`
	if readOnly {
		query += ` AND is_read = TRUE`
	}
	res, err := r.DB.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete notifications: %w", err)
	}
	return res.RowsAffected()
}

func notificationWhere(f entity.NotificationFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.LeadID != "" {
		add("lead_id = $%d", f.LeadID)
	}
	if f.Type != "" {
		add("type = $%d", string(f.Type))
	}
	if f.TitleContains != "" {
		add("title ILIKE '%%' || $%d::text || '%%'", f.TitleContains)
	}
	if !f.Since.IsZero() {
		add("created_at >= $%d", f.Since)
	}
	if f.UnreadOnly {
		conds = append(conds, "is_read = FALSE")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanNotification(s rowScanner) (*entity.Notification, error) {
	var (
		n                 entity.Notification
		kind              string
		link              sql.NullString
		metadata          []byte
		readAt            sql.NullTime
		leadID, companyID sql.NullString
	)
	if err := s.Scan(&n.ID, &n.UserID, &kind, &n.Title, &n.Message, &link, &metadata,
		&n.IsRead, &readAt, &leadID, &companyID, &n.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan notification: %w", err)
	}
	n.Type = entity.NotificationType(kind)
	n.Link = link.String
	if readAt.Valid {
		t := readAt.Time
		n.ReadAt = &t
	}
	if leadID.Valid {
		id := leadID.String
		n.LeadID = &id
	}
	if companyID.Valid {
		id := companyID.String
		n.CompanyID = &id
	}
	var err error
	if n.Metadata, err = unmarshalMetadata(metadata); err != nil {
		return nil, err
	}
	return &n, nil
}
