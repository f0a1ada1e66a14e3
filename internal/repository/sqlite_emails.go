package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mmeshcher/storefront-admin/internal/model"
)

type sqliteEmail struct {
	ID        string         `db:"id"`
	Recipient string         `db:"recipient"`
	Subject   string         `db:"subject"`
	Body      string         `db:"body"`
	Kind      string         `db:"kind"`
	Status    string         `db:"status"`
	OrderID   sql.NullString `db:"order_id"`
	Error     string         `db:"error"`
	CreatedAt string         `db:"created_at"`
	SentAt    sql.NullString `db:"sent_at"`
}

func (e sqliteEmail) toModel() model.EmailRecord {
	res := model.EmailRecord{
		ID:        e.ID,
		Recipient: e.Recipient,
		Subject:   e.Subject,
		Body:      e.Body,
		Kind:      model.EmailKind(e.Kind),
		Status:    model.EmailStatus(e.Status),
		OrderID:   e.OrderID.String,
		Error:     e.Error,
		SentAt:    parseSQLiteTime(e.SentAt),
	}
	if t := parseSQLiteTime(sql.NullString{String: e.CreatedAt, Valid: true}); t != nil {
		res.CreatedAt = *t
	}
	return res
}

// CreateEmail сохраняет письмо в журнале.
func (r *SQLiteRepository) CreateEmail(ctx context.Context, e model.EmailRecord) error {
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO emails (`+emailColumns+`)
		 VALUES (:id, :recipient, :subject, :body, :kind, :status, :order_id, :error, :created_at, :sent_at)`,
		sqliteEmail{
			ID:        e.ID,
			Recipient: e.Recipient,
			Subject:   e.Subject,
			Body:      e.Body,
			Kind:      string(e.Kind),
			Status:    string(e.Status),
			OrderID:   sql.NullString{String: e.OrderID, Valid: e.OrderID != ""},
			Error:     e.Error,
			CreatedAt: formatCreatedAt(e.CreatedAt),
			SentAt:    sqliteTime(e.SentAt),
		},
	)
	if err != nil {
		return fmt.Errorf("create email: %w", err)
	}
	return nil
}

// GetEmail возвращает письмо по идентификатору.
func (r *SQLiteRepository) GetEmail(ctx context.Context, id string) (*model.EmailRecord, error) {
	var row sqliteEmail
	if err := r.db.GetContext(ctx, &row, `SELECT `+emailColumns+` FROM emails WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEmailNotFound
		}
		return nil, fmt.Errorf("get email: %w", err)
	}
	e := row.toModel()
	return &e, nil
}

// ListEmails возвращает письма, начиная с новых. Пустой статус не ограничивает выборку.
func (r *SQLiteRepository) ListEmails(ctx context.Context, status model.EmailStatus) ([]model.EmailRecord, error) {
	var rows []sqliteEmail
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+emailColumns+` FROM emails
		 WHERE (? = '' OR status = ?)
		 ORDER BY created_at DESC, id`,
		string(status), string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("select emails: %w", err)
	}

	res := make([]model.EmailRecord, 0, len(rows))
	for _, row := range rows {
		res = append(res, row.toModel())
	}
	return res, nil
}

// UpdateEmailStatus фиксирует результат отправки письма.
func (r *SQLiteRepository) UpdateEmailStatus(ctx context.Context, id string, status model.EmailStatus, errMsg string, sentAt *time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE emails SET status = ?, error = ?, sent_at = ? WHERE id = ?`,
		string(status), errMsg, sqliteTime(sentAt), id,
	)
	if err != nil {
		return fmt.Errorf("update email: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEmailNotFound
	}
	return nil
}

// DeleteEmail удаляет письмо из журнала.
func (r *SQLiteRepository) DeleteEmail(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM emails WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete email: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEmailNotFound
	}
	return nil
}
