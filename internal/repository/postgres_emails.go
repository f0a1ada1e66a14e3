package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/storefront-admin/internal/model"
)

const emailColumns = `id, recipient, subject, body, kind, status, order_id, error, created_at, sent_at`

func scanEmail(row pgx.Row) (*model.EmailRecord, error) {
	var (
		e       model.EmailRecord
		kind    string
		status  string
		orderID *string
	)
	err := row.Scan(&e.ID, &e.Recipient, &e.Subject, &e.Body, &kind, &status, &orderID, &e.Error, &e.CreatedAt, &e.SentAt)
	if err != nil {
		return nil, err
	}
	e.Kind = model.EmailKind(kind)
	e.Status = model.EmailStatus(status)
	e.OrderID = derefString(orderID)
	return &e, nil
}

// CreateEmail сохраняет письмо в журнале.
func (r *PostgresRepository) CreateEmail(ctx context.Context, e model.EmailRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO emails (`+emailColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.Recipient, e.Subject, e.Body, string(e.Kind), string(e.Status),
		nullableString(e.OrderID), e.Error, e.CreatedAt, e.SentAt,
	)
	if err != nil {
		return fmt.Errorf("create email: %w", err)
	}
	return nil
}

// GetEmail возвращает письмо по идентификатору.
func (r *PostgresRepository) GetEmail(ctx context.Context, id string) (*model.EmailRecord, error) {
	e, err := scanEmail(r.pool.QueryRow(ctx, `SELECT `+emailColumns+` FROM emails WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEmailNotFound
		}
		return nil, fmt.Errorf("get email: %w", err)
	}
	return e, nil
}

// ListEmails возвращает письма, начиная с новых. Пустой статус не ограничивает выборку.
func (r *PostgresRepository) ListEmails(ctx context.Context, status model.EmailStatus) ([]model.EmailRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+emailColumns+` FROM emails
		 WHERE ($1 = '' OR status = $1)
		 ORDER BY created_at DESC, id`,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("select emails: %w", err)
	}
	defer rows.Close()

	var res []model.EmailRecord
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan email: %w", err)
		}
		res = append(res, *e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdateEmailStatus фиксирует результат отправки письма.
func (r *PostgresRepository) UpdateEmailStatus(ctx context.Context, id string, status model.EmailStatus, errMsg string, sentAt *time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE emails SET status = $2, error = $3, sent_at = $4 WHERE id = $1`,
		id, string(status), errMsg, sentAt,
	)
	if err != nil {
		return fmt.Errorf("update email: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEmailNotFound
	}
	return nil
}

// DeleteEmail удаляет письмо из журнала.
func (r *PostgresRepository) DeleteEmail(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM emails WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete email: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEmailNotFound
	}
	return nil
}
