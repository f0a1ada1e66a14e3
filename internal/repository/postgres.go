package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/storefront-admin/internal/model"
)

//go:embed migrations/postgres/*.sql
var postgresMigrationsFS embed.FS

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	delays []time.Duration
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{
		pool:   pool,
		delays: []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second},
	}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(postgresMigrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations/postgres"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for i := 0; i <= len(r.delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(r.delays) {
			break
		}

		timer := time.NewTimer(r.delays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateCustomer сохраняет нового покупателя.
func (r *PostgresRepository) CreateCustomer(ctx context.Context, c model.Customer) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO customers (id, first_name, last_name, email, phone, password_hash, registered_at, blocked)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.FirstName, c.LastName, c.Email, c.Phone, c.PasswordHash, c.RegisteredAt, c.Blocked,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", ErrCustomerExists, c.Email)
		}
		return fmt.Errorf("create customer: %w", err)
	}
	return nil
}

const customerColumns = `id, first_name, last_name, email, phone, password_hash, registered_at, blocked`

func scanCustomer(row pgx.Row) (*model.Customer, error) {
	var c model.Customer
	if err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.PasswordHash, &c.RegisteredAt, &c.Blocked); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCustomer возвращает покупателя по идентификатору.
func (r *PostgresRepository) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	c, err := scanCustomer(r.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

// GetCustomerByEmail возвращает покупателя по e-mail без учёта регистра.
func (r *PostgresRepository) GetCustomerByEmail(ctx context.Context, email string) (*model.Customer, error) {
	c, err := scanCustomer(r.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE LOWER(email) = LOWER($1)`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer by email: %w", err)
	}
	return c, nil
}

// ListCustomers возвращает всех покупателей в порядке регистрации.
func (r *PostgresRepository) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+customerColumns+` FROM customers ORDER BY registered_at DESC NULLS LAST, id`)
	if err != nil {
		return nil, fmt.Errorf("select customers: %w", err)
	}
	defer rows.Close()

	var res []model.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		res = append(res, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// SetCustomerBlocked блокирует или разблокирует покупателя.
func (r *PostgresRepository) SetCustomerBlocked(ctx context.Context, id string, blocked bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE customers SET blocked = $2 WHERE id = $1`, id, blocked)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

// CreateOrder сохраняет заказ и списывает товар со склада в одной транзакции.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o model.Order) error {
	items, err := encodeItems(o.Items)
	if err != nil {
		return err
	}

	return r.withRetry(ctx, func() error {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		for _, it := range o.Items {
			tag, err := tx.Exec(ctx,
				`UPDATE products SET stock = stock - $2, updated_at = NOW()
				 WHERE id = $1 AND active AND stock >= $2`,
				it.ProductID, it.Quantity,
			)
			if err != nil {
				return fmt.Errorf("reserve stock: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("%w: %s", ErrOutOfStock, it.ProductID)
			}
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO orders (id, customer_id, contact_email, items, total_cents, status, payment_method, payment_status, address)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			o.ID, nullableString(o.CustomerID), o.ContactEmail, items, totalCents(o),
			string(o.Status), string(o.PaymentMethod), string(o.PaymentStatus), o.Address,
		)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

const orderSelect = `SELECT o.id, o.customer_id, o.contact_email, c.id, c.email, o.items, o.total_cents,
	o.status, o.created_at, o.cancelled_at, o.payment_method, o.payment_status, o.address
	FROM orders o LEFT JOIN customers c ON c.id = o.customer_id`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o             model.Order
		customerID    *string
		linkedID      *string
		linkedEmail   *string
		items         []byte
		total         *int64
		status        string
		createdAt     time.Time
		paymentMethod string
		paymentStatus string
	)
	err := row.Scan(&o.ID, &customerID, &o.ContactEmail, &linkedID, &linkedEmail, &items, &total,
		&status, &createdAt, &o.CancelledAt, &paymentMethod, &paymentStatus, &o.Address)
	if err != nil {
		return nil, err
	}

	o.Items, err = decodeItems(items)
	if err != nil {
		return nil, err
	}

	o.CustomerID = derefString(customerID)
	o.Customer = linkedCustomer(linkedID, linkedEmail)
	o.TotalPrice = fromCents(total)
	o.Status = model.OrderStatus(status)
	o.CreatedAt = formatCreatedAt(createdAt)
	o.PaymentMethod = model.PaymentMethod(paymentMethod)
	o.PaymentStatus = model.PaymentStatus(paymentStatus)

	return &o, nil
}

// GetOrder возвращает заказ по идентификатору.
func (r *PostgresRepository) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, orderSelect+` WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// ListOrders возвращает все заказы, начиная с самых новых.
func (r *PostgresRepository) ListOrders(ctx context.Context) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, orderSelect+` ORDER BY o.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

// UpdateOrderStatus меняет статус заказа. При отмене товар возвращается на склад,
// отменённый заказ больше не меняется.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus, at time.Time) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var (
			current string
			items   []byte
		)
		err = tx.QueryRow(ctx, `SELECT status, items FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&current, &items)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("lock order: %w", err)
		}
		// Отменённый заказ уже вернул товар на склад.
		if isCancelled(current) {
			return fmt.Errorf("%w: %s", ErrOrderCancelled, id)
		}

		if status == model.OrderStatusCancelled {
			lineItems, decodeErr := decodeItems(items)
			if decodeErr != nil {
				return decodeErr
			}
			for _, it := range lineItems {
				_, err := tx.Exec(ctx,
					`UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1`,
					it.ProductID, it.Quantity,
				)
				if err != nil {
					return fmt.Errorf("restock product: %w", err)
				}
			}
			_, err = tx.Exec(ctx,
				`UPDATE orders SET status = $2, cancelled_at = $3 WHERE id = $1`,
				id, string(status), at,
			)
		} else {
			_, err = tx.Exec(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, id, string(status))
		}
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

// GetPendingPayments возвращает заказы с оплатой через шлюз, ожидающие подтверждения.
func (r *PostgresRepository) GetPendingPayments(ctx context.Context, limit int) ([]PendingPayment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM orders
		 WHERE payment_method = $1 AND payment_status = $2 AND status <> $3
		 ORDER BY created_at
		 LIMIT $4`,
		string(model.PaymentGateway),
		string(model.PaymentStatusPending),
		string(model.OrderStatusCancelled),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select pending payments: %w", err)
	}
	defer rows.Close()

	var res []PendingPayment
	for rows.Next() {
		var p PendingPayment
		if err := rows.Scan(&p.OrderID); err != nil {
			return nil, fmt.Errorf("scan pending payment: %w", err)
		}
		res = append(res, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdatePaymentStatus обновляет состояние оплаты заказа.
func (r *PostgresRepository) UpdatePaymentStatus(ctx context.Context, id string, status model.PaymentStatus) error {
	_, err := r.pool.Exec(ctx, `UPDATE orders SET payment_status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	return nil
}
