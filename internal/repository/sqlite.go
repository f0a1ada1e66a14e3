package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/storefront-admin/internal/model"
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrationsFS embed.FS

// SQLitePrefix задаёт префикс DSN, по которому выбирается локальное хранилище.
const SQLitePrefix = "sqlite://"

// SQLiteRepository реализует локальное файловое хранилище магазина на SQLite.
// Используется для демо-стенда и разработки без PostgreSQL.
type SQLiteRepository struct {
	db *sqlx.DB
}

// NewSQLiteRepository открывает файл базы (или in-memory базу для ":memory:") и применяет миграции.
func NewSQLiteRepository(dsn string) (*SQLiteRepository, error) {
	path := strings.TrimPrefix(dsn, SQLitePrefix)
	if path == "" {
		return nil, errors.New("empty sqlite path")
	}

	db, err := sqlx.Connect("sqlite3", "file:"+path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite не допускает параллельных писателей.
	db.SetMaxOpenConns(1)

	r := &SQLiteRepository{db: db}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.runMigrations(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return r, nil
}

func (r *SQLiteRepository) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(sqliteMigrationsFS)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, r.db.DB, "migrations/sqlite"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close закрывает соединение с базой.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

type sqliteCustomer struct {
	ID           string         `db:"id"`
	FirstName    string         `db:"first_name"`
	LastName     string         `db:"last_name"`
	Email        string         `db:"email"`
	Phone        string         `db:"phone"`
	PasswordHash []byte         `db:"password_hash"`
	RegisteredAt sql.NullString `db:"registered_at"`
	Blocked      bool           `db:"blocked"`
}

func (c sqliteCustomer) toModel() model.Customer {
	return model.Customer{
		ID:           c.ID,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		Email:        c.Email,
		Phone:        c.Phone,
		PasswordHash: c.PasswordHash,
		RegisteredAt: parseSQLiteTime(c.RegisteredAt),
		Blocked:      c.Blocked,
	}
}

func parseSQLiteTime(v sql.NullString) *time.Time {
	if !v.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil
	}
	return &t
}

func sqliteTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatCreatedAt(*t), Valid: true}
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// CreateCustomer сохраняет нового покупателя.
func (r *SQLiteRepository) CreateCustomer(ctx context.Context, c model.Customer) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO customers (id, first_name, last_name, email, phone, password_hash, registered_at, blocked)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.FirstName, c.LastName, c.Email, c.Phone, c.PasswordHash, sqliteTime(c.RegisteredAt), c.Blocked,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrCustomerExists, c.Email)
		}
		return fmt.Errorf("create customer: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) getCustomer(ctx context.Context, where string, arg any) (*model.Customer, error) {
	var row sqliteCustomer
	err := r.db.GetContext(ctx, &row, `SELECT `+customerColumns+` FROM customers WHERE `+where, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	c := row.toModel()
	return &c, nil
}

// GetCustomer возвращает покупателя по идентификатору.
func (r *SQLiteRepository) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	return r.getCustomer(ctx, `id = ?`, id)
}

// GetCustomerByEmail возвращает покупателя по e-mail без учёта регистра.
func (r *SQLiteRepository) GetCustomerByEmail(ctx context.Context, email string) (*model.Customer, error) {
	return r.getCustomer(ctx, `email = ? COLLATE NOCASE`, email)
}

// ListCustomers возвращает всех покупателей, начиная с недавно зарегистрированных.
func (r *SQLiteRepository) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	var rows []sqliteCustomer
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+customerColumns+` FROM customers ORDER BY registered_at IS NULL, registered_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("select customers: %w", err)
	}

	res := make([]model.Customer, 0, len(rows))
	for _, row := range rows {
		res = append(res, row.toModel())
	}
	return res, nil
}

// SetCustomerBlocked блокирует или разблокирует покупателя.
func (r *SQLiteRepository) SetCustomerBlocked(ctx context.Context, id string, blocked bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE customers SET blocked = ? WHERE id = ?`, blocked, id)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

type sqliteOrder struct {
	ID            string         `db:"id"`
	CustomerID    sql.NullString `db:"customer_id"`
	ContactEmail  string         `db:"contact_email"`
	LinkedID      sql.NullString `db:"linked_id"`
	LinkedEmail   sql.NullString `db:"linked_email"`
	Items         string         `db:"items"`
	TotalCents    sql.NullInt64  `db:"total_cents"`
	Status        string         `db:"status"`
	CreatedAt     string         `db:"created_at"`
	CancelledAt   sql.NullString `db:"cancelled_at"`
	PaymentMethod string         `db:"payment_method"`
	PaymentStatus string         `db:"payment_status"`
	Address       string         `db:"address"`
}

func (o sqliteOrder) toModel() (model.Order, error) {
	items, err := decodeItems([]byte(o.Items))
	if err != nil {
		return model.Order{}, err
	}

	var total *int64
	if o.TotalCents.Valid {
		total = &o.TotalCents.Int64
	}

	var linkedID, linkedEmail *string
	if o.LinkedID.Valid {
		linkedID = &o.LinkedID.String
	}
	if o.LinkedEmail.Valid {
		linkedEmail = &o.LinkedEmail.String
	}

	return model.Order{
		ID:            o.ID,
		CustomerID:    o.CustomerID.String,
		ContactEmail:  o.ContactEmail,
		Customer:      linkedCustomer(linkedID, linkedEmail),
		Items:         items,
		TotalPrice:    fromCents(total),
		Status:        model.OrderStatus(o.Status),
		CreatedAt:     o.CreatedAt,
		CancelledAt:   parseSQLiteTime(o.CancelledAt),
		PaymentMethod: model.PaymentMethod(o.PaymentMethod),
		PaymentStatus: model.PaymentStatus(o.PaymentStatus),
		Address:       o.Address,
	}, nil
}

const sqliteOrderSelect = `SELECT o.id, o.customer_id, o.contact_email, c.id AS linked_id, c.email AS linked_email,
	o.items, o.total_cents, o.status, o.created_at, o.cancelled_at, o.payment_method, o.payment_status, o.address
	FROM orders o LEFT JOIN customers c ON c.id = o.customer_id`

// CreateOrder сохраняет заказ и списывает товар со склада в одной транзакции.
func (r *SQLiteRepository) CreateOrder(ctx context.Context, o model.Order) error {
	items, err := encodeItems(o.Items)
	if err != nil {
		return err
	}

	createdAt := o.CreatedAt
	if createdAt == "" {
		createdAt = formatCreatedAt(time.Now())
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := formatCreatedAt(time.Now())
	for _, it := range o.Items {
		res, err := tx.ExecContext(ctx,
			`UPDATE products SET stock = stock - ?, updated_at = ? WHERE id = ? AND active = 1 AND stock >= ?`,
			it.Quantity, now, it.ProductID, it.Quantity,
		)
		if err != nil {
			return fmt.Errorf("reserve stock: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", ErrOutOfStock, it.ProductID)
		}
	}

	var total sql.NullInt64
	if c := totalCents(o); c != nil {
		total = sql.NullInt64{Int64: *c, Valid: true}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, customer_id, contact_email, items, total_cents, status, created_at, payment_method, payment_status, address)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, nullableString(o.CustomerID), o.ContactEmail, string(items), total,
		string(o.Status), createdAt, string(o.PaymentMethod), string(o.PaymentStatus), o.Address,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetOrder возвращает заказ по идентификатору.
func (r *SQLiteRepository) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	var row sqliteOrder
	if err := r.db.GetContext(ctx, &row, sqliteOrderSelect+` WHERE o.id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	o, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOrders возвращает все заказы, начиная с самых новых.
func (r *SQLiteRepository) ListOrders(ctx context.Context) ([]model.Order, error) {
	var rows []sqliteOrder
	if err := r.db.SelectContext(ctx, &rows, sqliteOrderSelect+` ORDER BY o.created_at DESC`); err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}

	res := make([]model.Order, 0, len(rows))
	for _, row := range rows {
		o, err := row.toModel()
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		res = append(res, o)
	}
	return res, nil
}

// UpdateOrderStatus меняет статус заказа. При отмене товар возвращается на склад,
// отменённый заказ больше не меняется.
func (r *SQLiteRepository) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus, at time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current struct {
		Status string `db:"status"`
		Items  string `db:"items"`
	}
	if err := tx.GetContext(ctx, &current, `SELECT status, items FROM orders WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("select order: %w", err)
	}
	// Отменённый заказ уже вернул товар на склад.
	if isCancelled(current.Status) {
		return fmt.Errorf("%w: %s", ErrOrderCancelled, id)
	}

	if status == model.OrderStatusCancelled {
		lineItems, err := decodeItems([]byte(current.Items))
		if err != nil {
			return err
		}
		for _, it := range lineItems {
			if _, err := tx.ExecContext(ctx,
				`UPDATE products SET stock = stock + ?, updated_at = ? WHERE id = ?`,
				it.Quantity, formatCreatedAt(at), it.ProductID,
			); err != nil {
				return fmt.Errorf("restock product: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = ?, cancelled_at = ? WHERE id = ?`,
			string(status), formatCreatedAt(at), id,
		); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
	} else if _, err := tx.ExecContext(ctx, `UPDATE orders SET status = ? WHERE id = ?`, string(status), id); err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetPendingPayments возвращает заказы с оплатой через шлюз, ожидающие подтверждения.
func (r *SQLiteRepository) GetPendingPayments(ctx context.Context, limit int) ([]PendingPayment, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids,
		`SELECT id FROM orders
		 WHERE payment_method = ? AND payment_status = ? AND status <> ?
		 ORDER BY created_at
		 LIMIT ?`,
		string(model.PaymentGateway), string(model.PaymentStatusPending), string(model.OrderStatusCancelled), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select pending payments: %w", err)
	}

	res := make([]PendingPayment, 0, len(ids))
	for _, id := range ids {
		res = append(res, PendingPayment{OrderID: id})
	}
	return res, nil
}

// UpdatePaymentStatus обновляет состояние оплаты заказа.
func (r *SQLiteRepository) UpdatePaymentStatus(ctx context.Context, id string, status model.PaymentStatus) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE orders SET payment_status = ? WHERE id = ?`, string(status), id); err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	return nil
}

type sqliteProduct struct {
	ID          string `db:"id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	Category    string `db:"category"`
	PriceCents  int64  `db:"price_cents"`
	Stock       int    `db:"stock"`
	ImageURL    string `db:"image_url"`
	Active      bool   `db:"active"`
	CreatedAt   string `db:"created_at"`
	UpdatedAt   string `db:"updated_at"`
}

func (p sqliteProduct) toModel() model.Product {
	res := model.Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       float64(p.PriceCents) / 100,
		Stock:       p.Stock,
		ImageURL:    p.ImageURL,
		Active:      p.Active,
	}
	if t := parseSQLiteTime(sql.NullString{String: p.CreatedAt, Valid: true}); t != nil {
		res.CreatedAt = *t
	}
	if t := parseSQLiteTime(sql.NullString{String: p.UpdatedAt, Valid: true}); t != nil {
		res.UpdatedAt = *t
	}
	return res
}

// ListProducts возвращает товары каталога. Пустая категория не ограничивает выборку.
func (r *SQLiteRepository) ListProducts(ctx context.Context, category string, onlyActive bool) ([]model.Product, error) {
	var rows []sqliteProduct
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+productColumns+` FROM products
		 WHERE (? = '' OR category = ?) AND (? = 0 OR active = 1)
		 ORDER BY name`,
		category, category, onlyActive,
	)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}

	res := make([]model.Product, 0, len(rows))
	for _, row := range rows {
		res = append(res, row.toModel())
	}
	return res, nil
}

// GetProduct возвращает товар по идентификатору.
func (r *SQLiteRepository) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	var row sqliteProduct
	if err := r.db.GetContext(ctx, &row, `SELECT `+productColumns+` FROM products WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	p := row.toModel()
	return &p, nil
}

// SaveProduct создаёт товар или обновляет существующий.
func (r *SQLiteRepository) SaveProduct(ctx context.Context, p model.Product) error {
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO products (id, name, description, category, price_cents, stock, image_url, active, created_at, updated_at)
		 VALUES (:id, :name, :description, :category, :price_cents, :stock, :image_url, :active, :created_at, :updated_at)
		 ON CONFLICT (id) DO UPDATE SET
		     name = excluded.name,
		     description = excluded.description,
		     category = excluded.category,
		     price_cents = excluded.price_cents,
		     stock = excluded.stock,
		     image_url = excluded.image_url,
		     active = excluded.active,
		     updated_at = excluded.updated_at`,
		sqliteProduct{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Category:    p.Category,
			PriceCents:  toCents(p.Price),
			Stock:       p.Stock,
			ImageURL:    p.ImageURL,
			Active:      p.Active,
			CreatedAt:   formatCreatedAt(p.CreatedAt),
			UpdatedAt:   formatCreatedAt(p.UpdatedAt),
		},
	)
	if err != nil {
		return fmt.Errorf("save product: %w", err)
	}
	return nil
}

// DeleteProduct удаляет товар из каталога.
func (r *SQLiteRepository) DeleteProduct(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProductNotFound
	}
	return nil
}

type sqliteCategory struct {
	Slug        string `db:"slug"`
	Name        string `db:"name"`
	Description string `db:"description"`
	CreatedAt   string `db:"created_at"`
	UpdatedAt   string `db:"updated_at"`
}

func (c sqliteCategory) toModel() model.Category {
	res := model.Category{Slug: c.Slug, Name: c.Name, Description: c.Description}
	if t := parseSQLiteTime(sql.NullString{String: c.CreatedAt, Valid: true}); t != nil {
		res.CreatedAt = *t
	}
	if t := parseSQLiteTime(sql.NullString{String: c.UpdatedAt, Valid: true}); t != nil {
		res.UpdatedAt = *t
	}
	return res
}

// ListCategories возвращает категории каталога по алфавиту.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	var rows []sqliteCategory
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+categoryColumns+` FROM categories ORDER BY name, slug`); err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}

	res := make([]model.Category, 0, len(rows))
	for _, row := range rows {
		res = append(res, row.toModel())
	}
	return res, nil
}

// GetCategory возвращает категорию по slug.
func (r *SQLiteRepository) GetCategory(ctx context.Context, slug string) (*model.Category, error) {
	var row sqliteCategory
	if err := r.db.GetContext(ctx, &row, `SELECT `+categoryColumns+` FROM categories WHERE slug = ?`, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	c := row.toModel()
	return &c, nil
}

// CreateCategory добавляет категорию.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, c model.Category) error {
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO categories (slug, name, description, created_at, updated_at)
		 VALUES (:slug, :name, :description, :created_at, :updated_at)`,
		sqliteCategory{
			Slug:        c.Slug,
			Name:        c.Name,
			Description: c.Description,
			CreatedAt:   formatCreatedAt(c.CreatedAt),
			UpdatedAt:   formatCreatedAt(c.UpdatedAt),
		},
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrCategoryExists, c.Slug)
		}
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// UpdateCategory меняет название и описание категории.
func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c model.Category) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, description = ?, updated_at = ? WHERE slug = ?`,
		c.Name, c.Description, formatCreatedAt(c.UpdatedAt), c.Slug,
	)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// DeleteCategory удаляет категорию, если на неё не ссылается ни один товар.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, slug string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE slug = ?
		 AND NOT EXISTS (SELECT 1 FROM products WHERE category = ?)`,
		slug, slug,
	)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	if _, err := r.GetCategory(ctx, slug); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", ErrCategoryInUse, slug)
}
