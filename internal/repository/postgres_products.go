package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mmeshcher/storefront-admin/internal/model"
)

const productColumns = `id, name, description, category, price_cents, stock, image_url, active, created_at, updated_at`

func scanProduct(row pgx.Row) (*model.Product, error) {
	var (
		p          model.Product
		priceCents int64
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &priceCents, &p.Stock,
		&p.ImageURL, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Price = float64(priceCents) / 100
	return &p, nil
}

// ListProducts возвращает товары каталога. Пустая категория не ограничивает выборку.
func (r *PostgresRepository) ListProducts(ctx context.Context, category string, onlyActive bool) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE ($1 = '' OR category = $1) AND (NOT $2 OR active)
		 ORDER BY name`,
		category, onlyActive,
	)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var res []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		res = append(res, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetProduct возвращает товар по идентификатору.
func (r *PostgresRepository) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// SaveProduct создаёт товар или обновляет существующий.
func (r *PostgresRepository) SaveProduct(ctx context.Context, p model.Product) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO products (id, name, description, category, price_cents, stock, image_url, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		     name = EXCLUDED.name,
		     description = EXCLUDED.description,
		     category = EXCLUDED.category,
		     price_cents = EXCLUDED.price_cents,
		     stock = EXCLUDED.stock,
		     image_url = EXCLUDED.image_url,
		     active = EXCLUDED.active,
		     updated_at = EXCLUDED.updated_at`,
		p.ID, p.Name, p.Description, p.Category, toCents(p.Price), p.Stock, p.ImageURL, p.Active, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save product: %w", err)
	}
	return nil
}

// DeleteProduct удаляет товар из каталога.
func (r *PostgresRepository) DeleteProduct(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

const categoryColumns = `slug, name, description, created_at, updated_at`

func scanCategory(row pgx.Row) (*model.Category, error) {
	var c model.Category
	if err := row.Scan(&c.Slug, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCategories возвращает категории каталога по алфавиту.
func (r *PostgresRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name, slug`)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	defer rows.Close()

	var res []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		res = append(res, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetCategory возвращает категорию по slug.
func (r *PostgresRepository) GetCategory(ctx context.Context, slug string) (*model.Category, error) {
	c, err := scanCategory(r.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE slug = $1`, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// CreateCategory добавляет категорию.
func (r *PostgresRepository) CreateCategory(ctx context.Context, c model.Category) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO categories (slug, name, description, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		c.Slug, c.Name, c.Description, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", ErrCategoryExists, c.Slug)
		}
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// UpdateCategory меняет название и описание категории.
func (r *PostgresRepository) UpdateCategory(ctx context.Context, c model.Category) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE categories SET name = $2, description = $3, updated_at = $4 WHERE slug = $1`,
		c.Slug, c.Name, c.Description, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// DeleteCategory удаляет категорию, если на неё не ссылается ни один товар.
func (r *PostgresRepository) DeleteCategory(ctx context.Context, slug string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM categories WHERE slug = $1
		 AND NOT EXISTS (SELECT 1 FROM products WHERE category = $1)`,
		slug,
	)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	if _, err := r.GetCategory(ctx, slug); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", ErrCategoryInUse, slug)
}
