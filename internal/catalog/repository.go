package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrProductNotFound = errors.New("product not found")

type RepoInterface interface {
	GetAllProducts(ctx context.Context) ([]*Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	UpsertProduct(ctx context.Context, p *Product) error
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const productColumns = `id, brand, title, price, condition, size, ship, status, image, created_at, updated_at`

func (r *Repository) GetAllProducts(ctx context.Context) ([]*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return products, nil
}

func (r *Repository) GetProduct(ctx context.Context, id string) (*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ?`

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpsertProduct replaces the product with the same id or inserts a new one.
func (r *Repository) UpsertProduct(ctx context.Context, p *Product) error {
	if p.ID == "" {
		return errors.New("product id is required")
	}
	status := p.Status
	if status == "" {
		status = StatusAvailable
	}

	query := `
		INSERT INTO products (id, brand, title, price, condition, size, ship, status, image)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			brand = excluded.brand,
			title = excluded.title,
			price = excluded.price,
			condition = excluded.condition,
			size = excluded.size,
			ship = excluded.ship,
			status = excluded.status,
			image = excluded.image,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.Brand,
		p.Title,
		p.Price.StringFixed(2),
		p.Condition,
		p.Size,
		p.Ship,
		string(status),
		p.Image,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", p.ID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*Product, error) {
	p := &Product{}
	var status string
	err := row.Scan(
		&p.ID,
		&p.Brand,
		&p.Title,
		&p.Price,
		&p.Condition,
		&p.Size,
		&p.Ship,
		&status,
		&p.Image,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}
	p.Status = Status(status)
	return p, nil
}
