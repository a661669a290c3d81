package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/wbpricebot/wbwatch/internal/model"
)

const productColumns = `id, name, threshold_min, threshold_max, keywords, exclusions, created_at, updated_at`

// AddGlobalProduct inserts a product or, when a product with the same name
// exists, overwrites its thresholds, keywords and exclusions.
// A nil ThresholdMax is stored as ThresholdMin; an explicit zero is stored as zero.
func (s *Store) AddGlobalProduct(ctx context.Context, p *model.GlobalProduct) (*model.GlobalProduct, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id, err := s.upsertProduct(ctx, tx, p)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit product: %w", err)
	}

	return s.GetGlobalProduct(ctx, id)
}

// ReplaceGlobalProducts deletes every product and inserts products in one
// transaction. It returns the number of rows deleted.
func (s *Store) ReplaceGlobalProducts(ctx context.Context, products []*model.GlobalProduct) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `DELETE FROM global_products`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete products: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	for _, p := range products {
		if _, err := s.upsertProduct(ctx, tx, p); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit products: %w", err)
	}
	return deleted, nil
}

func (s *Store) upsertProduct(ctx context.Context, tx *sql.Tx, p *model.GlobalProduct) (int64, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return 0, errors.New("product name is empty")
	}

	thrMax := p.ThresholdMin
	if p.ThresholdMax != nil {
		thrMax = *p.ThresholdMax
	}
	keywords := model.EncodeWords(p.Keywords)
	exclusions := model.EncodeWords(p.Exclusions)
	now := s.unixNow()

	var id int64
	err := tx.QueryRowContext(ctx, s.rebind(`SELECT id FROM global_products WHERE name = ? ORDER BY id LIMIT 1`), name).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		query := s.rebind(`
		INSERT INTO global_products (name, threshold_min, threshold_max, keywords, exclusions, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
		`)
		err = tx.QueryRowContext(ctx, query,
			name,
			p.ThresholdMin,
			thrMax,
			nullString(keywords),
			nullString(exclusions),
			now,
			now,
		).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("failed to insert product: %w", err)
		}
	case err != nil:
		return 0, fmt.Errorf("failed to look up product: %w", err)
	default:
		query := s.rebind(`
		UPDATE global_products
		SET threshold_min = ?, threshold_max = ?, keywords = ?, exclusions = ?, updated_at = ?
		WHERE id = ?
		`)
		_, err = tx.ExecContext(ctx, query,
			p.ThresholdMin,
			thrMax,
			nullString(keywords),
			nullString(exclusions),
			now,
			id,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to update product: %w", err)
		}
	}

	return id, nil
}

// GetGlobalProducts returns all products in insertion order.
func (s *Store) GetGlobalProducts(ctx context.Context) ([]*model.GlobalProduct, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM global_products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*model.GlobalProduct
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// GetGlobalProduct returns the product with the given id, or nil, nil.
func (s *Store) GetGlobalProduct(ctx context.Context, id int64) (*model.GlobalProduct, error) {
	query := s.rebind(`SELECT ` + productColumns + ` FROM global_products WHERE id = ?`)

	p, err := scanProduct(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// SearchGlobalProducts returns products whose name contains q, case-insensitively.
func (s *Store) SearchGlobalProducts(ctx context.Context, q string) ([]*model.GlobalProduct, error) {
	all, err := s.GetGlobalProducts(ctx)
	if err != nil {
		return nil, err
	}

	q = strings.ToLower(strings.TrimSpace(q))
	var out []*model.GlobalProduct
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.Name), q) {
			out = append(out, p)
		}
	}
	return out, nil
}

// UpdateThresholds sets the price window of a product.
// It reports false when the product does not exist.
func (s *Store) UpdateThresholds(ctx context.Context, id, thrMin, thrMax int64) (bool, error) {
	query := s.rebind(`UPDATE global_products SET threshold_min = ?, threshold_max = ?, updated_at = ? WHERE id = ?`)

	result, err := s.db.ExecContext(ctx, query, thrMin, thrMax, s.unixNow(), id)
	if err != nil {
		return false, fmt.Errorf("failed to update thresholds: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// DeleteAllGlobalProducts removes every product and returns how many were removed.
func (s *Store) DeleteAllGlobalProducts(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM global_products`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete products: %w", err)
	}
	return result.RowsAffected()
}

func scanProduct(row rowScanner) (*model.GlobalProduct, error) {
	var (
		p                    model.GlobalProduct
		thrMax               sql.NullInt64
		keywords, exclusions sql.NullString
		created, updated     sql.NullInt64
	)

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.ThresholdMin,
		&thrMax,
		&keywords,
		&exclusions,
		&created,
		&updated,
	)
	if err != nil {
		return nil, err
	}

	if thrMax.Valid {
		p.ThresholdMax = model.Threshold(thrMax.Int64)
	}
	p.Keywords = model.DecodeWords(keywords.String)
	p.Exclusions = model.DecodeWords(exclusions.String)
	p.CreatedAt = fromUnix(created)
	p.UpdatedAt = fromUnix(updated)
	return &p, nil
}
