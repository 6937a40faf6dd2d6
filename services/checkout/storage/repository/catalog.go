package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	uuid "github.com/satori/go.uuid"

	"github.com/sellora/marketplace/services/checkout/model"
)

type Catalog struct{}

func NewCatalog() *Catalog { return &Catalog{} }

// GetVariant retrieves a variant of a product sold by storeID.
// A variant of another store is reported as not found.
func (r *Catalog) GetVariant(ctx context.Context, dbi sqlx.QueryerContext, storeID, variantID uuid.UUID) (*model.Variant, error) {
	const q = `SELECT
		v.id, v.product_id, p.store_id, v.name, v.base_price, v.discount_type,
		v.discount_amount, v.final_price, v.stock
	FROM variants v
	JOIN products p ON p.id = v.product_id
	WHERE v.id = $1 AND p.store_id = $2`

	result := &model.Variant{}
	if err := sqlx.GetContext(ctx, dbi, result, q, variantID, storeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrVariantNotFound
		}

		return nil, err
	}

	return result, nil
}

// DecrementStock takes qty off the stock of the variant in a single statement.
func (r *Catalog) DecrementStock(ctx context.Context, dbi sqlx.ExecerContext, variantID uuid.UUID, qty int) error {
	const q = `UPDATE variants SET stock = stock - $2 WHERE id = $1`

	if err := execUpdate(ctx, dbi, q, variantID, qty); err != nil {
		if errors.Is(err, model.ErrNoRowsChanged) {
			return model.ErrVariantNotFound
		}

		return err
	}

	return nil
}
