package db

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/printforge/teepress/pkg/models"
)

const createDesignTable = `CREATE TABLE IF NOT EXISTS designs(
	external_reference VARCHAR(255) PRIMARY KEY,
	order_id VARCHAR(255) NOT NULL,
	user_id VARCHAR(255) NOT NULL,
	display_name VARCHAR(255) NOT NULL,
	order_url VARCHAR(255) NOT NULL,
	price NUMERIC NOT NULL DEFAULT 0,
	currency VARCHAR(8) NOT NULL DEFAULT '',
	status VARCHAR(32) NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

// DesignIndex is a local read-optimization over the vendor's store, keyed by
// external reference. The vendor listing stays the source of truth; rows here
// only spare a full-list scan.
type DesignIndex interface {
	Record(ctx context.Context, order *models.FulfillmentOrder) error
	ByUser(ctx context.Context, userID string) ([]models.FulfillmentOrder, error)
}

type DesignIndexImpl struct {
	db *sqlx.DB
}

func NewDesignIndex(autoCreate bool, db *sqlx.DB) (*DesignIndexImpl, error) {
	if autoCreate {
		if _, err := db.Exec(createDesignTable); err != nil {
			return nil, err
		}
	}
	return &DesignIndexImpl{db: db}, nil
}

func (d *DesignIndexImpl) Record(ctx context.Context, order *models.FulfillmentOrder) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO designs(external_reference, order_id, user_id, display_name, order_url, price, currency, status)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (external_reference) DO NOTHING`,
		order.ExternalReference, order.OrderID, order.UserID, order.DisplayName,
		order.OrderURL, order.Price, order.Currency, order.Status)
	return err
}

func (d *DesignIndexImpl) ByUser(ctx context.Context, userID string) ([]models.FulfillmentOrder, error) {
	orders := []models.FulfillmentOrder{}
	err := d.db.SelectContext(ctx, &orders,
		`SELECT external_reference, order_id, user_id, display_name, order_url, price, currency, status
		 FROM designs WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return orders, nil
}
