package history

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/printforge/teepress/pkg/db"
	"github.com/printforge/teepress/pkg/fulfillment"
	"github.com/printforge/teepress/pkg/models"
)

// Index reconstructs per-user design history from the vendor's product
// listing. There is no datastore of record; the external reference embedded
// in each order is the only user association. An optional local index spares
// the full-list scan when present.
type Index struct {
	client fulfillment.Client
	local  db.DesignIndex //may be nil
}

func New(client fulfillment.Client, local db.DesignIndex) *Index {
	return &Index{client: client, local: local}
}

// DesignsForUser returns every design the user has ordered, oldest first as
// the vendor reports them. An empty store is an empty slice, not an error.
func (i *Index) DesignsForUser(ctx context.Context, userID string) ([]models.FulfillmentOrder, error) {
	if i.local != nil {
		orders, err := i.local.ByUser(ctx, userID)
		if err != nil {
			log.WithFields(log.Fields{"user_id": userID, "error": err}).
				Warn("local design index unavailable, scanning vendor listing")
		} else if len(orders) > 0 {
			return orders, nil
		}
	}
	orders, err := i.client.SearchByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.FulfillmentOrder{}
	}
	return orders, nil
}

func (i *Index) AllDesigns(ctx context.Context) ([]models.FulfillmentOrder, error) {
	orders, err := fulfillment.ScanAll(ctx, i.client)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.FulfillmentOrder{}
	}
	return orders, nil
}

func (i *Index) Statistics(ctx context.Context) (*models.DesignStats, error) {
	return i.client.Stats(ctx)
}
