package history

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printforge/teepress/pkg/fulfillment"
	"github.com/printforge/teepress/pkg/models"
)

// stubClient is an in-memory fulfillment vendor.
type stubClient struct {
	orders  []models.FulfillmentOrder
	listErr error
}

func (s *stubClient) Submit(_ context.Context, _ models.RenderedDesign, displayName, ref string) (*models.FulfillmentOrder, error) {
	order := models.FulfillmentOrder{OrderID: "o", ExternalReference: ref, DisplayName: displayName}
	s.orders = append(s.orders, order)
	return &order, nil
}

func (s *stubClient) List(_ context.Context, limit, offset int) ([]models.FulfillmentOrder, int, error) {
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	if offset >= len(s.orders) {
		return nil, len(s.orders), nil
	}
	end := offset + limit
	if end > len(s.orders) {
		end = len(s.orders)
	}
	return s.orders[offset:end], len(s.orders), nil
}

func (s *stubClient) SearchByUser(ctx context.Context, userID string) ([]models.FulfillmentOrder, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var matched []models.FulfillmentOrder
	prefix := fulfillment.ReferencePrefix(userID)
	for _, o := range s.orders {
		if len(o.ExternalReference) >= len(prefix) && o.ExternalReference[:len(prefix)] == prefix {
			matched = append(matched, o)
		}
	}
	return matched, nil
}

func (s *stubClient) Stats(ctx context.Context) (*models.DesignStats, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return &models.DesignStats{TotalDesigns: len(s.orders)}, nil
}

func TestDesignsForUserEmptyStore(t *testing.T) {
	idx := New(&stubClient{}, nil)

	orders, err := idx.DesignsForUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
}

func TestDesignsForUserIdempotent(t *testing.T) {
	client := &stubClient{orders: []models.FulfillmentOrder{
		{OrderID: "o1", ExternalReference: fulfillment.ReferencePrefix("u1") + "a"},
		{OrderID: "o2", ExternalReference: fulfillment.ReferencePrefix("u2") + "b"},
		{OrderID: "o3", ExternalReference: fulfillment.ReferencePrefix("u1") + "c"},
	}}
	idx := New(client, nil)

	first, err := idx.DesignsForUser(context.Background(), "u1")
	require.NoError(t, err)
	second, err := idx.DesignsForUser(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
}

func TestAllDesigns(t *testing.T) {
	client := &stubClient{orders: []models.FulfillmentOrder{
		{OrderID: "o1"}, {OrderID: "o2"},
	}}
	idx := New(client, nil)

	all, err := idx.AllDesigns(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	empty := New(&stubClient{}, nil)
	all, err = empty.AllDesigns(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestDesignsForUserSurfacesVendorError(t *testing.T) {
	idx := New(&stubClient{listErr: errors.New("vendor down")}, nil)
	_, err := idx.DesignsForUser(context.Background(), "u1")
	assert.Error(t, err)
}
