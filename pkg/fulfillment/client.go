package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/printforge/teepress/config"
	"github.com/printforge/teepress/pkg/models"
)

// Client is the capability contract every print-on-demand vendor adapter must
// satisfy. The orchestrator only ever talks to this interface; vendors are
// swapped by configuration.
type Client interface {
	// Submit uploads the design and creates an order/product. Vendors that
	// support idempotency or reference keys receive externalReference as
	// that key, so a retried submission can collapse into one order.
	Submit(ctx context.Context, design models.RenderedDesign, displayName, externalReference string) (*models.FulfillmentOrder, error)
	// List returns one page of orders plus the store-wide total.
	List(ctx context.Context, limit, offset int) ([]models.FulfillmentOrder, int, error)
	// SearchByUser returns every order whose external reference belongs to
	// the given user.
	SearchByUser(ctx context.Context, userID string) ([]models.FulfillmentOrder, error)
	// Stats aggregates the whole store.
	Stats(ctx context.Context) (*models.DesignStats, error)
}

// APIError is the single classified error surface for vendor calls. A zero
// StatusCode means the request never got an HTTP response.
type APIError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("fulfillment request failed: %v", e.Err)
	}
	return fmt.Sprintf("fulfillment api responded with status %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is worth another attempt: network
// errors, throttling and server-side errors are; 4xx validation errors are
// terminal.
func (e *APIError) Retryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}

// New selects the vendor adapter named in the configuration.
func New(cfg config.Fulfillment) (Client, error) {
	switch cfg.Vendor {
	case "teemill":
		return NewTeemillClient(cfg), nil
	case "printify":
		return NewPrintifyClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown fulfillment vendor %q", cfg.Vendor)
	}
}

const pageSize = 20

// ScanAll walks every page of the vendor listing.
func ScanAll(ctx context.Context, c Client) ([]models.FulfillmentOrder, error) {
	var all []models.FulfillmentOrder
	offset := 0
	for {
		page, total, err := c.List(ctx, pageSize, offset)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			return all, nil
		}
		all = append(all, page...)
		offset += pageSize
		if offset >= total {
			return all, nil
		}
	}
}

// searchByUser is the shared client-side filter both vendors build
// SearchByUser on.
func searchByUser(ctx context.Context, c Client, userID string) ([]models.FulfillmentOrder, error) {
	all, err := ScanAll(ctx, c)
	if err != nil {
		return nil, err
	}
	matched := []models.FulfillmentOrder{}
	prefix := ReferencePrefix(userID)
	for _, o := range all {
		if len(o.ExternalReference) >= len(prefix) && o.ExternalReference[:len(prefix)] == prefix {
			matched = append(matched, o)
		}
	}
	return matched, nil
}

// buildStats aggregates a full listing into store-wide statistics. An empty
// store yields zeroed counts.
func buildStats(ctx context.Context, c Client) (*models.DesignStats, error) {
	all, err := ScanAll(ctx, c)
	if err != nil {
		return nil, err
	}
	users := map[string]bool{}
	for _, o := range all {
		if userID, ok := UserFromReference(o.ExternalReference); ok {
			users[userID] = true
		}
	}
	stats := &models.DesignStats{
		TotalDesigns: len(all),
		UniqueUsers:  len(users),
	}
	if len(users) > 0 {
		stats.DesignsPerUser = float64(len(all)) / float64(len(users))
	}
	if len(all) > 0 {
		// vendor listings are oldest first, so the newest order is at the end
		latest := all[len(all)-1]
		stats.LatestDesign = &latest
	}
	return stats, nil
}

func readBody(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	return string(b)
}
