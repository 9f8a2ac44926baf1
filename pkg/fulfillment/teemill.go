package fulfillment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/printforge/teepress/config"
	"github.com/printforge/teepress/pkg/models"
)

const defaultTeemillURL = "https://api.teemill.com/v1"

// TeemillClient talks to the Teemill print-on-demand API: one file upload,
// then one order create per submission. Teemill carries our external
// reference in the order's reference field.
type TeemillClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewTeemillClient(cfg config.Fulfillment) *TeemillClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultTeemillURL
	}
	return &TeemillClient{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{},
	}
}

func (c *TeemillClient) Submit(ctx context.Context, design models.RenderedDesign, displayName, externalReference string) (*models.FulfillmentOrder, error) {
	imageURL, err := c.uploadDesign(ctx, design.ImageBytes)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"products": []map[string]any{
			{
				"product_code": "OTC01", //organic cotton tee
				"size":         "M",
				"color":        "white",
				"quantity":     1,
				"print_areas": map[string]any{
					"front": map[string]any{
						"image_url": imageURL,
						"position":  "center",
					},
				},
			},
		},
		"reference": externalReference,
		"metadata": map[string]any{
			"product_name": displayName,
		},
	}

	var resp struct {
		OrderID  string `json:"order_id"`
		ID       string `json:"id"`
		URL      string `json:"url"`
		Status   string `json:"status"`
		Products []struct {
			Price    float64 `json:"price"`
			Currency string  `json:"currency"`
		} `json:"products"`
	}
	if err := c.do(ctx, http.MethodPost, "/orders", payload, &resp); err != nil {
		return nil, err
	}

	orderID := resp.OrderID
	if orderID == "" {
		orderID = resp.ID
	}
	orderURL := resp.URL
	if orderURL == "" {
		orderURL = "https://teemill.com/order/" + orderID
	}
	order := &models.FulfillmentOrder{
		OrderID:           orderID,
		ExternalReference: externalReference,
		DisplayName:       displayName,
		OrderURL:          orderURL,
		Currency:          "GBP",
		Status:            mapStatus(resp.Status),
	}
	if len(resp.Products) > 0 {
		order.Price = resp.Products[0].Price
		if resp.Products[0].Currency != "" {
			order.Currency = resp.Products[0].Currency
		}
	}
	log.WithFields(log.Fields{"order_id": order.OrderID, "reference": externalReference}).
		Info("created teemill order")
	return order, nil
}

func (c *TeemillClient) uploadDesign(ctx context.Context, imageBytes []byte) (string, error) {
	payload := map[string]any{
		"file": "data:image/png;base64," + base64.StdEncoding.EncodeToString(imageBytes),
		"type": "design",
	}
	var resp struct {
		URL     string `json:"url"`
		FileURL string `json:"file_url"`
	}
	if err := c.do(ctx, http.MethodPost, "/files", payload, &resp); err != nil {
		return "", err
	}
	if resp.URL != "" {
		return resp.URL, nil
	}
	return resp.FileURL, nil
}

func (c *TeemillClient) List(ctx context.Context, limit, offset int) ([]models.FulfillmentOrder, int, error) {
	path := "/orders?limit=" + strconv.Itoa(limit) + "&offset=" + strconv.Itoa(offset)
	var resp struct {
		Orders []struct {
			OrderID   string `json:"order_id"`
			ID        string `json:"id"`
			Reference string `json:"reference"`
			URL       string `json:"url"`
			Status    string `json:"status"`
			Metadata  struct {
				ProductName string `json:"product_name"`
			} `json:"metadata"`
		} `json:"orders"`
		Total int `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, 0, err
	}

	orders := make([]models.FulfillmentOrder, 0, len(resp.Orders))
	for _, o := range resp.Orders {
		orderID := o.OrderID
		if orderID == "" {
			orderID = o.ID
		}
		userID, _ := UserFromReference(o.Reference)
		orders = append(orders, models.FulfillmentOrder{
			OrderID:           orderID,
			ExternalReference: o.Reference,
			DisplayName:       o.Metadata.ProductName,
			OrderURL:          o.URL,
			Status:            mapStatus(o.Status),
			UserID:            userID,
		})
	}
	total := resp.Total
	if total == 0 {
		total = len(orders)
	}
	return orders, total, nil
}

func (c *TeemillClient) SearchByUser(ctx context.Context, userID string) ([]models.FulfillmentOrder, error) {
	return searchByUser(ctx, c, userID)
}

func (c *TeemillClient) Stats(ctx context.Context) (*models.DesignStats, error) {
	return buildStats(ctx, c)
}

func (c *TeemillClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body *bytes.Buffer
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal teemill request: %w", err)
		}
		body = bytes.NewBuffer(b)
	} else {
		body = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create teemill request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: readBody(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode teemill response: %w", err)
	}
	return nil
}

func mapStatus(s string) models.OrderStatus {
	switch s {
	case "complete", "completed", "fulfilled":
		return models.OrderComplete
	case "in_progress", "printing", "shipped":
		return models.OrderInProgress
	case "failed", "cancelled", "rejected":
		return models.OrderFailed
	default:
		return models.OrderPending
	}
}
