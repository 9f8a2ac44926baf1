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

const defaultPrintifyURL = "https://api.printify.com/v1"

const (
	blueprintUnisexTee    = 5  //Gildan 5000 heavy cotton tee
	printProviderMonsterD = 99 //Monster Digital, US
	variantWhiteM         = 4012
)

// PrintifyClient talks to the Printify catalog API: upload the artwork, then
// create a product in the configured shop. Printify carries our external
// reference in the product's external id.
type PrintifyClient struct {
	baseURL string
	apiKey  string
	shopID  string
	http    *http.Client
}

func NewPrintifyClient(cfg config.Fulfillment) *PrintifyClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultPrintifyURL
	}
	return &PrintifyClient{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		shopID:  cfg.ShopID,
		http:    &http.Client{},
	}
}

func (c *PrintifyClient) Submit(ctx context.Context, design models.RenderedDesign, displayName, externalReference string) (*models.FulfillmentOrder, error) {
	uploadPayload := map[string]any{
		"file_name": externalReference + ".png",
		"contents":  base64.StdEncoding.EncodeToString(design.ImageBytes),
	}
	var upload struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/uploads/images.json", uploadPayload, &upload); err != nil {
		return nil, err
	}

	productPayload := map[string]any{
		"title":             displayName,
		"description":       "Custom tee generated from chat",
		"external_id":       externalReference,
		"blueprint_id":      blueprintUnisexTee,
		"print_provider_id": printProviderMonsterD,
		"variants": []map[string]any{
			{"id": variantWhiteM, "price": 2500, "is_enabled": true},
		},
		"print_areas": []map[string]any{
			{
				"variant_ids": []int{variantWhiteM},
				"placeholders": []map[string]any{
					{
						"position": "front",
						"images": []map[string]any{
							{"id": upload.ID, "x": 0.5, "y": 0.5, "scale": 1, "angle": 0},
						},
					},
				},
			},
		},
	}
	var product struct {
		ID     string `json:"id"`
		Title  string `json:"title"`
		Images []struct {
			Src string `json:"src"`
		} `json:"images"`
	}
	if err := c.do(ctx, http.MethodPost, "/shops/"+c.shopID+"/products.json", productPayload, &product); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"product_id": product.ID, "reference": externalReference}).
		Info("created printify product")
	return &models.FulfillmentOrder{
		OrderID:           product.ID,
		ExternalReference: externalReference,
		DisplayName:       displayName,
		OrderURL:          "https://printify.com/app/products/" + product.ID,
		Price:             25.0,
		Currency:          "USD",
		Status:            models.OrderPending,
	}, nil
}

func (c *PrintifyClient) List(ctx context.Context, limit, offset int) ([]models.FulfillmentOrder, int, error) {
	// printify paginates by page number, not offset
	page := offset/limit + 1
	path := "/shops/" + c.shopID + "/products.json?limit=" + strconv.Itoa(limit) + "&page=" + strconv.Itoa(page)
	var resp struct {
		Data []struct {
			ID         string `json:"id"`
			Title      string `json:"title"`
			ExternalID string `json:"external_id"`
			Visible    bool   `json:"visible"`
		} `json:"data"`
		Total int `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, 0, err
	}

	orders := make([]models.FulfillmentOrder, 0, len(resp.Data))
	for _, p := range resp.Data {
		status := models.OrderPending
		if p.Visible {
			status = models.OrderComplete
		}
		userID, _ := UserFromReference(p.ExternalID)
		orders = append(orders, models.FulfillmentOrder{
			OrderID:           p.ID,
			ExternalReference: p.ExternalID,
			DisplayName:       p.Title,
			OrderURL:          "https://printify.com/app/products/" + p.ID,
			Status:            status,
			UserID:            userID,
		})
	}
	total := resp.Total
	if total == 0 {
		total = len(orders)
	}
	return orders, total, nil
}

func (c *PrintifyClient) SearchByUser(ctx context.Context, userID string) ([]models.FulfillmentOrder, error) {
	return searchByUser(ctx, c, userID)
}

func (c *PrintifyClient) Stats(ctx context.Context) (*models.DesignStats, error) {
	return buildStats(ctx, c)
}

func (c *PrintifyClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body *bytes.Buffer
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal printify request: %w", err)
		}
		body = bytes.NewBuffer(b)
	} else {
		body = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create printify request: %w", err)
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
		return fmt.Errorf("failed to decode printify response: %w", err)
	}
	return nil
}
