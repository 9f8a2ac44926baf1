package models

// DesignRequest is the structured intent extracted from a chat message.
// Phrase is always populated; the parser substitutes a placeholder before
// letting an empty phrase through.
type DesignRequest struct {
	Phrase           string `json:"phrase"`
	Style            string `json:"style"`
	WantsImage       bool   `json:"wants_image"`
	ImageDescription string `json:"image_description,omitempty"`
	ColorPreference  string `json:"color_preference,omitempty"`
}

// RenderedDesign holds the print-ready image for one request.
type RenderedDesign struct {
	ImageBytes     []byte `json:"-"`
	LocalReference string `json:"local_reference,omitempty"`
}

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderInProgress OrderStatus = "in_progress"
	OrderComplete   OrderStatus = "complete"
	OrderFailed     OrderStatus = "failed"
)

// FulfillmentOrder is what the vendor reports back after a submission.
type FulfillmentOrder struct {
	OrderID           string      `json:"order_id" db:"order_id"`
	ExternalReference string      `json:"external_reference" db:"external_reference"`
	DisplayName       string      `json:"display_name" db:"display_name"`
	OrderURL          string      `json:"order_url" db:"order_url"`
	Price             float64     `json:"price,omitempty" db:"price"`
	Currency          string      `json:"currency,omitempty" db:"currency"`
	Status            OrderStatus `json:"status" db:"status"`
	UserID            string      `json:"user_id,omitempty" db:"user_id"`
}

type ErrorKind string

const (
	ErrRenderFailure      ErrorKind = "render_failure"
	ErrFulfillmentFailure ErrorKind = "fulfillment_failure"
	ErrInternal           ErrorKind = "internal_error"
)

// RequestOutcome is the orchestrator's answer to the caller. ResponseText is
// always populated, success or not.
type RequestOutcome struct {
	Success      bool      `json:"success"`
	OrderURL     string    `json:"order_url,omitempty"`
	ResponseText string    `json:"response_text"`
	ErrorKind    ErrorKind `json:"error_kind,omitempty"`
	Phrase       string    `json:"phrase,omitempty"`
}

// DesignStats aggregates the whole store.
type DesignStats struct {
	TotalDesigns   int               `json:"total_designs"`
	UniqueUsers    int               `json:"unique_users"`
	DesignsPerUser float64           `json:"designs_per_user"`
	LatestDesign   *FulfillmentOrder `json:"latest_design,omitempty"`
}
