package service

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/mailersend/mailersend-go"
	"github.com/minio/minio-go/v7"
	log "github.com/sirupsen/logrus"

	"github.com/printforge/teepress/config"
	"github.com/printforge/teepress/pkg/db"
	"github.com/printforge/teepress/pkg/fulfillment"
	"github.com/printforge/teepress/pkg/history"
	"github.com/printforge/teepress/pkg/intent"
	"github.com/printforge/teepress/pkg/models"
	"github.com/printforge/teepress/pkg/render"
)

var responsePhrases = []string{
	"Got you fam!",
	"Say less, squad!",
	"Bet! Your fit is ready!",
	"No cap, this tee slaps!",
	"It's giving main character energy!",
	"Chef's kiss on this one!",
	"Your drip has arrived!",
	"Sheesh, this goes hard!",
	"We understood the assignment!",
	"Straight bussin'!",
}

const (
	apologyRender      = "Couldn't draw that one up, sorry! Try a different phrase?"
	apologyFulfillment = "The print shop isn't answering right now. Give it another go in a bit!"
	apologyInternal    = "Oof, something broke on our end!"
)

// Orchestrator runs the per-request pipeline: parse, render, submit. Each
// call is independent; the only externally visible side effect is at most one
// vendor submission.
type Orchestrator struct {
	cfg      *config.Config
	parser   *intent.Parser
	renderer *render.Renderer
	client   fulfillment.Client
	history  *history.Index

	// optional, all best-effort after a successful submission
	index   db.DesignIndex
	archive *minio.Client
}

func NewOrchestrator(cfg *config.Config, client fulfillment.Client, hist *history.Index, parser *intent.Parser, renderer *render.Renderer) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		parser:   parser,
		renderer: renderer,
		client:   client,
		history:  hist,
	}
}

// HandleRequest processes one chat message end to end. It never returns an
// error; every failure mode becomes a RequestOutcome with a friendly message
// and a classified error kind.
func (o *Orchestrator) HandleRequest(ctx context.Context, rawMessage, userID, displayName string) (out models.RequestOutcome) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{"user_id": userID, "panic": r}).
				Error("request handling panicked")
			out = models.RequestOutcome{
				Success:      false,
				ResponseText: apologyInternal,
				ErrorKind:    models.ErrInternal,
			}
		}
	}()

	log.WithFields(log.Fields{"user_id": userID, "username": displayName}).
		Info("processing tee request")

	req := o.parser.Parse(ctx, rawMessage)
	if req.WantsImage {
		// no image generator is wired; text-only design, never a failure
		log.WithField("user_id", userID).Info("artwork requested, degrading to text-only design")
	}

	design, err := o.renderer.Render(req)
	if err != nil {
		log.WithFields(log.Fields{"user_id": userID, "error": err}).
			Error("rendering failed")
		return models.RequestOutcome{
			Success:      false,
			ResponseText: apologyRender,
			ErrorKind:    models.ErrRenderFailure,
			Phrase:       req.Phrase,
		}
	}

	reference := fulfillment.NewReference(userID)
	name := productName(req.Phrase)

	order, err := o.submitWithRetry(ctx, design, name, reference)
	if err != nil {
		log.WithFields(log.Fields{"user_id": userID, "reference": reference, "error": err}).
			Error("fulfillment submission failed")
		return models.RequestOutcome{
			Success:      false,
			ResponseText: apologyFulfillment,
			ErrorKind:    models.ErrFulfillmentFailure,
			Phrase:       req.Phrase,
		}
	}
	order.UserID = userID

	o.afterSubmit(ctx, order, &design)

	return models.RequestOutcome{
		Success:      true,
		OrderURL:     order.OrderURL,
		ResponseText: responsePhrases[rand.Intn(len(responsePhrases))],
		Phrase:       req.Phrase,
	}
}

// submitWithRetry attempts the vendor submission with bounded exponential
// backoff. Only retryable failures (network, 429, 5xx) earn another attempt;
// the same reference is reused so vendors with idempotency keys can collapse
// duplicates.
func (o *Orchestrator) submitWithRetry(ctx context.Context, design models.RenderedDesign, displayName, reference string) (*models.FulfillmentOrder, error) {
	maxAttempts := o.cfg.Retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	backoff := time.Duration(o.cfg.Retry.BackoffMillis) * time.Millisecond
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		order, err := o.client.Submit(ctx, design, displayName, reference)
		if err == nil {
			return order, nil
		}
		lastErr = err
		if !fulfillment.IsRetryable(err) {
			return nil, err
		}
		if attempt == maxAttempts {
			break
		}
		log.WithFields(log.Fields{"attempt": attempt, "backoff": backoff, "error": err}).
			Warn("retryable submission failure")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("submission failed after %d attempts: %w", maxAttempts, lastErr)
}

// afterSubmit runs the non-critical post-order work: archive the artwork,
// record the local index row, send the notification email. Failures here are
// logged and swallowed; the order already exists.
func (o *Orchestrator) afterSubmit(ctx context.Context, order *models.FulfillmentOrder, design *models.RenderedDesign) {
	if o.archive != nil {
		key := order.ExternalReference + ".png"
		_, err := o.archive.PutObject(ctx, o.cfg.Minio.Bucket, key,
			bytes.NewReader(design.ImageBytes), int64(len(design.ImageBytes)),
			minio.PutObjectOptions{ContentType: "image/png"})
		if err != nil {
			log.WithFields(log.Fields{"key": key, "error": err}).Warn("failed to archive design")
		} else {
			design.LocalReference = key
			log.WithFields(log.Fields{"key": key, "order_id": order.OrderID}).Info("archived design")
		}
	}
	if o.index != nil {
		if err := o.index.Record(ctx, order); err != nil {
			log.WithFields(log.Fields{"reference": order.ExternalReference, "error": err}).
				Warn("failed to record design in local index")
		}
	}
	if o.cfg.Email.Enabled && o.cfg.Email.To != "" {
		if err := o.sendOrderEmail(ctx, order); err != nil {
			log.WithFields(log.Fields{"order_id": order.OrderID, "error": err}).
				Warn("failed to send order notification")
		}
	}
}

func (o *Orchestrator) sendOrderEmail(ctx context.Context, order *models.FulfillmentOrder) error {
	ms := mailersend.NewMailersend(o.cfg.Email.APIKey)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	message := ms.Email.NewMessage()
	message.SetFrom(mailersend.From{Name: "teepress", Email: o.cfg.Email.From})
	message.SetRecipients([]mailersend.Recipient{{Email: o.cfg.Email.To}})
	message.SetSubject("New tee order: " + order.DisplayName)
	message.SetText("A new tee was ordered --> " + order.OrderURL)
	message.SetHTML("<h1>A new tee was ordered</h1><p><a href=\"" + order.OrderURL + "\">" + order.DisplayName + "</a></p>")

	_, err := ms.Email.Send(ctx, message)
	return err
}

// DesignsForUser mirrors the history index but never surfaces an error to
// the chat layer, matching the rest of the outward contract.
func (o *Orchestrator) DesignsForUser(ctx context.Context, userID string) []models.FulfillmentOrder {
	orders, err := o.history.DesignsForUser(ctx, userID)
	if err != nil {
		log.WithFields(log.Fields{"user_id": userID, "error": err}).
			Error("failed to retrieve user designs")
		return []models.FulfillmentOrder{}
	}
	return orders
}

func (o *Orchestrator) AllDesigns(ctx context.Context) []models.FulfillmentOrder {
	orders, err := o.history.AllDesigns(ctx)
	if err != nil {
		log.WithField("error", err).Error("failed to retrieve all designs")
		return []models.FulfillmentOrder{}
	}
	return orders
}

func (o *Orchestrator) Statistics(ctx context.Context) *models.DesignStats {
	stats, err := o.history.Statistics(ctx)
	if err != nil {
		log.WithField("error", err).Error("failed to retrieve design stats")
		return &models.DesignStats{}
	}
	return stats
}

func productName(phrase string) string {
	if r := []rune(phrase); len(r) > 50 {
		phrase = string(r[:50])
	}
	return phrase + " - Custom Tee"
}
