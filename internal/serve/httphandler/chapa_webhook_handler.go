package httphandler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/fikir-app/fikir-backend/internal/serve/httperror"
	"github.com/fikir-app/fikir-backend/internal/services"
	"github.com/fikir-app/fikir-backend/internal/support/httpjson"
	"github.com/fikir-app/fikir-backend/internal/support/log"
)

// ChapaWebhookHandler receives provider callbacks. Requests authenticate by
// HMAC signature when a webhook secret is configured; either way the event is
// re-verified against the provider before any money moves, so a forged call
// can at worst trigger a verification round-trip.
type ChapaWebhookHandler struct {
	WebhookService services.WebhookServiceInterface
	WebhookSecret  string
}

// chapaWebhookBody is the subset of the callback payload the settlement path
// needs. The provider sends both tx_ref and trx_ref spellings in the wild.
type chapaWebhookBody struct {
	TxRef     string `json:"tx_ref"`
	TrxRef    string `json:"trx_ref"`
	Status    string `json:"status"`
	Reference string `json:"reference"`
	RefID     string `json:"ref_id"`
}

// ServeHTTP implements the http.Handler interface. GET callbacks carry the
// event in query parameters, POST callbacks in a JSON body.
func (h ChapaWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var event services.WebhookEvent
	if r.Method == http.MethodGet {
		query := r.URL.Query()
		event = services.WebhookEvent{
			TxRef:     firstNonEmpty(query.Get("tx_ref"), query.Get("trx_ref")),
			Status:    query.Get("status"),
			Reference: firstNonEmpty(query.Get("reference"), query.Get("ref_id")),
		}
	} else {
		rawBody, err := io.ReadAll(r.Body)
		if err != nil {
			httperror.BadRequest("could not read request body", err, nil).Render(w)
			return
		}

		if h.WebhookSecret != "" && !h.verifySignature(rawBody, r.Header) {
			httperror.Unauthorized("invalid webhook signature", nil, nil).Render(w)
			return
		}

		var body chapaWebhookBody
		if err = json.Unmarshal(rawBody, &body); err != nil {
			httperror.BadRequest("invalid request body", err, nil).Render(w)
			return
		}
		event = services.WebhookEvent{
			TxRef:     firstNonEmpty(body.TxRef, body.TrxRef),
			Status:    body.Status,
			Reference: firstNonEmpty(body.Reference, body.RefID),
		}
	}

	if event.TxRef == "" {
		httperror.BadRequest("tx_ref is required", nil, nil).Render(w)
		return
	}

	outcome, err := h.WebhookService.ProcessEvent(ctx, event)
	if err != nil {
		httperror.InternalError(ctx, "Cannot process webhook event", err, nil).Render(w)
		return
	}

	log.Ctx(ctx).Infof("webhook for tx_ref %s: %s", event.TxRef, outcome)
	httpjson.RenderStatus(w, http.StatusOK, map[string]string{"status": string(outcome)}, httpjson.JSON)
}

// verifySignature checks the hex HMAC-SHA256 of the raw body against the
// signature headers in constant time.
func (h ChapaWebhookHandler) verifySignature(rawBody []byte, header http.Header) bool {
	signature := firstNonEmpty(header.Get("Chapa-Signature"), header.Get("X-Chapa-Signature"))
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.WebhookSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
