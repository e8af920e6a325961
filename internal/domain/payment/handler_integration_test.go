package payment_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tradesim/tradesim-api/internal/domain/ledger"
	"github.com/tradesim/tradesim-api/internal/domain/order"
	"github.com/tradesim/tradesim-api/internal/domain/payment"
)

type notifierRecorder struct {
	credited []uuid.UUID
	failed   []uuid.UUID
}

func (n *notifierRecorder) OrderCredited(ctx context.Context, o order.TopUpOrder, creditedAmount int64) {
	n.credited = append(n.credited, o.ID)
}

func (n *notifierRecorder) OrderFailed(ctx context.Context, o order.TopUpOrder) {
	n.failed = append(n.failed, o.ID)
}

type callbackEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		Order          *order.TopUpOrder `json:"order"`
		Balance        int64             `json:"balance"`
		CreditedAmount int64             `json:"credited_amount"`
	} `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func postCallback(t *testing.T, h *payment.Handler, conf payment.Confirmation) (*httptest.ResponseRecorder, callbackEnvelope) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{
		"gateway_order_ref":   conf.GatewayOrderRef,
		"gateway_payment_ref": conf.GatewayPaymentRef,
		"signature":           conf.Signature,
	})
	req := httptest.NewRequest(http.MethodPost, "/callback", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	var env callbackEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("bad response body: %v\n%s", err, rec.Body.String())
	}
	return rec, env
}

func newTestHandler(db *sqlx.DB, notifier payment.Notifier) *payment.Handler {
	orders := order.NewRepository(db)
	ledgerSvc := ledger.NewService(ledger.NewRepository(db), nil, 0)
	return payment.NewHandler(newTestVerifier(db), ledgerSvc, orders, notifier)
}

func TestCallbackCreditsOrder(t *testing.T) {
	db := setupTestDB(t)
	defer func() {
		db.Exec("DELETE FROM ledger_entries")
		db.Exec("DELETE FROM user_wallets")
		cleanupTestDB(db)
	}()

	notifier := &notifierRecorder{}
	h := newTestHandler(db, notifier)
	orderRef := insertTestOrder(t, db, uuid.New(), order.StatusPending)
	conf := signedConfirmation(orderRef)

	rec, env := postCallback(t, h, conf)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if env.Data.CreditedAmount != 200_000 || env.Data.Balance != 200_000 {
		t.Fatalf("unexpected credit result: credited=%d balance=%d", env.Data.CreditedAmount, env.Data.Balance)
	}
	if env.Data.Order.Status != order.StatusCredited {
		t.Fatalf("expected credited order in response, got %s", env.Data.Order.Status)
	}
	if len(notifier.credited) != 1 {
		t.Fatalf("expected one credited notification, got %d", len(notifier.credited))
	}

	// Gateway retry with the same confirmation: success no-op, nothing credited.
	rec, env = postCallback(t, h, conf)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate delivery, got %d: %s", rec.Code, rec.Body.String())
	}
	if env.Data.CreditedAmount != 0 {
		t.Fatalf("duplicate delivery must credit nothing, got %d", env.Data.CreditedAmount)
	}
	if env.Data.Balance != 200_000 {
		t.Fatalf("balance changed on duplicate delivery: %d", env.Data.Balance)
	}
	if len(notifier.credited) != 1 {
		t.Fatalf("duplicate delivery must not notify again, got %d", len(notifier.credited))
	}
}

func TestCallbackRejectsBadSignature(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(db)

	notifier := &notifierRecorder{}
	h := newTestHandler(db, notifier)
	orderRef := insertTestOrder(t, db, uuid.New(), order.StatusPending)

	conf := signedConfirmation(orderRef)
	conf.Signature = "deadbeef"

	rec, env := postCallback(t, h, conf)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if env.Error == nil || env.Error.Code != "SIGNATURE_INVALID" {
		t.Fatalf("expected SIGNATURE_INVALID, got %+v", env.Error)
	}
	assertOrderStatus(t, db, orderRef, order.StatusFailed)
	if len(notifier.failed) != 1 {
		t.Fatalf("expected one failed notification, got %d", len(notifier.failed))
	}
}

func TestCallbackGarbledRetryForCreditedOrder(t *testing.T) {
	db := setupTestDB(t)
	defer func() {
		db.Exec("DELETE FROM ledger_entries")
		db.Exec("DELETE FROM user_wallets")
		cleanupTestDB(db)
	}()

	notifier := &notifierRecorder{}
	h := newTestHandler(db, notifier)
	orderRef := insertTestOrder(t, db, uuid.New(), order.StatusPending)

	conf := signedConfirmation(orderRef)
	if rec, _ := postCallback(t, h, conf); rec.Code != http.StatusOK {
		t.Fatalf("initial credit failed with %d", rec.Code)
	}

	// A gateway retry whose signature got mangled in transit must still be a
	// success no-op, never a failure.
	conf.Signature = "garbage"
	rec, env := postCallback(t, h, conf)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for garbled retry of credited order, got %d: %s", rec.Code, rec.Body.String())
	}
	if env.Data.CreditedAmount != 0 {
		t.Fatalf("garbled retry must credit nothing, got %d", env.Data.CreditedAmount)
	}
	if len(notifier.failed) != 0 {
		t.Fatalf("garbled retry must not emit a failed event, got %d", len(notifier.failed))
	}
	assertOrderStatus(t, db, orderRef, order.StatusCredited)
}

func TestCallbackExpiredOrderGone(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(db)

	h := newTestHandler(db, nil)
	orderRef := insertTestOrder(t, db, uuid.New(), order.StatusExpired)

	rec, env := postCallback(t, h, signedConfirmation(orderRef))
	if rec.Code != http.StatusGone {
		t.Fatalf("expected 410, got %d: %s", rec.Code, rec.Body.String())
	}
	if env.Error == nil || env.Error.Code != "ORDER_EXPIRED" {
		t.Fatalf("expected ORDER_EXPIRED, got %+v", env.Error)
	}
}

func TestCallbackUnknownOrder(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(db)

	h := newTestHandler(db, nil)
	rec, env := postCallback(t, h, signedConfirmation("gw_"+uuid.NewString()))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
	if env.Error == nil || env.Error.Code != "ORDER_NOT_FOUND" {
		t.Fatalf("expected ORDER_NOT_FOUND, got %+v", env.Error)
	}
}

func TestCallbackMissingFields(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(db)

	h := newTestHandler(db, nil)
	rec, env := postCallback(t, h, payment.Confirmation{GatewayOrderRef: "gw_x"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for missing fields, got %d: %s", rec.Code, rec.Body.String())
	}
	if env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %+v", env.Error)
	}
}
