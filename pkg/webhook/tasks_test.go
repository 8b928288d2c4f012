package webhook_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfworks/bookshelf/pkg/entitlement"
	"github.com/shelfworks/bookshelf/pkg/queue"
	"github.com/shelfworks/bookshelf/pkg/webhook"
	"github.com/shelfworks/bookshelf/storage/memory"
)

func newEngine(t *testing.T) (entitlement.Service, *memory.MerchantStore, *memory.BookStore) {
	t.Helper()

	merchants := memory.NewMerchantStore()
	books := memory.NewBookStore()
	grants := memory.NewGrantStore()
	return entitlement.NewService(merchants, books, grants), merchants, books
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()

	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestPaymentSucceededHandler(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("grants access from purchase metadata", func(t *testing.T) {
		t.Parallel()
		svc, _, books := newEngine(t)
		book := &entitlement.Book{
			ID:              uuid.New(),
			CompanyID:       "biz_1",
			Title:           "Paid",
			IsBehindPaywall: true,
			Price:           &entitlement.Money{Amount: 590, Currency: "USD"},
		}
		require.NoError(t, books.Create(ctx, book))

		h := webhook.NewPaymentSucceededHandler(svc, nil, log)
		payload := mustJSON(t, webhook.PaymentSucceededTask{
			EventID: "evt_1",
			Data: mustJSON(t, map[string]any{
				"id":       "pay_1",
				"total":    "5.90",
				"currency": "usd",
				"metadata": map[string]string{"bookId": book.ID.String(), "userId": "user_1"},
			}),
		})
		require.NoError(t, h.Handle(ctx, payload))

		decision, err := svc.CheckBookAccess(ctx, book.ID, "user_1")
		require.NoError(t, err)
		assert.True(t, decision.HasAccess)
	})

	t.Run("malformed data is dropped permanently", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newEngine(t)

		h := webhook.NewPaymentSucceededHandler(svc, nil, log)
		payload := mustJSON(t, webhook.PaymentSucceededTask{EventID: "evt_1", Data: json.RawMessage(`"nope"`)})

		err := h.Handle(ctx, payload)
		require.ErrorIs(t, err, queue.ErrSkipRetry)
	})

	t.Run("missing purchase metadata is dropped permanently", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newEngine(t)

		h := webhook.NewPaymentSucceededHandler(svc, nil, log)
		payload := mustJSON(t, webhook.PaymentSucceededTask{
			EventID: "evt_1",
			Data:    mustJSON(t, map[string]any{"id": "pay_1"}),
		})

		err := h.Handle(ctx, payload)
		require.ErrorIs(t, err, queue.ErrSkipRetry)
	})
}

func TestMembershipHandlers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("activation then deactivation round trip", func(t *testing.T) {
		t.Parallel()
		svc, merchants, _ := newEngine(t)

		end := time.Now().Add(30 * 24 * time.Hour).UTC().Truncate(time.Second)
		activate := webhook.NewMembershipActivatedHandler(svc, nil, log)
		require.NoError(t, activate.Handle(ctx, mustJSON(t, webhook.MembershipActivatedTask{
			EventID: "evt_1",
			Data: mustJSON(t, map[string]any{
				"id":                 "mem_1",
				"company":            map[string]string{"id": "biz_1"},
				"plan":               map[string]string{"id": "plan_1"},
				"renewal_period_end": end.Format(time.RFC3339),
			}),
		})))

		m, err := merchants.Get(ctx, "biz_1")
		require.NoError(t, err)
		assert.Equal(t, entitlement.StatusActive, m.SubscriptionStatus)

		deactivate := webhook.NewMembershipDeactivatedHandler(svc, nil, log)
		require.NoError(t, deactivate.Handle(ctx, mustJSON(t, webhook.MembershipDeactivatedTask{
			EventID: "evt_2",
			Data: mustJSON(t, map[string]any{
				"id":      "mem_1",
				"company": map[string]string{"id": "biz_1"},
			}),
		})))

		m, err = merchants.Get(ctx, "biz_1")
		require.NoError(t, err)
		assert.Equal(t, entitlement.StatusExpired, m.SubscriptionStatus)
	})

	t.Run("missing company is dropped permanently", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newEngine(t)

		h := webhook.NewMembershipActivatedHandler(svc, nil, log)
		err := h.Handle(ctx, mustJSON(t, webhook.MembershipActivatedTask{
			EventID: "evt_1",
			Data:    mustJSON(t, map[string]any{"id": "mem_1"}),
		}))
		require.ErrorIs(t, err, queue.ErrSkipRetry)
	})
}

func TestDeliveryRecovery(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("redelivery repairs a lost first attempt", func(t *testing.T) {
		t.Parallel()
		svc, merchants, _ := newEngine(t)
		dedup := webhook.NewMemoryDeduper(time.Minute)
		d, store := newDispatcher(t, webhook.WithDeduper(dedup))
		h := webhook.NewMembershipActivatedHandler(svc, dedup, log)

		end := time.Now().Add(30 * 24 * time.Hour).UTC().Format(time.RFC3339)
		body := fmt.Sprintf(`{"id":"evt_1","type":"membership.activated","data":{"id":"mem_1","company":{"id":"biz_1"},"plan":{"id":"plan_1"},"renewal_period_end":%q}}`, end)

		// First attempt is lost before processing: the task is claimed but
		// never handled, as after a crash of the in-process queue.
		deliver(t, d, body)
		_, err := claimOne(t, store)
		require.NoError(t, err)

		// The provider redelivers the same event id. It must not be dropped,
		// since nothing marked it processed.
		deliver(t, d, body)
		task, err := claimOne(t, store)
		require.NoError(t, err)
		require.NoError(t, h.Handle(ctx, task.Payload))

		m, err := merchants.Get(ctx, "biz_1")
		require.NoError(t, err)
		assert.Equal(t, entitlement.StatusActive, m.SubscriptionStatus)

		// Only now is the delivery id remembered; a further redelivery is
		// dropped at the door.
		seen, err := dedup.Seen(ctx, "evt_1")
		require.NoError(t, err)
		assert.True(t, seen)

		deliver(t, d, body)
		_, err = claimOne(t, store)
		require.ErrorIs(t, err, queue.ErrNoTaskToClaim)
	})

	t.Run("successful processing marks the delivery id", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newEngine(t)
		dedup := webhook.NewMemoryDeduper(time.Minute)

		h := webhook.NewMembershipDeactivatedHandler(svc, dedup, log)
		require.NoError(t, h.Handle(ctx, mustJSON(t, webhook.MembershipDeactivatedTask{
			EventID: "evt_1",
			Data:    mustJSON(t, map[string]any{"id": "mem_1", "company": map[string]string{"id": "biz_1"}}),
		})))

		seen, err := dedup.Seen(ctx, "evt_1")
		require.NoError(t, err)
		assert.True(t, seen)
	})

	t.Run("permanent drop marks the delivery id", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newEngine(t)
		dedup := webhook.NewMemoryDeduper(time.Minute)

		h := webhook.NewPaymentSucceededHandler(svc, dedup, log)
		err := h.Handle(ctx, mustJSON(t, webhook.PaymentSucceededTask{
			EventID: "evt_1",
			Data:    mustJSON(t, map[string]any{"id": "pay_1"}),
		}))
		require.ErrorIs(t, err, queue.ErrSkipRetry)

		// A redelivered copy carries the same unusable payload; remembering
		// the id keeps it out of the queue.
		seen, err := dedup.Seen(ctx, "evt_1")
		require.NoError(t, err)
		assert.True(t, seen)
	})
}
