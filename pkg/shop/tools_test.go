package shop

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTools(t *testing.T, embedder EmbeddingProvider) *Tools {
	t.Helper()
	return NewTools(newTestStore(t, embedder), zerolog.Nop())
}

func TestTools_RefundItem(t *testing.T) {
	tools := newTestTools(t, nil)
	ctx := context.Background()

	out := tools.RefundItem(ctx, map[string]interface{}{
		"user_id": float64(1), "product_id": float64(2),
	})
	assert.Equal(t, "Refunding $99 to user ID 1 for product ID 2.", out)

	out = tools.RefundItem(ctx, map[string]interface{}{
		"user_id": float64(1), "product_id": float64(1),
	})
	assert.Equal(t, "No purchase found for user ID 1 and product ID 1. Refund initiated.", out)

	out = tools.RefundItem(ctx, map[string]interface{}{"user_id": "abc"})
	assert.Contains(t, out, "requires numeric")
}

func TestTools_OrderItem(t *testing.T) {
	tools := newTestTools(t, nil)
	ctx := context.Background()

	out := tools.OrderItem(ctx, map[string]interface{}{
		"user_id": float64(2), "product_id": float64(1),
	})
	assert.Equal(t, "Order placed for product Trek Domane for user ID 2. product ID: 1.", out)

	// The order lands in the purchase history, so a refund sees it.
	amount, found, err := tools.store.PurchaseAmount(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2500.0, amount)

	out = tools.OrderItem(ctx, map[string]interface{}{
		"user_id": float64(2), "product_id": float64(999),
	})
	assert.Equal(t, "Product 999 not found.", out)
}

func TestTools_NotifyCustomer(t *testing.T) {
	tools := newTestTools(t, nil)
	ctx := context.Background()

	out := tools.NotifyCustomer(ctx, map[string]interface{}{
		"user_id": float64(1), "method": "email",
	})
	assert.Equal(t, "Emailed customer ada@example.com a notification.", out)

	out = tools.NotifyCustomer(ctx, map[string]interface{}{
		"user_id": float64(2), "method": "phone",
	})
	assert.Equal(t, "Texted customer 555-0102 a notification.", out)

	// User 2 has no email on record.
	out = tools.NotifyCustomer(ctx, map[string]interface{}{
		"user_id": float64(2), "method": "email",
	})
	assert.Equal(t, "No email contact available for user ID 2.", out)

	out = tools.NotifyCustomer(ctx, map[string]interface{}{
		"user_id": float64(999), "method": "email",
	})
	assert.Equal(t, "User ID 999 not found.", out)
}

func TestTools_ProductInformation(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"A lightweight carbon road bike.":   {1, 0, 0, 0},
		"A sturdy helmet for trail riding.": {0, 1, 0, 0},
		"tell me about road bikes":          {0.9, 0.1, 0, 0},
	}}
	tools := newTestTools(t, embedder)

	out := tools.ProductInformation(context.Background(), map[string]interface{}{
		"user_prompt": "tell me about road bikes",
	})
	assert.Contains(t, out, "Trek Domane")
	assert.Contains(t, out, "similarity_score")

	out = tools.ProductInformation(context.Background(), map[string]interface{}{})
	assert.Contains(t, out, "requires a user_prompt")
}

func TestTools_ProductInformationWithoutEmbedder(t *testing.T) {
	tools := newTestTools(t, nil)

	out := tools.ProductInformation(context.Background(), map[string]interface{}{
		"user_prompt": "anything",
	})
	assert.Equal(t, "An error occurred while searching for products.", out)
}

func TestTools_CapabilitySets(t *testing.T) {
	tools := newTestTools(t, nil)

	product := tools.ProductCapabilities()
	require.Len(t, product, 1)
	assert.Equal(t, "product_information", product[0].Name)

	sales := tools.SalesCapabilities()
	require.Len(t, sales, 2)
	assert.Equal(t, "order_item", sales[0].Name)
	assert.Equal(t, "notify_customer", sales[1].Name)

	refunds := tools.RefundsCapabilities()
	require.Len(t, refunds, 2)
	assert.Equal(t, "refund_item", refunds[0].Name)
	assert.Equal(t, "notify_customer", refunds[1].Name)
}
