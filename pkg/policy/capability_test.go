package policy

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refundSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"user_id":    map[string]interface{}{"type": "number"},
			"product_id": map[string]interface{}{"type": "number"},
		},
		"required": []interface{}{"user_id", "product_id"},
	}
}

func TestCapabilitySet_Dispatch(t *testing.T) {
	cs, err := NewCapabilitySet(zerolog.Nop(), Capability{
		Name:        "refund_item",
		Description: "Initiate a refund based on the user ID and product ID.",
		Schema:      refundSchema(),
		Handler: func(ctx context.Context, args map[string]interface{}) string {
			return fmt.Sprintf("Refunding user %v for product %v.", args["user_id"], args["product_id"])
		},
	})
	require.NoError(t, err)

	out := cs.Dispatch(context.Background(), "refund_item", map[string]interface{}{
		"user_id":    float64(5),
		"product_id": float64(12),
	})
	assert.Equal(t, "Refunding user 5 for product 12.", out)
}

func TestCapabilitySet_DispatchInvalidArgs(t *testing.T) {
	cs, err := NewCapabilitySet(zerolog.Nop(), Capability{
		Name:   "refund_item",
		Schema: refundSchema(),
		Handler: func(ctx context.Context, args map[string]interface{}) string {
			t.Fatal("handler must not run on invalid arguments")
			return ""
		},
	})
	require.NoError(t, err)

	out := cs.Dispatch(context.Background(), "refund_item", map[string]interface{}{
		"user_id": "not a number",
	})
	assert.Contains(t, out, "Invalid arguments for refund_item")
}

func TestCapabilitySet_DispatchUnknownTool(t *testing.T) {
	cs, err := NewCapabilitySet(zerolog.Nop())
	require.NoError(t, err)

	out := cs.Dispatch(context.Background(), "order_item", nil)
	assert.Equal(t, "Tool order_item is not available.", out)
}

func TestNewCapabilitySet_Validation(t *testing.T) {
	noop := func(ctx context.Context, args map[string]interface{}) string { return "" }

	_, err := NewCapabilitySet(zerolog.Nop(), Capability{Handler: noop})
	assert.Error(t, err, "unnamed capability")

	_, err = NewCapabilitySet(zerolog.Nop(), Capability{Name: "x"})
	assert.Error(t, err, "missing handler")

	_, err = NewCapabilitySet(zerolog.Nop(),
		Capability{Name: "x", Handler: noop},
		Capability{Name: "x", Handler: noop},
	)
	assert.Error(t, err, "duplicate name")
}

func TestCapabilitySet_Descriptors(t *testing.T) {
	noop := func(ctx context.Context, args map[string]interface{}) string { return "" }

	cs, err := NewCapabilitySet(zerolog.Nop(),
		Capability{Name: "a", Description: "first", Schema: refundSchema(), Handler: noop},
		Capability{Name: "b", Description: "second", Handler: noop},
	)
	require.NoError(t, err)

	descriptors := cs.Descriptors()
	require.Len(t, descriptors, 2)
	assert.Equal(t, "a", descriptors[0].Name)
	assert.Equal(t, "b", descriptors[1].Name)
	// A capability without a schema still advertises an object schema.
	assert.Equal(t, "object", descriptors[1].InputSchema["type"])
}
