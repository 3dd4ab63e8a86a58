package shop

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harun/switchboard/internal/observability"
	"github.com/harun/switchboard/pkg/policy"
	"github.com/rs/zerolog"
)

// Tools exposes the shop operations as policy capabilities. Handlers always
// return text; failures are logged and reported to the model as messages,
// never as errors.
type Tools struct {
	store  *Store
	logger zerolog.Logger
}

// NewTools wraps a store for capability dispatch
func NewTools(store *Store, logger zerolog.Logger) *Tools {
	return &Tools{store: store, logger: logger}
}

func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n, true
		}
	}
	return 0, false
}

// RefundItem initiates a refund for a prior purchase
func (t *Tools) RefundItem(ctx context.Context, args map[string]interface{}) string {
	start := time.Now()
	userID, ok1 := intArg(args, "user_id")
	productID, ok2 := intArg(args, "product_id")
	if !ok1 || !ok2 {
		return "Refund requires numeric user_id and product_id."
	}

	amount, found, err := t.store.PurchaseAmount(ctx, userID, productID)
	if err != nil {
		t.logger.Error().Err(err).Msg("Refund lookup failed")
		observability.RecordToolExecution("refund_item", time.Since(start), false)
		return "An error occurred during refund."
	}
	observability.RecordToolExecution("refund_item", time.Since(start), true)

	if !found {
		return fmt.Sprintf("No purchase found for user ID %d and product ID %d. Refund initiated.", userID, productID)
	}
	return fmt.Sprintf("Refunding $%v to user ID %d for product ID %d.", amount, userID, productID)
}

// OrderItem places an order and records it in the purchase history
func (t *Tools) OrderItem(ctx context.Context, args map[string]interface{}) string {
	start := time.Now()
	userID, ok1 := intArg(args, "user_id")
	productID, ok2 := intArg(args, "product_id")
	if !ok1 || !ok2 {
		return "Ordering requires numeric user_id and product_id."
	}

	product, err := t.store.ProductByID(ctx, productID)
	if err == ErrProductNotFound {
		observability.RecordToolExecution("order_item", time.Since(start), true)
		return fmt.Sprintf("Product %d not found.", productID)
	}
	if err != nil {
		t.logger.Error().Err(err).Msg("Order lookup failed")
		observability.RecordToolExecution("order_item", time.Since(start), false)
		return "An error occurred during order placement."
	}

	purchase := Purchase{
		UserID:         userID,
		ProductID:      product.ProductID,
		DateOfPurchase: time.Now().Format("02/01/2006"),
		Amount:         product.Price,
		ProductName:    product.ProductName,
		Category:       product.Category,
	}
	if err := t.store.AddPurchase(ctx, purchase); err != nil {
		t.logger.Error().Err(err).Msg("Order write failed")
		observability.RecordToolExecution("order_item", time.Since(start), false)
		return "An error occurred during order placement."
	}

	observability.RecordToolExecution("order_item", time.Since(start), true)
	return fmt.Sprintf("Order placed for product %s for user ID %d. product ID: %d.", product.ProductName, userID, product.ProductID)
}

// NotifyCustomer notifies a customer by their preferred contact method
func (t *Tools) NotifyCustomer(ctx context.Context, args map[string]interface{}) string {
	start := time.Now()
	userID, ok := intArg(args, "user_id")
	method, _ := args["method"].(string)
	if !ok || method == "" {
		return "Notification requires numeric user_id and a method of phone or email."
	}

	user, err := t.store.UserByID(ctx, userID)
	if err == ErrUserNotFound {
		observability.RecordToolExecution("notify_customer", time.Since(start), true)
		return fmt.Sprintf("User ID %d not found.", userID)
	}
	if err != nil {
		t.logger.Error().Err(err).Msg("Notification lookup failed")
		observability.RecordToolExecution("notify_customer", time.Since(start), false)
		return "An error occurred during notification."
	}
	observability.RecordToolExecution("notify_customer", time.Since(start), true)

	switch {
	case method == "email" && user.Email != "":
		t.logger.Info().Str("email", user.Email).Msg("Emailed customer a notification")
		return fmt.Sprintf("Emailed customer %s a notification.", user.Email)
	case method == "phone" && user.Phone != "":
		t.logger.Info().Str("phone", user.Phone).Msg("Texted customer a notification")
		return fmt.Sprintf("Texted customer %s a notification.", user.Phone)
	default:
		return fmt.Sprintf("No %s contact available for user ID %d.", method, userID)
	}
}

// ProductInformation runs vector search over the catalog for the prompt
func (t *Tools) ProductInformation(ctx context.Context, args map[string]interface{}) string {
	start := time.Now()
	prompt, _ := args["user_prompt"].(string)
	if prompt == "" {
		return "Product information requires a user_prompt describing the product."
	}

	matches, err := t.store.SearchProducts(ctx, prompt, 2)
	if err != nil {
		t.logger.Error().Err(err).Msg("Product search failed")
		observability.RecordToolExecution("product_information", time.Since(start), false)
		return "An error occurred while searching for products."
	}
	observability.RecordToolExecution("product_information", time.Since(start), true)

	if len(matches) == 0 {
		return "No matching products found."
	}

	out, err := json.Marshal(matches)
	if err != nil {
		return "An error occurred while formatting product results."
	}
	return string(out)
}

func userProductSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"user_id":    map[string]interface{}{"type": "number"},
			"product_id": map[string]interface{}{"type": "number"},
		},
		"required": []interface{}{"user_id", "product_id"},
	}
}

// ProductCapabilities are the tools the product role exposes
func (t *Tools) ProductCapabilities() []policy.Capability {
	return []policy.Capability{
		{
			Name:        "product_information",
			Description: "Provide information about a product based on the user prompt. Takes as input the user prompt as a string.",
			Schema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"user_prompt": map[string]interface{}{"type": "string"},
				},
				"required": []interface{}{"user_prompt"},
			},
			Handler: t.ProductInformation,
		},
	}
}

// SalesCapabilities are the tools the sales role exposes
func (t *Tools) SalesCapabilities() []policy.Capability {
	return []policy.Capability{
		{
			Name:        "order_item",
			Description: "Place an order for a product based on the user ID and product ID.",
			Schema:      userProductSchema(),
			Handler:     t.OrderItem,
		},
		t.notifyCapability(),
	}
}

// RefundsCapabilities are the tools the refunds role exposes
func (t *Tools) RefundsCapabilities() []policy.Capability {
	return []policy.Capability{
		{
			Name:        "refund_item",
			Description: "Initiate a refund based on the user ID and product ID.",
			Schema:      userProductSchema(),
			Handler:     t.RefundItem,
		},
		t.notifyCapability(),
	}
}

func (t *Tools) notifyCapability() policy.Capability {
	return policy.Capability{
		Name:        "notify_customer",
		Description: "Notify a customer by their preferred method of either phone or email.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"user_id": map[string]interface{}{"type": "number"},
				"method":  map[string]interface{}{"type": "string", "enum": []interface{}{"phone", "email"}},
			},
			"required": []interface{}{"user_id", "method"},
		},
		Handler: t.NotifyCustomer,
	}
}
