// Package document converts between store documents and the order model.
// Field fallbacks and type coercion live here and nowhere else: decoding never
// fails, it reports the fields it had to repair instead.
package document

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pizzas-pos/internal/docstore"
	"pizzas-pos/internal/models"
)

// Order document fields
const (
	FieldCode          = "code"
	FieldPizzas        = "pizzas"
	FieldDrinks        = "drinks"
	FieldTotalUnits    = "totalUnits"
	FieldTotalAmount   = "totalAmount"
	FieldPaymentMethod = "paymentMethod"
	FieldStatus        = "status"
	FieldCreatedAt     = "createdAt"
	FieldExpiresAt     = "expiresAt"
	FieldUpdatedAt     = "updatedAt"
)

// legacy field names written by the first version of the bar terminal
const (
	legacyCode         = "orderId"
	legacyStatus       = "estado"
	legacyTotalUnits   = "totalSlices"
	legacyCompleted    = "finalizado"
	legacyPricePerUnit = "pricePerUnit"
)

// EncodeOrder returns the full document for a new order.
func EncodeOrder(o models.Order) map[string]any {
	data := map[string]any{
		FieldCode:          o.Code,
		FieldPizzas:        EncodeItems(o.Pizzas),
		FieldDrinks:        EncodeItems(o.Drinks),
		FieldTotalUnits:    o.TotalUnits,
		FieldTotalAmount:   encodeMoney(o.TotalAmount),
		FieldPaymentMethod: o.PaymentMethod,
		FieldStatus:        string(o.Status),
		FieldCreatedAt:     encodeTime(o.CreatedAt),
		FieldExpiresAt:     encodeTime(o.ExpiresAt),
	}
	if o.UpdatedAt != nil {
		data[FieldUpdatedAt] = encodeTime(*o.UpdatedAt)
	}
	return data
}

// ItemsPatch returns the partial update for an item change: both item arrays and
// the derived totals, plus the status when includeStatus is set.
func ItemsPatch(o models.Order, includeStatus bool, at time.Time) map[string]any {
	patch := map[string]any{
		FieldPizzas:      EncodeItems(o.Pizzas),
		FieldDrinks:      EncodeItems(o.Drinks),
		FieldTotalUnits:  o.TotalUnits,
		FieldTotalAmount: encodeMoney(o.TotalAmount),
		FieldUpdatedAt:   encodeTime(at),
	}
	if includeStatus {
		patch[FieldStatus] = string(o.Status)
	}
	return patch
}

// StatusPatch returns the partial update for a status change.
func StatusPatch(status models.Status, at time.Time) map[string]any {
	return map[string]any{
		FieldStatus:    string(status),
		FieldUpdatedAt: encodeTime(at),
	}
}

func EncodeItems(items []models.OrderItem) []any {
	encoded := make([]any, 0, len(items))
	for _, item := range items {
		encoded = append(encoded, map[string]any{
			"productId": item.ProductID,
			"name":      item.Name,
			"category":  string(item.Category),
			"quantity":  item.Quantity,
			"unitPrice": encodeMoney(item.UnitPrice),
			"completed": item.Completed,
		})
	}
	return encoded
}

// DecodeOrder builds an order from a stored document. Missing numbers become 0,
// missing arrays become empty and unknown statuses become Preparing. The
// returned issues name every field that had to be repaired.
func DecodeOrder(doc docstore.Document) (models.Order, []string) {
	d := decoder{data: doc.Data}

	o := models.Order{
		ID:            doc.ID,
		Code:          d.str(FieldCode, legacyCode),
		Pizzas:        d.items(FieldPizzas, models.CategoryPizza),
		Drinks:        d.items(FieldDrinks, models.CategoryDrink),
		PaymentMethod: d.optionalStr(FieldPaymentMethod),
		Status:        d.status(),
		CreatedAt:     d.requiredTime(FieldCreatedAt),
	}

	o.ExpiresAt = d.optionalTime(FieldExpiresAt)
	if o.ExpiresAt.IsZero() && !o.CreatedAt.IsZero() {
		o.ExpiresAt = o.CreatedAt.Add(models.DefaultOrderTTL)
	}
	if updated := d.optionalTime(FieldUpdatedAt); !updated.IsZero() {
		o.UpdatedAt = &updated
	}

	// stored totals are advisory; the model derives them from the items
	o.Recompute()
	if stored, ok := d.lookup(FieldTotalAmount); ok && !models.ParsePrice(stored).Equal(o.TotalAmount) {
		d.issue(FieldTotalAmount)
	}
	if stored, ok := d.lookup(FieldTotalUnits, legacyTotalUnits); ok && models.ParseQuantity(stored) != o.TotalUnits {
		d.issue(FieldTotalUnits)
	}

	return o, d.issues
}

type decoder struct {
	data   map[string]any
	issues []string
}

func (d *decoder) issue(field string) {
	d.issues = append(d.issues, field)
}

func (d *decoder) lookup(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := d.data[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (d *decoder) str(keys ...string) string {
	v, ok := d.lookup(keys...)
	if !ok {
		d.issue(keys[0])
		return ""
	}
	s, ok := v.(string)
	if !ok {
		d.issue(keys[0])
		return fmt.Sprint(v)
	}
	return s
}

func (d *decoder) optionalStr(key string) string {
	s, _ := d.data[key].(string)
	return s
}

func (d *decoder) status() models.Status {
	// a numeric "status" is a legacy sort key, not the lifecycle status
	if s, ok := d.data[FieldStatus].(string); ok {
		if status, known := parseStatus(s); known {
			return status
		}
	}
	if s, ok := d.data[legacyStatus].(string); ok {
		if status, known := parseStatus(s); known {
			return status
		}
	}
	d.issue(FieldStatus)
	return models.StatusPreparing
}

func parseStatus(s string) (models.Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "preparing", "preparando":
		return models.StatusPreparing, true
	case "delivered", "entregado":
		return models.StatusDelivered, true
	case "finalized", "finalizado", "cancelled", "cancelado":
		return models.StatusFinalized, true
	default:
		return "", false
	}
}

func (d *decoder) items(key string, category models.Category) []models.OrderItem {
	raw, ok := d.data[key]
	if !ok || raw == nil {
		d.issue(key)
		return []models.OrderItem{}
	}

	var entries []map[string]any
	switch list := raw.(type) {
	case []any:
		for _, e := range list {
			m, ok := e.(map[string]any)
			if !ok {
				d.issue(key)
				continue
			}
			entries = append(entries, m)
		}
	case []map[string]any:
		entries = list
	default:
		d.issue(key)
		return []models.OrderItem{}
	}

	items := make([]models.OrderItem, 0, len(entries))
	for i, e := range entries {
		items = append(items, d.item(fmt.Sprintf("%s[%d]", key, i), e, category))
	}
	return items
}

func (d *decoder) item(path string, e map[string]any, category models.Category) models.OrderItem {
	item := models.OrderItem{Category: category}

	switch id := firstOf(e, "productId", "id").(type) {
	case string:
		item.ProductID = id
	case nil:
		d.issue(path + ".productId")
	default:
		item.ProductID = fmt.Sprint(id)
	}

	item.Name, _ = e["name"].(string)

	if c, ok := firstOf(e, "category", "type").(string); ok {
		if parsed, err := models.ParseCategory(c); err == nil {
			item.Category = parsed
		}
	}

	item.Quantity = models.ParseQuantity(e["quantity"])
	if item.Quantity == 0 {
		d.issue(path + ".quantity")
	}

	price := firstOf(e, "unitPrice", legacyPricePerUnit, "price")
	if price == nil {
		d.issue(path + ".unitPrice")
	}
	item.UnitPrice = models.ParsePrice(price)

	switch c := firstOf(e, "completed", legacyCompleted).(type) {
	case bool:
		item.Completed = c
	case string:
		item.Completed = strings.EqualFold(c, "true")
	}

	return item
}

func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func (d *decoder) requiredTime(key string) time.Time {
	t := d.optionalTime(key)
	if t.IsZero() {
		d.issue(key)
	}
	return t
}

func (d *decoder) optionalTime(key string) time.Time {
	switch v := d.data[key].(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}
		}
		return t
	case float64:
		return time.UnixMilli(int64(v))
	case int64:
		return time.UnixMilli(v)
	case json.Number:
		ms, err := v.Int64()
		if err != nil {
			return time.Time{}
		}
		return time.UnixMilli(ms)
	default:
		return time.Time{}
	}
}

func encodeMoney(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
