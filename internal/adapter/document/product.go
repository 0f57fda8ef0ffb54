package document

import (
	"pizzas-pos/internal/docstore"
	"pizzas-pos/internal/models"
)

// DecodeProduct builds a catalog product. Without an explicit category a product
// listing ingredients is a pizza; products are active unless marked otherwise.
func DecodeProduct(doc docstore.Document) models.Product {
	data := doc.Data
	p := models.Product{
		ID:     doc.ID,
		Price:  models.ParsePrice(data["price"]),
		Active: true,
	}
	p.Name, _ = data["name"].(string)
	p.Description, _ = data["description"].(string)
	p.Spicy, _ = data["spicy"].(bool)
	p.Tags = stringList(data["tags"])
	p.Ingredients = stringList(data["ingredients"])

	if active, ok := firstOf(data, "active", "activo").(bool); ok {
		p.Active = active
	}

	if c, ok := firstOf(data, "category", "type").(string); ok {
		if parsed, err := models.ParseCategory(c); err == nil {
			p.Category = parsed
		}
	}
	if p.Category == "" {
		if _, hasIngredients := data["ingredients"]; hasIngredients {
			p.Category = models.CategoryPizza
		} else {
			p.Category = models.CategoryDrink
		}
	}
	return p
}

// EncodeProduct returns the document for a catalog product.
func EncodeProduct(p models.Product) map[string]any {
	data := map[string]any{
		"category":    string(p.Category),
		"name":        p.Name,
		"price":       encodeMoney(p.Price),
		"active":      p.Active,
		"description": p.Description,
		"tags":        toAnyList(p.Tags),
	}
	if p.Category == models.CategoryPizza {
		data["ingredients"] = toAnyList(p.Ingredients)
		data["spicy"] = p.Spicy
	}
	return data
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, e := range list {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func toAnyList(list []string) []any {
	out := make([]any, 0, len(list))
	for _, s := range list {
		out = append(out, s)
	}
	return out
}
