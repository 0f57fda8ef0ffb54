package document

import (
	"testing"

	"pizzas-pos/internal/docstore"
	"pizzas-pos/internal/models"
)

func TestDecodeProduct(t *testing.T) {
	tests := []struct {
		name         string
		data         map[string]any
		wantCategory models.Category
		wantActive   bool
		wantPrice    string
	}{
		{
			name:         "explicit category",
			data:         map[string]any{"name": "Agua", "category": "drink", "price": 1.0},
			wantCategory: models.CategoryDrink,
			wantActive:   true,
			wantPrice:    "1",
		},
		{
			name:         "legacy type field",
			data:         map[string]any{"name": "DIAVOLA", "type": "pizza", "price": "13"},
			wantCategory: models.CategoryPizza,
			wantActive:   true,
			wantPrice:    "13",
		},
		{
			name:         "inferred from ingredients",
			data:         map[string]any{"name": "SEMPLICE", "price": 13, "ingredients": []any{"Tomate"}},
			wantCategory: models.CategoryPizza,
			wantActive:   true,
			wantPrice:    "13",
		},
		{
			name:         "inactive product",
			data:         map[string]any{"name": "Sprite", "price": 1.5, "activo": false},
			wantCategory: models.CategoryDrink,
			wantActive:   false,
			wantPrice:    "1.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeProduct(docstore.Document{ID: "x", Data: tt.data})
			if got.Category != tt.wantCategory {
				t.Errorf("Category = %s, want %s", got.Category, tt.wantCategory)
			}
			if got.Active != tt.wantActive {
				t.Errorf("Active = %v, want %v", got.Active, tt.wantActive)
			}
			if !got.Price.Equal(money(tt.wantPrice)) {
				t.Errorf("Price = %s, want %s", got.Price, tt.wantPrice)
			}
		})
	}
}

func TestEncodeProduct(t *testing.T) {
	pizza := models.Product{Category: models.CategoryPizza, Name: "MARGHERITA", Price: money("12"), Ingredients: []string{"Tomate"}, Active: true}
	drink := models.Product{Category: models.CategoryDrink, Name: "Agua", Price: money("1"), Active: true}

	if _, ok := EncodeProduct(pizza)["ingredients"]; !ok {
		t.Error("pizza documents carry ingredients")
	}
	if _, ok := EncodeProduct(drink)["ingredients"]; ok {
		t.Error("drink documents carry no ingredients")
	}

	back := DecodeProduct(docstore.Document{ID: "p1", Data: EncodeProduct(pizza)})
	if back.Name != pizza.Name || back.Category != pizza.Category || !back.Price.Equal(pizza.Price) {
		t.Errorf("DecodeProduct(EncodeProduct()) = %+v", back)
	}
}
