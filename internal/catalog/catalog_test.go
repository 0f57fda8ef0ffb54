package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"pizzas-pos/internal/docstore"
	"pizzas-pos/internal/models"
)

func TestListActiveProducts(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	mustAdd(t, store, docstore.CollectionPizzas, map[string]any{"name": "SEMPLICE", "price": 13, "ingredients": []any{"Tomate"}})
	mustAdd(t, store, docstore.CollectionPizzas, map[string]any{"name": "DIAVOLA", "price": "13.00", "spicy": true})
	mustAdd(t, store, docstore.CollectionPizzas, map[string]any{"name": "VIEJA", "price": 10, "activo": false})
	mustAdd(t, store, docstore.CollectionDrinks, map[string]any{"name": "Agua", "price": 1})

	c := New(store, nil)

	tests := []struct {
		name      string
		category  models.Category
		wantNames []string
		wantErr   bool
	}{
		{name: "pizzas", category: models.CategoryPizza, wantNames: []string{"DIAVOLA", "SEMPLICE"}},
		{name: "drinks", category: models.CategoryDrink, wantNames: []string{"Agua"}},
		{name: "invalid category", category: models.Category("dessert"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.ListActiveProducts(ctx, tt.category)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ListActiveProducts() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.wantNames) {
				t.Fatalf("got %d products, want %d", len(got), len(tt.wantNames))
			}
			for i, p := range got {
				if p.Name != tt.wantNames[i] {
					t.Errorf("product[%d] = %s, want %s", i, p.Name, tt.wantNames[i])
				}
				if p.Category != tt.category {
					t.Errorf("product[%d] category = %s", i, p.Category)
				}
			}
		})
	}
}

func TestListActiveProducts_StoreError(t *testing.T) {
	c := New(failingStore{docstore.NewMemory()}, nil)
	if _, err := c.ListActiveProducts(context.Background(), models.CategoryPizza); !errors.Is(err, errOffline) {
		t.Errorf("error = %v, want errOffline", err)
	}
}

func TestSeed_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	c := New(store, nil)

	products := []models.Product{
		{Category: models.CategoryPizza, Name: "MARGHERITA", Price: decimal.NewFromInt(12), Active: true},
		{Category: models.CategoryDrink, Name: "Agua", Price: decimal.NewFromInt(1), Active: true},
	}

	first, err := c.Seed(ctx, products)
	if err != nil {
		t.Fatal(err)
	}
	if first.Added != 2 || first.Updated != 0 {
		t.Errorf("first seed = %+v", first)
	}

	products[0].Price = decimal.RequireFromString("12.50")
	second, err := c.Seed(ctx, products)
	if err != nil {
		t.Fatal(err)
	}
	if second.Added != 0 || second.Updated != 2 {
		t.Errorf("second seed = %+v", second)
	}

	pizzas, err := c.ListActiveProducts(ctx, models.CategoryPizza)
	if err != nil {
		t.Fatal(err)
	}
	if len(pizzas) != 1 || !pizzas[0].Price.Equal(decimal.RequireFromString("12.50")) {
		t.Errorf("pizzas after reseed = %+v", pizzas)
	}
}

func TestSeed_InvalidCategory(t *testing.T) {
	c := New(docstore.NewMemory(), nil)
	_, err := c.Seed(context.Background(), []models.Product{{Name: "X", Category: "dessert"}})
	if err == nil {
		t.Fatal("expected an error for an unknown category")
	}
}

func TestLoadFile(t *testing.T) {
	products, err := LoadFile("../../catalog.yaml")
	if err != nil {
		t.Fatal(err)
	}

	var pizzas, drinks int
	for _, p := range products {
		switch p.Category {
		case models.CategoryPizza:
			pizzas++
		case models.CategoryDrink:
			drinks++
		}
		if !p.Active || !p.Price.IsPositive() {
			t.Errorf("product %+v", p)
		}
	}
	if pizzas != 3 || drinks != 3 {
		t.Errorf("pizzas = %d, drinks = %d", pizzas, drinks)
	}
	if products[0].Name != "MARGHERITA" || !products[0].Price.Equal(decimal.NewFromInt(12)) {
		t.Errorf("first product = %+v", products[0])
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "missing name", content: "pizzas:\n  - price: 10\n"},
		{name: "zero price", content: "drinks:\n  - name: Agua\n    price: 0\n"},
		{name: "unparseable price", content: "drinks:\n  - name: Agua\n    price: free\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "catalog.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			_, err := LoadFile(path)
			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("LoadFile() error = %v, want ValidationError", err)
			}
		})
	}
}

var errOffline = errors.New("offline")

type failingStore struct {
	docstore.Store
}

func (failingStore) ListDocuments(context.Context, string) ([]docstore.Document, error) {
	return nil, errOffline
}

func mustAdd(t *testing.T, store docstore.Store, collection string, data map[string]any) {
	t.Helper()
	if _, err := store.AddDocument(context.Background(), collection, data); err != nil {
		t.Fatal(err)
	}
}
