// Package catalog reads the product catalog from the document store.
package catalog

import (
	"context"
	"fmt"
	"sort"

	"pizzas-pos/internal/adapter/document"
	"pizzas-pos/internal/docstore"
	"pizzas-pos/internal/logger"
	"pizzas-pos/internal/models"
)

type Catalog struct {
	store docstore.Store
	log   *logger.Logger
}

func New(store docstore.Store, log *logger.Logger) *Catalog {
	if log == nil {
		log = logger.Nop()
	}
	return &Catalog{store: store, log: log}
}

// CollectionFor returns the collection holding products of a category
func CollectionFor(category models.Category) (string, error) {
	switch category {
	case models.CategoryPizza:
		return docstore.CollectionPizzas, nil
	case models.CategoryDrink:
		return docstore.CollectionDrinks, nil
	default:
		return "", fmt.Errorf("invalid category %q", category)
	}
}

// ListActiveProducts returns the active products of a category sorted by name.
func (c *Catalog) ListActiveProducts(ctx context.Context, category models.Category) ([]models.Product, error) {
	collection, err := CollectionFor(category)
	if err != nil {
		return nil, err
	}

	docs, err := c.store.ListDocuments(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}

	products := make([]models.Product, 0, len(docs))
	for _, doc := range docs {
		p := document.DecodeProduct(doc)
		if !p.Active {
			continue
		}
		// the collection decides the category; stray documents are coerced
		p.Category = category
		products = append(products, p)
	}
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].Name < products[j].Name
	})
	return products, nil
}

// SeedResult counts what Seed wrote
type SeedResult struct {
	Added   int
	Updated int
}

// Seed writes products into their collections. A product whose name already
// exists in the collection is updated in place, so seeding twice is harmless.
func (c *Catalog) Seed(ctx context.Context, products []models.Product) (SeedResult, error) {
	var result SeedResult
	existing := make(map[string]map[string]string)

	for _, p := range products {
		collection, err := CollectionFor(p.Category)
		if err != nil {
			return result, fmt.Errorf("product %q: %w", p.Name, err)
		}

		byName, ok := existing[collection]
		if !ok {
			byName, err = c.namesIn(ctx, collection)
			if err != nil {
				return result, err
			}
			existing[collection] = byName
		}

		data := document.EncodeProduct(p)
		if id, found := byName[p.Name]; found {
			if err := c.store.UpdateDocument(ctx, collection, id, data); err != nil {
				return result, fmt.Errorf("failed to update product %q: %w", p.Name, err)
			}
			result.Updated++
			continue
		}

		id, err := c.store.AddDocument(ctx, collection, data)
		if err != nil {
			return result, fmt.Errorf("failed to add product %q: %w", p.Name, err)
		}
		byName[p.Name] = id
		result.Added++
	}

	c.log.Info("catalog_seeded", "Catalog products written", map[string]any{
		"added":   result.Added,
		"updated": result.Updated,
	})
	return result, nil
}

func (c *Catalog) namesIn(ctx context.Context, collection string) (map[string]string, error) {
	docs, err := c.store.ListDocuments(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	byName := make(map[string]string, len(docs))
	for _, doc := range docs {
		if name, ok := doc.Data["name"].(string); ok {
			byName[name] = doc.ID
		}
	}
	return byName, nil
}
