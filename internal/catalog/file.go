package catalog

import (
	"fmt"

	"github.com/spf13/viper"

	"pizzas-pos/internal/models"
)

type fileProduct struct {
	Name        string   `mapstructure:"name"`
	Price       any      `mapstructure:"price"`
	Description string   `mapstructure:"description"`
	Tags        []string `mapstructure:"tags"`
	Ingredients []string `mapstructure:"ingredients"`
	Spicy       bool     `mapstructure:"spicy"`
	Active      *bool    `mapstructure:"active"`
}

type fileCatalog struct {
	Pizzas []fileProduct `mapstructure:"pizzas"`
	Drinks []fileProduct `mapstructure:"drinks"`
}

// LoadFile reads a catalog file with top-level pizzas and drinks lists.
// Any format viper understands is accepted.
func LoadFile(path string) ([]models.Product, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var raw fileCatalog
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode catalog file: %w", err)
	}

	products := make([]models.Product, 0, len(raw.Pizzas)+len(raw.Drinks))
	for i, p := range raw.Pizzas {
		product, err := p.toProduct(models.CategoryPizza)
		if err != nil {
			return nil, fmt.Errorf("pizzas[%d]: %w", i, err)
		}
		products = append(products, product)
	}
	for i, p := range raw.Drinks {
		product, err := p.toProduct(models.CategoryDrink)
		if err != nil {
			return nil, fmt.Errorf("drinks[%d]: %w", i, err)
		}
		products = append(products, product)
	}
	return products, nil
}

func (p fileProduct) toProduct(category models.Category) (models.Product, error) {
	if p.Name == "" {
		return models.Product{}, &models.ValidationError{Field: "name", Message: "product name is required"}
	}
	price := models.ParsePrice(p.Price)
	if !price.IsPositive() {
		return models.Product{}, &models.ValidationError{Field: "price", Message: fmt.Sprintf("price of %q must be positive", p.Name)}
	}

	active := true
	if p.Active != nil {
		active = *p.Active
	}
	return models.Product{
		Category:    category,
		Name:        p.Name,
		Price:       price,
		Description: p.Description,
		Tags:        p.Tags,
		Ingredients: p.Ingredients,
		Spicy:       p.Spicy,
		Active:      active,
	}, nil
}
