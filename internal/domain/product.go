package domain

import (
	"strings"
	"time"
)

// ============================================================
// Product catalog
// ============================================================

// ProductSpecs holds the technical sheet used for laptops and computers.
type ProductSpecs struct {
	Processor   string `json:"processor,omitempty"`
	RAM         string `json:"ram,omitempty"`
	Storage     string `json:"storage,omitempty"`
	ScreenSize  string `json:"screen_size,omitempty"`
	BatteryLife string `json:"battery_life,omitempty"`
	Weight      string `json:"weight,omitempty"`
	OS          string `json:"os,omitempty"`
	Keyboard    string `json:"keyboard,omitempty"`
}

// IsZero reports whether no spec field is set.
func (s ProductSpecs) IsZero() bool {
	return s == ProductSpecs{}
}

// Product is a catalog record.
type Product struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Price        float64      `json:"price"`
	Tags         []string     `json:"tags"`
	Category     string       `json:"category"`
	ImageURL     string       `json:"image_url,omitempty"`
	Brand        string       `json:"brand,omitempty"`
	Warranty     string       `json:"warranty,omitempty"`
	Rating       float64      `json:"rating"`
	ReviewsCount int          `json:"reviews_count"`
	Available    bool         `json:"available"`
	ReleaseDate  string       `json:"release_date,omitempty"`
	Specs        ProductSpecs `json:"specs"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    *time.Time   `json:"updated_at,omitempty"`
}

// IsComputer reports whether the product gets the extended technical description.
func (p *Product) IsComputer() bool {
	name := strings.ToLower(p.Name)
	return strings.Contains(name, "laptop") || strings.Contains(name, "computer") || strings.Contains(p.Category, "Laptops")
}

// ProductRequest is the payload for creating or updating a product.
// Pointer fields allow partial updates.
type ProductRequest struct {
	Name         *string       `json:"name"`
	Description  *string       `json:"description"`
	Price        *float64      `json:"price"`
	Tags         []string      `json:"tags"`
	Category     *string       `json:"category"`
	ImageURL     *string       `json:"image_url"`
	Brand        *string       `json:"brand"`
	Warranty     *string       `json:"warranty"`
	Rating       *float64      `json:"rating"`
	ReviewsCount *int          `json:"reviews_count"`
	Available    *bool         `json:"available"`
	ReleaseDate  *string       `json:"release_date"`
	Specs        *ProductSpecs `json:"specs"`
}

// ValidateCreate checks the fields required to create a product.
func (r *ProductRequest) ValidateCreate() error {
	if r.Name == nil || strings.TrimSpace(*r.Name) == "" {
		return &ErrValidation{Field: "name", Message: "name is required"}
	}
	return r.validateValues()
}

// ValidateUpdate checks the values present in a partial update.
func (r *ProductRequest) ValidateUpdate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return &ErrValidation{Field: "name", Message: "name cannot be empty"}
	}
	return r.validateValues()
}

func (r *ProductRequest) validateValues() error {
	if r.Price != nil && *r.Price < 0 {
		return &ErrValidation{Field: "price", Message: "price must be >= 0"}
	}
	if r.Rating != nil && (*r.Rating < 0 || *r.Rating > 5) {
		return &ErrValidation{Field: "rating", Message: "rating must be between 0 and 5"}
	}
	return nil
}

// Apply copies the set fields of r onto p.
func (r *ProductRequest) Apply(p *Product) {
	if r.Name != nil {
		p.Name = strings.TrimSpace(*r.Name)
	}
	if r.Description != nil {
		p.Description = *r.Description
	}
	if r.Price != nil {
		p.Price = *r.Price
	}
	if r.Tags != nil {
		p.Tags = r.Tags
	}
	if r.Category != nil {
		p.Category = *r.Category
	}
	if r.ImageURL != nil {
		p.ImageURL = *r.ImageURL
	}
	if r.Brand != nil {
		p.Brand = *r.Brand
	}
	if r.Warranty != nil {
		p.Warranty = *r.Warranty
	}
	if r.Rating != nil {
		p.Rating = *r.Rating
	}
	if r.ReviewsCount != nil {
		p.ReviewsCount = *r.ReviewsCount
	}
	if r.Available != nil {
		p.Available = *r.Available
	}
	if r.ReleaseDate != nil {
		p.ReleaseDate = *r.ReleaseDate
	}
	if r.Specs != nil {
		p.Specs = *r.Specs
	}
}

// NewProductFromRequest builds a product with catalog defaults (available=true).
func NewProductFromRequest(r *ProductRequest) *Product {
	p := &Product{Available: true, Category: "general", Tags: []string{}}
	r.Apply(p)
	return p
}

// MatchProductsByNames returns the catalog entries whose name contains one of
// names (case-insensitive), in the order of names and without duplicates.
// Blank names are ignored.
func MatchProductsByNames(catalog []Product, names []string) []Product {
	out := []Product{}
	seen := make(map[string]bool, len(catalog))
	for _, name := range names {
		needle := strings.ToLower(strings.TrimSpace(name))
		if needle == "" {
			continue
		}
		for _, p := range catalog {
			if !seen[p.ID] && strings.Contains(strings.ToLower(p.Name), needle) {
				seen[p.ID] = true
				out = append(out, p)
			}
		}
	}
	return out
}
