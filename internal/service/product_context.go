package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
	"github.com/boddenberg/shop-advisor-go/internal/infra/observability"
	"github.com/boddenberg/shop-advisor-go/internal/port"
)

var tracer = otel.Tracer("service")

const productContextKey = "product_context"

// ProductContextProvider renders the catalog as model context and resolves
// model-mentioned names back to catalog records.
type ProductContextProvider struct {
	store   port.ProductStore
	cache   port.Cache[string]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewProductContextProvider creates the provider.
func NewProductContextProvider(store port.ProductStore, cache port.Cache[string], metrics *observability.Metrics, logger *zap.Logger) *ProductContextProvider {
	return &ProductContextProvider{store: store, cache: cache, metrics: metrics, logger: logger}
}

// FetchProductContext returns the rendered catalog, cached until the next
// product write or the cache TTL.
func (p *ProductContextProvider) FetchProductContext(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "ProductContextProvider.FetchProductContext")
	defer span.End()

	if cached, ok := p.cache.Get(ctx, productContextKey); ok {
		p.metrics.IncrCacheHit(productContextKey)
		return cached, nil
	}
	p.metrics.IncrCacheMiss(productContextKey)

	products, err := p.store.ListProducts(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch product context: %w", err)
	}
	span.SetAttributes(attribute.Int("products.count", len(products)))

	rendered := RenderProductContext(products)
	p.cache.Set(ctx, productContextKey, rendered)
	return rendered, nil
}

// Invalidate drops the cached context.
func (p *ProductContextProvider) Invalidate(ctx context.Context) {
	p.cache.Delete(ctx, productContextKey)
}

// ProductsByNames resolves names with a case-insensitive substring match.
// Blank names are ignored; lookup failures yield no products.
func (p *ProductContextProvider) ProductsByNames(ctx context.Context, names []string) []domain.Product {
	ctx, span := tracer.Start(ctx, "ProductContextProvider.ProductsByNames")
	defer span.End()

	var cleaned []string
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			cleaned = append(cleaned, n)
		}
	}
	if len(cleaned) == 0 {
		return []domain.Product{}
	}

	products, err := p.store.FindProductsByNames(ctx, cleaned)
	if err != nil {
		p.logger.Error("failed to resolve product names", zap.Strings("names", cleaned), zap.Error(err))
		return []domain.Product{}
	}
	return products
}

// RenderProductContext builds the catalog block sent to the model.
func RenderProductContext(products []domain.Product) string {
	var b strings.Builder
	b.WriteString("Here is a list of available products:\n")

	for i := range products {
		p := &products[i]
		tags := "general use"
		if len(p.Tags) > 0 {
			tags = strings.Join(p.Tags, ", ")
		}
		category := p.Category
		if category == "" {
			category = "general"
		}
		fmt.Fprintf(&b, "- %s: %s. Price: $%s. Category: %s. Tags: %s", p.Name, p.Description, formatNumber(p.Price), category, tags)

		if p.IsComputer() {
			writeComputerDetails(&b, p)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nWhen you recommend products, use exactly the names as they appear in this list.\n")
	b.WriteString("Always answer in this format:\nMESSAGE: <your answer to the customer>\nPRODUCTS: <comma-separated product names you recommend, or none>")
	return b.String()
}

func writeComputerDetails(b *strings.Builder, p *domain.Product) {
	add := func(label, value string) {
		if value != "" {
			fmt.Fprintf(b, ". %s: %s", label, value)
		}
	}
	add("Brand", p.Brand)
	add("CPU", p.Specs.Processor)
	add("RAM", p.Specs.RAM)
	add("Storage", p.Specs.Storage)
	add("Screen", p.Specs.ScreenSize)
	add("Battery", p.Specs.BatteryLife)
	add("Weight", p.Specs.Weight)
	add("OS", p.Specs.OS)
	add("Keyboard", p.Specs.Keyboard)
	add("Warranty", p.Warranty)
	if p.Rating > 0 {
		fmt.Fprintf(b, ". Rating: %s/5 (%d reviews)", formatNumber(p.Rating), p.ReviewsCount)
	}
	add("Released", p.ReleaseDate)
	if !p.Available {
		b.WriteString(". Status: Out of Stock")
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
