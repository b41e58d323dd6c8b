/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package insight

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/suparena/mfgstore/models"
)

// ErrDisabled is returned by a Service constructed without an API key. The
// rest of the application works normally; only insight generation is off.
var ErrDisabled = errors.New("insight service is disabled (no API key)")

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// Service produces natural-language production summaries from store
// snapshots.
type Service struct {
	client *genai.Client
	model  string
	log    zerolog.Logger
}

// New creates an insight service. An empty apiKey yields a disabled service
// whose Summary calls return ErrDisabled; that is not a construction error.
func New(ctx context.Context, apiKey, model string, log zerolog.Logger) (*Service, error) {
	if model == "" {
		model = DefaultModel
	}
	s := &Service{model: model, log: log}
	if apiKey == "" {
		log.Info().Msg("insight service disabled, no API key configured")
		return s, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	s.client = client
	return s, nil
}

// Enabled reports whether the service can generate summaries.
func (s *Service) Enabled() bool {
	return s != nil && s.client != nil
}

// Stats aggregates the numbers the summary prompt is built from.
type Stats struct {
	Products         int
	ActiveProducts   int
	LowStockProducts []string
	Materials        int
	LowStockMaterial []string
	Batches          int
	BatchesByStatus  map[string]int
	UnitsProduced    int64
	UnitsWasted      int64
}

// BuildStats computes summary statistics from entity snapshots.
func BuildStats(products []models.Product, materials []models.RawMaterial, batches []models.ProductionBatch) Stats {
	stats := Stats{
		Products:        len(products),
		Materials:       len(materials),
		Batches:         len(batches),
		BatchesByStatus: make(map[string]int),
	}

	for _, p := range products {
		if p.IsActive != nil && *p.IsActive {
			stats.ActiveProducts++
		}
		if p.CurrentStock != nil && *p.CurrentStock < p.MinimumStock && p.SkuID != nil {
			stats.LowStockProducts = append(stats.LowStockProducts, *p.SkuID)
		}
	}

	for _, m := range materials {
		if m.CurrentStock != nil && *m.CurrentStock < m.MinimumStock && m.RawMaterialID != nil {
			stats.LowStockMaterial = append(stats.LowStockMaterial, *m.RawMaterialID)
		}
	}

	for _, b := range batches {
		if b.Status != nil {
			stats.BatchesByStatus[*b.Status]++
		}
		stats.UnitsProduced += b.QuantityProduced
		stats.UnitsWasted += b.QuantityWasted
	}

	return stats
}

// Summary asks the model for a short operational briefing built from stats.
func (s *Service) Summary(ctx context.Context, stats Stats) (string, error) {
	if !s.Enabled() {
		return "", ErrDisabled
	}

	prompt := buildPrompt(stats)
	s.log.Debug().Str("model", s.model).Msg("requesting insight summary")

	resp, err := s.client.Models.GenerateContent(ctx, s.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("insight generation failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("insight generation returned no text")
	}
	return text, nil
}

// buildPrompt renders the statistics into the instruction sent to the model.
func buildPrompt(stats Stats) string {
	var b strings.Builder
	b.WriteString("You are an operations analyst for a manufacturing plant. ")
	b.WriteString("Write a concise briefing (max 5 sentences) from these figures. ")
	b.WriteString("Call out stock risks and unusual waste.\n\n")

	fmt.Fprintf(&b, "Products: %d (%d active)\n", stats.Products, stats.ActiveProducts)
	if len(stats.LowStockProducts) > 0 {
		fmt.Fprintf(&b, "Products below reorder threshold: %s\n", strings.Join(stats.LowStockProducts, ", "))
	}
	fmt.Fprintf(&b, "Raw materials tracked: %d\n", stats.Materials)
	if len(stats.LowStockMaterial) > 0 {
		fmt.Fprintf(&b, "Materials below reorder threshold: %s\n", strings.Join(stats.LowStockMaterial, ", "))
	}
	fmt.Fprintf(&b, "Production batches: %d\n", stats.Batches)
	for status, n := range stats.BatchesByStatus {
		fmt.Fprintf(&b, "  %s: %d\n", status, n)
	}
	fmt.Fprintf(&b, "Units produced: %d, units wasted: %d\n", stats.UnitsProduced, stats.UnitsWasted)
	return b.String()
}
