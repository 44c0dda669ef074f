// Package narrative renders the free-text reasoning attached to an
// analysis. Renderers are pluggable behind a single interface; they
// shape prose only and can never affect a risk score or recommended
// action.
package narrative

import (
	"context"
	"fmt"
	"strings"

	"github.com/banking/fincrime-service/internal/domain"
)

// RenderInput carries everything a renderer may describe. All fields
// are computed before rendering; a renderer must not derive new risk
// conclusions from them.
type RenderInput struct {
	Transaction *domain.Transaction
	RiskScore   int
	Band        domain.ScoreBand
	Action      domain.RecommendedAction
	Factors     []string

	// AmountElevated is set when the structural amount band reached
	// the high-risk range for the transaction's type.
	AmountElevated bool
	// CountryTier is the catalog risk tier for the transaction's
	// country.
	CountryTier domain.RiskTier
}

// Renderer produces the reasoning text for one analysis
type Renderer interface {
	// Render returns the reasoning paragraph for the input.
	Render(ctx context.Context, input RenderInput) (string, error)
	// Name identifies the renderer in status reporting.
	Name() string
}

// TemplateRenderer is the default renderer: a fixed sentence template
// filled from the triggered factors, fully deterministic.
type TemplateRenderer struct{}

// NewTemplateRenderer creates the deterministic template renderer
func NewTemplateRenderer() *TemplateRenderer {
	return &TemplateRenderer{}
}

// Name implements Renderer
func (r *TemplateRenderer) Name() string {
	return "deterministic-template"
}

// Render assembles the reasoning sentences in fixed order: amount,
// jurisdiction, behavior, customer profile.
func (r *TemplateRenderer) Render(_ context.Context, input RenderInput) (string, error) {
	tx := input.Transaction
	amount := tx.AmountString()

	parts := make([]string, 0, 5)

	if input.AmountElevated {
		parts = append(parts, fmt.Sprintf(
			"This %s of %s is significantly larger than typical for this transaction type.", tx.Type, amount))
	} else {
		parts = append(parts, fmt.Sprintf(
			"The %s amount of %s is within expected parameters.", tx.Type, amount))
	}

	switch input.CountryTier {
	case domain.TierHigh:
		parts = append(parts, fmt.Sprintf(
			"The transaction involves %s, which is classified as a high-risk jurisdiction with elevated financial crime concerns.", tx.Country))
	case domain.TierMedium:
		parts = append(parts, fmt.Sprintf(
			"The transaction involves %s, which has moderate financial crime risk factors.", tx.Country))
	default:
		parts = append(parts, fmt.Sprintf(
			"The transaction occurs in %s, which is a lower-risk jurisdiction.", tx.Country))
	}

	switch input.Band {
	case domain.BandVeryHigh:
		parts = append(parts,
			"The transaction exhibits unusual characteristics that deviate from the customer's established patterns.",
			"Multiple red flags indicate potential layering or structuring activity that warrants immediate investigation.")
	case domain.BandHigh:
		parts = append(parts,
			"The transaction exhibits unusual characteristics that deviate from the customer's established patterns.")
	default:
		parts = append(parts,
			"The transaction is consistent with the customer's historical activity patterns.")
	}

	if tx.Profile() == domain.ProfileHigh {
		parts = append(parts,
			"The customer's existing high-risk profile elevates the overall transaction risk.")
	}

	return strings.Join(parts, " "), nil
}
