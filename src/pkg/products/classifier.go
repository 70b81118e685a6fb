package products

import (
	"context"
	"errors"
	"fmt"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"receipt-impact/src/pkg/parser"
)

const (
	FallbackCategory  = "Sin categoría"
	FallbackCo2Factor = 5.0
)

var ErrMatcherUnavailable = errors.New("product matcher unavailable")

// Match is the catalogue entry most similar to a product name.
type Match struct {
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	Co2Factor       float64 `json:"co2_factor"` // kg CO2e per unit
	IsLocal         bool    `json:"is_local"`
	HasEcoPackaging bool    `json:"has_eco_packaging"`
	Score           float64 `json:"score"`
}

/*
Matcher finds the catalogue entry closest to name inside collection.

A nil match with a nil error means "no match". Errors are reserved for an
unreachable matcher. With validateCo2 set, entries without a usable CO2
factor are not returned.
*/
type Matcher interface {
	FindSimilar(ctx context.Context, name, collection string, validateCo2 bool) (*Match, *xerr.Error)
}

type ClassifiedProduct struct {
	parser.ParsedProduct
	Category        string  `json:"category"`
	Co2Factor       float64 `json:"co2_factor"`
	IsLocal         bool    `json:"is_local"`
	HasEcoPackaging bool    `json:"has_eco_packaging"`
	Matched         bool    `json:"matched"`
	MatchedName     string  `json:"matched_name,omitempty"`
	MatchScore      float64 `json:"match_score,omitempty"`
}

type Classifier struct {
	matcher Matcher
}

func NewClassifier(matcher Matcher) *Classifier {
	return &Classifier{matcher: matcher}
}

/*
Classify attaches category and environmental attributes to a parsed product.

Price and quantity always come from the parser. A miss yields the fallback
category with a CO2 factor of 5.0; only an unreachable matcher is an error.
*/
func (c *Classifier) Classify(ctx context.Context, product parser.ParsedProduct, collection string) (classified ClassifiedProduct, e *xerr.Error) {
	classified = ClassifiedProduct{ParsedProduct: product}

	match, e := c.matcher.FindSimilar(ctx, product.Name, collection, true)
	if e != nil {
		return classified, e
	}

	if match == nil {
		tl.Log(
			tl.Warning, palette.Yellow, "No catalogue match for '%s' in '%s', using '%s'",
			product.Name, collection, FallbackCategory,
		)
		classified.Category = FallbackCategory
		classified.Co2Factor = FallbackCo2Factor
		return classified, nil
	}

	classified.Category = match.Category
	classified.Co2Factor = max(match.Co2Factor, 0)
	classified.IsLocal = match.IsLocal
	classified.HasEcoPackaging = match.HasEcoPackaging
	classified.Matched = true
	classified.MatchedName = match.Name
	classified.MatchScore = match.Score

	tl.Log(
		tl.Verbose, palette.Cyan, "Classified '%s' as '%s' (matched '%s', score '%s', co2 '%s')",
		product.Name, classified.Category, match.Name,
		fmt.Sprintf("%.3f", match.Score), fmt.Sprintf("%.2f", classified.Co2Factor),
	)
	return classified, nil
}

// ClassifyAll classifies products in order and stops at the first matcher failure.
func (c *Classifier) ClassifyAll(ctx context.Context, products []parser.ParsedProduct, collection string) (classified []ClassifiedProduct, e *xerr.Error) {
	classified = make([]ClassifiedProduct, 0, len(products))
	for _, product := range products {
		if err := ctx.Err(); err != nil {
			return nil, xerr.NewError(err, "classification cancelled", product.Name)
		}
		item, e := c.Classify(ctx, product, collection)
		if e != nil {
			return nil, e
		}
		classified = append(classified, item)
	}
	return classified, nil
}
