package impact

import (
	"errors"
	"fmt"
	"math"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"receipt-impact/src/pkg/products"
)

var ErrEmptyReceipt = errors.New("receipt has no products")

type ImpactLevel string

const (
	ImpactLow      ImpactLevel = "LOW"
	ImpactMedium   ImpactLevel = "MEDIUM"
	ImpactHigh     ImpactLevel = "HIGH"
	ImpactVeryHigh ImpactLevel = "VERY_HIGH"
)

// DefaultImpactLevel applies when the table has no thresholds for a category.
const DefaultImpactLevel = ImpactMedium

type Tier string

const (
	TierGreen  Tier = "GREEN"
	TierYellow Tier = "YELLOW"
	TierRed    Tier = "RED"
)

const (
	greenTierMinPercentage  = 60
	greenTierMaxAverage     = 4.0
	yellowTierMinPercentage = 30
	yellowTierMaxAverage    = 7.0
)

// ProductImpact explains how one product contributed to the analysis.
type ProductImpact struct {
	Name        string      `json:"name"`
	Category    string      `json:"category"`
	Co2Factor   float64     `json:"co2_factor"`
	Quantity    float64     `json:"quantity"`
	Co2         float64     `json:"co2"`
	ImpactLevel ImpactLevel `json:"impact_level"`
	Green       bool        `json:"green"`
	Reasons     []string    `json:"reasons,omitempty"`
}

type ReceiptAnalysis struct {
	Store             string          `json:"store"`
	TotalProducts     int             `json:"total_products"`
	GreenProducts     int             `json:"green_products"`
	GreenPercentage   int             `json:"green_percentage"`
	Co2Total          float64         `json:"co2_total"`
	Co2Average        float64         `json:"co2_average"`
	EnvironmentalTier Tier            `json:"environmental_tier"`
	IsGreenReceipt    bool            `json:"is_green_receipt"`
	Breakdown         []ProductImpact `json:"breakdown"`
}

// Aggregator scores a receipt against an injected threshold table.
type Aggregator struct {
	table Table
}

func NewAggregator(table Table) *Aggregator {
	return &Aggregator{table: table}
}

/*
Analyze computes the receipt-level impact of classified products.

A product is green when its impact level is LOW, it is local, or it has eco
packaging. Co2Total weighs every factor by quantity; Co2Average divides it by
the number of products.
*/
func (a *Aggregator) Analyze(items []products.ClassifiedProduct, store string) (analysis ReceiptAnalysis, e *xerr.Error) {
	if len(items) == 0 {
		return analysis, xerr.NewError(ErrEmptyReceipt, "nothing to analyze", store)
	}

	analysis.Store = store
	analysis.TotalProducts = len(items)
	analysis.Breakdown = make([]ProductImpact, 0, len(items))

	for _, item := range items {
		level := a.ImpactLevel(store, item.Category, item.Co2Factor)
		contribution := ProductImpact{
			Name:        item.Name,
			Category:    item.Category,
			Co2Factor:   item.Co2Factor,
			Quantity:    item.Quantity,
			Co2:         item.Co2Factor * item.Quantity,
			ImpactLevel: level,
		}
		if level == ImpactLow {
			contribution.Reasons = append(contribution.Reasons, "low impact category")
		}
		if item.IsLocal {
			contribution.Reasons = append(contribution.Reasons, "local product")
		}
		if item.HasEcoPackaging {
			contribution.Reasons = append(contribution.Reasons, "eco packaging")
		}
		contribution.Green = len(contribution.Reasons) > 0

		if contribution.Green {
			analysis.GreenProducts++
		}
		analysis.Co2Total += contribution.Co2
		analysis.Breakdown = append(analysis.Breakdown, contribution)
	}

	total := float64(analysis.TotalProducts)
	analysis.GreenPercentage = int(math.Round(float64(analysis.GreenProducts) / total * 100))
	analysis.Co2Average = analysis.Co2Total / total
	analysis.EnvironmentalTier = tierFor(analysis.GreenPercentage, analysis.Co2Average)
	analysis.IsGreenReceipt = isGreenReceipt(analysis.GreenPercentage, analysis.Co2Average)

	tl.Log(
		tl.Notice1, palette.GreenBold, "Receipt tier '%s': '%v%%' green, co2 total '%s', average '%s'",
		analysis.EnvironmentalTier, analysis.GreenPercentage,
		fmt.Sprintf("%.2f", analysis.Co2Total), fmt.Sprintf("%.2f", analysis.Co2Average),
	)
	return analysis, nil
}

// ImpactLevel places co2Factor within the category's thresholds.
func (a *Aggregator) ImpactLevel(store, category string, co2Factor float64) ImpactLevel {
	threshold := a.table.Lookup(store, category)
	if threshold == nil {
		tl.Log(
			tl.Warning, palette.YellowDim, "No thresholds for '%s' at '%s', assuming '%s'",
			category, store, DefaultImpactLevel,
		)
		return DefaultImpactLevel
	}

	switch {
	case co2Factor <= threshold.Low:
		return ImpactLow
	case co2Factor <= threshold.Medium:
		return ImpactMedium
	case co2Factor <= threshold.High:
		return ImpactHigh
	default:
		return ImpactVeryHigh
	}
}

func tierFor(greenPercentage int, co2Average float64) Tier {
	switch {
	case greenPercentage >= greenTierMinPercentage && co2Average < greenTierMaxAverage:
		return TierGreen
	case greenPercentage >= yellowTierMinPercentage && co2Average < yellowTierMaxAverage:
		return TierYellow
	default:
		return TierRed
	}
}

// isGreenReceipt evaluates the GREEN tier predicate independently of tierFor.
func isGreenReceipt(greenPercentage int, co2Average float64) bool {
	return greenPercentage >= greenTierMinPercentage && co2Average < greenTierMaxAverage
}
