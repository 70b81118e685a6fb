package parser

import (
	"fmt"
	"strconv"
	"strings"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"

	"receipt-impact/src/pkg/util"
)

const (
	MaxNameLength = 40
	MinNameLength = 3
	MaxPrice      = 10000.0
	DefaultUnit   = "un"

	maxNameLookahead  = 2 // more swallows the next product's data
	maxPriceLookahead = 3
)

// ParsedProduct is one product reconstructed from OCR text.
type ParsedProduct struct {
	Barcode         string  `json:"barcode"`
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	Quantity        float64 `json:"quantity"`
	Unit            string  `json:"unit"`
	ParseConfidence float64 `json:"parse_confidence"`
}

// Discard explains why an anchor produced no product.
type Discard struct {
	Line    int    `json:"line"` // index of the anchor in the normalized lines
	Barcode string `json:"barcode"`
	Name    string `json:"name,omitempty"`
	Reason  string `json:"reason"`
}

type Result struct {
	Products  []ParsedProduct `json:"products"`
	Discarded []Discard       `json:"discarded,omitempty"`
}

type state int

const (
	seekAnchor state = iota
	extractName
	extractQuantityPrice
	emitOrDiscard
	done
)

func (s state) String() string {
	switch s {
	case seekAnchor:
		return "SEEK_ANCHOR"
	case extractName:
		return "EXTRACT_NAME"
	case extractQuantityPrice:
		return "EXTRACT_QUANTITY_PRICE"
	case emitOrDiscard:
		return "EMIT_OR_DISCARD"
	default:
		return "DONE"
	}
}

// candidate accumulates everything known about the product under the cursor.
type candidate struct {
	anchor        int
	barcode       string
	nameLines     int
	nameEnd       int // first line after the name window
	name          string
	truncated     bool
	quantity      float64
	unit          string
	quantityFound bool
	price         float64
	priceFound    bool
	priceLine     int
	priceTokens   int
	consumedEnd   int // first line not consumed by this anchor
}

// scanner walks an immutable line slice; cursor only ever moves forward.
type scanner struct {
	lines   []string
	cursor  int
	current candidate
	result  Result
}

/*
Parse reconstructs products from OCR text.

Each line starting with a 13-digit barcode opens a product window: the name
is the rest of that line plus up to two letters-only lines, then up to three
lines are scanned for a quantity ("1.17kg") and a price (the last two-decimal
amount on the first line that has one). Lines outside any window are skipped.
*/
func Parse(text string) Result {
	s := &scanner{lines: NormalizeLines(text)}
	s.run()

	tl.Log(
		tl.Info1, palette.Green, "Parsed '%v' products from '%v' lines ('%v' discarded)",
		len(s.result.Products), len(s.lines), len(s.result.Discarded),
	)
	return s.result
}

// Products is Parse without the discard diagnostics.
func Products(text string) []ParsedProduct {
	return Parse(text).Products
}

func (s *scanner) run() {
	current := seekAnchor
	for current != done {
		next := s.step(current)
		tl.Log(tl.Debug1, palette.CyanDim, "Parser %s -> %s at line '%v'", current, next, s.cursor)
		current = next
	}
}

func (s *scanner) step(current state) state {
	switch current {
	case seekAnchor:
		return s.seekAnchor()
	case extractName:
		return s.extractName()
	case extractQuantityPrice:
		return s.extractQuantityPrice()
	case emitOrDiscard:
		return s.emitOrDiscard()
	default:
		return done
	}
}

func (s *scanner) seekAnchor() state {
	for s.cursor < len(s.lines) && !anchorRegexp.MatchString(s.lines[s.cursor]) {
		s.cursor++
	}
	if s.cursor >= len(s.lines) {
		return done
	}

	line := s.lines[s.cursor]
	s.current = candidate{
		anchor:  s.cursor,
		barcode: line[:13],
		unit:    DefaultUnit,
	}
	return extractName
}

func (s *scanner) extractName() state {
	c := &s.current
	parts := []string{s.lines[c.anchor][13:]}

	next := c.anchor + 1
	for next < len(s.lines) && next <= c.anchor+maxNameLookahead {
		line := s.lines[next]
		if digitRegexp.MatchString(line) || !nameLineRegexp.MatchString(line) {
			break
		}
		parts = append(parts, line)
		next++
	}
	c.nameLines = len(parts)
	c.nameEnd = next
	c.name, c.truncated = cleanName(strings.Join(parts, " "))

	if len([]rune(c.name)) < MinNameLength {
		s.discard(fmt.Sprintf("name '%s' shorter than %d letters", c.name, MinNameLength))
		s.cursor = c.anchor + 1
		return seekAnchor
	}
	return extractQuantityPrice
}

func (s *scanner) extractQuantityPrice() state {
	c := &s.current
	c.consumedEnd = c.nameEnd

	for index := c.nameEnd; index < len(s.lines) && index < c.nameEnd+maxPriceLookahead; index++ {
		line := s.lines[index]
		if anchorRegexp.MatchString(line) {
			// The next product starts here; leave it for SEEK_ANCHOR.
			break
		}
		c.consumedEnd = index + 1

		quantityMatches := quantityRegexp.FindAllStringSubmatchIndex(line, -1)
		if !c.quantityFound && len(quantityMatches) > 0 {
			c.quantity, c.unit, c.quantityFound = parseQuantity(line, quantityMatches[0])
		}

		// A weight like "1.17kg" is not a price candidate.
		priceLine := maskSpans(line, quantityMatches)
		priceMatches := priceRegexp.FindAllString(priceLine, -1)
		if len(priceMatches) == 0 {
			continue
		}

		last := priceMatches[len(priceMatches)-1]
		price, err := strconv.ParseFloat(strings.Replace(last, ",", ".", 1), 64)
		if err != nil {
			continue
		}
		c.price = price
		c.priceFound = true
		c.priceLine = index
		c.priceTokens = len(priceMatches)
		break
	}
	return emitOrDiscard
}

func (s *scanner) emitOrDiscard() state {
	c := &s.current
	s.cursor = c.consumedEnd

	switch {
	case !c.priceFound:
		s.discard("no price found")
	case c.price <= 0 || c.price >= MaxPrice:
		s.discard(fmt.Sprintf("price %.2f outside (0, %.0f)", c.price, MaxPrice))
	default:
		quantity := 1.0
		unit := DefaultUnit
		if c.quantityFound && c.quantity > 0 {
			quantity = c.quantity
			unit = c.unit
		}
		product := ParsedProduct{
			Barcode:         c.barcode,
			Name:            c.name,
			Price:           c.price,
			Quantity:        quantity,
			Unit:            unit,
			ParseConfidence: parseConfidence(c),
		}
		s.result.Products = append(s.result.Products, product)
		tl.Log(
			tl.Verbose, palette.Cyan, "Product '%s': quantity '%v %s', price '%s'",
			product.Name, product.Quantity, product.Unit, fmt.Sprintf("%.2f", product.Price),
		)
	}
	return seekAnchor
}

func (s *scanner) discard(reason string) {
	c := s.current
	s.result.Discarded = append(s.result.Discarded, Discard{
		Line:    c.anchor,
		Barcode: c.barcode,
		Name:    c.name,
		Reason:  reason,
	})
	tl.Log(tl.Verbose, palette.PurpleDim, "Discarded anchor '%s' at line '%v': %s", c.barcode, c.anchor, reason)
}

func parseQuantity(line string, match []int) (quantity float64, unit string, ok bool) {
	integerPart := line[match[2]:match[3]]
	fractionPart := line[match[4]:match[5]]
	unit = strings.ToLower(line[match[6]:match[7]])

	quantity, err := strconv.ParseFloat(integerPart+"."+fractionPart, 64)
	if err != nil {
		return 0, DefaultUnit, false
	}
	return quantity, unit, true
}

// maskSpans blanks the given byte spans so later regexps cannot match them.
func maskSpans(line string, spans [][]int) string {
	if len(spans) == 0 {
		return line
	}
	masked := []byte(line)
	for _, span := range spans {
		for index := span[0]; index < span[1]; index++ {
			masked[index] = ' '
		}
	}
	return string(masked)
}

/*
parseConfidence starts at 1 and loses a little for every heuristic the
product needed: a wrapped name, a truncated name, a price found further from
the name, or several price-like tokens competing on the price line.
*/
func parseConfidence(c *candidate) float64 {
	confidence := 1.0
	if c.nameLines > 1 {
		confidence -= 0.1
	}
	if c.truncated {
		confidence -= 0.1
	}
	confidence -= 0.1 * float64(c.priceLine-c.nameEnd)
	if c.priceTokens > 1 {
		confidence -= 0.05
	}
	return util.Round2(util.Clamp(confidence, 0, 1))
}
