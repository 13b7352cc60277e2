package compare

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math"
	"strings"
	"sync"

	"github.com/matthewgall/epicdeals/internal/models"
)

// MaxProducts is how many input products one comparison researches.
const MaxProducts = 5

const (
	SourceSearchAndModel = "brave+gpt4"

	noteModelUnavailable = "AI unavailable - check search results below"
	noteCompare          = "Click to compare prices"
	defaultCondition     = "Refurbished"
	maxTitleLength       = 120
)

var (
	ErrNoProducts         = errors.New("No products provided")                       //nolint:staticcheck // surfaced verbatim to clients
	ErrMissingCredentials = errors.New("Missing BRAVE_API_KEY or OPENAI_API_KEY.") //nolint:staticcheck // surfaced verbatim to clients
)

type Searcher interface {
	Configured() bool
	Search(ctx context.Context, query string) ([]models.WebResult, error)
}

type Completer interface {
	Configured() bool
	Complete(ctx context.Context, system, user string) (string, error)
}

// Recorder keeps a copy of finished comparisons and returns the id it was stored under.
type Recorder interface {
	Record(ctx context.Context, comparison *Comparison) (string, error)
}

// ProductInput is one product as submitted by the client. Price is a JSON number or string.
type ProductInput struct {
	Index     *int   `json:"index,omitempty"`
	Title     string `json:"title"`
	Price     any    `json:"price"`
	Condition string `json:"condition,omitempty"`
}

// ProductResult is the researched form of a ProductInput.
type ProductResult struct {
	Index         int                `json:"index"`
	OriginalTitle string             `json:"originalTitle"`
	SearchQuery   string             `json:"searchQuery"`
	RefurbPrice   any                `json:"refurbPrice"`
	Condition     string             `json:"condition"`
	WebResults    []models.WebResult `json:"webResults"`
}

type Comparison struct {
	Success   bool                       `json:"success"`
	Analysis  []models.PriceAnalysisItem `json:"analysis"`
	TopPick   *TopPick                   `json:"topPick,omitempty"`
	Summary   string                     `json:"summary,omitempty"`
	Products  []ProductResult            `json:"products"`
	Source    string                     `json:"source,omitempty"`
	Fallback  bool                       `json:"fallback,omitempty"`
	RawSearch bool                       `json:"rawSearch,omitempty"`
	ArchiveID string                     `json:"archiveId,omitempty"`
}

type Service struct {
	searcher  Searcher
	completer Completer
	recorder  Recorder
}

type Option func(*Service)

func WithRecorder(recorder Recorder) Option {
	return func(s *Service) {
		s.recorder = recorder
	}
}

func New(searcher Searcher, completer Completer, opts ...Option) *Service {
	s := &Service{searcher: searcher, completer: completer}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Configured() bool {
	return s.searcher != nil && s.completer != nil && s.searcher.Configured() && s.completer.Configured()
}

// Reconcile researches up to MaxProducts products and asks the model to price them against new retail.
// Upstream failures degrade the result instead of failing the call.
func (s *Service) Reconcile(ctx context.Context, products []ProductInput) (*Comparison, error) {
	if !s.Configured() {
		return nil, ErrMissingCredentials
	}
	if len(products) == 0 {
		return nil, ErrNoProducts
	}
	if len(products) > MaxProducts {
		products = products[:MaxProducts]
	}

	results := s.research(ctx, products)

	var comparison *Comparison
	text, err := s.completer.Complete(ctx, SystemPrompt, BuildPrompt(results))
	if err != nil {
		log.Printf("Warning: price analysis unavailable: %v", err)
		comparison = fallbackComparison(results)
	} else {
		decoded := DecodeAnalysis(text)
		if decoded.Kind == DecodeUnparsable {
			log.Printf("Warning: price analysis could not be decoded: %v", decoded.Err)
			comparison = rawSearchComparison(results)
		} else {
			comparison = mergeAnalysis(results, decoded.Payload)
		}
	}

	if s.recorder != nil {
		id, err := s.recorder.Record(ctx, comparison)
		if err != nil {
			log.Printf("Warning: failed to archive comparison: %v", err)
		} else {
			comparison.ArchiveID = id
		}
	}

	return comparison, nil
}

// research runs the web searches concurrently and keeps results in input order.
func (s *Service) research(ctx context.Context, products []ProductInput) []ProductResult {
	results := make([]ProductResult, len(products))

	var wg sync.WaitGroup
	for i, product := range products {
		wg.Add(1)
		go func(i int, product ProductInput) {
			defer wg.Done()
			results[i] = s.researchOne(ctx, i, product)
		}(i, product)
	}
	wg.Wait()

	return results
}

func (s *Service) researchOne(ctx context.Context, position int, product ProductInput) ProductResult {
	title := product.Title
	if strings.TrimSpace(title) == "" {
		title = "Unknown"
	}
	index := position + 1
	if product.Index != nil {
		index = *product.Index
	}
	condition := product.Condition
	if strings.TrimSpace(condition) == "" {
		condition = defaultCondition
	}
	price := product.Price
	if price == nil {
		price = "N/A"
	}

	query := CleanForSearch(title)
	webResults, err := s.searcher.Search(ctx, query)
	if err != nil {
		log.Printf("Warning: web search for %q failed: %v", query, err)
		webResults = nil
	}
	if webResults == nil {
		webResults = []models.WebResult{}
	}

	return ProductResult{
		Index:         index,
		OriginalTitle: truncateRunes(title, maxTitleLength),
		SearchQuery:   query,
		RefurbPrice:   price,
		Condition:     condition,
		WebResults:    webResults,
	}
}

func fallbackComparison(products []ProductResult) *Comparison {
	analysis := make([]models.PriceAnalysisItem, 0, len(products))
	for _, product := range products {
		analysis = append(analysis, models.PriceAnalysisItem{
			Index:       product.Index,
			ProductName: product.SearchQuery,
			RefurbPrice: product.RefurbPrice,
			WebResults:  product.WebResults,
			Verdict:     models.VerdictCheckManual,
			PriceNote:   noteModelUnavailable,
		})
	}
	return &Comparison{Success: true, Analysis: analysis, Products: products, Fallback: true}
}

func rawSearchComparison(products []ProductResult) *Comparison {
	analysis := make([]models.PriceAnalysisItem, 0, len(products))
	for _, product := range products {
		item := models.PriceAnalysisItem{
			Index:       product.Index,
			ProductName: product.SearchQuery,
			RefurbPrice: product.RefurbPrice,
			Retailer:    "Search",
			WebResults:  product.WebResults,
			Verdict:     models.VerdictCheckManual,
			PriceNote:   noteCompare,
		}
		if len(product.WebResults) > 0 {
			first := product.WebResults[0]
			if first.URL != "" {
				retailerURL := first.URL
				item.RetailerURL = &retailerURL
			}
			if first.Site != "" {
				item.Retailer = first.Site
			}
		}
		analysis = append(analysis, item)
	}
	return &Comparison{Success: true, Analysis: analysis, Products: products, RawSearch: true}
}

func mergeAnalysis(products []ProductResult, payload *AnalysisPayload) *Comparison {
	byIndex := make(map[int]ProductResult, len(products))
	for _, product := range products {
		if _, exists := byIndex[product.Index]; !exists {
			byIndex[product.Index] = product
		}
	}

	analysis := make([]models.PriceAnalysisItem, 0, len(payload.Analysis))
	for _, entry := range payload.Analysis {
		index, ok := entry.Index.Int()
		if !ok {
			log.Printf("Warning: dropping analysis entry without a usable product index")
			continue
		}
		product, ok := byIndex[index]
		if !ok {
			log.Printf("Warning: dropping analysis entry for unknown product index %d", index)
			continue
		}
		analysis = append(analysis, toAnalysisItem(entry, product))
	}

	return &Comparison{
		Success:  true,
		Analysis: analysis,
		TopPick:  payload.TopPick,
		Summary:  payload.Summary,
		Products: products,
		Source:   SourceSearchAndModel,
	}
}

func toAnalysisItem(entry AnalysisEntry, product ProductResult) models.PriceAnalysisItem {
	item := models.PriceAnalysisItem{
		Index:          product.Index,
		ProductName:    entry.ProductName,
		RefurbPrice:    product.RefurbPrice,
		LowestRetailer: entry.LowestRetailer,
		WebResults:     product.WebResults,
		OriginalTitle:  product.OriginalTitle,
	}
	if strings.TrimSpace(item.ProductName) == "" {
		item.ProductName = product.SearchQuery
	}

	for _, retailer := range entry.RetailerPrices {
		price, ok := retailer.Price.Float()
		if !ok || price <= 0 {
			continue
		}
		item.RetailerPrices = append(item.RetailerPrices, models.RetailerPrice{
			Retailer: retailer.Retailer,
			Price:    price,
			URL:      retailer.URL,
		})
	}

	if lowest, ok := entry.LowestNewPrice.Float(); ok && lowest > 0 {
		item.LowestNewPrice = &lowest
	} else if cheapest, ok := cheapestRetailer(item.RetailerPrices); ok {
		lowest := cheapest.Price
		item.LowestNewPrice = &lowest
		item.LowestRetailer = cheapest.Retailer
	}

	refurb, haveRefurb := priceValue(item.RefurbPrice)
	if savings, ok := entry.Savings.Float(); ok {
		item.Savings = &savings
	} else if item.LowestNewPrice != nil && haveRefurb {
		savings := math.Round((*item.LowestNewPrice-refurb)*100) / 100
		item.Savings = &savings
	}
	if percent, ok := entry.SavingsPercent.Float(); ok {
		item.SavingsPercent = &percent
	} else if item.Savings != nil && item.LowestNewPrice != nil && *item.LowestNewPrice > 0 {
		percent := math.Round(*item.Savings / *item.LowestNewPrice * 100)
		item.SavingsPercent = &percent
	}

	// The thresholds decide whenever a percentage is known; the model's label
	// only fills in when it is not.
	switch {
	case item.SavingsPercent != nil:
		item.Verdict = models.VerdictFor(*item.SavingsPercent)
	case knownVerdict(entry.Verdict) != "":
		item.Verdict = knownVerdict(entry.Verdict)
	default:
		item.Verdict = models.VerdictCheckManual
	}

	return item
}

func cheapestRetailer(prices []models.RetailerPrice) (models.RetailerPrice, bool) {
	if len(prices) == 0 {
		return models.RetailerPrice{}, false
	}
	cheapest := prices[0]
	for _, price := range prices[1:] {
		if price.Price < cheapest.Price {
			cheapest = price
		}
	}
	return cheapest, true
}

func knownVerdict(value string) models.Verdict {
	switch verdict := models.Verdict(strings.TrimSpace(value)); verdict {
	case models.VerdictGreat, models.VerdictGood, models.VerdictFair, models.VerdictNotWorthIt, models.VerdictCheckManual:
		return verdict
	default:
		return ""
	}
}

func priceValue(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		return parseNumber(v)
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func truncateRunes(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
