package ebay

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/matthewgall/epicdeals/internal/models"
)

// PopularBrands maps lowercase brand keys to the aspect value eBay expects.
var PopularBrands = map[string]string{
	"apple":     "Apple",
	"samsung":   "Samsung",
	"sony":      "Sony",
	"microsoft": "Microsoft",
	"hp":        "HP",
	"dell":      "Dell",
	"lenovo":    "Lenovo",
	"canon":     "Canon",
	"nikon":     "Nikon",
	"nintendo":  "Nintendo",
	"bose":      "Bose",
	"dyson":     "Dyson",
}

var marketplaceCurrency = map[string]string{
	"EBAY_US":        "USD",
	"EBAY_CA":        "CAD",
	"EBAY_GB":        "GBP",
	"EBAY_DE":        "EUR",
	"EBAY_FR":        "EUR",
	"EBAY_IT":        "EUR",
	"EBAY_ES":        "EUR",
	"EBAY_NL":        "EUR",
	"EBAY_BE":        "EUR",
	"EBAY_AT":        "EUR",
	"EBAY_CH":        "CHF",
	"EBAY_IE":        "EUR",
	"EBAY_PL":        "PLN",
	"EBAY_AU":        "AUD",
	"EBAY_HK":        "HKD",
	"EBAY_SG":        "SGD",
	"EBAY_MY":        "MYR",
	"EBAY_PH":        "PHP",
	"EBAY_TW":        "TWD",
	"EBAY_MOTORS_US": "USD",
}

// Marketplaces running the graded refurbished program.
var refurbishedMarketplaces = map[string]struct{}{
	"EBAY_US": {},
	"EBAY_AU": {},
}

func SupportsRefurbished(marketplace string) bool {
	_, ok := refurbishedMarketplaces[marketplace]
	return ok
}

// CurrencyFor returns the listing currency of a marketplace, USD when unknown.
func CurrencyFor(marketplace string) string {
	if currency, ok := marketplaceCurrency[marketplace]; ok {
		return currency
	}
	return "USD"
}

// NormalizeBrand resolves a brand through the alias table, passing unknown names through.
func NormalizeBrand(brand string) string {
	brand = strings.TrimSpace(brand)
	if alias, ok := PopularBrands[strings.ToLower(brand)]; ok {
		return alias
	}
	return brand
}

const (
	conditionsGraded     = "conditionIds:{2000|2010|2020|2030|2500}"
	conditionsSellerOnly = "conditionIds:{2500}"
)

var conditionIDs = map[models.ConditionFacet]string{
	models.FacetCertifiedRefurbished: "conditionIds:{2000}",
	models.FacetExcellentRefurbished: "conditionIds:{2010}",
	models.FacetVeryGoodRefurbished:  "conditionIds:{2020}",
	models.FacetGoodRefurbished:      "conditionIds:{2030}",
	models.FacetNew:                  "conditionIds:{1000}",
	models.FacetNewPlusOpenBox:       "conditionIds:{1000|1500}",
	models.FacetUsed:                 "conditionIds:{3000|4000|5000|6000}",
	models.FacetOpenBox:              "conditionIds:{1500}",
}

type FilterOptions struct {
	Conditions          models.ConditionFacet
	SupportsRefurbished bool
	Min                 *float64
	Max                 *float64
	BuyingOptions       models.BuyingOption
	FreeShipping        bool
	Currency            string
}

func isRefurbishedFacet(facet models.ConditionFacet) bool {
	switch facet {
	case models.FacetRefurbished, models.FacetDeals, models.FacetCertifiedRefurbished,
		models.FacetExcellentRefurbished, models.FacetVeryGoodRefurbished, models.FacetGoodRefurbished:
		return true
	}
	return false
}

// BuildFilter renders the Browse API filter expression for opts.
func BuildFilter(opts FilterOptions) string {
	var filters []string

	switch {
	case opts.Conditions == models.FacetRefurbished || opts.Conditions == models.FacetDeals:
		if opts.SupportsRefurbished {
			filters = append(filters, conditionsGraded)
		} else {
			filters = append(filters, conditionsSellerOnly)
		}
	case isRefurbishedFacet(opts.Conditions) && !opts.SupportsRefurbished:
		filters = append(filters, conditionsSellerOnly)
	default:
		if ids, ok := conditionIDs[opts.Conditions]; ok {
			filters = append(filters, ids)
		}
	}

	if opts.Min != nil || opts.Max != nil {
		lower, upper := "0", ""
		if opts.Min != nil {
			lower = formatPrice(*opts.Min)
		}
		if opts.Max != nil {
			upper = formatPrice(*opts.Max)
		}
		filters = append(filters, fmt.Sprintf("price:[%s..%s]", lower, upper))
		if opts.Currency != "" {
			filters = append(filters, "priceCurrency:"+opts.Currency)
		}
	}

	if opts.BuyingOptions.Valid() {
		filters = append(filters, "buyingOptions:{"+opts.BuyingOptions.String()+"}")
	}

	if opts.FreeShipping {
		filters = append(filters, "maxDeliveryCost:0")
	}

	return strings.Join(filters, ",")
}

var (
	ErrNegativePrice  = errors.New("price bounds must not be negative")
	ErrNonFinitePrice = errors.New("price bounds must be finite numbers")
)

// ValidatePriceRange rejects negative or non-finite bounds and swaps an
// inverted range.
func ValidatePriceRange(min, max *float64) (*float64, *float64, error) {
	if !finitePrice(min) || !finitePrice(max) {
		return nil, nil, ErrNonFinitePrice
	}
	if (min != nil && *min < 0) || (max != nil && *max < 0) {
		return nil, nil, ErrNegativePrice
	}
	if min != nil && max != nil && *min > *max {
		return max, min, nil
	}
	return min, max, nil
}

func finitePrice(value *float64) bool {
	return value == nil || !(math.IsNaN(*value) || math.IsInf(*value, 0))
}

func formatPrice(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
