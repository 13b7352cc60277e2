package models

import (
	"math"
	"time"
)

type ConditionFacet string

const (
	FacetRefurbished          ConditionFacet = "refurbished"
	FacetCertifiedRefurbished ConditionFacet = "certified_refurbished"
	FacetExcellentRefurbished ConditionFacet = "excellent_refurbished"
	FacetVeryGoodRefurbished  ConditionFacet = "very_good_refurbished"
	FacetGoodRefurbished      ConditionFacet = "good_refurbished"
	FacetNew                  ConditionFacet = "new"
	FacetNewPlusOpenBox       ConditionFacet = "new_plus_open_box"
	FacetUsed                 ConditionFacet = "used"
	FacetOpenBox              ConditionFacet = "open_box"
	FacetDeals                ConditionFacet = "deals"
)

type BuyingOption string

const (
	BuyingFixedPrice BuyingOption = "FIXED_PRICE"
	BuyingAuction    BuyingOption = "AUCTION"
	BuyingBestOffer  BuyingOption = "BEST_OFFER"
)

// Verdict is the savings tier shown next to a comparison.
type Verdict string

const (
	VerdictGreat       Verdict = "Great deal"
	VerdictGood        Verdict = "Good deal"
	VerdictFair        Verdict = "Fair deal"
	VerdictNotWorthIt  Verdict = "Not worth it"
	VerdictCheckManual Verdict = "Check links"
)

type Provider string

const (
	ProviderEBay      Provider = "ebay"
	ProviderEBayDeals Provider = "ebay_deals"
	ProviderBrave     Provider = "brave"
	ProviderOpenAI    Provider = "openai"
)

func (c ConditionFacet) Valid() bool {
	switch c {
	case FacetRefurbished, FacetCertifiedRefurbished, FacetExcellentRefurbished,
		FacetVeryGoodRefurbished, FacetGoodRefurbished, FacetNew, FacetNewPlusOpenBox,
		FacetUsed, FacetOpenBox, FacetDeals:
		return true
	default:
		return false
	}
}

func (c ConditionFacet) String() string {
	return string(c)
}

func (b BuyingOption) Valid() bool {
	return b == BuyingFixedPrice || b == BuyingAuction || b == BuyingBestOffer
}

func (b BuyingOption) String() string {
	return string(b)
}

func (p Provider) Valid() bool {
	return p == ProviderEBay || p == ProviderEBayDeals || p == ProviderBrave || p == ProviderOpenAI
}

func (p Provider) String() string {
	return string(p)
}

func (v Verdict) String() string {
	return string(v)
}

// VerdictFor maps a savings percentage onto a tier. Boundaries belong to the higher tier.
func VerdictFor(savingsPercent float64) Verdict {
	switch {
	case savingsPercent >= 20:
		return VerdictGreat
	case savingsPercent >= 10:
		return VerdictGood
	case savingsPercent >= 5:
		return VerdictFair
	default:
		return VerdictNotWorthIt
	}
}

// Listing is one normalized listing card.
type Listing struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Price         float64  `json:"price"`
	OriginalPrice *float64 `json:"originalPrice,omitempty"`
	ImageURL      string   `json:"imageUrl"`
	ItemURL       string   `json:"itemUrl"`
	Condition     string   `json:"condition"`
	Savings       *float64 `json:"savings,omitempty"`
}

// ApplySavings sets Savings to OriginalPrice-Price when that is positive and clears it otherwise.
func (l *Listing) ApplySavings() {
	l.Savings = nil
	if l.OriginalPrice == nil || *l.OriginalPrice <= 0 || l.Price <= 0 {
		return
	}
	savings := roundCents(*l.OriginalPrice - l.Price)
	if savings > 0 {
		l.Savings = &savings
	}
}

// ScrapedDeal is one tile pulled out of a deals page before normalization.
type ScrapedDeal struct {
	ItemID        string
	Title         string
	Image         string
	Price         string
	OriginalPrice *string
	DiscountPct   *int
	ItemURL       string
}

// AccessToken is a marketplace bearer token with its absolute expiry.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

// Valid reports whether the token can still be used at now.
func (t *AccessToken) Valid(now time.Time) bool {
	return t != nil && t.Token != "" && now.Before(t.ExpiresAt)
}

type WebResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Site        string `json:"site"`
}

type RetailerPrice struct {
	Retailer string  `json:"retailer"`
	Price    float64 `json:"price"`
	URL      string  `json:"url"`
}

// PriceAnalysisItem is one product's reconciliation against new-retail prices.
type PriceAnalysisItem struct {
	Index          int             `json:"index"`
	ProductName    string          `json:"productName"`
	RefurbPrice    any             `json:"refurbPrice"`
	RetailerPrices []RetailerPrice `json:"retailerPrices,omitempty"`
	LowestNewPrice *float64        `json:"lowestNewPrice,omitempty"`
	LowestRetailer string          `json:"lowestRetailer,omitempty"`
	Savings        *float64        `json:"savings,omitempty"`
	SavingsPercent *float64        `json:"savingsPercent,omitempty"`
	Verdict        Verdict         `json:"verdict"`
	WebResults     []WebResult     `json:"webResults"`
	OriginalTitle  string          `json:"originalTitle,omitempty"`
	RetailerURL    *string         `json:"retailerUrl,omitempty"`
	Retailer       string          `json:"retailer,omitempty"`
	PriceNote      string          `json:"priceNote,omitempty"`
}

// CacheEntry is a stored upstream response.
type CacheEntry struct {
	Provider    Provider  `json:"provider"`
	CacheKey    string    `json:"cache_key"`
	PayloadJSON string    `json:"payload_json"`
	FetchedAt   time.Time `json:"fetched_at"`
	TTLSeconds  int       `json:"ttl_seconds"`
}

// Expired reports whether the entry outlived its TTL at now.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.FetchedAt.Add(time.Duration(e.TTLSeconds) * time.Second))
}

func roundCents(value float64) float64 {
	return math.Round(value*100) / 100
}
