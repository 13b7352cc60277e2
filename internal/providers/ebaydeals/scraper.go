package ebaydeals

import (
	"context"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/matthewgall/epicdeals/internal/cache"
	"github.com/matthewgall/epicdeals/internal/config"
	"github.com/matthewgall/epicdeals/internal/models"
)

const (
	DefaultLimit = 200
	MaxLimit     = 300
	Source       = "eBay Deals Page"

	placeholderImage = "https://ir.ebaystatic.com/cr/v/c1/s_1x2.png"
)

type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type Image struct {
	ImageURL string `json:"imageUrl"`
}

type Seller struct {
	Username           string `json:"username"`
	FeedbackPercentage string `json:"feedbackPercentage"`
}

type ShippingOption struct {
	ShippingCost Amount `json:"shippingCost"`
}

type MarketingPrice struct {
	OriginalPrice      *Amount `json:"originalPrice"`
	DiscountPercentage *string `json:"discountPercentage"`
	DiscountAmount     Amount  `json:"discountAmount"`
}

// DealSummary mirrors the Browse API item summary so clients can render
// scraped deals and live listings alike.
type DealSummary struct {
	ItemID              string           `json:"itemId"`
	Title               string           `json:"title"`
	Image               Image            `json:"image"`
	Price               Amount           `json:"price"`
	ItemWebURL          string           `json:"itemWebUrl"`
	ItemAffiliateWebURL string           `json:"itemAffiliateWebUrl"`
	Condition           string           `json:"condition"`
	Seller              Seller           `json:"seller"`
	ShippingOptions     []ShippingOption `json:"shippingOptions"`
	MarketingPrice      MarketingPrice   `json:"marketingPrice"`
}

type DealsPage struct {
	ItemSummaries     []DealSummary `json:"itemSummaries"`
	Total             int           `json:"total"`
	Limit             int           `json:"limit"`
	Offset            int           `json:"offset"`
	Marketplace       string        `json:"marketplace"`
	IsDeals           bool          `json:"isDeals"`
	IsRealDeals       bool          `json:"isRealDeals"`
	Source            string        `json:"source"`
	HasAffiliateLinks bool          `json:"hasAffiliateLinks"`
	CampaignID        string        `json:"campaignId"`
}

type Scraper struct {
	fetcher     Fetcher
	pages       []string
	minDiscount int
	campaignID  string
	rotationID  string
	cache       cache.Cache
	cacheTTL    time.Duration
}

func NewScraper(cfg *config.DealsConfig, ebayCfg *config.EBayConfig, fetcher Fetcher, cache cache.Cache, cacheTTL time.Duration) *Scraper {
	base := strings.TrimRight(cfg.BaseURL, "/")
	pages := make([]string, 0, len(cfg.Pages))
	for _, page := range cfg.Pages {
		if strings.HasPrefix(page, "http://") || strings.HasPrefix(page, "https://") {
			pages = append(pages, page)
			continue
		}
		pages = append(pages, base+"/"+strings.TrimLeft(page, "/"))
	}
	return &Scraper{
		fetcher:     fetcher,
		pages:       pages,
		minDiscount: cfg.MinDiscount,
		campaignID:  ebayCfg.AffiliateCampaignID,
		rotationID:  ebayCfg.AffiliateRotationID,
		cache:       cache,
		cacheTTL:    cacheTTL,
	}
}

// Scrape walks the deals pages in order, keeps deals at or above the minimum
// discount, drops repeated item ids and returns the [offset, offset+limit)
// window. A failing page is logged and skipped.
func (s *Scraper) Scrape(ctx context.Context, limit, offset int) (*DealsPage, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	want := limit + offset

	all := make([]DealSummary, 0, want)
	seen := make(map[string]struct{})

	for _, pageURL := range s.pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		deals, err := s.pageDeals(ctx, pageURL)
		if err != nil {
			log.Printf("Warning: deals page failed: %s: %v", pageURL, err)
			continue
		}

		for _, deal := range deals {
			if deal.DiscountPct == nil || *deal.DiscountPct < s.minDiscount {
				continue
			}
			if _, ok := seen[deal.ItemID]; ok {
				continue
			}
			seen[deal.ItemID] = struct{}{}

			all = append(all, s.summarize(deal))
			if len(all) >= want {
				break
			}
		}
		if len(all) >= want {
			break
		}
	}

	start := offset
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}

	return &DealsPage{
		ItemSummaries:     all[start:end],
		Total:             len(all),
		Limit:             limit,
		Offset:            offset,
		Marketplace:       "EBAY_US",
		IsDeals:           true,
		IsRealDeals:       true,
		Source:            Source,
		HasAffiliateLinks: true,
		CampaignID:        s.campaignID,
	}, nil
}

// Warm scrapes every page once so the page cache is populated.
func (s *Scraper) Warm(ctx context.Context) error {
	page, err := s.Scrape(ctx, MaxLimit, 0)
	if err != nil {
		return err
	}
	log.Printf("Warmed deals cache with %d deals", page.Total)
	return nil
}

func (s *Scraper) pageDeals(ctx context.Context, pageURL string) ([]models.ScrapedDeal, error) {
	cacheKey := "page:" + pageURL
	cached, ok, err := cache.Lookup[[]models.ScrapedDeal](ctx, s.cache, models.ProviderEBayDeals, cacheKey)
	if err != nil {
		log.Printf("Warning: reading cached deals for %s: %v", pageURL, err)
	} else if ok {
		return cached, nil
	}

	markup, err := s.fetcher.FetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	deals := ParseTiles(markup)

	if err := cache.Store(ctx, s.cache, models.ProviderEBayDeals, cacheKey, deals, s.cacheTTL); err != nil {
		log.Printf("Warning: failed to cache deals for %s: %v", pageURL, err)
	}
	return deals, nil
}

func (s *Scraper) summarize(deal models.ScrapedDeal) DealSummary {
	affiliateURL := s.affiliateURL(deal.ItemID)

	image := deal.Image
	if image == "" {
		image = placeholderImage
	}

	marketing := MarketingPrice{}
	originalValue := 0.0
	if deal.OriginalPrice != nil {
		marketing.OriginalPrice = &Amount{Value: *deal.OriginalPrice, Currency: "USD"}
		originalValue = parseFloat(*deal.OriginalPrice)
	}
	if deal.DiscountPct != nil {
		pct := strconv.Itoa(*deal.DiscountPct)
		marketing.DiscountPercentage = &pct
	}
	discount := originalValue - parseFloat(deal.Price)
	if discount < 0 {
		discount = 0
	}
	marketing.DiscountAmount = Amount{Value: strconv.FormatFloat(roundCents(discount), 'f', -1, 64), Currency: "USD"}

	return DealSummary{
		ItemID:              fmt.Sprintf("v1|%s|0", deal.ItemID),
		Title:               deal.Title,
		Image:               Image{ImageURL: image},
		Price:               Amount{Value: deal.Price, Currency: "USD"},
		ItemWebURL:          affiliateURL,
		ItemAffiliateWebURL: affiliateURL,
		Condition:           "Deal",
		Seller:              Seller{Username: "eBay Deals", FeedbackPercentage: "100"},
		ShippingOptions:     []ShippingOption{{ShippingCost: Amount{Value: "0.00", Currency: "USD"}}},
		MarketingPrice:      marketing,
	}
}

func (s *Scraper) affiliateURL(itemID string) string {
	return fmt.Sprintf("https://www.ebay.com/itm/%s?mkcid=1&mkrid=%s&campid=%s&toolid=10001&mkevt=1", itemID, s.rotationID, s.campaignID)
}

// Listings converts the page into listing cards. Item URLs already carry the
// affiliate tag and are not tagged again.
func (p *DealsPage) Listings() []models.Listing {
	listings := make([]models.Listing, 0, len(p.ItemSummaries))
	for _, summary := range p.ItemSummaries {
		listing := models.Listing{
			ID:        summary.ItemID,
			Title:     summary.Title,
			Price:     parseFloat(summary.Price.Value),
			ImageURL:  summary.Image.ImageURL,
			ItemURL:   summary.ItemWebURL,
			Condition: summary.Condition,
		}
		if summary.MarketingPrice.OriginalPrice != nil {
			if original := parseFloat(summary.MarketingPrice.OriginalPrice.Value); original > 0 {
				listing.OriginalPrice = &original
			}
		}
		listing.ApplySavings()
		listings = append(listings, listing)
	}
	return listings
}

func roundCents(value float64) float64 {
	return math.Round(value*100) / 100
}
