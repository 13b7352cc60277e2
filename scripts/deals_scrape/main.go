package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/matthewgall/epicdeals/internal/config"
	"github.com/matthewgall/epicdeals/internal/providers/ebaydeals"
)

type scrapeResult struct {
	Pages        []string `json:"pages"`
	SampleSize   int      `json:"sample_size"`
	AveragePrice float64  `json:"average_price"`
	MinPrice     float64  `json:"min_price"`
	MaxPrice     float64  `json:"max_price"`
	MedianOff    float64  `json:"median_discount_percent"`
	Warning      string   `json:"warning,omitempty"`
	Sample       []string `json:"sample,omitempty"`
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	pages := flag.String("pages", "", "Comma separated deals pages, overrides config")
	limit := flag.Int("limit", ebaydeals.MaxLimit, "Maximum deals to collect")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall scrape timeout")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if strings.TrimSpace(*pages) != "" {
		cfg.Deals.Pages = strings.Split(*pages, ",")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	scraper := ebaydeals.NewScraper(&cfg.Deals, &cfg.EBay, ebaydeals.NewHTTPFetcher(&cfg.Deals), nil, 0)
	page, err := scraper.Scrape(ctx, *limit, 0)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	output, err := json.MarshalIndent(summarize(cfg.Deals.Pages, page), "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Println(string(output))
}

func summarize(pages []string, page *ebaydeals.DealsPage) *scrapeResult {
	result := &scrapeResult{Pages: pages}

	var prices, discounts []float64
	for _, deal := range page.ItemSummaries {
		price, err := strconv.ParseFloat(deal.Price.Value, 64)
		if err != nil || price <= 0 {
			continue
		}
		prices = append(prices, price)
		if deal.MarketingPrice.DiscountPercentage != nil {
			if pct, err := strconv.ParseFloat(*deal.MarketingPrice.DiscountPercentage, 64); err == nil {
				discounts = append(discounts, pct)
			}
		}
		if len(result.Sample) < 5 {
			result.Sample = append(result.Sample, fmt.Sprintf("%s ($%s)", deal.Title, deal.Price.Value))
		}
	}

	if len(prices) == 0 {
		result.Warning = "no deals found, the page layout may have changed"
		return result
	}

	sort.Float64s(prices)
	var sum float64
	for _, price := range prices {
		sum += price
	}
	result.SampleSize = len(prices)
	result.AveragePrice = sum / float64(len(prices))
	result.MinPrice = prices[0]
	result.MaxPrice = prices[len(prices)-1]

	if len(discounts) > 0 {
		sort.Float64s(discounts)
		result.MedianOff = discounts[len(discounts)/2]
	}
	if len(prices) < 5 {
		result.Warning = "low sample size"
	}
	return result
}
