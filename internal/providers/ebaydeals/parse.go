package ebaydeals

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/matthewgall/epicdeals/internal/models"
	"golang.org/x/net/html"
)

// The deals markup is uncontrolled third-party HTML. These patterns match one
// layout; when it changes they stop matching and the scrape comes back empty.
var (
	tilePattern          = regexp.MustCompile(`(?s)data-listing-id[=\s]*["']?(\d+).*?</div>\s*</div>\s*</div>\s*</div>`)
	itemURLPattern       = regexp.MustCompile(`href=["']?(https://www\.ebay\.com/itm/\d+[^"'>\s]*)`)
	imagePattern         = regexp.MustCompile(`src=["']?(https://i\.ebayimg\.com[^"'>\s]+)`)
	imageSizePattern     = regexp.MustCompile(`s-l\d+\.`)
	titlePattern         = regexp.MustCompile(`dne-itemtile-title[^>]*title=["']?([^"']+)`)
	titleFallbackPattern = regexp.MustCompile(`ebayui-ellipsis[^>]*>([^<]+)`)
	pricePattern         = regexp.MustCompile(`itemprop=["']?price["']?[^>]*>\$?([\d,]+\.?\d*)`)
	strikethroughPattern = regexp.MustCompile(`itemtile-price-strikethrough[^>]*>\$?([\d,]+\.?\d*)`)
	discountPattern      = regexp.MustCompile(`(?i)(\d+)%\s*off`)
	numberPattern        = regexp.MustCompile(`[\d,]+\.?\d*`)
)

// ParseTiles extracts deal tiles from one deals page. Tiles without a title,
// an item URL or a positive price are skipped.
func ParseTiles(page string) []models.ScrapedDeal {
	var deals []models.ScrapedDeal

	for _, match := range tilePattern.FindAllStringSubmatch(page, -1) {
		tile, itemID := match[0], match[1]

		itemURL := ""
		if m := itemURLPattern.FindStringSubmatch(tile); m != nil {
			itemURL = decodeItemURL(m[1])
		}

		image := ""
		if m := imagePattern.FindStringSubmatch(tile); m != nil {
			image = imageSizePattern.ReplaceAllString(m[1], "s-l500.")
		}

		title := ""
		if m := titlePattern.FindStringSubmatch(tile); m != nil {
			title = strings.TrimSpace(html.UnescapeString(m[1]))
		} else if m := titleFallbackPattern.FindStringSubmatch(tile); m != nil {
			title = strings.TrimSpace(html.UnescapeString(m[1]))
		}

		price := ""
		if m := pricePattern.FindStringSubmatch(tile); m != nil {
			price = extractNumber(m[1])
		}

		var originalPrice *string
		if m := strikethroughPattern.FindStringSubmatch(tile); m != nil {
			if value := extractNumber(m[1]); value != "" {
				originalPrice = &value
			}
		}

		if title == "" || itemURL == "" || parseFloat(price) <= 0 {
			continue
		}

		deals = append(deals, models.ScrapedDeal{
			ItemID:        itemID,
			Title:         title,
			Image:         image,
			Price:         price,
			OriginalPrice: originalPrice,
			DiscountPct:   discountPercent(tile, price, originalPrice),
			ItemURL:       itemURL,
		})
	}

	return deals
}

// discountPercent prefers an explicit "N% off" label and otherwise derives
// the percentage from the strikethrough price.
func discountPercent(tile, price string, originalPrice *string) *int {
	if m := discountPattern.FindStringSubmatch(tile); m != nil {
		if pct, err := strconv.Atoi(m[1]); err == nil {
			return &pct
		}
	}
	if originalPrice == nil {
		return nil
	}
	original := parseFloat(*originalPrice)
	current := parseFloat(price)
	if original <= 0 || current <= 0 {
		return nil
	}
	pct := int(math.Round((original - current) / original * 100))
	return &pct
}

func decodeItemURL(raw string) string {
	unescaped := html.UnescapeString(raw)
	if decoded, err := url.PathUnescape(unescaped); err == nil {
		return decoded
	}
	return unescaped
}

func extractNumber(value string) string {
	match := numberPattern.FindString(value)
	return strings.ReplaceAll(match, ",", "")
}

func parseFloat(value string) float64 {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return parsed
}
