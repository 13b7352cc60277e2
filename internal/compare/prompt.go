package compare

import (
	"fmt"
	"strconv"
	"strings"
)

// SystemPrompt frames the completion as a price extraction task.
const SystemPrompt = "You analyze web search results to find real product prices. " +
	"Extract actual prices from the search result titles and descriptions. " +
	"Always provide real URLs from the search results. Respond with valid JSON only."

const promptInstructions = `INSTRUCTIONS:
1. From the search results, find every new retail price from every retailer (Amazon, Best Buy, Walmart, Target, etc.)
2. Extract the price number from titles and descriptions such as "$79", "79.99" or "$79.99"
3. Return every retailer price found, not only the lowest
4. Include the URL of each retailer result

Return ONLY valid JSON:
{
  "analysis": [
    {
      "index": 1,
      "productName": "Short clear name",
      "refurbPrice": 59,
      "retailerPrices": [
        {"retailer": "Amazon", "price": 79, "url": "https://amazon.com/..."},
        {"retailer": "Best Buy", "price": 85, "url": "https://bestbuy.com/..."}
      ],
      "lowestNewPrice": 79,
      "lowestRetailer": "Amazon",
      "savings": 20,
      "savingsPercent": 25,
      "verdict": "Great deal"
    }
  ],
  "topPick": {
    "index": 1,
    "reason": "Best savings at 25% off vs new"
  }
}

VERDICT RULES:
- Great deal = 20%+ savings
- Good deal = 10-19% savings
- Fair deal = 5-9% savings
- Not worth it = <5% savings`

// BuildPrompt renders one block per researched product, in input order.
func BuildPrompt(products []ProductResult) string {
	blocks := make([]string, 0, len(products))
	for _, product := range products {
		blocks = append(blocks, productBlock(product))
	}

	var b strings.Builder
	b.WriteString("I searched for new retail prices for these refurbished products. ")
	b.WriteString("Analyze the search results below and extract all prices from all retailers.\n\n")
	b.WriteString(strings.Join(blocks, "\n\n"))
	b.WriteString("\n\n")
	b.WriteString(promptInstructions)
	return b.String()
}

func productBlock(product ProductResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PRODUCT #%d: \"%s\"\n", product.Index, product.SearchQuery)
	fmt.Fprintf(&b, "Refurbished Price: $%s\n", formatPrice(product.RefurbPrice))
	b.WriteString("Web Search Results:")
	for _, result := range product.WebResults {
		fmt.Fprintf(&b, "\n- [%s] %s: %s (%s)", result.Site, result.Title, result.Description, result.URL)
	}
	return b.String()
}

func formatPrice(value any) string {
	switch v := value.(type) {
	case nil:
		return "N/A"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		if strings.TrimSpace(v) == "" {
			return "N/A"
		}
		return v
	default:
		return fmt.Sprint(v)
	}
}
