package compare

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DecodeKind says how a completion's text was interpreted.
type DecodeKind int

const (
	DecodeStrict DecodeKind = iota
	DecodeFenced
	DecodeUnparsable
)

func (k DecodeKind) String() string {
	switch k {
	case DecodeStrict:
		return "strict"
	case DecodeFenced:
		return "fenced"
	default:
		return "unparsable"
	}
}

var (
	fencedBlock = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")

	errMissingAnalysis = errors.New("completion has no analysis array")
)

// Decoded is the result of DecodeAnalysis. Payload is nil when Kind is DecodeUnparsable.
type Decoded struct {
	Kind    DecodeKind
	Payload *AnalysisPayload
	Err     error
}

type AnalysisPayload struct {
	Analysis []AnalysisEntry `json:"analysis"`
	TopPick  *TopPick        `json:"topPick"`
	Summary  string          `json:"summary"`
}

// AnalysisEntry is one product as answered by the model, before it is merged with local data.
type AnalysisEntry struct {
	Index          Number          `json:"index"`
	ProductName    string          `json:"productName"`
	RetailerPrices []RetailerEntry `json:"retailerPrices"`
	LowestNewPrice Number          `json:"lowestNewPrice"`
	LowestRetailer string          `json:"lowestRetailer"`
	Savings        Number          `json:"savings"`
	SavingsPercent Number          `json:"savingsPercent"`
	Verdict        string          `json:"verdict"`
}

type RetailerEntry struct {
	Retailer string `json:"retailer"`
	Price    Number `json:"price"`
	URL      string `json:"url"`
}

type TopPick struct {
	Index  Number `json:"index"`
	Reason string `json:"reason"`
}

// Number accepts a JSON number or a numeric string such as "$1,299.99".
// Strings that do not hold a single number ("N/A", "$79-$99") leave it unset
// rather than failing the whole answer.
type Number struct {
	value float64
	valid bool
}

func NewNumber(value float64) Number {
	return Number{value: value, valid: true}
}

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		if value, ok := parseNumber(text); ok {
			*n = NewNumber(value)
		}
		return nil
	}
	var value float64
	if err := json.Unmarshal(data, &value); err != nil {
		return nil
	}
	*n = NewNumber(value)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.value)
}

// Float reports the value and whether one was given.
func (n Number) Float() (float64, bool) {
	return n.value, n.valid
}

// Int is Float for whole-number fields such as product indexes.
func (n Number) Int() (int, bool) {
	if !n.valid || n.value != math.Trunc(n.value) {
		return 0, false
	}
	return int(n.value), true
}

// DecodeAnalysis reads the model's answer. A fenced code block wins over the full text.
func DecodeAnalysis(text string) Decoded {
	kind := DecodeStrict
	body := strings.TrimSpace(text)
	if match := fencedBlock.FindStringSubmatch(text); match != nil && strings.TrimSpace(match[1]) != "" {
		kind = DecodeFenced
		body = strings.TrimSpace(match[1])
	}

	var payload AnalysisPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return Decoded{Kind: DecodeUnparsable, Err: fmt.Errorf("decoding completion: %w", err)}
	}
	if payload.Analysis == nil {
		return Decoded{Kind: DecodeUnparsable, Err: errMissingAnalysis}
	}
	return Decoded{Kind: kind, Payload: &payload}
}

func parseNumber(text string) (float64, bool) {
	clean := strings.NewReplacer("$", "", ",", "", "USD", "", " ", "").Replace(strings.TrimSpace(text))
	if clean == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}
