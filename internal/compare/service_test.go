package compare

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/matthewgall/epicdeals/internal/models"
)

type fakeSearcher struct {
	mu         sync.Mutex
	queries    []string
	results    map[string][]models.WebResult
	err        error
	configured bool
}

func (f *fakeSearcher) Configured() bool { return f.configured }

func (f *fakeSearcher) Search(_ context.Context, query string) ([]models.WebResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

type fakeCompleter struct {
	reply      string
	err        error
	configured bool
	system     string
	prompt     string
}

func (f *fakeCompleter) Configured() bool { return f.configured }

func (f *fakeCompleter) Complete(_ context.Context, system, user string) (string, error) {
	f.system = system
	f.prompt = user
	return f.reply, f.err
}

type fakeRecorder struct {
	recorded *Comparison
	err      error
}

func (f *fakeRecorder) Record(_ context.Context, comparison *Comparison) (string, error) {
	f.recorded = comparison
	if f.err != nil {
		return "", f.err
	}
	return "cmp-1", nil
}

func intPtr(v int) *int { return &v }

var iphoneResults = []models.WebResult{
	{Title: "Apple iPhone 15 Pro 128GB", URL: "https://www.bestbuy.com/site/iphone-15-pro", Description: "$949.00", Site: "www.bestbuy.com"},
	{Title: "iPhone 15 Pro", URL: "https://www.amazon.com/dp/iphone", Description: "$999.00", Site: "www.amazon.com"},
}

func iphoneInput() []ProductInput {
	return []ProductInput{{Index: intPtr(1), Title: "iPhone 15 Pro 128GB Excellent Refurbished", Price: 679.99}}
}

func newIPhoneSearcher() *fakeSearcher {
	return &fakeSearcher{configured: true, results: map[string][]models.WebResult{"iPhone 15 Pro 128GB": iphoneResults}}
}

func TestService_ReconcileDerivesMissingFigures(t *testing.T) {
	searcher := newIPhoneSearcher()
	completer := &fakeCompleter{configured: true, reply: "```json\n" + `{"analysis":[{"index":1,"productName":"iPhone 15 Pro 128GB",` +
		`"retailerPrices":[{"retailer":"Amazon","price":999,"url":"https://www.amazon.com/dp/iphone"},` +
		`{"retailer":"BestBuy","price":949,"url":"https://www.bestbuy.com/site/iphone-15-pro"}]}],` +
		`"topPick":{"index":1,"reason":"28% under new"}}` + "\n```"}

	comparison, err := New(searcher, completer).Reconcile(context.Background(), iphoneInput())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if comparison.Source != SourceSearchAndModel || comparison.Fallback || comparison.RawSearch {
		t.Fatalf("unexpected comparison shape %+v", comparison)
	}
	if len(comparison.Analysis) != 1 {
		t.Fatalf("expected 1 analysis entry, got %d", len(comparison.Analysis))
	}

	item := comparison.Analysis[0]
	if item.LowestNewPrice == nil || *item.LowestNewPrice != 949 || item.LowestRetailer != "BestBuy" {
		t.Fatalf("unexpected lowest price %v / %q", item.LowestNewPrice, item.LowestRetailer)
	}
	if item.Savings == nil || *item.Savings != 269.01 {
		t.Fatalf("unexpected savings %v", item.Savings)
	}
	if item.SavingsPercent == nil || *item.SavingsPercent != 28 {
		t.Fatalf("unexpected savings percent %v", item.SavingsPercent)
	}
	if item.Verdict != models.VerdictGreat {
		t.Fatalf("expected %q, got %q", models.VerdictGreat, item.Verdict)
	}
	if len(item.WebResults) != 2 || item.OriginalTitle != "iPhone 15 Pro 128GB Excellent Refurbished" {
		t.Fatalf("analysis not re-attached to product: %+v", item)
	}
	if comparison.TopPick == nil {
		t.Fatal("expected a top pick")
	}
	if index, ok := comparison.TopPick.Index.Int(); !ok || index != 1 {
		t.Fatalf("unexpected top pick %+v", comparison.TopPick)
	}

	if !strings.Contains(completer.prompt, `PRODUCT #1: "iPhone 15 Pro 128GB"`) ||
		!strings.Contains(completer.prompt, "Refurbished Price: $679.99") ||
		!strings.Contains(completer.prompt, "- [www.bestbuy.com] Apple iPhone 15 Pro 128GB: $949.00 (https://www.bestbuy.com/site/iphone-15-pro)") {
		t.Fatalf("unexpected prompt:\n%s", completer.prompt)
	}
	if completer.system != SystemPrompt {
		t.Fatalf("unexpected system prompt %q", completer.system)
	}
}

func TestService_ReconcileKeepsModelFigures(t *testing.T) {
	completer := &fakeCompleter{configured: true, reply: `{"analysis":[{"index":1,"productName":"iPhone",` +
		`"retailerPrices":[{"retailer":"Apple","price":999,"url":"u"}],"lowestNewPrice":999,"lowestRetailer":"Apple",` +
		`"savings":319,"savingsPercent":32,"verdict":"Great deal"},{"index":7,"productName":"ghost"}],"summary":"s"}`}

	comparison, err := New(newIPhoneSearcher(), completer).Reconcile(context.Background(), iphoneInput())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(comparison.Analysis) != 1 {
		t.Fatalf("expected the unknown index to be dropped, got %d entries", len(comparison.Analysis))
	}
	item := comparison.Analysis[0]
	if *item.LowestNewPrice != 999 || item.LowestRetailer != "Apple" || *item.Savings != 319 || *item.SavingsPercent != 32 {
		t.Fatalf("model figures were not kept: %+v", item)
	}
	if comparison.Summary != "s" || comparison.TopPick != nil {
		t.Fatalf("unexpected summary/topPick %q %+v", comparison.Summary, comparison.TopPick)
	}
}

func TestService_ReconcileCompletionFailureFallsBack(t *testing.T) {
	products := []ProductInput{
		{Title: "iPhone 15 Pro 128GB Excellent Refurbished", Price: 679.99},
		{Title: "Dyson V11 Refurbished", Price: "299.00", Condition: "Used"},
	}
	completer := &fakeCompleter{configured: true, err: errors.New("timeout")}

	comparison, err := New(newIPhoneSearcher(), completer).Reconcile(context.Background(), products)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if !comparison.Fallback || comparison.Source != "" {
		t.Fatalf("expected fallback shape, got %+v", comparison)
	}
	if len(comparison.Analysis) != len(products) {
		t.Fatalf("expected %d entries, got %d", len(products), len(comparison.Analysis))
	}
	for i, item := range comparison.Analysis {
		if item.Index != i+1 {
			t.Errorf("entry %d has index %d", i, item.Index)
		}
		if item.Verdict != models.VerdictCheckManual || item.PriceNote != noteModelUnavailable {
			t.Errorf("entry %d not degraded: %+v", i, item)
		}
		if item.WebResults == nil {
			t.Errorf("entry %d has nil webResults", i)
		}
	}
	if len(comparison.Analysis[0].WebResults) != 2 {
		t.Errorf("expected snippets on first entry, got %d", len(comparison.Analysis[0].WebResults))
	}
	if comparison.Products[1].Condition != "Used" || comparison.Products[0].Condition != defaultCondition {
		t.Errorf("unexpected conditions %+v", comparison.Products)
	}
}

func TestService_ReconcileUnparsableUsesFirstSnippet(t *testing.T) {
	products := []ProductInput{
		{Index: intPtr(1), Title: "iPhone 15 Pro 128GB Excellent Refurbished", Price: 679.99},
		{Index: intPtr(2), Title: "Mystery gadget"},
	}
	completer := &fakeCompleter{configured: true, reply: "Sorry, I cannot help with that."}

	comparison, err := New(newIPhoneSearcher(), completer).Reconcile(context.Background(), products)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if !comparison.RawSearch {
		t.Fatalf("expected rawSearch shape, got %+v", comparison)
	}
	first := comparison.Analysis[0]
	if first.RetailerURL == nil || *first.RetailerURL != iphoneResults[0].URL || first.Retailer != "www.bestbuy.com" {
		t.Fatalf("unexpected first entry %+v", first)
	}
	second := comparison.Analysis[1]
	if second.RetailerURL != nil || second.Retailer != "Search" || second.PriceNote != noteCompare {
		t.Fatalf("unexpected second entry %+v", second)
	}
	if second.RefurbPrice != "N/A" {
		t.Fatalf("expected N/A refurb price, got %v", second.RefurbPrice)
	}
}

func TestService_ReconcileSearchFailureStillCompletes(t *testing.T) {
	searcher := &fakeSearcher{configured: true, err: errors.New("brave down")}
	completer := &fakeCompleter{configured: true, reply: `{"analysis":[{"index":1,"savingsPercent":12}]}`}

	comparison, err := New(searcher, completer).Reconcile(context.Background(), iphoneInput())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	item := comparison.Analysis[0]
	if item.Verdict != models.VerdictGood {
		t.Fatalf("expected verdict from percent, got %q", item.Verdict)
	}
	if item.WebResults == nil || len(item.WebResults) != 0 {
		t.Fatalf("expected empty webResults, got %v", item.WebResults)
	}
	if !strings.Contains(completer.prompt, "Web Search Results:") {
		t.Fatalf("prompt missing results header:\n%s", completer.prompt)
	}
}

func TestService_ReconcileLimitsAndOrdersProducts(t *testing.T) {
	searcher := &fakeSearcher{configured: true}
	completer := &fakeCompleter{configured: true, err: errors.New("skip")}

	var products []ProductInput
	for _, title := range []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf"} {
		products = append(products, ProductInput{Title: title, Price: 10.0})
	}

	comparison, err := New(searcher, completer).Reconcile(context.Background(), products)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(comparison.Products) != MaxProducts || len(searcher.queries) != MaxProducts {
		t.Fatalf("expected %d products researched, got %d/%d", MaxProducts, len(comparison.Products), len(searcher.queries))
	}

	last := -1
	for _, name := range []string{"alpha", "bravo", "charlie", "delta", "echo"} {
		pos := strings.Index(completer.prompt, `"`+name+`"`)
		if pos <= last {
			t.Fatalf("prompt blocks out of order at %q:\n%s", name, completer.prompt)
		}
		last = pos
	}
}

func TestService_ReconcileErrors(t *testing.T) {
	configured := New(&fakeSearcher{configured: true}, &fakeCompleter{configured: true})
	if _, err := configured.Reconcile(context.Background(), nil); !errors.Is(err, ErrNoProducts) {
		t.Fatalf("expected ErrNoProducts, got %v", err)
	}

	missing := New(&fakeSearcher{configured: true}, &fakeCompleter{})
	if _, err := missing.Reconcile(context.Background(), iphoneInput()); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestService_ReconcileRecords(t *testing.T) {
	recorder := &fakeRecorder{}
	completer := &fakeCompleter{configured: true, err: errors.New("skip")}

	comparison, err := New(newIPhoneSearcher(), completer, WithRecorder(recorder)).Reconcile(context.Background(), iphoneInput())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if recorder.recorded != comparison || comparison.ArchiveID != "cmp-1" {
		t.Fatalf("comparison not recorded: %+v", comparison)
	}

	failing := &fakeRecorder{err: errors.New("disk full")}
	comparison, err = New(newIPhoneSearcher(), completer, WithRecorder(failing)).Reconcile(context.Background(), iphoneInput())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if comparison.ArchiveID != "" {
		t.Fatalf("expected no archive id, got %q", comparison.ArchiveID)
	}
}

func TestService_ReconcileVerdictFollowsSavingsPercent(t *testing.T) {
	tests := []struct {
		name  string
		entry string
		want  models.Verdict
	}{
		{"model contradicts percent", `"savingsPercent":3,"verdict":"Great deal"`, models.VerdictNotWorthIt},
		{"derived percent wins", `"retailerPrices":[{"retailer":"Apple","price":700}],"verdict":"Great deal"`, models.VerdictNotWorthIt},
		{"label without figures", `"verdict":"Good deal"`, models.VerdictGood},
		{"unknown label without figures", `"verdict":"Steal!"`, models.VerdictCheckManual},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &fakeCompleter{configured: true, reply: `{"analysis":[{"index":1,` + tt.entry + `}]}`}
			comparison, err := New(newIPhoneSearcher(), completer).Reconcile(context.Background(), iphoneInput())
			if err != nil {
				t.Fatalf("Reconcile() error = %v", err)
			}
			if got := comparison.Analysis[0].Verdict; got != tt.want {
				t.Fatalf("verdict = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestService_ReconcileSkipsUnpricedRetailers(t *testing.T) {
	completer := &fakeCompleter{configured: true, reply: `{"analysis":[{"index":"1","retailerPrices":[` +
		`{"retailer":"eBay","price":"N/A","url":"e"},{"retailer":"Amazon","price":999,"url":"a"}]}],` +
		`"topPick":{"index":"1","reason":"only one"}}`}

	comparison, err := New(newIPhoneSearcher(), completer).Reconcile(context.Background(), iphoneInput())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if comparison.RawSearch || comparison.Source != SourceSearchAndModel {
		t.Fatalf("expected the model answer to be used, got %+v", comparison)
	}
	item := comparison.Analysis[0]
	if len(item.RetailerPrices) != 1 || item.RetailerPrices[0].Retailer != "Amazon" {
		t.Fatalf("unexpected retailer prices %+v", item.RetailerPrices)
	}
	if item.LowestNewPrice == nil || *item.LowestNewPrice != 999 || item.Verdict != models.VerdictGreat {
		t.Fatalf("unexpected analysis %+v", item)
	}
}

func TestService_ReconcileEmptyAnswerUsesRawSearch(t *testing.T) {
	completer := &fakeCompleter{configured: true, reply: ""}

	comparison, err := New(newIPhoneSearcher(), completer).Reconcile(context.Background(), iphoneInput())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if !comparison.RawSearch || comparison.Fallback {
		t.Fatalf("expected rawSearch shape for an empty answer, got %+v", comparison)
	}
}
