package normalize

import (
	"testing"

	"warrant-sniper/internal/models"
	"warrant-sniper/internal/transport"
)

func TestNormalizeAliasPrecedence(t *testing.T) {
	// When several aliases are present, the highest-ranked one wins.
	raw := transport.RawItem{
		"id":     "031001",
		"symbol": "ignored",
		"price":  1.25,
		"close":  9.99,
		"lev":    4.5,
	}
	w := Normalize(raw, "2330")

	if w.ID != "031001" {
		t.Errorf("ID = %q, want 031001", w.ID)
	}
	if w.Symbol != "031001" {
		t.Errorf("Symbol = %q, want 031001", w.Symbol)
	}
	if w.Price != 1.25 {
		t.Errorf("Price = %v, want 1.25", w.Price)
	}
	if w.EffectiveLeverage != 4.5 {
		t.Errorf("EffectiveLeverage = %v, want 4.5", w.EffectiveLeverage)
	}
}

func TestNormalizeLowerRankedAliasFallback(t *testing.T) {
	raw := transport.RawItem{
		"symbol":   "031002",
		"last":     0.87,
		"leverage": 3.2,
		"dtm":      float64(120),
	}
	w := Normalize(raw, "2330")

	if w.ID != "031002" {
		t.Errorf("ID = %q, want 031002", w.ID)
	}
	if w.Price != 0.87 {
		t.Errorf("Price = %v, want 0.87", w.Price)
	}
	if w.EffectiveLeverage != 3.2 {
		t.Errorf("EffectiveLeverage = %v, want 3.2", w.EffectiveLeverage)
	}
	if w.DaysToMaturity != 120 {
		t.Errorf("DaysToMaturity = %v, want 120", w.DaysToMaturity)
	}
}

func TestNormalizeMissingFieldsGetDefaults(t *testing.T) {
	w := Normalize(transport.RawItem{}, "2330")

	if w.ID != "N/A" {
		t.Errorf("ID = %q, want N/A", w.ID)
	}
	if w.Name != "N/A" {
		t.Errorf("Name = %q, want N/A", w.Name)
	}
	if w.Broker != "N/A" {
		t.Errorf("Broker = %q, want N/A", w.Broker)
	}
	if w.Price != 0 || w.Volume != 0 || w.EffectiveLeverage != 0 {
		t.Errorf("numeric defaults not zero: %+v", w)
	}
	if w.UnderlyingSymbol != "2330" {
		t.Errorf("UnderlyingSymbol = %q, want search code fallback", w.UnderlyingSymbol)
	}
}

func TestNormalizeTypeInference(t *testing.T) {
	tests := []struct {
		name string
		raw  transport.RawItem
		want models.WarrantType
	}{
		{"explicit call tag", transport.RawItem{"type": "call", "name": "元大86售01"}, models.WarrantCall},
		{"explicit put tag beats name marker", transport.RawItem{"type": "put", "name": "元大86購01"}, models.WarrantPut},
		{"call marker in name", transport.RawItem{"name": "凱基91購05"}, models.WarrantCall},
		{"no marker means put", transport.RawItem{"name": "凱基91售05"}, models.WarrantPut},
		{"empty item defaults to put", transport.RawItem{}, models.WarrantPut},
		{"case-insensitive tag", transport.RawItem{"type": "CALL"}, models.WarrantCall},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.raw, "2330").Type; got != tt.want {
				t.Errorf("Type = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeUnderlyingName(t *testing.T) {
	tests := []struct {
		name string
		raw  transport.RawItem
		code string
		want string
	}{
		{
			"explicit name wins",
			transport.RawItem{"underlying_name": "台積電", "name": "元大台積電購01"},
			"2330", "台積電",
		},
		{
			"numeric explicit name is rejected",
			transport.RawItem{"underlying_name": "2330", "name": "元大台積電購01"},
			"2330", "元大台積",
		},
		{
			"prefix heuristic drops trailing two runes",
			transport.RawItem{"name": "凱基聯發科購05"},
			"2454", "凱基聯發",
		},
		{
			"digit-leading name kept whole",
			transport.RawItem{"name": "2330購01"},
			"2330", "2330購01",
		},
		{
			"short prefix kept whole",
			transport.RawItem{"name": "台積96購"},
			"2330", "台積",
		},
		{
			"empty item falls back to search code",
			transport.RawItem{},
			"2330", "2330",
		},
		{
			"nothing at all yields placeholder",
			transport.RawItem{},
			"", "N/A",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.raw, tt.code).UnderlyingName; got != tt.want {
				t.Errorf("UnderlyingName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeDepthOverridesFlatQuotes(t *testing.T) {
	raw := transport.RawItem{
		"best_bid_price": 0.50,
		"best_ask_price": 0.60,
		"bids": []interface{}{
			map[string]interface{}{"price": 0.55, "volume": 100.0},
			map[string]interface{}{"price": 0.54, "volume": 80.0},
		},
		"asks": []interface{}{
			map[string]interface{}{"price": 0.56, "volume": 90.0},
		},
	}
	w := Normalize(raw, "2330")

	if w.BestBidPrice != 0.55 || w.BestBidVol != 100 {
		t.Errorf("best bid = %v/%v, want depth head 0.55/100", w.BestBidPrice, w.BestBidVol)
	}
	if w.BestAskPrice != 0.56 || w.BestAskVol != 90 {
		t.Errorf("best ask = %v/%v, want depth head 0.56/90", w.BestAskPrice, w.BestAskVol)
	}
	if len(w.Bids) != 2 || len(w.Asks) != 1 {
		t.Errorf("depth lengths = %d/%d, want 2/1", len(w.Bids), len(w.Asks))
	}
}

func TestNormalizeDepthSkipsMalformedEntries(t *testing.T) {
	raw := transport.RawItem{
		"bids": []interface{}{
			"not an object",
			map[string]interface{}{"price": -1.0, "volume": 10.0},
			map[string]interface{}{"price": 0.40, "volume": 25.0},
		},
	}
	w := Normalize(raw, "2330")

	if len(w.Bids) != 1 {
		t.Fatalf("Bids length = %d, want 1", len(w.Bids))
	}
	if w.Bids[0].Price != 0.40 {
		t.Errorf("surviving entry price = %v, want 0.40", w.Bids[0].Price)
	}
}

func TestNormalizeNumericCoercion(t *testing.T) {
	tests := []struct {
		name string
		raw  transport.RawItem
		want float64
	}{
		{"int32", transport.RawItem{"volume": int32(500)}, 500},
		{"int64", transport.RawItem{"volume": int64(1200)}, 1200},
		{"string number", transport.RawItem{"volume": "340"}, 340},
		{"unparseable string", transport.RawItem{"volume": "many"}, 0},
		{"bool rejected", transport.RawItem{"volume": true}, 0},
		{"nil rejected", transport.RawItem{"volume": nil}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.raw, "2330").Volume; got != tt.want {
				t.Errorf("Volume = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeNegativeDaysClampedToZero(t *testing.T) {
	w := Normalize(transport.RawItem{"days": -30.0}, "2330")
	if w.DaysToMaturity != 0 {
		t.Errorf("DaysToMaturity = %d, want 0", w.DaysToMaturity)
	}
}
