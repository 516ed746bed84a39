// Package normalize converts raw backend records into canonical
// Warrant values. It is pure and total: any object shape, however
// malformed, maps to a fully-populated Warrant without panicking.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"

	"warrant-sniper/internal/models"
	"warrant-sniper/internal/transport"
)

const (
	// placeholder fills string fields the backend omitted.
	placeholder = "N/A"
	// callMarker is the character Taiwanese call-warrant names carry.
	callMarker = "購"
)

// Normalize maps one raw backend item to a canonical Warrant. The
// stock code is the user's search input, used as the last-resort
// underlying identity.
func Normalize(raw transport.RawItem, stockCode string) models.Warrant {
	w := models.Warrant{
		ID:               stringField(raw, idAliases, placeholder),
		Name:             stringField(raw, nameAliases, placeholder),
		Broker:           stringField(raw, brokerAliases, placeholder),
		UnderlyingSymbol: stringField(raw, underlyingSymbolAliases, stockCode),

		Price:             numericField(raw, priceAliases),
		StrikePrice:       numericField(raw, strikeAliases),
		Volume:            numericField(raw, volumeAliases),
		BestBidPrice:      numericField(raw, bestBidPriceAliases),
		BestBidVol:        numericField(raw, bestBidVolAliases),
		BestAskPrice:      numericField(raw, bestAskPriceAliases),
		BestAskVol:        numericField(raw, bestAskVolAliases),
		EffectiveLeverage: numericField(raw, leverageAliases),
		ThetaPercent:      numericField(raw, thetaAliases),
		ImpliedVolatility: numericField(raw, ivAliases),
		SpreadPercent:     numericField(raw, spreadAliases),
	}
	w.Symbol = w.ID
	w.DaysToMaturity = nonNegativeInt(numericField(raw, daysAliases))

	w.Bids = depthField(raw, bidsAliases)
	w.Asks = depthField(raw, asksAliases)

	// Depth-derived best prices take precedence over flat aliases.
	if len(w.Bids) > 0 {
		w.BestBidPrice = w.Bids[0].Price
		w.BestBidVol = w.Bids[0].Volume
	}
	if len(w.Asks) > 0 {
		w.BestAskPrice = w.Asks[0].Price
		w.BestAskVol = w.Asks[0].Volume
	}

	w.Type = warrantType(raw, w.Name)
	w.UnderlyingName = underlyingName(raw, w.Name, stockCode)

	if w.UnderlyingSymbol == "" {
		w.UnderlyingSymbol = stockCode
	}
	if w.UnderlyingSymbol == "" {
		w.UnderlyingSymbol = placeholder
	}

	return w
}

// warrantType derives the classification once. An explicit tag wins;
// otherwise the call marker in the instrument name decides.
func warrantType(raw transport.RawItem, name string) models.WarrantType {
	for _, key := range typeAliases {
		v, ok := raw[key]
		if !ok {
			continue
		}
		if s, ok := v.(string); ok && s != "" {
			if strings.EqualFold(strings.TrimSpace(s), "call") {
				return models.WarrantCall
			}
			return models.WarrantPut
		}
	}
	if strings.Contains(name, callMarker) {
		return models.WarrantCall
	}
	return models.WarrantPut
}

// underlyingName resolves a display name for the underlying stock.
// An explicit backend name wins unless it looks like a bare code; the
// fallback strips a presumed 2-character broker tag off the leading
// non-digit prefix of the instrument name.
func underlyingName(raw transport.RawItem, name, stockCode string) string {
	explicit := stringField(raw, underlyingNameAliases, "")
	if explicit != "" && !isNumericString(explicit) {
		return explicit
	}

	if name != "" && name != placeholder {
		runes := []rune(name)
		if unicode.IsDigit(runes[0]) {
			return name
		}
		prefix := leadingNonDigits(runes)
		if len(prefix) >= 4 {
			return string(prefix[:len(prefix)-2])
		}
		if len(prefix) > 0 {
			return string(prefix)
		}
	}

	if stockCode != "" {
		return stockCode
	}
	return placeholder
}

func leadingNonDigits(runes []rune) []rune {
	for i, r := range runes {
		if unicode.IsDigit(r) {
			return runes[:i]
		}
	}
	return runes
}

func isNumericString(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// stringField returns the first present non-empty string candidate.
func stringField(raw transport.RawItem, aliases []string, fallback string) string {
	for _, key := range aliases {
		v, ok := raw[key]
		if !ok {
			continue
		}
		if s, ok := v.(string); ok {
			s = strings.TrimSpace(s)
			if s != "" {
				return s
			}
		}
	}
	return fallback
}

// numericField returns the first present coercible numeric candidate,
// defaulting to 0. The result is never NaN or infinite.
func numericField(raw transport.RawItem, aliases []string) float64 {
	for _, key := range aliases {
		v, ok := raw[key]
		if !ok {
			continue
		}
		if f, ok := coerceNumber(v); ok {
			return f
		}
	}
	return 0
}

// coerceNumber converts the value types the bson and json decoders
// produce. Anything else reports false.
func coerceNumber(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func nonNegativeInt(f float64) int {
	if f < 0 {
		return 0
	}
	return int(f)
}

// depthField decodes an ordered best-first depth array. Entries that
// are not {price, volume} objects are skipped.
func depthField(raw transport.RawItem, aliases []string) []models.OrderBookEntry {
	for _, key := range aliases {
		v, ok := raw[key]
		if !ok {
			continue
		}
		list, ok := v.([]interface{})
		if !ok {
			continue
		}
		entries := make([]models.OrderBookEntry, 0, len(list))
		for _, item := range list {
			entry, ok := depthEntry(item)
			if !ok {
				continue
			}
			entries = append(entries, entry)
		}
		if len(entries) > 0 {
			return entries
		}
	}
	return nil
}

func depthEntry(v interface{}) (models.OrderBookEntry, bool) {
	m, ok := v.(map[string]interface{})
	if !ok {
		if raw, isRaw := v.(transport.RawItem); isRaw {
			m = raw
		} else {
			return models.OrderBookEntry{}, false
		}
	}
	price, okP := coerceNumber(m["price"])
	volume, _ := coerceNumber(m["volume"])
	if !okP || price <= 0 {
		return models.OrderBookEntry{}, false
	}
	return models.OrderBookEntry{Price: price, Volume: volume}, true
}
