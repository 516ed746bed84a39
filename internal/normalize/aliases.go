package normalize

// Ranked field-name candidates per logical attribute. The backend has
// shipped several payload versions with different key names; the first
// present candidate wins, so order encodes precedence.

var (
	idAliases     = []string{"id", "symbol", "code"}
	nameAliases   = []string{"name", "warrant_name"}
	brokerAliases = []string{"broker", "issuer"}

	underlyingSymbolAliases = []string{"underlying", "underlying_symbol", "stock_code"}
	underlyingNameAliases   = []string{"underlying_name", "stock_name"}

	priceAliases  = []string{"price", "close", "last"}
	strikeAliases = []string{"strike", "strike_price"}
	volumeAliases = []string{"volume", "total_volume", "vol"}

	bestBidPriceAliases = []string{"best_bid_price", "bid", "bid_price", "buy_price"}
	bestBidVolAliases   = []string{"best_bid_vol", "bid_volume", "buy_volume"}
	bestAskPriceAliases = []string{"best_ask_price", "ask", "ask_price", "sell_price"}
	bestAskVolAliases   = []string{"best_ask_vol", "ask_volume", "sell_volume"}

	leverageAliases = []string{"lev", "leverage", "effective_leverage"}
	thetaAliases    = []string{"theta_pct", "theta", "daily_theta_cost_pct"}
	daysAliases     = []string{"days", "days_to_maturity", "dtm"}
	ivAliases       = []string{"iv", "implied_volatility"}
	spreadAliases   = []string{"spread", "spread_pct"}

	typeAliases = []string{"type", "warrant_type", "kind"}

	bidsAliases = []string{"bids", "bid_depth"}
	asksAliases = []string{"asks", "ask_depth"}
)
