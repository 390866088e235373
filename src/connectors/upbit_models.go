package connectors

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Upbit sends most amounts as strings; they stay strings here and are parsed at
// the point of use so a single malformed field does not fail the whole payload.

type UpbitAccount struct {
	Currency     string `json:"currency"`
	Balance      string `json:"balance"`
	Locked       string `json:"locked"`
	AvgBuyPrice  string `json:"avg_buy_price"`
	UnitCurrency string `json:"unit_currency"`
}

type UpbitOrderChance struct {
	BidFee     string             `json:"bid_fee"`
	AskFee     string             `json:"ask_fee"`
	BidAccount *UpbitAccount      `json:"bid_account"`
	AskAccount *UpbitAccount      `json:"ask_account"`
	Market     *UpbitChanceMarket `json:"market"`
}

type UpbitChanceMarket struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	MaxTotal json.RawMessage `json:"max_total"`
}

// MaxTotalValue returns market.max_total, which is either a bare string or an
// object carrying {currency, max_total}.
func (m *UpbitChanceMarket) MaxTotalValue() string {
	if m == nil || len(m.MaxTotal) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(m.MaxTotal, &s); err == nil {
		return s
	}
	var obj struct {
		Currency string `json:"currency"`
		MaxTotal string `json:"max_total"`
	}
	if err := json.Unmarshal(m.MaxTotal, &obj); err == nil {
		return obj.MaxTotal
	}
	return ""
}

type UpbitTicker struct {
	Market     string              `json:"market"`
	TradePrice decimal.NullDecimal `json:"trade_price"`
}

type UpbitDayCandle struct {
	Market               string              `json:"market"`
	CandleDateTimeUTC    string              `json:"candle_date_time_utc"`
	OpeningPrice         decimal.NullDecimal `json:"opening_price"`
	HighPrice            decimal.NullDecimal `json:"high_price"`
	LowPrice             decimal.NullDecimal `json:"low_price"`
	TradePrice           decimal.NullDecimal `json:"trade_price"`
	CandleAccTradeVolume decimal.NullDecimal `json:"candle_acc_trade_volume"`
}

type UpbitOrder struct {
	UUID            string       `json:"uuid"`
	Side            string       `json:"side"`
	OrdType         string       `json:"ord_type"`
	Price           string       `json:"price"`
	State           string       `json:"state"`
	Market          string       `json:"market"`
	CreatedAt       string       `json:"created_at"`
	Volume          string       `json:"volume"`
	RemainingVolume string       `json:"remaining_volume"`
	PaidFee         string       `json:"paid_fee"`
	ExecutedVolume  string       `json:"executed_volume"`
	TradesCount     int          `json:"trades_count"`
	Trades          []UpbitTrade `json:"trades"`
}

type UpbitTrade struct {
	Market    string `json:"market"`
	UUID      string `json:"uuid"`
	Price     string `json:"price"`
	Volume    string `json:"volume"`
	Funds     string `json:"funds"`
	Side      string `json:"side"`
	CreatedAt string `json:"created_at"`
}

// Upbit order wire values.
const (
	UpbitSideBid = "bid"
	UpbitSideAsk = "ask"

	UpbitOrdTypeLimit  = "limit"
	UpbitOrdTypePrice  = "price"
	UpbitOrdTypeMarket = "market"

	UpbitStateWait   = "wait"
	UpbitStateDone   = "done"
	UpbitStateCancel = "cancel"
)

// UpbitOrderRequest is the POST /v1/orders body. Empty fields are left out.
type UpbitOrderRequest struct {
	Market     string
	Side       string
	OrdType    string
	Volume     string
	Price      string
	Identifier string
}

func (r UpbitOrderRequest) params() map[string]string {
	out := map[string]string{
		"market":   r.Market,
		"side":     r.Side,
		"ord_type": r.OrdType,
	}
	if r.Volume != "" {
		out["volume"] = r.Volume
	}
	if r.Price != "" {
		out["price"] = r.Price
	}
	if r.Identifier != "" {
		out["identifier"] = r.Identifier
	}
	return out
}

// AssetCurrency returns the part after the dash of a market code ("KRW-BTC" -> "BTC").
func AssetCurrency(market string) (string, bool) {
	_, asset, ok := strings.Cut(market, "-")
	if !ok || asset == "" {
		return "", false
	}
	return asset, true
}

// QuoteCurrency returns the part before the dash ("KRW-BTC" -> "KRW").
func QuoteCurrency(market string) (string, bool) {
	quote, _, ok := strings.Cut(market, "-")
	if !ok || quote == "" {
		return "", false
	}
	return quote, true
}
