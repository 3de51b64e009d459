package bybit

import (
	"encoding/json"
	"strconv"

	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/domain"
)

// apiResponse is the envelope wrapped around every v5 REST response. The
// result payload is decoded per endpoint.
type apiResponse struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
}

// --------------------------------------------------------------------------
// REST DTOs
// --------------------------------------------------------------------------

// APIInstrument is one spot instrument as returned by
// GET /v5/market/instruments-info.
type APIInstrument struct {
	Symbol      string `json:"symbol"`
	BaseCoin    string `json:"baseCoin"`
	QuoteCoin   string `json:"quoteCoin"`
	Status      string `json:"status"`
	PriceFilter struct {
		TickSize string `json:"tickSize"`
	} `json:"priceFilter"`
}

// ToDomainInstrument converts the API shape into the domain instrument.
func (a APIInstrument) ToDomainInstrument() domain.Instrument {
	return domain.Instrument{
		Symbol:    a.Symbol,
		BaseCoin:  a.BaseCoin,
		QuoteCoin: a.QuoteCoin,
		TickSize:  a.PriceFilter.TickSize,
	}
}

// APIFeeRate is one symbol's fee schedule entry as returned by
// GET /v5/account/fee-rate. Rates arrive as decimal strings.
type APIFeeRate struct {
	Symbol       string `json:"symbol"`
	TakerFeeRate string `json:"takerFeeRate"`
	MakerFeeRate string `json:"makerFeeRate"`
}

// ToDomainFeeRate parses the string rates. Unparseable fields come back as
// zero, which the engine treats as a schedule miss at the default rate.
func (a APIFeeRate) ToDomainFeeRate() domain.FeeRate {
	maker, _ := strconv.ParseFloat(a.MakerFeeRate, 64)
	taker, _ := strconv.ParseFloat(a.TakerFeeRate, 64)
	return domain.FeeRate{Maker: maker, Taker: taker}
}

// APICoinBalance is one coin entry of a wallet-balance account row.
type APICoinBalance struct {
	Coin          string `json:"coin"`
	WalletBalance string `json:"walletBalance"`
	Equity        string `json:"equity"`
}

// CoinBalance is a parsed wallet balance for one coin.
type CoinBalance struct {
	Coin    string
	Balance float64
	Equity  float64
}

func (a APICoinBalance) ToCoinBalance() CoinBalance {
	bal, _ := strconv.ParseFloat(a.WalletBalance, 64)
	eq, _ := strconv.ParseFloat(a.Equity, 64)
	return CoinBalance{Coin: a.Coin, Balance: bal, Equity: eq}
}

// --------------------------------------------------------------------------
// WebSocket DTOs
// --------------------------------------------------------------------------

// wsCommand is an outbound control frame: subscribe, unsubscribe, ping.
type wsCommand struct {
	Op   string   `json:"op"`
	Args []string `json:"args,omitempty"`
}

// wsMessage is one inbound public-stream frame. Control acknowledgements
// carry Op; data frames carry Topic and Data.
type wsMessage struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`
	TS      int64           `json:"ts"`
	Op      string          `json:"op"`
	Success *bool           `json:"success,omitempty"`
	RetMsg  string          `json:"ret_msg"`
	Data    wsOrderbookData `json:"data"`
}

// wsOrderbookData is the payload of an orderbook.1 frame. Levels are
// [price, size] string pairs; on a delta an empty side means unchanged.
type wsOrderbookData struct {
	Symbol string      `json:"s"`
	Bids   [][2]string `json:"b"`
	Asks   [][2]string `json:"a"`
}
