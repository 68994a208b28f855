package model

// QuoteRecord is one parsed real-time quote for a single stock.
//
// Every field is the raw text token extracted from the upstream data frame.
// The JSON tags are the contract consumed by downstream clients and must not
// change.
type QuoteRecord struct {
	StockCode        string `json:"stockCode"`       // Instrument code (topic)
	ClosePrice       string `json:"closePrice"`      // Current/close price
	OpenPrice        string `json:"openPrice"`       // Day open price
	HighPrice        string `json:"highPrice"`       // Day high price
	LowPrice         string `json:"lowPrice"`        // Day low price
	AccVolume        string `json:"stockAcmlVol"`    // Accumulated volume
	AccTradeValue    string `json:"stockAcmlTrPbmn"` // Accumulated trade value
	PrevDayDelta     string `json:"prdyVrss"`        // Change vs previous day
	PrevDayDeltaSign string `json:"prdyVrssSign"`    // Sign of the change
	PrevDayDeltaRate string `json:"prdyCtrt"`        // Change rate vs previous day
}
