package protocol

import (
	"errors"
	"fmt"
	"strings"

	"github.com/SunYerim/StockOfGalaxy/internal/model"
)

// ErrMalformedFrame indicates a data frame with too few delimited fields.
// Malformed frames are logged and dropped; they never reach dispatch.
var ErrMalformedFrame = errors.New("malformed data frame")

// Data frame delimiters.
const (
	primaryDelimiter   = "|"
	secondaryDelimiter = "^"
)

// Positional contract of the ^-delimited field list. These ordinals encode
// the upstream wire format, not an arbitrary choice; do not renumber.
const (
	fieldStockCode        = 0
	fieldClosePrice       = 2
	fieldPrevDayDeltaSign = 3
	fieldPrevDayDelta     = 4
	fieldPrevDayDeltaRate = 5
	fieldOpenPrice        = 7
	fieldHighPrice        = 8
	fieldLowPrice         = 9
	fieldAccVolume        = 13
	fieldAccTradeValue    = 14

	// minQuoteFields is the smallest field count that covers every consumed
	// ordinal (the highest is 14).
	minQuoteFields = fieldAccTradeValue + 1
)

// ParseQuote decodes a delimited data frame into a QuoteRecord.
//
// The frame is split on "|"; the last segment is split on "^" and fields are
// extracted by fixed ordinal position. Returns ErrMalformedFrame when fewer
// than 2 primary segments or fewer than 15 secondary fields are present.
func ParseQuote(payload []byte) (model.QuoteRecord, error) {
	segments := strings.Split(string(payload), primaryDelimiter)
	if len(segments) < 2 {
		return model.QuoteRecord{}, fmt.Errorf("%w: %d primary segments", ErrMalformedFrame, len(segments))
	}

	fields := strings.Split(segments[len(segments)-1], secondaryDelimiter)
	if len(fields) < minQuoteFields {
		return model.QuoteRecord{}, fmt.Errorf("%w: %d secondary fields", ErrMalformedFrame, len(fields))
	}

	return model.QuoteRecord{
		StockCode:        fields[fieldStockCode],
		ClosePrice:       fields[fieldClosePrice],
		OpenPrice:        fields[fieldOpenPrice],
		HighPrice:        fields[fieldHighPrice],
		LowPrice:         fields[fieldLowPrice],
		AccVolume:        fields[fieldAccVolume],
		AccTradeValue:    fields[fieldAccTradeValue],
		PrevDayDelta:     fields[fieldPrevDayDelta],
		PrevDayDeltaSign: fields[fieldPrevDayDeltaSign],
		PrevDayDeltaRate: fields[fieldPrevDayDeltaRate],
	}, nil
}
