package protocol

import (
	"encoding/json"
	"fmt"
)

// subscribeHeader carries the credential and fixed provider tags. Field
// names are part of the upstream contract and must match verbatim.
type subscribeHeader struct {
	ApprovalKey string `json:"approval_key"`
	CustType    string `json:"custtype"`
	TrType      string `json:"tr_type"`
	ContentType string `json:"content-type"`
}

type subscribeInput struct {
	TrID  string `json:"tr_id"`
	TrKey string `json:"tr_key"`
}

type subscribeBody struct {
	Input subscribeInput `json:"input"`
}

type subscribeFrame struct {
	Header subscribeHeader `json:"header"`
	Body   subscribeBody   `json:"body"`
}

// Fixed header tag values for a personal real-time quote subscription.
const (
	custTypePersonal = "P"
	trTypeSubscribe  = "1"
	contentTypeUTF8  = "utf-8"
)

// SubscribeFrame builds the outbound request that subscribes the upstream
// connection to one stock code, replaying the approval credential in the
// frame header.
func SubscribeFrame(approvalKey, stockCode string) ([]byte, error) {
	frame := subscribeFrame{
		Header: subscribeHeader{
			ApprovalKey: approvalKey,
			CustType:    custTypePersonal,
			TrType:      trTypeSubscribe,
			ContentType: contentTypeUTF8,
		},
		Body: subscribeBody{
			Input: subscribeInput{
				TrID:  TrIDStockQuote,
				TrKey: stockCode,
			},
		},
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("encode subscribe frame: %w", err)
	}
	return data, nil
}
