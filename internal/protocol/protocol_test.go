package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// quoteFields builds a ^-joined field list with the given values at the
// consumed ordinals and "-" padding elsewhere.
func quoteFields(n int, values map[int]string) string {
	fields := make([]string, n)
	for i := range fields {
		fields[i] = "-"
	}
	for i, v := range values {
		if i < n {
			fields[i] = v
		}
	}
	return strings.Join(fields, "^")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Kind
	}{
		{"json object", `{"header":{"tr_id":"PINGPONG"}}`, KindControl},
		{"json object with whitespace", "  \n{\"body\":{}}", KindControl},
		{"delimited data", "0|H0STCNT0|001|005930^093012^71900", KindData},
		{"empty payload", "", KindData},
		{"brace but not json", "{not json", KindData},
		{"json array", `[1,2,3]`, KindData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify([]byte(tt.payload)); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.payload, got, tt.want)
			}
		})
	}
}

func TestParseQuote(t *testing.T) {
	fields := quoteFields(20, map[int]string{
		0:  "005930",
		2:  "71900",
		3:  "2",
		4:  "500",
		5:  "0.70",
		7:  "71500",
		8:  "72100",
		9:  "71300",
		13: "8234567",
		14: "591234567890",
	})
	payload := "0|H0STCNT0|001|" + fields

	rec, err := ParseQuote([]byte(payload))
	if err != nil {
		t.Fatalf("ParseQuote failed: %v", err)
	}

	if rec.StockCode != "005930" {
		t.Errorf("StockCode = %q, want %q", rec.StockCode, "005930")
	}
	if rec.ClosePrice != "71900" {
		t.Errorf("ClosePrice = %q, want %q", rec.ClosePrice, "71900")
	}
	if rec.PrevDayDeltaSign != "2" {
		t.Errorf("PrevDayDeltaSign = %q, want %q", rec.PrevDayDeltaSign, "2")
	}
	if rec.PrevDayDelta != "500" {
		t.Errorf("PrevDayDelta = %q, want %q", rec.PrevDayDelta, "500")
	}
	if rec.PrevDayDeltaRate != "0.70" {
		t.Errorf("PrevDayDeltaRate = %q, want %q", rec.PrevDayDeltaRate, "0.70")
	}
	if rec.OpenPrice != "71500" {
		t.Errorf("OpenPrice = %q, want %q", rec.OpenPrice, "71500")
	}
	if rec.HighPrice != "72100" {
		t.Errorf("HighPrice = %q, want %q", rec.HighPrice, "72100")
	}
	if rec.LowPrice != "71300" {
		t.Errorf("LowPrice = %q, want %q", rec.LowPrice, "71300")
	}
	if rec.AccVolume != "8234567" {
		t.Errorf("AccVolume = %q, want %q", rec.AccVolume, "8234567")
	}
	if rec.AccTradeValue != "591234567890" {
		t.Errorf("AccTradeValue = %q, want %q", rec.AccTradeValue, "591234567890")
	}
}

func TestParseQuoteUsesLastSegment(t *testing.T) {
	// Only the final |-segment carries the field list.
	fields := quoteFields(15, map[int]string{0: "000660", 2: "123000"})
	payload := "1|H0STCNT0|junk^segment|" + fields

	rec, err := ParseQuote([]byte(payload))
	if err != nil {
		t.Fatalf("ParseQuote failed: %v", err)
	}
	if rec.StockCode != "000660" {
		t.Errorf("StockCode = %q, want %q", rec.StockCode, "000660")
	}
	if rec.ClosePrice != "123000" {
		t.Errorf("ClosePrice = %q, want %q", rec.ClosePrice, "123000")
	}
}

func TestParseQuoteMalformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"no primary delimiter", "just one segment"},
		{"too few secondary fields", "0|H0STCNT0|001|" + quoteFields(14, nil)},
		{"empty payload", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuote([]byte(tt.payload))
			if !errors.Is(err, ErrMalformedFrame) {
				t.Errorf("ParseQuote(%q) error = %v, want ErrMalformedFrame", tt.payload, err)
			}
		})
	}
}

func TestParseControl(t *testing.T) {
	payload := `{
		"header": {"tr_id": "H0STCNT0", "tr_key": "005930"},
		"body": {"msg_cd": "OPSP0000", "msg1": "SUBSCRIBE SUCCESS"}
	}`

	msg, err := ParseControl([]byte(payload))
	if err != nil {
		t.Fatalf("ParseControl failed: %v", err)
	}

	if msg.TrID != "H0STCNT0" {
		t.Errorf("TrID = %q, want %q", msg.TrID, "H0STCNT0")
	}
	if msg.TrKey != "005930" {
		t.Errorf("TrKey = %q, want %q", msg.TrKey, "005930")
	}
	if msg.MsgCode != "OPSP0000" {
		t.Errorf("MsgCode = %q, want %q", msg.MsgCode, "OPSP0000")
	}
	if msg.MsgText != "SUBSCRIBE SUCCESS" {
		t.Errorf("MsgText = %q, want %q", msg.MsgText, "SUBSCRIBE SUCCESS")
	}
}

func TestParseControlInvalid(t *testing.T) {
	if _, err := ParseControl([]byte("not json")); err == nil {
		t.Error("ParseControl expected error for invalid JSON, got nil")
	}
}

func TestControlKind(t *testing.T) {
	tests := []struct {
		name string
		msg  ControlMessage
		want ControlKind
	}{
		{
			name: "heartbeat",
			msg:  ControlMessage{TrID: TrIDHeartbeat},
			want: ControlHeartbeat,
		},
		{
			// A heartbeat wins even if a result code is present.
			name: "heartbeat takes priority",
			msg:  ControlMessage{TrID: TrIDHeartbeat, MsgCode: MsgCodeSubscribeOK},
			want: ControlHeartbeat,
		},
		{
			name: "already subscribed",
			msg:  ControlMessage{TrID: TrIDStockQuote, MsgCode: MsgCodeAlreadySubscribed},
			want: ControlAlreadySubscribed,
		},
		{
			name: "subscribe ok",
			msg:  ControlMessage{TrID: TrIDStockQuote, MsgCode: MsgCodeSubscribeOK},
			want: ControlSubscribeOK,
		},
		{
			name: "unknown code is rejected",
			msg:  ControlMessage{TrID: TrIDStockQuote, MsgCode: "OPSP9999"},
			want: ControlRejected,
		},
		{
			name: "empty code is rejected",
			msg:  ControlMessage{TrID: TrIDStockQuote},
			want: ControlRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.Kind(); got != tt.want {
				t.Errorf("Kind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSubscribeFrame(t *testing.T) {
	data, err := SubscribeFrame("approval-abc", "005930")
	if err != nil {
		t.Fatalf("SubscribeFrame failed: %v", err)
	}

	var decoded struct {
		Header struct {
			ApprovalKey string `json:"approval_key"`
			CustType    string `json:"custtype"`
			TrType      string `json:"tr_type"`
			ContentType string `json:"content-type"`
		} `json:"header"`
		Body struct {
			Input struct {
				TrID  string `json:"tr_id"`
				TrKey string `json:"tr_key"`
			} `json:"input"`
		} `json:"body"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal subscribe frame: %v", err)
	}

	if decoded.Header.ApprovalKey != "approval-abc" {
		t.Errorf("approval_key = %q, want %q", decoded.Header.ApprovalKey, "approval-abc")
	}
	if decoded.Header.CustType != "P" {
		t.Errorf("custtype = %q, want %q", decoded.Header.CustType, "P")
	}
	if decoded.Header.TrType != "1" {
		t.Errorf("tr_type = %q, want %q", decoded.Header.TrType, "1")
	}
	if decoded.Header.ContentType != "utf-8" {
		t.Errorf("content-type = %q, want %q", decoded.Header.ContentType, "utf-8")
	}
	if decoded.Body.Input.TrID != TrIDStockQuote {
		t.Errorf("tr_id = %q, want %q", decoded.Body.Input.TrID, TrIDStockQuote)
	}
	if decoded.Body.Input.TrKey != "005930" {
		t.Errorf("tr_key = %q, want %q", decoded.Body.Input.TrKey, "005930")
	}

	// The frame itself must classify as a JSON control shape on the wire.
	raw := string(data)
	for _, key := range []string{`"approval_key"`, `"custtype"`, `"tr_type"`, `"content-type"`} {
		if !strings.Contains(raw, key) {
			t.Errorf("encoded frame missing %s: %s", key, raw)
		}
	}
}
