package widget

import (
	"log/slog"

	"github.com/tidwall/gjson"
)

const (
	UIFlightResults = "flightResults"
	UIHotelResults  = "hotelResults"
	UIRoomResults   = "roomResults"
	UIPaymentForm   = "paymentForm"
)

var toolWidgets = map[string]string{
	"search_flights_tool":          UIFlightResults,
	"search_hotels_tool":           UIHotelResults,
	"fetch_hotel_rates_tool":       UIRoomResults,
	"flight_payment_sequence_tool": UIPaymentForm,
	"hotel_payment_sequence_tool":  UIPaymentForm,
	"extend_hotel_stay_tool":       UIPaymentForm,
}

var paymentTools = map[string]bool{
	"flight_payment_sequence_tool": true,
	"hotel_payment_sequence_tool":  true,
}

// requiredFields lists the keys the first record of a result list must carry
// for the card to be worth rendering.
var requiredFields = map[string]struct {
	list   string
	fields []string
}{
	"search_hotels_tool":  {list: "hotels", fields: []string{"name", "location", "price"}},
	"search_flights_tool": {list: "flights", fields: []string{"airline", "price", "slices"}},
}

// WidgetKind maps a render decision onto the session kind that serves it.
func WidgetKind(ui string) (Kind, bool) {
	switch ui {
	case UIFlightResults:
		return KindFlight, true
	case UIHotelResults:
		return KindHotel, true
	case UIRoomResults:
		return KindRoom, true
	case UIPaymentForm:
		return KindPayment, true
	}
	return "", false
}

// Decide reports whether a tool result should render as a card and which
// one. A true result with an empty widget means plain text.
func Decide(tool string, result []byte) (bool, string) {
	if !gjson.ValidBytes(result) {
		if paymentTools[tool] {
			return true, UIPaymentForm
		}
		return false, ""
	}

	data := gjson.ParseBytes(result)
	// tool results are sometimes double encoded
	if data.Type == gjson.String && gjson.Valid(data.Str) {
		data = gjson.Parse(data.Str)
	} else if data.Type == gjson.String && paymentTools[tool] {
		return true, UIPaymentForm
	}

	if ui := data.Get("ui_type"); data.IsObject() && ui.Exists() {
		return true, ui.String()
	}

	ui, ok := toolWidgets[tool]
	if !ok {
		return false, ""
	}

	if paymentTools[tool] && data.Get("status").String() == "need_payment_info" {
		return true, UIPaymentForm
	}

	if tool == "extend_hotel_stay_tool" && data.IsObject() {
		if data.Get("message").Exists() && data.Get("rates").Exists() {
			return true, ""
		}
		if data.Get("payment_provided").Bool() || data.Get("status").String() == "success" {
			return false, ""
		}
		return true, UIPaymentForm
	}

	if req, ok := requiredFields[tool]; ok {
		records := data.Get(req.list)
		if !records.IsArray() || len(records.Array()) == 0 {
			slog.Debug("No records to render", "tool", tool, "list", req.list)
			return false, ""
		}
		first := records.Array()[0]
		for _, f := range req.fields {
			if !first.Get(f).Exists() {
				slog.Debug("Record missing required field", "tool", tool, "field", f)
				return false, ""
			}
		}
		return true, ui
	}

	if data.IsObject() && len(data.Map()) > 2 {
		return true, ui
	}
	return false, ""
}
