package widget

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

type lines []string

func (l *lines) add(label, value string) {
	if value != "" {
		*l = append(*l, fmt.Sprintf("- %s: %s", label, value))
	}
}

func (l lines) String() string {
	return strings.Join(l, "\n")
}

func FlightMessage(f Flight, _ map[string]string) Message {
	text := lines{"User selected this flight offer from the UI:", "- Offer ID: " + f.ID}
	text.add("Airline", f.Airline)
	text.add("Route", f.Route)
	text.add("Date", f.Date)
	text.add("Departure time", f.DepartTime)
	text.add("Arrival time", f.ArriveTime)
	text.add("Price", f.Price)

	return Message{
		Kind: KindFlight,
		Text: text.String(),
		Structured: map[string]any{
			"offer_id":       f.ID,
			"airline":        f.Airline,
			"route":          f.Route,
			"date":           f.Date,
			"departure_time": f.DepartTime,
			"arrival_time":   f.ArriveTime,
			"price":          f.Price,
		},
	}
}

func HotelMessage(h Hotel, _ map[string]string) Message {
	text := lines{"User selected this hotel from the UI:", "- search_result_id: " + h.SearchResultID}
	text.add("Hotel ID", h.ID)
	text.add("Hotel name", h.Name)
	text.add("Location", h.Location)
	if h.Rating > 0 {
		text.add("Rating", strconv.FormatFloat(h.Rating, 'f', -1, 64))
	}
	text.add("Price label", h.Price)
	text.add("Amenities", strings.Join(h.Amenities, ", "))

	return Message{
		Kind: KindHotel,
		Text: text.String(),
		Structured: map[string]any{
			"search_result_id": h.SearchResultID,
			"hotel_id":         h.ID,
			"hotel_name":       h.Name,
			"location":         h.Location,
			"price":            h.Price,
			"rating":           h.Rating,
			"amenities":        h.Amenities,
		},
	}
}

// RoomMessage takes the property context from the snapshot meta produced by
// NormalizeRooms.
func RoomMessage(r Room, meta map[string]string) Message {
	text := lines{"User selected this hotel room / rate from the RoomCard widget:", "- rate_id: " + r.ID}
	text.add("Hotel name", meta["hotelName"])
	text.add("Location", meta["location"])
	text.add("Room name", r.RoomName)
	text.add("search_result_id", meta["srr"])
	text.add("Price label", r.Price)
	if r.Currency != "" && r.PriceAmount != "" {
		text.add("Price numeric", r.PriceAmount+" "+r.Currency)
	}
	text.add("Bed", r.Bed)
	text.add("Board", r.Board)
	text.add("Cancellation", r.Cancellation)
	if r.QuantityAvailable > 0 {
		text.add("Quantity", strconv.Itoa(r.QuantityAvailable))
	}

	return Message{
		Kind: KindRoom,
		Text: text.String(),
		Structured: map[string]any{
			"rate_id":          r.ID,
			"hotel_name":       meta["hotelName"],
			"hotel_location":   meta["location"],
			"room_name":        r.RoomName,
			"search_result_id": meta["srr"],
			"price_label":      r.Price,
			"price_amount":     r.PriceAmount,
			"currency":         r.Currency,
			"bed":              r.Bed,
			"board":            r.Board,
			"cancellation":     r.Cancellation,
			"quantity":         r.QuantityAvailable,
		},
	}
}

func PaymentMessage(p Payment, _ map[string]string) Message {
	text := lines{fmt.Sprintf("Payment completed for checkout %s.", p.CtxID)}
	if p.Amount != "" && p.Currency != "" {
		text = append(text, fmt.Sprintf("Paid: %s %s", p.Currency, p.Amount))
	}
	text = append(text, fmt.Sprintf("Please call `confirm_booking_from_ctx` with ctx_id: %q to get the booking confirmation details.", p.CtxID))

	return Message{
		Kind: KindPayment,
		Text: text.String(),
		Structured: map[string]any{
			"ctx_id":   p.CtxID,
			"flow":     p.Flow,
			"amount":   p.Amount,
			"currency": p.Currency,
			"status":   "paid",
		},
	}
}

type BookingSummary struct {
	Flow      string
	Reference string
	HotelName string
	RoomName  string
	Amount    string
	Currency  string
}

// ConfirmationText is the user-facing receipt once a booking is in place.
func ConfirmationText(b BookingSummary) string {
	var parts []string
	isFlight := b.Flow == "flight"
	if isFlight {
		parts = append(parts, "✈️ Your flight booking is confirmed.")
	} else {
		parts = append(parts, "🏨 Your hotel booking is confirmed.")
		if b.HotelName != "" {
			parts = append(parts, "Hotel: "+b.HotelName)
		}
		if b.RoomName != "" {
			parts = append(parts, "Room: "+b.RoomName)
		}
	}
	parts = append(parts, "Booking reference: "+cmp.Or(b.Reference, "confirmed_booking"))
	if b.Amount != "" && b.Currency != "" {
		parts = append(parts, fmt.Sprintf("Paid: %s %s", b.Currency, b.Amount))
	}

	return strings.Join(parts, "\n") + "\n\n" +
		"Thank you for booking with BookedAI! If you'd like, I can help you review the details or make changes."
}
