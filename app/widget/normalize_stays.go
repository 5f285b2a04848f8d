package widget

import (
	"cmp"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func NormalizeHotels(output, metadata []byte) ([]Hotel, map[string]string) {
	raw := strings.TrimSpace(string(output))
	data := parseLenient(output)
	if !data.IsObject() {
		if raw == "" {
			return nil, map[string]string{"count": "0", "showing": "0"}
		}
		return nil, map[string]string{"summary": raw, "count": "0", "showing": "0"}
	}

	rows := records(data.Get("hotels"))
	hotels := make([]Hotel, 0, len(rows))

	for i, h := range rows {
		hotel := Hotel{
			ID:        firstString(h, "id"),
			Name:      firstString(h, "name"),
			Location:  firstString(h, "location", "city"),
			Rating:    h.Get("rating").Float(),
			Price:     hotelPrice(h.Get("price")),
			Photo:     firstString(h, "image", "photo", "images.0"),
			Highlight: h.Get("highlight").Bool(),
		}
		if hotel.ID == "" {
			hotel.ID = fmt.Sprintf("hotel_%d", i)
		}
		if hotel.Name == "" {
			hotel.Name = "Hotel"
		}

		hotel.SearchResultID = firstString(h, "search_result_id", "srr")
		if id := h.Get("id").String(); hotel.SearchResultID == "" && strings.HasPrefix(id, "srr_") {
			hotel.SearchResultID = id
		}

		for _, a := range h.Get("amenities").Array() {
			if s := a.String(); s != "" {
				hotel.Amenities = append(hotel.Amenities, s)
			}
		}

		hotels = append(hotels, hotel)
	}

	meta := map[string]string{
		"summary": firstString(data, "summary"),
		"count":   firstString(data, "count"),
		"showing": firstString(data, "showing"),
	}
	if meta["count"] == "" {
		meta["count"] = itoa(len(hotels))
	}
	if meta["showing"] == "" {
		meta["showing"] = itoa(len(hotels))
	}
	return hotels, meta
}

func hotelPrice(p gjson.Result) string {
	if p.Type == gjson.String {
		return p.Str
	}
	if !p.IsObject() {
		return ""
	}
	amt, ok := amount(first(p, "amount", "value", "total_amount", "price"))
	ccy := firstString(p, "currency", "currency_code", "total_currency", "price_currency")
	if !ok || ccy == "" {
		return ""
	}
	return currencyLabel(ccy, amt)
}

// NormalizeRooms flattens room rates for one property. metadata may carry the
// hotel context (hotel_name, location, search_result_id, message) of the card
// the user opened rates from.
func NormalizeRooms(output, metadata []byte) ([]Room, map[string]string) {
	data := parseLenient(output)
	hotelCtx := parseLenient(metadata)

	payload := data
	if d := data.Get("data"); d.IsObject() {
		payload = d
	}
	acc := payload.Get("accommodation")
	accPhotos := urlList(acc.Get("photos"), 6)

	roomList := records(payload.Get("rooms"))
	if !payload.Get("rooms").IsArray() {
		roomList = records(acc.Get("rooms"))
	}

	type ranked struct {
		room   Room
		amount *decimal.Decimal
	}
	var out []ranked

	for i, room := range roomList {
		name := firstString(room, "name")
		bed := bedLabel(room.Get("beds"))
		photos := urlList(first(room, "photos", "images"), 6)
		if len(photos) == 0 {
			photos = accPhotos
		}

		for j, rate := range records(room.Get("rates")) {
			r := Room{
				ID:                firstString(rate, "id"),
				RoomName:          name,
				Bed:               bed,
				Board:             firstString(rate, "board_type", "board", "meal_plan"),
				Cancellation:      cancellationLabel(rate),
				QuantityAvailable: int(rate.Get("quantity_available").Int()),
				Photos:            photos,
			}
			if r.ID == "" {
				r.ID = fmt.Sprintf("rat_%d_%d", i, j)
			}
			if r.RoomName == "" {
				r.RoomName = firstString(rate, "name")
			}
			if r.RoomName == "" {
				r.RoomName = "Room"
			}
			amt := roomPrice(rate, &r)
			out = append(out, ranked{room: r, amount: amt})
		}
	}

	if len(out) == 0 {
		var rates []gjson.Result
		for _, bucket := range []gjson.Result{payload, payload.Get("data")} {
			for _, key := range []string{"rates", "room_rates", "room_offers", "offers"} {
				if v := records(bucket.Get(key)); len(v) > 0 {
					rates = v
					break
				}
			}
			if rates != nil {
				break
			}
		}

		for idx, rate := range rates {
			r := Room{
				ID:           firstString(rate, "id"),
				RoomName:     firstString(rate, "room_name", "room_type", "name"),
				Bed:          bedLabel(rate.Get("beds")),
				Board:        firstString(rate, "board_type", "board", "meal_plan"),
				Cancellation: cancellationLabel(rate),
			}
			if r.ID == "" {
				r.ID = fmt.Sprintf("rat_%d", idx)
			}
			if r.RoomName == "" {
				r.RoomName = fmt.Sprintf("Room %d", idx+1)
			}
			if r.Bed == "" {
				r.Bed = firstString(rate, "bed_type", "bed")
			}
			for _, key := range []string{"images", "photos", "media"} {
				if v := rate.Get(key); v.IsArray() {
					r.Photos = urlList(v, 6)
					break
				}
			}
			if len(r.Photos) == 0 {
				r.Photos = accPhotos
			}
			amt := roomPrice(rate, &r)
			out = append(out, ranked{room: r, amount: amt})
		}
	}

	sort.SliceStable(out, func(a, b int) bool {
		x, y := out[a].amount, out[b].amount
		if x == nil || y == nil {
			return x != nil && y == nil
		}
		return x.LessThan(*y)
	})

	rooms := make([]Room, 0, len(out))
	for i, r := range out {
		r.room.Highlight = i == 0
		rooms = append(rooms, r.room)
	}

	meta := map[string]string{
		"hotelName": cmp.Or(firstString(hotelCtx, "hotel_name"), firstString(acc, "name"), firstString(payload, "name")),
		"location":  cmp.Or(firstString(hotelCtx, "location"), firstString(acc, "location.address.city_name"), firstString(acc, "location.address.line_one")),
		"srr":       cmp.Or(firstString(hotelCtx, "search_result_id", "srr"), firstString(payload, "id")),
		"message":   firstString(hotelCtx, "message"),
		"count":     itoa(len(rooms)),
	}
	return rooms, meta
}

func roomPrice(rate gjson.Result, r *Room) *decimal.Decimal {
	raw := first(rate, "total_amount", "public_amount", "base_amount")
	r.Currency = firstString(rate, "total_currency", "public_currency", "base_currency", "currency")
	if !raw.Exists() || r.Currency == "" {
		return nil
	}
	amt, ok := amount(raw)
	if !ok {
		r.Price = r.Currency + " " + raw.String()
		return nil
	}
	r.Price = currencyLabel(r.Currency, amt)
	r.PriceAmount = amt.StringFixed(2)
	return &amt
}

// bedLabel renders [{type: "double_bed", count: 1}] as "1 Double Bed".
func bedLabel(beds gjson.Result) string {
	var parts []string
	for _, b := range beds.Array() {
		if !b.IsObject() {
			if s := b.String(); s != "" {
				parts = append(parts, s)
			}
			continue
		}
		kind := cases.Title(language.English).String(strings.TrimSpace(strings.ReplaceAll(b.Get("type").String(), "_", " ")))
		if c := b.Get("count"); truthy(c) {
			kind = strings.TrimSpace(c.String() + " " + kind)
		}
		if kind != "" {
			parts = append(parts, kind)
		}
	}
	return strings.Join(parts, ", ")
}

func cancellationLabel(rate gjson.Result) string {
	label := firstString(rate, "cancellation_policy", "refundability")
	var latest string
	for _, ent := range records(rate.Get("cancellation_timeline")) {
		if when := ent.Get("before").String(); when != "" && when > latest {
			latest = when
		}
	}
	if latest != "" {
		label = "Refundable until " + latest
	}
	return label
}

// NormalizePayment reads the checkout a payment card is confirming. The
// ctx_id may arrive in either the tool output or the response metadata.
func NormalizePayment(output, metadata []byte) ([]Payment, map[string]string) {
	data := parseLenient(output)
	extra := parseLenient(metadata)

	pick := func(paths ...string) gjson.Result {
		if v := first(data, paths...); v.Exists() {
			return v
		}
		return first(extra, paths...)
	}

	ctxID := pick("ctx_id", "context_id", "checkout.ctx_id").String()
	if ctxID == "" {
		return nil, map[string]string{}
	}

	p := Payment{
		CtxID:       ctxID,
		Flow:        pick("flow", "type").String(),
		Description: pick("description", "desc", "hotel_name").String(),
		Currency:    strings.ToUpper(pick("currency", "total_currency", "price.currency").String()),
		Status:      pick("status").String(),
	}
	if p.Flow != "flight" {
		p.Flow = "hotel"
	}
	if amt, ok := amount(pick("amount", "total_amount", "price.amount")); ok {
		p.Amount = amt.StringFixed(2)
	}

	return []Payment{p}, map[string]string{"ctx_id": ctxID, "flow": p.Flow}
}
