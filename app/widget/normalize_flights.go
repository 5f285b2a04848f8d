package widget

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

var (
	isoLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02",
	}
	clockPattern   = regexp.MustCompile(`T(\d{2}:\d{2})`)
	hoursPattern   = regexp.MustCompile(`(\d+)\s*[hH]`)
	minutesPattern = regexp.MustCompile(`(\d+)\s*[mM]`)
)

func NormalizeFlights(output, metadata []byte) ([]Flight, map[string]string) {
	data := parseLenient(output)

	var src []gjson.Result
	switch {
	case data.Get("flights").IsArray():
		rows := records(data.Get("flights"))
		if len(rows) > 0 && truthy(first(rows[0], "airlineShort", "depart", "route")) {
			return passThroughFlights(rows), stringMeta(data.Get("meta"))
		}
		src = rows
	case data.Get("offers").IsArray():
		src = records(data.Get("offers"))
	case data.Get("data").IsArray():
		src = records(data.Get("data"))
	case data.Get("data.offers").IsArray():
		src = records(data.Get("data.offers"))
	default:
		return nil, map[string]string{"total": "0"}
	}

	flights := make([]Flight, 0, len(src))
	var origin, destination, date, returnDate string

	for i, item := range src {
		f := Flight{
			ID:          firstString(item, "id", "offer_id"),
			Airline:     flightAirline(item),
			AirlineLogo: firstString(item, "airline_logo", "owner.logo_symbol_url", "owner.logo_lockup_url", "marketing_carrier.logo", "marketing_carrier.logo_url"),
			Highlight:   item.Get("highlight").Bool() || i == 0,
		}
		if f.ID == "" {
			f.ID = fmt.Sprintf("offer_%d", i)
		}

		slices := records(item.Get("slices"))
		var outbound gjson.Result
		if len(slices) > 0 {
			outbound = slices[0]
		}

		out := readLeg(outbound)
		f.DepartTime, f.ArriveTime = out.depart, out.arrive
		f.Weekday, f.Date = out.weekday, out.date
		f.Origin, f.Destination = out.origin, out.destination
		f.Stops = max(0, len(records(outbound.Get("segments")))-1)

		if len(slices) > 1 {
			ret := readLeg(slices[1])
			f.ReturnDepart, f.ReturnArrive = ret.depart, ret.arrive
			f.ReturnWeekday, f.ReturnDate = ret.weekday, ret.date
			f.ReturnLength = durationLabel(legMinutes(slices[1], gjson.Result{}))
			if ret.origin != "" && ret.destination != "" {
				f.ReturnRoute = ret.origin + "–" + ret.destination
			}
			if returnDate == "" {
				returnDate = ret.date
			}
		}

		if origin == "" {
			origin = out.origin
		}
		if destination == "" {
			destination = out.destination
		}
		if date == "" {
			date = out.date
		}

		if out.origin != "" && out.destination != "" {
			f.Route = out.origin + "–" + out.destination
			if f.ReturnRoute != "" {
				f.Route += " / " + f.ReturnRoute
			}
		}
		if f.ReturnDate != "" && f.ReturnDate != f.Date {
			f.Date = f.Date + " → " + f.ReturnDate
		}

		f.Duration = durationLabel(legMinutes(outbound, item))
		f.Currency = firstString(item, "total_currency", "currency", "price_currency", "base_currency")
		f.Price, f.PriceAmount, f.TaxLabel = flightPrice(item, f.Currency)

		flights = append(flights, f)
	}

	meta := map[string]string{
		"total":       itoa(len(flights)),
		"origin":      origin,
		"destination": destination,
		"date":        date,
		"return_date": returnDate,
	}
	return flights, meta
}

func flightAirline(item gjson.Result) string {
	if owner := item.Get("owner"); owner.Type == gjson.String && owner.Str != "" && !truthy(item.Get("airline")) {
		return owner.Str
	}
	if s := firstString(item, "airline", "owner.name", "airline_code"); s != "" {
		return s
	}
	return "Airline"
}

type leg struct {
	depart, arrive      string
	weekday, date       string
	origin, destination string
}

func readLeg(slice gjson.Result) leg {
	segs := records(slice.Get("segments"))
	if len(segs) == 0 {
		return leg{}
	}
	firstSeg, lastSeg := segs[0], segs[len(segs)-1]

	depISO := firstString(firstSeg, "departing_at", "depart_at", "departure_time")
	arrISO := firstString(lastSeg, "arriving_at", "arrive_at", "arrival_time")

	l := leg{
		depart:      clockLabel(depISO),
		arrive:      clockLabel(arrISO),
		origin:      airportCode(firstSeg.Get("origin")),
		destination: airportCode(lastSeg.Get("destination")),
	}
	anchor := depISO
	if anchor == "" {
		anchor = arrISO
	}
	l.weekday, l.date = weekdayDate(anchor)
	return l
}

func airportCode(r gjson.Result) string {
	if r.IsObject() {
		return r.Get("iata_code").String()
	}
	return r.String()
}

func parseISO(s string) (time.Time, bool) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// clockLabel renders an ISO timestamp as wall-clock time ("7:35 AM") in the
// timestamp's own offset.
func clockLabel(iso string) string {
	if iso == "" {
		return ""
	}
	if t, ok := parseISO(iso); ok {
		return t.Format("3:04 PM")
	}
	if m := clockPattern.FindStringSubmatch(iso); m != nil {
		return m[1]
	}
	return iso
}

func weekdayDate(iso string) (string, string) {
	t, ok := parseISO(iso)
	if !ok {
		return "", ""
	}
	return t.Format("Mon"), t.Format("02 Jan")
}

func legMinutes(slice, item gjson.Result) int {
	if v := first(slice, "journey_duration_minutes", "duration_minutes"); v.Type == gjson.Number {
		return int(v.Int())
	}

	text := firstString(slice, "duration")
	if text == "" {
		text = firstString(item, "total_journey_duration", "total_duration")
	}

	total := 0
	if m := hoursPattern.FindStringSubmatch(text); m != nil {
		h, _ := strconv.Atoi(m[1])
		total += h * 60
	}
	if m := minutesPattern.FindStringSubmatch(text); m != nil {
		mins, _ := strconv.Atoi(m[1])
		total += mins
	}
	return total
}

func durationLabel(minutes int) string {
	if minutes <= 0 {
		return "—"
	}
	h, m := minutes/60, minutes%60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

func flightPrice(item gjson.Result, ccy string) (price, amountStr, tax string) {
	raw := first(item, "total_amount", "price", "amount", "base_amount")
	if !raw.Exists() {
		return "", "", ""
	}

	amt, ok := amount(raw)
	if !ok {
		if ccy != "" {
			return ccy + " " + raw.String(), "", ""
		}
		return raw.String(), "", ""
	}
	price = dollarLabel(amt)
	amountStr = amt.StringFixed(2)

	if rawTax := first(item, "tax_amount", "tax"); rawTax.Exists() {
		if taxAmt, ok := amount(rawTax); ok {
			tax = "incl. " + dollarLabel(taxAmt) + " tax"
		} else {
			tax = "incl. " + rawTax.String() + " tax"
		}
	} else {
		estimate := amt.Mul(decimal.NewFromFloat(0.1)).IntPart()
		tax = fmt.Sprintf("incl. ~$%d tax", estimate)
	}
	return price, amountStr, tax
}

func passThroughFlights(rows []gjson.Result) []Flight {
	flights := make([]Flight, 0, len(rows))
	anyHighlight := false
	for i, r := range rows {
		f := Flight{
			ID:            firstString(r, "id"),
			Airline:       firstString(r, "airlineShort", "airline"),
			AirlineLogo:   firstString(r, "airlineLogo"),
			Weekday:       firstString(r, "weekday"),
			Date:          firstString(r, "date"),
			DepartTime:    firstString(r, "depart"),
			ArriveTime:    firstString(r, "arrive"),
			Route:         firstString(r, "route"),
			Duration:      firstString(r, "duration"),
			Price:         firstString(r, "price"),
			TaxLabel:      firstString(r, "tax"),
			ReturnWeekday: firstString(r, "returnWeekday"),
			ReturnDate:    firstString(r, "returnDate"),
			ReturnDepart:  firstString(r, "returnDepart"),
			ReturnArrive:  firstString(r, "returnArrive"),
			ReturnRoute:   firstString(r, "returnRoute"),
			Highlight:     r.Get("highlight").Bool(),
		}
		if f.ID == "" {
			f.ID = fmt.Sprintf("offer_%d", i)
		}
		anyHighlight = anyHighlight || f.Highlight
		flights = append(flights, f)
	}
	if !anyHighlight && len(flights) > 0 {
		flights[0].Highlight = true
	}
	return flights
}

// stringMeta flattens scalar fields of a JSON object into a string map.
func stringMeta(r gjson.Result) map[string]string {
	meta := make(map[string]string)
	r.ForEach(func(key, value gjson.Result) bool {
		if !value.IsObject() && !value.IsArray() && value.Type != gjson.Null {
			meta[key.String()] = value.String()
		}
		return true
	})
	return meta
}
