package widget

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const duffelOffers = `{
  "offers": [
    {
      "id": "off_1",
      "total_amount": "107.94",
      "total_currency": "USD",
      "owner": {"name": "Qantas", "logo_symbol_url": "https://cdn.example.com/qf.svg"},
      "slices": [{
        "duration": "PT1H35M",
        "segments": [{
          "origin": {"iata_code": "SYD"},
          "destination": {"iata_code": "MEL"},
          "departing_at": "2025-03-14T07:35:00",
          "arriving_at": "2025-03-14T09:10:00"
        }]
      }]
    },
    {
      "id": "off_2",
      "total_amount": "250",
      "total_currency": "USD",
      "tax_amount": "20",
      "owner": "Virgin",
      "slices": [{
        "duration_minutes": 180,
        "segments": [
          {"origin": "SYD", "destination": "CBR", "departing_at": "2025-03-14T12:00:00"},
          {"origin": "CBR", "destination": "MEL", "arriving_at": "2025-03-14T15:00:00"}
        ]
      }]
    }
  ]
}`

func TestNormalizeFlightsOffers(t *testing.T) {
	flights, meta := NormalizeFlights([]byte(duffelOffers), nil)

	if len(flights) != 2 {
		t.Fatalf("Expected 2 flights, got %d", len(flights))
	}

	want := Flight{
		ID:          "off_1",
		Airline:     "Qantas",
		AirlineLogo: "https://cdn.example.com/qf.svg",
		Route:       "SYD–MEL",
		Origin:      "SYD",
		Destination: "MEL",
		Weekday:     "Fri",
		Date:        "14 Mar",
		DepartTime:  "7:35 AM",
		ArriveTime:  "9:10 AM",
		Duration:    "1h 35m",
		Price:       "$107.94",
		PriceAmount: "107.94",
		Currency:    "USD",
		TaxLabel:    "incl. ~$10 tax",
		Highlight:   true,
	}
	if diff := cmp.Diff(want, flights[0]); diff != "" {
		t.Errorf("Unexpected first flight (-want +got):\n%s", diff)
	}

	second := flights[1]
	if second.Airline != "Virgin" {
		t.Errorf("Expected airline 'Virgin', got '%s'", second.Airline)
	}
	if second.Stops != 1 || second.Duration != "3h" {
		t.Errorf("Expected 1 stop and 3h, got %d stops and '%s'", second.Stops, second.Duration)
	}
	if second.Price != "$250" || second.TaxLabel != "incl. $20 tax" {
		t.Errorf("Expected '$250' with 'incl. $20 tax', got '%s' with '%s'", second.Price, second.TaxLabel)
	}
	if second.Highlight {
		t.Error("Expected only the first flight to be highlighted")
	}

	if meta["total"] != "2" || meta["origin"] != "SYD" || meta["destination"] != "MEL" || meta["date"] != "14 Mar" {
		t.Errorf("Unexpected meta %v", meta)
	}
}

func TestNormalizeFlightsRoundTrip(t *testing.T) {
	raw := `{"data": [{
	  "id": "off_rt",
	  "total_amount": 420,
	  "slices": [
	    {"segments": [{"origin": "SYD", "destination": "AKL", "departing_at": "2025-04-01T08:00:00Z", "arriving_at": "2025-04-01T13:05:00Z"}], "duration": "3h 5m"},
	    {"segments": [{"origin": "AKL", "destination": "SYD", "departing_at": "2025-04-08T18:00:00Z", "arriving_at": "2025-04-08T19:45:00Z"}], "duration": "3h 45m"}
	  ]
	}]}`

	flights, meta := NormalizeFlights([]byte(raw), nil)
	if len(flights) != 1 {
		t.Fatalf("Expected 1 flight, got %d", len(flights))
	}

	f := flights[0]
	if f.Route != "SYD–AKL / AKL–SYD" {
		t.Errorf("Expected round-trip route, got '%s'", f.Route)
	}
	if f.Date != "01 Apr → 08 Apr" {
		t.Errorf("Expected date range, got '%s'", f.Date)
	}
	if f.ReturnLength != "3h 45m" {
		t.Errorf("Expected return duration '3h 45m', got '%s'", f.ReturnLength)
	}
	if meta["return_date"] != "08 Apr" {
		t.Errorf("Expected return_date '08 Apr', got '%s'", meta["return_date"])
	}
}

func TestNormalizeFlightsPassThrough(t *testing.T) {
	raw := `{"flights": [{"id": "f1", "airlineShort": "QF", "depart": "7:35 AM", "price": "$108"}, {"id": "f2", "airlineShort": "VA", "highlight": true}], "meta": {"origin": "SYD"}}`

	flights, meta := NormalizeFlights([]byte(raw), nil)
	if len(flights) != 2 {
		t.Fatalf("Expected 2 flights, got %d", len(flights))
	}
	if flights[0].Airline != "QF" || flights[0].DepartTime != "7:35 AM" {
		t.Errorf("Unexpected first flight %+v", flights[0])
	}
	if flights[0].Highlight || !flights[1].Highlight {
		t.Error("Expected the explicit highlight to be kept")
	}
	if meta["origin"] != "SYD" {
		t.Errorf("Expected meta origin 'SYD', got '%s'", meta["origin"])
	}
}

func TestNormalizersTolerateBadInput(t *testing.T) {
	inputs := []string{
		"", "null", "not json at all", `[1,2,3]`,
		`{"offers": "nope"}`, `{"offers": [1, "x"]}`, `{"flights": "oops"}`,
		`{"hotels": "oops"}`, `{"hotels": [42]}`,
		`{"rates": 7}`, `{"rooms": [{"name": "x", "rates": "bad"}]}`, `{"rooms": ["x"]}`,
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			if flights, _ := NormalizeFlights([]byte(in), nil); len(flights) != 0 {
				t.Errorf("Expected no flights, got %d", len(flights))
			}
			if hotels, _ := NormalizeHotels([]byte(in), nil); len(hotels) != 0 {
				t.Errorf("Expected no hotels, got %d", len(hotels))
			}
			if rooms, _ := NormalizeRooms([]byte(in), []byte(in)); len(rooms) != 0 {
				t.Errorf("Expected no rooms, got %d", len(rooms))
			}
			if payments, _ := NormalizePayment([]byte(in), nil); len(payments) != 0 {
				t.Errorf("Expected no payments, got %d", len(payments))
			}
		})
	}
}

func TestNormalizeHotels(t *testing.T) {
	raw := `prefix text {"hotels": [
	  {"id": "srr_abc", "name": "Harbour View", "city": "Sydney", "rating": 4.5, "price": {"amount": "1234.5", "currency": "AUD"}, "images": ["https://img/1.jpg"], "amenities": ["wifi", "pool"]},
	  {"price": "From $99"}
	], "summary": "2 stays found"} trailing`

	hotels, meta := NormalizeHotels([]byte(raw), nil)
	if len(hotels) != 2 {
		t.Fatalf("Expected 2 hotels, got %d", len(hotels))
	}

	want := Hotel{
		ID:             "srr_abc",
		SearchResultID: "srr_abc",
		Name:           "Harbour View",
		Location:       "Sydney",
		Rating:         4.5,
		Price:          "AUD 1,234.50",
		Photo:          "https://img/1.jpg",
		Amenities:      []string{"wifi", "pool"},
	}
	if diff := cmp.Diff(want, hotels[0]); diff != "" {
		t.Errorf("Unexpected hotel (-want +got):\n%s", diff)
	}

	if hotels[1].ID != "hotel_1" || hotels[1].Name != "Hotel" || hotels[1].Price != "From $99" {
		t.Errorf("Expected defaults for second hotel, got %+v", hotels[1])
	}
	if meta["summary"] != "2 stays found" || meta["count"] != "2" {
		t.Errorf("Unexpected meta %v", meta)
	}
}

func TestNormalizeHotelsTextSummary(t *testing.T) {
	hotels, meta := NormalizeHotels([]byte("No hotels matched."), nil)
	if len(hotels) != 0 {
		t.Errorf("Expected no hotels, got %d", len(hotels))
	}
	if meta["summary"] != "No hotels matched." {
		t.Errorf("Expected raw text as summary, got '%s'", meta["summary"])
	}
}

func TestNormalizeRoomsSortedByPrice(t *testing.T) {
	raw := `{"data": {"id": "srr_1", "accommodation": {
	  "name": "Harbour View",
	  "location": {"address": {"city_name": "Sydney"}},
	  "photos": [{"url": "https://img/acc.jpg"}],
	  "rooms": [
	    {"name": "Deluxe King", "beds": [{"type": "king_bed", "count": 1}], "rates": [
	      {"id": "rat_exp", "total_amount": "320.00", "total_currency": "AUD", "board_type": "room_only", "cancellation_timeline": [{"before": "2025-03-10T00:00:00Z"}, {"before": "2025-03-12T00:00:00Z"}]},
	      {"id": "rat_nop", "total_currency": "AUD"}
	    ]},
	    {"name": "Standard Twin", "beds": [{"type": "twin_bed", "count": 2}], "rates": [
	      {"id": "rat_cheap", "public_amount": 180, "public_currency": "AUD", "quantity_available": 3}
	    ]}
	  ]
	}}}`

	rooms, meta := NormalizeRooms([]byte(raw), []byte(`{"message": "Rates for your dates"}`))

	var ids []string
	for _, r := range rooms {
		ids = append(ids, r.ID)
	}
	if diff := cmp.Diff([]string{"rat_cheap", "rat_exp", "rat_nop"}, ids); diff != "" {
		t.Errorf("Unexpected room order (-want +got):\n%s", diff)
	}

	cheap := rooms[0]
	if !cheap.Highlight || cheap.Price != "AUD 180.00" || cheap.Bed != "2 Twin Bed" || cheap.QuantityAvailable != 3 {
		t.Errorf("Unexpected cheapest room %+v", cheap)
	}
	if diff := cmp.Diff([]string{"https://img/acc.jpg"}, cheap.Photos); diff != "" {
		t.Errorf("Expected accommodation photos as fallback (-want +got):\n%s", diff)
	}
	if rooms[1].Cancellation != "Refundable until 2025-03-12T00:00:00Z" {
		t.Errorf("Expected latest refundable date, got '%s'", rooms[1].Cancellation)
	}

	wantMeta := map[string]string{
		"hotelName": "Harbour View",
		"location":  "Sydney",
		"srr":       "srr_1",
		"message":   "Rates for your dates",
		"count":     "3",
	}
	if diff := cmp.Diff(wantMeta, meta); diff != "" {
		t.Errorf("Unexpected meta (-want +got):\n%s", diff)
	}
}

func TestNormalizeRoomsFlatRates(t *testing.T) {
	raw := `{"room_offers": [{"room_type": "Queen", "total_amount": "210", "currency": "usd"}, {"total_amount": "150", "currency": "usd"}]}`

	rooms, _ := NormalizeRooms([]byte(raw), []byte(`{"hotel_name": "Pier One", "search_result_id": "srr_9"}`))
	if len(rooms) != 2 {
		t.Fatalf("Expected 2 rooms, got %d", len(rooms))
	}
	if rooms[0].ID != "rat_1" || rooms[0].RoomName != "Room 2" {
		t.Errorf("Expected cheaper unnamed rate first, got %+v", rooms[0])
	}
	if rooms[1].RoomName != "Queen" {
		t.Errorf("Expected 'Queen', got '%s'", rooms[1].RoomName)
	}
}

func TestNormalizePayment(t *testing.T) {
	payments, meta := NormalizePayment(
		[]byte(`{"amount": 99.5, "currency": "aud", "flow": "stay"}`),
		[]byte(`{"checkout": {"ctx_id": "ctx_123"}}`),
	)

	want := []Payment{{CtxID: "ctx_123", Flow: "hotel", Amount: "99.50", Currency: "AUD"}}
	if diff := cmp.Diff(want, payments); diff != "" {
		t.Errorf("Unexpected payment (-want +got):\n%s", diff)
	}
	if meta["ctx_id"] != "ctx_123" || meta["flow"] != "hotel" {
		t.Errorf("Unexpected meta %v", meta)
	}
}

func TestParseLenientUnwrapsResult(t *testing.T) {
	r := parseLenient([]byte(`{"result": "{\"offers\": [{\"id\": \"x\"}]}"}`))
	if got := r.Get("offers.0.id").String(); got != "x" {
		t.Errorf("Expected unwrapped result, got '%s'", got)
	}

	r = parseLenient([]byte(`"{\"ctx_id\": \"ctx_1\"}"`))
	if got := r.Get("ctx_id").String(); got != "ctx_1" {
		t.Errorf("Expected string payload to be decoded, got '%s'", got)
	}
}
