package widget

import (
	"errors"
	"time"
)

type Kind string

const (
	KindFlight  Kind = "flight"
	KindHotel   Kind = "hotel"
	KindRoom    Kind = "room"
	KindPayment Kind = "payment"
)

func (k Kind) Valid() bool {
	switch k {
	case KindFlight, KindHotel, KindRoom, KindPayment:
		return true
	}
	return false
}

var (
	ErrAlreadyCommitted = errors.New("widget already has an active commitment")
	ErrOfferExpired     = errors.New("offer has expired")
	ErrUnknownItem      = errors.New("item is not part of the current results")
	ErrNotCommitted     = errors.New("widget has no active commitment")
	ErrAlreadyAttempted = errors.New("notification already attempted for this commitment")
	ErrSessionClosed    = errors.New("widget session is closed")
	ErrWrongKind        = errors.New("operation not supported for this widget kind")
	ErrConfirmInFlight  = errors.New("payment confirmation already in progress")
)

// Identifiable is implemented by every canonical item. The id must be stable
// across repeated fetches of the same search and unique within one snapshot.
type Identifiable interface {
	ItemID() string
}

// Snapshot is one host push. It is replaced wholesale, never mutated.
type Snapshot[T Identifiable] struct {
	Items      []T
	Meta       map[string]string
	ReceivedAt time.Time
}

func (s Snapshot[T]) ids() []string {
	ids := make([]string, 0, len(s.Items))
	for _, item := range s.Items {
		ids = append(ids, item.ItemID())
	}
	return ids
}

func (s Snapshot[T]) find(id string) (T, bool) {
	for _, item := range s.Items {
		if item.ItemID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

type Flight struct {
	ID            string `json:"id"`
	Airline       string `json:"airline"`
	AirlineLogo   string `json:"airline_logo,omitempty"`
	Route         string `json:"route"`
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	Weekday       string `json:"weekday,omitempty"`
	Date          string `json:"date,omitempty"`
	DepartTime    string `json:"depart_time"`
	ArriveTime    string `json:"arrive_time"`
	Duration      string `json:"duration"`
	Stops         int    `json:"stops"`
	ReturnRoute   string `json:"return_route,omitempty"`
	ReturnWeekday string `json:"return_weekday,omitempty"`
	ReturnDate    string `json:"return_date,omitempty"`
	ReturnDepart  string `json:"return_depart_time,omitempty"`
	ReturnArrive  string `json:"return_arrive_time,omitempty"`
	ReturnLength  string `json:"return_duration,omitempty"`
	Price         string `json:"price"`
	PriceAmount   string `json:"price_amount,omitempty"`
	Currency      string `json:"currency,omitempty"`
	TaxLabel      string `json:"tax_label,omitempty"`
	Highlight     bool   `json:"highlight"`
}

func (f Flight) ItemID() string { return f.ID }

type Hotel struct {
	ID             string   `json:"id"`
	SearchResultID string   `json:"search_result_id,omitempty"`
	Name           string   `json:"name"`
	Location       string   `json:"location"`
	Rating         float64  `json:"rating"`
	Price          string   `json:"price"`
	Photo          string   `json:"photo,omitempty"`
	Amenities      []string `json:"amenities,omitempty"`
	Highlight      bool     `json:"highlight"`
}

func (h Hotel) ItemID() string { return h.ID }

type Room struct {
	ID                string   `json:"id"`
	RoomName          string   `json:"room_name"`
	Price             string   `json:"price"`
	PriceAmount       string   `json:"price_amount,omitempty"`
	Currency          string   `json:"currency,omitempty"`
	Bed               string   `json:"bed,omitempty"`
	Board             string   `json:"board,omitempty"`
	Cancellation      string   `json:"cancellation,omitempty"`
	QuantityAvailable int      `json:"quantity_available,omitempty"`
	Photos            []string `json:"photos,omitempty"`
	Highlight         bool     `json:"highlight"`
}

func (r Room) ItemID() string { return r.ID }

// Payment is the single checkout line a payment widget renders. Its id is
// the server-issued ctx_id.
type Payment struct {
	CtxID       string `json:"ctx_id"`
	Flow        string `json:"flow"`
	Description string `json:"description,omitempty"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Status      string `json:"status,omitempty"`
}

func (p Payment) ItemID() string { return p.CtxID }
