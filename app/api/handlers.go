package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/trip-cards/app/booking"
	"github.com/lysyi3m/trip-cards/app/database"
	"github.com/lysyi3m/trip-cards/app/host"
	"github.com/lysyi3m/trip-cards/app/widget"
	"github.com/samber/lo"
)

func NewHandler(sessions SessionRegistry, backend BackendInterface, ledger CheckoutLedger,
	history CommitmentHistory, events *host.Broadcaster, profiles *host.ProfileCache) *Handler {
	return &Handler{
		sessions: sessions,
		backend:  backend,
		ledger:   ledger,
		history:  history,
		events:   events,
		profiles: profiles,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]any{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"sessions":  h.sessions.Len(),
	}

	if h.profiles != nil {
		health["loaded_hosts"] = h.profiles.GetProfileCount()
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) ListHosts(c *gin.Context) {
	if h.profiles == nil {
		c.JSON(http.StatusOK, gin.H{"hosts": []any{}, "total": 0})
		return
	}

	profiles := h.profiles.GetProfiles()
	names := lo.Keys(profiles)
	sort.Strings(names)

	hosts := make([]map[string]any, 0, len(names))
	for _, name := range names {
		p := profiles[name]
		caps := host.Capabilities(p, h.events, "")
		hosts = append(hosts, map[string]any{
			"name":         p.Name,
			"enabled":      !p.Settings.Disabled,
			"timeout":      (time.Duration(p.Settings.Timeout) * time.Second).String(),
			"capabilities": caps.Detected(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"hosts": hosts,
		"total": len(hosts),
	})
}

func (h *Handler) Decide(c *gin.Context) {
	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	render, ui := widget.Decide(req.Tool, req.Result)
	resp := gin.H{"render": render, "ui_type": ui}
	if kind, ok := widget.WidgetKind(ui); ok {
		resp["kind"] = kind
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) OpenSession(c *gin.Context) {
	var req openSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, err := h.sessions.Open(req.Kind, req.Host)
	if err != nil {
		slog.Warn("Failed to open session", "kind", req.Kind, "host", req.Host, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, s.View())
}

func (h *Handler) GetSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, s.View())
}

func (h *Handler) CloseSession(c *gin.Context) {
	if !h.sessions.Close(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) PushFeed(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req feedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.Push(req.Output, req.Metadata)
	c.JSON(http.StatusOK, s.View())
}

// FetchFeed pulls results from the backend and pushes them as if the agent's
// tool had produced them.
func (h *Handler) FetchFeed(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req fetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	query := url.Values{}
	for k, v := range req.Query {
		query.Set(k, v)
	}

	output, err := h.backend.FetchResults(c.Request.Context(), string(s.Kind()), query)
	if err != nil {
		slog.Error("Backend fetch failed", "session", s.ID(), "kind", s.Kind(), "error", err)
		writeError(c, err)
		return
	}

	s.Push(output, req.Metadata)
	c.JSON(http.StatusOK, s.View())
}

func (h *Handler) Commit(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req commitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := s.Commit(c.Request.Context(), req.ItemID)
	if err != nil {
		slog.Debug("Commit rejected", "session", s.ID(), "item", req.ItemID, "error", err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *Handler) Reset(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	s.Reset()
	c.JSON(http.StatusOK, s.View())
}

// StreamEvents relays in-process broadcast events for one session as
// server-sent events.
func (h *Handler) StreamEvents(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	events, cancel := h.events.Subscribe(s.ID())
	defer cancel()

	ping := time.NewTicker(25 * time.Second)
	defer ping.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(ev.Type, ev)
			return true
		case <-ping.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (h *Handler) PreparePayment(c *gin.Context) {
	p, ok := h.paymentSession(c)
	if !ok {
		return
	}

	intent, err := p.PrepareIntent(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, intent)
}

func (h *Handler) ConfirmPayment(c *gin.Context) {
	p, ok := h.paymentSession(c)
	if !ok {
		return
	}

	var res widget.PaymentResult
	if err := c.ShouldBindJSON(&res); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, view, err := p.Confirm(c.Request.Context(), res)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"result":  result,
		"session": view,
	})
}

func (h *Handler) PaymentStatus(c *gin.Context) {
	p, ok := h.paymentSession(c)
	if !ok {
		return
	}

	checkout, ok := p.Checkout()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No checkout on this card"})
		return
	}

	status, err := h.backend.CheckoutStatus(c.Request.Context(), checkout.CtxID)
	if err != nil {
		writeError(c, err)
		return
	}

	confirmed, err := p.Confirmed(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, struct {
		booking.CheckoutStatus
		Confirmed bool `json:"confirmed"`
	}{status, confirmed})
}

func (h *Handler) ListCheckouts(c *gin.Context) {
	status := c.DefaultQuery("status", widget.LedgerPaidUnconfirmed)
	if !lo.Contains([]string{widget.LedgerPaid, widget.LedgerBooked, widget.LedgerPaidUnconfirmed}, status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown checkout status: " + status})
		return
	}

	entries, err := h.ledger.ListByStatus(c.Request.Context(), status)
	if err != nil {
		slog.Error("Database error", "operation", "list_checkouts", "status", status, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list checkouts"})
		return
	}
	if entries == nil {
		entries = []widget.LedgerEntry{}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"count":     len(entries),
		"checkouts": entries,
	})
}

// ListCommitments returns the recorded commitments of a session. It reads the
// audit table, so it also works for sessions that were already closed.
func (h *Handler) ListCommitments(c *gin.Context) {
	id := c.Param("id")

	commitments, err := h.history.ListBySession(c.Request.Context(), id)
	if err != nil {
		slog.Error("Database error", "operation", "list_commitments", "session", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list commitments"})
		return
	}
	if commitments == nil {
		commitments = []database.Commitment{}
	}

	c.JSON(http.StatusOK, gin.H{
		"session":     id,
		"count":       len(commitments),
		"commitments": commitments,
	})
}

func (h *Handler) session(c *gin.Context) (widget.Handle, bool) {
	id := c.Param("id")
	s, ok := h.sessions.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return nil, false
	}
	return s, true
}

func (h *Handler) paymentSession(c *gin.Context) (*widget.PaymentSession, bool) {
	s, ok := h.session(c)
	if !ok {
		return nil, false
	}
	p, ok := s.(*widget.PaymentSession)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": widget.ErrWrongKind.Error()})
		return nil, false
	}
	return p, true
}

func writeError(c *gin.Context, err error) {
	var apiErr *booking.APIError

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, widget.ErrUnknownItem):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, widget.ErrWrongKind):
		status = http.StatusBadRequest
	case errors.Is(err, widget.ErrOfferExpired), errors.Is(err, widget.ErrSessionClosed):
		status = http.StatusGone
	case errors.Is(err, widget.ErrAlreadyCommitted), errors.Is(err, widget.ErrAlreadyAttempted),
		errors.Is(err, widget.ErrConfirmInFlight), errors.Is(err, widget.ErrCheckoutConfirmed):
		status = http.StatusConflict
	case errors.Is(err, booking.ErrUnknownContext):
		status = http.StatusNotFound
	case errors.Is(err, booking.ErrPaymentNotSucceeded):
		status = http.StatusPaymentRequired
	case errors.As(err, &apiErr):
		status = http.StatusBadGateway
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
