package host

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lysyi3m/trip-cards/app/widget"
)

// poster sends one JSON body to a host endpoint. Any non-2xx answer is a
// failure so delivery moves on to the next primitive.
type poster struct {
	host       string
	url        string
	headers    map[string]string
	userAgent  string
	httpClient *http.Client
}

func (p *poster) post(ctx context.Context, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach host %s: %w", p.host, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("host %s returned %s", p.host, resp.Status)
	}
	return nil
}

type followUp struct{ *poster }

func (f followUp) SendFollowUpMessage(ctx context.Context, prompt string) error {
	return f.post(ctx, map[string]string{"prompt": prompt})
}

type userMessage struct{ *poster }

func (u userMessage) AppendUserMessage(ctx context.Context, text string) error {
	return u.post(ctx, map[string]string{"text": text})
}

type messageSender struct{ *poster }

func (m messageSender) SendMessage(ctx context.Context, msg widget.HostMessage) error {
	return m.post(ctx, msg)
}

// frameRelay hands the event to a cross-frame relay and returns without
// waiting for the answer.
type frameRelay struct {
	*poster
	timeout time.Duration
}

func (f frameRelay) PostFrameMessage(ev widget.BroadcastEvent) error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
		defer cancel()

		if err := f.post(ctx, ev); err != nil {
			slog.Warn("Frame relay failed", "host", f.host, "session", ev.Session, "error", err)
		}
	}()
	return nil
}

// Capabilities turns a profile into the delivery primitives the notifier
// walks. events is used only when the profile enables in-process broadcast.
func Capabilities(p *Profile, events *Broadcaster, userAgent string) widget.Capabilities {
	timeout := time.Duration(p.Settings.Timeout) * time.Second
	client := &http.Client{Timeout: timeout}

	newPoster := func(url string) *poster {
		return &poster{
			host:       p.Name,
			url:        url,
			headers:    p.Headers,
			userAgent:  userAgent,
			httpClient: client,
		}
	}

	var caps widget.Capabilities
	if p.FollowUpURL != "" {
		caps.FollowUp = followUp{newPoster(p.FollowUpURL)}
	}
	if p.AppendUserMessageURL != "" {
		caps.AppendUser = userMessage{newPoster(p.AppendUserMessageURL)}
	}
	if p.SendMessageURL != "" {
		caps.SendMessage = messageSender{newPoster(p.SendMessageURL)}
	}
	if p.EventBroadcast && events != nil {
		caps.Events = events
	}
	if p.FrameRelayURL != "" {
		caps.Frames = frameRelay{poster: newPoster(p.FrameRelayURL), timeout: timeout}
	}
	return caps
}
