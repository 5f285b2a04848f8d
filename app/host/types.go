package host

// Profile describes the delivery primitives one embedding host exposes.
// An empty URL means the primitive is absent.
type Profile struct {
	Name                 string            // Derived from filename (without .yml extension)
	FollowUpURL          string            `yaml:"follow_up_url"`
	AppendUserMessageURL string            `yaml:"append_user_message_url"`
	SendMessageURL       string            `yaml:"send_message_url"`
	EventBroadcast       bool              `yaml:"event_broadcast"`
	FrameRelayURL        string            `yaml:"frame_relay_url"`
	Headers              map[string]string `yaml:"headers"`
	Settings             ProfileSettings   `yaml:"settings"`
}

type ProfileSettings struct {
	Disabled bool `yaml:"disabled"`
	Timeout  int  `yaml:"timeout"` // seconds
}

func (p *Profile) urls() map[string]string {
	return map[string]string{
		"follow_up_url":           p.FollowUpURL,
		"append_user_message_url": p.AppendUserMessageURL,
		"send_message_url":        p.SendMessageURL,
		"frame_relay_url":         p.FrameRelayURL,
	}
}
