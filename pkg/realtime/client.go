package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2/google"

	"github.com/junolabs/go-juno/internal/log"
)

const (
	openAIRealtimeURL = "wss://api.openai.com/v1/realtime"
	xaiRealtimeURL    = "wss://api.x.ai/v1/realtime"
	googleLiveURL     = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	googleAuthScope = "https://www.googleapis.com/auth/generative-language"
)

// Client is the full speech-to-speech stack for one provider connection:
// transport, codec, session configuration, and event dispatch. Construct it,
// assign sinks, then Connect.
type Client struct {
	settings Settings

	conn     *Conn
	enc      *Encoder
	dispatch *Dispatcher
	session  *Session

	// OnReady fires once the provider confirms the session, or with an
	// error if configuration fails.
	OnReady func(err error)

	// OnDisconnect fires on abnormal transport loss. Reconnection is the
	// caller's decision.
	OnDisconnect func(err error)

	// OnStateChange observes connection lifecycle transitions.
	OnStateChange func(state ConnState)
}

// NewClient builds a disconnected client for the given settings.
func NewClient(settings Settings) (*Client, error) {
	settings = settings.withDefaults()
	if settings.APIKey == "" && settings.Provider != ProviderGoogle {
		return nil, ErrMissingAPIKey
	}

	c := &Client{settings: settings}

	family := settings.Provider.Family()
	c.conn = NewConn()
	c.enc = NewEncoder(family, settings.InputSampleRate)
	c.session = NewSession(settings, c.conn.Send)
	c.dispatch = NewDispatcher(NewDecoder(), c.enc, c.session, c.conn.Send)

	c.conn.OnMessage = c.dispatch.HandleRaw
	c.conn.OnStateChange = func(state ConnState) {
		if c.OnStateChange != nil {
			c.OnStateChange(state)
		}
	}
	c.conn.OnFailure = func(err error) {
		log.Warn("realtime: connection lost", "provider", string(settings.Provider), "err", err)
		// A connection that dies before the provider acks the session must
		// still resolve the pending readiness callback.
		c.session.Fail(err)
		if c.OnDisconnect != nil {
			c.OnDisconnect(err)
		}
	}

	return c, nil
}

// Settings returns the effective (defaulted) settings, reflecting any
// UpdateSession applied since connect.
func (c *Client) Settings() Settings {
	return c.session.Settings()
}

// Dispatcher exposes the event dispatcher for sink assignment.
func (c *Client) Dispatcher() *Dispatcher {
	return c.dispatch
}

// Turns exposes the turn tracker.
func (c *Client) Turns() *TurnTracker {
	return c.dispatch.Turns
}

// Connect dials the provider and sends the session configuration. Readiness
// arrives asynchronously through OnReady. The context bounds credential
// resolution for Google default credentials; the dial itself uses the
// transport's handshake timeout.
func (c *Client) Connect(ctx context.Context) error {
	endpoint, header, err := c.endpoint(ctx)
	if err != nil {
		return err
	}

	log.Info("realtime: connecting", "provider", string(c.settings.Provider), "model", c.settings.Model)
	if err := c.conn.Connect(endpoint, header); err != nil {
		return err
	}

	if !c.session.Configure(c.notifyReady) {
		c.conn.Close()
		return ErrNotConnected
	}
	return nil
}

func (c *Client) notifyReady(err error) {
	if err != nil {
		log.Error("realtime: session configuration failed", "err", err)
	} else {
		log.Info("realtime: session ready", "provider", string(c.settings.Provider))
	}
	if c.OnReady != nil {
		c.OnReady(err)
	}
}

// endpoint resolves the wss URL and auth headers for the configured provider.
func (c *Client) endpoint(ctx context.Context) (string, http.Header, error) {
	header := http.Header{}
	s := c.settings

	switch s.Provider {
	case ProviderOpenAI:
		header.Set("Authorization", "Bearer "+s.APIKey)
		if schemaFor(s) == schemaBeta {
			header.Set("OpenAI-Beta", "realtime=v1")
		}
		return openAIRealtimeURL + "?model=" + url.QueryEscape(s.Model), header, nil

	case ProviderAzure:
		// Azure endpoints carry the deployment and api-version in the URL,
		// so the full wss URL must be supplied.
		if s.Endpoint == "" {
			return "", nil, errors.New("realtime: azure requires an explicit endpoint URL")
		}
		header.Set("api-key", s.APIKey)
		return s.Endpoint, header, nil

	case ProviderXAI:
		header.Set("Authorization", "Bearer "+s.APIKey)
		return xaiRealtimeURL + "?model=" + url.QueryEscape(s.Model), header, nil

	case ProviderGoogle:
		if s.APIKey != "" {
			return googleLiveURL + "?key=" + url.QueryEscape(s.APIKey), header, nil
		}
		// No API key: fall back to application default credentials, the
		// auth path used on GCE and with gcloud auth on workstations.
		creds, err := google.FindDefaultCredentials(ctx, googleAuthScope)
		if err != nil {
			return "", nil, fmt.Errorf("realtime: no API key and no default credentials: %w", err)
		}
		tok, err := creds.TokenSource.Token()
		if err != nil {
			return "", nil, fmt.Errorf("realtime: token fetch failed: %w", err)
		}
		header.Set("Authorization", "Bearer "+tok.AccessToken)
		return googleLiveURL, header, nil

	default:
		return "", nil, fmt.Errorf("realtime: unknown provider %q", s.Provider)
	}
}

// Close shuts the connection down gracefully.
func (c *Client) Close() {
	c.conn.Close()
}

// State returns the connection state.
func (c *Client) State() ConnState {
	return c.conn.State()
}

// Ready reports whether the session is configured and confirmed.
func (c *Client) Ready() bool {
	return c.session.Ready()
}

// SendAudio streams one PCM16 microphone chunk. Returns false when the
// connection cannot take it; audio is never queued client-side.
func (c *Client) SendAudio(pcm []byte) bool {
	if !c.session.Ready() {
		return false
	}
	return c.conn.Send(c.enc.AppendAudio(pcm))
}

// SendText injects a user text message and requests a response.
func (c *Client) SendText(text string) error {
	if !c.session.Ready() {
		return ErrSessionNotReady
	}
	if !c.conn.Send(c.enc.UserText(text)) {
		return ErrNotConnected
	}
	if msg := c.enc.CreateResponse(); msg != nil {
		c.conn.Send(msg)
	}
	return nil
}

// SendImage injects a base64-encoded user image and requests a response.
func (c *Client) SendImage(b64Data, mimeType string) error {
	if !c.session.Ready() {
		return ErrSessionNotReady
	}
	if !c.conn.Send(c.enc.UserImage(b64Data, mimeType)) {
		return ErrNotConnected
	}
	if msg := c.enc.CreateResponse(); msg != nil {
		c.conn.Send(msg)
	}
	return nil
}

// Interrupt stops the assistant mid-response.
func (c *Client) Interrupt() {
	c.dispatch.Interrupt()
}

// UpdateSession reconfigures the live session where the provider allows it.
func (c *Client) UpdateSession(settings Settings) error {
	return c.session.Update(settings)
}
