package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"weatherhub.app/config"
	"weatherhub.app/distributor"
	"weatherhub.app/models"
)

// NewClient builds a session against a running server: websocket push
// on /ws with HTTP polling fallback, tuned by the environment-backed
// session settings.
func NewClient(baseURL string, cfg config.SessionConfig, loc distributor.Location) *Session {
	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/ws"
	return New(NewWebSocketTransport(wsURL), NewHTTPFetcher(baseURL), ConfigFrom(cfg), loc)
}

// SubscribeMessage is the client-to-server subscription request sent
// over the websocket.
type SubscribeMessage struct {
	Type        string  `json:"type"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"location,omitempty"`
	Timezone    string  `json:"timezone,omitempty"`
}

// WebSocketTransport dials the server's websocket endpoint.
type WebSocketTransport struct {
	url    string
	dialer *websocket.Dialer
}

// NewWebSocketTransport creates a transport for the given ws:// or
// wss:// URL.
func NewWebSocketTransport(url string) *WebSocketTransport {
	return &WebSocketTransport{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

func (t *WebSocketTransport) Dial(ctx context.Context) (Conn, error) {
	ws, _, err := t.dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return nil, err
	}
	return &wsConn{ws: ws}, nil
}

type wsConn struct {
	ws *websocket.Conn
}

func (c *wsConn) Subscribe(loc distributor.Location) error {
	return c.ws.WriteJSON(SubscribeMessage{
		Type:        "subscribe",
		Lat:         loc.Lat,
		Lon:         loc.Lon,
		DisplayName: loc.DisplayName,
		Timezone:    loc.Timezone,
	})
}

func (c *wsConn) ReadEvent() (distributor.Event, error) {
	var event distributor.Event
	err := c.ws.ReadJSON(&event)
	return event, err
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}

// HTTPFetcher polls the REST weather endpoint.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
}

// NewHTTPFetcher creates a fetcher against the given server base URL.
func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, lat, lon float64, displayName, timezone string) (*models.NormalizedObservation, error) {
	query := url.Values{}
	query.Set("lat", fmt.Sprintf("%.4f", lat))
	query.Set("lon", fmt.Sprintf("%.4f", lon))
	if displayName != "" {
		query.Set("location", displayName)
	}
	if timezone != "" {
		query.Set("timezone", timezone)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/api/weather?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("weather fetch returned status %d: %s", resp.StatusCode, body)
	}

	var obs models.NormalizedObservation
	if err := json.NewDecoder(resp.Body).Decode(&obs); err != nil {
		return nil, err
	}
	return &obs, nil
}
