package openkj

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

type ClientConfig struct {
	// BaseURL is the address of the OpenKJ remote control API on the
	// operator's machine, e.g. http://192.168.1.20:8080.
	BaseURL string `json:"baseUrl" mapstructure:"base_url"`

	// APIKey is the key configured in OpenKJ's remote control settings.
	APIKey string `json:"apiKey" mapstructure:"api_key"`

	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// Client talks to OpenKJ's command API: every call is a POST of
// {"api_key": ..., "command": ...} to /api.
type Client struct {
	baseURL string
	apiKey  string

	hc *http.Client
}

func newClient(c *ClientConfig) *Client {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: c.BaseURL,
		apiKey:  c.APIKey,
		hc: &http.Client{
			Timeout: timeout,
		},
	}
}

// command posts one command and decodes the reply into out. A non-nil out
// must be a pointer to a struct with an embedded reply header.
func (c *Client) command(ctx context.Context, body map[string]interface{}, out interface{}) error {
	body["api_key"] = c.apiKey

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("command: json.Marshal: %w", err)
	}

	_baseURL, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("command: url.Parse: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s%s", _baseURL.String(), "/api"), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("command: http.NewReq: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("command: http.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return errors.New("command: resp.StatusCode: 401 => bad api key")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("command: resp.StatusCode: %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("command: json.Decode: %w", err)
	}
	return nil
}

// connectionTest checks reachability and reads the software version.
func (c *Client) connectionTest(ctx context.Context) (string, error) {
	var reply struct {
		Command string `json:"command"`
		Error   bool   `json:"error"`
		Version string `json:"version"`
	}
	if err := c.command(ctx, map[string]interface{}{"command": "connectionTest"}, &reply); err != nil {
		return "", err
	}
	if reply.Error {
		return "", errors.New("connectionTest: controller reported error")
	}
	return reply.Version, nil
}

// playerState reads the karaoke player's current track and transport state.
func (c *Client) playerState(ctx context.Context) (*playerStatePayload, error) {
	var reply struct {
		Command string             `json:"command"`
		Error   bool               `json:"error"`
		State   playerStatePayload `json:"state"`
	}
	if err := c.command(ctx, map[string]interface{}{"command": "playerState"}, &reply); err != nil {
		return nil, err
	}
	if reply.Error {
		return nil, errors.New("playerState: controller reported error")
	}
	return &reply.State, nil
}

type playerStatePayload struct {
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
	State    string  `json:"state"`
}

// search looks the track up in OpenKJ's song database and returns the first
// matching song id, or an error when nothing matched.
func (c *Client) search(ctx context.Context, query string) (int64, error) {
	var reply struct {
		Command string `json:"command"`
		Error   bool   `json:"error"`
		Songs   []struct {
			SongID int64  `json:"song_id"`
			Title  string `json:"title"`
			Artist string `json:"artist"`
		} `json:"songs"`
	}
	if err := c.command(ctx, map[string]interface{}{"command": "search", "search_string": query}, &reply); err != nil {
		return 0, err
	}
	if reply.Error {
		return 0, errors.New("search: controller reported error")
	}
	if len(reply.Songs) == 0 {
		return 0, fmt.Errorf("search: no match for %q", query)
	}
	return reply.Songs[0].SongID, nil
}

// loadSong loads a song id into the karaoke player.
func (c *Client) loadSong(ctx context.Context, songID int64) error {
	var reply struct {
		Command string `json:"command"`
		Error   bool   `json:"error"`
	}
	if err := c.command(ctx, map[string]interface{}{"command": "loadSong", "song_id": songID}, &reply); err != nil {
		return err
	}
	if reply.Error {
		return fmt.Errorf("loadSong: controller rejected song id %d", songID)
	}
	return nil
}

// setMultiplex toggles the vocal channel on multiplex tracks.
func (c *Client) setMultiplex(ctx context.Context, muteVocals bool) error {
	var reply struct {
		Command string `json:"command"`
		Error   bool   `json:"error"`
	}
	if err := c.command(ctx, map[string]interface{}{"command": "setMultiplex", "mute_vocals": muteVocals}, &reply); err != nil {
		return err
	}
	if reply.Error {
		return errors.New("setMultiplex: controller reported error")
	}
	return nil
}
