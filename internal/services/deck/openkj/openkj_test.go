package openkj

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, apiKey string, handler func(command string, body map[string]interface{}) interface{}) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		if body["api_key"] != apiKey {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		command, _ := body["command"].(string)
		reply := handler(command, body)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(reply)
	}))
}

func TestOpenKJ_TestConnection(t *testing.T) {
	srv := newTestServer(t, "secret", func(command string, body map[string]interface{}) interface{} {
		require.Equal(t, "connectionTest", command)
		return map[string]interface{}{"command": command, "error": false, "version": "2.1.2"}
	})
	defer srv.Close()

	kj := New(context.Background(), &Config{BaseURL: srv.URL, APIKey: "secret"})

	version, err := kj.TestConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2.1.2", version)
}

func TestOpenKJ_TestConnection_BadKey(t *testing.T) {
	srv := newTestServer(t, "secret", func(command string, body map[string]interface{}) interface{} {
		return map[string]interface{}{"command": command, "error": false}
	})
	defer srv.Close()

	kj := New(context.Background(), &Config{BaseURL: srv.URL, APIKey: "wrong"})

	_, err := kj.TestConnection(context.Background())
	assert.Error(t, err)
}

func TestOpenKJ_NowPlaying(t *testing.T) {
	srv := newTestServer(t, "secret", func(command string, body map[string]interface{}) interface{} {
		require.Equal(t, "playerState", command)
		return map[string]interface{}{
			"command": command,
			"error":   false,
			"state": map[string]interface{}{
				"title":    "Africa",
				"artist":   "Toto",
				"position": 42.5,
				"duration": 295.0,
				"state":    "playing",
			},
		}
	})
	defer srv.Close()

	kj := New(context.Background(), &Config{BaseURL: srv.URL, APIKey: "secret"})

	np, err := kj.NowPlaying(context.Background())
	require.NoError(t, err)
	require.NotNil(t, np)

	assert.Equal(t, "Africa", np.Title)
	assert.Equal(t, "Toto", np.Artist)
	assert.Equal(t, 42.5, np.Position)
	assert.Equal(t, 295.0, np.Length)
	assert.True(t, np.IsPlaying)
}

func TestOpenKJ_NowPlaying_NothingLoaded(t *testing.T) {
	srv := newTestServer(t, "secret", func(command string, body map[string]interface{}) interface{} {
		return map[string]interface{}{
			"command": command,
			"error":   false,
			"state": map[string]interface{}{
				"title": "",
				"state": "stopped",
			},
		}
	})
	defer srv.Close()

	kj := New(context.Background(), &Config{BaseURL: srv.URL, APIKey: "secret"})

	np, err := kj.NowPlaying(context.Background())
	require.NoError(t, err)
	assert.Nil(t, np)
}

func TestOpenKJ_SearchAndLoad(t *testing.T) {
	var loadedID float64

	srv := newTestServer(t, "secret", func(command string, body map[string]interface{}) interface{} {
		switch command {
		case "search":
			assert.Equal(t, "Toto Africa", body["search_string"])
			return map[string]interface{}{
				"command": command,
				"error":   false,
				"songs": []map[string]interface{}{
					{"song_id": 99, "title": "Africa", "artist": "Toto"},
					{"song_id": 100, "title": "Africa (Live)", "artist": "Toto"},
				},
			}
		case "loadSong":
			loadedID = body["song_id"].(float64)
			return map[string]interface{}{"command": command, "error": false}
		default:
			t.Fatalf("unexpected command %q", command)
			return nil
		}
	})
	defer srv.Close()

	kj := New(context.Background(), &Config{BaseURL: srv.URL, APIKey: "secret"})

	require.NoError(t, kj.SearchAndLoad(context.Background(), "Africa", "Toto"))
	assert.Equal(t, float64(99), loadedID)
}

func TestOpenKJ_SearchAndLoad_NoMatch(t *testing.T) {
	srv := newTestServer(t, "secret", func(command string, body map[string]interface{}) interface{} {
		return map[string]interface{}{"command": command, "error": false, "songs": []map[string]interface{}{}}
	})
	defer srv.Close()

	kj := New(context.Background(), &Config{BaseURL: srv.URL, APIKey: "secret"})

	err := kj.SearchAndLoad(context.Background(), "Obscure Song", "")
	assert.Error(t, err)
}

func TestOpenKJ_SetVocalsMuted(t *testing.T) {
	var gotMute interface{}

	srv := newTestServer(t, "secret", func(command string, body map[string]interface{}) interface{} {
		require.Equal(t, "setMultiplex", command)
		gotMute = body["mute_vocals"]
		return map[string]interface{}{"command": command, "error": false}
	})
	defer srv.Close()

	kj := New(context.Background(), &Config{BaseURL: srv.URL, APIKey: "secret"})

	require.NoError(t, kj.SetVocalsMuted(context.Background(), true))
	assert.Equal(t, true, gotMute)
}

func TestOpenKJ_Unreachable(t *testing.T) {
	srv := newTestServer(t, "secret", func(command string, body map[string]interface{}) interface{} {
		return map[string]interface{}{"command": command, "error": false}
	})
	srv.Close() // shut down before the call

	kj := New(context.Background(), &Config{BaseURL: srv.URL, APIKey: "secret"})

	_, err := kj.NowPlaying(context.Background())
	assert.Error(t, err)
}
