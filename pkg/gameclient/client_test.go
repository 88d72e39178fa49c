package gameclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGameService devolve respostas fixas no formato do game-service
func stubGameService(t *testing.T, routes map[string]func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, h := range routes {
		mux.HandleFunc(pattern, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func jsonReply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_PlaceGuess(t *testing.T) {
	srv := stubGameService(t, map[string]func(http.ResponseWriter, *http.Request){
		"/guesses": func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "u-1", body["userId"])
			jsonReply(w, http.StatusOK, map[string]any{
				"guessId":    "g-1",
				"direction":  "up",
				"startPrice": 50000.0,
				"createdAt":  1_700_000_000_000,
				"deadlineAt": 1_700_000_060_000,
			})
		},
	})

	g, err := New(srv.URL).PlaceGuess(context.Background(), "u-1", "up", 50000)
	require.NoError(t, err)
	assert.Equal(t, "g-1", g.ID)
	assert.Equal(t, "u-1", g.UserID)
	assert.Equal(t, int64(1_700_000_060_000), g.DeadlineAt)
}

func TestClient_PlaceGuess_AlreadyActive(t *testing.T) {
	srv := stubGameService(t, map[string]func(http.ResponseWriter, *http.Request){
		"/guesses": func(w http.ResponseWriter, r *http.Request) {
			jsonReply(w, http.StatusBadRequest, map[string]string{"error": "already have an active guess"})
		},
	})

	_, err := New(srv.URL).PlaceGuess(context.Background(), "u-1", "up", 50000)
	assert.ErrorIs(t, err, ErrAlreadyActive)
}

func TestClient_ActiveGuess_Null(t *testing.T) {
	srv := stubGameService(t, map[string]func(http.ResponseWriter, *http.Request){
		"/guesses/active": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "u-1", r.URL.Query().Get("userId"))
			jsonReply(w, http.StatusOK, map[string]any{"activeGuess": nil})
		},
	})

	g, err := New(srv.URL).ActiveGuess(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestClient_Resolve_ErrorMapping(t *testing.T) {
	status := http.StatusNotFound
	srv := stubGameService(t, map[string]func(http.ResponseWriter, *http.Request){
		"/guesses/resolve": func(w http.ResponseWriter, r *http.Request) {
			jsonReply(w, status, map[string]string{"error": "x"})
		},
	})
	cl := New(srv.URL)

	_, err := cl.Resolve(context.Background(), "u-1", "g-stale", 51000)
	assert.ErrorIs(t, err, ErrNotFound)

	status = http.StatusConflict
	_, err = cl.Resolve(context.Background(), "u-1", "g-1", 51000)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestClient_Resolve_Success(t *testing.T) {
	srv := stubGameService(t, map[string]func(http.ResponseWriter, *http.Request){
		"/guesses/resolve": func(w http.ResponseWriter, r *http.Request) {
			jsonReply(w, http.StatusOK, map[string]any{
				"isCorrect":  true,
				"score":      3,
				"startPrice": 50000.0,
				"endPrice":   51000.0,
				"direction":  "up",
				"duration":   60500,
			})
		},
	})

	res, err := New(srv.URL).Resolve(context.Background(), "u-1", "g-1", 51000)
	require.NoError(t, err)
	assert.True(t, res.IsCorrect)
	assert.Equal(t, int64(3), res.Score)
	assert.Equal(t, int64(60500), res.Duration)
}

func TestClient_Score(t *testing.T) {
	srv := stubGameService(t, map[string]func(http.ResponseWriter, *http.Request){
		"/score": func(w http.ResponseWriter, r *http.Request) {
			jsonReply(w, http.StatusOK, map[string]any{"userId": "u-1", "score": 12})
		},
	})

	score, err := New(srv.URL).Score(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, int64(12), score)
}
