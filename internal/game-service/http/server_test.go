package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/btc-guess-platform/internal/game-service/dto"
	ghttp "github.com/radieske/btc-guess-platform/internal/game-service/http"
	"github.com/radieske/btc-guess-platform/internal/game-service/repo"
	"github.com/radieske/btc-guess-platform/pkg/contracts/events"
)

type capturedPublisher struct {
	published []events.GuessResolved
}

func (c *capturedPublisher) PublishGuessResolved(_ context.Context, e events.GuessResolved) error {
	c.published = append(c.published, e)
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *capturedPublisher) {
	t.Helper()
	publ := &capturedPublisher{}
	srv := ghttp.NewServer(zap.NewNop(), repo.NewMemory(), nil, publ, nil, time.Minute, 5*time.Minute)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, publ
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func createGuess(t *testing.T, ts *httptest.Server, userID, dir string, price float64) dto.CreateGuessResponse {
	t.Helper()
	resp := postJSON(t, ts.URL+"/guesses", dto.CreateGuessRequest{
		UserID: userID, Direction: dir, CurrentPrice: price,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode[dto.CreateGuessResponse](t, resp)
}

func TestCreateGuess_Validation(t *testing.T) {
	ts, _ := newTestServer(t)

	cases := []dto.CreateGuessRequest{
		{UserID: "", Direction: "up", CurrentPrice: 50000},
		{UserID: "u1", Direction: "sideways", CurrentPrice: 50000},
		{UserID: "u1", Direction: "up", CurrentPrice: 0},
		{UserID: "u1", Direction: "up", CurrentPrice: -1},
	}
	for _, c := range cases {
		resp := postJSON(t, ts.URL+"/guesses", c)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	}
}

func TestCreateGuess_AlreadyActive(t *testing.T) {
	ts, _ := newTestServer(t)

	createGuess(t, ts, "u1", "up", 50000)

	resp := postJSON(t, ts.URL+"/guesses", dto.CreateGuessRequest{
		UserID: "u1", Direction: "down", CurrentPrice: 50100,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Contains(t, body["error"], "active guess")

	// segue existindo exatamente um palpite armazenado, o primeiro
	acResp, err := http.Get(ts.URL + "/guesses/active?userId=u1")
	require.NoError(t, err)
	ac := decode[dto.ActiveGuessResponse](t, acResp)
	require.NotNil(t, ac.ActiveGuess)
	assert.Equal(t, "up", ac.ActiveGuess.Direction)
}

func TestActiveGuess_NullWhenNone(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/guesses/active?userId=ghost")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ac := decode[dto.ActiveGuessResponse](t, resp)
	assert.Nil(t, ac.ActiveGuess)
}

func TestResolve_CorrectGuessUp(t *testing.T) {
	ts, publ := newTestServer(t)
	g := createGuess(t, ts, "u1", "up", 50000)

	resp := postJSON(t, ts.URL+"/guesses/resolve", dto.ResolveGuessRequest{
		UserID: "u1", GuessID: g.GuessID, CurrentPrice: 51000,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[dto.ResolveGuessResponse](t, resp)

	assert.True(t, res.IsCorrect)
	assert.Equal(t, int64(1), res.Score)
	assert.Equal(t, 50000.0, res.StartPrice)
	assert.Equal(t, 51000.0, res.EndPrice)
	assert.Equal(t, "up", res.Direction)
	assert.GreaterOrEqual(t, res.Duration, int64(0))

	require.Len(t, publ.published, 1)
	assert.Equal(t, int64(1), publ.published[0].Delta)
	assert.Equal(t, g.GuessID, publ.published[0].GuessID)
}

func TestResolve_IncorrectGuessUp(t *testing.T) {
	ts, _ := newTestServer(t)
	g := createGuess(t, ts, "u1", "up", 50000)

	resp := postJSON(t, ts.URL+"/guesses/resolve", dto.ResolveGuessRequest{
		UserID: "u1", GuessID: g.GuessID, CurrentPrice: 49000,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[dto.ResolveGuessResponse](t, resp)

	assert.False(t, res.IsCorrect)
	assert.Equal(t, int64(-1), res.Score)
}

func TestResolve_UnchangedPriceIncorrect(t *testing.T) {
	ts, _ := newTestServer(t)
	g := createGuess(t, ts, "u1", "up", 50000)

	resp := postJSON(t, ts.URL+"/guesses/resolve", dto.ResolveGuessRequest{
		UserID: "u1", GuessID: g.GuessID, CurrentPrice: 50000,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[dto.ResolveGuessResponse](t, resp)
	assert.False(t, res.IsCorrect)
}

func TestResolve_TwiceConflict(t *testing.T) {
	ts, _ := newTestServer(t)
	g := createGuess(t, ts, "u1", "up", 50000)

	resp := postJSON(t, ts.URL+"/guesses/resolve", dto.ResolveGuessRequest{
		UserID: "u1", GuessID: g.GuessID, CurrentPrice: 51000,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// mesma guessId de novo: 409, pontuação não muda
	resp = postJSON(t, ts.URL+"/guesses/resolve", dto.ResolveGuessRequest{
		UserID: "u1", GuessID: g.GuessID, CurrentPrice: 49000,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	scoreResp, err := http.Get(ts.URL + "/score?userId=u1")
	require.NoError(t, err)
	sc := decode[dto.ScoreResponse](t, scoreResp)
	assert.Equal(t, int64(1), sc.Score)
}

func TestResolve_UnknownGuessNotFound(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/guesses/resolve", dto.ResolveGuessRequest{
		UserID: "u1", GuessID: "never-existed", CurrentPrice: 51000,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestScore_LazyCreateZero(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/score?userId=newcomer")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sc := decode[dto.ScoreResponse](t, resp)
	assert.Equal(t, "newcomer", sc.UserID)
	assert.Equal(t, int64(0), sc.Score)

	// releitura estável
	resp, err = http.Get(ts.URL + "/score?userId=newcomer")
	require.NoError(t, err)
	sc = decode[dto.ScoreResponse](t, resp)
	assert.Equal(t, int64(0), sc.Score)
}

func TestScore_AccumulatesAcrossGuesses(t *testing.T) {
	ts, _ := newTestServer(t)

	g := createGuess(t, ts, "u1", "up", 50000)
	resp := postJSON(t, ts.URL+"/guesses/resolve", dto.ResolveGuessRequest{
		UserID: "u1", GuessID: g.GuessID, CurrentPrice: 51000,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	g = createGuess(t, ts, "u1", "down", 51000)
	resp = postJSON(t, ts.URL+"/guesses/resolve", dto.ResolveGuessRequest{
		UserID: "u1", GuessID: g.GuessID, CurrentPrice: 52000,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[dto.ResolveGuessResponse](t, resp)
	assert.Equal(t, int64(0), res.Score) // +1 -1
}

func TestHistory(t *testing.T) {
	ts, _ := newTestServer(t)

	g := createGuess(t, ts, "u1", "up", 50000)
	resp := postJSON(t, ts.URL+"/guesses/resolve", dto.ResolveGuessRequest{
		UserID: "u1", GuessID: g.GuessID, CurrentPrice: 51000,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	histResp, err := http.Get(ts.URL + "/guesses/history?userId=u1")
	require.NoError(t, err)
	hist := decode[[]dto.HistoryEntry](t, histResp)
	require.Len(t, hist, 1)
	assert.Equal(t, g.GuessID, hist[0].GuessID)
	assert.True(t, hist[0].IsCorrect)
	assert.Equal(t, int64(1), hist[0].Delta)
}

func TestLeaderboard_UnavailableWithoutRanking(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/leaderboard")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp.Body.Close()
}
