package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/padraicbc/wagergenie/assistant"
	"github.com/padraicbc/wagergenie/ingest"
	mw "github.com/padraicbc/wagergenie/middleware"
	"github.com/padraicbc/wagergenie/models"
	"github.com/padraicbc/wagergenie/picks"
	"github.com/padraicbc/wagergenie/store"
)

var testKey = []byte("handler-test-key")

type fakeStore struct {
	users    map[string]*models.User
	gone     map[int64]bool
	messages []models.ChatMessage
	picks    []models.Pick
	updated  map[int64]models.Result
	pingErr  error

	profile    *models.UserProfile
	sub        *models.Subscription
	profileErr error
}

func (s *fakeStore) Ping(context.Context) error { return s.pingErr }

func (s *fakeStore) UserExists(_ context.Context, id int64) (bool, error) {
	return !s.gone[id], nil
}

func (s *fakeStore) Profile(context.Context, int64) (*models.UserProfile, error) {
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	if s.profile == nil {
		return nil, store.ErrNotFound
	}
	return s.profile, nil
}

func (s *fakeStore) Subscription(context.Context, int64) (*models.Subscription, error) {
	if s.sub == nil {
		return nil, store.ErrNotFound
	}
	return s.sub, nil
}

func (s *fakeStore) UserByUsername(_ context.Context, name string) (*models.User, error) {
	u, ok := s.users[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (s *fakeStore) ChatMessages(context.Context, int64, int) ([]models.ChatMessage, error) {
	return s.messages, nil
}

func (s *fakeStore) PicksByUser(_ context.Context, userID int64, limit int) ([]models.Pick, error) {
	var out []models.Pick
	for _, p := range s.picks {
		if p.UserID == userID && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdatePickResult(_ context.Context, userID, pickID int64, r models.Result) error {
	for _, p := range s.picks {
		if p.ID == pickID && p.UserID == userID {
			if s.updated == nil {
				s.updated = map[int64]models.Result{}
			}
			s.updated[pickID] = r
			return nil
		}
	}
	return store.ErrNotFound
}

type fakeChat struct {
	reply *assistant.Reply
	err   error
	got   string
}

func (f *fakeChat) Reply(_ context.Context, _ int64, msg string) (*assistant.Reply, error) {
	f.got = msg
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

type fakeJob struct {
	res  ingest.RunResult
	err  error
	runs int
}

func (j *fakeJob) Run(context.Context) (ingest.RunResult, error) {
	j.runs++
	return j.res, j.err
}

type fakeStream struct {
	ch chan models.ChatMessage
}

func (f *fakeStream) Subscribe(int64) (<-chan models.ChatMessage, func()) {
	return f.ch, func() {}
}

func newTestServer(t *testing.T, st *fakeStore, chat *fakeChat, odds, scrape *fakeJob, stream *fakeStream) *echo.Echo {
	t.Helper()
	h := New(st, testKey, zap.NewNop())
	h.Assistant = chat
	h.OddsJob = odds
	h.ScrapeJob = scrape
	h.Stream = stream
	h.now = func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }

	e := echo.New()
	e.POST("/api/signin", h.Signin)
	e.POST("/api/signout", h.Signout)
	e.GET("/healthz", h.Health)

	api := e.Group("/api", mw.RequireSession(testKey, st))
	api.GET("/me", h.Me)
	api.POST("/chat", h.Chat)
	api.GET("/chat/messages", h.ChatMessages)
	api.GET("/chat/stream", h.ChatStream)
	api.GET("/picks", h.Picks)
	api.PATCH("/picks/:id/result", h.UpdatePickResult)

	cron := e.Group("/api/cron", mw.CronSecret("cron-secret"))
	cron.GET("/odds", h.CronOdds)
	cron.GET("/scrape", h.CronScrape)
	return e
}

func do(e *echo.Echo, method, path, body, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func session(t *testing.T, id int64) string {
	t.Helper()
	tok, _, err := mw.IssueToken(id, "alice", testKey, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestChatRequiresSession(t *testing.T) {
	chat := &fakeChat{}
	e := newTestServer(t, &fakeStore{}, chat, &fakeJob{}, &fakeJob{}, nil)

	rec := do(e, http.MethodPost, "/api/chat", `{"message":"hi"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, chat.got)
}

func TestChatDeletedUser(t *testing.T) {
	chat := &fakeChat{reply: &assistant.Reply{Message: "ok"}}
	e := newTestServer(t, &fakeStore{gone: map[int64]bool{1: true}}, chat, &fakeJob{}, &fakeJob{}, nil)

	rec := do(e, http.MethodPost, "/api/chat", `{"message":"hi"}`, session(t, 1))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, chat.got, "assistant must not run for a deleted user")
}

func TestMe(t *testing.T) {
	e := newTestServer(t, &fakeStore{}, &fakeChat{}, &fakeJob{}, &fakeJob{}, nil)
	rec := do(e, http.MethodGet, "/api/me", "", session(t, 1))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":1,"username":"alice","plan":"free","profile":null,"subscription":null}`, rec.Body.String())

	st := &fakeStore{
		profile: &models.UserProfile{ID: 3, UserID: 1, Email: "alice@example.com"},
		sub:     &models.Subscription{ID: 4, UserID: 1, Plan: models.PlanUnlimited, Status: models.StatusActive},
	}
	e = newTestServer(t, st, &fakeChat{}, &fakeJob{}, &fakeJob{}, nil)
	rec = do(e, http.MethodGet, "/api/me", "", session(t, 1))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"plan":"unlimited"`)
	assert.Contains(t, rec.Body.String(), `"email":"alice@example.com"`)

	st.sub.Status = models.StatusCancelled
	rec = do(e, http.MethodGet, "/api/me", "", session(t, 1))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"plan":"free"`)

	st.profileErr = errors.New("db down")
	rec = do(e, http.MethodGet, "/api/me", "", session(t, 1))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestChatReturnsNullPicks(t *testing.T) {
	chat := &fakeChat{reply: &assistant.Reply{Message: "Sit this one out."}}
	e := newTestServer(t, &fakeStore{}, chat, &fakeJob{}, &fakeJob{}, nil)

	rec := do(e, http.MethodPost, "/api/chat", `{"message":"any locks?","userId":"abc"}`, session(t, 1))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Sit this one out.","picks":null}`, rec.Body.String())
	assert.Equal(t, "any locks?", chat.got)
}

func TestChatReturnsPick(t *testing.T) {
	chat := &fakeChat{reply: &assistant.Reply{
		Message: "Event: A vs B",
		Picks:   &picks.Pick{Event: "A vs B", Prediction: "A", Odds: "+120", Confidence: 65},
	}}
	e := newTestServer(t, &fakeStore{}, chat, &fakeJob{}, &fakeJob{}, nil)

	rec := do(e, http.MethodPost, "/api/chat", `{"message":"pick?"}`, session(t, 1))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Event: A vs B","picks":{"event":"A vs B","prediction":"A","odds":"+120","confidence":65}}`, rec.Body.String())
}

func TestChatUsesLastUserTurn(t *testing.T) {
	chat := &fakeChat{reply: &assistant.Reply{Message: "ok"}}
	e := newTestServer(t, &fakeStore{}, chat, &fakeJob{}, &fakeJob{}, nil)

	body := `{"messages":[{"role":"user","content":"first"},{"role":"assistant","content":"answer"},{"role":"user","content":"second"}]}`
	rec := do(e, http.MethodPost, "/api/chat", body, session(t, 1))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "second", chat.got)
}

func TestChatEmptyMessage(t *testing.T) {
	e := newTestServer(t, &fakeStore{}, &fakeChat{}, &fakeJob{}, &fakeJob{}, nil)
	rec := do(e, http.MethodPost, "/api/chat", `{"message":"   "}`, session(t, 1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatFailureIsGeneric500(t *testing.T) {
	chat := &fakeChat{err: errors.New("openai http 429: rate limited")}
	e := newTestServer(t, &fakeStore{}, chat, &fakeJob{}, &fakeJob{}, nil)

	rec := do(e, http.MethodPost, "/api/chat", `{"message":"hi"}`, session(t, 1))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal Server Error")
	assert.NotContains(t, rec.Body.String(), "429")
}

func TestChatMessages(t *testing.T) {
	st := &fakeStore{messages: []models.ChatMessage{
		{ID: 1, UserID: 1, Role: models.RoleUser, Content: "hi"},
		{ID: 2, UserID: 1, Role: models.RoleAssistant, Content: "hello"},
	}}
	e := newTestServer(t, st, &fakeChat{}, &fakeJob{}, &fakeJob{}, nil)

	rec := do(e, http.MethodGet, "/api/chat/messages", "", session(t, 1))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"user"`)
	assert.True(t, strings.Index(rec.Body.String(), `"id":1`) < strings.Index(rec.Body.String(), `"id":2`))
}

func TestChatStream(t *testing.T) {
	ch := make(chan models.ChatMessage, 1)
	ch <- models.ChatMessage{ID: 7, UserID: 1, Role: models.RoleAssistant, Content: "Lakers ML"}
	close(ch)

	e := newTestServer(t, &fakeStore{}, &fakeChat{}, &fakeJob{}, &fakeJob{}, &fakeStream{ch: ch})
	rec := do(e, http.MethodGet, "/api/chat/stream", "", session(t, 1))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Body.String(), "id: 7\nevent: message\ndata: {")
	assert.Contains(t, rec.Body.String(), `"content":"Lakers ML"`)
}

func TestPicks(t *testing.T) {
	st := &fakeStore{picks: []models.Pick{
		{ID: 1, UserID: 1, Sport: models.SportNBA, Event: "A vs B", Prediction: "A", Result: models.ResultPending},
		{ID: 2, UserID: 2, Sport: models.SportNFL, Event: "C vs D", Prediction: "C", Result: models.ResultPending},
	}}
	e := newTestServer(t, st, &fakeChat{}, &fakeJob{}, &fakeJob{}, nil)

	rec := do(e, http.MethodGet, "/api/picks", "", session(t, 1))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"event":"A vs B"`)
	assert.NotContains(t, rec.Body.String(), `"event":"C vs D"`)

	rec = do(e, http.MethodGet, "/api/picks", "", session(t, 99))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestUpdatePickResult(t *testing.T) {
	st := &fakeStore{picks: []models.Pick{{ID: 1, UserID: 1}}}
	e := newTestServer(t, st, &fakeChat{}, &fakeJob{}, &fakeJob{}, nil)

	rec := do(e, http.MethodPatch, "/api/picks/1/result", `{"result":"push"}`, session(t, 1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPatch, "/api/picks/abc/result", `{"result":"win"}`, session(t, 1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPatch, "/api/picks/1/result", `{"result":"win"}`, session(t, 2))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodPatch, "/api/picks/1/result", `{"result":"win"}`, session(t, 1))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ResultWin, st.updated[1])
}

func TestCronOddsRequiresSecret(t *testing.T) {
	odds := &fakeJob{}
	e := newTestServer(t, &fakeStore{}, &fakeChat{}, odds, &fakeJob{}, nil)

	rec := do(e, http.MethodGet, "/api/cron/odds", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = do(e, http.MethodGet, "/api/cron/odds", "", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, odds.runs, "job must not run")
}

func TestCronOdds(t *testing.T) {
	odds := &fakeJob{res: ingest.RunResult{RunID: "r1", Count: 12, Failed: []string{"icehockey_nhl"}}}
	e := newTestServer(t, &fakeStore{}, &fakeChat{}, odds, &fakeJob{}, nil)

	rec := do(e, http.MethodGet, "/api/cron/odds", "", "Bearer cron-secret")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"runId":"r1","count":12,"failed":["icehockey_nhl"]}`, rec.Body.String())
	assert.Equal(t, 1, odds.runs)
}

func TestCronScrapeZeroPicks(t *testing.T) {
	scrape := &fakeJob{res: ingest.RunResult{RunID: "r2"}}
	e := newTestServer(t, &fakeStore{}, &fakeChat{}, &fakeJob{}, scrape, nil)

	rec := do(e, http.MethodGet, "/api/cron/scrape", "", "Bearer cron-secret")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"runId":"r2","picksCount":0,"timestamp":"2026-10-18T12:00:00Z"}`, rec.Body.String())
}

func TestCronScrapeInsertFailure(t *testing.T) {
	scrape := &fakeJob{err: errors.New("storing scraped picks: db down")}
	e := newTestServer(t, &fakeStore{}, &fakeChat{}, &fakeJob{}, scrape, nil)

	rec := do(e, http.MethodGet, "/api/cron/scrape", "", "Bearer cron-secret")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSignin(t *testing.T) {
	hash, err := HashPasswordForUser("alice", "hunter2")
	require.NoError(t, err)
	st := &fakeStore{users: map[string]*models.User{"alice": {ID: 4, Username: "alice", Password: hash}}}
	e := newTestServer(t, st, &fakeChat{}, &fakeJob{}, &fakeJob{}, nil)

	rec := do(e, http.MethodPost, "/api/signin", `{"username":"alice","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodPost, "/api/signin", `{"username":"nobody","password":"x"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/api/signin", `{"username":" alice ","password":"hunter2"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var cookie *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == mw.SessionCookie {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	claims, err := mw.ParseToken(cookie.Value, testKey)
	require.NoError(t, err)
	assert.Equal(t, int64(4), claims.UserID)
	assert.Contains(t, rec.Body.String(), cookie.Value)
}

func TestSignout(t *testing.T) {
	e := newTestServer(t, &fakeStore{}, &fakeChat{}, &fakeJob{}, &fakeJob{}, nil)
	rec := do(e, http.MethodPost, "/api/signout", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), mw.SessionCookie+"=;")
}

func TestHashPasswordForUser(t *testing.T) {
	_, err := HashPasswordForUser(" ", "x")
	assert.Error(t, err)
	_, err = HashPasswordForUser("bob", "")
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	e := newTestServer(t, &fakeStore{}, &fakeChat{}, &fakeJob{}, &fakeJob{}, nil)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/healthz", "", "").Code)

	e = newTestServer(t, &fakeStore{pingErr: errors.New("down")}, &fakeChat{}, &fakeJob{}, &fakeJob{}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, do(e, http.MethodGet, "/healthz", "", "").Code)
}

func TestQueryLimit(t *testing.T) {
	assert.Equal(t, 10, queryLimit("", 10, 200))
	assert.Equal(t, 10, queryLimit("-3", 10, 200))
	assert.Equal(t, 25, queryLimit("25", 10, 200))
	assert.Equal(t, 200, queryLimit("5000", 10, 200))
}
