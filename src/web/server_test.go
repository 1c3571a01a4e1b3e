package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/elee1766/gemchat/src/app"
	"github.com/elee1766/gemchat/src/gemini"
	"github.com/elee1766/gemchat/src/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	mu      sync.Mutex
	turns   []history.Turn
	reply   string
	sendErr error
	cleared int
}

func (c *fakeChat) Send(ctx context.Context, text string) (history.Turn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	text = strings.TrimSpace(text)
	if text == "" {
		return history.Turn{}, app.ErrEmptyMessage
	}
	bot := history.BotTurn(c.reply)
	c.turns = append(c.turns, history.UserTurn(text), bot)
	return bot, c.sendErr
}

func (c *fakeChat) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = nil
	c.cleared++
	return nil
}

func (c *fakeChat) Turns() []history.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]history.Turn(nil), c.turns...)
}

func newTestServer(t *testing.T, chat Chat, maxBody int64) http.Handler {
	t.Helper()
	srv, err := NewServer(chat, Config{
		Addr:         "127.0.0.1:0",
		MaxBodyBytes: maxBody,
		Model:        "gemini-test",
		Logger:       slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	})
	require.NoError(t, err)
	return srv.Handler()
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIndexRendersMessages(t *testing.T) {
	chat := &fakeChat{turns: []history.Turn{
		history.UserTurn("hello <script>alert(1)</script>"),
		history.BotTurn("**bold** answer"),
	}}
	h := newTestServer(t, chat, 0)

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, doc.Find("h1").Text(), Title)
	msgs := doc.Find("#messages .message")
	require.Equal(t, 2, msgs.Length())

	assert.Equal(t, "user", msgs.Eq(0).AttrOr("data-role", ""))
	assert.Equal(t, "🧑", msgs.Eq(0).Find(".avatar").Text())
	assert.Equal(t, 0, msgs.Eq(0).Find("script").Length())

	assert.Equal(t, "bot", msgs.Eq(1).AttrOr("data-role", ""))
	assert.Equal(t, "🤖", msgs.Eq(1).Find(".avatar").Text())
	assert.Equal(t, "bold", msgs.Eq(1).Find("strong").Text())

	input := doc.Find(`#chat-form input[name="message"]`)
	assert.Equal(t, "Type your message here...", input.AttrOr("placeholder", ""))
	assert.Equal(t, "Clear Chat History", strings.TrimSpace(doc.Find("#clear-form button").Text()))
}

func TestIndexEmptyAndNotice(t *testing.T) {
	h := newTestServer(t, &fakeChat{}, 0)

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/?notice=empty", nil))
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find(".empty").Length())
	assert.Equal(t, notices["empty"], doc.Find(".notice").Text())

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/?notice=%3Cb%3Einjected%3C%2Fb%3E", nil))
	doc, err = goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Find(".notice").Length())
}

func TestUnknownPath(t *testing.T) {
	h := newTestServer(t, &fakeChat{}, 0)
	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFormMessage(t *testing.T) {
	chat := &fakeChat{reply: "hi there"}
	h := newTestServer(t, chat, 0)

	form := url.Values{"message": {"hello"}}
	req := httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := do(t, h, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, []history.Turn{history.UserTurn("hello"), history.BotTurn("hi there")}, chat.Turns())
}

func TestFormMessageEmpty(t *testing.T) {
	chat := &fakeChat{}
	h := newTestServer(t, chat, 0)

	req := httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader("message=++"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := do(t, h, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?notice=empty", rec.Header().Get("Location"))
	assert.Empty(t, chat.Turns())
}

func TestFormMessageTooLarge(t *testing.T) {
	chat := &fakeChat{}
	h := newTestServer(t, chat, 16)

	form := url.Values{"message": {strings.Repeat("x", 100)}}
	req := httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := do(t, h, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, chat.Turns())
}

func TestFormClear(t *testing.T) {
	chat := &fakeChat{turns: []history.Turn{history.UserTurn("hi")}}
	h := newTestServer(t, chat, 0)

	rec := do(t, h, httptest.NewRequest(http.MethodPost, "/clear", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, chat.Turns())
	assert.Equal(t, 1, chat.cleared)
}

func TestAPIHistory(t *testing.T) {
	chat := &fakeChat{}
	h := newTestServer(t, chat, 0)

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `[]`, rec.Body.String())

	chat.turns = []history.Turn{history.UserTurn("a<b")}
	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	assert.Equal(t, `[{"role":"user","content":"a<b"}]`, strings.TrimSpace(rec.Body.String()))
}

func TestAPIMessage(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		sendErr    error
		wantStatus int
	}{
		{name: "ok", body: `{"message":"hello"}`, wantStatus: http.StatusOK},
		{name: "empty", body: `{"message":"  "}`, wantStatus: http.StatusBadRequest},
		{name: "bad json", body: `{"message":`, wantStatus: http.StatusBadRequest},
		{name: "too large", body: `{"message":"` + strings.Repeat("x", 200) + `"}`, wantStatus: http.StatusRequestEntityTooLarge},
		{name: "save failed", body: `{"message":"hello"}`, sendErr: errors.New("disk full"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &fakeChat{reply: "world", sendErr: tt.sendErr}
			h := newTestServer(t, chat, 128)

			req := httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := do(t, h, req)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			if tt.wantStatus != http.StatusOK {
				var body map[string]map[string]interface{}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.NotEmpty(t, body["error"]["message"])
				return
			}

			var resp MessageResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, history.BotTurn("world"), resp.Reply)
			assert.Equal(t, []history.Turn{history.UserTurn("hello"), history.BotTurn("world")}, resp.History)
		})
	}
}

func TestAPIDeleteHistory(t *testing.T) {
	chat := &fakeChat{turns: []history.Turn{history.UserTurn("hi")}}
	h := newTestServer(t, chat, 0)

	rec := do(t, h, httptest.NewRequest(http.MethodDelete, "/api/history", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, chat.Turns())
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, &fakeChat{turns: []history.Turn{history.UserTurn("hi")}}, 0)

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "gemini-test", body["model"])
	assert.EqualValues(t, 1, body["turns"])
	assert.NotEmpty(t, body["uptime"])
	assert.NotEmpty(t, body["platform"])
}

type fakeModels struct {
	models []gemini.ModelInfo
	err    error
}

func (m fakeModels) ListModels(ctx context.Context) ([]gemini.ModelInfo, error) {
	return m.models, m.err
}

func newModelsServer(t *testing.T, models gemini.ModelLister) http.Handler {
	t.Helper()
	srv, err := NewServer(&fakeChat{}, Config{
		Model:  "gemini-test",
		Models: models,
		Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	})
	require.NoError(t, err)
	return srv.Handler()
}

func TestAPIModels(t *testing.T) {
	h := newModelsServer(t, fakeModels{models: []gemini.ModelInfo{{Name: "gemini-test", DisplayName: "Test"}}})

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/models", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"current":"gemini-test","models":[{"name":"gemini-test","display_name":"Test"}]}`, rec.Body.String())
}

func TestAPIModelsUpstreamError(t *testing.T) {
	h := newModelsServer(t, fakeModels{err: &gemini.Error{Kind: gemini.KindAuth, Message: "API key not valid"}})

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/models", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "API key not valid")
}

func TestAPIModelsNotConfigured(t *testing.T) {
	h := newTestServer(t, &fakeChat{}, 0)

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/models", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStaticAssets(t *testing.T) {
	h := newTestServer(t, &fakeChat{}, 0)

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/static/style.css", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := Chain(RequestIDMiddleware(), RecoveryMiddleware(logger))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLoggingMiddlewareIncludesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := Chain(RequestIDMiddleware(), LoggingMiddleware(logger))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/tea", nil))
	id := rec.Header().Get(RequestIDHeader)
	require.NotEmpty(t, id)
	assert.Contains(t, buf.String(), "request_id="+id)
	assert.Contains(t, buf.String(), "status=418")
	assert.Contains(t, buf.String(), "path=/tea")
}

func TestRenderer(t *testing.T) {
	r := NewRenderer()

	out := string(r.Render("# Title\n\n```go\nfmt.Println(1)\n```\n\n<img src=x onerror=alert(1)>"))
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<pre><code")
	assert.NotContains(t, out, "onerror")
}

func TestRunShutsDownOnCancel(t *testing.T) {
	srv, err := NewServer(&fakeChat{}, Config{
		Addr:   "127.0.0.1:0",
		Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, time.Second) }()

	cancel()
	assert.NoError(t, <-done)
}
