package gemini

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/elee1766/gemchat/src/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	generate func(ctx context.Context, model, prompt string) (string, error)
	models   []ModelInfo

	gotModel  string
	gotPrompt string
}

func (f *fakeBackend) GenerateText(ctx context.Context, model, prompt string) (string, error) {
	f.gotModel = model
	f.gotPrompt = prompt
	return f.generate(ctx, model, prompt)
}

func (f *fakeBackend) ListModels(ctx context.Context) ([]ModelInfo, error) {
	return f.models, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestBuildPrompt(t *testing.T) {
	tests := []struct {
		name  string
		turns []history.Turn
		want  string
	}{
		{
			name:  "empty",
			turns: nil,
			want:  "",
		},
		{
			name:  "single turn",
			turns: []history.Turn{history.UserTurn("hi")},
			want:  "user: hi",
		},
		{
			name: "multiple turns joined by newline",
			turns: []history.Turn{
				history.UserTurn("hi"),
				history.BotTurn("hello"),
				history.UserTurn("how are you?"),
			},
			want: "user: hi\nbot: hello\nuser: how are you?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildPrompt(tt.turns))
		})
	}
}

func TestGenerateSendsPromptAndModel(t *testing.T) {
	backend := &fakeBackend{generate: func(ctx context.Context, model, prompt string) (string, error) {
		return "generated", nil
	}}
	g := NewGenerator(backend, Config{Model: "gemini-test", Logger: quietLogger()})

	text, err := g.Generate(context.Background(), []history.Turn{history.UserTurn("hi")})
	require.NoError(t, err)
	assert.Equal(t, "generated", text)
	assert.Equal(t, "gemini-test", backend.gotModel)
	assert.Equal(t, "user: hi", backend.gotPrompt)
}

func TestNewGeneratorDefaultModel(t *testing.T) {
	g := NewGenerator(&fakeBackend{}, Config{Logger: quietLogger()})
	assert.Equal(t, DefaultModel, g.Model())
}

func TestGenerateErrorsAreTyped(t *testing.T) {
	tests := []struct {
		name     string
		backend  Backend
		wantKind Kind
	}{
		{
			name: "backend error",
			backend: &fakeBackend{generate: func(ctx context.Context, model, prompt string) (string, error) {
				return "", errors.New("boom")
			}},
			wantKind: KindUnknown,
		},
		{
			name: "empty text",
			backend: &fakeBackend{generate: func(ctx context.Context, model, prompt string) (string, error) {
				return "   ", nil
			}},
			wantKind: KindResponse,
		},
		{
			name: "deadline",
			backend: &fakeBackend{generate: func(ctx context.Context, model, prompt string) (string, error) {
				return "", context.DeadlineExceeded
			}},
			wantKind: KindNetwork,
		},
		{
			name: "panic",
			backend: &fakeBackend{generate: func(ctx context.Context, model, prompt string) (string, error) {
				panic("kaboom")
			}},
			wantKind: KindResponse,
		},
		{
			name:     "no backend",
			backend:  nil,
			wantKind: KindConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator(tt.backend, Config{Logger: quietLogger()})
			text, err := g.Generate(context.Background(), []history.Turn{history.UserTurn("hi")})
			require.Error(t, err)
			assert.Empty(t, text)

			var gerr *Error
			require.True(t, errors.As(err, &gerr))
			assert.Equal(t, tt.wantKind, gerr.Kind)
		})
	}
}

func TestReplyNeverFails(t *testing.T) {
	backend := &fakeBackend{generate: func(ctx context.Context, model, prompt string) (string, error) {
		return "", errors.New("quota exceeded")
	}}
	g := NewGenerator(backend, Config{Logger: quietLogger()})

	reply := g.Reply(context.Background(), []history.Turn{history.UserTurn("hi")})
	assert.True(t, strings.HasPrefix(reply, "Error: "), reply)
	assert.Equal(t, "Error: quota exceeded", reply)
}

func TestReplyRecoversFromPanic(t *testing.T) {
	backend := &fakeBackend{generate: func(ctx context.Context, model, prompt string) (string, error) {
		panic("kaboom")
	}}
	g := NewGenerator(backend, Config{Logger: quietLogger()})

	var reply string
	assert.NotPanics(t, func() {
		reply = g.Reply(context.Background(), nil)
	})
	assert.True(t, strings.HasPrefix(reply, "Error: "), reply)
}

func TestReplyReturnsText(t *testing.T) {
	backend := &fakeBackend{generate: func(ctx context.Context, model, prompt string) (string, error) {
		return "hello there", nil
	}}
	g := NewGenerator(backend, Config{Logger: quietLogger()})
	assert.Equal(t, "hello there", g.Reply(context.Background(), []history.Turn{history.UserTurn("hi")}))
}

func TestListModels(t *testing.T) {
	backend := &fakeBackend{models: []ModelInfo{{Name: "gemini-2.5-flash"}}}
	g := NewGenerator(backend, Config{Logger: quietLogger()})

	models, err := g.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "gemini-2.5-flash", models[0].Name)
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(context.Background(), Config{})
	require.Error(t, err)
	assert.Equal(t, KindConfig, KindOf(err))
	assert.ErrorIs(t, err, ErrNoAPIKey)
}
