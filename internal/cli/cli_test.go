package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"quiz-attempt-service/internal/config"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/scoring"
	transport "quiz-attempt-service/internal/transport/http"
)

func TestSampleQuizzesAreScoreable(t *testing.T) {
	for id, quiz := range sampleQuizzes() {
		if quiz.ID != id {
			t.Fatalf("quiz keyed %d has id %d", id, quiz.ID)
		}
		seen := map[int64]bool{}
		quiz.EachQuestion(func(q domain.Question) {
			if seen[q.ID] {
				t.Fatalf("quiz %d: duplicate question id %d", id, q.ID)
			}
			seen[q.ID] = true
			if _, ok := scoring.StrategyFor(q.Type); !ok {
				t.Fatalf("quiz %d: question %d has no scoring strategy", id, q.ID)
			}
		})
	}
}

func TestSweepCommandInMemoryMode(t *testing.T) {
	t.Setenv("POSTGRES_URL", "")
	t.Setenv("REDIS_ADDR", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("quiz:\n  ttl: 1m\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"sweep", "--config", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if !strings.Contains(out.String(), "auto-submitted 0 attempt(s)") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestMigrateRequiresPostgres(t *testing.T) {
	t.Setenv("POSTGRES_URL", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: \"9000\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"migrate", "--config", path})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "postgres url not configured") {
		t.Fatalf("expected missing postgres error, got %v", err)
	}
}

func TestStartCommandStopsWhenContextCancelled(t *testing.T) {
	t.Setenv("POSTGRES_URL", "")
	t.Setenv("REDIS_ADDR", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("sweeper:\n  interval: 1h\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cmd := newRootCmd()
	cmd.SetArgs([]string{"start", "--config", path, "--port", "0"})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("start: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("start did not stop after cancellation")
	}
}

func TestAuthenticatorFromConfig(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		trust  bool
		want   string
	}{
		{name: "header only", want: "u1"},
		{name: "tokens", secret: "s3cret", want: ""},
		{name: "tokens behind gateway", secret: "s3cret", trust: true, want: "u1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var cfg config.Config
			cfg.Auth.JWTSecret = tc.secret
			cfg.Auth.TrustUserHeader = tc.trust

			var got string
			h := newAuthenticator(cfg).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = transport.UserFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.Header.Set("X-User-ID", "u1")
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tc.want {
				t.Fatalf("expected user %q, got %q", tc.want, got)
			}
		})
	}
}
