package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"quiz-attempt-service/internal/domain"
)

// Engine is the slice of the attempt engine exposed over HTTP.
type Engine interface {
	StartQuizAttempt(ctx context.Context, quizID int64, userID string) (domain.AttemptView, error)
	UpdateAnswerAndScore(ctx context.Context, attemptID string, questionID int64, raw any) (domain.AnswerScore, error)
	ResumeQuizAttempt(ctx context.Context, attemptID string) (domain.AttemptView, error)
	SubmitQuizAttempt(ctx context.Context, attemptID string) (domain.AttemptResult, error)
	GetAttempt(ctx context.Context, attemptID string) (domain.QuizAttempt, error)
	GetAttemptResult(ctx context.Context, attemptID string) (domain.AttemptResult, error)
	ListAttempts(ctx context.Context, userID string, quizID int64) ([]domain.AttemptSummary, error)
}

// RouterOptions configures cross-cutting middleware.
type RouterOptions struct {
	AllowedOrigins []string
}

// NewRouter mounts the REST endpoints, the websocket channel and the health check.
func NewRouter(engine Engine, auth *Authenticator, opts RouterOptions) http.Handler {
	h := NewHandler(engine)
	ws := NewWSHandler(engine)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-User-ID"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Group(func(pr chi.Router) {
		pr.Use(auth.Middleware)
		pr.Get("/ws", ws.ServeWS)

		pr.Group(func(api chi.Router) {
			api.Use(middleware.Timeout(30 * time.Second))
			api.Route("/quizzes/{quizID}/attempts", func(qr chi.Router) {
				qr.Post("/", h.startAttempt)
				qr.Get("/", h.listAttempts)
			})
			api.Route("/attempts/{attemptID}", func(ar chi.Router) {
				ar.Put("/answers/{questionID}", h.updateAnswer)
				ar.Get("/resume", h.resumeAttempt)
				ar.Post("/submit", h.submitAttempt)
				ar.Get("/result", h.attemptResult)
			})
		})
	})
	return r
}
