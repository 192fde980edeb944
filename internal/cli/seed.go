package cli

import (
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"quiz-attempt-service/internal/config"
	pginfra "quiz-attempt-service/internal/infra/postgres"
)

// NewSeedCmd loads the sample quizzes and a demo user into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Upsert sample quizzes and a demo user into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if err := runMigrationsWithConfig(ctx, cfg); err != nil {
				return err
			}
			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			loader := pginfra.NewQuizLoader(pool)
			for _, quiz := range sampleQuizzes() {
				if err := loader.SaveQuiz(ctx, quiz); err != nil {
					return err
				}
			}
			if err := pginfra.NewUserDirectory(pool).AddUser(ctx, "demo-user", "Demo User"); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d quizzes\n", len(sampleQuizzes()))
			return nil
		},
	}
}
