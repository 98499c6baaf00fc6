package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"quizhub/internal/handler"
	"quizhub/internal/llm"
	"quizhub/internal/model"
	"quizhub/internal/ratelimit"
	"quizhub/internal/service"
	"quizhub/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "quizhub",
		Short: "Quiz platform backend with AI-generated quizzes",
	}

	serve := serveCmd()
	root.AddCommand(serve, seedCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `quizhub --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the quiz HTTP server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8000", "HTTP listen address")
	f.String("db", "quizhub.db", "SQLite database path")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.String("admin-password", "", "Initial admin password (or set QUIZHUB_ADMIN_PASSWORD)")
	f.String("student-password", "", "Initial student password (or set QUIZHUB_STUDENT_PASSWORD)")
	f.Bool("skip-llm-check", false, "Skip the LLM health check on startup")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed levels and default users without starting the server",
		RunE:  runSeed,
	}
	f := cmd.Flags()
	f.String("db", "quizhub.db", "SQLite database path")
	f.String("admin-password", "", "Initial admin password (or set QUIZHUB_ADMIN_PASSWORD)")
	f.String("student-password", "", "Initial student password (or set QUIZHUB_STUDENT_PASSWORD)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("QUIZHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("quizhub")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/quizhub")
	v.AddConfigPath("/etc/quizhub")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := seedLevels(db); err != nil {
		return fmt.Errorf("seed levels: %w", err)
	}
	if err := seedUsers(db, v.GetString("admin-password"), v.GetString("student-password")); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	if err := db.PurgeExpiredTokens(); err != nil {
		slog.Warn("purge expired tokens", "error", err)
	}

	llmClient := llm.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
	)
	if v.GetBool("skip-llm-check") {
		slog.Warn("skipping LLM health check")
	} else if err := llmClient.Ping(context.Background()); err != nil {
		return fmt.Errorf("LLM health check: %w", err)
	} else {
		slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
	}

	svc := service.New(db, llmClient, llmClient)
	h := handler.New(db, svc, ratelimit.NewLimiter())

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"db", v.GetString("db"),
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
	)
	return http.ListenAndServe(addr, r)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := seedLevels(db); err != nil {
		return fmt.Errorf("seed levels: %w", err)
	}
	if err := seedUsers(db, v.GetString("admin-password"), v.GetString("student-password")); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	return nil
}

// seedLevels inserts the eight school grade levels on first run. A
// non-empty levels table is left untouched.
func seedLevels(db *store.Store) error {
	count, err := db.LevelCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	codes := []string{"I", "II", "III", "IV", "V", "VI", "VII", "VIII"}
	for i, code := range codes {
		_, err := db.CreateLevel(model.Level{
			Code:        code,
			Description: "Klasa " + code,
			Rank:        i + 1,
		})
		if err != nil {
			return fmt.Errorf("create level %s: %w", code, err)
		}
	}
	slog.Info("seeded levels", "count", len(codes))
	return nil
}

// seedUsers creates the default admin and student accounts when the
// users table is empty.
func seedUsers(db *store.Store, adminPassword, studentPassword string) error {
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if adminPassword == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or QUIZHUB_ADMIN_PASSWORD env var")
	}
	if studentPassword == "" {
		return fmt.Errorf("student password is required: set --student-password flag or QUIZHUB_STUDENT_PASSWORD env var")
	}

	for _, u := range []struct {
		username string
		password string
		role     model.Role
	}{
		{"admin", adminPassword, model.RoleAdmin},
		{"student", studentPassword, model.RoleStudent},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash %s password: %w", u.username, err)
		}
		_, err = db.CreateUser(model.User{
			Username:     u.username,
			PasswordHash: string(hash),
			Role:         u.role,
		})
		if err != nil {
			return fmt.Errorf("create %s user: %w", u.username, err)
		}
	}
	slog.Info("seeded default users", "usernames", "admin, student")
	return nil
}
