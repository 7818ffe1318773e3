package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/kirinyoku/inn-go/docs"
	"github.com/kirinyoku/inn-go/internal/app"
	"github.com/kirinyoku/inn-go/internal/auth"
	"github.com/kirinyoku/inn-go/internal/config"
)

//go:generate swag init -g cmd/inngo/main.go -o docs -d ../../

// @title InnGo API
// @version 1.0
// @description Room and seat reservations for a guest house.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	issue := flag.String("token", "", "print a bearer token for role:subject and exit")
	flag.Parse()

	cfg, err := config.New()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if *issue != "" {
		if err := printToken(cfg, *issue); err != nil {
			logger.Error("failed to issue token", "error", err)
			os.Exit(1)
		}
		return
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(context.Background()); err != nil {
		logger.Error("application finished with error", "error", err)
		os.Exit(1)
	}
}

func printToken(cfg *config.Config, arg string) error {
	role, subject, ok := strings.Cut(arg, ":")
	if !ok || subject == "" {
		return fmt.Errorf("want role:subject, got %q", arg)
	}
	if role != auth.RoleAdmin && role != auth.RoleSuperAdmin {
		return fmt.Errorf("unknown role %q", role)
	}

	tok, exp, err := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL).Issue(subject, role)
	if err != nil {
		return err
	}

	fmt.Println(tok)
	fmt.Fprintf(os.Stderr, "expires %s\n", exp.Format("2006-01-02 15:04 MST"))
	return nil
}
