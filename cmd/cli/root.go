// Package cli hosts the keystone command line: the API server and one-shot pipeline jobs.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	authUsecase "github.com/kentsubra71/keystone/internal/auth/usecase"
	credentialdomain "github.com/kentsubra71/keystone/internal/credential/domain"
	"github.com/kentsubra71/keystone/internal/scheduler"
	"github.com/kentsubra71/keystone/pkg/config"
	"github.com/kentsubra71/keystone/pkg/logger"

	"github.com/spf13/cobra"
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "keystone",
		Short:         "Track what is due from you across a commitments sheet and your inbox",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newServeCommand(),
		newSyncCommand(),
		newNudgesCommand(),
		newBriefCommand(),
		newCredentialCommand(),
		newTokenCommand(),
		newMigrateCommand(),
	)
	return rootCmd
}

// withApp loads config, wires the app and runs fn with a signal-aware context.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	l := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer app.Close()

	return fn(ctx, app)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the scheduler and the Gmail push listener",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, serve)
		},
	}
}

func serve(ctx context.Context, app *App) error {
	l := app.Logger.WithPrefix("Server")

	if app.Config.Scheduler.Enabled {
		s := scheduler.New(app.Logger, scheduler.JobTasks(app.Jobs, app.Config.Scheduler)...)
		s.Start(ctx)
		defer s.Stop()
	}

	notifService, err := app.NotificationService(ctx)
	if err != nil {
		l.Error("notification service disabled", "err", err)
	} else if notifService != nil {
		defer notifService.Close()
		if err := notifService.EnsureWatch(ctx); err != nil {
			l.Warn("failed to register Gmail watch", "err", err)
		}
		go func() {
			if err := notifService.Start(ctx); err != nil {
				l.Error("notification listener stopped", "err", err)
			}
		}()
	} else {
		l.Warn("GOOGLE_PROJECT_ID not configured, push notifications disabled")
	}

	srv := app.HTTPHandler().Server(":" + app.Config.Port)
	errCh := make(chan error, 1)
	go func() {
		l.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	l.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newSyncCommand() *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one ingestion cycle",
	}

	syncCmd.AddCommand(
		&cobra.Command{
			Use:   "sheet",
			Short: "Reconcile the commitments spreadsheet",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, func(ctx context.Context, app *App) error {
					res, err := app.Jobs.SyncSheet(ctx)
					if res != nil {
						_ = printJSON(cmd.OutOrStdout(), res)
					}
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "gmail",
			Short: "Ingest and classify recent inbox threads",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, func(ctx context.Context, app *App) error {
					res, err := app.Jobs.SyncMail(ctx)
					if res != nil {
						_ = printJSON(cmd.OutOrStdout(), res)
					}
					return err
				})
			},
		},
	)
	return syncCmd
}

func newNudgesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "nudges",
		Short: "Generate today's nudges",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				nudges, err := app.Jobs.GenerateNudges(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"created": len(nudges), "nudges": nudges})
			})
		},
	}
}

func newBriefCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "brief",
		Short: "Generate and store the daily brief",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				b, err := app.Jobs.GenerateBrief(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), b.Content)
			})
		},
	}
}

func newCredentialCommand() *cobra.Command {
	credCmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage the stored Google OAuth credential",
	}

	var refreshToken, email string
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Store the owner's Google refresh token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				if err := app.Guard.Store(ctx, credentialdomain.Credential{RefreshToken: refreshToken, OwnerEmail: email}); err != nil {
					return err
				}
				tok, err := app.Guard.ValidAccessToken(ctx)
				if err != nil {
					return fmt.Errorf("credential stored but refresh failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "credential stored for %s, access token valid until %s\n",
					tok.OwnerEmail, tok.ExpiresAt.Format(time.RFC3339))
				return nil
			})
		},
	}
	setCmd.Flags().StringVar(&refreshToken, "refresh-token", "", "Google OAuth refresh token")
	setCmd.Flags().StringVar(&email, "email", "", "mailbox owner's email address")
	_ = setCmd.MarkFlagRequired("refresh-token")
	_ = setCmd.MarkFlagRequired("email")

	credCmd.AddCommand(setCmd)
	return credCmd
}

func newTokenCommand() *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API bearer tokens",
	}

	var email string
	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue an API token for the allowed user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if email == "" {
				email = cfg.AllowedUserEmail
			}
			tok, err := authUsecase.NewTokenUsecase(cfg.JWTSecret, cfg.JWTExpiry, cfg.AllowedUserEmail).IssueToken(email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	issueCmd.Flags().StringVar(&email, "email", "", "account email (defaults to ALLOWED_USER_EMAIL)")

	tokenCmd.AddCommand(issueCmd)
	return tokenCmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			// NewApp migrates on startup.
			return withApp(cmd, func(ctx context.Context, app *App) error {
				app.Logger.Info("database migrated")
				return nil
			})
		},
	}
}

// topicName accepts either a short topic name or a full projects/<p>/topics/<t> path.
func topicName(topic string) string {
	if parts := strings.Split(topic, "/"); len(parts) > 1 {
		topic = parts[len(parts)-1]
	}
	if topic == "" {
		topic = "gmail-updates"
	}
	return topic
}
