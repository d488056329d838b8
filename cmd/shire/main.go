package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eringen/shire"
	"github.com/eringen/shire/views"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	configPath string
	staticDir  string
)

var rootCmd = &cobra.Command{
	Use:           "shire",
	Short:         "The Shire blog server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the blog server",
	Long: `Run the blog server until interrupted.

Configuration is read from --config (YAML, optional), then from SHIRE_*
environment variables and a .env file in the working directory.`,
	RunE: runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the shire version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "shire %s\n", version)
	},
}

var (
	tokenUser  string
	tokenEmail string
	tokenTTL   time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the JSON API",
	Long:  `Sign an identity token with the configured identity secret, for scripts and API clients.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := shire.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if tokenUser == "" {
			tokenUser = cfg.AdminUserID
		}
		tok, err := shire.IssueToken(cfg.IdentitySecret, shire.User{ID: tokenUser, Email: tokenEmail}, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "shire.yaml", "path to the YAML config file")
	serveCmd.Flags().StringVar(&staticDir, "static", "public", "directory for static assets and uploads")
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id (default: the admin user id)")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")

	rootCmd.AddCommand(serveCmd, initCmd, tokenCmd, versionCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := shire.LoadConfig(configPath)
	if err != nil {
		return err
	}

	app := shire.New(cfg, views.Default(), shire.WithStaticDir(staticDir))
	defer app.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.Start(ctx)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
