package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/blockadesystems/preflight/internal/config"
	"github.com/blockadesystems/preflight/internal/dbcheck"
	"github.com/blockadesystems/preflight/internal/preflight"
)

var logger *zap.Logger

func init() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	logger = l.With(zap.String("package", "main"))
}

// Exit codes: 0 checks passed or not applicable, 1 checks failed, 2
// invocation error.
const exitInvocation = 2

func main() {
	root := &cobra.Command{
		Use:   "preflight",
		Short: "Deployment pre-flight checks for the reverse proxy stack",
	}
	root.AddCommand(newDNSCommand(), newDBCommand())

	if err := root.Execute(); err != nil {
		os.Exit(exitInvocation)
	}
}

func newDNSCommand() *cobra.Command {
	var envFile string
	var acmeStorage string

	cmd := &cobra.Command{
		Use:   "dns",
		Short: "Pre-flight check for DNS-01 certificate issuance with Cloudflare",
		Long: `Validates, before Traefik attempts DNS-01 issuance with Cloudflare, that
issuance is likely to succeed: checks the challenge configuration, skips the
API when valid certificates already exist in the ACME storage, and otherwise
verifies that the configured API token can manage the domain's DNS zone.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			checker := &preflight.Checker{
				EnvFile:   envFile,
				StorePath: acmeStorage,
			}
			verdict := checker.Run(context.Background())
			logger.Info("pre-flight check finished", zap.String("verdict", verdict.String()))
			os.Exit(verdict.ExitCode())
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "path to .env file")
	cmd.Flags().StringVar(&acmeStorage, "acme-storage", config.DefaultACMEStorage, "path to Traefik ACME storage JSON")
	return cmd
}

func newDBCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "db HOST PORT DBNAME USER",
		Short: "Test PostgreSQL database connectivity",
		Long: `Attempts a connection to the given PostgreSQL database. Used as a fallback
when pg_isready is not available in the container. The password must be
provided via the PGPASSWORD environment variable so it never appears in
process listings.`,
		Args: cobra.ExactArgs(4),
		Run: func(cmd *cobra.Command, args []string) {
			params := dbcheck.Params{
				Host:     args[0],
				Port:     args[1],
				DBName:   args[2],
				User:     args[3],
				Password: os.Getenv("PGPASSWORD"),
			}
			if err := params.Validate(); err != nil {
				logger.Error("invalid invocation", zap.Error(err))
				os.Exit(exitInvocation)
			}
			if err := dbcheck.Check(context.Background(), params); err != nil {
				os.Exit(1)
			}
			os.Exit(0)
		},
	}
}
