package commands

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"securetransfer/internal/keystore"
	"securetransfer/internal/platform/logger"
)

var (
	identities []string
	logLevel   string
)

// Execute runs the transferctl command tree.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "transferctl",
		Short:         "Run signed, encrypted file transfers between local identities",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringSliceVar(&identities, "identities", []string{"alice", "bob", "charlie"}, "identities to generate key pairs for")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(sendCmd(), replayDemoCmd(), tokenCmd())
	return root
}

// env is the in-process world every command runs against.
type env struct {
	keys   *keystore.Store
	logger *slog.Logger
}

func setup(cmd *cobra.Command) (*env, error) {
	keys, err := keystore.Bootstrap(cmd.Context(), identities...)
	if err != nil {
		return nil, err
	}
	return &env{
		keys:   keys,
		logger: newLogger(cmd.ErrOrStderr()),
	}, nil
}

func newLogger(w io.Writer) *slog.Logger {
	return logger.NewWithWriter(w, logLevel, "text")
}
