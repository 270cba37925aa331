package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"securetransfer/internal/nonce"
	"securetransfer/internal/transfer"
)

// replay-demo: run two transfers that reuse one handshake nonce and show the
// second being rejected.
func replayDemoCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "replay-demo",
		Short: "Show a reused handshake nonce being rejected",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			fixed := nonce.NewToken()
			p, err := transfer.NewProtocol(e.keys, nonce.NewMemoryRegistry(),
				transfer.WithNonceSource(func() string { return fixed }),
				transfer.WithProtocolLogger(e.logger),
			)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			payload := []byte("replay me")
			if _, err := p.Execute(cmd.Context(), from, to, payload); err != nil {
				return fmt.Errorf("first transfer failed: %w", err)
			}
			fmt.Fprintf(w, "first transfer with %s: completed\n", fixed)

			_, err = p.Execute(cmd.Context(), from, to, payload)
			if !errors.Is(err, transfer.ErrReplayDetected) {
				return fmt.Errorf("expected the replay to be rejected, got %v", err)
			}
			fmt.Fprintf(w, "second transfer with %s: rejected (%v)\n", fixed, err)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "alice", "sending identity")
	cmd.Flags().StringVar(&to, "to", "bob", "receiving identity")
	return cmd
}
