package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"securetransfer/internal/nonce"
	"securetransfer/internal/transfer"
)

// send --from <sender> --to <receiver> <file>: run one transfer and print its transcript.
func sendCmd() *cobra.Command {
	var from, to, out string
	cmd := &cobra.Command{
		Use:   "send <file>",
		Short: "Transfer a file from one identity to another and print each protocol step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			p, err := transfer.NewProtocol(e.keys, nonce.NewMemoryRegistry(), transfer.WithProtocolLogger(e.logger))
			if err != nil {
				return err
			}

			res, err := p.Execute(cmd.Context(), from, to, data)
			if err != nil {
				return fmt.Errorf("transfer failed: %w", err)
			}
			printSteps(cmd.OutOrStdout(), res.Steps)
			fmt.Fprintf(cmd.OutOrStdout(), "sha256 %s\n", hex.EncodeToString(res.Digest))

			if out != "" {
				if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(out, res.Plaintext, 0o600); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "decrypted file written to %s\n", out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "sending identity")
	cmd.Flags().StringVar(&to, "to", "", "receiving identity")
	cmd.Flags().StringVarP(&out, "out", "o", "", "where to write the receiver's decrypted copy")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func printSteps(w io.Writer, steps []transfer.Step) {
	for i, s := range steps {
		fmt.Fprintf(w, "%2d. [%s] %s\n", i+1, s.Phase, s.Detail)
	}
}
