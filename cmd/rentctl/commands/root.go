package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"rentchain/cmd/internal/passphrase"
)

const (
	passphraseEnv         = "RENTCTL_PASSPHRASE"
	cosignerPassphraseEnv = "RENTCTL_COSIGNER_PASSPHRASE"
	tokenEnv              = "RENTCTL_TOKEN"
)

type globals struct {
	rpcURL           string
	token            string
	keystore         string
	cosignerKeystore string

	pass         *passphrase.Source
	cosignerPass *passphrase.Source
	client       *rpcClient
}

// Execute runs the root command against the process arguments.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	g := &globals{
		pass:         passphrase.NewSource(passphraseEnv, "signer keystore"),
		cosignerPass: passphrase.NewSource(cosignerPassphraseEnv, "co-signer keystore"),
	}
	root := &cobra.Command{
		Use:           "rentctl",
		Short:         "Manage listings, leases and escrows on a rentchain node",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if g.keystore == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				g.keystore = filepath.Join(dir, ".rentctl", "key.json")
			}
			if g.token == "" {
				g.token = strings.TrimSpace(os.Getenv(tokenEnv))
			}
			g.client = newRPCClient(g.rpcURL, g.token)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&g.rpcURL, "rpc", "http://127.0.0.1:8080", "rentchaind JSON-RPC URL")
	root.PersistentFlags().StringVar(&g.token, "token", "", "bearer token for transaction submission (default $"+tokenEnv+")")
	root.PersistentFlags().StringVarP(&g.keystore, "keystore", "k", "", "signer keystore (default ~/.rentctl/key.json)")
	root.PersistentFlags().StringVar(&g.cosignerKeystore, "cosigner-keystore", "", "second signer keystore, required by lease create")

	root.AddCommand(keysCmd(g), listingCmd(g), leaseCmd(g), escrowCmd(g), balanceCmd(g), eventsCmd(g), infoCmd(g))
	return root
}

func requireFlag(cmd *cobra.Command, names ...string) error {
	for _, name := range names {
		if !cmd.Flags().Changed(name) {
			return fmt.Errorf("--%s is required", name)
		}
	}
	return nil
}
