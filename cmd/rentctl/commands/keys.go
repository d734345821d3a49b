package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"rentchain/crypto"
)

func keysCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{Use: "keys", Short: "Create and inspect signer keystores"}
	cmd.AddCommand(&cobra.Command{
		Use:   "new",
		Short: "Generate a key and store it encrypted at --keystore",
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := g.pass.Get()
			if err != nil {
				return err
			}
			key, err := crypto.NewKeystore(g.keystore, pass)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Key stored at %s\nAddress: %s\n", g.keystore, crypto.MustEncodeAddress(key.PubKey().Address()))
			return nil
		},
	}, &cobra.Command{
		Use:   "show",
		Short: "Print the address of the key at --keystore",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := g.loadSigner()
			if err != nil {
				return err
			}
			addr := key.PubKey().Address()
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", crypto.MustEncodeAddress(addr), addr.Hex())
			return nil
		},
	})
	return cmd
}
