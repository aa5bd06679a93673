package cmd

import (
	"fmt"
	"os"

	"dataport/internal/factory"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var encryptCmd = &cobra.Command{
	Use:   "encrypt",
	Short: "Encrypt the plain config of the active source for storage",
	Long: `Encrypt prints the active source's config encrypted with secret.key.
Paste the output under "encrypted:" and remove the plain "config:" block.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := GetActiveSource()
		if err != nil {
			return err
		}
		if src.Encrypted != "" {
			return fmt.Errorf("source %s is already encrypted", src.Name)
		}
		kind, cfg, err := src.ConnectionConfig()
		if err != nil {
			return err
		}
		if res := factory.ValidateConnectionConfig(kind, cfg); !res.Valid {
			return fmt.Errorf("refusing to encrypt an invalid config: %v", res.Errors)
		}
		c, err := configCipher()
		if err != nil {
			return err
		}
		stored, err := factory.EncryptConnectionConfig(cfg, c)
		if err != nil {
			return err
		}
		fmt.Println(stored)
		return nil
	},
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt",
	Short: "Print the decrypted config of the active source",
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := GetActiveSource()
		if err != nil {
			return err
		}
		_, cfg, err := src.ConnectionConfig()
		if err != nil {
			return err
		}
		// Round trip through JSON so keys keep their config names.
		raw, err := gojson.Marshal(cfg)
		if err != nil {
			return err
		}
		var plain map[string]any
		if err := gojson.Unmarshal(raw, &plain); err != nil {
			return err
		}
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		return enc.Encode(map[string]any{"kind": src.Kind, "config": plain})
	},
}

func init() {
	RootCmd.AddCommand(encryptCmd, decryptCmd)
}
