package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	envFile    string
	policyFile string
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:           "gateway",
		Short:         "Edge admission gateway",
		Long:          `Reverse proxy com pipeline de admissão na frente: filtro de segurança, rate limit por rota, CORS e headers de diagnóstico.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flags.envFile != "" {
				if err := godotenv.Load(flags.envFile); err != nil {
					return fmt.Errorf("load env file: %w", err)
				}
				return nil
			}
			// .env no diretório atual é opcional
			_ = godotenv.Load()
			return nil
		},
	}
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "dotenv file loaded before reading the environment")
	root.PersistentFlags().StringVar(&flags.policyFile, "policy", "", "YAML policy file (overrides EDGE_POLICY_FILE)")

	root.AddCommand(newServeCmd(&flags))
	root.AddCommand(newRoutesCmd(&flags))
	return root
}
