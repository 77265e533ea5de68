package pwrcli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
}

var configSetContextCmd = &cobra.Command{
	Use:   "set-context <name>",
	Short: "Create or update a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		server, _ := cmd.Flags().GetString("server")
		timeout, _ := cmd.Flags().GetString("timeout")
		driver, _ := cmd.Flags().GetString("store-driver")
		dsn, _ := cmd.Flags().GetString("store-dsn")
		makeCurrent, _ := cmd.Flags().GetBool("current")

		if server == "" {
			return fmt.Errorf("--server is required")
		}
		cfg, err := LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		ctx := Context{
			Name:            name,
			Server:          server,
			Timeout:         timeout,
			CredentialStore: CredentialStore{Driver: driver, DSN: dsn},
		}
		if err := setContext(cfg, ctx, makeCurrent); err != nil {
			return err
		}
		if err := SaveConfig(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Context %q updated.\n", name)
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Switch the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		if err := ensureContextExists(cfg, args[0]); err != nil {
			return err
		}
		cfg.CurrentContext = args[0]
		if err := SaveConfig(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Switched to context %q.\n", args[0])
		return nil
	},
}

var configCurrentContextCmd = &cobra.Command{
	Use:   "current-context",
	Short: "Print the current context",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		if cfg.CurrentContext == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "No context configured.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), cfg.CurrentContext)
		return nil
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Show the raw configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		switch outputFormat {
		case "json":
			return printJSON(cmd.OutOrStdout(), cfg)
		case "yaml":
			return printYAML(cmd.OutOrStdout(), cfg)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n", cfgFile)
		names := make([]string, 0, len(cfg.Contexts))
		for name := range cfg.Contexts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			current := " "
			if cfg.CurrentContext == name {
				current = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", current, name, cfg.Contexts[name].Server)
		}
		return nil
	},
}

func init() {
	configSetContextCmd.Flags().String("server", "", "Backend base URL")
	configSetContextCmd.Flags().String("timeout", "", "Request timeout, e.g. 30s")
	configSetContextCmd.Flags().String("store-driver", "", "Credential store driver: memory|file|sqlite|postgres|redis")
	configSetContextCmd.Flags().String("store-dsn", "", "Credential store DSN")
	configSetContextCmd.Flags().Bool("current", true, "Set as current context")
	configCmd.AddCommand(configSetContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configCurrentContextCmd)
	configCmd.AddCommand(configViewCmd)
}
