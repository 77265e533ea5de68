package pwrcli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oremus-labs/ol-power-client/internal/guard"
)

const routeAnnotation = "route"

var (
	cfgFile      string
	contextName  string
	overrideURL  string
	outputFormat string
	logLevel     string
	verbose      bool

	appConfig *Config
	app       *session
)

var errLoginRequired = errors.New("not logged in: run 'pwr login' first")

// Execute runs the CLI.
func Execute() error {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) error {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.Execute()
	if err != nil {
		printError(stderr, err)
	}
	closeSession(stderr)
	return err
}

var rootCmd = &cobra.Command{
	Use:   "pwr",
	Short: "Talk to the power-service hall backend",
	Long: `pwr is the command-line client for the power-service hall backend.
Log in with 'pwr login'; the session is kept in the configured credential
store and dropped automatically when the backend rejects it.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Config commands load/save the file manually.
		if strings.HasPrefix(cmd.CommandPath(), "pwr config") {
			return nil
		}
		var err error
		appConfig, err = LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		route, guarded := cmd.Annotations[routeAnnotation]
		if !guarded {
			return nil
		}
		s, err := currentSession(cmd)
		if err != nil {
			return err
		}
		decision := guard.Decide(route, s.creds.IsAuthenticated(cmd.Context()))
		if decision.Redirected && decision.Target == guard.RouteLogin {
			return errLoginRequired
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultConfigPath(), "Path to the pwr config file")
	rootCmd.PersistentFlags().StringVar(&contextName, "context", "", "Context name to use (overrides current)")
	rootCmd.PersistentFlags().StringVar(&overrideURL, "server", "", "Override backend base URL")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table|json|yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug|info|warn|error); defaults to LOG_LEVEL or warn")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print diagnostic causes of network errors")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(faceLoginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(registerFaceCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(servicesCmd)
	rootCmd.AddCommand(serviceTypesCmd)
	rootCmd.AddCommand(kbCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(configCmd)
}

// protected marks cmd as reachable only with a session.
func protected(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[routeAnnotation] = guard.RouteHome
	return cmd
}

// resolvedContext merges config state with flag overrides. An empty config
// falls back to the environment.
func resolvedContext() (Context, error) {
	if appConfig == nil {
		return Context{}, fmt.Errorf("configuration not loaded")
	}
	return appConfig.Resolve(contextName, overrideURL)
}
