package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"meteodata.example/meteodata-server/internal/config"
)

const defaultConfigFile = "/etc/meteodata/meteodata.conf"

var (
	configFile string
	socketFlag string

	cliUser                   string
	cliPassword               string
	cliHost                   string
	cliWeatherlinkAPIv2Key    string
	cliWeatherlinkAPIv2Secret string
	cliFieldClimateKey        string
	cliFieldClimateSecret     string
	cliObjeniousKey           string
	cliThreads                int
	noDaemon                  bool

	noClass   = make(map[string]bool, len(config.Classes))
	onlyClass = make(map[string]bool, len(config.Classes))
)

var rootCmd = &cobra.Command{
	Use:   "meteodata-server",
	Short: "Long-running weather-station data ingestion daemon",
	Long: `meteodata-server supervises connectors that pull or receive weather
observations (MQTT multiplexed subscriptions, periodic HTTP polling, passive
TCP and bulk-file downloads), runs them through a uniform ingestion
pipeline, and exposes a UNIX-socket control plane for operational control.`,
	Version: "0.1.0",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon()
	},
}

// Execute runs the root command. Called once from main.main. Cobra's own
// usage/error printing is disabled so the caller is the single place that
// reports a failure.
func Execute() error {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config-file", defaultConfigFile, "alternative configuration file")
	rootCmd.PersistentFlags().StringVarP(&socketFlag, "socket", "S", "", "control-plane socket path (overrides control.socket)")

	rootCmd.Flags().StringVarP(&cliUser, "user", "u", "", "database username")
	rootCmd.Flags().StringVarP(&cliPassword, "password", "p", "", "database password")
	rootCmd.Flags().StringVarP(&cliHost, "host", "H", "", "database host or IP address")
	rootCmd.Flags().StringVarP(&cliWeatherlinkAPIv2Key, "weatherlink-apiv2-key", "k", "", "api.weatherlink.com/v2/ key")
	rootCmd.Flags().StringVarP(&cliWeatherlinkAPIv2Secret, "weatherlink-apiv2-secret", "s", "", "api.weatherlink.com/v2/ secret")
	rootCmd.Flags().StringVar(&cliFieldClimateKey, "fieldclimate-key", "", "api.fieldclimate.com key")
	rootCmd.Flags().StringVar(&cliFieldClimateSecret, "fieldclimate-secret", "", "api.fieldclimate.com secret")
	rootCmd.Flags().StringVar(&cliObjeniousKey, "objenious-key", "", "api.objenious.com key")
	rootCmd.Flags().IntVar(&cliThreads, "threads", 0, "number of worker goroutine groups (0 = default)")
	rootCmd.Flags().BoolVarP(&noDaemon, "no-daemon", "D", false, "do not notify systemd; run as a plain foreground process")

	for _, class := range config.Classes {
		no := false
		only := false
		rootCmd.Flags().BoolVar(&no, "no-"+class, false, "don't start the "+class+" connector")
		rootCmd.Flags().BoolVar(&only, "only-"+class, false, "start only the "+class+" connector")
		noClass[class] = no
		onlyClass[class] = only
	}

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(reloadCmd)
	rootCmd.AddCommand(shutdownCmd)
}

func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}

// loadConfig reads the config file and layers CLI-flag overrides on top,
// matching the original daemon's command-line-wins-over-file precedence.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	if cliUser != "" {
		cfg.User = cliUser
	}
	if cliPassword != "" {
		cfg.Password = cliPassword
	}
	if cliHost != "" {
		cfg.Host = cliHost
	}
	if cliWeatherlinkAPIv2Key != "" {
		cfg.WeatherlinkAPIv2Key = cliWeatherlinkAPIv2Key
	}
	if cliWeatherlinkAPIv2Secret != "" {
		cfg.WeatherlinkAPIv2Secret = cliWeatherlinkAPIv2Secret
	}
	if cliFieldClimateKey != "" {
		cfg.FieldClimateKey = cliFieldClimateKey
	}
	if cliFieldClimateSecret != "" {
		cfg.FieldClimateSecret = cliFieldClimateSecret
	}
	if cliObjeniousKey != "" {
		cfg.ObjeniousKey = cliObjeniousKey
	}
	if cliThreads > 0 {
		cfg.Threads = cliThreads
	}
	if socketFlag != "" {
		cfg.Control.Socket = socketFlag
	}

	cfg.Disabled = config.NewClassSelection(noClass, onlyClass)
	return cfg, nil
}

func controlSocket() string {
	if socketFlag != "" {
		return socketFlag
	}
	cfg, err := config.Load(configFile)
	if err == nil && cfg.Control.Socket != "" {
		return cfg.Control.Socket
	}
	return "/var/run/meteodata/control.sock"
}
