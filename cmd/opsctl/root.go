package main

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hfpolymers/rubber-ops/internal/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	keyAPIURL  = "api_url"
	keyToken   = "token"
	keyTimeout = "timeout"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:           "opsctl",
		Short:         "Operate the rubber operations backend from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(v, cfgFile)
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.opsctl.yaml)")
	root.PersistentFlags().String("api-url", "http://localhost:8080", "API base URL")
	root.PersistentFlags().String("token", "", "bearer token (overrides the saved one)")
	_ = v.BindPFlag(keyAPIURL, root.PersistentFlags().Lookup("api-url"))
	root.PersistentFlags().Duration("timeout", 15*time.Second, "HTTP request timeout")
	_ = v.BindPFlag(keyToken, root.PersistentFlags().Lookup("token"))
	_ = v.BindPFlag(keyTimeout, root.PersistentFlags().Lookup("timeout"))

	root.AddCommand(
		newLoginCmd(v),
		newWhoamiCmd(v),
		newWageCmd(),
		newSalaryCmd(v),
		newNotificationsCmd(v),
		newValidateCmd(),
	)
	return root
}

func loadConfig(v *viper.Viper, cfgFile string) error {
	v.SetEnvPrefix("OPSCTL")
	v.AutomaticEnv()
	// Prefixed names take precedence over the bare ones.
	_ = v.BindEnv(keyAPIURL, "OPSCTL_API_URL", "API_URL")
	_ = v.BindEnv(keyToken, "OPSCTL_TOKEN", "TOKEN")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		v.SetConfigFile(filepath.Join(home, ".opsctl.yaml"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return nil
}

func apiClient(v *viper.Viper) *client.Client {
	return client.New(v.GetString(keyAPIURL), v.GetString(keyToken)).
		WithHTTPClient(&http.Client{Timeout: v.GetDuration(keyTimeout)})
}

func requireToken(v *viper.Viper) error {
	if v.GetString(keyToken) == "" {
		return errors.New("not logged in: run `opsctl login` first")
	}
	return nil
}
