package main

import (
	"errors"
	"strings"
	"time"

	"github.com/fedutinova/vidshelf/internal/client"
	"github.com/fedutinova/vidshelf/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "vidshelfctl",
		Short:         "Control vidshelf transcription jobs and query the library",
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(v); err != nil {
				return err
			}
			_, err := logging.Setup(logging.Options{Level: v.GetString("log-level")})
			return err
		},
	}

	flags := root.PersistentFlags()
	flags.String("server", "http://localhost:8080", "vidshelf API base URL")
	flags.String("token", "", "bearer token for the API")
	flags.Duration("timeout", 30*time.Second, "per-request timeout")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	_ = v.BindPFlags(flags)

	root.AddCommand(
		newTranscribeCmd(v),
		newJobCmd(v),
		newWatchCmd(v),
		newTokenCmd(v),
		newAskCmd(v),
	)
	return root
}

// initConfig layers VIDSHELF_* environment variables and an optional
// vidshelfctl.yaml under the command-line flags.
func initConfig(v *viper.Viper) error {
	v.SetEnvPrefix("VIDSHELF")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("vidshelfctl")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/vidshelf")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}
	return nil
}

func newClient(v *viper.Viper) *client.Client {
	return client.New(client.Config{
		BaseURL: v.GetString("server"),
		Token:   v.GetString("token"),
		Timeout: v.GetDuration("timeout"),
	})
}
