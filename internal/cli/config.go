package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewConfigCmd создаёт команду вывода итоговой конфигурации.
func NewConfigCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}

			data, err := cfg.Redacted().YAML()
			if err != nil {
				return err
			}
			_, err = app.Stdout.Write(data)
			return err
		},
	}
}

// NewVersionCmd создаёт команду вывода версии.
func NewVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(app.Stdout, app.Version)
		},
	}
}
