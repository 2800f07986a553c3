package cmd

import (
	"context"
	"fmt"
	"log"

	"ppcp-backend/internal/backup"
	"ppcp-backend/internal/cache"
	"ppcp-backend/internal/config"
	"ppcp-backend/internal/db"
	"ppcp-backend/internal/repositories"
	"ppcp-backend/internal/services"
	"ppcp-backend/internal/timeutil"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "ppcpctl",
	Short: "ppcpctl manages the PPCP production order collection",
	Long: `ppcpctl reads and writes the PPCP entry collection directly, using the same
configuration as the server (configs/config.yaml and PPCP_* variables).

Common workflows:

  List urgent work in production:
    ppcpctl list --status "Em produção"

  Export the collection for a spreadsheet:
    ppcpctl export --format xlsx --out ppcp_data.xlsx

  Replace the collection from an edited sheet:
    ppcpctl import ppcp_data.xlsx

  Take a snapshot, locally or to the remote bucket:
    ppcpctl backup
    ppcpctl backup --remote

  Restore a snapshot:
    ppcpctl restore ppcp_backup_05-03-2024_14-07.json
    ppcpctl restore --remote

  Late deliveries:
    ppcpctl overdue --field dataEntrega

Configuration:
  PPCPCTL_CONFIG    path of the server config file (default: configs/config.yaml)`,
	SilenceUsage: true,
}

// remoteStore is the part of the backup bucket the CLI needs
type remoteStore interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
	Download(ctx context.Context, key string) ([]byte, string, error)
}

// app is an opened store with the services built on it
type app struct {
	Entries *services.EntryService
	Reports *services.ReportService
	Remote  remoteStore // nil when remote backups are disabled
	close   func()
}

func (a *app) Close() {
	if a.close != nil {
		a.close()
	}
}

// serviceFactory opens the configured store
var serviceFactory = openApp

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadFrom(viper.GetString("config"))
	if err != nil {
		return nil, err
	}
	timeutil.SetLocation(cfg.App.Timezone)
	// Writes from here must refresh the server's cached collection
	// Writes from here must drop the server's cached collection
	if err := cache.Init(cache.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}); err != nil {
		log.Printf("[Redis] Not available, cached collection not refreshed: %v", err)
	}

	state, err := db.OpenState(ctx, cfg)
	if err != nil {
		cache.Close()
		return nil, err
	}

	store := repositories.NewEntryStore(state.Repo)
	a := &app{
		Entries: services.NewEntryService(store),
		Reports: services.NewReportService(store),
		close: func() {
			state.Close()
			cache.Close()
		},
	}

	if cfg.Backup.Remote.Enabled {
		remote, err := backup.NewRemoteStore(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("remote backups: %w", err)
		}
		a.Remote = remote
	}
	return a, nil
}

// withApp opens the store for the duration of fn
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := serviceFactory(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	// PPCPCTL_CONFIG overrides the --config default
	viper.SetEnvPrefix("PPCPCTL")
	viper.AutomaticEnv()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", config.DefaultPath, "server config file")
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}
