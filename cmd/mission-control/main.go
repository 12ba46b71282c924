package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mrInvincible29/mission-control/internal/config"
	"github.com/mrInvincible29/mission-control/internal/taskrepo"
)

var Version = "dev"

func main() {
	// .env is optional; the environment wins either way
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:     "mission-control",
		Short:   "Personal operations dashboard",
		Version: Version,
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(cronCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(logsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	return cfg, nil
}

// buildRepo picks the task store: the REST client when a backend URL is
// configured, the table adapter otherwise.
func buildRepo(cfg *config.Config) (taskrepo.Repository, error) {
	if cfg.BackendURL != "" {
		return taskrepo.NewREST(cfg.BackendURL, http.DefaultClient), nil
	}
	return taskrepo.NewTable(cfg.StorageConnectionString, cfg.TasksTable, cfg.Board)
}
