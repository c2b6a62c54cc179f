package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "atelier",
		Short: "Social content platform feed engine",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(feedCmd())
	root.AddCommand(ingestCmd())
	root.AddCommand(seedCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

func feedCmd() *cobra.Command {
	var (
		user       string
		scope      string
		community  string
		offset     int
		limit      int
		jsonOutput bool
		markSeen   bool
	)

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show a user's ranked feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeed(user, scope, community, offset, limit, jsonOutput, markSeen)
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "requesting user id (empty: public feed)")
	cmd.Flags().StringVar(&scope, "scope", "all", "feed scope: all, friends, community")
	cmd.Flags().StringVar(&community, "community", "", "community portfolio id (community scope)")
	cmd.Flags().IntVar(&offset, "offset", 0, "pagination offset")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size (default: from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().BoolVar(&markSeen, "mark-seen", false, "mark the displayed notes as seen")
	return cmd
}

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Pull syndicated feeds into their portfolios once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest()
		},
	}
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with demo users, portfolios, and notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed()
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with syndication scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
