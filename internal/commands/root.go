// Package commands provides CLI commands for hwachat.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brilliance/hwachat/internal/config"
	"github.com/brilliance/hwachat/internal/tui"
)

var (
	// Global flags
	curriculumFlag string
	classLevelFlag string
	serverFlag     string
	apiFlag        string

	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "hwachat",
	Short: "Terminal client for the homework assistant",
	Long: `hwachat is a terminal client for the homework assistant service.
It keeps a realtime channel to the server, reconnects on failure, and
lets you continue earlier conversations or start new ones.

Examples:
  hwachat chat                          Start the interactive chat UI
  hwachat chat --curriculum Physics     Chat scoped to a curriculum
  hwachat groups                        List your conversation groups
  hwachat upload notes.pdf              Upload a document, print its URL
  hwachat config show                   Show the active configuration`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("hwachat %s (built %s)\n", Version, BuildTime)
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	rootCmd.SilenceErrors = true
	if err := rootCmd.Execute(); err != nil {
		tui.PrintError(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&curriculumFlag, "curriculum", "", "Curriculum scoping new conversations (e.g. Physics)")
	rootCmd.PersistentFlags().StringVar(&classLevelFlag, "class", "", "Class level scoping new conversations (e.g. 'SSS 1')")
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "Realtime server base URL")
	rootCmd.PersistentFlags().StringVar(&apiFlag, "api", "", "REST API base URL (defaults to the realtime server)")
	rootCmd.Flags().BoolP("version", "v", false, "Show version and exit")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(groupsCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig loads the user configuration and applies the global flag
// overrides on top of it.
func loadConfig() config.Config {
	cfg, _ := config.LoadConfig()
	if curriculumFlag != "" {
		cfg.Curriculum = curriculumFlag
	}
	if classLevelFlag != "" {
		cfg.ClassLevel = classLevelFlag
	}
	if serverFlag != "" {
		cfg.RealtimeHost = serverFlag
	}
	if apiFlag != "" {
		cfg.APIBase = apiFlag
	}
	return cfg
}
