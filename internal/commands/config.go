package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/brilliance/hwachat/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := config.LoadConfig()
		printConfig(os.Stdout, cfg)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value and save it to disk.

Keys: token, app-id, curriculum, class, server, api, limit, verbose,
copy, style.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := config.LoadConfig()
		if err := applyConfigKey(&cfg, args[0], args[1]); err != nil {
			return err
		}
		return config.SaveConfig(cfg)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func printConfig(out io.Writer, cfg config.Config) {
	fmt.Fprintf(out, "server:     %s\n", cfg.RealtimeHostOrDefault())
	fmt.Fprintf(out, "api:        %s\n", cfg.APIBaseOrDefault())
	fmt.Fprintf(out, "token:      %s\n", maskToken(cfg.Token))
	fmt.Fprintf(out, "app-id:     %s\n", cfg.ApplicationID)
	fmt.Fprintf(out, "curriculum: %s\n", cfg.Curriculum)
	fmt.Fprintf(out, "class:      %s\n", cfg.ClassLevel)
	fmt.Fprintf(out, "limit:      %d\n", cfg.PageLimit)
	fmt.Fprintf(out, "verbose:    %t\n", cfg.Verbose)
	fmt.Fprintf(out, "copy:       %t\n", cfg.CopyToClipboard)
	fmt.Fprintf(out, "style:      %s\n", cfg.Markdown.Style)
}

func applyConfigKey(cfg *config.Config, key, value string) error {
	switch key {
	case "token":
		cfg.Token = value
	case "app-id":
		cfg.ApplicationID = value
	case "curriculum":
		cfg.Curriculum = value
	case "class":
		cfg.ClassLevel = value
	case "server":
		cfg.RealtimeHost = value
	case "api":
		cfg.APIBase = value
	case "limit":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("limit must be a positive integer, got %q", value)
		}
		cfg.PageLimit = n
	case "verbose":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("verbose must be true or false, got %q", value)
		}
		cfg.Verbose = b
	case "copy":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("copy must be true or false, got %q", value)
		}
		cfg.CopyToClipboard = b
	case "style":
		switch value {
		case "dark", "light", "auto":
			cfg.Markdown.Style = value
		default:
			return fmt.Errorf("style must be dark, light, or auto, got %q", value)
		}
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	return nil
}

// maskToken keeps the first and last four characters visible.
func maskToken(token string) string {
	if token == "" {
		return "(unset)"
	}
	if len(token) <= 8 {
		return "********"
	}
	return token[:4] + "…" + token[len(token)-4:]
}
