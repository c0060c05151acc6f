package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/brilliance/hwachat/internal/api"
	"github.com/brilliance/hwachat/internal/config"
	"github.com/brilliance/hwachat/internal/models"
)

var (
	groupsAllFlag   bool
	groupsLimitFlag int
)

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List your conversation groups",
	Long: `List the conversation groups stored on the server.

By default one page is fetched; use --all to page through everything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		creds, err := config.CredentialsFromConfig(cfg)
		if err != nil {
			return err
		}
		client, err := api.NewClient(cfg.APIBaseOrDefault(), creds)
		if err != nil {
			return err
		}
		limit := cfg.PageLimit
		if groupsLimitFlag > 0 {
			limit = groupsLimitFlag
		}
		return runGroups(api.NewGroupList(client, limit), os.Stdout, terminalWidth(), groupsAllFlag)
	},
}

func init() {
	groupsCmd.Flags().BoolVar(&groupsAllFlag, "all", false, "Fetch every page, not just the first")
	groupsCmd.Flags().IntVar(&groupsLimitFlag, "limit", 0, "Page size (defaults to the configured page_limit)")
}

// groupPager is the slice of api.GroupList the command needs.
type groupPager interface {
	FetchPage() ([]models.GroupSummary, error)
	Groups() []models.GroupSummary
	HasMore() bool
}

func runGroups(pager groupPager, out io.Writer, width int, all bool) error {
	for {
		if _, err := pager.FetchPage(); err != nil {
			return err
		}
		if !all || !pager.HasMore() {
			break
		}
	}

	groups := pager.Groups()
	if len(groups) == 0 {
		fmt.Fprintln(out, "No conversation groups yet. Start one with 'hwachat chat'.")
		return nil
	}

	fmt.Fprint(out, renderGroupsTable(groups, width))
	if pager.HasMore() {
		fmt.Fprintln(out, "More pages available; rerun with --all.")
	}
	return nil
}

// renderGroupsTable formats groups as an aligned two-column table,
// truncating titles to the terminal width.
func renderGroupsTable(groups []models.GroupSummary, width int) string {
	idWidth := len("ID")
	for _, g := range groups {
		if len(g.ID) > idWidth {
			idWidth = len(g.ID)
		}
	}

	titleWidth := width - idWidth - 2
	if titleWidth < 10 {
		titleWidth = 10
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-*s  %s\n", idWidth, "ID", "TITLE")
	for _, g := range groups {
		title := g.Title
		if runes := []rune(title); len(runes) > titleWidth {
			title = string(runes[:titleWidth-1]) + "…"
		}
		fmt.Fprintf(&b, "%-*s  %s\n", idWidth, g.ID, title)
	}
	return b.String()
}

// terminalWidth returns the stdout width, falling back to 80 columns
// when stdout is not a terminal.
func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}
