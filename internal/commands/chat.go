package commands

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/brilliance/hwachat/internal/api"
	"github.com/brilliance/hwachat/internal/config"
	"github.com/brilliance/hwachat/internal/dispatch"
	"github.com/brilliance/hwachat/internal/socket"
	"github.com/brilliance/hwachat/internal/store"
	"github.com/brilliance/hwachat/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session with the homework assistant.

The sidebar lists your earlier conversation groups; selecting one loads
its history. Type 'exit', 'quit', or press Ctrl+C to end the session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

func runChat() error {
	cfg := loadConfig()

	creds, err := config.CredentialsFromConfig(cfg)
	if err != nil {
		return err
	}

	debugf, closeLog, err := debugLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	var socketOpts []socket.Option
	if debugf != nil {
		socketOpts = append(socketOpts, socket.WithDebugLog(debugf))
	}
	manager := socket.NewManager(cfg.RealtimeHostOrDefault(), socketOpts...)
	defer manager.Disconnect()

	spin := newSpinner("Connecting to homework assistant")
	spin.start()
	if err := manager.Configure(creds); err != nil {
		spin.stopWithError()
		return fmt.Errorf("failed to connect: %w", err)
	}
	spin.stopWithSuccess("Connected")

	client, err := api.NewClient(cfg.APIBaseOrDefault(), creds)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	conv := store.New()

	// The program handle is set once the TUI starts; the dispatcher's
	// group callback fires from the socket read loop, hence the lock.
	var (
		programMu sync.Mutex
		program   *tea.Program
	)
	dispatchOpts := []dispatch.Option{
		dispatch.WithGroupsChanged(func() {
			programMu.Lock()
			p := program
			programMu.Unlock()
			if p != nil {
				p.Send(tui.GroupsRefreshMsg{})
			}
		}),
	}
	if debugf != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithDebugLog(debugf))
	}

	dispatcher := dispatch.New(manager, conv, dispatch.Defaults{
		Curriculum: cfg.Curriculum,
		ClassLevel: cfg.ClassLevel,
	}, dispatchOpts...)
	dispatcher.Bind(manager)

	deps := tui.Deps{
		Conversation: conv,
		Dispatcher:   dispatcher,
		Channel:      manager,
		Groups:       api.NewGroupList(client, cfg.PageLimit),
		Uploader:     api.NewUploader(client),
		Reconnect: func() error {
			_, err := manager.Connect()
			return err
		},
		Config: cfg,
	}

	return tui.Run(deps, func(p *tea.Program) {
		programMu.Lock()
		program = p
		programMu.Unlock()
	})
}

// debugLogger opens the verbose traffic log when enabled. Logging goes
// to a file because stderr belongs to the TUI while chat runs.
func debugLogger(cfg config.Config) (func(string, ...any), func(), error) {
	if !cfg.Verbose {
		return nil, func() {}, nil
	}
	dir, err := config.EnsureConfigDir()
	if err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, "debug.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open debug log: %w", err)
	}
	logger := log.New(f, "", log.LstdFlags|log.Lmicroseconds)
	return logger.Printf, func() { _ = f.Close() }, nil
}
