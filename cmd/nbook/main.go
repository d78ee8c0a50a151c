// nbook is an interactive notebook console. Running it bare starts a
// console session recorded to the local store; nbook export turns a
// recorded session into a Jupyter notebook file.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"nbook/cmd/nbook/console"
	"nbook/internal/cells"
	"nbook/internal/config"
	"nbook/internal/export"
	"nbook/internal/interpreter"
	"nbook/internal/locale"
	"nbook/internal/logging"
	"nbook/internal/marker"
	"nbook/internal/store"
	"nbook/internal/workspace"
)

var (
	// Global flags
	configPath string
	debug      bool

	// export flags
	sessionID  string
	outputPath string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "nbook",
	Short: "nbook - interactive notebook console",
	Long: `nbook records an interactive console session as notebook cells.

Run without arguments to start the console. Sessions are persisted to a
local sqlite store and can be exported to .ipynb with "nbook export".`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath == "" {
			configPath = config.Locate()
		}
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if debug {
			cfg.Logging.Debug = true
		}
		return logging.Initialize(cfg.Logging.Debug)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConsole()
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a recorded session to a Jupyter notebook",
	Long: `Reads a recorded session from the store and writes it as an
.ipynb document. The most recent session is used unless --session names
one. When the output path is inside the session's workspace, a synthetic
cell restoring the working directory is prepended so relative data paths
keep resolving.`,
	RunE: runExport,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default .nbook.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")

	exportCmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id (default: most recent)")
	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "notebook.ipynb", "output notebook path")

	rootCmd.AddCommand(exportCmd)
}

func runConsole() error {
	storePath, err := cfg.StorePath()
	if err != nil {
		return err
	}
	st, err := store.Open(storePath)
	if err != nil {
		return err
	}
	defer st.Close()

	// Seed recall with the previous session's input so history survives
	// restarts.
	var seed []string
	if latest, err := st.LatestSessionID(); err == nil && latest != "" {
		if entries, histErr := st.History(latest, cfg.Console.HistoryLimit); histErr == nil {
			seed = entries
		}
	}

	model := console.New(console.Config{
		Store:        st,
		Locale:       cfg.Console.Locale,
		HistoryLimit: cfg.Console.HistoryLimit,
		SeedHistory:  seed,
	})
	if err := st.CreateSession(model.SessionID()); err != nil {
		return err
	}

	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

func runExport(cmd *cobra.Command, args []string) error {
	storePath, err := cfg.StorePath()
	if err != nil {
		return err
	}
	st, err := store.Open(storePath)
	if err != nil {
		return err
	}
	defer st.Close()

	id := sessionID
	if id == "" {
		id, err = st.LatestSessionID()
		if err != nil {
			return err
		}
		if id == "" {
			return fmt.Errorf("no recorded sessions in %s", storePath)
		}
	}

	sessionCells, err := st.Cells(id)
	if err != nil {
		return err
	}

	doc, err := buildDocument(cmd.Context(), sessionCells, outputPath)
	if err != nil {
		return err
	}

	data, err := doc.Bytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write notebook: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "exported session %s to %s (%d cells)\n",
		id, outputPath, len(doc.Cells))
	return nil
}

// buildDocument wires the exporter from config and runs it.
func buildDocument(ctx context.Context, sessionCells []*cells.Cell, target string) (*export.Document, error) {
	ws := workspace.New(cfg.Workspace.Roots)
	resolver := interpreter.New(cfg.Interpreter.Path, cfg.Interpreter.Candidates)
	matcher := marker.New(cfg.Export.MarkerPrefixes...)

	exporter := export.New(ws, ws, resolver, matcher, locale.Func(cfg.Console.Locale))
	exporter.InjectChangeDir = cfg.Export.InjectChangeDir

	abs := target
	if a, err := filepath.Abs(target); err == nil {
		abs = a
	}
	return exporter.Export(ctx, sessionCells, abs)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
