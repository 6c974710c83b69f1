package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"mm-go/internal/app"
	"mm-go/internal/config"
	"mm-go/internal/safetensors"
	"mm-go/internal/server"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "Scan", "Serve").
func newApp(operation string) (*app.App, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

func readConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

var rootCmd = &cobra.Command{
	Use:   "mm",
	Short: "AI model file catalog",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Database:    %s\n", cfg.Database.Type)
		if cfg.Database.DataDir != "" {
			fmt.Printf("Data Dir:    %s\n", cfg.Database.DataDir)
		}
		fmt.Printf("Listen Addr: %s\n", cfg.Server.ListenAddr)
		return nil
	},
}

// scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Reconcile the catalog with the models directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		a, err := newApp("Scan")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Scan(force)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		fmt.Printf("Scanned %d model(s)\n", len(res.Models))
		for _, s := range res.Skipped {
			fmt.Printf("skipped %s: %s\n", s.Path, s.Reason)
		}
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("List")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.List()
		if err != nil {
			return err
		}

		if res.InitialScan {
			fmt.Println("Catalog was empty; ran an initial scan.")
		}
		if len(res.Models) == 0 {
			fmt.Println("No models found.")
			return nil
		}

		for _, m := range res.Models {
			hash := ""
			if m.Hash != "" {
				hash = "  " + m.Hash[:12]
			}
			fmt.Printf("%-18s %-40s %12d%s  %s\n", m.Kind, m.Name.Effective(), m.Size, hash, m.Path)
		}
		return nil
	},
}

// hash command
var hashCmd = &cobra.Command{
	Use:   "hash MODEL_ID...",
	Short: "Compute full content digests",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ComputeStrongHash")
		if err != nil {
			return err
		}
		defer a.Close()

		for _, res := range a.ComputeStrongHash(args) {
			if res.Err != nil {
				fmt.Printf("%s  error: %v\n", res.ModelID, res.Err)
				continue
			}
			fmt.Printf("%s  %s\n", res.ModelID, res.Hash)
		}
		return nil
	},
}

// settings command
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage catalog settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective models path",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ModelsPath")
		if err != nil {
			return err
		}
		defer a.Close()

		path, err := a.ModelsPath()
		if err != nil {
			return err
		}

		fmt.Printf("Models path: %s\n", path)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set PATH",
	Short: "Set the models path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SaveModelsPath")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SaveModelsPath(args[0]); err != nil {
			return fmt.Errorf("saving models path: %w", err)
		}

		fmt.Printf("Models path saved: %s\n", args[0])
		fmt.Println("Catalog cleared; the next listing rescans the new root.")
		return nil
	},
}

// inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Inspect a safetensors file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		absPath, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		f, err := os.Open(absPath)
		if err != nil {
			return fmt.Errorf("opening file: %w", err)
		}
		defer f.Close()

		meta, err := safetensors.Extract(f)
		if err != nil {
			return fmt.Errorf("reading header: %w", err)
		}

		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("rewinding file: %w", err)
		}
		keys, err := safetensors.Keys(f)
		if err != nil {
			return fmt.Errorf("reading tensor keys: %w", err)
		}

		fmt.Printf("File:         %s\n", absPath)
		fmt.Printf("Architecture: %s\n", safetensors.DetectArchitecture(keys))
		fmt.Printf("Tensors:      %d\n", len(keys))
		if meta.Trigger != "" {
			fmt.Printf("Trigger:      %s\n", meta.Trigger)
		}
		if meta.Tags != "" {
			fmt.Printf("Tags:         %s\n", meta.Tags)
		}
		return nil
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		a, err := app.NewApp(cfg, "Serve")
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer a.Close()

		srv := server.NewServer(cfg.Server, a, a.Logger())
		return srv.Run()
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// settings subcommands
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolP("force", "f", false, "Re-extract every file regardless of mtime")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(hashCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(serveCmd)
}
