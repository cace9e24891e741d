package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"consent-go/internal/app"
	"consent-go/internal/config"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := app.LoadEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// readConfig reads the config file named by the application defaults.
func readConfig() (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults["config_path"], nil
}

// newApp reads the config and creates a ConsentApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Serve", "Archive").
func newApp(operation string) (*app.ConsentApp, error) {
	cfg, _, err := readConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewConsentApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// readPassphrase prompts on the terminal without echoing input.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

var rootCmd = &cobra.Command{
	Use:   "consent",
	Short: "Cookie consent server and decision log",
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

		siteID := uuid.New().String()
		cfg := config.NewConfig(siteID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Site ID:  %s\n", siteID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := readConfig()
		if err != nil {
			return err
		}

		s := cfg.Consent.Settings()
		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Site ID:      %s\n", cfg.SiteID)
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Version:      %s\n", s.Version)
		fmt.Printf("Cookie:       %s (%d days)\n", s.CookieName, s.DurationDays)
		fmt.Printf("Consent Mode: %v\n", s.ConsentMode)
		fmt.Printf("Listen:       %s\n", cfg.Server.Listen)
		fmt.Printf("Categories:\n")
		for _, c := range s.Categories {
			flags := ""
			if c.Required {
				flags = " [required]"
			} else if c.Default {
				flags = " [default on]"
			}
			fmt.Printf("  %-12s %s%s\n", c.Slug, c.Name, flags)
		}
		for _, v := range cfg.Vaults {
			fmt.Printf("Vault:        %s (%s)\n", v.Name, v.Type)
		}
		return nil
	},
}

var configVaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage vault",
}

var configVaultCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the archive vault is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("CheckVault")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.CheckVault(); err != nil {
			return err
		}
		fmt.Println("Vault OK")
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage archive encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the archive key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SetupKeys")
		if err != nil {
			return err
		}
		defer a.Close()

		pass, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Confirm passphrase: ")
		if err != nil {
			return err
		}
		if pass != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		if err := a.SetupKeys(pass); err != nil {
			return err
		}
		fmt.Println("Archive keys created")
		return nil
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve banner state and the decision-log endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Serve")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return a.Serve(ctx)
	},
}

// decisions command
var decisionsCmd = &cobra.Command{
	Use:   "decisions",
	Short: "View recent consent decisions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("Decisions")
		if err != nil {
			return err
		}
		defer a.Close()

		ds, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(ds) == 0 {
			fmt.Println("No decisions recorded.")
			return nil
		}

		for _, d := range ds {
			fmt.Printf("%s  %-8s  v%-4s  %s\n",
				d.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				d.Type,
				d.ConfigVersion,
				strings.Join(d.Categories, ","),
			)
		}
		return nil
	},
}

// stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize consent decisions",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")

		a, err := newApp("Stats")
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.Stats(days)
		if err != nil {
			return err
		}

		fmt.Printf("Since %s\n\n", st.Since.Local().Format("2006-01-02 15:04"))
		fmt.Printf("Total:    %d\n", st.Total)
		fmt.Printf("Full:     %d\n", st.ByType["full"])
		fmt.Printf("Partial:  %d\n", st.ByType["partial"])
		fmt.Printf("None:     %d\n", st.ByType["none"])
		fmt.Printf("Accepted: %.1f%%\n", st.AcceptRate*100)

		if len(st.Categories) > 0 {
			slugs := make([]string, 0, len(st.Categories))
			for s := range st.Categories {
				slugs = append(slugs, s)
			}
			sort.Strings(slugs)
			fmt.Println("\nGranted:")
			for _, s := range slugs {
				fmt.Printf("  %-12s %d\n", s, st.Categories[s])
			}
		}
		return nil
	},
}

// purge command
var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete decisions past the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Purge")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Purge()
		if err != nil {
			return fmt.Errorf("purge failed: %w", err)
		}
		fmt.Printf("Purged %d decision(s)\n", n)
		return nil
	},
}

// archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Manage encrypted decision-log archives",
}

var archivePushCmd = &cobra.Command{
	Use:   "push",
	Short: "Encrypt the decision log and upload it to the vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Archive")
		if err != nil {
			return err
		}
		defer a.Close()

		version, err := a.Archive()
		if err != nil {
			return fmt.Errorf("archive failed: %w", err)
		}
		fmt.Printf("Archived decision log (version %d)\n", version)
		return nil
	},
}

var archiveFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download and decrypt the latest archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		a, err := newApp("FetchArchive")
		if err != nil {
			return err
		}
		defer a.Close()

		pass, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}

		f, err := os.OpenFile(output, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}

		version, err := a.FetchArchive(pass, f)
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
		if err != nil {
			os.Remove(output)
			return fmt.Errorf("fetch failed: %w", err)
		}

		fmt.Printf("Restored archive version %d to %s\n", version, output)
		return nil
	},
}

// operations command
var operationsCmd = &cobra.Command{
	Use:   "operations",
	Short: "View maintenance run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("Operations")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.Operations(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt != nil {
				duration = op.FinishedAt.Sub(op.StartedAt).Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-12s  %s  %-8s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Local().Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
			)
		}
		return nil
	},
}

// inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect COOKIE_VALUE",
	Short: "Decode a consent cookie value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := readConfig()
		if err != nil {
			return err
		}

		in := app.Inspect(cfg.Consent.Settings(), args[0])
		if in.Record == nil {
			return fmt.Errorf("cookie value could not be decoded")
		}

		out, err := json.MarshalIndent(map[string]any{
			"record":            in.Record,
			"stale":             in.Stale,
			"opted_out_of_sale": in.OptedOutOfSale,
			"signals":           in.Signals,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configVaultCmd)
	configVaultCmd.AddCommand(configVaultCheckCmd)

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)

	// archive subcommands
	archiveCmd.AddCommand(archivePushCmd)
	archiveCmd.AddCommand(archiveFetchCmd)
	archiveFetchCmd.Flags().StringP("output", "o", "decisions.db", "Path to write the decrypted decision log")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(decisionsCmd)
	decisionsCmd.Flags().IntP("limit", "n", 50, "Maximum number of decisions to show")
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().IntP("days", "d", 30, "Trailing window in days")
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(operationsCmd)
	operationsCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	rootCmd.AddCommand(inspectCmd)
}
