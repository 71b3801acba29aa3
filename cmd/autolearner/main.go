package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"autolearner-go/internal/app"
	"autolearner-go/internal/config"
	"autolearner-go/internal/model"
	"autolearner-go/internal/wallet"
)

// passphraseEnv lets scripted runs unlock the wallet without a prompt.
const passphraseEnv = "AUTOLEARNER_WALLET_PASSPHRASE"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
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

// newApp reads the config and creates a LearnerApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Submit", "List").
func newApp(ctx context.Context, operation string) (*app.LearnerApp, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewLearnerApp(ctx, cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// newConnectedApp creates a LearnerApp with an identity connected. When
// unlock is set and a key is stored, the key is decrypted for signing.
func newConnectedApp(ctx context.Context, operation string, unlock bool) (*app.LearnerApp, error) {
	a, err := newApp(ctx, operation)
	if err != nil {
		return nil, err
	}

	if unlock && a.WalletConfigured() {
		pass, err := readPassphrase("Wallet passphrase: ")
		if err == nil {
			_, err = a.Unlock(pass)
		}
		if err != nil {
			a.Close()
			return nil, err
		}
		return a, nil
	}

	if _, err := a.ConnectWatchOnly(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

var stdin = bufio.NewReader(os.Stdin)

func readPassphrase(prompt string) (string, error) {
	if pass := os.Getenv(passphraseEnv); pass != "" {
		return pass, nil
	}
	return readSecret(prompt)
}

// readSecret reads a line without echo, falling back to a plain line when
// stdin is not a terminal.
func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := stdin.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading input: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return string(secret), nil
}

func readNewPassphrase() (string, error) {
	if pass := os.Getenv(passphraseEnv); pass != "" {
		return pass, nil
	}

	pass, err := readSecret("New wallet passphrase: ")
	if err != nil {
		return "", err
	}
	confirm, err := readSecret("Confirm passphrase: ")
	if err != nil {
		return "", err
	}
	if pass != confirm {
		return "", fmt.Errorf("passphrases do not match")
	}
	return pass, nil
}

var rootCmd = &cobra.Command{
	Use:           "autolearner",
	Short:         "Turn web content into flashcards, quizzes and audio recorded on Celo",
	SilenceUsage: true,
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
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Ledger:    %s %s %s\n", cfg.Ledger.Type, cfg.Ledger.RPCURL, cfg.Ledger.ContractAddress)
		fmt.Printf("Gateway:   %s\n", cfg.Content.GatewayURL)
		fmt.Printf("Cache:     %s\n", cfg.Cache.Type)
		fmt.Printf("Database:  %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Wallet:    %s\n", cfg.Wallet.KeyPath)
		fmt.Printf("Server:    %s\n", cfg.Server.Addr)
		return nil
	},
}

// wallet command
var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage the signing wallet",
}

var walletInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a new encrypted signing key",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		pass, err := readNewPassphrase()
		if err != nil {
			return err
		}

		addr, err := wallet.NewKeyStore(cfg.Wallet).Setup(pass)
		if err != nil {
			return fmt.Errorf("creating wallet: %w", err)
		}
		fmt.Printf("Wallet created: %s\n", addr)
		fmt.Println("Fund this address with CELO before submitting content.")
		return nil
	},
}

var walletImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import an existing hex private key",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		hexKey, err := readSecret("Private key (hex): ")
		if err != nil {
			return err
		}
		pass, err := readNewPassphrase()
		if err != nil {
			return err
		}

		addr, err := wallet.NewKeyStore(cfg.Wallet).Import(hexKey, pass)
		if err != nil {
			return fmt.Errorf("importing wallet: %w", err)
		}
		fmt.Printf("Wallet imported: %s\n", addr)
		return nil
	},
}

var walletAddressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the wallet address",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ks := wallet.NewKeyStore(cfg.Wallet)
		if !ks.IsConfigured() {
			if cfg.Wallet.Address != "" {
				fmt.Printf("%s (watch-only)\n", cfg.Wallet.Address)
				return nil
			}
			return app.ErrNoWallet
		}
		addr, err := ks.Address()
		if err != nil {
			return err
		}
		fmt.Println(addr)
		return nil
	},
}

// submit command
var submitCmd = &cobra.Command{
	Use:   "submit URL",
	Short: "Register a content URL on the ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newConnectedApp(cmd.Context(), "Submit", true)
		if err != nil {
			return err
		}
		defer a.Close()

		receipt, err := a.Submit(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("submission failed: %w", err)
		}

		fmt.Printf("Submitted in tx %s (block %d)\n", receipt.TxHash, receipt.BlockNumber)
		if receipt.RecordID != "" {
			fmt.Printf("Record ID: %s\n", receipt.RecordID)
		}
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your content records, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newConnectedApp(cmd.Context(), "List", false)
		if err != nil {
			return err
		}
		defer a.Close()

		materials, err := a.List(cmd.Context())
		if err != nil {
			return err
		}

		if len(materials) == 0 {
			fmt.Println("No content submitted yet.")
			return nil
		}

		for _, m := range materials {
			fmt.Printf("#%-6s  %s  %-10s  %s\n",
				m.Record.ID,
				m.Record.SubmittedAt.Local().Format("2006-01-02 15:04:05"),
				materialStatus(m),
				m.Record.SourceReference,
			)
		}
		return nil
	},
}

func materialStatus(m *model.Material) string {
	if !m.Record.Processed {
		return "pending"
	}
	return "processed"
}

// show command
var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show the flashcards, quiz and audio for a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newConnectedApp(cmd.Context(), "Show", false)
		if err != nil {
			return err
		}
		defer a.Close()

		m, err := a.Show(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		r := m.Record
		fmt.Printf("Record:    #%s\n", r.ID)
		fmt.Printf("Source:    %s\n", r.SourceReference)
		fmt.Printf("Submitted: %s\n", r.SubmittedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("Status:    %s\n", materialStatus(m))
		if !r.Processed {
			return nil
		}

		if m.AudioURL != "" {
			fmt.Printf("Audio:     %s\n", m.AudioURL)
		}

		if len(m.Flashcards) > 0 {
			fmt.Printf("\nFlashcards (%d):\n", len(m.Flashcards))
			for i, c := range m.Flashcards {
				fmt.Printf("  %2d. %s\n      %s\n", i+1, c.Front, c.Back)
			}
		}

		if len(m.Quiz) > 0 {
			fmt.Printf("\nQuiz (%d):\n", len(m.Quiz))
			for i, q := range m.Quiz {
				fmt.Printf("  %2d. %s\n", i+1, q.Question)
				for j, opt := range q.Options {
					marker := " "
					if j == q.CorrectOptionIndex {
						marker = "*"
					}
					fmt.Printf("      %s %c) %s\n", marker, 'a'+j, opt)
				}
			}
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View submissions made from this machine",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newConnectedApp(cmd.Context(), "History", false)
		if err != nil {
			return err
		}
		defer a.Close()

		subs, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(subs) == 0 {
			fmt.Println("No submissions recorded.")
			return nil
		}

		for _, s := range subs {
			record := s.RecordID
			if record == "" {
				record = "?"
			}
			fmt.Printf("%s  #%-6s  %s  %s\n",
				s.SubmittedAt.Local().Format("2006-01-02 15:04:05"),
				record,
				s.TxHash,
				s.SourceReference,
			)
		}
		return nil
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the records API for the web front end",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		unlock, _ := cmd.Flags().GetBool("unlock")

		a, err := newConnectedApp(cmd.Context(), "Serve", unlock)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Serve(cmd.Context(), addr)
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// wallet subcommands
	walletCmd.AddCommand(walletInitCmd)
	walletCmd.AddCommand(walletImportCmd)
	walletCmd.AddCommand(walletAddressCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(walletCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of submissions to show")
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default from config)")
	serveCmd.Flags().Bool("unlock", false, "Unlock the wallet so the API can submit")
}
