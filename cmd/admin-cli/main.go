package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"property-manager/internal/auth"
	"property-manager/internal/config"
	"property-manager/internal/ledger"
	"property-manager/internal/logging"
	"property-manager/internal/onboarding"
	"property-manager/internal/reports"
	"property-manager/internal/store"
)

var (
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pm-admin",
	Short: "Property Manager administration CLI",
	Long:  `A command-line interface for managing users, data and exports of the property manager.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger, err = logging.New(cfg.Logging)
		return err
	},
	SilenceUsage: true,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show record counts and store health",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Open(cfg.Storage.DataDir)
		if err != nil {
			return err
		}
		counts, err := s.Counts()
		if err != nil {
			return err
		}
		l, err := openLedger()
		if err != nil {
			return err
		}
		defer l.Close()
		unmatched, err := l.ListTransactions(cmd.Context(), ledger.TransactionFilter{Unmatched: true, Limit: -1})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "📊 Property Manager Status (%s)\n", cfg.Storage.DataDir)
		names := make([]string, 0, len(counts))
		for name := range counts {
			names = append(names, name)
		}
		sort.Strings(names)
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, name := range names {
			fmt.Fprintf(w, "  %s\t%d\n", name, counts[name])
		}
		fmt.Fprintf(w, "  unmatched transactions\t%d\n", len(unmatched))
		return w.Flush()
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the ledger schema and the default settings file",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLedger()
		if err != nil {
			return err
		}
		defer l.Close()

		s, err := store.Open(cfg.Storage.DataDir)
		if err != nil {
			return err
		}
		settings, err := s.Settings.Load()
		if err != nil {
			return err
		}
		if _, err := s.Settings.Save(settings); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Ledger schema migrated (%s)\n", cfg.Database.Driver)
		return nil
	},
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "User management",
}

var userRole string

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create a user; the password is read from stdin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readLine(cmd.InOrStdin())
		if err != nil {
			return err
		}
		a, err := authenticator()
		if err != nil {
			return err
		}
		user, err := a.CreateUser(args[0], password, userRole)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Created %s (%s)\n", user.Username, user.Role)
		return nil
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Open(cfg.Storage.DataDir)
		if err != nil {
			return err
		}
		users, err := s.Users.List()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "USERNAME\tROLE\tCREATED")
		for _, u := range users {
			fmt.Fprintf(w, "%s\t%s\t%s\n", u.Username, u.Role, u.CreatedAt.Format("2006-01-02"))
		}
		return w.Flush()
	},
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete <username>",
	Short: "Delete a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := authenticator()
		if err != nil {
			return err
		}
		if err := a.DeleteUser(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "🗑️ Deleted %s\n", args[0])
		return nil
	},
}

var (
	exportFormat string
	exportMonth  string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:       "export <report>",
	Short:     "Export a report as csv or parquet",
	Args:      cobra.ExactArgs(1),
	ValidArgs: reports.Names,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := reports.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		s, err := store.Open(cfg.Storage.DataDir)
		if err != nil {
			return err
		}
		l, err := openLedger()
		if err != nil {
			return err
		}
		defer l.Close()

		table, err := reports.NewBuilder(s, l).Build(cmd.Context(), args[0], exportMonth)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if exportOut != "" && exportOut != "-" {
			f, err := os.Create(exportOut)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		if err := reports.Write(out, table, format); err != nil {
			return err
		}
		if exportOut != "" && exportOut != "-" {
			fmt.Fprintf(cmd.ErrOrStderr(), "✅ Wrote %d rows to %s\n", len(table.Rows), exportOut)
		}
		return nil
	},
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Bank ledger operations",
}

var ledgerImportCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import a bank statement CSV and match it to tenants",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		l, matcher, err := ledgerWithMatcher()
		if err != nil {
			return err
		}
		defer l.Close()

		result, err := l.Import(cmd.Context(), f, matcher)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "📥 Batch %s: %d inserted, %d already imported, %d matched\n",
			result.Batch, result.Inserted, result.Skipped, result.Matched)
		for _, e := range result.Errors {
			fmt.Fprintf(out, "  line %d: %s\n", e.Line, e.Error)
		}
		return nil
	},
}

var ledgerRematchCmd = &cobra.Command{
	Use:   "rematch",
	Short: "Run matching over every unmatched transaction",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, matcher, err := ledgerWithMatcher()
		if err != nil {
			return err
		}
		defer l.Close()

		n, err := l.Rematch(cmd.Context(), matcher)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Matched %d transactions\n", n)
		return nil
	},
}

var onboardingCmd = &cobra.Command{
	Use:   "onboarding",
	Short: "Onboarding maintenance",
}

var onboardingRecomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Re-derive every onboarding status from its checkpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Open(cfg.Storage.DataDir)
		if err != nil {
			return err
		}
		changes, err := onboarding.NewService(s).Recompute()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, c := range changes {
			fmt.Fprintf(out, "  %s %s: %s -> %s\n", c.Kind, c.SubjectID, c.From, c.To)
		}
		fmt.Fprintf(out, "✅ %d statuses changed\n", len(changes))
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Session token utilities",
}

var tokenVerifyCmd = &cobra.Command{
	Use:   "verify <token>",
	Short: "Verify a session token and print its claims",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		claims, err := tokenManager().Verify(args[0])
		if err != nil {
			return err
		}
		expires := "never"
		if claims.ExpiresAt != nil {
			expires = claims.ExpiresAt.Time.Format(time.RFC3339)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user=%s role=%s expires=%s\n", claims.Username(), claims.Role, expires)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(migrateCmd)

	userAddCmd.Flags().StringVar(&userRole, "role", "viewer", "role: viewer, manager or admin")
	userCmd.AddCommand(userAddCmd, userListCmd, userDeleteCmd)
	rootCmd.AddCommand(userCmd)

	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "csv or parquet")
	exportCmd.Flags().StringVar(&exportMonth, "month", "", "YYYY-MM; defaults to every row, or this month for rent-roll")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (stdout when empty)")
	rootCmd.AddCommand(exportCmd)

	ledgerCmd.AddCommand(ledgerImportCmd, ledgerRematchCmd)
	rootCmd.AddCommand(ledgerCmd)

	onboardingCmd.AddCommand(onboardingRecomputeCmd)
	rootCmd.AddCommand(onboardingCmd)

	tokenCmd.AddCommand(tokenVerifyCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openLedger() (*ledger.Store, error) {
	return ledger.Open(cfg.Database, logger)
}

func ledgerWithMatcher() (*ledger.Store, *ledger.Matcher, error) {
	s, err := store.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, nil, err
	}
	tenants, err := s.Tenants.List()
	if err != nil {
		return nil, nil, err
	}
	orgs, err := s.Orgs.List()
	if err != nil {
		return nil, nil, err
	}
	l, err := openLedger()
	if err != nil {
		return nil, nil, err
	}
	return l, ledger.NewMatcher(tenants, orgs), nil
}

func tokenManager() *auth.TokenManager {
	return auth.NewTokenManager([]byte(cfg.Auth.SessionSecret), cfg.Auth.SessionIssuer, config.Duration(cfg.Auth.SessionTTL))
}

func authenticator() (*auth.Authenticator, error) {
	s, err := store.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, err
	}
	return auth.NewAuthenticator(s.Users, tokenManager(), cfg.Auth.BcryptCost), nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
