package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/timmy/cardsmith/internal/config"
	"github.com/timmy/cardsmith/internal/domain"
	"github.com/timmy/cardsmith/internal/logger"
	"github.com/timmy/cardsmith/internal/repository"
	"github.com/timmy/cardsmith/internal/service"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "text",
		ServiceName: "cardsmith-credits",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	email := flag.String("email", "", "Email of the account to inspect or top up")
	grant := flag.Int("grant", 0, "Credits to add to the account")
	reason := flag.String("reason", string(domain.ReasonGrant), "Ledger reason recorded with a grant (grant, purchase)")
	reference := flag.String("ref", "", "Optional reference recorded with a grant, e.g. an order id")
	history := flag.Int("history", 10, "Number of recent ledger entries to print")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "usage: credits -email user@example.com [-grant N] [-history N]")
		os.Exit(2)
	}
	if *grant < 0 {
		appLogger.Fatal("Grant must not be negative; balances are only reduced by generation")
	}
	creditReason := domain.CreditReason(*reason)
	if creditReason != domain.ReasonGrant && creditReason != domain.ReasonPurchase {
		appLogger.Fatalf("Unknown reason %q", *reason)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	ctx := context.Background()
	users := repository.NewUserRepository(db)
	ledger := service.NewCreditLedger(users)

	normalized, err := domain.NormalizeEmail(*email)
	if err != nil {
		appLogger.WithError(err).Fatal("Invalid email")
	}
	user, err := users.GetByEmail(ctx, normalized)
	if err != nil {
		appLogger.WithError(err).WithField("email", normalized).Fatal("Failed to find user")
	}

	if *grant > 0 {
		balance, err := ledger.Credit(ctx, user.ID, *grant, creditReason, *reference)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to grant credits")
		}
		appLogger.WithFields(logger.Fields{
			logger.FieldUserID:  user.ID,
			logger.FieldCredits: *grant,
			"balance":           balance,
			"reason":            creditReason,
		}).Info("Credits granted")
	}

	balance, err := ledger.Balance(ctx, user.ID)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to read balance")
	}
	fmt.Printf("%s <%s>  balance: %d\n", user.Name, user.Email, balance)

	if *history <= 0 {
		return
	}
	entries, err := users.Transactions(ctx, user.ID, *history)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to read ledger")
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tAMOUNT\tBALANCE\tREASON\tREFERENCE")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%+d\t%d\t%s\t%s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Amount, e.BalanceAfter, e.Reason, e.ReferenceID)
	}
	w.Flush()
}
