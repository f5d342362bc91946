package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seetuai/seetu/internal/adapter/repo"
)

// Operator tool for granting credits and inspecting balances.
func main() {
	var (
		idFlag    string
		emailFlag string
		grantFlag int
		noteFlag  string
	)

	flag.StringVar(&idFlag, "id", "", "user ID (UUID)")
	flag.StringVar(&emailFlag, "email", "", "user email")
	flag.IntVar(&grantFlag, "grant", 0, "credit units to grant (0 prints the balance)")
	flag.StringVar(&noteFlag, "note", "manual top-up", "ledger description for the grant")
	flag.Parse()

	userID := strings.TrimSpace(idFlag)
	email := strings.TrimSpace(emailFlag)
	if userID == "" && email == "" {
		exitWithError(errors.New("either -id or -email must be provided"))
	}
	if grantFlag < 0 {
		exitWithError(errors.New("-grant must not be negative"))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	users := repo.NewUserRepository(pool)
	ledger := repo.NewCreditLedger(pool)

	if userID == "" {
		user, err := users.GetByEmail(ctx, email)
		if err != nil {
			exitWithError(fmt.Errorf("failed to load user: %w", err))
		}
		userID = user.ID
		fmt.Printf("User %s (%s)\n", user.ID, user.Email)
	}

	if grantFlag == 0 {
		balance, err := ledger.Balance(ctx, userID)
		if err != nil {
			exitWithError(fmt.Errorf("failed to read balance: %w", err))
		}
		fmt.Printf("balance=%d\n", balance)
		return
	}

	newBalance, err := ledger.Grant(ctx, userID, grantFlag, noteFlag)
	if err != nil {
		exitWithError(fmt.Errorf("failed to grant credits: %w", err))
	}
	fmt.Printf("granted=%d balance=%d\n", grantFlag, newBalance)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
