package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"codeberg.org/docflow/server/docflow/documents"
	"codeberg.org/docflow/server/internal/auth"
	"codeberg.org/docflow/server/internal/config"
	"codeberg.org/docflow/server/internal/logger"
)

// issues a token for a test user and seeds a document they own
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/gentoken <user_id> [username]")
		fmt.Println("Example: go run ./scripts/gentoken 1 alice")
		os.Exit(1)
	}

	userID, err := strconv.ParseInt(os.Args[1], 10, 64)
	if err != nil || userID <= 0 {
		logger.FatalErr(fmt.Errorf("invalid user id %q", os.Args[1]), "bad arguments")
	}

	username := "Test User"
	if len(os.Args) > 2 {
		username = os.Args[2]
	}

	config.LoadDotEnv()
	v := config.NewViper()

	tokens, err := auth.NewTokenManager(v.GetString("auth.jwt_secret"), 24*time.Hour)
	if err != nil {
		logger.FatalErr(err, "DOCFLOW_AUTH_JWT_SECRET not set")
	}

	ctx := context.Background()

	repo, closeRepo, err := openRepository(ctx, v.GetString("database.driver"), v.GetString("database.url"), v.GetString("database.path"))
	if err != nil {
		logger.FatalErr(err, "failed to open document store")
	}
	defer closeRepo()

	doc, err := repo.CreateDocument(ctx, &documents.Document{OwnerID: userID})
	if err != nil {
		logger.FatalErr(err, "failed to create test document")
	}

	token, err := tokens.Generate(userID, username)
	if err != nil {
		logger.FatalErr(err, "failed to generate token")
	}

	fmt.Printf("Created document %d owned by user %d\n", doc.ID, userID)
	fmt.Printf("\nTest JWT Token:\n%s\n\n", token)
	fmt.Printf("Export this token for testing:\nexport TEST_TOKEN=\"%s\"\n", token)
}

func openRepository(ctx context.Context, driver, url, path string) (documents.Repository, func(), error) {
	if driver == config.DriverSQLite {
		db, err := documents.OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}

		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}

		return documents.NewSQLiteRepository(db), func() { sqlDB.Close() }, nil //nolint:errcheck,gosec // script cleanup
	}

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, nil, err
	}

	repo := documents.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	return repo, pool.Close, nil
}
