package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/lib/pq"

	"solidwriter-api/internal/config"
	"solidwriter-api/internal/domain/entity"
	"solidwriter-api/internal/domain/repository"
	"solidwriter-api/internal/infrastructure/persistence/postgres"
	"solidwriter-api/internal/wire"
)

const sweepBatch = 200

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting system bootstrap...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. 确保数据库存在
	if err := ensureDatabase(ctx, &cfg.Postgres); err != nil {
		log.Fatalf("failed to ensure database: %v", err)
	}

	// 3. 初始化数据层（仅 PostgreSQL）并同步表结构
	dataLayer, cleanup, err := wire.InitializePostgresOnly(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize data layer: %v", err)
	}
	defer cleanup()

	if err := dataLayer.PgClient.AutoMigrate(ctx); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	// 4. 创建试用账号
	seedEmail := entity.NormalizeEmail(os.Getenv("BOOTSTRAP_USER_EMAIL"))
	if seedEmail != "" {
		existing, err := dataLayer.UserRepo.GetByEmail(ctx, seedEmail)
		if err != nil {
			log.Fatalf("failed to check seed user: %v", err)
		}
		if existing == nil {
			user := entity.NewUser(seedEmail, os.Getenv("BOOTSTRAP_USER_NAME"), cfg.Quota.DefaultUnitLimit)
			if err := dataLayer.UserRepo.Create(ctx, user); err != nil {
				log.Fatalf("failed to create seed user: %v", err)
			}
			fmt.Printf("Seed user %s created with limit %d.\n", seedEmail, user.UnitLimit)
		} else {
			fmt.Printf("Seed user %s already exists.\n", seedEmail)
		}
	}

	// 5. 批量迁移旧版按调用次数计的上限
	migrated, err := sweepLegacy(ctx, dataLayer, cfg.Quota.LegacyFloor)
	if err != nil {
		log.Fatalf("legacy sweep failed: %v", err)
	}
	fmt.Printf("Legacy sweep migrated %d users.\n", migrated)

	fmt.Println("Bootstrap completed successfully.")
}

// ensureDatabase 连接维护库，目标库不存在时创建
func ensureDatabase(ctx context.Context, cfg *config.PostgresConfig) error {
	db, err := sql.Open("postgres", postgres.DSN(cfg, "postgres"))
	if err != nil {
		return err
	}
	defer db.Close()

	var exists bool
	if err := db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", cfg.Database,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to query pg_database: %w", err)
	}
	if exists {
		return nil
	}

	fmt.Printf("Creating database %s...\n", cfg.Database)
	_, err = db.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(cfg.Database))
	return err
}

// sweepLegacy 迁移后的用户不再命中过滤条件，因此始终读取第一页
func sweepLegacy(ctx context.Context, dl *wire.PostgresOnlyDataLayer, floor int64) (int, error) {
	total := 0
	for {
		page, err := dl.UserRepo.ListBelowLimit(ctx, floor, repository.NewPagination(1, sweepBatch))
		if err != nil {
			return total, err
		}
		if len(page.Items) == 0 {
			return total, nil
		}

		progressed := 0
		for _, u := range page.Items {
			_, changed, err := dl.Ledger.MigrateLegacy(ctx, u)
			if err != nil {
				return total, err
			}
			if changed {
				progressed++
			}
		}
		total += progressed
		if progressed == 0 {
			return total, nil
		}
	}
}
