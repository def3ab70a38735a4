package testutil

import (
	"context"
	"fmt"
	"log"
	"ticketing-core/config"
	"ticketing-core/internal/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func Setup() (*pgxpool.Pool, *redis.Client, func(), error) {
	cfg := config.LoadTestConfig()

	testDB, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize test database: %v", err)
	}

	if err := testDB.Ping(context.Background()); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to ping test database: %v", err)
	}

	if err := EnsureSchema(testDB); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to ensure schema: %v", err)
	}

	log.Println("Test database connected successfully")

	testRdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize redis: %v", err)
	}
	log.Println("Test redis connected successfully")

	cleanup := func() {
		testDB.Close()
		log.Println("Test database closed")

		testRdb.Close()
		log.Println("Test redis closed")
	}

	return testDB, testRdb, cleanup, nil
}

// SetupDBOnly 僅初始化資料庫，用於不依賴 Redis 的測試
func SetupDBOnly() (*pgxpool.Pool, func(), error) {
	cfg := config.LoadTestConfig()
	pool, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize test database: %v", err)
	}
	if err := EnsureSchema(pool); err != nil {
		return nil, nil, fmt.Errorf("failed to ensure schema: %v", err)
	}
	cleanup := func() { pool.Close() }
	return pool, cleanup, nil
}

// SetupRedisOnly 僅初始化 Redis，用於只依賴 Redis 的測試
func SetupRedisOnly() (*redis.Client, func(), error) {
	cfg := config.LoadTestConfig()
	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize redis: %v", err)
	}
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to ping redis: %v", err)
	}
	cleanup := func() { rdb.Close() }
	return rdb, cleanup, nil
}

// EnsureSchema creates the tables the tests need if they do not exist yet,
// so a fresh test database works without a separate migration step.
func EnsureSchema(pool *pgxpool.Pool) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id SERIAL PRIMARY KEY,
		session_id UUID NOT NULL UNIQUE,
		event_id UUID NOT NULL,
		name TEXT NOT NULL,
		starts_at TIMESTAMPTZ NOT NULL,
		capacity INT,
		status TEXT NOT NULL DEFAULT 'scheduled',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS tickets (
		id SERIAL PRIMARY KEY,
		ticket_code TEXT NOT NULL UNIQUE,
		session_id INT NOT NULL REFERENCES sessions(id),
		order_ref TEXT NOT NULL DEFAULT '',
		holder_name TEXT,
		seat_label TEXT,
		zone_name TEXT,
		tier_name TEXT,
		price DOUBLE PRECISION NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'confirmed',
		checked_in_at TIMESTAMPTZ,
		checked_in_by TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS coupons (
		id SERIAL PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		discount_type TEXT NOT NULL,
		discount_value DOUBLE PRECISION NOT NULL,
		min_purchase DOUBLE PRECISION,
		max_discount DOUBLE PRECISION,
		usage_limit INT,
		per_user_limit INT NOT NULL DEFAULT 1,
		event_id UUID,
		starts_at TIMESTAMPTZ,
		expires_at TIMESTAMPTZ,
		is_active BOOLEAN NOT NULL DEFAULT true,
		used_count INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS coupon_redemptions (
		id SERIAL PRIMARY KEY,
		coupon_id INT NOT NULL REFERENCES coupons(id),
		user_id TEXT NOT NULL,
		order_ref TEXT NOT NULL DEFAULT '',
		discount DOUBLE PRECISION NOT NULL DEFAULT 0,
		redeemed_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	_, err := pool.Exec(context.Background(), schema)
	return err
}
