package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
	"gorm.io/gorm"

	awspkg "github.com/shopcart/storefront/pkg/aws"
	ddb "github.com/shopcart/storefront/pkg/dynamodb"
	"github.com/shopcart/storefront/services/checkout-service/database"
	"github.com/shopcart/storefront/services/checkout-service/models"
	"github.com/shopcart/storefront/services/checkout-service/repository"
	applogger "github.com/shopcart/storefront/services/common/logger"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	var pg database.PostgresConfig
	var orderTable, addressTable string
	var batchSize int
	flag.StringVar(&pg.Host, "pg-host", getEnv("POSTGRES_HOST", "localhost"), "Postgres host")
	flag.StringVar(&pg.Port, "pg-port", getEnv("POSTGRES_PORT", "5432"), "Postgres port")
	flag.StringVar(&pg.User, "pg-user", os.Getenv("POSTGRES_USER"), "Postgres user")
	flag.StringVar(&pg.Password, "pg-password", os.Getenv("POSTGRES_PASSWORD"), "Postgres password")
	flag.StringVar(&pg.DBName, "pg-db", os.Getenv("POSTGRES_DB"), "Postgres database")
	flag.StringVar(&pg.SSLMode, "pg-sslmode", getEnv("POSTGRES_SSLMODE", "disable"), "Postgres sslmode")
	flag.StringVar(&orderTable, "orders-table", getEnv("DDB_TABLE_ORDERS", "Orders"), "DynamoDB orders table")
	flag.StringVar(&addressTable, "addresses-table", getEnv("DDB_TABLE_ADDRESSES", "Addresses"), "DynamoDB addresses table")
	flag.IntVar(&batchSize, "batch", 500, "rows read per batch")
	flag.Parse()
	pg.TimeZone = "UTC"

	logger, err := applogger.Initialize(getEnv("ENV", "development"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if pg.User == "" || pg.DBName == "" {
		logger.Fatal("POSTGRES_USER and POSTGRES_DB must be set or provided via flags")
	}

	db, err := database.ConnectPostgres(pg, logger)
	if err != nil {
		logger.Fatal("postgres connect", zap.Error(err))
	}
	defer database.Close(db)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	awsCfg, err := awspkg.LoadAWSConfig(ctx)
	if err != nil {
		logger.Fatal("aws config", zap.Error(err))
	}
	client := ddb.NewClientFromConfig(awsCfg)
	for _, spec := range repository.TableSpecs(orderTable, addressTable) {
		if err := ddb.EnsureTable(ctx, client, spec); err != nil {
			logger.Fatal("ensure table", zap.String("table", spec.Name), zap.Error(err))
		}
	}
	orders := repository.NewDynamoOrderRepository(client, orderTable)
	addresses := repository.NewDynamoAddressRepository(client, addressTable)

	migrated, skipped := 0, 0
	var batch []models.Order
	res := db.WithContext(ctx).Order("created_at").FindInBatches(&batch, batchSize, func(tx *gorm.DB, n int) error {
		for i := range batch {
			o := &batch[i]
			if err := orders.Create(ctx, o); err != nil {
				var exists *types.ConditionalCheckFailedException
				if errors.As(err, &exists) {
					skipped++
					continue
				}
				logger.Error("failed to write order", zap.String("order_id", o.ID.String()), zap.Error(err))
				continue
			}
			migrated++
		}
		logger.Info("migrated order batch", zap.Int("batch", n), zap.Int("migrated", migrated), zap.Int("skipped", skipped))
		return nil
	})
	if res.Error != nil {
		logger.Fatal("read orders", zap.Error(res.Error))
	}

	addrCount := 0
	var addrBatch []models.Address
	res = db.WithContext(ctx).FindInBatches(&addrBatch, batchSize, func(tx *gorm.DB, n int) error {
		for i := range addrBatch {
			if err := addresses.Upsert(ctx, &addrBatch[i]); err != nil {
				logger.Error("failed to write address", zap.String("user_email", addrBatch[i].UserEmail), zap.Error(err))
				continue
			}
			addrCount++
		}
		return nil
	})
	if res.Error != nil {
		logger.Fatal("read addresses", zap.Error(res.Error))
	}

	logger.Info("Migration complete",
		zap.Int("orders", migrated),
		zap.Int("orders_already_present", skipped),
		zap.Int("addresses", addrCount))
}
