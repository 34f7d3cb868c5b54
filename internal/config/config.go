package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/tdminh/marketplace/internal/models"
	"github.com/tdminh/marketplace/pkg/db"
	"gorm.io/gorm"
)

type Config struct {
	DB_HOST     string
	DB_PORT     string
	DB_USER     string
	DB_PASSWORD string
	DB_NAME     string

	ES_URL      string
	ES_USER     string
	ES_PASSWORD string

	JWT_SECRET     string
	REFRESH_SECRET string

	KAFKA_ADDRESS string

	PAYPAL_API_URL   string
	PAYPAL_CLIENT_ID string
	PAYPAL_SECRET    string

	LOG_LEVEL string

	ShippingFee decimal.Decimal
	LockTimeout time.Duration
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		DB_HOST:          os.Getenv("DB_HOST"),
		DB_PORT:          os.Getenv("DB_PORT"),
		DB_USER:          os.Getenv("DB_USER"),
		DB_PASSWORD:      os.Getenv("DB_PASSWORD"),
		DB_NAME:          os.Getenv("DB_NAME"),
		ES_URL:           os.Getenv("ES_URL"),
		ES_USER:          os.Getenv("ES_USER"),
		ES_PASSWORD:      os.Getenv("ES_PASSWORD"),
		JWT_SECRET:       os.Getenv("JWT_SECRET"),
		REFRESH_SECRET:   os.Getenv("REFRESH_SECRET"),
		KAFKA_ADDRESS:    os.Getenv("KAFKA_ADDRESS"),
		PAYPAL_API_URL:   os.Getenv("PAYPAL_API_URL"),
		PAYPAL_CLIENT_ID: os.Getenv("PAYPAL_CLIENT_ID"),
		PAYPAL_SECRET:    os.Getenv("PAYPAL_SECRET"),
		LOG_LEVEL:        os.Getenv("LOG_LEVEL"),
		ShippingFee:      decimalEnv("SHIPPING_FEE", "10"),
		LockTimeout:      durationEnvMs("LOCK_TIMEOUT_MS", 3000),
	}

	return config, nil
}

func decimalEnv(key, def string) decimal.Decimal {
	raw := os.Getenv(key)
	if raw == "" {
		raw = def
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		log.Printf("Notice: invalid %s=%q, using %s", key, raw, def)
		v, _ = decimal.NewFromString(def)
	}
	return v
}

func durationEnvMs(key string, def int) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return time.Duration(def) * time.Millisecond
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		log.Printf("Notice: invalid %s=%q, using %dms", key, raw, def)
		ms = def
	}
	return time.Duration(ms) * time.Millisecond
}

func InitDB() (*gorm.DB, error) {
	configuration, _ := LoadConfig()

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		configuration.DB_USER,
		configuration.DB_PASSWORD,
		configuration.DB_HOST,
		configuration.DB_PORT,
		configuration.DB_NAME,
	)

	gdb, err := db.Open(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if err := gdb.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Category{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.ContactInfo{},
		&models.PaymentMethod{},
		&models.Order{},
		&models.OrderItem{},
		&models.PaymentTransaction{},
	); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return gdb, nil
}
