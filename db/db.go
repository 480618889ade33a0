package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/nextyou21/planner-backend/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Migrate creates the users table, the one-row-per-user planner documents
// table and the coupon collection.
func Migrate() error {
	return DB.AutoMigrate(
		&models.User{},
		&models.PlannerDocument{},
		&models.Coupon{},
	)
}

func Connect() {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	password := getEnv("DB_PASSWORD", "1234")
	dbname := getEnv("DB_NAME", "planner_db")
	sslmode := getEnv("DB_SSLMODE", "disable")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode,
	)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := connectWithRetry(func() (*gorm.DB, error) {
		return open(dsn, gormLogger)
	}, 10, 2*time.Second)
	if err != nil {
		log.Fatal("Failed to connect to database after retries:", err)
	}

	DB = db
	fmt.Printf("Successfully connected to database at %s:%s\n", host, port)
}

// open dials, pings and configures the connection pool. Any stage failing
// returns its own error so retries report what actually went wrong.
func open(dsn string, gormLogger logger.Interface) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		PrepareStmt: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}

func connectWithRetry(open func() (*gorm.DB, error), attempts int, wait time.Duration) (*gorm.DB, error) {
	var err error
	for i := 0; i < attempts; i++ {
		var db *gorm.DB
		if db, err = open(); err == nil {
			return db, nil
		}

		fmt.Printf("Waiting for database connection... (attempt %d/%d)\n", i+1, attempts)
		time.Sleep(wait)
	}
	return nil, err
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
