package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"votemaster-backend/model"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to MySQL using the DB_* environment variables, runs the
// migrations and seeds the admin account. TranslateError is on so the
// repositories can match gorm.ErrDuplicatedKey across drivers.
func Open() (*gorm.DB, error) {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	dbUser := getEnv("DB_USER", "voteuser")
	dbPassword := getEnv("DB_PASSWORD", "votepassword")
	dbHost := getEnv("DB_HOST", "mysql")
	dbPort := getEnv("DB_PORT", "3306")
	dbName := getEnv("DB_NAME", "votingdb")

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		dbUser, dbPassword, dbHost, dbPort, dbName)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if err := seedAdmin(db); err != nil {
		return nil, err
	}

	log.Println("database: connected and migrated")
	return db, nil
}

// Migrate applies the schema. Exported so tests can run it against sqlite.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.Leader{},
		&model.Poll{},
		&model.PollOption{},
		&model.VoteRecord{},
		&model.VoteEvent{},
	)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// seedAdmin creates the bootstrap admin account on first run. Credentials
// come from ADMIN_MOBILE / ADMIN_PASSWORD; the defaults are for local
// development only.
func seedAdmin(db *gorm.DB) error {
	mobile := getEnv("ADMIN_MOBILE", "7385711985")

	var count int64
	if err := db.Model(&model.Leader{}).Where("mobile = ?", mobile).Count(&count).Error; err != nil {
		return fmt.Errorf("check admin account: %w", err)
	}
	if count > 0 {
		return nil
	}

	password := getEnv("ADMIN_PASSWORD", "password")
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := model.Leader{
		ID:           uuid.New().String(),
		Name:         "Admin",
		Slug:         "admin",
		Mobile:       mobile,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("seed admin account: %w", err)
	}

	log.Println("database: seeded admin account")
	return nil
}

// Close shuts the underlying connection pool down.
func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("database: close failed: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Printf("database: close failed: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
