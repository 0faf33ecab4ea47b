package database

import (
	"fmt"
	"time"

	"interior-ledger/internal/config"
	"interior-ledger/internal/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config, log *zap.Logger) error {
	auditLog = log

	var err error

	const maxAttempts = 10
	for i := 1; i <= maxAttempts; i++ {
		log.Info("trying to connect to DB", zap.Int("attempt", i), zap.Int("max_attempts", maxAttempts))

		DB, err = gorm.Open(postgres.Open(cfg.DBDSN), &gorm.Config{})
		if err == nil {
			log.Info("connected to DB successfully")
			break
		}

		log.Warn("failed to connect to DB", zap.Error(err))
		time.Sleep(2 * time.Second)
	}

	if err != nil {
		return fmt.Errorf("connect to db after %d attempts: %w", maxAttempts, err)
	}

	// миграции
	err = Migrate(DB)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	createDefaultAdmin(cfg.AdminUsername, cfg.AdminPassword, log)
	if cfg.SeedDemoUsers {
		seedDefaultUsers(log)
	}
	return nil
}

// Migrate creates or updates every table the service uses.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Client{},
		&models.Project{},
		&models.AuditLog{},
		&models.ProjectCost{},
		&models.PaymentStage{},
		&models.PaymentTransaction{},
		&models.ExtraWork{},
		&models.ExtraWorkPayment{},
	)
}

// админ только из кода/конфига
func createDefaultAdmin(username, password string, log *zap.Logger) {
	var count int64
	if err := DB.Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Count(&count).Error; err != nil {
		log.Error("failed to check admin user", zap.Error(err))
		return
	}
	if count > 0 {
		// админ уже есть, ничего не делаем
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to hash default admin password", zap.Error(err))
		return
	}

	admin := models.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}

	if err := DB.Create(&admin).Error; err != nil {
		log.Error("failed to create default admin", zap.Error(err))
		return
	}

	log.Info("created default admin user", zap.String("username", username))
}

// тестовые аккаунты для демо (manager, accounts, designer)
func seedDefaultUsers(log *zap.Logger) {
	type seedUser struct {
		Username string
		Password string
		Role     models.UserRole
	}

	users := []seedUser{
		{Username: "manager@studio.local", Password: "Manager123!", Role: models.RoleManager},
		{Username: "accounts@studio.local", Password: "Accounts123!", Role: models.RoleAccounts},
		{Username: "designer@studio.local", Password: "Designer123!", Role: models.RoleDesigner},
	}

	for _, u := range users {
		var count int64
		if err := DB.Model(&models.User{}).
			Where("username = ?", u.Username).
			Count(&count).Error; err != nil {
			log.Error("failed to check seed user", zap.String("username", u.Username), zap.Error(err))
			continue
		}
		if count > 0 {
			continue
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Error("failed to hash seed password", zap.String("username", u.Username), zap.Error(err))
			continue
		}

		user := models.User{
			Username:     u.Username,
			PasswordHash: string(hash),
			Role:         u.Role,
		}
		if err := DB.Create(&user).Error; err != nil {
			log.Error("failed to create seed user", zap.String("username", u.Username), zap.Error(err))
			continue
		}

		log.Info("created seed user", zap.String("username", u.Username), zap.String("role", string(u.Role)))
	}
}
