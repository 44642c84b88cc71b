package database

import (
	"gorm.io/gorm"

	"github.com/campuskit/rollcall/internal/models"
	"github.com/campuskit/rollcall/pkg/crypto"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.AttendanceRecord{},
		&models.AuditLog{},
	)
}

// SeedData populates demo accounts for local development. Existing rows are
// left untouched.
func SeedData(db *gorm.DB) error {
	accounts := []struct {
		name     string
		email    string
		password string
		role     string
	}{
		{"Admin", "admin@rollcall.local", "admin12345", models.RoleAdmin},
		{"Demo Teacher", "teacher@rollcall.local", "teacher12345", models.RoleTeacher},
		{"Demo Student One", "student1@rollcall.local", "student12345", models.RoleStudent},
		{"Demo Student Two", "student2@rollcall.local", "student12345", models.RoleStudent},
	}

	for _, account := range accounts {
		hashed, err := crypto.HashPassword(account.password)
		if err != nil {
			return err
		}

		user := models.User{
			Name:     account.name,
			Email:    account.email,
			Password: hashed,
			Role:     account.role,
		}
		if err := db.Where(models.User{Email: account.email}).Attrs(user).FirstOrCreate(&models.User{}).Error; err != nil {
			return err
		}
	}

	return nil
}
