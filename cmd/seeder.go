package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/college-erp/internal"
	userDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/user"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with the superadmin account",
	Long:  `Seed the SUPERADMIN designation and bootstrap superadmin user for a fresh deployment.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		db, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to open gorm: %v", err)
		}

		if clearData {
			for _, table := range []string{"password_history", "users_history", "designations_history", "users", "designations"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing account data")
		}

		now := time.Now()
		actor := internal.SystemActor

		designation := userDatamodel.Designation{
			Name:        "Super Administrator",
			Code:        "SUPERADMIN",
			Description: "Unrestricted access to every module",
			Permissions: userDatamodel.PermissionMap{
				"users":         {"read": true, "create": true, "update": true, "delete": true, "purge": true},
				"master":        {"read": true, "create": true, "update": true, "delete": true, "purge": true},
				"establishment": {"read": true, "create": true, "update": true, "delete": true},
			},
			IsActive: true,
		}
		designation.CreatedBy = actor.Ref()
		designation.CreatedAt = now
		designation.UpdatedBy = actor.Ref()
		designation.UpdatedAt = now

		var existing userDatamodel.Designation
		err = db.Where("code = ?", designation.Code).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			if err := db.Create(&designation).Error; err != nil {
				log.Fatalf("failed to seed designation: %v", err)
			}
			fmt.Println("Seeded designation:", designation.Code)
		} else if err != nil {
			log.Fatalf("failed to check designation: %v", err)
		} else {
			designation = existing
			fmt.Println("Designation already exists:", designation.Code)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte("ChangeMe!2026"), cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash superadmin password: %v", err)
		}

		superadmin := userDatamodel.User{
			UserID:        "SUPERADMIN",
			Username:      "superadmin",
			Email:         "superadmin@college-erp.local",
			PasswordHash:  string(hash),
			FirstName:     "Super",
			LastName:      "Admin",
			DesignationID: &designation.DesignationID,
			IsActive:      true,
			IsStaff:       true,
			IsSuperuser:   true,
			MaxOTPTry:     userDatamodel.DefaultMaxOTPTry,
			DateJoined:    now,
		}
		superadmin.CreatedBy = actor.Ref()
		superadmin.CreatedAt = now
		superadmin.UpdatedBy = actor.Ref()
		superadmin.UpdatedAt = now

		var existingUser userDatamodel.User
		err = db.Where("user_id = ?", superadmin.UserID).First(&existingUser).Error
		if err == gorm.ErrRecordNotFound {
			if err := db.Create(&superadmin).Error; err != nil {
				log.Fatalf("failed to seed superadmin user: %v", err)
			}
			fmt.Println("Seeded superadmin user:", superadmin.Email)
			fmt.Println("Initial password: ChangeMe!2026 (rotate it on first login)")
		} else if err != nil {
			log.Fatalf("failed to check superadmin user: %v", err)
		} else {
			fmt.Println("Superadmin user already exists:", existingUser.Email)
		}
	},
}
