package auth

import (
	"errors"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/sharath018/event-escrow-backend/config"
)

// ============================
// 🔷 GORM User Models
type UserRole struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RoleName  string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"role_name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	FullName     string    `gorm:"type:varchar(255);not null" json:"full_name"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	RoleID       uint      `gorm:"not null" json:"role_id"`
	Role         UserRole  `gorm:"foreignKey:RoleID" json:"role"`
	Status       string    `gorm:"type:varchar(20);default:'active'" json:"status"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Seeded roles. "owner" is the contract-owner role; exactly one owner
// account exists and it is created at boot.
var seedRoles = []string{"owner", "organizer", "participant"}

// SeedUserRoles inserts the fixed role set if missing.
func SeedUserRoles(db *gorm.DB) error {
	for _, name := range seedRoles {
		var role UserRole
		err := db.Where("role_name = ?", name).First(&role).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.Create(&UserRole{RoleName: name}).Error; err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// EnsureOwner creates the platform owner account on first boot and
// returns its id. The owner identity never changes afterwards — the
// ledger treats this user as the contract owner.
func EnsureOwner(db *gorm.DB, cfg *config.Config) (uint, error) {
	var owner User
	err := db.Joins("Role").Where("\"Role\".role_name = ?", "owner").First(&owner).Error
	if err == nil {
		return owner.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	var role UserRole
	if err := db.Where("role_name = ?", "owner").First(&role).Error; err != nil {
		return 0, err
	}

	password := cfg.OwnerPassword
	if password == "" {
		return 0, errors.New("OWNER_PASSWORD must be set for first boot")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}

	owner = User{
		FullName:     "Platform Owner",
		Email:        cfg.OwnerEmail,
		PasswordHash: string(hash),
		RoleID:       role.ID,
		Status:       "active",
	}
	if err := db.Create(&owner).Error; err != nil {
		return 0, err
	}
	log.Printf("✅ Seeded platform owner %s (id %d)", owner.Email, owner.ID)
	return owner.ID, nil
}
