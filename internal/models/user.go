package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is a directory record. Users are keyed by documento (national ID
// number), which is also the OAuth subject.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Documento    string    `gorm:"uniqueIndex;not null" json:"documento"`
	Nombre       string    `json:"nombre"`
	Email        string    `gorm:"uniqueIndex" json:"email"`
	Rol          string    `gorm:"default:'aprendiz'" json:"rol"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Activo       bool      `gorm:"default:true" json:"activo"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"-"`
}

func (User) TableName() string {
	return "usuarios"
}

// Roles known to the system.
const (
	RolInstructor = "instructor"
	RolAprendiz   = "aprendiz"
	RolInspector  = "inspector"
)

// SetPassword hashes the plaintext password with bcrypt and stores the hash.
func (u *User) SetPassword(plaintext string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword verifies a plaintext password against the stored hash.
func (u *User) CheckPassword(plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plaintext)) == nil
}
