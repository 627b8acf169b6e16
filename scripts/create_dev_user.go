package main

import (
	"flag"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type User struct {
	ID           uint   `gorm:"primaryKey"`
	Documento    string `gorm:"uniqueIndex;not null"`
	Nombre       string
	Email        string `gorm:"uniqueIndex"`
	Rol          string `gorm:"default:'aprendiz'"`
	PasswordHash string `gorm:"not null"`
	Activo       bool   `gorm:"default:true"`
}

func (User) TableName() string {
	return "usuarios"
}

func main() {
	// Parse command line flags
	rol := flag.String("rol", "instructor", "User role (instructor, aprendiz or inspector)")
	documento := flag.String("documento", "1000001", "Documento (login identifier)")
	password := flag.String("password", "inventario123", "Plaintext password to hash")
	dbPath := flag.String("db", "inventario.sqlite", "SQLite database path")
	flag.Parse()

	db, err := gorm.Open(sqlite.Open(*dbPath), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	if err := db.AutoMigrate(&User{}); err != nil {
		log.Fatal("Failed to migrate schema:", err)
	}

	// Check if the user already exists
	var existing User
	if err := db.Where("documento = ?", *documento).First(&existing).Error; err == nil {
		fmt.Printf("Development user already exists!\n")
		fmt.Printf("Documento: %s (rol: %s)\n", existing.Documento, existing.Rol)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("Failed to hash password:", err)
	}

	user := User{
		Documento:    *documento,
		Nombre:       fmt.Sprintf("Dev %s", *rol),
		Email:        fmt.Sprintf("%s@inventario.local", *documento),
		Rol:          *rol,
		PasswordHash: string(hash),
		Activo:       true,
	}

	if err := db.Create(&user).Error; err != nil {
		log.Fatal("Failed to create user:", err)
	}

	fmt.Printf("✓ Development user created with rol '%s'!\n", *rol)
	fmt.Printf("Documento: %s\n", *documento)
	fmt.Printf("Password: %s\n", *password)
	fmt.Println("\nWalk through the authorization-code flow with the default client:")
	fmt.Printf("curl -X POST http://localhost:8080/oauth/authenticate \\\n")
	fmt.Printf("  -d 'documento=%s' \\\n", *documento)
	fmt.Printf("  -d 'password=%s' \\\n", *password)
	fmt.Printf("  -d 'client_id=inventario_sena_client' \\\n")
	fmt.Printf("  -d 'redirect_uri=http://localhost:5173/auth/callback'\n")
	fmt.Println("\nThen exchange the code:")
	fmt.Printf("curl -X POST http://localhost:8080/oauth/token \\\n")
	fmt.Printf("  -d 'grant_type=authorization_code' \\\n")
	fmt.Printf("  -d 'client_id=inventario_sena_client' \\\n")
	fmt.Printf("  -d 'client_secret=inventario_sena_secret_2024' \\\n")
	fmt.Printf("  -d 'code=<code>'\n")
}
