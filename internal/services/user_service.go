package services

import (
	"errors"

	"github.com/sena-adso/inventario-api/internal/models"
	"github.com/sena-adso/inventario-api/internal/oauth"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUserExists         = errors.New("user_already_exists")
	ErrInvalidCredentials = errors.New("invalid_credentials")
)

// UserService is the user directory over the relational store. The OAuth
// core consumes it through the narrow oauth.UserDirectory adapter below.
type UserService interface {
	Register(user *models.User) error
	FindByDocumento(documento string) (*models.User, error)
	FindByID(id uint) (*models.User, error)
	ChangePassword(id uint, oldPassword, newPassword string) error
}

type userService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) UserService {
	return &userService{db: db}
}

func (s *userService) Register(user *models.User) error {
	var existing models.User
	if err := s.db.Where("documento = ?", user.Documento).First(&existing).Error; err == nil {
		return ErrUserExists
	}
	if user.Email != "" {
		if err := s.db.Where("email = ?", user.Email).First(&existing).Error; err == nil {
			return ErrUserExists
		}
	}
	return s.db.Create(user).Error
}

func (s *userService) FindByDocumento(documento string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("documento = ?", documento).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *userService) FindByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *userService) ChangePassword(id uint, oldPassword, newPassword string) error {
	user, err := s.FindByID(id)
	if err != nil {
		return err
	}
	if !user.CheckPassword(oldPassword) {
		return ErrInvalidCredentials
	}
	if err := user.SetPassword(newPassword); err != nil {
		return err
	}
	return s.db.Model(user).Update("password_hash", user.PasswordHash).Error
}

// VerifyPassword is the credential-verifier collaborator handed to the OAuth
// core: a bcrypt comparison of plaintext against the stored hash.
func VerifyPassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// directory adapts UserService to the oauth.UserDirectory contract, mapping
// gorm's not-found to the (nil, nil) convention the core expects.
type directory struct {
	users UserService
}

// NewUserDirectory wraps a UserService for consumption by the OAuth core.
func NewUserDirectory(users UserService) oauth.UserDirectory {
	return &directory{users: users}
}

func (d *directory) FindByDocumento(documento string) (*oauth.DirectoryUser, error) {
	user, err := d.users.FindByDocumento(documento)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &oauth.DirectoryUser{
		ID:           user.ID,
		Documento:    user.Documento,
		Nombre:       user.Nombre,
		Email:        user.Email,
		Rol:          user.Rol,
		PasswordHash: user.PasswordHash,
		Activo:       user.Activo,
		CreatedAt:    user.CreatedAt,
	}, nil
}
