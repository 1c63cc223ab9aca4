package accounts

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher - хеширование паролей.
// Отделен от хранилища, чтобы тесты могли подменить bcrypt
// на дешевую реализацию.
type Hasher interface {
	// Hash возвращает хеш пароля для хранения
	Hash(password string) (string, error)
	// Verify сверяет пароль с хранимым хешем
	Verify(password, hash string) bool
}

// BcryptHasher - Hasher поверх bcrypt со стандартной стоимостью
type BcryptHasher struct {
	// Cost - стоимость bcrypt, 0 означает bcrypt.DefaultCost
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (h BcryptHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
