package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"pollbooth/internal/model"
)

// UserRepository handles CRUD for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// UpsertByLogin finds or creates a user identified by a proxy login and
// syncs the admin flag.
func (r *UserRepository) UpsertByLogin(ctx context.Context, login string, isAdmin bool) (*model.User, error) {
	var user model.User
	db := r.db.WithContext(ctx)
	err := db.Where("login = ?", login).First(&user).Error
	switch {
	case err == nil:
		if user.IsAdmin != isAdmin {
			if err := db.Model(&user).Update("is_admin", isAdmin).Error; err != nil {
				return nil, fmt.Errorf("update user: %w", err)
			}
		}
		return &user, nil
	case IsNotFound(err):
		user = model.User{
			Login:    &login,
			Username: login,
			IsAdmin:  isAdmin,
		}
		if err := db.Create(&user).Error; err != nil {
			if isUniqueViolation(err) {
				// Another request created it first.
				return r.findBy(ctx, "login = ?", login)
			}
			return nil, fmt.Errorf("create user: %w", err)
		}
		return &user, nil
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}
}

// UpsertFromTelegram finds or creates a user based on TelegramID and updates basic profile info.
func (r *UserRepository) UpsertFromTelegram(ctx context.Context, telegramID int64, firstName, lastName, username string, isAdmin bool) (*model.User, error) {
	var user model.User
	db := r.db.WithContext(ctx)
	err := db.Where("telegram_id = ?", telegramID).First(&user).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"first_name": firstName,
			"last_name":  lastName,
			"username":   username,
			"is_admin":   isAdmin,
		}
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		return &user, nil
	case IsNotFound(err):
		user = model.User{
			TelegramID: &telegramID,
			FirstName:  firstName,
			LastName:   lastName,
			Username:   username,
			IsAdmin:    isAdmin,
		}
		if err := db.Create(&user).Error; err != nil {
			if isUniqueViolation(err) {
				return r.findBy(ctx, "telegram_id = ?", telegramID)
			}
			return nil, fmt.Errorf("create user: %w", err)
		}
		return &user, nil
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) findBy(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}
