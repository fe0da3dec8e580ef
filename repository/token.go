package repository

import (
	"activation_server/domain"

	"gorm.io/gorm"
)

type ITokenRepository interface {
	Create(db *gorm.DB, entity *domain.Token) (*domain.Token, error)
	FindToken(db *gorm.DB, tokenId string) (*domain.Token, error)
	Delete(db *gorm.DB, tokenId string) error
}

type TokenRepository struct {
}

func NewTokenRepository() ITokenRepository {
	return &TokenRepository{}
}

func (r *TokenRepository) Create(db *gorm.DB, entity *domain.Token) (*domain.Token, error) {
	return entity, db.Create(entity).Error
}

func (r *TokenRepository) FindToken(db *gorm.DB, tokenId string) (*domain.Token, error) {
	var token domain.Token
	err := db.Where("token_id = ?", tokenId).First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *TokenRepository) Delete(db *gorm.DB, tokenId string) error {
	return db.Where("token_id = ?", tokenId).Delete(&domain.Token{}).Error
}
