package repository

import (
	"context"

	"gorm.io/gorm"

	"pwgateway/internal/models"
)

// NoteRepository appends to and reads the audit trail.
type NoteRepository struct {
	db *gorm.DB
}

func NewNoteRepository(db *gorm.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

func (r *NoteRepository) Add(ctx context.Context, entityType string, entityID uint, content string) error {
	return r.db.WithContext(ctx).Create(&models.Note{
		EntityType: entityType,
		EntityID:   entityID,
		Content:    content,
	}).Error
}

// List returns the notes of an entity in insertion order.
func (r *NoteRepository) List(ctx context.Context, entityType string, entityID uint) ([]models.Note, error) {
	var notes []models.Note
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("id ASC").
		Find(&notes).Error
	return notes, err
}
