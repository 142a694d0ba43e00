package repository

import (
	"context"

	"gorm.io/gorm"

	"fines-service/internal/model"
)

type DriverRepository struct {
	db *gorm.DB
}

func NewDriverRepository(db *gorm.DB) *DriverRepository {
	return &DriverRepository{db: db}
}

// GetByPlate looks up the registered driver for a normalized plate.
// Returns gorm.ErrRecordNotFound when no mapping exists.
func (r *DriverRepository) GetByPlate(ctx context.Context, plate string) (*model.Driver, error) {
	var driver model.Driver
	if err := r.db.WithContext(ctx).Where("licence_plate = ?", plate).First(&driver).Error; err != nil {
		return nil, err
	}
	return &driver, nil
}
