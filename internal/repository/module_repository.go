package repository

import (
	"context"

	"gorm.io/gorm"

	"travelhub/internal/model"
)

// ModuleRepository defines module persistence operations.
type ModuleRepository interface {
	Create(ctx context.Context, module *model.Module) error
	FindByID(ctx context.Context, id uint) (*model.Module, error)
	FindByName(ctx context.Context, name string) (*model.Module, error)
	List(ctx context.Context) ([]model.Module, error)
	Update(ctx context.Context, module *model.Module, fields []string) error
	Delete(ctx context.Context, id uint) error
}

type moduleRepository struct {
	db *gorm.DB
}

// NewModuleRepository creates a new module repository.
func NewModuleRepository(db *gorm.DB) ModuleRepository {
	return &moduleRepository{db: db}
}

// Create inserts a module.
func (r *moduleRepository) Create(ctx context.Context, module *model.Module) error {
	return r.db.WithContext(ctx).Create(module).Error
}

// FindByID finds a module by ID.
func (r *moduleRepository) FindByID(ctx context.Context, id uint) (*model.Module, error) {
	var module model.Module
	if err := r.db.WithContext(ctx).First(&module, id).Error; err != nil {
		return nil, err
	}
	return &module, nil
}

// FindByName finds a module by its unique name.
func (r *moduleRepository) FindByName(ctx context.Context, name string) (*model.Module, error) {
	var module model.Module
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&module).Error; err != nil {
		return nil, err
	}
	return &module, nil
}

// List returns every module by display order, ties in insertion order.
func (r *moduleRepository) List(ctx context.Context) ([]model.Module, error) {
	var modules []model.Module
	if err := r.db.WithContext(ctx).Order("sort_order ASC").Order("id ASC").Find(&modules).Error; err != nil {
		return nil, err
	}
	return modules, nil
}

// Update writes only the named fields of module; the rest of the row is untouched.
func (r *moduleRepository) Update(ctx context.Context, module *model.Module, fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&model.Module{ID: module.ID}).Select(fields).Updates(module).Error
}

// Delete removes a module, returning gorm.ErrRecordNotFound when nothing matched.
func (r *moduleRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Module{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
