package service

import (
	"context"
	stdErrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"travelhub/internal/cache"
	"travelhub/internal/errors"
	"travelhub/internal/model"
	"travelhub/internal/repository"
	"travelhub/internal/retry"
)

const modulesCacheKey = "modules:all"

// ModuleInput creates a module. Active defaults to true when nil.
type ModuleInput struct {
	Name   string
	Label  string
	Icon   string
	Active *bool
	Order  int
	Config *model.ModuleConfig
}

// ModulePatch updates a module. Nil fields are left unchanged; a non-nil
// Config replaces the stored one wholesale.
type ModulePatch struct {
	Name   *string
	Label  *string
	Icon   *string
	Active *bool
	Order  *int
	Config *model.ModuleConfig
}

// ModuleConfigOptions tunes store access and caching.
type ModuleConfigOptions struct {
	StoreTimeout time.Duration
	StoreRetries uint
	CacheTTL     time.Duration
}

// ModuleService manages the feature registry rendered by the front end.
type ModuleService interface {
	List(ctx context.Context) ([]model.Module, error)
	ListActive(ctx context.Context) ([]model.Module, error)
	Get(ctx context.Context, id uint) (*model.Module, error)
	Create(ctx context.Context, in ModuleInput) (*model.Module, error)
	Update(ctx context.Context, id uint, patch ModulePatch) (*model.Module, error)
	Delete(ctx context.Context, id uint) error
}

type moduleService struct {
	repo     repository.ModuleRepository
	cache    *cache.Client
	validate *validator.Validate
	opts     ModuleConfigOptions
	log      *zap.Logger
}

// NewModuleService creates a new module service. cache may be nil.
func NewModuleService(repo repository.ModuleRepository, cache *cache.Client, opts ModuleConfigOptions, log *zap.Logger) ModuleService {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 2 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	return &moduleService{
		repo:     repo,
		cache:    cache,
		validate: validator.New(),
		opts:     opts,
		log:      log,
	}
}

// List returns every module ascending by Order, ties in creation order.
func (s *moduleService) List(ctx context.Context) ([]model.Module, error) {
	var cached []model.Module
	if s.cache.GetJSON(ctx, modulesCacheKey, &cached) {
		return cached, nil
	}

	modules, err := storeCall(ctx, s.opts, func(ctx context.Context) ([]model.Module, error) {
		return s.repo.List(ctx)
	})
	if err != nil {
		return nil, err
	}
	sortModules(modules)

	if err := s.cache.SetJSON(ctx, modulesCacheKey, modules, s.opts.CacheTTL); err != nil {
		s.log.Warn("cache modules", zap.Error(err))
	}
	return modules, nil
}

// ListActive returns the modules the storefront should render.
func (s *moduleService) ListActive(ctx context.Context) ([]model.Module, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]model.Module, 0, len(all))
	for _, m := range all {
		if m.Active {
			active = append(active, m)
		}
	}
	return active, nil
}

// Get returns a module by ID.
func (s *moduleService) Get(ctx context.Context, id uint) (*model.Module, error) {
	return storeCall(ctx, s.opts, func(ctx context.Context) (*model.Module, error) {
		return s.repo.FindByID(ctx, id)
	})
}

// Create validates and stores a new module.
func (s *moduleService) Create(ctx context.Context, in ModuleInput) (*model.Module, error) {
	module := &model.Module{
		Name:   strings.TrimSpace(in.Name),
		Label:  strings.TrimSpace(in.Label),
		Icon:   strings.TrimSpace(in.Icon),
		Active: true,
		Order:  in.Order,
	}
	if in.Active != nil {
		module.Active = *in.Active
	}
	if in.Config != nil {
		module.Config = *in.Config
	}
	if err := s.check(module); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, module.Name, 0); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, module); err != nil {
		if stdErrors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.ErrDuplicateModuleName
		}
		return nil, fmt.Errorf("create module: %w", err)
	}

	s.invalidate(ctx)
	s.log.Info("module created", zap.Uint("module_id", module.ID), zap.String("name", module.Name))
	return module, nil
}

// Update merges patch into the stored module. Only supplied fields are written.
func (s *moduleService) Update(ctx context.Context, id uint, patch ModulePatch) (*model.Module, error) {
	module, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var fields []string
	if patch.Name != nil {
		module.Name = strings.TrimSpace(*patch.Name)
		fields = append(fields, "Name")
	}
	if patch.Label != nil {
		module.Label = strings.TrimSpace(*patch.Label)
		fields = append(fields, "Label")
	}
	if patch.Icon != nil {
		module.Icon = strings.TrimSpace(*patch.Icon)
		fields = append(fields, "Icon")
	}
	if patch.Active != nil {
		module.Active = *patch.Active
		fields = append(fields, "Active")
	}
	if patch.Order != nil {
		module.Order = *patch.Order
		fields = append(fields, "Order")
	}
	if patch.Config != nil {
		module.Config = *patch.Config
		fields = append(fields, "Config")
	}
	if len(fields) == 0 {
		return module, nil
	}

	if err := s.check(module); err != nil {
		return nil, err
	}
	if patch.Name != nil {
		if err := s.ensureNameFree(ctx, module.Name, module.ID); err != nil {
			return nil, err
		}
	}

	_, err = storeCall(ctx, s.opts, func(ctx context.Context) (struct{}, error) {
		err := s.repo.Update(ctx, module, fields)
		if stdErrors.Is(err, gorm.ErrDuplicatedKey) {
			return struct{}{}, retry.Permanent(errors.ErrDuplicateModuleName)
		}
		return struct{}{}, err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.log.Info("module updated", zap.Uint("module_id", module.ID), zap.Strings("fields", fields))
	return module, nil
}

// Delete removes a module.
func (s *moduleService) Delete(ctx context.Context, id uint) error {
	err := s.repo.Delete(ctx, id)
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.ErrModuleNotFound
	}
	if err != nil {
		return fmt.Errorf("delete module %d: %w", id, err)
	}

	s.invalidate(ctx)
	s.log.Info("module deleted", zap.Uint("module_id", id))
	return nil
}

func (s *moduleService) check(m *model.Module) error {
	if m.Name == "" || m.Label == "" || m.Icon == "" {
		return errors.ErrModuleFieldsRequired
	}
	if err := s.validate.Struct(m.Config); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrInvalidModuleConfig, describeConfigErrors(err))
	}
	return nil
}

func (s *moduleService) ensureNameFree(ctx context.Context, name string, selfID uint) error {
	existing, err := storeCall(ctx, s.opts, func(ctx context.Context) (*model.Module, error) {
		return s.repo.FindByName(ctx, name)
	})
	switch {
	case stdErrors.Is(err, errors.ErrModuleNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != selfID:
		return errors.ErrDuplicateModuleName
	}
	return nil
}

func (s *moduleService) invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, modulesCacheKey); err != nil {
		s.log.Warn("invalidate modules cache", zap.Error(err))
	}
}

func sortModules(modules []model.Module) {
	sort.SliceStable(modules, func(i, j int) bool {
		if modules[i].Order != modules[j].Order {
			return modules[i].Order < modules[j].Order
		}
		return modules[i].ID < modules[j].ID
	})
}

// storeCall runs a store read under the configured timeout and retry budget.
// Not-found is never retried and surfaces as ErrModuleNotFound.
func storeCall[T any](ctx context.Context, opts ModuleConfigOptions, op func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.StoreTimeout)
	defer cancel()

	res, err := retry.Do(ctx, opts.StoreRetries, func(ctx context.Context) (T, error) {
		res, err := op(ctx)
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return res, retry.Permanent(errors.ErrModuleNotFound)
		}
		return res, err
	})
	switch {
	case err == nil:
		return res, nil
	case stdErrors.Is(err, errors.ErrModuleNotFound), stdErrors.Is(err, errors.ErrDuplicateModuleName):
		return res, err
	default:
		return res, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
}

func describeConfigErrors(err error) string {
	var verrs validator.ValidationErrors
	if !stdErrors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", strings.TrimPrefix(fe.Namespace(), "ModuleConfig."), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
