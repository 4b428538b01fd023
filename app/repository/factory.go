package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// NewFactoryWithRepositories wraps a prebuilt repository set so tests can run
// controllers against fakes instead of a database.
func NewFactoryWithRepositories(repos *Repositories) *Factory {
	f := &Factory{repos: repos}
	f.once.Do(func() {})
	return f
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetUserRepository returns the user repository instance
func (f *Factory) GetUserRepository() UserRepository {
	return f.GetRepositories().User
}

// GetTrialRepository returns the trial repository instance
func (f *Factory) GetTrialRepository() TrialRepository {
	return f.GetRepositories().Trial
}

// GetRevocationRepository returns the revocation repository instance
func (f *Factory) GetRevocationRepository() RevocationRepository {
	return f.GetRepositories().Revocation
}

// GetUsageRepository returns the usage repository instance
func (f *Factory) GetUsageRepository() UsageRepository {
	return f.GetRepositories().Usage
}

// Global factory instance
var globalFactory *Factory
var factoryOnce sync.Once

// InitializeFactory initializes the global repository factory
func InitializeFactory(db *gorm.DB) {
	factoryOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalFactory returns the global repository factory
func GetGlobalFactory() *Factory {
	return globalFactory
}

// SetGlobalFactory replaces the global factory, used by tests.
func SetGlobalFactory(f *Factory) {
	factoryOnce.Do(func() {})
	globalFactory = f
}

// ResetGlobalFactory clears the global factory, used by tests
func ResetGlobalFactory() {
	globalFactory = nil
	factoryOnce = sync.Once{}
}
