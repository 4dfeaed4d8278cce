package cached

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"hydration-user-service/internal/adapter/cache"
	domain "hydration-user-service/internal/domain/user"
	"hydration-user-service/internal/usecase/user"
)

// CachedUserRepository implements user.Repository with a cached user list.
// It wraps a persistent repository (DB) and a list cache.
type CachedUserRepository struct {
	dbRepo user.Repository
	cache  cache.UserListCache
	log    *zap.Logger
	group  singleflight.Group

	// mu orders list fills against invalidation. generation changes on every
	// write, and a fill whose load started in an older generation is dropped.
	mu         sync.Mutex
	generation uint64
}

// NewCachedUserRepository creates a new instance of CachedUserRepository.
// A nil cache disables caching.
func NewCachedUserRepository(dbRepo user.Repository, cache cache.UserListCache, log *zap.Logger) *CachedUserRepository {
	return &CachedUserRepository{
		dbRepo: dbRepo,
		cache:  cache,
		log:    log,
	}
}

// FindMany returns every user using the cache-aside pattern.
func (r *CachedUserRepository) FindMany(ctx context.Context) ([]domain.User, error) {
	if r.cache != nil {
		users, err := r.cache.GetAll(ctx)
		if err != nil {
			r.log.Warn("cache get error, falling back to database", zap.Error(err))
		} else if users != nil {
			return users, nil
		}
	}

	// Cache miss or cache disabled - use single-flight to prevent stampede
	result, err, shared := r.group.Do(cache.UserListKey, func() (any, error) {
		// Double-check cache in case another request populated it while we were waiting
		if r.cache != nil {
			if users, err := r.cache.GetAll(ctx); err == nil && users != nil {
				return users, nil
			}
		}

		generation := r.currentGeneration()
		users, err := r.dbRepo.FindMany(ctx)
		if err != nil {
			return nil, err
		}

		if r.cache != nil {
			r.fill(ctx, generation, users)
		}

		return users, nil
	})
	if err != nil {
		return nil, err
	}

	users := result.([]domain.User)
	if shared {
		// Callers sharing one load must not share one backing array.
		users = append([]domain.User(nil), users...)
		if users == nil {
			users = []domain.User{}
		}
	}
	return users, nil
}

// GetByID delegates to the DB repository.
func (r *CachedUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.dbRepo.GetByID(ctx, id)
}

// GetByEmail delegates to the DB repository; login needs the password hash the cache drops.
func (r *CachedUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.dbRepo.GetByEmail(ctx, email)
}

// Create inserts the user and invalidates the cached list.
func (r *CachedUserRepository) Create(ctx context.Context, u *domain.User) (int64, error) {
	id, err := r.dbRepo.Create(ctx, u)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	r.generation++
	// Later readers must not join a load that may predate this write.
	r.group.Forget(cache.UserListKey)
	if r.cache != nil {
		if err := r.cache.Invalidate(ctx); err != nil {
			r.log.Warn("failed to invalidate cache after create", zap.Int64("id", id), zap.Error(err))
		}
	}
	r.mu.Unlock()

	return id, nil
}

func (r *CachedUserRepository) currentGeneration() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

// fill stores users unless a write happened since generation was read.
func (r *CachedUserRepository) fill(ctx context.Context, generation uint64, users []domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if generation != r.generation {
		r.log.Debug("skipping stale user list fill")
		return
	}
	if err := r.cache.SetAll(ctx, users); err != nil {
		r.log.Warn("failed to cache users", zap.Error(err))
	}
}
