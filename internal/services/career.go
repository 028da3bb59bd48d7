package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	redisclient "github.com/orbitpath/orbitpath-backend/internal/clients/redis"
	"github.com/orbitpath/orbitpath-backend/internal/logger"
	"github.com/orbitpath/orbitpath-backend/internal/repos"
	"github.com/orbitpath/orbitpath-backend/internal/scoring"
	"github.com/orbitpath/orbitpath-backend/internal/types"
)

const (
	careerCatalogKey = "career:catalog:v1"
	careerCatalogTTL = 5 * time.Minute
)

type CareerService interface {
	ListCareers(ctx context.Context, galaxy string) ([]*types.Career, error)
	Catalog(ctx context.Context) ([]scoring.Career, error)
	InvalidateCatalog(ctx context.Context)
}

type careerService struct {
	db         *gorm.DB
	log        *logger.Logger
	careerRepo repos.CareerRepo
	cache      redisclient.Cache
	group      singleflight.Group
}

// NewCareerService builds the catalog reader. cache may be nil, in which case
// every Catalog call goes to the database (still deduplicated in-flight).
func NewCareerService(db *gorm.DB, log *logger.Logger, careerRepo repos.CareerRepo, cache redisclient.Cache) CareerService {
	serviceLog := log.With("service", "CareerService")
	return &careerService{
		db:         db,
		log:        serviceLog,
		careerRepo: careerRepo,
		cache:      cache,
	}
}

func (cs *careerService) ListCareers(ctx context.Context, galaxy string) ([]*types.Career, error) {
	if galaxy != "" {
		return cs.careerRepo.ListByGalaxy(ctx, nil, galaxy)
	}
	return cs.careerRepo.ListAll(ctx, nil)
}

// Catalog returns the matcher's view of every career. Reads go through Redis
// with a short TTL, and concurrent fills for the same key collapse into one
// database query.
func (cs *careerService) Catalog(ctx context.Context) ([]scoring.Career, error) {
	if cs.cache != nil {
		if raw, err := cs.cache.Get(ctx, careerCatalogKey); err == nil {
			var cached []scoring.Career
			if uErr := json.Unmarshal(raw, &cached); uErr == nil {
				return cached, nil
			}
			cs.log.Warn("Discarding undecodable catalog cache entry")
		}
	}

	v, err, _ := cs.group.Do(careerCatalogKey, func() (interface{}, error) {
		rows, err := cs.careerRepo.ListAll(ctx, nil)
		if err != nil {
			return nil, err
		}
		catalog := make([]scoring.Career, 0, len(rows))
		for _, row := range rows {
			entry, cErr := toScoringCareer(row)
			if cErr != nil {
				cs.log.Warn("Skipping career with bad dimension vector", "career_id", row.ID, "error", cErr)
				continue
			}
			catalog = append(catalog, entry)
		}
		if cs.cache != nil {
			if encoded, mErr := json.Marshal(catalog); mErr == nil {
				if sErr := cs.cache.Set(ctx, careerCatalogKey, encoded, careerCatalogTTL); sErr != nil {
					cs.log.Warn("Failed to cache career catalog", "error", sErr)
				}
			}
		}
		return catalog, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build career catalog: %w", err)
	}
	return v.([]scoring.Career), nil
}

func (cs *careerService) InvalidateCatalog(ctx context.Context) {
	if cs.cache == nil {
		return
	}
	if err := cs.cache.Delete(ctx, careerCatalogKey); err != nil {
		cs.log.Warn("Failed to invalidate career catalog cache", "error", err)
	}
}

func toScoringCareer(row *types.Career) (scoring.Career, error) {
	var dims map[string]float64
	if err := json.Unmarshal(row.Dimensions, &dims); err != nil {
		return scoring.Career{}, fmt.Errorf("failed to decode dimensions: %w", err)
	}
	vec := scoring.NewVector()
	for raw, weight := range dims {
		code, err := scoring.ParseCode(raw)
		if err != nil {
			return scoring.Career{}, err
		}
		vec.Add(code, weight)
	}
	return scoring.Career{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		Vector:      vec,
		Popularity:  row.Popularity,
	}, nil
}
