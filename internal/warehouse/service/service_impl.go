package service

import (
	"context"
	"strings"

	"github.com/cfcdist/orderflow/internal/warehouse/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("warehouse.service"),
		repo: p.Repo,
	}
}

func (s *Service) Resolve(ctx context.Context, prefixes []string) ([]string, error) {
	mappings, err := s.repo.FindMappings(ctx, s.db, prefixes)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(mappings))
	var warehouses []string
	for _, prefix := range prefixes {
		name, ok := mappings[strings.ToUpper(prefix)]
		if !ok {
			s.log.Debug("unknown sku prefix", zap.String("prefix", prefix))
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		warehouses = append(warehouses, name)
	}
	return warehouses, nil
}

func (s *Service) TrustedGraceDays(ctx context.Context, name, company, email string) (int, bool, error) {
	trusted, err := s.repo.MatchTrusted(ctx, s.db, name, company, email)
	if err != nil {
		return 0, false, err
	}
	if trusted == nil {
		return 0, false, nil
	}
	return trusted.GraceDays, true, nil
}
