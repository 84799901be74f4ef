package repository

import (
	"context"
	"strings"

	"github.com/cfcdist/orderflow/internal/warehouse/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindMappings(ctx context.Context, db *gorm.DB, prefixes []string) (map[string]string, error) {
	if len(prefixes) == 0 {
		return map[string]string{}, nil
	}
	upper := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		upper = append(upper, strings.ToUpper(p))
	}

	var rows []domain.Mapping
	err := db.WithContext(ctx).
		Where("sku_prefix IN ?", upper).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.SKUPrefix] = row.Warehouse
	}
	return out, nil
}

func (r *repo) MatchTrusted(ctx context.Context, db *gorm.DB, name, company, email string) (*domain.TrustedCustomer, error) {
	stmt := db.WithContext(ctx).Model(&domain.TrustedCustomer{})

	var conds []string
	var args []any
	if name != "" {
		conds = append(conds, "LOWER(name) = ?")
		args = append(args, strings.ToLower(name))
	}
	if company != "" {
		conds = append(conds, "LOWER(company) = ?")
		args = append(args, strings.ToLower(company))
	}
	if email != "" {
		conds = append(conds, "LOWER(email) = ?")
		args = append(args, strings.ToLower(email))
	}
	if len(conds) == 0 {
		return nil, nil
	}

	var trusted domain.TrustedCustomer
	err := stmt.Where(strings.Join(conds, " OR "), args...).
		Limit(1).
		Find(&trusted).Error
	if err != nil {
		return nil, err
	}
	if trusted.ID == 0 {
		return nil, nil
	}
	return &trusted, nil
}

func (r *repo) ListMappings(ctx context.Context, db *gorm.DB) ([]domain.Mapping, error) {
	var rows []domain.Mapping
	err := db.WithContext(ctx).
		Order("sku_prefix asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
