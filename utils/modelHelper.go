package utils

import (
	"context"

	"bitbucket.org/mmdatafocus/invoicing_backend/config"
	"gorm.io/gorm"
)

/* DB fetching */

// fetch model from db
// (may return RecordNotFound)
func FetchSingleModel[T any](ctx context.Context, id int, associations ...string) (*T, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	// preloading
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return &result, nil
}

// fetch model from db
// (ctx's organization_id is used in query's WHERE, may return RecordNotFound)
func FetchModel[T any](ctx context.Context, organizationId string, id int, associations ...string) (*T, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("organization_id = ?", organizationId)
	// preloading
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return &result, nil
}

// fetch all models from db
// (ctx's organization_id is used in query's WHERE)
func FetchAllModels[T any](ctx context.Context, organizationId string, associations ...string) ([]*T, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("organization_id = ?", organizationId)
	// preloading
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var results []*T
	err := dbCtx.Find(&results).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return results, nil
}

func GetPolymorphicId[T any](ctx context.Context, referenceType string, referenceId int) (int, error) {
	db := config.GetDB()
	var v T
	var id int
	err := db.WithContext(ctx).Model(&v).Where("reference_type = ? AND reference_id = ?", referenceType, referenceId).Select("id").Scan(&id).Error
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	return id, err
}
