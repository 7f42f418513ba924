package models

import (
	"context"
	"errors"

	"bitbucket.org/mmdatafocus/invoicing_backend/config"
	"bitbucket.org/mmdatafocus/invoicing_backend/utils"
	"gorm.io/gorm"
)

// Document is a polymorphic attachment (uploaded PDF, image, spreadsheet)
// hanging off a customer or an invoice. The file itself lives in GCS; the
// row only records the URL and the owner.
type Document struct {
	ID            int    `gorm:"primary_key" json:"id"`
	DocumentUrl   string `json:"document_url"`
	ReferenceType string `gorm:"size:50;index:idx_doc_ref,priority:1" json:"reference_type"`
	ReferenceID   int    `gorm:"index:idx_doc_ref,priority:2" json:"reference_id"`
}

type NewDocument struct {
	ID          int    `json:"id"`
	IsDeleted   bool   `json:"is_deleted"`
	DocumentUrl string `json:"document_url"`
}

type UploadResponse struct {
	FileUrl string `json:"file_url"`
}

func (input NewDocument) mapInput(referenceType string, referenceId int) (*Document, error) {
	if err := utils.CheckFileExistInGCS(input.DocumentUrl); err != nil {
		return nil, err
	}
	return &Document{
		DocumentUrl:   input.DocumentUrl,
		ReferenceType: referenceType,
		ReferenceID:   referenceId,
	}, nil
}

func (d *Document) Store(tx *gorm.DB, ctx context.Context) error {
	return tx.WithContext(ctx).Create(&d).Error
}

func (d *Document) Delete(tx *gorm.DB, ctx context.Context) error {
	if err := tx.WithContext(ctx).Delete(&d).Error; err != nil {
		return err
	}
	if objectName := utils.ExtractObjectKeyFromURL(d.DocumentUrl); objectName != "" {
		if err := utils.DeleteObjectFromGCS(ctx, objectName); err != nil {
			return err
		}
	}
	return nil
}

// upsertDocuments reconciles the attachment set inside the caller's
// transaction: rows flagged IsDeleted are removed (including the GCS
// object), rows without an id are created, the rest are left alone.
func upsertDocuments(ctx context.Context, tx *gorm.DB, input []*NewDocument, referenceType string, referenceId int) ([]*Document, error) {
	var kept []*Document
	for _, in := range input {
		if in.ID > 0 {
			var existing Document
			if err := tx.WithContext(ctx).
				Where("reference_type = ? AND reference_id = ?", referenceType, referenceId).
				First(&existing, in.ID).Error; err != nil {
				return nil, utils.ErrorRecordNotFound
			}
			if in.IsDeleted {
				if err := existing.Delete(tx, ctx); err != nil {
					return nil, err
				}
				continue
			}
			kept = append(kept, &existing)
			continue
		}
		if in.IsDeleted {
			continue
		}
		doc, err := in.mapInput(referenceType, referenceId)
		if err != nil {
			return nil, err
		}
		if err := doc.Store(tx, ctx); err != nil {
			return nil, err
		}
		kept = append(kept, doc)
	}
	return kept, nil
}

func deleteDocuments(ctx context.Context, tx *gorm.DB, documents []*Document) error {
	for _, doc := range documents {
		if err := doc.Delete(tx, ctx); err != nil {
			return err
		}
	}
	return nil
}

// GetDocument enforces tenant ownership through the referenced record
// before returning the attachment (fail closed on unknown reference
// types).
func GetDocument(ctx context.Context, id int) (*Document, error) {
	var result Document
	db := config.GetDB()
	if err := db.WithContext(ctx).First(&result, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	if isAdmin, ok := utils.GetIsAdminFromContext(ctx); ok && isAdmin {
		return &result, nil
	}

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}
	if result.ReferenceType == "" || result.ReferenceID <= 0 {
		return nil, errors.New("unauthorized")
	}

	tableByRefType := map[string]string{
		"customers": "customers",
		"invoices":  "invoices",
	}
	table, ok := tableByRefType[result.ReferenceType]
	if !ok {
		return nil, errors.New("unauthorized")
	}

	var count int64
	if err := db.WithContext(ctx).
		Table(table).
		Where("organization_id = ? AND id = ?", organizationId, result.ReferenceID).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, errors.New("unauthorized")
	}
	return &result, nil
}

// RemoveFile deletes an orphaned upload. Files still referenced by a
// document row must be detached through their owning record first.
func RemoveFile(ctx context.Context, fullUrl string) (*UploadResponse, error) {
	var count int64
	db := config.GetDB()
	if err := db.Model(&Document{}).WithContext(ctx).
		Where("document_url = ?", fullUrl).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("cannot delete file associated with database")
	}

	objectName := utils.ExtractObjectKeyFromURL(fullUrl)
	if objectName == "" {
		return nil, errors.New("invalid url")
	}
	if ok, err := utils.ObjectExistsInGCS(ctx, objectName); !ok || err != nil {
		return nil, errors.New("object does not exist")
	}
	if err := utils.DeleteObjectFromGCS(ctx, objectName); err != nil {
		return nil, err
	}
	return &UploadResponse{FileUrl: fullUrl}, nil
}
