package models

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"bitbucket.org/mmdatafocus/invoicing_backend/utils"
	"github.com/disintegration/imaging"
)

type ImageUploadResponse struct {
	ImageUrl     string `json:"image_url"`
	ThumbnailUrl string `json:"thumbnail_url"`
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// UploadDocumentFile stores one uploaded file (invoice PDF, contract,
// spreadsheet) under documents/ and returns its public URL.
func UploadDocumentFile(ctx context.Context, fileHeader *multipart.FileHeader) (*UploadResponse, error) {
	organizationId, _ := utils.GetOrganizationIdFromContext(ctx)

	ext := filepath.Ext(fileHeader.Filename)
	if ext == "" {
		return nil, errors.New("file has no extension")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	objectName := filepath.Join("documents", organizationId+"_"+utils.GenerateUniqueFilename()+ext)
	if err := utils.UploadFileToGCS(ctx, objectName, file); err != nil {
		return nil, err
	}
	return &UploadResponse{FileUrl: utils.PublicObjectURL(objectName)}, nil
}

// UploadImageFile stores an image (organization logo, customer photo)
// along with a generated thumbnail.
func UploadImageFile(ctx context.Context, fileHeader *multipart.FileHeader) (*ImageUploadResponse, error) {
	organizationId, _ := utils.GetOrganizationIdFromContext(ctx)

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !imageExtensions[ext] {
		return nil, errors.New("unsupported image type")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	uniqueFilename := organizationId + "_" + utils.GenerateUniqueFilename() + ext
	imageObjectName := filepath.Join("images", uniqueFilename)
	thumbnailObjectName := filepath.Join("images", "thumbnails", uniqueFilename)

	if err := utils.UploadFileToGCS(ctx, imageObjectName, bytes.NewReader(data)); err != nil {
		return nil, err
	}

	thumbnailData, err := generateThumbnail(data)
	if err != nil {
		return nil, err
	}
	if err := utils.UploadBytesToGCS(ctx, thumbnailObjectName, thumbnailData, "image/jpeg"); err != nil {
		return nil, err
	}

	return &ImageUploadResponse{
		ImageUrl:     utils.PublicObjectURL(imageObjectName),
		ThumbnailUrl: utils.PublicObjectURL(thumbnailObjectName),
	}, nil
}

func generateThumbnail(originalData []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(originalData))
	if err != nil {
		return nil, err
	}

	thumbnail := imaging.Resize(img, 200, 0, imaging.Lanczos)

	var thumbnailBuffer bytes.Buffer
	if err := imaging.Encode(&thumbnailBuffer, thumbnail, imaging.JPEG); err != nil {
		return nil, err
	}
	return thumbnailBuffer.Bytes(), nil
}
