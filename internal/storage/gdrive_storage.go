package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

// GDriveStorage uploads reports to a Google Drive folder.
type GDriveStorage struct {
	config  Config
	logger  *slog.Logger
	service *drive.Service
}

// NewGDriveStorage creates a Drive client from a service account file.
func NewGDriveStorage(ctx context.Context, config Config, logger *slog.Logger) (*GDriveStorage, error) {
	service, err := drive.NewService(ctx, option.WithCredentialsFile(config.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive client: %w", err)
	}

	return &GDriveStorage{
		config:  config,
		logger:  logger,
		service: service,
	}, nil
}

// Save uploads content and returns the Drive file ID.
func (gd *GDriveStorage) Save(ctx context.Context, filename string, content []byte, contentType string) (string, error) {
	folderPath := resolvePath(gd.config.Path, time.Now(), gd.config.Account, gd.config.PreserveStructure)

	folderID, err := gd.ensureFolderStructure(ctx, folderPath)
	if err != nil {
		return "", fmt.Errorf("failed to ensure folder structure: %w", err)
	}

	file := &drive.File{
		Name:     filename,
		Parents:  []string{folderID},
		MimeType: contentType,
	}

	uploaded, err := gd.service.Files.Create(file).
		Media(bytes.NewReader(content)).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	gd.logger.Info("report uploaded",
		"filename", filename,
		"id", uploaded.Id,
		"folder", folderPath,
		"size", len(content))

	return uploaded.Id, nil
}

// ensureFolderStructure walks path below the parent folder, creating the
// folders that do not exist yet, and returns the ID of the last one.
func (gd *GDriveStorage) ensureFolderStructure(ctx context.Context, path string) (string, error) {
	currentParentID := gd.config.ParentFolderID

	for _, part := range strings.Split(path, "/") {
		part = strings.TrimSpace(part)
		if part == "" || part == "." {
			continue
		}

		query := fmt.Sprintf("name = '%s' and '%s' in parents and mimeType = '%s' and trashed = false",
			escapeQuery(part), currentParentID, folderMimeType)

		fileList, err := gd.service.Files.List().Q(query).Fields("files(id)").Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("failed to search for folder: %w", err)
		}

		if len(fileList.Files) > 0 {
			currentParentID = fileList.Files[0].Id
			continue
		}

		folder := &drive.File{
			Name:     part,
			MimeType: folderMimeType,
			Parents:  []string{currentParentID},
		}

		created, err := gd.service.Files.Create(folder).Fields("id").Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("failed to create folder: %w", err)
		}

		gd.logger.Debug("created drive folder", "name", part, "id", created.Id)
		currentParentID = created.Id
	}

	return currentParentID, nil
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
