package googleDriveApi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/whizrock/ledger/config"
	"github.com/whizrock/ledger/utils"
)

const (
	downloadLinkTemplate = "https://drive.google.com/file/d/%s/view"
	appPropertyKey       = "app"
	appPropertyValue     = "ledger-report"
)

// GoogleDriveApi stores exported reports and hands out public view links.
// Only files it uploaded itself are ever cleaned up.
type GoogleDriveApi struct {
	srv *drive.Service
	cfg *config.Config
	now func() time.Time
}

// New connects with the service account credentials from cfg. Extra options
// are appended after them, which lets callers point the client elsewhere.
func New(ctx context.Context, cfg *config.Config, opts ...option.ClientOption) (*GoogleDriveApi, error) {
	if cfg.GoogleDrive.CredentialsFile != "" {
		opts = append([]option.ClientOption{option.WithCredentialsFile(cfg.GoogleDrive.CredentialsFile)}, opts...)
	}

	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("drive.NewService: %w", err)
	}

	return &GoogleDriveApi{srv: srv, cfg: cfg, now: time.Now}, nil
}

func (a *GoogleDriveApi) UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "GoogleDriveApi.UploadFile"

	defer func() {
		if err != nil {
			slog.Error("UploadFile failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("filename", filename), slog.String("err", err.Error()))
		}
	}()

	fileMeta := &drive.File{
		Name:          filename,
		MimeType:      mime.TypeByExtension(filepath.Ext(filename)),
		AppProperties: map[string]string{appPropertyKey: appPropertyValue},
	}

	// large bodies are chunked and retried by the client library
	uploadedFile, err := a.srv.Files.Create(fileMeta).Media(reader).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	perm := &drive.Permission{
		Type: "anyone",
		Role: "reader",
	}

	if _, err = a.srv.Permissions.Create(uploadedFile.Id, perm).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("share file %s: %w", uploadedFile.Id, err)
	}

	slog.Debug("report uploaded", slog.String("rqID", rqID), slog.String("op", op), slog.String("fileID", uploadedFile.Id))

	return fmt.Sprintf(downloadLinkTemplate, uploadedFile.Id), nil
}

// DeleteOldFiles removes uploaded reports older than the configured TTL.
// A file that fails to delete is logged and skipped.
func (a *GoogleDriveApi) DeleteOldFiles(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "GoogleDriveApi.DeleteOldFiles"

	cutoff := a.now().Add(-a.cfg.GoogleDrive.FileTTL).UTC().Format(time.RFC3339)
	query := fmt.Sprintf(
		"appProperties has { key='%s' and value='%s' } and createdTime < '%s' and trashed = false",
		appPropertyKey, appPropertyValue, cutoff,
	)

	deleted, failed := 0, 0
	err := a.srv.Files.List().
		Q(query).
		Fields("nextPageToken, files(id, createdTime)").
		Context(ctx).
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				if err := a.srv.Files.Delete(f.Id).Context(ctx).Do(); err != nil {
					slog.Error(
						"failed delete file",
						slog.String("rqID", rqID),
						slog.String("op", op),
						slog.String("fileID", f.Id),
						slog.String("err", err.Error()),
					)
					failed++
					continue
				}
				deleted++
			}
			return nil
		})
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}

	slog.Info("delete old files done", slog.String("rqID", rqID), slog.String("op", op), slog.Int("deletedFiles", deleted), slog.Int("failedFiles", failed))

	return nil
}
