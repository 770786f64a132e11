package dedup

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"virtual-drive/internal/database"
	"virtual-drive/internal/indexer"
	"virtual-drive/internal/mediatypes"
)

// Backup tree layout below the chosen folder.
const (
	BackupDirName = "Backups"
	devicePrefix  = "From "
	defaultDevice = "Unknown device"
)

var backupSubdirs = map[mediatypes.FileType]string{
	mediatypes.FileTypeImage: "Images",
	mediatypes.FileTypeVideo: "Videos",
	mediatypes.FileTypeAudio: "Audio",
}

// BackupDirectory returns <folder>/Backups/From <device>/<Images|Videos|Audio>
// for a file called name, creating and indexing the missing levels. Only
// image, video and audio names are accepted.
func (s *Service) BackupDirectory(ctx context.Context, folderFp, device, name string) (*database.FileRecord, error) {
	const op = "backup"

	sub, ok := backupSubdirs[mediatypes.FromName(name)]
	if !ok {
		return nil, &indexer.Error{Op: op, Path: name, Kind: indexer.ErrInvalidArgument, Err: errors.New("unsupported file type")}
	}

	device = strings.TrimSpace(device)
	if device == "" {
		device = defaultDevice
	}
	if err := indexer.ValidName(device); err != nil {
		return nil, &indexer.Error{Op: op, Path: device, Kind: indexer.ErrInvalidArgument, Err: err}
	}

	folder, err := s.idx.ResolveDirectory(ctx, folderFp)
	if err != nil {
		return nil, err
	}

	return s.idx.EnsureDirectory(ctx, filepath.Join(folder.Path, BackupDirName, devicePrefix+device, sub))
}

// FlashBackup flash-transfers sourceFp into the backup tree for device.
func (s *Service) FlashBackup(ctx context.Context, folderFp, sourceFp, name, device string) (TransferResult, error) {
	if name == "" {
		return TransferResult{}, &indexer.Error{Op: "backup", Kind: indexer.ErrInvalidArgument, Err: errors.New("file name is required")}
	}
	dir, err := s.BackupDirectory(ctx, folderFp, device, name)
	if err != nil {
		return TransferResult{}, err
	}
	return s.transferInto(ctx, dir.Path, sourceFp, name)
}

// UploadBackup stores r in the backup tree for device. It is the fallback
// when FlashBackup reports that the content is not available.
func (s *Service) UploadBackup(ctx context.Context, folderFp, name, device string, r io.Reader) (*database.FileRecord, error) {
	dir, err := s.BackupDirectory(ctx, folderFp, device, name)
	if err != nil {
		return nil, err
	}
	return s.uploadInto(ctx, dir.Path, name, r)
}
