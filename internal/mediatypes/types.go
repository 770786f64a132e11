package mediatypes

import (
	"path/filepath"
	"strings"
)

// FileType is the extension-derived classification of an indexed entry.
type FileType string

const (
	// FileTypeFolder represents a directory.
	FileTypeFolder FileType = "folder"
	// FileTypeVideo represents a video file.
	FileTypeVideo FileType = "video"
	// FileTypeImage represents an image file.
	FileTypeImage FileType = "image"
	// FileTypeAudio represents an audio file.
	FileTypeAudio FileType = "audio"
	// FileTypeArchive represents a compressed archive.
	FileTypeArchive FileType = "archive"
	// FileTypeText represents a plain text or markup file.
	FileTypeText FileType = "text"
	// FileTypeWord represents a word processor document.
	FileTypeWord FileType = "word"
	// FileTypeExcel represents a spreadsheet.
	FileTypeExcel FileType = "excel"
	// FileTypePPT represents a presentation.
	FileTypePPT FileType = "ppt"
	// FileTypeApplication represents an installable application package.
	FileTypeApplication FileType = "application"
	// FileTypeDatabase represents a database file.
	FileTypeDatabase FileType = "database"
	// FileTypeTorrent represents a torrent file.
	FileTypeTorrent FileType = "torrent"
	// FileTypeExecutable represents a native executable or script.
	FileTypeExecutable FileType = "executable"
	// FileTypeOther represents an unknown file type.
	FileTypeOther FileType = "other"

	// FileTypeDocuments is a query-only group covering text, word, excel and ppt.
	// It is never stored on a record.
	FileTypeDocuments FileType = "documents"
)

// SortField specifies which field to sort by.
type SortField string

// SortOrder specifies the direction of sorting.
type SortOrder string

const (
	// SortByName sorts results by filename.
	SortByName SortField = "name"
	// SortByDate sorts results by modification time.
	SortByDate SortField = "date"
	// SortBySize sorts results by file size.
	SortBySize SortField = "size"

	// SortAsc sorts in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts in descending order.
	SortDesc SortOrder = "desc"
)

// extensionTypes is checked in declaration order; the first list containing
// an extension wins.
var extensionTypes = []struct {
	fileType   FileType
	extensions []string
}{
	{FileTypePPT, []string{".ppt", ".pps", ".pptx"}},
	{FileTypeText, []string{".txt", ".text", ".md", ".markdown", ".xml", ".ini", ".log", ".csv", ".json", ".lrc", ".yml", ".yaml"}},
	{FileTypeWord, []string{".docx", ".dotx", ".wps", ".dot", ".wpt", ".docm", ".dotm", ".doc", ".rtf"}},
	{FileTypeAudio, []string{".aac", ".ac3", ".amr", ".m4a", ".mid", ".midi", ".mp3", ".ogg", ".wav", ".wma", ".wv", ".flac", ".ape"}},
	{FileTypeVideo, []string{".mp4", ".m4v", ".mkv", ".avi", ".wmv", ".3g2", ".3gp", ".ogv", ".mpg", ".mpeg", ".mov", ".webm", ".asf", ".rm", ".rmvb", ".ts", ".vob", ".m2ts", ".flv"}},
	{FileTypeImage, []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".tiff", ".tif", ".bmp", ".ico", ".heic", ".heif", ".avif", ".svg", ".jxl", ".icns"}},
	{FileTypeExcel, []string{".xls", ".xlsx"}},
	{FileTypeArchive, []string{".rar", ".zip", ".7z", ".gz", ".lz", ".xz", ".bz2", ".tar", ".tgz", ".txz", ".jar", ".cbz", ".cbr"}},
	{FileTypeDatabase, []string{".mdb", ".mdf", ".db", ".dbf", ".sql", ".sqlite"}},
	{FileTypeApplication, []string{".apk", ".xapk"}},
	{FileTypeTorrent, []string{".torrent"}},
	{FileTypeExecutable, []string{".exe", ".cmd", ".bat", ".reg", ".com", ".dll", ".sys", ".dmg", ".app", ".sh"}},
}

var extensionIndex = buildExtensionIndex()

func buildExtensionIndex() map[string]FileType {
	index := make(map[string]FileType)
	for _, group := range extensionTypes {
		for _, ext := range group.extensions {
			if _, exists := index[ext]; !exists {
				index[ext] = group.fileType
			}
		}
	}
	return index
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".heic": "image/heic",
	".avif": "image/avif",

	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
	".ts":   "video/mp2t",

	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",

	".txt":  "text/plain; charset=utf-8",
	".md":   "text/markdown; charset=utf-8",
	".json": "application/json",
	".xml":  "application/xml",
	".csv":  "text/csv",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".gz":   "application/gzip",
	".tar":  "application/x-tar",
	".7z":   "application/x-7z-compressed",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".apk":  "application/vnd.android.package-archive",
}

// GetFileType returns the FileType for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".jpg").
// Returns FileTypeOther if the extension is not recognized.
func GetFileType(ext string) FileType {
	if t, ok := extensionIndex[ext]; ok {
		return t
	}
	return FileTypeOther
}

// FromName classifies a file by the extension of its name, case-insensitively.
func FromName(name string) FileType {
	return GetFileType(strings.ToLower(filepath.Ext(name)))
}

// GetMimeType returns the MIME type for a given file extension.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsMediaFile returns true for image, video and audio types.
func IsMediaFile(t FileType) bool {
	return t == FileTypeImage || t == FileTypeVideo || t == FileTypeAudio
}

// Expand returns the stored types a query type stands for.
func Expand(t FileType) []FileType {
	if t == FileTypeDocuments {
		return []FileType{FileTypeText, FileTypeWord, FileTypeExcel, FileTypePPT}
	}
	return []FileType{t}
}

// Parse converts a user-supplied name into a FileType. Unknown names report false.
func Parse(s string) (FileType, bool) {
	t := FileType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case FileTypeFolder, FileTypeVideo, FileTypeImage, FileTypeAudio, FileTypeArchive,
		FileTypeText, FileTypeWord, FileTypeExcel, FileTypePPT, FileTypeApplication,
		FileTypeDatabase, FileTypeTorrent, FileTypeExecutable, FileTypeOther, FileTypeDocuments:
		return t, true
	}
	return "", false
}
