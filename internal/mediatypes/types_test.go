package mediatypes

import (
	"testing"
)

func TestGetFileType(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		want FileType
	}{
		{name: "JPEG image", ext: ".jpg", want: FileTypeImage},
		{name: "MKV video", ext: ".mkv", want: FileTypeVideo},
		{name: "FLAC audio", ext: ".flac", want: FileTypeAudio},
		{name: "Markdown text", ext: ".md", want: FileTypeText},
		{name: "Word document", ext: ".docx", want: FileTypeWord},
		{name: "Spreadsheet", ext: ".xlsx", want: FileTypeExcel},
		{name: "Presentation", ext: ".pptx", want: FileTypePPT},
		{name: "Zip archive", ext: ".zip", want: FileTypeArchive},
		{name: "Android package", ext: ".apk", want: FileTypeApplication},
		{name: "Torrent", ext: ".torrent", want: FileTypeTorrent},
		{name: "Unknown extension", ext: ".xyz", want: FileTypeOther},
		{name: "Empty extension", ext: "", want: FileTypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetFileType(tt.ext)
			if got != tt.want {
				t.Errorf("GetFileType(%q) = %v, want %v", tt.ext, got, tt.want)
			}
		})
	}
}

func TestFromNameIsCaseInsensitive(t *testing.T) {
	if got := FromName("Holiday.MKV"); got != FileTypeVideo {
		t.Errorf("FromName(Holiday.MKV) = %v, want %v", got, FileTypeVideo)
	}
	if got := FromName("README"); got != FileTypeOther {
		t.Errorf("FromName(README) = %v, want %v", got, FileTypeOther)
	}
}

func TestGetMimeType(t *testing.T) {
	if got := GetMimeType(".mkv"); got != "video/x-matroska" {
		t.Errorf("Expected video/x-matroska, got %s", got)
	}
	if got := GetMimeType(".unknown"); got != "application/octet-stream" {
		t.Errorf("Expected application/octet-stream, got %s", got)
	}
}

func TestExpandDocuments(t *testing.T) {
	got := Expand(FileTypeDocuments)
	want := map[FileType]bool{FileTypeText: true, FileTypeWord: true, FileTypeExcel: true, FileTypePPT: true}
	if len(got) != len(want) {
		t.Fatalf("Expected %d types, got %d", len(want), len(got))
	}
	for _, ft := range got {
		if !want[ft] {
			t.Errorf("Unexpected type %s in documents group", ft)
		}
	}

	if got := Expand(FileTypeVideo); len(got) != 1 || got[0] != FileTypeVideo {
		t.Errorf("Expected [video], got %v", got)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in     string
		want   FileType
		wantOK bool
	}{
		{"video", FileTypeVideo, true},
		{" Documents ", FileTypeDocuments, true},
		{"folder", FileTypeFolder, true},
		{"spaceship", "", false},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Parse(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestIsMediaFile(t *testing.T) {
	for _, ft := range []FileType{FileTypeImage, FileTypeVideo, FileTypeAudio} {
		if !IsMediaFile(ft) {
			t.Errorf("Expected %s to be media", ft)
		}
	}
	if IsMediaFile(FileTypeText) {
		t.Error("Expected text not to be media")
	}
}
