package fingerprint

import (
	"bytes"
	"crypto/md5" //nolint:gosec // test oracle
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func patterned(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*7 + i/251)
	}
	return data
}

func md5Hex(parts ...[]byte) string {
	h := md5.New() //nolint:gosec // test oracle
	for _, p := range parts {
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func smallOptions(block int64) Options {
	opts := DefaultOptions()
	opts.BlockSize = block
	opts.Threshold = block
	return opts
}

func TestDirectoryFingerprintIsPathDerived(t *testing.T) {
	dir := t.TempDir()

	res, err := Path(dir, DefaultOptions())
	if err != nil {
		t.Fatalf("Path() error = %v", err)
	}
	if res.Kind != KindDirectory {
		t.Errorf("Expected directory kind, got %s", res.Kind)
	}
	if res.Fingerprint != md5Hex([]byte(dir)) {
		t.Errorf("Expected md5 of path, got %s", res.Fingerprint)
	}
	if res.Fingerprint != Directory(dir) {
		t.Error("Directory() and Path() disagree")
	}

	// Children churn does not change the directory's identity.
	writeFile(t, dir, "child.txt", []byte("x"))
	again, _ := Path(dir, DefaultOptions())
	if again.Fingerprint != res.Fingerprint {
		t.Error("Directory fingerprint changed after adding a child")
	}
}

func TestSmallFileIsFullHash(t *testing.T) {
	dir := t.TempDir()
	data := []byte("hello, drive")
	path := writeFile(t, dir, "small.txt", data)

	fp, err := File(path, DefaultOptions())
	if err != nil {
		t.Fatalf("File() error = %v", err)
	}
	if fp != md5Hex(data) {
		t.Errorf("Expected full md5 %s, got %s", md5Hex(data), fp)
	}
}

func TestSketchStability(t *testing.T) {
	dir := t.TempDir()
	opts := smallOptions(64)

	tests := []struct {
		name string
		size int
	}{
		{"full hash path", 40},
		{"sketch path", 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.name, patterned(tt.size))
			first, err := File(path, opts)
			if err != nil {
				t.Fatalf("File() error = %v", err)
			}
			for i := 0; i < 3; i++ {
				again, err := File(path, opts)
				if err != nil {
					t.Fatalf("File() error = %v", err)
				}
				if again != first {
					t.Errorf("Fingerprint changed between calls: %s != %s", first, again)
				}
			}
		})
	}
}

func TestSketchThresholdBoundary(t *testing.T) {
	const block = 128
	dir := t.TempDir()
	opts := smallOptions(block)

	for _, size := range []int{block, block + 1} {
		data := patterned(size)
		path := writeFile(t, dir, "boundary", data)

		res, err := Path(path, opts)
		if err != nil {
			t.Fatalf("size %d: Path() error = %v", size, err)
		}
		if !Valid(res.Fingerprint) {
			t.Errorf("size %d: invalid fingerprint %q", size, res.Fingerprint)
		}
		if res.Fingerprint == md5Hex() {
			t.Errorf("size %d: fingerprint hashed zero bytes", size)
		}
		// Up to three blocks the windows tile the whole file.
		if res.Fingerprint != md5Hex(data) {
			t.Errorf("size %d: expected full coverage, got %s", size, res.Fingerprint)
		}
		if wantSketched := size > block; res.Sketched != wantSketched {
			t.Errorf("size %d: Sketched = %v, want %v", size, res.Sketched, wantSketched)
		}
	}
}

func TestSketchSamplesThreeWindows(t *testing.T) {
	const block = 16
	const size = 200
	data := patterned(size)
	opts := smallOptions(block)

	mid := size/2 - block/2
	want := md5Hex(data[:block], data[mid:mid+block], data[size-block:])

	got, err := Reader(bytes.NewReader(data), size, opts)
	if err != nil {
		t.Fatalf("Reader() error = %v", err)
	}
	if got != want {
		t.Errorf("Expected sketch %s, got %s", want, got)
	}

	// Bytes outside the windows do not affect the sketch.
	changed := append([]byte(nil), data...)
	changed[block+5] ^= 0xff
	other, _ := Reader(bytes.NewReader(changed), size, opts)
	if other != got {
		t.Error("Expected change outside sampled windows to be invisible")
	}

	// Bytes inside a window do.
	changed[size-1] ^= 0xff
	other, _ = Reader(bytes.NewReader(changed), size, opts)
	if other == got {
		t.Error("Expected change inside the last window to alter the sketch")
	}
}

func TestLargeFileUsesSketch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large file test in short mode")
	}
	dir := t.TempDir()
	data := patterned(int(3*DefaultBlockSize) + 12345)
	path := writeFile(t, dir, "movie.mkv", data)

	res, err := Path(path, DefaultOptions())
	if err != nil {
		t.Fatalf("Path() error = %v", err)
	}
	if !res.Sketched {
		t.Error("Expected large file to be sketched")
	}
	if res.Fingerprint == md5Hex(data) {
		t.Error("Expected sketch to differ from the full hash for a file larger than three blocks")
	}
	if res.Size != int64(len(data)) {
		t.Errorf("Expected size %d, got %d", len(data), res.Size)
	}
}

func TestUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	_, err := File(filepath.Join(dir, "vanished.bin"), DefaultOptions())
	if !errors.Is(err, ErrUnreadable) {
		t.Errorf("Expected ErrUnreadable, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected wrapped not-exist error, got %v", err)
	}
}

func TestShortReaderFails(t *testing.T) {
	_, err := Reader(bytes.NewReader([]byte("abc")), 10, DefaultOptions())
	if err == nil {
		t.Error("Expected error when reader has fewer bytes than declared")
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{md5Hex([]byte("x")), true},
		{"abc", false},
		{"zz" + md5Hex([]byte("x"))[2:], false},
		{strings.ToUpper(md5Hex([]byte("x"))), false},
		{Directory("/drive"), true},
	}
	for _, tt := range tests {
		if got := Valid(tt.in); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
