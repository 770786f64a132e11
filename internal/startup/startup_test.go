package startup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
	if info.OS == "" || info.Arch == "" {
		t.Errorf("Expected OS and Arch to be set, got %q/%q", info.OS, info.Arch)
	}
}

func TestParseRoots(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    []string
		wantErr error
	}{
		{"single", "/drive", []string{"/drive"}, nil},
		{"list separator", "/b:/a", []string{"/a", "/b"}, nil},
		{"commas and spaces", "/a, /b ,", []string{"/a", "/b"}, nil},
		{"duplicates dropped", "/a:/a/:/a/./", []string{"/a"}, nil},
		{"siblings sharing a prefix", "/data:/data2", []string{"/data", "/data2"}, nil},
		{"nested", "/data:/data/photos", nil, ErrNestedRoots},
		{"nested reversed", "/data/photos,/data", nil, ErrNestedRoots},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRoots(tt.value)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRoots(%q): %v", tt.value, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("roots = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("roots[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}

	if _, err := ParseRoots(" , "); err == nil {
		t.Error("expected an error for an empty list")
	}
}

func TestParseRootsRelative(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	got, err := ParseRoots("media")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(wd, "media"); got[0] != want {
		t.Errorf("root = %s, want %s", got[0], want)
	}
}

func TestConfigFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MOUNTED_DIRS", filepath.Join(dir, "a")+","+filepath.Join(dir, "b"))
	t.Setenv("CACHE_DIR", filepath.Join(dir, "cache"))
	t.Setenv("DATABASE_DIR", filepath.Join(dir, "db"))
	t.Setenv("INDEX_INTERVAL", "15m")
	t.Setenv("SCAN_INTERVAL", "not a duration")
	t.Setenv("INDEX_WORKERS", "5")
	t.Setenv("SKETCH_THRESHOLD", "4MiB")
	t.Setenv("SKETCH_BLOCK_SIZE", "65536")
	t.Setenv("MAX_UPLOAD_SIZE", "lots")
	t.Setenv("SKIP_HIDDEN", "true")
	t.Setenv("COUNT_DIR_SIZE", "1")

	c, err := configFromEnv()
	if err != nil {
		t.Fatalf("configFromEnv: %v", err)
	}

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"roots", len(c.Roots), 2},
		{"index interval", c.IndexInterval, 15 * time.Minute},
		{"scan interval falls back", c.ScanInterval, defaultScanInterval},
		{"workers", c.IndexWorkers, 5},
		{"sketch threshold", c.SketchThreshold, int64(4 << 20)},
		{"sketch block", c.SketchBlockSize, int64(65536)},
		{"upload falls back", c.MaxUploadSize, int64(defaultMaxUpload)},
		{"skip hidden", c.SkipHidden, true},
		{"count dir size", c.CountDirSize, true},
		{"metrics default", c.MetricsEnabled, true},
		{"database path", c.DatabasePath, filepath.Join(dir, "db", "index.db")},
		{"thumbnail dir", c.ThumbnailDir, filepath.Join(dir, "cache", "thumbnails")},
	}
	for _, ck := range checks {
		if ck.got != ck.want {
			t.Errorf("%s = %v, want %v", ck.name, ck.got, ck.want)
		}
	}

	root, ok := c.RootFor(filepath.Join(dir, "b", "x", "y.txt"))
	if !ok || root != filepath.Join(dir, "b") {
		t.Errorf("RootFor = %s, %v", root, ok)
	}
	if _, ok := c.RootFor(filepath.Join(dir, "c")); ok {
		t.Error("RootFor matched a path outside every root")
	}
}

func TestLoadConfigCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MOUNTED_DIRS", filepath.Join(dir, "drive"))
	t.Setenv("CACHE_DIR", filepath.Join(dir, "cache"))
	t.Setenv("DATABASE_DIR", filepath.Join(dir, "db"))

	c, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !c.ThumbnailsEnabled {
		t.Error("thumbnails should be enabled with a writable cache dir")
	}
	for _, p := range []string{c.DatabaseDir, c.ThumbnailDir} {
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			t.Errorf("%s not created: %v", p, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "drive")); !os.IsNotExist(err) {
		t.Error("mounted roots must not be created")
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("VD_TEST_BOOL", "nope")
	if got := getEnvBool("VD_TEST_BOOL", true); !got {
		t.Error("invalid bool should fall back to the default")
	}
	t.Setenv("VD_TEST_BOOL", "F")
	if got := getEnvBool("VD_TEST_BOOL", true); got {
		t.Error("F should parse as false")
	}

	t.Setenv("VD_TEST_DURATION", "-5s")
	if got := getEnvDuration("VD_TEST_DURATION", time.Minute); got != time.Minute {
		t.Errorf("negative duration accepted: %v", got)
	}

	t.Setenv("VD_TEST_BYTES", "1.5 KB")
	if got := getEnvBytes("VD_TEST_BYTES", 1); got != 1500 {
		t.Errorf("getEnvBytes = %d, want 1500", got)
	}

	if got := getEnv("VD_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("getEnv = %q", got)
	}
}

func TestGetRoutes(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/api/paths/{fingerprint}", nil).Methods("GET").Name("paths")
	r.HandleFunc("/api/upload", nil).Methods("POST")

	routes, err := GetRoutes(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(routes) != 2 {
		t.Fatalf("routes = %+v", routes)
	}
	if routes[0].Path != "/api/paths/{fingerprint}" || routes[0].Method != "GET" || routes[0].Name != "paths" {
		t.Errorf("first route = %+v", routes[0])
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := map[string]string{
		"/api/paths/{fingerprint}": "api/paths",
		"/api/duplicates":          "api/duplicates",
		"/health":                  "health",
		"/":                        "",
	}
	for path, want := range tests {
		if got := getRouteGroup(path); got != want {
			t.Errorf("getRouteGroup(%q) = %q, want %q", path, got, want)
		}
	}
}
