package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// Environment variables consulted when locating the engine.
const (
	// EnvDownloadDir overrides the engine download cache.
	EnvDownloadDir = "LTP_PATH"

	// EnvArchiveDir points directly at the directory holding the jar.
	EnvArchiveDir = "LTP_JAR_DIR_PATH"
)

// archiveNames are probed in order inside the archive directory.
var archiveNames = []string{
	"languagetool-server.jar",
	"languagetool-standalone*.jar",
	"LanguageTool.jar",
	"LanguageTool.uno.jar",
}

// runtimeVersionTimeout bounds `java -version`.
const runtimeVersionTimeout = 10 * time.Second

// DefaultDownloadDir returns LTP_PATH or ~/.cache/language_tool_python.
func DefaultDownloadDir() string {
	if dir := os.Getenv(EnvDownloadDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "language_tool_python")
	}
	return filepath.Join(home, ".cache", "language_tool_python")
}

// FindRuntime returns javaPath if set, otherwise java from PATH.
func FindRuntime(javaPath string) (string, error) {
	if javaPath != "" {
		info, err := os.Stat(javaPath)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrRuntimeNotFound, javaPath, err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("%w: %s is a directory", ErrRuntimeNotFound, javaPath)
		}
		return javaPath, nil
	}

	path, err := exec.LookPath("java")
	if err != nil {
		return "", fmt.Errorf("%w: java not in PATH: %v", ErrRuntimeNotFound, err)
	}
	return path, nil
}

// FindArchiveDir returns archiveDir if set, otherwise the newest LanguageTool*
// directory under downloadDir.
func FindArchiveDir(archiveDir, downloadDir string) (string, error) {
	if archiveDir != "" {
		return archiveDir, nil
	}

	info, err := os.Stat(downloadDir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: download directory %q is not a directory", ErrArchiveNotFound, downloadDir)
	}

	candidates, err := filepath.Glob(filepath.Join(downloadDir, "LanguageTool*"))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrArchiveNotFound, err)
	}
	var dirs []string
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			dirs = append(dirs, c)
		}
	}
	if len(dirs) == 0 {
		return "", fmt.Errorf("%w: no LanguageTool directory in %q", ErrArchiveNotFound, downloadDir)
	}

	// Version directories sort lexically, newest last.
	sort.Strings(dirs)
	return dirs[len(dirs)-1], nil
}

// FindArchive returns the first known jar name present in dir.
func FindArchive(dir string) (string, error) {
	for _, name := range archiveNames {
		matches, err := filepath.Glob(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		sort.Strings(matches)
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
				return m, nil
			}
		}
	}
	return "", fmt.Errorf("%w: no engine jar in %q", ErrArchiveNotFound, dir)
}

// Installation is a located runtime and archive.
type Installation struct {
	Java       string
	Archive    string
	ArchiveDir string
}

// Locate resolves the runtime and archive for cfg.
func Locate(cfg Config) (Installation, error) {
	java, err := FindRuntime(cfg.JavaPath)
	if err != nil {
		return Installation{}, err
	}

	if cfg.ArchivePath != "" {
		info, err := os.Stat(cfg.ArchivePath)
		if err != nil || !info.Mode().IsRegular() {
			return Installation{}, fmt.Errorf("%w: %s is not a file", ErrArchiveNotFound, cfg.ArchivePath)
		}
		return Installation{Java: java, Archive: cfg.ArchivePath, ArchiveDir: filepath.Dir(cfg.ArchivePath)}, nil
	}

	archiveDir := cfg.ArchiveDir
	if archiveDir == "" {
		archiveDir = os.Getenv(EnvArchiveDir)
	}
	downloadDir := cfg.DownloadDir
	if downloadDir == "" {
		downloadDir = DefaultDownloadDir()
	}

	dir, err := FindArchiveDir(archiveDir, downloadDir)
	if err != nil {
		return Installation{}, err
	}
	archive, err := FindArchive(dir)
	if err != nil {
		return Installation{}, err
	}
	return Installation{Java: java, Archive: archive, ArchiveDir: dir}, nil
}

var (
	// Matches `java version "1.8.0_292"` and `openjdk version "17.0.1" 2021-10-19`.
	javaVersionQuoted = regexp.MustCompile(`(?m)^(?:java|openjdk) version "(\d+)(?:\.(\d+)\.[^"]+)?"`)

	// Matches `openjdk 17.0.1 2021-10-19` and similar unquoted forms.
	javaVersionPlain = regexp.MustCompile(`(?m)^(?:java|openjdk) (?:version )?(\d+)\.(\d+)`)

	releaseVersion = regexp.MustCompile(`^(\d+)\.(\d+)$`)
	snapshotDate   = regexp.MustCompile(`^\d{8}$`)
)

// ParseJavaVersion extracts the major and minor version from `java -version`
// output. Legacy "1.x" versions are reported as major 1, minor x.
func ParseJavaVersion(output string) (major, minor int, err error) {
	m := javaVersionQuoted.FindStringSubmatch(output)
	if m == nil {
		m = javaVersionPlain.FindStringSubmatch(output)
	}
	if m == nil {
		return 0, 0, fmt.Errorf("%w: cannot parse java version from %q", ErrRuntimeIncompatible, output)
	}
	major, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		minor, _ = strconv.Atoi(m[2])
	}
	return major, minor, nil
}

// RequiredJavaVersion returns the minimum java major version for an engine
// version: 8 for releases before 6.6 (or snapshots before 2025-03-27), 17
// otherwise.
func RequiredJavaVersion(engineVersion string) int {
	if m := releaseVersion.FindStringSubmatch(engineVersion); m != nil {
		major, _ := strconv.Atoi(m[1])
		minor, _ := strconv.Atoi(m[2])
		if major < 6 || (major == 6 && minor < 6) {
			return 8
		}
		return 17
	}
	if snapshotDate.MatchString(engineVersion) && engineVersion < "20250327" {
		return 8
	}
	return 17
}

// CheckJavaVersion verifies the runtime's version output against the
// requirement for engineVersion.
func CheckJavaVersion(output, engineVersion string) error {
	major, minor, err := ParseJavaVersion(output)
	if err != nil {
		return err
	}

	effective := major
	if major == 1 {
		effective = minor
	}
	if required := RequiredJavaVersion(engineVersion); effective < required {
		return fmt.Errorf("%w: detected java %d.%d, engine %s requires java >= %d",
			ErrRuntimeIncompatible, major, minor, engineVersion, required)
	}
	return nil
}

// CheckRuntime runs `java -version` and checks the result.
func CheckRuntime(ctx context.Context, java, engineVersion string) error {
	ctx, cancel := context.WithTimeout(ctx, runtimeVersionTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, java, "-version").CombinedOutput() //nolint:gosec // java path resolved by FindRuntime
	if err != nil {
		return fmt.Errorf("%w: running %s -version: %v", ErrRuntimeIncompatible, java, err)
	}
	return CheckJavaVersion(string(out), engineVersion)
}
