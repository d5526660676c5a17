// Package ffmpeg locates the ffmpeg and ffprobe binaries and runs compiled
// ffmpeg-go streams under a context.
package ffmpeg

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

const (
	ffmpegReleaseVersion = "6.1"
	ffmpegReleaseBaseURL = "https://github.com/ffbinaries/ffbinaries-prebuilt/releases/download"

	EnvFFmpegPath  = "TRIMCAP_FFMPEG_PATH"
	EnvFFprobePath = "TRIMCAP_FFPROBE_PATH"
)

type BinaryPaths struct {
	FFmpeg  string
	FFprobe string
}

func (p BinaryPaths) complete() bool {
	return p.FFmpeg != "" && p.FFprobe != ""
}

// resolver finds binaries in order: env override, PATH, cached download.
type resolver struct {
	getenv   func(string) string
	lookPath func(string) (string, error)
	cacheDir func() (string, error)
	download func(assetName, installDir string) error
	goos     string
	goarch   string
}

func defaultResolver() resolver {
	return resolver{
		getenv:   os.Getenv,
		lookPath: exec.LookPath,
		cacheDir: os.UserCacheDir,
		download: downloadAndExtract,
		goos:     runtime.GOOS,
		goarch:   runtime.GOARCH,
	}
}

var (
	ensureOnce sync.Once
	ensureErr  error
	ensurePath BinaryPaths
)

// Ensure resolves the binaries once per process.
func Ensure() (BinaryPaths, error) {
	ensureOnce.Do(func() {
		ensurePath, ensureErr = defaultResolver().resolve()
	})
	return ensurePath, ensureErr
}

func FFmpegPath() (string, error) {
	paths, err := Ensure()
	if err != nil {
		return "", err
	}
	return paths.FFmpeg, nil
}

func FFprobePath() (string, error) {
	paths, err := Ensure()
	if err != nil {
		return "", err
	}
	return paths.FFprobe, nil
}

func (r resolver) resolve() (BinaryPaths, error) {
	paths := BinaryPaths{
		FFmpeg:  r.getenv(EnvFFmpegPath),
		FFprobe: r.getenv(EnvFFprobePath),
	}
	if paths.FFmpeg == "" {
		if found, err := r.lookPath("ffmpeg"); err == nil {
			paths.FFmpeg = found
		}
	}
	if paths.FFprobe == "" {
		if found, err := r.lookPath("ffprobe"); err == nil {
			paths.FFprobe = found
		}
	}
	if paths.complete() {
		return paths, nil
	}

	assetName, err := assetForPlatform(r.goos, r.goarch)
	if err != nil {
		return BinaryPaths{}, err
	}

	cacheDir, err := r.cacheDir()
	if err != nil || cacheDir == "" {
		cacheDir = os.TempDir()
	}
	installDir := filepath.Join(cacheDir, "trimcap", "ffmpeg", ffmpegReleaseVersion, r.goos, r.goarch)
	suffix := executableSuffix(r.goos)
	cached := BinaryPaths{
		FFmpeg:  filepath.Join(installDir, "ffmpeg"+suffix),
		FFprobe: filepath.Join(installDir, "ffprobe"+suffix),
	}
	if binariesExist(cached) {
		return cached, nil
	}

	if err := os.MkdirAll(installDir, 0o755); err != nil {
		return BinaryPaths{}, fmt.Errorf("create ffmpeg cache dir: %w", err)
	}
	if err := r.download(assetName, installDir); err != nil {
		return BinaryPaths{}, err
	}
	if !binariesExist(cached) {
		return BinaryPaths{}, errors.New("ffmpeg binaries not found after extraction")
	}
	if r.goos != "windows" {
		for _, bin := range []string{cached.FFmpeg, cached.FFprobe} {
			if err := os.Chmod(bin, 0o755); err != nil {
				return BinaryPaths{}, fmt.Errorf("chmod %s: %w", filepath.Base(bin), err)
			}
		}
	}

	return cached, nil
}

func assetForPlatform(goos, goarch string) (string, error) {
	var platform string
	switch {
	case goos == "linux" && goarch == "amd64":
		platform = "linux-64"
	case goos == "linux" && goarch == "arm64":
		platform = "linux-arm-64"
	case goos == "darwin" && goarch == "amd64":
		platform = "macos-64"
	case goos == "windows" && goarch == "amd64":
		platform = "win-64"
	default:
		return "", fmt.Errorf("unsupported platform for bundled ffmpeg: %s/%s", goos, goarch)
	}
	return fmt.Sprintf("ffmpeg-%s-%s.zip", ffmpegReleaseVersion, platform), nil
}

func downloadAndExtract(assetName, installDir string) error {
	url := fmt.Sprintf("%s/v%s/%s", ffmpegReleaseBaseURL, ffmpegReleaseVersion, assetName)
	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("download ffmpeg bundle: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download ffmpeg bundle: unexpected status %s", resp.Status)
	}

	tmpFile, err := os.CreateTemp("", "trimcap-ffmpeg-*.zip")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	archivePath := tmpFile.Name()
	defer func() { _ = os.Remove(archivePath) }()

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write archive: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}

	if err := extractArchive(archivePath, installDir); err != nil {
		return fmt.Errorf("extract %s: %w", assetName, err)
	}
	return nil
}

func extractArchive(archivePath, installDir string) error {
	zipReader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open ffmpeg archive: %w", err)
	}
	defer func() { _ = zipReader.Close() }()

	suffix := executableSuffix(runtime.GOOS)
	found := map[string]bool{}
	for _, file := range zipReader.File {
		name := binaryName(filepath.Base(file.Name))
		if name == "" {
			continue
		}
		if err := extractZipFile(file, filepath.Join(installDir, name+suffix)); err != nil {
			return err
		}
		found[name] = true
	}

	if !found["ffmpeg"] || !found["ffprobe"] {
		return fmt.Errorf("ffmpeg archive missing required binaries")
	}
	return nil
}

func extractZipFile(file *zip.File, dest string) error {
	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("open ffmpeg archive entry: %w", err)
	}
	defer func() { _ = reader.Close() }()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create ffmpeg binary: %w", err)
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, reader); err != nil {
		return fmt.Errorf("write ffmpeg binary: %w", err)
	}
	return nil
}

func binariesExist(p BinaryPaths) bool {
	return fileExists(p.FFmpeg) && fileExists(p.FFprobe)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}

// binaryName maps an archive entry to "ffmpeg", "ffprobe" or "".
func binaryName(entry string) string {
	name := strings.TrimSuffix(strings.ToLower(entry), ".exe")
	switch name {
	case "ffmpeg", "ffprobe":
		return name
	default:
		return ""
	}
}

func executableSuffix(goos string) string {
	if goos == "windows" {
		return ".exe"
	}
	return ""
}
