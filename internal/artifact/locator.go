package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/lijiannan828-oss/yvideo-factory/internal/shots"
)

// ErrNotFound indicates no strategy produced a readable stage-1 artifact.
var ErrNotFound = errors.New("stage artifact not found")

// urlPrefix is the download-path convention of the storyboard API. References
// under it map onto the local data directory when the tool runs next to the
// service checkout.
const urlPrefix = "/data/storyboard/"

// NotFoundError reports every location the locator inspected before giving up.
type NotFoundError struct {
	Inspected []string
}

func (e *NotFoundError) Error() string {
	if len(e.Inspected) == 0 {
		return ErrNotFound.Error()
	}
	return fmt.Sprintf("%s; inspected: %s", ErrNotFound.Error(), strings.Join(e.Inspected, "; "))
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Artifact is the located stage-1 document. Cleanup removes any temporary
// file backing it and must be called on every exit path of the run.
type Artifact struct {
	Data    []byte
	Source  string // strategy that produced it
	Path    string // file or URL it came from, empty for inline
	tmpPath string
}

// Cleanup deletes the temporary copy of a network-fetched artifact. Calling
// it on artifacts from other sources is a no-op.
func (a *Artifact) Cleanup() {
	if a == nil || a.tmpPath == "" {
		return
	}
	_ = os.Remove(a.tmpPath)
	a.tmpPath = ""
}

// Fetcher downloads a referenced artifact document. Implemented by the stage
// runner client.
type Fetcher interface {
	FetchDocument(ctx context.Context, url string) ([]byte, error)
}

// Locator resolves where the full per-shot artifact of a stage-1 response
// lives and reads it into memory.
type Locator struct {
	fetcher Fetcher
	dataDir string
	logger  *zap.Logger
}

// New creates a locator over the conventional data directory.
func New(fetcher Fetcher, dataDir string, logger *zap.Logger) *Locator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locator{
		fetcher: fetcher,
		dataDir: dataDir,
		logger:  logger.Named("ArtifactLocator"),
	}
}

// query carries the inputs shared by all strategies.
type query struct {
	response []byte // raw stage-1 body
	ref      string // download reference extracted from the response, if any
	pattern  string // stage-specific file name pattern for the directory scan
}

// strategy tries one way of obtaining the artifact. A nil artifact with a nil
// error means the strategy does not apply; an error is recorded and the next
// strategy is tried.
type strategy struct {
	name   string
	locate func(ctx context.Context, q *query) (*Artifact, error)
}

// Locate resolves the artifact for a stage-1 response. Strategies are tried
// in fixed priority order and the first success wins: a referenced remote
// URL, the reference remapped onto the local data directory, the reference as
// a literal path, the shot array inlined in the response itself, and finally
// the newest matching file under the conventional directory.
func (l *Locator) Locate(ctx context.Context, response []byte, pattern string) (*Artifact, error) {
	q := &query{
		response: response,
		ref:      extractReference(response),
		pattern:  pattern,
	}

	strategies := []strategy{
		{name: "remote-url", locate: l.fromRemoteURL},
		{name: "prefix-remap", locate: l.fromPrefixRemap},
		{name: "literal-path", locate: l.fromLiteralPath},
		{name: "inline", locate: l.fromInline},
		{name: "recent-file", locate: l.fromRecentFile},
	}

	var inspected []string
	for _, s := range strategies {
		art, err := s.locate(ctx, q)
		if err != nil {
			l.logger.Debug("Artifact strategy failed", zap.String("strategy", s.name), zap.Error(err))
			inspected = append(inspected, fmt.Sprintf("%s: %v", s.name, err))
			continue
		}
		if art == nil {
			continue
		}
		art.Source = s.name
		l.logger.Info("Artifact located",
			zap.String("strategy", s.name),
			zap.String("path", art.Path),
			zap.Int("size_bytes", len(art.Data)),
		)
		return art, nil
	}

	return nil, &NotFoundError{Inspected: inspected}
}

// fromRemoteURL fetches an absolute http(s) reference. The body is persisted
// to a temporary file so the operator can inspect it; Cleanup removes it.
func (l *Locator) fromRemoteURL(ctx context.Context, q *query) (*Artifact, error) {
	if !strings.HasPrefix(q.ref, "http://") && !strings.HasPrefix(q.ref, "https://") {
		return nil, nil
	}
	data, err := l.fetcher.FetchDocument(ctx, q.ref)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", q.ref, err)
	}

	tmp, err := os.CreateTemp("", "storyboard_artifact_*.json")
	if err != nil {
		return nil, fmt.Errorf("create temp file for %s: %w", q.ref, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("write temp file for %s: %w", q.ref, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("close temp file for %s: %w", q.ref, err)
	}

	return &Artifact{Data: data, Path: q.ref, tmpPath: tmp.Name()}, nil
}

// fromPrefixRemap rewrites a /data/storyboard/... reference onto the local
// data directory.
func (l *Locator) fromPrefixRemap(_ context.Context, q *query) (*Artifact, error) {
	if !strings.HasPrefix(q.ref, urlPrefix) {
		return nil, nil
	}
	local := filepath.Join(l.dataDir, filepath.FromSlash(strings.TrimPrefix(q.ref, urlPrefix)))
	data, err := os.ReadFile(local)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", local, err)
	}
	return &Artifact{Data: data, Path: local}, nil
}

// fromLiteralPath treats any remaining reference as a local path.
func (l *Locator) fromLiteralPath(_ context.Context, q *query) (*Artifact, error) {
	if q.ref == "" {
		return nil, nil
	}
	if _, err := os.Stat(q.ref); err != nil {
		return nil, fmt.Errorf("stat %s: %w", q.ref, err)
	}
	data, err := os.ReadFile(q.ref)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", q.ref, err)
	}
	return &Artifact{Data: data, Path: q.ref}, nil
}

// fromInline applies when the response body itself already carries the shot
// array in one of the shapes the normalizer understands.
func (l *Locator) fromInline(_ context.Context, q *query) (*Artifact, error) {
	if _, ok := shots.Extract(q.response); !ok {
		return nil, nil
	}
	return &Artifact{Data: q.response}, nil
}

// fromRecentFile scans the conventional directory: the most recently modified
// date subdirectory, then the most recently modified file matching the stage
// pattern inside it.
func (l *Locator) fromRecentFile(_ context.Context, q *query) (*Artifact, error) {
	dir, err := newestSubdir(l.dataDir)
	if err != nil {
		return nil, err
	}
	path, err := newestMatch(dir, q.pattern)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &Artifact{Data: data, Path: path}, nil
}

// extractReference pulls the artifact download reference out of the stage-1
// response: downloads.pictures_url first, then a top-level pictures_url.
func extractReference(response []byte) string {
	var body struct {
		Downloads struct {
			PicturesURL string `json:"pictures_url"`
		} `json:"downloads"`
		PicturesURL string `json:"pictures_url"`
	}
	if err := json.Unmarshal(response, &body); err != nil {
		return ""
	}
	if body.Downloads.PicturesURL != "" {
		return body.Downloads.PicturesURL
	}
	return body.PicturesURL
}

func newestSubdir(root string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", fmt.Errorf("scan %s: %w", root, err)
	}
	var newest string
	var newestMod int64 = -1
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); mod > newestMod {
			newest = filepath.Join(root, e.Name())
			newestMod = mod
		}
	}
	if newest == "" {
		return "", fmt.Errorf("no run directories under %s", root)
	}
	return newest, nil
}

func newestMatch(dir, pattern string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("scan %s: %w", dir, err)
	}
	var newest string
	var newestMod int64 = -1
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ok, err := filepath.Match(pattern, e.Name())
		if err != nil || !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); mod > newestMod {
			newest = filepath.Join(dir, e.Name())
			newestMod = mod
		}
	}
	if newest == "" {
		return "", fmt.Errorf("no file matching %s under %s", pattern, dir)
	}
	return newest, nil
}
