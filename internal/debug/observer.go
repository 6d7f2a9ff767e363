package debug

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/babelcloud/vlm-bridge/internal/reasoning"
	"github.com/babelcloud/vlm-bridge/pkg/logger"
	"github.com/babelcloud/vlm-bridge/pkg/vision"
)

// FileObserver writes reasoning artifacts to a local directory. Write
// failures are logged and otherwise ignored.
type FileObserver struct {
	dir     string
	overlay bool
	log     *logger.Logger
	now     func() time.Time

	mu          sync.Mutex
	lastOverlay string
}

var _ reasoning.Observer = (*FileObserver)(nil)

// NewFileObserver creates dir if needed. When overlay is set an annotated
// copy of the screenshot is written for every successful response.
func NewFileObserver(dir string, overlay bool, log *logger.Logger) (*FileObserver, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create debug directory '%s': %w", dir, err)
	}
	if log == nil {
		log = logger.New()
	}
	return &FileObserver{dir: dir, overlay: overlay, log: log, now: time.Now}, nil
}

// Dir returns the artifact directory.
func (o *FileObserver) Dir() string {
	return o.dir
}

// LastOverlay returns the path of the most recent overlay image, or "".
func (o *FileObserver) LastOverlay() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastOverlay
}

type requestSummary struct {
	Attempt     int       `json:"attempt"`
	Endpoint    string    `json:"endpoint"`
	Instruction string    `json:"instruction"`
	ImageType   string    `json:"imageType"`
	ImageBytes  int       `json:"imageBytes"`
	SentAt      time.Time `json:"sentAt"`
}

type errorDump struct {
	Attempt    int              `json:"attempt"`
	Kind       vision.ErrorKind `json:"kind,omitempty"`
	Error      string           `json:"error"`
	Body       string           `json:"body,omitempty"`
	DurationMs int64            `json:"durationMs"`
}

func (o *FileObserver) RequestSent(e reasoning.RequestEvent) {
	ts := Timestamp(o.now())
	mime := mimetype.Detect(e.Image)

	o.write(fmt.Sprintf("screenshot_%s%s", ts, mime.Extension()), e.Image)
	o.writeJSON(fmt.Sprintf("request_%s.json", ts), requestSummary{
		Attempt:     e.Attempt,
		Endpoint:    e.Endpoint,
		Instruction: e.Instruction,
		ImageType:   mime.String(),
		ImageBytes:  len(e.Image),
		SentAt:      e.SentAt,
	})
}

func (o *FileObserver) ResponseReceived(e reasoning.ResponseEvent) {
	ts := Timestamp(o.now())
	o.write(fmt.Sprintf("response_%s.json", ts), e.Body)

	if !o.overlay || e.Response == nil || len(e.Image) == 0 {
		return
	}
	// An unparseable directive still gets its boxes drawn.
	action, _ := vision.ParseResponse(e.Response)
	img, err := RenderOverlay(e.Image, e.Response, action)
	if err != nil {
		o.log.Warn("Failed to render debug overlay: %v", err)
		return
	}
	name := fmt.Sprintf("overlay_%s.png", ts)
	if o.write(name, img) {
		o.mu.Lock()
		o.lastOverlay = filepath.Join(o.dir, name)
		o.mu.Unlock()
	}
}

func (o *FileObserver) RequestFailed(e reasoning.ErrorEvent) {
	ts := Timestamp(o.now())
	o.writeJSON(fmt.Sprintf("error_%s.json", ts), errorDump{
		Attempt:    e.Attempt,
		Kind:       vision.KindOf(e.Err),
		Error:      e.Err.Error(),
		Body:       string(e.Body),
		DurationMs: e.Duration.Milliseconds(),
	})
}

func (o *FileObserver) writeJSON(name string, v any) bool {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		o.log.Warn("Failed to encode debug artifact %s: %v", name, err)
		return false
	}
	return o.write(name, data)
}

func (o *FileObserver) write(name string, data []byte) bool {
	path := filepath.Join(o.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		o.log.Warn("Failed to write debug artifact %s: %v", path, err)
		return false
	}
	o.log.Debug("Wrote debug artifact %s", path)
	return true
}

// Timestamp formats t as an RFC 3339 UTC timestamp safe for file names.
func Timestamp(t time.Time) string {
	return strings.NewReplacer(":", "-", ".", "-").Replace(t.UTC().Format("2006-01-02T15:04:05.000Z"))
}
