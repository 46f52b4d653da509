// Package diag writes run diagnostics (screenshots, HTML dumps, row dumps)
// under a per-run directory. A disabled recorder is a no-op, so call sites
// never guard on the flag themselves.
package diag

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"matchstream/browser"
)

// Recorder captures diagnostics for one pipeline run. It is constructed
// once per run and passed by reference; there is no package-level state.
type Recorder struct {
	enabled bool
	root    string
	log     *logrus.Logger
}

// New returns a recorder rooted at dir/runID. When enabled is false every
// method is a no-op.
func New(enabled bool, dir, runID string, log *logrus.Logger) *Recorder {
	return &Recorder{
		enabled: enabled,
		root:    filepath.Join(dir, runID),
		log:     log,
	}
}

// Enabled reports whether the recorder writes anything.
func (r *Recorder) Enabled() bool {
	return r != nil && r.enabled
}

// WriteText stores a text artifact at a run-relative path.
func (r *Recorder) WriteText(rel, content string) {
	r.write(rel, []byte(content))
}

// WriteJSON stores an indented JSON artifact at a run-relative path.
func (r *Recorder) WriteJSON(rel string, v any) {
	if !r.Enabled() {
		return
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		r.log.WithError(err).WithField("file", rel).Debug("diag: marshal failed")
		return
	}
	r.write(rel, data)
}

// Screenshot captures the session's page at a run-relative path.
func (r *Recorder) Screenshot(sess *browser.Session, rel string) {
	if !r.Enabled() {
		return
	}
	buf, err := sess.Screenshot()
	if err != nil {
		r.log.WithError(err).WithField("file", rel).Debug("diag: screenshot failed")
		return
	}
	r.write(rel, buf)
}

func (r *Recorder) write(rel string, data []byte) {
	if !r.Enabled() {
		return
	}
	full := filepath.Join(r.root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		r.log.WithError(err).WithField("file", rel).Debug("diag: mkdir failed")
		return
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		r.log.WithError(err).WithField("file", rel).Debug("diag: write failed")
	}
}
