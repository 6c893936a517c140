package paper

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"kingbot-go/internal/execution"
)

// fillLine is one row of the fills journal.
type fillLine struct {
	execution.Fill
	Mode     string  `json:"mode"`
	Notional float64 `json:"notional"`
}

// JSONLRecorder appends fills as JSON lines, tagged with the trading mode, for later analysis.
type JSONLRecorder struct {
	mu   sync.Mutex
	mode string
	log  zerolog.Logger
	file *os.File
	enc  *json.Encoder
}

// NewJSONLRecorder creates or opens path for appending.
func NewJSONLRecorder(path, mode string, log zerolog.Logger) (*JSONLRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLRecorder{mode: mode, log: log, file: file, enc: json.NewEncoder(file)}, nil
}

// Record writes a single fill. Write failures are logged with the lost fill; writes after Close are dropped.
func (r *JSONLRecorder) Record(fill execution.Fill) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return
	}
	if err := r.enc.Encode(fillLine{Fill: fill, Mode: r.mode, Notional: fill.Notional()}); err != nil {
		r.log.Error().Err(err).Str("path", r.file.Name()).Str("fill", fill.ID).Str("sym", fill.Symbol).
			Str("side", string(fill.Side)).Float64("qty", fill.Qty).Float64("px", fill.Price).Msg("fills journal write failed")
	}
}

// Close closes the file handle.
func (r *JSONLRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
