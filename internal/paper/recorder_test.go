package paper

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"kingbot-go/internal/execution"
)

func TestJSONLRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "var", "fills.jsonl")

	recorder, err := NewJSONLRecorder(path, "paper", zerolog.Nop())
	if err != nil {
		t.Fatalf("NewJSONLRecorder error: %v", err)
	}
	fill := execution.Fill{ID: "f1", Symbol: "BTC/USDC", Side: execution.Buy, Qty: 0.5, Price: 1000}
	recorder.Record(fill)
	if err := recorder.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	recorder.Record(fill)

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open recorded file: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lines := 0
	var decoded struct {
		execution.Fill
		Mode     string  `json:"mode"`
		Notional float64 `json:"notional"`
	}
	for scanner.Scan() {
		lines++
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("json decode: %v", err)
		}
	}
	if lines != 1 {
		t.Fatalf("expected one line, got %d", lines)
	}
	if decoded.Symbol != fill.Symbol || decoded.Side != fill.Side || decoded.ID != "f1" {
		t.Fatalf("unexpected decoded fill %+v", decoded)
	}
	if decoded.Mode != "paper" || decoded.Notional != 500 {
		t.Fatalf("unexpected journal fields mode=%q notional=%v", decoded.Mode, decoded.Notional)
	}
}

func TestJSONLRecorderLogsWriteFailure(t *testing.T) {
	var buf bytes.Buffer
	recorder, err := NewJSONLRecorder(filepath.Join(t.TempDir(), "fills.jsonl"), "live", zerolog.New(&buf))
	if err != nil {
		t.Fatalf("NewJSONLRecorder error: %v", err)
	}
	// close the handle underneath the recorder so the next write fails
	if err := recorder.file.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}

	recorder.Record(execution.Fill{ID: "lost-1", Symbol: "ETH/USDC", Side: execution.Sell, Qty: 1, Price: 3000})

	out := buf.String()
	if !strings.Contains(out, "fills journal write failed") || !strings.Contains(out, "lost-1") {
		t.Fatalf("expected write failure to be logged with the fill, got %q", out)
	}
}
