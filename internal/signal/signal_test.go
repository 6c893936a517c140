package signal

import (
	"math"
	"testing"
	"time"
)

func TestFeatureSetDefined(t *testing.T) {
	if Undefined().Defined() {
		t.Fatalf("undefined feature set reported defined")
	}
	fs := FeatureSet{RSI: 25, MACD: 1, MACDSignal: math.NaN()}
	if fs.Defined() {
		t.Fatalf("missing signal line should leave set undefined")
	}
	fs.MACDSignal = 0.5
	if !fs.Defined() {
		t.Fatalf("expected defined feature set")
	}
}

func TestKindHelpers(t *testing.T) {
	if !ExitBySignal.IsExit() || !ExitByStopLoss.IsExit() {
		t.Fatalf("exit kinds must report IsExit")
	}
	if Enter.IsExit() || Hold.IsExit() {
		t.Fatalf("enter/hold must not report IsExit")
	}
	if ExitByStopLoss.String() != "exit_stop_loss" || Kind(42).String() != "hold" {
		t.Fatalf("unexpected kind names")
	}
}

func TestCloses(t *testing.T) {
	now := time.Now()
	got := Closes([]Candle{{OpenTime: now, Close: 1}, {OpenTime: now.Add(time.Minute), Close: 2}})
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("unexpected closes %v", got)
	}
}
