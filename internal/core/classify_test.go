package core

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		raw  string
		want FailureKind
	}{
		{"Paper Jam - tray 1 empty", KindPaperJam},
		{"PAPER JAM detected", KindPaperJam},
		{"media jam in feeder", KindPaperJam},
		{"printer is out of paper", KindNoPaper},
		{"Paper empty on tray 2", KindNoPaper},
		{"please load paper", KindNoPaper},
		{"cartridge reports ink empty", KindNoInk},
		{"Out of ink", KindNoInk},
		{"replace cartridge now", KindNoInk},
		{"warning: low ink", KindLowInk},
		{"Ink Low on color cartridge", KindLowInk},
		{"running low on ink", KindLowInk},
		{"printer offline", KindPrinterOffline},
		{"device not responding", KindPrinterOffline},
		{"host unreachable", KindPrinterOffline},
		{"connection reset by peer", KindConnectionError},
		{"dial tcp: i/o timeout", KindConnectionError},
		{"request timed out", KindConnectionError},
		{"network is down", KindConnectionError},
		{"connection refused", KindConnectionError},
		{"spurious firmware error 0x42", KindUnknown},
		{"", KindUnknown},
	}

	for _, tt := range tests {
		if got := Classify(tt.raw); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestClassifyPrecedence(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want FailureKind
	}{
		{"jam wins over connection words", "paper jam after connection reset", KindPaperJam},
		{"no paper wins over offline", "no paper, printer went offline", KindNoPaper},
		{"no ink wins over low ink", "ink empty, was low ink all day", KindNoInk},
		{"offline wins over connection", "printer offline: connection refused", KindPrinterOffline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.raw); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}
