package entity_test

import (
	"testing"

	"github.com/Urethramancer/x86dis/entity"
)

func TestClassifyDataRecognizesNullTerminatedString(t *testing.T) {
	seq := append([]byte("ExitProcess"), 0x00, 0xCC, 0xCC)
	d := entity.ClassifyData(0x4001, seq)
	if d.Type != entity.DataString {
		t.Fatalf("type = %v, want DataString", d.Type)
	}
	if d.Length != len("ExitProcess")+1 {
		t.Fatalf("length = %d, want %d (including NUL terminator)", d.Length, len("ExitProcess")+1)
	}
}

func TestClassifyDataRejectsShortPrintableRun(t *testing.T) {
	// "ab" + NUL is only 2 printable bytes, short of minStringLen (4):
	// falls back to alignment-based classification instead.
	seq := []byte{'a', 'b', 0x00, 0x00}
	d := entity.ClassifyData(0x2000, seq)
	if d.Type == entity.DataString {
		t.Fatalf("expected non-string classification for a short printable run, got %v", d.Type)
	}
}

func TestClassifyDataFallsBackToAlignment(t *testing.T) {
	cases := []struct {
		name string
		addr uint64
		seq  []byte
		want entity.DataType
		size int
	}{
		{"qword-aligned", 0x2000, make([]byte, 8), entity.DataQword, 8},
		{"dword-aligned", 0x2004, make([]byte, 8), entity.DataDword, 4},
		{"word-aligned", 0x2002, make([]byte, 8), entity.DataWord, 2},
		{"odd-address", 0x2001, make([]byte, 8), entity.DataByte, 1},
		{"too-short-for-word", 0x2000, make([]byte, 1), entity.DataByte, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d := entity.ClassifyData(c.addr, c.seq)
			if d.Type != c.want || d.Length != c.size {
				t.Fatalf("got type=%v length=%d, want type=%v length=%d", d.Type, d.Length, c.want, c.size)
			}
		})
	}
}

func TestClassifyDataEmptySequence(t *testing.T) {
	d := entity.ClassifyData(0x2000, nil)
	if d.Type != entity.DataUnknown || d.Length != 1 {
		t.Fatalf("got type=%v length=%d, want DataUnknown/1", d.Type, d.Length)
	}
}
