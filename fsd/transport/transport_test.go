// fsd/transport/transport_test.go
// Copyright(c) 2024-2026 xpilotfsd contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package transport

import (
	"bytes"
	"testing"
)

type fakeConn struct {
	written bytes.Buffer
}

func (f *fakeConn) Read([]byte) (int, error)  { return 0, nil }
func (f *fakeConn) Write(p []byte) (int, error) {
	f.written.Write(p)
	return len(p), nil
}
func (f *fakeConn) Close() error { return nil }

// TestLineFramingAnySplit checks the §8 property: feeding any split of
// "$ID...:\r\n#TM...:\r\nPART" yields exactly two complete lines plus one
// remembered partial, regardless of chunk boundaries.
func TestLineFramingAnySplit(t *testing.T) {
	full := "$ID...:\r\n#TM...:\r\nPART"

	for split := 0; split <= len(full); split++ {
		tr := New(&fakeConn{})

		var got []string
		if lines, err := tr.ReadLines([]byte(full[:split])); err != nil {
			t.Fatalf("split %d: %v", split, err)
		} else {
			got = append(got, lines...)
		}
		if lines, err := tr.ReadLines([]byte(full[split:])); err != nil {
			t.Fatalf("split %d: %v", split, err)
		} else {
			got = append(got, lines...)
		}

		want := []string{"$ID...:", "#TM...:"}
		if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
			t.Errorf("split %d: got %q, want %q", split, got, want)
		}
		if string(tr.partial) != "PART" {
			t.Errorf("split %d: partial = %q, want %q", split, tr.partial, "PART")
		}
	}
}

func TestReadLinesStripsTrailingNUL(t *testing.T) {
	tr := New(&fakeConn{})
	lines, err := tr.ReadLines([]byte("$ID1:2\r\n\x00"))
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || lines[0] != "$ID1:2" {
		t.Errorf("got %q, want one line %q", lines, "$ID1:2")
	}
}

func TestWriteLineAppendsCRLFOnce(t *testing.T) {
	fc := &fakeConn{}
	tr := New(fc)
	if err := tr.WriteLine("$ID1:2:3"); err != nil {
		t.Fatal(err)
	}
	if got := fc.written.String(); got != "$ID1:2:3\r\n" {
		t.Errorf("wrote %q, want %q", got, "$ID1:2:3\r\n")
	}
}

func TestWriteLineAfterCloseFails(t *testing.T) {
	tr := New(&fakeConn{})
	tr.Close()
	if err := tr.WriteLine("x"); err != ErrClosed {
		t.Errorf("WriteLine after Close: got %v, want ErrClosed", err)
	}
}
