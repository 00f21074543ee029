package storage

import (
	"bytes"
	"testing"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndWalkGames(t *testing.T) {
	s := openTempStore(t)

	games := [][]byte{
		[]byte("first game"),
		[]byte("second game"),
		[]byte("third game"),
	}
	for i, g := range games {
		seq, err := s.AppendGame(g)
		if err != nil {
			t.Fatalf("AppendGame(%d): %v", i, err)
		}
		if seq != uint64(i) {
			t.Errorf("AppendGame(%d) seq = %d", i, seq)
		}
	}

	n, err := s.NumGames()
	if err != nil || n != 3 {
		t.Fatalf("NumGames = %d, %v", n, err)
	}

	var seen int
	err = s.WalkGames(func(seq uint64, packed []byte) error {
		if !bytes.Equal(packed, games[seq]) {
			t.Errorf("game %d: got %q want %q", seq, packed, games[seq])
		}
		seen++
		return nil
	})
	if err != nil {
		t.Fatalf("WalkGames: %v", err)
	}
	if seen != 3 {
		t.Errorf("walked %d games, want 3", seen)
	}
}

func TestBlobRoundTrip(t *testing.T) {
	s := openTempStore(t)

	if _, ok, err := s.GetBlob("weights"); err != nil || ok {
		t.Fatalf("GetBlob on empty store: ok=%v err=%v", ok, err)
	}

	payload := []byte{1, 2, 3, 4, 5}
	if err := s.PutBlob("weights", payload); err != nil {
		t.Fatalf("PutBlob: %v", err)
	}

	got, ok, err := s.GetBlob("weights")
	if err != nil || !ok {
		t.Fatalf("GetBlob: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("GetBlob = %v, want %v", got, payload)
	}
}
