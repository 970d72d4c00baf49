package smbc

import (
	"testing"
	"time"
)

func TestDirentCodec(t *testing.T) {
	ents := []Dirent{
		{Type: EntryDir, Name: "."},
		{Type: EntryDir, Name: ".."},
		{Type: EntryFile, Name: "report.txt", Comment: "quarterly"},
		{Type: EntryPrinterShare, Name: "printer1"},
		{Type: EntryFile, Name: "naïve-ñame.txt"},
	}

	var buf []byte
	for _, e := range ents {
		buf = AppendDirent(buf, e)
	}

	got, err := DecodeDirents(buf)
	if err != nil {
		t.Fatalf("DecodeDirents() error = %v", err)
	}
	if len(got) != len(ents) {
		t.Fatalf("decoded %d entries, want %d", len(got), len(ents))
	}
	for i := range ents {
		if got[i] != ents[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], ents[i])
		}
	}
}

func TestDecodeDirents_Truncated(t *testing.T) {
	buf := AppendDirent(nil, Dirent{Type: EntryFile, Name: "a.txt"})

	if _, err := DecodeDirents(buf[:len(buf)-1]); err == nil {
		t.Error("truncated payload decoded without error")
	}
	if _, err := DecodeDirents(buf[:direntHeaderSize-2]); err == nil {
		t.Error("truncated header decoded without error")
	}
	if got, err := DecodeDirents(nil); err != nil || len(got) != 0 {
		t.Errorf("empty buffer = (%v, %v), want no entries", got, err)
	}
}

func TestDecodeStat_Normalization(t *testing.T) {
	raw := RawStat{
		Mode: modeRegular | 0640,
		Size: 1234,
		Mtim: RawTimespec{Sec: 1700000000, Nsec: 500},
	}
	st := decodeStat(raw)

	if !st.IsRegular() || st.IsDir() {
		t.Errorf("type bits wrong for mode %o", st.Mode)
	}
	want := time.Unix(1700000000, 500)
	if !st.ModTime.Equal(want) {
		t.Errorf("ModTime = %v, want %v", st.ModTime, want)
	}
	if st.FileMode().Perm() != 0640 {
		t.Errorf("FileMode().Perm() = %o, want 640", st.FileMode().Perm())
	}

	dir := decodeStat(RawStat{Mode: modeDir | 0755})
	if !dir.FileMode().IsDir() {
		t.Error("directory mode lost in FileMode conversion")
	}
}

func TestDecodePrintJob(t *testing.T) {
	raw := RawPrintJob{
		ID:       42,
		Priority: 3,
		Size:     9000,
		User:     "alice",
		Name:     "memo.pdf",
		Time:     1700000000,
	}
	job := decodePrintJob(raw)

	if job.ID != 42 || job.Priority != 3 || job.Size != 9000 {
		t.Errorf("job = %+v", job)
	}
	if !job.SubmitTime.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("SubmitTime = %v", job.SubmitTime)
	}
}
