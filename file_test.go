package smbc

import (
	"bytes"
	"errors"
	"io"
	"os"
	"testing"
)

func openTestFile(t *testing.T, eng *MockEngine, ctx *Context, name string, content []byte) *File {
	t.Helper()
	eng.AddFile(name, content, 0644)
	f, err := ctx.Open(name, os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("Open(%q) error = %v", name, err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestFile_ReadIsIOReader(t *testing.T) {
	eng, ctx := newTestContext(t)
	f := openTestFile(t, eng, ctx, "/share/a.txt", []byte("hello world"))

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("io.ReadAll() error = %v", err)
	}
	if string(data) != "hello world" {
		t.Errorf("read %q, want %q", data, "hello world")
	}

	// At EOF every further Read reports io.EOF.
	if _, err := f.Read(make([]byte, 4)); err != io.EOF {
		t.Errorf("Read() at EOF error = %v, want io.EOF", err)
	}
	if _, err := f.Read(make([]byte, 4)); err != io.EOF {
		t.Errorf("repeated Read() at EOF error = %v, want io.EOF", err)
	}
}

func TestFile_ReadNReportsEOFAsZero(t *testing.T) {
	eng, ctx := newTestContext(t)
	f := openTestFile(t, eng, ctx, "/share/a.txt", []byte("abc"))

	buf := make([]byte, 8)
	n, err := f.ReadN(buf)
	if err != nil || n != 3 {
		t.Fatalf("ReadN() = (%d, %v), want (3, nil)", n, err)
	}
	n, err = f.ReadN(buf)
	if err != nil || n != 0 {
		t.Errorf("ReadN() at EOF = (%d, %v), want (0, nil)", n, err)
	}
}

func TestFile_ReadAllWithShortReads(t *testing.T) {
	eng, ctx := newTestContext(t)
	content := bytes.Repeat([]byte("0123456789"), 2000)
	f := openTestFile(t, eng, ctx, "/share/big.bin", content)

	// Force the engine to return short reads so ReadAll has to loop and
	// grow its buffer.
	eng.MaxReadChunk = 777

	data, err := f.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !bytes.Equal(data, content) {
		t.Errorf("ReadAll() returned %d bytes, want %d", len(data), len(content))
	}

	// The offset is now at the end; reading again is empty, not an error.
	data, err = f.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() at end error = %v", err)
	}
	if len(data) != 0 {
		t.Errorf("ReadAll() at end returned %d bytes, want 0", len(data))
	}
}

func TestFile_ReadAllFromOffset(t *testing.T) {
	eng, ctx := newTestContext(t)
	f := openTestFile(t, eng, ctx, "/share/a.txt", []byte("hello world"))

	if _, err := f.Seek(6, SeekStart); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	data, err := f.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(data) != "world" {
		t.Errorf("ReadAll() = %q, want %q", data, "world")
	}
}

func TestFile_WritePartialContract(t *testing.T) {
	eng, ctx := newTestContext(t)
	f := openTestFile(t, eng, ctx, "/share/a.txt", nil)
	eng.MaxWriteChunk = 4

	// Write reports exactly what the engine accepted.
	n, err := f.Write([]byte("0123456789"))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != 4 {
		t.Errorf("Write() = %d, want 4", n)
	}

	// WriteAll loops until everything is down.
	if err := f.WriteAll([]byte("abcdefghij")); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}
	got, _ := eng.GetFile("/share/a.txt")
	if string(got) != "0123abcdefghij" {
		t.Errorf("file content = %q", got)
	}
}

func TestFile_SeekWhence(t *testing.T) {
	eng, ctx := newTestContext(t)
	f := openTestFile(t, eng, ctx, "/share/a.txt", []byte("0123456789"))

	tests := []struct {
		offset int64
		whence int
		want   int64
	}{
		{4, SeekStart, 4},
		{2, SeekCurrent, 6},
		{-3, SeekEnd, 7},
		{0, SeekCurrent, 7},
	}
	for _, tt := range tests {
		got, err := f.Seek(tt.offset, tt.whence)
		if err != nil {
			t.Fatalf("Seek(%d, %d) error = %v", tt.offset, tt.whence, err)
		}
		if got != tt.want {
			t.Errorf("Seek(%d, %d) = %d, want %d", tt.offset, tt.whence, got, tt.want)
		}
	}

	if _, err := f.Seek(-1, SeekStart); err == nil {
		t.Error("Seek() to negative position succeeded")
	}
}

func TestFile_TruncateAndStat(t *testing.T) {
	eng, ctx := newTestContext(t)
	f := openTestFile(t, eng, ctx, "/share/a.txt", []byte("0123456789"))

	if err := f.Truncate(4); err != nil {
		t.Fatalf("Truncate() error = %v", err)
	}
	st, err := f.Stat()
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if st.Size != 4 {
		t.Errorf("Size = %d, want 4", st.Size)
	}

	if err := f.Truncate(8); err != nil {
		t.Fatalf("Truncate() grow error = %v", err)
	}
	got, _ := eng.GetFile("/share/a.txt")
	if !bytes.Equal(got, []byte("0123\x00\x00\x00\x00")) {
		t.Errorf("content after grow = %q", got)
	}
}

func TestFile_CloseIdempotent(t *testing.T) {
	eng, ctx := newTestContext(t)
	f := openTestFile(t, eng, ctx, "/share/a.txt", []byte("x"))

	if err := f.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if got := eng.HandleCount(); got != 0 {
		t.Errorf("engine handle count = %d, want 0", got)
	}
	if _, err := f.Stat(); !errors.Is(err, ErrClosed) {
		t.Errorf("Stat() after close error = %v, want ErrClosed", err)
	}
}

func TestFile_Splice(t *testing.T) {
	eng, ctx := newTestContext(t)
	src := openTestFile(t, eng, ctx, "/share/src.bin", bytes.Repeat([]byte("ab"), 5000))
	dst := openTestFile(t, eng, ctx, "/share/dst.bin", nil)

	var remnants []int64
	n, err := src.Splice(dst, 10000, func(remaining int64) bool {
		remnants = append(remnants, remaining)
		return true
	})
	if err != nil {
		t.Fatalf("Splice() error = %v", err)
	}
	if n != 10000 {
		t.Errorf("Splice() = %d, want 10000", n)
	}
	if len(remnants) == 0 || remnants[len(remnants)-1] != 0 {
		t.Errorf("progress remnants = %v", remnants)
	}
	got, _ := eng.GetFile("/share/dst.bin")
	if len(got) != 10000 {
		t.Errorf("dst length = %d, want 10000", len(got))
	}
}

func TestFile_SpliceAbort(t *testing.T) {
	eng, ctx := newTestContext(t)
	eng.MaxReadChunk = 1024
	src := openTestFile(t, eng, ctx, "/share/src.bin", bytes.Repeat([]byte("a"), 8192))
	dst := openTestFile(t, eng, ctx, "/share/dst.bin", nil)

	calls := 0
	n, err := src.Splice(dst, 8192, func(remaining int64) bool {
		calls++
		return calls < 2
	})
	if err != nil {
		t.Fatalf("Splice() error = %v", err)
	}
	if n >= 8192 {
		t.Errorf("Splice() copied %d bytes despite abort", n)
	}
}

func TestFile_SpliceAcrossContextsPanics(t *testing.T) {
	eng, ctx1 := newTestContext(t)
	ctx2, err := NewContext(eng.Table())
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	defer ctx2.Close()

	src := openTestFile(t, eng, ctx1, "/share/src.bin", []byte("data"))
	eng.AddFile("/share/dst.bin", nil, 0644)
	dst, err := ctx2.Open("/share/dst.bin", os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer dst.Close()

	defer func() {
		if _, ok := recover().(*LogicError); !ok {
			t.Error("cross-context Splice did not panic with *LogicError")
		}
	}()
	src.Splice(dst, 4, nil)
}
