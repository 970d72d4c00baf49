package smbc

import (
	"errors"
	"io/fs"
	"os"
	"syscall"
	"testing"
	"time"
)

func TestNewContext_NilTable(t *testing.T) {
	if _, err := NewContext(nil); err == nil {
		t.Error("NewContext(nil) succeeded")
	}
	if _, err := NewContext(&CallTable{}); err == nil {
		t.Error("NewContext with empty table succeeded")
	}
}

func TestContext_CloseIdempotent(t *testing.T) {
	eng, ctx := newTestContext(t)

	if err := ctx.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := ctx.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	frees := 0
	for _, op := range eng.Operations() {
		if op.Op == "free" {
			frees++
		}
	}
	if frees != 1 {
		t.Errorf("native context freed %d times, want 1", frees)
	}
}

func TestContext_OperationsAfterClose(t *testing.T) {
	_, ctx := newTestContext(t)
	ctx.Close()

	if _, err := ctx.Stat("/share/a.txt"); !errors.Is(err, ErrClosed) {
		t.Errorf("Stat() after close error = %v, want ErrClosed", err)
	}
	if _, err := ctx.Open("/share/a.txt", os.O_RDONLY, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("Open() after close error = %v, want ErrClosed", err)
	}
}

func TestContext_NulByteRejected(t *testing.T) {
	_, ctx := newTestContext(t)

	if _, err := ctx.Stat("/share/a\x00b"); !errors.Is(err, ErrNulByte) {
		t.Errorf("Stat() error = %v, want ErrNulByte", err)
	}
	if err := ctx.Mkdir("/share/a\x00b", 0755); !errors.Is(err, ErrNulByte) {
		t.Errorf("Mkdir() error = %v, want ErrNulByte", err)
	}
	if err := ctx.SetXattr("/share", "user.\x00attr", nil, 0); !errors.Is(err, ErrNulByte) {
		t.Errorf("SetXattr() with NUL attribute error = %v, want ErrNulByte", err)
	}
}

func TestContext_StatDecodes(t *testing.T) {
	eng, ctx := newTestContext(t)
	eng.AddFile("/share/a.txt", []byte("hello"), 0644)

	st, err := ctx.Stat("/share/a.txt")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if st.Size != 5 {
		t.Errorf("Size = %d, want 5", st.Size)
	}
	if !st.IsRegular() || st.IsDir() {
		t.Errorf("type bits wrong: mode %o", st.Mode)
	}
	if st.ModTime.IsZero() {
		t.Error("ModTime is zero")
	}

	st, err = ctx.Stat("/share")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if !st.IsDir() {
		t.Error("directory not reported as IsDir")
	}
}

func TestContext_StatMissing(t *testing.T) {
	_, ctx := newTestContext(t)

	_, err := ctx.Stat("/share/nope")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat() error = %v, want fs.ErrNotExist", err)
	}
	var oe *OpError
	if !errors.As(err, &oe) {
		t.Fatalf("error %T does not wrap *OpError", err)
	}
	if oe.Errno() != syscall.ENOENT {
		t.Errorf("Errno() = %v, want ENOENT", oe.Errno())
	}
}

func TestContext_RenameAcrossContexts(t *testing.T) {
	eng, ctx1 := newTestContext(t)
	ctx2, err := NewContext(eng.Table())
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	defer ctx2.Close()

	eng.AddFile("/share/old.txt", []byte("data"), 0644)
	if err := ctx1.Rename("/share/old.txt", ctx2, "/share/new.txt"); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if eng.FileExists("/share/old.txt") {
		t.Error("old path still exists")
	}
	if _, ok := eng.GetFile("/share/new.txt"); !ok {
		t.Error("new path missing")
	}
}

func TestContext_SetTimesUsesMicroseconds(t *testing.T) {
	eng, ctx := newTestContext(t)
	eng.AddFile("/share/a.txt", nil, 0644)

	atime := time.Date(2024, 5, 1, 12, 0, 0, 123_456_789, time.UTC)
	mtime := time.Date(2024, 5, 2, 12, 0, 0, 999_999_999, time.UTC)
	if err := ctx.SetTimes("/share/a.txt", atime, mtime); err != nil {
		t.Fatalf("SetTimes() error = %v", err)
	}

	var rec *MockOperation
	for _, op := range eng.Operations() {
		if op.Op == "utimes" {
			op := op
			rec = &op
		}
	}
	if rec == nil {
		t.Fatal("no utimes operation recorded")
	}
	// Sub-microsecond precision must be truncated, not rounded.
	if got := rec.Args[0].(int64); got != atime.UnixMicro() {
		t.Errorf("atime usec = %d, want %d", got, atime.UnixMicro())
	}
	if got := rec.Args[1].(int64); got != mtime.UnixMicro() {
		t.Errorf("mtime usec = %d, want %d", got, mtime.UnixMicro())
	}
}

func TestContext_XattrAbsentIsNotError(t *testing.T) {
	eng, ctx := newTestContext(t)
	eng.AddFile("/share/a.txt", nil, 0644)

	val, ok, err := ctx.GetXattr("/share/a.txt", "user.missing")
	if err != nil {
		t.Fatalf("GetXattr() error = %v", err)
	}
	if ok || val != nil {
		t.Errorf("GetXattr() = (%q, %v), want absent", val, ok)
	}

	// A real failure stays an error.
	_, _, err = ctx.GetXattr("/share/nope", "user.missing")
	if err == nil {
		t.Error("GetXattr() on missing file succeeded")
	}
}

func TestContext_XattrRoundTrip(t *testing.T) {
	eng, ctx := newTestContext(t)
	eng.AddFile("/share/a.txt", nil, 0644)

	if err := ctx.SetXattr("/share/a.txt", "user.color", []byte("teal"), 0); err != nil {
		t.Fatalf("SetXattr() error = %v", err)
	}
	val, ok, err := ctx.GetXattr("/share/a.txt", "user.color")
	if err != nil || !ok {
		t.Fatalf("GetXattr() = (%v, %v), want value", ok, err)
	}
	if string(val) != "teal" {
		t.Errorf("value = %q, want %q", val, "teal")
	}

	if err := ctx.SetXattr("/share/a.txt", "user.color", nil, XattrFlagCreate); err == nil {
		t.Error("SetXattr(create) on existing attribute succeeded")
	}
	if err := ctx.SetXattr("/share/a.txt", "user.other", nil, XattrFlagReplace); err == nil {
		t.Error("SetXattr(replace) on missing attribute succeeded")
	}

	names, err := ctx.ListXattr("/share/a.txt")
	if err != nil {
		t.Fatalf("ListXattr() error = %v", err)
	}
	if len(names) != 1 || names[0] != "user.color" {
		t.Errorf("ListXattr() = %v, want [user.color]", names)
	}

	if err := ctx.RemoveXattr("/share/a.txt", "user.color"); err != nil {
		t.Fatalf("RemoveXattr() error = %v", err)
	}
	if _, ok, _ := ctx.GetXattr("/share/a.txt", "user.color"); ok {
		t.Error("attribute still present after RemoveXattr")
	}
}

func TestContext_OptionsForwarded(t *testing.T) {
	eng, ctx := newTestContext(t)

	ctx.SetDebug(3).SetWorkgroup("LAB").SetUseKerberos(true).SetTimeout(5000)

	if got := ctx.Debug(); got != 3 {
		t.Errorf("Debug() = %d, want 3", got)
	}
	if got := ctx.Workgroup(); got != "LAB" {
		t.Errorf("Workgroup() = %q, want LAB", got)
	}
	if !ctx.UseKerberos() {
		t.Error("UseKerberos() = false")
	}

	if v, ok := eng.ContextOption(ctx.ID(), OptDebug); !ok || v.(int) != 3 {
		t.Errorf("engine saw OptDebug = %v, %v", v, ok)
	}
	if v, ok := eng.ContextOption(ctx.ID(), OptWorkgroup); !ok || v.(string) != "LAB" {
		t.Errorf("engine saw OptWorkgroup = %v, %v", v, ok)
	}
	if v, ok := eng.ContextOption(ctx.ID(), OptTimeout); !ok || v.(int) != 5000 {
		t.Errorf("engine saw OptTimeout = %v, %v", v, ok)
	}
}

func TestContext_OptionRejectedKeepsLocalValue(t *testing.T) {
	eng, ctx := newTestContext(t)
	eng.SetOperationError("option", syscall.EINVAL)

	// The setter logs and swallows the failure.
	ctx.SetPort(10445)
	if got := ctx.Port(); got != 10445 {
		t.Errorf("Port() = %d, want 10445", got)
	}
	if _, ok := eng.ContextOption(ctx.ID(), OptPort); ok {
		t.Error("rejected option reached the engine")
	}
}

func TestContext_PrintJobs(t *testing.T) {
	eng, ctx := newTestContext(t)
	eng.AddFile("/docs/report.txt", []byte("pages"), 0644)

	if err := ctx.PrintFile("/docs/report.txt", nil, "printer1"); err != nil {
		t.Fatalf("PrintFile() error = %v", err)
	}
	id := eng.AddPrintJob("printer1", "alice", "memo", 42)

	var jobs []PrintJobInfo
	for job, err := range ctx.ListPrintJobs("printer1") {
		if err != nil {
			t.Fatalf("ListPrintJobs() error = %v", err)
		}
		jobs = append(jobs, job)
	}
	if len(jobs) != 2 {
		t.Fatalf("got %d jobs, want 2", len(jobs))
	}
	if jobs[0].Name != "report.txt" || jobs[0].Size != 5 {
		t.Errorf("job[0] = %+v", jobs[0])
	}
	if jobs[1].ID != id || jobs[1].User != "alice" {
		t.Errorf("job[1] = %+v", jobs[1])
	}

	if err := ctx.UnlinkPrintJob("printer1", id); err != nil {
		t.Fatalf("UnlinkPrintJob() error = %v", err)
	}
	count := 0
	for _, err := range ctx.ListPrintJobs("printer1") {
		if err != nil {
			t.Fatalf("ListPrintJobs() error = %v", err)
		}
		count++
	}
	if count != 1 {
		t.Errorf("got %d jobs after unlink, want 1", count)
	}
}

func TestContext_ListPrintJobsEarlyStop(t *testing.T) {
	eng, ctx := newTestContext(t)
	for i := 0; i < 5; i++ {
		eng.AddPrintJob("printer1", "bob", "doc", 1)
	}

	seen := 0
	for range ctx.ListPrintJobs("printer1") {
		seen++
		if seen == 2 {
			break
		}
	}
	if seen != 2 {
		t.Errorf("saw %d jobs, want 2", seen)
	}
}

func TestContext_OpenPrintJob(t *testing.T) {
	_, ctx := newTestContext(t)

	job, err := ctx.OpenPrintJob("printer1")
	if err != nil {
		t.Fatalf("OpenPrintJob() error = %v", err)
	}
	if err := job.WriteAll([]byte("spooled data")); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}
	if err := job.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	var sizes []int64
	for job, err := range ctx.ListPrintJobs("printer1") {
		if err != nil {
			t.Fatalf("ListPrintJobs() error = %v", err)
		}
		sizes = append(sizes, job.Size)
	}
	if len(sizes) != 1 || sizes[0] != int64(len("spooled data")) {
		t.Errorf("spooled job sizes = %v", sizes)
	}
}

func TestContext_NotSupportedSlots(t *testing.T) {
	table := &CallTable{
		NewContext:  func() (ContextID, error) { return 1, nil },
		FreeContext: func(ContextID, bool) error { return nil },
	}
	ctx, err := NewContext(table)
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	defer ctx.Close()

	if _, err := ctx.Stat("/x"); !errors.Is(err, ErrNotSupported) {
		t.Errorf("Stat() error = %v, want ErrNotSupported", err)
	}
	if err := ctx.Mkdir("/x", 0755); !errors.Is(err, ErrNotSupported) {
		t.Errorf("Mkdir() error = %v, want ErrNotSupported", err)
	}
}

func TestContext_Version(t *testing.T) {
	_, ctx := newTestContext(t)
	if got := ctx.Version(); got != "mock/1" {
		t.Errorf("Version() = %q, want mock/1", got)
	}
}
