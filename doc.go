// Package smbc is a client-side access layer for SMB/CIFS resources.
//
// All protocol work goes through a CallTable, a struct of nullable
// function slots an engine fills in. The smb2engine subpackage provides
// a table backed by real SMB2/3 connections; MockEngine provides an
// in-memory one for tests. On top of the table the package maintains
// handle identity (one canonical *File or *Dir per live native handle),
// an optional per-context dispatch worker for asynchronous use, a
// credential table with wildcard fallback, and a channel-based change
// notification adapter.
//
// Basic use:
//
//	ctx, err := smbc.NewContext(engine.Table())
//	if err != nil { ... }
//	defer ctx.Close()
//
//	f, err := ctx.Open("smb://server/share/report.txt", os.O_RDONLY, 0)
//	if err != nil { ... }
//	data, err := f.ReadAll()
//
// For asynchronous use, enable the dispatch worker and funnel
// operations through Dispatch:
//
//	ctx.EnableAsync()
//	fut := smbc.Dispatch(ctx, func() ([]byte, error) { return f.ReadAll() })
//	data, err := fut.Await(context.Background())
package smbc
