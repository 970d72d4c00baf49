package smbc

import (
	"strings"
	"sync"
)

// Wildcards accepted by SetAuthEntry for matching any server or share.
const (
	AuthAnyServer = "*"
	AuthAnyShare  = "*"
)

// BoundedBuffer is a fixed-capacity string cell handed to credential
// callbacks. Its capacity includes one byte reserved for a terminator,
// so a buffer of capacity n holds at most n-1 content bytes.
type BoundedBuffer struct {
	val []byte
	max int
}

// NewBoundedBuffer returns a buffer of the given capacity holding
// initial, which must fit.
func NewBoundedBuffer(initial string, max int) (*BoundedBuffer, error) {
	b := &BoundedBuffer{max: max}
	if err := b.Set(initial); err != nil {
		return nil, err
	}
	return b, nil
}

// Cap returns the buffer's capacity, terminator included.
func (b *BoundedBuffer) Cap() int {
	return b.max
}

// String returns the current contents.
func (b *BoundedBuffer) String() string {
	return string(b.val)
}

// Set replaces the contents. Values containing a NUL byte are rejected
// with ErrNulByte; values that do not fit with ErrValueTooLong.
func (b *BoundedBuffer) Set(s string) error {
	if strings.IndexByte(s, 0) >= 0 {
		return ErrNulByte
	}
	if len(s) >= b.max {
		return ErrValueTooLong
	}
	b.val = append(b.val[:0], s...)
	return nil
}

// Credentials is one stored credential triple.
type Credentials struct {
	Workgroup string
	Username  string
	Password  string
}

type authKey struct {
	server string
	share  string
}

// AuthTable maps (server, share) pairs to credentials, with wildcard
// fallback. Safe for concurrent use.
type AuthTable struct {
	mu      sync.Mutex
	entries map[authKey]Credentials
}

// NewAuthTable returns an empty table.
func NewAuthTable() *AuthTable {
	return &AuthTable{entries: make(map[authKey]Credentials)}
}

// Set stores credentials for the (server, share) pair. Either part may
// be AuthAnyServer / AuthAnyShare to act as a fallback.
func (t *AuthTable) Set(server, share string, cred Credentials) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[authKey{server, share}] = cred
}

// Remove deletes the entry for the exact (server, share) pair, if any.
func (t *AuthTable) Remove(server, share string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, authKey{server, share})
}

// Len returns the number of stored entries.
func (t *AuthTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Lookup resolves credentials for a connection attempt, trying the
// exact pair first, then (server, *), then (*, *).
func (t *AuthTable) Lookup(server, share string) (Credentials, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, k := range []authKey{
		{server, share},
		{server, AuthAnyShare},
		{AuthAnyServer, AuthAnyShare},
	} {
		if cred, ok := t.entries[k]; ok {
			return cred, true
		}
	}
	return Credentials{}, false
}

// hook is the AuthDataFunc the table installs on a context. Buffer
// overflows are reported to the logger and leave the engine's value in
// place.
func (t *AuthTable) hook(logger Logger) AuthDataFunc {
	return func(server, share string, workgroup, username, password *BoundedBuffer) {
		cred, ok := t.Lookup(server, share)
		if !ok {
			return
		}
		for _, f := range []struct {
			buf *BoundedBuffer
			val string
		}{
			{workgroup, cred.Workgroup},
			{username, cred.Username},
			{password, cred.Password},
		} {
			if err := f.buf.Set(f.val); err != nil && logger != nil {
				logger.Printf("smbc: auth entry for %s/%s not applied: %v", server, share, err)
			}
		}
	}
}

// SetAuthEntry stores credentials for the (server, share) pair and, on
// first use, installs the table's resolution hook on the engine.
// Chainable.
func (c *Context) SetAuthEntry(server, share string, cred Credentials) *Context {
	if c.auth == nil {
		c.auth = NewAuthTable()
		c.SetAuthData(c.auth.hook(c.logger))
	}
	c.auth.Set(server, share, cred)
	return c
}

// RemoveAuthEntry deletes the stored credentials for the exact
// (server, share) pair. The resolution hook stays installed even when
// the table becomes empty; later SetAuthEntry calls reuse it.
// Chainable.
func (c *Context) RemoveAuthEntry(server, share string) *Context {
	if c.auth != nil {
		c.auth.Remove(server, share)
	}
	return c
}

// SetCredentialsWithFallback stores a wildcard credential matching any
// server and share. Chainable.
func (c *Context) SetCredentialsWithFallback(workgroup, username, password string) *Context {
	return c.SetAuthEntry(AuthAnyServer, AuthAnyShare, Credentials{
		Workgroup: workgroup,
		Username:  username,
		Password:  password,
	})
}

// SetAuthData installs a raw credential callback, replacing any table
// hook. Chainable.
func (c *Context) SetAuthData(fn AuthDataFunc) *Context {
	c.authFn = fn
	if c.table.SetAuthData != nil {
		c.table.SetAuthData(c.id, fn)
	}
	return c
}
