package smbc

// Options mirrors the tunable knobs of a context. The zero value means
// "engine defaults"; each setter forwards to the engine and records the
// value locally so getters never round-trip.
type Options struct {
	Debug             int
	DebugToStderr     bool
	NetbiosName       string
	Workgroup         string
	User              string
	Timeout           int
	Port              int
	ShareMode         ShareMode
	EncryptionLevel   EncryptLevel
	CaseSensitive     bool
	BrowseMaxLmbCount int
	URLEncodeReaddir  bool
	OneSharePerServer bool
	UseKerberos       bool
	FallbackAfterKrb  bool
	NoAutoAnonymous   bool
	UseCCache         bool
	UseNTHash         bool
	FullTimeNames     bool
}

// applyOption forwards one option change to the engine. Failures are
// logged and swallowed; an engine that rejects an option keeps its
// previous value.
func (c *Context) applyOption(opt Option, value interface{}) *Context {
	if c.table.ApplyOption == nil {
		return c
	}
	if err := c.table.ApplyOption(c.id, opt, value); err != nil && c.logger != nil {
		c.logger.Printf("smbc: option %d rejected: %v", opt, err)
	}
	return c
}

// Debug returns the debug verbosity level.
func (c *Context) Debug() int { return c.opts.Debug }

// SetDebug sets the debug verbosity level. Chainable.
func (c *Context) SetDebug(level int) *Context {
	c.opts.Debug = level
	return c.applyOption(OptDebug, level)
}

// DebugToStderr reports whether debug output goes to stderr instead of
// stdout.
func (c *Context) DebugToStderr() bool { return c.opts.DebugToStderr }

// SetDebugToStderr redirects debug output to stderr. Chainable.
func (c *Context) SetDebugToStderr(v bool) *Context {
	c.opts.DebugToStderr = v
	return c.applyOption(OptDebugToStderr, v)
}

// NetbiosName returns the client NetBIOS name.
func (c *Context) NetbiosName() string { return c.opts.NetbiosName }

// SetNetbiosName sets the client NetBIOS name. Chainable.
func (c *Context) SetNetbiosName(name string) *Context {
	c.opts.NetbiosName = name
	return c.applyOption(OptNetbiosName, name)
}

// Workgroup returns the default workgroup.
func (c *Context) Workgroup() string { return c.opts.Workgroup }

// SetWorkgroup sets the default workgroup. Chainable.
func (c *Context) SetWorkgroup(wg string) *Context {
	c.opts.Workgroup = wg
	return c.applyOption(OptWorkgroup, wg)
}

// User returns the default username.
func (c *Context) User() string { return c.opts.User }

// SetUser sets the default username. Chainable.
func (c *Context) SetUser(user string) *Context {
	c.opts.User = user
	return c.applyOption(OptUser, user)
}

// Timeout returns the request timeout in milliseconds.
func (c *Context) Timeout() int { return c.opts.Timeout }

// SetTimeout sets the request timeout in milliseconds. Chainable.
func (c *Context) SetTimeout(ms int) *Context {
	c.opts.Timeout = ms
	return c.applyOption(OptTimeout, ms)
}

// Port returns the server port override; 0 means protocol default.
func (c *Context) Port() int { return c.opts.Port }

// SetPort sets the server port override. Chainable.
func (c *Context) SetPort(port int) *Context {
	c.opts.Port = port
	return c.applyOption(OptPort, port)
}

// OpenShareMode returns the open share mode.
func (c *Context) OpenShareMode() ShareMode { return c.opts.ShareMode }

// SetShareMode sets the open share mode. Chainable.
func (c *Context) SetShareMode(m ShareMode) *Context {
	c.opts.ShareMode = m
	return c.applyOption(OptOpenShareMode, m)
}

// EncryptionLevel returns the transport encryption level.
func (c *Context) EncryptionLevel() EncryptLevel { return c.opts.EncryptionLevel }

// SetEncryptionLevel sets the transport encryption level. Chainable.
func (c *Context) SetEncryptionLevel(l EncryptLevel) *Context {
	c.opts.EncryptionLevel = l
	return c.applyOption(OptEncryptLevel, l)
}

// CaseSensitive reports whether path lookups are case sensitive.
func (c *Context) CaseSensitive() bool { return c.opts.CaseSensitive }

// SetCaseSensitive toggles case-sensitive path lookups. Chainable.
func (c *Context) SetCaseSensitive(v bool) *Context {
	c.opts.CaseSensitive = v
	return c.applyOption(OptCaseSensitive, v)
}

// BrowseMaxLmbCount returns the master-browser query limit.
func (c *Context) BrowseMaxLmbCount() int { return c.opts.BrowseMaxLmbCount }

// SetBrowseMaxLmbCount sets the master-browser query limit. Chainable.
func (c *Context) SetBrowseMaxLmbCount(n int) *Context {
	c.opts.BrowseMaxLmbCount = n
	return c.applyOption(OptBrowseMaxLmbCount, n)
}

// URLEncodeReaddir reports whether directory entry names come back
// URL-encoded.
func (c *Context) URLEncodeReaddir() bool { return c.opts.URLEncodeReaddir }

// SetURLEncodeReaddir toggles URL encoding of directory entry names.
// Chainable.
func (c *Context) SetURLEncodeReaddir(v bool) *Context {
	c.opts.URLEncodeReaddir = v
	return c.applyOption(OptURLEncodeReaddirEntries, v)
}

// OneSharePerServer reports whether at most one share is kept open per
// server connection.
func (c *Context) OneSharePerServer() bool { return c.opts.OneSharePerServer }

// SetOneSharePerServer toggles the one-share-per-server mode. Chainable.
func (c *Context) SetOneSharePerServer(v bool) *Context {
	c.opts.OneSharePerServer = v
	return c.applyOption(OptOneSharePerServer, v)
}

// UseKerberos reports whether Kerberos authentication is attempted.
func (c *Context) UseKerberos() bool { return c.opts.UseKerberos }

// SetUseKerberos toggles Kerberos authentication. Chainable.
func (c *Context) SetUseKerberos(v bool) *Context {
	c.opts.UseKerberos = v
	return c.applyOption(OptUseKerberos, v)
}

// FallbackAfterKerberos reports whether NTLM is tried after a Kerberos
// failure.
func (c *Context) FallbackAfterKerberos() bool { return c.opts.FallbackAfterKrb }

// SetFallbackAfterKerberos toggles the NTLM fallback after a Kerberos
// failure. Chainable.
func (c *Context) SetFallbackAfterKerberos(v bool) *Context {
	c.opts.FallbackAfterKrb = v
	return c.applyOption(OptFallbackAfterKerberos, v)
}

// NoAutoAnonymousLogin reports whether automatic anonymous fallback is
// disabled.
func (c *Context) NoAutoAnonymousLogin() bool { return c.opts.NoAutoAnonymous }

// SetNoAutoAnonymousLogin toggles automatic anonymous fallback.
// Chainable.
func (c *Context) SetNoAutoAnonymousLogin(v bool) *Context {
	c.opts.NoAutoAnonymous = v
	return c.applyOption(OptNoAutoAnonymousLogin, v)
}

// UseCCache reports whether the Kerberos credential cache is consulted.
func (c *Context) UseCCache() bool { return c.opts.UseCCache }

// SetUseCCache toggles use of the Kerberos credential cache. Chainable.
func (c *Context) SetUseCCache(v bool) *Context {
	c.opts.UseCCache = v
	return c.applyOption(OptUseCCache, v)
}

// UseNTHash reports whether the password field is interpreted as an NT
// hash instead of plaintext.
func (c *Context) UseNTHash() bool { return c.opts.UseNTHash }

// SetUseNTHash toggles NT-hash password interpretation. Chainable.
func (c *Context) SetUseNTHash(v bool) *Context {
	c.opts.UseNTHash = v
	return c.applyOption(OptUseNTHash, v)
}

// FullTimeNames reports whether long-form timestamp attribute names are
// used.
func (c *Context) FullTimeNames() bool { return c.opts.FullTimeNames }

// SetFullTimeNames toggles long-form timestamp attribute names.
// Chainable.
func (c *Context) SetFullTimeNames(v bool) *Context {
	c.opts.FullTimeNames = v
	return c.applyOption(OptFullTimeNames, v)
}

