// Package lookup implements the asynchronous multi-key attribute
// lookup engine.
//
// One request fans out into one store read per requested attribute
// (plus, when needed, an implicit event log read), fans back in as a
// single settlement, and produces exactly one response: either a
// complete object with every requested key, or a structured error.
// Never a partial payload, never silence.
//
// Per-request flow:
//  1. validate (flags subset, keys well-formed) - violations respond
//     immediately, before any state is created or read issued
//  2. authorization fast paths (owner, positive cache)
//  3. side-input decision: the event log joins the read set when
//     authorization is still undetermined or a CURRENT reconstruction
//     will need it
//  4. fan-out via a fanin.Composite, one child per unique key
//  5. on settlement: finalize authorization from the event log if
//     still pending, reconstruct CURRENT keys, assemble the response
//     in request key order
//
// A missing or empty stored value fails the whole request (PROTO):
// responses are all-or-nothing, not per-key partial success.
package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"

	"github.com/meridian-hpc/jobmeta/internal/auth"
	"github.com/meridian-hpc/jobmeta/internal/current"
	"github.com/meridian-hpc/jobmeta/internal/eventlog"
	"github.com/meridian-hpc/jobmeta/internal/fanin"
	"github.com/meridian-hpc/jobmeta/internal/jobkey"
	"github.com/meridian-hpc/jobmeta/internal/kvs"
)

// Service is the lookup orchestrator. Safe for concurrent use; each
// Lookup call owns its request state exclusively and the only shared
// mutable state is the authorization cache and the in-flight registry,
// both internally synchronized.
type Service struct {
	reader   kvs.Reader
	ownerID  uint64
	cache    *auth.Cache
	registry *Registry
	tokens   TokenGenerator
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithTokenGenerator overrides the registry token generator.
// Tests use NewFixedGenerator for deterministic tokens.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(s *Service) { s.tokens = g }
}

// WithAuthCache supplies a pre-sized authorization cache.
func WithAuthCache(c *auth.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// New creates a Service reading from reader. ownerID is the trusted
// owner principal: its requests bypass the authorization machinery
// entirely.
func New(reader kvs.Reader, ownerID uint64, opts ...Option) *Service {
	s := &Service{
		reader:   reader,
		ownerID:  ownerID,
		cache:    auth.NewCache(auth.DefaultCacheCapacity),
		registry: NewRegistry(),
		tokens:   UUIDv7Generator{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry exposes the in-flight registry (for inspection and serving
// lifecycle).
func (s *Service) Registry() *Registry { return s.registry }

// Shutdown forces every outstanding lookup to settle with UNAVAILABLE
// and refuses new ones. Idempotent.
func (s *Service) Shutdown() { s.registry.ShutdownAll() }

// lookupState is the per-request context, owned exclusively by one
// Lookup call for its lifetime.
type lookupState struct {
	ctx   context.Context
	id    uint64
	keys  []string
	flags Flag
	creds auth.Credentials

	// allow is the authorization gate: false means not yet
	// determined; finalization must resolve it from the event log
	// before any value is returned.
	allow bool

	comp *fanin.Composite

	// decoded event log, memoized across auth and reconstruction
	entries        []eventlog.Entry
	entriesDecoded bool
}

// Lookup performs one multi-key attribute lookup and returns the
// assembled compact JSON response, with keys in request order.
//
// Exactly one of payload and error is non-nil. The error, when
// present, is always a *Error carrying the failure Code.
func (s *Service) Lookup(ctx context.Context, req Request, creds auth.Credentials) (json.RawMessage, error) {
	keys, err := validateRequest(req)
	if err != nil {
		return nil, err
	}

	lctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	token := s.tokens.Generate()
	if err := s.registry.Insert(token, cancel); err != nil {
		return nil, &Error{Code: CodeUnavailable, Message: "service shutting down", JobID: req.ID}
	}
	// Single cleanup point for every path, success or error.
	defer s.registry.Remove(token)

	l := &lookupState{
		ctx:   lctx,
		id:    req.ID,
		keys:  keys,
		flags: req.Flags,
		creds: creds,
	}
	s.checkAllow(l)

	l.comp = fanin.New(lctx)
	if s.needEventlog(l) {
		// Deduplicated against an explicitly requested eventlog key
		// by the composite's idempotent Add.
		l.comp.Add(KeyEventlog, s.readOp(l.id, KeyEventlog))
	}
	for _, key := range keys {
		l.comp.Add(key, s.readOp(l.id, key))
	}

	// All children are issued before the composite is armed, so no
	// settlement can be missed.
	done := make(chan struct{})
	var payload json.RawMessage
	var lookupErr error
	l.comp.OnSettle(func() {
		payload, lookupErr = s.finalize(l)
		close(done)
	})
	<-done

	return payload, lookupErr
}

// checkAllow resolves the authorization fast paths: the owner
// principal is granted unconditionally, and a positive cache hit
// grants without consulting the event log. Anything else defers the
// decision to finalization.
func (s *Service) checkAllow(l *lookupState) {
	if !l.creds.Anonymous && l.creds.UserID == s.ownerID {
		l.allow = true
		return
	}
	if s.cache.Lookup(l.id) {
		l.allow = true
	}
}

// needEventlog decides whether the event log joins the read set as a
// side input: required while authorization is undetermined, or when a
// CURRENT reconstruction of a requested key will replay it.
func (s *Service) needEventlog(l *lookupState) bool {
	if !l.allow {
		return true
	}
	if l.flags&FlagCurrent == 0 {
		return false
	}
	for _, key := range l.keys {
		if current.Reconstructable(key) {
			return true
		}
	}
	return false
}

// readOp builds the asynchronous store read for one attribute.
func (s *Service) readOp(id uint64, key string) fanin.Op {
	return func(ctx context.Context) ([]byte, error) {
		path, err := jobkey.Derive(id, key)
		if err != nil {
			s.logger.Error("derive store path", "job", id, "key", key, "error", err)
			return nil, err
		}
		return s.reader.Get(ctx, path)
	}
}

// finalize runs once, on composite settlement: it resolves any pending
// authorization, then assembles the response in request key order.
func (s *Service) finalize(l *lookupState) (json.RawMessage, error) {
	if !l.allow {
		entries, err := s.eventlogEntries(l)
		if err != nil {
			return nil, err
		}
		if !auth.GuestAllowed(entries, l.creds) {
			return nil, &Error{Code: CodeDenied, Message: "guest access denied", JobID: l.id}
		}
		l.allow = true
		// Positive determinations only; a denial is re-evaluated on
		// every request since access may become valid later.
		s.cache.RecordGranted(l.id)
	}

	var buf bytes.Buffer
	buf.WriteString(`{"id":`)
	buf.WriteString(strconv.FormatUint(l.id, 10))

	for _, key := range l.keys {
		value, err := s.keyValue(l, key)
		if err != nil {
			return nil, err
		}
		name, _ := json.Marshal(key)
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		if err := value.appendJSON(&buf); err != nil {
			return nil, internalError(l.id, key, "serialize response value", err)
		}
	}
	buf.WriteByte('}')

	return json.RawMessage(buf.Bytes()), nil
}

// keyValue produces the response value for one requested key from its
// settled child read.
func (s *Service) keyValue(l *lookupState, key string) (Value, error) {
	raw, err := s.childValue(l, key)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		// An empty stored value is treated the same as an absent one.
		return nil, protoError(l.id, key, "empty stored value")
	}

	if l.flags&FlagCurrent != 0 && current.Reconstructable(key) {
		entries, err := s.eventlogEntries(l)
		if err != nil {
			return nil, err
		}
		derived, err := current.Reconstruct(s.logger, l.id, key, raw, entries)
		if err != nil {
			if errors.Is(err, current.ErrMalformedValue) {
				return nil, invalidError(l.id, key, "malformed stored value", err)
			}
			return nil, internalError(l.id, key, "reconstruct current value", err)
		}
		raw = derived
	}

	// JSON decoding comes last: the reconstruction above changes the
	// text the decode applies to.
	if l.flags&FlagJSONDecode != 0 && (key == KeyJobspec || key == KeyResources) {
		doc, err := NewDocument(raw)
		if err != nil {
			// Values fetched from the store were written by a trusted
			// writer and assumed well-formed JSON.
			return nil, internalError(l.id, key, "decode stored document", err)
		}
		return doc, nil
	}
	return String(raw), nil
}

// eventlogEntries returns the decoded event log, memoized so the
// authorization gate and reconstruction share one decode.
func (s *Service) eventlogEntries(l *lookupState) ([]eventlog.Entry, error) {
	if l.entriesDecoded {
		return l.entries, nil
	}
	raw, err := s.childValue(l, KeyEventlog)
	if err != nil {
		return nil, err
	}
	entries, err := eventlog.Decode(string(raw))
	if err != nil {
		s.logger.Error("malformed event log", "job", l.id, "error", err)
		return nil, invalidError(l.id, KeyEventlog, "malformed event log", err)
	}
	l.entries = entries
	l.entriesDecoded = true
	return entries, nil
}

// childValue fetches a settled child read by name, mapping store
// failures onto the error taxonomy.
func (s *Service) childValue(l *lookupState, name string) ([]byte, error) {
	child, ok := l.comp.Child(name)
	if !ok {
		// Every needed child is added before arming; absence is a bug.
		return nil, internalError(l.id, name, "no child read registered", nil)
	}
	value, err := child.Value()
	if err != nil {
		return nil, s.mapReadError(l, name, err)
	}
	return value, nil
}

// mapReadError classifies a child read failure. A missing key is an
// expected condition: fatal to the response but not logged. Everything
// else is logged with operation context.
func (s *Service) mapReadError(l *lookupState, key string, err error) error {
	switch {
	case errors.Is(err, kvs.ErrNotFound):
		return protoError(l.id, key, "no such attribute")
	case context.Cause(l.ctx) == ErrShuttingDown:
		return &Error{Code: CodeUnavailable, Message: "service shutting down", JobID: l.id, Key: key}
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return internalError(l.id, key, "lookup cancelled", err)
	default:
		s.logger.Error("store read failed", "job", l.id, "key", key, "error", err)
		return internalError(l.id, key, "store read failed", err)
	}
}
