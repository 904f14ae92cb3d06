package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/langcheck/internal/correction"
	"github.com/nerrad567/langcheck/internal/engine"
	"github.com/nerrad567/langcheck/internal/engineconfig"
	"github.com/nerrad567/langcheck/internal/langtag"
	"github.com/nerrad567/langcheck/internal/match"
)

// maxResponseBytes bounds how much of a reply is read.
const maxResponseBytes = 64 << 20

// Client checks text against a local or remote grammar engine.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Request settings are guarded by an RWMutex; a check uses a snapshot.
type Client struct {
	opts   Options
	logger Logger
	http   *http.Client

	// Exactly one of sup and remoteURL is set.
	sup       *engine.Supervisor
	remoteURL string

	spellingPath  string
	addedSpelling []string

	mu       sync.RWMutex
	settings settings

	langMu    sync.Mutex
	langs     []string
	langsGen  int
	langsSet  bool
	closeOnce sync.Once
	closed    atomic.Bool
	closeErr  error
}

// New creates a client. Without Options.RemoteURL it launches and
// supervises a local engine, which blocks until the engine is ready.
func New(ctx context.Context, opts Options) (*Client, error) {
	opts.applyDefaults()

	c := &Client{
		opts:     opts,
		logger:   opts.Logger,
		http:     opts.HTTPClient,
		settings: newSettings(),
	}

	if opts.RemoteURL != "" {
		if len(opts.ServerConfig) > 0 {
			return nil, ErrRemoteConfig
		}
		if len(opts.NewSpellings) > 0 {
			return nil, ErrRemoteSpellings
		}
		base, err := parseRemoteURL(opts.RemoteURL)
		if err != nil {
			return nil, err
		}
		c.remoteURL = base
		c.logger.Info("using remote engine", "url", base)
	} else if err := c.startLocal(ctx); err != nil {
		return nil, err
	}

	if err := c.init(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// NewPublicAPI creates a client for the hosted public engine.
func NewPublicAPI(ctx context.Context, opts Options) (*Client, error) {
	opts.RemoteURL = PublicAPIURL
	return New(ctx, opts)
}

func (c *Client) startLocal(ctx context.Context) error {
	cfg := c.opts.Engine
	if len(c.opts.ServerConfig) > 0 {
		serverCfg, err := engineconfig.New(c.opts.ServerConfig)
		if err != nil {
			return err
		}
		cfg.ServerConfig = serverCfg
	}

	sup, err := engine.New(cfg)
	if err != nil {
		return err
	}
	sup.SetLogger(c.logger)
	if err := sup.Start(ctx); err != nil {
		_ = sup.Stop()
		return err
	}
	c.sup = sup
	return nil
}

// init registers spellings and resolves the initial languages.
func (c *Client) init(ctx context.Context) error {
	if len(c.opts.NewSpellings) > 0 {
		path, err := SpellingFilePath(c.sup.ArchiveDir())
		if err != nil {
			return err
		}
		added, err := RegisterSpellings(path, c.opts.NewSpellings)
		if err != nil {
			return err
		}
		c.spellingPath = path
		c.addedSpelling = added
		c.logger.Debug("registered spellings", "path", path, "count", len(added))
	}

	lang := c.opts.Language
	fromLocale := false
	if lang == "" {
		lang = langtag.SystemLanguage()
		fromLocale = true
	}
	if lang == "" {
		lang = fallbackLanguage
	}

	supported, err := c.Languages(ctx)
	if err != nil {
		return err
	}
	tag, err := langtag.Resolve(lang, supported)
	if err != nil && fromLocale {
		tag, err = langtag.Resolve(fallbackLanguage, supported)
	}
	if err != nil {
		return err
	}
	c.settings.language = tag

	if c.opts.MotherTongue != "" {
		mt, err := langtag.Resolve(c.opts.MotherTongue, supported)
		if err != nil {
			return fmt.Errorf("mother tongue: %w", err)
		}
		c.settings.motherTongue = mt.String()
	}
	return nil
}

// parseRemoteURL normalises a remote base URL and appends the v2/ API root.
func parseRemoteURL(raw string) (string, error) {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid remote url %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid remote url %q: missing host", raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.ResolveReference(&url.URL{Path: "v2/"}).String(), nil
}

// Remote reports whether the client talks to a remote engine.
func (c *Client) Remote() bool {
	return c.sup == nil
}

// Engine returns the local engine supervisor, or nil for a remote engine.
func (c *Client) Engine() *engine.Supervisor {
	return c.sup
}

// URL returns the API root the next request will go to.
func (c *Client) URL() string {
	if c.sup == nil {
		return c.remoteURL
	}
	if base := c.sup.URL(); base != "" {
		return base + "v2/"
	}
	return ""
}

// endpoint returns the API root and the engine generation it belongs to,
// restarting a local engine that is found dead.
func (c *Client) endpoint(ctx context.Context) (string, int, error) {
	if c.closed.Load() {
		return "", 0, ErrClosed
	}
	if c.sup == nil {
		return c.remoteURL, 0, nil
	}

	gen := c.sup.Generation()
	if !c.sup.Alive() {
		c.logger.Warn("engine not running, restarting", "generation", gen)
		if err := c.sup.Restart(ctx, gen); err != nil {
			return "", 0, err
		}
		gen = c.sup.Generation()
	}
	return c.sup.URL() + "v2/", gen, nil
}

// query GETs path under the API root and decodes the JSON reply into out.
//
// A transport failure against a local engine restarts it and tries again,
// up to maxAttempts in total. Remote engines are tried once.
func (c *Client) query(ctx context.Context, path string, params url.Values, maxAttempts int, out any) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		base, gen, err := c.endpoint(ctx)
		if err != nil {
			if lastErr != nil {
				return fmt.Errorf("%w (restart failed: %w)", lastErr, err)
			}
			return err
		}

		err = c.do(ctx, base+path, params, out)
		if err == nil {
			return nil
		}

		var te *TransportError
		if !errors.As(err, &te) || ctx.Err() != nil || c.sup == nil {
			return err
		}
		lastErr = err

		if attempt < maxAttempts {
			c.logger.Warn("engine request failed, restarting engine",
				"url", te.URL, "attempt", attempt, "error", te.Err)
			if rerr := c.sup.Restart(ctx, gen); rerr != nil {
				return fmt.Errorf("%w (restart failed: %w)", err, rerr)
			}
		}
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, endpoint string, params url.Values, out any) error {
	target := endpoint
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &TransportError{URL: endpoint, Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.Unmarshal(body, out); err == nil {
			return nil
		}
	}
	return &ResponseError{URL: endpoint, Status: resp.StatusCode, Body: string(body)}
}

// Languages returns the language codes the engine supports, plus "auto".
// The list is cached until the local engine is restarted.
func (c *Client) Languages(ctx context.Context) ([]string, error) {
	gen := 0
	if c.sup != nil {
		gen = c.sup.Generation()
	}

	c.langMu.Lock()
	defer c.langMu.Unlock()
	if c.langsSet && c.langsGen == gen {
		return slices.Clone(c.langs), nil
	}

	var entries []match.RawLanguageEntry
	if err := c.query(ctx, "languages", nil, 1, &entries); err != nil {
		return nil, err
	}

	set := map[string]bool{"auto": true}
	for _, e := range entries {
		if e.Code != "" {
			set[e.Code] = true
		}
		if e.LongCode != "" {
			set[e.LongCode] = true
		}
	}
	langs := make([]string, 0, len(set))
	for l := range set {
		langs = append(langs, l)
	}
	slices.Sort(langs)

	c.langs = langs
	c.langsSet = true
	if c.sup != nil {
		c.langsGen = c.sup.Generation()
	}
	return slices.Clone(langs), nil
}

// Check returns the engine's findings for text.
func (c *Client) Check(ctx context.Context, text string) ([]match.Match, error) {
	c.mu.RLock()
	params := c.settings.params(text)
	lang := c.settings.language.String()
	c.mu.RUnlock()

	return c.check(ctx, text, lang, params)
}

// CheckIn checks text in the language tag resolves to, leaving the client's
// own language untouched. Rule selections made for the client's language
// are not applied. An empty tag behaves like Check.
func (c *Client) CheckIn(ctx context.Context, tag, text string) ([]match.Match, error) {
	if tag == "" {
		return c.Check(ctx, text)
	}
	supported, err := c.Languages(ctx)
	if err != nil {
		return nil, err
	}
	resolved, err := langtag.Resolve(tag, supported)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	s := c.settings
	c.mu.RUnlock()
	if s.language.String() != resolved.String() {
		s.language = resolved
		s.enabledRules = newStringSet()
		s.disabledRules = newStringSet()
	}

	return c.check(ctx, text, resolved.String(), s.params(text))
}

// CorrectIn is Correct in the language tag resolves to.
func (c *Client) CorrectIn(ctx context.Context, tag, text string) (string, error) {
	matches, err := c.CheckIn(ctx, tag, text)
	if err != nil {
		return "", err
	}
	return correction.Apply(text, matches), nil
}

func (c *Client) check(ctx context.Context, text, lang string, params url.Values) ([]match.Match, error) {
	var key string
	if c.opts.Cache != nil {
		key = CacheKey(params)
		if matches, ok := c.opts.Cache.Get(ctx, key); ok {
			c.logger.Debug("check served from cache", "language", lang)
			return matches, nil
		}
	}

	start := time.Now()
	var resp match.Response
	err := c.query(ctx, "check", params, c.opts.MaxAttempts, &resp)

	var matches []match.Match
	if err == nil {
		matches = match.FromResponse(resp, text)
	}
	if c.opts.Metrics != nil {
		c.opts.Metrics.ObserveCheck(lang, time.Since(start), len(matches), err)
	}
	if err != nil {
		return nil, err
	}

	if c.opts.Cache != nil {
		c.opts.Cache.Put(ctx, key, lang, matches)
	}
	return matches, nil
}

// Correct checks text and applies the first replacement of every finding.
func (c *Client) Correct(ctx context.Context, text string) (string, error) {
	matches, err := c.Check(ctx, text)
	if err != nil {
		return "", err
	}
	return correction.Apply(text, matches), nil
}

// Classify checks text and reports whether it is correct, faulty or garbage.
func (c *Client) Classify(ctx context.Context, text string) (correction.Status, error) {
	matches, err := c.Check(ctx, text)
	if err != nil {
		return "", err
	}
	return correction.Classify(matches), nil
}

// Language returns the resolved check language.
func (c *Client) Language() langtag.Tag {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings.language
}

// SetLanguage resolves tag against the engine's languages and makes it the
// check language. Enabled and disabled rules are cleared.
func (c *Client) SetLanguage(ctx context.Context, tag string) error {
	supported, err := c.Languages(ctx)
	if err != nil {
		return err
	}
	resolved, err := langtag.Resolve(tag, supported)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.language = resolved
	c.settings.enabledRules = newStringSet()
	c.settings.disabledRules = newStringSet()
	return nil
}

// MotherTongue returns the mother tongue, or "" when unset.
func (c *Client) MotherTongue() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings.motherTongue
}

// SetMotherTongue sets the mother tongue. An empty tag clears it.
func (c *Client) SetMotherTongue(ctx context.Context, tag string) error {
	resolved := ""
	if tag != "" {
		supported, err := c.Languages(ctx)
		if err != nil {
			return err
		}
		t, err := langtag.Resolve(tag, supported)
		if err != nil {
			return err
		}
		resolved = t.String()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.motherTongue = resolved
	return nil
}

// SetEnabledRules replaces the set of explicitly enabled rule IDs.
func (c *Client) SetEnabledRules(ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.enabledRules = newStringSet(ids...)
}

// SetDisabledRules replaces the set of disabled rule IDs.
func (c *Client) SetDisabledRules(ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.disabledRules = newStringSet(ids...)
}

// SetEnabledCategories replaces the set of explicitly enabled categories.
func (c *Client) SetEnabledCategories(ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.enabledCategories = newStringSet(ids...)
}

// SetDisabledCategories replaces the set of disabled categories.
func (c *Client) SetDisabledCategories(ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.disabledCategories = newStringSet(ids...)
}

// SetPreferredVariants sets the variants used when the language is "auto".
func (c *Client) SetPreferredVariants(variants ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.preferredVariants = newStringSet(variants...)
}

// SetEnabledOnly restricts checks to the enabled rules and categories.
func (c *Client) SetEnabledOnly(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.enabledOnly = enabled
}

// SetPicky turns on the engine's picky level.
func (c *Client) SetPicky(picky bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.picky = picky
}

// EnableSpellchecking removes the spelling category from the disabled set.
func (c *Client) EnableSpellchecking() {
	c.mu.Lock()
	defer c.mu.Unlock()
	cats := c.settings.disabledCategories.clone()
	delete(cats, spellingCategory)
	c.settings.disabledCategories = cats
}

// DisableSpellchecking adds the spelling category to the disabled set.
func (c *Client) DisableSpellchecking() {
	c.mu.Lock()
	defer c.mu.Unlock()
	cats := c.settings.disabledCategories.clone()
	cats[spellingCategory] = struct{}{}
	c.settings.disabledCategories = cats
}

// Close stops a local engine and removes non-persistent spellings.
// Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)

		var errs []error
		if c.spellingPath != "" && !c.opts.SpellingsPersist && len(c.addedSpelling) > 0 {
			if err := UnregisterSpellings(c.spellingPath, c.addedSpelling); err != nil {
				errs = append(errs, err)
			}
		}
		if c.sup != nil {
			if err := c.sup.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("stopping engine: %w", err))
			}
		}
		c.http.CloseIdleConnections()
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}
