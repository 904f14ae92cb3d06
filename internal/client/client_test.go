package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/langcheck/internal/correction"
	"github.com/nerrad567/langcheck/internal/enginetest"
	"github.com/nerrad567/langcheck/internal/langtag"
	"github.com/nerrad567/langcheck/internal/match"
)

func TestMain(m *testing.M) {
	enginetest.RunIfHelper()
	os.Exit(m.Run())
}

func newRemote(t *testing.T, opts Options) (*Client, *enginetest.Engine, *httptest.Server) {
	t.Helper()
	return newRemoteWith(t, enginetest.New(), opts)
}

func newRemoteWith(t *testing.T, fake *enginetest.Engine, opts Options) (*Client, *enginetest.Engine, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	opts.RemoteURL = srv.URL
	if opts.Language == "" {
		opts.Language = "en-US"
	}
	c, err := New(context.Background(), opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, fake, srv
}

func TestParseRemoteURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"localhost:8081", "http://localhost:8081/v2/"},
		{"http://127.0.0.1:8081", "http://127.0.0.1:8081/v2/"},
		{"http://example.com/api", "http://example.com/api/v2/"},
		{"https://languagetool.org/api/", "https://languagetool.org/api/v2/"},
	}

	for _, tt := range tests {
		got, err := parseRemoteURL(tt.raw)
		if err != nil {
			t.Errorf("parseRemoteURL(%q) error = %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseRemoteURL(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNew_RemoteRejections(t *testing.T) {
	ctx := context.Background()

	if _, err := New(ctx, Options{RemoteURL: "localhost:1", ServerConfig: map[string]any{"cacheSize": 1}}); !errors.Is(err, ErrRemoteConfig) {
		t.Errorf("New() with server config error = %v, want ErrRemoteConfig", err)
	}
	if _, err := New(ctx, Options{RemoteURL: "localhost:1", NewSpellings: []string{"x"}}); !errors.Is(err, ErrRemoteSpellings) {
		t.Errorf("New() with spellings error = %v, want ErrRemoteSpellings", err)
	}
}

func TestCheck_Remote(t *testing.T) {
	c, _, _ := newRemote(t, Options{})

	if !c.Remote() || c.Engine() != nil {
		t.Error("Remote() = false for a remote client")
	}

	matches, err := c.Check(context.Background(), "ain't nothin but a thang")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}

	wantOffsets := []int{0, 6, 19}
	if len(matches) != len(wantOffsets) {
		t.Fatalf("len(matches) = %d, want %d", len(matches), len(wantOffsets))
	}
	for i, m := range matches {
		if m.Offset != wantOffsets[i] {
			t.Errorf("matches[%d].Offset = %d, want %d", i, m.Offset, wantOffsets[i])
		}
	}
	if matches[1].Category != "TYPOS" || matches[1].RuleID != enginetest.RuleSpelling {
		t.Errorf("matches[1] = %+v", matches[1])
	}
}

func TestCorrect_Remote(t *testing.T) {
	c, _, _ := newRemote(t, Options{})

	tests := []struct {
		text string
		want string
	}{
		{"ain't nothin but a thang", "Ain't nothing but a thing"},
		{"Everything is fine.", "Everything is fine."},
		{"😀 Teh cat is awsome,, really", "😀 the cat is awesome, really"},
	}

	for _, tt := range tests {
		got, err := c.Correct(context.Background(), tt.text)
		if err != nil {
			t.Fatalf("Correct(%q) error = %v", tt.text, err)
		}
		if got != tt.want {
			t.Errorf("Correct(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestClassify_Remote(t *testing.T) {
	c, _, _ := newRemote(t, Options{})

	tests := []struct {
		text string
		want correction.Status
	}{
		{"Everything is fine.", correction.StatusCorrect},
		{"This is awsome.", correction.StatusFaulty},
		{"Cz qwrtzp.", correction.StatusGarbage},
	}

	for _, tt := range tests {
		got, err := c.Classify(context.Background(), tt.text)
		if err != nil {
			t.Fatalf("Classify(%q) error = %v", tt.text, err)
		}
		if got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestParams(t *testing.T) {
	c, fake, _ := newRemote(t, Options{MotherTongue: "de"})
	ctx := context.Background()

	if _, err := c.Check(ctx, "Fine."); err != nil {
		t.Fatal(err)
	}
	q := fake.LastQuery()
	if q.Get("language") != "en-US" || q.Get("text") != "Fine." || q.Get("motherTongue") != "de" {
		t.Errorf("query = %v", q)
	}
	for _, key := range []string{"disabledRules", "enabledRules", "enabledOnly", "disabledCategories",
		"enabledCategories", "preferredVariants", "level"} {
		if q.Has(key) {
			t.Errorf("query has %s = %q, want absent", key, q.Get(key))
		}
	}

	c.SetDisabledRules("B_RULE", "A_RULE")
	c.SetEnabledRules("C_RULE")
	c.SetEnabledCategories("GRAMMAR")
	c.SetDisabledCategories("STYLE")
	c.SetPreferredVariants("en-GB", "de-AT")
	c.SetEnabledOnly(true)
	c.SetPicky(true)
	if _, err := c.Check(ctx, "Fine."); err != nil {
		t.Fatal(err)
	}

	q = fake.LastQuery()
	want := map[string]string{
		"disabledRules":      "A_RULE,B_RULE",
		"enabledRules":       "C_RULE",
		"enabledOnly":        "true",
		"enabledCategories":  "GRAMMAR",
		"disabledCategories": "STYLE",
		"preferredVariants":  "de-AT,en-GB",
		"level":              "picky",
	}
	for key, value := range want {
		if got := q.Get(key); got != value {
			t.Errorf("%s = %q, want %q", key, got, value)
		}
	}
}

func TestSetLanguage(t *testing.T) {
	c, fake, _ := newRemote(t, Options{})
	ctx := context.Background()

	c.SetDisabledRules("X")
	c.SetEnabledRules("Y")
	c.SetDisabledCategories("STYLE")

	if err := c.SetLanguage(ctx, "de_de"); err != nil {
		t.Fatalf("SetLanguage() error = %v", err)
	}
	if c.Language().String() != "de-DE" {
		t.Errorf("Language() = %q, want de-DE", c.Language().String())
	}

	if _, err := c.Check(ctx, "Gut."); err != nil {
		t.Fatal(err)
	}
	q := fake.LastQuery()
	if q.Has("disabledRules") || q.Has("enabledRules") {
		t.Errorf("rules not cleared after SetLanguage: %v", q)
	}
	if q.Get("disabledCategories") != "STYLE" {
		t.Errorf("disabledCategories = %q, want STYLE (categories survive)", q.Get("disabledCategories"))
	}

	if err := c.SetLanguage(ctx, "xx"); !errors.Is(err, langtag.ErrUnsupported) {
		t.Errorf("SetLanguage(xx) error = %v, want ErrUnsupported", err)
	}
	if err := c.SetLanguage(ctx, ""); !errors.Is(err, langtag.ErrEmptyTag) {
		t.Errorf("SetLanguage(\"\") error = %v, want ErrEmptyTag", err)
	}

	if err := c.SetMotherTongue(ctx, "fr"); err != nil || c.MotherTongue() != "fr" {
		t.Errorf("SetMotherTongue(fr) = %v, MotherTongue() = %q", err, c.MotherTongue())
	}
	if err := c.SetMotherTongue(ctx, ""); err != nil || c.MotherTongue() != "" {
		t.Errorf("SetMotherTongue(\"\") = %v, MotherTongue() = %q", err, c.MotherTongue())
	}
}

func TestCheckIn(t *testing.T) {
	c, fake, _ := newRemote(t, Options{})
	ctx := context.Background()

	c.SetDisabledRules("X")

	if _, err := c.CheckIn(ctx, "de", "Gut."); err != nil {
		t.Fatalf("CheckIn(de) error = %v", err)
	}
	q := fake.LastQuery()
	if q.Get("language") != "de" {
		t.Errorf("language = %q, want de", q.Get("language"))
	}
	if q.Has("disabledRules") {
		t.Errorf("disabledRules = %q, want absent for another language", q.Get("disabledRules"))
	}
	if c.Language().String() != "en-US" {
		t.Errorf("Language() = %q after CheckIn, want en-US", c.Language().String())
	}

	if _, err := c.CheckIn(ctx, "en_us", "Fine."); err != nil {
		t.Fatalf("CheckIn(en_us) error = %v", err)
	}
	if got := fake.LastQuery().Get("disabledRules"); got != "X" {
		t.Errorf("disabledRules = %q, want X for the client's own language", got)
	}

	if _, err := c.CheckIn(ctx, "xx", "Fine."); !errors.Is(err, langtag.ErrUnsupported) {
		t.Errorf("CheckIn(xx) error = %v, want ErrUnsupported", err)
	}

	got, err := c.CorrectIn(ctx, "", "This is awsome.")
	if err != nil {
		t.Fatalf("CorrectIn() error = %v", err)
	}
	if got != "This is awesome." {
		t.Errorf("CorrectIn() = %q, want %q", got, "This is awesome.")
	}
}

func TestSpellcheckingToggle(t *testing.T) {
	c, _, _ := newRemote(t, Options{})
	ctx := context.Background()

	c.DisableSpellchecking()
	matches, err := c.Check(ctx, "This is awsome.")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("matches with spellchecking disabled = %v", matches)
	}

	c.EnableSpellchecking()
	matches, err = c.Check(ctx, "This is awsome.")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Errorf("len(matches) with spellchecking enabled = %d, want 1", len(matches))
	}
}

func TestLanguages(t *testing.T) {
	c, fake, _ := newRemote(t, Options{})

	langs, err := c.Languages(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"auto", "en", "en-US", "de-DE", "fr"} {
		if !slices.Contains(langs, want) {
			t.Errorf("Languages() = %v, missing %q", langs, want)
		}
	}

	// Cached: a changed list is not seen until the engine is replaced.
	fake.SetLanguages([]match.RawLanguageEntry{{Code: "nl", LongCode: "nl"}})
	again, err := c.Languages(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(langs, again) {
		t.Errorf("Languages() changed without a restart: %v", again)
	}
}

func TestLanguageDefaults(t *testing.T) {
	fake := enginetest.New()
	srv := httptest.NewServer(fake)
	defer srv.Close()
	ctx := context.Background()

	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "de_DE.UTF-8")
	c, err := New(ctx, Options{RemoteURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if c.Language().String() != "de-DE" {
		t.Errorf("Language() from locale = %q, want de-DE", c.Language().String())
	}
	c.Close()

	t.Setenv("LANG", "sw_KE.UTF-8")
	c, err = New(ctx, Options{RemoteURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if c.Language().String() != "en" {
		t.Errorf("Language() with unsupported locale = %q, want en", c.Language().String())
	}
	c.Close()

	if _, err := New(ctx, Options{RemoteURL: srv.URL, Language: "sw"}); !errors.Is(err, langtag.ErrUnsupported) {
		t.Errorf("New() with unsupported language error = %v, want ErrUnsupported", err)
	}
}

func TestCheck_RateLimited(t *testing.T) {
	c, fake, _ := newRemote(t, Options{})
	fake.RateLimited.Store(true)

	_, err := c.Check(context.Background(), "text")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Check() error = %v, want ErrRateLimited", err)
	}
	var re *ResponseError
	if !errors.As(err, &re) || re.Status != 426 {
		t.Errorf("ResponseError = %+v, want status 426", re)
	}
}

func TestCheck_ResponseErrors(t *testing.T) {
	fake := enginetest.New()
	fake.MaxTextLength = 10
	c, _, _ := newRemoteWith(t, fake, Options{})
	ctx := context.Background()

	_, err := c.Check(ctx, "This text is far too long for the engine.")
	var re *ResponseError
	if !errors.As(err, &re) {
		t.Fatalf("Check() error = %v, want *ResponseError", err)
	}
	if re.Status != 413 || re.Body == "" {
		t.Errorf("ResponseError = %+v, want 413 with body", re)
	}
	if errors.Is(err, ErrRateLimited) {
		t.Error("text too long reported as rate limited")
	}

	fake.Malformed.Store(true)
	_, err = c.Check(ctx, "short")
	if !errors.As(err, &re) || re.Body != "<html>internal error</html>" {
		t.Errorf("malformed reply error = %v, want raw body", err)
	}
}

func TestCheck_RemoteTransportError(t *testing.T) {
	c, fake, srv := newRemote(t, Options{})
	srv.Close()

	_, err := c.Check(context.Background(), "text")
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Check() error = %v, want *TransportError", err)
	}
	if te.URL == "" {
		t.Error("TransportError.URL is empty")
	}
	if fake.Checks() != 0 {
		t.Errorf("engine saw %d checks, want 0", fake.Checks())
	}
}

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]match.Match
	hits  int
}

func (m *memoryCache) Get(_ context.Context, key string) ([]match.Match, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	if ok {
		m.hits++
	}
	return v, ok
}

func (m *memoryCache) Put(_ context.Context, key, _ string, matches []match.Match) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = matches
}

func TestCheck_Cache(t *testing.T) {
	cache := &memoryCache{items: map[string][]match.Match{}}
	c, fake, _ := newRemote(t, Options{Cache: cache})
	ctx := context.Background()

	first, err := c.Check(ctx, "This is awsome.")
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Check(ctx, "This is awsome.")
	if err != nil {
		t.Fatal(err)
	}

	if fake.Checks() != 1 {
		t.Errorf("engine checks = %d, want 1", fake.Checks())
	}
	if cache.hits != 1 {
		t.Errorf("cache hits = %d, want 1", cache.hits)
	}
	if len(first) != 1 || !first[0].Equal(second[0]) {
		t.Errorf("cached result differs: %v vs %v", first, second)
	}

	// Different settings must not share a cache entry.
	c.DisableSpellchecking()
	if _, err := c.Check(ctx, "This is awsome."); err != nil {
		t.Fatal(err)
	}
	if fake.Checks() != 2 {
		t.Errorf("engine checks = %d, want 2", fake.Checks())
	}
}

type recordingMetrics struct {
	mu    sync.Mutex
	calls []int
	errs  int
}

func (r *recordingMetrics) ObserveCheck(_ string, _ time.Duration, matches int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, matches)
	if err != nil {
		r.errs++
	}
}

func TestCheck_Metrics(t *testing.T) {
	metrics := &recordingMetrics{}
	c, fake, _ := newRemote(t, Options{Metrics: metrics})
	ctx := context.Background()

	if _, err := c.Check(ctx, "ain't nothin"); err != nil {
		t.Fatal(err)
	}
	fake.RateLimited.Store(true)
	_, _ = c.Check(ctx, "x")

	if !slices.Equal(metrics.calls, []int{2, 0}) {
		t.Errorf("observed matches = %v, want [2 0]", metrics.calls)
	}
	if metrics.errs != 1 {
		t.Errorf("observed errors = %d, want 1", metrics.errs)
	}
}

func TestCacheKey(t *testing.T) {
	a := newSettings()
	a.disabledRules = newStringSet("A", "B")
	b := newSettings()
	b.disabledRules = newStringSet("B", "A")

	if CacheKey(a.params("x")) != CacheKey(b.params("x")) {
		t.Error("CacheKey differs for the same rules in a different order")
	}
	if CacheKey(a.params("x")) == CacheKey(a.params("y")) {
		t.Error("CacheKey equal for different texts")
	}
}

func TestClose(t *testing.T) {
	c, _, _ := newRemote(t, Options{})

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := c.Check(context.Background(), "x"); !errors.Is(err, ErrClosed) {
		t.Errorf("Check() after Close error = %v, want ErrClosed", err)
	}
}
