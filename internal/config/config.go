package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Browser execution modes.
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
	ModeStatic = "static"
)

// ErrMissingGridCredentials is returned when remote mode lacks grid credentials.
var ErrMissingGridCredentials = errors.New("BROWSERSTACK_USERNAME and BROWSERSTACK_ACCESS_KEY must be set for remote execution")

// Config captures the full configuration of a scrape-translate-analyse run.
type Config struct {
	Site        SiteConfig        `yaml:"site"`
	Extraction  ExtractionConfig  `yaml:"extraction"`
	Browser     BrowserConfig     `yaml:"browser"`
	Translation TranslationConfig `yaml:"translation"`
	Images      ImagesConfig      `yaml:"images"`
	Analysis    AnalysisConfig    `yaml:"analysis"`
	Report      ReportConfig      `yaml:"report"`
	Robots      RobotsConfig      `yaml:"robots"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// SiteConfig describes where the opinion section lives and how to reach it.
type SiteConfig struct {
	HomeURL         string   `yaml:"home_url"`
	OpinionURL      string   `yaml:"opinion_url"`
	OpinionPath     string   `yaml:"opinion_path"`
	OpinionLinkText string   `yaml:"opinion_link_text"`
	NavSelector     string   `yaml:"nav_selector"`
	CookieSelector  string   `yaml:"cookie_selector"`
	CookieWait      Duration `yaml:"cookie_wait"`
	NavigationWait  Duration `yaml:"navigation_wait"`
}

// ExtractionConfig holds the locators used to read articles.
type ExtractionConfig struct {
	Limit              int      `yaml:"limit"`
	ContainerSelector  string   `yaml:"container_selector"`
	TitleSelector      string   `yaml:"title_selector"`
	ContentSelector    string   `yaml:"content_selector"`
	ImageSelector      string   `yaml:"image_selector"`
	LazyImageAttribute string   `yaml:"lazy_image_attribute"`
	ContentPlaceholder string   `yaml:"content_placeholder"`
	Wait               Duration `yaml:"wait"`
}

// BrowserConfig selects and tunes the browser session.
type BrowserConfig struct {
	Mode         string       `yaml:"mode"`
	Headless     bool         `yaml:"headless"`
	UserAgent    string       `yaml:"user_agent"`
	WindowWidth  int          `yaml:"window_width"`
	WindowHeight int          `yaml:"window_height"`
	PageTimeout  Duration     `yaml:"page_timeout"`
	Remote       RemoteConfig `yaml:"remote"`
}

// RemoteConfig describes a remote browser grid session.
type RemoteConfig struct {
	Endpoint       string `yaml:"endpoint"`
	Browser        string `yaml:"browser"`
	BrowserVersion string `yaml:"browser_version"`
	OS             string `yaml:"os"`
	OSVersion      string `yaml:"os_version"`
	Device         string `yaml:"device"`
	RealMobile     string `yaml:"real_mobile"`
	Project        string `yaml:"project"`
	Build          string `yaml:"build"`

	// Credentials are read from the environment only.
	Username  string `yaml:"-"`
	AccessKey string `yaml:"-"`
}

// TranslationConfig configures the keyed and free translation backends.
type TranslationConfig struct {
	Source       string          `yaml:"source"`
	Target       string          `yaml:"target"`
	RequestDelay Duration        `yaml:"request_delay"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
	RapidAPI     RapidAPIConfig  `yaml:"rapidapi"`
	Free         FreeConfig      `yaml:"free"`
}

// RapidAPIConfig configures the keyed translation endpoint.
type RapidAPIConfig struct {
	URL            string   `yaml:"url"`
	Host           string   `yaml:"host"`
	ConnectTimeout Duration `yaml:"connect_timeout"`
	ReadTimeout    Duration `yaml:"read_timeout"`

	// APIKey is read from the environment only.
	APIKey string `yaml:"-"`
}

// FreeConfig configures the unauthenticated translation endpoint.
type FreeConfig struct {
	URL     string   `yaml:"url"`
	Timeout Duration `yaml:"timeout"`
}

// ImagesConfig controls article image downloads.
type ImagesConfig struct {
	Directory      string          `yaml:"directory"`
	ConnectTimeout Duration        `yaml:"connect_timeout"`
	ReadTimeout    Duration        `yaml:"read_timeout"`
	MaxSizeBytes   int64           `yaml:"max_size_bytes"`
	RequestDelay   Duration        `yaml:"request_delay"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig caps requests per host to Requests per Window. Zero
// requests disables the cap.
type RateLimitConfig struct {
	Requests int      `yaml:"requests"`
	Window   Duration `yaml:"window"`
}

func (r RateLimitConfig) validate(section string) error {
	if r.Requests < 0 {
		return fmt.Errorf("%s.rate_limit.requests must be >= 0 (got %d)", section, r.Requests)
	}
	if r.Requests > 0 && r.Window.Duration <= 0 {
		return fmt.Errorf("%s.rate_limit.window must be > 0 when requests is set", section)
	}
	return nil
}

// AnalysisConfig tunes the repeated word report.
type AnalysisConfig struct {
	MinWordLength  int `yaml:"min_word_length"`
	MinOccurrences int `yaml:"min_occurrences"`
}

// ReportConfig controls console output.
type ReportConfig struct {
	// ContentWidth truncates article content in the report; zero prints it whole.
	ContentWidth int `yaml:"content_width"`
}

// RobotsConfig configures robots.txt handling for plain HTTP sessions.
type RobotsConfig struct {
	Respect   bool     `yaml:"respect"`
	Overrides []string `yaml:"overrides"`
	UserAgent string   `yaml:"user_agent"`
	CacheTTL  Duration `yaml:"cache_ttl"`
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Structured bool   `yaml:"structured"`
}

// Default returns a Config populated with the El País opinion section defaults.
func Default() Config {
	return Config{
		Site: SiteConfig{
			HomeURL:         "https://elpais.com/",
			OpinionURL:      "https://elpais.com/opinion/",
			OpinionPath:     "/opinion",
			OpinionLinkText: "Opinión",
			NavSelector:     "nav.cs_m a[href*='/opinion']",
			CookieSelector:  "#didomi-notice-agree-button",
			CookieWait:      DurationFrom(5 * time.Second),
			NavigationWait:  DurationFrom(10 * time.Second),
		},
		Extraction: ExtractionConfig{
			Limit:              5,
			ContainerSelector:  "article",
			TitleSelector:      "h2.c_t",
			ContentSelector:    "p.c_d",
			ImageSelector:      "img",
			LazyImageAttribute: "data-src",
			ContentPlaceholder: "No content available",
			Wait:               DurationFrom(10 * time.Second),
		},
		Browser: BrowserConfig{
			Mode:         ModeLocal,
			Headless:     true,
			UserAgent:    "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120 Safari/537.36",
			WindowWidth:  1920,
			WindowHeight: 1080,
			PageTimeout:  DurationFrom(60 * time.Second),
			Remote: RemoteConfig{
				Endpoint: "wss://cdp.browserstack.com/puppeteer",
				Project:  "El Pais Opinion",
			},
		},
		Translation: TranslationConfig{
			Source: "es",
			Target: "en",
			RapidAPI: RapidAPIConfig{
				URL:            "https://google-translate1.p.rapidapi.com/language/translate/v2",
				Host:           "google-translate1.p.rapidapi.com",
				ConnectTimeout: DurationFrom(5 * time.Second),
				ReadTimeout:    DurationFrom(10 * time.Second),
			},
			Free: FreeConfig{
				URL:     "https://translate.googleapis.com/translate_a/single",
				Timeout: DurationFrom(30 * time.Second),
			},
		},
		Images: ImagesConfig{
			Directory:      "images",
			ConnectTimeout: DurationFrom(5 * time.Second),
			ReadTimeout:    DurationFrom(10 * time.Second),
			MaxSizeBytes:   10 * 1024 * 1024,
		},
		Analysis: AnalysisConfig{
			MinWordLength:  3,
			MinOccurrences: 3,
		},
		Robots: RobotsConfig{
			Respect:   true,
			Overrides: []string{},
			UserAgent: "elpais-crawler/1.0",
			CacheTTL:  DurationFrom(30 * time.Minute),
		},
		Logging: LoggingConfig{
			Level:      "info",
			Structured: false,
		},
	}
}

// Load reads, merges, and validates configuration from a YAML file. An empty
// path yields the defaults. Environment values are applied after the file.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		cfg := Default()
		return finish(&cfg)
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer fh.Close()
	return LoadFromReader(fh)
}

// LoadFromReader decodes configuration from an arbitrary reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decodeYAML(r, &cfg); err != nil {
		return nil, err
	}
	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	if err := LoadEnvFiles(); err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	cfg.Normalise()
	return cfg, nil
}

func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// Validate enforces required invariants. It runs before any network activity.
func (c Config) Validate() error {
	if c.Extraction.Limit <= 0 {
		return fmt.Errorf("extraction.limit must be > 0 (got %d)", c.Extraction.Limit)
	}
	if strings.TrimSpace(c.Extraction.ContainerSelector) == "" {
		return errors.New("extraction.container_selector must be set")
	}
	if strings.TrimSpace(c.Extraction.TitleSelector) == "" {
		return errors.New("extraction.title_selector must be set")
	}
	if strings.TrimSpace(c.Site.HomeURL) == "" {
		return errors.New("site.home_url must be set")
	}
	if strings.TrimSpace(c.Site.OpinionURL) == "" {
		return errors.New("site.opinion_url must be set")
	}
	switch c.Browser.Mode {
	case ModeLocal, ModeStatic:
	case ModeRemote:
		if c.Browser.Remote.Username == "" || c.Browser.Remote.AccessKey == "" {
			return ErrMissingGridCredentials
		}
		if strings.TrimSpace(c.Browser.Remote.Endpoint) == "" {
			return errors.New("browser.remote.endpoint must be set for remote execution")
		}
	default:
		return fmt.Errorf("unsupported browser.mode %q", c.Browser.Mode)
	}
	if strings.TrimSpace(c.Translation.Source) == "" || strings.TrimSpace(c.Translation.Target) == "" {
		return errors.New("translation.source and translation.target must be set")
	}
	if err := c.Translation.RateLimit.validate("translation"); err != nil {
		return err
	}
	if strings.TrimSpace(c.Images.Directory) == "" {
		return errors.New("images.directory must be set")
	}
	if err := c.Images.RateLimit.validate("images"); err != nil {
		return err
	}
	if c.Images.MaxSizeBytes <= 0 {
		return fmt.Errorf("images.max_size_bytes must be > 0 (got %d)", c.Images.MaxSizeBytes)
	}
	if c.Analysis.MinWordLength <= 0 {
		return fmt.Errorf("analysis.min_word_length must be > 0 (got %d)", c.Analysis.MinWordLength)
	}
	if c.Analysis.MinOccurrences <= 0 {
		return fmt.Errorf("analysis.min_occurrences must be > 0 (got %d)", c.Analysis.MinOccurrences)
	}
	if c.Report.ContentWidth < 0 {
		return fmt.Errorf("report.content_width must be >= 0 (got %d)", c.Report.ContentWidth)
	}
	return nil
}

// Normalise trims values and derives mode-dependent defaults.
func (c *Config) Normalise() {
	c.Browser.Mode = strings.ToLower(strings.TrimSpace(c.Browser.Mode))
	if c.Browser.Mode == "" {
		c.Browser.Mode = ModeLocal
	}
	c.Site.HomeURL = strings.TrimSpace(c.Site.HomeURL)
	c.Site.OpinionURL = strings.TrimSpace(c.Site.OpinionURL)
	c.Site.OpinionPath = strings.TrimSpace(c.Site.OpinionPath)
	c.Translation.Source = strings.ToLower(strings.TrimSpace(c.Translation.Source))
	c.Translation.Target = strings.ToLower(strings.TrimSpace(c.Translation.Target))
	c.Translation.RapidAPI.APIKey = strings.TrimSpace(c.Translation.RapidAPI.APIKey)
	c.Browser.Remote.Username = strings.TrimSpace(c.Browser.Remote.Username)
	c.Browser.Remote.AccessKey = strings.TrimSpace(c.Browser.Remote.AccessKey)
	c.Images.Directory = strings.TrimSpace(c.Images.Directory)
	c.Robots.UserAgent = strings.TrimSpace(c.Robots.UserAgent)

	if len(c.Robots.Overrides) > 0 {
		c.Robots.Overrides = dedupeLower(c.Robots.Overrides)
	}
}

func dedupeLower(values []string) []string {
	unique := make(map[string]struct{}, len(values))
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := unique[v]; ok {
			continue
		}
		unique[v] = struct{}{}
		cleaned = append(cleaned, v)
	}
	sort.Strings(cleaned)
	return cleaned
}
