package source

import (
	"log/slog"
	"net/http"
	"time"

	"sunset/internal/resolver"
)

// Config carries the outbound settings shared by the default source table.
// Base URLs are per deployment; the catalogue URL also serves the runtime
// source.
type Config struct {
	HTTPClient       *http.Client
	UserAgent        string
	EndOfLifeBaseURL string
	MicrosoftBaseURL string
	RedHatBaseURL    string
	CanonicalBaseURL string
	// PerSourceTimeout caps one source call inside an aggregation pass.
	// Zero leaves the pass deadline in charge.
	PerSourceTimeout time.Duration
	Logger           *slog.Logger
}

// DefaultRegistry assembles the static source table: four vendor sources
// matched by keyword, with the catalogue fallback always last. Every source
// is wrapped with timeout and latency instrumentation.
func DefaultRegistry(cfg Config) (*resolver.Registry, error) {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	wrap := func(r resolver.Resolver) resolver.Resolver {
		return resolver.Instrument(r, cfg.PerSourceTimeout, cfg.Logger)
	}

	fallback := resolver.Entry{
		Descriptor: resolver.Descriptor{
			ID:          "endoflife",
			DisplayName: "endoflife.date catalogue",
		},
		Resolver: wrap(NewEndOfLife(cfg.EndOfLifeBaseURL, client, cfg.UserAgent)),
	}

	vendors := []resolver.Entry{
		{
			Descriptor: resolver.Descriptor{
				ID:          "microsoft",
				DisplayName: "Microsoft product lifecycle",
				Keywords: []string{
					"windows", "sql server", "exchange", "sharepoint",
					"office", "dynamics", "biztalk", ".net",
				},
				Priority: 10,
			},
			Resolver: wrap(NewMicrosoft(cfg.MicrosoftBaseURL, client, cfg.UserAgent)),
		},
		{
			Descriptor: resolver.Descriptor{
				ID:          "redhat",
				DisplayName: "Red Hat product life cycles",
				Keywords: []string{
					"red hat", "rhel", "openshift", "jboss", "satellite",
				},
				Priority: 20,
			},
			Resolver: wrap(NewRedHat(cfg.RedHatBaseURL, client, cfg.UserAgent)),
		},
		{
			Descriptor: resolver.Descriptor{
				ID:          "canonical",
				DisplayName: "Ubuntu release manifest",
				Keywords:    []string{"ubuntu"},
				Priority:    30,
			},
			Resolver: wrap(NewCanonical(cfg.CanonicalBaseURL, client, cfg.UserAgent)),
		},
		{
			Descriptor: resolver.Descriptor{
				ID:          "runtime",
				DisplayName: "Runtime release trains",
				Keywords: []string{
					"python", "node.js", "nodejs", "php", "ruby", "java",
					"postgresql", "mysql", "mariadb", "mongodb", "tomcat",
				},
				Priority: 40,
			},
			Resolver: wrap(NewRuntime(cfg.EndOfLifeBaseURL, client, cfg.UserAgent)),
		},
	}

	return resolver.NewRegistry(fallback, vendors...)
}
