package parser

import (
	"context"
	"log/slog"

	"AnnouncementIngestor/internal/config"
	"AnnouncementIngestor/internal/domain"
	"AnnouncementIngestor/internal/ports"
	"AnnouncementIngestor/internal/scanner"
)

// StrategySource implements AnnouncementLister via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sites    []config.SiteConfig
	logger   *slog.Logger
}

var _ ports.AnnouncementLister = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sites.
func NewStrategySource(reg *scanner.Registry, sites []config.SiteConfig, log *slog.Logger) *StrategySource {
	if log == nil {
		log = slog.Default()
	}
	return &StrategySource{
		registry: reg,
		sites:    sites,
		logger:   log,
	}
}

// List scans every configured site. A site that fails contributes nothing;
// the failure is logged and never returned.
func (s *StrategySource) List(ctx context.Context) []domain.Announcement {
	if s.registry == nil {
		s.logger.Error("scanner registry is not configured")
		return nil
	}

	s.logger.Debug("list announcements", "sites", len(s.sites))

	var aggregated []domain.Announcement
	for _, site := range s.sites {
		strategy, err := s.registry.Resolve(site.Scanner)
		if err != nil {
			s.logger.Error("resolve scanner", "site", site.Name, "error", err)
			continue
		}

		results, err := strategy.Scan(ctx, scanner.Request{
			SiteName: site.Name,
			URL:      site.URL,
			Origin:   site.Origin,
			Options:  site.Options,
		})
		if err != nil {
			s.logger.Error("scan site", "site", site.Name, "url", site.URL, "error", err)
			continue
		}

		for i := range results {
			if results[i].Source == "" {
				results[i].Source = site.Name
			}
			if results[i].SiteURL == "" {
				results[i].SiteURL = site.URL
			}
		}
		s.logger.Info("site produced announcements", "site", site.Name, "count", len(results))
		aggregated = append(aggregated, results...)
	}

	return aggregated
}
