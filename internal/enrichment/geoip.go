// Package enrichment adds GeoIP context to parsed events whose message
// contains an IP address. It wraps geoip2-golang the way the teacher
// repo's (unretrieved) enrichment package wraps it for HTTP request rows,
// repurposed here to enrich ParsedEvent.Metadata instead of a database
// row.
package enrichment

import (
	"fmt"
	"net"
	"regexp"
	"strconv"

	"github.com/oschwald/geoip2-golang"
	"github.com/pterm/pterm"

	"errwatch/internal/config"
	"errwatch/internal/model"
)

var ipPattern = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)

// GeoIPEnricher looks up city, country, and ASN for the first IP address
// found in a message. Any of its three databases may be absent; lookups
// against a missing database are skipped rather than erroring.
type GeoIPEnricher struct {
	city    *geoip2.Reader
	country *geoip2.Reader
	asn     *geoip2.Reader
	logger  *pterm.Logger
	enabled bool
}

// New opens the configured MaxMind databases. It never fails hard: a
// missing or unreadable database is logged and that lookup is simply
// unavailable, since GeoIP enrichment is an optional enhancement, not a
// required component.
func New(cfg config.GeoIPConfig, logger *pterm.Logger) *GeoIPEnricher {
	e := &GeoIPEnricher{logger: logger, enabled: cfg.Enabled}
	if !cfg.Enabled {
		return e
	}

	if r, err := geoip2.Open(cfg.CityDBPath); err == nil {
		e.city = r
	} else {
		logger.Debug("GeoIP city database unavailable", logger.Args("path", cfg.CityDBPath, "error", err))
	}
	if r, err := geoip2.Open(cfg.CountryDBPath); err == nil {
		e.country = r
	} else {
		logger.Debug("GeoIP country database unavailable", logger.Args("path", cfg.CountryDBPath, "error", err))
	}
	if r, err := geoip2.Open(cfg.ASNDBPath); err == nil {
		e.asn = r
	} else {
		logger.Debug("GeoIP ASN database unavailable", logger.Args("path", cfg.ASNDBPath, "error", err))
	}

	return e
}

// IsEnabled reports whether GeoIP enrichment was requested (independent
// of whether any individual database actually opened).
func (e *GeoIPEnricher) IsEnabled() bool {
	return e != nil && e.enabled
}

// EnrichEvent looks up the first IP address in event.Message and, on a
// hit, adds geo.country, geo.city, geo.asn, and geo.asnOrg to
// event.Metadata. A miss (unparsed IP, private range, no database open)
// leaves the event untouched.
func (e *GeoIPEnricher) EnrichEvent(event *model.ParsedEvent) {
	if e == nil || !e.enabled {
		return
	}

	match := ipPattern.FindString(event.Message)
	if match == "" {
		return
	}
	ip := net.ParseIP(match)
	if ip == nil {
		return
	}

	if event.Metadata == nil {
		event.Metadata = map[string]string{}
	}

	if e.city != nil {
		if rec, err := e.city.City(ip); err == nil {
			if name := rec.City.Names["en"]; name != "" {
				event.Metadata["geo.city"] = name
			}
			if name := rec.Country.Names["en"]; name != "" {
				event.Metadata["geo.country"] = name
			}
		}
	} else if e.country != nil {
		if rec, err := e.country.Country(ip); err == nil {
			if name := rec.Country.Names["en"]; name != "" {
				event.Metadata["geo.country"] = name
			}
		}
	}

	if e.asn != nil {
		if rec, err := e.asn.ASN(ip); err == nil && rec.AutonomousSystemNumber != 0 {
			event.Metadata["geo.asn"] = strconv.FormatUint(uint64(rec.AutonomousSystemNumber), 10)
			event.Metadata["geo.asnOrg"] = rec.AutonomousSystemOrganization
		}
	}
}

// Close releases the underlying mmap'd database handles.
func (e *GeoIPEnricher) Close() error {
	if e == nil {
		return nil
	}
	var firstErr error
	for _, r := range []*geoip2.Reader{e.city, e.country, e.asn} {
		if r == nil {
			continue
		}
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing geoip reader: %w", err)
		}
	}
	return firstErr
}
