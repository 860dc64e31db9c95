// Package request builds validated data requests against a provider taxonomy.
package request

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stationkit/stationkit/internal/parameter"
	"github.com/stationkit/stationkit/internal/taxonomy"
)

// Settings holds the output flags copied into every request.
type Settings struct {
	// Tidy returns long tables with one row per value.
	// Default: true
	Tidy bool

	// Humanize renames parameters to their readable names.
	// Default: true
	Humanize bool

	// SIUnits converts values to SI units.
	// Default: true
	SIUnits bool
}

// DefaultSettings returns the default settings.
func DefaultSettings() Settings {
	return Settings{
		Tidy:     true,
		Humanize: true,
		SIUnits:  true,
	}
}

// Config wires a request to its provider.
type Config struct {
	// Taxonomy is the provider taxonomy. Required.
	Taxonomy taxonomy.Taxonomy

	// Settings overrides DefaultSettings when set.
	Settings *Settings

	Logger zerolog.Logger
}

// Params are the caller's raw request values.
type Params struct {
	Parameters []parameter.Spec

	// Resolution may be empty for providers with a single resolution.
	Resolution string

	Periods []string

	// StartDate and EndDate accept time.Time, *time.Time or ISO 8601 strings.
	StartDate any
	EndDate   any
}

// Request is an immutable, validated request.
type Request struct {
	tax        taxonomy.Taxonomy
	parameters []parameter.Entry
	resolution taxonomy.Resolution
	periods    []taxonomy.Period
	window     *Window
	tidy       bool
	humanize   bool
	siUnits    bool
}

// New validates p against cfg.Taxonomy. Unknown resolution or period tokens
// and an inverted time window are fatal; unresolvable parameters are dropped.
func New(cfg Config, p Params) (*Request, error) {
	if cfg.Taxonomy == nil {
		return nil, errors.New("request: taxonomy is required")
	}
	tax := cfg.Taxonomy

	settings := DefaultSettings()
	if cfg.Settings != nil {
		settings = *cfg.Settings
	}

	res, err := parseResolution(tax, p.Resolution)
	if err != nil {
		return nil, err
	}

	periods, err := parsePeriods(tax, p.Periods)
	if err != nil {
		return nil, err
	}

	window, err := ConvertTimestamps(p.StartDate, p.EndDate)
	if err != nil {
		return nil, err
	}

	entries := parameter.NewResolver(tax, cfg.Logger).Resolve(p.Parameters, res)

	tidy := settings.Tidy
	if tax.HasDatasets() {
		for _, e := range entries {
			if !e.IsDataset() {
				tidy = true
				break
			}
		}
	}

	r := &Request{
		tax:        tax,
		parameters: entries,
		resolution: res,
		periods:    periods,
		window:     window,
		tidy:       tidy,
		humanize:   settings.Humanize,
		siUnits:    settings.SIUnits,
	}

	event := cfg.Logger.Info().
		Str("provider", tax.Provider()).
		Strs("parameters", r.parameterNames()).
		Str("resolution", string(res)).
		Strs("periods", r.periodNames()).
		Bool("humanize", r.humanize).
		Bool("tidy", r.tidy).
		Bool("si_units", r.siUnits)
	if window != nil {
		event = event.Time("start_date", window.Start).Time("end_date", window.End)
	}
	event.Msg("processing request")

	return r, nil
}

func parseResolution(tax taxonomy.Taxonomy, token string) (taxonomy.Resolution, error) {
	if strings.TrimSpace(token) == "" {
		if all := tax.Resolutions(); len(all) == 1 {
			return all[0], nil
		}
		return "", fmt.Errorf("%w: resolution is required for %s", taxonomy.ErrInvalidEnumeration, tax.Provider())
	}
	return tax.LookupResolution(token)
}

// parsePeriods returns nil for no tokens. Fixed-period providers take the
// first token literally; multi-period providers parse and sort every token.
func parsePeriods(tax taxonomy.Taxonomy, tokens []string) ([]taxonomy.Period, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	if tax.PeriodType() == taxonomy.PeriodFixed {
		return []taxonomy.Period{taxonomy.Period(tokens[0])}, nil
	}

	periods := make([]taxonomy.Period, 0, len(tokens))
	for _, token := range tokens {
		p, err := tax.LookupPeriod(token)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	sort.SliceStable(periods, func(i, j int) bool {
		return periods[i].Order() < periods[j].Order()
	})
	return periods, nil
}

func (r *Request) Taxonomy() taxonomy.Taxonomy { return r.tax }
func (r *Request) Provider() string { return r.tax.Provider() }
func (r *Request) Resolution() taxonomy.Resolution { return r.resolution }
func (r *Request) Tidy() bool { return r.tidy }
func (r *Request) Humanize() bool { return r.humanize }
func (r *Request) SIUnits() bool { return r.siUnits }
func (r *Request) Frequency() time.Duration { return r.resolution.Frequency() }

// Parameters returns a copy of the resolved entries in request order.
func (r *Request) Parameters() []parameter.Entry {
	return append([]parameter.Entry(nil), r.parameters...)
}

// Periods returns a copy of the parsed periods; nil when none were given.
func (r *Request) Periods() []taxonomy.Period {
	if r.periods == nil {
		return nil
	}
	return append([]taxonomy.Period(nil), r.periods...)
}

// Window returns the time window, or nil when the request is unbounded.
func (r *Request) Window() *Window {
	if r.window == nil {
		return nil
	}
	w := *r.window
	return &w
}

// StartDate returns the window start and whether a window is set.
func (r *Request) StartDate() (time.Time, bool) {
	if r.window == nil {
		return time.Time{}, false
	}
	return r.window.Start, true
}

// EndDate returns the window end and whether a window is set.
func (r *Request) EndDate() (time.Time, bool) {
	if r.window == nil {
		return time.Time{}, false
	}
	return r.window.End, true
}

// Equal reports structural equality over parameters, resolution, periods,
// window, humanize and tidy.
func (r *Request) Equal(other *Request) bool {
	if r == nil || other == nil {
		return r == other
	}
	if r.resolution != other.resolution || r.humanize != other.humanize || r.tidy != other.tidy {
		return false
	}
	if len(r.parameters) != len(other.parameters) || len(r.periods) != len(other.periods) {
		return false
	}
	for i := range r.parameters {
		if r.parameters[i] != other.parameters[i] {
			return false
		}
	}
	for i := range r.periods {
		if r.periods[i] != other.periods[i] {
			return false
		}
	}
	return r.window.Equal(other.window)
}

func (r *Request) parameterNames() []string {
	names := make([]string, 0, len(r.parameters))
	for _, e := range r.parameters {
		names = append(names, e.String())
	}
	return names
}

func (r *Request) periodNames() []string {
	names := make([]string, 0, len(r.periods))
	for _, p := range r.periods {
		names = append(names, string(p))
	}
	return names
}
