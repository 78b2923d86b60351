package program

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"fleda/internal/config"
	"fleda/internal/models"
	"fleda/internal/sanity"
)

const calendarEventsQuery = `*[_type == "event" && confirmed == true && defined(programDate)] | order(programDate asc, programTime asc) {
  _id,
  "slug": slug.current,
  title,
  "date": programDate,
  "time": programTime,
  venue
}`

const eventBySlugQuery = `*[_type == "event" && confirmed == true && slug.current == $slug][0]{
  _id,
  "slug": slug.current,
  title,
  "date": programDate,
  "time": programTime,
  venue,
  startDateTime,
  endDateTime,
  description,
  facebookEventLink,
  gooutIframeUrl,
  smsticketIframeUrl,
  youtubeEmbedUrl,
  spotifyEmbedUrl,
  googleHtmlLink
}`

// Querier runs a GROQ query. *sanity.Client satisfies it.
type Querier interface {
	Query(ctx context.Context, query string, params map[string]any, opts sanity.QueryOptions, out any) error
}

// Service reads the public program from the CMS. Read failures are logged
// and surface as an empty result so pages still render.
type Service struct {
	logger  *slog.Logger
	querier Querier
	opts    sanity.QueryOptions
}

// NewService creates a Service reading with the options derived from cfg.
func NewService(logger *slog.Logger, querier Querier, cfg config.Sanity) *Service {
	return &Service{logger: logger, querier: querier, opts: ReadOptions(cfg)}
}

// ReadOptions includes drafts only when explicitly enabled and a read token
// is available.
func ReadOptions(cfg config.Sanity) sanity.QueryOptions {
	if cfg.IncludeDrafts && cfg.ReadToken != "" {
		return sanity.QueryOptions{Token: cfg.ReadToken, Perspective: sanity.PerspectivePreviewDrafts}
	}
	return sanity.QueryOptions{Perspective: sanity.PerspectivePublished}
}

// CalendarEvents returns every confirmed event with a program date, ordered
// by date then time.
func (s *Service) CalendarEvents(ctx context.Context) []models.CalendarEvent {
	var records []json.RawMessage
	if err := s.querier.Query(ctx, calendarEventsQuery, nil, s.opts, &records); err != nil {
		s.logger.Error("Failed to fetch program events", "error", err)
		return []models.CalendarEvent{}
	}

	events := make([]models.CalendarEvent, 0, len(records))
	for i, record := range records {
		var raw rawEvent
		if err := json.Unmarshal(record, &raw); err != nil {
			s.logger.Debug("Skipping undecodable program event", "index", i, "error", err)
			continue
		}
		if ev, ok := normalize(raw); ok {
			events = append(events, ev)
		}
	}
	return events
}

// EventBySlug returns the confirmed event published under slug, or nil.
func (s *Service) EventBySlug(ctx context.Context, slug string) *models.ProgramEventDetail {
	if strings.TrimSpace(slug) == "" {
		return nil
	}

	var record json.RawMessage
	if err := s.querier.Query(ctx, eventBySlugQuery, map[string]any{"slug": slug}, s.opts, &record); err != nil {
		s.logger.Error("Failed to fetch program event", "slug", slug, "error", err)
		return nil
	}
	if len(record) == 0 || string(record) == "null" {
		return nil
	}
	var raw rawEvent
	if err := json.Unmarshal(record, &raw); err != nil {
		s.logger.Debug("Skipping undecodable program event", "slug", slug, "error", err)
		return nil
	}
	detail, ok := normalizeDetail(raw)
	if !ok {
		return nil
	}
	return detail
}
