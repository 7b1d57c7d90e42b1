package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"eden-backend/application/ports"
	domainconfig "eden-backend/domain/config"
	"eden-backend/domain/core/entities"
	"eden-backend/domain/events"
	pkgerrors "eden-backend/pkg/errors"
	"eden-backend/pkg/observability"
)

// Capture sources, reported in metrics and events.
const (
	SourceBatch       = "batch"
	SourceUpload      = "upload"
	SourceCapture     = "capture"
	SourceBookmarklet = "bookmarklet"
	SourceCLI         = "cli"
)

// CaptureRequest is one input to the capture pipeline: either a URL to
// fetch or a document the caller already extracted.
type CaptureRequest struct {
	UserID     string
	URL        string
	Extraction *ports.Extraction
	TitleHint  string
	Notes      string
	Source     string
}

// CaptureResult is the outcome of a pipeline: the stored item and the
// existing items whose connections changed because of it.
type CaptureResult struct {
	Item    *entities.SavedItem
	Updated []*entities.SavedItem
}

// CaptureService runs extract, analyze, store and link for one input. It is
// shared by the batch runner, the single capture endpoint, the bookmarklet
// and the CLI.
type CaptureService struct {
	extractor ports.ContentExtractor
	analyzer  ports.Analyzer
	linker    ports.Linker
	edges     *EdgeService
	store     ports.ItemStore
	events    ports.EventBus
	config    *domainconfig.DomainConfig
	metrics   *observability.Collector
	logger    *zap.Logger
}

// NewCaptureService creates a new capture service
func NewCaptureService(
	extractor ports.ContentExtractor,
	analyzer ports.Analyzer,
	linker ports.Linker,
	edges *EdgeService,
	store ports.ItemStore,
	eventBus ports.EventBus,
	config *domainconfig.DomainConfig,
	metrics *observability.Collector,
	logger *zap.Logger,
) *CaptureService {
	return &CaptureService{
		extractor: extractor,
		analyzer:  analyzer,
		linker:    linker,
		edges:     edges,
		store:     store,
		events:    eventBus,
		config:    config,
		metrics:   metrics,
		logger:    logger,
	}
}

// Capture runs the full pipeline, linking included. Once the item is stored
// the capture succeeds; a linking failure only leaves it unconnected.
func (s *CaptureService) Capture(ctx context.Context, req CaptureRequest) (*CaptureResult, error) {
	item, err := s.Save(ctx, req)
	if err != nil {
		return nil, err
	}
	res, err := s.LinkItem(ctx, req.UserID, item.ID)
	if err != nil {
		s.logger.Warn("Linking failed, item saved without connections",
			zap.String("userID", req.UserID),
			zap.String("itemID", item.ID),
			zap.Error(err),
		)
		return &CaptureResult{Item: item}, nil
	}
	return res, nil
}

// Save extracts, analyzes and stores the input without linking it.
func (s *CaptureService) Save(ctx context.Context, req CaptureRequest) (*entities.SavedItem, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, pkgerrors.NewUnauthorizedError("user id is required")
	}
	source := req.Source
	if source == "" {
		source = SourceCapture
	}

	extraction := req.Extraction
	if extraction == nil {
		var err error
		extraction, err = s.extract(ctx, req.URL)
		if err != nil {
			return nil, err
		}
	}
	if extraction.IsBookmarkExport() {
		return nil, pkgerrors.NewValidationError("bookmark exports must be imported as a batch")
	}

	title := extraction.Title
	if hint := strings.TrimSpace(req.TitleHint); hint != "" && (title == "" || title == extraction.Domain) {
		title = hint
	}

	analysis := s.analyzer.Analyze(ctx, extraction.Content, title)

	item, err := entities.NewSavedItem(entities.NewItemParams{
		UserID:   req.UserID,
		URL:      extraction.URL,
		Title:    title,
		Content:  extraction.Content,
		Summary:  analysis.Summary,
		Tags:     analysis.Tags,
		Concepts: analysis.Concepts,
		Favicon:  extraction.Favicon,
		ImageURL: extraction.ImageURL,
		Notes:    strings.TrimSpace(req.Notes),
	}, s.config.MaxContentLength)
	if err != nil {
		return nil, err
	}

	storeCtx, span := observability.StartSpan(ctx, "store.create_item")
	start := time.Now()
	err = s.store.CreateItem(storeCtx, item)
	s.metrics.ObserveStage("store", time.Since(start))
	observability.EndSpan(span, err)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to save item")
	}

	s.publish(ctx, events.NewItemSaved(item.ID, item.UserID, item.URL, item.Domain, item.Tags, source, time.Now()))
	s.logger.Info("Item saved",
		zap.String("userID", item.UserID),
		zap.String("itemID", item.ID),
		zap.String("domain", item.Domain),
		zap.String("source", source),
	)
	return item, nil
}

// LinkItem connects a stored item to related items of the same user. Linking
// runs only when the user already has MinItemsForLinking other items.
// Linker and edge-write failures leave the item unconnected; a failure to
// load the user's items is returned.
func (s *CaptureService) LinkItem(ctx context.Context, userID, itemID string) (*CaptureResult, error) {
	items, err := s.store.GetItemsByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load items for linking")
	}

	var item *entities.SavedItem
	candidates := make([]*entities.SavedItem, 0, len(items))
	for _, it := range items {
		if it.ID == itemID {
			item = it
			continue
		}
		candidates = append(candidates, it)
	}
	if item == nil {
		return nil, pkgerrors.NewNotFoundError("item")
	}
	if len(candidates) < s.config.MinItemsForLinking {
		return &CaptureResult{Item: item}, nil
	}

	// The most recent items, kept in insertion order.
	if len(candidates) > s.config.MaxCandidatePool {
		candidates = candidates[len(candidates)-s.config.MaxCandidatePool:]
	}

	links := s.linker.Link(ctx, item, candidates)
	if links.IsEmpty() {
		return &CaptureResult{Item: item}, nil
	}

	linked, updated, err := s.edges.Connect(ctx, userID, itemID, links)
	if err != nil {
		s.logger.Warn("Failed to connect item",
			zap.String("userID", userID),
			zap.String("itemID", itemID),
			zap.Int("connections", len(links.Connections)),
			zap.Error(err),
		)
		return &CaptureResult{Item: item}, nil
	}
	return &CaptureResult{Item: linked, Updated: updated}, nil
}

func (s *CaptureService) extract(ctx context.Context, rawURL string) (*ports.Extraction, error) {
	ctx, span := observability.StartSpan(ctx, "extractor.extract_url")
	start := time.Now()
	extraction, err := s.extractor.ExtractURL(ctx, rawURL)
	s.metrics.ObserveStage("extract", time.Since(start))
	observability.EndSpan(span, err)
	return extraction, err
}

func (s *CaptureService) publish(ctx context.Context, event events.DomainEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event",
			zap.String("eventType", event.GetEventType()),
			zap.Error(err),
		)
	}
}
