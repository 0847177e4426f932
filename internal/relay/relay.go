// Package relay re-posts attachments from watched users into the target
// channel and mirrors an audit record to the log channel.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"relaybot/internal/domain"
	"relaybot/internal/watchlist"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

const auditTitle = "Copied attachment"

// Snapshotter supplies the watch list snapshot used for a relay attempt.
type Snapshotter interface {
	Current() watchlist.WatchConfig
}

// Config configures a Relay.
type Config struct {
	Gateway    domain.Gateway
	Watchlist  Snapshotter
	HTTPClient *http.Client        // defaults to NewHTTPClient(0)
	TempDir    string              // defaults to os.TempDir()
	Events     domain.EventEmitter // optional
	Logger     *slog.Logger
}

// Relay runs relay attempts. It keeps no per-message state, so concurrent
// HandleMessage calls are independent.
type Relay struct {
	gateway domain.Gateway
	watch   Snapshotter
	client  *http.Client
	tempDir string
	events  domain.EventEmitter
	logger  *slog.Logger
}

// New creates a Relay.
func New(cfg Config) *Relay {
	client := cfg.HTTPClient
	if client == nil {
		client = NewHTTPClient(0)
	}
	dir := cfg.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	return &Relay{
		gateway: cfg.Gateway,
		watch:   cfg.Watchlist,
		client:  client,
		tempDir: dir,
		events:  cfg.Events,
		logger:  cfg.Logger,
	}
}

// Result summarizes one relay attempt.
type Result struct {
	AttemptID string
	Abandoned bool
	Items     []domain.RelayItem
	SendErr   error
	AuditErr  error
}

// Counts returns the number of staged and fallback items.
func (r Result) Counts() (staged, fallbacks int) {
	for _, it := range r.Items {
		switch it.(type) {
		case domain.StagedFile:
			staged++
		case domain.FallbackURL:
			fallbacks++
		}
	}
	return staged, fallbacks
}

// Qualifies reports whether msg should be relayed under cfg.
func Qualifies(msg domain.InboundMessage, cfg watchlist.WatchConfig) bool {
	return !msg.AuthorIsBot && len(msg.Attachments) > 0 && cfg.Contains(msg.AuthorID)
}

// HandleMessage relays msg if it qualifies. It never panics and never returns
// an error; failures are logged.
func (r *Relay) HandleMessage(ctx context.Context, msg domain.InboundMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("relay panic", "message", msg.ID, "panic", rec)
		}
	}()

	cfg := r.watch.Current()
	if !Qualifies(msg, cfg) {
		return
	}

	res, err := r.Process(ctx, msg, cfg)
	if err != nil {
		r.logger.Error("relay failed", "attempt", res.AttemptID, "message", msg.ID, "author", msg.AuthorID, "err", err)
	}
}

// Process runs one relay attempt for msg against cfg. Staged files are
// removed before it returns, whatever happened. The returned error joins the
// send and audit failures; an unresolvable target is not an error.
func (r *Relay) Process(ctx context.Context, msg domain.InboundMessage, cfg watchlist.WatchConfig) (Result, error) {
	start := time.Now()
	res := Result{AttemptID: uuid.NewString()}

	target, err := r.gateway.ResolveTextChannel(ctx, cfg.TargetChannelID)
	if err != nil {
		r.logger.Debug("relay abandoned: target channel unavailable",
			"attempt", res.AttemptID, "target", cfg.TargetChannelID, "err", err)
		res.Abandoned = true
		r.emit(domain.EventRelayAbandoned, msg, cfg, res, start)
		return res, nil
	}

	var logChannel *domain.ChannelRef
	if cfg.LogChannelID != "" {
		if ch, err := r.gateway.ResolveTextChannel(ctx, cfg.LogChannelID); err == nil {
			logChannel = &ch
		} else {
			r.logger.Debug("audit mirror disabled: log channel unavailable",
				"attempt", res.AttemptID, "log_channel", cfg.LogChannelID, "err", err)
		}
	}

	batch := newStagingBatch(r.tempDir, r.logger)
	defer batch.Release()

	res.Items = make([]domain.RelayItem, 0, len(msg.Attachments))
	for i, att := range msg.Attachments {
		res.Items = append(res.Items, r.stage(ctx, batch, i, att, res.AttemptID))
	}

	if err := r.gateway.SendRelay(ctx, target.ID, res.Items); err != nil {
		res.SendErr = fmt.Errorf("send to %s: %w", target.ID, err)
	}

	if logChannel != nil {
		rec := domain.AuditRecord{
			Title:       auditTitle,
			AuthorID:    msg.AuthorID,
			ChannelID:   msg.ChannelID,
			ChannelName: msg.ChannelName,
			MessageID:   msg.ID,
			CreatedAt:   msg.CreatedAt,
		}
		if err := r.gateway.SendAudit(ctx, logChannel.ID, rec); err != nil {
			res.AuditErr = fmt.Errorf("audit to %s: %w", logChannel.ID, err)
		}
	}

	staged, fallbacks := res.Counts()
	r.logger.Info("relay completed",
		"attempt", res.AttemptID,
		"message", msg.ID,
		"author", msg.AuthorID,
		"target", target.ID,
		"staged", staged,
		"fallbacks", fallbacks,
		"sent", res.SendErr == nil,
	)
	r.emit(domain.EventRelayCompleted, msg, cfg, res, start)

	return res, errors.Join(res.SendErr, res.AuditErr)
}

// stage downloads one attachment into batch, degrading to its URL on any
// failure.
func (r *Relay) stage(ctx context.Context, batch *stagingBatch, index int, att domain.Attachment, attemptID string) domain.RelayItem {
	name := DisplayName(att)
	fallback := domain.FallbackURL{URL: att.URL}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, att.URL, nil)
	if err != nil {
		r.logger.Warn("attachment url invalid, relaying url", "attempt", attemptID, "name", name, "err", err)
		return fallback
	}
	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("attachment download failed, relaying url", "attempt", attemptID, "name", name, "err", err)
		return fallback
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		r.logger.Warn("attachment download failed, relaying url", "attempt", attemptID, "name", name, "status", resp.StatusCode)
		return fallback
	}

	path, size, err := batch.write(index, name, resp.Body)
	if err != nil {
		r.logger.Warn("attachment staging failed, relaying url", "attempt", attemptID, "name", name, "err", err)
		return fallback
	}

	r.logger.Debug("attachment staged", "attempt", attemptID, "name", name, "size", humanize.Bytes(uint64(size)))
	return domain.StagedFile{Path: path, Name: name, Size: size}
}

func (r *Relay) emit(eventType string, msg domain.InboundMessage, cfg watchlist.WatchConfig, res Result, start time.Time) {
	if r.events == nil {
		return
	}
	staged, fallbacks := res.Counts()
	payload := map[string]any{
		"attempt":   res.AttemptID,
		"message":   msg.ID,
		"author":    msg.AuthorID,
		"channel":   msg.ChannelID,
		"target":    cfg.TargetChannelID,
		"staged":    staged,
		"fallbacks": fallbacks,
		"duration":  time.Since(start),
	}
	if res.SendErr != nil {
		payload["send_error"] = res.SendErr.Error()
	}
	if res.AuditErr != nil {
		payload["audit_error"] = res.AuditErr.Error()
	}
	r.events.Emit(domain.Event{
		Type:      eventType,
		Source:    "relay",
		Payload:   payload,
		Timestamp: time.Now(),
	})
}
