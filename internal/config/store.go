package config

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const pendingBuffer = 32

// UpdateRequest changes one setting addressed by its dotted yaml key, for
// example "risk_per_trade" or "realtime.scan_interval". The verdict is sent
// on Reply when it is not nil.
type UpdateRequest struct {
	Key   string
	Value any
	Reply chan error
}

// Store owns the live settings. Readers get copies; writers enqueue update
// requests that the owning loop applies between iterations.
type Store struct {
	current Settings
	path    string
	pending chan UpdateRequest
	logger  *logger.Logger
	mu      sync.Mutex
}

// NewStore wraps cfg. Applied updates are written back to path unless it is
// empty.
func NewStore(cfg Settings, path string, logger *logger.Logger) *Store {
	return &Store{
		current: cfg.clone(),
		path:    path,
		pending: make(chan UpdateRequest, pendingBuffer),
		logger:  logger,
		mu:      sync.Mutex{},
	}
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current.clone()
}

// Submit enqueues req without blocking.
func (s *Store) Submit(req UpdateRequest) error {
	if strings.TrimSpace(req.Key) == "" {
		return errors.New(errors.ErrCodeSettingsRejected, "setting key is required")
	}

	select {
	case s.pending <- req:
		return nil
	default:
		return errors.New(errors.ErrCodeSettingsRejected, "too many pending settings updates")
	}
}

// Update submits a change and waits for the owning loop to apply it.
func (s *Store) Update(ctx context.Context, key string, value any) error {
	reply := make(chan error, 1)

	if err := s.Submit(UpdateRequest{Key: key, Value: value, Reply: reply}); err != nil {
		return err
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return errors.Wrapf(errors.ErrCodeSettingsRejected, ctx.Err(), "no verdict for setting %s", key)
	}
}

// ApplyPending drains queued requests in submission order and returns how
// many were applied.
func (s *Store) ApplyPending() int {
	applied := 0

	for {
		select {
		case req := <-s.pending:
			err := s.apply(req)
			if err == nil {
				applied++
			}

			if req.Reply != nil {
				req.Reply <- err
			}
		default:
			return applied
		}
	}
}

func (s *Store) apply(req UpdateRequest) error {
	candidate, err := setKey(s.Get(), req.Key, req.Value)
	if err != nil {
		s.logger.Warn("Rejected settings update", zap.String("key", req.Key), zap.Error(err))

		return err
	}

	if err := candidate.Validate(); err != nil {
		s.logger.Warn("Rejected settings update", zap.String("key", req.Key), zap.Error(err))

		return errors.Wrapf(errors.ErrCodeSettingsRejected, err, "invalid value for %s", req.Key)
	}

	s.mu.Lock()
	s.current = candidate
	s.mu.Unlock()

	s.logger.Info("Applied settings update", zap.String("key", req.Key), zap.Any("value", req.Value))

	if s.path != "" {
		if err := Save(s.path, candidate); err != nil {
			s.logger.Error("Failed to persist settings", zap.String("path", s.path), zap.Error(err))
		}
	}

	return nil
}

// setKey returns cfg with the dotted key replaced by value. Unknown keys and
// values of the wrong shape are rejected.
func setKey(cfg Settings, key string, value any) (Settings, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return Settings{}, errors.Wrap(errors.ErrCodeSettingsRejected, "failed to encode settings", err)
	}

	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return Settings{}, errors.Wrap(errors.ErrCodeSettingsRejected, "failed to decode settings", err)
	}

	parts := strings.Split(key, ".")
	node := tree

	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]any)
		if !ok {
			return Settings{}, errors.Newf(errors.ErrCodeSettingsRejected, "unknown setting %s", key)
		}

		node = child
	}

	leaf := parts[len(parts)-1]
	if _, ok := node[leaf]; !ok {
		return Settings{}, errors.Newf(errors.ErrCodeSettingsRejected, "unknown setting %s", key)
	}

	node[leaf] = value

	data, err = yaml.Marshal(tree)
	if err != nil {
		return Settings{}, errors.Wrapf(errors.ErrCodeSettingsRejected, err, "failed to encode value for %s", key)
	}

	var updated Settings

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&updated); err != nil {
		return Settings{}, errors.Wrapf(errors.ErrCodeSettingsRejected, err, "invalid value for %s", key)
	}

	return updated, nil
}
