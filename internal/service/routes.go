package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	apperrors "tgrelay/internal/errors"
	"tgrelay/internal/models"

	"github.com/sirupsen/logrus"
)

// RouteStore holds the relay's source and destination chat IDs. The routes
// are read on the hot path by the dispatcher and forwarder and mutated rarely
// by owner commands; every mutation is persisted synchronously to a JSON file
// before it becomes visible to readers.
type RouteStore struct {
	mu     sync.RWMutex
	path   string
	routes models.Routes
	logger *logrus.Logger
}

func NewRouteStore(path string, logger *logrus.Logger) (*RouteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("route store path is required")
	}

	s := &RouteStore{
		path:   path,
		logger: logger,
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *RouteStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		// First run: both endpoints unset until the owner configures them
		s.logger.WithField("path", s.path).Info("Route store file not found, starting unconfigured")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read route store: %w", err)
	}

	var routes models.Routes
	if err := json.Unmarshal(data, &routes); err != nil {
		return fmt.Errorf("failed to parse route store: %w", err)
	}

	s.routes = routes
	return nil
}

// Get returns a snapshot of the current routes.
func (s *RouteStore) Get() models.Routes {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRoutes(s.routes)
}

// SetSource updates the source chat ID and persists the change. On a failed
// write the in-memory value is rolled back so memory and disk never diverge.
func (s *RouteStore) SetSource(id int64) error {
	if err := validateChatID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.routes.SourceID
	s.routes.SourceID = &id

	if err := s.persistLocked(); err != nil {
		s.routes.SourceID = previous
		return apperrors.NewPersistFailureError(s.path, err)
	}

	s.logger.WithField("sourceId", id).Info("Source chat updated")
	return nil
}

// SetDestination updates the destination chat ID and persists the change,
// rolling back on a failed write.
func (s *RouteStore) SetDestination(id int64) error {
	if err := validateChatID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.routes.DestinationID
	s.routes.DestinationID = &id

	if err := s.persistLocked(); err != nil {
		s.routes.DestinationID = previous
		return apperrors.NewPersistFailureError(s.path, err)
	}

	s.logger.WithField("destinationId", id).Info("Destination chat updated")
	return nil
}

func (s *RouteStore) persistLocked() error {
	data, err := json.Marshal(s.routes)
	if err != nil {
		return fmt.Errorf("failed to marshal routes: %w", err)
	}
	return os.WriteFile(s.path, data, 0600)
}

func validateChatID(id int64) error {
	if id == 0 {
		return apperrors.NewValidationError("chat_id", "0", "chat ID must be a non-zero integer")
	}
	return nil
}

func copyRoutes(r models.Routes) models.Routes {
	var copied models.Routes
	if r.SourceID != nil {
		v := *r.SourceID
		copied.SourceID = &v
	}
	if r.DestinationID != nil {
		v := *r.DestinationID
		copied.DestinationID = &v
	}
	return copied
}
