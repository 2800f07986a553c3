package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"ppcp-backend/internal/interchange"
	"ppcp-backend/internal/metrics"
	"ppcp-backend/internal/models"
	"ppcp-backend/internal/timeutil"
)

var (
	ErrEntryNotFound   = errors.New("entry not found")
	ErrNothingImported = errors.New("no valid rows to import")
)

// EntryCollection loads and atomically replaces the whole entry collection.
// Load may be served from a cache; LoadLatest always reads what was last
// replaced.
type EntryCollection interface {
	Load(ctx context.Context) ([]models.Entry, error)
	LoadLatest(ctx context.Context) ([]models.Entry, error)
	Replace(ctx context.Context, entries []models.Entry) error
}

// ImportReport summarises an import. Line numbers count the header as line 1.
type ImportReport struct {
	Imported int           `json:"imported"`
	Rejected []RejectedRow `json:"rejected"`
}

type RejectedRow struct {
	Line   int                 `json:"line"`
	ID     string              `json:"id,omitempty"`
	Error  string              `json:"error"`
	Fields []models.FieldError `json:"fields,omitempty"`
}

// RestoreReport describes an applied snapshot
type RestoreReport struct {
	Restored  int       `json:"restored"`
	Version   int       `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// EntryService owns every mutation of the collection. Each read-modify-write
// runs under one lock and ends in a single Replace.
type EntryService struct {
	Store EntryCollection
	NewID models.IDGenerator
	Now   func() time.Time

	mu sync.Mutex
}

func NewEntryService(store EntryCollection) *EntryService {
	return &EntryService{
		Store: store,
		NewID: models.NewID,
		Now:   timeutil.Now,
	}
}

// All returns the collection in stored order
func (s *EntryService) All(ctx context.Context) ([]models.Entry, error) {
	return s.Store.Load(ctx)
}

// List returns the entries visible under a status filter, most urgent first
func (s *EntryService) List(ctx context.Context, filter string) ([]models.Entry, error) {
	entries, err := s.Store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return VisibleEntries(entries, filter), nil
}

func (s *EntryService) Get(ctx context.Context, id string) (*models.Entry, error) {
	entries, err := s.Store.Load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(entries, id)
	if i < 0 {
		return nil, ErrEntryNotFound
	}
	e := entries[i]
	return &e, nil
}

// Template returns the field values a new entry form starts with
func (s *EntryService) Template() models.EntryFields {
	return models.DefaultFields()
}

// Create validates fields and appends a new entry with a fresh id
func (s *EntryService) Create(ctx context.Context, fields models.EntryFields) (*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.Store.LoadLatest(ctx)
	if err != nil {
		return nil, err
	}

	e, err := models.NewEntry(fields, s.uniqueID(entries))
	if err != nil {
		return nil, err
	}

	next := make([]models.Entry, 0, len(entries)+1)
	next = append(next, entries...)
	next = append(next, *e)
	if err := s.replace(ctx, next); err != nil {
		return nil, err
	}

	log.Printf("[Entries] Created %s (OC %s)", e.ID, e.OrderCode)
	return e, nil
}

// Update replaces every field of entry id except the id itself
func (s *EntryService) Update(ctx context.Context, id string, fields models.EntryFields) (*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.Store.LoadLatest(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(entries, id)
	if i < 0 {
		return nil, ErrEntryNotFound
	}

	e, err := models.UpdateEntry(entries[i], fields)
	if err != nil {
		return nil, err
	}

	next := append([]models.Entry(nil), entries...)
	next[i] = *e
	if err := s.replace(ctx, next); err != nil {
		return nil, err
	}

	log.Printf("[Entries] Updated %s (OC %s)", e.ID, e.OrderCode)
	return e, nil
}

func (s *EntryService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.Store.LoadLatest(ctx)
	if err != nil {
		return err
	}
	i := indexOf(entries, id)
	if i < 0 {
		return ErrEntryNotFound
	}

	next := make([]models.Entry, 0, len(entries)-1)
	next = append(next, entries[:i]...)
	next = append(next, entries[i+1:]...)
	if err := s.replace(ctx, next); err != nil {
		return err
	}

	log.Printf("[Entries] Deleted %s", id)
	return nil
}

// ExportRows returns the collection as sheet rows in stored order
func (s *EntryService) ExportRows(ctx context.Context) ([]interchange.Row, error) {
	entries, err := s.Store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return interchange.ExportRows(entries), nil
}

// Import replaces the collection with the valid rows. Invalid rows are
// reported and left out. When no row is valid the collection is kept and
// ErrNothingImported is returned along with the report.
func (s *EntryService) Import(ctx context.Context, rows []interchange.Row) (*ImportReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := interchange.ImportRows(rows, s.NewID)
	report := &ImportReport{
		Imported: len(res.Entries),
		Rejected: make([]RejectedRow, 0, len(res.Rejected)),
	}
	for _, re := range res.Rejected {
		row := RejectedRow{Line: re.Line, ID: re.ID, Error: re.Err.Error()}
		var verr *models.ValidationError
		if errors.As(re.Err, &verr) {
			row.Fields = verr.Fields
		}
		report.Rejected = append(report.Rejected, row)
	}

	metrics.ImportRowsTotal.WithLabelValues(metrics.ResultAccepted).Add(float64(len(res.Entries)))
	metrics.ImportRowsTotal.WithLabelValues(metrics.ResultRejected).Add(float64(len(res.Rejected)))

	if len(res.Entries) == 0 {
		log.Printf("[Import] Nothing imported, %d row(s) rejected", len(res.Rejected))
		return report, ErrNothingImported
	}

	if err := s.replace(ctx, res.Entries); err != nil {
		return nil, err
	}

	log.Printf("[Import] Imported %d entries, rejected %d row(s)", len(res.Entries), len(res.Rejected))
	return report, nil
}

// Backup serialises the whole collection and returns it with its download name
func (s *EntryService) Backup(ctx context.Context) ([]byte, string, error) {
	entries, err := s.Store.LoadLatest(ctx)
	if err != nil {
		return nil, "", err
	}
	at := s.Now()
	data, err := interchange.EncodeSnapshot(entries, at)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, interchange.BackupFilename(at), nil
}

// Restore replaces the collection with a snapshot. A snapshot that fails
// to parse or validate leaves the collection untouched.
func (s *EntryService) Restore(ctx context.Context, data []byte) (*RestoreReport, error) {
	snap, err := interchange.DecodeSnapshot(data)
	if err != nil {
		metrics.RestoresTotal.WithLabelValues(metrics.ResultRejected).Inc()
		log.Printf("[Backup] Restore rejected: %v", err)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.replace(ctx, snap.Entries); err != nil {
		metrics.RestoresTotal.WithLabelValues(metrics.ResultFailed).Inc()
		return nil, err
	}

	metrics.RestoresTotal.WithLabelValues(metrics.ResultOK).Inc()
	log.Printf("[Backup] Restored %d entries from snapshot of %s", len(snap.Entries), snap.Timestamp.Format(time.RFC3339))
	return &RestoreReport{
		Restored:  len(snap.Entries),
		Version:   snap.Version,
		Timestamp: snap.Timestamp,
	}, nil
}

func (s *EntryService) replace(ctx context.Context, entries []models.Entry) error {
	if err := s.Store.Replace(ctx, entries); err != nil {
		log.Printf("[Entries] Failed to save collection: %v", err)
		return err
	}
	metrics.EntriesGauge.Set(float64(len(entries)))
	return nil
}

func (s *EntryService) uniqueID(entries []models.Entry) string {
	for {
		id := s.NewID()
		if indexOf(entries, id) < 0 {
			return id
		}
	}
}

func indexOf(entries []models.Entry, id string) int {
	for i := range entries {
		if entries[i].ID == id {
			return i
		}
	}
	return -1
}
