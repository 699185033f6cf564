// Package requisition owns the application state: master data, requisition
// lines and the view selection. Every mutation is persisted before it is
// visible to other callers.
package requisition

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"p9e.in/requisition/models"
	"p9e.in/requisition/pkg/masterdata"
	"p9e.in/requisition/pkg/metrics"
	"p9e.in/requisition/pkg/mirror"
	"p9e.in/requisition/pkg/storage"
)

// Sync indicator values reported by SyncStatus.
const (
	IndicatorLocalOnly     = "local only"
	IndicatorAutoSync      = "auto-sync on"
	IndicatorSyncing       = "syncing"
	IndicatorOffline       = "offline - saved locally"
	IndicatorSyncFailed    = "sync failed"
	IndicatorRestoring     = "restoring"
	IndicatorRestoreFailed = "restore failed"
)

// Options configures a Service.
type Options struct {
	PageSize int
	// Mirror is optional; without it sync operations fail with ErrMirrorDisabled.
	Mirror *mirror.Mirror
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Service is the single controller over requisition state.
type Service struct {
	states   storage.StateRepository
	settings storage.SettingsRepository
	mirror   *mirror.Mirror
	now      func() time.Time
	pageSize int

	mu     sync.Mutex
	state  models.PersistedState
	index  *masterdata.Index
	search string
	sort   SortState
	page   int

	syncMu      sync.Mutex
	syncEnabled bool
	lastSync    time.Time
	indicator   string
}

// NewService creates a service. Call Load before use.
func NewService(states storage.StateRepository, settings storage.SettingsRepository, opts Options) *Service {
	if opts.PageSize < 1 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		states:    states,
		settings:  settings,
		mirror:    opts.Mirror,
		now:       opts.Now,
		pageSize:  opts.PageSize,
		index:     masterdata.New(nil),
		page:      1,
		indicator: IndicatorLocalOnly,
	}
}

// Load reads the persisted state and settings.
func (s *Service) Load(ctx context.Context) error {
	state, err := s.states.Load(ctx)
	if err != nil {
		return fmt.Errorf("load requisition state: %w", err)
	}

	s.mu.Lock()
	s.state = state
	s.index = masterdata.New(s.state.Master)
	s.page = 1
	s.mu.Unlock()

	enabled, _, err := s.settings.Get(ctx, models.SettingSyncEnabled)
	if err != nil {
		return fmt.Errorf("load sync setting: %w", err)
	}
	last, _, err := s.settings.Get(ctx, models.SettingLastSyncTime)
	if err != nil {
		return fmt.Errorf("load last sync time: %w", err)
	}

	s.syncMu.Lock()
	s.syncEnabled = enabled == "true" && s.mirror != nil
	if t, err := time.Parse(time.RFC3339, last); err == nil {
		s.lastSync = t
	}
	s.indicator = IndicatorLocalOnly
	if s.syncEnabled {
		s.indicator = IndicatorAutoSync
	}
	s.syncMu.Unlock()

	metrics.Lines.Set(float64(len(state.Lines)))
	metrics.MasterRecords.Set(float64(len(state.Master)))
	return nil
}

// mutate applies fn to a copy of the state, persists the copy and only then
// makes it current. A failed save leaves memory and storage unchanged.
func (s *Service) mutate(ctx context.Context, op string, reindex bool, fn func(st *models.PersistedState) error) error {
	s.mu.Lock()
	next := s.state.Clone()
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return err
	}
	next.LastModified = models.JSONTime(s.now().UTC())

	if err := s.states.Save(ctx, next); err != nil {
		s.mu.Unlock()
		log.Printf("❌ [STATE] %s: save failed: %v", op, err)
		return fmt.Errorf("persist state: %w", err)
	}
	s.state = next
	if reindex {
		s.index = masterdata.New(s.state.Master)
	}
	snapshot := s.state.Clone()
	s.mu.Unlock()

	metrics.Mutations.WithLabelValues(op).Inc()
	metrics.Lines.Set(float64(len(snapshot.Lines)))
	metrics.MasterRecords.Set(float64(len(snapshot.Master)))

	s.autoPush(ctx, snapshot)
	return nil
}

// ImportMaster replaces the master data with freshly ingested records.
func (s *Service) ImportMaster(ctx context.Context, fileName string, records []models.MasterRecord) error {
	err := s.mutate(ctx, "import", true, func(st *models.PersistedState) error {
		st.Master = append([]models.MasterRecord(nil), records...)
		st.FileName = fileName
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("✅ [IMPORT] loaded %d master records from %s", len(records), fileName)
	return nil
}

// AddLine appends a line for the SKU with quantity 1 and returns it.
func (s *Service) AddLine(ctx context.Context, category, skuCode, skuName string) (models.RequisitionLine, error) {
	var added models.RequisitionLine
	err := s.mutate(ctx, "add", false, func(st *models.PersistedState) error {
		info, ok := s.index.UnitInfoFor(skuCode, skuName)
		if !ok {
			return ErrSKUNotFound
		}
		mats := s.index.MaterialsFor(skuCode, skuName)
		if len(mats) == 0 {
			return ErrNoMaterialsFound
		}

		added = models.RequisitionLine{
			ID:        uuid.New(),
			SKUCode:   skuCode,
			SKUName:   skuName,
			Category:  category,
			QtyNeeded: models.MinQtyNeeded,
			UnitInfo:  info,
			Materials: mats,
		}
		st.Lines = append(st.Lines, added)
		return nil
	})
	if err != nil {
		return models.RequisitionLine{}, err
	}

	s.mu.Lock()
	s.page = TotalPages(len(s.state.Lines), s.pageSize)
	s.mu.Unlock()
	return added.Clone(), nil
}

// SetQuantity stores a clamped quantity on the line at index.
func (s *Service) SetQuantity(ctx context.Context, index int, raw string) (int, error) {
	qty := ClampQuantity(raw)
	err := s.mutate(ctx, "quantity", false, func(st *models.PersistedState) error {
		if index < 0 || index >= len(st.Lines) {
			return ErrLineNotFound
		}
		st.Lines[index].QtyNeeded = qty
		return nil
	})
	return qty, err
}

// SetSupplier stores the trimmed supplier on the line at index.
func (s *Service) SetSupplier(ctx context.Context, index int, supplier string) error {
	supplier = strings.TrimSpace(supplier)
	return s.mutate(ctx, "supplier", false, func(st *models.PersistedState) error {
		if index < 0 || index >= len(st.Lines) {
			return ErrLineNotFound
		}
		st.Lines[index].Supplier = supplier
		return nil
	})
}

// RemoveLine deletes the line at index. The caller must have obtained the
// user's confirmation.
func (s *Service) RemoveLine(ctx context.Context, index int, confirmed bool) (models.RequisitionLine, error) {
	if !confirmed {
		return models.RequisitionLine{}, ErrConfirmationRequired
	}
	var removed models.RequisitionLine
	err := s.mutate(ctx, "remove", false, func(st *models.PersistedState) error {
		if index < 0 || index >= len(st.Lines) {
			return ErrLineNotFound
		}
		removed = st.Lines[index]
		st.Lines = append(st.Lines[:index], st.Lines[index+1:]...)
		return nil
	})
	return removed, err
}

// Clear drops all lines and master data and resets the view.
func (s *Service) Clear(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	err := s.mutate(ctx, "clear", true, func(st *models.PersistedState) error {
		st.Lines = nil
		st.Master = nil
		st.FileName = ""
		return nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.search = ""
	s.sort = SortState{}
	s.page = 1
	s.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Service) Snapshot() models.PersistedState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// MasterSummary describes the loaded master table.
type MasterSummary struct {
	FileName     string          `json:"fileName"`
	Records      int             `json:"records"`
	Categories   int             `json:"categories"`
	Lines        int             `json:"lines"`
	LastModified models.JSONTime `json:"lastModified"`
}

// Summary reports what master data is loaded.
func (s *Service) Summary() MasterSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return MasterSummary{
		FileName:     s.state.FileName,
		Records:      len(s.state.Master),
		Categories:   len(s.index.Categories()),
		Lines:        len(s.state.Lines),
		LastModified: s.state.LastModified,
	}
}

// Categories lists the selectable categories.
func (s *Service) Categories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Categories()
}

// SKUsForCategory lists the selectable SKUs of a category.
func (s *Service) SKUsForCategory(category string) []masterdata.SKUOption {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.SKUsForCategory(category)
}

// SetSearch filters the view and returns to the first page.
func (s *Service) SetSearch(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search = strings.TrimSpace(q)
	s.page = 1
}

// ToggleSort selects a sort column and returns to the first page.
func (s *Service) ToggleSort(field SortField) (SortState, error) {
	if field == SortNone || !field.Valid() {
		return SortState{}, fmt.Errorf("%w: %q", ErrUnknownSortField, field)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sort = s.sort.Toggle(field)
	s.page = 1
	return s.sort, nil
}

// SetSort replaces the sort column and direction and returns to the first
// page. SortNone clears sorting.
func (s *Service) SetSort(field SortField, asc bool) error {
	if !field.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownSortField, field)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sort = SortState{Field: field, Asc: asc}
	if field == SortNone {
		s.sort.Asc = false
	}
	s.page = 1
	return nil
}

// SetPage moves the view to page, clamped to the available pages.
func (s *Service) SetPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(Filtered(s.state.Lines, s.search, s.sort))
	s.page = ClampPage(page, TotalPages(n, s.pageSize))
}

// NextPage and PrevPage step the view by one page.
func (s *Service) NextPage() { s.step(1) }
func (s *Service) PrevPage() { s.step(-1) }

func (s *Service) step(delta int) {
	s.mu.Lock()
	page := s.page + delta
	s.mu.Unlock()
	s.SetPage(page)
}

// View projects the current page.
func (s *Service) View() Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := Project(s.state.Lines, Query{Search: s.search, Sort: s.sort, Page: s.page, PageSize: s.pageSize})
	s.page = p.Page
	return p
}

// ExportLines returns every line passing the current search, in view order.
func (s *Service) ExportLines() ([]models.RequisitionLine, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	views := Filtered(s.state.Lines, s.search, s.sort)
	out := make([]models.RequisitionLine, len(views))
	for i, v := range views {
		out[i] = v.RequisitionLine.Clone()
	}
	return out, s.state.FileName
}

// SyncStatus reports the remote mirror state.
type SyncStatus struct {
	Configured bool       `json:"configured"`
	Enabled    bool       `json:"enabled"`
	Remote     string     `json:"remote,omitempty"`
	LastSync   *time.Time `json:"lastSync,omitempty"`
	Indicator  string     `json:"indicator"`
}

// SyncStatus returns the current mirror status.
func (s *Service) SyncStatus() SyncStatus {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	st := SyncStatus{
		Configured: s.mirror != nil,
		Enabled:    s.syncEnabled,
		Indicator:  s.indicator,
	}
	if s.mirror != nil {
		st.Remote = s.mirror.Describe()
	}
	if !s.lastSync.IsZero() {
		t := s.lastSync
		st.LastSync = &t
	}
	return st
}

func (s *Service) setIndicator(v string) {
	s.syncMu.Lock()
	s.indicator = v
	s.syncMu.Unlock()
}

func (s *Service) recordPush(ctx context.Context) {
	now := s.now().UTC()
	s.syncMu.Lock()
	s.lastSync = now
	s.indicator = IndicatorAutoSync
	s.syncMu.Unlock()

	if err := s.settings.Set(ctx, models.SettingLastSyncTime, now.Format(time.RFC3339)); err != nil {
		log.Printf("⚠️ [SYNC] could not store last sync time: %v", err)
	}
}

// autoPush mirrors a snapshot after a mutation. Failures only change the
// indicator; local state is already saved.
func (s *Service) autoPush(ctx context.Context, snapshot models.PersistedState) {
	s.syncMu.Lock()
	enabled := s.syncEnabled
	s.syncMu.Unlock()
	if !enabled || s.mirror == nil {
		return
	}

	err := s.mirror.Push(ctx, snapshot)
	switch {
	case errors.Is(err, mirror.ErrPushInFlight):
		metrics.MirrorPushes.WithLabelValues("auto", metrics.ResultDropped).Inc()
	case err != nil:
		metrics.MirrorPushes.WithLabelValues("auto", metrics.ResultError).Inc()
		log.Printf("⚠️ [SYNC] silent push failed: %v", err)
		s.setIndicator(IndicatorOffline)
	default:
		metrics.MirrorPushes.WithLabelValues("auto", metrics.ResultOK).Inc()
		s.recordPush(ctx)
	}
}

// SyncNow pushes the current state and reports any failure.
func (s *Service) SyncNow(ctx context.Context) error {
	if s.mirror == nil {
		return ErrMirrorDisabled
	}
	s.setIndicator(IndicatorSyncing)

	err := s.mirror.Push(ctx, s.Snapshot())
	if errors.Is(err, mirror.ErrPushInFlight) {
		metrics.MirrorPushes.WithLabelValues("manual", metrics.ResultDropped).Inc()
		return err
	}
	if err != nil {
		metrics.MirrorPushes.WithLabelValues("manual", metrics.ResultError).Inc()
		s.setIndicator(IndicatorSyncFailed)
		return err
	}
	metrics.MirrorPushes.WithLabelValues("manual", metrics.ResultOK).Inc()
	s.recordPush(ctx)
	return nil
}

// ToggleSync flips the persisted sync flag. Enabling pushes immediately; a
// failed first push is returned but sync stays enabled so later mutations
// retry.
func (s *Service) ToggleSync(ctx context.Context) (SyncStatus, error) {
	if s.mirror == nil {
		return s.SyncStatus(), ErrMirrorDisabled
	}

	s.syncMu.Lock()
	s.syncEnabled = !s.syncEnabled
	enabled := s.syncEnabled
	if !enabled {
		s.indicator = IndicatorLocalOnly
	}
	s.syncMu.Unlock()

	if err := s.settings.Set(ctx, models.SettingSyncEnabled, strconv.FormatBool(enabled)); err != nil {
		return s.SyncStatus(), fmt.Errorf("store sync setting: %w", err)
	}
	if !enabled {
		log.Printf("[SYNC] remote mirror disabled, data stays local")
		return s.SyncStatus(), nil
	}

	log.Printf("[SYNC] remote mirror enabled: %s", s.mirror.Describe())
	err := s.SyncNow(ctx)
	return s.SyncStatus(), err
}

// Restore replaces local state with the remote copy. Nothing local changes
// unless the pull succeeds.
func (s *Service) Restore(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	if s.mirror == nil {
		return ErrMirrorDisabled
	}

	s.setIndicator(IndicatorRestoring)
	remote, err := s.mirror.Pull(ctx)
	if err != nil {
		s.setIndicator(IndicatorRestoreFailed)
		log.Printf("❌ [SYNC] restore failed: %v", err)
		return err
	}

	restored := sanitizeRestored(remote)
	err = s.mutate(ctx, "restore", true, func(st *models.PersistedState) error {
		*st = restored.Clone()
		return nil
	})
	if err != nil {
		s.setIndicator(IndicatorRestoreFailed)
		return err
	}

	s.mu.Lock()
	s.search = ""
	s.sort = SortState{}
	s.page = 1
	s.mu.Unlock()

	s.syncMu.Lock()
	if s.indicator == IndicatorRestoring {
		s.indicator = IndicatorLocalOnly
		if s.syncEnabled {
			s.indicator = IndicatorAutoSync
		}
	}
	s.syncMu.Unlock()

	log.Printf("✅ [SYNC] restored %d lines and %d master records", len(restored.Lines), len(restored.Master))
	return nil
}

// sanitizeRestored applies the rules local edits enforce to a remote copy:
// master rows need their key, lines need materials and a quantity in range.
func sanitizeRestored(remote models.PersistedState) models.PersistedState {
	out := models.PersistedState{
		FileName:     remote.FileName,
		LastModified: remote.LastModified,
	}
	for _, rec := range remote.Master {
		if rec.HasKey() {
			out.Master = append(out.Master, rec)
		}
	}
	for _, l := range remote.Lines {
		if len(l.Materials) == 0 {
			log.Printf("⚠️ [SYNC] dropping restored line %q without materials", l.SKUName)
			continue
		}
		l = l.Clone()
		l.QtyNeeded = ClampQuantity(strconv.Itoa(l.QtyNeeded))
		// blobs written by the browser tool carry no line IDs
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		out.Lines = append(out.Lines, l)
	}
	return out
}

// DarkMode reports the persisted dark-mode flag.
func (s *Service) DarkMode(ctx context.Context) (bool, error) {
	v, _, err := s.settings.Get(ctx, models.SettingDarkMode)
	if err != nil {
		return false, err
	}
	return v == "true", nil
}

// SetDarkMode persists the dark-mode flag.
func (s *Service) SetDarkMode(ctx context.Context, enabled bool) error {
	return s.settings.Set(ctx, models.SettingDarkMode, strconv.FormatBool(enabled))
}
