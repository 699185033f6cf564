package requisition

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"p9e.in/requisition/models"
	"p9e.in/requisition/pkg/mirror"
	"p9e.in/requisition/pkg/storage"
)

var fixedNow = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

func masterRecords() []models.MasterRecord {
	return []models.MasterRecord{
		{Category: "Snacks", SKUCode: "SK1", SKUName: "Chips", QtyPerUnit: "50", Unit: "g", QtyPerPack: "10", PackUnit: "pcs", RawMaterial: "Flour", QtyPerBatch: "2", BatchUnit: "kg"},
		{Category: "Snacks", SKUCode: "SK1", SKUName: "Chips", RawMaterial: "Salt", QtyPerBatch: "0.1", BatchUnit: "kg"},
		{Category: "Snacks", SKUCode: "SK2", SKUName: "Nuts"},
		{Category: "Drinks", SKUCode: "DR1", SKUName: "Cola", RawMaterial: "Syrup", QtyPerBatch: "5", BatchUnit: "l"},
	}
}

func newTestService(t *testing.T, m *mirror.Mirror) (*Service, *storage.MemoryStateRepository, *storage.MemorySettingsRepository) {
	t.Helper()
	states := storage.NewMemoryStateRepository()
	settings := storage.NewMemorySettingsRepository()
	svc := NewService(states, settings, Options{PageSize: 2, Mirror: m, Now: func() time.Time { return fixedNow }})
	require.NoError(t, svc.Load(context.Background()))
	require.NoError(t, svc.ImportMaster(context.Background(), "MasterTable.xlsx", masterRecords()))
	return svc, states, settings
}

type failingStates struct {
	storage.MemoryStateRepository
	fail bool
}

func (f *failingStates) Save(ctx context.Context, st models.PersistedState) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.MemoryStateRepository.Save(ctx, st)
}

type remoteStub struct {
	mu     sync.Mutex
	blob   string
	status int
	pushes int
}

func (s *remoteStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != 0 {
		w.WriteHeader(s.status)
		return
	}
	if r.Method == http.MethodPost {
		b, _ := io.ReadAll(r.Body)
		s.blob = string(b)
		s.pushes++
		return
	}
	if s.blob == "" {
		w.Write([]byte("error: nothing stored"))
		return
	}
	w.Write([]byte(s.blob))
}

func (s *remoteStub) setStatus(code int) {
	s.mu.Lock()
	s.status = code
	s.mu.Unlock()
}

func (s *remoteStub) setBlob(blob string) {
	s.mu.Lock()
	s.blob = blob
	s.mu.Unlock()
}

func (s *remoteStub) pushCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushes
}

func newRemote(t *testing.T) (*remoteStub, *mirror.Mirror) {
	t.Helper()
	stub := &remoteStub{}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	return stub, mirror.New(mirror.NewHTTPBackend(srv.URL, 5*time.Second), "test")
}

func TestImportMasterBuildsIndex(t *testing.T) {
	svc, states, _ := newTestService(t, nil)

	assert.Equal(t, []string{"Drinks", "Snacks"}, svc.Categories())
	skus := svc.SKUsForCategory("Snacks")
	require.Len(t, skus, 2)
	assert.Equal(t, "Chips", skus[0].Name)

	sum := svc.Summary()
	assert.Equal(t, "MasterTable.xlsx", sum.FileName)
	assert.Equal(t, 4, sum.Records)
	assert.True(t, fixedNow.Equal(sum.LastModified.Time()))

	persisted, err := states.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, persisted.Master, 4)
}

func TestAddLineComputesTotals(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	line, err := svc.AddLine(ctx, "Snacks", "SK1", "Chips")
	require.NoError(t, err)
	assert.Equal(t, 1, line.QtyNeeded)
	assert.Equal(t, "50", line.QtyPerUnit)
	assert.Equal(t, "pcs", line.PackUnit)
	require.Len(t, line.Materials, 2)

	qty, err := svc.SetQuantity(ctx, 0, "3")
	require.NoError(t, err)
	assert.Equal(t, 3, qty)

	page := svc.View()
	require.Len(t, page.Lines, 1)
	totals := page.Lines[0].Totals
	assert.Equal(t, "6 kg", totals[0].Display)
	assert.Equal(t, "0.3 kg", totals[1].Display)
	assert.Equal(t, 2, page.Lines[0].MaterialCount)
}

func TestAddLineErrors(t *testing.T) {
	svc, states, _ := newTestService(t, nil)
	ctx := context.Background()
	before := states.Saves()

	_, err := svc.AddLine(ctx, "Snacks", "SK2", "Nuts")
	assert.ErrorIs(t, err, ErrNoMaterialsFound)

	_, err = svc.AddLine(ctx, "Snacks", "XX", "Ghost")
	assert.ErrorIs(t, err, ErrSKUNotFound)

	assert.Equal(t, before, states.Saves())
	assert.Empty(t, svc.Snapshot().Lines)
}

func TestAddLineJumpsToLastPage(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.AddLine(ctx, "Snacks", "SK1", "Chips")
		require.NoError(t, err)
	}
	page := svc.View()
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Lines, 1)
	assert.Equal(t, 4, page.Lines[0].Index)
}

func TestSetQuantityClamps(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.AddLine(ctx, "Snacks", "SK1", "Chips")
	require.NoError(t, err)

	cases := map[string]int{"0": 1, "150": 99, "abc": 1, "7": 7}
	for raw, want := range cases {
		got, err := svc.SetQuantity(ctx, 0, raw)
		require.NoError(t, err)
		assert.Equal(t, want, got, raw)
		assert.Equal(t, want, svc.Snapshot().Lines[0].QtyNeeded, raw)
	}

	_, err = svc.SetQuantity(ctx, 3, "2")
	assert.ErrorIs(t, err, ErrLineNotFound)
}

func TestSetSupplierTrims(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.AddLine(ctx, "Snacks", "SK1", "Chips")
	require.NoError(t, err)

	require.NoError(t, svc.SetSupplier(ctx, 0, "  Acme Foods "))
	assert.Equal(t, "Acme Foods", svc.Snapshot().Lines[0].Supplier)
	assert.ErrorIs(t, svc.SetSupplier(ctx, -1, "x"), ErrLineNotFound)
}

func TestRemoveOnlyLine(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.AddLine(ctx, "Snacks", "SK1", "Chips")
	require.NoError(t, err)

	_, err = svc.RemoveLine(ctx, 0, false)
	assert.ErrorIs(t, err, ErrConfirmationRequired)
	assert.Len(t, svc.Snapshot().Lines, 1)

	removed, err := svc.RemoveLine(ctx, 0, true)
	require.NoError(t, err)
	assert.Equal(t, "Chips", removed.SKUName)

	page := svc.View()
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 1, page.TotalPages)
	assert.Empty(t, page.Lines)

	lines, _ := svc.ExportLines()
	assert.Empty(t, lines)
}

func TestClearResetsEverything(t *testing.T) {
	svc, states, _ := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.AddLine(ctx, "Snacks", "SK1", "Chips")
	require.NoError(t, err)
	svc.SetSearch("chi")
	_, err = svc.ToggleSort(SortSKUName)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Clear(ctx, false), ErrConfirmationRequired)
	require.NoError(t, svc.Clear(ctx, true))

	assert.Empty(t, svc.Categories())
	page := svc.View()
	assert.Empty(t, page.Search)
	assert.Equal(t, SortNone, page.Sort.Field)

	persisted, err := states.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, persisted.Lines)
	assert.Empty(t, persisted.Master)
	assert.Empty(t, persisted.FileName)
}

func TestSaveFailureLeavesStateUnchanged(t *testing.T) {
	states := &failingStates{}
	svc := NewService(states, storage.NewMemorySettingsRepository(), Options{})
	ctx := context.Background()
	require.NoError(t, svc.Load(ctx))
	require.NoError(t, svc.ImportMaster(ctx, "m.csv", masterRecords()))

	states.fail = true
	_, err := svc.AddLine(ctx, "Snacks", "SK1", "Chips")
	require.Error(t, err)
	assert.Empty(t, svc.Snapshot().Lines)
}

func TestSearchAndSortResetPage(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()
	for _, sku := range []struct{ cat, code, name string }{
		{"Snacks", "SK1", "Chips"}, {"Drinks", "DR1", "Cola"}, {"Snacks", "SK1", "Chips"},
	} {
		_, err := svc.AddLine(ctx, sku.cat, sku.code, sku.name)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, svc.View().Page)

	svc.SetSearch("cola")
	page := svc.View()
	assert.Equal(t, 1, page.Page)
	require.Len(t, page.Lines, 1)
	assert.Equal(t, 1, page.Lines[0].Index)

	svc.SetSearch("")
	svc.NextPage()
	st, err := svc.ToggleSort(SortSKUName)
	require.NoError(t, err)
	assert.True(t, st.Asc)
	assert.Equal(t, 1, svc.View().Page)
	assert.Equal(t, "Chips", svc.View().Lines[0].SKUName)

	st, err = svc.ToggleSort(SortSKUName)
	require.NoError(t, err)
	assert.False(t, st.Asc)
	assert.Equal(t, "Cola", svc.View().Lines[0].SKUName)

	_, err = svc.ToggleSort("weight")
	assert.ErrorIs(t, err, ErrUnknownSortField)
}

func TestPagingClamps(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := svc.AddLine(ctx, "Snacks", "SK1", "Chips")
		require.NoError(t, err)
	}
	svc.SetPage(10)
	assert.Equal(t, 2, svc.View().Page)
	svc.NextPage()
	assert.Equal(t, 2, svc.View().Page)
	svc.PrevPage()
	svc.PrevPage()
	assert.Equal(t, 1, svc.View().Page)
}

func TestExportLinesFollowsView(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.AddLine(ctx, "Snacks", "SK1", "Chips")
	require.NoError(t, err)
	_, err = svc.AddLine(ctx, "Drinks", "DR1", "Cola")
	require.NoError(t, err)

	svc.SetSearch("drinks")
	lines, fileName := svc.ExportLines()
	require.Len(t, lines, 1)
	assert.Equal(t, "Cola", lines[0].SKUName)
	assert.Equal(t, "MasterTable.xlsx", fileName)
}

func TestSyncRequiresMirror(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.ToggleSync(ctx)
	assert.ErrorIs(t, err, ErrMirrorDisabled)
	assert.ErrorIs(t, svc.SyncNow(ctx), ErrMirrorDisabled)
	assert.ErrorIs(t, svc.Restore(ctx, true), ErrMirrorDisabled)

	st := svc.SyncStatus()
	assert.False(t, st.Configured)
	assert.Equal(t, IndicatorLocalOnly, st.Indicator)
}

func TestToggleSyncPushesAndAutoSyncs(t *testing.T) {
	stub, m := newRemote(t)
	svc, _, settings := newTestService(t, m)
	ctx := context.Background()

	st, err := svc.ToggleSync(ctx)
	require.NoError(t, err)
	assert.True(t, st.Enabled)
	assert.Equal(t, IndicatorAutoSync, st.Indicator)
	require.NotNil(t, st.LastSync)
	assert.Equal(t, 1, stub.pushCount())

	v, _, _ := settings.Get(ctx, models.SettingSyncEnabled)
	assert.Equal(t, "true", v)

	_, err = svc.AddLine(ctx, "Snacks", "SK1", "Chips")
	require.NoError(t, err)
	assert.Equal(t, 2, stub.pushCount())

	st, err = svc.ToggleSync(ctx)
	require.NoError(t, err)
	assert.False(t, st.Enabled)
	assert.Equal(t, IndicatorLocalOnly, st.Indicator)

	_, err = svc.SetQuantity(ctx, 0, "4")
	require.NoError(t, err)
	assert.Equal(t, 2, stub.pushCount())
}

func TestAutoPushFailureKeepsLocalState(t *testing.T) {
	stub, m := newRemote(t)
	svc, states, _ := newTestService(t, m)
	ctx := context.Background()
	_, err := svc.ToggleSync(ctx)
	require.NoError(t, err)

	stub.setStatus(http.StatusInternalServerError)
	_, err = svc.AddLine(ctx, "Snacks", "SK1", "Chips")
	require.NoError(t, err)

	assert.Len(t, svc.Snapshot().Lines, 1)
	persisted, err := states.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, persisted.Lines, 1)
	assert.Equal(t, IndicatorOffline, svc.SyncStatus().Indicator)
}

func TestSyncNowFailure(t *testing.T) {
	stub, m := newRemote(t)
	svc, _, _ := newTestService(t, m)
	stub.setStatus(http.StatusBadGateway)

	err := svc.SyncNow(context.Background())
	var se *mirror.SyncError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Status)
	assert.Equal(t, IndicatorSyncFailed, svc.SyncStatus().Indicator)
}

func TestRestoreReplacesState(t *testing.T) {
	stub, m := newRemote(t)
	svc, _, _ := newTestService(t, m)
	ctx := context.Background()

	_, err := svc.AddLine(ctx, "Snacks", "SK1", "Chips")
	require.NoError(t, err)
	require.NoError(t, svc.SyncNow(ctx))
	require.Equal(t, 1, stub.pushCount())

	require.NoError(t, svc.Clear(ctx, true))
	assert.Empty(t, svc.Categories())

	assert.ErrorIs(t, svc.Restore(ctx, false), ErrConfirmationRequired)
	require.NoError(t, svc.Restore(ctx, true))

	snap := svc.Snapshot()
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, "Chips", snap.Lines[0].SKUName)
	assert.Len(t, snap.Master, 4)
	assert.Equal(t, "MasterTable.xlsx", snap.FileName)
	assert.Equal(t, []string{"Drinks", "Snacks"}, svc.Categories())
}

func TestRestoreWithoutBackupKeepsLocal(t *testing.T) {
	_, m := newRemote(t)
	svc, _, _ := newTestService(t, m)
	ctx := context.Background()
	_, err := svc.AddLine(ctx, "Snacks", "SK1", "Chips")
	require.NoError(t, err)

	err = svc.Restore(ctx, true)
	assert.ErrorIs(t, err, mirror.ErrNoBackup)
	assert.Len(t, svc.Snapshot().Lines, 1)
	assert.Equal(t, IndicatorRestoreFailed, svc.SyncStatus().Indicator)
}

func TestLoadRestoresSettings(t *testing.T) {
	_, m := newRemote(t)
	states := storage.NewMemoryStateRepository()
	settings := storage.NewMemorySettingsRepository()
	ctx := context.Background()
	require.NoError(t, settings.Set(ctx, models.SettingSyncEnabled, "true"))
	require.NoError(t, settings.Set(ctx, models.SettingLastSyncTime, fixedNow.Format(time.RFC3339)))

	svc := NewService(states, settings, Options{Mirror: m})
	require.NoError(t, svc.Load(ctx))

	st := svc.SyncStatus()
	assert.True(t, st.Enabled)
	assert.Equal(t, IndicatorAutoSync, st.Indicator)
	require.NotNil(t, st.LastSync)
	assert.True(t, fixedNow.Equal(*st.LastSync))
}

func TestDarkMode(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	on, err := svc.DarkMode(ctx)
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, svc.SetDarkMode(ctx, true))
	on, err = svc.DarkMode(ctx)
	require.NoError(t, err)
	assert.True(t, on)
}

func TestSetSort(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.AddLine(ctx, "Snacks", "SK1", "Chips")
	require.NoError(t, err)
	_, err = svc.AddLine(ctx, "Drinks", "DR1", "Cola")
	require.NoError(t, err)

	require.NoError(t, svc.SetSort(SortCategory, true))
	page := svc.View()
	assert.Equal(t, "Drinks", page.Lines[0].Category)

	require.NoError(t, svc.SetSort(SortNone, true))
	assert.Equal(t, SortState{}, svc.View().Sort)
	assert.Equal(t, "Snacks", svc.View().Lines[0].Category)

	assert.ErrorIs(t, svc.SetSort("colour", true), ErrUnknownSortField)
}

func TestRestoreRejectsNullBlob(t *testing.T) {
	stub, m := newRemote(t)
	svc, states, _ := newTestService(t, m)
	ctx := context.Background()
	_, err := svc.AddLine(ctx, "Snacks", "SK1", "Chips")
	require.NoError(t, err)

	stub.setBlob("null")
	err = svc.Restore(ctx, true)
	var se *mirror.SyncError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "restore", se.Op)

	snap := svc.Snapshot()
	assert.Len(t, snap.Lines, 1)
	assert.Len(t, snap.Master, 4)
	persisted, err := states.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, persisted.Lines, 1)
	assert.Equal(t, IndicatorRestoreFailed, svc.SyncStatus().Indicator)
}

func TestRestoreAppliesLineRules(t *testing.T) {
	stub, m := newRemote(t)
	svc, _, _ := newTestService(t, m)
	ctx := context.Background()

	stub.setBlob(`{"requisitionRows":[` +
		`{"skuCode":"SK1","skuName":"Chips","category":"Snacks","qtyNeeded":500,"materials":[{"name":"Flour","qty":"2","unit":"kg"}]},` +
		`{"skuCode":"SK1","skuName":"Chips","category":"Snacks","qtyNeeded":0,"materials":[{"name":"Salt","qty":"1","unit":"kg"}]},` +
		`{"skuCode":"X","skuName":"Empty","category":"Snacks","qtyNeeded":3,"materials":[]}],` +
		`"masterData":[{"CATEGORY":"Snacks","SKU CODE":"SK1","SKU":"Chips","RAW MATERIAL":"Flour","QUANTITY/BATCH":"2","UNIT4":"kg"},` +
		`{"CATEGORY":"","SKU CODE":"","SKU":""}],` +
		`"uploadedFileName":"remote.xlsx","lastModified":"2025-06-01T08:00:00.000Z"}`)

	require.NoError(t, svc.Restore(ctx, true))

	snap := svc.Snapshot()
	require.Len(t, snap.Lines, 2)
	assert.Equal(t, 99, snap.Lines[0].QtyNeeded)
	assert.Equal(t, 1, snap.Lines[1].QtyNeeded)
	for _, l := range snap.Lines {
		assert.NotEmpty(t, l.Materials)
		assert.NotEqual(t, uuid.Nil, l.ID)
	}
	require.Len(t, snap.Master, 1)
	assert.True(t, snap.Master[0].HasKey())
	assert.Equal(t, "remote.xlsx", snap.FileName)
}
