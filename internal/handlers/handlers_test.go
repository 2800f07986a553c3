package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ppcp-backend/internal/auth"
	"ppcp-backend/internal/backup"
	"ppcp-backend/internal/config"
	"ppcp-backend/internal/health"
	"ppcp-backend/internal/models"
	"ppcp-backend/internal/repositories"
	"ppcp-backend/internal/services"

	"github.com/gorilla/mux"
)

func newTestServices(t *testing.T) (*services.EntryService, *services.ReportService) {
	t.Helper()
	store := repositories.NewEntryStore(repositories.NewMemoryStateRepository())
	entries := services.NewEntryService(store)
	n := 0
	entries.NewID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	entries.Now = func() time.Time {
		return time.Date(2024, 3, 5, 14, 7, 0, 0, time.UTC)
	}
	reports := services.NewReportService(store)
	reports.Now = entries.Now
	return entries, reports
}

func entryBody(oc, status, priority string) string {
	b, _ := json.Marshal(models.EntryFields{
		OrderCode:                  oc,
		PartNumber:                 "PN-1",
		ExternalCode:               "E-1",
		PlannedProductionDate:      "2024-01-10",
		PlannedTreatmentDate:       "2024-01-12",
		PlannedTreatmentReturnDate: "2024-01-15",
		PlannedDeliveryDate:        "2024-03-01",
		Status:                     status,
		Priority:                   priority,
	})
	return string(b)
}

func multipartFile(t *testing.T, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	fw.Write(data)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestEntryHandler_CreateAndList(t *testing.T) {
	svc, _ := newTestServices(t)
	h := NewEntryHandler(svc)

	for _, body := range []string{
		entryBody("OC-NORMAL", "", ""),
		entryBody("OC-URGENT", "Em produção", "Urgencia Máxima"),
	} {
		w := httptest.NewRecorder()
		h.CreateEntry(w, httptest.NewRequest(http.MethodPost, "/api/entries", strings.NewReader(body)))
		if w.Code != http.StatusCreated {
			t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
		}
	}

	w := httptest.NewRecorder()
	h.ListEntries(w, httptest.NewRequest(http.MethodGet, "/api/entries", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var got []models.Entry
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(got) != 2 || got[0].OrderCode != "OC-URGENT" {
		t.Errorf("expected urgent entry first, got %+v", got)
	}

	w = httptest.NewRecorder()
	h.ListEntries(w, httptest.NewRequest(http.MethodGet, "/api/entries?status=Nesting", nil))
	got = nil
	json.NewDecoder(w.Body).Decode(&got)
	if len(got) != 1 || got[0].OrderCode != "OC-NORMAL" {
		t.Errorf("status filter: got %+v", got)
	}
}

func TestEntryHandler_CreateValidationError(t *testing.T) {
	svc, _ := newTestServices(t)
	h := NewEntryHandler(svc)

	w := httptest.NewRecorder()
	h.CreateEntry(w, httptest.NewRequest(http.MethodPost, "/api/entries", strings.NewReader(`{"oc":""}`)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	var resp validationResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	found := false
	for _, f := range resp.Fields {
		if f.Field == models.FieldOrderCode {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an oc field error, got %+v", resp.Fields)
	}
}

func TestEntryHandler_BadJSON(t *testing.T) {
	svc, _ := newTestServices(t)
	h := NewEntryHandler(svc)

	w := httptest.NewRecorder()
	h.CreateEntry(w, httptest.NewRequest(http.MethodPost, "/api/entries", strings.NewReader(`{`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestEntryHandler_GetUpdateDelete(t *testing.T) {
	svc, _ := newTestServices(t)
	h := NewEntryHandler(svc)
	ctx := context.Background()

	var fields models.EntryFields
	json.Unmarshal([]byte(entryBody("OC1", "", "")), &fields)
	created, err := svc.Create(ctx, fields)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/entries/"+created.ID, nil), map[string]string{"id": created.ID})
	w := httptest.NewRecorder()
	h.GetEntry(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	req = mux.SetURLVars(httptest.NewRequest(http.MethodPut, "/api/entries/"+created.ID,
		strings.NewReader(entryBody("OC1-EDIT", "Concluído", ""))), map[string]string{"id": created.ID})
	w = httptest.NewRecorder()
	h.UpdateEntry(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", w.Code, w.Body.String())
	}
	var updated models.Entry
	json.NewDecoder(w.Body).Decode(&updated)
	if updated.ID != created.ID || updated.OrderCode != "OC1-EDIT" || updated.Status != models.StatusCompleted {
		t.Errorf("unexpected update result %+v", updated)
	}

	req = mux.SetURLVars(httptest.NewRequest(http.MethodDelete, "/api/entries/"+created.ID, nil), map[string]string{"id": created.ID})
	w = httptest.NewRecorder()
	h.DeleteEntry(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}

	req = mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/entries/"+created.ID, nil), map[string]string{"id": created.ID})
	w = httptest.NewRecorder()
	h.GetEntry(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", w.Code)
	}
}

func TestEntryHandler_Vocabulary(t *testing.T) {
	svc, _ := newTestServices(t)
	h := NewEntryHandler(svc)

	w := httptest.NewRecorder()
	h.Vocabulary(w, httptest.NewRequest(http.MethodGet, "/api/vocabulary", nil))

	var resp VocabularyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(resp.Statuses) != 8 || len(resp.Priorities) != 4 {
		t.Errorf("got %d statuses, %d priorities", len(resp.Statuses), len(resp.Priorities))
	}
	if len(resp.Filters) != 9 || resp.Filters[0] != services.StatusFilterAll {
		t.Errorf("unexpected filters %v", resp.Filters)
	}
	if resp.Defaults.Status != string(models.StatusNesting) {
		t.Errorf("default status = %q", resp.Defaults.Status)
	}
}

func TestInterchangeHandler_ExportImportCSV(t *testing.T) {
	svc, _ := newTestServices(t)
	entries := NewEntryHandler(svc)
	h := NewInterchangeHandler(svc)

	w := httptest.NewRecorder()
	entries.CreateEntry(w, httptest.NewRequest(http.MethodPost, "/api/entries", strings.NewReader(entryBody("OC1", "", ""))))

	w = httptest.NewRecorder()
	h.Export(w, httptest.NewRequest(http.MethodGet, "/api/entries/export?format=csv", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "ppcp_data.csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	exported := w.Body.Bytes()
	if !bytes.Contains(exported, []byte("10/01/2024")) {
		t.Errorf("expected display dates in export, got %s", exported)
	}

	body, ct := multipartFile(t, "ppcp_data.csv", exported)
	req := httptest.NewRequest(http.MethodPost, "/api/entries/import", body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	h.Import(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("import status = %d, body %s", w.Code, w.Body.String())
	}
	var report services.ImportReport
	json.NewDecoder(w.Body).Decode(&report)
	if report.Imported != 1 || len(report.Rejected) != 0 {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestInterchangeHandler_ExportXLSXAndUnknownFormat(t *testing.T) {
	svc, _ := newTestServices(t)
	h := NewInterchangeHandler(svc)

	w := httptest.NewRecorder()
	h.Export(w, httptest.NewRequest(http.MethodGet, "/api/entries/export", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("PK")) {
		t.Error("expected a zip-based workbook")
	}

	w = httptest.NewRecorder()
	h.Export(w, httptest.NewRequest(http.MethodGet, "/api/entries/export?format=ods", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown format status = %d, want 400", w.Code)
	}
}

func TestInterchangeHandler_ImportNothingValid(t *testing.T) {
	svc, _ := newTestServices(t)
	h := NewInterchangeHandler(svc)

	csv := "oc,pn,codigoE,dataProd,dataTrat,dataRetTrat,dataEntrega,possuiCD,fichaSeguidora,status,prioridade\n" +
		"OC1,PN,E,99/99/2024,12/01/2024,15/01/2024,20/01/2024,Não,Não,Nesting,Normal\n"
	body, ct := multipartFile(t, "in.csv", []byte(csv))
	req := httptest.NewRequest(http.MethodPost, "/api/entries/import", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	h.Import(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	var report services.ImportReport
	json.NewDecoder(w.Body).Decode(&report)
	if len(report.Rejected) != 1 || report.Rejected[0].Line != 2 {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestInterchangeHandler_ImportMissingColumns(t *testing.T) {
	svc, _ := newTestServices(t)
	h := NewInterchangeHandler(svc)

	body, ct := multipartFile(t, "in.csv", []byte("oc,pn\nOC1,PN\n"))
	req := httptest.NewRequest(http.MethodPost, "/api/entries/import", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	h.Import(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestInterchangeHandler_ImportWithoutFile(t *testing.T) {
	svc, _ := newTestServices(t)
	h := NewInterchangeHandler(svc)

	w := httptest.NewRecorder()
	h.Import(w, httptest.NewRequest(http.MethodPost, "/api/entries/import", strings.NewReader("x")))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestInterchangeHandler_BackupRestore(t *testing.T) {
	svc, _ := newTestServices(t)
	entries := NewEntryHandler(svc)
	h := NewInterchangeHandler(svc)

	w := httptest.NewRecorder()
	entries.CreateEntry(w, httptest.NewRequest(http.MethodPost, "/api/entries", strings.NewReader(entryBody("OC1", "", ""))))

	w = httptest.NewRecorder()
	h.Backup(w, httptest.NewRequest(http.MethodGet, "/api/backup", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("backup status = %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, ".json") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	snapshot := w.Body.Bytes()

	if err := svc.Delete(context.Background(), "id-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	body, ct := multipartFile(t, "backup.json", snapshot)
	req := httptest.NewRequest(http.MethodPost, "/api/restore", body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	h.Restore(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("restore status = %d, body %s", w.Code, w.Body.String())
	}

	all, _ := svc.All(context.Background())
	if len(all) != 1 || all[0].OrderCode != "OC1" {
		t.Errorf("collection after restore = %+v", all)
	}
}

func TestInterchangeHandler_RestoreRejectsGarbage(t *testing.T) {
	svc, _ := newTestServices(t)
	h := NewInterchangeHandler(svc)

	body, ct := multipartFile(t, "backup.json", []byte("not json"))
	req := httptest.NewRequest(http.MethodPost, "/api/restore", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	h.Restore(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestInterchangeHandler_RestoreInvalidEntryKeepsContext(t *testing.T) {
	svc, _ := newTestServices(t)
	h := NewInterchangeHandler(svc)

	snapshot := `{"version":1,"timestamp":"2024-03-05T14:07:00Z","entries":[{"id":"x1","oc":"","pn":"PN","codigoE":"E",` +
		`"dataProd":"2024-01-10","dataTrat":"2024-01-11","dataRetTrat":"2024-01-12","dataEntrega":"2024-01-13",` +
		`"possuiCD":"Não","fichaSeguidora":"Não","status":"Nesting","prioridade":"Normal"}]}`
	body, ct := multipartFile(t, "backup.json", []byte(snapshot))
	req := httptest.NewRequest(http.MethodPost, "/api/restore", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	h.Restore(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp validationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(resp.Error, "snapshot: entry 0:") {
		t.Errorf("error = %q, want snapshot entry context", resp.Error)
	}
	if len(resp.Fields) == 0 || resp.Fields[0].Field != models.FieldOrderCode {
		t.Errorf("fields = %+v, want oc violation", resp.Fields)
	}
}

func TestReportHandler_Endpoints(t *testing.T) {
	svc, reports := newTestServices(t)
	entries := NewEntryHandler(svc)
	h := NewReportHandler(reports)

	w := httptest.NewRecorder()
	entries.CreateEntry(w, httptest.NewRequest(http.MethodPost, "/api/entries", strings.NewReader(entryBody("OC1", "", ""))))

	w = httptest.NewRecorder()
	h.PriorityHistogram(w, httptest.NewRequest(http.MethodGet, "/api/reports/priority", nil))
	var buckets []services.Bucket
	json.NewDecoder(w.Body).Decode(&buckets)
	if len(buckets) != 4 {
		t.Errorf("priority buckets = %+v", buckets)
	}

	w = httptest.NewRecorder()
	h.StatusHistogram(w, httptest.NewRequest(http.MethodGet, "/api/reports/status", nil))
	buckets = nil
	json.NewDecoder(w.Body).Decode(&buckets)
	if len(buckets) != 8 {
		t.Errorf("status buckets = %+v", buckets)
	}

	w = httptest.NewRecorder()
	h.Overdue(w, httptest.NewRequest(http.MethodGet, "/api/reports/overdue?as_of=2024-03-06", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("overdue status = %d", w.Code)
	}
	var items []services.OverdueItem
	json.NewDecoder(w.Body).Decode(&items)
	if len(items) != 1 || items[0].DaysLate != 5 {
		t.Errorf("overdue items = %+v", items)
	}
}

func TestReportHandler_BadInput(t *testing.T) {
	_, reports := newTestServices(t)
	h := NewReportHandler(reports)

	tests := []struct {
		name string
		url  string
	}{
		{"unknown field", "/api/reports/overdue?field=oc"},
		{"bad as_of", "/api/reports/overdue?as_of=06/03/2024"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Overdue(w, httptest.NewRequest(http.MethodGet, tt.url, nil))
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestReportHandler_SummaryPDF(t *testing.T) {
	_, reports := newTestServices(t)
	h := NewReportHandler(reports)

	w := httptest.NewRecorder()
	h.SummaryPDF(w, httptest.NewRequest(http.MethodGet, "/api/reports/summary.pdf", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")) {
		t.Error("expected a PDF document")
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "ppcp_resumo_") {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func newTestAuthHandler(t *testing.T) *AuthHandler {
	t.Helper()
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Issuer = "ppcp"
	cfg.JWT.ExpirationHours = 1

	hash, err := auth.HashPassword("s3nha")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	return NewAuthHandler(services.NewAuthService("ppcp", hash, auth.NewJWTManager(cfg)))
}

func TestAuthHandler_Login(t *testing.T) {
	h := newTestAuthHandler(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"valid", `{"username":"ppcp","password":"s3nha"}`, http.StatusOK},
		{"wrong password", `{"username":"ppcp","password":"x"}`, http.StatusUnauthorized},
		{"wrong user", `{"username":"admin","password":"s3nha"}`, http.StatusUnauthorized},
		{"bad body", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Login(w, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tt.body)))
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func TestAuthHandler_GenericFailureMessage(t *testing.T) {
	h := newTestAuthHandler(t)

	w := httptest.NewRecorder()
	h.Login(w, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"ppcp","password":"x"}`)))
	var resp map[string]string
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["error"] != "Credenciais inválidas" {
		t.Errorf("error = %q", resp["error"])
	}
}

func TestHealthHandler(t *testing.T) {
	healthy := NewHealthHandler(health.NewHealthChecker(nil, nil))
	w := httptest.NewRecorder()
	healthy.ReadinessHealth(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if w.Code != http.StatusOK {
		t.Errorf("memory storage readiness = %d, want 200", w.Code)
	}

	down := health.PingFunc(func(ctx context.Context) error { return errors.New("down") })
	unhealthy := NewHealthHandler(health.NewHealthChecker(down, nil))
	w = httptest.NewRecorder()
	unhealthy.ReadinessHealth(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("failing storage readiness = %d, want 503", w.Code)
	}

	w = httptest.NewRecorder()
	unhealthy.BasicHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("liveness = %d, want 200", w.Code)
	}
}

type fakeRemote struct {
	list []backup.RemoteBackup
	data map[string][]byte
}

func (f *fakeRemote) List(ctx context.Context) ([]backup.RemoteBackup, error) {
	return f.list, nil
}

func (f *fakeRemote) Download(ctx context.Context, key string) ([]byte, string, error) {
	if key == "" && len(f.list) > 0 {
		key = f.list[0].Key
	}
	data, ok := f.data[key]
	if !ok {
		return nil, "", backup.ErrBackupNotFound
	}
	return data, key, nil
}

type fakeRunner struct{ key string }

func (f fakeRunner) RunOnce(ctx context.Context) (string, error) { return f.key, nil }

func TestBackupHandler(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()

	var fields models.EntryFields
	json.Unmarshal([]byte(entryBody("OC1", "", "")), &fields)
	svc.Create(ctx, fields)
	snapshot, _, err := svc.Backup(ctx)
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}
	svc.Delete(ctx, "id-1")

	remote := &fakeRemote{
		list: []backup.RemoteBackup{{Key: "backups/b.json"}},
		data: map[string][]byte{"backups/b.json": snapshot},
	}
	h := NewBackupHandler(svc, remote, fakeRunner{key: "backups/new.json"})

	w := httptest.NewRecorder()
	h.BackupNow(w, httptest.NewRequest(http.MethodPost, "/api/backup/remote", nil))
	if w.Code != http.StatusCreated || !strings.Contains(w.Body.String(), "backups/new.json") {
		t.Errorf("backup now: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	h.ListRemote(w, httptest.NewRequest(http.MethodGet, "/api/backup/remote", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "backups/b.json") {
		t.Errorf("list: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	h.RestoreRemote(w, httptest.NewRequest(http.MethodPost, "/api/restore/remote?key=missing.json", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("missing key status = %d, want 404", w.Code)
	}

	w = httptest.NewRecorder()
	h.RestoreRemote(w, httptest.NewRequest(http.MethodPost, "/api/restore/remote", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("restore latest status = %d, body %s", w.Code, w.Body.String())
	}
	all, _ := svc.All(ctx)
	if len(all) != 1 {
		t.Errorf("collection after remote restore has %d entries", len(all))
	}
}
