package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/devports/go-lending-backend/internal/domain"
	"github.com/devports/go-lending-backend/internal/http/middleware"
	"github.com/devports/go-lending-backend/internal/services"
	"github.com/devports/go-lending-backend/internal/store/sqlstore"
)

// ---------- test wiring over an in-memory store ----------

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// Unique DSN per call to avoid cross-test contamination
	dsn := fmt.Sprintf("file:device_handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := sqlstore.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	st := sqlstore.New(db)

	h := New(
		services.NewDeviceService(st.Devices),
		services.NewLendingService(st.Devices, st.History, zerolog.Nop()),
		services.NewHistoryService(st.History),
	)

	r := gin.New()
	r.Use(middleware.Identity())
	api := r.Group("/api/v1")
	{
		api.POST("/devices", middleware.AdminRequired(), h.RegisterDevice)
		api.GET("/devices", h.ListDevices)
		api.GET("/devices/export.csv", middleware.AdminRequired(), h.ExportDevicesCSV)
		api.GET("/devices/:id", h.GetDevice)
		api.PUT("/devices/:id", middleware.AdminRequired(), h.UpdateDevice)
		api.DELETE("/devices/:id", middleware.AdminRequired(), h.DeleteDevice)
		api.POST("/devices/:id/borrow", h.BorrowDevice)
		api.POST("/devices/:id/return", h.ReturnDevice)
		api.POST("/devices/:id/force-return", middleware.AdminRequired(), h.ForceReturnDevice)
		api.GET("/history", h.ListHistory)
		api.DELETE("/history/:id", middleware.AdminRequired(), h.DeleteHistory)
	}
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

var adminHeaders = map[string]string{
	"X-User-ID":   "admin-1",
	"X-User-Name": "Root",
	"X-User-Role": "admin",
}

func registerViaAPI(t *testing.T, r *gin.Engine, form map[string]any) domain.Device {
	t.Helper()
	if form == nil {
		form = map[string]any{
			"model_name":   "Pixel 8",
			"os_name":      "Android",
			"os_version":   "14",
			"manufacturer": "Google",
			"uuid":         uuid.NewString(),
		}
	}
	w := doJSON(t, r, http.MethodPost, "/api/v1/devices", form, adminHeaders)
	if w.Code != http.StatusCreated {
		t.Fatalf("register device: status %d body %s", w.Code, w.Body.String())
	}
	var d domain.Device
	if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode device: %v", err)
	}
	return d
}

// ---------- device registry endpoints ----------

func TestRegisterDevice_Created(t *testing.T) {
	r := newTestRouter(t)
	d := registerViaAPI(t, r, nil)

	if d.DisplayID != "A00001" {
		t.Fatalf("expected display id A00001, got %q", d.DisplayID)
	}
	if d.Status != domain.StatusAvailable {
		t.Fatalf("expected available, got %q", d.Status)
	}
}

func TestRegisterDevice_RequiresAdmin(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/devices", map[string]any{
		"model_name": "Pixel 8", "os_name": "Android",
	}, map[string]string{"X-User-ID": "u-1"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/devices", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous, got %d", w.Code)
	}
}

func TestRegisterDevice_BadBody(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(t, r, http.MethodPost, "/api/v1/devices", map[string]any{"os_name": "Android"}, adminHeaders)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (body %s)", w.Code, w.Body.String())
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if resp.Code != ErrCodeBadRequest {
		t.Fatalf("expected code %q, got %q", ErrCodeBadRequest, resp.Code)
	}
}

func TestRegisterDevice_DuplicateUUID(t *testing.T) {
	r := newTestRouter(t)
	form := map[string]any{"model_name": "Pixel 8", "os_name": "Android", "os_version": "14", "uuid": "hw-dup"}
	registerViaAPI(t, r, form)

	w := doJSON(t, r, http.MethodPost, "/api/v1/devices", form, adminHeaders)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (body %s)", w.Code, w.Body.String())
	}
	var resp ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Code != ErrCodeDuplicateDevice {
		t.Fatalf("expected code %q, got %q", ErrCodeDuplicateDevice, resp.Code)
	}
}

func TestGetDevice_NotFound(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/api/v1/devices/"+uuid.NewString(), nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListDevices_FilterAndSearch(t *testing.T) {
	r := newTestRouter(t)
	registerViaAPI(t, r, map[string]any{"model_name": "Pixel 8", "os_name": "Android", "os_version": "14", "uuid": uuid.NewString()})
	registerViaAPI(t, r, map[string]any{"model_name": "iPhone 15", "os_name": "iOS", "os_version": "17.4", "uuid": uuid.NewString()})

	w := doJSON(t, r, http.MethodGet, "/api/v1/devices?os=iOS", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp ListDevicesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if resp.Total != 1 || resp.Devices[0].ModelName != "iPhone 15" {
		t.Fatalf("unexpected list response: %+v", resp)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/devices?status=broken", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad status filter, got %d", w.Code)
	}
}

func TestUpdateDevice(t *testing.T) {
	r := newTestRouter(t)
	d := registerViaAPI(t, r, nil)

	w := doJSON(t, r, http.MethodPut, "/api/v1/devices/"+d.ID, map[string]any{"memo": "cracked screen"}, adminHeaders)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %s)", w.Code, w.Body.String())
	}
	var got domain.Device
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Memo != "cracked screen" || got.ModelName != d.ModelName {
		t.Fatalf("unexpected update result: %+v", got)
	}
}

func TestDeleteDevice(t *testing.T) {
	r := newTestRouter(t)
	d := registerViaAPI(t, r, nil)

	w := doJSON(t, r, http.MethodDelete, "/api/v1/devices/"+d.ID, nil, adminHeaders)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	w = doJSON(t, r, http.MethodDelete, "/api/v1/devices/"+d.ID, nil, adminHeaders)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", w.Code)
	}
}

func TestDeleteDevice_InUseConflict(t *testing.T) {
	r := newTestRouter(t)
	d := registerViaAPI(t, r, nil)
	if w := doJSON(t, r, http.MethodPost, "/api/v1/devices/"+d.ID+"/borrow", nil, map[string]string{"X-User-ID": "u-1"}); w.Code != http.StatusOK {
		t.Fatalf("borrow: %d", w.Code)
	}

	w := doJSON(t, r, http.MethodDelete, "/api/v1/devices/"+d.ID, nil, adminHeaders)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestExportDevicesCSV(t *testing.T) {
	r := newTestRouter(t)
	registerViaAPI(t, r, nil)

	w := doJSON(t, r, http.MethodGet, "/api/v1/devices/export.csv", nil, adminHeaders)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("expected text/csv content type, got %q", ct)
	}
	body := w.Body.String()
	if !strings.HasPrefix(body, `"ID","Model Name","OS"`) {
		t.Fatalf("unexpected CSV header: %s", body)
	}
	if !strings.Contains(body, `"A00001"`) {
		t.Fatalf("expected device row in CSV, got: %s", body)
	}
}

func TestExportDevicesCSV_RequiresAdmin(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/api/v1/devices/export.csv", nil, map[string]string{"X-User-ID": "u-1"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}
