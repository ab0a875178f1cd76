package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"clip-forge/app/config"
	"clip-forge/app/logger"
	"clip-forge/app/model"
	"clip-forge/app/service"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTimelineRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&model.Episode{}, &model.VideoSource{}, &model.Timeline{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	log := logger.New(config.LogConfig{Level: "error", Format: "text", Output: "stdout"})
	h := NewTimelineHandler(service.NewTimelineService(db, log))

	router := gin.New()
	router.GET("/api/episodes/:id/timeline", h.Get)
	router.PUT("/api/episodes/:id/timeline", h.Save)
	router.POST("/api/episodes/:id/timeline/init", h.Initialize)
	return router, db
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp struct {
		Code    int            `json:"code"`
		Message string         `json:"message"`
		Data    map[string]any `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, w.Body.String())
	}
	return resp.Data
}

func TestTimelineGetEndpointMissing(t *testing.T) {
	router, _ := newTimelineRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/episodes/1/timeline", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	data := decodeData(t, w)
	if data["timeline"] != nil {
		t.Errorf("timeline = %v, want null", data["timeline"])
	}
}

func TestTimelineSaveRejectsMissingTracks(t *testing.T) {
	router, _ := newTimelineRouter(t)

	w := doJSON(t, router, http.MethodPut, "/api/episodes/1/timeline", gin.H{"duration": 10})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestTimelineSaveConflict(t *testing.T) {
	router, _ := newTimelineRouter(t)

	w := doJSON(t, router, http.MethodPut, "/api/episodes/1/timeline", gin.H{"tracks": []any{}})
	if w.Code != http.StatusOK {
		t.Fatalf("create failed: %d %s", w.Code, w.Body.String())
	}
	serverMs := int64(decodeData(t, w)["updated_at"].(float64))

	// 过期时间戳 → 409，响应携带服务端时间戳
	w = doJSON(t, router, http.MethodPut, "/api/episodes/1/timeline", gin.H{
		"tracks":            []any{},
		"client_updated_at": serverMs - 1,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", w.Code, w.Body.String())
	}
	data := decodeData(t, w)
	if int64(data["server_updated_at"].(float64)) != serverMs {
		t.Errorf("server_updated_at = %v, want %d", data["server_updated_at"], serverMs)
	}

	// 一致时间戳 → 写入成功，时间戳前进
	w = doJSON(t, router, http.MethodPut, "/api/episodes/1/timeline", gin.H{
		"tracks":            []any{},
		"client_updated_at": serverMs,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if next := int64(decodeData(t, w)["updated_at"].(float64)); next <= serverMs {
		t.Errorf("updated_at did not advance: %d -> %d", serverMs, next)
	}
}

func TestTimelineInitEndpoint(t *testing.T) {
	router, db := newTimelineRouter(t)

	// 无此节目
	w := doJSON(t, router, http.MethodPost, "/api/episodes/99/timeline/init", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing episode: status = %d", w.Code)
	}

	// 有节目但无媒体
	empty := model.Episode{Title: "空节目"}
	if err := db.Create(&empty).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	w = doJSON(t, router, http.MethodPost, "/api/episodes/1/timeline/init", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("no media: status = %d", w.Code)
	}

	// 有媒体 → 首次 201，再次 200
	episode := model.Episode{Title: "节目", AudioPath: "/media/a.wav", AudioDuration: 600}
	if err := db.Create(&episode).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	w = doJSON(t, router, http.MethodPost, "/api/episodes/2/timeline/init", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("first init: status = %d: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, router, http.MethodPost, "/api/episodes/2/timeline/init", nil)
	if w.Code != http.StatusOK {
		t.Errorf("second init: status = %d", w.Code)
	}
}
