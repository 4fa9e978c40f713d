package handlers

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/camden-git/peoplegraph/database"
	"github.com/camden-git/peoplegraph/media"
	"github.com/camden-git/peoplegraph/realtime"
	"github.com/camden-git/peoplegraph/repository"
	"github.com/camden-git/peoplegraph/services"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testAPI struct {
	t       *testing.T
	handler http.Handler
	store   *repository.Store
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	log := zap.NewNop()
	dir := t.TempDir()

	db, err := database.InitGormDB(filepath.Join(dir, "people.db"), log)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrateModels(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	store := repository.NewStore(db)

	mediaRoot := filepath.Join(dir, "media")
	mediaStore, err := media.NewLocalStorage(mediaRoot, map[media.AssetType]string{media.AssetTypeFace: "faces"}, "/api/faces", time.Minute, log)
	require.NoError(t, err)

	handler := NewRouter(Dependencies{
		Store:          store,
		Media:          mediaStore,
		Processor:      media.NewProcessor(mediaStore, 320, log),
		Duplicates:     services.NewDuplicateService(store, nil, log, 0),
		Merges:         services.NewMergeService(store, nil, nil, log, 0),
		Graph:          services.NewGraphService(store, log),
		Connections:    services.NewConnectionService(store, log),
		Log:            log,
		FacesPath:      filepath.Join(mediaRoot, "faces"),
		ImageURLPrefix: "/api/faces",
	})
	return &testAPI{t: t, handler: handler, store: store}
}

func (a *testAPI) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) createPerson(owner, name, company string) map[string]interface{} {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/people", map[string]string{"owner_id": owner, "name": name, "company": company})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody(a.t, rec)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	require.Len(t, resp.Errors, 1)
	return resp.Errors[0].Code
}

func TestCreateAndGetPerson(t *testing.T) {
	api := newTestAPI(t)
	created := api.createPerson("owner", "Ada Lovelace", "Analytical Engines")
	id := created["id"].(string)
	assert.NotEmpty(t, id)
	assert.Equal(t, float64(1), created["version"])

	rec := api.do(http.MethodGet, "/api/people/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, "Ada Lovelace", got["name"])
	assert.Equal(t, []interface{}{}, got["face_appearances"])

	rec = api.do(http.MethodGet, "/api/people/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorCode(t, rec))
}

func TestCreatePersonRejectsBadInput(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/api/people", map[string]string{"owner_id": "owner", "name": "  "})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "validation_error", errorCode(t, rec))

	rec = api.do(http.MethodPost, "/api/people", map[string]string{"owner_id": "owner", "name": "x", "nickname": "y"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_body", errorCode(t, rec))
}

func TestListPeopleSortOrders(t *testing.T) {
	api := newTestAPI(t)
	api.createPerson("owner", "Guest 10", "")
	api.createPerson("owner", "Guest 2", "")
	api.createPerson("other", "Guest 1", "")

	rec := api.do(http.MethodGet, "/api/people?owner_id=owner&sort="+database.SortNameNat, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	people := decodeList(t, rec)
	require.Len(t, people, 2)
	assert.Equal(t, "Guest 2", people[0]["name"])
	assert.Equal(t, "Guest 10", people[1]["name"])

	rec = api.do(http.MethodGet, "/api/people?owner_id=owner&sort=shoe_size", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = api.do(http.MethodGet, "/api/people", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestConnectionLifecycle(t *testing.T) {
	api := newTestAPI(t)
	a := api.createPerson("owner", "Alice", "")["id"].(string)
	b := api.createPerson("owner", "Bob", "")["id"].(string)
	stranger := api.createPerson("someone-else", "Carol", "")["id"].(string)

	rec := api.do(http.MethodPost, "/api/connections", map[string]interface{}{
		"from_person_id": a, "to_person_id": b, "types": []string{"Friend"}, "strength": 4,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	connID := decodeBody(t, rec)["id"].(string)

	tests := []struct {
		name   string
		body   map[string]interface{}
		status int
		code   string
	}{
		{"self loop", map[string]interface{}{"from_person_id": a, "to_person_id": a, "types": []string{"friend"}}, http.StatusConflict, "invalid_operation"},
		{"already connected", map[string]interface{}{"from_person_id": b, "to_person_id": a, "types": []string{"friend"}}, http.StatusConflict, "invalid_operation"},
		{"no types", map[string]interface{}{"from_person_id": a, "to_person_id": b, "types": []string{" "}}, http.StatusUnprocessableEntity, "validation_error"},
		{"cross owner", map[string]interface{}{"from_person_id": a, "to_person_id": stranger, "types": []string{"friend"}}, http.StatusConflict, "invalid_operation"},
		{"missing person", map[string]interface{}{"from_person_id": a, "to_person_id": "ghost", "types": []string{"friend"}}, http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(http.MethodPost, "/api/connections", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}

	rec = api.do(http.MethodGet, "/api/owners/owner/connections", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeList(t, rec), 1)

	rec = api.do(http.MethodDelete, "/api/connections/"+connID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(http.MethodDelete, "/api/connections/"+connID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMergeFlow(t *testing.T) {
	api := newTestAPI(t)
	target := api.createPerson("owner", "Jon Smith", "Acme")["id"].(string)
	source := api.createPerson("owner", "John Smith", "Globex")["id"].(string)
	friend := api.createPerson("owner", "Mary", "")["id"].(string)

	rec := api.do(http.MethodPost, "/api/connections", map[string]interface{}{
		"from_person_id": source, "to_person_id": friend, "types": []string{"friend"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(http.MethodPost, "/api/merges/preview", map[string]string{"target_id": target, "source_id": source})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	preview := decodeBody(t, rec)
	assert.Equal(t, float64(1), preview["rewrite_count"])
	assert.Len(t, preview["conflicts"], 2)

	rec = api.do(http.MethodPost, "/api/merges", map[string]interface{}{"target_id": target, "source_id": source})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = api.do(http.MethodPost, "/api/merges", map[string]interface{}{"target_id": target, "source_id": target})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_operation", errorCode(t, rec))

	rec = api.do(http.MethodPost, "/api/merges", map[string]interface{}{
		"target_id":     target,
		"source_id":     source,
		"field_choices": map[string]string{"name": "keep_target", "company": "take_source"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decodeBody(t, rec)
	assert.Equal(t, source, result["deleted_source_id"])
	merged := result["target"].(map[string]interface{})
	assert.Equal(t, "Jon Smith", merged["name"])
	assert.Equal(t, "Globex", merged["company"])

	rec = api.do(http.MethodGet, "/api/people/"+source, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodGet, "/api/people/"+target+"/merges", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	records := decodeList(t, rec)
	require.Len(t, records, 1)
	assert.Equal(t, "John Smith", records[0]["source_name"])

	rec = api.do(http.MethodGet, "/api/people/"+target+"/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["total"])
}

func TestGraphEndpoints(t *testing.T) {
	api := newTestAPI(t)
	a := api.createPerson("owner", "Alice", "")["id"].(string)
	b := api.createPerson("owner", "Bob", "")["id"].(string)
	c := api.createPerson("owner", "Carol", "")["id"].(string)
	for _, pair := range [][2]string{{a, b}, {b, c}} {
		rec := api.do(http.MethodPost, "/api/connections", map[string]interface{}{
			"from_person_id": pair[0], "to_person_id": pair[1], "types": []string{"colleague"},
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := api.do(http.MethodGet, "/api/owners/owner/network", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeBody(t, rec)
	assert.Equal(t, float64(3), stats["person_count"])
	assert.Equal(t, float64(2), stats["connection_count"])

	rec = api.do(http.MethodGet, "/api/owners/owner/path?from="+a+"&to="+c, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	path := decodeBody(t, rec)
	assert.Equal(t, true, path["found"])
	assert.Equal(t, float64(2), path["degrees"])
	assert.Equal(t, []interface{}{a, b, c}, path["path"])

	rec = api.do(http.MethodGet, "/api/owners/owner/path?from="+a+"&to="+c+"&max_degrees=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	path = decodeBody(t, rec)
	assert.Equal(t, false, path["found"])
	assert.Equal(t, []interface{}{}, path["path"])

	rec = api.do(http.MethodGet, "/api/owners/owner/path?from="+a+"&to="+c+"&max_degrees=two", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = api.do(http.MethodGet, "/api/owners/owner/path?to="+c, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = api.do(http.MethodGet, "/api/owners/owner/duplicates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestDuplicatesEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.createPerson("owner", "John Smith", "Acme")
	api.createPerson("owner", "Jon Smith", "Acme")

	rec := api.do(http.MethodGet, "/api/owners/owner/duplicates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	suggestions := decodeList(t, rec)
	require.Len(t, suggestions, 1)
	assert.NotEmpty(t, suggestions[0]["confidence"])
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 4), G: uint8(y * 4), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func (a *testAPI) upload(personID string, fields map[string]string, filename string, data []byte) *httptest.ResponseRecorder {
	a.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(a.t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("image", filename)
	require.NoError(a.t, err)
	_, err = fw.Write(data)
	require.NoError(a.t, err)
	require.NoError(a.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/people/"+personID+"/appearances", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func TestAddAppearanceUpload(t *testing.T) {
	api := newTestAPI(t)
	id := api.createPerson("owner", "Grace Hopper", "")["id"].(string)
	data := pngBytes(t, 64, 48)

	rec := api.upload(id, map[string]string{
		"source_image_id": "roster-1", "x1": "40", "y1": "40", "x2": "8", "y2": "8", "is_primary": "true",
	}, "team.png", data)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	person := decodeBody(t, rec)
	assert.Equal(t, []interface{}{"roster-1"}, person["source_image_ids"])
	appearances := person["face_appearances"].([]interface{})
	require.Len(t, appearances, 1)
	first := appearances[0].(map[string]interface{})
	assert.Equal(t, float64(8), first["x1"])
	assert.Equal(t, true, first["is_primary"])
	url := first["image_url"].(string)
	assert.True(t, strings.HasPrefix(url, "/api/faces/owner/"), url)
	assert.Equal(t, url, person["primary_image_url"])

	rec = api.do(http.MethodGet, url, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("Cache-Control"))
}

func TestAddAppearanceRejectsBadUploads(t *testing.T) {
	api := newTestAPI(t)
	id := api.createPerson("owner", "Grace Hopper", "")["id"].(string)
	data := pngBytes(t, 32, 32)
	fields := map[string]string{"source_image_id": "roster-1", "x1": "0", "y1": "0", "x2": "16", "y2": "16"}

	rec := api.upload(id, fields, "notes.txt", data)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = api.upload(id, fields, "broken.png", []byte("not an image"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	outside := map[string]string{"source_image_id": "roster-1", "x1": "100", "y1": "100", "x2": "200", "y2": "200"}
	rec = api.upload(id, outside, "team.png", data)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	missing := map[string]string{"x1": "0", "y1": "0", "x2": "16", "y2": "16"}
	rec = api.upload(id, missing, "team.png", data)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = api.upload("ghost", fields, "team.png", data)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	person, err := api.store.People.GetByID(id)
	require.NoError(t, err)
	assert.Empty(t, person.FaceAppearances)
}

func TestAssetServerMissingFile(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodGet, "/api/faces/owner/nope.jpg", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type recordingPublisher struct {
	events []realtime.Event
}

func (p *recordingPublisher) Broadcast(event realtime.Event) {
	p.events = append(p.events, event)
}

func TestConnectionEventsCarryOwner(t *testing.T) {
	api := newTestAPI(t)
	a := api.createPerson("owner", "Alice", "")["id"].(string)
	b := api.createPerson("owner", "Bob", "")["id"].(string)

	events := &recordingPublisher{}
	h := &ConnectionHandler{
		Connections: services.NewConnectionService(api.store, zap.NewNop()),
		Events:      events,
		Log:         zap.NewNop(),
	}
	r := chi.NewRouter()
	r.Post("/connections", h.CreateConnection)
	r.Delete("/connections/{connection_id}", h.DeleteConnection)

	body := `{"from_person_id":"` + a + `","to_person_id":"` + b + `","types":["friend"]}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/connections", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	connID := decodeBody(t, rec)["id"].(string)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/connections/"+connID, nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	require.Len(t, events.events, 2)
	for _, e := range events.events {
		assert.Equal(t, "owner", e.OwnerID, e.Type)
		assert.Equal(t, connID, e.ConnectionID, e.Type)
	}
	assert.Equal(t, realtime.EventConnectionDeleted, events.events[1].Type)
}
