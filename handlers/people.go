package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/camden-git/peoplegraph/database"
	"github.com/camden-git/peoplegraph/media"
	"github.com/camden-git/peoplegraph/models"
	"github.com/camden-git/peoplegraph/realtime"
	"github.com/camden-git/peoplegraph/repository"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DefaultMaxUploadBytes caps a multipart appearance upload
const DefaultMaxUploadBytes int64 = 20 << 20

type PeopleHandler struct {
	Store          *repository.Store
	Media          media.Store
	Processor      *media.Processor
	Events         EventPublisher
	Log            *zap.Logger
	MaxUploadBytes int64
}

type appearanceResponse struct {
	models.FaceAppearance
	ImageURL string `json:"image_url,omitempty"`
}

type personResponse struct {
	*models.Person
	FaceAppearances []appearanceResponse `json:"face_appearances"`
	PrimaryImageURL string               `json:"primary_image_url,omitempty"`
}

func toPersonResponse(p *models.Person, store media.Store) personResponse {
	resp := personResponse{Person: p, FaceAppearances: make([]appearanceResponse, 0, len(p.FaceAppearances))}
	for _, a := range p.FaceAppearances {
		url := ""
		if store != nil {
			url = store.URL(a.StoredImagePath)
		}
		resp.FaceAppearances = append(resp.FaceAppearances, appearanceResponse{FaceAppearance: a, ImageURL: url})
		if a.IsPrimary {
			resp.PrimaryImageURL = url
		}
	}
	return resp
}

type createPersonRequest struct {
	OwnerID         string   `json:"owner_id"`
	Name            string   `json:"name"`
	Company         string   `json:"company"`
	Hobbies         string   `json:"hobbies"`
	Birthday        string   `json:"birthday"`
	FirstMet        string   `json:"first_met"`
	FirstMetContext string   `json:"first_met_context"`
	Notes           string   `json:"notes"`
	SourceImageIDs  []string `json:"source_image_ids"`
}

func (h *PeopleHandler) CreatePerson(w http.ResponseWriter, r *http.Request) {
	var req createPersonRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireParam(w, "owner_id", req.OwnerID) || !requireParam(w, "name", req.Name) {
		return
	}

	person := &models.Person{
		OwnerID:         req.OwnerID,
		Name:            strings.TrimSpace(req.Name),
		Company:         req.Company,
		Hobbies:         req.Hobbies,
		Birthday:        req.Birthday,
		FirstMet:        req.FirstMet,
		FirstMetContext: req.FirstMetContext,
		Notes:           req.Notes,
		SourceImageIDs:  req.SourceImageIDs,
	}
	if err := h.Store.WithContext(r.Context()).People.Create(person); err != nil {
		writeEngineError(w, h.Log, err)
		return
	}

	h.Log.Info("person created", zap.String("person_id", person.ID), zap.String("owner_id", person.OwnerID))
	publish(h.Events, realtime.Event{Type: realtime.EventPersonCreated, OwnerID: person.OwnerID, PersonID: person.ID})
	writeJSON(w, http.StatusCreated, toPersonResponse(person, h.Media))
}

func (h *PeopleHandler) ListPeople(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	if !requireParam(w, "owner_id", ownerID) {
		return
	}
	order := r.URL.Query().Get("sort")
	if order == "" {
		order = database.DefaultSortOrder
	}
	if !database.IsValidSortOrder(order) {
		WriteAPIError(w, http.StatusUnprocessableEntity, "validation_error", "unknown sort order: "+order)
		return
	}

	people, err := h.Store.WithContext(r.Context()).People.ListByOwner(ownerID)
	if err != nil {
		writeEngineError(w, h.Log, err)
		return
	}
	database.SortPeople(people, order)

	resp := make([]personResponse, 0, len(people))
	for i := range people {
		resp = append(resp, toPersonResponse(&people[i], h.Media))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *PeopleHandler) GetPerson(w http.ResponseWriter, r *http.Request) {
	person, err := h.Store.WithContext(r.Context()).People.GetByID(chi.URLParam(r, "person_id"))
	if err != nil {
		writeEngineError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toPersonResponse(person, h.Media))
}

func (h *PeopleHandler) ListMerges(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.WithContext(r.Context()).Merges.ListByPerson(chi.URLParam(r, "person_id"))
	if err != nil {
		writeEngineError(w, h.Log, err)
		return
	}
	if records == nil {
		records = []models.MergeRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// AddAppearance accepts a multipart upload of a source image plus the face
// rectangle, stores the face crop and attaches it to the person.
func (h *PeopleHandler) AddAppearance(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "person_id")
	store := h.Store.WithContext(r.Context())
	person, err := store.People.GetByID(personID)
	if err != nil {
		writeEngineError(w, h.Log, err)
		return
	}

	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_body", "invalid multipart form: "+err.Error())
		return
	}

	sourceImageID := r.FormValue("source_image_id")
	if !requireParam(w, "source_image_id", sourceImageID) {
		return
	}
	region, ok := parseRegion(w, r)
	if !ok {
		return
	}
	isPrimary, _ := strconv.ParseBool(r.FormValue("is_primary"))

	file, header, err := r.FormFile("image")
	if err != nil {
		WriteAPIError(w, http.StatusUnprocessableEntity, "validation_error", "missing image file")
		return
	}
	defer file.Close()
	if !media.IsRasterImage(header.Filename) {
		WriteAPIError(w, http.StatusUnprocessableEntity, "validation_error", "unsupported image type: "+header.Filename)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_body", "failed to read image")
		return
	}
	meta, err := media.ReadSourceMetadata(data)
	if err != nil {
		WriteAPIError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}
	src, err := h.Processor.DecodeSource(bytes.NewReader(data))
	if err != nil {
		WriteAPIError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	storedPath, err := h.Processor.SaveFace(src, region, person.OwnerID)
	if errors.Is(err, media.ErrInvalidRegion) {
		WriteAPIError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	} else if err != nil {
		h.Log.Error("failed to store face crop", zap.String("person_id", personID), zap.Error(err))
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "failed to store face image")
		return
	}

	updated, err := store.People.AddAppearance(personID, &models.FaceAppearance{
		SourceImageID:   sourceImageID,
		StoredImagePath: storedPath,
		X1:              region.X1,
		Y1:              region.Y1,
		X2:              region.X2,
		Y2:              region.Y2,
		IsPrimary:       isPrimary,
	})
	if err != nil {
		if delErr := h.Media.Delete(storedPath); delErr != nil {
			h.Log.Warn("failed to remove unattached face crop", zap.String("path", storedPath), zap.Error(delErr))
		}
		writeEngineError(w, h.Log, err)
		return
	}

	if updated.FirstMet == "" && meta.TakenAt != nil {
		updated.FirstMet = meta.TakenAt.Format("2006-01-02")
		if err := store.People.Update(updated); err != nil {
			h.Log.Warn("failed to backfill first_met from photo date", zap.String("person_id", personID), zap.Error(err))
			updated.FirstMet = ""
		}
	}

	h.Log.Info("appearance added",
		zap.String("person_id", personID),
		zap.String("source_image_id", sourceImageID),
		zap.Int("source_width", meta.Width),
		zap.Int("source_height", meta.Height))
	publish(h.Events, realtime.Event{Type: realtime.EventAppearanceAdded, OwnerID: updated.OwnerID, PersonID: updated.ID})
	writeJSON(w, http.StatusCreated, toPersonResponse(updated, h.Media))
}

func parseRegion(w http.ResponseWriter, r *http.Request) (media.Region, bool) {
	var coords [4]int
	for i, name := range []string{"x1", "y1", "x2", "y2"} {
		v, err := strconv.Atoi(r.FormValue(name))
		if err != nil {
			WriteAPIError(w, http.StatusUnprocessableEntity, "validation_error", "invalid coordinate: "+name)
			return media.Region{}, false
		}
		coords[i] = v
	}
	return media.Region{X1: coords[0], Y1: coords[1], X2: coords[2], Y2: coords[3]}.Normalized(), true
}
