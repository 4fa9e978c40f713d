package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const assetCacheDuration = 24 * time.Hour

// AssetServer creates a handler serving stored face images from assetDir.
// It must be mounted on a wildcard route; the wildcard is the path relative
// to assetDir, e.g.
//
//	r.Get("/api/faces/*", AssetServer(cfg.FacesPath, log))
func AssetServer(assetDir string, log *zap.Logger) http.HandlerFunc {
	fullAssetDirPath := filepath.Clean(assetDir)
	log = log.Named("assets")
	log.Info("serving assets", zap.String("dir", fullAssetDirPath))

	return func(w http.ResponseWriter, r *http.Request) {
		relativePath := chi.URLParam(r, "*")
		if relativePath == "" || strings.Contains(relativePath, "..") {
			WriteAPIError(w, http.StatusBadRequest, "invalid_path", "invalid asset path")
			return
		}

		cleanedAssetPath := filepath.Clean(filepath.Join(fullAssetDirPath, relativePath))
		if !strings.HasPrefix(cleanedAssetPath, fullAssetDirPath+string(filepath.Separator)) {
			log.Warn("asset access outside designated directory",
				zap.String("request", r.URL.Path),
				zap.String("resolved", cleanedAssetPath))
			WriteAPIError(w, http.StatusForbidden, "forbidden", "forbidden")
			return
		}

		info, err := os.Stat(cleanedAssetPath)
		if os.IsNotExist(err) || (err == nil && info.IsDir()) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "asset not found")
			return
		} else if err != nil {
			log.Error("failed to stat asset", zap.String("path", cleanedAssetPath), zap.Error(err))
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}

		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(assetCacheDuration.Seconds())))
		w.Header().Set("Expires", time.Now().Add(assetCacheDuration).Format(http.TimeFormat))
		http.ServeFile(w, r, cleanedAssetPath)
	}
}
