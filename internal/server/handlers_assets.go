package server

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"gav/internal/api"
	"gav/internal/models"
)

// Multipart form overhead allowed on top of the content ceiling.
const multipartOverheadBytes = 1 << 20

func (s *Server) handleUploadSprite(w http.ResponseWriter, r *http.Request) {
	s.withLimiter(w, r, s.uploadLimiter, "upload", func() {
		s.handleUploadAsset(w, r, models.AssetKindSprite)
	})
}

func (s *Server) handleUploadAudio(w http.ResponseWriter, r *http.Request) {
	s.withLimiter(w, r, s.uploadLimiter, "upload", func() {
		s.handleUploadAsset(w, r, models.AssetKindAudio)
	})
}

func (s *Server) handleUploadAsset(w http.ResponseWriter, r *http.Request, kind models.AssetKind) {
	r.Body = http.MaxBytesReader(w, r.Body, s.policy.MaxUploadBytes+multipartOverheadBytes)
	if err := r.ParseMultipartForm(s.multipartMaxMemory); err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, classifyMultipartError(err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("file is required"), ErrCodeMissingRequired))
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, classifyMultipartError(err))
		return
	}

	contentType := ""
	if header != nil {
		contentType = normalizeContentType(header.Header.Get("Content-Type"))
	}

	asset, err := s.assets.Upload(r.Context(), UploadAssetInput{
		Kind:        kind,
		Filename:    headerFilename(header),
		ContentType: contentType,
		Tags:        r.FormValue("tags"),
		Description: r.FormValue("description"),
		Content:     payload,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, api.UploadAssetResponse{
		Message:     uploadMessage(kind),
		ID:          asset.ID,
		Filename:    asset.Filename,
		Size:        asset.SizeBytes,
		Tags:        asset.Tags,
		StorageTier: asset.StorageTier,
	})
}

func (s *Server) handleListSprites(w http.ResponseWriter, r *http.Request) {
	s.handleListAssets(w, r, models.AssetKindSprite)
}

func (s *Server) handleListAudio(w http.ResponseWriter, r *http.Request) {
	s.handleListAssets(w, r, models.AssetKindAudio)
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request, kind models.AssetKind) {
	limit, skip, err := listWindow(r)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	tag := cleanQueryParam(r, "tag")

	assets, total, err := s.assets.List(r.Context(), kind, tag, limit, skip)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if assets == nil {
		assets = []models.Asset{}
	}

	s.writeJSON(w, http.StatusOK, api.AssetListResponse{
		Assets: assets,
		Count:  len(assets),
		Total:  total,
		Skip:   skip,
		Limit:  limit,
	})
}

func (s *Server) handleGetSprite(w http.ResponseWriter, r *http.Request) {
	s.handleGetAsset(w, r, models.AssetKindSprite)
}

func (s *Server) handleGetAudio(w http.ResponseWriter, r *http.Request) {
	s.handleGetAsset(w, r, models.AssetKindAudio)
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request, kind models.AssetKind) {
	includeContent, err := queryBoolDefault(r, "include_content", true)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	asset, err := s.assets.Get(r.Context(), kind, r.PathValue("id"), includeContent)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, asset)
}

func (s *Server) handleGetSpriteContent(w http.ResponseWriter, r *http.Request) {
	s.handleGetAssetContent(w, r, models.AssetKindSprite)
}

func (s *Server) handleGetAudioContent(w http.ResponseWriter, r *http.Request) {
	s.handleGetAssetContent(w, r, models.AssetKindAudio)
}

func (s *Server) handleGetAssetContent(w http.ResponseWriter, r *http.Request, kind models.AssetKind) {
	assetContent, err := s.assets.OpenContent(r.Context(), kind, r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer assetContent.Reader.Close()

	w.Header().Set("Content-Type", assetContent.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": assetContent.Filename}))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", assetContent.SizeBytes))
	if _, err := io.Copy(w, assetContent.Reader); err != nil {
		s.log().Error("stream asset content", "error", err)
	}
}

func headerFilename(header *multipart.FileHeader) string {
	if header == nil {
		return ""
	}
	return strings.TrimSpace(header.Filename)
}

func uploadMessage(kind models.AssetKind) string {
	if kind == models.AssetKindAudio {
		return "Audio uploaded successfully"
	}
	return "Sprite uploaded successfully"
}

func classifyMultipartError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(strings.ToLower(err.Error()), "request body too large") {
		return badRequestCode(fmt.Errorf("request body too large"), ErrCodeRequestTooLarge)
	}
	return badRequestCode(err, ErrCodeInvalidArgument)
}

func normalizeContentType(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed)
}
