package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/siete/assetforge/pkg/assets"
	"github.com/siete/assetforge/pkg/brand"
	"github.com/siete/assetforge/pkg/content"
	"github.com/siete/assetforge/pkg/errors"
	"github.com/siete/assetforge/pkg/overlay"
	"github.com/siete/assetforge/pkg/pipeline"
	"github.com/siete/assetforge/pkg/storage"
)

func (s *Server) renderItem(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.RenderContentItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Preview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if raw, _ := strconv.ParseBool(r.URL.Query().Get("raw")); raw {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, p.HTML)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type renderHTMLRequest struct {
	HTML string `json:"html"`
}

func (s *Server) renderHTML(w http.ResponseWriter, r *http.Request) {
	var body renderHTMLRequest
	if err := decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(body.HTML) == "" {
		s.writeError(w, r, errors.New(errors.ErrCodeEmptyContent, "html is required"))
		return
	}
	res, err := s.svc.RenderHTML(r.Context(), chi.URLParam(r, "id"), body.HTML)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// renderRequest is the body of POST /api/render.
type renderRequest struct {
	ContentType    content.VisualType `json:"content_type"`
	ContentData    json.RawMessage    `json:"content_data"`
	ContentID      string             `json:"content_id"`
	VisualLayout   string             `json:"visual_layout"`
	VisualCSS      string             `json:"visual_css"`
	TemplateAssets []assets.Asset     `json:"template_assets"`
	Brand          brand.Brand        `json:"brand"`
	Zones          overlay.Zones      `json:"zones"`
}

func (s *Server) renderAdhoc(w http.ResponseWriter, r *http.Request) {
	var body renderRequest
	if err := decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	req := pipeline.Request{
		Type:           body.ContentType,
		ContentID:      body.ContentID,
		LayoutOverride: body.VisualLayout,
		CSSOverride:    body.VisualCSS,
		Assets:         body.TemplateAssets,
		Brand:          body.Brand,
		Zones:          body.Zones,
	}
	if len(body.ContentData) > 0 {
		data, order, err := content.Decode(bytes.NewReader(body.ContentData))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		req.Data, req.KeyOrder = data, order
	}
	res, err := s.svc.Render(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	bucket, name := chi.URLParam(r, "bucket"), chi.URLParam(r, "*")
	if err := storage.ValidateBucket(bucket); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeNotFound, err, "no such bucket"))
		return
	}
	obj, err := s.svc.Storage().Open(r.Context(), bucket, name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", obj.ContentType)
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = io.Copy(w, obj)
	}
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid JSON body")
	}
	return nil
}
