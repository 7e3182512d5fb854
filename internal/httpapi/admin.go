package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"costumier/internal/domain"
	"costumier/internal/export"
	"costumier/internal/models"

	"github.com/google/uuid"
)

func (s *Server) handleAdminListCostumes(w http.ResponseWriter, r *http.Request, _ domain.Admin) {
	costumes, err := s.catalog.AllCostumes(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list all costumes")
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"costumes": costumes})
}

func (s *Server) handleAdminCreateCostume(w http.ResponseWriter, r *http.Request, admin domain.Admin) {
	var costume models.Costume
	if err := json.NewDecoder(r.Body).Decode(&costume); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid JSON body")
		return
	}

	if err := s.catalog.CreateCostume(r.Context(), admin, &costume); err != nil {
		if !domain.IsValidation(err) {
			s.logger.Error().Err(err).Msg("create costume")
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, costume)
}

func (s *Server) handleAdminUpdateCostume(w http.ResponseWriter, r *http.Request, admin domain.Admin) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid costume id")
		return
	}

	var costume models.Costume
	if err := json.NewDecoder(r.Body).Decode(&costume); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid JSON body")
		return
	}
	costume.ID = id

	if err := s.catalog.UpdateCostume(r.Context(), admin, &costume); err != nil {
		if !domain.IsValidation(err) && !domain.IsNotFound(err) {
			s.logger.Error().Err(err).Int64("costume_id", id).Msg("update costume")
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, costume)
}

func (s *Server) handleAdminDeleteCostume(w http.ResponseWriter, r *http.Request, admin domain.Admin) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid costume id")
		return
	}

	if err := s.catalog.DeleteCostume(r.Context(), admin, id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleAdminStock(w http.ResponseWriter, r *http.Request, _ domain.Admin) {
	costumes, err := s.catalog.AllCostumes(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	type stockRow struct {
		CostumeID int64            `json:"costume_id"`
		Title     string           `json:"title"`
		Stock     map[string]int64 `json:"stock"`
	}
	rows := make([]stockRow, 0, len(costumes))
	for _, c := range costumes {
		rows = append(rows, stockRow{CostumeID: c.ID, Title: c.Title, Stock: c.StockBySize})
	}
	writeJSON(w, http.StatusOK, map[string]any{"stock": rows})
}

func (s *Server) handleAdminAdjustStock(w http.ResponseWriter, r *http.Request, admin domain.Admin) {
	var body struct {
		CostumeID int64  `json:"costume_id"`
		Size      string `json:"size"`
		Delta     int64  `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid JSON body")
		return
	}

	count, err := s.catalog.AdjustStock(r.Context(), admin, body.CostumeID, body.Size, body.Delta)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"costume_id": body.CostumeID, "size": body.Size, "count": count})
}

func (s *Server) handleAdminBookings(w http.ResponseWriter, r *http.Request, _ domain.Admin) {
	bookings, err := s.bookings.Bookings(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *Server) handleAdminBookingStatus(w http.ResponseWriter, r *http.Request, admin domain.Admin) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid booking id")
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid JSON body")
		return
	}

	booking, err := s.bookings.AdminChangeStatus(r.Context(), admin, id, body.Status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *Server) handleAdminLogs(w http.ResponseWriter, r *http.Request, _ domain.Admin) {
	entries, err := s.store.GetAdminLog(r.Context(), models.AdminLogPageSize)
	if err != nil {
		s.logger.Error().Err(err).Msg("read admin log")
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": entries})
}

// handleAdminUpload stores costume photos under the uploads dir and
// returns their URL paths.
func (s *Server) handleAdminUpload(w http.ResponseWriter, r *http.Request, _ domain.Admin) {
	if err := r.ParseMultipartForm(models.MaxUploadFiles * models.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid multipart form")
		return
	}

	files := r.MultipartForm.File["photos"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, codeValidation, "photos field is required")
		return
	}
	if len(files) > models.MaxUploadFiles {
		writeError(w, http.StatusBadRequest, codeValidation, fmt.Sprintf("at most %d files per upload", models.MaxUploadFiles))
		return
	}

	if err := os.MkdirAll(s.uploadsPath, 0o755); err != nil {
		s.logger.Error().Err(err).Msg("create uploads dir")
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}

	paths := make([]string, 0, len(files))
	for _, header := range files {
		if header.Size > models.MaxUploadBytes {
			writeError(w, http.StatusBadRequest, codeValidation, fmt.Sprintf("file %s exceeds %d bytes", header.Filename, int64(models.MaxUploadBytes)))
			return
		}

		ext := strings.ToLower(filepath.Ext(header.Filename))
		switch ext {
		case ".jpg", ".jpeg", ".png", ".webp":
		default:
			writeError(w, http.StatusBadRequest, codeValidation, fmt.Sprintf("unsupported file type %s", ext))
			return
		}

		path, err := s.saveUpload(header, ext)
		if err != nil {
			s.logger.Error().Err(err).Str("file", header.Filename).Msg("save upload")
			writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
			return
		}
		paths = append(paths, path)
	}

	writeJSON(w, http.StatusOK, map[string]any{"photos": paths})
}

func (s *Server) saveUpload(header *multipart.FileHeader, ext string) (string, error) {
	src, err := header.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(s.uploadsPath, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return "/uploads/" + name, nil
}

func (s *Server) handleAdminExport(w http.ResponseWriter, r *http.Request, _ domain.Admin) {
	now := time.Now()
	from, err := parseDateQuery(r, "from", now.AddDate(0, -1, 0))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid from date; expected YYYY-MM-DD")
		return
	}
	to, err := parseDateQuery(r, "to", now.AddDate(0, 1, 0))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid to date; expected YYYY-MM-DD")
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, codeValidation, "to must not precede from")
		return
	}

	bookings, err := s.bookings.BookingsByDateRange(r.Context(), from, to)
	if err != nil {
		s.logger.Error().Err(err).Msg("export bookings")
		writeDomainError(w, err)
		return
	}

	fileName := fmt.Sprintf("bookings_%s_%s.xlsx", from.Format("2006-01-02"), to.Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))

	if err := export.WriteBookings(w, bookings); err != nil {
		s.logger.Error().Err(err).Msg("write export workbook")
	}
}
