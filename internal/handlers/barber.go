package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"barberbook/internal/apperr"
	"barberbook/internal/catalog"
	"barberbook/internal/model"
	"barberbook/libs/auth"
)

type BarberHandler struct {
	catalog *catalog.Catalog
	auth    *AuthHandler
	logger  *slog.Logger
}

func NewBarberHandler(c *catalog.Catalog, auth *AuthHandler, logger *slog.Logger) *BarberHandler {
	return &BarberHandler{catalog: c, auth: auth, logger: logger}
}

type serviceRequest struct {
	Name         string  `json:"name" validate:"required"`
	Description  string  `json:"description"`
	DurationMins int     `json:"duration_mins" validate:"required,gt=0"`
	Price        float64 `json:"price" validate:"gte=0"`
}

type serviceResponse struct {
	ID           string  `json:"id"`
	BarberID     string  `json:"barber_id"`
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	DurationMins int     `json:"duration_mins"`
	Price        float64 `json:"price"`
}

func toServiceResponse(svc model.Service) serviceResponse {
	return serviceResponse{
		ID:           svc.ID,
		BarberID:     svc.BarberID,
		Name:         svc.Name,
		Description:  svc.Description,
		DurationMins: svc.DurationMins,
		Price:        svc.Price,
	}
}

type workingHoursRequest struct {
	Entries []workingHoursEntry `json:"entries" validate:"required,dive"`
}

type workingHoursEntry struct {
	DayOfWeek int    `json:"day_of_week" validate:"gte=0,lte=6"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	IsWorking bool   `json:"is_working"`
}

type profileRequest struct {
	Bio         string `json:"bio"`
	ShopName    string `json:"shop_name"`
	ShopAddress string `json:"shop_address"`
}

func (h *BarberHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, r, h.logger, apperr.Validation("limit must be a positive integer"))
			return
		}
		limit = n
	}
	barbers, err := h.catalog.ListBarbers(r.Context(), limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out := make([]userResponse, 0, len(barbers))
	for _, b := range barbers {
		out = append(out, toUserResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *BarberHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	barber, err := h.catalog.GetBarber(r.Context(), ps.ByName("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(barber))
}

func (h *BarberHandler) ListServices(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	services, err := h.catalog.ListServices(r.Context(), ps.ByName("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out := make([]serviceResponse, 0, len(services))
	for _, svc := range services {
		out = append(out, toServiceResponse(svc))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *BarberHandler) AddService(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	barberID := ps.ByName("id")
	if err := h.requireOwner(r, barberID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req serviceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	svc, err := h.catalog.AddService(r.Context(), barberID, catalog.ServiceSpec{
		Name:         req.Name,
		Description:  req.Description,
		DurationMins: req.DurationMins,
		Price:        req.Price,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toServiceResponse(svc))
}

func (h *BarberHandler) DeleteService(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	barberID := ps.ByName("id")
	if err := h.requireOwner(r, barberID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.catalog.DeleteService(r.Context(), barberID, ps.ByName("serviceID")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BarberHandler) GetWorkingHours(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	entries, err := h.catalog.ListWorkingHours(r.Context(), ps.ByName("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out := make([]workingHoursEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, workingHoursEntry{
			DayOfWeek: e.DayOfWeek,
			StartTime: minuteToClock(e.StartMinute),
			EndTime:   minuteToClock(e.EndMinute),
			IsWorking: e.IsWorking,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// ReplaceWorkingHours swaps the whole weekly schedule in one call; partial
// updates are not supported.
func (h *BarberHandler) ReplaceWorkingHours(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	barberID := ps.ByName("id")
	if err := h.requireOwner(r, barberID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req workingHoursRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	entries := make([]model.WorkingHoursEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		start, end := 0, 0
		if e.IsWorking {
			var err error
			if start, err = clockToMinute(e.StartTime); err != nil {
				writeError(w, r, h.logger, apperr.Validationf("invalid start_time %q", e.StartTime))
				return
			}
			if end, err = clockToMinute(e.EndTime); err != nil {
				writeError(w, r, h.logger, apperr.Validationf("invalid end_time %q", e.EndTime))
				return
			}
		}
		entries = append(entries, model.WorkingHoursEntry{
			BarberID:    barberID,
			DayOfWeek:   e.DayOfWeek,
			StartMinute: start,
			EndMinute:   end,
			IsWorking:   e.IsWorking,
		})
	}
	saved, err := h.catalog.ReplaceWorkingHours(r.Context(), barberID, entries)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out := make([]workingHoursEntry, 0, len(saved))
	for _, e := range saved {
		out = append(out, workingHoursEntry{
			DayOfWeek: e.DayOfWeek,
			StartTime: minuteToClock(e.StartMinute),
			EndTime:   minuteToClock(e.EndMinute),
			IsWorking: e.IsWorking,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *BarberHandler) UpdateProfile(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	barberID := ps.ByName("id")
	if err := h.requireOwner(r, barberID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	user, err := h.catalog.UpdateProfile(r.Context(), barberID, req.Bio, req.ShopName, req.ShopAddress)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *BarberHandler) requireOwner(r *http.Request, barberID string) error {
	ident, err := h.auth.Identity(r)
	if err != nil {
		return err
	}
	if ident.Role != auth.RoleBarber {
		return apperr.Forbidden("barber account required")
	}
	if ident.UserID != barberID {
		return apperr.Forbidden("not the owner of this profile")
	}
	return nil
}

func minuteToClock(m int) string {
	return twoDigits(m/60) + ":" + twoDigits(m%60)
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func clockToMinute(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
