package applications

import (
	"net/http"
	"strings"
	"time"

	"pet-adoption/internal/middleware"
	"pet-adoption/internal/platform/httpx"
	"pet-adoption/internal/ports/auth"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/applications", func(ar chi.Router) {
		ar.Use(middleware.RequireRoles(auth.AnyRole))

		ar.Post("/", createApplicationHandler(svc))
		ar.Get("/my-applications", listMineHandler(svc))
		ar.With(middleware.RequireRoles(auth.AdminOnly)).Get("/", listAllHandler(svc))
		ar.Get("/{applicationID}", getApplicationHandler(svc))
		ar.With(middleware.RequireRoles(auth.AdminOnly)).Patch("/{applicationID}/review", reviewHandler(svc))
		ar.Delete("/{applicationID}", deleteApplicationHandler(svc))
	})
}

type createApplicationRequest struct {
	PetID        string `json:"petId" validate:"required"`
	Reason       string `json:"reason" validate:"required,max=1000"`
	Experience   string `json:"experience" validate:"max=1000"`
	LivingSpace  string `json:"livingSpace" validate:"max=500"`
	HasOtherPets bool   `json:"hasOtherPets"`
}

type reviewRequest struct {
	Status     string `json:"status" validate:"required,oneof=approved rejected"`
	AdminNotes string `json:"adminNotes" validate:"max=1000"`
}

type petSummaryResponse struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Species string   `json:"species"`
	Breed   string   `json:"breed"`
	Status  string   `json:"status"`
	Images  []string `json:"images"`
}

type applicantSummaryResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type applicationResponse struct {
	ID           string     `json:"id"`
	PetID        string     `json:"petId"`
	ApplicantID  string     `json:"applicantId"`
	Status       Status     `json:"status"`
	Reason       string     `json:"reason"`
	Experience   string     `json:"experience,omitempty"`
	LivingSpace  string     `json:"livingSpace,omitempty"`
	HasOtherPets bool       `json:"hasOtherPets"`
	ReviewedBy   string     `json:"reviewedBy,omitempty"`
	ReviewedAt   *time.Time `json:"reviewedAt,omitempty"`
	AdminNotes   string     `json:"adminNotes,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`

	Pet       *petSummaryResponse       `json:"pet,omitempty"`
	Applicant *applicantSummaryResponse `json:"applicant,omitempty"`
}

// createApplicationHandler godoc
// @Summary Solicitar adopción
// @Description La mascota debe estar `available`; pasa a `pending`.
// @Tags applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body createApplicationRequest true "Solicitud"
// @Success 201 {object} httpx.Envelope{data=applicationResponse}
// @Failure 400 {object} httpx.Envelope
// @Failure 404 {object} httpx.Envelope
// @Failure 409 {object} httpx.Envelope
// @Router /applications [post]
func createApplicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := middleware.GetIdentity(r.Context())

		req, err := httpx.Decode[createApplicationRequest](r)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}

		a, err := svc.Create(r.Context(), id.AccountID, CreateInput{
			PetID:        req.PetID,
			Reason:       req.Reason,
			Experience:   req.Experience,
			LivingSpace:  req.LivingSpace,
			HasOtherPets: req.HasOtherPets,
		})
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.Message(w, http.StatusCreated, "application submitted", toApplicationResponse(View{Application: a}))
	}
}

// listMineHandler godoc
// @Summary Mis solicitudes
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} httpx.Envelope{data=[]applicationResponse}
// @Failure 401 {object} httpx.Envelope
// @Router /applications/my-applications [get]
func listMineHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := middleware.GetIdentity(r.Context())

		views, err := svc.ListMine(r.Context(), id.AccountID)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		out := toApplicationResponses(views)
		httpx.List(w, out, len(out))
	}
}

// listAllHandler godoc
// @Summary Listar solicitudes
// @Description Solo administradores.
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param page query int false "Página (1-indexed)" default(1)
// @Param limit query int false "Tamaño de página" default(10)
// @Param status query string false "pending | approved | rejected"
// @Success 200 {object} httpx.Envelope{data=[]applicationResponse}
// @Failure 400 {object} httpx.Envelope
// @Failure 403 {object} httpx.Envelope
// @Router /applications [get]
func listAllHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, limit, err := httpx.Pagination(r)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}

		res, err := svc.ListAll(r.Context(), ListFilter{
			Status: Status(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status")))),
			Page:   page,
			Limit:  limit,
		})
		if err != nil {
			httpx.Error(w, r, err)
			return
		}

		out := toApplicationResponses(res.Items)
		httpx.Paged(w, out, httpx.PageInfo{
			Count: len(out),
			Total: res.Total,
			Page:  res.Page,
			Pages: res.Pages,
		})
	}
}

// getApplicationHandler godoc
// @Summary Obtener solicitud
// @Description Solo el solicitante o un administrador.
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param applicationID path string true "ID de la solicitud"
// @Success 200 {object} httpx.Envelope{data=applicationResponse}
// @Failure 403 {object} httpx.Envelope
// @Failure 404 {object} httpx.Envelope
// @Router /applications/{applicationID} [get]
func getApplicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := middleware.GetIdentity(r.Context())

		v, err := svc.GetOne(r.Context(), chi.URLParam(r, "applicationID"), id)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.Data(w, http.StatusOK, toApplicationResponse(v))
	}
}

// reviewHandler godoc
// @Summary Revisar solicitud
// @Description Solo administradores. Aprobar adopta la mascota y rechaza en cascada las demás pendientes.
// @Tags applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param applicationID path string true "ID de la solicitud"
// @Param payload body reviewRequest true "Decisión"
// @Success 200 {object} httpx.Envelope{data=applicationResponse}
// @Failure 400 {object} httpx.Envelope
// @Failure 404 {object} httpx.Envelope
// @Router /applications/{applicationID}/review [patch]
func reviewHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := middleware.GetIdentity(r.Context())

		req, err := httpx.Decode[reviewRequest](r)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}

		a, err := svc.Review(r.Context(), chi.URLParam(r, "applicationID"), id.AccountID, ReviewInput{
			Decision:   Status(req.Status),
			AdminNotes: req.AdminNotes,
		})
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.Message(w, http.StatusOK, "application "+string(a.Status), toApplicationResponse(View{Application: a}))
	}
}

// deleteApplicationHandler godoc
// @Summary Retirar solicitud
// @Description Solo el solicitante y solo mientras esté `pending`.
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param applicationID path string true "ID de la solicitud"
// @Success 200 {object} httpx.Envelope
// @Failure 400 {object} httpx.Envelope
// @Failure 403 {object} httpx.Envelope
// @Failure 404 {object} httpx.Envelope
// @Router /applications/{applicationID} [delete]
func deleteApplicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := middleware.GetIdentity(r.Context())

		if err := svc.Delete(r.Context(), chi.URLParam(r, "applicationID"), id.AccountID); err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.Message(w, http.StatusOK, "application deleted", nil)
	}
}

func toApplicationResponses(views []View) []applicationResponse {
	out := make([]applicationResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toApplicationResponse(v))
	}
	return out
}

func toApplicationResponse(v View) applicationResponse {
	resp := applicationResponse{
		ID:           v.ID,
		PetID:        v.PetID,
		ApplicantID:  v.ApplicantID,
		Status:       v.Status,
		Reason:       v.Reason,
		Experience:   v.Experience,
		LivingSpace:  v.LivingSpace,
		HasOtherPets: v.HasOtherPets,
		ReviewedBy:   v.ReviewedBy,
		ReviewedAt:   v.ReviewedAt,
		AdminNotes:   v.AdminNotes,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
	if v.Pet != nil {
		images := v.Pet.Images
		if images == nil {
			images = []string{}
		}
		resp.Pet = &petSummaryResponse{
			ID:      v.Pet.ID,
			Name:    v.Pet.Name,
			Species: v.Pet.Species,
			Breed:   v.Pet.Breed,
			Status:  v.Pet.Status,
			Images:  images,
		}
	}
	if v.Applicant != nil {
		resp.Applicant = &applicantSummaryResponse{
			ID:    v.Applicant.ID,
			Name:  v.Applicant.Name,
			Email: v.Applicant.Email,
			Phone: v.Applicant.Phone,
		}
	}
	return resp
}
