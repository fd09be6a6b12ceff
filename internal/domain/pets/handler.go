package pets

import (
	"net/http"
	"strings"
	"time"

	"pet-adoption/internal/middleware"
	"pet-adoption/internal/platform/apperr"
	"pet-adoption/internal/platform/httpx"
	"pet-adoption/internal/ports/auth"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/pets", func(pr chi.Router) {
		// Catálogo público
		pr.Get("/", listPetsHandler(svc))
		pr.Get("/{petID}", getPetHandler(svc))

		// Administración
		pr.Group(func(ar chi.Router) {
			ar.Use(middleware.RequireRoles(auth.AdminOnly))

			ar.Post("/", createPetHandler(svc))
			ar.Put("/{petID}", updatePetHandler(svc))
			ar.Delete("/{petID}", deletePetHandler(svc))
			ar.Patch("/{petID}/status", setStatusHandler(svc))
		})
	})
}

// createPetRequest es el cuerpo para publicar una mascota.
type createPetRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Species     string   `json:"species" validate:"required,max=50"`
	Breed       string   `json:"breed" validate:"required,max=100"`
	Age         *int     `json:"age" validate:"required,gte=0,lte=50"`
	Gender      string   `json:"gender" validate:"required,oneof=male female unknown"`
	Size        string   `json:"size" validate:"omitempty,oneof=small medium large"`
	Color       string   `json:"color" validate:"max=50"`
	Description string   `json:"description" validate:"max=2000"`
	Images      []string `json:"images" validate:"omitempty,dive,url"`
}

// updatePetRequest: PUT parcial, nil = no tocar.
type updatePetRequest struct {
	Name        *string   `json:"name" validate:"omitempty,max=100"`
	Species     *string   `json:"species" validate:"omitempty,max=50"`
	Breed       *string   `json:"breed" validate:"omitempty,max=100"`
	Age         *int      `json:"age" validate:"omitempty,gte=0,lte=50"`
	Gender      *string   `json:"gender" validate:"omitempty,oneof=male female unknown"`
	Size        *string   `json:"size" validate:"omitempty,oneof=small medium large"`
	Color       *string   `json:"color" validate:"omitempty,max=50"`
	Description *string   `json:"description" validate:"omitempty,max=2000"`
	Images      *[]string `json:"images" validate:"omitempty,dive,url"`

	// Se acepta solo para rechazarlo con un mensaje claro.
	Status *string `json:"status"`
}

type setStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type petResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Species     string    `json:"species"`
	Breed       string    `json:"breed"`
	Age         int       `json:"age"`
	Gender      Gender    `json:"gender"`
	Size        Size      `json:"size,omitempty"`
	Color       string    `json:"color,omitempty"`
	Description string    `json:"description,omitempty"`
	Images      []string  `json:"images"`
	Status      Status    `json:"status"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// listPetsHandler godoc
// @Summary Listar mascotas
// @Description Catálogo público paginado. Si no se envía `status`, solo devuelve mascotas `available`.
// @Tags pets
// @Produce json
// @Param page query int false "Página (1-indexed)" default(1)
// @Param limit query int false "Tamaño de página" default(10)
// @Param species query string false "Especie (exacto, sin distinguir mayúsculas)"
// @Param breed query string false "Raza (substring)"
// @Param minAge query int false "Edad mínima (inclusive)"
// @Param maxAge query int false "Edad máxima (inclusive)"
// @Param status query string false "available | pending | adopted" default(available)
// @Param search query string false "Busca en nombre o raza"
// @Success 200 {object} httpx.Envelope{data=[]petResponse}
// @Failure 400 {object} httpx.Envelope
// @Router /pets [get]
func listPetsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, limit, err := httpx.Pagination(r)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		minAge, err := httpx.QueryIntPtr(r, "minAge")
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		maxAge, err := httpx.QueryIntPtr(r, "maxAge")
		if err != nil {
			httpx.Error(w, r, err)
			return
		}

		q := r.URL.Query()
		res, err := svc.List(r.Context(), ListFilter{
			Species: q.Get("species"),
			Breed:   q.Get("breed"),
			MinAge:  minAge,
			MaxAge:  maxAge,
			Status:  Status(strings.ToLower(strings.TrimSpace(q.Get("status")))),
			Search:  q.Get("search"),
			Page:    page,
			Limit:   limit,
		})
		if err != nil {
			httpx.Error(w, r, err)
			return
		}

		out := make([]petResponse, 0, len(res.Items))
		for _, p := range res.Items {
			out = append(out, toPetResponse(p))
		}
		httpx.Paged(w, out, httpx.PageInfo{
			Count: len(out),
			Total: res.Total,
			Page:  res.Page,
			Pages: res.Pages,
		})
	}
}

// getPetHandler godoc
// @Summary Obtener mascota
// @Tags pets
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Success 200 {object} httpx.Envelope{data=petResponse}
// @Failure 404 {object} httpx.Envelope
// @Router /pets/{petID} [get]
func getPetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.GetByID(r.Context(), chi.URLParam(r, "petID"))
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.Data(w, http.StatusOK, toPetResponse(p))
	}
}

// createPetHandler godoc
// @Summary Publicar mascota
// @Description Solo administradores. La mascota nace `available`.
// @Tags pets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body createPetRequest true "Datos de la mascota"
// @Success 201 {object} httpx.Envelope{data=petResponse}
// @Failure 400 {object} httpx.Envelope
// @Failure 401 {object} httpx.Envelope
// @Failure 403 {object} httpx.Envelope
// @Router /pets [post]
func createPetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := middleware.GetIdentity(r.Context())

		req, err := httpx.Decode[createPetRequest](r)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}

		p, err := svc.Create(r.Context(), id.AccountID, CreateInput{
			Name:        req.Name,
			Species:     req.Species,
			Breed:       req.Breed,
			Age:         *req.Age,
			Gender:      Gender(req.Gender),
			Size:        Size(req.Size),
			Color:       req.Color,
			Description: req.Description,
			Images:      req.Images,
		})
		if err != nil {
			httpx.Error(w, r, err)
			return
		}

		httpx.Data(w, http.StatusCreated, toPetResponse(p))
	}
}

// updatePetHandler godoc
// @Summary Editar mascota
// @Description Solo administradores. No modifica `status`; usar PATCH /pets/{petID}/status.
// @Tags pets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param petID path string true "ID de la mascota"
// @Param payload body updatePetRequest true "Campos a modificar"
// @Success 200 {object} httpx.Envelope{data=petResponse}
// @Failure 400 {object} httpx.Envelope
// @Failure 404 {object} httpx.Envelope
// @Router /pets/{petID} [put]
func updatePetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := httpx.Decode[updatePetRequest](r)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		if req.Status != nil {
			httpx.Error(w, r, apperr.InvalidArgument("status cannot be edited here", apperr.FieldError{
				Field:   "status",
				Message: "use PATCH /pets/{id}/status",
			}))
			return
		}

		in := UpdateInput{
			Name:        req.Name,
			Species:     req.Species,
			Breed:       req.Breed,
			Age:         req.Age,
			Color:       req.Color,
			Description: req.Description,
			Images:      req.Images,
		}
		if req.Gender != nil {
			g := Gender(*req.Gender)
			in.Gender = &g
		}
		if req.Size != nil {
			sz := Size(*req.Size)
			in.Size = &sz
		}

		p, err := svc.Update(r.Context(), chi.URLParam(r, "petID"), in)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.Data(w, http.StatusOK, toPetResponse(p))
	}
}

// deletePetHandler godoc
// @Summary Eliminar mascota
// @Description Solo administradores. Borrado incondicional: las solicitudes abiertas no se tocan.
// @Tags pets
// @Produce json
// @Security BearerAuth
// @Param petID path string true "ID de la mascota"
// @Success 200 {object} httpx.Envelope
// @Failure 404 {object} httpx.Envelope
// @Router /pets/{petID} [delete]
func deletePetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "petID")); err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.Message(w, http.StatusOK, "pet deleted", nil)
	}
}

// setStatusHandler godoc
// @Summary Override de estado
// @Description Solo administradores. Escritura directa de `status`, sin sincronizar solicitudes.
// @Tags pets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param petID path string true "ID de la mascota"
// @Param payload body setStatusRequest true "Nuevo estado"
// @Success 200 {object} httpx.Envelope{data=petResponse}
// @Failure 400 {object} httpx.Envelope
// @Failure 404 {object} httpx.Envelope
// @Router /pets/{petID}/status [patch]
func setStatusHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := httpx.Decode[setStatusRequest](r)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}

		p, err := svc.SetStatus(r.Context(), chi.URLParam(r, "petID"), Status(req.Status))
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.Data(w, http.StatusOK, toPetResponse(p))
	}
}

func toPetResponse(p Pet) petResponse {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return petResponse{
		ID:          p.ID,
		Name:        p.Name,
		Species:     p.Species,
		Breed:       p.Breed,
		Age:         p.Age,
		Gender:      p.Gender,
		Size:        p.Size,
		Color:       p.Color,
		Description: p.Description,
		Images:      images,
		Status:      p.Status,
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
