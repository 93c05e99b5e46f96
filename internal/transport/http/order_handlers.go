package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/dsolution-crm/internal/objectstore"
	"github.com/vovakirdan/dsolution-crm/internal/service/orders"
	"github.com/vovakirdan/dsolution-crm/internal/store"
)

// multipartOverhead leaves room for form fields and boundaries on top of the file limit.
const multipartOverhead = 64 << 10

// OrderHandlers provides HTTP handlers for orders.
type OrderHandlers struct {
	orders    *orders.Service
	maxUpload int64
	log       *zerolog.Logger
}

// NewOrderHandlers creates order handlers. maxUpload caps the attachment size; 0 disables the cap.
func NewOrderHandlers(svc *orders.Service, maxUpload int64, logger *zerolog.Logger) *OrderHandlers {
	return &OrderHandlers{orders: svc, maxUpload: maxUpload, log: logger}
}

// OrderResponse is the public view of an order.
type OrderResponse struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	ServiceID string            `json:"serviceId"`
	Specs     string            `json:"specs"`
	FileURL   string            `json:"fileUrl,omitempty"`
	Status    store.OrderStatus `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// UpdateStatusRequest is the body of a status change.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func orderResponse(o *store.Order) OrderResponse {
	return OrderResponse{
		ID:        o.ID,
		UserID:    o.UserID,
		ServiceID: o.ServiceID,
		Specs:     o.Specs,
		FileURL:   o.FileURL,
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

// Create places an order from a multipart form with serviceId, specs and an optional file.
// POST /api/orders
func (h *OrderHandlers) Create(c *gin.Context) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+multipartOverhead)
	}
	if err := c.Request.ParseMultipartForm(multipartOverhead); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "file too large"})
			return
		}
		h.log.Debug().Err(err).Msg("invalid order form")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid form"})
		return
	}

	in := orders.CreateInput{
		UserID:    currentUserID(c),
		ServiceID: c.PostForm("serviceId"),
		Specs:     c.PostForm("specs"),
	}

	fileHeader, err := c.FormFile("file")
	switch {
	case err == nil:
		file, openErr := fileHeader.Open()
		if openErr != nil {
			h.log.Error().Err(openErr).Msg("failed to open upload")
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid file"})
			return
		}
		defer file.Close()
		in.FileName = fileHeader.Filename
		in.File = file
	case errors.Is(err, http.ErrMissingFile):
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid file"})
		return
	}

	order, err := h.orders.Create(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, orderResponse(order))
}

// List returns the caller's orders, or every order for staff.
// GET /api/orders
func (h *OrderHandlers) List(c *gin.Context) {
	var (
		list []*store.Order
		err  error
	)
	if isStaff(c) {
		list, err = h.orders.ListAll(c.Request.Context())
	} else {
		list, err = h.orders.List(c.Request.Context(), currentUserID(c))
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(list, func(o *store.Order, _ int) OrderResponse {
		return orderResponse(o)
	}))
}

// Get returns one order visible to the caller.
// GET /api/orders/:id
func (h *OrderHandlers) Get(c *gin.Context) {
	order, err := h.orders.GetFor(c.Request.Context(), c.Param("id"), currentUserID(c), isStaff(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderResponse(order))
}

// UpdateStatus changes the status of an order.
// PATCH /api/orders/:id/status
func (h *OrderHandlers) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "status required"})
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), c.Param("id"), store.OrderStatus(req.Status))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderResponse(order))
}

func (h *OrderHandlers) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, orders.ErrInvalidOrder), errors.Is(err, orders.ErrInvalidStatus), errors.Is(err, objectstore.ErrEmpty):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, orders.ErrServiceNotFound), errors.Is(err, orders.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, objectstore.ErrUnsupportedType):
		c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{Error: "unsupported file type"})
	case errors.Is(err, objectstore.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "file too large"})
	default:
		h.log.Error().Err(err).Msg("order request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
