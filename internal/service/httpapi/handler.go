// Package httpapi содержит REST-адаптер сервиса заказов поверх gorilla/mux.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
	"github.com/vladislavdragonenkov/shop-orders/internal/service/orders"
	ordersv1 "github.com/vladislavdragonenkov/shop-orders/proto/orders/v1"
)

const maxBodyBytes = 1 << 20

// Handler обслуживает /api/orders.
type Handler struct {
	orders *orders.Service
	logger *log.Entry
}

// NewHandler создаёт REST-обработчик.
func NewHandler(svc *orders.Service, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.WithField("component", "http-api")
	}
	return &Handler{orders: svc, logger: logger}
}

// RegisterRoutes регистрирует маршруты заказов на роутере.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/orders").Subrouter()
	api.HandleFunc("/checkout/{userId}", h.checkout).Methods(http.MethodPost)
	api.HandleFunc("/user/{userId}", h.listByUser).Methods(http.MethodGet)
	api.HandleFunc("/{id}/status", h.updateStatus).Methods(http.MethodPatch)
	api.HandleFunc("/{id}", h.get).Methods(http.MethodGet)
	api.HandleFunc("/{id}", h.update).Methods(http.MethodPut)
	api.HandleFunc("/{id}", h.delete).Methods(http.MethodDelete)
	api.HandleFunc("", h.listAll).Methods(http.MethodGet)
}

type updateBody struct {
	Status string              `json:"status"`
	Items  []ordersv1.LineItem `json:"items"`
}

type statusBody struct {
	Status string `json:"status"`
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Checkout(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOrder(w, r, order)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOrder(w, r, order)
}

func (h *Handler) listByUser(w http.ResponseWriter, r *http.Request) {
	list, err := h.orders.ListByUser(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOrders(w, r, list)
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	list, err := h.orders.ListAll(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOrders(w, r, list)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var body updateBody
	if err := decodeBody(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req, err := orders.FromWireUpdate(body.Status, body.Items)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	order, err := h.orders.Update(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOrder(w, r, order)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var body statusBody
	if err := decodeBody(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), mux.Vars(r)["id"], domain.OrderStatus(body.Status))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOrder(w, r, order)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Order deleted successfully"})
}

func (h *Handler) writeOrder(w http.ResponseWriter, r *http.Request, order domain.Order) {
	view, err := h.orders.Present(r.Context(), order)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders.ToWire(view))
}

func (h *Handler) writeOrders(w http.ResponseWriter, r *http.Request, list []domain.Order) {
	views, err := h.orders.PresentAll(r.Context(), list)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders.ToWireList(views))
}

// writeError отвечает 404 / 400 / 500. Внутренние детали пишутся только в лог.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case domain.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case domain.IsInvalidState(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		h.logger.WithError(err).WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("order request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
