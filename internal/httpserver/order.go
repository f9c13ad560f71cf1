package httpserver

import (
	"net/http"
	"strconv"

	"github.com/Skotchmaster/shopping/internal/logging"
	"github.com/Skotchmaster/shopping/internal/models"
	"github.com/Skotchmaster/shopping/internal/service"
	"github.com/Skotchmaster/shopping/internal/transport"
	"github.com/Skotchmaster/shopping/internal/util"
	"github.com/labstack/echo/v4"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "create.order")

	userID, err := customerID(c)
	if err != nil {
		return err
	}

	order, err := h.Svc.CreateOrder(ctx, userID)
	if err != nil {
		status, herr := httpError(err)
		l.Warn("create_order_error", "status", status, "error", err)
		return herr
	}
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "get.order")

	userID, err := customerID(c)
	if err != nil {
		return err
	}

	order, err := h.Svc.GetOrder(ctx, userID, c.Param("orderId"))
	if err != nil {
		status, herr := httpError(err)
		l.Warn("get_order_error", "status", status, "error", err)
		return herr
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "list.orders")

	userID, err := customerID(c)
	if err != nil {
		return err
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))

	orders, err := h.Svc.ListOrders(ctx, userID, page, size)
	if err != nil {
		status, herr := httpError(err)
		l.Error("list_orders_error", "status", status, "error", err)
		return herr
	}
	if orders == nil {
		orders = []models.Order{}
	}

	page, size = util.Normalize(page, size)
	return c.JSON(http.StatusOK, transport.OrdersPage{Orders: orders, Page: page, Size: size})
}
