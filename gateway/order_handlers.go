package gateway

import (
	"net/http"

	"github.com/example/shopfront/pkg/models"
	"github.com/example/shopfront/pkg/service"
	"github.com/gin-gonic/gin"
)

type checkoutBody struct {
	Shipment models.Shipment `json:"shipmentInfo"`
	Payment  models.Payment  `json:"payment"`
}

type listOrdersQuery struct {
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
	Counts   bool   `form:"counts"`
}

type historyQuery struct {
	Limit int `form:"limit"`
}

type statusBody struct {
	Status models.OrderStatus `json:"status"`
}

func (g *Gateway) checkout(c *gin.Context) {
	var body checkoutBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}

	order, err := g.orders.Checkout(c.Request.Context(), service.CheckoutRequest{
		UserID:   c.GetString(userIDKey),
		ShopID:   c.Param("shopId"),
		Shipment: body.Shipment,
		Payment:  body.Payment,
	})
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (g *Gateway) listMyOrders(c *gin.Context) {
	var q listOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	g.listOrders(c, service.ListOrdersRequest{UserID: c.GetString(userIDKey)}, q)
}

func (g *Gateway) listShopOrders(c *gin.Context) {
	var q listOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	g.listOrders(c, service.ListOrdersRequest{ShopID: c.Param("shopId")}, q)
}

func (g *Gateway) listOrders(c *gin.Context, req service.ListOrdersRequest, q listOrdersQuery) {
	req.Status = models.OrderStatus(q.Status)
	req.Page = q.Page
	req.PageSize = q.PageSize
	req.WithCounts = q.Counts

	page, err := g.orders.ListOrders(c.Request.Context(), req)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (g *Gateway) getMyOrder(c *gin.Context) {
	order, err := g.orders.GetOrder(c.Request.Context(), service.GetOrderRequest{
		OrderID: c.Param("orderId"),
		UserID:  c.GetString(userIDKey),
	})
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (g *Gateway) updateOrderStatus(c *gin.Context) {
	var body statusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}

	order, err := g.orders.UpdateOrderStatus(c.Request.Context(), service.UpdateOrderStatusRequest{
		ShopID:  c.Param("shopId"),
		OrderID: c.Param("orderId"),
		Status:  body.Status,
	})
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (g *Gateway) getShopStats(c *gin.Context) {
	stats, err := g.orders.GetShopStats(c.Request.Context(), service.GetShopStatsRequest{ShopID: c.Param("shopId")})
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (g *Gateway) getOrderHistory(c *gin.Context) {
	var q historyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	logs, err := g.orders.GetOrderHistory(c.Request.Context(), service.GetOrderHistoryRequest{
		ShopID:  c.Param("shopId"),
		OrderID: c.Param("orderId"),
		Limit:   q.Limit,
	})
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": logs})
}
