package v1

import (
	"github.com/gin-gonic/gin"
)

// ChildRouteHandler is implemented by handlers of a record list owned by
// the sow (reproductive records, piglets).
type ChildRouteHandler interface {
	Add(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

// RegisterChildRoutes registers POST, PUT and DELETE for a child list under
// a sow group. param names the path parameter of the child id.
func RegisterChildRoutes(sow *gin.RouterGroup, path, param string, h ChildRouteHandler) {
	group := sow.Group(path)
	group.POST("", h.Add)
	group.PUT("/:"+param, h.Update)
	group.DELETE("/:"+param, h.Delete)
}

type childRoutes struct {
	add, update, del gin.HandlerFunc
}

func (r childRoutes) Add(c *gin.Context)    { r.add(c) }
func (r childRoutes) Update(c *gin.Context) { r.update(c) }
func (r childRoutes) Delete(c *gin.Context) { r.del(c) }
