package httpgin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kirinyoku/meetly/internal/domain"
	"github.com/kirinyoku/meetly/internal/entitycache"
	"github.com/kirinyoku/meetly/internal/remote"
	"github.com/kirinyoku/meetly/internal/session"
)

type entityCache[T domain.Entity] interface {
	GetList(ctx context.Context, filter domain.Filter) entitycache.Entry[[]T]
	GetDetail(ctx context.Context, id string) entitycache.Entry[T]
	FetchList(ctx context.Context, filter domain.Filter) (entitycache.Entry[[]T], error)
	FetchDetail(ctx context.Context, id string) (entitycache.Entry[T], error)
}

type entityWriter[T domain.Entity] interface {
	Create(ctx context.Context, payload T) (T, error)
	Update(ctx context.Context, id string, patch remote.Patch) (T, error)
	Delete(ctx context.Context, id string) error
}

// entityAccess picks the cache and write service of one kind out of a
// session.
type entityAccess[T domain.Entity] struct {
	cache  func(*session.Session) entityCache[T]
	writes func(*session.Session) entityWriter[T]
	maxAge string
}

func registerEntity[T domain.Entity](g *gin.RouterGroup, path string, a entityAccess[T]) {
	g.GET(path, a.list())
	g.GET(path+"/:id", a.get())
	g.POST(path, a.create())
	g.PATCH(path+"/:id", a.update())
	g.DELETE(path+"/:id", a.remove())
}

func queryFilter(c *gin.Context) domain.Filter {
	q := c.Request.URL.Query()
	if len(q) == 0 {
		return nil
	}

	f := make(domain.Filter, len(q))
	for k, v := range q {
		if len(v) > 0 {
			f[k] = v[0]
		}
	}
	return f
}

// @Summary  List entities
// @Description  Served from the session cache. A stale list is returned at
// @Description  once with X-Cache-State: stale while it is refetched.
// @Param    search    query  string  false  "free text search"
// @Param    upcoming  query  bool    false  "only future entries"
// @Success  200  {array}   object
// @Failure  502  {object}  ErrorResponse
// @Router   /events [get]
func (a entityAccess[T]) list() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := currentSession(c)
		cache := a.cache(s)
		filter := queryFilter(c)

		// Refreshes outlive the request, so they run under the session.
		e := cache.GetList(s.Context(), filter)
		if !e.HasData {
			var err error
			if e, err = cache.FetchList(c.Request.Context(), filter); err != nil {
				respondErr(c, err)
				return
			}
		}

		items := e.Data
		if items == nil {
			items = []T{}
		}
		writeEntry(c, e.State, items, a.maxAge)
	}
}

// @Summary  Get entity
// @Param    id  path  string  true  "Entity ID"
// @Success  200  {object}  object
// @Failure  404  {object}  ErrorResponse
// @Router   /events/{id} [get]
func (a entityAccess[T]) get() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := currentSession(c)
		cache := a.cache(s)
		id := c.Param("id")

		e := cache.GetDetail(s.Context(), id)
		if !e.HasData && e.State != entitycache.StateIdle {
			var err error
			if e, err = cache.FetchDetail(c.Request.Context(), id); err != nil {
				respondErr(c, err)
				return
			}
		}
		if !e.HasData {
			respondErr(c, domain.ErrNotFound)
			return
		}

		writeEntry(c, e.State, e.Data, a.maxAge)
	}
}

// @Summary  Create entity
// @Success  201  {object}  object
// @Failure  400  {object}  ErrorResponse
// @Failure  502  {object}  ErrorResponse
// @Router   /events [post]
func (a entityAccess[T]) create() gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload T
		if err := c.ShouldBindJSON(&payload); err != nil {
			badRequest(c, err.Error())
			return
		}

		v, err := a.writes(currentSession(c)).Create(c.Request.Context(), payload)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, v)
	}
}

// @Summary  Update entity
// @Param    id  path  string  true  "Entity ID"
// @Success  200  {object}  object
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /events/{id} [patch]
func (a entityAccess[T]) update() gin.HandlerFunc {
	return func(c *gin.Context) {
		var patch remote.Patch
		if err := c.ShouldBindJSON(&patch); err != nil {
			badRequest(c, err.Error())
			return
		}
		if len(patch) == 0 {
			badRequest(c, "empty patch")
			return
		}

		v, err := a.writes(currentSession(c)).Update(c.Request.Context(), c.Param("id"), patch)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, v)
	}
}

// @Summary  Delete entity
// @Param    id  path  string  true  "Entity ID"
// @Success  204
// @Failure  404  {object}  ErrorResponse
// @Router   /events/{id} [delete]
func (a entityAccess[T]) remove() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := a.writes(currentSession(c)).Delete(c.Request.Context(), c.Param("id")); err != nil {
			respondErr(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}
