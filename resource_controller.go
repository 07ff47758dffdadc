package frummy

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// ResourceController serves generic CRUD screens over backend collections.
// Rows are opaque: whatever the form posts is what gets stored, minus a
// few reserved control fields.
type ResourceController struct {
	Logger       Logger
	Store        *StoreClient
	SessionKey   string
	ErrorHandler router.ErrorHandler
}

type ResourceControllerOption func(*ResourceController) *ResourceController

func WithResourceLogger(logger Logger) ResourceControllerOption {
	return func(c *ResourceController) *ResourceController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func NewResourceController(store *StoreClient, opts ...ResourceControllerOption) *ResourceController {
	c := &ResourceController{
		Logger:       defLogger{},
		Store:        store,
		SessionKey:   DefaultSessionKey,
		ErrorHandler: defaultErrHandler,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Store == nil {
		panic("Missing StoreClient in resource controller...")
	}

	return c
}

func RegisterResourceRoutes[T any](app router.Router[T], store *StoreClient, opts ...ResourceControllerOption) {
	controller := NewResourceController(store, opts...)

	app.Get("/:collection", controller.List).SetName("resource.list")
	app.Get("/:collection/new", controller.NewForm).SetName("resource.new")
	app.Post("/:collection", controller.Create).SetName("resource.create")
	app.Get("/:collection/:id/edit", controller.EditForm).SetName("resource.edit")
	app.Post("/:collection/:id", controller.Update).SetName("resource.update")
	app.Post("/:collection/:id/delete", controller.Delete).SetName("resource.delete")
}

func (r *ResourceController) List(ctx router.Context) error {
	collection := ctx.Param("collection")

	rows, err := r.Store.From(collection).Select(ctx.Context(), r.accessToken(ctx), ctx.Queries())
	if err != nil {
		r.Logger.Error("resource list: ", "collection", collection, "error", err)
		return r.ErrorHandler(ctx, err)
	}

	return ctx.Render("resources/list", router.ViewContext{
		"collection": collection,
		"rows":       rows,
		"columns":    columnsFor(rows),
	})
}

func (r *ResourceController) NewForm(ctx router.Context) error {
	return ctx.Render("resources/form", router.ViewContext{
		"collection": ctx.Param("collection"),
		"record":     Row{},
		"action":     fmt.Sprintf("/app/%s", ctx.Param("collection")),
	})
}

func (r *ResourceController) Create(ctx router.Context) error {
	collection := ctx.Param("collection")

	payload, err := parseFormRow(ctx.Body())
	if err != nil {
		return r.ErrorHandler(ctx, err)
	}

	if _, err := r.Store.From(collection).Insert(ctx.Context(), r.accessToken(ctx), payload); err != nil {
		r.Logger.Error("resource create: ", "collection", collection, "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message": err.Error(),
		}).Render("resources/form", router.ViewContext{
			"collection": collection,
			"record":     payload,
			"action":     fmt.Sprintf("/app/%s", collection),
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Record created",
	}).Redirect(fmt.Sprintf("/app/%s", collection), fiber.StatusSeeOther)
}

func (r *ResourceController) EditForm(ctx router.Context) error {
	collection := ctx.Param("collection")
	id := ctx.Param("id")

	rows, err := r.Store.From(collection).Select(ctx.Context(), r.accessToken(ctx), map[string]string{"id": "eq." + id})
	if err != nil {
		r.Logger.Error("resource edit: ", "collection", collection, "error", err)
		return r.ErrorHandler(ctx, err)
	}

	if len(rows) == 0 {
		return ctx.Status(fiber.StatusNotFound).Render("errors/404", router.ViewContext{
			"path": ctx.OriginalURL(),
		})
	}

	return ctx.Render("resources/form", router.ViewContext{
		"collection": collection,
		"record":     rows[0],
		"action":     fmt.Sprintf("/app/%s/%s", collection, id),
	})
}

func (r *ResourceController) Update(ctx router.Context) error {
	collection := ctx.Param("collection")
	id := ctx.Param("id")

	payload, err := parseFormRow(ctx.Body())
	if err != nil {
		return r.ErrorHandler(ctx, err)
	}

	filters := map[string]string{"id": "eq." + id}
	if _, err := r.Store.From(collection).Update(ctx.Context(), r.accessToken(ctx), filters, payload); err != nil {
		r.Logger.Error("resource update: ", "collection", collection, "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message": err.Error(),
		}).Render("resources/form", router.ViewContext{
			"collection": collection,
			"record":     payload,
			"action":     fmt.Sprintf("/app/%s/%s", collection, id),
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Record updated",
	}).Redirect(fmt.Sprintf("/app/%s", collection), fiber.StatusSeeOther)
}

func (r *ResourceController) Delete(ctx router.Context) error {
	collection := ctx.Param("collection")
	id := ctx.Param("id")

	filters := map[string]string{"id": "eq." + id}
	if _, err := r.Store.From(collection).Delete(ctx.Context(), r.accessToken(ctx), filters); err != nil {
		r.Logger.Error("resource delete: ", "collection", collection, "error", err)
		return r.ErrorHandler(ctx, err)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Record deleted",
	}).Redirect(fmt.Sprintf("/app/%s", collection), fiber.StatusSeeOther)
}

func (r *ResourceController) accessToken(ctx router.Context) string {
	session, err := SessionFromRouter(ctx, r.SessionKey)
	if err != nil {
		return ""
	}
	return session.AccessToken
}

// parseFormRow turns an urlencoded form body into an opaque row. Fields
// starting with "_" are form plumbing, not data.
func parseFormRow(body []byte) (Row, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, err
	}

	row := Row{}
	for key := range values {
		if strings.HasPrefix(key, "_") {
			continue
		}
		row[key] = values.Get(key)
	}
	return row, nil
}

func columnsFor(rows []Row) []string {
	seen := map[string]bool{}
	for _, row := range rows {
		for key := range row {
			seen[key] = true
		}
	}

	columns := make([]string, 0, len(seen))
	for key := range seen {
		columns = append(columns, key)
	}
	sort.Strings(columns)
	return columns
}
