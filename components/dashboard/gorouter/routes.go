package gorouter

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-dashboard-editor/components/dashboard"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/commands"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/embeddable"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/httpapi"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/queries"
)

// ActivityResolver extracts who is acting from a router.Context.
type ActivityResolver func(router.Context) dashboard.ActivityContext

// Config wires go-router with the dashboard API and refresh broadcasts.
type Config[T any] struct {
	Router           router.Router[T]
	API              httpapi.Executor
	Broadcast        *dashboard.BroadcastHook
	ActivityResolver ActivityResolver
	BasePath         string
	Routes           RouteConfig
}

// RouteConfig customizes the relative paths used for dashboard endpoints.
type RouteConfig struct {
	Dashboards  string
	DashboardID string
	Render      string
	Editable    string
	Reload      string
	Save        string
	Input       string
	Transition  string
	WebSocket   string
}

// Register mounts the dashboard routes (JSON, HTML render, WebSocket) on a go-router router.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.API == nil {
		return errors.New("gorouter: api executor is required")
	}
	routes := defaultRouteConfig(cfg.Routes)
	base := cfg.BasePath
	if base == "" {
		base = "/app/" + dashboard.AppID
	}
	resolver := cfg.ActivityResolver
	if resolver == nil {
		resolver = defaultActivityResolver
	}

	group := cfg.Router.Group(base)
	registerAPI(group, cfg.API, resolver, routes)
	if cfg.Broadcast != nil {
		registerWebSocket(group, cfg.Broadcast, routes.WebSocket)
	}
	return nil
}

func registerAPI[T any](r router.Router[T], api httpapi.Executor, resolver ActivityResolver, routes RouteConfig) {
	r.Get(routes.Dashboards, router.WrapHandler(func(ctx router.Context) error {
		opts := httpapi.FindOptionsFromQuery(func(key string) string { return ctx.Query(key) })
		items, err := api.List(ctx.Context(), opts)
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, map[string]any{"items": items, "total": len(items)})
	}))

	r.Get(routes.Editable, router.WrapHandler(func(ctx router.Context) error {
		editable, err := api.Editable(ctx.Context())
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, map[string]bool{"editable": editable})
	}))

	r.Get(routes.DashboardID, router.WrapHandler(func(ctx router.Context) error {
		id := ctx.Param("id")
		if id == "" {
			return respondStatus(ctx, http.StatusBadRequest, errors.New("dashboard id is required"))
		}
		out, err := api.Load(ctx.Context(), id)
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, out)
	}))

	r.Get(routes.Render, router.WrapHandler(func(ctx router.Context) error {
		search := ""
		if state := ctx.Query(dashboard.AppStateKey); state != "" {
			search = "?" + url.Values{dashboard.AppStateKey: {state}}.Encode()
		}
		out, err := api.Render(ctx.Context(), queries.RenderDashboardInput{
			DashboardID: ctx.Param("id"),
			Search:      search,
		})
		if err != nil {
			return respondError(ctx, err)
		}
		ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
		return ctx.Send([]byte(out.HTML))
	}))

	r.Post(routes.Dashboards, router.WrapHandler(func(ctx router.Context) error {
		var payload httpapi.SavePayload
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		actor := resolver(ctx)
		if payload.ActorID == "" {
			payload.ActorID = actor.ActorID
		}
		if payload.UserID == "" {
			payload.UserID = actor.UserID
		}
		if payload.TenantID == "" {
			payload.TenantID = actor.TenantID
		}
		var result dashboard.SaveResult
		if err := api.Save(ctx.Context(), payload.Input(&result)); err != nil {
			return respondError(ctx, err)
		}
		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
		}
		return ctx.JSON(status, result)
	}))

	r.Delete(routes.DashboardID, router.WrapHandler(func(ctx router.Context) error {
		id := ctx.Param("id")
		if id == "" {
			return respondStatus(ctx, http.StatusBadRequest, errors.New("dashboard id is required"))
		}
		actor := resolver(ctx)
		input := commands.DeleteDashboardsInput{
			IDs:      []string{id},
			ActorID:  actor.ActorID,
			UserID:   actor.UserID,
			TenantID: actor.TenantID,
		}
		if err := api.Delete(ctx.Context(), input); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "deleted"})
	}))

	r.Post(routes.Reload, router.WrapHandler(func(ctx router.Context) error {
		var token int64
		if err := api.Reload(ctx.Context(), commands.ReloadDashboardInput{SessionKey: ctx.Param("key"), Token: &token}); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusAccepted, map[string]any{"lastReloadRequestTime": token})
	}))

	r.Post(routes.Save, router.WrapHandler(func(ctx router.Context) error {
		var payload httpapi.SessionSavePayload
		if body := ctx.Body(); len(body) > 0 {
			if err := json.Unmarshal(body, &payload); err != nil {
				return respondStatus(ctx, http.StatusBadRequest, err)
			}
		}
		actor := resolver(ctx)
		if payload.ActorID == "" {
			payload.ActorID = actor.ActorID
		}
		if payload.UserID == "" {
			payload.UserID = actor.UserID
		}
		if payload.TenantID == "" {
			payload.TenantID = actor.TenantID
		}
		var result dashboard.SaveResult
		if err := api.SaveSession(ctx.Context(), payload.Input(ctx.Param("key"), &result)); err != nil {
			return respondError(ctx, err)
		}
		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
		}
		return ctx.JSON(status, result)
	}))

	r.Post(routes.Input, router.WrapHandler(func(ctx router.Context) error {
		var changes embeddable.InputChanges
		if err := json.Unmarshal(ctx.Body(), &changes); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		if err := api.UpdateInput(ctx.Context(), commands.UpdateInputInput{SessionKey: ctx.Param("key"), Changes: changes}); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "updated"})
	}))

	r.Post(routes.Transition, router.WrapHandler(func(ctx router.Context) error {
		var payload httpapi.TransitionPayload
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		input := commands.TransitionInput{SessionKey: ctx.Param("key"), Prop: payload.Prop, Value: payload.Value}
		if err := api.Transition(ctx.Context(), input); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "applied"})
	}))
}

func registerWebSocket[T any](r router.Router[T], hook *dashboard.BroadcastHook, path string) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		events, cancel := hook.Subscribe()
		defer cancel()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := ws.WriteJSON(event); err != nil {
					return err
				}
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}

func defaultActivityResolver(ctx router.Context) dashboard.ActivityContext {
	var actor dashboard.ActivityContext
	if v, ok := ctx.Locals("user_id").(string); ok {
		actor.UserID = v
		actor.ActorID = v
	}
	if v, ok := ctx.Locals("actor_id").(string); ok && v != "" {
		actor.ActorID = v
	}
	if v, ok := ctx.Locals("tenant_id").(string); ok {
		actor.TenantID = v
	}
	return actor
}

func respondError(ctx router.Context, err error) error {
	return respondStatus(ctx, httpapi.StatusFor(err), err)
}

func respondStatus(ctx router.Context, status int, err error) error {
	return ctx.JSON(status, map[string]string{"error": err.Error()})
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.Dashboards == "" {
		routes.Dashboards = "/dashboards"
	}
	if routes.DashboardID == "" {
		routes.DashboardID = "/dashboards/:id"
	}
	if routes.Render == "" {
		routes.Render = "/dashboards/:id/render"
	}
	if routes.Editable == "" {
		routes.Editable = "/dashboards/_editable"
	}
	if routes.Reload == "" {
		routes.Reload = "/sessions/:key/reload"
	}
	if routes.Save == "" {
		routes.Save = "/sessions/:key/save"
	}
	if routes.Input == "" {
		routes.Input = "/sessions/:key/input"
	}
	if routes.Transition == "" {
		routes.Transition = "/sessions/:key/transition"
	}
	if routes.WebSocket == "" {
		routes.WebSocket = "/dashboards/ws"
	}
	return routes
}
