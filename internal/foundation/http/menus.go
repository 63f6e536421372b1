package http

import (
	"net/http"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
	"github.com/cobaltgrid/foundation/internal/foundation/service"
	"github.com/cobaltgrid/foundation/pkg/apix"
	"github.com/cobaltgrid/foundation/pkg/httpx"
)

type MenusHandler struct {
	MenuService *service.MenuService
}

// MenuResponse is the public shape of a navigation menu.
type MenuResponse struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	Slug                 string  `json:"slug"`
	URL                  string  `json:"url,omitempty"`
	ParentID             *string `json:"parent_id,omitempty"`
	Depth                int     `json:"depth"`
	SortOrder            int     `json:"sort_order"`
	VisibleAuthenticated bool    `json:"visible_authenticated"`
	VisibleAnonymous     bool    `json:"visible_anonymous"`
}

func toMenuResponse(m domain.Menu) MenuResponse {
	return MenuResponse{
		ID:                   m.ID,
		Name:                 m.Name,
		Slug:                 m.Slug,
		URL:                  m.URL,
		ParentID:             m.ParentID,
		Depth:                m.Depth,
		SortOrder:            m.SortOrder,
		VisibleAuthenticated: m.VisibleAuthenticated,
		VisibleAnonymous:     m.VisibleAnonymous,
	}
}

type menuRequest struct {
	Name                 string  `json:"name"`
	URL                  string  `json:"url"`
	ParentID             *string `json:"parent_id"`
	SortOrder            int     `json:"sort_order"`
	VisibleAuthenticated bool    `json:"visible_authenticated"`
	VisibleAnonymous     bool    `json:"visible_anonymous"`
}

func (h *MenusHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	menus, err := h.MenuService.ListMenus(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]MenuResponse, len(menus))
	for i, m := range menus {
		out[i] = toMenuResponse(m)
	}
	httpx.WriteJSON(ctx, w, http.StatusOK, map[string]any{"menus": out})
}

func (h *MenusHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	menu, err := h.MenuService.GetMenu(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(ctx, w, http.StatusOK, toMenuResponse(menu))
}

func (h *MenusHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req menuRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apix.BadRequest("Malformed JSON body.").Write(w)
		return
	}

	menu, err := h.MenuService.CreateMenu(ctx, httpx.UserID(ctx), domain.Menu{
		Name:                 req.Name,
		URL:                  req.URL,
		ParentID:             req.ParentID,
		SortOrder:            req.SortOrder,
		VisibleAuthenticated: req.VisibleAuthenticated,
		VisibleAnonymous:     req.VisibleAnonymous,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(ctx, w, http.StatusCreated, toMenuResponse(menu))
}

func (h *MenusHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req menuRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apix.BadRequest("Malformed JSON body.").Write(w)
		return
	}

	err := h.MenuService.UpdateMenu(ctx, httpx.UserID(ctx), domain.Menu{
		ID:                   r.PathValue("id"),
		Name:                 req.Name,
		URL:                  req.URL,
		ParentID:             req.ParentID,
		SortOrder:            req.SortOrder,
		VisibleAuthenticated: req.VisibleAuthenticated,
		VisibleAnonymous:     req.VisibleAnonymous,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete answers 409 referential-conflict while permissions or child
// menus still reference the row.
func (h *MenusHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.MenuService.DeleteMenu(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type MenuActionsHandler struct {
	MenuService *service.MenuService
}

// MenuActionResponse is the public shape of a grantable menu action.
type MenuActionResponse struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	CSSClass string `json:"css_class,omitempty"`
}

func toMenuActionResponse(a domain.MenuAction) MenuActionResponse {
	return MenuActionResponse{ID: a.ID, Code: a.Code, CSSClass: a.CSSClass}
}

func (h *MenuActionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actions, err := h.MenuService.ListActions(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]MenuActionResponse, len(actions))
	for i, a := range actions {
		out[i] = toMenuActionResponse(a)
	}
	httpx.WriteJSON(ctx, w, http.StatusOK, map[string]any{"menu_actions": out})
}

func (h *MenuActionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Code     string `json:"code"`
		CSSClass string `json:"css_class"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apix.BadRequest("Malformed JSON body.").Write(w)
		return
	}

	action, err := h.MenuService.CreateAction(ctx, httpx.UserID(ctx), domain.MenuAction{
		Code:     req.Code,
		CSSClass: req.CSSClass,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(ctx, w, http.StatusCreated, toMenuActionResponse(action))
}

func (h *MenuActionsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Code     string `json:"code"`
		CSSClass string `json:"css_class"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apix.BadRequest("Malformed JSON body.").Write(w)
		return
	}

	err := h.MenuService.UpdateAction(ctx, httpx.UserID(ctx), domain.MenuAction{
		ID:       r.PathValue("id"),
		Code:     req.Code,
		CSSClass: req.CSSClass,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete answers 409 referential-conflict while any grant references
// the action.
func (h *MenuActionsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.MenuService.DeleteAction(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
