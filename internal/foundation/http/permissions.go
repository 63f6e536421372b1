package http

import (
	"net/http"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
	"github.com/cobaltgrid/foundation/internal/foundation/service"
	"github.com/cobaltgrid/foundation/pkg/apix"
	"github.com/cobaltgrid/foundation/pkg/httpx"
)

type PermissionsHandler struct {
	PermissionService *service.PermissionService
}

// EffectivePermissionResponse is one menu with the actions the caller may
// perform on it.
type EffectivePermissionResponse struct {
	Menu    MenuResponse         `json:"menu"`
	Actions []MenuActionResponse `json:"actions"`
}

// HandleEffective resolves the caller's merged role and group permissions.
func (h *PermissionsHandler) HandleEffective(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	perms, err := h.PermissionService.EffectivePermissions(ctx, httpx.UserID(ctx))
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]EffectivePermissionResponse, len(perms))
	for i, p := range perms {
		actions := make([]MenuActionResponse, len(p.Actions))
		for j, a := range p.Actions {
			actions[j] = toMenuActionResponse(a)
		}
		out[i] = EffectivePermissionResponse{Menu: toMenuResponse(p.Menu), Actions: actions}
	}
	httpx.WriteJSON(ctx, w, http.StatusOK, map[string]any{"permissions": out})
}

// RolePermissionResponse is the action set granted to a role on one menu.
type RolePermissionResponse struct {
	MenuID    string   `json:"menu_id"`
	ActionIDs []string `json:"action_ids"`
}

func (h *PermissionsHandler) HandleListRolePermissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	perms, err := h.PermissionService.ListRolePermissions(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]RolePermissionResponse, len(perms))
	for i, p := range perms {
		out[i] = RolePermissionResponse{MenuID: p.MenuID, ActionIDs: p.ActionIDs}
	}
	httpx.WriteJSON(ctx, w, http.StatusOK, map[string]any{"permissions": out})
}

// HandleSetRolePermission replaces the action set for one (role, menu) pair.
func (h *PermissionsHandler) HandleSetRolePermission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		MenuID    string   `json:"menu_id"`
		ActionIDs []string `json:"action_ids"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apix.BadRequest("Malformed JSON body.").Write(w)
		return
	}
	if req.MenuID == "" {
		apix.RequiredField("menu_id").Write(w)
		return
	}

	err := h.PermissionService.SetRolePermission(ctx, httpx.UserID(ctx), r.PathValue("id"), req.MenuID, req.ActionIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PermissionsHandler) HandleDeleteRolePermission(w http.ResponseWriter, r *http.Request) {
	err := h.PermissionService.DeleteRolePermission(r.Context(), r.PathValue("id"), r.PathValue("menu_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GroupResponse is the public shape of a permission group.
type GroupResponse struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	UserIDs []string `json:"user_ids"`
}

func toGroupResponse(g domain.UserPermissionGroup) GroupResponse {
	return GroupResponse{ID: g.ID, Name: g.Name, UserIDs: g.UserIDs}
}

func (h *PermissionsHandler) HandleListGroups(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	groups, err := h.PermissionService.ListGroups(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]GroupResponse, len(groups))
	for i, g := range groups {
		out[i] = toGroupResponse(g)
	}
	httpx.WriteJSON(ctx, w, http.StatusOK, map[string]any{"groups": out})
}

func (h *PermissionsHandler) HandleCreateGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Name    string   `json:"name"`
		UserIDs []string `json:"user_ids"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apix.BadRequest("Malformed JSON body.").Write(w)
		return
	}
	if req.Name == "" {
		apix.RequiredField("name").Write(w)
		return
	}

	group, err := h.PermissionService.CreateGroup(ctx, httpx.UserID(ctx), req.Name, req.UserIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(ctx, w, http.StatusCreated, toGroupResponse(group))
}

func (h *PermissionsHandler) HandleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Name    string   `json:"name"`
		UserIDs []string `json:"user_ids"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apix.BadRequest("Malformed JSON body.").Write(w)
		return
	}
	if req.Name == "" {
		apix.RequiredField("name").Write(w)
		return
	}

	err := h.PermissionService.UpdateGroup(ctx, httpx.UserID(ctx), domain.UserPermissionGroup{
		ID:      r.PathValue("id"),
		Name:    req.Name,
		UserIDs: req.UserIDs,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PermissionsHandler) HandleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := h.PermissionService.DeleteGroup(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PermissionsHandler) HandleListGrants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	grants, err := h.PermissionService.ListGrants(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]RolePermissionResponse, len(grants))
	for i, g := range grants {
		out[i] = RolePermissionResponse{MenuID: g.MenuID, ActionIDs: g.ActionIDs}
	}
	httpx.WriteJSON(ctx, w, http.StatusOK, map[string]any{"grants": out})
}

// HandleSetGrant replaces the action set for one (group, menu) pair.
func (h *PermissionsHandler) HandleSetGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		MenuID    string   `json:"menu_id"`
		ActionIDs []string `json:"action_ids"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apix.BadRequest("Malformed JSON body.").Write(w)
		return
	}
	if req.MenuID == "" {
		apix.RequiredField("menu_id").Write(w)
		return
	}

	err := h.PermissionService.SetGrant(ctx, httpx.UserID(ctx), r.PathValue("id"), req.MenuID, req.ActionIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PermissionsHandler) HandleDeleteGrant(w http.ResponseWriter, r *http.Request) {
	err := h.PermissionService.DeleteGrant(r.Context(), r.PathValue("id"), r.PathValue("menu_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
