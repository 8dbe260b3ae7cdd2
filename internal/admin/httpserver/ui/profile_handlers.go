package ui

import (
	"net/http"
	"strconv"

	custommw "finitefield.org/travel-admin/internal/admin/httpserver/middleware"
	adminprofile "finitefield.org/travel-admin/internal/admin/profile"
	"finitefield.org/travel-admin/internal/admin/templates/helpers"
	profiletpl "finitefield.org/travel-admin/internal/admin/templates/profile"
	"finitefield.org/travel-admin/internal/admin/viewquery"
)

// ProfilePage renders the signed-in user's access and saved table views.
func (h *Handlers) ProfilePage(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "Profile", profiletpl.Page(h.profileData(r)), http.StatusOK)
}

// ProfileResetViews forgets every saved table view.
func (h *Handlers) ProfileResetViews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cleared := 0
	if sess, ok := custommw.SessionFromContext(ctx); ok {
		cleared = sess.ClearViews()
	}
	if !custommw.IsHTMXRequest(ctx) {
		http.Redirect(w, r, helpers.JoinPath(custommw.BasePathFromContext(ctx), "profile"), http.StatusSeeOther)
		return
	}
	setToast(w, "Cleared "+strconv.Itoa(cleared)+" saved views.", "success", false)
	h.renderPage(w, r, "Profile", profiletpl.Page(h.profileData(r)), http.StatusOK)
}

func (h *Handlers) profileData(r *http.Request) profiletpl.PageData {
	ctx := r.Context()
	var id adminprofile.Identity
	if user, ok := custommw.UserFromContext(ctx); ok {
		id = adminprofile.Identity{UID: user.UID, Email: user.Email, Roles: user.Roles}
	}
	var info adminprofile.SessionInfo
	var views map[string]viewquery.State
	if sess, ok := custommw.SessionFromContext(ctx); ok {
		info = adminprofile.SessionInfo{
			CreatedAt:  sess.CreatedAt(),
			ExpiresAt:  sess.ExpiresAt(),
			RememberMe: sess.RememberMe(),
		}
		views = sess.Views()
	}
	summary := adminprofile.Build(id, info, h.definitions(), views)
	return profiletpl.BuildPageData(custommw.BasePathFromContext(ctx), custommw.CSRFTokenFromContext(ctx), summary)
}
