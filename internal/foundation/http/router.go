package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
	"github.com/cobaltgrid/foundation/internal/foundation/service"
	"github.com/cobaltgrid/foundation/internal/foundation/store"
	"github.com/cobaltgrid/foundation/pkg/httpx"
	"github.com/cobaltgrid/foundation/pkg/jwtx"
	"github.com/cobaltgrid/foundation/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store

	AuthService          *service.AuthService
	TokenService         *service.TokenService
	RegistrationService  *service.RegistrationService
	OTPService           *service.OTPService
	TOTPService          *service.TOTPService
	SocialLoginService   *service.SocialLoginService
	PasswordResetService *service.PasswordResetService
	UserService          *service.UserService
	PermissionService    *service.PermissionService
	MenuService          *service.MenuService
	CurrencyService      *service.CurrencyService
	Dispatch             service.Enqueuer
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerPermissions()
	r.registerMenus()
	r.registerCurrencies()
	r.registerNotify()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// secured wraps h with token verification and a per-user rate limit.
func (r *Router) secured(h http.Handler, cfg httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h,
		httpx.Authn(r.verifier),
		httpx.RateLimitBySubject(cfg),
	)
}

func (r *Router) registerAuth() {
	register := &RegisterHandler{RegistrationService: r.RegistrationService}
	login := &LoginHandler{AuthService: r.AuthService}
	logout := &LogoutHandler{TokenService: r.TokenService}
	refresh := &RefreshHandler{TokenService: r.TokenService}
	otp := &OTPHandler{OTPService: r.OTPService}
	totp := &TOTPHandler{TOTPService: r.TOTPService}
	social := &SocialLoginHandler{SocialLoginService: r.SocialLoginService}
	reset := &PasswordResetHandler{PasswordResetService: r.PasswordResetService}

	// POST /register - strict rate limit by IP (public signup endpoint)
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(register,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /login - strict rate limit by IP + email body field to slow
	// per-account brute force
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(login,
			httpx.RateLimit(httpx.StrictLimit, func(req *http.Request) string {
				return httpx.ClientIP(req) + "|" + httpx.BodyFieldKey("email")(req)
			}),
		),
	)

	r.Mux.Handle("POST /v1/auth/logout", r.secured(logout, httpx.ModerateLimit))

	// OTP endpoints are unauthenticated: they sit between the two steps of a
	// login. Strict limits on both.
	r.Mux.Handle("POST /v1/auth/otp/generate",
		httpx.Chain(http.HandlerFunc(otp.HandleGenerate),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/otp/verify",
		httpx.Chain(http.HandlerFunc(otp.HandleVerify),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/totp/verify",
		httpx.Chain(http.HandlerFunc(totp.HandleVerify),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/totp/enroll",
		r.secured(http.HandlerFunc(totp.HandleEnroll), httpx.ModerateLimit))

	// POST /token/refresh - moderate rate limit by IP
	r.Mux.Handle("POST /v1/auth/token/refresh",
		httpx.Chain(refresh,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/password/reset",
		httpx.Chain(http.HandlerFunc(reset.HandleRequest),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/password/reset/confirm",
		httpx.Chain(http.HandlerFunc(reset.HandleConfirm),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/google",
		httpx.Chain(social.Handle(domain.ProviderGoogle),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/apple",
		httpx.Chain(social.Handle(domain.ProviderApple),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerUsers() {
	users := &UsersHandler{UserService: r.UserService}
	roles := &RolesHandler{UserService: r.UserService}

	r.Mux.Handle("GET /v1/users",
		r.secured(http.HandlerFunc(users.HandleList), httpx.LenientLimit))
	r.Mux.Handle("GET /v1/users/{id}",
		r.secured(http.HandlerFunc(users.HandleGet), httpx.LenientLimit))
	r.Mux.Handle("PUT /v1/users/{id}",
		r.secured(http.HandlerFunc(users.HandleUpdate), httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/users/{id}",
		r.secured(http.HandlerFunc(users.HandleDelete), httpx.ModerateLimit))
	r.Mux.Handle("PUT /v1/users/{id}/auth_options",
		r.secured(http.HandlerFunc(users.HandleUpdateAuthOptions), httpx.ModerateLimit))

	// GET /roles serves the signup form too: anonymous callers get the
	// signup-visible subset, authenticated callers get everything.
	r.Mux.Handle("GET /v1/roles",
		httpx.Chain(http.HandlerFunc(roles.HandleList),
			httpx.OptionalAuthn(r.verifier),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("POST /v1/roles",
		r.secured(http.HandlerFunc(roles.HandleCreate), httpx.ModerateLimit))
	r.Mux.Handle("PUT /v1/roles/{id}",
		r.secured(http.HandlerFunc(roles.HandleUpdate), httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/roles/{id}",
		r.secured(http.HandlerFunc(roles.HandleDelete), httpx.ModerateLimit))
}

func (r *Router) registerPermissions() {
	h := &PermissionsHandler{PermissionService: r.PermissionService}

	r.Mux.Handle("GET /v1/permissions",
		r.secured(http.HandlerFunc(h.HandleEffective), httpx.LenientLimit))

	r.Mux.Handle("GET /v1/roles/{id}/permissions",
		r.secured(http.HandlerFunc(h.HandleListRolePermissions), httpx.LenientLimit))
	r.Mux.Handle("PUT /v1/roles/{id}/permissions",
		r.secured(http.HandlerFunc(h.HandleSetRolePermission), httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/roles/{id}/permissions/{menu_id}",
		r.secured(http.HandlerFunc(h.HandleDeleteRolePermission), httpx.ModerateLimit))

	r.Mux.Handle("GET /v1/user_permission_groups",
		r.secured(http.HandlerFunc(h.HandleListGroups), httpx.LenientLimit))
	r.Mux.Handle("POST /v1/user_permission_groups",
		r.secured(http.HandlerFunc(h.HandleCreateGroup), httpx.ModerateLimit))
	r.Mux.Handle("PUT /v1/user_permission_groups/{id}",
		r.secured(http.HandlerFunc(h.HandleUpdateGroup), httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/user_permission_groups/{id}",
		r.secured(http.HandlerFunc(h.HandleDeleteGroup), httpx.ModerateLimit))

	r.Mux.Handle("GET /v1/user_permission_groups/{id}/grants",
		r.secured(http.HandlerFunc(h.HandleListGrants), httpx.LenientLimit))
	r.Mux.Handle("PUT /v1/user_permission_groups/{id}/grants",
		r.secured(http.HandlerFunc(h.HandleSetGrant), httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/user_permission_groups/{id}/grants/{menu_id}",
		r.secured(http.HandlerFunc(h.HandleDeleteGrant), httpx.ModerateLimit))
}

func (r *Router) registerMenus() {
	menus := &MenusHandler{MenuService: r.MenuService}
	actions := &MenuActionsHandler{MenuService: r.MenuService}

	r.Mux.Handle("GET /v1/menus",
		r.secured(http.HandlerFunc(menus.HandleList), httpx.LenientLimit))
	r.Mux.Handle("GET /v1/menus/{id}",
		r.secured(http.HandlerFunc(menus.HandleGet), httpx.LenientLimit))
	r.Mux.Handle("POST /v1/menus",
		r.secured(http.HandlerFunc(menus.HandleCreate), httpx.ModerateLimit))
	r.Mux.Handle("PUT /v1/menus/{id}",
		r.secured(http.HandlerFunc(menus.HandleUpdate), httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/menus/{id}",
		r.secured(http.HandlerFunc(menus.HandleDelete), httpx.ModerateLimit))

	r.Mux.Handle("GET /v1/menu_actions",
		r.secured(http.HandlerFunc(actions.HandleList), httpx.LenientLimit))
	r.Mux.Handle("POST /v1/menu_actions",
		r.secured(http.HandlerFunc(actions.HandleCreate), httpx.ModerateLimit))
	r.Mux.Handle("PUT /v1/menu_actions/{id}",
		r.secured(http.HandlerFunc(actions.HandleUpdate), httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/menu_actions/{id}",
		r.secured(http.HandlerFunc(actions.HandleDelete), httpx.ModerateLimit))
}

func (r *Router) registerCurrencies() {
	currencies := &CurrenciesHandler{CurrencyService: r.CurrencyService}
	rates := &CurrencyRatesHandler{CurrencyService: r.CurrencyService}

	r.Mux.Handle("GET /v1/currencies",
		r.secured(http.HandlerFunc(currencies.HandleList), httpx.LenientLimit))
	r.Mux.Handle("GET /v1/currencies/{id}",
		r.secured(http.HandlerFunc(currencies.HandleGet), httpx.LenientLimit))
	r.Mux.Handle("POST /v1/currencies",
		r.secured(http.HandlerFunc(currencies.HandleCreate), httpx.ModerateLimit))
	r.Mux.Handle("PUT /v1/currencies/{id}",
		r.secured(http.HandlerFunc(currencies.HandleUpdate), httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/currencies/{id}",
		r.secured(http.HandlerFunc(currencies.HandleDelete), httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/currencies/convert",
		r.secured(http.HandlerFunc(currencies.HandleConvert), httpx.LenientLimit))

	r.Mux.Handle("GET /v1/currency_rates",
		r.secured(http.HandlerFunc(rates.HandleList), httpx.LenientLimit))
	r.Mux.Handle("POST /v1/currency_rates",
		r.secured(http.HandlerFunc(rates.HandleCreate), httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/currency_rates/{id}",
		r.secured(http.HandlerFunc(rates.HandleDelete), httpx.ModerateLimit))
}

func (r *Router) registerNotify() {
	h := &NotifyHandler{Dispatch: r.Dispatch}

	r.Mux.Handle("POST /v1/notify/email",
		r.secured(http.HandlerFunc(h.HandleEmail), httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/notify/whatsapp",
		r.secured(http.HandlerFunc(h.HandleWhatsApp), httpx.ModerateLimit))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may
	// poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
