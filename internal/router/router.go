package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/craftfolio/backend/internal/auth"
	"github.com/craftfolio/backend/internal/middleware"
	"github.com/craftfolio/backend/internal/profile"
	"github.com/craftfolio/backend/internal/subscription"
)

// New assembles the HTTP surface. Every route below an authn marker runs
// behind the strategy verifier; the rest are public.
func New(
	authHandler *auth.Handler,
	subHandler *subscription.Handler,
	profileHandler *profile.Handler,
	verifier auth.Verifier,
) http.Handler {
	mux := http.NewServeMux()
	authn := middleware.Authenticate(verifier)
	protected := func(h http.HandlerFunc) http.Handler {
		return authn(h)
	}

	mux.HandleFunc("POST /register", authHandler.Register)
	mux.HandleFunc("POST /login", authHandler.Login)
	mux.HandleFunc("POST /logout", authHandler.Logout)
	mux.Handle("GET /user", protected(authHandler.CurrentUser))

	mux.HandleFunc("GET /subscription/plans", subHandler.ListPlans)
	mux.Handle("POST /subscription/subscribe", protected(subHandler.Subscribe))
	mux.Handle("POST /subscription/credits/topup", protected(subHandler.TopUp))
	mux.Handle("GET /credits", protected(subHandler.Credits))
	mux.Handle("GET /credits/history", protected(subHandler.History))

	mux.Handle("GET /profile", protected(profileHandler.GetProfile))
	mux.Handle("PUT /profile", protected(profileHandler.PutProfile))

	mux.Handle("GET /profile/education", protected(profileHandler.ListEducation))
	mux.Handle("POST /profile/education", protected(profileHandler.CreateEducation))
	mux.Handle("PUT /profile/education/{id}", protected(profileHandler.UpdateEducation))
	mux.Handle("DELETE /profile/education/{id}", protected(profileHandler.DeleteEducation))

	mux.Handle("GET /profile/projects", protected(profileHandler.ListProjects))
	mux.Handle("POST /profile/projects", protected(profileHandler.CreateProject))
	mux.Handle("PUT /profile/projects/{id}", protected(profileHandler.UpdateProject))
	mux.Handle("DELETE /profile/projects/{id}", protected(profileHandler.DeleteProject))

	mux.Handle("GET /profile/skills", protected(profileHandler.ListSkills))
	mux.Handle("POST /profile/skills", protected(profileHandler.CreateSkill))
	mux.Handle("PUT /profile/skills/{id}", protected(profileHandler.UpdateSkill))
	mux.Handle("DELETE /profile/skills/{id}", protected(profileHandler.DeleteSkill))

	mux.Handle("GET /profile/experience", protected(profileHandler.ListExperience))
	mux.Handle("POST /profile/experience", protected(profileHandler.CreateExperience))
	mux.Handle("PUT /profile/experience/{id}", protected(profileHandler.UpdateExperience))
	mux.Handle("DELETE /profile/experience/{id}", protected(profileHandler.DeleteExperience))

	mux.Handle("GET /metrics", promhttp.Handler())

	return middleware.Metrics(mux)
}
